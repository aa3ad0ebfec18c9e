package handler

import (
	"net/http"

	"akshayapatra/internal/middleware"
	"akshayapatra/internal/rbac"
	"akshayapatra/internal/service"
	"akshayapatra/pkg/pagination"
	"akshayapatra/pkg/response"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type StaffHandler struct {
	staffService service.StaffService
	authn        *middleware.Authenticator
	log          *zap.Logger
}

// NewStaffHandler sets up the routing dependencies for staff management
func NewStaffHandler(staffService service.StaffService, authn *middleware.Authenticator, log *zap.Logger) *StaffHandler {
	return &StaffHandler{staffService: staffService, authn: authn, log: newLogger(log)}
}

// RegisterRoutes binds the endpoints to the gin Engine or RouterGroup
func (h *StaffHandler) RegisterRoutes(router *gin.RouterGroup) {
	admin := router.Group("/admin")
	view := h.authn.WithAuth(middleware.AuthOptions{RequiredPermission: rbac.PermStaffView})

	staff := admin.Group("/staff")
	{
		staff.GET("", view, h.ListStaff)
		staff.GET("/:id", view, h.GetStaff)
		staff.POST("/:id/role", h.authn.WithAuth(middleware.AuthOptions{RequiredPermission: rbac.PermStaffEdit}), h.ChangeRole)
		staff.PATCH("/:id/ban", h.authn.WithAuth(middleware.AuthOptions{RequiredPermission: rbac.PermStaffBan}), h.SetBan)
	}

	admin.GET("/roles", view, h.ListRoles)
	admin.GET("/profile", h.authn.WithAuth(middleware.AuthOptions{
		RequiredPermission: rbac.PermProfileView,
		RequireProfile:     true,
	}), h.GetProfile)
	admin.PUT("/profile", h.authn.WithAuth(middleware.AuthOptions{
		RequiredPermission: rbac.PermProfileEdit,
		RequireProfile:     true,
	}), h.UpdateProfile)
}

// ListStaff handles GET /admin/staff
// @Summary      List staff
// @Tags         staff
// @Produce      json
// @Security     BearerAuth
// @Param        role    query     string  false  "Role filter"
// @Param        status  query     string  false  "active or banned"
// @Param        search  query     string  false  "Name or email"
// @Param        page    query     int     false  "Page number"
// @Param        limit   query     int     false  "Page size"
// @Success      200     {object}  response.Response{data=response.Page}
// @Failure      403     {object}  response.Response
// @Router       /admin/staff [get]
func (h *StaffHandler) ListStaff(c *gin.Context) {
	var q service.StaffListQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		badRequest(c, err)
		return
	}
	p := pagination.Parse(c)

	staff, total, err := h.staffService.List(c.Request.Context(), q, p.Page, p.Limit)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, response.Paginated(staff, total, p.Page, p.Limit))
}

// GetStaff handles GET /admin/staff/:id
// @Summary      Get staff member
// @Tags         staff
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Staff ID"
// @Success      200  {object}  response.Response{data=service.StaffResponse}
// @Failure      404  {object}  response.Response
// @Router       /admin/staff/{id} [get]
func (h *StaffHandler) GetStaff(c *gin.Context) {
	staff, err := h.staffService.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(staff))
}

// ChangeRole handles POST /admin/staff/:id/role
// @Summary      Change staff role
// @Description  Assigns a role strictly below the caller's own. The target's cached permissions are dropped before the response.
// @Tags         staff
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      string                     true  "Staff ID"
// @Param        payload  body      service.ChangeRoleRequest  true  "New role"
// @Success      200      {object}  response.Response{data=service.StaffResponse}
// @Failure      400      {object}  response.Response
// @Failure      403      {object}  response.Response
// @Failure      404      {object}  response.Response
// @Router       /admin/staff/{id}/role [post]
func (h *StaffHandler) ChangeRole(c *gin.Context) {
	var req service.ChangeRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	staff, err := h.staffService.ChangeRole(c.Request.Context(), actorID(c), c.Param("id"), req)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, response.SuccessWithMessage("Role updated", staff))
}

// SetBan handles PATCH /admin/staff/:id/ban
// @Summary      Ban or unban staff
// @Tags         staff
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      string              true  "Staff ID"
// @Param        payload  body      service.BanRequest  true  "Ban action"
// @Success      200      {object}  response.Response{data=service.StaffResponse}
// @Failure      400      {object}  response.Response
// @Failure      403      {object}  response.Response
// @Router       /admin/staff/{id}/ban [patch]
func (h *StaffHandler) SetBan(c *gin.Context) {
	var req service.BanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	staff, err := h.staffService.SetBan(c.Request.Context(), actorID(c), c.Param("id"), req)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(staff))
}

// ListRoles handles GET /admin/roles
// @Summary      Role catalog
// @Tags         staff
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  response.Response{data=[]service.RoleInfo}
// @Router       /admin/roles [get]
func (h *StaffHandler) ListRoles(c *gin.Context) {
	c.JSON(http.StatusOK, response.Success(h.staffService.Roles()))
}

// GetProfile handles GET /admin/profile
// @Summary      Own staff profile
// @Tags         staff
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  response.Response{data=service.StaffResponse}
// @Router       /admin/profile [get]
func (h *StaffHandler) GetProfile(c *gin.Context) {
	staff, err := h.staffService.Get(c.Request.Context(), actorID(c))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(staff))
}

// UpdateProfile handles PUT /admin/profile
// @Summary      Update own staff profile
// @Tags         staff
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        payload  body      service.UpdateStaffProfileRequest  true  "Profile fields"
// @Success      200      {object}  response.Response{data=service.StaffResponse}
// @Router       /admin/profile [put]
func (h *StaffHandler) UpdateProfile(c *gin.Context) {
	var req service.UpdateStaffProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	staff, err := h.staffService.UpdateOwnProfile(c.Request.Context(), actorID(c), req)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(staff))
}
