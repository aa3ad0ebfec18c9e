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

type UserProfileHandler struct {
	userService service.UserProfileService
	authn       *middleware.Authenticator
	log         *zap.Logger
}

// NewUserProfileHandler sets up the routing dependencies for customer profiles
func NewUserProfileHandler(userService service.UserProfileService, authn *middleware.Authenticator, log *zap.Logger) *UserProfileHandler {
	return &UserProfileHandler{userService: userService, authn: authn, log: newLogger(log)}
}

// RegisterRoutes binds the endpoints to the gin Engine or RouterGroup
func (h *UserProfileHandler) RegisterRoutes(router *gin.RouterGroup) {
	profile := router.Group("/profile", h.authn.WithAuth(middleware.AuthOptions{
		RequireProfile:       true,
		ProfileMissingStatus: http.StatusNotFound,
	}))
	{
		profile.GET("", h.GetOwnProfile)
		profile.PUT("", h.UpdateOwnProfile)
	}

	view := h.authn.WithAuth(middleware.AuthOptions{RequiredPermission: rbac.PermUsersView})
	edit := h.authn.WithAuth(middleware.AuthOptions{RequiredPermission: rbac.PermUsersEdit})
	users := router.Group("/admin/users")
	{
		users.GET("", view, h.ListUsers)
		users.GET("/:id", view, h.GetUser)
		users.PUT("/:id", edit, h.UpdateUser)
		users.PATCH("/:id/ban", edit, h.SetUserBan)
	}
}

// GetOwnProfile handles GET /profile
// @Summary      My profile
// @Tags         profile
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  response.Response{data=model.UserProfile}
// @Failure      404  {object}  response.Response
// @Router       /profile [get]
func (h *UserProfileHandler) GetOwnProfile(c *gin.Context) {
	id, ok := customer(c)
	if !ok {
		return
	}
	user, err := h.userService.GetOwn(c.Request.Context(), id.ID.String())
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(user))
}

// UpdateOwnProfile handles PUT /profile
// @Summary      Update my profile
// @Description  Saves KYC fields and re-evaluates profile completion
// @Tags         profile
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        payload  body      service.UpdateUserProfileRequest  true  "Profile fields"
// @Success      200      {object}  response.Response{data=model.UserProfile}
// @Failure      400      {object}  response.Response
// @Router       /profile [put]
func (h *UserProfileHandler) UpdateOwnProfile(c *gin.Context) {
	id, ok := customer(c)
	if !ok {
		return
	}
	var req service.UpdateUserProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	user, err := h.userService.UpdateOwn(c.Request.Context(), id.ID.String(), req)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(user))
}

// ListUsers handles GET /admin/users
// @Summary      List customers
// @Tags         users
// @Produce      json
// @Security     BearerAuth
// @Param        search             query     string  false  "Name, email or phone"
// @Param        banned             query     bool    false  "Ban filter"
// @Param        profile_completed  query     bool    false  "KYC filter"
// @Param        page               query     int     false  "Page number"
// @Param        limit              query     int     false  "Page size"
// @Success      200                {object}  response.Response{data=response.Page}
// @Router       /admin/users [get]
func (h *UserProfileHandler) ListUsers(c *gin.Context) {
	var q service.UserListQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		badRequest(c, err)
		return
	}
	p := pagination.Parse(c)

	users, total, err := h.userService.List(c.Request.Context(), q, p.Page, p.Limit)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, response.Paginated(users, total, p.Page, p.Limit))
}

// GetUser handles GET /admin/users/:id
// @Summary      Get customer
// @Tags         users
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "User ID"
// @Success      200  {object}  response.Response{data=model.UserProfile}
// @Failure      404  {object}  response.Response
// @Router       /admin/users/{id} [get]
func (h *UserProfileHandler) GetUser(c *gin.Context) {
	user, err := h.userService.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(user))
}

// UpdateUser handles PUT /admin/users/:id
// @Summary      Update customer
// @Tags         users
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      string                            true  "User ID"
// @Param        payload  body      service.UpdateUserProfileRequest  true  "Profile fields"
// @Success      200      {object}  response.Response{data=model.UserProfile}
// @Router       /admin/users/{id} [put]
func (h *UserProfileHandler) UpdateUser(c *gin.Context) {
	var req service.UpdateUserProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	user, err := h.userService.Update(c.Request.Context(), actorID(c), c.Param("id"), req)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(user))
}

// SetUserBan handles PATCH /admin/users/:id/ban
// @Summary      Ban or unban customer
// @Tags         users
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      string                  true  "User ID"
// @Param        payload  body      service.BanUserRequest  true  "Ban action"
// @Success      200      {object}  response.Response{data=model.UserProfile}
// @Router       /admin/users/{id}/ban [patch]
func (h *UserProfileHandler) SetUserBan(c *gin.Context) {
	var req service.BanUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	user, err := h.userService.SetBan(c.Request.Context(), actorID(c), c.Param("id"), req)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(user))
}
