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

type SchemeHandler struct {
	schemeService service.SchemeService
	authn         *middleware.Authenticator
	log           *zap.Logger
}

// NewSchemeHandler sets up the routing dependencies for Scheme endpoints
func NewSchemeHandler(schemeService service.SchemeService, authn *middleware.Authenticator, log *zap.Logger) *SchemeHandler {
	return &SchemeHandler{schemeService: schemeService, authn: authn, log: newLogger(log)}
}

// RegisterRoutes binds the endpoints to the gin Engine or RouterGroup
func (h *SchemeHandler) RegisterRoutes(router *gin.RouterGroup) {
	public := router.Group("/schemes", h.authn.WithAuth(middleware.AuthOptions{RequireProfile: true}))
	{
		public.GET("", h.ListActiveSchemes)
		public.POST("/:id/subscribe", h.Subscribe)
	}

	view := h.authn.WithAuth(middleware.AuthOptions{RequiredPermission: rbac.PermSchemesView})
	edit := h.authn.WithAuth(middleware.AuthOptions{RequiredPermission: rbac.PermSchemesEdit})
	schemes := router.Group("/admin/schemes")
	{
		schemes.GET("", view, h.ListSchemes)
		schemes.GET("/:id", view, h.GetScheme)
		schemes.POST("", edit, h.CreateScheme)
		schemes.PUT("/:id", edit, h.UpdateScheme)
		schemes.DELETE("/:id", edit, h.DeleteScheme)
		schemes.POST("/:id/draw", h.authn.WithAuth(middleware.AuthOptions{RequiredPermission: rbac.PermWinnersEdit}), h.RunDraw)
	}
}

// ListActiveSchemes handles GET /schemes
// @Summary      Open schemes
// @Tags         schemes
// @Produce      json
// @Security     BearerAuth
// @Param        page   query     int  false  "Page number"
// @Param        limit  query     int  false  "Page size"
// @Success      200    {object}  response.Response{data=response.Page}
// @Router       /schemes [get]
func (h *SchemeHandler) ListActiveSchemes(c *gin.Context) {
	p := pagination.Parse(c)
	schemes, total, err := h.schemeService.ListActive(c.Request.Context(), p.Page, p.Limit)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, response.Paginated(schemes, total, p.Page, p.Limit))
}

// Subscribe handles POST /schemes/:id/subscribe
// @Summary      Join a scheme
// @Tags         schemes
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Scheme ID"
// @Success      201  {object}  response.Response{data=model.SchemeSubscription}
// @Failure      400  {object}  response.Response
// @Failure      409  {object}  response.Response
// @Router       /schemes/{id}/subscribe [post]
func (h *SchemeHandler) Subscribe(c *gin.Context) {
	id, ok := customer(c)
	if !ok {
		return
	}
	sub, err := h.schemeService.Subscribe(c.Request.Context(), id.ID.String(), c.Param("id"))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(sub))
}

// ListSchemes handles GET /admin/schemes
// @Summary      List schemes
// @Tags         schemes
// @Produce      json
// @Security     BearerAuth
// @Param        status  query     string  false  "draft, active or closed"
// @Param        search  query     string  false  "Name"
// @Param        page    query     int     false  "Page number"
// @Param        limit   query     int     false  "Page size"
// @Success      200     {object}  response.Response{data=response.Page}
// @Router       /admin/schemes [get]
func (h *SchemeHandler) ListSchemes(c *gin.Context) {
	var q service.SchemeListQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		badRequest(c, err)
		return
	}
	p := pagination.Parse(c)

	schemes, total, err := h.schemeService.List(c.Request.Context(), q, p.Page, p.Limit)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, response.Paginated(schemes, total, p.Page, p.Limit))
}

// GetScheme handles GET /admin/schemes/:id
// @Summary      Get scheme
// @Tags         schemes
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Scheme ID"
// @Success      200  {object}  response.Response{data=model.Scheme}
// @Failure      404  {object}  response.Response
// @Router       /admin/schemes/{id} [get]
func (h *SchemeHandler) GetScheme(c *gin.Context) {
	scheme, err := h.schemeService.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(scheme))
}

// CreateScheme handles POST /admin/schemes
// @Summary      Create scheme
// @Tags         schemes
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        payload  body      service.CreateSchemeRequest  true  "Scheme Payload"
// @Success      201      {object}  response.Response{data=model.Scheme}
// @Failure      409      {object}  response.Response
// @Router       /admin/schemes [post]
func (h *SchemeHandler) CreateScheme(c *gin.Context) {
	var req service.CreateSchemeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	scheme, err := h.schemeService.Create(c.Request.Context(), actorID(c), req)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(scheme))
}

// UpdateScheme handles PUT /admin/schemes/:id
// @Summary      Update scheme
// @Tags         schemes
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      string                       true  "Scheme ID"
// @Param        payload  body      service.UpdateSchemeRequest  true  "Scheme fields"
// @Success      200      {object}  response.Response{data=model.Scheme}
// @Router       /admin/schemes/{id} [put]
func (h *SchemeHandler) UpdateScheme(c *gin.Context) {
	var req service.UpdateSchemeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	scheme, err := h.schemeService.Update(c.Request.Context(), actorID(c), c.Param("id"), req)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(scheme))
}

// DeleteScheme handles DELETE /admin/schemes/:id
// @Summary      Delete scheme
// @Description  Only schemes without subscribers can be deleted
// @Tags         schemes
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Scheme ID"
// @Success      200  {object}  response.Response
// @Failure      409  {object}  response.Response
// @Router       /admin/schemes/{id} [delete]
func (h *SchemeHandler) DeleteScheme(c *gin.Context) {
	if err := h.schemeService.Delete(c.Request.Context(), actorID(c), c.Param("id")); err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, response.SuccessWithMessage("Scheme deleted", nil))
}

// RunDraw handles POST /admin/schemes/:id/draw
// @Summary      Run prize draw
// @Tags         schemes
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      string                  true  "Scheme ID"
// @Param        payload  body      service.RunDrawRequest  true  "Number of winners"
// @Success      200      {object}  response.Response{data=[]model.Winner}
// @Failure      400      {object}  response.Response
// @Router       /admin/schemes/{id}/draw [post]
func (h *SchemeHandler) RunDraw(c *gin.Context) {
	var req service.RunDrawRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	winners, err := h.schemeService.RunDraw(c.Request.Context(), actorID(c), c.Param("id"), req)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(winners))
}
