package handler

import (
	"net/http"

	"akshayapatra/internal/middleware"
	"akshayapatra/internal/service"
	"akshayapatra/pkg/response"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type RBACHandler struct {
	rbacService service.RBACAdminService
	authn       *middleware.Authenticator
	log         *zap.Logger
}

func NewRBACHandler(rbacService service.RBACAdminService, authn *middleware.Authenticator, log *zap.Logger) *RBACHandler {
	return &RBACHandler{rbacService: rbacService, authn: authn, log: newLogger(log)}
}

// RegisterRoutes binds the superadmin-only cache controls
func (h *RBACHandler) RegisterRoutes(router *gin.RouterGroup) {
	cache := router.Group("/admin/rbac/cache", h.authn.WithAuth(middleware.AuthOptions{SuperAdminOnly: true}))
	{
		cache.GET("", h.GetCacheStats)
		cache.DELETE("", h.FlushCache)
		cache.DELETE("/:id", h.ClearUserCache)
	}
}

// GetCacheStats handles GET /admin/rbac/cache
// @Summary      Permission cache stats
// @Tags         rbac
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  response.Response{data=rbac.CacheStats}
// @Failure      403  {object}  response.Response
// @Router       /admin/rbac/cache [get]
func (h *RBACHandler) GetCacheStats(c *gin.Context) {
	c.JSON(http.StatusOK, response.Success(h.rbacService.Stats()))
}

// FlushCache handles DELETE /admin/rbac/cache
// @Summary      Flush permission cache
// @Description  Drops every cached decision on this and, best-effort, other instances
// @Tags         rbac
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  response.Response
// @Router       /admin/rbac/cache [delete]
func (h *RBACHandler) FlushCache(c *gin.Context) {
	if err := h.rbacService.Flush(c.Request.Context(), actorID(c)); err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, response.SuccessWithMessage("Permission cache flushed", nil))
}

// ClearUserCache handles DELETE /admin/rbac/cache/:id
// @Summary      Drop one staff member's cached permissions
// @Tags         rbac
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Staff ID"
// @Success      200  {object}  response.Response
// @Failure      400  {object}  response.Response
// @Router       /admin/rbac/cache/{id} [delete]
func (h *RBACHandler) ClearUserCache(c *gin.Context) {
	if err := h.rbacService.ClearUser(c.Request.Context(), actorID(c), c.Param("id")); err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, response.SuccessWithMessage("Permission cache cleared", nil))
}
