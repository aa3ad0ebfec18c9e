package handler

import (
	"net/http"

	"akshayapatra/internal/middleware"
	"akshayapatra/internal/rbac"
	"akshayapatra/internal/service"
	"akshayapatra/pkg/response"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type OverviewHandler struct {
	overviewService service.OverviewService
	authn           *middleware.Authenticator
	log             *zap.Logger
}

func NewOverviewHandler(overviewService service.OverviewService, authn *middleware.Authenticator, log *zap.Logger) *OverviewHandler {
	return &OverviewHandler{overviewService: overviewService, authn: authn, log: newLogger(log)}
}

func (h *OverviewHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("/admin/overview", h.authn.WithAuth(middleware.AuthOptions{RequiredPermission: rbac.PermOverviewView}), h.GetOverview)
}

// @Summary      Dashboard overview
// @Description  Headline counts for the admin dashboard
// @Tags         overview
// @Produce      json
// @Success      200 {object} response.Response{data=service.Overview}
// @Failure      401 {object} response.Response "Unauthorized"
// @Failure      403 {object} response.Response "Forbidden"
// @Security     BearerAuth
// @Router       /admin/overview [get]
func (h *OverviewHandler) GetOverview(c *gin.Context) {
	overview, err := h.overviewService.Get(c.Request.Context())
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(overview))
}
