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

type AuditHandler struct {
	auditService service.AuditService
	authn        *middleware.Authenticator
	log          *zap.Logger
}

func NewAuditHandler(auditService service.AuditService, authn *middleware.Authenticator, log *zap.Logger) *AuditHandler {
	return &AuditHandler{auditService: auditService, authn: authn, log: newLogger(log)}
}

func (h *AuditHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("/admin/audit", h.authn.WithAuth(middleware.AuthOptions{RequiredPermission: rbac.PermAuditView}), h.GetAuditLogs)
}

// GetAuditLogs retrieves paginated staff actions with the acting staff member preloaded
// @Summary      Get audit logs
// @Tags         audit
// @Security     BearerAuth
// @Produce      json
// @Param        staff_id  query     string  false  "Acting staff filter"
// @Param        action    query     string  false  "Action filter, e.g. CHANGE_STAFF_ROLE"
// @Param        page      query     int     false  "Page number (default 1)"
// @Param        limit     query     int     false  "Number of items per page (default 20)"
// @Success      200       {object}  response.Response{data=response.Page}
// @Router       /admin/audit [get]
func (h *AuditHandler) GetAuditLogs(c *gin.Context) {
	var q service.AuditListQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		badRequest(c, err)
		return
	}
	p := pagination.Parse(c)

	logs, total, err := h.auditService.List(c.Request.Context(), q, p.Page, p.Limit)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, response.Paginated(logs, total, p.Page, p.Limit))
}
