package handler

import (
	"context"
	"net/http"
	"time"

	"akshayapatra/internal/auth"
	"akshayapatra/internal/metrics"
	"akshayapatra/internal/websocket"
	"akshayapatra/pkg/response"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Pinger reports whether a backing store is reachable
type Pinger interface {
	PingContext(ctx context.Context) error
}

type SystemHandler struct {
	db     Pinger
	hub    *websocket.Hub
	tokens *auth.TokenManager
	roles  websocket.RoleResolver
	log    *zap.Logger
}

func NewSystemHandler(db Pinger, hub *websocket.Hub, tokens *auth.TokenManager, roles websocket.RoleResolver, log *zap.Logger) *SystemHandler {
	return &SystemHandler{db: db, hub: hub, tokens: tokens, roles: roles, log: newLogger(log)}
}

func (h *SystemHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("/health", h.Health)
	router.GET("/metrics", gin.WrapH(metrics.Handler()))
	router.GET("/ws", h.ServeWs)
}

// Health handles GET /health
// @Summary      Health check
// @Tags         system
// @Produce      json
// @Success      200  {object}  response.Response
// @Failure      503  {object}  response.Response
// @Router       /health [get]
func (h *SystemHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	if err := h.db.PingContext(ctx); err != nil {
		h.log.Warn("health check: database unreachable", zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, response.Error("database unreachable"))
		return
	}
	c.JSON(http.StatusOK, response.Success(gin.H{"status": "OK", "ws_clients": h.hub.Len()}))
}

// ServeWs handles GET /ws for staff sessions
// @Summary      Admin console events
// @Description  Upgrades to a websocket that streams role, ban and draw events
// @Tags         system
// @Param        token  query  string  false  "Session token when cookies are unavailable"
// @Router       /ws [get]
func (h *SystemHandler) ServeWs(c *gin.Context) {
	websocket.ServeWs(h.hub, c, h.tokens, h.roles)
}
