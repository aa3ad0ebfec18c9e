package handler

import (
	"net/http"

	"akshayapatra/internal/apperror"
	"akshayapatra/internal/auth"
	"akshayapatra/internal/middleware"
	"akshayapatra/pkg/response"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// respondError renders err with the status of its kind. Upstream and internal
// failures are logged and reach the client only as a generic message.
func respondError(c *gin.Context, log *zap.Logger, err error) {
	status := apperror.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		log.Error("request failed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Error(err),
		)
	}
	c.JSON(status, response.Error(apperror.PublicMessage(err)))
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, response.Error("Invalid request payload: "+err.Error()))
}

// actorID returns the id of the authenticated caller
func actorID(c *gin.Context) string {
	id, _ := middleware.CurrentIdentity(c)
	return id.ID.String()
}

// customer returns the caller when it is an end-customer session. Staff
// sessions are refused on customer routes.
func customer(c *gin.Context) (auth.Identity, bool) {
	id, ok := middleware.CurrentIdentity(c)
	if !ok || id.IsStaff() {
		c.JSON(http.StatusForbidden, response.Error("customer session required"))
		return auth.Identity{}, false
	}
	return id, true
}

func newLogger(log *zap.Logger) *zap.Logger {
	if log == nil {
		return zap.NewNop()
	}
	return log
}
