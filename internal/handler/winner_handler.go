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

type WinnerHandler struct {
	winnerService service.WinnerService
	authn         *middleware.Authenticator
	log           *zap.Logger
}

// NewWinnerHandler sets up the routing dependencies for Winner endpoints
func NewWinnerHandler(winnerService service.WinnerService, authn *middleware.Authenticator, log *zap.Logger) *WinnerHandler {
	return &WinnerHandler{winnerService: winnerService, authn: authn, log: newLogger(log)}
}

// RegisterRoutes binds the endpoints to the gin Engine or RouterGroup
func (h *WinnerHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("/winners", h.authn.WithAuth(middleware.AuthOptions{RequireProfile: true}), h.ListPublicWinners)

	view := h.authn.WithAuth(middleware.AuthOptions{RequiredPermission: rbac.PermWinnersView})
	edit := h.authn.WithAuth(middleware.AuthOptions{RequiredPermission: rbac.PermWinnersEdit})
	winners := router.Group("/admin/winners")
	{
		winners.GET("", view, h.ListWinners)
		winners.GET("/:id", view, h.GetWinner)
		winners.POST("", edit, h.CreateWinner)
		winners.PATCH("/:id/status", edit, h.UpdateWinnerStatus)
		winners.DELETE("/:id", edit, h.DeleteWinner)
	}
}

// ListPublicWinners handles GET /winners
// @Summary      Recent winners
// @Description  Winners with masked names, for customers
// @Tags         winners
// @Produce      json
// @Security     BearerAuth
// @Param        page   query     int  false  "Page number"
// @Param        limit  query     int  false  "Page size"
// @Success      200    {object}  response.Response{data=response.Page}
// @Router       /winners [get]
func (h *WinnerHandler) ListPublicWinners(c *gin.Context) {
	p := pagination.Parse(c)
	winners, total, err := h.winnerService.ListPublic(c.Request.Context(), p.Page, p.Limit)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, response.Paginated(winners, total, p.Page, p.Limit))
}

// ListWinners handles GET /admin/winners
// @Summary      List winners with contact details
// @Tags         winners
// @Produce      json
// @Security     BearerAuth
// @Param        scheme_id  query     string  false  "Scheme filter"
// @Param        status     query     string  false  "pending or delivered"
// @Param        page       query     int     false  "Page number"
// @Param        limit      query     int     false  "Page size"
// @Success      200        {object}  response.Response{data=response.Page}
// @Router       /admin/winners [get]
func (h *WinnerHandler) ListWinners(c *gin.Context) {
	var q service.WinnerListQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		badRequest(c, err)
		return
	}
	p := pagination.Parse(c)

	winners, total, err := h.winnerService.ListWithUserProfiles(c.Request.Context(), q, p.Page, p.Limit)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, response.Paginated(winners, total, p.Page, p.Limit))
}

// GetWinner handles GET /admin/winners/:id
// @Summary      Get winner
// @Tags         winners
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Winner ID"
// @Success      200  {object}  response.Response{data=service.WinnerResponse}
// @Failure      404  {object}  response.Response
// @Router       /admin/winners/{id} [get]
func (h *WinnerHandler) GetWinner(c *gin.Context) {
	winner, err := h.winnerService.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(winner))
}

// CreateWinner handles POST /admin/winners
// @Summary      Record a winner
// @Tags         winners
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        payload  body      service.CreateWinnerRequest  true  "Winner Payload"
// @Success      201      {object}  response.Response{data=service.WinnerResponse}
// @Router       /admin/winners [post]
func (h *WinnerHandler) CreateWinner(c *gin.Context) {
	var req service.CreateWinnerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	winner, err := h.winnerService.Create(c.Request.Context(), actorID(c), req)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(winner))
}

// UpdateWinnerStatus handles PATCH /admin/winners/:id/status
// @Summary      Mark prize delivery
// @Tags         winners
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      string                             true  "Winner ID"
// @Param        payload  body      service.UpdateWinnerStatusRequest  true  "Status"
// @Success      200      {object}  response.Response{data=service.WinnerResponse}
// @Router       /admin/winners/{id}/status [patch]
func (h *WinnerHandler) UpdateWinnerStatus(c *gin.Context) {
	var req service.UpdateWinnerStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	winner, err := h.winnerService.UpdateStatus(c.Request.Context(), actorID(c), c.Param("id"), req)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(winner))
}

// DeleteWinner handles DELETE /admin/winners/:id
// @Summary      Delete winner
// @Tags         winners
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Winner ID"
// @Success      200  {object}  response.Response
// @Router       /admin/winners/{id} [delete]
func (h *WinnerHandler) DeleteWinner(c *gin.Context) {
	if err := h.winnerService.Delete(c.Request.Context(), actorID(c), c.Param("id")); err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, response.SuccessWithMessage("Winner deleted", nil))
}
