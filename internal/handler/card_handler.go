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

type CardHandler struct {
	cardService service.CardService
	authn       *middleware.Authenticator
	log         *zap.Logger
}

// NewCardHandler sets up the routing dependencies for Card endpoints
func NewCardHandler(cardService service.CardService, authn *middleware.Authenticator, log *zap.Logger) *CardHandler {
	return &CardHandler{cardService: cardService, authn: authn, log: newLogger(log)}
}

// RegisterRoutes binds the endpoints to the gin Engine or RouterGroup
func (h *CardHandler) RegisterRoutes(router *gin.RouterGroup) {
	own := router.Group("/cards/me", h.authn.WithAuth(middleware.AuthOptions{RequireProfile: true}))
	{
		own.GET("", h.ListOwnCards)
		own.POST("", h.IssueOwnCard)
	}

	view := h.authn.WithAuth(middleware.AuthOptions{RequiredPermission: rbac.PermCardsView})
	edit := h.authn.WithAuth(middleware.AuthOptions{RequiredPermission: rbac.PermCardsEdit})
	cards := router.Group("/admin/cards")
	{
		cards.GET("", view, h.ListCards)
		cards.GET("/:id", view, h.GetCard)
		cards.POST("", edit, h.CreateCard)
		cards.PUT("/:id", edit, h.UpdateCard)
		cards.DELETE("/:id", edit, h.DeleteCard)
	}
}

// ListOwnCards handles GET /cards/me
// @Summary      My cards
// @Tags         cards
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  response.Response{data=[]model.Card}
// @Failure      403  {object}  response.Response
// @Router       /cards/me [get]
func (h *CardHandler) ListOwnCards(c *gin.Context) {
	id, ok := customer(c)
	if !ok {
		return
	}
	cards, err := h.cardService.GetForUser(c.Request.Context(), id.ID.String())
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(cards))
}

// IssueOwnCard handles POST /cards/me
// @Summary      Request a virtual card
// @Description  Issues a virtual card once the customer's profile is complete
// @Tags         cards
// @Produce      json
// @Security     BearerAuth
// @Success      201  {object}  response.Response{data=model.Card}
// @Failure      400  {object}  response.Response
// @Router       /cards/me [post]
func (h *CardHandler) IssueOwnCard(c *gin.Context) {
	id, ok := customer(c)
	if !ok {
		return
	}
	card, err := h.cardService.IssueForUser(c.Request.Context(), id.ID.String())
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(card))
}

// ListCards handles GET /admin/cards
// @Summary      List cards
// @Tags         cards
// @Produce      json
// @Security     BearerAuth
// @Param        user_id  query     string  false  "Owner filter"
// @Param        status   query     string  false  "active, blocked or expired"
// @Param        search   query     string  false  "Holder or number"
// @Param        page     query     int     false  "Page number"
// @Param        limit    query     int     false  "Page size"
// @Success      200      {object}  response.Response{data=response.Page}
// @Router       /admin/cards [get]
func (h *CardHandler) ListCards(c *gin.Context) {
	var q service.CardListQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		badRequest(c, err)
		return
	}
	p := pagination.Parse(c)

	cards, total, err := h.cardService.List(c.Request.Context(), q, p.Page, p.Limit)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, response.Paginated(cards, total, p.Page, p.Limit))
}

// GetCard handles GET /admin/cards/:id
// @Summary      Get card
// @Tags         cards
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Card ID"
// @Success      200  {object}  response.Response{data=model.Card}
// @Failure      404  {object}  response.Response
// @Router       /admin/cards/{id} [get]
func (h *CardHandler) GetCard(c *gin.Context) {
	card, err := h.cardService.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(card))
}

// CreateCard handles POST /admin/cards
// @Summary      Create card
// @Tags         cards
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        payload  body      service.CreateCardRequest  true  "Card Payload"
// @Success      201      {object}  response.Response{data=model.Card}
// @Failure      400      {object}  response.Response
// @Router       /admin/cards [post]
func (h *CardHandler) CreateCard(c *gin.Context) {
	var req service.CreateCardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	card, err := h.cardService.Create(c.Request.Context(), actorID(c), req)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(card))
}

// UpdateCard handles PUT /admin/cards/:id
// @Summary      Update card
// @Tags         cards
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      string                     true  "Card ID"
// @Param        payload  body      service.UpdateCardRequest  true  "Card fields"
// @Success      200      {object}  response.Response{data=model.Card}
// @Router       /admin/cards/{id} [put]
func (h *CardHandler) UpdateCard(c *gin.Context) {
	var req service.UpdateCardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	card, err := h.cardService.Update(c.Request.Context(), actorID(c), c.Param("id"), req)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(card))
}

// DeleteCard handles DELETE /admin/cards/:id
// @Summary      Delete card
// @Tags         cards
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Card ID"
// @Success      200  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Router       /admin/cards/{id} [delete]
func (h *CardHandler) DeleteCard(c *gin.Context) {
	if err := h.cardService.Delete(c.Request.Context(), actorID(c), c.Param("id")); err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, response.SuccessWithMessage("Card deleted", nil))
}
