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

type ReferralHandler struct {
	referralService service.ReferralService
	authn           *middleware.Authenticator
	log             *zap.Logger
}

// NewReferralHandler sets up the routing dependencies for Referral endpoints
func NewReferralHandler(referralService service.ReferralService, authn *middleware.Authenticator, log *zap.Logger) *ReferralHandler {
	return &ReferralHandler{referralService: referralService, authn: authn, log: newLogger(log)}
}

// RegisterRoutes binds the endpoints to the gin Engine or RouterGroup
func (h *ReferralHandler) RegisterRoutes(router *gin.RouterGroup) {
	own := router.Group("/referrals", h.authn.WithAuth(middleware.AuthOptions{RequireProfile: true}))
	{
		own.GET("/me", h.GetSummary)
		own.POST("/attach", h.Attach)
	}

	view := h.authn.WithAuth(middleware.AuthOptions{RequiredPermission: rbac.PermReferralsView})
	router.GET("/admin/referrals", view, h.ListReferrals)
	router.GET("/admin/commissions", view, h.ListCommissions)
}

// GetSummary handles GET /referrals/me
// @Summary      My referrals
// @Description  Referral code, both referral levels and commission totals
// @Tags         referrals
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  response.Response{data=service.ReferralSummary}
// @Router       /referrals/me [get]
func (h *ReferralHandler) GetSummary(c *gin.Context) {
	id, ok := customer(c)
	if !ok {
		return
	}
	summary, err := h.referralService.Summary(c.Request.Context(), id.ID.String())
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(summary))
}

// Attach handles POST /referrals/attach
// @Summary      Apply a referral code
// @Tags         referrals
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        payload  body      service.AttachReferralRequest  true  "Referral code"
// @Success      200      {object}  response.Response{data=repository.AttachedReferral}
// @Failure      400      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Router       /referrals/attach [post]
func (h *ReferralHandler) Attach(c *gin.Context) {
	id, ok := customer(c)
	if !ok {
		return
	}
	var req service.AttachReferralRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	attached, err := h.referralService.Attach(c.Request.Context(), id.ID.String(), req)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, response.SuccessWithMessage("Referral code applied", attached))
}

// ListReferrals handles GET /admin/referrals
// @Summary      Referral graph
// @Tags         referrals
// @Produce      json
// @Security     BearerAuth
// @Param        referrer_id  query     string  false  "Referrer filter"
// @Param        level        query     int     false  "1 or 2"
// @Param        page         query     int     false  "Page number"
// @Param        limit        query     int     false  "Page size"
// @Success      200          {object}  response.Response{data=response.Page}
// @Router       /admin/referrals [get]
func (h *ReferralHandler) ListReferrals(c *gin.Context) {
	var q service.ReferralListQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		badRequest(c, err)
		return
	}
	p := pagination.Parse(c)

	refs, total, err := h.referralService.ListReferrals(c.Request.Context(), q, p.Page, p.Limit)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, response.Paginated(refs, total, p.Page, p.Limit))
}

// ListCommissions handles GET /admin/commissions
// @Summary      Commission ledger
// @Tags         referrals
// @Produce      json
// @Security     BearerAuth
// @Param        beneficiary_id  query     string  false  "Beneficiary filter"
// @Param        status          query     string  false  "pending or paid"
// @Param        level           query     int     false  "1 or 2"
// @Param        page            query     int     false  "Page number"
// @Param        limit           query     int     false  "Page size"
// @Success      200             {object}  response.Response{data=response.Page}
// @Router       /admin/commissions [get]
func (h *ReferralHandler) ListCommissions(c *gin.Context) {
	var q service.CommissionListQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		badRequest(c, err)
		return
	}
	p := pagination.Parse(c)

	commissions, total, err := h.referralService.ListCommissions(c.Request.Context(), q, p.Page, p.Limit)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, response.Paginated(commissions, total, p.Page, p.Limit))
}
