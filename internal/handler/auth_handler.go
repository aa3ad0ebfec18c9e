package handler

import (
	"net/http"
	"time"

	"akshayapatra/internal/middleware"
	"akshayapatra/internal/service"
	"akshayapatra/pkg/response"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type AuthHandler struct {
	authService   service.AuthService
	authn         *middleware.Authenticator
	sessionTTL    time.Duration
	secureCookies bool
	log           *zap.Logger
}

// NewAuthHandler sets up the routing dependencies for session endpoints
func NewAuthHandler(authService service.AuthService, authn *middleware.Authenticator, sessionTTL time.Duration, secureCookies bool, log *zap.Logger) *AuthHandler {
	return &AuthHandler{
		authService:   authService,
		authn:         authn,
		sessionTTL:    sessionTTL,
		secureCookies: secureCookies,
		log:           newLogger(log),
	}
}

// RegisterRoutes binds the endpoints to the gin Engine or RouterGroup
func (h *AuthHandler) RegisterRoutes(router *gin.RouterGroup) {
	customers := router.Group("/auth")
	{
		customers.POST("/signup", h.UserSignUp)
		customers.POST("/login", h.UserLogin)
		customers.POST("/logout", h.Logout)
	}

	staff := router.Group("/admin/auth")
	{
		staff.POST("/signup", h.StaffSignUp)
		staff.POST("/login", h.StaffLogin)
	}

	router.GET("/me", h.authn.WithAuth(middleware.AuthOptions{}), h.GetMe)
}

func (h *AuthHandler) startSession(c *gin.Context, status int, session *service.SessionResponse) {
	middleware.SetTokenCookie(c, session.Token, h.sessionTTL, h.secureCookies)
	c.JSON(status, response.Success(session))
}

// UserSignUp handles POST /auth/signup
// @Summary      Customer signup
// @Description  Creates a customer profile, optionally attaching a referral code, and starts a session
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.UserSignUpRequest  true  "Signup Payload"
// @Success      201      {object}  response.Response{data=service.SessionResponse}
// @Failure      400      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Router       /auth/signup [post]
func (h *AuthHandler) UserSignUp(c *gin.Context) {
	var req service.UserSignUpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	session, err := h.authService.UserSignUp(c.Request.Context(), req)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	h.startSession(c, http.StatusCreated, session)
}

// UserLogin handles POST /auth/login
// @Summary      Customer login
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.LoginRequest  true  "Login Credentials"
// @Success      200      {object}  response.Response{data=service.SessionResponse}
// @Failure      400      {object}  response.Response
// @Failure      401      {object}  response.Response
// @Router       /auth/login [post]
func (h *AuthHandler) UserLogin(c *gin.Context) {
	var req service.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	session, err := h.authService.UserLogin(c.Request.Context(), req)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	h.startSession(c, http.StatusOK, session)
}

// StaffSignUp handles POST /admin/auth/signup
// @Summary      Staff signup
// @Description  Creates a staff profile with the lowest role. Requires the admin access key.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.StaffSignUpRequest  true  "Staff Signup Payload"
// @Success      201      {object}  response.Response{data=service.SessionResponse}
// @Failure      400      {object}  response.Response
// @Failure      403      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Router       /admin/auth/signup [post]
func (h *AuthHandler) StaffSignUp(c *gin.Context) {
	var req service.StaffSignUpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	session, err := h.authService.StaffSignUp(c.Request.Context(), req)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	h.startSession(c, http.StatusCreated, session)
}

// StaffLogin handles POST /admin/auth/login
// @Summary      Staff login
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.LoginRequest  true  "Login Credentials"
// @Success      200      {object}  response.Response{data=service.SessionResponse}
// @Failure      401      {object}  response.Response
// @Failure      403      {object}  response.Response
// @Router       /admin/auth/login [post]
func (h *AuthHandler) StaffLogin(c *gin.Context) {
	var req service.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	session, err := h.authService.StaffLogin(c.Request.Context(), req)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	h.startSession(c, http.StatusOK, session)
}

// Logout handles POST /auth/logout by clearing the session cookie
// @Summary      Logout
// @Tags         auth
// @Produce      json
// @Success      200      {object}  response.Response
// @Router       /auth/logout [post]
func (h *AuthHandler) Logout(c *gin.Context) {
	middleware.ClearTokenCookie(c, h.secureCookies)
	c.JSON(http.StatusOK, response.SuccessWithMessage("Logged out successfully", nil))
}

// GetMe handles GET /me
// @Summary      Current session
// @Description  Returns the caller's profile and, for staff, live role, permissions and pages
// @Tags         auth
// @Produce      json
// @Security     BearerAuth
// @Success      200      {object}  response.Response{data=service.MeResponse}
// @Failure      401      {object}  response.Response
// @Router       /me [get]
func (h *AuthHandler) GetMe(c *gin.Context) {
	id, _ := middleware.CurrentIdentity(c)
	me, err := h.authService.Me(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(me))
}
