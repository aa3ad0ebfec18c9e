package middleware

import (
	"context"
	"net/http"
	"strings"
	"time"

	"akshayapatra/internal/auth"
	"akshayapatra/internal/metrics"
	"akshayapatra/internal/rbac"
	"akshayapatra/pkg/response"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	AccessTokenCookie = "access_token"
	identityKey       = "identity"
)

// Authorizer answers role and permission questions for staff identities
type Authorizer interface {
	HasPermission(ctx context.Context, userID string, perm rbac.Permission) bool
	GetUserRole(ctx context.Context, userID string) (rbac.Role, error)
}

// ProfileChecker reports whether an identity has an active, non-banned profile
type ProfileChecker interface {
	HasActiveProfile(ctx context.Context, id auth.Identity) (bool, error)
}

// AuthOptions configures the checks applied before a handler runs.
// Checks run in field order; the first failing check ends the request.
type AuthOptions struct {
	RequiredPermission rbac.Permission
	SuperAdminOnly     bool
	RequireProfile     bool
	// ProfileMissingStatus is returned when RequireProfile fails; defaults to 403
	ProfileMissingStatus int
}

// Authenticator builds route guards from session tokens and RBAC decisions
type Authenticator struct {
	tokens   *auth.TokenManager
	authz    Authorizer
	profiles ProfileChecker
	log      *zap.Logger
}

func NewAuthenticator(tokens *auth.TokenManager, authz Authorizer, profiles ProfileChecker, log *zap.Logger) *Authenticator {
	if log == nil {
		log = zap.NewNop()
	}
	return &Authenticator{tokens: tokens, authz: authz, profiles: profiles, log: log}
}

// WithAuth validates the session then applies opts. Handlers further down the
// chain run only when every check passes; their panics and unhandled errors
// become a generic 500.
func (a *Authenticator) WithAuth(opts AuthOptions) gin.HandlerFunc {
	missingStatus := opts.ProfileMissingStatus
	if missingStatus == 0 {
		missingStatus = http.StatusForbidden
	}

	return func(c *gin.Context) {
		token := tokenFromRequest(c)
		if token == "" {
			deny(c, http.StatusUnauthorized, "unauthenticated", "Authorization is missing")
			return
		}
		identity, err := a.tokens.Parse(token)
		if err != nil {
			deny(c, http.StatusUnauthorized, "unauthenticated", "Invalid or expired session")
			return
		}

		ctx := c.Request.Context()
		userID := identity.ID.String()

		if opts.SuperAdminOnly {
			if !identity.IsStaff() || !identity.IsSuperAdmin {
				deny(c, http.StatusForbidden, "not_superadmin", "Access denied: super admin only")
				return
			}
			// the claim alone is not enough once the role has been revoked
			role, err := a.authz.GetUserRole(ctx, userID)
			if err != nil || role != rbac.RoleSuperAdmin {
				deny(c, http.StatusForbidden, "not_superadmin", "Access denied: super admin only")
				return
			}
		}

		if opts.RequiredPermission != "" {
			if !identity.IsStaff() || !a.authz.HasPermission(ctx, userID, opts.RequiredPermission) {
				deny(c, http.StatusForbidden, "missing_permission", "Access denied: missing permission '"+string(opts.RequiredPermission)+"'")
				return
			}
		}

		if opts.RequireProfile {
			ok, err := a.profiles.HasActiveProfile(ctx, *identity)
			if err != nil {
				a.log.Error("profile check failed", zap.String("user_id", userID), zap.Error(err))
				c.AbortWithStatusJSON(http.StatusInternalServerError, response.Error("internal server error"))
				return
			}
			if !ok {
				deny(c, missingStatus, "profile_missing", "Active profile required")
				return
			}
		}

		c.Set(identityKey, *identity)
		c.Set("userID", userID)
		a.run(c)
	}
}

func (a *Authenticator) run(c *gin.Context) {
	defer func() {
		if r := recover(); r != nil {
			a.log.Error("panic in handler",
				zap.Any("panic", r),
				zap.String("method", c.Request.Method),
				zap.String("path", c.FullPath()),
				zap.Stack("stack"),
			)
			if c.Writer.Written() {
				c.Abort()
				return
			}
			c.AbortWithStatusJSON(http.StatusInternalServerError, response.Error("internal server error"))
		}
	}()

	c.Next()

	if len(c.Errors) > 0 && !c.Writer.Written() {
		a.log.Error("unhandled handler error",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Error(c.Errors.Last().Err),
		)
		c.AbortWithStatusJSON(http.StatusInternalServerError, response.Error("internal server error"))
	}
}

func deny(c *gin.Context, status int, reason, message string) {
	metrics.IncAuthzDenied(reason)
	c.AbortWithStatusJSON(status, response.Error(message))
}

// tokenFromRequest reads the access_token cookie, falling back to a Bearer header
func tokenFromRequest(c *gin.Context) string {
	if token, err := c.Cookie(AccessTokenCookie); err == nil && token != "" {
		return token
	}
	parts := strings.SplitN(c.GetHeader("Authorization"), " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

// CurrentIdentity returns the identity stored by WithAuth
func CurrentIdentity(c *gin.Context) (auth.Identity, bool) {
	v, ok := c.Get(identityKey)
	if !ok {
		return auth.Identity{}, false
	}
	id, ok := v.(auth.Identity)
	return id, ok
}

// SetTokenCookie stores the access token as an HttpOnly cookie.
// Secure cookies are sent cross-site (SameSite=None); otherwise Lax.
func SetTokenCookie(c *gin.Context, token string, ttl time.Duration, secure bool) {
	setSameSite(c, secure)
	c.SetCookie(AccessTokenCookie, token, int(ttl.Seconds()), "/", "", secure, true)
}

// ClearTokenCookie expires the access token cookie
func ClearTokenCookie(c *gin.Context, secure bool) {
	setSameSite(c, secure)
	c.SetCookie(AccessTokenCookie, "", -1, "/", "", secure, true)
}

func setSameSite(c *gin.Context, secure bool) {
	if secure {
		c.SetSameSite(http.SameSiteNoneMode)
		return
	}
	c.SetSameSite(http.SameSiteLaxMode)
}
