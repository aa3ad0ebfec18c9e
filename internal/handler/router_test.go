package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"akshayapatra/internal/auth"
	"akshayapatra/internal/database"
	"akshayapatra/internal/middleware"
	"akshayapatra/internal/model"
	"akshayapatra/internal/rbac"
	"akshayapatra/internal/repository"
	"akshayapatra/internal/service"
	"akshayapatra/internal/validation"
	"akshayapatra/internal/websocket"
	"akshayapatra/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var registerValidators sync.Once

// unavailableProcedures fails every database function call
type unavailableProcedures struct{}

var errNoProcedures = errors.New("stored procedures unavailable")

func (unavailableProcedures) EnsureProfile(context.Context, uuid.UUID, string, string, string) (*repository.EnsuredProfile, error) {
	return nil, errNoProcedures
}

func (unavailableProcedures) AttachReferralByCode(context.Context, uuid.UUID, string) (*repository.AttachedReferral, error) {
	return nil, errNoProcedures
}

func (unavailableProcedures) ValidateAdminAccessKey(context.Context, string) (bool, error) {
	return false, nil
}

func (unavailableProcedures) RunSchemeDraw(context.Context, uuid.UUID, int) (*repository.DrawResult, error) {
	return nil, errNoProcedures
}

func (unavailableProcedures) CheckProfileCompletion(context.Context, uuid.UUID) (bool, error) {
	return false, nil
}

func (unavailableProcedures) IssueVirtualCard(context.Context, uuid.UUID) (*repository.IssuedCard, error) {
	return nil, errNoProcedures
}

type testServer struct {
	router *gin.Engine
	db     *gorm.DB
	staff  repository.StaffRepository
	users  repository.UserProfileRepository
	tokens *auth.TokenManager
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)
	registerValidators.Do(func() { require.NoError(t, validation.RegisterWithGin()) })

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, database.Migrate(db))

	tx := repository.NewTransactionManager(db)
	staffRepo := repository.NewStaffRepository(db)
	userRepo := repository.NewUserProfileRepository(db)
	cardRepo := repository.NewCardRepository(db)
	schemeRepo := repository.NewSchemeRepository(db)
	winnerRepo := repository.NewWinnerRepository(db)
	referralRepo := repository.NewReferralRepository(db)
	procs := unavailableProcedures{}

	tokens := auth.NewTokenManager("handler-test-secret", "akshayapatra", time.Hour)
	access := rbac.NewService(staffRepo, rbac.NewCache(time.Minute))
	hub := websocket.NewHub(nil)
	authn := middleware.NewAuthenticator(tokens, access, service.NewProfileGuard(staffRepo, userRepo), nil)

	audit := service.NewAuditService(repository.NewAuditRepository(db))
	staffSvc := service.NewStaffService(staffRepo, procs, access, audit, tx, hub, nil)
	authSvc := service.NewAuthService(staffRepo, userRepo, procs, tx, staffSvc, access, tokens)

	router := gin.New()
	root := router.Group("")
	NewSystemHandler(sqlDB, hub, tokens, access, nil).RegisterRoutes(root)
	NewAuthHandler(authSvc, authn, tokens.TTL(), false, nil).RegisterRoutes(root)
	NewStaffHandler(staffSvc, authn, nil).RegisterRoutes(root)
	NewCardHandler(service.NewCardService(cardRepo, userRepo, procs, audit, tx), authn, nil).RegisterRoutes(root)
	NewSchemeHandler(service.NewSchemeService(schemeRepo, winnerRepo, procs, audit, tx, hub), authn, nil).RegisterRoutes(root)
	NewWinnerHandler(service.NewWinnerService(winnerRepo, schemeRepo, userRepo, audit, tx), authn, nil).RegisterRoutes(root)
	NewUserProfileHandler(service.NewUserProfileService(userRepo, procs, audit, tx, hub, nil), authn, nil).RegisterRoutes(root)
	NewReferralHandler(service.NewReferralService(referralRepo, userRepo, procs), authn, nil).RegisterRoutes(root)
	NewOverviewHandler(service.NewOverviewService(userRepo, staffRepo, schemeRepo, cardRepo, winnerRepo, referralRepo), authn, nil).RegisterRoutes(root)
	NewAuditHandler(audit, authn, nil).RegisterRoutes(root)
	NewRBACHandler(service.NewRBACAdminService(access, audit, hub, nil), authn, nil).RegisterRoutes(root)

	return &testServer{router: router, db: db, staff: staffRepo, users: userRepo, tokens: tokens}
}

func (s *testServer) seedStaff(t *testing.T, name string, role rbac.Role) (*model.StaffProfile, string) {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(name+"-pass"), bcrypt.MinCost)
	require.NoError(t, err)
	p := &model.StaffProfile{Email: name + "@akshayapatra.test", PasswordHash: string(hash), Name: name, Role: string(role), IsActive: true}
	require.NoError(t, s.staff.Create(context.Background(), p))

	token, _, err := s.tokens.Issue(auth.Identity{
		ID:           p.ID,
		Kind:         auth.KindStaff,
		Role:         string(role),
		IsSuperAdmin: role == rbac.RoleSuperAdmin,
	})
	require.NoError(t, err)
	return p, token
}

func (s *testServer) seedCustomer(t *testing.T, name string) (*model.UserProfile, string) {
	t.Helper()
	u := &model.UserProfile{Email: name + "@example.com", PasswordHash: "x", FullName: name, ReferralCode: "AK" + uuid.NewString()[:6]}
	require.NoError(t, s.users.Create(context.Background(), u))
	token, _, err := s.tokens.Issue(auth.Identity{ID: u.ID, Kind: auth.KindUser})
	require.NoError(t, err)
	return u, token
}

func (s *testServer) do(t *testing.T, method, path, token string, body interface{}) (*httptest.ResponseRecorder, response.Response) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	var env response.Response
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	}
	return w, env
}

func TestAdminRoutesRequireSession(t *testing.T) {
	s := newTestServer(t)
	for _, path := range []string{"/admin/staff", "/admin/overview", "/admin/audit", "/admin/rbac/cache", "/me"} {
		w, env := s.do(t, http.MethodGet, path, "", nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code, path)
		assert.False(t, env.Success)
	}
}

func TestPermissionGates(t *testing.T) {
	s := newTestServer(t)
	_, supportToken := s.seedStaff(t, "support", rbac.RoleSupport)
	_, managerToken := s.seedStaff(t, "manager", rbac.RoleManager)
	_, customerToken := s.seedCustomer(t, "priya")

	w, _ := s.do(t, http.MethodGet, "/admin/staff", supportToken, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w, env := s.do(t, http.MethodGet, "/admin/staff", managerToken, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, env.Success)

	w, _ = s.do(t, http.MethodGet, "/admin/overview", supportToken, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w, _ = s.do(t, http.MethodGet, "/admin/audit", managerToken, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w, _ = s.do(t, http.MethodGet, "/admin/overview", customerToken, nil)
	assert.Equal(t, http.StatusForbidden, w.Code, "customer sessions carry no staff permissions")
}

func TestRoleChangeTakesEffectImmediately(t *testing.T) {
	s := newTestServer(t)
	_, adminToken := s.seedStaff(t, "admin", rbac.RoleAdmin)
	support, supportToken := s.seedStaff(t, "support", rbac.RoleSupport)

	w, _ := s.do(t, http.MethodGet, "/admin/staff", supportToken, nil)
	require.Equal(t, http.StatusForbidden, w.Code)

	w, env := s.do(t, http.MethodPost, "/admin/staff/"+support.ID.String()+"/role", adminToken, gin.H{"role": "manager"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "Role updated", env.Message)

	w, _ = s.do(t, http.MethodGet, "/admin/staff", supportToken, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w, _ = s.do(t, http.MethodPost, "/admin/staff/"+support.ID.String()+"/role", adminToken, gin.H{"role": "owner"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = s.do(t, http.MethodPost, "/admin/staff/"+support.ID.String()+"/role", supportToken, gin.H{"role": "new"})
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestBanRevokesAccess(t *testing.T) {
	s := newTestServer(t)
	_, adminToken := s.seedStaff(t, "admin", rbac.RoleAdmin)
	support, supportToken := s.seedStaff(t, "support", rbac.RoleSupport)

	w, _ := s.do(t, http.MethodGet, "/admin/overview", supportToken, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w, _ = s.do(t, http.MethodPatch, "/admin/staff/"+support.ID.String()+"/ban", adminToken, gin.H{"action": "ban", "duration": "24h", "reason": "abuse"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w, _ = s.do(t, http.MethodGet, "/admin/overview", supportToken, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w, _ = s.do(t, http.MethodGet, "/admin/profile", supportToken, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w, _ = s.do(t, http.MethodPatch, "/admin/staff/"+support.ID.String()+"/ban", adminToken, gin.H{"action": "ban"})
	assert.Equal(t, http.StatusBadRequest, w.Code, "ban without duration")
}

func TestSuperAdminOnlyRoutes(t *testing.T) {
	s := newTestServer(t)
	_, adminToken := s.seedStaff(t, "admin", rbac.RoleAdmin)
	root, rootToken := s.seedStaff(t, "root", rbac.RoleSuperAdmin)

	w, _ := s.do(t, http.MethodGet, "/admin/rbac/cache", adminToken, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w, env := s.do(t, http.MethodGet, "/admin/rbac/cache", rootToken, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, env.Success)

	w, _ = s.do(t, http.MethodDelete, "/admin/rbac/cache", rootToken, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w, _ = s.do(t, http.MethodDelete, "/admin/rbac/cache/"+root.ID.String(), rootToken, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	// a demoted superadmin keeps the claim but loses the route once its entry is gone
	require.NoError(t, s.staff.UpdateRole(context.Background(), root.ID, string(rbac.RoleAdmin)))
	w, _ = s.do(t, http.MethodDelete, "/admin/rbac/cache/"+root.ID.String(), rootToken, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestCustomerRoutes(t *testing.T) {
	s := newTestServer(t)
	_, customerToken := s.seedCustomer(t, "priya")
	_, staffToken := s.seedStaff(t, "support", rbac.RoleSupport)

	w, env := s.do(t, http.MethodGet, "/profile", customerToken, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, env.Success)

	w, _ = s.do(t, http.MethodGet, "/cards/me", staffToken, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w, _ = s.do(t, http.MethodPut, "/profile", customerToken, gin.H{"pincode": "012345"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	ghost, _, err := s.tokens.Issue(auth.Identity{ID: uuid.New(), Kind: auth.KindUser})
	require.NoError(t, err)
	w, _ = s.do(t, http.MethodGet, "/profile", ghost, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	w, _ = s.do(t, http.MethodGet, "/cards/me", ghost, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestNotFoundEnvelope(t *testing.T) {
	s := newTestServer(t)
	_, managerToken := s.seedStaff(t, "manager", rbac.RoleManager)

	w, env := s.do(t, http.MethodGet, "/admin/cards/"+uuid.NewString(), managerToken, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.False(t, env.Success)
	assert.Equal(t, "card not found", env.Error)

	w, _ = s.do(t, http.MethodGet, "/admin/cards/not-a-uuid", managerToken, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestStaffLoginSetsCookie(t *testing.T) {
	s := newTestServer(t)
	staff, _ := s.seedStaff(t, "asha", rbac.RoleSupport)

	w, env := s.do(t, http.MethodPost, "/admin/auth/login", "", gin.H{"email": staff.Email, "password": "asha-pass"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.True(t, env.Success)

	var cookie *http.Cookie
	for _, c := range w.Result().Cookies() {
		if c.Name == middleware.AccessTokenCookie {
			cookie = c
		}
	}
	require.NotNil(t, cookie)
	assert.True(t, cookie.HttpOnly)

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.AddCookie(cookie)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	w, _ = s.do(t, http.MethodPost, "/admin/auth/login", "", gin.H{"email": staff.Email, "password": "nope"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)
	w, env := s.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, env.Success)
}
