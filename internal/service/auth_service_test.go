package service

import (
	"context"
	"testing"
	"time"

	"akshayapatra/internal/apperror"
	"akshayapatra/internal/auth"
	"akshayapatra/internal/model"
	"akshayapatra/internal/rbac"
	"akshayapatra/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func newAuthService(e *env) (AuthService, *auth.TokenManager) {
	tokens := auth.NewTokenManager("test-secret", "akshayapatra", time.Hour)
	staffs := NewStaffService(e.staff, e.procs, e.rbac, e.audit, e.tx, e.events, nil)
	return NewAuthService(e.staff, e.users, e.procs, e.tx, staffs, e.rbac, tokens), tokens
}

func setPassword(t *testing.T, e *env, p *model.StaffProfile, password string) {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	require.NoError(t, e.db.Model(p).Update("password_hash", string(hash)).Error)
}

func TestUserSignUpAndLogin(t *testing.T) {
	e := newEnv(t)
	svc, tokens := newAuthService(e)
	ctx := context.Background()

	session, err := svc.UserSignUp(ctx, UserSignUpRequest{
		Email:        "Priya@Example.com",
		Password:     "password123",
		FullName:     "Priya Nair",
		Phone:        "9812345678",
		ReferralCode: "AKREF1",
	})
	require.NoError(t, err)
	assert.Equal(t, auth.KindUser, session.Identity.Kind)
	assert.Equal(t, []string{"AKREF1"}, e.procs.attached)

	parsed, err := tokens.Parse(session.Token)
	require.NoError(t, err)
	assert.Equal(t, session.Identity.ID, parsed.ID)

	_, err = svc.UserSignUp(ctx, UserSignUpRequest{Email: "priya@example.com", Password: "password123", FullName: "P", Phone: "1"})
	assert.True(t, apperror.IsKind(err, apperror.KindConflict))

	_, err = svc.UserLogin(ctx, LoginRequest{Email: "priya@example.com", Password: "wrong-password"})
	assert.ErrorIs(t, err, apperror.ErrInvalidCredentials)

	login, err := svc.UserLogin(ctx, LoginRequest{Email: "PRIYA@example.com", Password: "password123"})
	require.NoError(t, err)
	assert.Equal(t, session.Identity.ID, login.Identity.ID)

	me, err := svc.Me(ctx, login.Identity)
	require.NoError(t, err)
	assert.Equal(t, "Priya Nair", me.Name)
	assert.Empty(t, me.Permissions)
}

func TestUserSignUpRollsBackOnBadReferral(t *testing.T) {
	e := newEnv(t)
	svc, _ := newAuthService(e)
	ctx := context.Background()
	e.procs.attachErr = &repository.ProcedureError{Procedure: "attach_user_referral_by_code", Message: "referral code not found"}

	_, err := svc.UserSignUp(ctx, UserSignUpRequest{
		Email: "kiran@example.com", Password: "password123", FullName: "Kiran", Phone: "1", ReferralCode: "NOPE",
	})
	require.Error(t, err)
	assert.True(t, apperror.IsKind(err, apperror.KindValidation))
	assert.Equal(t, "referral code not found", apperror.PublicMessage(err))

	count, err := e.users.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestStaffLogin(t *testing.T) {
	e := newEnv(t)
	svc, _ := newAuthService(e)
	ctx := context.Background()

	root := e.seedStaff(t, "root", rbac.RoleSuperAdmin)
	setPassword(t, e, root, "rootpass")
	support := e.seedStaff(t, "support", rbac.RoleSupport)
	setPassword(t, e, support, "supportpass")

	session, err := svc.StaffLogin(ctx, LoginRequest{Email: root.Email, Password: "rootpass"})
	require.NoError(t, err)
	assert.True(t, session.Identity.IsSuperAdmin)
	assert.Equal(t, string(rbac.RoleSuperAdmin), session.Identity.Role)

	session, err = svc.StaffLogin(ctx, LoginRequest{Email: support.Email, Password: "supportpass"})
	require.NoError(t, err)
	assert.False(t, session.Identity.IsSuperAdmin)

	me, err := svc.Me(ctx, session.Identity)
	require.NoError(t, err)
	assert.Equal(t, rbac.RoleSupport, me.Role)
	assert.ElementsMatch(t, rbac.PermissionsFor(rbac.RoleSupport), me.Permissions)

	until := time.Now().Add(time.Hour)
	require.NoError(t, e.staff.UpdateBan(ctx, support.ID, true, &until, "spam"))
	_, err = svc.StaffLogin(ctx, LoginRequest{Email: support.Email, Password: "supportpass"})
	assert.True(t, apperror.IsKind(err, apperror.KindForbidden))

	_, err = svc.StaffLogin(ctx, LoginRequest{Email: "ghost@akshayapatra.test", Password: "x"})
	assert.ErrorIs(t, err, apperror.ErrInvalidCredentials)
}

func TestProfileGuard(t *testing.T) {
	e := newEnv(t)
	guard := NewProfileGuard(e.staff, e.users)
	ctx := context.Background()

	staff := e.seedStaff(t, "asha", rbac.RoleSupport)
	user := e.seedUser(t, "priya")

	ok, err := guard.HasActiveProfile(ctx, auth.Identity{ID: staff.ID, Kind: auth.KindStaff})
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, e.staff.UpdateBan(ctx, staff.ID, false, nil, "gone"))
	ok, err = guard.HasActiveProfile(ctx, auth.Identity{ID: staff.ID, Kind: auth.KindStaff})
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = guard.HasActiveProfile(ctx, auth.Identity{ID: user.ID, Kind: auth.KindUser})
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, e.users.SetBanned(ctx, user.ID, true))
	ok, err = guard.HasActiveProfile(ctx, auth.Identity{ID: user.ID, Kind: auth.KindUser})
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = guard.HasActiveProfile(ctx, auth.Identity{ID: staff.ID, Kind: auth.KindUser})
	require.NoError(t, err)
	assert.False(t, ok)
}
