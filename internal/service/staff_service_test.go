package service

import (
	"context"
	"testing"
	"time"

	"akshayapatra/internal/apperror"
	"akshayapatra/internal/model"
	"akshayapatra/internal/rbac"
	"akshayapatra/internal/websocket"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStaffService(e *env) *staffService {
	return NewStaffService(e.staff, e.procs, e.rbac, e.audit, e.tx, e.events, nil).(*staffService)
}

func TestStaffSignUp(t *testing.T) {
	e := newEnv(t)
	svc := newStaffService(e)
	ctx := context.Background()

	req := StaffSignUpRequest{Email: " Meera@Akshayapatra.test ", Password: "s3cretpass", Name: "Meera", AccessKey: "wrong"}
	_, err := svc.SignUp(ctx, req)
	assert.True(t, apperror.IsKind(err, apperror.KindForbidden))

	req.AccessKey = "letmein"
	created, err := svc.SignUp(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, "meera@akshayapatra.test", created.Email)
	assert.Equal(t, string(rbac.RoleNew), created.Role)
	assert.True(t, created.IsActive)

	_, err = svc.SignUp(ctx, req)
	assert.True(t, apperror.IsKind(err, apperror.KindConflict))
}

func TestChangeRole(t *testing.T) {
	e := newEnv(t)
	svc := newStaffService(e)
	ctx := context.Background()

	admin := e.seedStaff(t, "admin", rbac.RoleAdmin)
	manager := e.seedStaff(t, "manager", rbac.RoleManager)
	support := e.seedStaff(t, "support", rbac.RoleSupport)

	// warm the cache so the change has something to invalidate
	assert.False(t, e.rbac.HasPermission(ctx, support.ID.String(), rbac.PermStaffView))

	got, err := svc.ChangeRole(ctx, admin.ID.String(), support.ID.String(), ChangeRoleRequest{Role: "manager"})
	require.NoError(t, err)
	assert.Equal(t, "manager", got.Role)
	assert.True(t, e.rbac.HasPermission(ctx, support.ID.String(), rbac.PermStaffView))
	assert.Contains(t, e.events.events, websocket.EventStaffRoleChanged)
	assert.Equal(t, []string{model.ActionChangeStaffRole}, e.auditActions(t))

	t.Run("assigning own rank is forbidden", func(t *testing.T) {
		_, err := svc.ChangeRole(ctx, admin.ID.String(), manager.ID.String(), ChangeRoleRequest{Role: "admin"})
		assert.True(t, apperror.IsKind(err, apperror.KindForbidden))
	})

	t.Run("equal rank target is forbidden", func(t *testing.T) {
		_, err := svc.ChangeRole(ctx, manager.ID.String(), support.ID.String(), ChangeRoleRequest{Role: "support"})
		assert.True(t, apperror.IsKind(err, apperror.KindForbidden))
	})

	t.Run("lower rank actor is forbidden", func(t *testing.T) {
		_, err := svc.ChangeRole(ctx, manager.ID.String(), admin.ID.String(), ChangeRoleRequest{Role: "new"})
		assert.True(t, apperror.IsKind(err, apperror.KindForbidden))
	})

	t.Run("self change is forbidden", func(t *testing.T) {
		_, err := svc.ChangeRole(ctx, admin.ID.String(), admin.ID.String(), ChangeRoleRequest{Role: "new"})
		assert.ErrorIs(t, err, apperror.ErrSelfAction)
	})

	t.Run("unknown target", func(t *testing.T) {
		_, err := svc.ChangeRole(ctx, admin.ID.String(), uuid.NewString(), ChangeRoleRequest{Role: "new"})
		assert.True(t, apperror.IsKind(err, apperror.KindNotFound))
	})

	t.Run("invalid role", func(t *testing.T) {
		_, err := svc.ChangeRole(ctx, admin.ID.String(), manager.ID.String(), ChangeRoleRequest{Role: "owner"})
		assert.True(t, apperror.IsKind(err, apperror.KindValidation))
	})

	stored, err := e.staff.FindByID(ctx, manager.ID)
	require.NoError(t, err)
	assert.Equal(t, "manager", stored.Role)
	assert.Len(t, e.auditActions(t), 1)
}

func TestSetBan(t *testing.T) {
	e := newEnv(t)
	svc := newStaffService(e)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)
	svc.now = func() time.Time { return now }

	admin := e.seedStaff(t, "admin", rbac.RoleAdmin)
	support := e.seedStaff(t, "support", rbac.RoleSupport)
	assert.True(t, e.rbac.HasPermission(ctx, support.ID.String(), rbac.PermUsersView))

	t.Run("temporary ban", func(t *testing.T) {
		got, err := svc.SetBan(ctx, admin.ID.String(), support.ID.String(), BanRequest{Action: "ban", Duration: "24h", Reason: "abuse"})
		require.NoError(t, err)
		require.NotNil(t, got.BannedUntil)
		assert.Equal(t, now.Add(24*time.Hour), *got.BannedUntil)
		assert.True(t, got.IsActive)
		assert.True(t, got.IsBanned)
		assert.Equal(t, "abuse", got.BanReason)
		assert.False(t, e.rbac.HasPermission(ctx, support.ID.String(), rbac.PermUsersView))
		assert.Contains(t, e.events.disconnected, support.ID.String())
	})

	t.Run("unban", func(t *testing.T) {
		got, err := svc.SetBan(ctx, admin.ID.String(), support.ID.String(), BanRequest{Action: "unban"})
		require.NoError(t, err)
		assert.Nil(t, got.BannedUntil)
		assert.False(t, got.IsBanned)
		assert.Empty(t, got.BanReason)
		assert.True(t, e.rbac.HasPermission(ctx, support.ID.String(), rbac.PermUsersView))
	})

	t.Run("permanent ban", func(t *testing.T) {
		got, err := svc.SetBan(ctx, admin.ID.String(), support.ID.String(), BanRequest{Action: "ban", Duration: "permanent"})
		require.NoError(t, err)
		assert.False(t, got.IsActive)
		assert.Nil(t, got.BannedUntil)
		assert.True(t, got.IsBanned)

		stored, err := e.staff.FindByID(ctx, support.ID)
		require.NoError(t, err)
		assert.False(t, stored.IsActive)
	})

	t.Run("self ban is forbidden", func(t *testing.T) {
		_, err := svc.SetBan(ctx, admin.ID.String(), admin.ID.String(), BanRequest{Action: "ban", Duration: "1h"})
		assert.ErrorIs(t, err, apperror.ErrSelfAction)
	})

	t.Run("unknown duration", func(t *testing.T) {
		_, err := svc.SetBan(ctx, admin.ID.String(), support.ID.String(), BanRequest{Action: "ban", Duration: "2y"})
		assert.True(t, apperror.IsKind(err, apperror.KindValidation))
	})

	assert.ElementsMatch(t, []string{model.ActionBanStaff, model.ActionUnbanStaff, model.ActionBanStaff}, e.auditActions(t))
}

func TestBannedAdminOutOfReachOfManager(t *testing.T) {
	e := newEnv(t)
	svc := newStaffService(e)
	ctx := context.Background()

	super := e.seedStaff(t, "root", rbac.RoleSuperAdmin)
	admin := e.seedStaff(t, "admin", rbac.RoleAdmin)
	manager := e.seedStaff(t, "manager", rbac.RoleManager)

	_, err := svc.SetBan(ctx, super.ID.String(), admin.ID.String(), BanRequest{Action: "ban", Duration: "permanent"})
	require.NoError(t, err)

	_, err = svc.SetBan(ctx, manager.ID.String(), admin.ID.String(), BanRequest{Action: "unban"})
	assert.True(t, apperror.IsKind(err, apperror.KindForbidden))
}

func TestStaffListAndProfile(t *testing.T) {
	e := newEnv(t)
	svc := newStaffService(e)
	ctx := context.Background()

	e.seedStaff(t, "asha", rbac.RoleSupport)
	ravi := e.seedStaff(t, "ravi", rbac.RoleManager)

	list, total, err := svc.List(ctx, StaffListQuery{Role: "manager"}, 1, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	require.Len(t, list, 1)
	assert.Equal(t, ravi.ID, list[0].ID)

	updated, err := svc.UpdateOwnProfile(ctx, ravi.ID.String(), UpdateStaffProfileRequest{Name: "Ravi K", Phone: "9800000000"})
	require.NoError(t, err)
	assert.Equal(t, "Ravi K", updated.Name)
	assert.Equal(t, "9800000000", updated.Phone)

	_, err = svc.Get(ctx, "not-a-uuid")
	assert.True(t, apperror.IsKind(err, apperror.KindValidation))

	roles := svc.Roles()
	require.Len(t, roles, len(rbac.AllRoles()))
	assert.Equal(t, rbac.RoleNew, roles[0].Role)
}
