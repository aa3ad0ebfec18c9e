package service

import (
	"context"
	"testing"

	"akshayapatra/internal/apperror"
	"akshayapatra/internal/model"
	"akshayapatra/internal/rbac"
	"akshayapatra/internal/websocket"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRBACAdmin(t *testing.T) {
	e := newEnv(t)
	svc := NewRBACAdminService(e.rbac, e.audit, e.events, nil)
	ctx := context.Background()

	root := e.seedStaff(t, "root", rbac.RoleSuperAdmin)
	support := e.seedStaff(t, "support", rbac.RoleSupport)
	assert.True(t, e.rbac.HasPermission(ctx, support.ID.String(), rbac.PermUsersView))
	assert.Equal(t, 1, svc.Stats().Entries)

	require.NoError(t, svc.ClearUser(ctx, root.ID.String(), support.ID.String()))
	assert.Equal(t, 0, svc.Stats().Entries)

	assert.True(t, e.rbac.HasPermission(ctx, support.ID.String(), rbac.PermUsersView))
	require.NoError(t, svc.Flush(ctx, root.ID.String()))
	assert.Equal(t, 0, svc.Stats().Entries)

	err := svc.ClearUser(ctx, root.ID.String(), "nope")
	assert.True(t, apperror.IsKind(err, apperror.KindValidation))

	assert.Equal(t, []string{websocket.EventRBACCacheFlushed, websocket.EventRBACCacheFlushed}, e.events.events)
	assert.ElementsMatch(t, []string{model.ActionFlushRBACCache, model.ActionFlushRBACCache}, e.auditActions(t))
}
