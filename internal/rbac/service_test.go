package rbac

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"akshayapatra/internal/apperror"
	"akshayapatra/internal/model"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubStaff struct {
	mu       sync.Mutex
	profiles map[uuid.UUID]model.StaffProfile
	calls    int
	err      error
}

func newStubStaff() *stubStaff {
	return &stubStaff{profiles: make(map[uuid.UUID]model.StaffProfile)}
}

func (s *stubStaff) FindByID(ctx context.Context, id uuid.UUID) (*model.StaffProfile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	p, ok := s.profiles[id]
	if !ok {
		return nil, apperror.NotFound("staff")
	}
	return &p, nil
}

func (s *stubStaff) put(role Role) uuid.UUID {
	id := uuid.New()
	s.set(id, func(p *model.StaffProfile) { p.Role = string(role) })
	return id
}

func (s *stubStaff) set(id uuid.UUID, mutate func(p *model.StaffProfile)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.profiles[id]
	if !ok {
		p = model.StaffProfile{ID: id, IsActive: true, Role: string(RoleNew)}
	}
	mutate(&p)
	s.profiles[id] = p
}

func (s *stubStaff) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []string
	err  error
}

func (n *recordingNotifier) PublishInvalidation(ctx context.Context, userID string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, userID)
	return n.err
}

func newTestService(staff StaffLookup, opts ...Option) *Service {
	return NewService(staff, NewCache(time.Minute), opts...)
}

func TestHasPermissionMatchesCatalog(t *testing.T) {
	staff := newStubStaff()
	svc := newTestService(staff)
	ctx := context.Background()

	for _, role := range AllRoles() {
		id := staff.put(role)
		// ask twice in different orders so cached and uncached answers are both compared
		for pass := 0; pass < 2; pass++ {
			perms := AllPermissions()
			if pass == 1 {
				for i, j := 0, len(perms)-1; i < j; i, j = i+1, j-1 {
					perms[i], perms[j] = perms[j], perms[i]
				}
			}
			for _, p := range perms {
				assert.Equal(t, RoleGrants(role, p), svc.HasPermission(ctx, id.String(), p), "role %s perm %s", role, p)
			}
		}
	}
}

func TestHasPermissionFailsClosed(t *testing.T) {
	staff := newStubStaff()
	svc := newTestService(staff)
	ctx := context.Background()

	assert.False(t, svc.HasPermission(ctx, uuid.NewString(), PermProfileView), "unknown user")
	assert.False(t, svc.HasPermission(ctx, "not-a-uuid", PermProfileView), "malformed id")

	id := staff.put(RoleSuperAdmin)
	staff.err = errors.New("connection refused")
	assert.False(t, svc.HasPermission(ctx, id.String(), PermCardsView), "lookup error")

	perms, err := svc.GetUserPermissions(ctx, id.String())
	assert.Error(t, err)
	assert.Empty(t, perms)
	pages, err := svc.GetUserPages(ctx, id.String())
	assert.Error(t, err)
	assert.Empty(t, pages)
}

func TestUnknownStoredRoleGrantsNothing(t *testing.T) {
	staff := newStubStaff()
	svc := newTestService(staff)
	id := staff.put(Role("owner"))

	for _, p := range AllPermissions() {
		assert.False(t, svc.HasPermission(context.Background(), id.String(), p))
	}
	role, err := svc.GetUserRole(context.Background(), id.String())
	require.NoError(t, err)
	assert.Equal(t, RoleNone, role)
}

func TestResolutionIsCachedPerUser(t *testing.T) {
	staff := newStubStaff()
	svc := newTestService(staff)
	ctx := context.Background()
	id := staff.put(RoleManager)

	svc.HasPermission(ctx, id.String(), PermCardsEdit)
	svc.HasPermission(ctx, id.String(), PermStaffView)
	_, _ = svc.GetUserPages(ctx, id.String())
	// upper-case form of the same id shares the entry
	svc.HasPermission(ctx, stringsToUpper(id.String()), PermUsersView)

	assert.Equal(t, 1, staff.callCount())
}

func stringsToUpper(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'a' && c <= 'z' {
			b[i] = c - 32
		}
	}
	return string(b)
}

func TestClearUserCacheReflectsLatestRole(t *testing.T) {
	staff := newStubStaff()
	notifier := &recordingNotifier{}
	svc := newTestService(staff, WithNotifier(notifier))
	ctx := context.Background()
	id := staff.put(RoleAdmin)

	assert.True(t, svc.HasPermission(ctx, id.String(), PermStaffBan))

	staff.set(id, func(p *model.StaffProfile) { p.Role = string(RoleSupport) })
	// without invalidation the cached admin decision is still served
	assert.True(t, svc.HasPermission(ctx, id.String(), PermStaffBan))

	svc.ClearUserCache(ctx, id.String())
	assert.False(t, svc.HasPermission(ctx, id.String(), PermStaffBan))
	role, err := svc.GetUserRole(ctx, id.String())
	require.NoError(t, err)
	assert.Equal(t, RoleSupport, role)

	assert.Equal(t, []string{id.String()}, notifier.sent)
}

func TestClearUserCacheSurvivesNotifierFailure(t *testing.T) {
	staff := newStubStaff()
	svc := newTestService(staff, WithNotifier(&recordingNotifier{err: errors.New("redis down")}))
	ctx := context.Background()
	id := staff.put(RoleAdmin)

	assert.True(t, svc.HasPermission(ctx, id.String(), PermAuditView))
	staff.set(id, func(p *model.StaffProfile) { p.Role = string(RoleNew) })
	svc.ClearUserCache(ctx, id.String())
	assert.False(t, svc.HasPermission(ctx, id.String(), PermAuditView))
}

func TestBannedStaffLosesEverythingImmediately(t *testing.T) {
	staff := newStubStaff()
	svc := newTestService(staff)
	ctx := context.Background()
	id := staff.put(RoleAdmin)

	assert.True(t, svc.HasPermission(ctx, id.String(), PermCardsEdit))

	staff.set(id, func(p *model.StaffProfile) { p.IsActive = false })
	svc.ClearUserCache(ctx, id.String())

	for _, p := range AllPermissions() {
		assert.False(t, svc.HasPermission(ctx, id.String(), p))
	}
	pages, err := svc.GetUserPages(ctx, id.String())
	require.NoError(t, err)
	assert.Empty(t, pages)
}

func TestTemporaryBanEntryExpiresWithBan(t *testing.T) {
	staff := newStubStaff()
	cache := NewCache(time.Hour)
	svc := NewService(staff, cache)
	ctx := context.Background()

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	svc.now = fixedClock(now)
	cache.now = fixedClock(now)

	until := now.Add(10 * time.Minute)
	id := staff.put(RoleManager)
	staff.set(id, func(p *model.StaffProfile) {
		p.IsActive = false
		p.BannedUntil = &until
	})

	assert.False(t, svc.HasPermission(ctx, id.String(), PermCardsView))

	// ban lapses: cached entry expires with it and the role is restored
	later := until.Add(time.Second)
	svc.now = fixedClock(later)
	cache.now = fixedClock(later)
	assert.True(t, svc.HasPermission(ctx, id.String(), PermCardsView))
	assert.Equal(t, 2, staff.callCount())
}

func TestCanManageUser(t *testing.T) {
	staff := newStubStaff()
	svc := newTestService(staff)
	ctx := context.Background()

	ids := make(map[Role]string)
	for _, r := range AllRoles() {
		ids[r] = staff.put(r).String()
	}

	for _, a := range AllRoles() {
		assert.False(t, svc.CanManageUser(ctx, ids[a], ids[a]), "self management for %s", a)
		for _, b := range AllRoles() {
			if a == b {
				continue
			}
			assert.Equal(t, Rank(a) > Rank(b), svc.CanManageUser(ctx, ids[a], ids[b]), "%s manages %s", a, b)
		}
	}

	assert.False(t, svc.CanManageUser(ctx, ids[RoleSuperAdmin], uuid.NewString()), "unknown target")
	assert.False(t, svc.CanManageUser(ctx, uuid.NewString(), ids[RoleNew]), "unknown actor")
	assert.False(t, svc.CanManageUser(ctx, ids[RoleAdmin], stringsToUpper(ids[RoleAdmin])), "self via different casing")
}

func TestBannedActorCannotManage(t *testing.T) {
	staff := newStubStaff()
	svc := newTestService(staff)
	ctx := context.Background()
	admin := staff.put(RoleAdmin)
	support := staff.put(RoleSupport)

	assert.True(t, svc.CanManageUser(ctx, admin.String(), support.String()))

	staff.set(admin, func(p *model.StaffProfile) { p.IsActive = false })
	svc.ClearUserCache(ctx, admin.String())
	assert.False(t, svc.CanManageUser(ctx, admin.String(), support.String()))
}

func TestBannedTargetKeepsAssignedRank(t *testing.T) {
	staff := newStubStaff()
	svc := newTestService(staff)
	ctx := context.Background()
	manager := staff.put(RoleManager)
	admin := staff.put(RoleAdmin)
	support := staff.put(RoleSupport)

	staff.set(admin, func(p *model.StaffProfile) { p.IsActive = false })
	staff.set(support, func(p *model.StaffProfile) { p.IsActive = false })

	role, err := svc.GetUserRole(ctx, admin.String())
	require.NoError(t, err)
	assert.Equal(t, RoleNone, role)
	assert.False(t, svc.CanManageUser(ctx, manager.String(), admin.String()))
	assert.True(t, svc.CanManageUser(ctx, manager.String(), support.String()))
}

func TestFlushCache(t *testing.T) {
	staff := newStubStaff()
	notifier := &recordingNotifier{}
	svc := newTestService(staff, WithNotifier(notifier))
	ctx := context.Background()
	a, b := staff.put(RoleSupport), staff.put(RoleAdmin)

	svc.HasPermission(ctx, a.String(), PermCardsView)
	svc.HasPermission(ctx, b.String(), PermCardsView)
	assert.Equal(t, 2, svc.CacheStats().Entries)

	svc.FlushCache(ctx)
	assert.Equal(t, 0, svc.CacheStats().Entries)
	assert.Equal(t, []string{FlushAll}, notifier.sent)
}
