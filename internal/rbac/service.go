package rbac

import (
	"context"
	"fmt"
	"time"

	"akshayapatra/internal/metrics"
	"akshayapatra/internal/model"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// StaffLookup loads the staff profile backing an authorization decision
type StaffLookup interface {
	FindByID(ctx context.Context, id uuid.UUID) (*model.StaffProfile, error)
}

// Notifier propagates invalidations to other server instances.
// userID "*" means every entry.
type Notifier interface {
	PublishInvalidation(ctx context.Context, userID string) error
}

// Service resolves staff identifiers to roles, permissions and pages.
// Every check fails closed: a lookup error or unknown user grants nothing.
type Service struct {
	staff         StaffLookup
	cache         *Cache
	notifier      Notifier
	lookupTimeout time.Duration
	log           *zap.Logger
	now           func() time.Time
}

type Option func(*Service)

func WithNotifier(n Notifier) Option {
	return func(s *Service) { s.notifier = n }
}

func WithLookupTimeout(d time.Duration) Option {
	return func(s *Service) { s.lookupTimeout = d }
}

func WithLogger(l *zap.Logger) Option {
	return func(s *Service) { s.log = l }
}

func NewService(staff StaffLookup, cache *Cache, opts ...Option) *Service {
	s := &Service{
		staff:         staff,
		cache:         cache,
		lookupTimeout: 3 * time.Second,
		log:           zap.NewNop(),
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// cacheKey canonicalizes a user identifier so lookups and invalidations agree
func cacheKey(userID string) (string, uuid.UUID, error) {
	id, err := uuid.Parse(userID)
	if err != nil {
		return "", uuid.Nil, fmt.Errorf("rbac: invalid user id %q: %w", userID, err)
	}
	return id.String(), id, nil
}

func (s *Service) resolve(ctx context.Context, userID string) (*Entry, error) {
	key, id, err := cacheKey(userID)
	if err != nil {
		return nil, err
	}
	return s.cache.GetOrCompute(ctx, key, func(ctx context.Context) (*Entry, error) {
		lookupCtx, cancel := context.WithTimeout(ctx, s.lookupTimeout)
		defer cancel()

		staff, err := s.staff.FindByID(lookupCtx, id)
		if err != nil {
			return nil, err
		}

		now := s.now()
		assigned := ParseRole(staff.Role)
		role := assigned
		if staff.IsBannedAt(now) {
			role = RoleNone
		}
		entry := NewEntry(role, now)
		entry.AssignedRole = assigned
		if role == RoleNone && staff.BannedUntil != nil && staff.BannedUntil.After(now) {
			// a temporary ban lifts on its own; the entry must not outlive it
			entry.ExpiresAt = *staff.BannedUntil
		}
		return entry, nil
	})
}

// HasPermission reports whether userID currently holds perm
func (s *Service) HasPermission(ctx context.Context, userID string, perm Permission) bool {
	e, err := s.resolve(ctx, userID)
	if err != nil {
		s.log.Debug("rbac: permission check failed closed",
			zap.String("user_id", userID), zap.String("permission", string(perm)), zap.Error(err))
		return false
	}
	return e.Has(perm)
}

// GetUserRole returns the effective role, RoleNone for banned staff
func (s *Service) GetUserRole(ctx context.Context, userID string) (Role, error) {
	e, err := s.resolve(ctx, userID)
	if err != nil {
		return RoleNone, err
	}
	return e.Role, nil
}

// GetUserPermissions returns the permissions held by userID, empty on failure
func (s *Service) GetUserPermissions(ctx context.Context, userID string) ([]Permission, error) {
	e, err := s.resolve(ctx, userID)
	if err != nil {
		return []Permission{}, err
	}
	return PermissionsFor(e.Role), nil
}

// GetUserPages returns the admin pages reachable by userID, empty on failure
func (s *Service) GetUserPages(ctx context.Context, userID string) ([]string, error) {
	e, err := s.resolve(ctx, userID)
	if err != nil {
		return []string{}, err
	}
	out := make([]string, len(e.Pages))
	copy(out, e.Pages)
	return out, nil
}

// CanManageUser reports whether actorID strictly outranks targetID.
// Nobody manages themselves. A banned actor manages nobody; a banned target
// keeps its assigned rank so a ban cannot be used to reach past it.
func (s *Service) CanManageUser(ctx context.Context, actorID, targetID string) bool {
	actorKey, _, err := cacheKey(actorID)
	if err != nil {
		return false
	}
	targetKey, _, err := cacheKey(targetID)
	if err != nil || actorKey == targetKey {
		return false
	}

	actor, err := s.resolve(ctx, actorKey)
	if err != nil {
		return false
	}
	target, err := s.resolve(ctx, targetKey)
	if err != nil {
		return false
	}
	return Outranks(actor.Role, target.AssignedRole)
}

// ClearUserCache drops the cached decision for userID. It must complete before
// a response confirming a role or ban change is sent. Other instances are
// notified best-effort; their entries still expire within the cache TTL.
func (s *Service) ClearUserCache(ctx context.Context, userID string) {
	key, _, err := cacheKey(userID)
	if err != nil {
		return
	}
	s.cache.Invalidate(key)
	metrics.IncRBACInvalidation("local")

	if s.notifier != nil {
		if err := s.notifier.PublishInvalidation(ctx, key); err != nil {
			s.log.Warn("rbac: failed to broadcast invalidation", zap.String("user_id", key), zap.Error(err))
		}
	}
}

// FlushCache drops every cached decision on this and, best-effort, other instances
func (s *Service) FlushCache(ctx context.Context) {
	s.cache.Flush()
	metrics.IncRBACInvalidation("local")

	if s.notifier != nil {
		if err := s.notifier.PublishInvalidation(ctx, FlushAll); err != nil {
			s.log.Warn("rbac: failed to broadcast flush", zap.Error(err))
		}
	}
}

func (s *Service) CacheStats() CacheStats {
	return s.cache.Stats()
}
