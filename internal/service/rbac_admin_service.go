package service

import (
	"context"

	"akshayapatra/internal/model"
	"akshayapatra/internal/rbac"
	"akshayapatra/internal/websocket"

	"go.uber.org/zap"
)

// CacheController is the cache surface of the RBAC service
type CacheController interface {
	ClearUserCache(ctx context.Context, userID string)
	FlushCache(ctx context.Context)
	CacheStats() rbac.CacheStats
}

// RBACAdminService lets a superadmin inspect and drop cached authorization decisions
type RBACAdminService interface {
	Stats() rbac.CacheStats
	Flush(ctx context.Context, actorID string) error
	ClearUser(ctx context.Context, actorID, userID string) error
}

type rbacAdminService struct {
	cache  CacheController
	audit  AuditService
	events EventPublisher
	log    *zap.Logger
}

func NewRBACAdminService(cache CacheController, audit AuditService, events EventPublisher, log *zap.Logger) RBACAdminService {
	if events == nil {
		events = nopPublisher{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &rbacAdminService{cache: cache, audit: audit, events: events, log: log}
}

func (s *rbacAdminService) Stats() rbac.CacheStats {
	return s.cache.CacheStats()
}

func (s *rbacAdminService) Flush(ctx context.Context, actorID string) error {
	s.cache.FlushCache(ctx)
	if err := s.audit.Record(ctx, actorID, model.ActionFlushRBACCache, rbac.FlushAll, "", nil); err != nil {
		return passthrough(err, "record cache flush")
	}
	s.events.Publish(websocket.EventRBACCacheFlushed, map[string]string{"scope": rbac.FlushAll})
	s.log.Info("rbac cache flushed", zap.String("actor_id", actorID))
	return nil
}

func (s *rbacAdminService) ClearUser(ctx context.Context, actorID, userID string) error {
	id, err := parseID(userID, "staff")
	if err != nil {
		return err
	}
	key := id.String()
	s.cache.ClearUserCache(ctx, key)
	if err := s.audit.Record(ctx, actorID, model.ActionFlushRBACCache, key, "", nil); err != nil {
		return passthrough(err, "record cache clear")
	}
	s.events.Publish(websocket.EventRBACCacheFlushed, map[string]string{"scope": key})
	return nil
}
