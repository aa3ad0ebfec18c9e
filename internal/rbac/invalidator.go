package rbac

import (
	"context"
	"encoding/json"
	"fmt"

	"akshayapatra/internal/metrics"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// FlushAll is the invalidation target that clears every entry
const FlushAll = "*"

type invalidationMessage struct {
	Origin string `json:"origin"`
	UserID string `json:"user_id"`
}

// RedisInvalidator fans cache invalidations out to every instance sharing a Redis channel
type RedisInvalidator struct {
	client  *redis.Client
	channel string
	cache   *Cache
	origin  string
	log     *zap.Logger
}

func NewRedisInvalidator(client *redis.Client, channel string, cache *Cache, log *zap.Logger) *RedisInvalidator {
	if log == nil {
		log = zap.NewNop()
	}
	return &RedisInvalidator{
		client:  client,
		channel: channel,
		cache:   cache,
		origin:  uuid.NewString(),
		log:     log,
	}
}

// PublishInvalidation implements Notifier
func (r *RedisInvalidator) PublishInvalidation(ctx context.Context, userID string) error {
	payload, err := json.Marshal(invalidationMessage{Origin: r.origin, UserID: userID})
	if err != nil {
		return err
	}
	return r.client.Publish(ctx, r.channel, payload).Err()
}

// Start subscribes to the channel and returns once the subscription is confirmed.
// Messages are applied on a background goroutine until ctx is cancelled.
func (r *RedisInvalidator) Start(ctx context.Context) error {
	sub := r.client.Subscribe(ctx, r.channel)
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return fmt.Errorf("rbac: subscribe %s: %w", r.channel, err)
	}

	go func() {
		defer sub.Close()
		ch := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				r.apply(msg.Payload)
			}
		}
	}()
	return nil
}

func (r *RedisInvalidator) apply(payload string) {
	var msg invalidationMessage
	if err := json.Unmarshal([]byte(payload), &msg); err != nil {
		r.log.Warn("rbac: malformed invalidation message", zap.Error(err))
		return
	}
	if msg.Origin == r.origin {
		return
	}

	if msg.UserID == FlushAll {
		r.cache.Flush()
	} else {
		r.cache.Invalidate(msg.UserID)
	}
	metrics.IncRBACInvalidation("remote")
	r.log.Debug("rbac: applied remote invalidation", zap.String("user_id", msg.UserID))
}
