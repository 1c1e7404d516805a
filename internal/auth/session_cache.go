package auth

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/clock"
	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// SessionCache is a read-through cache of session rows. Misses and errors fall
// through to storage, so implementations never fail the caller.
type SessionCache interface {
	Get(ctx context.Context, id string) (*domain.Session, bool)
	Set(ctx context.Context, session *domain.Session)
	Delete(ctx context.Context, id string)
}

const sessionKeyPrefix = "session:"

type cachedSession struct {
	UserID    string    `json:"userId"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// RedisSessionCache stores sessions under session:<id>.
type RedisSessionCache struct {
	client *redis.Client
	maxTTL time.Duration
	clock  clock.Clock
	logger *zap.Logger
}

// NewRedisSessionCache returns a cache backed by client. Entries live at most
// maxTTL and never beyond the session's own expiry.
func NewRedisSessionCache(client *redis.Client, maxTTL time.Duration, clk clock.Clock, logger *zap.Logger) *RedisSessionCache {
	if maxTTL <= 0 {
		maxTTL = 5 * time.Minute
	}
	return &RedisSessionCache{client: client, maxTTL: maxTTL, clock: clk, logger: logger}
}

func (c *RedisSessionCache) Get(ctx context.Context, id string) (*domain.Session, bool) {
	raw, err := c.client.Get(ctx, sessionKeyPrefix+id).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warn("session cache read failed", zap.Error(err))
		}
		return nil, false
	}
	var entry cachedSession
	if err := json.Unmarshal(raw, &entry); err != nil {
		c.logger.Warn("session cache entry corrupt", zap.Error(err))
		return nil, false
	}
	return &domain.Session{ID: id, UserID: entry.UserID, ExpiresAt: entry.ExpiresAt}, true
}

func (c *RedisSessionCache) Set(ctx context.Context, session *domain.Session) {
	ttl := session.ExpiresAt.Sub(c.clock.Now())
	if ttl <= 0 {
		return
	}
	if ttl > c.maxTTL {
		ttl = c.maxTTL
	}
	payload, err := json.Marshal(cachedSession{UserID: session.UserID, ExpiresAt: session.ExpiresAt})
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, sessionKeyPrefix+session.ID, payload, ttl).Err(); err != nil {
		c.logger.Warn("session cache write failed", zap.Error(err))
	}
}

func (c *RedisSessionCache) Delete(ctx context.Context, id string) {
	if err := c.client.Del(ctx, sessionKeyPrefix+id).Err(); err != nil {
		c.logger.Warn("session cache delete failed", zap.Error(err))
	}
}
