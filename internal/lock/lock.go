// Package lock serializes executions of the same strategy across requests.
package lock

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"growthops/internal/config"
)

// Locker acquires a named lease. ok is false when someone else holds it.
// release is always safe to call, also when ok is false.
type Locker interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (release func(), ok bool, err error)
}

// StrategyKey scopes a lock to one tenant's strategy.
func StrategyKey(tenantID, strategyID uuid.UUID) string {
	return tenantID.String() + ":" + strategyID.String()
}

// New builds the locker selected by cfg. A nil Locker means no locking.
func New(cfg config.LockConfig, redisCfg config.RedisConfig) Locker {
	switch strings.ToLower(strings.TrimSpace(cfg.Backend)) {
	case "memory":
		return NewMemoryLocker()
	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:     redisCfg.Addr,
			Password: redisCfg.Password,
			DB:       redisCfg.DB,
		})
		return NewRedisLocker(client, cfg.Prefix)
	default:
		return nil
	}
}

func noop() {}
