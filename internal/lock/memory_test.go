package lock

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"growthops/internal/config"
)

func TestMemoryLocker_ExclusiveUntilRelease(t *testing.T) {
	l := NewMemoryLocker()
	ctx := context.Background()

	release, ok, err := l.Acquire(ctx, "k", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	_, ok, err = l.Acquire(ctx, "k", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	release()
	release()

	release2, ok, err := l.Acquire(ctx, "k", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
	release2()
}

func TestMemoryLocker_ExpiredLeaseCanBeTaken(t *testing.T) {
	l := NewMemoryLocker()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }

	stale, ok, _ := l.Acquire(context.Background(), "k", time.Second)
	require.True(t, ok)

	now = now.Add(2 * time.Second)
	_, ok, _ = l.Acquire(context.Background(), "k", time.Second)
	require.True(t, ok)

	// Releasing the expired lease must not drop the new holder.
	stale()
	_, ok, _ = l.Acquire(context.Background(), "k", time.Second)
	assert.False(t, ok)
}

func TestNew_SelectsBackend(t *testing.T) {
	assert.Nil(t, New(config.LockConfig{Backend: "none"}, config.RedisConfig{}))
	assert.IsType(t, &MemoryLocker{}, New(config.LockConfig{Backend: "memory"}, config.RedisConfig{}))
	assert.IsType(t, &RedisLocker{}, New(config.LockConfig{Backend: "redis", Prefix: "p:"}, config.RedisConfig{Addr: "localhost:6379"}))
}

func TestStrategyKey(t *testing.T) {
	tenant := uuid.MustParse("11111111-1111-4111-8111-111111111111")
	strategy := uuid.MustParse("22222222-2222-4222-8222-222222222222")
	assert.Equal(t, tenant.String()+":"+strategy.String(), StrategyKey(tenant, strategy))
}
