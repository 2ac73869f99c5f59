package lock

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedis(t *testing.T) *redis.Client {
	t.Helper()
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		t.Skipf("redis unavailable: %v", err)
	}
	t.Cleanup(func() { rdb.Close() })
	return rdb
}

func TestRedisLockExcludesSecondHolder(t *testing.T) {
	rdb := newTestRedis(t)
	l := NewRedis(rdb, "test-lock-"+time.Now().Format("150405.000"), 50*time.Millisecond, 5*time.Second, logrus.New())
	ctx := context.Background()

	unlock, err := l.Lock(ctx, 42)
	require.NoError(t, err)

	_, err = l.Lock(ctx, 42)
	assert.ErrorIs(t, err, ErrBusy)

	unlock()
	again, err := l.Lock(ctx, 42)
	require.NoError(t, err)
	again()
}

func TestRedisReleaseKeepsForeignToken(t *testing.T) {
	rdb := newTestRedis(t)
	l := NewRedis(rdb, "test-lock-"+time.Now().Format("150405.000"), 50*time.Millisecond, 5*time.Second, logrus.New())
	ctx := context.Background()

	unlock, err := l.Lock(ctx, 1)
	require.NoError(t, err)
	// simulate the lease expiring and another instance taking over
	require.NoError(t, rdb.Set(ctx, l.key(1), "someone-else", time.Second).Err())
	unlock()

	v, err := rdb.Get(ctx, l.key(1)).Result()
	require.NoError(t, err)
	assert.Equal(t, "someone-else", v)
	rdb.Del(ctx, l.key(1))
}
