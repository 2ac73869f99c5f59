package lock

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// releaseScript deletes the key only if it still holds our token, so an
// expired lease taken over by another instance is never released by us.
var releaseScript = redis.NewScript(`
	if redis.call('GET', KEYS[1]) == ARGV[1] then
		return redis.call('DEL', KEYS[1])
	end
	return 0
`)

// Redis is a lease lock shared by every instance using the same Redis.  The
// lease bounds how long a crashed holder can block a resource.
type Redis struct {
	rdb     *redis.Client
	prefix  string
	timeout time.Duration
	lease   time.Duration
	log     logrus.FieldLogger
}

// NewRedis returns a Redis-backed Locker.
func NewRedis(rdb *redis.Client, prefix string, timeout, lease time.Duration, log logrus.FieldLogger) *Redis {
	if prefix == "" {
		prefix = "lock"
	}
	return &Redis{rdb: rdb, prefix: prefix, timeout: timeout, lease: lease, log: log}
}

func (r *Redis) key(id uint64) string { return fmt.Sprintf("%s:resource:%d", r.prefix, id) }

// Lock polls SET NX with a growing backoff until it wins or the timeout
// elapses.
func (r *Redis) Lock(ctx context.Context, resourceID uint64) (func(), error) {
	key := r.key(resourceID)
	token := uuid.NewString()
	deadline := time.Now().Add(r.timeout)
	backoff := 5 * time.Millisecond

	for {
		ok, err := r.rdb.SetNX(ctx, key, token, r.lease).Result()
		if err != nil {
			return nil, fmt.Errorf("lock: redis: %w", err)
		}
		if ok {
			break
		}
		wait := time.Until(deadline)
		if wait <= 0 {
			return nil, ErrBusy
		}
		if backoff < wait {
			wait = backoff
		}
		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		if backoff < 100*time.Millisecond {
			backoff *= 2
		}
	}

	released := false
	return func() {
		if released {
			return
		}
		released = true
		// release on a fresh context so a cancelled request still frees the key
		rctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := releaseScript.Run(rctx, r.rdb, []string{key}, token).Err(); err != nil {
			r.log.WithError(err).WithField("resource_id", resourceID).Warn("lock release failed; lease will expire")
		}
	}, nil
}
