package lock

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalSerializesSameKey(t *testing.T) {
	l := NewLocal(time.Second)
	ctx := context.Background()

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		inside  int
		maxSeen int
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock, err := l.Lock(ctx, 1)
			if !assert.NoError(t, err) {
				return
			}
			mu.Lock()
			inside++
			if inside > maxSeen {
				maxSeen = inside
			}
			mu.Unlock()
			time.Sleep(time.Millisecond)
			mu.Lock()
			inside--
			mu.Unlock()
			unlock()
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, maxSeen)
	assert.Empty(t, l.keys)
}

func TestLocalTimesOutWithBusy(t *testing.T) {
	l := NewLocal(20 * time.Millisecond)
	ctx := context.Background()

	unlock, err := l.Lock(ctx, 7)
	require.NoError(t, err)

	_, err = l.Lock(ctx, 7)
	assert.ErrorIs(t, err, ErrBusy)

	// other keys are independent
	other, err := l.Lock(ctx, 8)
	require.NoError(t, err)
	other()

	unlock()
	unlock() // second call is a no-op
	again, err := l.Lock(ctx, 7)
	require.NoError(t, err)
	again()
}

func TestLocalHonoursContext(t *testing.T) {
	l := NewLocal(time.Second)
	unlock, err := l.Lock(context.Background(), 1)
	require.NoError(t, err)
	defer unlock()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = l.Lock(ctx, 1)
	assert.ErrorIs(t, err, context.Canceled)
}
