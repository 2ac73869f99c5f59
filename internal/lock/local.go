package lock

import (
	"context"
	"sync"
	"time"
)

// Local is an in-process keyed lock.  Each key maps to a one-slot channel;
// entries are reference counted and dropped once nobody holds or waits.
type Local struct {
	timeout time.Duration

	mu   sync.Mutex
	keys map[uint64]*slot
}

type slot struct {
	ch   chan struct{}
	refs int
}

// NewLocal returns a Local lock that waits at most timeout per acquisition.
func NewLocal(timeout time.Duration) *Local {
	return &Local{timeout: timeout, keys: map[uint64]*slot{}}
}

func (l *Local) acquireSlot(id uint64) *slot {
	l.mu.Lock()
	defer l.mu.Unlock()
	s, ok := l.keys[id]
	if !ok {
		s = &slot{ch: make(chan struct{}, 1)}
		l.keys[id] = s
	}
	s.refs++
	return s
}

func (l *Local) releaseSlot(id uint64, s *slot) {
	l.mu.Lock()
	defer l.mu.Unlock()
	s.refs--
	if s.refs == 0 {
		delete(l.keys, id)
	}
}

// Lock blocks until the resource is free, ctx is done or the timeout
// elapses.  Timeouts map to ErrBusy; context errors are returned as is.
func (l *Local) Lock(ctx context.Context, resourceID uint64) (func(), error) {
	s := l.acquireSlot(resourceID)
	timer := time.NewTimer(l.timeout)
	defer timer.Stop()

	select {
	case s.ch <- struct{}{}:
	case <-timer.C:
		l.releaseSlot(resourceID, s)
		return nil, ErrBusy
	case <-ctx.Done():
		l.releaseSlot(resourceID, s)
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-s.ch
			l.releaseSlot(resourceID, s)
		})
	}, nil
}
