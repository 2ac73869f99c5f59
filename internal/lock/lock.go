// Package lock serializes check-then-mutate sequences per resource.  A
// holder keeps the lock only for the duration of one operation; waiters give
// up after a bounded timeout with ErrBusy rather than queue indefinitely.
package lock

import (
	"context"
	"errors"
)

// ErrBusy is returned when the lock could not be acquired in time.
var ErrBusy = errors.New("lock: resource busy")

// Locker grants exclusive access to one resource ID.  The returned unlock
// func must be called exactly once.
type Locker interface {
	Lock(ctx context.Context, resourceID uint64) (unlock func(), err error)
}
