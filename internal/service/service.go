// Package service holds the reservation engine: the resource catalog, the
// booking ledger, the waitlist and offer engine and the desk assignment
// manager.  Every check-then-mutate on a resource runs under that
// resource's lock and inside one storage transaction; events are published
// only after both are released.
package service

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/iliyamo/workspace-reservation/internal/lock"
	"github.com/iliyamo/workspace-reservation/internal/repository"
)

// Options tunes the engine.  Zero values fall back to the defaults below.
type Options struct {
	OfferTTL  time.Duration
	PastGrace time.Duration
	// Now is the clock; tests replace it.
	Now func() time.Time
}

const (
	DefaultOfferTTL  = 15 * time.Minute
	DefaultPastGrace = 5 * time.Minute
)

// Services groups the four components sharing one store and lock.
type Services struct {
	Catalog     *Catalog
	Ledger      *Ledger
	Waitlist    *Waitlist
	Assignments *Assignments
}

type core struct {
	store  repository.Store
	locker lock.Locker
	sink   EventSink
	log    logrus.FieldLogger
	opts   Options
}

// New wires the components.  A nil sink discards events.
func New(store repository.Store, locker lock.Locker, sink EventSink, log logrus.FieldLogger, opts Options) *Services {
	if sink == nil {
		sink = nopSink{}
	}
	if opts.OfferTTL <= 0 {
		opts.OfferTTL = DefaultOfferTTL
	}
	if opts.PastGrace < 0 {
		opts.PastGrace = 0
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	c := &core{store: store, locker: locker, sink: sink, log: log, opts: opts}
	ledger := &Ledger{core: c}
	waitlist := &Waitlist{core: c, ledger: ledger}
	ledger.waitlist = waitlist
	return &Services{
		Catalog:     &Catalog{core: c},
		Ledger:      ledger,
		Waitlist:    waitlist,
		Assignments: &Assignments{core: c},
	}
}

// now returns the current instant at the storage precision (UTC seconds).
func (c *core) now() time.Time { return utc(c.opts.Now()) }

func utc(t time.Time) time.Time { return t.UTC().Truncate(time.Second) }

// locked runs fn under the resource lock inside one transaction.  fn returns
// nil to commit; events it collected are published once the lock is gone.
func (c *core) locked(ctx context.Context, resourceID uint64, fn func(tx repository.Store, ev *events) error) error {
	unlock, err := c.locker.Lock(ctx, resourceID)
	if err != nil {
		c.log.WithField("resource_id", resourceID).WithError(err).Warn("resource lock not acquired")
		return lockFail(err)
	}
	var collected events
	err = c.store.WithinTx(ctx, func(tx repository.Store) error {
		collected = collected[:0]
		return fn(tx, &collected)
	})
	unlock()
	if err != nil {
		return err
	}
	c.publish(ctx, collected)
	return nil
}

func (c *core) publish(ctx context.Context, evs events) {
	ctx = context.WithoutCancel(ctx)
	for _, ev := range evs {
		c.sink.Publish(ctx, ev)
	}
}

// logOutcome logs a failed operation at a level matching its kind.
func (c *core) logOutcome(entry *logrus.Entry, msg string, err error) {
	if isDomain(err) {
		entry.WithError(err).Info(msg)
		return
	}
	entry.WithError(err).Error(msg)
}
