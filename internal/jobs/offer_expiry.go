// Package jobs runs the periodic background work of the service.
package jobs

import (
	"context"
	"sync"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// OfferSweeper is the part of the waitlist the expiry job drives.
type OfferSweeper interface {
	ExpireStaleOffers(ctx context.Context) (int, error)
}

// OfferExpiry calls ExpireStaleOffers on a cron schedule.  Runs never
// overlap: a tick that fires while the previous sweep is still going is
// skipped.
type OfferExpiry struct {
	cron    *cron.Cron
	sweeper OfferSweeper
	log     logrus.FieldLogger

	ctx    context.Context
	cancel context.CancelFunc
	mu     sync.Mutex
}

// NewOfferExpiry builds the job; schedule accepts any robfig/cron spec
// with an optional seconds field, e.g. "@every 30s".
func NewOfferExpiry(sweeper OfferSweeper, schedule string, log logrus.FieldLogger) (*OfferExpiry, error) {
	ctx, cancel := context.WithCancel(context.Background())
	j := &OfferExpiry{
		cron: cron.New(
			cron.WithSeconds(),
			cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)),
		),
		sweeper: sweeper,
		log:     log,
		ctx:     ctx,
		cancel:  cancel,
	}
	if _, err := j.cron.AddFunc(schedule, j.Run); err != nil {
		cancel()
		return nil, err
	}
	return j, nil
}

// Start begins scheduling in the background.
func (j *OfferExpiry) Start() {
	j.log.Info("offer expiry job started")
	j.cron.Start()
}

// Stop cancels a running sweep and waits for it to return.
func (j *OfferExpiry) Stop() {
	j.cancel()
	<-j.cron.Stop().Done()
	j.log.Info("offer expiry job stopped")
}

// Run performs one sweep.
func (j *OfferExpiry) Run() {
	j.mu.Lock()
	defer j.mu.Unlock()
	n, err := j.sweeper.ExpireStaleOffers(j.ctx)
	if err != nil {
		j.log.WithError(err).Error("offer sweep finished with errors")
		return
	}
	if n > 0 {
		j.log.WithField("expired", n).Debug("offer sweep done")
	}
}
