package jobs

import (
	"context"
	"errors"
	"io"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingSweeper struct {
	calls atomic.Int32
	err   error
}

func (s *countingSweeper) ExpireStaleOffers(ctx context.Context) (int, error) {
	s.calls.Add(1)
	return 1, s.err
}

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func TestOfferExpiryRunsOnSchedule(t *testing.T) {
	s := &countingSweeper{}
	j, err := NewOfferExpiry(s, "@every 1s", quietLogger())
	require.NoError(t, err)
	j.Start()
	assert.Eventually(t, func() bool { return s.calls.Load() >= 1 }, 3*time.Second, 50*time.Millisecond)
	j.Stop()

	after := s.calls.Load()
	time.Sleep(1200 * time.Millisecond)
	assert.Equal(t, after, s.calls.Load())
}

func TestOfferExpiryRejectsBadSchedule(t *testing.T) {
	_, err := NewOfferExpiry(&countingSweeper{}, "every now and then", quietLogger())
	assert.Error(t, err)
}

func TestOfferExpiryRunSurvivesErrors(t *testing.T) {
	s := &countingSweeper{err: errors.New("db down")}
	j, err := NewOfferExpiry(s, "@every 1h", quietLogger())
	require.NoError(t, err)
	j.Run()
	j.Run()
	assert.Equal(t, int32(2), s.calls.Load())
}
