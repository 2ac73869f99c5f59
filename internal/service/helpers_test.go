package service

import (
	"context"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/workspace-reservation/internal/lock"
	"github.com/iliyamo/workspace-reservation/internal/model"
	"github.com/iliyamo/workspace-reservation/internal/repository/memory"
)

var day0 = time.Date(2030, 3, 4, 0, 0, 0, 0, time.UTC)

func at(hh, mm int) time.Time {
	return day0.Add(time.Duration(hh)*time.Hour + time.Duration(mm)*time.Minute)
}

type clock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

type recorder struct {
	mu  sync.Mutex
	evs []model.Event
}

func (r *recorder) Publish(_ context.Context, ev model.Event) {
	r.mu.Lock()
	r.evs = append(r.evs, ev)
	r.mu.Unlock()
}

func (r *recorder) types() []model.EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]model.EventType, len(r.evs))
	for i, ev := range r.evs {
		out[i] = ev.Type
	}
	return out
}

func (r *recorder) count(t model.EventType) int {
	n := 0
	for _, got := range r.types() {
		if got == t {
			n++
		}
	}
	return n
}

type env struct {
	*Services
	clock  *clock
	events *recorder
	seq    int
}

func (e *env) number(prefix string) string {
	e.seq++
	return fmt.Sprintf("%s-%d", prefix, e.seq)
}

func newEnv(t *testing.T) *env {
	t.Helper()
	log := logrus.New()
	log.SetOutput(io.Discard)
	c := &clock{t: at(8, 0)}
	rec := &recorder{}
	svc := New(memory.New(), lock.NewLocal(time.Second), rec, log, Options{
		OfferTTL:  15 * time.Minute,
		PastGrace: 5 * time.Minute,
		Now:       c.Now,
	})
	return &env{Services: svc, clock: c, events: rec}
}

var (
	alice = model.Principal{UserID: 1, Role: model.RoleUser}
	bob   = model.Principal{UserID: 2, Role: model.RoleUser}
	carol = model.Principal{UserID: 3, Role: model.RoleUser}
	admin = model.Principal{UserID: 99, Role: model.RoleSystemAdmin}
)

func (e *env) room(t *testing.T, bt model.BookingType, capacity int) *model.Resource {
	t.Helper()
	r, err := e.Catalog.Create(context.Background(), ResourceInput{
		ResourceNumber: e.number("R"), Name: "Room",
		Type: model.ResourceRoom, Capacity: capacity, BookingType: &bt,
	})
	require.NoError(t, err)
	return r
}

func (e *env) desk(t *testing.T, mode model.DeskMode) *model.Resource {
	t.Helper()
	r, err := e.Catalog.Create(context.Background(), ResourceInput{
		ResourceNumber: e.number("D"), Name: "Desk",
		Type: model.ResourceDesk, Capacity: 1, DeskMode: &mode,
	})
	require.NoError(t, err)
	return r
}
