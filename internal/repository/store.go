package repository

import (
	"context"
	"time"

	"github.com/iliyamo/workspace-reservation/internal/model"
)

// ResourceStore persists catalog resources.
type ResourceStore interface {
	Create(ctx context.Context, r *model.Resource) error
	GetByID(ctx context.Context, id uint64) (*model.Resource, error)
	List(ctx context.Context, f model.ResourceFilter) ([]model.Resource, error)
	Update(ctx context.Context, r *model.Resource) error
	Delete(ctx context.Context, id uint64) error
}

// BookingStore persists bookings.  ListOverlapping returns CONFIRMED
// bookings of one resource intersecting w, ordered by start.
type BookingStore interface {
	Create(ctx context.Context, b *model.Booking) error
	GetByID(ctx context.Context, id uint64) (*model.Booking, error)
	Cancel(ctx context.Context, id uint64, at time.Time) error
	ListOverlapping(ctx context.Context, resourceID uint64, w model.Interval) ([]model.Booking, error)
	List(ctx context.Context, f model.BookingFilter) ([]model.Booking, error)
}

// AssignmentStore persists desk assignments.
type AssignmentStore interface {
	Create(ctx context.Context, a *model.DeskAssignment) error
	GetByID(ctx context.Context, id uint64) (*model.DeskAssignment, error)
	Update(ctx context.Context, a *model.DeskAssignment) error
	Delete(ctx context.Context, id uint64) error
	List(ctx context.Context, f model.AssignmentFilter) ([]model.DeskAssignment, error)
}

// WaitlistStore persists waitlist entries and their offers.  List returns
// entries ordered FIFO (created_at, id).
type WaitlistStore interface {
	Create(ctx context.Context, e *model.WaitlistEntry) error
	GetByID(ctx context.Context, id uint64) (*model.WaitlistEntry, error)
	Update(ctx context.Context, e *model.WaitlistEntry) error
	Delete(ctx context.Context, id uint64) error
	List(ctx context.Context, f model.WaitlistFilter) ([]model.WaitlistEntry, error)
}

// Store bundles the per-table stores.  WithinTx runs fn against a Store
// whose writes commit together or not at all; calling WithinTx on the Store
// handed to fn runs the nested function in the same transaction.
type Store interface {
	Resources() ResourceStore
	Bookings() BookingStore
	Assignments() AssignmentStore
	Waitlist() WaitlistStore
	WithinTx(ctx context.Context, fn func(Store) error) error
}
