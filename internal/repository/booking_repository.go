package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/iliyamo/workspace-reservation/internal/model"
)

// BookingRepo provides data access to the bookings table.  All timestamps
// are stored and compared in UTC.
type BookingRepo struct {
	q DBTX
}

// NewBookingRepo returns a BookingRepo bound to the given handle.
func NewBookingRepo(q DBTX) *BookingRepo { return &BookingRepo{q: q} }

const bookingColumns = `id, resource_id, user_id, start_utc, end_utc, status, waitlist_entry_id, created_at, cancelled_at`

// Create inserts a booking and populates its generated ID.
func (r *BookingRepo) Create(ctx context.Context, b *model.Booking) error {
	const q = `INSERT INTO bookings (resource_id, user_id, start_utc, end_utc, status, waitlist_entry_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`
	result, err := r.q.ExecContext(ctx, q,
		int64(b.ResourceID), int64(b.UserID), b.StartUTC.UTC(), b.EndUTC.UTC(),
		string(b.Status), nullID(b.WaitlistEntryID), b.CreatedAt.UTC(),
	)
	if err != nil {
		return err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	b.ID = uint64(id)
	return nil
}

// GetByID returns the booking or ErrNotFound.
func (r *BookingRepo) GetByID(ctx context.Context, id uint64) (*model.Booking, error) {
	row := r.q.QueryRowContext(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id = ?`, int64(id))
	b, err := scanBooking(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return b, err
}

// Cancel moves a CONFIRMED booking to CANCELLED.  It returns ErrNotFound
// when no CONFIRMED booking with that ID exists.
func (r *BookingRepo) Cancel(ctx context.Context, id uint64, at time.Time) error {
	const q = `UPDATE bookings SET status = ?, cancelled_at = ? WHERE id = ? AND status = ?`
	result, err := r.q.ExecContext(ctx, q,
		string(model.BookingCancelled), at.UTC(), int64(id), string(model.BookingConfirmed))
	if err != nil {
		return err
	}
	return affectedOrNotFound(result)
}

// ListOverlapping returns the CONFIRMED bookings of a resource whose
// window intersects w.
func (r *BookingRepo) ListOverlapping(ctx context.Context, resourceID uint64, w model.Interval) ([]model.Booking, error) {
	const q = `SELECT ` + bookingColumns + ` FROM bookings
		WHERE resource_id = ? AND status = ? AND start_utc < ? AND end_utc > ?
		ORDER BY start_utc, id`
	rows, err := r.q.QueryContext(ctx, q,
		int64(resourceID), string(model.BookingConfirmed), w.End.UTC(), w.Start.UTC())
	if err != nil {
		return nil, err
	}
	return collectBookings(rows)
}

// List returns bookings matching f ordered by start time.
func (r *BookingRepo) List(ctx context.Context, f model.BookingFilter) ([]model.Booking, error) {
	conds := []string{}
	args := []any{}
	if f.ResourceID != nil {
		conds = append(conds, "resource_id = ?")
		args = append(args, int64(*f.ResourceID))
	}
	if f.UserID != nil {
		conds = append(conds, "user_id = ?")
		args = append(args, int64(*f.UserID))
	}
	if f.Status != nil {
		conds = append(conds, "status = ?")
		args = append(args, string(*f.Status))
	}
	if f.From != nil {
		conds = append(conds, "end_utc > ?")
		args = append(args, f.From.UTC())
	}
	if f.To != nil {
		conds = append(conds, "start_utc < ?")
		args = append(args, f.To.UTC())
	}
	rows, err := r.q.QueryContext(ctx, `SELECT `+bookingColumns+` FROM bookings`+where(conds)+` ORDER BY start_utc, id`, args...)
	if err != nil {
		return nil, err
	}
	return collectBookings(rows)
}

func collectBookings(rows *sql.Rows) ([]model.Booking, error) {
	defer rows.Close()
	out := []model.Booking{}
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *b)
	}
	return out, rows.Err()
}

func scanBooking(s rowScanner) (*model.Booking, error) {
	var (
		b         model.Booking
		status    string
		entryID   sql.NullInt64
		cancelled sql.NullTime
	)
	if err := s.Scan(&b.ID, &b.ResourceID, &b.UserID, &b.StartUTC, &b.EndUTC, &status, &entryID, &b.CreatedAt, &cancelled); err != nil {
		return nil, err
	}
	b.Status = model.BookingStatus(status)
	b.WaitlistEntryID = idPtr(entryID)
	b.CancelledAt = timePtr(cancelled)
	b.StartUTC = b.StartUTC.UTC()
	b.EndUTC = b.EndUTC.UTC()
	b.CreatedAt = b.CreatedAt.UTC()
	return &b, nil
}
