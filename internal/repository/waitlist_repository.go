package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/workspace-reservation/internal/model"
)

// WaitlistRepo provides data access to the waitlist_entries table.  The
// offer sub-record is stored inline in the offer_* / freed_* columns; an
// entry without offered_at has no offer.
type WaitlistRepo struct {
	q DBTX
}

// NewWaitlistRepo returns a WaitlistRepo bound to the given handle.
func NewWaitlistRepo(q DBTX) *WaitlistRepo { return &WaitlistRepo{q: q} }

const entryColumns = `id, resource_id, user_id, start_utc, end_utc, status, created_at, resolved_at,
	offered_at, offer_expires_at, freed_start, freed_end, booking_id`

// Create inserts a new entry and populates its generated ID.
func (r *WaitlistRepo) Create(ctx context.Context, e *model.WaitlistEntry) error {
	const q = `INSERT INTO waitlist_entries (resource_id, user_id, start_utc, end_utc, status, created_at,
		resolved_at, offered_at, offer_expires_at, freed_start, freed_end, booking_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	offered, expires, freedStart, freedEnd, booking := offerColumns(e.Offer)
	result, err := r.q.ExecContext(ctx, q,
		int64(e.ResourceID), int64(e.UserID), e.StartUTC.UTC(), e.EndUTC.UTC(), string(e.Status),
		e.CreatedAt.UTC(), nullTime(e.ResolvedAt), offered, expires, freedStart, freedEnd, booking,
	)
	if err != nil {
		return err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	e.ID = uint64(id)
	return nil
}

// GetByID returns the entry or ErrNotFound.
func (r *WaitlistRepo) GetByID(ctx context.Context, id uint64) (*model.WaitlistEntry, error) {
	row := r.q.QueryRowContext(ctx, `SELECT `+entryColumns+` FROM waitlist_entries WHERE id = ?`, int64(id))
	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return e, err
}

// Update persists status, resolution and offer state of an entry.
func (r *WaitlistRepo) Update(ctx context.Context, e *model.WaitlistEntry) error {
	const q = `UPDATE waitlist_entries SET status = ?, resolved_at = ?, offered_at = ?, offer_expires_at = ?,
		freed_start = ?, freed_end = ?, booking_id = ? WHERE id = ?`
	offered, expires, freedStart, freedEnd, booking := offerColumns(e.Offer)
	_, err := r.q.ExecContext(ctx, q, string(e.Status), nullTime(e.ResolvedAt),
		offered, expires, freedStart, freedEnd, booking, int64(e.ID))
	return err
}

// Delete removes an entry.
func (r *WaitlistRepo) Delete(ctx context.Context, id uint64) error {
	result, err := r.q.ExecContext(ctx, `DELETE FROM waitlist_entries WHERE id = ?`, int64(id))
	if err != nil {
		return err
	}
	return affectedOrNotFound(result)
}

// List returns entries matching f in FIFO order.
func (r *WaitlistRepo) List(ctx context.Context, f model.WaitlistFilter) ([]model.WaitlistEntry, error) {
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
	if len(f.Statuses) > 0 {
		marks := ""
		for i, s := range f.Statuses {
			if i > 0 {
				marks += ","
			}
			marks += "?"
			args = append(args, string(s))
		}
		conds = append(conds, "status IN ("+marks+")")
	}
	if f.OfferExpiredBy != nil {
		conds = append(conds, "status = ?", "offer_expires_at <= ?")
		args = append(args, string(model.EntryOffered), f.OfferExpiredBy.UTC())
	}
	rows, err := r.q.QueryContext(ctx, `SELECT `+entryColumns+` FROM waitlist_entries`+where(conds)+` ORDER BY created_at, id`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.WaitlistEntry{}
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *e)
	}
	return out, rows.Err()
}

func offerColumns(o *model.Offer) (offered, expires, freedStart, freedEnd sql.NullTime, booking sql.NullInt64) {
	if o == nil {
		return
	}
	offered = sql.NullTime{Time: o.OfferedAt.UTC(), Valid: true}
	expires = sql.NullTime{Time: o.ExpiresAt.UTC(), Valid: true}
	freedStart = sql.NullTime{Time: o.Freed.Start.UTC(), Valid: true}
	freedEnd = sql.NullTime{Time: o.Freed.End.UTC(), Valid: true}
	booking = nullID(o.BookingID)
	return
}

func scanEntry(s rowScanner) (*model.WaitlistEntry, error) {
	var (
		e                                  model.WaitlistEntry
		status                             string
		resolved, offered, expires, fs, fe sql.NullTime
		booking                            sql.NullInt64
	)
	if err := s.Scan(&e.ID, &e.ResourceID, &e.UserID, &e.StartUTC, &e.EndUTC, &status, &e.CreatedAt,
		&resolved, &offered, &expires, &fs, &fe, &booking); err != nil {
		return nil, err
	}
	e.Status = model.EntryStatus(status)
	e.StartUTC = e.StartUTC.UTC()
	e.EndUTC = e.EndUTC.UTC()
	e.CreatedAt = e.CreatedAt.UTC()
	e.ResolvedAt = timePtr(resolved)
	if offered.Valid {
		e.Offer = &model.Offer{
			Status:    e.Status,
			OfferedAt: offered.Time.UTC(),
			ExpiresAt: expires.Time.UTC(),
			Freed:     model.Interval{Start: fs.Time.UTC(), End: fe.Time.UTC()},
			BookingID: idPtr(booking),
		}
	}
	return &e, nil
}
