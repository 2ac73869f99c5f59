package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"
)

// DBTX is the subset of *sql.DB and *sql.Tx the repositories use, so the
// same code runs inside and outside a transaction.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// SQLStore implements Store on top of database/sql.  Queries stick to the
// SQL subset shared by MySQL and SQLite: `?` placeholders, timestamps bound
// as UTC time.Time values and no vendor functions.
type SQLStore struct {
	db   *sql.DB
	q    DBTX
	inTx bool
}

// NewSQLStore returns a Store bound to db.
func NewSQLStore(db *sql.DB) *SQLStore { return &SQLStore{db: db, q: db} }

// DB exposes the underlying handle for health checks and migrations.
func (s *SQLStore) DB() *sql.DB { return s.db }

func (s *SQLStore) Resources() ResourceStore     { return &ResourceRepo{q: s.q} }
func (s *SQLStore) Bookings() BookingStore       { return &BookingRepo{q: s.q} }
func (s *SQLStore) Assignments() AssignmentStore { return &DeskAssignmentRepo{q: s.q} }
func (s *SQLStore) Waitlist() WaitlistStore      { return &WaitlistRepo{q: s.q} }

// WithinTx begins a transaction, runs fn and commits when fn returns nil.
// Any error from fn rolls the transaction back and is returned unchanged.
func (s *SQLStore) WithinTx(ctx context.Context, fn func(Store) error) error {
	if s.inTx {
		return fn(s)
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	if err := fn(&SQLStore{db: s.db, q: tx, inTx: true}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

// --- scan/bind helpers shared by the repositories ---

func nullID(v *uint64) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*v), Valid: true}
}

func idPtr(v sql.NullInt64) *uint64 {
	if !v.Valid {
		return nil
	}
	id := uint64(v.Int64)
	return &id
}

func nullTime(v *time.Time) sql.NullTime {
	if v == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: v.UTC(), Valid: true}
}

func timePtr(v sql.NullTime) *time.Time {
	if !v.Valid {
		return nil
	}
	t := v.Time.UTC()
	return &t
}

// inClause renders "col IN (?,?,...)" and appends ids to args.  An empty id
// list renders a predicate that matches nothing.
func inClause(col string, ids []uint64, args []any) (string, []any) {
	if len(ids) == 0 {
		return "1=0", args
	}
	marks := make([]string, len(ids))
	for i, id := range ids {
		marks[i] = "?"
		args = append(args, int64(id))
	}
	return col + " IN (" + strings.Join(marks, ",") + ")", args
}

func where(conds []string) string {
	if len(conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(conds, " AND ")
}

func affectedOrNotFound(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
