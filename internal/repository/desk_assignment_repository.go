package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/workspace-reservation/internal/model"
)

// DeskAssignmentRepo provides data access to the desk_assignments table.
type DeskAssignmentRepo struct {
	q DBTX
}

// NewDeskAssignmentRepo returns a DeskAssignmentRepo bound to the given handle.
func NewDeskAssignmentRepo(q DBTX) *DeskAssignmentRepo { return &DeskAssignmentRepo{q: q} }

const assignmentColumns = `id, desk_id, user_id, start_utc, end_utc, created_at`

// Create inserts an assignment and populates its generated ID.
func (r *DeskAssignmentRepo) Create(ctx context.Context, a *model.DeskAssignment) error {
	const q = `INSERT INTO desk_assignments (desk_id, user_id, start_utc, end_utc, created_at) VALUES (?, ?, ?, ?, ?)`
	result, err := r.q.ExecContext(ctx, q,
		int64(a.DeskID), int64(a.UserID), a.StartUTC.UTC(), nullTime(a.EndUTC), a.CreatedAt.UTC())
	if err != nil {
		return err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	a.ID = uint64(id)
	return nil
}

// GetByID returns the assignment or ErrNotFound.
func (r *DeskAssignmentRepo) GetByID(ctx context.Context, id uint64) (*model.DeskAssignment, error) {
	row := r.q.QueryRowContext(ctx, `SELECT `+assignmentColumns+` FROM desk_assignments WHERE id = ?`, int64(id))
	a, err := scanAssignment(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return a, err
}

// Update overwrites user and window of an assignment.
func (r *DeskAssignmentRepo) Update(ctx context.Context, a *model.DeskAssignment) error {
	const q = `UPDATE desk_assignments SET user_id = ?, start_utc = ?, end_utc = ? WHERE id = ?`
	_, err := r.q.ExecContext(ctx, q, int64(a.UserID), a.StartUTC.UTC(), nullTime(a.EndUTC), int64(a.ID))
	return err
}

// Delete removes an assignment.
func (r *DeskAssignmentRepo) Delete(ctx context.Context, id uint64) error {
	result, err := r.q.ExecContext(ctx, `DELETE FROM desk_assignments WHERE id = ?`, int64(id))
	if err != nil {
		return err
	}
	return affectedOrNotFound(result)
}

// List returns assignments matching f ordered by desk then start.
func (r *DeskAssignmentRepo) List(ctx context.Context, f model.AssignmentFilter) ([]model.DeskAssignment, error) {
	conds := []string{}
	args := []any{}
	if f.DeskID != nil {
		conds = append(conds, "desk_id = ?")
		args = append(args, int64(*f.DeskID))
	}
	if f.UserID != nil {
		conds = append(conds, "user_id = ?")
		args = append(args, int64(*f.UserID))
	}
	if f.DeskIDs != nil {
		var c string
		c, args = inClause("desk_id", f.DeskIDs, args)
		conds = append(conds, c)
	}
	rows, err := r.q.QueryContext(ctx, `SELECT `+assignmentColumns+` FROM desk_assignments`+where(conds)+` ORDER BY desk_id, start_utc, id`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.DeskAssignment{}
	for rows.Next() {
		a, err := scanAssignment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *a)
	}
	return out, rows.Err()
}

func scanAssignment(s rowScanner) (*model.DeskAssignment, error) {
	var (
		a   model.DeskAssignment
		end sql.NullTime
	)
	if err := s.Scan(&a.ID, &a.DeskID, &a.UserID, &a.StartUTC, &end, &a.CreatedAt); err != nil {
		return nil, err
	}
	a.StartUTC = a.StartUTC.UTC()
	a.EndUTC = timePtr(end)
	a.CreatedAt = a.CreatedAt.UTC()
	return &a, nil
}
