package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/workspace-reservation/internal/model"
)

// ResourceRepo provides CRUD operations for the resources table.
type ResourceRepo struct {
	q DBTX
}

// NewResourceRepo returns a ResourceRepo bound to the given handle.
func NewResourceRepo(q DBTX) *ResourceRepo { return &ResourceRepo{q: q} }

const resourceColumns = `id, resource_number, name, type, capacity, is_active, building_id, floor_id,
	department_id, booking_type, desk_mode, created_at, updated_at`

// Create inserts r and populates its generated ID.  CreatedAt/UpdatedAt
// must be set by the caller.
func (r *ResourceRepo) Create(ctx context.Context, res *model.Resource) error {
	const q = `INSERT INTO resources (resource_number, name, type, capacity, is_active, building_id, floor_id,
		department_id, booking_type, desk_mode, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	result, err := r.q.ExecContext(ctx, q,
		res.ResourceNumber, res.Name, string(res.Type), res.Capacity, res.Active,
		nullID(res.BuildingID), nullID(res.FloorID), nullID(res.DepartmentID),
		nullBookingType(res.BookingType), nullDeskMode(res.DeskMode),
		res.CreatedAt.UTC(), res.UpdatedAt.UTC(),
	)
	if err != nil {
		return err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	res.ID = uint64(id)
	return nil
}

// GetByID returns the resource or ErrNotFound.
func (r *ResourceRepo) GetByID(ctx context.Context, id uint64) (*model.Resource, error) {
	row := r.q.QueryRowContext(ctx, `SELECT `+resourceColumns+` FROM resources WHERE id = ?`, int64(id))
	res, err := scanResource(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return res, err
}

// List returns resources matching f ordered by ID.
func (r *ResourceRepo) List(ctx context.Context, f model.ResourceFilter) ([]model.Resource, error) {
	conds := []string{}
	args := []any{}
	if f.Type != nil {
		conds = append(conds, "type = ?")
		args = append(args, string(*f.Type))
	}
	if f.BuildingID != nil {
		conds = append(conds, "building_id = ?")
		args = append(args, int64(*f.BuildingID))
	}
	if f.FloorID != nil {
		conds = append(conds, "floor_id = ?")
		args = append(args, int64(*f.FloorID))
	}
	if f.DepartmentID != nil {
		conds = append(conds, "department_id = ?")
		args = append(args, int64(*f.DepartmentID))
	}
	if f.ActiveOnly {
		conds = append(conds, "is_active = ?")
		args = append(args, true)
	}
	if f.MinCapacity > 0 {
		conds = append(conds, "capacity >= ?")
		args = append(args, f.MinCapacity)
	}
	if f.IDs != nil {
		var c string
		c, args = inClause("id", f.IDs, args)
		conds = append(conds, c)
	}
	rows, err := r.q.QueryContext(ctx, `SELECT `+resourceColumns+` FROM resources`+where(conds)+` ORDER BY id`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.Resource{}
	for rows.Next() {
		res, err := scanResource(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *res)
	}
	return out, rows.Err()
}

// Update overwrites every mutable column of the resource.
func (r *ResourceRepo) Update(ctx context.Context, res *model.Resource) error {
	const q = `UPDATE resources SET resource_number = ?, name = ?, type = ?, capacity = ?, is_active = ?,
		building_id = ?, floor_id = ?, department_id = ?, booking_type = ?, desk_mode = ?, updated_at = ?
		WHERE id = ?`
	_, err := r.q.ExecContext(ctx, q,
		res.ResourceNumber, res.Name, string(res.Type), res.Capacity, res.Active,
		nullID(res.BuildingID), nullID(res.FloorID), nullID(res.DepartmentID),
		nullBookingType(res.BookingType), nullDeskMode(res.DeskMode),
		res.UpdatedAt.UTC(), int64(res.ID),
	)
	return err
}

// Delete removes the resource row permanently.
func (r *ResourceRepo) Delete(ctx context.Context, id uint64) error {
	result, err := r.q.ExecContext(ctx, `DELETE FROM resources WHERE id = ?`, int64(id))
	if err != nil {
		return err
	}
	return affectedOrNotFound(result)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanResource(s rowScanner) (*model.Resource, error) {
	var (
		res                   model.Resource
		typ                   string
		building, floor, dept sql.NullInt64
		bookingType, deskMode sql.NullString
	)
	if err := s.Scan(&res.ID, &res.ResourceNumber, &res.Name, &typ, &res.Capacity, &res.Active,
		&building, &floor, &dept, &bookingType, &deskMode, &res.CreatedAt, &res.UpdatedAt); err != nil {
		return nil, err
	}
	res.Type = model.ResourceType(typ)
	res.BuildingID = idPtr(building)
	res.FloorID = idPtr(floor)
	res.DepartmentID = idPtr(dept)
	if bookingType.Valid {
		bt := model.BookingType(bookingType.String)
		res.BookingType = &bt
	}
	if deskMode.Valid {
		dm := model.DeskMode(deskMode.String)
		res.DeskMode = &dm
	}
	res.CreatedAt = res.CreatedAt.UTC()
	res.UpdatedAt = res.UpdatedAt.UTC()
	return &res, nil
}

func nullBookingType(v *model.BookingType) sql.NullString {
	if v == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: string(*v), Valid: true}
}

func nullDeskMode(v *model.DeskMode) sql.NullString {
	if v == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: string(*v), Valid: true}
}
