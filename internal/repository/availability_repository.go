package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/iliyamo/atypikhouse/internal/model"
)

// AvailabilityRepo stores the bookable windows of properties.  It
// runs against either the pool or an open transaction.
type AvailabilityRepo struct {
	db DBTX
}

// NewAvailabilityRepo returns a repo bound to db (a *sql.DB or *sql.Tx).
func NewAvailabilityRepo(db DBTX) *AvailabilityRepo { return &AvailabilityRepo{db: db} }

const availabilityColumns = "id, property_id, start_date, end_date, special_price_cents"

// FindCovering returns windows that fully contain [start, end).
func (r *AvailabilityRepo) FindCovering(ctx context.Context, propertyID uint64, start, end time.Time) ([]model.Availability, error) {
	return r.query(ctx,
		"SELECT "+availabilityColumns+" FROM availabilities WHERE property_id=? AND start_date<=? AND end_date>=? ORDER BY start_date",
		propertyID, start, end)
}

// FindOverlapping returns windows intersecting [start, end), ordered
// by start date.
func (r *AvailabilityRepo) FindOverlapping(ctx context.Context, propertyID uint64, start, end time.Time) ([]model.Availability, error) {
	return r.query(ctx,
		"SELECT "+availabilityColumns+" FROM availabilities WHERE property_id=? AND start_date<? AND end_date>? ORDER BY start_date",
		propertyID, end, start)
}

// FindConflicting returns windows overlapping [start, end) other than
// excludeID (0 excludes nothing).
func (r *AvailabilityRepo) FindConflicting(ctx context.Context, propertyID uint64, start, end time.Time, excludeID uint64) ([]model.Availability, error) {
	return r.query(ctx,
		"SELECT "+availabilityColumns+" FROM availabilities WHERE property_id=? AND start_date<? AND end_date>? AND id<>? ORDER BY start_date",
		propertyID, end, start, excludeID)
}

// ListByProperty returns all windows of a property ordered by start.
func (r *AvailabilityRepo) ListByProperty(ctx context.Context, propertyID uint64) ([]model.Availability, error) {
	return r.query(ctx,
		"SELECT "+availabilityColumns+" FROM availabilities WHERE property_id=? ORDER BY start_date",
		propertyID)
}

// Create inserts a window and fills its ID.
func (r *AvailabilityRepo) Create(ctx context.Context, a *model.Availability) error {
	var special sql.NullInt64
	if a.SpecialPriceCents != nil {
		special = sql.NullInt64{Int64: *a.SpecialPriceCents, Valid: true}
	}
	res, err := r.db.ExecContext(ctx,
		"INSERT INTO availabilities (property_id, start_date, end_date, special_price_cents) VALUES (?,?,?,?)",
		a.PropertyID, a.StartDate, a.EndDate, special)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	a.ID = uint64(id)
	return nil
}

// Delete removes a window of the given property.  sql.ErrNoRows is
// returned when it does not exist or belongs to another property.
func (r *AvailabilityRepo) Delete(ctx context.Context, propertyID, id uint64) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM availabilities WHERE id=? AND property_id=?", id, propertyID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (r *AvailabilityRepo) query(ctx context.Context, q string, args ...any) ([]model.Availability, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.Availability, 0)
	for rows.Next() {
		var (
			a       model.Availability
			special sql.NullInt64
		)
		if err := rows.Scan(&a.ID, &a.PropertyID, &a.StartDate, &a.EndDate, &special); err != nil {
			return nil, err
		}
		if special.Valid {
			v := special.Int64
			a.SpecialPriceCents = &v
		}
		a.StartDate = model.DateOnly(a.StartDate)
		a.EndDate = model.DateOnly(a.EndDate)
		out = append(out, a)
	}
	return out, rows.Err()
}
