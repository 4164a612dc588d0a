package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/atypikhouse/internal/model"
)

// ReferenceRepo serves the property type and amenity catalogues.
type ReferenceRepo struct{ db *sql.DB }

func NewReferenceRepo(db *sql.DB) *ReferenceRepo { return &ReferenceRepo{db: db} }

func (r *ReferenceRepo) ListPropertyTypes(ctx context.Context) ([]model.PropertyType, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT id, name, description, icon FROM property_types ORDER BY name")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.PropertyType, 0)
	for rows.Next() {
		var (
			t          model.PropertyType
			desc, icon sql.NullString
		)
		if err := rows.Scan(&t.ID, &t.Name, &desc, &icon); err != nil {
			return nil, err
		}
		t.Description = stringPtr(desc)
		t.Icon = stringPtr(icon)
		out = append(out, t)
	}
	return out, rows.Err()
}

// PropertyTypeExists reports whether a property type id is known.
func (r *ReferenceRepo) PropertyTypeExists(ctx context.Context, id uint64) (bool, error) {
	var one int
	err := r.db.QueryRowContext(ctx, "SELECT 1 FROM property_types WHERE id=?", id).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	return err == nil, err
}

// CreatePropertyType inserts a type; duplicates yield ErrConflict.
func (r *ReferenceRepo) CreatePropertyType(ctx context.Context, t *model.PropertyType) error {
	res, err := r.db.ExecContext(ctx, "INSERT INTO property_types (name, description, icon) VALUES (?,?,?)",
		t.Name, nullString(t.Description), nullString(t.Icon))
	if err != nil {
		if isDuplicate(err) {
			return ErrConflict
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	t.ID = uint64(id)
	return nil
}

func (r *ReferenceRepo) ListAmenities(ctx context.Context) ([]model.Amenity, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT id, name, icon, description FROM amenities ORDER BY name")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanAmenities(rows)
}

// CreateAmenity inserts an amenity; duplicates yield ErrConflict.
func (r *ReferenceRepo) CreateAmenity(ctx context.Context, a *model.Amenity) error {
	res, err := r.db.ExecContext(ctx, "INSERT INTO amenities (name, icon, description) VALUES (?,?,?)",
		a.Name, nullString(a.Icon), nullString(a.Description))
	if err != nil {
		if isDuplicate(err) {
			return ErrConflict
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	a.ID = uint64(id)
	return nil
}

func scanAmenities(rows *sql.Rows) ([]model.Amenity, error) {
	out := make([]model.Amenity, 0)
	for rows.Next() {
		var (
			a          model.Amenity
			icon, desc sql.NullString
		)
		if err := rows.Scan(&a.ID, &a.Name, &icon, &desc); err != nil {
			return nil, err
		}
		a.Icon = stringPtr(icon)
		a.Description = stringPtr(desc)
		out = append(out, a)
	}
	return out, rows.Err()
}
