package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/iliyamo/atypikhouse/internal/model"
)

// PropertyRepo provides CRUD, search and moderation queries for
// properties together with their images and amenity links.
type PropertyRepo struct {
	db *sql.DB
}

// NewPropertyRepo returns a new PropertyRepo bound to the given database.
func NewPropertyRepo(db *sql.DB) *PropertyRepo { return &PropertyRepo{db: db} }

// DB exposes the pool for callers that open their own transactions.
func (r *PropertyRepo) DB() *sql.DB { return r.db }

const propertyColumns = `p.id, p.owner_id, p.property_type_id, p.title, p.description, p.base_price_cents,
	p.capacity, p.address, p.latitude, p.longitude, p.is_active, p.created_at, p.updated_at,
	(SELECT AVG(rv.rating) FROM reviews rv WHERE rv.property_id = p.id AND rv.is_moderated = TRUE) AS avg_rating`

// SearchCriteria filters public property search.  Zero values are
// ignored.  Prices are in cents.
type SearchCriteria struct {
	PropertyTypeID uint64
	Capacity       int
	MinPriceCents  int64
	MaxPriceCents  int64
	AmenityIDs     []uint64
	Query          string
	Location       string
	SortBy         string
}

// PropertyUpdate carries the fields of a partial update; nil pointers
// are left untouched.
type PropertyUpdate struct {
	PropertyTypeID *uint64
	Title          *string
	Description    *string
	BasePriceCents *int64
	Capacity       *int
	Address        *string
	Latitude       *float64
	Longitude      *float64
}

// LockForUpdate takes a row lock on the property inside tx.  Callers
// that check then insert bookings serialise on this lock.
func LockForUpdate(ctx context.Context, tx *sql.Tx, propertyID uint64) error {
	var id uint64
	return tx.QueryRowContext(ctx, "SELECT id FROM properties WHERE id=? FOR UPDATE", propertyID).Scan(&id)
}

// Create inserts a property.  New properties are inactive until an
// admin approves them.
func (r *PropertyRepo) Create(ctx context.Context, p *model.Property) error {
	now := time.Now().UTC()
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO properties (owner_id, property_type_id, title, description, base_price_cents, capacity, address, latitude, longitude, is_active, created_at, updated_at)
		 VALUES (?,?,?,?,?,?,?,?,?,FALSE,?,?)`,
		p.OwnerID, p.PropertyTypeID, p.Title, p.Description, p.BasePriceCents, p.Capacity, p.Address,
		nullFloat(p.Latitude), nullFloat(p.Longitude), now, now)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	p.ID = uint64(id)
	p.IsActive = false
	p.CreatedAt = now
	p.UpdatedAt = now
	return nil
}

// GetByID returns the property with its images and amenities.
func (r *PropertyRepo) GetByID(ctx context.Context, id uint64) (model.Property, error) {
	p, err := scanProperty(r.db.QueryRowContext(ctx,
		"SELECT "+propertyColumns+" FROM properties p WHERE p.id=?", id))
	if err != nil {
		return p, err
	}
	if p.Images, err = r.ListImages(ctx, id); err != nil {
		return p, err
	}
	if p.Amenities, err = r.ListAmenities(ctx, id); err != nil {
		return p, err
	}
	return p, nil
}

// GetOwnerID returns the owner of a property or sql.ErrNoRows.
func (r *PropertyRepo) GetOwnerID(ctx context.Context, id uint64) (uint64, error) {
	var owner uint64
	err := r.db.QueryRowContext(ctx, "SELECT owner_id FROM properties WHERE id=?", id).Scan(&owner)
	return owner, err
}

// Update applies a partial update.
func (r *PropertyRepo) Update(ctx context.Context, id uint64, u PropertyUpdate) error {
	set := []string{}
	args := []any{}
	if u.PropertyTypeID != nil {
		set = append(set, "property_type_id=?")
		args = append(args, *u.PropertyTypeID)
	}
	if u.Title != nil {
		set = append(set, "title=?")
		args = append(args, *u.Title)
	}
	if u.Description != nil {
		set = append(set, "description=?")
		args = append(args, *u.Description)
	}
	if u.BasePriceCents != nil {
		set = append(set, "base_price_cents=?")
		args = append(args, *u.BasePriceCents)
	}
	if u.Capacity != nil {
		set = append(set, "capacity=?")
		args = append(args, *u.Capacity)
	}
	if u.Address != nil {
		set = append(set, "address=?")
		args = append(args, *u.Address)
	}
	if u.Latitude != nil {
		set = append(set, "latitude=?")
		args = append(args, *u.Latitude)
	}
	if u.Longitude != nil {
		set = append(set, "longitude=?")
		args = append(args, *u.Longitude)
	}
	set = append(set, "updated_at=UTC_TIMESTAMP()")
	args = append(args, id)
	_, err := r.db.ExecContext(ctx, "UPDATE properties SET "+strings.Join(set, ", ")+" WHERE id=?", args...)
	return err
}

// Delete removes a property; foreign keys cascade to its images,
// windows, bookings and reviews.
func (r *PropertyRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM properties WHERE id=?", id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// SetActive approves (true) or rejects (false) a property.
func (r *PropertyRepo) SetActive(ctx context.Context, id uint64, active bool) error {
	if _, err := r.GetOwnerID(ctx, id); err != nil {
		return err
	}
	_, err := r.db.ExecContext(ctx, "UPDATE properties SET is_active=?, updated_at=UTC_TIMESTAMP() WHERE id=?", active, id)
	return err
}

// ListByOwner returns the owner's properties, newest first.
func (r *PropertyRepo) ListByOwner(ctx context.Context, ownerID uint64) ([]model.Property, error) {
	return r.list(ctx, "SELECT "+propertyColumns+" FROM properties p WHERE p.owner_id=? ORDER BY p.created_at DESC, p.id DESC", ownerID)
}

// ListAll returns every property for the admin, optionally filtered
// by activity.
func (r *PropertyRepo) ListAll(ctx context.Context, active *bool) ([]model.Property, error) {
	q := "SELECT " + propertyColumns + " FROM properties p"
	var args []any
	if active != nil {
		q += " WHERE p.is_active=?"
		args = append(args, *active)
	}
	return r.list(ctx, q+" ORDER BY p.created_at DESC, p.id DESC", args...)
}

// ListForModeration returns inactive properties, oldest first.
func (r *PropertyRepo) ListForModeration(ctx context.Context) ([]model.Property, error) {
	return r.list(ctx, "SELECT "+propertyColumns+" FROM properties p WHERE p.is_active=FALSE ORDER BY p.created_at ASC, p.id ASC")
}

// Featured returns up to limit active properties by average rating.
func (r *PropertyRepo) Featured(ctx context.Context, limit int) ([]model.Property, error) {
	q := "SELECT " + propertyColumns + ` FROM properties p WHERE p.is_active=TRUE
		ORDER BY avg_rating IS NULL, avg_rating DESC, p.created_at DESC LIMIT ?`
	props, err := r.list(ctx, q, limit)
	if err != nil {
		return nil, err
	}
	return props, r.attachFeaturedImages(ctx, props)
}

// Search returns active properties matching c.  Amenities match
// any-of.
func (r *PropertyRepo) Search(ctx context.Context, c SearchCriteria) ([]model.Property, error) {
	where := []string{"p.is_active=TRUE"}
	args := []any{}
	if c.PropertyTypeID > 0 {
		where = append(where, "p.property_type_id=?")
		args = append(args, c.PropertyTypeID)
	}
	if c.Capacity > 0 {
		where = append(where, "p.capacity>=?")
		args = append(args, c.Capacity)
	}
	if c.MinPriceCents > 0 {
		where = append(where, "p.base_price_cents>=?")
		args = append(args, c.MinPriceCents)
	}
	if c.MaxPriceCents > 0 {
		where = append(where, "p.base_price_cents<=?")
		args = append(args, c.MaxPriceCents)
	}
	if len(c.AmenityIDs) > 0 {
		where = append(where, "EXISTS (SELECT 1 FROM property_amenities pa WHERE pa.property_id=p.id AND pa.amenity_id IN ("+placeholders(len(c.AmenityIDs))+"))")
		for _, id := range c.AmenityIDs {
			args = append(args, id)
		}
	}
	if q := strings.TrimSpace(c.Query); q != "" {
		where = append(where, "(LOWER(p.title) LIKE ? OR LOWER(p.description) LIKE ?)")
		like := "%" + strings.ToLower(q) + "%"
		args = append(args, like, like)
	}
	if loc := strings.TrimSpace(c.Location); loc != "" {
		where = append(where, "LOWER(p.address) LIKE ?")
		args = append(args, "%"+strings.ToLower(loc)+"%")
	}

	order := "p.created_at DESC, p.id DESC"
	switch c.SortBy {
	case "price_asc":
		order = "p.base_price_cents ASC, p.id ASC"
	case "price_desc":
		order = "p.base_price_cents DESC, p.id DESC"
	case "rating":
		order = "avg_rating IS NULL, avg_rating DESC, p.id DESC"
	}

	q := "SELECT " + propertyColumns + " FROM properties p WHERE " + strings.Join(where, " AND ") + " ORDER BY " + order
	props, err := r.list(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	return props, r.attachFeaturedImages(ctx, props)
}

// ListImages returns images ordered by position.
func (r *PropertyRepo) ListImages(ctx context.Context, propertyID uint64) ([]model.PropertyImage, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT id, property_id, path, position, is_featured FROM property_images WHERE property_id=? ORDER BY position, id", propertyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.PropertyImage, 0)
	for rows.Next() {
		var img model.PropertyImage
		if err := rows.Scan(&img.ID, &img.PropertyID, &img.Path, &img.Position, &img.IsFeatured); err != nil {
			return nil, err
		}
		out = append(out, img)
	}
	return out, rows.Err()
}

// AddImage attaches an image.  The first image of a property becomes
// featured; a featured image un-features the others; position 0
// appends after the current last image.
func (r *PropertyRepo) AddImage(ctx context.Context, img *model.PropertyImage) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	if err := LockForUpdate(ctx, tx, img.PropertyID); err != nil {
		return err
	}
	var count, maxPos int
	if err := tx.QueryRowContext(ctx,
		"SELECT COUNT(*), COALESCE(MAX(position),0) FROM property_images WHERE property_id=?",
		img.PropertyID).Scan(&count, &maxPos); err != nil {
		return err
	}
	if count == 0 {
		img.IsFeatured = true
	}
	if img.Position <= 0 {
		img.Position = maxPos + 1
	}
	if img.IsFeatured {
		if _, err := tx.ExecContext(ctx, "UPDATE property_images SET is_featured=FALSE WHERE property_id=?", img.PropertyID); err != nil {
			return err
		}
	}
	res, err := tx.ExecContext(ctx,
		"INSERT INTO property_images (property_id, path, position, is_featured) VALUES (?,?,?,?)",
		img.PropertyID, img.Path, img.Position, img.IsFeatured)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	img.ID = uint64(id)
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

// ListAmenities returns the amenities linked to a property.
func (r *PropertyRepo) ListAmenities(ctx context.Context, propertyID uint64) ([]model.Amenity, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT a.id, a.name, a.icon, a.description FROM amenities a
		 JOIN property_amenities pa ON pa.amenity_id = a.id
		 WHERE pa.property_id=? ORDER BY a.name`, propertyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanAmenities(rows)
}

// ReplaceAmenities swaps the amenity set of a property.
func (r *PropertyRepo) ReplaceAmenities(ctx context.Context, propertyID uint64, amenityIDs []uint64) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	if _, err := tx.ExecContext(ctx, "DELETE FROM property_amenities WHERE property_id=?", propertyID); err != nil {
		return err
	}
	if len(amenityIDs) > 0 {
		query := "INSERT IGNORE INTO property_amenities (property_id, amenity_id) VALUES "
		args := make([]any, 0, len(amenityIDs)*2)
		for i, id := range amenityIDs {
			if i > 0 {
				query += ","
			}
			query += "(?, ?)"
			args = append(args, propertyID, id)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

func (r *PropertyRepo) attachFeaturedImages(ctx context.Context, props []model.Property) error {
	if len(props) == 0 {
		return nil
	}
	index := make(map[uint64]int, len(props))
	ids := make([]any, 0, len(props))
	for i, p := range props {
		index[p.ID] = i
		ids = append(ids, p.ID)
	}
	rows, err := r.db.QueryContext(ctx,
		"SELECT id, property_id, path, position, is_featured FROM property_images WHERE is_featured=TRUE AND property_id IN ("+placeholders(len(ids))+")",
		ids...)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var img model.PropertyImage
		if err := rows.Scan(&img.ID, &img.PropertyID, &img.Path, &img.Position, &img.IsFeatured); err != nil {
			return err
		}
		if i, ok := index[img.PropertyID]; ok {
			props[i].Images = append(props[i].Images, img)
		}
	}
	return rows.Err()
}

func (r *PropertyRepo) list(ctx context.Context, q string, args ...any) ([]model.Property, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.Property, 0)
	for rows.Next() {
		p, err := scanProperty(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func scanProperty(s rowScanner) (model.Property, error) {
	var (
		p        model.Property
		lat, lng sql.NullFloat64
		avg      sql.NullFloat64
	)
	err := s.Scan(&p.ID, &p.OwnerID, &p.PropertyTypeID, &p.Title, &p.Description, &p.BasePriceCents,
		&p.Capacity, &p.Address, &lat, &lng, &p.IsActive, &p.CreatedAt, &p.UpdatedAt, &avg)
	if err != nil {
		return p, err
	}
	if lat.Valid {
		v := lat.Float64
		p.Latitude = &v
	}
	if lng.Valid {
		v := lng.Float64
		p.Longitude = &v
	}
	if avg.Valid {
		v := avg.Float64
		p.AverageRating = &v
	}
	return p, nil
}

func nullFloat(p *float64) sql.NullFloat64 {
	if p == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *p, Valid: true}
}
