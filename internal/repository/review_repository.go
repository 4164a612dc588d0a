package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/iliyamo/atypikhouse/internal/model"
)

// ReviewRepo persists reviews.  Every query joins bookings so the
// tenant (author) is always known.
type ReviewRepo struct{ db *sql.DB }

func NewReviewRepo(db *sql.DB) *ReviewRepo { return &ReviewRepo{db: db} }

const reviewSelect = `SELECT rv.id, rv.booking_id, rv.property_id, rv.rating, rv.comment, rv.is_moderated,
	rv.created_at, rv.updated_at, b.tenant_id
	FROM reviews rv JOIN bookings b ON b.id = rv.booking_id`

// Create inserts a review.  A second review for the same booking
// yields ErrConflict.
func (r *ReviewRepo) Create(ctx context.Context, rv *model.Review) error {
	now := time.Now().UTC()
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO reviews (booking_id, property_id, rating, comment, is_moderated, created_at, updated_at)
		 VALUES (?,?,?,?,FALSE,?,?)`,
		rv.BookingID, rv.PropertyID, rv.Rating, rv.Comment, now, now)
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
	rv.ID = uint64(id)
	rv.IsModerated = false
	rv.CreatedAt = now
	rv.UpdatedAt = now
	return nil
}

func (r *ReviewRepo) GetByID(ctx context.Context, id uint64) (model.Review, error) {
	return scanReview(r.db.QueryRowContext(ctx, reviewSelect+" WHERE rv.id=?", id))
}

// Update stores rating, comment and moderation flag.
func (r *ReviewRepo) Update(ctx context.Context, rv *model.Review) error {
	_, err := r.db.ExecContext(ctx,
		"UPDATE reviews SET rating=?, comment=?, is_moderated=?, updated_at=UTC_TIMESTAMP() WHERE id=?",
		rv.Rating, rv.Comment, rv.IsModerated, rv.ID)
	return err
}

// SetModerated marks a review as moderated or not.
func (r *ReviewRepo) SetModerated(ctx context.Context, id uint64, moderated bool) error {
	if _, err := r.GetByID(ctx, id); err != nil {
		return err
	}
	_, err := r.db.ExecContext(ctx, "UPDATE reviews SET is_moderated=?, updated_at=UTC_TIMESTAMP() WHERE id=?", moderated, id)
	return err
}

// ListByProperty returns moderated reviews of a property, newest first.
func (r *ReviewRepo) ListByProperty(ctx context.Context, propertyID uint64) ([]model.Review, error) {
	return r.list(ctx, reviewSelect+" WHERE rv.property_id=? AND rv.is_moderated=TRUE ORDER BY rv.created_at DESC", propertyID)
}

// ListByTenant returns the reviews written by a tenant.
func (r *ReviewRepo) ListByTenant(ctx context.Context, tenantID uint64) ([]model.Review, error) {
	return r.list(ctx, reviewSelect+" WHERE b.tenant_id=? ORDER BY rv.created_at DESC", tenantID)
}

// ListForModeration returns unmoderated reviews, oldest first.
func (r *ReviewRepo) ListForModeration(ctx context.Context) ([]model.Review, error) {
	return r.list(ctx, reviewSelect+" WHERE rv.is_moderated=FALSE ORDER BY rv.created_at ASC")
}

// ListAll returns every review for the admin.
func (r *ReviewRepo) ListAll(ctx context.Context) ([]model.Review, error) {
	return r.list(ctx, reviewSelect+" ORDER BY rv.created_at DESC")
}

// Stats aggregates the moderated reviews of a property.
func (r *ReviewRepo) Stats(ctx context.Context, propertyID uint64) (model.ReviewStats, error) {
	st := model.ReviewStats{Distribution: map[int]int{1: 0, 2: 0, 3: 0, 4: 0, 5: 0}}
	rows, err := r.db.QueryContext(ctx,
		"SELECT rating, COUNT(*) FROM reviews WHERE property_id=? AND is_moderated=TRUE GROUP BY rating", propertyID)
	if err != nil {
		return st, err
	}
	defer rows.Close()
	sum := 0
	for rows.Next() {
		var rating, n int
		if err := rows.Scan(&rating, &n); err != nil {
			return st, err
		}
		st.Distribution[rating] = n
		st.Count += n
		sum += rating * n
	}
	if err := rows.Err(); err != nil {
		return st, err
	}
	if st.Count > 0 {
		st.Average = float64(sum) / float64(st.Count)
	}
	return st, nil
}

func (r *ReviewRepo) list(ctx context.Context, q string, args ...any) ([]model.Review, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.Review, 0)
	for rows.Next() {
		rv, err := scanReview(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rv)
	}
	return out, rows.Err()
}

func scanReview(s rowScanner) (model.Review, error) {
	var rv model.Review
	err := s.Scan(&rv.ID, &rv.BookingID, &rv.PropertyID, &rv.Rating, &rv.Comment, &rv.IsModerated,
		&rv.CreatedAt, &rv.UpdatedAt, &rv.TenantID)
	return rv, err
}
