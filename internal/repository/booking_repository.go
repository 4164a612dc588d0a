package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/iliyamo/atypikhouse/internal/model"
)

// BookingRepo provides persistence for bookings.  Like the
// availability repo it accepts a pool or a transaction.
type BookingRepo struct {
	db DBTX
}

// NewBookingRepo returns a new BookingRepo bound to db.
func NewBookingRepo(db DBTX) *BookingRepo { return &BookingRepo{db: db} }

const bookingColumns = `b.id, b.property_id, b.tenant_id, b.check_in_date, b.check_out_date,
	b.total_price_cents, b.status, b.transaction_id, b.created_at, b.updated_at,
	EXISTS(SELECT 1 FROM reviews rv WHERE rv.booking_id = b.id)`

// BookingDetail is a booking plus the fields listings display.
type BookingDetail struct {
	model.Booking
	PropertyTitle string `json:"property_title"`
	OwnerID       uint64 `json:"owner_id"`
	TenantEmail   string `json:"tenant_email,omitempty"`
}

// FindOverlapping returns bookings of the property in one of statuses
// whose stay intersects [start, end):
// existing.check_in < end AND existing.check_out > start.
func (r *BookingRepo) FindOverlapping(ctx context.Context, propertyID uint64, start, end time.Time, statuses []string) ([]model.Booking, error) {
	if len(statuses) == 0 {
		return []model.Booking{}, nil
	}
	args := []any{propertyID, end, start}
	for _, s := range statuses {
		args = append(args, s)
	}
	q := "SELECT " + bookingColumns + ` FROM bookings b
		WHERE b.property_id=? AND b.check_in_date<? AND b.check_out_date>?
		AND b.status IN (` + placeholders(len(statuses)) + `)
		ORDER BY b.check_in_date`
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.Booking, 0)
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// Create inserts a booking and populates its ID and timestamps.
func (r *BookingRepo) Create(ctx context.Context, b *model.Booking) error {
	now := time.Now().UTC()
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO bookings (property_id, tenant_id, check_in_date, check_out_date, total_price_cents, status, created_at, updated_at)
		 VALUES (?,?,?,?,?,?,?,?)`,
		b.PropertyID, b.TenantID, b.CheckInDate, b.CheckOutDate, b.TotalPriceCents, b.Status, now, now)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	b.ID = uint64(id)
	b.CreatedAt = now
	b.UpdatedAt = now
	return nil
}

// UpdateStatus moves a booking from one status to another.  The update
// only applies while the row still holds from; otherwise sql.ErrNoRows
// is returned.  A non-nil transactionID is stored alongside.
func (r *BookingRepo) UpdateStatus(ctx context.Context, id uint64, from, to string, transactionID *string) error {
	q := "UPDATE bookings SET status=?, updated_at=UTC_TIMESTAMP() WHERE id=? AND status=?"
	args := []any{to, id, from}
	if transactionID != nil {
		q = "UPDATE bookings SET status=?, transaction_id=?, updated_at=UTC_TIMESTAMP() WHERE id=? AND status=?"
		args = []any{to, *transactionID, id, from}
	}
	res, err := r.db.ExecContext(ctx, q, args...)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// GetByID returns a booking with its property title and owner.
func (r *BookingRepo) GetByID(ctx context.Context, id uint64) (BookingDetail, error) {
	q := "SELECT " + bookingColumns + `, p.title, p.owner_id, u.email
		FROM bookings b
		JOIN properties p ON p.id = b.property_id
		JOIN users u ON u.id = b.tenant_id
		WHERE b.id=?`
	return scanBookingDetail(r.db.QueryRowContext(ctx, q, id))
}

// ListByTenant returns the tenant's bookings, newest first.
func (r *BookingRepo) ListByTenant(ctx context.Context, tenantID uint64) ([]BookingDetail, error) {
	return r.listDetails(ctx, "b.tenant_id=?", tenantID)
}

// ListByOwner returns bookings of every property of the owner.
func (r *BookingRepo) ListByOwner(ctx context.Context, ownerID uint64) ([]BookingDetail, error) {
	return r.listDetails(ctx, "p.owner_id=?", ownerID)
}

// ListByProperty returns the bookings of one property.
func (r *BookingRepo) ListByProperty(ctx context.Context, propertyID uint64) ([]BookingDetail, error) {
	return r.listDetails(ctx, "b.property_id=?", propertyID)
}

func (r *BookingRepo) listDetails(ctx context.Context, cond string, args ...any) ([]BookingDetail, error) {
	q := "SELECT " + bookingColumns + `, p.title, p.owner_id, u.email
		FROM bookings b
		JOIN properties p ON p.id = b.property_id
		JOIN users u ON u.id = b.tenant_id
		WHERE ` + cond + `
		ORDER BY b.created_at DESC, b.id DESC`
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]BookingDetail, 0)
	for rows.Next() {
		d, err := scanBookingDetail(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func scanBooking(s rowScanner) (model.Booking, error) {
	var (
		b  model.Booking
		tx sql.NullString
	)
	err := s.Scan(&b.ID, &b.PropertyID, &b.TenantID, &b.CheckInDate, &b.CheckOutDate,
		&b.TotalPriceCents, &b.Status, &tx, &b.CreatedAt, &b.UpdatedAt, &b.HasReview)
	if err != nil {
		return b, err
	}
	b.TransactionID = stringPtr(tx)
	b.CheckInDate = model.DateOnly(b.CheckInDate)
	b.CheckOutDate = model.DateOnly(b.CheckOutDate)
	return b, nil
}

func scanBookingDetail(s rowScanner) (BookingDetail, error) {
	var (
		d  BookingDetail
		tx sql.NullString
	)
	b := &d.Booking
	err := s.Scan(&b.ID, &b.PropertyID, &b.TenantID, &b.CheckInDate, &b.CheckOutDate,
		&b.TotalPriceCents, &b.Status, &tx, &b.CreatedAt, &b.UpdatedAt, &b.HasReview,
		&d.PropertyTitle, &d.OwnerID, &d.TenantEmail)
	if err != nil {
		return d, err
	}
	b.TransactionID = stringPtr(tx)
	b.CheckInDate = model.DateOnly(b.CheckInDate)
	b.CheckOutDate = model.DateOnly(b.CheckOutDate)
	return d, nil
}
