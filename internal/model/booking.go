package model

import "time"

// Booking status values stored in bookings.status.
const (
	BookingPending   = "pending"
	BookingConfirmed = "confirmed"
	BookingCancelled = "cancelled"
	BookingCompleted = "completed"
)

// ActiveBookingStatuses are the statuses that block a date range.
var ActiveBookingStatuses = []string{BookingPending, BookingConfirmed}

// Booking represents a tenant's reservation of a property for the
// nights [CheckInDate, CheckOutDate).  Prices are in cents.
//
// Fields:
//
//	ID              – primary key identifier.
//	PropertyID      – booked property.
//	TenantID        – user who made the booking.
//	CheckInDate     – first night (UTC midnight).
//	CheckOutDate    – departure date, strictly after CheckInDate.
//	TotalPriceCents – price computed at creation time.
//	Status          – pending, confirmed, cancelled or completed.
//	TransactionID   – payment reference, set on confirmation.
type Booking struct {
	ID              uint64    `json:"id"`                       // bookings.id
	PropertyID      uint64    `json:"property_id"`              // bookings.property_id
	TenantID        uint64    `json:"tenant_id"`                // bookings.tenant_id
	CheckInDate     time.Time `json:"check_in_date"`            // bookings.check_in_date
	CheckOutDate    time.Time `json:"check_out_date"`           // bookings.check_out_date
	TotalPriceCents int64     `json:"total_price_cents"`        // bookings.total_price_cents
	Status          string    `json:"status"`                   // bookings.status
	TransactionID   *string   `json:"transaction_id,omitempty"` // bookings.transaction_id (nullable)
	CreatedAt       time.Time `json:"created_at"`               // bookings.created_at
	UpdatedAt       time.Time `json:"updated_at"`               // bookings.updated_at

	// Set by queries that join the review table.
	HasReview bool `json:"has_review"`
}

// Nights returns the number of nights between check-in and check-out.
func (b Booking) Nights() int { return Nights(b.CheckInDate, b.CheckOutDate) }

// CanCancel reports whether the booking may still be cancelled at now:
// it must be pending or confirmed and the check-in must lie strictly
// in the future.
func (b Booking) CanCancel(now time.Time) bool {
	if b.Status != BookingPending && b.Status != BookingConfirmed {
		return false
	}
	return b.CheckInDate.After(now)
}

// CanComplete reports whether a confirmed stay has ended at now.
func (b Booking) CanComplete(now time.Time) bool {
	return b.Status == BookingConfirmed && !b.CheckOutDate.After(now)
}

// CanReview reports whether the tenant may still leave a review.
func (b Booking) CanReview(now time.Time) bool {
	return b.Status == BookingCompleted && b.CheckOutDate.Before(now) && !b.HasReview
}

// Nights counts whole calendar nights between two dates in UTC.
// Non-positive ranges yield 0.
func Nights(start, end time.Time) int {
	s := DateOnly(start)
	e := DateOnly(end)
	if !e.After(s) {
		return 0
	}
	return int(e.Sub(s).Hours() / 24)
}

// DateOnly truncates t to midnight UTC of its calendar date.
func DateOnly(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DateLayout is the wire format of booking and availability dates.
const DateLayout = "2006-01-02"

// ParseDate parses a YYYY-MM-DD value as UTC midnight.
func ParseDate(s string) (time.Time, error) {
	return time.ParseInLocation(DateLayout, s, time.UTC)
}
