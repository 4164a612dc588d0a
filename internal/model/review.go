package model

import "time"

// ReviewEditWindow is how long an author may edit their review.
const ReviewEditWindow = 24 * time.Hour

// Review is a tenant's rating of a completed stay.  One review per
// booking; only moderated reviews are shown publicly.
type Review struct {
	ID          uint64    `json:"id"`           // reviews.id
	BookingID   uint64    `json:"booking_id"`   // reviews.booking_id (unique)
	PropertyID  uint64    `json:"property_id"`  // reviews.property_id
	Rating      int       `json:"rating"`       // reviews.rating (1..5)
	Comment     string    `json:"comment"`      // reviews.comment
	IsModerated bool      `json:"is_moderated"` // reviews.is_moderated
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	// Joined from bookings for ownership checks and listings.
	TenantID uint64 `json:"tenant_id"`
}

// Editable reports whether the author may still edit at now.
func (r Review) Editable(now time.Time) bool {
	return now.Sub(r.CreatedAt) <= ReviewEditWindow
}

// ReviewStats summarises the moderated reviews of a property.
type ReviewStats struct {
	Average      float64     `json:"average"`
	Count        int         `json:"count"`
	Distribution map[int]int `json:"distribution"`
}
