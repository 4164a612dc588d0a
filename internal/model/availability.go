package model

import "time"

// Availability is a bookable date range [StartDate, EndDate) of a
// property, optionally priced at a special nightly rate that
// overrides the property's base price.  Windows of the same property
// never overlap; the conflict check runs when a window is created.
//
// Fields:
//
//	ID                – primary key identifier.
//	PropertyID        – property the window belongs to.
//	StartDate         – first bookable night (inclusive).
//	EndDate           – end of the window (exclusive), after StartDate.
//	SpecialPriceCents – nightly override in cents, nil means base price.
type Availability struct {
	ID                uint64    `json:"id"`                            // availabilities.id
	PropertyID        uint64    `json:"property_id"`                   // availabilities.property_id
	StartDate         time.Time `json:"start_date"`                    // availabilities.start_date
	EndDate           time.Time `json:"end_date"`                      // availabilities.end_date
	SpecialPriceCents *int64    `json:"special_price_cents,omitempty"` // availabilities.special_price_cents (nullable)
}

// Covers reports whether the window fully contains [start, end).
func (a Availability) Covers(start, end time.Time) bool {
	return !a.StartDate.After(start) && !a.EndDate.Before(end)
}

// NightlyRate returns the special price when set, otherwise base.
func (a Availability) NightlyRate(baseCents int64) int64 {
	if a.SpecialPriceCents != nil {
		return *a.SpecialPriceCents
	}
	return baseCents
}

// Overlaps is the open-interval test used for both bookings and
// availability windows: startA < endB AND endA > startB.
func Overlaps(startA, endA, startB, endB time.Time) bool {
	return startA.Before(endB) && endA.After(startB)
}
