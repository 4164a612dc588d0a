package model

import "time"

// Property is an owned, bookable unit.  New properties are inactive
// until an admin approves them; only active properties appear in
// public search and accept bookings.
type Property struct {
	ID             uint64    `json:"id"`                 // properties.id
	OwnerID        uint64    `json:"owner_id"`           // properties.owner_id
	PropertyTypeID uint64    `json:"property_type_id"`   // properties.property_type_id
	Title          string    `json:"title"`              // properties.title
	Description    string    `json:"description"`        // properties.description
	BasePriceCents int64     `json:"base_price_cents"`   // properties.base_price_cents
	Capacity       int       `json:"capacity"`           // properties.capacity
	Address        string    `json:"address"`            // properties.address
	Latitude       *float64  `json:"latitude,omitempty"` // properties.latitude
	Longitude      *float64  `json:"longitude,omitempty"`
	IsActive       bool      `json:"is_active"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`

	// Populated by detail queries only.
	Images        []PropertyImage `json:"images,omitempty"`
	Amenities     []Amenity       `json:"amenities,omitempty"`
	AverageRating *float64        `json:"average_rating,omitempty"`
}

// PropertyImage is an uploaded picture attached to a property.  At
// most one image per property is featured.
type PropertyImage struct {
	ID         uint64 `json:"id"`
	PropertyID uint64 `json:"property_id"`
	Path       string `json:"path"`
	Position   int    `json:"position"`
	IsFeatured bool   `json:"is_featured"`
}

// PropertyType is reference data (cabin, treehouse, yurt, ...).
type PropertyType struct {
	ID          uint64  `json:"id"`
	Name        string  `json:"name"`
	Description *string `json:"description,omitempty"`
	Icon        *string `json:"icon,omitempty"`
}

// Amenity is reference data linked to properties many-to-many.
type Amenity struct {
	ID          uint64  `json:"id"`
	Name        string  `json:"name"`
	Icon        *string `json:"icon,omitempty"`
	Description *string `json:"description,omitempty"`
}
