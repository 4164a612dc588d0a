// Package queue defines the domain events exchanged over RabbitMQ, the
// publisher used by handlers and the background consumer that turns
// events into notifications.
package queue

import (
	"encoding/json"
	"time"
)

// Event types.
const (
	UserRegistered    = "user.registered"
	BookingCreated    = "booking.created"
	BookingConfirmed  = "booking.confirmed"
	BookingCancelled  = "booking.cancelled"
	BookingCompleted  = "booking.completed"
	MessageSent       = "message.sent"
	PropertyModerated = "property.moderated"
	OwnerNotice       = "owner.notice"
)

// Envelope wraps every event on the wire.
type Envelope struct {
	Type       string          `json:"type"`
	OccurredAt time.Time       `json:"occurred_at"`
	Payload    json.RawMessage `json:"payload"`
}

// Decode unmarshals the payload into v.
func (e Envelope) Decode(v any) error { return json.Unmarshal(e.Payload, v) }

// UserRegisteredEvent is published after a tenant or owner signs up.
type UserRegisteredEvent struct {
	UserID    uint64 `json:"user_id"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	Role      string `json:"role"`
}

// BookingEvent carries enough information for downstream consumers to
// log and notify both parties without querying the primary database.
type BookingEvent struct {
	BookingID       uint64 `json:"booking_id"`
	PropertyID      uint64 `json:"property_id"`
	PropertyTitle   string `json:"property_title"`
	TenantID        uint64 `json:"tenant_id"`
	TenantEmail     string `json:"tenant_email"`
	TenantName      string `json:"tenant_name"`
	OwnerEmail      string `json:"owner_email"`
	OwnerName       string `json:"owner_name"`
	CheckIn         string `json:"check_in"`
	CheckOut        string `json:"check_out"`
	Nights          int    `json:"nights"`
	TotalPriceCents int64  `json:"total_price_cents"`
	Status          string `json:"status"`
	TransactionID   string `json:"transaction_id,omitempty"`
	Refunded        bool   `json:"refunded,omitempty"`
}

// MessageSentEvent notifies the receiver of a new message.
type MessageSentEvent struct {
	MessageID     uint64 `json:"message_id"`
	SenderName    string `json:"sender_name"`
	ReceiverEmail string `json:"receiver_email"`
	ReceiverName  string `json:"receiver_name"`
	Subject       string `json:"subject,omitempty"`
	Preview       string `json:"preview"`
}

// PropertyModeratedEvent is published when an admin approves or
// rejects a property.
type PropertyModeratedEvent struct {
	PropertyID    uint64 `json:"property_id"`
	PropertyTitle string `json:"property_title"`
	OwnerEmail    string `json:"owner_email"`
	OwnerName     string `json:"owner_name"`
	Approved      bool   `json:"approved"`
}

// OwnerNoticeEvent is a broadcast from the admin to one owner.
type OwnerNoticeEvent struct {
	OwnerEmail string `json:"owner_email"`
	OwnerName  string `json:"owner_name"`
	Message    string `json:"message"`
}
