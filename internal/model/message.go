package model

import "time"

// Message is a direct message between two users, optionally attached
// to a property or booking for context.
type Message struct {
	ID         uint64    `json:"id"`                    // messages.id
	SenderID   uint64    `json:"sender_id"`             // messages.sender_id
	ReceiverID uint64    `json:"receiver_id"`           // messages.receiver_id
	Subject    *string   `json:"subject,omitempty"`     // messages.subject
	Content    string    `json:"content"`               // messages.content
	PropertyID *uint64   `json:"property_id,omitempty"` // messages.property_id
	BookingID  *uint64   `json:"booking_id,omitempty"`  // messages.booking_id
	IsRead     bool      `json:"is_read"`               // messages.is_read
	SentAt     time.Time `json:"sent_at"`               // messages.sent_at
}

// Conversation is one entry of a user's inbox: the counterpart, the
// most recent message exchanged and how many of theirs are unread.
type Conversation struct {
	UserID      uint64  `json:"user_id"`
	FirstName   string  `json:"first_name"`
	LastName    string  `json:"last_name"`
	LastMessage Message `json:"last_message"`
	UnreadCount int     `json:"unread_count"`
}
