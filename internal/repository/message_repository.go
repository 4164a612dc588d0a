package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/iliyamo/atypikhouse/internal/model"
)

// MessageRepo persists direct messages between users.
type MessageRepo struct{ db *sql.DB }

func NewMessageRepo(db *sql.DB) *MessageRepo { return &MessageRepo{db: db} }

const messageSelect = `SELECT m.id, m.sender_id, m.receiver_id, m.subject, m.content, m.property_id,
	m.booking_id, m.is_read, m.sent_at FROM messages m`

// Create inserts a message and fills ID and SentAt.
func (r *MessageRepo) Create(ctx context.Context, m *model.Message) error {
	now := time.Now().UTC()
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO messages (sender_id, receiver_id, subject, content, property_id, booking_id, is_read, sent_at)
		 VALUES (?,?,?,?,?,?,FALSE,?)`,
		m.SenderID, m.ReceiverID, nullString(m.Subject), m.Content, nullUint(m.PropertyID), nullUint(m.BookingID), now)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	m.ID = uint64(id)
	m.SentAt = now
	m.IsRead = false
	return nil
}

func (r *MessageRepo) GetByID(ctx context.Context, id uint64) (model.Message, error) {
	return scanMessage(r.db.QueryRowContext(ctx, messageSelect+" WHERE m.id=?", id))
}

// ListForUser returns every message sent or received, newest first.
func (r *MessageRepo) ListForUser(ctx context.Context, userID uint64) ([]model.Message, error) {
	return r.list(ctx, messageSelect+" WHERE m.sender_id=? OR m.receiver_id=? ORDER BY m.sent_at DESC, m.id DESC", userID, userID)
}

// ListUnread returns unread messages received by the user.
func (r *MessageRepo) ListUnread(ctx context.Context, userID uint64) ([]model.Message, error) {
	return r.list(ctx, messageSelect+" WHERE m.receiver_id=? AND m.is_read=FALSE ORDER BY m.sent_at DESC, m.id DESC", userID)
}

// Thread returns the messages exchanged between two users in
// ascending order and marks those received by userID as read.
func (r *MessageRepo) Thread(ctx context.Context, userID, otherID uint64) ([]model.Message, error) {
	msgs, err := r.list(ctx, messageSelect+`
		WHERE (m.sender_id=? AND m.receiver_id=?) OR (m.sender_id=? AND m.receiver_id=?)
		ORDER BY m.sent_at ASC, m.id ASC`, userID, otherID, otherID, userID)
	if err != nil {
		return nil, err
	}
	if _, err := r.db.ExecContext(ctx,
		"UPDATE messages SET is_read=TRUE WHERE receiver_id=? AND sender_id=? AND is_read=FALSE", userID, otherID); err != nil {
		return nil, err
	}
	for i := range msgs {
		if msgs[i].ReceiverID == userID {
			msgs[i].IsRead = true
		}
	}
	return msgs, nil
}

// Conversations returns one entry per counterpart with the latest
// message and the number of unread messages from them, most recent
// conversation first.
func (r *MessageRepo) Conversations(ctx context.Context, userID uint64) ([]model.Conversation, error) {
	const q = `SELECT u.id, u.first_name, u.last_name,
			m.id, m.sender_id, m.receiver_id, m.subject, m.content, m.property_id, m.booking_id, m.is_read, m.sent_at,
			(SELECT COUNT(*) FROM messages x WHERE x.sender_id = u.id AND x.receiver_id = ? AND x.is_read = FALSE)
		FROM messages m
		JOIN users u ON u.id = IF(m.sender_id = ?, m.receiver_id, m.sender_id)
		WHERE m.id IN (
			SELECT MAX(id) FROM messages
			WHERE sender_id = ? OR receiver_id = ?
			GROUP BY IF(sender_id = ?, receiver_id, sender_id)
		)
		ORDER BY m.sent_at DESC, m.id DESC`
	rows, err := r.db.QueryContext(ctx, q, userID, userID, userID, userID, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.Conversation, 0)
	for rows.Next() {
		var (
			c              model.Conversation
			subject        sql.NullString
			propID, bookID sql.NullInt64
		)
		m := &c.LastMessage
		if err := rows.Scan(&c.UserID, &c.FirstName, &c.LastName,
			&m.ID, &m.SenderID, &m.ReceiverID, &subject, &m.Content, &propID, &bookID, &m.IsRead, &m.SentAt,
			&c.UnreadCount); err != nil {
			return nil, err
		}
		m.Subject = stringPtr(subject)
		m.PropertyID = uintPtr(propID)
		m.BookingID = uintPtr(bookID)
		out = append(out, c)
	}
	return out, rows.Err()
}

// MarkRead flags a message read.
func (r *MessageRepo) MarkRead(ctx context.Context, id uint64) error {
	_, err := r.db.ExecContext(ctx, "UPDATE messages SET is_read=TRUE WHERE id=?", id)
	return err
}

// ListByProperty returns messages attached to a property.
func (r *MessageRepo) ListByProperty(ctx context.Context, propertyID uint64) ([]model.Message, error) {
	return r.list(ctx, messageSelect+" WHERE m.property_id=? ORDER BY m.sent_at ASC, m.id ASC", propertyID)
}

// ListByBooking returns messages attached to a booking.
func (r *MessageRepo) ListByBooking(ctx context.Context, bookingID uint64) ([]model.Message, error) {
	return r.list(ctx, messageSelect+" WHERE m.booking_id=? ORDER BY m.sent_at ASC, m.id ASC", bookingID)
}

func (r *MessageRepo) list(ctx context.Context, q string, args ...any) ([]model.Message, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.Message, 0)
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func scanMessage(s rowScanner) (model.Message, error) {
	var (
		m              model.Message
		subject        sql.NullString
		propID, bookID sql.NullInt64
	)
	if err := s.Scan(&m.ID, &m.SenderID, &m.ReceiverID, &subject, &m.Content, &propID, &bookID, &m.IsRead, &m.SentAt); err != nil {
		return m, err
	}
	m.Subject = stringPtr(subject)
	m.PropertyID = uintPtr(propID)
	m.BookingID = uintPtr(bookID)
	return m, nil
}

func nullUint(p *uint64) sql.NullInt64 {
	if p == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*p), Valid: true}
}

func uintPtr(n sql.NullInt64) *uint64 {
	if !n.Valid {
		return nil
	}
	v := uint64(n.Int64)
	return &v
}
