package handler

import (
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/atypikhouse/internal/model"
	"github.com/iliyamo/atypikhouse/internal/queue"
	"github.com/iliyamo/atypikhouse/internal/repository"
)

// MessageHandler serves direct messages between users.
type MessageHandler struct {
	Messages *repository.MessageRepo
	Users    *repository.UserRepo     // receiver lookup and email payloads
	Props    *repository.PropertyRepo // owner checks for property threads
	Bookings *repository.BookingRepo  // party checks for booking threads
	Events   EventPublisher           // message.sent; may be nil
	Log      logrus.FieldLogger
}

type sendMessageReq struct {
	ReceiverID uint64  `json:"receiver_id" validate:"required"`
	Subject    *string `json:"subject" validate:"omitempty,max=255"`
	Content    string  `json:"content" validate:"required,min=1,max=2000"`
	PropertyID *uint64 `json:"property_id"`
	BookingID  *uint64 `json:"booking_id"`
}

const previewLen = 100

// List handles GET /messages.
func (h *MessageHandler) List(c echo.Context) error {
	uid, _, ok := caller(c)
	if !ok {
		return unauthorized(c)
	}
	ctx, cancel := requestCtx(c)
	defer cancel()
	list, err := h.Messages.ListForUser(ctx, uid)
	if err != nil {
		return fail(c, h.Log, err, "query failed")
	}
	return c.JSON(http.StatusOK, list)
}

// Unread handles GET /messages/unread.
func (h *MessageHandler) Unread(c echo.Context) error {
	uid, _, ok := caller(c)
	if !ok {
		return unauthorized(c)
	}
	ctx, cancel := requestCtx(c)
	defer cancel()
	list, err := h.Messages.ListUnread(ctx, uid)
	if err != nil {
		return fail(c, h.Log, err, "query failed")
	}
	return c.JSON(http.StatusOK, list)
}

// Conversations handles GET /messages/conversations.
func (h *MessageHandler) Conversations(c echo.Context) error {
	uid, _, ok := caller(c)
	if !ok {
		return unauthorized(c)
	}
	ctx, cancel := requestCtx(c)
	defer cancel()
	list, err := h.Messages.Conversations(ctx, uid)
	if err != nil {
		return fail(c, h.Log, err, "query failed")
	}
	return c.JSON(http.StatusOK, list)
}

// Thread handles GET /messages/conversation/:userId and marks the
// caller's received messages in it as read.
func (h *MessageHandler) Thread(c echo.Context) error {
	uid, _, ok := caller(c)
	if !ok {
		return unauthorized(c)
	}
	other, ok := paramID(c, "userId")
	if !ok {
		return badID(c, "user")
	}
	ctx, cancel := requestCtx(c)
	defer cancel()
	list, err := h.Messages.Thread(ctx, uid, other)
	if err != nil {
		return fail(c, h.Log, err, "query failed")
	}
	return c.JSON(http.StatusOK, list)
}

// Send handles POST /messages.
func (h *MessageHandler) Send(c echo.Context) error {
	uid, _, ok := caller(c)
	if !ok {
		return unauthorized(c)
	}
	var req sendMessageReq
	if ok, err := bindAndValidate(c, &req); !ok {
		return err
	}
	if req.ReceiverID == uid {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "cannot send a message to yourself"})
	}
	ctx, cancel := requestCtx(c)
	defer cancel()

	receiver, err := h.Users.GetByID(ctx, req.ReceiverID)
	if err != nil {
		return fail(c, h.Log, err, "query failed")
	}
	sender, err := h.Users.GetByID(ctx, uid)
	if err != nil {
		return fail(c, h.Log, err, "query failed")
	}
	m := model.Message{
		SenderID:   uid,
		ReceiverID: req.ReceiverID,
		Subject:    req.Subject,
		Content:    strings.TrimSpace(req.Content),
		PropertyID: req.PropertyID,
		BookingID:  req.BookingID,
	}
	if err := h.Messages.Create(ctx, &m); err != nil {
		return fail(c, h.Log, err, "send message failed")
	}

	ev := queue.MessageSentEvent{
		MessageID:     m.ID,
		SenderName:    sender.FullName(),
		ReceiverEmail: receiver.Email,
		ReceiverName:  receiver.FullName(),
		Preview:       preview(m.Content),
	}
	if m.Subject != nil {
		ev.Subject = *m.Subject
	}
	publish(h.Events, queue.MessageSent, ev)
	return c.JSON(http.StatusCreated, m)
}

// MarkRead handles PUT /messages/:id/read.  Only the receiver may.
func (h *MessageHandler) MarkRead(c echo.Context) error {
	uid, _, ok := caller(c)
	if !ok {
		return unauthorized(c)
	}
	id, ok := paramID(c, "id")
	if !ok {
		return badID(c, "message")
	}
	ctx, cancel := requestCtx(c)
	defer cancel()
	m, err := h.Messages.GetByID(ctx, id)
	if err != nil {
		return fail(c, h.Log, err, "query failed")
	}
	if m.ReceiverID != uid {
		return forbidden(c)
	}
	if err := h.Messages.MarkRead(ctx, id); err != nil {
		return fail(c, h.Log, err, "update message failed")
	}
	m.IsRead = true
	return c.JSON(http.StatusOK, m)
}

// ByProperty handles GET /messages/property/:propertyId (owner or admin).
func (h *MessageHandler) ByProperty(c echo.Context) error {
	uid, admin, ok := caller(c)
	if !ok {
		return unauthorized(c)
	}
	pid, ok := paramID(c, "propertyId")
	if !ok {
		return badID(c, "property")
	}
	ctx, cancel := requestCtx(c)
	defer cancel()
	owner, err := h.Props.GetOwnerID(ctx, pid)
	if err != nil {
		return fail(c, h.Log, err, "query failed")
	}
	if owner != uid && !admin {
		return forbidden(c)
	}
	list, err := h.Messages.ListByProperty(ctx, pid)
	if err != nil {
		return fail(c, h.Log, err, "query failed")
	}
	return c.JSON(http.StatusOK, list)
}

// ByBooking handles GET /messages/booking/:bookingId (tenant, owner or admin).
func (h *MessageHandler) ByBooking(c echo.Context) error {
	uid, admin, ok := caller(c)
	if !ok {
		return unauthorized(c)
	}
	bid, ok := paramID(c, "bookingId")
	if !ok {
		return badID(c, "booking")
	}
	ctx, cancel := requestCtx(c)
	defer cancel()
	d, err := h.Bookings.GetByID(ctx, bid)
	if err != nil {
		return fail(c, h.Log, err, "query failed")
	}
	if d.TenantID != uid && d.OwnerID != uid && !admin {
		return forbidden(c)
	}
	list, err := h.Messages.ListByBooking(ctx, bid)
	if err != nil {
		return fail(c, h.Log, err, "query failed")
	}
	return c.JSON(http.StatusOK, list)
}

// preview cuts s to previewLen runes.
func preview(s string) string {
	if utf8.RuneCountInString(s) <= previewLen {
		return s
	}
	return string([]rune(s)[:previewLen]) + "…"
}
