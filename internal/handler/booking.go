package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/atypikhouse/internal/model"
	"github.com/iliyamo/atypikhouse/internal/payment"
	"github.com/iliyamo/atypikhouse/internal/queue"
	"github.com/iliyamo/atypikhouse/internal/repository"
	"github.com/iliyamo/atypikhouse/internal/service"
)

// BookingHandler exposes the booking lifecycle.  Rules live in
// service.BookingService; this layer resolves the caller's rights and
// publishes the resulting events.
type BookingHandler struct {
	Service  *service.BookingService // availability, pricing and state changes
	Bookings *repository.BookingRepo // booking reads with property title and owner
	Props    *repository.PropertyRepo
	Users    *repository.UserRepo // names and emails for event payloads
	Events   EventPublisher       // booking.* events; may be nil
	Log      logrus.FieldLogger
}

type createBookingReq struct {
	PropertyID   uint64 `json:"property_id" validate:"required"`
	CheckInDate  string `json:"check_in_date" validate:"required,datetime=2006-01-02"`
	CheckOutDate string `json:"check_out_date" validate:"required,datetime=2006-01-02"`
}

type confirmPaymentReq struct {
	PaymentIntentID string `json:"payment_intent_id" validate:"required"`
}

// Create handles POST /bookings.  The payment intent is best effort: a
// gateway failure leaves the pending booking and a null intent the
// client can retry through confirm-payment.
func (h *BookingHandler) Create(c echo.Context) error {
	uid, _, ok := caller(c)
	if !ok {
		return unauthorized(c)
	}
	var req createBookingReq
	if ok, err := bindAndValidate(c, &req); !ok {
		return err
	}
	// the validator already checked the YYYY-MM-DD layout
	checkIn, _ := model.ParseDate(req.CheckInDate)
	checkOut, _ := model.ParseDate(req.CheckOutDate)

	ctx, cancel := requestCtx(c)
	defer cancel()

	// unknown property is a 404 through fail()
	p, err := h.Props.GetByID(ctx, req.PropertyID)
	if err != nil {
		return fail(c, h.Log, err, "query failed")
	}
	// date rules, availability and price are checked under the property lock
	b, err := h.Service.Create(ctx, p, uid, checkIn, checkOut)
	if err != nil {
		return fail(c, h.Log, err, "create booking failed")
	}

	var intent *payment.Intent
	if in, err := h.Service.CreatePaymentIntent(ctx, b); err != nil {
		h.Log.WithError(err).WithField("booking_id", b.ID).Warn("create payment intent failed")
	} else {
		intent = &in
	}

	d := repository.BookingDetail{Booking: b, PropertyTitle: p.Title, OwnerID: p.OwnerID}
	publish(h.Events, queue.BookingCreated, h.event(ctx, d, false)) // booking log only
	return c.JSON(http.StatusCreated, echo.Map{"booking": d, "payment_intent": intent})
}

// Get handles GET /bookings/:id.
func (h *BookingHandler) Get(c echo.Context) error {
	d, err := h.load(c)
	if err != nil {
		return fail(c, h.Log, err, "query failed")
	}
	if !h.canView(c, d) {
		return forbidden(c)
	}
	return c.JSON(http.StatusOK, d)
}

// ConfirmPayment handles POST /bookings/:id/confirm-payment.
func (h *BookingHandler) ConfirmPayment(c echo.Context) error {
	var req confirmPaymentReq
	if ok, err := bindAndValidate(c, &req); !ok {
		return err
	}
	d, err := h.load(c)
	if err != nil {
		return fail(c, h.Log, err, "query failed")
	}
	// only the tenant who booked (or an admin) pays
	uid, admin, _ := caller(c)
	if d.TenantID != uid && !admin {
		return forbidden(c)
	}

	ctx, cancel := requestCtx(c)
	defer cancel()
	// verify with the gateway, then pending -> confirmed
	b, err := h.Service.ConfirmPayment(ctx, d.Booking, req.PaymentIntentID)
	if err != nil {
		return fail(c, h.Log, err, "confirm payment failed")
	}
	d.Booking = b
	publish(h.Events, queue.BookingConfirmed, h.event(ctx, d, false))
	return c.JSON(http.StatusOK, d)
}

// Cancel handles PUT /bookings/:id/cancel.
func (h *BookingHandler) Cancel(c echo.Context) error {
	d, err := h.load(c)
	if err != nil {
		return fail(c, h.Log, err, "query failed")
	}
	if !h.canView(c, d) {
		return forbidden(c)
	}

	ctx, cancel := requestCtx(c)
	defer cancel()
	// refunded is false when there was nothing to refund or the refund failed
	b, refunded, err := h.Service.Cancel(ctx, d.Booking)
	if err != nil {
		return fail(c, h.Log, err, "cancel booking failed")
	}
	d.Booking = b
	publish(h.Events, queue.BookingCancelled, h.event(ctx, d, refunded))
	return c.JSON(http.StatusOK, echo.Map{"booking": d, "refunded": refunded})
}

// Complete handles PUT /bookings/:id/complete (property owner or admin).
func (h *BookingHandler) Complete(c echo.Context) error {
	d, err := h.load(c)
	if err != nil {
		return fail(c, h.Log, err, "query failed")
	}
	uid, admin, _ := caller(c)
	if d.OwnerID != uid && !admin {
		return forbidden(c)
	}

	ctx, cancel := requestCtx(c)
	defer cancel()
	b, err := h.Service.Complete(ctx, d.Booking)
	if err != nil {
		return fail(c, h.Log, err, "complete booking failed")
	}
	d.Booking = b
	publish(h.Events, queue.BookingCompleted, h.event(ctx, d, false))
	return c.JSON(http.StatusOK, d)
}

// UserBookings handles GET /user/bookings.
func (h *BookingHandler) UserBookings(c echo.Context) error {
	uid, _, ok := caller(c)
	if !ok {
		return unauthorized(c)
	}
	ctx, cancel := requestCtx(c)
	defer cancel()
	list, err := h.Bookings.ListByTenant(ctx, uid)
	if err != nil {
		return fail(c, h.Log, err, "query failed")
	}
	return c.JSON(http.StatusOK, list)
}

// OwnerBookings handles GET /owner/bookings.
func (h *BookingHandler) OwnerBookings(c echo.Context) error {
	uid, _, ok := caller(c)
	if !ok {
		return unauthorized(c)
	}
	ctx, cancel := requestCtx(c)
	defer cancel()
	list, err := h.Bookings.ListByOwner(ctx, uid)
	if err != nil {
		return fail(c, h.Log, err, "query failed")
	}
	return c.JSON(http.StatusOK, list)
}

func (h *BookingHandler) load(c echo.Context) (repository.BookingDetail, error) {
	id, ok := paramID(c, "id")
	if !ok {
		return repository.BookingDetail{}, service.ErrNotFound
	}
	ctx, cancel := requestCtx(c)
	defer cancel()
	return h.Bookings.GetByID(ctx, id)
}

// canView: the tenant, the property owner and admins.
func (h *BookingHandler) canView(c echo.Context, d repository.BookingDetail) bool {
	uid, admin, ok := caller(c)
	return ok && (admin || d.TenantID == uid || d.OwnerID == uid)
}

// event builds the notification payload.  Missing user rows only
// leave the corresponding email blank.
func (h *BookingHandler) event(ctx context.Context, d repository.BookingDetail, refunded bool) queue.BookingEvent {
	ev := queue.BookingEvent{
		BookingID:       d.ID,
		PropertyID:      d.PropertyID,
		PropertyTitle:   d.PropertyTitle,
		TenantID:        d.TenantID,
		CheckIn:         d.CheckInDate.Format(model.DateLayout),
		CheckOut:        d.CheckOutDate.Format(model.DateLayout),
		Nights:          d.Nights(),
		TotalPriceCents: d.TotalPriceCents,
		Status:          d.Status,
		Refunded:        refunded,
	}
	if d.TransactionID != nil {
		ev.TransactionID = *d.TransactionID
	}
	if u, err := h.Users.GetByID(ctx, d.TenantID); err == nil {
		ev.TenantEmail, ev.TenantName = u.Email, u.FullName()
	} else {
		h.Log.WithError(err).WithField("booking_id", d.ID).Warn("load tenant for event failed")
	}
	if u, err := h.Users.GetByID(ctx, d.OwnerID); err == nil {
		ev.OwnerEmail, ev.OwnerName = u.Email, u.FullName()
	} else {
		h.Log.WithError(err).WithField("booking_id", d.ID).Warn("load owner for event failed")
	}
	return ev
}
