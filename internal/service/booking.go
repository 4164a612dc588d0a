package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/iliyamo/atypikhouse/internal/model"
	"github.com/iliyamo/atypikhouse/internal/payment"
)

// AvailabilityStore reads availability windows.
type AvailabilityStore interface {
	FindCovering(ctx context.Context, propertyID uint64, start, end time.Time) ([]model.Availability, error)
	FindOverlapping(ctx context.Context, propertyID uint64, start, end time.Time) ([]model.Availability, error)
}

// BookingStore reads and writes bookings.  UpdateStatus must only
// apply while the row still holds from and return sql.ErrNoRows
// otherwise.
type BookingStore interface {
	FindOverlapping(ctx context.Context, propertyID uint64, start, end time.Time, statuses []string) ([]model.Booking, error)
	Create(ctx context.Context, b *model.Booking) error
	UpdateStatus(ctx context.Context, id uint64, from, to string, transactionID *string) error
}

// Stores groups the stores a unit of work operates on.
type Stores struct {
	Availability AvailabilityStore
	Bookings     BookingStore
}

// TxRunner runs fn while holding an exclusive lock on the property so
// the availability check and the insert of a booking are atomic.
type TxRunner interface {
	InPropertyLock(ctx context.Context, propertyID uint64, fn func(Stores) error) error
}

// Quote is the answer to an availability check.
type Quote struct {
	Available       bool   `json:"available"`
	TotalPriceCents *int64 `json:"total_price_cents"`
	Nights          int    `json:"nights"`
}

// BookingService owns availability, pricing and the booking state
// machine.
type BookingService struct {
	stores   Stores
	tx       TxRunner
	payments payment.Gateway
	log      logrus.FieldLogger
	now      func() time.Time
}

// NewBookingService wires the service.  stores serve reads outside a
// transaction.
func NewBookingService(stores Stores, tx TxRunner, payments payment.Gateway, log logrus.FieldLogger) *BookingService {
	return &BookingService{
		stores:   stores,
		tx:       tx,
		payments: payments,
		log:      log,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// IsAvailable reports whether a window fully covers [checkIn, checkOut)
// and no pending or confirmed booking overlaps it.
func (s *BookingService) IsAvailable(ctx context.Context, propertyID uint64, checkIn, checkOut time.Time) (bool, error) {
	return isAvailable(ctx, s.stores, propertyID, checkIn, checkOut)
}

// CalculateTotalPrice prices the stay using the windows that
// intersect it and the property's base price elsewhere.
func (s *BookingService) CalculateTotalPrice(ctx context.Context, p model.Property, checkIn, checkOut time.Time) (int64, error) {
	return totalPrice(ctx, s.stores, p, checkIn, checkOut)
}

// Quote checks availability and, when available, the price.  An
// inactive property is quoted as unavailable.
func (s *BookingService) Quote(ctx context.Context, p model.Property, checkIn, checkOut time.Time) (Quote, error) {
	checkIn, checkOut = model.DateOnly(checkIn), model.DateOnly(checkOut)
	q := Quote{Nights: model.Nights(checkIn, checkOut)}
	if !checkIn.Before(checkOut) {
		return q, ErrInvalidDates
	}
	if !p.IsActive {
		return q, nil
	}
	ok, err := s.IsAvailable(ctx, p.ID, checkIn, checkOut)
	if err != nil || !ok {
		return q, err
	}
	price, err := s.CalculateTotalPrice(ctx, p, checkIn, checkOut)
	if err != nil {
		return q, err
	}
	q.Available = true
	q.TotalPriceCents = &price
	return q, nil
}

// Create validates the request and persists a pending booking.  The
// availability check and the insert run under the property lock.
func (s *BookingService) Create(ctx context.Context, p model.Property, tenantID uint64, checkIn, checkOut time.Time) (model.Booking, error) {
	checkIn, checkOut = model.DateOnly(checkIn), model.DateOnly(checkOut)
	if !p.IsActive {
		return model.Booking{}, ErrPropertyInactive
	}
	if checkIn.Before(model.DateOnly(s.now())) {
		return model.Booking{}, fmt.Errorf("%w: check-in date cannot be in the past", ErrInvalidDates)
	}
	if !checkIn.Before(checkOut) {
		return model.Booking{}, fmt.Errorf("%w: check-in date must be before check-out date", ErrInvalidDates)
	}

	var b model.Booking
	err := s.tx.InPropertyLock(ctx, p.ID, func(st Stores) error {
		ok, err := isAvailable(ctx, st, p.ID, checkIn, checkOut)
		if err != nil {
			return err
		}
		if !ok {
			return ErrNotAvailable
		}
		price, err := totalPrice(ctx, st, p, checkIn, checkOut)
		if err != nil {
			return err
		}
		b = model.Booking{
			PropertyID:      p.ID,
			TenantID:        tenantID,
			CheckInDate:     checkIn,
			CheckOutDate:    checkOut,
			TotalPriceCents: price,
			Status:          model.BookingPending,
		}
		return st.Bookings.Create(ctx, &b)
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Booking{}, ErrNotFound
		}
		return model.Booking{}, err
	}
	return b, nil
}

// CreatePaymentIntent asks the gateway for an intent for b.
func (s *BookingService) CreatePaymentIntent(ctx context.Context, b model.Booking) (payment.Intent, error) {
	return s.payments.CreateIntent(ctx, b)
}

// ConfirmPayment verifies intentID with the gateway and confirms the
// booking with it as transaction id.
func (s *BookingService) ConfirmPayment(ctx context.Context, b model.Booking, intentID string) (model.Booking, error) {
	if b.Status != model.BookingPending {
		return b, ErrInvalidState
	}
	ok, err := s.payments.Verify(ctx, intentID)
	if err != nil {
		return b, fmt.Errorf("%w: %w", ErrPaymentFailed, err)
	}
	if !ok {
		return b, ErrPaymentFailed
	}
	return s.Confirm(ctx, b, intentID)
}

// Confirm moves a pending booking to confirmed.
func (s *BookingService) Confirm(ctx context.Context, b model.Booking, transactionID string) (model.Booking, error) {
	if b.Status != model.BookingPending {
		return b, ErrInvalidState
	}
	var tx *string
	if transactionID != "" {
		tx = &transactionID
	}
	if err := s.transition(ctx, &b, model.BookingConfirmed, tx); err != nil {
		return b, err
	}
	if tx != nil {
		b.TransactionID = tx
	}
	return b, nil
}

// Complete moves a confirmed booking whose check-out has passed to
// completed.
func (s *BookingService) Complete(ctx context.Context, b model.Booking) (model.Booking, error) {
	if !b.CanComplete(s.now()) {
		return b, ErrInvalidState
	}
	err := s.transition(ctx, &b, model.BookingCompleted, nil)
	return b, err
}

// Cancel cancels a pending or confirmed booking whose check-in is
// still ahead.  Paid bookings are refunded; a failed refund is logged
// and reported through the second return value.
func (s *BookingService) Cancel(ctx context.Context, b model.Booking) (model.Booking, bool, error) {
	if !b.CanCancel(s.now()) {
		return b, false, ErrInvalidState
	}
	if err := s.transition(ctx, &b, model.BookingCancelled, nil); err != nil {
		return b, false, err
	}
	if b.TransactionID == nil || *b.TransactionID == "" {
		return b, false, nil
	}
	ok, err := s.payments.Refund(ctx, *b.TransactionID)
	if err != nil || !ok {
		s.log.WithFields(logrus.Fields{"booking_id": b.ID, "transaction_id": *b.TransactionID}).
			WithError(err).Error("refund failed")
		return b, false, nil
	}
	return b, true, nil
}

func (s *BookingService) transition(ctx context.Context, b *model.Booking, to string, transactionID *string) error {
	if err := s.stores.Bookings.UpdateStatus(ctx, b.ID, b.Status, to, transactionID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrInvalidState
		}
		return err
	}
	b.Status = to
	b.UpdatedAt = s.now()
	return nil
}

func isAvailable(ctx context.Context, st Stores, propertyID uint64, checkIn, checkOut time.Time) (bool, error) {
	windows, err := st.Availability.FindCovering(ctx, propertyID, checkIn, checkOut)
	if err != nil {
		return false, err
	}
	if len(windows) == 0 {
		return false, nil
	}
	conflicts, err := st.Bookings.FindOverlapping(ctx, propertyID, checkIn, checkOut, model.ActiveBookingStatuses)
	if err != nil {
		return false, err
	}
	return len(conflicts) == 0, nil
}

func totalPrice(ctx context.Context, st Stores, p model.Property, checkIn, checkOut time.Time) (int64, error) {
	windows, err := st.Availability.FindOverlapping(ctx, p.ID, checkIn, checkOut)
	if err != nil {
		return 0, err
	}
	return TotalPrice(p.BasePriceCents, windows, checkIn, checkOut), nil
}
