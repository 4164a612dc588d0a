// Package service holds the booking rules: availability, pricing, the
// booking state machine and the review rules.  Handlers call into it
// and map its sentinel errors onto HTTP status codes.
package service

import "errors"

var (
	// ErrNotAvailable: no covering window or an overlapping active booking (409).
	ErrNotAvailable = errors.New("property is not available for the requested dates")
	// ErrInvalidDates: check-in in the past or not before check-out (400).
	ErrInvalidDates = errors.New("invalid booking dates")
	// ErrPropertyInactive: the property has not been approved (400).
	ErrPropertyInactive = errors.New("property is not available for booking")
	// ErrInvalidState: the requested status transition is not allowed (400).
	ErrInvalidState = errors.New("booking status does not allow this operation")
	ErrForbidden    = errors.New("forbidden")
	ErrNotFound     = errors.New("not found")
	// ErrPaymentFailed: the gateway did not confirm the payment (400).
	ErrPaymentFailed = errors.New("payment verification failed")
	// ErrReviewWindowClosed: the 24h edit window has passed (403).
	ErrReviewWindowClosed = errors.New("review can no longer be edited")
	// ErrNotReviewable: booking not completed, not checked out or already reviewed (400).
	ErrNotReviewable = errors.New("booking cannot be reviewed")
)
