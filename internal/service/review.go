package service

import (
	"time"

	"github.com/iliyamo/atypikhouse/internal/model"
)

// CheckReviewable returns nil when tenantID may review b at now.
func CheckReviewable(b model.Booking, tenantID uint64, now time.Time) error {
	if b.TenantID != tenantID {
		return ErrForbidden
	}
	if !b.CanReview(now) {
		return ErrNotReviewable
	}
	return nil
}

// CheckReviewEditable returns nil when the caller may edit rv at now.
// Admins may edit any review at any time; authors only their own and
// only within model.ReviewEditWindow.
func CheckReviewEditable(rv model.Review, callerID uint64, isAdmin bool, now time.Time) error {
	if isAdmin {
		return nil
	}
	if rv.TenantID != callerID {
		return ErrForbidden
	}
	if !rv.Editable(now) {
		return ErrReviewWindowClosed
	}
	return nil
}
