package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func date(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := ParseDate(s)
	require.NoError(t, err)
	return d
}

func TestNights(t *testing.T) {
	require.Equal(t, 3, Nights(date(t, "2026-07-01"), date(t, "2026-07-04")))
	require.Equal(t, 0, Nights(date(t, "2026-07-04"), date(t, "2026-07-01")))
	require.Equal(t, 0, Nights(date(t, "2026-07-04"), date(t, "2026-07-04")))
	// DST-independent because everything is in UTC.
	require.Equal(t, 31, Nights(date(t, "2026-03-01"), date(t, "2026-04-01")))
}

func TestBookingCanCancel(t *testing.T) {
	now := time.Date(2026, 7, 1, 12, 0, 0, 0, time.UTC)
	b := Booking{Status: BookingConfirmed, CheckInDate: date(t, "2026-07-05"), CheckOutDate: date(t, "2026-07-08")}
	require.True(t, b.CanCancel(now))

	b.Status = BookingPending
	require.True(t, b.CanCancel(now))

	b.Status = BookingCompleted
	require.False(t, b.CanCancel(now))

	b.Status = BookingCancelled
	require.False(t, b.CanCancel(now))

	// check-in in the past fails regardless of status
	past := Booking{Status: BookingPending, CheckInDate: date(t, "2026-06-28"), CheckOutDate: date(t, "2026-07-03")}
	require.False(t, past.CanCancel(now))
	past.Status = BookingConfirmed
	require.False(t, past.CanCancel(now))
}

func TestBookingCanCompleteAndReview(t *testing.T) {
	now := time.Date(2026, 7, 10, 9, 0, 0, 0, time.UTC)
	b := Booking{Status: BookingConfirmed, CheckInDate: date(t, "2026-07-05"), CheckOutDate: date(t, "2026-07-08")}
	require.True(t, b.CanComplete(now))
	require.False(t, b.CanReview(now))

	b.Status = BookingPending
	require.False(t, b.CanComplete(now))

	b.Status = BookingCompleted
	require.True(t, b.CanReview(now))
	b.HasReview = true
	require.False(t, b.CanReview(now))

	future := Booking{Status: BookingConfirmed, CheckInDate: date(t, "2026-07-09"), CheckOutDate: date(t, "2026-07-12")}
	require.False(t, future.CanComplete(now))
}

func TestAvailabilityCoversAndRate(t *testing.T) {
	special := int64(8000)
	w := Availability{StartDate: date(t, "2026-07-01"), EndDate: date(t, "2026-07-10"), SpecialPriceCents: &special}
	require.True(t, w.Covers(date(t, "2026-07-01"), date(t, "2026-07-10")))
	require.True(t, w.Covers(date(t, "2026-07-03"), date(t, "2026-07-05")))
	require.False(t, w.Covers(date(t, "2026-06-30"), date(t, "2026-07-05")))
	require.False(t, w.Covers(date(t, "2026-07-05"), date(t, "2026-07-11")))
	require.Equal(t, int64(8000), w.NightlyRate(10000))

	w.SpecialPriceCents = nil
	require.Equal(t, int64(10000), w.NightlyRate(10000))
}

func TestOverlaps(t *testing.T) {
	a, b := date(t, "2026-07-01"), date(t, "2026-07-05")
	require.True(t, Overlaps(a, b, date(t, "2026-07-04"), date(t, "2026-07-06")))
	// touching ranges do not overlap
	require.False(t, Overlaps(a, b, date(t, "2026-07-05"), date(t, "2026-07-08")))
	require.False(t, Overlaps(a, b, date(t, "2026-06-25"), date(t, "2026-07-01")))
}

func TestReviewEditable(t *testing.T) {
	created := time.Date(2026, 7, 1, 10, 0, 0, 0, time.UTC)
	r := Review{CreatedAt: created}
	require.True(t, r.Editable(created.Add(23*time.Hour)))
	require.False(t, r.Editable(created.Add(25*time.Hour)))
}
