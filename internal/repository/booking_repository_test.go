package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/atypikhouse/internal/model"
)

func newMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, mock.ExpectationsWereMet())
		db.Close()
	})
	return db, mock
}

func date(s string) time.Time {
	t, err := model.ParseDate(s)
	if err != nil {
		panic(err)
	}
	return t
}

var bookingCols = []string{"id", "property_id", "tenant_id", "check_in_date", "check_out_date",
	"total_price_cents", "status", "transaction_id", "created_at", "updated_at", "has_review"}

func TestBookingFindOverlappingQuery(t *testing.T) {
	db, mock := newMock(t)
	in, out := date("2026-07-10"), date("2026-07-13")
	created := time.Date(2026, 6, 2, 8, 30, 0, 0, time.UTC)

	// existing.check_in < new.check_out AND existing.check_out > new.check_in
	mock.ExpectQuery(regexp.QuoteMeta("WHERE b.property_id=? AND b.check_in_date<? AND b.check_out_date>? AND b.status IN (?,?) ORDER BY b.check_in_date")).
		WithArgs(1, out, in, model.BookingPending, model.BookingConfirmed).
		WillReturnRows(sqlmock.NewRows(bookingCols).
			AddRow(21, 1, 5, date("2026-07-12"), date("2026-07-15"), 30000, model.BookingConfirmed, "pi_1", created, created, false))

	got, err := NewBookingRepo(db).FindOverlapping(context.Background(), 1, in, out, model.ActiveBookingStatuses)
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, uint64(21), got[0].ID)
	require.Equal(t, "pi_1", *got[0].TransactionID)
	require.Equal(t, date("2026-07-12"), got[0].CheckInDate)
}

func TestBookingFindOverlappingNoStatuses(t *testing.T) {
	db, _ := newMock(t)
	got, err := NewBookingRepo(db).FindOverlapping(context.Background(), 1, date("2026-07-10"), date("2026-07-13"), nil)
	require.NoError(t, err)
	require.Empty(t, got)
}

func TestBookingUpdateStatusIsConditional(t *testing.T) {
	db, mock := newMock(t)
	repo := NewBookingRepo(db)
	ctx := context.Background()

	mock.ExpectExec(regexp.QuoteMeta("UPDATE bookings SET status=?, updated_at=UTC_TIMESTAMP() WHERE id=? AND status=?")).
		WithArgs(model.BookingCompleted, 7, model.BookingConfirmed).
		WillReturnResult(sqlmock.NewResult(0, 0))
	require.ErrorIs(t, repo.UpdateStatus(ctx, 7, model.BookingConfirmed, model.BookingCompleted, nil), sql.ErrNoRows)

	tx := "pi_42"
	mock.ExpectExec(regexp.QuoteMeta("UPDATE bookings SET status=?, transaction_id=?, updated_at=UTC_TIMESTAMP() WHERE id=? AND status=?")).
		WithArgs(model.BookingConfirmed, tx, 7, model.BookingPending).
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.UpdateStatus(ctx, 7, model.BookingPending, model.BookingConfirmed, &tx))
}

var availabilityCols = []string{"id", "property_id", "start_date", "end_date", "special_price_cents"}

func TestAvailabilityFindCoveringQuery(t *testing.T) {
	db, mock := newMock(t)
	in, out := date("2026-07-10"), date("2026-07-13")

	// inclusive on both ends: a window ending on check-out still covers
	mock.ExpectQuery(regexp.QuoteMeta("WHERE property_id=? AND start_date<=? AND end_date>=? ORDER BY start_date")).
		WithArgs(1, in, out).
		WillReturnRows(sqlmock.NewRows(availabilityCols).
			AddRow(3, 1, date("2026-07-01"), date("2026-07-13"), nil))

	got, err := NewAvailabilityRepo(db).FindCovering(context.Background(), 1, in, out)
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Nil(t, got[0].SpecialPriceCents)
}

func TestAvailabilityFindOverlappingSwapsBounds(t *testing.T) {
	db, mock := newMock(t)
	in, out := date("2026-07-10"), date("2026-07-13")

	mock.ExpectQuery(regexp.QuoteMeta("WHERE property_id=? AND start_date<? AND end_date>? ORDER BY start_date")).
		WithArgs(1, out, in).
		WillReturnRows(sqlmock.NewRows(availabilityCols).
			AddRow(3, 1, date("2026-07-01"), date("2026-07-11"), 8000).
			AddRow(4, 1, date("2026-07-11"), date("2026-07-31"), nil))

	got, err := NewAvailabilityRepo(db).FindOverlapping(context.Background(), 1, in, out)
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.Equal(t, int64(8000), *got[0].SpecialPriceCents)
	require.Nil(t, got[1].SpecialPriceCents)
}

func TestAvailabilityFindConflictingExcludesID(t *testing.T) {
	db, mock := newMock(t)
	in, out := date("2026-07-10"), date("2026-07-13")

	mock.ExpectQuery(regexp.QuoteMeta("WHERE property_id=? AND start_date<? AND end_date>? AND id<>? ORDER BY start_date")).
		WithArgs(1, out, in, 3).
		WillReturnRows(sqlmock.NewRows(availabilityCols))

	got, err := NewAvailabilityRepo(db).FindConflicting(context.Background(), 1, in, out, 3)
	require.NoError(t, err)
	require.Empty(t, got)
}

func TestAvailabilityDeleteMissing(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM availabilities WHERE id=? AND property_id=?")).
		WithArgs(9, 1).
		WillReturnResult(sqlmock.NewResult(0, 0))
	require.ErrorIs(t, NewAvailabilityRepo(db).Delete(context.Background(), 1, 9), sql.ErrNoRows)
}
