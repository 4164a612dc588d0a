package notification

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/atypikhouse/internal/queue"
)

type sent struct {
	to, subject, html string
}

type fakeSender struct {
	mails []sent
	err   error
}

func (f *fakeSender) Send(_ context.Context, to, subject, html string) error {
	if f.err != nil {
		return f.err
	}
	f.mails = append(f.mails, sent{to, subject, html})
	return nil
}

func newDispatcher(t *testing.T, s Sender) (*Dispatcher, *test.Hook) {
	t.Helper()
	bookingLog, hook := test.NewNullLogger()
	log := logrus.New()
	log.SetOutput(io.Discard)
	d, err := NewDispatcher(s, bookingLog, log, "https://atypikhouse.test")
	require.NoError(t, err)
	return d, hook
}

func envelope(t *testing.T, typ string, payload any) queue.Envelope {
	t.Helper()
	body, err := queue.NewEnvelope(typ, payload)
	require.NoError(t, err)
	var ev queue.Envelope
	require.NoError(t, json.Unmarshal(body, &ev))
	return ev
}

func booking() queue.BookingEvent {
	return queue.BookingEvent{
		BookingID: 7, PropertyID: 3, PropertyTitle: "Yourte du lac",
		TenantID: 9, TenantEmail: "tenant@example.com", TenantName: "Alice",
		OwnerEmail: "owner@example.com", OwnerName: "Bruno",
		CheckIn: "2026-07-01", CheckOut: "2026-07-04", Nights: 3,
		TotalPriceCents: 36050, Status: "CONFIRMED",
	}
}

func TestWelcomeEmail(t *testing.T) {
	s := &fakeSender{}
	d, _ := newDispatcher(t, s)

	ev := envelope(t, queue.UserRegistered, queue.UserRegisteredEvent{UserID: 1, Email: "o@example.com", FirstName: "Oscar", Role: "OWNER"})
	require.NoError(t, d.Handle(context.Background(), ev))
	require.Len(t, s.mails, 1)
	require.Equal(t, "o@example.com", s.mails[0].to)
	require.Contains(t, s.mails[0].html, "Bonjour Oscar")
	require.Contains(t, s.mails[0].html, "propriétaire")
}

func TestBookingConfirmedNotifiesBothParties(t *testing.T) {
	s := &fakeSender{}
	d, hook := newDispatcher(t, s)

	require.NoError(t, d.Handle(context.Background(), envelope(t, queue.BookingConfirmed, booking())))
	require.Len(t, s.mails, 2)
	require.Equal(t, "tenant@example.com", s.mails[0].to)
	require.Contains(t, s.mails[0].html, "360.50")
	require.Contains(t, s.mails[0].html, "/bookings/7")
	require.Equal(t, "owner@example.com", s.mails[1].to)
	require.Contains(t, s.mails[1].html, "Alice")

	require.Len(t, hook.Entries, 1)
	require.Equal(t, uint64(7), hook.LastEntry().Data["booking_id"])
	require.Equal(t, queue.BookingConfirmed, hook.LastEntry().Data["event"])
}

func TestBookingCreatedIsLogOnly(t *testing.T) {
	s := &fakeSender{}
	d, hook := newDispatcher(t, s)

	b := booking()
	b.Status = "PENDING"
	require.NoError(t, d.Handle(context.Background(), envelope(t, queue.BookingCreated, b)))
	require.Empty(t, s.mails)
	require.Len(t, hook.Entries, 1)
}

func TestBookingCancelledMentionsRefund(t *testing.T) {
	s := &fakeSender{}
	d, _ := newDispatcher(t, s)

	b := booking()
	b.Status = "CANCELLED"
	b.Refunded = true
	require.NoError(t, d.Handle(context.Background(), envelope(t, queue.BookingCancelled, b)))
	require.Len(t, s.mails, 2)
	require.Contains(t, s.mails[0].html, "Bonjour Alice")
	require.Contains(t, s.mails[0].html, "remboursé")
	require.Contains(t, s.mails[1].html, "Bonjour Bruno")
}

func TestBookingCompletedSendsReviewReminder(t *testing.T) {
	s := &fakeSender{}
	d, _ := newDispatcher(t, s)

	require.NoError(t, d.Handle(context.Background(), envelope(t, queue.BookingCompleted, booking())))
	require.Len(t, s.mails, 1)
	require.Contains(t, s.mails[0].html, "/bookings/7/review")
}

func TestPropertyModeratedRejected(t *testing.T) {
	s := &fakeSender{}
	d, _ := newDispatcher(t, s)

	ev := envelope(t, queue.PropertyModerated, queue.PropertyModeratedEvent{
		PropertyID: 3, PropertyTitle: "Cabane", OwnerEmail: "owner@example.com", OwnerName: "Bruno", Approved: false,
	})
	require.NoError(t, d.Handle(context.Background(), ev))
	require.Len(t, s.mails, 1)
	require.Contains(t, s.mails[0].subject, "n'a pas été approuvé")
}

func TestSenderErrorPropagates(t *testing.T) {
	d, _ := newDispatcher(t, &fakeSender{err: errors.New("smtp down")})
	ev := envelope(t, queue.OwnerNotice, queue.OwnerNoticeEvent{OwnerEmail: "o@example.com", OwnerName: "O", Message: "hi"})
	require.Error(t, d.Handle(context.Background(), ev))
}

func TestUnknownEventIsDropped(t *testing.T) {
	s := &fakeSender{}
	d, _ := newDispatcher(t, s)
	require.NoError(t, d.Handle(context.Background(), queue.Envelope{Type: "something.else"}))
	require.Empty(t, s.mails)
}

func TestFormatEuros(t *testing.T) {
	require.Equal(t, "0.05", FormatEuros(5))
	require.Equal(t, "120.00", FormatEuros(12000))
	require.Equal(t, "-3.10", FormatEuros(-310))
}
