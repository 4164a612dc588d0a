package notification

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"

	"github.com/sirupsen/logrus"

	"github.com/iliyamo/atypikhouse/internal/queue"
)

//go:embed templates/*.html
var templateFS embed.FS

// Dispatcher turns queue events into emails and booking log lines.
// It implements queue.Handler.
type Dispatcher struct {
	mail       Sender
	tpl        *template.Template
	bookingLog logrus.FieldLogger
	log        logrus.FieldLogger
	baseURL    string
}

func NewDispatcher(mail Sender, bookingLog, log logrus.FieldLogger, baseURL string) (*Dispatcher, error) {
	tpl, err := template.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse email templates: %w", err)
	}
	return &Dispatcher{mail: mail, tpl: tpl, bookingLog: bookingLog, log: log, baseURL: baseURL}, nil
}

var _ queue.Handler = (*Dispatcher)(nil)

// Handle routes one event.  Unknown types are logged and dropped.
func (d *Dispatcher) Handle(ctx context.Context, ev queue.Envelope) error {
	switch ev.Type {
	case queue.UserRegistered:
		var p queue.UserRegisteredEvent
		if err := ev.Decode(&p); err != nil {
			return err
		}
		return d.send(ctx, p.Email, "Bienvenue sur AtypikHouse!", "welcome.html", map[string]any{
			"Name": p.FirstName, "Role": p.Role, "BaseURL": d.baseURL,
		})

	case queue.BookingCreated, queue.BookingConfirmed, queue.BookingCancelled, queue.BookingCompleted:
		var p queue.BookingEvent
		if err := ev.Decode(&p); err != nil {
			return err
		}
		d.logBooking(ev.Type, p)
		return d.bookingEmails(ctx, ev.Type, p)

	case queue.MessageSent:
		var p queue.MessageSentEvent
		if err := ev.Decode(&p); err != nil {
			return err
		}
		return d.send(ctx, p.ReceiverEmail, "Nouveau message de "+p.SenderName, "new_message.html", map[string]any{
			"ReceiverName": p.ReceiverName, "SenderName": p.SenderName, "Subject": p.Subject,
			"Preview": p.Preview, "BaseURL": d.baseURL,
		})

	case queue.PropertyModerated:
		var p queue.PropertyModeratedEvent
		if err := ev.Decode(&p); err != nil {
			return err
		}
		subject := "Votre hébergement a été approuvé"
		if !p.Approved {
			subject = "Votre hébergement n'a pas été approuvé"
		}
		return d.send(ctx, p.OwnerEmail, subject+" - "+p.PropertyTitle, "property_moderated.html", p)

	case queue.OwnerNotice:
		var p queue.OwnerNoticeEvent
		if err := ev.Decode(&p); err != nil {
			return err
		}
		return d.send(ctx, p.OwnerEmail, "Mise à jour importante concernant AtypikHouse", "owner_notice.html", p)
	}
	d.log.WithField("event", ev.Type).Warn("notification: unknown event type")
	return nil
}

func (d *Dispatcher) bookingEmails(ctx context.Context, eventType string, p queue.BookingEvent) error {
	data := map[string]any{
		"BookingID": p.BookingID, "PropertyTitle": p.PropertyTitle,
		"TenantName": p.TenantName, "OwnerName": p.OwnerName,
		"CheckIn": p.CheckIn, "CheckOut": p.CheckOut, "Nights": p.Nights,
		"Total": FormatEuros(p.TotalPriceCents), "Refunded": p.Refunded, "BaseURL": d.baseURL,
	}
	switch eventType {
	case queue.BookingConfirmed:
		if err := d.send(ctx, p.TenantEmail, "Confirmation de votre réservation - "+p.PropertyTitle, "booking_tenant.html", data); err != nil {
			return err
		}
		return d.send(ctx, p.OwnerEmail, "Nouvelle réservation pour "+p.PropertyTitle, "booking_owner.html", data)
	case queue.BookingCancelled:
		data["Recipient"] = p.TenantName
		if err := d.send(ctx, p.TenantEmail, "Annulation de votre réservation - "+p.PropertyTitle, "booking_cancelled.html", data); err != nil {
			return err
		}
		owner := copyData(data)
		owner["Recipient"] = p.OwnerName
		return d.send(ctx, p.OwnerEmail, "Annulation de réservation - "+p.PropertyTitle, "booking_cancelled.html", owner)
	case queue.BookingCompleted:
		return d.send(ctx, p.TenantEmail, "Partagez votre expérience - "+p.PropertyTitle, "review_reminder.html", data)
	}
	// booking.created is log-only; emails go out once payment confirms.
	return nil
}

func (d *Dispatcher) logBooking(eventType string, p queue.BookingEvent) {
	d.bookingLog.WithFields(logrus.Fields{
		"event":       eventType,
		"booking_id":  p.BookingID,
		"property_id": p.PropertyID,
		"tenant_id":   p.TenantID,
		"check_in":    p.CheckIn,
		"check_out":   p.CheckOut,
		"total_cents": p.TotalPriceCents,
		"status":      p.Status,
	}).Info("booking " + p.Status)
}

func (d *Dispatcher) send(ctx context.Context, to, subject, tpl string, data any) error {
	if to == "" {
		return nil
	}
	html, err := d.Render(tpl, data)
	if err != nil {
		return err
	}
	if err := d.mail.Send(ctx, to, subject, html); err != nil {
		return fmt.Errorf("send %s to %s: %w", tpl, to, err)
	}
	return nil
}

// Render executes one email template.
func (d *Dispatcher) Render(name string, data any) (string, error) {
	var buf bytes.Buffer
	if err := d.tpl.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("render %s: %w", name, err)
	}
	return buf.String(), nil
}

// FormatEuros renders cents as "1234.50".
func FormatEuros(cents int64) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%s%d.%02d", sign, cents/100, cents%100)
}

func copyData(in map[string]any) map[string]any {
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
