// Package notification renders and sends the transactional emails and
// writes the booking log.  It is driven by events from the queue
// consumer; nothing here is on the request path.
package notification

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"
	"gopkg.in/gomail.v2"
)

// Sender delivers one HTML email.
type Sender interface {
	Send(ctx context.Context, to, subject, html string) error
}

// SMTPMailer sends mail through gomail behind a circuit breaker so a
// dead SMTP relay fails fast instead of stalling the consumer.
type SMTPMailer struct {
	dialer *gomail.Dialer
	from   string
	cb     *gobreaker.CircuitBreaker
}

func NewSMTPMailer(host string, port int, user, pass, from string, log logrus.FieldLogger) *SMTPMailer {
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "smtp",
		Timeout: time.Minute,
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			log.WithFields(logrus.Fields{"breaker": name, "from": from.String(), "to": to.String()}).
				Warn("circuit breaker state changed")
		},
	})
	return &SMTPMailer{dialer: gomail.NewDialer(host, port, user, pass), from: from, cb: cb}
}

func (m *SMTPMailer) Send(ctx context.Context, to, subject, html string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/html", html)

	_, err := m.cb.Execute(func() (interface{}, error) {
		return nil, m.dialer.DialAndSend(msg)
	})
	if errors.Is(err, gobreaker.ErrOpenState) {
		return errors.New("smtp circuit open")
	}
	return err
}

// LogMailer stands in for SMTP when no host is configured; it only
// logs what would have been sent.
type LogMailer struct{ Log logrus.FieldLogger }

func (m LogMailer) Send(_ context.Context, to, subject, _ string) error {
	m.Log.WithFields(logrus.Fields{"to": to, "subject": subject}).Info("email not sent: smtp disabled")
	return nil
}
