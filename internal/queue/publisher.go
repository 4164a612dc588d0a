package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"
)

// Publisher sends events to a durable queue on the default exchange.
// It dials per publish so a broker outage never blocks startup; every
// failure is logged and returned so callers can ignore it.
type Publisher struct {
	url   string
	queue string
	log   logrus.FieldLogger
}

func NewPublisher(url, queue string, log logrus.FieldLogger) *Publisher {
	return &Publisher{url: url, queue: queue, log: log}
}

// Publish wraps payload in an Envelope of the given type and sends it
// as a persistent message.
func (p *Publisher) Publish(ctx context.Context, eventType string, payload any) error {
	body, err := NewEnvelope(eventType, payload)
	if err != nil {
		p.log.WithError(err).WithField("event", eventType).Error("rabbitmq: marshal event failed")
		return err
	}
	if err := p.send(ctx, body); err != nil {
		p.log.WithError(err).WithField("event", eventType).Warn("rabbitmq: publish failed")
		return err
	}
	return nil
}

func (p *Publisher) send(ctx context.Context, body []byte) error {
	conn, err := amqp.Dial(p.url)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if _, err := ch.QueueDeclare(p.queue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}
	return ch.PublishWithContext(ctx, "", p.queue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	})
}

// NewEnvelope marshals payload into a wire envelope.
func NewEnvelope(eventType string, payload any) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Envelope{Type: eventType, OccurredAt: time.Now().UTC(), Payload: raw})
}
