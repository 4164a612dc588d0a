package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"
)

// Handler processes one decoded event.
type Handler interface {
	Handle(ctx context.Context, ev Envelope) error
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, ev Envelope) error

func (f HandlerFunc) Handle(ctx context.Context, ev Envelope) error { return f(ctx, ev) }

// Consumer reads events from the queue and dispatches them to a
// Handler.  Broken messages are rejected without requeue so a poison
// message cannot loop.
type Consumer struct {
	url     string
	queue   string
	handler Handler
	log     logrus.FieldLogger
}

func NewConsumer(url, queue string, h Handler, log logrus.FieldLogger) *Consumer {
	return &Consumer{url: url, queue: queue, handler: h, log: log}
}

// Run connects and consumes until ctx is cancelled, reconnecting with
// exponential backoff (capped at 30s) whenever the broker goes away.
func (c *Consumer) Run(ctx context.Context) error {
	backoff := time.Second
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		conn, err := amqp.Dial(c.url)
		if err != nil {
			c.log.WithError(err).Warnf("event-consumer: failed to dial broker; retrying in %s", backoff)
			if !sleep(ctx, backoff) {
				return ctx.Err()
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		err = c.consumeLoop(ctx, conn)
		_ = conn.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		c.log.WithError(err).Warn("event-consumer: consume loop ended; reconnecting")
		if !sleep(ctx, 2*time.Second) {
			return ctx.Err()
		}
	}
}

func (c *Consumer) consumeLoop(ctx context.Context, conn *amqp.Connection) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		c.log.WithError(err).Warn("event-consumer: set QoS failed")
	}
	if _, err := ch.QueueDeclare(c.queue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}
	msgs, err := ch.Consume(c.queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-msgs:
			if !ok {
				return errors.New("deliveries channel closed")
			}
			if err := c.HandleMessage(ctx, d.Body); err != nil {
				c.log.WithError(err).Error("event-consumer: handle message failed")
				_ = d.Nack(false, false)
				continue
			}
			_ = d.Ack(false)
		}
	}
}

// HandleMessage decodes one delivery body and dispatches it.
func (c *Consumer) HandleMessage(ctx context.Context, body []byte) error {
	var ev Envelope
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	if ev.Type == "" {
		return errors.New("event without type")
	}
	return c.handler.Handle(ctx, ev)
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
