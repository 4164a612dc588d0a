package payment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"

	"github.com/iliyamo/atypikhouse/internal/model"
)

const defaultStripeURL = "https://api.stripe.com"

// Stripe is a minimal REST client for payment intents and refunds.
// Calls go through a circuit breaker so a failing provider is not
// hammered by every booking request.
type Stripe struct {
	secretKey string
	baseURL   string
	client    *http.Client
	cb        *gobreaker.CircuitBreaker
}

// NewStripe builds a client.  An empty baseURL means the public API;
// a nil client gets a 10s timeout.
func NewStripe(secretKey, baseURL string, client *http.Client) *Stripe {
	if baseURL == "" {
		baseURL = defaultStripeURL
	}
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "stripe",
		Timeout: 30 * time.Second,
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logrus.WithFields(logrus.Fields{"breaker": name, "from": from.String(), "to": to.String()}).
				Warn("circuit breaker state changed")
		},
	})
	return &Stripe{secretKey: secretKey, baseURL: strings.TrimRight(baseURL, "/"), client: client, cb: cb}
}

type stripeIntent struct {
	ID           string `json:"id"`
	Amount       int64  `json:"amount"`
	Currency     string `json:"currency"`
	Status       string `json:"status"`
	ClientSecret string `json:"client_secret"`
}

type stripeRefund struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

type stripeError struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

func (s *Stripe) CreateIntent(ctx context.Context, b model.Booking) (Intent, error) {
	form := url.Values{}
	form.Set("amount", strconv.FormatInt(b.TotalPriceCents, 10))
	form.Set("currency", Currency)
	form.Set("metadata[booking_id]", strconv.FormatUint(b.ID, 10))
	form.Set("metadata[property_id]", strconv.FormatUint(b.PropertyID, 10))

	var pi stripeIntent
	if err := s.call(ctx, http.MethodPost, "/v1/payment_intents", form, &pi); err != nil {
		return Intent{}, err
	}
	return Intent{
		ID:           pi.ID,
		AmountCents:  pi.Amount,
		Currency:     pi.Currency,
		Status:       pi.Status,
		ClientSecret: pi.ClientSecret,
	}, nil
}

// Verify reports whether the intent has been paid.
func (s *Stripe) Verify(ctx context.Context, intentID string) (bool, error) {
	if intentID == "" {
		return false, nil
	}
	var pi stripeIntent
	if err := s.call(ctx, http.MethodGet, "/v1/payment_intents/"+url.PathEscape(intentID), nil, &pi); err != nil {
		return false, err
	}
	return pi.Status == "succeeded", nil
}

// Refund refunds the full amount of a paid intent.
func (s *Stripe) Refund(ctx context.Context, transactionID string) (bool, error) {
	form := url.Values{}
	form.Set("payment_intent", transactionID)
	var rf stripeRefund
	if err := s.call(ctx, http.MethodPost, "/v1/refunds", form, &rf); err != nil {
		return false, err
	}
	return rf.Status == "succeeded" || rf.Status == "pending", nil
}

func (s *Stripe) call(ctx context.Context, method, path string, form url.Values, out any) error {
	_, err := s.cb.Execute(func() (interface{}, error) {
		var body io.Reader
		if form != nil {
			body = strings.NewReader(form.Encode())
		}
		req, err := http.NewRequestWithContext(ctx, method, s.baseURL+path, body)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Authorization", "Bearer "+s.secretKey)
		if form != nil {
			req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		}
		resp, err := s.client.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()
		raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		if err != nil {
			return nil, err
		}
		if resp.StatusCode >= 300 {
			var se stripeError
			_ = json.Unmarshal(raw, &se)
			return nil, fmt.Errorf("stripe %s %s: status %d: %s", method, path, resp.StatusCode, se.Error.Message)
		}
		return nil, json.Unmarshal(raw, out)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return ErrUnavailable
	}
	return err
}
