package handler

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/atypikhouse/internal/middleware"
	"github.com/iliyamo/atypikhouse/internal/model"
	"github.com/iliyamo/atypikhouse/internal/payment"
	"github.com/iliyamo/atypikhouse/internal/repository"
	"github.com/iliyamo/atypikhouse/internal/service"
	"github.com/iliyamo/atypikhouse/internal/validation"
)

const requestTimeout = 5 * time.Second

// EventPublisher is satisfied by *queue.Publisher.
type EventPublisher interface {
	Publish(ctx context.Context, eventType string, payload any) error
}

// requestCtx bounds DB work done on behalf of one request.
func requestCtx(c echo.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request().Context(), requestTimeout)
}

// publish sends an event in the background.  Failures are logged by
// the publisher and never reach the client.
func publish(p EventPublisher, eventType string, payload any) {
	if p == nil {
		return
	}
	go func() {
		// detached from the request: the response is already on its way
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = p.Publish(ctx, eventType, payload)
	}()
}

// purgeCache runs purge if set.  A failed purge only costs freshness
// until the TTL runs out, so it is logged and ignored.
func purgeCache(ctx context.Context, purge func(context.Context) error, log logrus.FieldLogger) {
	if purge == nil {
		return
	}
	if err := purge(ctx); err != nil {
		log.WithError(err).Warn("cache purge failed")
	}
}

// bindAndValidate binds the body into v and runs the echo validator.
// On failure it has already written the 400 response and returns false.
func bindAndValidate(c echo.Context, v any) (bool, error) {
	if err := c.Bind(v); err != nil {
		return false, c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if err := c.Validate(v); err != nil {
		if fields := validation.Errors(err); fields != nil {
			return false, c.JSON(http.StatusBadRequest, echo.Map{"errors": fields})
		}
		return false, c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	return true, nil
}

// paramID parses a positive numeric path parameter.
func paramID(c echo.Context, name string) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	return id, err == nil && id > 0
}

func badID(c echo.Context, what string) error {
	return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid " + what + " id"})
}

func unauthorized(c echo.Context) error {
	return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
}

func forbidden(c echo.Context) error {
	return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
}

func notFound(c echo.Context, what string) error {
	return c.JSON(http.StatusNotFound, echo.Map{"error": what + " not found"})
}

// caller returns the authenticated user id and whether they are admin.
func caller(c echo.Context) (uint64, bool, bool) {
	id, ok := middleware.UserID(c)
	return id, middleware.IsAdmin(c), ok
}

// errorStatus maps domain and repository errors onto HTTP statuses.
func errorStatus(err error) int {
	switch {
	// an open payment circuit wins over the payment-failed wrapper
	case errors.Is(err, payment.ErrUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, sql.ErrNoRows), errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrForbidden), errors.Is(err, repository.ErrForbidden),
		errors.Is(err, service.ErrReviewWindowClosed):
		return http.StatusForbidden
	case errors.Is(err, service.ErrNotAvailable), errors.Is(err, service.ErrWindowConflict),
		errors.Is(err, repository.ErrConflict), errors.Is(err, repository.ErrEmailExists):
		return http.StatusConflict
	case errors.Is(err, service.ErrInvalidDates), errors.Is(err, service.ErrPropertyInactive),
		errors.Is(err, service.ErrInvalidState), errors.Is(err, service.ErrPaymentFailed),
		errors.Is(err, service.ErrNotReviewable):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// fail writes err as {"error": ...}.  Unexpected errors are logged and
// replaced by fallback so internals never leak.
func fail(c echo.Context, log logrus.FieldLogger, err error, fallback string) error {
	status := errorStatus(err)
	if errors.Is(err, sql.ErrNoRows) {
		return c.JSON(status, echo.Map{"error": "not found"})
	}
	if status == http.StatusInternalServerError {
		log.WithError(err).WithFields(logrus.Fields{
			"route":      c.Path(),
			"request_id": c.Response().Header().Get(echo.HeaderXRequestID),
		}).Error(fallback)
		return c.JSON(status, echo.Map{"error": fallback})
	}
	return c.JSON(status, echo.Map{"error": err.Error()})
}

// parseDateParam parses a YYYY-MM-DD query parameter.
func parseDateParam(c echo.Context, name string) (time.Time, error) {
	return model.ParseDate(c.QueryParam(name))
}
