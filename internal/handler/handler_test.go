package handler

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/atypikhouse/internal/payment"
	"github.com/iliyamo/atypikhouse/internal/repository"
	"github.com/iliyamo/atypikhouse/internal/service"
	"github.com/iliyamo/atypikhouse/internal/validation"
)

func newEcho() *echo.Echo {
	e := echo.New()
	e.Validator = validation.New()
	return e
}

// newCtx builds a context for method/target with an optional JSON body.
func newCtx(e *echo.Echo, method, target, body string) (echo.Context, *httptest.ResponseRecorder) {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func asUser(c echo.Context, id uint64, role string) {
	c.Set("user_id", id)
	c.Set("role", role)
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestErrorStatus(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{sql.ErrNoRows, http.StatusNotFound},
		{service.ErrNotFound, http.StatusNotFound},
		{service.ErrForbidden, http.StatusForbidden},
		{service.ErrReviewWindowClosed, http.StatusForbidden},
		{service.ErrNotAvailable, http.StatusConflict},
		{service.ErrWindowConflict, http.StatusConflict},
		{repository.ErrConflict, http.StatusConflict},
		{repository.ErrEmailExists, http.StatusConflict},
		{fmt.Errorf("%w: check-in date cannot be in the past", service.ErrInvalidDates), http.StatusBadRequest},
		{service.ErrPropertyInactive, http.StatusBadRequest},
		{service.ErrInvalidState, http.StatusBadRequest},
		{service.ErrPaymentFailed, http.StatusBadRequest},
		{service.ErrNotReviewable, http.StatusBadRequest},
		{payment.ErrUnavailable, http.StatusServiceUnavailable},
		{fmt.Errorf("%w: %w", service.ErrPaymentFailed, payment.ErrUnavailable), http.StatusServiceUnavailable},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		require.Equal(t, tc.want, errorStatus(tc.err), tc.err.Error())
	}
}

func TestFailHidesInternalErrors(t *testing.T) {
	log, hook := test.NewNullLogger()
	c, rec := newCtx(newEcho(), http.MethodGet, "/api/properties/1", "")

	require.NoError(t, fail(c, log, errors.New("dial tcp 10.0.0.3:3306: connection refused"), "query failed"))
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.Equal(t, "query failed", decode(t, rec)["error"])
	require.NotContains(t, rec.Body.String(), "3306")
	require.Len(t, hook.Entries, 1)
	require.Equal(t, logrus.ErrorLevel, hook.LastEntry().Level)
}

func TestFailMapsDomainErrors(t *testing.T) {
	log, hook := test.NewNullLogger()

	c, rec := newCtx(newEcho(), http.MethodGet, "/", "")
	require.NoError(t, fail(c, log, sql.ErrNoRows, "query failed"))
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Equal(t, "not found", decode(t, rec)["error"])

	c, rec = newCtx(newEcho(), http.MethodGet, "/", "")
	require.NoError(t, fail(c, log, service.ErrNotAvailable, "create booking failed"))
	require.Equal(t, http.StatusConflict, rec.Code)
	require.Equal(t, service.ErrNotAvailable.Error(), decode(t, rec)["error"])

	require.Empty(t, hook.Entries)
}

func TestParamID(t *testing.T) {
	e := newEcho()
	for raw, ok := range map[string]bool{"12": true, "0": false, "-1": false, "abc": false, "": false} {
		c, _ := newCtx(e, http.MethodGet, "/", "")
		c.SetParamNames("id")
		c.SetParamValues(raw)
		_, got := paramID(c, "id")
		require.Equal(t, ok, got, raw)
	}
}

func TestBindAndValidateRejectsMalformedJSON(t *testing.T) {
	c, rec := newCtx(newEcho(), http.MethodPost, "/", "{")
	var req loginReq
	ok, err := bindAndValidate(c, &req)
	require.False(t, ok)
	require.NoError(t, err)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "invalid body", decode(t, rec)["error"])
}

func TestRegisterReportsFieldErrors(t *testing.T) {
	h := &AuthHandler{}
	c, rec := newCtx(newEcho(), http.MethodPost, "/api/auth/register/tenant",
		`{"email":"nope","password":"short","first_name":"A","last_name":"Martin"}`)

	require.NoError(t, h.RegisterTenant(c))
	require.Equal(t, http.StatusBadRequest, rec.Code)
	fields, ok := decode(t, rec)["errors"].(map[string]any)
	require.True(t, ok)
	require.Contains(t, fields, "email")
	require.Contains(t, fields, "password")
	require.Contains(t, fields, "first_name")
	require.NotContains(t, fields, "last_name")
}

func TestCreateBookingValidatesDates(t *testing.T) {
	h := &BookingHandler{}
	c, rec := newCtx(newEcho(), http.MethodPost, "/api/bookings",
		`{"property_id":3,"check_in_date":"2026-13-01","check_out_date":"2026-08-05"}`)
	asUser(c, 9, "TENANT")

	require.NoError(t, h.Create(c))
	require.Equal(t, http.StatusBadRequest, rec.Code)
	fields := decode(t, rec)["errors"].(map[string]any)
	require.Contains(t, fields, "check_in_date")
	require.NotContains(t, fields, "check_out_date")
}

func TestCreateBookingRequiresAuth(t *testing.T) {
	h := &BookingHandler{}
	c, rec := newCtx(newEcho(), http.MethodPost, "/api/bookings", `{}`)
	require.NoError(t, h.Create(c))
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestSearchCriteria(t *testing.T) {
	e := newEcho()
	c, _ := newCtx(e, http.MethodGet,
		"/api/properties/search?property_type=2&capacity=4&min_price=5000&max_price=20000&amenities=1,2&amenities=7&query=+cabane+&location=Lyon&sort_by=rating", "")

	crit, err := searchCriteria(c)
	require.NoError(t, err)
	require.Equal(t, uint64(2), crit.PropertyTypeID)
	require.Equal(t, 4, crit.Capacity)
	require.Equal(t, int64(5000), crit.MinPriceCents)
	require.Equal(t, int64(20000), crit.MaxPriceCents)
	require.Equal(t, []uint64{1, 2, 7}, crit.AmenityIDs)
	require.Equal(t, "cabane", crit.Query)
	require.Equal(t, "Lyon", crit.Location)
	require.Equal(t, "rating", crit.SortBy)

	for _, q := range []string{"sort_by=cheapest", "capacity=-2", "amenities=1,x", "min_price=1.5"} {
		c, _ := newCtx(e, http.MethodGet, "/api/properties/search?"+q, "")
		_, err := searchCriteria(c)
		require.Error(t, err, q)
	}
}

func TestSendMessageToSelfIsRejected(t *testing.T) {
	h := &MessageHandler{}
	c, rec := newCtx(newEcho(), http.MethodPost, "/api/messages", `{"receiver_id":5,"content":"Bonjour"}`)
	asUser(c, 5, "TENANT")

	require.NoError(t, h.Send(c))
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPreview(t *testing.T) {
	require.Equal(t, "court", preview("court"))

	long := strings.Repeat("é", 150)
	p := preview(long)
	require.True(t, strings.HasSuffix(p, "…"))
	require.Equal(t, previewLen+1, len([]rune(p)))
}

func TestAdminRejectsUnknownRole(t *testing.T) {
	h := &AdminHandler{}
	e := newEcho()

	c, rec := newCtx(e, http.MethodGet, "/api/admin/users?role=guest", "")
	require.NoError(t, h.ListUsers(c))
	require.Equal(t, http.StatusBadRequest, rec.Code)

	c, rec = newCtx(e, http.MethodPut, "/api/admin/users/3/role", `{"role":"superuser"}`)
	c.SetParamNames("id")
	c.SetParamValues("3")
	require.NoError(t, h.SetRole(c))
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "invalid role", decode(t, rec)["error"])

	c, rec = newCtx(e, http.MethodGet, "/api/admin/properties?active=maybe", "")
	require.NoError(t, h.ListProperties(c))
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestNotifyOwnersRequiresMessage(t *testing.T) {
	h := &AdminHandler{}
	c, rec := newCtx(newEcho(), http.MethodPost, "/api/admin/notify-owners", `{"message":""}`)
	require.NoError(t, h.NotifyOwners(c))
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, decode(t, rec)["errors"], "message")
}

func TestAnonymousCallersAreRejected(t *testing.T) {
	e := newEcho()
	handlers := map[string]echo.HandlerFunc{
		"reviews":  (&ReviewHandler{}).UserReviews,
		"messages": (&MessageHandler{}).List,
		"unread":   (&MessageHandler{}).Unread,
		"picture":  (&UserHandler{}).UploadPicture,
	}
	for name, h := range handlers {
		c, rec := newCtx(e, http.MethodGet, "/", "")
		require.NoError(t, h(c), name)
		require.Equal(t, http.StatusUnauthorized, rec.Code, name)
	}
}

func TestUploadRequiresFile(t *testing.T) {
	h := &UserHandler{}
	c, rec := newCtx(newEcho(), http.MethodPost, "/api/users/me/picture", "")
	asUser(c, 4, "OWNER")

	require.NoError(t, h.UploadPicture(c))
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "file is required", decode(t, rec)["error"])
}

func TestHealth(t *testing.T) {
	c, rec := newCtx(newEcho(), http.MethodGet, "/healthz", "")
	require.NoError(t, Health(c))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "ok", rec.Body.String())
}

func TestModerateRejectsMalformedBody(t *testing.T) {
	h := &ReviewHandler{}
	c, rec := newCtx(newEcho(), http.MethodPut, "/api/reviews/4/moderate", `{"is_moderated":`)
	c.SetParamNames("id")
	c.SetParamValues("4")

	require.NoError(t, h.Moderate(c))
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "invalid body", decode(t, rec)["error"])
}

func TestModerateReviewPurgesCache(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	now := time.Date(2026, 7, 20, 9, 0, 0, 0, time.UTC)
	review := func(moderated bool) *sqlmock.Rows {
		return sqlmock.NewRows([]string{"id", "booking_id", "property_id", "rating", "comment",
			"is_moderated", "created_at", "updated_at", "tenant_id"}).
			AddRow(4, 11, 3, 5, "Cabane magnifique et calme.", moderated, now, now, 7)
	}
	byID := regexp.QuoteMeta("FROM reviews rv JOIN bookings b ON b.id = rv.booking_id WHERE rv.id=?")
	mock.ExpectQuery(byID).WithArgs(4).WillReturnRows(review(false))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE reviews SET is_moderated=?")).
		WithArgs(true, 4).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(byID).WithArgs(4).WillReturnRows(review(true))

	purged := 0
	log, _ := test.NewNullLogger()
	h := &ReviewHandler{
		Reviews: repository.NewReviewRepo(db),
		Log:     log,
		Purge:   func(context.Context) error { purged++; return nil },
	}
	// no body approves
	c, rec := newCtx(newEcho(), http.MethodPut, "/api/reviews/4/moderate", "")
	c.SetParamNames("id")
	c.SetParamValues("4")

	require.NoError(t, h.Moderate(c))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, true, decode(t, rec)["is_moderated"])
	require.Equal(t, 1, purged)
	require.NoError(t, mock.ExpectationsWereMet())
}
