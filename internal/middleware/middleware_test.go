package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/atypikhouse/internal/config"
	"github.com/iliyamo/atypikhouse/internal/model"
	"github.com/iliyamo/atypikhouse/internal/utils"
)

const secret = "test-secret"

func newProtected(t *testing.T, mws ...echo.MiddlewareFunc) *echo.Echo {
	t.Helper()
	e := echo.New()
	e.GET("/me", func(c echo.Context) error {
		id, ok := UserID(c)
		return c.JSON(http.StatusOK, echo.Map{"id": id, "ok": ok, "role": Role(c), "admin": IsAdmin(c)})
	}, mws...)
	return e
}

func do(e *echo.Echo, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestJWTAuthSetsIdentity(t *testing.T) {
	at, err := utils.NewAccessToken(secret, 17, model.RoleAdmin, 5)
	require.NoError(t, err)

	rec := do(newProtected(t, JWTAuth(secret)), at.Token)
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"id":17,"ok":true,"role":"ADMIN","admin":true}`, rec.Body.String())
}

func TestJWTAuthRejects(t *testing.T) {
	e := newProtected(t, JWTAuth(secret))

	rec := do(e, "")
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.JSONEq(t, `{"error":"missing bearer token"}`, rec.Body.String())

	other, err := utils.NewAccessToken("wrong", 1, model.RoleTenant, 5)
	require.NoError(t, err)
	rec = do(e, other.Token)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.JSONEq(t, `{"error":"invalid token"}`, rec.Body.String())
}

func TestRequireRole(t *testing.T) {
	e := newProtected(t, JWTAuth(secret), RequireRole(model.RoleOwner, model.RoleAdmin))

	tenant, _ := utils.NewAccessToken(secret, 3, model.RoleTenant, 5)
	rec := do(e, tenant.Token)
	require.Equal(t, http.StatusForbidden, rec.Code)
	require.JSONEq(t, `{"error":"forbidden"}`, rec.Body.String())

	owner, _ := utils.NewAccessToken(secret, 4, model.RoleOwner, 5)
	require.Equal(t, http.StatusOK, do(e, owner.Token).Code)
}

func TestAnonymousIdentity(t *testing.T) {
	rec := do(newProtected(t), "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"id":0,"ok":false,"role":"","admin":false}`, rec.Body.String())
}

func TestCacheKeyDistinguishesPaths(t *testing.T) {
	cfg := config.CacheConfig{Prefix: "atypik:cache", KeyStrategy: "path_query"}
	e := echo.New()
	key := func(target string) string {
		c := e.NewContext(httptest.NewRequest(http.MethodGet, target, nil), httptest.NewRecorder())
		c.SetPath("/api/properties/:id")
		return cacheKeyFrom(cfg, c)
	}
	require.NotEqual(t, key("/api/properties/1"), key("/api/properties/2"))
	require.Equal(t, key("/api/properties/1?x=1"), key("/api/properties/1?x=1"))
	require.Regexp(t, `^atypik:cache:[0-9a-f]{40}$`, key("/api/properties/1"))

	cfg.KeyStrategy = "route_query"
	require.Equal(t, key("/api/properties/1"), key("/api/properties/2"))
}

func TestPayloadRoundTrip(t *testing.T) {
	hdr := http.Header{"Content-Type": {"application/json"}}
	bs, err := encodePayload(http.StatusOK, hdr, []byte(`{"a":1}`))
	require.NoError(t, err)

	status, got, body, ok := decodePayload(bs)
	require.True(t, ok)
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, "application/json", got.Get("Content-Type"))
	require.Equal(t, `{"a":1}`, string(body))

	_, _, _, ok = decodePayload([]byte{0, 0})
	require.False(t, ok)
}

func TestDisabledMiddlewaresPassThrough(t *testing.T) {
	log, _ := test.NewNullLogger()
	e := newProtected(t,
		NewRedisCache(config.CacheConfig{Enabled: false}, nil),
		NewTokenBucket(config.RateLimitConfig{Enabled: true}, nil, log),
	)
	rec := do(e, "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Empty(t, rec.Header().Get("X-Cache"))
}

func TestBuildRateKey(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", nil)
	req.Header.Set(echo.HeaderXRealIP, "10.0.0.1")
	c := e.NewContext(req, httptest.NewRecorder())
	c.SetPath("/api/auth/login")

	cfg := config.RateLimitConfig{Prefix: "rl", KeyStrategy: "ip_route"}
	require.Equal(t, "rl:ip:10.0.0.1:route:POST /api/auth/login", buildRateKey(cfg, c))

	c.Set(ctxUserID, uint64(9))
	cfg.KeyStrategy = ""
	require.Equal(t, "rl:ip:10.0.0.1:user:9:route:POST /api/auth/login", buildRateKey(cfg, c))
}

func TestRequestLogger(t *testing.T) {
	log, hook := test.NewNullLogger()
	e := echo.New()
	e.GET("/boom", func(c echo.Context) error {
		return echo.NewHTTPError(http.StatusTeapot, "nope")
	}, RequestLogger(log))

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/boom", nil))
	require.Equal(t, http.StatusTeapot, rec.Code)

	require.Len(t, hook.Entries, 1)
	entry := hook.LastEntry()
	require.Equal(t, logrus.WarnLevel, entry.Level)
	require.Equal(t, http.StatusTeapot, entry.Data["status"])
	require.Equal(t, "/boom", entry.Data["route"])
	require.Equal(t, "anon", entry.Data["user"])
}
