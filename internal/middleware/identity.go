package middleware

import (
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/atypikhouse/internal/model"
)

// UserID returns the authenticated caller's id.  ok is false on routes
// not behind JWTAuth.
func UserID(c echo.Context) (uint64, bool) {
	id, ok := c.Get(ctxUserID).(uint64)
	return id, ok && id != 0
}

// Role returns the caller's role claim, or "" when anonymous.
func Role(c echo.Context) string {
	r, _ := c.Get(ctxRole).(string)
	return r
}

func IsAdmin(c echo.Context) bool { return Role(c) == model.RoleAdmin }

// identity is the rate-limit and log key for the caller.
func identity(c echo.Context) string {
	if id, ok := UserID(c); ok {
		return strconv.FormatUint(id, 10)
	}
	return "anon"
}
