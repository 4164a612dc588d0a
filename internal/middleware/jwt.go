package middleware

import (
	"net/http" // status codes for the 401 responses
	"strings"  // bearer prefix handling

	"github.com/labstack/echo/v4" // Echo middleware signature

	"github.com/iliyamo/atypikhouse/internal/utils" // access token parsing
)

// Context keys set by JWTAuth.
const (
	ctxUserID = "user_id"
	ctxRole   = "role"
)

// JWTAuth validates a Bearer access token and stores the caller's id
// (uint64) and role in the context under "user_id" and "role".
func JWTAuth(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			// The header must read "Bearer <jwt>"; anything else is a 401.
			auth := c.Request().Header.Get("Authorization")
			if !strings.HasPrefix(auth, "Bearer ") {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing bearer token"})
			}
			// Parse and verify the HS256 signature, expiry and claims.
			claims, err := utils.ParseAccessToken(secret, strings.TrimPrefix(auth, "Bearer "))
			if err != nil {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token"})
			}
			// sub was validated by ParseAccessToken, so the error is nil here.
			id, _ := claims.UserID()
			// Handlers read these back through UserID / Role / IsAdmin.
			c.Set(ctxUserID, id)
			c.Set(ctxRole, claims.Role)
			return next(c) // continue down the chain
		}
	}
}
