package middleware

import (
	"time"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
)

// RequestLogger writes one structured line per request.  5xx log at
// error level, 4xx at warn.
func RequestLogger(log logrus.FieldLogger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			if err != nil {
				c.Error(err)
			}
			res := c.Response()
			entry := log.WithFields(logrus.Fields{
				"method":     c.Request().Method,
				"route":      c.Path(),
				"uri":        c.Request().RequestURI,
				"status":     res.Status,
				"latency_ms": time.Since(start).Milliseconds(),
				"request_id": res.Header().Get(echo.HeaderXRequestID),
				"user":       identity(c),
				"ip":         c.RealIP(),
			})
			switch {
			case res.Status >= 500:
				entry.WithError(err).Error("request")
			case res.Status >= 400:
				entry.Warn("request")
			default:
				entry.Info("request")
			}
			return nil
		}
	}
}
