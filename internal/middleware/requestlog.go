package middleware

import (
	"time"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
)

// RequestLogger logs one line per request with method, path, status,
// latency and the caller when known.  Server errors log at Error, client
// errors at Info, everything else at Debug.
func RequestLogger(log logrus.FieldLogger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			if err != nil {
				// Let echo's error handler write the response so the
				// logged status matches what the client saw.
				c.Error(err)
			}

			status := c.Response().Status
			entry := log.WithFields(logrus.Fields{
				"method":     c.Request().Method,
				"path":       c.Request().URL.Path,
				"route":      c.Path(),
				"status":     status,
				"latency_ms": time.Since(start).Milliseconds(),
				"remote_ip":  c.RealIP(),
			})
			if p, ok := PrincipalFrom(c); ok {
				entry = entry.WithFields(logrus.Fields{"user_id": p.UserID, "role": p.Role})
			}
			if err != nil {
				entry = entry.WithError(err)
			}
			switch {
			case status >= 500:
				entry.Error("request failed")
			case status >= 400:
				entry.Info("request rejected")
			default:
				entry.Debug("request served")
			}
			return nil
		}
	}
}
