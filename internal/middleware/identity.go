package middleware

// identity.go holds the helpers that read the caller's identity back out of
// the Echo context once JWTAuth has run.

import (
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/workspace-reservation/internal/model"
)

// PrincipalFrom returns the authenticated caller.  ok is false on routes
// that are not behind JWTAuth.
func PrincipalFrom(c echo.Context) (model.Principal, bool) {
	p, ok := c.Get(ctxPrincipal).(model.Principal)
	return p, ok
}

// userID returns the caller's id as a string for cache and rate-limit keys,
// or "guest" when no user is authenticated.
func userID(c echo.Context) string {
	if id, ok := c.Get(ctxUserID).(uint64); ok && id != 0 {
		return strconv.FormatUint(id, 10)
	}
	return "guest"
}
