package middleware // declare the middleware package; contains reusable HTTP middleware functions

import (
	"net/http" // HTTP status codes for responses
	"strings"  // string utilities for prefix checking and trimming

	"github.com/labstack/echo/v4" // Echo framework used for defining middleware and handlers

	"github.com/iliyamo/workspace-reservation/internal/model" // Principal and Role
	"github.com/iliyamo/workspace-reservation/internal/utils" // token verification
)

// Context keys under which JWTAuth stores the caller's identity.
const (
	ctxPrincipal = "principal"
	ctxUserID    = "user_id"
	ctxRole      = "role"
)

// JWTAuth returns an Echo middleware that validates an HS256 access token
// issued by the identity provider and stores the caller's Principal in the
// request context.  The token is read from the "Authorization: Bearer"
// header; when allowQuery is set an "access_token" query parameter is
// accepted too, since browsers cannot set headers on websocket upgrades.
func JWTAuth(secret string, allowQuery bool) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw := ""
			if auth := c.Request().Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
				raw = strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
			} else if allowQuery {
				raw = c.QueryParam("access_token")
			}
			if raw == "" {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized", "message": "missing bearer token"})
			}

			claims, err := utils.ParseAccessToken(secret, raw)
			if err != nil {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized", "message": "invalid token"})
			}

			// Store the principal plus the flat user_id/role values the
			// rate limiter and request log read.
			p := model.Principal{UserID: claims.UserID, Role: model.Role(claims.Role)}
			c.Set(ctxPrincipal, p)
			c.Set(ctxUserID, p.UserID)
			c.Set(ctxRole, string(p.Role))
			return next(c)
		}
	}
}
