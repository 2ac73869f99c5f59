package middleware // middleware provides shared request processing for handlers

import (
	"net/http" // http package defines standard HTTP status codes

	"github.com/labstack/echo/v4" // echo provides middleware chaining and context

	"github.com/iliyamo/workspace-reservation/internal/model"
)

// RequireRole returns a middleware that lets the request through only when
// the authenticated caller holds one of roles.  It must run after JWTAuth;
// a request without a principal is rejected like a wrong role, with 403.
func RequireRole(roles ...model.Role) echo.MiddlewareFunc {
	// Build a set of allowed roles for constant-time lookups.
	allowed := make(map[model.Role]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			p, ok := PrincipalFrom(c)
			if !ok || !allowed[p.Role] {
				return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden", "message": "insufficient role"})
			}
			return next(c)
		}
	}
}

// RequireAdmin admits SYSTEM_ADMIN and DEPT_ADMIN callers.
func RequireAdmin() echo.MiddlewareFunc {
	return RequireRole(model.RoleSystemAdmin, model.RoleDeptAdmin)
}
