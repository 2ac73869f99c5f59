package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/workspace-reservation/internal/handler"
	"github.com/iliyamo/workspace-reservation/internal/middleware"
)

// Guards carries the middleware route groups are built with.  RateLimit and
// Cache may be nil.
type Guards struct {
	JWTSecret string
	RateLimit echo.MiddlewareFunc
	Cache     echo.MiddlewareFunc
}

func (g Guards) auth() []echo.MiddlewareFunc {
	mw := []echo.MiddlewareFunc{middleware.JWTAuth(g.JWTSecret, false)}
	if g.RateLimit != nil {
		mw = append(mw, g.RateLimit)
	}
	return mw
}

func (g Guards) cached() []echo.MiddlewareFunc {
	if g.Cache == nil {
		return nil
	}
	return []echo.MiddlewareFunc{g.Cache}
}

// Handlers groups every HTTP handler the API exposes.
type Handlers struct {
	Health      *handler.HealthHandler
	Bookings    *handler.BookingHandler
	Waitlist    *handler.WaitlistHandler
	Resources   *handler.ResourceHandler
	Assignments *handler.DeskAssignmentHandler
	WebSocket   *handler.WebSocketHandler // optional
}

// RegisterRoutes registers the whole API on e.
func RegisterRoutes(e *echo.Echo, h Handlers, g Guards) {
	// Liveness for load balancers; no authentication.
	e.GET("/healthz", h.Health.Health)

	RegisterBookings(e, h.Bookings, g)
	RegisterWaitlist(e, h.Waitlist, g)
	RegisterResources(e, h.Resources, g)
	RegisterDeskAssignments(e, h.Assignments, g)

	admin := e.Group("/api/admin", append(g.auth(), middleware.RequireAdmin())...)
	admin.POST("/jobs/expire-offers", h.Waitlist.ExpireOffers)

	if h.WebSocket != nil {
		// Browsers cannot set headers on an upgrade, so the token may come
		// in the query string here.
		e.GET("/api/ws", h.WebSocket.Serve, middleware.JWTAuth(g.JWTSecret, true))
	}
}
