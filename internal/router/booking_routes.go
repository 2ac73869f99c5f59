package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/workspace-reservation/internal/handler"
	"github.com/iliyamo/workspace-reservation/internal/middleware"
)

// RegisterBookings registers /api/bookings.  Any authenticated role may
// book and manage its own bookings; cross-user listings need an admin role.
func RegisterBookings(e *echo.Echo, h *handler.BookingHandler, g Guards) {
	grp := e.Group("/api/bookings", g.auth()...)
	admin := middleware.RequireAdmin()

	grp.POST("", h.Create)
	grp.POST("/best-slots", h.BestSlots)
	grp.GET("/my", h.Mine)
	grp.GET("/resource/:id", h.ByResource)
	grp.GET("/:id", h.Get)
	// The frontend has used both verbs for cancellation.
	grp.POST("/:id/cancel", h.Cancel)
	grp.PATCH("/:id/cancel", h.Cancel)

	grp.GET("", h.List, admin)
	grp.GET("/user/:id", h.ByUser, admin)
	grp.GET("/range", h.InRange, admin)
}

// RegisterWaitlist registers /api/waitlist.
func RegisterWaitlist(e *echo.Echo, h *handler.WaitlistHandler, g Guards) {
	grp := e.Group("/api/waitlist", g.auth()...)

	grp.POST("/join", h.Join)
	grp.POST("/leave/:id", h.Leave)
	grp.DELETE("/leave/:id", h.Leave)
	grp.GET("/my", h.Mine)
	grp.GET("/offers", h.Offers)
	grp.POST("/offers/:id/accept", h.Accept)
	grp.POST("/offers/:id/decline", h.Decline)
	grp.GET("/:id", h.Get)

	grp.GET("", h.List, middleware.RequireAdmin())
}
