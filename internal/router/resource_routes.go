package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/workspace-reservation/internal/handler"
	"github.com/iliyamo/workspace-reservation/internal/middleware"
)

// RegisterResources registers /api/resources.  Catalog reads are open to
// every authenticated user and go through the response cache; writes and
// policy changes need an admin role.
func RegisterResources(e *echo.Echo, h *handler.ResourceHandler, g Guards) {
	grp := e.Group("/api/resources", g.auth()...)
	admin := middleware.RequireAdmin()
	cached := g.cached()

	grp.GET("", h.List, cached...)
	grp.GET("/bookable", h.Bookable, cached...)
	grp.GET("/type/:type", h.ByType, cached...)
	grp.GET("/floor/:id", h.ByFloor, cached...)
	grp.GET("/building/:id", h.ByBuilding, cached...)
	grp.GET("/department/:id", h.ByDepartment, cached...)
	grp.GET("/:id", h.Get, cached...)

	grp.GET("/desks/assignable", h.AssignableDesks, admin)
	grp.GET("/desks/assignable/department/:id", h.AssignableDesks, admin)

	grp.POST("", h.Create, admin)
	grp.PUT("/:id", h.Update, admin)
	grp.DELETE("/:id", h.SoftDelete, admin)
	grp.DELETE("/:id/hard", h.HardDelete, admin)
	grp.PATCH("/desks/:id/mode", h.ChangeDeskMode, admin)
	grp.PATCH("/rooms/:id/booking-type", h.ChangeRoomBookingType, admin)
}

// RegisterDeskAssignments registers /api/desk-assignments; every route
// needs an admin role.
func RegisterDeskAssignments(e *echo.Echo, h *handler.DeskAssignmentHandler, g Guards) {
	grp := e.Group("/api/desk-assignments", append(g.auth(), middleware.RequireAdmin())...)

	grp.POST("", h.Create)
	grp.GET("", h.List)
	grp.GET("/desk/:id", h.ByDesk)
	grp.GET("/user/:id", h.ByUser)
	grp.GET("/department/:id", h.ByDepartment)
	grp.GET("/:id", h.Get)
	grp.PUT("/:id", h.Update)
	grp.DELETE("/:id", h.Delete)
}
