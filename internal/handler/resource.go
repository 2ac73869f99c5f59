package handler

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/workspace-reservation/internal/model"
	"github.com/iliyamo/workspace-reservation/internal/service"
)

// ResourceHandler serves the resource catalog.  Reads are open to any
// authenticated user; writes are gated to administrators in the router.
type ResourceHandler struct {
	Catalog *service.Catalog
}

// NewResourceHandler constructs a ResourceHandler; catalog must be non-nil.
func NewResourceHandler(catalog *service.Catalog) *ResourceHandler {
	if catalog == nil {
		panic("nil catalog passed to NewResourceHandler")
	}
	return &ResourceHandler{Catalog: catalog}
}

type resourceRequest struct {
	ResourceNumber string  `json:"resourceNumber" validate:"required,max=64"`
	Name           string  `json:"name" validate:"required,max=255"`
	Type           string  `json:"type" validate:"required,oneof=ROOM DESK PARKING"`
	Capacity       int     `json:"capacity" validate:"required,min=1"`
	BuildingID     *uint64 `json:"buildingId"`
	FloorID        *uint64 `json:"floorId"`
	DepartmentID   *uint64 `json:"departmentId"`
	BookingType    *string `json:"bookingType" validate:"omitempty,oneof=EXCLUSIVE SHARED"`
	DeskMode       *string `json:"deskMode" validate:"omitempty,oneof=ASSIGNED HOT_DESK"`
	Active         *bool   `json:"active"`
}

func (r resourceRequest) input() service.ResourceInput {
	in := service.ResourceInput{
		ResourceNumber: r.ResourceNumber,
		Name:           r.Name,
		Type:           model.ResourceType(r.Type),
		Capacity:       r.Capacity,
		BuildingID:     r.BuildingID,
		FloorID:        r.FloorID,
		DepartmentID:   r.DepartmentID,
		Active:         r.Active,
	}
	if r.BookingType != nil {
		bt := model.BookingType(*r.BookingType)
		in.BookingType = &bt
	}
	if r.DeskMode != nil {
		dm := model.DeskMode(*r.DeskMode)
		in.DeskMode = &dm
	}
	return in
}

func (h *ResourceHandler) list(c echo.Context, f model.ResourceFilter) error {
	if c.QueryParam("active") == "true" {
		f.ActiveOnly = true
	}
	out, err := h.Catalog.List(c.Request().Context(), f)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

// List handles GET /api/resources.  Optional query parameters: type,
// buildingId, floorId, departmentId, active=true.
func (h *ResourceHandler) List(c echo.Context) error {
	var (
		f   model.ResourceFilter
		err error
	)
	if t := strings.ToUpper(c.QueryParam("type")); t != "" {
		rt := model.ResourceType(t)
		if !rt.Valid() {
			return writeError(c, invalidQuery("type must be ROOM, DESK or PARKING"))
		}
		f.Type = &rt
	}
	if f.BuildingID, err = queryID(c, "buildingId"); err != nil {
		return writeError(c, err)
	}
	if f.FloorID, err = queryID(c, "floorId"); err != nil {
		return writeError(c, err)
	}
	if f.DepartmentID, err = queryID(c, "departmentId"); err != nil {
		return writeError(c, err)
	}
	return h.list(c, f)
}

// ByType handles GET /api/resources/type/:type.
func (h *ResourceHandler) ByType(c echo.Context) error {
	rt := model.ResourceType(strings.ToUpper(c.Param("type")))
	if !rt.Valid() {
		return writeError(c, invalidQuery("type must be ROOM, DESK or PARKING"))
	}
	return h.list(c, model.ResourceFilter{Type: &rt})
}

// ByFloor handles GET /api/resources/floor/:id.
func (h *ResourceHandler) ByFloor(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return writeError(c, err)
	}
	return h.list(c, model.ResourceFilter{FloorID: &id})
}

// ByBuilding handles GET /api/resources/building/:id.
func (h *ResourceHandler) ByBuilding(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return writeError(c, err)
	}
	return h.list(c, model.ResourceFilter{BuildingID: &id})
}

// ByDepartment handles GET /api/resources/department/:id.
func (h *ResourceHandler) ByDepartment(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return writeError(c, err)
	}
	return h.list(c, model.ResourceFilter{DepartmentID: &id})
}

// Bookable handles GET /api/resources/bookable.  The type query parameter
// narrows the result.
func (h *ResourceHandler) Bookable(c echo.Context) error {
	var f model.ResourceFilter
	if t := strings.ToUpper(c.QueryParam("type")); t != "" {
		rt := model.ResourceType(t)
		if !rt.Valid() {
			return writeError(c, invalidQuery("type must be ROOM, DESK or PARKING"))
		}
		f.Type = &rt
	}
	out, err := h.Catalog.ListBookable(c.Request().Context(), f)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

// AssignableDesks handles GET /api/resources/desks/assignable and
// GET /api/resources/desks/assignable/department/:id.
func (h *ResourceHandler) AssignableDesks(c echo.Context) error {
	var dept *uint64
	if c.Param("id") != "" {
		id, err := pathID(c, "id")
		if err != nil {
			return writeError(c, err)
		}
		dept = &id
	}
	out, err := h.Catalog.AssignableDesks(c.Request().Context(), dept)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

// Get handles GET /api/resources/:id.
func (h *ResourceHandler) Get(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return writeError(c, err)
	}
	r, err := h.Catalog.Get(c.Request().Context(), id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, r)
}

// Create handles POST /api/resources.
func (h *ResourceHandler) Create(c echo.Context) error {
	var req resourceRequest
	if err := bind(c, &req); err != nil {
		return writeError(c, err)
	}
	r, err := h.Catalog.Create(c.Request().Context(), req.input())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, r)
}

// Update handles PUT /api/resources/:id.  Policy fields (bookingType,
// deskMode) are ignored here; they change through the dedicated routes.
func (h *ResourceHandler) Update(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return writeError(c, err)
	}
	var req resourceRequest
	if err := bind(c, &req); err != nil {
		return writeError(c, err)
	}
	r, err := h.Catalog.Update(c.Request().Context(), id, req.input())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, r)
}

// SoftDelete handles DELETE /api/resources/:id by deactivating the resource.
func (h *ResourceHandler) SoftDelete(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return writeError(c, err)
	}
	if err := h.Catalog.SoftDelete(c.Request().Context(), id); err != nil {
		return writeError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// HardDelete handles DELETE /api/resources/:id/hard.  It answers 409 while
// future bookings, active assignments or open waitlist entries remain.
func (h *ResourceHandler) HardDelete(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return writeError(c, err)
	}
	if err := h.Catalog.HardDelete(c.Request().Context(), id); err != nil {
		return writeError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// ChangeDeskMode handles PATCH /api/resources/desks/:id/mode?newMode=.
func (h *ResourceHandler) ChangeDeskMode(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return writeError(c, err)
	}
	mode := model.DeskMode(strings.ToUpper(c.QueryParam("newMode")))
	r, err := h.Catalog.ChangeDeskMode(c.Request().Context(), id, mode)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, r)
}

// ChangeRoomBookingType handles
// PATCH /api/resources/rooms/:id/booking-type?newBookingType=.
func (h *ResourceHandler) ChangeRoomBookingType(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return writeError(c, err)
	}
	bt := model.BookingType(strings.ToUpper(c.QueryParam("newBookingType")))
	r, err := h.Catalog.ChangeRoomBookingType(c.Request().Context(), id, bt)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, r)
}
