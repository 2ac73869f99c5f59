package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/workspace-reservation/internal/model"
	"github.com/iliyamo/workspace-reservation/internal/service"
)

// BookingHandler serves the booking ledger and the best-slots search.  All
// routes run behind JWTAuth; admin-only listings are gated in the router.
type BookingHandler struct {
	Ledger         *service.Ledger
	BestSlotsLimit int
}

// NewBookingHandler constructs a BookingHandler; ledger must be non-nil.
func NewBookingHandler(ledger *service.Ledger, bestSlotsLimit int) *BookingHandler {
	if ledger == nil {
		panic("nil ledger passed to NewBookingHandler")
	}
	if bestSlotsLimit < 1 {
		bestSlotsLimit = 50
	}
	return &BookingHandler{Ledger: ledger, BestSlotsLimit: bestSlotsLimit}
}

type createBookingRequest struct {
	ResourceID uint64    `json:"resourceId" validate:"required"`
	StartUTC   time.Time `json:"startUtc" validate:"required"`
	EndUTC     time.Time `json:"endUtc" validate:"required"`
}

// Create handles POST /api/bookings.  The booking is made for the caller.
// It returns 201 with the booking, 409 when the window is taken and 400 for
// an invalid window.
func (h *BookingHandler) Create(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	var req createBookingRequest
	if err := bind(c, &req); err != nil {
		return writeError(c, err)
	}
	b, err := h.Ledger.CreateBooking(c.Request().Context(), req.ResourceID, p.UserID, req.StartUTC, req.EndUTC)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, b)
}

// Cancel handles POST and PATCH /api/bookings/:id/cancel.  Owners cancel
// their own bookings; administrators may cancel any.
func (h *BookingHandler) Cancel(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return writeError(c, err)
	}
	b, err := h.Ledger.CancelBooking(c.Request().Context(), id, p)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, b)
}

// Get handles GET /api/bookings/:id.
func (h *BookingHandler) Get(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return writeError(c, err)
	}
	b, err := h.Ledger.Get(c.Request().Context(), id, p)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, b)
}

// bookingFilter reads the optional status, start and end query parameters.
func bookingFilter(c echo.Context) (model.BookingFilter, error) {
	var f model.BookingFilter
	if s := strings.ToUpper(c.QueryParam("status")); s != "" {
		st := model.BookingStatus(s)
		if st != model.BookingConfirmed && st != model.BookingCancelled {
			return f, invalidQuery("status must be CONFIRMED or CANCELLED")
		}
		f.Status = &st
	}
	var err error
	if f.From, err = queryTime(c, "start"); err != nil {
		return f, err
	}
	if f.To, err = queryTime(c, "end"); err != nil {
		return f, err
	}
	return f, nil
}

func (h *BookingHandler) list(c echo.Context, f model.BookingFilter) error {
	out, err := h.Ledger.List(c.Request().Context(), f)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

// List handles GET /api/bookings (administrators).  Optional query
// parameters: resourceId, userId, status, start, end.
func (h *BookingHandler) List(c echo.Context) error {
	f, err := bookingFilter(c)
	if err != nil {
		return writeError(c, err)
	}
	if f.ResourceID, err = queryID(c, "resourceId"); err != nil {
		return writeError(c, err)
	}
	if f.UserID, err = queryID(c, "userId"); err != nil {
		return writeError(c, err)
	}
	return h.list(c, f)
}

// Mine handles GET /api/bookings/my.
func (h *BookingHandler) Mine(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	f, err := bookingFilter(c)
	if err != nil {
		return writeError(c, err)
	}
	f.UserID = &p.UserID
	return h.list(c, f)
}

// ByResource handles GET /api/bookings/resource/:id.  Any authenticated
// user may see a resource's bookings to judge availability.
func (h *BookingHandler) ByResource(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return writeError(c, err)
	}
	f, err := bookingFilter(c)
	if err != nil {
		return writeError(c, err)
	}
	f.ResourceID = &id
	return h.list(c, f)
}

// ByUser handles GET /api/bookings/user/:id (administrators).
func (h *BookingHandler) ByUser(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return writeError(c, err)
	}
	f, err := bookingFilter(c)
	if err != nil {
		return writeError(c, err)
	}
	f.UserID = &id
	return h.list(c, f)
}

// InRange handles GET /api/bookings/range?start=&end=.  Both bounds are
// required.
func (h *BookingHandler) InRange(c echo.Context) error {
	f, err := bookingFilter(c)
	if err != nil {
		return writeError(c, err)
	}
	if f.From == nil || f.To == nil {
		return writeError(c, invalidQuery("start and end are required"))
	}
	return h.list(c, f)
}

type resourceCriteria struct {
	Type         string  `json:"type" validate:"omitempty,oneof=ROOM DESK PARKING"`
	BuildingID   *uint64 `json:"buildingId"`
	FloorID      *uint64 `json:"floorId"`
	DepartmentID *uint64 `json:"departmentId"`
	MinCapacity  int     `json:"minCapacity" validate:"gte=0"`
}

func (rc resourceCriteria) filter() model.ResourceFilter {
	f := model.ResourceFilter{
		BuildingID:   rc.BuildingID,
		FloorID:      rc.FloorID,
		DepartmentID: rc.DepartmentID,
		MinCapacity:  rc.MinCapacity,
	}
	if rc.Type != "" {
		t := model.ResourceType(rc.Type)
		f.Type = &t
	}
	return f
}

type bestSlotsRequest struct {
	Date             string           `json:"date" validate:"required"`
	DurationMinutes  int              `json:"durationMinutes" validate:"required,min=1,max=1440"`
	ResourceCriteria resourceCriteria `json:"resourceCriteria"`
	Limit            int              `json:"limit" validate:"gte=0"`
}

// parseDay accepts a calendar date (2006-01-02) or a full RFC 3339 timestamp.
func parseDay(s string) (time.Time, error) {
	if t, err := time.Parse(time.DateOnly, s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, invalidQuery("date must be YYYY-MM-DD or an RFC 3339 timestamp")
	}
	return t.UTC(), nil
}

// BestSlots handles POST /api/bookings/best-slots.  It returns up to limit
// free windows, earliest first and by resource id on ties.
func (h *BookingHandler) BestSlots(c echo.Context) error {
	var req bestSlotsRequest
	if err := bind(c, &req); err != nil {
		return writeError(c, err)
	}
	day, err := parseDay(req.Date)
	if err != nil {
		return writeError(c, err)
	}
	limit := h.BestSlotsLimit
	if req.Limit > 0 && req.Limit < limit {
		limit = req.Limit
	}

	seq, err := h.Ledger.BestSlots(c.Request().Context(), model.SlotQuery{
		Date:            day,
		DurationMinutes: req.DurationMinutes,
		Criteria:        req.ResourceCriteria.filter(),
	})
	if err != nil {
		return writeError(c, err)
	}
	out := make([]model.Slot, 0, limit)
	for s := range seq {
		out = append(out, s)
		if len(out) == limit {
			break
		}
	}
	return c.JSON(http.StatusOK, out)
}
