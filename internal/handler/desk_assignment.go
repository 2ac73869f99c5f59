package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/workspace-reservation/internal/model"
	"github.com/iliyamo/workspace-reservation/internal/service"
)

// DeskAssignmentHandler serves long-term desk assignments.  Every route is
// administrator-only.
type DeskAssignmentHandler struct {
	Assignments *service.Assignments
}

// NewDeskAssignmentHandler constructs a DeskAssignmentHandler; assignments
// must be non-nil.
func NewDeskAssignmentHandler(assignments *service.Assignments) *DeskAssignmentHandler {
	if assignments == nil {
		panic("nil assignments passed to NewDeskAssignmentHandler")
	}
	return &DeskAssignmentHandler{Assignments: assignments}
}

type assignmentRequest struct {
	DeskID   uint64     `json:"deskId"`
	UserID   uint64     `json:"userId" validate:"required"`
	StartUTC time.Time  `json:"startUtc" validate:"required"`
	EndUTC   *time.Time `json:"endUtc"`
}

// Create handles POST /api/desk-assignments.
func (h *DeskAssignmentHandler) Create(c echo.Context) error {
	var req assignmentRequest
	if err := bind(c, &req); err != nil {
		return writeError(c, err)
	}
	if req.DeskID == 0 {
		return writeError(c, invalidQuery("deskId is required"))
	}
	a, err := h.Assignments.Create(c.Request().Context(), req.DeskID, req.UserID, req.StartUTC, req.EndUTC)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, a)
}

// Update handles PUT /api/desk-assignments/:id.  The desk cannot change;
// move a user by deleting and recreating the assignment.
func (h *DeskAssignmentHandler) Update(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return writeError(c, err)
	}
	var req assignmentRequest
	if err := bind(c, &req); err != nil {
		return writeError(c, err)
	}
	a, err := h.Assignments.Update(c.Request().Context(), id, req.UserID, req.StartUTC, req.EndUTC)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, a)
}

// Delete handles DELETE /api/desk-assignments/:id.
func (h *DeskAssignmentHandler) Delete(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return writeError(c, err)
	}
	if err := h.Assignments.Delete(c.Request().Context(), id); err != nil {
		return writeError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// Get handles GET /api/desk-assignments/:id.
func (h *DeskAssignmentHandler) Get(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return writeError(c, err)
	}
	a, err := h.Assignments.Get(c.Request().Context(), id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, a)
}

func (h *DeskAssignmentHandler) list(c echo.Context, f model.AssignmentFilter) error {
	out, err := h.Assignments.List(c.Request().Context(), f)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

// List handles GET /api/desk-assignments.
func (h *DeskAssignmentHandler) List(c echo.Context) error {
	return h.list(c, model.AssignmentFilter{})
}

// ByDesk handles GET /api/desk-assignments/desk/:id.
func (h *DeskAssignmentHandler) ByDesk(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return writeError(c, err)
	}
	return h.list(c, model.AssignmentFilter{DeskID: &id})
}

// ByUser handles GET /api/desk-assignments/user/:id.
func (h *DeskAssignmentHandler) ByUser(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return writeError(c, err)
	}
	return h.list(c, model.AssignmentFilter{UserID: &id})
}

// ByDepartment handles GET /api/desk-assignments/department/:id.
func (h *DeskAssignmentHandler) ByDepartment(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return writeError(c, err)
	}
	out, err := h.Assignments.ListByDepartment(c.Request().Context(), id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}
