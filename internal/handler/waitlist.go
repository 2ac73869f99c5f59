package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/workspace-reservation/internal/model"
	"github.com/iliyamo/workspace-reservation/internal/service"
)

// WaitlistHandler serves waitlist membership and offer responses.
type WaitlistHandler struct {
	Waitlist *service.Waitlist
}

// NewWaitlistHandler constructs a WaitlistHandler; waitlist must be non-nil.
func NewWaitlistHandler(waitlist *service.Waitlist) *WaitlistHandler {
	if waitlist == nil {
		panic("nil waitlist passed to NewWaitlistHandler")
	}
	return &WaitlistHandler{Waitlist: waitlist}
}

type joinWaitlistRequest struct {
	ResourceID uint64    `json:"resourceId" validate:"required"`
	StartUTC   time.Time `json:"startUtc" validate:"required"`
	EndUTC     time.Time `json:"endUtc" validate:"required"`
}

// Join handles POST /api/waitlist/join.  It returns 201 with the entry and
// 409 duplicate_entry when the caller already waits for the same window.
func (h *WaitlistHandler) Join(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	var req joinWaitlistRequest
	if err := bind(c, &req); err != nil {
		return writeError(c, err)
	}
	e, err := h.Waitlist.Join(c.Request().Context(), req.ResourceID, p.UserID, req.StartUTC, req.EndUTC)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, e)
}

// Leave handles POST and DELETE /api/waitlist/leave/:id.
func (h *WaitlistHandler) Leave(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return writeError(c, err)
	}
	if err := h.Waitlist.Leave(c.Request().Context(), id, p); err != nil {
		return writeError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// Offers handles GET /api/waitlist/offers: the caller's offers that can
// still be accepted.
func (h *WaitlistHandler) Offers(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	out, err := h.Waitlist.MyOffers(c.Request().Context(), p.UserID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

// Accept handles POST /api/waitlist/offers/:id/accept.  It returns 201 with
// the new booking, 410 when the offer lapsed and 409 when the window was
// taken meanwhile (the entry then waits again).
func (h *WaitlistHandler) Accept(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return writeError(c, err)
	}
	b, err := h.Waitlist.AcceptOffer(c.Request().Context(), id, p)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, b)
}

// Decline handles POST /api/waitlist/offers/:id/decline and returns the
// resolved entry.
func (h *WaitlistHandler) Decline(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return writeError(c, err)
	}
	ctx := c.Request().Context()
	if err := h.Waitlist.DeclineOffer(ctx, id, p); err != nil {
		return writeError(c, err)
	}
	e, err := h.Waitlist.Get(ctx, id, p)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, e)
}

// Get handles GET /api/waitlist/:id.
func (h *WaitlistHandler) Get(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return writeError(c, err)
	}
	e, err := h.Waitlist.Get(c.Request().Context(), id, p)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, e)
}

// Mine handles GET /api/waitlist/my: the caller's open entries.
func (h *WaitlistHandler) Mine(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	out, err := h.Waitlist.MyEntries(c.Request().Context(), p.UserID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

// List handles GET /api/waitlist (administrators).  Optional query
// parameters: resourceId, userId and status (comma separated).
func (h *WaitlistHandler) List(c echo.Context) error {
	var (
		f   model.WaitlistFilter
		err error
	)
	if f.ResourceID, err = queryID(c, "resourceId"); err != nil {
		return writeError(c, err)
	}
	if f.UserID, err = queryID(c, "userId"); err != nil {
		return writeError(c, err)
	}
	if raw := c.QueryParam("status"); raw != "" {
		for _, s := range strings.Split(raw, ",") {
			st := model.EntryStatus(strings.ToUpper(strings.TrimSpace(s)))
			switch st {
			case model.EntryWaiting, model.EntryOffered, model.EntryAccepted, model.EntryDeclined, model.EntryExpired:
				f.Statuses = append(f.Statuses, st)
			default:
				return writeError(c, invalidQuery("unknown status "+string(st)))
			}
		}
	}
	out, err := h.Waitlist.List(c.Request().Context(), f)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

// ExpireOffers handles POST /api/admin/jobs/expire-offers: an on-demand
// run of the offer expiry sweep.  Resources that were busy are left to the
// next scheduled run.
func (h *WaitlistHandler) ExpireOffers(c echo.Context) error {
	n, err := h.Waitlist.ExpireStaleOffers(c.Request().Context())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"expired": n})
}
