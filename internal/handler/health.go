package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

// Pinger is anything whose reachability the health check reports, such as
// *sql.DB or a Redis client adapter.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// HealthHandler reports liveness plus the state of the backing stores.
type HealthHandler struct {
	checks map[string]Pinger
}

// NewHealthHandler builds a handler for the named dependencies; nil
// entries are skipped.
func NewHealthHandler(checks map[string]Pinger) *HealthHandler {
	h := &HealthHandler{checks: map[string]Pinger{}}
	for name, p := range checks {
		if p != nil {
			h.checks[name] = p
		}
	}
	return h
}

// Health handles GET /healthz.  It answers 200 when every dependency
// responds within two seconds and 503 otherwise.
func (h *HealthHandler) Health(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
	defer cancel()

	status := http.StatusOK
	deps := make(map[string]string, len(h.checks))
	for name, p := range h.checks {
		if err := p.PingContext(ctx); err != nil {
			deps[name] = "down"
			status = http.StatusServiceUnavailable
			continue
		}
		deps[name] = "up"
	}
	state := "ok"
	if status != http.StatusOK {
		state = "degraded"
	}
	return c.JSON(status, echo.Map{"status": state, "dependencies": deps})
}
