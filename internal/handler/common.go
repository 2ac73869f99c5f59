package handler // handler defines http handlers

import (
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/workspace-reservation/internal/middleware"
	"github.com/iliyamo/workspace-reservation/internal/model"
	"github.com/iliyamo/workspace-reservation/internal/service"
)

// RequestValidator plugs go-playground/validator into echo so handlers can
// call c.Validate on their request structs.
type RequestValidator struct {
	validate *validator.Validate
}

// NewValidator builds a RequestValidator reporting fields by their JSON names.
func NewValidator() *RequestValidator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return &RequestValidator{validate: v}
}

// Validate implements echo.Validator.
func (v *RequestValidator) Validate(i interface{}) error {
	err := v.validate.Struct(i)
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		switch fe.Tag() {
		case "required":
			msgs = append(msgs, fe.Field()+" is required")
		case "min", "gte":
			msgs = append(msgs, fmt.Sprintf("%s must be at least %s", fe.Field(), fe.Param()))
		case "max", "lte":
			msgs = append(msgs, fmt.Sprintf("%s must be at most %s", fe.Field(), fe.Param()))
		case "oneof":
			msgs = append(msgs, fmt.Sprintf("%s must be one of %s", fe.Field(), fe.Param()))
		default:
			msgs = append(msgs, fe.Field()+" is invalid")
		}
	}
	return fmt.Errorf("%w: %s", service.ErrValidation, strings.Join(msgs, "; "))
}

// bind decodes the request body into req and validates it.
func bind(c echo.Context, req any) error {
	if err := c.Bind(req); err != nil {
		return fmt.Errorf("%w: malformed request body", service.ErrValidation)
	}
	return c.Validate(req)
}

// errorStatus maps a service outcome to an HTTP status and error code.
func errorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, service.ErrInvalidRange):
		return http.StatusBadRequest, "invalid_range"
	case errors.Is(err, service.ErrValidation):
		return http.StatusBadRequest, "validation_failed"
	case errors.Is(err, service.ErrForbidden):
		return http.StatusForbidden, "forbidden"
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, service.ErrDuplicateEntry):
		return http.StatusConflict, "duplicate_entry"
	case errors.Is(err, service.ErrAlreadyCancelled):
		return http.StatusConflict, "already_cancelled"
	case errors.Is(err, service.ErrConflict):
		return http.StatusConflict, "conflict"
	case errors.Is(err, service.ErrExpired):
		return http.StatusGone, "expired"
	case errors.Is(err, service.ErrBusy):
		return http.StatusServiceUnavailable, "busy"
	}
	return http.StatusInternalServerError, "internal_error"
}

// writeError renders err as {"error": code, "message": text}.  Infrastructure
// failures get a generic message; their detail is already in the logs.
func writeError(c echo.Context, err error) error {
	status, code := errorStatus(err)
	msg := err.Error()
	switch status {
	case http.StatusInternalServerError:
		msg = "internal error"
	case http.StatusServiceUnavailable:
		c.Response().Header().Set("Retry-After", "1")
	}
	return c.JSON(status, echo.Map{"error": code, "message": msg})
}

// principal returns the authenticated caller; routes are registered behind
// JWTAuth so a missing principal means a wiring bug and is reported as 401.
func principal(c echo.Context) (model.Principal, error) {
	p, ok := middleware.PrincipalFrom(c)
	if !ok {
		return model.Principal{}, echo.NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	return p, nil
}

// pathID parses a positive numeric path parameter.
func pathID(c echo.Context, name string) (uint64, error) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("%w: invalid %s", service.ErrValidation, name)
	}
	return id, nil
}

// queryID parses an optional numeric query parameter.
func queryID(c echo.Context, name string) (*uint64, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return nil, nil
	}
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return nil, fmt.Errorf("%w: invalid %s", service.ErrValidation, name)
	}
	return &id, nil
}

// queryTime parses an optional RFC 3339 query parameter.
func queryTime(c echo.Context, name string) (*time.Time, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %s must be an RFC 3339 timestamp", service.ErrInvalidRange, name)
	}
	t = t.UTC()
	return &t, nil
}

func invalidQuery(msg string) error { return fmt.Errorf("%w: %s", service.ErrValidation, msg) }
