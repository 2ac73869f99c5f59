package handler

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"

	"github.com/iliyamo/workspace-reservation/internal/service"
)

func TestErrorStatus(t *testing.T) {
	cases := []struct {
		err    error
		status int
		code   string
	}{
		{fmt.Errorf("x: %w", service.ErrInvalidRange), http.StatusBadRequest, "invalid_range"},
		{service.ErrValidation, http.StatusBadRequest, "validation_failed"},
		{service.ErrForbidden, http.StatusForbidden, "forbidden"},
		{fmt.Errorf("get: %w", service.ErrNotFound), http.StatusNotFound, "not_found"},
		{service.ErrConflict, http.StatusConflict, "conflict"},
		{service.ErrDuplicateEntry, http.StatusConflict, "duplicate_entry"},
		{service.ErrAlreadyCancelled, http.StatusConflict, "already_cancelled"},
		{service.ErrExpired, http.StatusGone, "expired"},
		{service.ErrBusy, http.StatusServiceUnavailable, "busy"},
		{fmt.Errorf("db: %w: %w", service.ErrStorage, errors.New("dial tcp")), http.StatusInternalServerError, "internal_error"},
	}
	for _, tc := range cases {
		status, code := errorStatus(tc.err)
		assert.Equal(t, tc.status, status, tc.err.Error())
		assert.Equal(t, tc.code, code, tc.err.Error())
	}
}

func TestWriteErrorHidesInfrastructureDetail(t *testing.T) {
	rec := httptest.NewRecorder()
	c := echo.New().NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)
	err := fmt.Errorf("list bookings: %w: %w", service.ErrStorage, errors.New("password=hunter2"))

	assert.NoError(t, writeError(c, err))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"internal_error","message":"internal error"}`, rec.Body.String())
}

func TestPathAndQueryParsing(t *testing.T) {
	e := echo.New()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/?deptId=5&bad=x&at=2030-01-02T03:04:05%2B01:00", nil), httptest.NewRecorder())
	c.SetParamNames("id")
	c.SetParamValues("0")
	_, err := pathID(c, "id")
	assert.ErrorIs(t, err, service.ErrValidation)

	id, err := queryID(c, "deptId")
	assert.NoError(t, err)
	assert.Equal(t, uint64(5), *id)
	_, err = queryID(c, "bad")
	assert.ErrorIs(t, err, service.ErrValidation)
	none, err := queryID(c, "missing")
	assert.NoError(t, err)
	assert.Nil(t, none)

	ts, err := queryTime(c, "at")
	assert.NoError(t, err)
	assert.Equal(t, "2030-01-02T02:04:05Z", ts.Format("2006-01-02T15:04:05Z07:00"))
	_, err = queryTime(c, "bad")
	assert.ErrorIs(t, err, service.ErrInvalidRange)
}

func TestParseDay(t *testing.T) {
	d, err := parseDay("2030-03-04")
	assert.NoError(t, err)
	assert.Equal(t, 4, d.Day())
	_, err = parseDay("04/03/2030")
	assert.ErrorIs(t, err, service.ErrValidation)
}
