package api

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
)

func TestErrorHandler(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantBody   string
	}{
		{"api error", NewNotFoundError("group", "nope"), http.StatusNotFound, `"code":"NOT_FOUND"`},
		{"bad request details", NewBadRequestError("invalid bucket", errors.New("time: invalid duration")), http.StatusBadRequest, `"details":"time: invalid duration"`},
		{"echo error", echo.ErrMethodNotAllowed, http.StatusMethodNotAllowed, `"code":"HTTP_ERROR"`},
		{"unknown", errors.New("boom"), http.StatusInternalServerError, `"code":"INTERNAL_ERROR"`},
		{"unavailable", NewServiceUnavailableError("warming up"), http.StatusServiceUnavailable, `"message":"warming up"`},
	}

	e := echo.New()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/series", nil)
			rec := httptest.NewRecorder()
			ErrorHandler(tt.err, e.NewContext(req, rec))

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.wantBody)
		})
	}
}

func TestErrorHandler_Committed(t *testing.T) {
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)
	assert.NoError(t, c.String(http.StatusOK, "done"))

	ErrorHandler(errors.New("late"), c)
	assert.Equal(t, "done", rec.Body.String())
}

func TestAPIError_Error(t *testing.T) {
	assert.Equal(t, "BAD_REQUEST: nope", NewBadRequestError("nope", nil).Error())
}
