package api

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/jonesrussell/newsroom/internal/domain"
)

func TestHandleError_StatusMapping(t *testing.T) {
	gin.SetMode(gin.TestMode)

	testCases := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{"not found", fmt.Errorf("load: %w", domain.ErrNotFound), http.StatusNotFound},
		{"validation", fmt.Errorf("gate: %w", domain.ErrValidation), http.StatusUnprocessableEntity},
		{"state error", &domain.StateError{DraftID: "d", Op: "approve"}, http.StatusUnprocessableEntity},
		{"conflict", &domain.VersionError{DraftID: "d", ExpectedVersion: 2}, http.StatusConflict},
		{"transient", fmt.Errorf("sink: %w", domain.ErrTransient), http.StatusBadGateway},
		{"configuration", fmt.Errorf("model: %w", domain.ErrConfiguration), http.StatusServiceUnavailable},
		{"cancelled", context.Canceled, 499},
		{"unknown", fmt.Errorf("boom"), http.StatusInternalServerError},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(rec)

			handleError(c, tc.err)
			assert.Equal(t, tc.wantStatus, rec.Code)
		})
	}
}

func TestListLimit(t *testing.T) {
	gin.SetMode(gin.TestMode)

	testCases := []struct {
		query string
		want  int
	}{
		{"", defaultListLimit},
		{"limit=10", 10},
		{"limit=0", defaultListLimit},
		{"limit=-5", defaultListLimit},
		{"limit=junk", defaultListLimit},
		{"limit=9999", maxListLimit},
	}

	for _, tc := range testCases {
		t.Run(tc.query, func(t *testing.T) {
			rec := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(rec)
			c.Request = httptest.NewRequest(http.MethodGet, "/?"+tc.query, nil)

			assert.Equal(t, tc.want, listLimit(c))
		})
	}
}
