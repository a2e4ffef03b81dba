package handler

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/wellqio/api/internal/app"
	"github.com/wellqio/api/internal/app/ingest"
	"github.com/wellqio/api/pkg/domain/finding"
	"github.com/wellqio/api/pkg/domain/release"
	"github.com/wellqio/api/pkg/domain/shared"
	"github.com/wellqio/api/pkg/validator"
)

func TestMapError_StatusCodes(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"finding not found", finding.ErrNotFound, http.StatusNotFound},
		{"release not found", release.ErrNotFound, http.StatusNotFound},
		{"already exists", shared.ErrAlreadyExists, http.StatusConflict},
		{"pending approval", app.ErrApprovalPending, http.StatusConflict},
		{"scope busy", ingest.ErrScopeBusy, http.StatusConflict},
		{"unsupported scanner", ingest.ErrUnsupportedScanner, http.StatusBadRequest},
		{"empty sbom", app.ErrEmptySBOM, http.StatusBadRequest},
		{"unknown", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.status, mapError(tt.err).Status)
		})
	}
}

func TestMapError_WrappedErrorsUnwrap(t *testing.T) {
	wrapped := errors.Join(errors.New("load scan"), finding.ErrNotFound)
	assert.Equal(t, http.StatusNotFound, mapError(wrapped).Status)
}

func TestMapError_ValidationErrors(t *testing.T) {
	errs := validator.ValidationErrors{
		{Field: "scanner", Message: "scanner is required"},
	}
	apiErr := mapError(errs)
	assert.Equal(t, http.StatusUnprocessableEntity, apiErr.Status)
	assert.Equal(t, map[string]string{"scanner": "scanner is required"}, apiErr.Details)
}

func TestMapError_InternalHidesCause(t *testing.T) {
	apiErr := mapError(errors.New("pq: connection refused"))
	assert.NotContains(t, apiErr.Message, "connection refused")
}

func TestParseQueryList(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/findings?severity=CRITICAL,%20HIGH,,LOW", nil)
	assert.Equal(t, []string{"CRITICAL", "HIGH", "LOW"}, parseQueryList(r, "severity"))

	r = httptest.NewRequest(http.MethodGet, "/findings", nil)
	assert.Nil(t, parseQueryList(r, "severity"))
}

func TestParsePagination_Clamps(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/findings?page=-3&per_page=100000", nil)
	p := parsePagination(r)
	assert.Equal(t, 0, p.Offset())
	assert.Equal(t, 100, p.Limit())
}
