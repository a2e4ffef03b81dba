package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/wellqio/api/internal/app"
	"github.com/wellqio/api/internal/app/ingest"
	"github.com/wellqio/api/internal/infra/http/middleware"
	"github.com/wellqio/api/pkg/apierror"
	"github.com/wellqio/api/pkg/domain/approval"
	"github.com/wellqio/api/pkg/domain/artifact"
	"github.com/wellqio/api/pkg/domain/finding"
	"github.com/wellqio/api/pkg/domain/product"
	"github.com/wellqio/api/pkg/domain/release"
	"github.com/wellqio/api/pkg/domain/scan"
	"github.com/wellqio/api/pkg/domain/shared"
	"github.com/wellqio/api/pkg/domain/threatintel"
	"github.com/wellqio/api/pkg/domain/workspace"
	"github.com/wellqio/api/pkg/pagination"
	"github.com/wellqio/api/pkg/validator"
)

const maxJSONBodyBytes = 1 << 20

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body != nil {
		_ = json.NewEncoder(w).Encode(body)
	}
}

// decodeJSON reads a JSON body into dst and validates it. Unknown fields
// are rejected so typoed keys fail loudly instead of silently defaulting.
func decodeJSON(r *http.Request, v *validator.Validator, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, maxJSONBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return apierror.New(http.StatusRequestEntityTooLarge, apierror.CodeBadRequest, "request body too large")
		}
		return apierror.BadRequest("invalid JSON body: " + err.Error())
	}
	return v.Validate(dst)
}

// respondError maps domain and application errors onto API errors.
func respondError(w http.ResponseWriter, r *http.Request, err error) {
	mapError(err).WriteJSONWithRequestID(w, middleware.GetRequestID(r.Context()))
}

func mapError(err error) *apierror.Error {
	var apiErr *apierror.Error
	if errors.As(err, &apiErr) {
		return apiErr
	}

	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		fields := make(map[string]string, len(validationErrs))
		for _, ve := range validationErrs {
			fields[ve.Field] = ve.Message
		}
		return apierror.ValidationFailed("validation failed", fields)
	}

	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		return apierror.New(http.StatusRequestEntityTooLarge, apierror.CodeBadRequest, "request body too large")
	}

	switch {
	case errors.Is(err, workspace.ErrNotFound):
		return apierror.NotFound("workspace")
	case errors.Is(err, product.ErrNotFound):
		return apierror.NotFound("product")
	case errors.Is(err, release.ErrNotFound):
		return apierror.NotFound("release")
	case errors.Is(err, artifact.ErrNotFound):
		return apierror.NotFound("artifact")
	case errors.Is(err, scan.ErrNotFound):
		return apierror.NotFound("scan")
	case errors.Is(err, finding.ErrNotFound):
		return apierror.NotFound("finding")
	case errors.Is(err, approval.ErrNotFound):
		return apierror.NotFound("approval request")
	case errors.Is(err, threatintel.ErrNotFound):
		return apierror.NotFound("threat intel record")
	case errors.Is(err, shared.ErrAlreadyExists):
		return apierror.Conflict("resource already exists")
	case errors.Is(err, app.ErrApprovalPending),
		errors.Is(err, approval.ErrAlreadyResolved),
		errors.Is(err, ingest.ErrScopeBusy):
		return apierror.Conflict(err.Error())
	case errors.Is(err, ingest.ErrUnsupportedScanner),
		errors.Is(err, ingest.ErrEmptyDocument),
		errors.Is(err, ingest.ErrMalformedDocument),
		errors.Is(err, app.ErrEmptySBOM),
		errors.Is(err, finding.ErrInvalidStatus),
		errors.Is(err, approval.ErrStatusNotGated),
		errors.Is(err, approval.ErrNoteRequired):
		return apierror.BadRequest(err.Error())
	case errors.Is(err, shared.ErrValidation):
		return apierror.SafeBadRequest(err)
	default:
		return apierror.InternalError(err)
	}
}

// pathID parses a UUID path parameter.
func pathID(r *http.Request, name string) (shared.ID, error) {
	raw := chi.URLParam(r, name)
	id, err := shared.IDFromString(raw)
	if err != nil {
		return shared.ID{}, apierror.BadRequest("invalid " + name)
	}
	return id, nil
}

// parsePagination reads page and per_page query parameters with the
// usual clamping applied by pagination.New.
func parsePagination(r *http.Request) pagination.Pagination {
	page := parseQueryInt(r, "page", 1)
	perPage := parseQueryInt(r, "per_page", 20)
	return pagination.New(page, perPage)
}

func parseQueryInt(r *http.Request, name string, fallback int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return n
}

// parseQueryList splits a comma-separated query parameter, dropping
// empty segments.
func parseQueryList(r *http.Request, name string) []string {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
