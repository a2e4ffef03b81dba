package handler

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wellqio/api/pkg/domain/finding"
	"github.com/wellqio/api/pkg/domain/shared"
)

func TestParseFindingFilter_Scope(t *testing.T) {
	artifactID := shared.NewID()
	releaseID := shared.NewID()

	t.Run("artifact scope", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/findings?artifact_id="+artifactID.String(), nil)
		filter, err := parseFindingFilter(r)
		require.NoError(t, err)
		require.NotNil(t, filter.Scope)
		require.NotNil(t, filter.Scope.ArtifactID)
		assert.Equal(t, artifactID, *filter.Scope.ArtifactID)
		assert.Nil(t, filter.Scope.ReleaseID)
	})

	t.Run("release scope", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/findings?release_id="+releaseID.String(), nil)
		filter, err := parseFindingFilter(r)
		require.NoError(t, err)
		require.NotNil(t, filter.Scope)
		require.NotNil(t, filter.Scope.ReleaseID)
		assert.Equal(t, releaseID, *filter.Scope.ReleaseID)
	})

	t.Run("both scopes rejected", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet,
			"/findings?artifact_id="+artifactID.String()+"&release_id="+releaseID.String(), nil)
		_, err := parseFindingFilter(r)
		require.Error(t, err)
		assert.Equal(t, http.StatusBadRequest, mapError(err).Status)
	})

	t.Run("malformed artifact id", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/findings?artifact_id=not-a-uuid", nil)
		_, err := parseFindingFilter(r)
		require.Error(t, err)
	})
}

func TestParseFindingFilter_Enums(t *testing.T) {
	t.Run("lists are uppercased", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet,
			"/findings?status=open,fixed&severity=critical&type=sca", nil)
		filter, err := parseFindingFilter(r)
		require.NoError(t, err)
		assert.Equal(t, []finding.Status{finding.StatusOpen, finding.StatusFixed}, filter.Statuses)
		assert.Equal(t, []finding.Severity{finding.SeverityCritical}, filter.Severity)
		assert.Equal(t, []finding.Type{finding.TypeSCA}, filter.Types)
	})

	t.Run("invalid status rejected", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/findings?status=bogus", nil)
		_, err := parseFindingFilter(r)
		require.Error(t, err)
	})

	t.Run("invalid severity rejected", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/findings?severity=extreme", nil)
		_, err := parseFindingFilter(r)
		require.Error(t, err)
	})

	t.Run("search passthrough", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/findings?search=log4j", nil)
		filter, err := parseFindingFilter(r)
		require.NoError(t, err)
		assert.Equal(t, "log4j", filter.Search)
	})
}

func TestParseFindingFilter_Sort(t *testing.T) {
	t.Run("allowed fields parsed", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/findings?sort=-last_seen,title", nil)
		filter, err := parseFindingFilter(r)
		require.NoError(t, err)
		require.NotNil(t, filter.Sort)
		assert.Equal(t, "last_seen DESC, title ASC", filter.Sort.SQL())
	})

	t.Run("unknown fields fall back to default ordering", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/findings?sort=metadata", nil)
		filter, err := parseFindingFilter(r)
		require.NoError(t, err)
		require.NotNil(t, filter.Sort)
		assert.True(t, filter.Sort.IsEmpty())
		assert.Equal(t, "severity", filter.Sort.SQLWithDefault("severity"))
	})

	t.Run("absent sort leaves filter nil", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/findings", nil)
		filter, err := parseFindingFilter(r)
		require.NoError(t, err)
		assert.Nil(t, filter.Sort)
	})
}
