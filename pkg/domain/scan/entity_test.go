package scan

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wellqio/api/pkg/domain/shared"
)

func TestScanLifecycle(t *testing.T) {
	s, err := NewForArtifact(shared.NewID(), "trivy")
	require.NoError(t, err)
	assert.Equal(t, StatusPending, s.Status())

	require.NoError(t, s.Start())
	assert.Equal(t, StatusProcessing, s.Status())

	require.NoError(t, s.Complete(3))
	assert.Equal(t, StatusCompleted, s.Status())
	assert.Equal(t, 3, s.FindingsCount())
	require.NotNil(t, s.CompletedAt())
}

func TestRestart(t *testing.T) {
	s, err := NewForArtifact(shared.NewID(), "trivy")
	require.NoError(t, err)

	// Only a completed scan can re-enter processing.
	assert.ErrorIs(t, s.Restart(), ErrInvalidTransition)
	require.NoError(t, s.Start())
	assert.ErrorIs(t, s.Restart(), ErrInvalidTransition)

	require.NoError(t, s.Complete(2))
	require.NoError(t, s.Restart())
	assert.Equal(t, StatusProcessing, s.Status())
	assert.Nil(t, s.CompletedAt())
	assert.Empty(t, s.LastError())

	require.NoError(t, s.Complete(1))
	assert.Equal(t, 1, s.FindingsCount())
}

func TestRestartNotFromFailed(t *testing.T) {
	s, err := NewForArtifact(shared.NewID(), "trivy")
	require.NoError(t, err)
	require.NoError(t, s.Fail("parser rejected document"))

	assert.ErrorIs(t, s.Restart(), ErrInvalidTransition)
	assert.False(t, s.Reusable())
}
