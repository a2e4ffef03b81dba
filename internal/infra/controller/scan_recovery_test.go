package controller

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wellqio/api/pkg/domain/scan"
	"github.com/wellqio/api/pkg/logger"
)

type stubScanRepo struct {
	scan.Repository

	failStale func(ctx context.Context, cutoff time.Time, reason string) (int, error)
}

func (s *stubScanRepo) FailStale(ctx context.Context, cutoff time.Time, reason string) (int, error) {
	return s.failStale(ctx, cutoff, reason)
}

func TestScanRecoveryController_Reconcile(t *testing.T) {
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	var gotCutoff time.Time
	var gotReason string
	repo := &stubScanRepo{
		failStale: func(_ context.Context, cutoff time.Time, reason string) (int, error) {
			gotCutoff = cutoff
			gotReason = reason
			return 3, nil
		},
	}

	c := NewScanRecoveryController(repo, ScanRecoveryConfig{StuckThreshold: time.Hour}, logger.NewNop())
	c.now = func() time.Time { return now }

	failed, err := c.Reconcile(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, failed)
	assert.Equal(t, now.Add(-time.Hour), gotCutoff)
	assert.NotEmpty(t, gotReason)
}

func TestScanRecoveryController_ReconcileError(t *testing.T) {
	repo := &stubScanRepo{
		failStale: func(context.Context, time.Time, string) (int, error) {
			return 0, errors.New("db down")
		},
	}

	c := NewScanRecoveryController(repo, ScanRecoveryConfig{}, logger.NewNop())

	_, err := c.Reconcile(context.Background())
	require.Error(t, err)
}

func TestScanRecoveryController_Defaults(t *testing.T) {
	c := NewScanRecoveryController(&stubScanRepo{}, ScanRecoveryConfig{}, logger.NewNop())
	assert.Equal(t, 5*time.Minute, c.Interval())
	assert.Equal(t, "scan_recovery", c.Name())
}
