package approval

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wellqio/api/pkg/domain/finding"
	"github.com/wellqio/api/pkg/domain/shared"
)

func TestNew(t *testing.T) {
	findingID := shared.NewID()

	t.Run("creates pending request", func(t *testing.T) {
		r, err := New(findingID, finding.StatusFalsePositive, "test credential only", "alice", nil)
		require.NoError(t, err)
		assert.Equal(t, StatusPending, r.Status())
		assert.Equal(t, finding.StatusFalsePositive, r.RequestedStatus())
		assert.Nil(t, r.ExpiresAt())
	})

	t.Run("rejects ungated status", func(t *testing.T) {
		_, err := New(findingID, finding.StatusOpen, "note", "alice", nil)
		assert.ErrorIs(t, err, ErrStatusNotGated)
	})

	t.Run("requires a note", func(t *testing.T) {
		_, err := New(findingID, finding.StatusWontFix, "  ", "alice", nil)
		assert.ErrorIs(t, err, ErrNoteRequired)
	})

	t.Run("accepts bounded risk acceptance", func(t *testing.T) {
		until := time.Now().UTC().AddDate(0, 3, 0)
		r, err := New(findingID, finding.StatusWontFix, "EOL service", "alice", &until)
		require.NoError(t, err)
		require.NotNil(t, r.ExpiresAt())
		assert.Equal(t, until, *r.ExpiresAt())
	})

	t.Run("rejects expiry on non wont-fix", func(t *testing.T) {
		until := time.Now().UTC().AddDate(0, 3, 0)
		_, err := New(findingID, finding.StatusFalsePositive, "noise", "alice", &until)
		assert.ErrorIs(t, err, ErrExpiryNotAllowed)
	})

	t.Run("rejects expiry in the past", func(t *testing.T) {
		until := time.Now().UTC().Add(-time.Hour)
		_, err := New(findingID, finding.StatusWontFix, "EOL service", "alice", &until)
		assert.ErrorIs(t, err, ErrExpiryInPast)
	})
}

func TestResolve(t *testing.T) {
	newPending := func(t *testing.T) *Request {
		r, err := New(shared.NewID(), finding.StatusWontFix, "EOL service", "alice", nil)
		require.NoError(t, err)
		return r
	}

	t.Run("approve records reviewer", func(t *testing.T) {
		r := newPending(t)
		require.NoError(t, r.Approve("bob", "agreed"))
		assert.Equal(t, StatusApproved, r.Status())
		assert.Equal(t, "bob", r.ReviewedBy())
		require.NotNil(t, r.ReviewedAt())
	})

	t.Run("double resolve conflicts", func(t *testing.T) {
		r := newPending(t)
		require.NoError(t, r.Reject("bob", "not convinced"))
		assert.ErrorIs(t, r.Approve("carol", ""), ErrAlreadyResolved)
		assert.ErrorIs(t, r.Reject("carol", ""), ErrAlreadyResolved)
	})
}
