package finding

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wellqio/api/pkg/domain/shared"
)

func newTestCandidate() Candidate {
	return Candidate{
		Title:           "openssl: buffer overflow",
		Severity:        SeverityCritical,
		Type:            TypeSCA,
		VulnerabilityID: "CVE-2023-0464",
		PackageName:     "openssl",
		PackageVersion:  "1.1.1t",
		FixVersion:      "1.1.1u",
	}
}

func TestFromCandidate(t *testing.T) {
	scope := ArtifactScope(shared.NewID())
	scanID := shared.NewID()
	now := time.Now().UTC()

	f, err := FromCandidate(newTestCandidate(), scope, scanID, now)
	require.NoError(t, err)

	assert.Equal(t, StatusOpen, f.Status())
	assert.Equal(t, now, f.FirstSeen())
	assert.Equal(t, now, f.LastSeen())
	assert.Len(t, f.HashID(), 64)
	assert.NotNil(t, f.Metadata())

	t.Run("fingerprint matches candidate fingerprint", func(t *testing.T) {
		assert.Equal(t, newTestCandidate().Fingerprint(scope.ID()), f.HashID())
	})

	t.Run("rejects missing scope", func(t *testing.T) {
		_, err := FromCandidate(newTestCandidate(), Scope{}, scanID, now)
		assert.ErrorIs(t, err, ErrScopeRequired)
	})

	t.Run("unknown severity defaults to INFO", func(t *testing.T) {
		c := newTestCandidate()
		c.Severity = "BANANAS"
		f, err := FromCandidate(c, scope, scanID, now)
		require.NoError(t, err)
		assert.Equal(t, SeverityInfo, f.Severity())
	})
}

func TestFindingLifecycle(t *testing.T) {
	scope := ArtifactScope(shared.NewID())
	now := time.Now().UTC()

	newOpen := func(t *testing.T) *Finding {
		f, err := FromCandidate(newTestCandidate(), scope, shared.NewID(), now)
		require.NoError(t, err)
		return f
	}

	t.Run("fix then reopen round trip", func(t *testing.T) {
		f := newOpen(t)
		f.MarkFixed(now.Add(time.Hour))
		assert.Equal(t, StatusFixed, f.Status())

		err := f.Reopen(now.Add(2 * time.Hour))
		require.NoError(t, err)
		assert.Equal(t, StatusOpen, f.Status())
		assert.Equal(t, now, f.FirstSeen(), "first_seen must survive the round trip")
	})

	t.Run("reopen of open finding is a no-op", func(t *testing.T) {
		f := newOpen(t)
		require.NoError(t, f.Reopen(now.Add(time.Hour)))
		assert.Equal(t, now, f.LastSeen())
	})

	t.Run("reopen walks back a triage decision", func(t *testing.T) {
		f := newOpen(t)
		require.NoError(t, f.ApplyTriage(StatusFalsePositive, "test cert only", "alice", now, nil))
		require.NoError(t, f.Reopen(now.Add(time.Hour)))
		assert.Equal(t, StatusOpen, f.Status())
		assert.Equal(t, "test cert only", f.TriageNote(), "triage history stays on the record")
	})

	t.Run("triage records actor and note", func(t *testing.T) {
		f := newOpen(t)
		require.NoError(t, f.ApplyTriage(StatusWontFix, "EOL service", "bob", now, nil))
		assert.Equal(t, "bob", f.TriagedBy())
		assert.Equal(t, "EOL service", f.TriageNote())
		require.NotNil(t, f.TriagedAt())
	})

	t.Run("bounded risk acceptance expires on reopen", func(t *testing.T) {
		f := newOpen(t)
		until := now.AddDate(0, 3, 0)
		require.NoError(t, f.ApplyTriage(StatusWontFix, "EOL service", "bob", now, &until))
		require.NotNil(t, f.RiskAcceptedUntil())
		assert.Equal(t, until, *f.RiskAcceptedUntil())

		require.NoError(t, f.Reopen(now.Add(time.Hour)))
		assert.Nil(t, f.RiskAcceptedUntil())
	})

	t.Run("expiry only sticks to wont-fix", func(t *testing.T) {
		f := newOpen(t)
		until := now.AddDate(0, 1, 0)
		require.NoError(t, f.ApplyTriage(StatusFalsePositive, "noise", "bob", now, &until))
		assert.Nil(t, f.RiskAcceptedUntil())
	})
}

func TestMetadataAccessors(t *testing.T) {
	m := Metadata{}

	assert.Zero(t, m.EPSSScore())
	assert.False(t, m.KEV())
	assert.Empty(t, m.SecretHash())

	m.SetEPSS(0.97, 0.999)
	m.SetKEV("2023-06-01")
	assert.Equal(t, 0.97, m.EPSSScore())
	assert.True(t, m.KEV())
	assert.Equal(t, "2023-06-01", m.KEVDate())

	m.ClearKEV()
	m.ClearEPSS()
	assert.False(t, m.KEV())
	assert.Zero(t, m.EPSSScore())

	t.Run("mistyped values fall back to zero", func(t *testing.T) {
		m := Metadata{MetaCVSS: "high", MetaKEVStatus: "yes"}
		assert.Zero(t, m.CVSS())
		assert.False(t, m.KEV())
	})
}

func TestStatusRules(t *testing.T) {
	assert.True(t, StatusFalsePositive.RequiresApproval())
	assert.True(t, StatusWontFix.RequiresApproval())
	assert.True(t, StatusDuplicate.RequiresApproval())
	assert.False(t, StatusOpen.RequiresApproval())
	assert.False(t, StatusFixed.RequiresApproval())
}
