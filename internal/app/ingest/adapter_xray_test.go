package ingest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wellqio/api/pkg/domain/finding"
)

const xrayDoc = `{
  "total_count": 2,
  "data": [
    {
      "severity": "High",
      "summary": "Apache SSHD deserialization issue",
      "issue_type": "security",
      "component": "sshd-core",
      "source_comp_id": "gav://org.apache.sshd:sshd-core:1.0.0",
      "component_versions": {
        "vulnerable_versions": ["(,1.1.0)"],
        "fixed_versions": ["≥ 1.1.0"],
        "more_details": {
          "cves": [{"cve": "CVE-2016-0782", "cwe": ["CWE-502"], "cvss_v3": "8.1/CVSS:3.0"}],
          "description": "Deserialization of untrusted data.",
          "provider": "JFrog"
        }
      }
    },
    {
      "severity": "Medium",
      "summary": "Weak crypto in bundled library",
      "component": "libfoo",
      "source_comp_id": "deb://debian:stretch:libfoo:2:1.6.4-3",
      "component_versions": {
        "fixed_versions": [],
        "more_details": {"cves": []}
      }
    }
  ]
}`

func TestXrayParser(t *testing.T) {
	p := NewXrayParser()
	ctx := context.Background()

	candidates, err := p.Parse(ctx, []byte(xrayDoc))
	require.NoError(t, err)
	require.Len(t, candidates, 2)

	t.Run("maven coordinates", func(t *testing.T) {
		c := candidates[0]
		assert.Equal(t, "org.apache.sshd:sshd-core", c.PackageName)
		assert.Equal(t, "1.0.0", c.PackageVersion)
		assert.Equal(t, "CVE-2016-0782", c.VulnerabilityID)
		assert.Equal(t, "1.1.0", c.FixVersion, "comparison operator stripped")
		assert.Equal(t, finding.SeverityHigh, c.Severity)
		assert.Equal(t, 8.1, c.Metadata.CVSS())
		assert.Contains(t, c.Description, "Provider: JFrog")
	})

	t.Run("debian coordinates with epoch version", func(t *testing.T) {
		c := candidates[1]
		assert.Equal(t, "debian:stretch:libfoo", c.PackageName)
		assert.Equal(t, "2:1.6.4-3", c.PackageVersion)
	})

	t.Run("missing cve gets deterministic synthetic id", func(t *testing.T) {
		c := candidates[1]
		assert.Regexp(t, `^JFROG-XRAY-[0-9A-F]{8}$`, c.VulnerabilityID)

		again, err := p.Parse(ctx, []byte(xrayDoc))
		require.NoError(t, err)
		assert.Equal(t, c.VulnerabilityID, again[1].VulnerabilityID,
			"synthetic id must be stable across scans")
	})

	t.Run("empty fix versions", func(t *testing.T) {
		assert.Empty(t, candidates[1].FixVersion)
	})

	t.Run("malformed document rejected", func(t *testing.T) {
		_, err := p.Parse(ctx, []byte("no json"))
		assert.ErrorIs(t, err, ErrMalformedDocument)
	})
}

func TestParseComponentCoordinates(t *testing.T) {
	tests := []struct {
		name        string
		sourceComp  string
		component   string
		wantName    string
		wantVersion string
	}{
		{"maven", "gav://org.apache.sshd:sshd-core:1.0.0", "sshd-core", "org.apache.sshd:sshd-core", "1.0.0"},
		{"maven two parts", "gav://log4j:1.2.17", "log4j", "log4j", "1.2.17"},
		{"debian", "deb://debian:stretch:libx11:2:1.6.4-3", "libx11", "debian:stretch:libx11", "2:1.6.4-3"},
		{"debian short", "deb://debian:libssl", "libssl", "debian:libssl", ""},
		{"npm", "npm://lodash@4.17.20", "lodash", "lodash", "4.17.20"},
		{"npm scoped", "npm://@babel/core@7.5.0", "@babel/core", "@babel/core", "7.5.0"},
		{"generic trailing version", "pypi://requests:2.25.1", "requests", "requests", "2.25.1"},
		{"no source comp id", "", "fallback", "fallback", ""},
		{"no scheme separator", "garbage", "fallback", "fallback", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			name, version := ParseComponentCoordinates(tt.sourceComp, tt.component)
			assert.Equal(t, tt.wantName, name)
			assert.Equal(t, tt.wantVersion, version)
		})
	}
}

func TestFirstFixedVersion(t *testing.T) {
	assert.Equal(t, "2:1.6.4-3+deb9u1", FirstFixedVersion([]string{"≥ 2:1.6.4-3+deb9u1", "3.0"}))
	assert.Equal(t, "1.3.0", FirstFixedVersion([]string{"1.3.0"}))
	assert.Empty(t, FirstFixedVersion(nil))
}
