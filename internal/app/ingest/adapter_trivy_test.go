package ingest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wellqio/api/pkg/domain/finding"
)

const trivyDoc = `{
  "Results": [
    {
      "Target": "app/go.sum",
      "Type": "gomod",
      "Vulnerabilities": [
        {
          "VulnerabilityID": "CVE-2023-0464",
          "PkgName": "golang.org/x/crypto",
          "InstalledVersion": "0.1.0",
          "FixedVersion": "0.17.0",
          "Title": "x/crypto: denial of service",
          "Description": "A maliciously crafted packet can cause excessive work.",
          "Severity": "HIGH",
          "CVSS": {"nvd": {"V3Score": 7.5}},
          "References": ["https://nvd.nist.gov/vuln/detail/CVE-2023-0464"]
        },
        {
          "VulnerabilityID": "CVE-2024-1111",
          "Severity": "WHATEVER"
        }
      ]
    },
    {
      "Target": "empty-target",
      "Type": "gomod"
    }
  ]
}`

func TestTrivyParser(t *testing.T) {
	p := NewTrivyParser()
	ctx := context.Background()

	candidates, err := p.Parse(ctx, []byte(trivyDoc))
	require.NoError(t, err)
	require.Len(t, candidates, 2)

	t.Run("complete vulnerability", func(t *testing.T) {
		c := candidates[0]
		assert.Equal(t, "x/crypto: denial of service", c.Title)
		assert.Equal(t, finding.TypeSCA, c.Type)
		assert.Equal(t, finding.SeverityHigh, c.Severity)
		assert.Equal(t, "CVE-2023-0464", c.VulnerabilityID)
		assert.Equal(t, "golang.org/x/crypto", c.PackageName)
		assert.Equal(t, "0.1.0", c.PackageVersion)
		assert.Equal(t, "0.17.0", c.FixVersion)
		assert.Equal(t, "app/go.sum", c.FilePath)
		assert.Equal(t, 7.5, c.Metadata.CVSS())
	})

	t.Run("sparse vulnerability gets defaults", func(t *testing.T) {
		c := candidates[1]
		assert.Equal(t, "CVE-2024-1111 in Unknown", c.Title)
		assert.Equal(t, "Unknown", c.PackageName)
		assert.Equal(t, finding.SeverityInfo, c.Severity, "unknown severity maps to INFO")
	})

	t.Run("empty document rejected", func(t *testing.T) {
		_, err := p.Parse(ctx, nil)
		assert.ErrorIs(t, err, ErrEmptyDocument)
	})

	t.Run("malformed document rejected", func(t *testing.T) {
		_, err := p.Parse(ctx, []byte("{not json"))
		assert.ErrorIs(t, err, ErrMalformedDocument)
	})

	t.Run("report without results yields zero candidates", func(t *testing.T) {
		out, err := p.Parse(ctx, []byte(`{"Results": []}`))
		require.NoError(t, err)
		assert.Empty(t, out)
	})
}
