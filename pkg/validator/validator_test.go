package validator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type submitScanInput struct {
	Scanner      string `validate:"required"`
	Severity     string `validate:"omitempty,severity"`
	ArtifactType string `validate:"omitempty,artifact_type"`
	Cve          string `validate:"omitempty,cve_id"`
	Slug         string `validate:"omitempty,slug"`
}

func TestValidate_Valid(t *testing.T) {
	v := New()

	err := v.Validate(submitScanInput{
		Scanner:      "trivy",
		Severity:     "CRITICAL",
		ArtifactType: "CONTAINER",
		Cve:          "CVE-2024-3094",
		Slug:         "payments-team",
	})
	assert.NoError(t, err)
}

func TestValidate_CollectsFieldErrors(t *testing.T) {
	v := New()

	err := v.Validate(submitScanInput{
		Severity:     "SEVERE",
		ArtifactType: "JAR",
		Cve:          "GHSA-1234",
		Slug:         "Payments Team",
	})
	require.Error(t, err)

	verrs, ok := err.(ValidationErrors)
	require.True(t, ok)

	fields := make(map[string]bool)
	for _, e := range verrs {
		fields[e.Field] = true
	}
	assert.True(t, fields["scanner"])
	assert.True(t, fields["severity"])
	assert.True(t, fields["artifact_type"])
	assert.True(t, fields["cve"])
	assert.True(t, fields["slug"])
}

func TestValidate_EmptyOptionalFieldsPass(t *testing.T) {
	v := New()

	assert.NoError(t, v.Validate(submitScanInput{Scanner: "gitleaks"}))
}

func TestSlugPattern(t *testing.T) {
	assert.True(t, slugRegex.MatchString("acme"))
	assert.True(t, slugRegex.MatchString("acme-corp-2"))
	assert.False(t, slugRegex.MatchString("-acme"))
	assert.False(t, slugRegex.MatchString("acme-"))
	assert.False(t, slugRegex.MatchString("Acme"))
}
