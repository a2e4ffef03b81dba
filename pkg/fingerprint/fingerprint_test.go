package fingerprint

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCompute(t *testing.T) {
	scaInput := Input{
		FindingType:     TypeSCA,
		VulnerabilityID: "CVE-2023-1234",
		PackageName:     "openssl",
		PackageVersion:  "1.1.1",
	}

	t.Run("deterministic across calls", func(t *testing.T) {
		a := Compute(scaInput, "scope-1")
		b := Compute(scaInput, "scope-1")
		assert.Equal(t, a, b)
		assert.Len(t, a, 64)
	})

	t.Run("scope isolates identical findings", func(t *testing.T) {
		a := Compute(scaInput, "scope-1")
		b := Compute(scaInput, "scope-2")
		assert.NotEqual(t, a, b)
	})

	t.Run("secret formula ignores line and title", func(t *testing.T) {
		base := Input{
			FindingType: TypeSecret,
			FilePath:    "config/settings.py",
			SecretHash:  SecretHash("AKIAEXAMPLE"),
			Line:        10,
			Title:       "AWS key",
		}
		moved := base
		moved.Line = 99
		moved.Title = "renamed"
		assert.Equal(t, Compute(base, "s"), Compute(moved, "s"))
	})

	t.Run("sca formula ignores file path", func(t *testing.T) {
		moved := scaInput
		moved.FilePath = "somewhere/else/go.sum"
		assert.Equal(t, Compute(scaInput, "s"), Compute(moved, "s"))
	})

	t.Run("generic formula uses path line and title", func(t *testing.T) {
		base := Input{FindingType: "SAST", FilePath: "main.go", Line: 42, Title: "sql injection"}
		other := base
		other.Line = 43
		assert.NotEqual(t, Compute(base, "s"), Compute(other, "s"))
	})
}

func TestSyntheticVulnID(t *testing.T) {
	id := SyntheticVulnID("XRAY", "log4j:log4j:1.2.17", "deserialization of untrusted data")
	again := SyntheticVulnID("XRAY", "log4j:log4j:1.2.17", "deserialization of untrusted data")

	assert.Equal(t, id, again)
	assert.Regexp(t, `^XRAY-[0-9A-F]{8}$`, id)

	other := SyntheticVulnID("XRAY", "log4j:log4j:2.0", "deserialization of untrusted data")
	assert.NotEqual(t, id, other)
}
