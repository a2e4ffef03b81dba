package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/wellqio/api/pkg/domain/finding"
	"github.com/wellqio/api/pkg/fingerprint"
)

// syntheticIDPrefix marks vulnerability IDs generated for Xray rows that
// carry no CVE.
const syntheticIDPrefix = "JFROG-XRAY"

type xrayReport struct {
	TotalCount int       `json:"total_count"`
	Data       []xrayRow `json:"data"`
}

type xrayRow struct {
	Severity          string                `json:"severity"`
	Summary           string                `json:"summary"`
	IssueType         string                `json:"issue_type"`
	Provider          string                `json:"provider"`
	Component         string                `json:"component"`
	SourceID          string                `json:"source_id"`
	SourceCompID      string                `json:"source_comp_id"`
	ComponentVersions xrayComponentVersions `json:"component_versions"`
}

type xrayComponentVersions struct {
	VulnerableVersions []string        `json:"vulnerable_versions"`
	FixedVersions      []string        `json:"fixed_versions"`
	MoreDetails        xrayMoreDetails `json:"more_details"`
}

type xrayMoreDetails struct {
	CVEs        []xrayCVE `json:"cves"`
	Description string    `json:"description"`
	Provider    string    `json:"provider"`
}

type xrayCVE struct {
	CVE         string   `json:"cve"`
	CWE         []string `json:"cwe"`
	CVSSv3      string   `json:"cvss_v3"`
	Description string   `json:"description"`
}

// XrayParser normalizes JFrog Xray registry scan exports into SCA
// candidates. Component coordinates arrive as package-manager URIs
// (gav://, deb://, npm://) that need per-ecosystem splitting.
type XrayParser struct{}

// NewXrayParser creates an Xray parser.
func NewXrayParser() *XrayParser { return &XrayParser{} }

// Scanner implements Parser.
func (p *XrayParser) Scanner() string { return ScannerXray }

// Parse implements Parser.
func (p *XrayParser) Parse(_ context.Context, doc []byte) ([]finding.Candidate, error) {
	if len(doc) == 0 {
		return nil, ErrEmptyDocument
	}

	var report xrayReport
	if err := json.Unmarshal(doc, &report); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedDocument, err)
	}

	out := make([]finding.Candidate, 0, len(report.Data))
	for _, row := range report.Data {
		out = append(out, p.toCandidate(row))
	}
	return out, nil
}

func (p *XrayParser) toCandidate(row xrayRow) finding.Candidate {
	summary := row.Summary
	if summary == "" {
		summary = "Unknown vulnerability"
	}
	component := row.Component
	if component == "" {
		component = "Unknown"
	}

	pkgName, pkgVersion := ParseComponentCoordinates(row.SourceCompID, component)
	details := row.ComponentVersions.MoreDetails

	var cveID, cveDescription, cvssV3 string
	var cwes []string
	if len(details.CVEs) > 0 {
		first := details.CVEs[0]
		cveID = first.CVE
		cveDescription = first.Description
		cvssV3 = first.CVSSv3
		cwes = first.CWE
	}
	if cveID == "" {
		cveID = fingerprint.SyntheticVulnID(syntheticIDPrefix, component, summary)
	}

	description := cveDescription
	if description == "" {
		description = details.Description
	}
	if description == "" {
		description = summary
	}
	parts := []string{description}
	if details.Provider != "" {
		parts = append(parts, "Provider: "+details.Provider)
	}
	if cvssV3 != "" {
		parts = append(parts, "CVSS v3: "+cvssV3)
	}
	if len(row.ComponentVersions.VulnerableVersions) > 0 {
		parts = append(parts, "Vulnerable versions: "+strings.Join(row.ComponentVersions.VulnerableVersions, ", "))
	}

	meta := finding.Metadata{finding.MetaProvider: ScannerXray}
	if len(cwes) > 0 {
		meta[finding.MetaCWE] = cwes
	}
	if cvssV3 != "" {
		if score := leadingFloat(cvssV3); score > 0 {
			meta[finding.MetaCVSS] = score
		}
	}

	return finding.Candidate{
		Title:           summary,
		Description:     strings.Join(parts, "\n"),
		Severity:        finding.NormalizeSeverity(strings.ToUpper(row.Severity)),
		Type:            finding.TypeSCA,
		VulnerabilityID: cveID,
		PackageName:     pkgName,
		PackageVersion:  pkgVersion,
		FixVersion:      FirstFixedVersion(row.ComponentVersions.FixedVersions),
		Metadata:        meta,
	}
}

// leadingFloat parses the numeric score out of strings like
// "9.8/CVSS:3.1/AV:N...". Returns 0 when none is found.
func leadingFloat(s string) float64 {
	end := 0
	for end < len(s) && (s[end] == '.' || (s[end] >= '0' && s[end] <= '9')) {
		end++
	}
	if end == 0 {
		return 0
	}
	var v float64
	if _, err := fmt.Sscanf(s[:end], "%f", &v); err != nil {
		return 0
	}
	return v
}
