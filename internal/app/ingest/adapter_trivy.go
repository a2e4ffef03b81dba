package ingest

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/wellqio/api/pkg/domain/finding"
)

// trivyReport is the subset of Trivy's JSON report we consume.
type trivyReport struct {
	Results []trivyResult `json:"Results"`
}

type trivyResult struct {
	Target          string               `json:"Target"`
	Type            string               `json:"Type"`
	Vulnerabilities []trivyVulnerability `json:"Vulnerabilities"`
}

type trivyVulnerability struct {
	VulnerabilityID  string                    `json:"VulnerabilityID"`
	PkgName          string                    `json:"PkgName"`
	InstalledVersion string                    `json:"InstalledVersion"`
	FixedVersion     string                    `json:"FixedVersion"`
	Title            string                    `json:"Title"`
	Description      string                    `json:"Description"`
	Severity         string                    `json:"Severity"`
	PrimaryURL       string                    `json:"PrimaryURL"`
	References       []string                  `json:"References"`
	CVSS             map[string]trivyCVSSEntry `json:"CVSS"`
}

type trivyCVSSEntry struct {
	V3Score float64 `json:"V3Score"`
	V2Score float64 `json:"V2Score"`
}

// TrivyParser normalizes Trivy JSON reports (filesystem, image and repo
// scans) into SCA candidates.
type TrivyParser struct{}

// NewTrivyParser creates a Trivy parser.
func NewTrivyParser() *TrivyParser { return &TrivyParser{} }

// Scanner implements Parser.
func (p *TrivyParser) Scanner() string { return ScannerTrivy }

// Parse implements Parser.
func (p *TrivyParser) Parse(_ context.Context, doc []byte) ([]finding.Candidate, error) {
	if len(doc) == 0 {
		return nil, ErrEmptyDocument
	}

	var report trivyReport
	if err := json.Unmarshal(doc, &report); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedDocument, err)
	}

	var out []finding.Candidate
	for _, result := range report.Results {
		for _, vuln := range result.Vulnerabilities {
			out = append(out, p.toCandidate(result, vuln))
		}
	}
	return out, nil
}

func (p *TrivyParser) toCandidate(result trivyResult, vuln trivyVulnerability) finding.Candidate {
	pkgName := vuln.PkgName
	if pkgName == "" {
		pkgName = "Unknown"
	}
	title := vuln.Title
	if title == "" {
		title = fmt.Sprintf("%s in %s", vuln.VulnerabilityID, pkgName)
	}

	meta := finding.Metadata{finding.MetaProvider: ScannerTrivy}
	if score := p.cvssScore(vuln.CVSS); score > 0 {
		meta[finding.MetaCVSS] = score
	}
	if len(vuln.References) > 0 {
		refs := vuln.References
		if len(refs) > 10 {
			refs = refs[:10]
		}
		meta[finding.MetaReferences] = refs
	} else if vuln.PrimaryURL != "" {
		meta[finding.MetaReferences] = []string{vuln.PrimaryURL}
	}

	return finding.Candidate{
		Title:           title,
		Description:     vuln.Description,
		Severity:        finding.NormalizeSeverity(vuln.Severity),
		Type:            finding.TypeSCA,
		VulnerabilityID: vuln.VulnerabilityID,
		PackageName:     pkgName,
		PackageVersion:  vuln.InstalledVersion,
		FixVersion:      vuln.FixedVersion,
		FilePath:        result.Target,
		Metadata:        meta,
	}
}

// cvssScore picks the first non-zero V3 score, preferring the nvd entry.
func (p *TrivyParser) cvssScore(cvss map[string]trivyCVSSEntry) float64 {
	if entry, ok := cvss["nvd"]; ok && entry.V3Score > 0 {
		return entry.V3Score
	}
	for _, entry := range cvss {
		if entry.V3Score > 0 {
			return entry.V3Score
		}
	}
	return 0
}
