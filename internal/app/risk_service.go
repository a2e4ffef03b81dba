package app

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/wellqio/api/internal/config"
	"github.com/wellqio/api/pkg/domain/artifact"
	"github.com/wellqio/api/pkg/domain/component"
	"github.com/wellqio/api/pkg/domain/finding"
	"github.com/wellqio/api/pkg/domain/release"
	"github.com/wellqio/api/pkg/domain/scan"
	"github.com/wellqio/api/pkg/domain/shared"
	"github.com/wellqio/api/pkg/logger"
)

// Weights of the technical risk points formula. Known-exploited and secret
// findings dominate raw severity on purpose: both are directly actionable
// by an attacker.
const (
	trpWeightKEV      = 50
	trpWeightSecret   = 50
	trpWeightCritical = 10
	trpWeightHigh     = 2
	trpWeightMedium   = 0.5
)

// RiskService aggregates release-level risk from open findings, scans and
// the component inventory.
type RiskService struct {
	findings   finding.Repository
	scans      scan.Repository
	releases   release.Repository
	artifacts  artifact.Repository
	components component.Repository
	cfg        config.RiskConfig
	logger     *logger.Logger
	now        func() time.Time
}

// NewRiskService creates a new RiskService.
func NewRiskService(
	findings finding.Repository,
	scans scan.Repository,
	releases release.Repository,
	artifacts artifact.Repository,
	components component.Repository,
	cfg config.RiskConfig,
	log *logger.Logger,
) *RiskService {
	return &RiskService{
		findings:   findings,
		scans:      scans,
		releases:   releases,
		artifacts:  artifacts,
		components: components,
		cfg:        cfg,
		logger:     log.With("service", "risk"),
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// RiskScore is the computed score block of a report.
type RiskScore struct {
	TRP     float64 `json:"trp"`
	Density float64 `json:"density"`
	Health  int     `json:"health"`
	Grade   string  `json:"grade"`
}

// SeverityCounts tallies open findings for a report.
type SeverityCounts struct {
	Critical int `json:"critical"`
	High     int `json:"high"`
	Medium   int `json:"medium"`
	Low      int `json:"low"`
	Info     int `json:"info"`
	KEV      int `json:"kev"`
	Secrets  int `json:"secrets"`
}

// ComplianceSummary is the release gate verdict.
type ComplianceSummary struct {
	Compliant      bool `json:"compliant"`
	BlockingIssues int  `json:"blocking_issues"`
}

// KillListEntry is one immediately actionable finding.
type KillListEntry struct {
	FindingID   shared.ID `json:"finding_id"`
	IssueType   string    `json:"issue_type"`
	Title       string    `json:"title"`
	Severity    string    `json:"severity"`
	Subject     string    `json:"subject"`
	Location    string    `json:"location"`
	Remediation string    `json:"remediation"`
}

// SLABreach is one overdue critical finding.
type SLABreach struct {
	FindingID shared.ID `json:"finding_id"`
	Title     string    `json:"title"`
	Location  string    `json:"location"`
	FirstSeen time.Time `json:"first_seen"`
	AgeDays   int       `json:"age_days"`
}

// TreemapEntry carries per-artifact severity density for visual drill-down.
type TreemapEntry struct {
	Name     string `json:"name"`
	Version  string `json:"version"`
	Critical int    `json:"critical"`
	High     int    `json:"high"`
	Medium   int    `json:"medium"`
	Low      int    `json:"low"`
	Total    int    `json:"total"`
	Color    string `json:"color"`
}

// LicenseViolation is one component license outside the allowed set.
type LicenseViolation struct {
	License  string `json:"license"`
	Count    int    `json:"count"`
	Severity string `json:"severity"`
	Class    string `json:"class"`
}

// LicenseReport summarizes inventory license compliance.
type LicenseReport struct {
	Permissive int                `json:"permissive"`
	Unknown    int                `json:"unknown"`
	Violations []LicenseViolation `json:"violations"`
}

// ToxicComponent is a package with open known-exploited findings.
type ToxicComponent struct {
	Name       string `json:"name"`
	Version    string `json:"version"`
	KEVCount   int    `json:"kev_count"`
	FixVersion string `json:"fix_version"`
}

// RiskReport is the full release risk assessment.
type RiskReport struct {
	ReleaseID       shared.ID         `json:"release_id"`
	ReleaseName     string            `json:"release_name"`
	GeneratedAt     time.Time         `json:"generated_at"`
	ArtifactCount   int               `json:"artifact_count"`
	Legacy          bool              `json:"legacy"`
	Score           RiskScore         `json:"score"`
	Counts          SeverityCounts    `json:"counts"`
	Compliance      ComplianceSummary `json:"compliance"`
	SLABreaches     []SLABreach       `json:"sla_breaches"`
	KillList        []KillListEntry   `json:"kill_list"`
	Treemap         []TreemapEntry    `json:"treemap"`
	Licenses        LicenseReport     `json:"licenses"`
	ToxicComponents []ToxicComponent  `json:"toxic_components"`
}

// riskScope is the resolved finding scope set of a release: the BOM
// artifacts when composed, otherwise the release itself when legacy scans
// attached directly.
type riskScope struct {
	scopes    []finding.Scope
	artifacts []*artifact.Artifact
	legacy    bool
}

// resolveScope is the single scope-resolution branch every risk computation
// shares with reconciliation semantics: artifact scopes when the release
// has a composed bill of materials, else the release scope when at least
// one legacy scan exists.
func (s *RiskService) resolveScope(ctx context.Context, releaseID shared.ID) (riskScope, error) {
	var rs riskScope

	artifactIDs, err := s.releases.ArtifactIDs(ctx, releaseID)
	if err != nil {
		return rs, fmt.Errorf("load bill of materials: %w", err)
	}

	if len(artifactIDs) > 0 {
		rs.artifacts = make([]*artifact.Artifact, 0, len(artifactIDs))
		for _, id := range artifactIDs {
			art, err := s.artifacts.GetByID(ctx, id)
			if err != nil {
				return rs, fmt.Errorf("load artifact %s: %w", id, err)
			}
			rs.artifacts = append(rs.artifacts, art)
			rs.scopes = append(rs.scopes, finding.ArtifactScope(art.ID()))
		}
		return rs, nil
	}

	legacyScans, err := s.scans.ListByRelease(ctx, releaseID)
	if err != nil {
		return rs, fmt.Errorf("load release scans: %w", err)
	}
	if len(legacyScans) > 0 {
		rs.legacy = true
		rs.scopes = []finding.Scope{finding.ReleaseScope(releaseID)}
	}
	return rs, nil
}

// Report computes the full risk assessment of one release.
func (s *RiskService) Report(ctx context.Context, releaseID shared.ID) (*RiskReport, error) {
	rel, err := s.releases.GetByID(ctx, releaseID)
	if err != nil {
		return nil, fmt.Errorf("get release: %w", err)
	}

	rs, err := s.resolveScope(ctx, releaseID)
	if err != nil {
		return nil, err
	}

	report := &RiskReport{
		ReleaseID:       releaseID,
		ReleaseName:     rel.Name(),
		GeneratedAt:     s.now(),
		ArtifactCount:   len(rs.artifacts),
		Legacy:          rs.legacy,
		SLABreaches:     []SLABreach{},
		KillList:        []KillListEntry{},
		Treemap:         []TreemapEntry{},
		ToxicComponents: []ToxicComponent{},
	}

	countsByScope := map[shared.ID]finding.RiskCounts{}
	if len(rs.scopes) > 0 {
		countsByScope, err = s.findings.RiskCountsByScope(ctx, rs.scopes)
		if err != nil {
			return nil, fmt.Errorf("aggregate finding counts: %w", err)
		}
	}

	var total finding.RiskCounts
	for _, c := range countsByScope {
		total.Critical += c.Critical
		total.High += c.High
		total.Medium += c.Medium
		total.Low += c.Low
		total.Info += c.Info
		total.KEV += c.KEV
		total.Secrets += c.Secrets
	}
	report.Counts = SeverityCounts{
		Critical: total.Critical,
		High:     total.High,
		Medium:   total.Medium,
		Low:      total.Low,
		Info:     total.Info,
		KEV:      total.KEV,
		Secrets:  total.Secrets,
	}

	trp := trpScore(total)
	// A legacy release with scans counts as a single deployable unit.
	units := len(rs.artifacts)
	if units == 0 && rs.legacy {
		units = 1
	}
	density, health := healthScore(trp, units)
	report.Score = RiskScore{
		TRP:     trp,
		Density: density,
		Health:  health,
		Grade:   healthGrade(health),
	}

	report.Compliance = ComplianceSummary{
		Compliant:      total.KEV == 0 && total.Secrets == 0,
		BlockingIssues: total.KEV + total.Secrets,
	}

	if len(rs.scopes) > 0 {
		if err := s.fillBreaches(ctx, report, rs); err != nil {
			return nil, err
		}
		if err := s.fillKillList(ctx, report, rs); err != nil {
			return nil, err
		}
		if err := s.fillToxicComponents(ctx, report, rs); err != nil {
			return nil, err
		}
	}
	s.fillTreemap(report, rs, countsByScope)
	if err := s.fillLicenses(ctx, report, releaseID); err != nil {
		return nil, err
	}

	return report, nil
}

func (s *RiskService) fillBreaches(ctx context.Context, report *RiskReport, rs riskScope) error {
	cutoff := s.now().AddDate(0, 0, -s.cfg.SLADays)
	overdue, err := s.findings.ListSLABreaches(ctx, rs.scopes, cutoff)
	if err != nil {
		return fmt.Errorf("list sla breaches: %w", err)
	}

	locations := s.locationIndex(rs, report.ReleaseName)
	for _, f := range overdue {
		report.SLABreaches = append(report.SLABreaches, SLABreach{
			FindingID: f.ID(),
			Title:     f.Title(),
			Location:  locations[f.Scope().ID()],
			FirstSeen: f.FirstSeen(),
			AgeDays:   int(s.now().Sub(f.FirstSeen()).Hours() / 24),
		})
	}
	return nil
}

func (s *RiskService) fillKillList(ctx context.Context, report *RiskReport, rs riskScope) error {
	blocking, err := s.findings.ListBlocking(ctx, rs.scopes)
	if err != nil {
		return fmt.Errorf("list blocking findings: %w", err)
	}

	locations := s.locationIndex(rs, report.ReleaseName)
	for _, f := range blocking {
		entry := KillListEntry{
			FindingID:   f.ID(),
			Title:       f.Title(),
			Severity:    string(f.Severity()),
			Location:    locations[f.Scope().ID()],
			Remediation: remediation(f),
		}
		if f.FindingType() == finding.TypeSecret {
			entry.IssueType = "Exposed Secret"
			entry.Subject = f.FilePath()
		} else {
			entry.IssueType = "Known Exploited Vulnerability"
			entry.Subject = f.PackageName()
		}
		report.KillList = append(report.KillList, entry)
	}
	return nil
}

func (s *RiskService) fillToxicComponents(ctx context.Context, report *RiskReport, rs riskScope) error {
	toxic, err := s.findings.ToxicPackages(ctx, rs.scopes)
	if err != nil {
		return fmt.Errorf("aggregate toxic packages: %w", err)
	}
	for _, t := range toxic {
		report.ToxicComponents = append(report.ToxicComponents, ToxicComponent{
			Name:       t.Name,
			Version:    t.Version,
			KEVCount:   t.KEVCount,
			FixVersion: t.FixVersion,
		})
	}
	return nil
}

func (s *RiskService) fillTreemap(report *RiskReport, rs riskScope, counts map[shared.ID]finding.RiskCounts) {
	if rs.legacy {
		// One synthetic entry stands for the whole release.
		var c finding.RiskCounts
		for _, v := range counts {
			c = v
		}
		report.Treemap = append(report.Treemap, treemapEntry(report.ReleaseName, "", c))
		return
	}
	for _, art := range rs.artifacts {
		report.Treemap = append(report.Treemap, treemapEntry(art.Name(), art.Version(), counts[art.ID()]))
	}
	sort.Slice(report.Treemap, func(i, j int) bool {
		return report.Treemap[i].Total > report.Treemap[j].Total
	})
}

func (s *RiskService) fillLicenses(ctx context.Context, report *RiskReport, releaseID shared.ID) error {
	byLicense, err := s.components.LicenseCounts(ctx, releaseID)
	if err != nil {
		return fmt.Errorf("aggregate license counts: %w", err)
	}

	report.Licenses.Violations = []LicenseViolation{}
	for license, count := range byLicense {
		switch classifyLicense(license, s.cfg) {
		case licensePermissive:
			report.Licenses.Permissive += count
		case licenseForbidden:
			report.Licenses.Violations = append(report.Licenses.Violations, LicenseViolation{
				License:  license,
				Count:    count,
				Severity: string(finding.SeverityCritical),
				Class:    "forbidden",
			})
		case licenseWeakCopyleft:
			report.Licenses.Violations = append(report.Licenses.Violations, LicenseViolation{
				License:  license,
				Count:    count,
				Severity: string(finding.SeverityHigh),
				Class:    "weak-copyleft",
			})
		default:
			report.Licenses.Unknown += count
		}
	}
	sort.Slice(report.Licenses.Violations, func(i, j int) bool {
		return report.Licenses.Violations[i].License < report.Licenses.Violations[j].License
	})
	return nil
}

// locationIndex maps scope IDs to human-readable locations.
func (s *RiskService) locationIndex(rs riskScope, releaseName string) map[shared.ID]string {
	index := make(map[shared.ID]string, len(rs.scopes))
	for _, art := range rs.artifacts {
		index[art.ID()] = art.Ref()
	}
	if rs.legacy {
		for _, sc := range rs.scopes {
			index[sc.ID()] = releaseName
		}
	}
	return index
}

// trpScore computes technical risk points over open findings.
func trpScore(c finding.RiskCounts) float64 {
	return trpWeightKEV*float64(c.KEV) +
		trpWeightSecret*float64(c.Secrets) +
		trpWeightCritical*float64(c.Critical) +
		trpWeightHigh*float64(c.High) +
		trpWeightMedium*float64(c.Medium)
}

// healthScore converts risk points into density per deployable unit and a
// bounded 1..100 health score. A clean release scores exactly 100.
func healthScore(trp float64, units int) (density float64, health int) {
	if units < 1 {
		units = 1
	}
	density = trp / float64(units)
	health = int(math.Round(100 / (1 + density/25)))
	if health < 1 {
		health = 1
	}
	return density, health
}

func healthGrade(health int) string {
	switch {
	case health >= 90:
		return "A"
	case health >= 80:
		return "B"
	case health >= 70:
		return "C"
	default:
		return "F"
	}
}

// remediation renders the action for a kill-list entry. Secrets are revoked,
// never "fixed"; rotating the credential is the only remediation. For the
// rest the hint is the fix version itself.
func remediation(f *finding.Finding) string {
	if f.FindingType() == finding.TypeSecret {
		return "Revoke"
	}
	if fix := f.FixVersion(); fix != "" {
		return fix
	}
	return "Not available"
}

func treemapEntry(name, version string, c finding.RiskCounts) TreemapEntry {
	return TreemapEntry{
		Name:     name,
		Version:  version,
		Critical: c.Critical,
		High:     c.High,
		Medium:   c.Medium,
		Low:      c.Low,
		Total:    c.Total(),
		Color:    severityColor(c),
	}
}

// severityColor picks the dominant severity color for treemap rendering.
func severityColor(c finding.RiskCounts) string {
	switch {
	case c.Critical > 0:
		return "red"
	case c.High > 0:
		return "orange"
	case c.Medium > 0:
		return "yellow"
	default:
		return "green"
	}
}

type licenseClass int

const (
	licenseUnknown licenseClass = iota
	licensePermissive
	licenseForbidden
	licenseWeakCopyleft
)

// classifyLicense matches a raw license string against the configured token
// lists. Weak-copyleft tokens are checked before forbidden ones so that
// "LGPL-3.0" matches its own class instead of the "GPL-3.0" substring.
func classifyLicense(license string, cfg config.RiskConfig) licenseClass {
	norm := strings.ToLower(strings.TrimSpace(license))
	if norm == "" || strings.EqualFold(license, component.UnknownLicense) {
		return licenseUnknown
	}
	if matchesToken(norm, cfg.WeakCopyleft) {
		return licenseWeakCopyleft
	}
	if matchesToken(norm, cfg.ForbiddenLicenses) {
		return licenseForbidden
	}
	if matchesToken(norm, cfg.PermissiveLicenses) {
		return licensePermissive
	}
	return licenseUnknown
}

func matchesToken(license string, tokens []string) bool {
	for _, token := range tokens {
		if token == "" {
			continue
		}
		if strings.Contains(license, strings.ToLower(token)) {
			return true
		}
	}
	return false
}
