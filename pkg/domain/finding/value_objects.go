package finding

// Severity ranks the impact of a finding.
type Severity string

const (
	SeverityCritical Severity = "CRITICAL"
	SeverityHigh     Severity = "HIGH"
	SeverityMedium   Severity = "MEDIUM"
	SeverityLow      Severity = "LOW"
	SeverityInfo     Severity = "INFO"
)

// IsValid reports whether the severity is a known value.
func (s Severity) IsValid() bool {
	switch s {
	case SeverityCritical, SeverityHigh, SeverityMedium, SeverityLow, SeverityInfo:
		return true
	}
	return false
}

// Rank returns an ordering weight, highest severity first.
func (s Severity) Rank() int {
	switch s {
	case SeverityCritical:
		return 0
	case SeverityHigh:
		return 1
	case SeverityMedium:
		return 2
	case SeverityLow:
		return 3
	default:
		return 4
	}
}

// NormalizeSeverity maps arbitrary scanner severity strings onto the known
// set, defaulting to INFO.
func NormalizeSeverity(raw string) Severity {
	switch Severity(raw) {
	case SeverityCritical, SeverityHigh, SeverityMedium, SeverityLow, SeverityInfo:
		return Severity(raw)
	}
	return SeverityInfo
}

// Type classifies what kind of weakness a finding describes.
type Type string

const (
	TypeSCA       Type = "SCA"
	TypeSecret    Type = "SECRET"
	TypeSAST      Type = "SAST"
	TypeIaC       Type = "IAC"
	TypeContainer Type = "CONTAINER"
)

// IsValid reports whether the type is a known value.
func (t Type) IsValid() bool {
	switch t {
	case TypeSCA, TypeSecret, TypeSAST, TypeIaC, TypeContainer:
		return true
	}
	return false
}

// Status is the lifecycle state of a finding.
type Status string

const (
	StatusOpen          Status = "OPEN"
	StatusFixed         Status = "FIXED"
	StatusFalsePositive Status = "FALSE_POSITIVE"
	StatusWontFix       Status = "WONT_FIX"
	StatusDuplicate     Status = "DUPLICATE"
)

// IsValid reports whether the status is a known value.
func (s Status) IsValid() bool {
	switch s {
	case StatusOpen, StatusFixed, StatusFalsePositive, StatusWontFix, StatusDuplicate:
		return true
	}
	return false
}

// IsTriaged reports whether the status was set by a human decision rather
// than scanner observation.
func (s Status) IsTriaged() bool {
	return s == StatusFalsePositive || s == StatusWontFix || s == StatusDuplicate
}

// RequiresApproval reports whether moving a finding into this status needs
// a reviewed approval request.
func (s Status) RequiresApproval() bool {
	return s.IsTriaged()
}

// Metadata keys written by adapters and the enrichment job.
const (
	MetaCVSS           = "cvss"
	MetaCWE            = "cwe"
	MetaReferences     = "references"
	MetaEPSSScore      = "epss_score"
	MetaEPSSPercentile = "epss_percentile"
	MetaKEVStatus      = "kev_status"
	MetaKEVDate        = "kev_date"
	MetaSecretHash     = "secret_hash"
	MetaSecretPreview  = "secret_preview"
	MetaProvider       = "provider"
)

// Metadata is a free-form bag of scanner and enrichment attributes. Typed
// accessors default to the zero value on absent or mistyped keys.
type Metadata map[string]any

func (m Metadata) getFloat(key string) float64 {
	switch v := m[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	}
	return 0
}

func (m Metadata) getString(key string) string {
	if v, ok := m[key].(string); ok {
		return v
	}
	return ""
}

// CVSS returns the CVSS base score, 0 when unknown.
func (m Metadata) CVSS() float64 { return m.getFloat(MetaCVSS) }

// EPSSScore returns the EPSS probability, 0 when unknown.
func (m Metadata) EPSSScore() float64 { return m.getFloat(MetaEPSSScore) }

// EPSSPercentile returns the EPSS percentile, 0 when unknown.
func (m Metadata) EPSSPercentile() float64 { return m.getFloat(MetaEPSSPercentile) }

// KEV reports whether the finding's CVE is on the known-exploited list.
func (m Metadata) KEV() bool {
	v, ok := m[MetaKEVStatus].(bool)
	return ok && v
}

// KEVDate returns the date the CVE was added to the KEV catalog.
func (m Metadata) KEVDate() string { return m.getString(MetaKEVDate) }

// SecretHash returns the sha256 of the detected secret.
func (m Metadata) SecretHash() string { return m.getString(MetaSecretHash) }

// SecretPreview returns the truncated secret preview.
func (m Metadata) SecretPreview() string { return m.getString(MetaSecretPreview) }

// SetKEV marks the finding as known-exploited.
func (m Metadata) SetKEV(dateAdded string) {
	m[MetaKEVStatus] = true
	m[MetaKEVDate] = dateAdded
}

// ClearKEV removes KEV markers, used when a CVE leaves the catalog.
func (m Metadata) ClearKEV() {
	delete(m, MetaKEVStatus)
	delete(m, MetaKEVDate)
}

// SetEPSS records exploit prediction scores.
func (m Metadata) SetEPSS(score, percentile float64) {
	m[MetaEPSSScore] = score
	m[MetaEPSSPercentile] = percentile
}

// ClearEPSS removes exploit prediction scores.
func (m Metadata) ClearEPSS() {
	delete(m, MetaEPSSScore)
	delete(m, MetaEPSSPercentile)
}

// Clone returns a shallow copy, never nil.
func (m Metadata) Clone() Metadata {
	out := make(Metadata, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
