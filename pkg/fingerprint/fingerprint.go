// Package fingerprint computes stable identities for security findings.
//
// A fingerprint is derived from the natural key of a finding plus the scope
// (artifact or release) it was observed in, so the same weakness reported by
// two scans of the same scope collapses to one record while identical
// weaknesses in different scopes stay distinct.
package fingerprint

import (
	"crypto/md5"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
)

// Finding types that select the fingerprint formula.
const (
	TypeSCA    = "SCA"
	TypeSecret = "SECRET"
)

// Input carries the fields that participate in fingerprint computation.
// Only the fields relevant to the finding type are used.
type Input struct {
	FindingType     string
	Title           string
	FilePath        string
	Line            int
	VulnerabilityID string
	PackageName     string
	PackageVersion  string
	SecretHash      string
}

// Compute returns the hex-encoded sha256 fingerprint of the finding within
// the given scope. The formula depends on the finding type:
//
//	SECRET: filePath-secretHash-scopeID
//	SCA:    vulnID-pkgName-pkgVersion-scopeID
//	other:  filePath-line-title-scopeID
func Compute(in Input, scopeID string) string {
	var key string
	switch in.FindingType {
	case TypeSecret:
		key = fmt.Sprintf("%s-%s-%s", in.FilePath, in.SecretHash, scopeID)
	case TypeSCA:
		key = fmt.Sprintf("%s-%s-%s-%s", in.VulnerabilityID, in.PackageName, in.PackageVersion, scopeID)
	default:
		key = fmt.Sprintf("%s-%d-%s-%s", in.FilePath, in.Line, in.Title, scopeID)
	}
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])
}

// SecretHash returns the sha256 digest of a raw secret value. The raw value
// itself is never stored.
func SecretHash(secret string) string {
	sum := sha256.Sum256([]byte(secret))
	return hex.EncodeToString(sum[:])
}

// SyntheticVulnID builds a deterministic vulnerability identifier for SCA
// findings that carry no CVE, so fingerprints stay stable across scans.
// The result looks like "XRAY-1A2B3C4D".
func SyntheticVulnID(prefix, component, summary string) string {
	sum := md5.Sum([]byte(component + "-" + summary))
	short := strings.ToUpper(hex.EncodeToString(sum[:]))[:8]
	return prefix + "-" + short
}
