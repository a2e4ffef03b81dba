package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/wellqio/api/pkg/domain/finding"
	"github.com/wellqio/api/pkg/fingerprint"
)

const (
	secretPreviewLen = 50
	diffPreviewLen   = 400
)

// hunkHeader extracts the new-file start line from a unified diff hunk.
var hunkHeader = regexp.MustCompile(`@@ -\d+(?:,\d+)? \+(\d+)(?:,\d+)? @@`)

type trufflehogEntry struct {
	Branch       string   `json:"branch"`
	Commit       string   `json:"commit"`
	CommitHash   string   `json:"commitHash"`
	Date         string   `json:"date"`
	Diff         string   `json:"diff"`
	Path         string   `json:"path"`
	Reason       string   `json:"reason"`
	StringsFound []string `json:"stringsFound"`
}

// TrufflehogParser normalizes trufflehog output into SECRET candidates.
// The raw secret value is never kept: findings carry only its sha256 and a
// short preview.
type TrufflehogParser struct{}

// NewTrufflehogParser creates a trufflehog parser.
func NewTrufflehogParser() *TrufflehogParser { return &TrufflehogParser{} }

// Scanner implements Parser.
func (p *TrufflehogParser) Scanner() string { return ScannerTrufflehog }

// Parse implements Parser. The document may be a single entry object or an
// array of entries; both shapes occur in the wild.
func (p *TrufflehogParser) Parse(_ context.Context, doc []byte) ([]finding.Candidate, error) {
	if len(doc) == 0 {
		return nil, ErrEmptyDocument
	}

	entries, err := decodeEntries(doc)
	if err != nil {
		return nil, err
	}

	var out []finding.Candidate
	for _, entry := range entries {
		for _, secret := range entry.StringsFound {
			if secret == "" {
				continue
			}
			out = append(out, p.toCandidate(entry, secret))
		}
	}
	return out, nil
}

func decodeEntries(doc []byte) ([]trufflehogEntry, error) {
	trimmed := strings.TrimSpace(string(doc))
	if strings.HasPrefix(trimmed, "[") {
		var entries []trufflehogEntry
		if err := json.Unmarshal(doc, &entries); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedDocument, err)
		}
		return entries, nil
	}

	var entry trufflehogEntry
	if err := json.Unmarshal(doc, &entry); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedDocument, err)
	}
	return []trufflehogEntry{entry}, nil
}

func (p *TrufflehogParser) toCandidate(entry trufflehogEntry, secret string) finding.Candidate {
	reason := entry.Reason
	if reason == "" {
		reason = "Secret detected"
	}

	preview := truncateRunes(secret, secretPreviewLen)

	meta := finding.Metadata{
		finding.MetaProvider:      ScannerTrufflehog,
		finding.MetaSecretHash:    fingerprint.SecretHash(secret),
		finding.MetaSecretPreview: preview,
	}

	return finding.Candidate{
		Title:       "Secret Found: " + reason,
		Description: p.describe(entry),
		Severity:    finding.SeverityCritical,
		Type:        finding.TypeSecret,
		FilePath:    entry.Path,
		Line:        lineFromDiff(entry.Diff),
		Metadata:    meta,
	}
}

func (p *TrufflehogParser) describe(entry trufflehogEntry) string {
	var b strings.Builder
	b.WriteString("Reason: " + entry.Reason)
	if entry.Branch != "" {
		b.WriteString("\nBranch: " + entry.Branch)
	}
	if entry.CommitHash != "" {
		b.WriteString("\nCommit: " + entry.CommitHash)
	} else if entry.Commit != "" {
		b.WriteString("\nCommit: " + strings.TrimSpace(entry.Commit))
	}
	if entry.Diff != "" {
		diff := entry.Diff
		if len(diff) > diffPreviewLen {
			diff = truncateRunes(diff, diffPreviewLen) + "..."
		}
		b.WriteString("\n\n" + diff)
	}
	return b.String()
}

// truncateRunes cuts s to at most max bytes without splitting a multi-byte
// rune, so previews stay valid UTF-8.
func truncateRunes(s string, max int) string {
	if len(s) <= max {
		return s
	}
	for max > 0 && !utf8.RuneStart(s[max]) {
		max--
	}
	return s[:max]
}

// lineFromDiff makes a best-effort guess at the secret's line number from
// the first diff hunk header. Returns 0 when the diff has none.
func lineFromDiff(diff string) int {
	m := hunkHeader.FindStringSubmatch(diff)
	if m == nil {
		return 0
	}
	line, err := strconv.Atoi(m[1])
	if err != nil {
		return 0
	}
	return line
}
