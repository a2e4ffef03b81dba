// Package ingest turns raw scanner documents into reconciled findings.
//
// Adapters normalize each supported scanner's output format into
// finding.Candidate values; the reconciler then merges candidates into the
// persistent finding set of the scan's scope.
package ingest

import (
	"context"
	"fmt"
	"sort"

	"github.com/wellqio/api/pkg/domain/finding"
)

// Supported scanner names.
const (
	ScannerTrivy      = "trivy"
	ScannerTrufflehog = "trufflehog"
	ScannerXray       = "jfrog-xray"
)

// Parser normalizes one scanner's raw output document into finding
// candidates. Parsers tolerate malformed entries: a broken row is skipped
// or defaulted, never aborts the batch.
type Parser interface {
	// Scanner returns the scanner name this parser handles.
	Scanner() string

	// Parse extracts candidates from the raw document.
	Parse(ctx context.Context, doc []byte) ([]finding.Candidate, error)
}

// Registry resolves parsers by scanner name.
type Registry struct {
	parsers map[string]Parser
}

// NewRegistry builds a registry from the given parsers.
func NewRegistry(parsers ...Parser) *Registry {
	r := &Registry{parsers: make(map[string]Parser, len(parsers))}
	for _, p := range parsers {
		r.parsers[p.Scanner()] = p
	}
	return r
}

// DefaultRegistry returns a registry with all built-in adapters.
func DefaultRegistry() *Registry {
	return NewRegistry(
		NewTrivyParser(),
		NewTrufflehogParser(),
		NewXrayParser(),
	)
}

// Get returns the parser for a scanner name.
func (r *Registry) Get(scanner string) (Parser, error) {
	p, ok := r.parsers[scanner]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedScanner, scanner)
	}
	return p, nil
}

// Supported reports whether the scanner name has a parser.
func (r *Registry) Supported(scanner string) bool {
	_, ok := r.parsers[scanner]
	return ok
}

// Scanners lists the registered scanner names, sorted.
func (r *Registry) Scanners() []string {
	names := make([]string, 0, len(r.parsers))
	for name := range r.parsers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
