package ingest

import "errors"

var (
	ErrUnsupportedScanner = errors.New("unsupported scanner")
	ErrEmptyDocument      = errors.New("empty scan document")
	ErrMalformedDocument  = errors.New("malformed scan document")

	// ErrScopeBusy signals that another reconciliation currently holds
	// the scope; the job should be retried.
	ErrScopeBusy = errors.New("scope is being reconciled by another scan")
)
