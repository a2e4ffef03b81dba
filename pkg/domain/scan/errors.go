package scan

import "errors"

var (
	ErrNotFound          = errors.New("scan not found")
	ErrScopeRequired     = errors.New("scan requires an artifact or release scope")
	ErrScannerRequired   = errors.New("scanner name is required")
	ErrInvalidTransition = errors.New("invalid scan status transition")
)
