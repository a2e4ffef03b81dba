package approval

import "errors"

var (
	ErrNotFound        = errors.New("approval request not found")
	ErrFindingRequired = errors.New("finding id is required")
	ErrStatusNotGated  = errors.New("requested status does not require approval")
	ErrNoteRequired    = errors.New("triage note is required")
	ErrAlreadyResolved = errors.New("approval request already resolved")

	ErrExpiryNotAllowed = errors.New("expiry is only valid for WONT_FIX requests")
	ErrExpiryInPast     = errors.New("risk acceptance expiry must be in the future")
)
