package finding

import "errors"

var (
	ErrNotFound      = errors.New("finding not found")
	ErrScopeRequired = errors.New("finding requires a scope")
	ErrInvalidType   = errors.New("invalid finding type")
	ErrInvalidStatus = errors.New("invalid finding status")
)
