package product

import "errors"

var (
	ErrNotFound           = errors.New("product not found")
	ErrNameRequired       = errors.New("product name is required")
	ErrWorkspaceRequired  = errors.New("workspace id is required")
	ErrInvalidCriticality = errors.New("invalid product criticality")
)
