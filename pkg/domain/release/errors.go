package release

import "errors"

var (
	ErrNotFound        = errors.New("release not found")
	ErrNameRequired    = errors.New("release name is required")
	ErrProductRequired = errors.New("product id is required")
	ErrAlreadyExists   = errors.New("release already exists for product")
)
