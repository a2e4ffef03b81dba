package workspace

import "errors"

var (
	ErrNotFound     = errors.New("workspace not found")
	ErrNameRequired = errors.New("workspace name is required")
	ErrSlugTaken    = errors.New("workspace slug already in use")
)
