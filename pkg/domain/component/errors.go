package component

import "errors"

var (
	ErrNotFound        = errors.New("component not found")
	ErrNameRequired    = errors.New("component name is required")
	ErrReleaseRequired = errors.New("release id is required")
)
