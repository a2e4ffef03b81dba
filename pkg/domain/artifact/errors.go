package artifact

import "errors"

var (
	ErrNotFound          = errors.New("artifact not found")
	ErrRepoNotFound      = errors.New("source repo not found")
	ErrIdentityRequired  = errors.New("artifact name and version are required")
	ErrWorkspaceRequired = errors.New("workspace id is required")
	ErrRepoURLRequired   = errors.New("source repo url is required")
)
