package threatintel

import "errors"

var (
	ErrNotFound       = errors.New("threat intel record not found")
	ErrSourceDisabled = errors.New("threat intel source is disabled")
	ErrUnknownSource  = errors.New("unknown threat intel source")
)
