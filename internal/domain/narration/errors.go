package narration

import "errors"

// Sentinel error kinds for this package.
var (
	ErrNarrate = errors.New("narration failed")
	ErrState   = errors.New("narration state unavailable")
)
