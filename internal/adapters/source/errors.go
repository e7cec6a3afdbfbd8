package source

import "errors"

// Sentinel error kinds for this package.
var (
	ErrLoadSource         = errors.New("failed to load source")
	ErrMissingTimestamp   = errors.New("record has no timestamp")
	ErrMalformedTimestamp = errors.New("malformed timestamp")
)
