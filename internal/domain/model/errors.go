package model

import "errors"

// Sentinel error kinds for this package. These allow errors.Is/As from callers.
var (
	ErrUnknownCategory = errors.New("unknown event category")
	ErrInvalidEvent    = errors.New("invalid event")
	ErrInvalidColour   = errors.New("invalid team colour")
)
