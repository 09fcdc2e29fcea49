package audio

import "errors"

// Sentinel kinds for normalization errors. These allow errors.Is/As from callers.
var (
	ErrUnsupportedFormat  = errors.New("unsupported audio format")
	ErrClipTooShort       = errors.New("clip too short")
	ErrClipTooLong        = errors.New("clip too long")
	ErrInsufficientSignal = errors.New("insufficient signal")
)
