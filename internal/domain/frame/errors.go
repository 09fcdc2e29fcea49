package frame

import "errors"

var (
	// ErrInvalidFraming indicates window/hop parameters that cannot tile a clip.
	ErrInvalidFraming = errors.New("invalid framing parameters")
)
