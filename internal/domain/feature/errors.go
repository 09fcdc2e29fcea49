package feature

import "errors"

var (
	// ErrNoVoicedContent indicates a clip with zero voiced frames to
	// aggregate over.
	ErrNoVoicedContent = errors.New("no voiced content")
)
