package testclips

import "time"

// HTTP status code constants.
const (
	StatusOK       = 200
	StatusAccepted = 202
	StatusNotFound = 404
)

// Worker configuration constants.
const (
	WorkerChannelMultiplier = 2
)

// Runner configuration constants.
const (
	OutcomePollInterval  = 200 * time.Millisecond
	OutcomePollDeadline  = 2 * time.Minute
	PercentageMultiplier = 100
)
