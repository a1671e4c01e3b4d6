package smoke

import "time"

// Runner configuration constants.
const (
	DefaultTimeout       = 10 * time.Second
	DefaultSettleTimeout = 30 * time.Second
	pollInterval         = 100 * time.Millisecond
	percentageMultiplier = 100
)
