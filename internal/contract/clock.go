package contract

import "time"

// Clock supplies ledger timestamps. Implementations must be
// monotonically non-decreasing across calls.
type Clock interface {
	// Now returns the current instant in Unix milliseconds.
	Now() int64
}

type systemClock struct{}

func (systemClock) Now() int64 {
	return time.Now().UnixMilli()
}
