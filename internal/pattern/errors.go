package pattern

import "fmt"

// InsufficientDataError indicates the resampled series is shorter than two
// full seasonal cycles, below which decomposition is undefined.
type InsufficientDataError struct {
	Bins     int
	Required int
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("insufficient data for decomposition: %d hourly bins, need at least %d", e.Bins, e.Required)
}
