package realtime

import "time"

// dayAt builds a plain UTC date for use as a service date in tests.
func dayAt(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}
