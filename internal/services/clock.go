package services

import "time"

// SystemClock is the default clock. Ledger timestamps have second precision.
func SystemClock() time.Time {
	return time.Now().UTC().Truncate(time.Second)
}

func secondClock(now func() time.Time) func() time.Time {
	if now == nil {
		return SystemClock
	}
	return func() time.Time { return now().Truncate(time.Second) }
}
