package pipeline

import "time"

// DailySchedule returns true if a run is needed today. Days without a run are
// not back-filled; only the current UTC day is considered.
func DailySchedule(now time.Time, lastSuccess *time.Time) bool {
	if lastSuccess == nil {
		return true
	}
	now = now.UTC()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	return lastSuccess.Before(today)
}
