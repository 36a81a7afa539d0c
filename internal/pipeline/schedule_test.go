package pipeline

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDailySchedule(t *testing.T) {
	now := time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC)
	earlierToday := time.Date(2026, 10, 18, 0, 0, 5, 0, time.UTC)
	yesterday := time.Date(2026, 10, 17, 23, 59, 0, 0, time.UTC)
	lastWeek := now.AddDate(0, 0, -7)

	assert.True(t, DailySchedule(now, nil))
	assert.False(t, DailySchedule(now, &earlierToday))
	assert.True(t, DailySchedule(now, &yesterday))
	assert.True(t, DailySchedule(now, &lastWeek))
}

func TestDailySchedule_NonUTCNow(t *testing.T) {
	berlin := time.FixedZone("CEST", 2*60*60)
	// 01:00 in Berlin is still the previous UTC day.
	now := time.Date(2026, 10, 19, 1, 0, 0, 0, berlin)
	last := time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)

	assert.False(t, DailySchedule(now, &last))
}
