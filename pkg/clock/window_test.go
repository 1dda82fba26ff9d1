package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDayStartForMidnight(t *testing.T) {
	w := NewTimeWindow(time.UTC, 0)

	ts := time.Date(2025, 5, 10, 13, 45, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2025, 5, 10, 0, 0, 0, 0, time.UTC), w.DayStartFor(ts))
	assert.Equal(t, time.Date(2025, 5, 11, 0, 0, 0, 0, time.UTC), w.NextDayStart(ts))

	// exactly on the boundary belongs to the new day
	b := time.Date(2025, 5, 11, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, b, w.DayStartFor(b))
	assert.Equal(t, b.Add(24*time.Hour), w.NextDayStart(b))
}

func TestDayStartForOffset(t *testing.T) {
	offset, err := ParseTimeOfDay("06:30")
	require.NoError(t, err)
	w := NewTimeWindow(time.UTC, offset)

	before := time.Date(2025, 5, 10, 5, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2025, 5, 9, 6, 30, 0, 0, time.UTC), w.DayStartFor(before))

	after := time.Date(2025, 5, 10, 7, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2025, 5, 10, 6, 30, 0, 0, time.UTC), w.DayStartFor(after))
	assert.Equal(t, time.Date(2025, 5, 11, 6, 30, 0, 0, time.UTC), w.NextDayStart(after).UTC())
}

func TestDayStartForLocalZone(t *testing.T) {
	loc := time.FixedZone("UTC+2", 2*60*60)
	w := NewTimeWindow(loc, 0)

	// 23:00 UTC is already 01:00 of the next local day
	ts := time.Date(2025, 5, 10, 23, 0, 0, 0, time.UTC)
	start := w.DayStartFor(ts)
	assert.True(t, start.Equal(time.Date(2025, 5, 10, 22, 0, 0, 0, time.UTC)))
}

func TestParseTimeOfDay(t *testing.T) {
	d, err := ParseTimeOfDay("23:59")
	require.NoError(t, err)
	assert.Equal(t, 23*time.Hour+59*time.Minute, d)

	for _, bad := range []string{"24:00", "7", "aa:10", "10:61"} {
		_, err := ParseTimeOfDay(bad)
		assert.Error(t, err, bad)
	}
}

func TestFakeClock(t *testing.T) {
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	c := NewFakeClock(start)
	assert.Equal(t, start, c.Now())
	assert.Equal(t, start.Add(time.Minute), c.Advance(time.Minute))
	c.Set(start)
	assert.Equal(t, start, c.Now())
}
