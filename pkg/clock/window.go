package clock

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// TimeWindow computes rolling-day and rolling-week boundaries in a location's
// local time. A day starts at Offset after local midnight.
type TimeWindow struct {
	Location *time.Location
	Offset   time.Duration
}

func NewTimeWindow(loc *time.Location, offset time.Duration) TimeWindow {
	if loc == nil {
		loc = time.UTC
	}
	if offset < 0 || offset >= 24*time.Hour {
		offset = 0
	}
	return TimeWindow{Location: loc, Offset: offset}
}

// ParseTimeOfDay parses "HH:MM" into an offset from midnight.
func ParseTimeOfDay(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	parts := strings.Split(s, ":")
	if len(parts) != 2 {
		return 0, fmt.Errorf("time of day %q: expected HH:MM", s)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 23 {
		return 0, fmt.Errorf("time of day %q: bad hour", s)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return 0, fmt.Errorf("time of day %q: bad minute", s)
	}
	return time.Duration(h)*time.Hour + time.Duration(m)*time.Minute, nil
}

func (w TimeWindow) at(y int, mo time.Month, d int) time.Time {
	h := int(w.Offset / time.Hour)
	m := int((w.Offset % time.Hour) / time.Minute)
	return time.Date(y, mo, d, h, m, 0, 0, w.loc())
}

func (w TimeWindow) loc() *time.Location {
	if w.Location == nil {
		return time.UTC
	}
	return w.Location
}

// DayStartFor returns the most recent day boundary at or before t.
func (w TimeWindow) DayStartFor(t time.Time) time.Time {
	lt := t.In(w.loc())
	b := w.at(lt.Year(), lt.Month(), lt.Day())
	if b.After(t) {
		b = w.at(lt.Year(), lt.Month(), lt.Day()-1)
	}
	return b
}

// NextDayStart returns the first day boundary strictly after t.
func (w TimeWindow) NextDayStart(t time.Time) time.Time {
	s := w.DayStartFor(t).In(w.loc())
	return w.at(s.Year(), s.Month(), s.Day()+1)
}
