package irrigation

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"liyu1981.xyz/plant-care-service/pkg/clock"
	"liyu1981.xyz/plant-care-service/pkg/models"
)

// Zone is the runtime state of one irrigation zone.
type Zone struct {
	mu sync.Mutex

	cfg           models.ZoneConfig
	loc           *time.Location
	slots         []time.Duration
	misconfigured bool
	reasons       []string

	lastFired      time.Time
	lastSlotAt     time.Time
	lastEvaluated  time.Time
	errorCount     int
	lastError      string
	lastFertilised *time.Time
}

// ZoneStatus is a read only copy of a zone for queries.
type ZoneStatus struct {
	Config         models.ZoneConfig `json:"config"`
	Misconfigured  bool              `json:"misconfigured"`
	Reasons        []string          `json:"reasons,omitempty"`
	LastFired      *time.Time        `json:"last_fired,omitempty"`
	ErrorCount     int               `json:"error_count"`
	LastError      string            `json:"last_error,omitempty"`
	LastFertilised *time.Time        `json:"last_fertilised,omitempty"`
}

func (z *Zone) status() ZoneStatus {
	st := ZoneStatus{
		Config:         z.cfg,
		Misconfigured:  z.misconfigured,
		Reasons:        append([]string(nil), z.reasons...),
		ErrorCount:     z.errorCount,
		LastError:      z.lastError,
		LastFertilised: z.lastFertilised,
	}
	if !z.lastFired.IsZero() {
		t := z.lastFired
		st.LastFired = &t
	}
	return st
}

func (z *Zone) record() models.ZoneStateRecord {
	return models.ZoneStateRecord{
		ZoneID:           z.cfg.ID,
		LastFiredAt:      z.lastFired,
		LastSlotAt:       z.lastSlotAt,
		ErrorCount:       z.errorCount,
		LastError:        z.lastError,
		LastFertilisedAt: z.lastFertilised,
	}
}

func (z *Zone) restore(r models.ZoneStateRecord) {
	z.lastFired = r.LastFiredAt
	z.lastSlotAt = r.LastSlotAt
	z.errorCount = r.ErrorCount
	z.lastError = r.LastError
	z.lastFertilised = r.LastFertilisedAt
}

func (z *Zone) runsOn(d time.Weekday) bool {
	if len(z.cfg.Weekdays) == 0 {
		return true
	}
	for _, w := range z.cfg.Weekdays {
		if w == d {
			return true
		}
	}
	return false
}

func (z *Zone) inCooldown(now time.Time, cooldown time.Duration) bool {
	return !z.lastFired.IsZero() && now.Sub(z.lastFired) < cooldown
}

// dueSlot returns the latest configured slot in (from, now] that is at most
// tolerance old and was not fired before.
func (z *Zone) dueSlot(from, now time.Time, tolerance time.Duration) (time.Time, bool) {
	var due time.Time
	lnow := now.In(z.loc)
	for d := -1; d <= 0; d++ {
		day := time.Date(lnow.Year(), lnow.Month(), lnow.Day()+d, 0, 0, 0, 0, z.loc)
		if !z.runsOn(day.Weekday()) {
			continue
		}
		for _, off := range z.slots {
			h, m := int(off/time.Hour), int((off%time.Hour)/time.Minute)
			slot := time.Date(day.Year(), day.Month(), day.Day(), h, m, 0, 0, z.loc)
			if !slot.After(from) || slot.After(now) || now.Sub(slot) > tolerance {
				continue
			}
			if !slot.After(z.lastSlotAt) {
				continue
			}
			if slot.After(due) {
				due = slot
			}
		}
	}
	return due, !due.IsZero()
}

func hasSensor(z *models.ZoneConfig, sensorID string) bool {
	for _, s := range z.MoistureSensors {
		if s == sensorID {
			return true
		}
	}
	return false
}

func parseSlots(times []string) ([]time.Duration, []string) {
	var slots []time.Duration
	var problems []string
	for _, t := range times {
		off, err := clock.ParseTimeOfDay(t)
		if err != nil {
			problems = append(problems, err.Error())
			continue
		}
		slots = append(slots, off)
	}
	sort.Slice(slots, func(i, j int) bool { return slots[i] < slots[j] })
	return slots, problems
}

func sharesWeekday(a, b []time.Weekday) bool {
	if len(a) == 0 || len(b) == 0 {
		return true
	}
	for _, x := range a {
		for _, y := range b {
			if x == y {
				return true
			}
		}
	}
	return false
}

// windowsOverlap compares watering windows on the 24h circle.
func windowsOverlap(a []time.Duration, da time.Duration, b []time.Duration, db time.Duration) bool {
	day := 24 * time.Hour
	for _, x := range a {
		for _, y := range b {
			for _, shift := range []time.Duration{-day, 0, day} {
				ys := y + shift
				if x < ys+db && ys < x+da {
					return true
				}
			}
		}
	}
	return false
}

// validate lists the static problems of one zone.
func validate(z *Zone, bindings []models.SensorBinding) []string {
	var reasons []string
	switch z.cfg.Mode {
	case models.ScheduleMoisture:
		if len(z.cfg.MoistureSensors) == 0 {
			reasons = append(reasons, "moisture zone has no sensors")
		}
	case models.ScheduleTime:
		if len(z.cfg.Times) == 0 {
			reasons = append(reasons, "time zone has no slots")
		}
	default:
		reasons = append(reasons, fmt.Sprintf("unknown schedule mode %q", z.cfg.Mode))
	}
	_, slotProblems := parseSlots(z.cfg.Times)
	reasons = append(reasons, slotProblems...)

	if z.cfg.Duration.Std() <= 0 {
		reasons = append(reasons, "watering duration must be positive")
	}

	for _, sensorID := range z.cfg.MoistureSensors {
		bound := false
		for _, b := range bindings {
			if b.SensorID == sensorID && b.Plant && b.LocationID == z.cfg.LocationID {
				bound = true
				break
			}
		}
		if !bound {
			reasons = append(reasons, fmt.Sprintf("sensor %s is not bound to a plant in location %s", sensorID, z.cfg.LocationID))
		}
	}
	return reasons
}
