package light

import (
	"time"

	"liyu1981.xyz/plant-care-service/pkg/clock"
	"liyu1981.xyz/plant-care-service/pkg/common"
	"liyu1981.xyz/plant-care-service/pkg/models"
)

const DefaultRetention = 7

type DayTotal struct {
	Day time.Time `json:"day"`
	DLI float64   `json:"dli"`
}

type Options struct {
	Window    clock.TimeWindow
	Factor    float64
	MaxGap    time.Duration
	Retention int
}

// State is the persisted form of an Accumulator.
type State struct {
	DayStart     time.Time
	Accumulated  float64
	HasData      bool
	LastSampleAt time.Time
	IntegratedTo time.Time
	LastPPFD     float64
	Ring         []DayTotal
}

// Accumulator integrates PPFD of one plant or location into a daily light
// integral. PPFD is held between samples; the total only grows within a day
// and is reset exactly at the configured day boundary. It is not safe for
// concurrent use, the owner serialises access.
type Accumulator struct {
	entityID string
	opts     Options

	dayStart     time.Time
	accumulated  float64
	hasData      bool
	lastSampleAt time.Time
	integratedTo time.Time
	lastPPFD     float64
	ring         []DayTotal
}

func NewAccumulator(entityID string, opts Options) *Accumulator {
	a := &Accumulator{entityID: entityID}
	a.Reconfigure(opts)
	return a
}

func (a *Accumulator) Reconfigure(opts Options) {
	if opts.Factor <= 0 {
		opts.Factor = DefaultFactor
	}
	if opts.Retention <= 0 {
		opts.Retention = DefaultRetention
	}
	a.opts = opts
	if len(a.ring) > opts.Retention {
		a.ring = a.ring[len(a.ring)-opts.Retention:]
	}
}

func (a *Accumulator) started() bool {
	return !a.lastSampleAt.IsZero()
}

func (a *Accumulator) withinGap(t time.Time) bool {
	return a.opts.MaxGap <= 0 || t.Sub(a.lastSampleAt) <= a.opts.MaxGap
}

func (a *Accumulator) integrate(to time.Time) {
	if !to.After(a.integratedTo) {
		return
	}
	a.accumulated += a.lastPPFD * to.Sub(a.integratedTo).Seconds() / 1e6
	a.integratedTo = to
}

// crossBoundaries closes every day boundary in (dayStart, t]. The held PPFD is
// credited up to a boundary only while t is still within the max gap of the
// last sample.
func (a *Accumulator) crossBoundaries(t time.Time) []models.Event {
	var events []models.Event
	for {
		next := a.opts.Window.NextDayStart(a.dayStart)
		if t.Before(next) {
			return events
		}
		if a.hasData {
			if a.withinGap(t) {
				a.integrate(next)
			}
			events = append(events, a.finalize(next))
		}
		a.dayStart = a.opts.Window.DayStartFor(t)
		if a.integratedTo.Before(a.dayStart) {
			a.integratedTo = a.dayStart
		}
		if !a.hasData {
			return events
		}
		a.hasData = false
		a.accumulated = 0
	}
}

func (a *Accumulator) finalize(boundary time.Time) models.DLIFinalized {
	ev := models.DLIFinalized{
		EntityID:  a.entityID,
		Day:       a.dayStart,
		DLI:       a.accumulated,
		Timestamp: boundary,
	}
	if len(a.ring) > 0 {
		prior := a.ring[len(a.ring)-1].DLI
		ev.PriorDLI = &prior
	}
	a.ring = append(a.ring, DayTotal{Day: a.dayStart, DLI: a.accumulated})
	if len(a.ring) > a.opts.Retention {
		a.ring = a.ring[len(a.ring)-a.opts.Retention:]
	}
	ev.WeeklyAverage = mean(a.ring)
	return ev
}

func mean(ring []DayTotal) float64 {
	if len(ring) == 0 {
		return 0
	}
	sum := common.Reducer(ring, func(acc float64, d DayTotal) float64 { return acc + d.DLI }, 0.0)
	return sum / float64(len(ring))
}

// Observe integrates an illuminance sample taken at the reading's timestamp.
// It returns DLIFinalized for every day closed on the way and a CoverageGap
// when the interval since the previous sample exceeds the max gap.
func (a *Accumulator) Observe(r models.SensorReading) []models.Event {
	at := r.Timestamp
	ppfd := PPFD(r.Value, a.opts.Factor)

	if !a.started() {
		a.dayStart = a.opts.Window.DayStartFor(at)
		a.integratedTo = at
		a.lastSampleAt = at
		a.lastPPFD = ppfd
		a.hasData = true
		return nil
	}
	if !at.After(a.lastSampleAt) {
		return nil
	}

	events := a.crossBoundaries(at)
	if a.withinGap(at) {
		a.integrate(at)
	} else {
		events = append(events, models.CoverageGap{
			EntityID:  a.entityID,
			SensorID:  r.SensorID,
			From:      a.lastSampleAt,
			To:        at,
			Timestamp: at,
		})
	}
	a.integratedTo = at
	a.lastSampleAt = at
	a.lastPPFD = ppfd
	a.hasData = true
	return events
}

// Advance closes any day boundary that passed by now without a new sample.
func (a *Accumulator) Advance(now time.Time) []models.Event {
	if !a.started() || !now.After(a.integratedTo) {
		return nil
	}
	return a.crossBoundaries(now)
}

func (a *Accumulator) DayStart() time.Time { return a.dayStart }

// Current is the integral of the running day so far.
func (a *Accumulator) Current() float64 { return a.accumulated }

func (a *Accumulator) LastPPFD() float64 { return a.lastPPFD }

// Prior is the DLI of the most recently finalised day.
func (a *Accumulator) Prior() (float64, bool) {
	if len(a.ring) == 0 {
		return 0, false
	}
	return a.ring[len(a.ring)-1].DLI, true
}

func (a *Accumulator) WeeklyAverage() (float64, bool) {
	if len(a.ring) == 0 {
		return 0, false
	}
	return mean(a.ring), true
}

func (a *Accumulator) Ring() []DayTotal {
	return append([]DayTotal(nil), a.ring...)
}

func (a *Accumulator) Snapshot() State {
	return State{
		DayStart:     a.dayStart,
		Accumulated:  a.accumulated,
		HasData:      a.hasData,
		LastSampleAt: a.lastSampleAt,
		IntegratedTo: a.integratedTo,
		LastPPFD:     a.lastPPFD,
		Ring:         a.Ring(),
	}
}

// Restore rebuilds the rolling window from persisted state. Boundaries passed
// while the process was down are closed on the next Advance.
func (a *Accumulator) Restore(s State) {
	a.dayStart = s.DayStart
	a.accumulated = s.Accumulated
	a.hasData = s.HasData
	a.lastSampleAt = s.LastSampleAt
	a.integratedTo = s.IntegratedTo
	a.lastPPFD = s.LastPPFD
	a.ring = append([]DayTotal(nil), s.Ring...)
	if len(a.ring) > a.opts.Retention {
		a.ring = a.ring[len(a.ring)-a.opts.Retention:]
	}
}
