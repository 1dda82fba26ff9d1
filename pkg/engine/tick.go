package engine

import (
	"sort"
	"time"

	"go.uber.org/zap"
	"liyu1981.xyz/plant-care-service/pkg/common"
	"liyu1981.xyz/plant-care-service/pkg/models"
)

func (e *Engine) allUnits() []*unit {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]*unit, 0, len(e.units))
	for _, u := range e.units {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].id < out[j].id })
	return out
}

func (e *Engine) speciesIDs() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return common.SortedKeys(e.speciesRefs)
}

// Tick is the wall clock half of the engine: staleness, day boundaries
// without a fresh sample, time slots and species refresh.
func (e *Engine) Tick(now time.Time) {
	started := time.Now()

	var evs []models.Event
	for _, stale := range e.ingestor.SweepStale(now) {
		evs = append(evs, stale)
		for _, u := range e.unitsFor(stale.SensorID, stale.Kind) {
			u.mu.Lock()
			for _, sc := range u.eval.MarkStale(stale.Kind, stale.SensorID, now) {
				evs = append(evs, sc)
			}
			u.mu.Unlock()
		}
	}

	for _, u := range e.allUnits() {
		u.mu.Lock()
		if u.acc != nil {
			advanced := u.acc.Advance(now)
			for _, ev := range advanced {
				evs = append(evs, ev)
				if f, ok := ev.(models.DLIFinalized); ok {
					for _, sc := range u.eval.ObserveDLI(f) {
						evs = append(evs, sc)
					}
				}
			}
			if len(advanced) > 0 {
				e.persistAccumulator(u)
			}
		}
		u.mu.Unlock()
	}

	evs = e.withIrrigation(evs)
	evs = append(evs, e.scheduler.Tick(now)...)
	e.emit(evs)

	for _, id := range e.speciesIDs() {
		e.profile(id)
	}

	if e.metrics != nil {
		e.metrics.ObserveTick(time.Since(started))
	}
	e.logger.Debug("Tick", zap.Time("now", now), zap.Int("events", len(evs)))
}
