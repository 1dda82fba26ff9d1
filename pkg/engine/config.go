package engine

import (
	"fmt"
	"time"

	"go.uber.org/zap"
	"liyu1981.xyz/plant-care-service/pkg/config"
	"liyu1981.xyz/plant-care-service/pkg/light"
	"liyu1981.xyz/plant-care-service/pkg/models"
	"liyu1981.xyz/plant-care-service/pkg/species"
	"liyu1981.xyz/plant-care-service/pkg/threshold"
)

func (e *Engine) profile(speciesID string) *species.Profile {
	if e.species == nil || speciesID == "" {
		return nil
	}
	p, _ := e.species.Get(speciesID)
	return p
}

// plantBands collects the DLI band every plant of a location would resolve to.
func (e *Engine) plantBands(snap *models.Snapshot, locationID string) []models.Bound {
	var out []models.Bound
	for i := range snap.Plants {
		p := &snap.Plants[i]
		if p.LocationID != locationID {
			continue
		}
		var speciesBand *models.Bound
		if prof := e.profile(p.SpeciesID); prof != nil {
			speciesBand = prof.DLIBand()
		}
		if b := threshold.ResolveBand(p.DLI, speciesBand); b != nil {
			out = append(out, *b)
		}
	}
	return out
}

// newAccumulator builds the light accumulator of an entity, resuming from the
// state persisted by a previous run when there is one.
func (e *Engine) newAccumulator(id string, opts light.Options) *light.Accumulator {
	acc := light.NewAccumulator(id, opts)
	if rec, ok := e.persisted[id]; ok {
		if s, err := stateFromRecord(rec); err != nil {
			e.logger.Error("Failed to restore light accumulator", zap.String("entity_id", id), zap.Error(err))
		} else {
			acc.Restore(s)
		}
	}
	return acc
}

func (e *Engine) newUnit(id string, plant bool, opts light.Options, withLight bool) *unit {
	u := &unit{id: id, plant: plant, eval: threshold.NewEvaluator(id, nil)}
	if withLight {
		u.acc = e.newAccumulator(id, opts)
	}
	return u
}

func (e *Engine) applySnapshot(snap *models.Snapshot) error {
	if snap == nil {
		return fmt.Errorf("nil snapshot")
	}
	if err := config.Validate(snap); err != nil {
		e.logger.Warn("Keeping previous snapshot", zap.Error(err))
		return err
	}

	e.applyMu.Lock()
	defer e.applyMu.Unlock()

	applied := *snap
	applied.Settings = config.WithDefaults(snap.Settings)
	settings := applied.Settings

	e.ingestor.Configure(settings.StaleAfter.Std(), settings.Ranges)
	e.scheduler.SetTimings(settings.Cooldown.Std(), settings.SlotTolerance.Std())

	bindings := applied.Bindings()
	for _, b := range bindings {
		e.ingestor.Register(b.SensorID, b.Kind)
	}

	e.mu.Lock()
	units := make(map[string]*unit)
	bySensor := make(map[sensorKey][]*unit)
	speciesRefs := make(map[string]bool)

	reuse := func(id string, plant bool, opts light.Options, withLight bool) *unit {
		u, ok := e.units[id]
		if !ok || u.plant != plant {
			return e.newUnit(id, plant, opts, withLight)
		}
		u.mu.Lock()
		switch {
		case withLight && u.acc == nil:
			u.acc = e.newAccumulator(id, opts)
		case withLight:
			u.acc.Reconfigure(opts)
		default:
			u.acc = nil
		}
		u.mu.Unlock()
		return u
	}

	for i := range applied.Locations {
		l := &applied.Locations[i]
		u := reuse(l.ID, false, lightOptions(l, settings), hasLight(l.Sensors))
		u.locationID = l.ID
		rules := locationRules(l, e.plantBands(&applied, l.ID))
		u.mu.Lock()
		u.eval.Reconfigure(rules)
		u.mu.Unlock()
		units[l.ID] = u
	}
	for i := range applied.Plants {
		p := &applied.Plants[i]
		l, _ := applied.Location(p.LocationID)
		u := reuse(p.ID, true, lightOptions(l, settings), hasLight(p.Sensors))
		u.locationID = p.LocationID
		u.speciesID = p.SpeciesID
		if p.SpeciesID != "" {
			speciesRefs[p.SpeciesID] = true
		}
		rules := plantRules(p, l, e.profile(p.SpeciesID))
		u.mu.Lock()
		u.eval.Reconfigure(rules)
		u.mu.Unlock()
		units[p.ID] = u
	}
	for _, b := range bindings {
		if u, ok := units[b.EntityID]; ok {
			k := sensorKey{sensorID: b.SensorID, kind: b.Kind}
			bySensor[k] = append(bySensor[k], u)
		}
	}

	e.units = units
	e.bySensor = bySensor
	e.speciesRefs = speciesRefs
	e.settings = settings
	e.snapshot = &applied
	e.mu.Unlock()

	locations := make(map[string]*time.Location, len(applied.Locations))
	for i := range applied.Locations {
		locations[applied.Locations[i].ID] = locationWindow(&applied.Locations[i]).Location
	}
	evs := e.scheduler.Configure(applied.Zones, bindings, locations)

	if err := e.store.SaveSnapshot(applied, e.clock.Now()); err != nil {
		e.logger.Error("Failed to persist snapshot", zap.Error(err))
	}
	e.logger.Info("Snapshot applied",
		zap.String("version", applied.Version),
		zap.Int("locations", len(applied.Locations)),
		zap.Int("plants", len(applied.Plants)),
		zap.Int("zones", len(applied.Zones)),
	)

	e.emit(evs)
	return nil
}

// ApplyStoredSnapshot re-applies the last persisted snapshot. It reports
// false when nothing was ever applied.
func (e *Engine) ApplyStoredSnapshot() (bool, error) {
	snap, err := e.store.LoadSnapshot()
	if err != nil || snap == nil {
		return false, err
	}
	return true, e.applySnapshot(snap)
}

// resolveSpecies re-derives the checks of every entity touched by a refreshed
// species profile: its plants and their locations.
func (e *Engine) resolveSpecies(speciesID string) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.snapshot == nil {
		return
	}
	touched := map[string]bool{}
	for i := range e.snapshot.Plants {
		p := &e.snapshot.Plants[i]
		if p.SpeciesID != speciesID {
			continue
		}
		touched[p.LocationID] = true
		u, ok := e.units[p.ID]
		if !ok {
			continue
		}
		l, _ := e.snapshot.Location(p.LocationID)
		rules := plantRules(p, l, e.profile(speciesID))
		u.mu.Lock()
		u.eval.Reconfigure(rules)
		u.mu.Unlock()
	}
	for locationID := range touched {
		l, ok := e.snapshot.Location(locationID)
		u, found := e.units[locationID]
		if !ok || !found {
			continue
		}
		rules := locationRules(l, e.plantBands(e.snapshot, locationID))
		u.mu.Lock()
		u.eval.Reconfigure(rules)
		u.mu.Unlock()
	}
}

func (e *Engine) onSpeciesUpdate(speciesID string, _ *species.Profile) {
	e.resolveSpecies(speciesID)
}

func (e *Engine) onSpeciesUnavailable(ev models.LookupUnavailable) {
	e.emit([]models.Event{ev})
}

func (e *Engine) currentSnapshot() *models.Snapshot {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.snapshot == nil {
		return nil
	}
	snap := *e.snapshot
	return &snap
}

type IConfigImpl struct {
	engine *Engine
}

func (ic *IConfigImpl) ApplySnapshot(snap *models.Snapshot) error {
	return ic.engine.applySnapshot(snap)
}

func (ic *IConfigImpl) CurrentSnapshot() *models.Snapshot {
	return ic.engine.currentSnapshot()
}

func (e *Engine) GetIConfig() IConfig {
	return &IConfigImpl{engine: e}
}
