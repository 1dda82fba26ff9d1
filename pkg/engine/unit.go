package engine

import (
	"encoding/json"
	"sync"
	"time"

	"liyu1981.xyz/plant-care-service/pkg/clock"
	"liyu1981.xyz/plant-care-service/pkg/light"
	"liyu1981.xyz/plant-care-service/pkg/models"
	"liyu1981.xyz/plant-care-service/pkg/species"
	"liyu1981.xyz/plant-care-service/pkg/threshold"
)

type sensorKey struct {
	sensorID string
	kind     models.MetricKind
}

// unit is the runtime of one plant or location. Its mutex serialises every
// reading, tick and query that touches the entity.
type unit struct {
	mu         sync.Mutex
	id         string
	plant      bool
	locationID string
	speciesID  string

	acc  *light.Accumulator
	eval *threshold.Evaluator
}

func locationWindow(l *models.LocationConfig) clock.TimeWindow {
	if l == nil {
		return clock.NewTimeWindow(time.UTC, 0)
	}
	loc := time.UTC
	if l.Timezone != "" {
		if tz, err := time.LoadLocation(l.Timezone); err == nil {
			loc = tz
		}
	}
	offset, _ := clock.ParseTimeOfDay(l.DayStart)
	return clock.NewTimeWindow(loc, offset)
}

func lightOptions(l *models.LocationConfig, settings models.EngineSettings) light.Options {
	source := ""
	if l != nil {
		source = l.LightSource
	}
	return light.Options{
		Window:    locationWindow(l),
		Factor:    light.Factor(source, settings.LightFactors),
		MaxGap:    settings.MaxGap.Std(),
		Retention: settings.Retention,
	}
}

func hasLight(sensors map[models.MetricKind]string) bool {
	_, ok := sensors[models.MetricIlluminance]
	return ok
}

// plantRules resolves plant, species and location layers into checks. DLI
// checks exist only for entities with their own light sensor.
func plantRules(p *models.PlantConfig, l *models.LocationConfig, profile *species.Profile) []threshold.Rule {
	var speciesBounds map[models.MetricKind]models.Bound
	var speciesBand *models.Bound
	if profile != nil {
		speciesBounds = profile.Bounds()
		speciesBand = profile.DLIBand()
	}
	var locBounds map[models.MetricKind]models.Bound
	var locBand *models.Bound
	if l != nil {
		locBounds = l.Bounds
		locBand = l.DLI
	}
	bounds := threshold.ResolveBounds(p.Bounds, speciesBounds, locBounds)
	var band *models.Bound
	if hasLight(p.Sensors) {
		band = threshold.ResolveBand(p.DLI, speciesBand, locBand)
	}
	return threshold.RulesFor(bounds, band)
}

// locationRules falls back to the band every plant of the location accepts
// when the location has no DLI band of its own.
func locationRules(l *models.LocationConfig, plantBands []models.Bound) []threshold.Rule {
	var band *models.Bound
	if hasLight(l.Sensors) {
		band = threshold.ResolveBand(l.DLI, threshold.CombineBands(plantBands))
	}
	return threshold.RulesFor(threshold.ResolveBounds(l.Bounds), band)
}

func stateFromRecord(r models.LightAccumulatorRecord) (light.State, error) {
	s := light.State{
		DayStart:     r.DayStart,
		Accumulated:  r.Accumulated,
		HasData:      r.HasData,
		LastSampleAt: r.LastSampleAt,
		IntegratedTo: r.IntegratedTo,
		LastPPFD:     r.LastPPFD,
	}
	if r.Ring != "" {
		if err := json.Unmarshal([]byte(r.Ring), &s.Ring); err != nil {
			return light.State{}, err
		}
	}
	return s, nil
}

func (u *unit) accumulatorRecord(now time.Time) (models.LightAccumulatorRecord, error) {
	s := u.acc.Snapshot()
	ring, err := json.Marshal(s.Ring)
	if err != nil {
		return models.LightAccumulatorRecord{}, err
	}
	rec := models.LightAccumulatorRecord{
		EntityID:     u.id,
		DayStart:     s.DayStart,
		Accumulated:  s.Accumulated,
		HasData:      s.HasData,
		LastSampleAt: s.LastSampleAt,
		IntegratedTo: s.IntegratedTo,
		LastPPFD:     s.LastPPFD,
		Ring:         string(ring),
		UpdatedAt:    now,
	}
	if v, ok := u.acc.Prior(); ok {
		rec.LastDLI = models.Float(v)
	}
	if v, ok := u.acc.WeeklyAverage(); ok {
		rec.WeeklyAverage = models.Float(v)
	}
	return rec, nil
}
