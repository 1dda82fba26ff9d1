package models

import "time"

// Bound is the per-metric configuration of a plant or location. Zero counts
// and a zero ViolationFor fall back to the metric defaults.
type Bound struct {
	Min            *float64 `json:"min,omitempty" yaml:"min,omitempty"`
	Max            *float64 `json:"max,omitempty" yaml:"max,omitempty"`
	ViolationCount int      `json:"violation_count,omitempty" yaml:"violation_count,omitempty"`
	RecoveryCount  int      `json:"recovery_count,omitempty" yaml:"recovery_count,omitempty"`
	// ViolationFor is how long a violation must last, measured from the
	// first violating sample, before the check becomes a problem.
	ViolationFor Duration `json:"violation_for,omitempty" yaml:"violation_for,omitempty"`
}

type PlantConfig struct {
	ID         string                `json:"id" yaml:"id"`
	Name       string                `json:"name,omitempty" yaml:"name,omitempty"`
	LocationID string                `json:"location_id,omitempty" yaml:"location_id,omitempty"`
	SpeciesID  string                `json:"species_id,omitempty" yaml:"species_id,omitempty"`
	Sensors    map[MetricKind]string `json:"sensors,omitempty" yaml:"sensors,omitempty"`
	Bounds     map[MetricKind]Bound  `json:"bounds,omitempty" yaml:"bounds,omitempty"`
	DLI        *Bound                `json:"dli,omitempty" yaml:"dli,omitempty"`
}

type LocationConfig struct {
	ID          string                `json:"id" yaml:"id"`
	Name        string                `json:"name,omitempty" yaml:"name,omitempty"`
	Timezone    string                `json:"timezone,omitempty" yaml:"timezone,omitempty"`
	DayStart    string                `json:"day_start,omitempty" yaml:"day_start,omitempty"`
	LightSource string                `json:"light_source,omitempty" yaml:"light_source,omitempty"`
	Sensors     map[MetricKind]string `json:"sensors,omitempty" yaml:"sensors,omitempty"`
	Bounds      map[MetricKind]Bound  `json:"bounds,omitempty" yaml:"bounds,omitempty"`
	DLI         *Bound                `json:"dli,omitempty" yaml:"dli,omitempty"`
}

type ScheduleMode string

const (
	ScheduleTime     ScheduleMode = "time"
	ScheduleMoisture ScheduleMode = "moisture"
)

type ZoneConfig struct {
	ID                 string         `json:"id" yaml:"id"`
	LocationID         string         `json:"location_id" yaml:"location_id"`
	Mode               ScheduleMode   `json:"mode" yaml:"mode"`
	MoistureSensors    []string       `json:"moisture_sensors,omitempty" yaml:"moisture_sensors,omitempty"`
	Times              []string       `json:"times,omitempty" yaml:"times,omitempty"`
	Weekdays           []time.Weekday `json:"weekdays,omitempty" yaml:"weekdays,omitempty"`
	Duration           Duration       `json:"duration" yaml:"duration"`
	Enabled            bool           `json:"enabled" yaml:"enabled"`
	Cooldown           Duration       `json:"cooldown,omitempty" yaml:"cooldown,omitempty"`
	Valve              string         `json:"valve,omitempty" yaml:"valve,omitempty"`
	FertiliseEveryDays int            `json:"fertilise_every_days,omitempty" yaml:"fertilise_every_days,omitempty"`
}

type EngineSettings struct {
	StaleAfter    Duration             `json:"stale_after,omitempty" yaml:"stale_after,omitempty"`
	MaxGap        Duration             `json:"max_gap,omitempty" yaml:"max_gap,omitempty"`
	Retention     int                  `json:"retention,omitempty" yaml:"retention,omitempty"`
	Cooldown      Duration             `json:"cooldown,omitempty" yaml:"cooldown,omitempty"`
	SlotTolerance Duration             `json:"slot_tolerance,omitempty" yaml:"slot_tolerance,omitempty"`
	LightFactors  map[string]float64   `json:"light_factors,omitempty" yaml:"light_factors,omitempty"`
	Ranges        map[MetricKind]Bound `json:"ranges,omitempty" yaml:"ranges,omitempty"`
}

// Snapshot is the immutable configuration the engine runs against. A new
// snapshot replaces the previous one atomically.
type Snapshot struct {
	Version   string           `json:"version,omitempty" yaml:"version,omitempty"`
	Settings  EngineSettings   `json:"settings" yaml:"settings"`
	Locations []LocationConfig `json:"locations" yaml:"locations"`
	Plants    []PlantConfig    `json:"plants" yaml:"plants"`
	Zones     []ZoneConfig     `json:"zones" yaml:"zones"`
}

// SensorBinding ties a sensor to the entity whose checks it feeds.
type SensorBinding struct {
	SensorID   string
	Kind       MetricKind
	EntityID   string
	LocationID string
	Plant      bool
}

// Bindings lists every sensor binding of the snapshot, plants first.
func (s *Snapshot) Bindings() []SensorBinding {
	var out []SensorBinding
	for _, p := range s.Plants {
		for kind, sensorID := range p.Sensors {
			out = append(out, SensorBinding{SensorID: sensorID, Kind: kind, EntityID: p.ID, LocationID: p.LocationID, Plant: true})
		}
	}
	for _, l := range s.Locations {
		for kind, sensorID := range l.Sensors {
			out = append(out, SensorBinding{SensorID: sensorID, Kind: kind, EntityID: l.ID, LocationID: l.ID})
		}
	}
	return out
}

func (s *Snapshot) Location(id string) (*LocationConfig, bool) {
	for i := range s.Locations {
		if s.Locations[i].ID == id {
			return &s.Locations[i], true
		}
	}
	return nil, false
}
