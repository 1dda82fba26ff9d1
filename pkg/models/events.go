package models

import "time"

type EventType string

const (
	EventStateChanged      EventType = "state_changed"
	EventDLIFinalized      EventType = "dli_finalized"
	EventIrrigation        EventType = "irrigation"
	EventCoverageGap       EventType = "coverage_gap"
	EventSensorStale       EventType = "sensor_stale"
	EventLookupUnavailable EventType = "lookup_unavailable"
	EventLightSample       EventType = "light_sample"
)

// Event is anything the engine emits towards the outside.
type Event interface {
	EventType() EventType
	// Entity is the plant, location, zone or sensor the event belongs to.
	Entity() string
	At() time.Time
}

type StateChanged struct {
	EntityID  string    `json:"entity_id"`
	Check     Check     `json:"check"`
	SensorID  string    `json:"sensor_id,omitempty"`
	Old       State     `json:"old"`
	New       State     `json:"new"`
	Value     *float64  `json:"value,omitempty"`
	Reason    string    `json:"reason,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

func (e StateChanged) EventType() EventType { return EventStateChanged }
func (e StateChanged) Entity() string       { return e.EntityID }
func (e StateChanged) At() time.Time        { return e.Timestamp }

type DLIFinalized struct {
	EntityID      string    `json:"entity_id"`
	Day           time.Time `json:"day"`
	DLI           float64   `json:"dli"`
	WeeklyAverage float64   `json:"weekly_average"`
	PriorDLI      *float64  `json:"prior_dli,omitempty"`
	Timestamp     time.Time `json:"timestamp"`
}

func (e DLIFinalized) EventType() EventType { return EventDLIFinalized }
func (e DLIFinalized) Entity() string       { return e.EntityID }
func (e DLIFinalized) At() time.Time        { return e.Timestamp }

type TriggerReason string

const (
	TriggerSchedule TriggerReason = "schedule"
	TriggerMoisture TriggerReason = "moisture"
)

type IrrigationEvent struct {
	ID        string        `json:"id"`
	ZoneID    string        `json:"zone_id"`
	Reason    TriggerReason `json:"reason"`
	Duration  time.Duration `json:"duration"`
	Timestamp time.Time     `json:"timestamp"`
}

func (e IrrigationEvent) EventType() EventType { return EventIrrigation }
func (e IrrigationEvent) Entity() string       { return e.ZoneID }
func (e IrrigationEvent) At() time.Time        { return e.Timestamp }

type CoverageGap struct {
	EntityID  string    `json:"entity_id"`
	SensorID  string    `json:"sensor_id"`
	From      time.Time `json:"from"`
	To        time.Time `json:"to"`
	Timestamp time.Time `json:"timestamp"`
}

func (e CoverageGap) EventType() EventType { return EventCoverageGap }
func (e CoverageGap) Entity() string       { return e.EntityID }
func (e CoverageGap) At() time.Time        { return e.Timestamp }

type SensorStale struct {
	SensorID  string     `json:"sensor_id"`
	Kind      MetricKind `json:"kind"`
	LastSeen  time.Time  `json:"last_seen"`
	Timestamp time.Time  `json:"timestamp"`
}

func (e SensorStale) EventType() EventType { return EventSensorStale }
func (e SensorStale) Entity() string       { return e.SensorID }
func (e SensorStale) At() time.Time        { return e.Timestamp }

type LookupUnavailable struct {
	SpeciesID string    `json:"species_id"`
	Error     string    `json:"error"`
	Timestamp time.Time `json:"timestamp"`
}

func (e LookupUnavailable) EventType() EventType { return EventLookupUnavailable }
func (e LookupUnavailable) Entity() string       { return e.SpeciesID }
func (e LookupUnavailable) At() time.Time        { return e.Timestamp }

// LightSample reports the integration state after an illuminance reading.
type LightSample struct {
	EntityID  string    `json:"entity_id"`
	PPFD      float64   `json:"ppfd"`
	DLISoFar  float64   `json:"dli_so_far"`
	Timestamp time.Time `json:"timestamp"`
}

func (e LightSample) EventType() EventType { return EventLightSample }
func (e LightSample) Entity() string       { return e.EntityID }
func (e LightSample) At() time.Time        { return e.Timestamp }
