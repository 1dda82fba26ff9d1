package models

import "time"

type State string

const (
	StateUnknown State = "unknown"
	StateOk      State = "ok"
	StateProblem State = "problem"
)

// Check names one bound evaluated for an entity, e.g. moisture below its minimum.
type Check string

const (
	CheckMoistureLow       Check = "moisture_low"
	CheckMoistureHigh      Check = "moisture_high"
	CheckMoistureWaterSoon Check = "moisture_water_soon"
	CheckConductivityLow   Check = "conductivity_low"
	CheckConductivityHigh  Check = "conductivity_high"
	CheckTemperatureLow    Check = "temperature_low"
	CheckTemperatureHigh   Check = "temperature_high"
	CheckHumidityLow       Check = "humidity_low"
	CheckHumidityHigh      Check = "humidity_high"
	CheckBatteryLow        Check = "battery_low"
	CheckDLILow            Check = "dli_low"
	CheckDLIHigh           Check = "dli_high"

	CheckScheduleMisconfigured Check = "schedule_misconfigured"
)

// Metric returns the metric a check is evaluated on. DLI checks report illuminance.
func (c Check) Metric() MetricKind {
	switch c {
	case CheckMoistureLow, CheckMoistureHigh, CheckMoistureWaterSoon:
		return MetricMoisture
	case CheckConductivityLow, CheckConductivityHigh:
		return MetricConductivity
	case CheckTemperatureLow, CheckTemperatureHigh:
		return MetricTemperature
	case CheckHumidityLow, CheckHumidityHigh:
		return MetricHumidity
	case CheckBatteryLow:
		return MetricBattery
	case CheckDLILow, CheckDLIHigh:
		return MetricIlluminance
	}
	return ""
}

// ThresholdState is the debounce state of one (entity, check) pair.
type ThresholdState struct {
	EntityID       string     `json:"entity_id"`
	Check          Check      `json:"check"`
	Value          *float64   `json:"value,omitempty"`
	State          State      `json:"state"`
	Problem        bool       `json:"problem"`
	LastTransition time.Time  `json:"last_transition"`
	Violations     int        `json:"violations"`
	Recoveries     int        `json:"recoveries"`
	IgnoreUntil    *time.Time `json:"ignore_until,omitempty"`
}
