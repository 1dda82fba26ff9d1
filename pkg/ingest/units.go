package ingest

import (
	"fmt"
	"strings"

	"liyu1981.xyz/plant-care-service/pkg/models"
)

// DefaultRanges are the physical ranges a normalised value must fall into.
func DefaultRanges() map[models.MetricKind]models.Bound {
	return map[models.MetricKind]models.Bound{
		models.MetricIlluminance:  {Min: models.Float(0), Max: models.Float(200000)},
		models.MetricMoisture:     {Min: models.Float(0), Max: models.Float(100)},
		models.MetricTemperature:  {Min: models.Float(-40), Max: models.Float(80)},
		models.MetricHumidity:     {Min: models.Float(0), Max: models.Float(100)},
		models.MetricConductivity: {Min: models.Float(0), Max: models.Float(20000)},
		models.MetricBattery:      {Min: models.Float(0), Max: models.Float(100)},
	}
}

// CanonicalUnit is the unit every accepted reading carries.
func CanonicalUnit(kind models.MetricKind) string {
	switch kind {
	case models.MetricIlluminance:
		return "lx"
	case models.MetricTemperature:
		return "°C"
	case models.MetricConductivity:
		return "µS/cm"
	default:
		return "%"
	}
}

// Normalize converts value from unit into the canonical unit of kind.
// An empty unit is taken as already canonical.
func Normalize(kind models.MetricKind, value float64, unit string) (float64, error) {
	u := strings.TrimSpace(unit)
	if u == "" {
		return value, nil
	}
	switch kind {
	case models.MetricIlluminance:
		switch strings.ToLower(u) {
		case "lx", "lux":
			return value, nil
		}
	case models.MetricTemperature:
		switch u {
		case "°C", "C", "celsius", "℃":
			return value, nil
		case "°F", "F", "fahrenheit", "℉":
			return (value - 32) * 5 / 9, nil
		}
	case models.MetricConductivity:
		switch u {
		case "µS/cm", "μS/cm", "uS/cm", "us/cm":
			return value, nil
		case "mS/cm":
			return value * 1000, nil
		case "S/m":
			return value * 10000, nil
		}
	case models.MetricMoisture, models.MetricHumidity, models.MetricBattery:
		if u == "%" {
			return value, nil
		}
	}
	return 0, fmt.Errorf("unit %q not supported for %s", unit, kind)
}
