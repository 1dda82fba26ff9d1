package species

import (
	"context"

	"liyu1981.xyz/plant-care-service/pkg/light"
	"liyu1981.xyz/plant-care-service/pkg/models"
)

// Profile is the care profile of one species as served by the lookup service.
type Profile struct {
	ID                 string   `json:"id"`
	DisplayName        string   `json:"display_name,omitempty"`
	MinimumMoisture    *float64 `json:"minimum_moisture,omitempty"`
	MaximumMoisture    *float64 `json:"maximum_moisture,omitempty"`
	MinimumTemperature *float64 `json:"minimum_temperature,omitempty"`
	MaximumTemperature *float64 `json:"maximum_temperature,omitempty"`
	MinimumHumidity    *float64 `json:"minimum_humidity,omitempty"`
	MaximumHumidity    *float64 `json:"maximum_humidity,omitempty"`
	MinimumSoilEC      *float64 `json:"minimum_soil_ec,omitempty"`
	MaximumSoilEC      *float64 `json:"maximum_soil_ec,omitempty"`
	MinimumLight       *float64 `json:"minimum_light,omitempty"`
	MaximumLight       *float64 `json:"maximum_light,omitempty"`
	MinimumDLI         *float64 `json:"minimum_dli,omitempty"`
	MaximumDLI         *float64 `json:"maximum_dli,omitempty"`
}

//go:generate mockgen -source=profile.go -destination=mocks/source.go -package=mocks

// Source fetches species profiles from the external lookup service.
type Source interface {
	Fetch(ctx context.Context, speciesID string) (*Profile, error)
}

func (p *Profile) Bounds() map[models.MetricKind]models.Bound {
	out := make(map[models.MetricKind]models.Bound)
	add := func(kind models.MetricKind, min, max *float64) {
		if min != nil || max != nil {
			out[kind] = models.Bound{Min: min, Max: max}
		}
	}
	add(models.MetricMoisture, p.MinimumMoisture, p.MaximumMoisture)
	add(models.MetricTemperature, p.MinimumTemperature, p.MaximumTemperature)
	add(models.MetricHumidity, p.MinimumHumidity, p.MaximumHumidity)
	add(models.MetricConductivity, p.MinimumSoilEC, p.MaximumSoilEC)
	return out
}

// DLIBand prefers explicit DLI bounds and falls back to the lux bounds
// converted as if held for a full day of sunlight.
func (p *Profile) DLIBand() *models.Bound {
	if p.MinimumDLI != nil || p.MaximumDLI != nil {
		return &models.Bound{Min: p.MinimumDLI, Max: p.MaximumDLI}
	}
	if p.MinimumLight == nil && p.MaximumLight == nil {
		return nil
	}
	var b models.Bound
	if p.MinimumLight != nil {
		b.Min = models.Float(light.LuxToDLI(*p.MinimumLight))
	}
	if p.MaximumLight != nil {
		b.Max = models.Float(light.LuxToDLI(*p.MaximumLight))
	}
	return &b
}
