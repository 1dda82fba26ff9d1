package light

import "strings"

const (
	SourceSunlight    = "sunlight"
	SourceLED         = "led"
	SourceMetalHalide = "metal_halide"
	SourceFluorescent = "fluorescent"
	SourceHPS         = "hps"

	// DefaultFactor converts lux of natural sunlight into µmol·m⁻²·s⁻¹.
	DefaultFactor = 0.0185
)

var defaultFactors = map[string]float64{
	SourceSunlight:    DefaultFactor,
	SourceLED:         0.0150,
	SourceMetalHalide: 0.0141,
	SourceFluorescent: 0.0135,
	SourceHPS:         0.0122,
}

// Factor returns the lux to PPFD factor of a light source. Overrides win over
// the built in table; unknown or empty sources fall back to sunlight.
func Factor(source string, overrides map[string]float64) float64 {
	key := strings.ToLower(strings.TrimSpace(source))
	if f, ok := overrides[key]; ok && f > 0 {
		return f
	}
	if f, ok := defaultFactors[key]; ok {
		return f
	}
	return DefaultFactor
}

func PPFD(lux, factor float64) float64 {
	return lux * factor
}

// LuxToDLI turns a constant illuminance held for a whole day into mol/m²/day,
// used for species light bounds published in lux.
func LuxToDLI(lux float64) float64 {
	return lux * DefaultFactor * 0.0864
}
