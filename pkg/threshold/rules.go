package threshold

import (
	"sort"
	"time"

	"liyu1981.xyz/plant-care-service/pkg/models"
)

type Comparison int

const (
	// Below violates when value < Limit.
	Below Comparison = iota
	// Above violates when value > Limit.
	Above
	// Within violates when Limit <= value <= Upper.
	Within
)

// Gate suppresses a rule while another metric of the same entity is below AtLeast.
type Gate struct {
	Metric  models.MetricKind
	AtLeast float64
}

type Rule struct {
	Check          models.Check
	Metric         models.MetricKind
	Comparison     Comparison
	Limit          float64
	Upper          float64
	Gate           *Gate
	ViolationCount int
	RecoveryCount  int
	// MinDuration additionally requires the violation to have lasted this
	// long since its first violating sample.
	MinDuration time.Duration
	// DLI rules are fed by finalised days instead of raw readings.
	DLI bool
}

const (
	WaterSoonMargin       = 5.0
	ConductivityGateExtra = 10.0
	DefaultBatteryMin     = 10.0

	// DefaultSustainedFor is how long temperature and humidity must stay out
	// of bounds before they count as a problem.
	DefaultSustainedFor = 2 * time.Hour
)

type counts struct{ violation, recovery int }

var defaultSustained = map[models.MetricKind]time.Duration{
	models.MetricTemperature: DefaultSustainedFor,
	models.MetricHumidity:    DefaultSustainedFor,
}

var defaultCounts = map[models.MetricKind]counts{
	models.MetricMoisture:     {3, 2},
	models.MetricTemperature:  {2, 2},
	models.MetricHumidity:     {2, 2},
	models.MetricConductivity: {3, 2},
	models.MetricBattery:      {1, 1},
	models.MetricIlluminance:  {1, 1},
}

func (r Rule) violates(value float64, latest map[models.MetricKind]float64) bool {
	if r.Gate != nil {
		gateValue, ok := latest[r.Gate.Metric]
		if !ok || gateValue < r.Gate.AtLeast {
			return false
		}
	}
	switch r.Comparison {
	case Below:
		return value < r.Limit
	case Above:
		return value > r.Limit
	case Within:
		return value >= r.Limit && value <= r.Upper
	}
	return false
}

// ResolveBounds merges bound layers field by field; earlier layers win.
// Callers pass plant manual bounds, then species bounds, then location bounds.
func ResolveBounds(layers ...map[models.MetricKind]models.Bound) map[models.MetricKind]models.Bound {
	out := make(map[models.MetricKind]models.Bound)
	for i := len(layers) - 1; i >= 0; i-- {
		for kind, b := range layers[i] {
			cur := out[kind]
			if b.Min != nil {
				cur.Min = b.Min
			}
			if b.Max != nil {
				cur.Max = b.Max
			}
			if b.ViolationCount > 0 {
				cur.ViolationCount = b.ViolationCount
			}
			if b.RecoveryCount > 0 {
				cur.RecoveryCount = b.RecoveryCount
			}
			if b.ViolationFor > 0 {
				cur.ViolationFor = b.ViolationFor
			}
			out[kind] = cur
		}
	}
	return out
}

// ResolveBand picks the first non empty DLI band.
func ResolveBand(layers ...*models.Bound) *models.Bound {
	for _, b := range layers {
		if b != nil && (b.Min != nil || b.Max != nil) {
			return b
		}
	}
	return nil
}

// CombineBands derives a location DLI band from the bands of its plants:
// the highest minimum and the lowest maximum.
func CombineBands(bands []models.Bound) *models.Bound {
	var out models.Bound
	for _, b := range bands {
		if b.Min != nil && (out.Min == nil || *b.Min > *out.Min) {
			out.Min = models.Float(*b.Min)
		}
		if b.Max != nil && (out.Max == nil || *b.Max < *out.Max) {
			out.Max = models.Float(*b.Max)
		}
	}
	if out.Min == nil && out.Max == nil {
		return nil
	}
	return &out
}

func withCounts(kind models.MetricKind, b models.Bound) (int, int) {
	c := defaultCounts[kind]
	if b.ViolationCount > 0 {
		c.violation = b.ViolationCount
	}
	if b.RecoveryCount > 0 {
		c.recovery = b.RecoveryCount
	}
	return c.violation, c.recovery
}

func sustainedFor(kind models.MetricKind, b models.Bound) time.Duration {
	if b.ViolationFor > 0 {
		return b.ViolationFor.Std()
	}
	return defaultSustained[kind]
}

func lowHigh(out []Rule, kind models.MetricKind, b models.Bound, low, high models.Check) []Rule {
	v, r := withCounts(kind, b)
	d := sustainedFor(kind, b)
	if b.Min != nil {
		out = append(out, Rule{Check: low, Metric: kind, Comparison: Below, Limit: *b.Min, ViolationCount: v, RecoveryCount: r, MinDuration: d})
	}
	if b.Max != nil {
		out = append(out, Rule{Check: high, Metric: kind, Comparison: Above, Limit: *b.Max, ViolationCount: v, RecoveryCount: r, MinDuration: d})
	}
	return out
}

// RulesFor turns resolved bounds into the checks of one entity.
func RulesFor(bounds map[models.MetricKind]models.Bound, dli *models.Bound) []Rule {
	var out []Rule

	moisture, hasMoisture := bounds[models.MetricMoisture]
	if hasMoisture {
		out = lowHigh(out, models.MetricMoisture, moisture, models.CheckMoistureLow, models.CheckMoistureHigh)
		if moisture.Min != nil {
			v, r := withCounts(models.MetricMoisture, moisture)
			out = append(out, Rule{
				Check:          models.CheckMoistureWaterSoon,
				Metric:         models.MetricMoisture,
				Comparison:     Within,
				Limit:          *moisture.Min,
				Upper:          *moisture.Min + WaterSoonMargin,
				ViolationCount: v,
				RecoveryCount:  r,
				MinDuration:    sustainedFor(models.MetricMoisture, moisture),
			})
		}
	}

	if b, ok := bounds[models.MetricConductivity]; ok {
		before := len(out)
		out = lowHigh(out, models.MetricConductivity, b, models.CheckConductivityLow, models.CheckConductivityHigh)
		if hasMoisture && moisture.Min != nil {
			for i := before; i < len(out); i++ {
				if out[i].Check == models.CheckConductivityLow {
					out[i].Gate = &Gate{Metric: models.MetricMoisture, AtLeast: *moisture.Min + ConductivityGateExtra}
				}
			}
		}
	}

	if b, ok := bounds[models.MetricTemperature]; ok {
		out = lowHigh(out, models.MetricTemperature, b, models.CheckTemperatureLow, models.CheckTemperatureHigh)
	}
	if b, ok := bounds[models.MetricHumidity]; ok {
		out = lowHigh(out, models.MetricHumidity, b, models.CheckHumidityLow, models.CheckHumidityHigh)
	}

	battery := bounds[models.MetricBattery]
	if battery.Min == nil {
		battery.Min = models.Float(DefaultBatteryMin)
	}
	battery.Max = nil
	out = lowHigh(out, models.MetricBattery, battery, models.CheckBatteryLow, "")

	if dli != nil {
		before := len(out)
		out = lowHigh(out, models.MetricIlluminance, *dli, models.CheckDLILow, models.CheckDLIHigh)
		for i := before; i < len(out); i++ {
			out[i].DLI = true
		}
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Check < out[j].Check })
	return out
}
