package config

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	z "github.com/Oudwins/zog"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
	"liyu1981.xyz/plant-care-service/pkg/clock"
	"liyu1981.xyz/plant-care-service/pkg/common"
	"liyu1981.xyz/plant-care-service/pkg/models"
)

const (
	DefaultStaleAfter    = 2 * time.Hour
	DefaultMaxGap        = time.Hour
	DefaultRetention     = 7
	DefaultCooldown      = 6 * time.Hour
	DefaultSlotTolerance = 5 * time.Minute
)

// WithDefaults fills every zero setting.
func WithDefaults(s models.EngineSettings) models.EngineSettings {
	if s.StaleAfter <= 0 {
		s.StaleAfter = models.Duration(DefaultStaleAfter)
	}
	if s.MaxGap <= 0 {
		s.MaxGap = models.Duration(DefaultMaxGap)
	}
	if s.Retention <= 0 {
		s.Retention = DefaultRetention
	}
	if s.Cooldown <= 0 {
		s.Cooldown = models.Duration(DefaultCooldown)
	}
	if s.SlotTolerance <= 0 {
		s.SlotTolerance = models.Duration(DefaultSlotTolerance)
	}
	return s
}

func LoadSnapshotFile(path string) (*models.Snapshot, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ParseSnapshotYAML(f)
}

func ParseSnapshotYAML(r io.Reader) (*models.Snapshot, error) {
	var snap models.Snapshot
	if err := yaml.NewDecoder(r).Decode(&snap); err != nil && err != io.EOF {
		return nil, fmt.Errorf("%w: %v", common.ErrCorruptConfig, err)
	}
	if err := Validate(&snap); err != nil {
		return nil, err
	}
	return &snap, nil
}

func ParseSnapshotJSON(b []byte) (*models.Snapshot, error) {
	var snap models.Snapshot
	if err := json.Unmarshal(b, &snap); err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrCorruptConfig, err)
	}
	if err := Validate(&snap); err != nil {
		return nil, err
	}
	return &snap, nil
}

type settingsView struct {
	StaleAfter    float64
	MaxGap        float64
	Retention     int
	Cooldown      float64
	SlotTolerance float64
}

var settingsSchema = z.Struct(z.Shape{
	"StaleAfter":    z.Float64().GTE(0),
	"MaxGap":        z.Float64().GTE(0),
	"Retention":     z.Int().GTE(0).LTE(366),
	"Cooldown":      z.Float64().GTE(0),
	"SlotTolerance": z.Float64().GTE(0),
})

type entityView struct {
	ID         string
	LocationID string
}

var locationSchema = z.Struct(z.Shape{
	"ID": z.String().Trim().Required(),
})

var plantSchema = z.Struct(z.Shape{
	"ID":         z.String().Trim().Required(),
	"LocationID": z.String().Trim(),
})

type zoneView struct {
	ID                 string
	LocationID         string
	Duration           float64
	Cooldown           float64
	FertiliseEveryDays int
}

var zoneSchema = z.Struct(z.Shape{
	"ID":                 z.String().Trim().Required(),
	"LocationID":         z.String().Trim().Required(),
	"Duration":           z.Float64().GTE(0),
	"Cooldown":           z.Float64().GTE(0),
	"FertiliseEveryDays": z.Int().GTE(0),
})

func issueFields[M ~map[string]V, V any](issues M) string {
	keys := make([]string, 0, len(issues))
	for k := range issues {
		if strings.HasPrefix(k, "$") {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return strings.Join(keys, ",")
}

// Validate rejects a snapshot that cannot be applied as a whole. Schedule
// level problems such as unknown modes or overlapping valves are left to the
// scheduler, which flags the zone instead.
func Validate(snap *models.Snapshot) error {
	var zlog = common.GetCategoryLogger(common.LoggerNamePlantCore, common.LoggerCategoryConfig)

	corrupt := func(format string, args ...any) error {
		err := fmt.Errorf("%w: %s", common.ErrCorruptConfig, fmt.Sprintf(format, args...))
		zlog.Warn("rejected configuration snapshot", zap.String("version", snap.Version), zap.Error(err))
		return err
	}

	s := settingsView{
		StaleAfter:    snap.Settings.StaleAfter.Std().Seconds(),
		MaxGap:        snap.Settings.MaxGap.Std().Seconds(),
		Retention:     snap.Settings.Retention,
		Cooldown:      snap.Settings.Cooldown.Std().Seconds(),
		SlotTolerance: snap.Settings.SlotTolerance.Std().Seconds(),
	}
	if issues := settingsSchema.Validate(&s); len(issues) > 0 {
		return corrupt("settings: invalid %s", issueFields(issues))
	}
	for source, f := range snap.Settings.LightFactors {
		if f <= 0 {
			return corrupt("settings: light factor %q must be positive", source)
		}
	}
	if err := checkBounds("settings ranges", snap.Settings.Ranges); err != nil {
		return corrupt("%v", err)
	}

	locations := map[string]bool{}
	for i := range snap.Locations {
		l := &snap.Locations[i]
		v := entityView{ID: l.ID}
		if issues := locationSchema.Validate(&v); len(issues) > 0 {
			return corrupt("location %d: invalid %s", i, issueFields(issues))
		}
		if locations[l.ID] {
			return corrupt("duplicate location %q", l.ID)
		}
		locations[l.ID] = true
		if l.Timezone != "" {
			if _, err := time.LoadLocation(l.Timezone); err != nil {
				return corrupt("location %q: timezone %q: %v", l.ID, l.Timezone, err)
			}
		}
		if l.DayStart != "" {
			if _, err := clock.ParseTimeOfDay(l.DayStart); err != nil {
				return corrupt("location %q: day_start: %v", l.ID, err)
			}
		}
		if err := checkSensors(l.Sensors); err != nil {
			return corrupt("location %q: %v", l.ID, err)
		}
		if err := checkBounds("location "+l.ID, l.Bounds); err != nil {
			return corrupt("%v", err)
		}
		if err := checkBound("location "+l.ID+" dli", l.DLI); err != nil {
			return corrupt("%v", err)
		}
	}

	plants := map[string]bool{}
	for i := range snap.Plants {
		p := &snap.Plants[i]
		v := entityView{ID: p.ID, LocationID: p.LocationID}
		if issues := plantSchema.Validate(&v); len(issues) > 0 {
			return corrupt("plant %d: invalid %s", i, issueFields(issues))
		}
		if plants[p.ID] || locations[p.ID] {
			return corrupt("duplicate entity %q", p.ID)
		}
		plants[p.ID] = true
		if p.LocationID != "" && !locations[p.LocationID] {
			return corrupt("plant %q: unknown location %q", p.ID, p.LocationID)
		}
		if err := checkSensors(p.Sensors); err != nil {
			return corrupt("plant %q: %v", p.ID, err)
		}
		if err := checkBounds("plant "+p.ID, p.Bounds); err != nil {
			return corrupt("%v", err)
		}
		if err := checkBound("plant "+p.ID+" dli", p.DLI); err != nil {
			return corrupt("%v", err)
		}
	}

	zones := map[string]bool{}
	for i := range snap.Zones {
		zc := &snap.Zones[i]
		v := zoneView{
			ID:                 zc.ID,
			LocationID:         zc.LocationID,
			Duration:           zc.Duration.Std().Seconds(),
			Cooldown:           zc.Cooldown.Std().Seconds(),
			FertiliseEveryDays: zc.FertiliseEveryDays,
		}
		if issues := zoneSchema.Validate(&v); len(issues) > 0 {
			return corrupt("zone %d: invalid %s", i, issueFields(issues))
		}
		if zones[zc.ID] {
			return corrupt("duplicate zone %q", zc.ID)
		}
		zones[zc.ID] = true
		if !locations[zc.LocationID] {
			return corrupt("zone %q: unknown location %q", zc.ID, zc.LocationID)
		}
		for _, t := range zc.Times {
			if _, err := clock.ParseTimeOfDay(t); err != nil {
				return corrupt("zone %q: %v", zc.ID, err)
			}
		}
		for _, d := range zc.Weekdays {
			if d < time.Sunday || d > time.Saturday {
				return corrupt("zone %q: weekday %d out of range", zc.ID, d)
			}
		}
	}
	return nil
}

func checkSensors(sensors map[models.MetricKind]string) error {
	for kind, id := range sensors {
		if !kind.Valid() {
			return fmt.Errorf("unknown metric %q", kind)
		}
		if strings.TrimSpace(id) == "" {
			return fmt.Errorf("empty sensor id for %s", kind)
		}
	}
	return nil
}

func checkBounds(owner string, bounds map[models.MetricKind]models.Bound) error {
	for kind, b := range bounds {
		if !kind.Valid() {
			return fmt.Errorf("%s: unknown metric %q", owner, kind)
		}
		if err := checkBound(owner+" "+string(kind), &b); err != nil {
			return err
		}
	}
	return nil
}

func checkBound(owner string, b *models.Bound) error {
	if b == nil {
		return nil
	}
	if b.Min != nil && b.Max != nil && *b.Min > *b.Max {
		return fmt.Errorf("%s: min %v above max %v", owner, *b.Min, *b.Max)
	}
	if b.ViolationCount < 0 || b.RecoveryCount < 0 {
		return fmt.Errorf("%s: negative debounce count", owner)
	}
	if b.ViolationFor < 0 {
		return fmt.Errorf("%s: negative violation_for", owner)
	}
	return nil
}
