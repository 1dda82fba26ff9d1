package irrigation

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"liyu1981.xyz/plant-care-service/pkg/clock"
	"liyu1981.xyz/plant-care-service/pkg/common"
	"liyu1981.xyz/plant-care-service/pkg/models"
)

// 2024-06-03 is a Monday
var monday = time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC)

type memStore struct {
	mu   sync.Mutex
	recs map[string]models.ZoneStateRecord
}

func newMemStore() *memStore { return &memStore{recs: map[string]models.ZoneStateRecord{}} }

func (m *memStore) SaveZoneState(rec models.ZoneStateRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.recs[rec.ZoneID] = rec
	return nil
}

func (m *memStore) LoadZoneStates() ([]models.ZoneStateRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.ZoneStateRecord
	for _, r := range m.recs {
		out = append(out, r)
	}
	return out, nil
}

var bindings = []models.SensorBinding{
	{SensorID: "soil-1", Kind: models.MetricMoisture, EntityID: "plant-1", LocationID: "balcony", Plant: true},
	{SensorID: "soil-9", Kind: models.MetricMoisture, EntityID: "plant-9", LocationID: "kitchen", Plant: true},
	{SensorID: "loc-soil", Kind: models.MetricMoisture, EntityID: "balcony", LocationID: "balcony"},
}

func timeZone(id string, times ...string) models.ZoneConfig {
	return models.ZoneConfig{
		ID:         id,
		LocationID: "balcony",
		Mode:       models.ScheduleTime,
		Times:      times,
		Duration:   models.Duration(10 * time.Minute),
		Enabled:    true,
	}
}

func moistureZone(id string, sensors ...string) models.ZoneConfig {
	return models.ZoneConfig{
		ID:              id,
		LocationID:      "balcony",
		Mode:            models.ScheduleMoisture,
		MoistureSensors: sensors,
		Duration:        models.Duration(5 * time.Minute),
		Enabled:         true,
	}
}

func irrigations(events []models.Event) []models.IrrigationEvent {
	var out []models.IrrigationEvent
	for _, ev := range events {
		if i, ok := ev.(models.IrrigationEvent); ok {
			out = append(out, i)
		}
	}
	return out
}

func moistureLow(sensorID string) models.StateChanged {
	return models.StateChanged{EntityID: "plant-1", Check: models.CheckMoistureLow, SensorID: sensorID, Old: models.StateOk, New: models.StateProblem}
}

func newScheduler(clk clock.Clock, store Store) *Scheduler {
	common.SetTestLoggerNop()
	return NewScheduler(Options{Clock: clk, Store: store})
}

func TestTimeSlotFiresOnce(t *testing.T) {
	clk := clock.NewFakeClock(monday.Add(6*time.Hour + 58*time.Minute))
	s := newScheduler(clk, nil)
	s.Configure([]models.ZoneConfig{timeZone("z1", "07:00")}, bindings, nil)

	assert.Empty(t, s.Tick(clk.Now()))

	now := clk.Advance(2*time.Minute + 30*time.Second)
	fired := irrigations(s.Tick(now))
	require.Len(t, fired, 1)
	assert.Equal(t, "z1", fired[0].ZoneID)
	assert.Equal(t, models.TriggerSchedule, fired[0].Reason)
	assert.Equal(t, 10*time.Minute, fired[0].Duration)
	assert.NotEmpty(t, fired[0].ID)

	assert.Empty(t, s.Tick(clk.Advance(time.Minute)))

	st, err := s.Zone("z1")
	require.NoError(t, err)
	require.NotNil(t, st.LastFired)
	assert.Equal(t, now, *st.LastFired)
}

func TestSlotOlderThanToleranceIsSkipped(t *testing.T) {
	clk := clock.NewFakeClock(monday.Add(6 * time.Hour))
	s := newScheduler(clk, nil)
	s.Configure([]models.ZoneConfig{timeZone("z1", "07:00")}, bindings, nil)

	s.Tick(clk.Now())
	// the loop stalled past the slot tolerance
	assert.Empty(t, s.Tick(clk.Advance(70*time.Minute)))
}

func TestCooldownSuppressesSecondSlot(t *testing.T) {
	clk := clock.NewFakeClock(monday.Add(7 * time.Hour))
	s := newScheduler(clk, nil)
	s.Configure([]models.ZoneConfig{timeZone("z1", "07:00", "09:00", "14:00")}, bindings, nil)

	require.Len(t, irrigations(s.Tick(clk.Now())), 1)

	clk.Set(monday.Add(8*time.Hour + 59*time.Minute))
	s.Tick(clk.Now())
	assert.Empty(t, s.Tick(clk.Advance(time.Minute)), "inside the 6h default cool-down")

	clk.Set(monday.Add(13*time.Hour + 59*time.Minute))
	s.Tick(clk.Now())
	assert.Len(t, irrigations(s.Tick(clk.Advance(time.Minute))), 1)
}

func TestWeekdaysAndLocationTimezone(t *testing.T) {
	tz := time.FixedZone("UTC+2", 2*3600)
	z := timeZone("z1", "07:00")
	z.Weekdays = []time.Weekday{time.Tuesday}

	clk := clock.NewFakeClock(monday.Add(4*time.Hour + 59*time.Minute))
	s := newScheduler(clk, nil)
	s.Configure([]models.ZoneConfig{z}, bindings, map[string]*time.Location{"balcony": tz})

	s.Tick(clk.Now())
	assert.Empty(t, s.Tick(clk.Advance(time.Minute)), "monday is not a watering day")

	clk.Set(monday.Add(24*time.Hour + 4*time.Hour + 59*time.Minute))
	s.Tick(clk.Now())
	assert.Len(t, irrigations(s.Tick(clk.Advance(time.Minute))), 1, "07:00 local is 05:00 UTC")
}

func TestMoistureTrigger(t *testing.T) {
	clk := clock.NewFakeClock(monday.Add(10 * time.Hour))
	s := newScheduler(clk, nil)
	s.Configure([]models.ZoneConfig{moistureZone("m1", "soil-1")}, bindings, nil)

	fired := irrigations(s.OnStateChanged(moistureLow("soil-1")))
	require.Len(t, fired, 1)
	assert.Equal(t, models.TriggerMoisture, fired[0].Reason)
	assert.Equal(t, clk.Now(), fired[0].Timestamp)

	clk.Advance(time.Hour)
	assert.Empty(t, s.OnStateChanged(moistureLow("soil-1")), "cool-down")

	clk.Advance(6 * time.Hour)
	assert.Len(t, s.OnStateChanged(moistureLow("soil-1")), 1)
}

func TestMoistureTriggerIgnoresOtherEvents(t *testing.T) {
	clk := clock.NewFakeClock(monday)
	s := newScheduler(clk, nil)
	s.Configure([]models.ZoneConfig{moistureZone("m1", "soil-1")}, bindings, nil)

	recovered := moistureLow("soil-1")
	recovered.Old, recovered.New = models.StateProblem, models.StateOk
	assert.Empty(t, s.OnStateChanged(recovered))

	soon := moistureLow("soil-1")
	soon.Check = models.CheckMoistureWaterSoon
	assert.Empty(t, s.OnStateChanged(soon))

	assert.Empty(t, s.OnStateChanged(moistureLow("soil-2")))
}

func TestDisabledZoneDoesNotFire(t *testing.T) {
	clk := clock.NewFakeClock(monday)
	s := newScheduler(clk, nil)
	z := moistureZone("m1", "soil-1")
	z.Enabled = false
	s.Configure([]models.ZoneConfig{z}, bindings, nil)
	assert.Empty(t, s.OnStateChanged(moistureLow("soil-1")))
}

func TestMisconfiguration(t *testing.T) {
	clk := clock.NewFakeClock(monday)
	s := newScheduler(clk, nil)

	a := timeZone("a", "07:00")
	a.Valve = "v1"
	b := timeZone("b", "07:05")
	b.Valve = "v1"
	c := timeZone("c", "08:00")
	c.Valve = "v1"

	events := s.Configure([]models.ZoneConfig{
		moistureZone("unbound", "soil-9"),
		moistureZone("location-sensor", "loc-soil"),
		moistureZone("no-sensors"),
		timeZone("no-slots"),
		timeZone("bad-slot", "25:00"),
		a, b, c,
		moistureZone("good", "soil-1"),
	}, bindings, nil)

	flags := map[string]models.State{}
	for _, ev := range events {
		sc := ev.(models.StateChanged)
		assert.Equal(t, models.CheckScheduleMisconfigured, sc.Check)
		assert.Equal(t, models.StateUnknown, sc.Old)
		flags[sc.EntityID] = sc.New
	}
	assert.Equal(t, map[string]models.State{
		"unbound":         models.StateProblem,
		"location-sensor": models.StateProblem,
		"no-sensors":      models.StateProblem,
		"no-slots":        models.StateProblem,
		"bad-slot":        models.StateProblem,
		"a":               models.StateProblem,
		"b":               models.StateProblem,
		"c":               models.StateOk,
		"good":            models.StateOk,
	}, flags)

	st, err := s.Zone("a")
	require.NoError(t, err)
	assert.True(t, st.Misconfigured)
	assert.Contains(t, st.Reasons[0], "overlaps with zone b")

	assert.Empty(t, s.OnStateChanged(moistureLow("soil-9")), "misconfigured zones never actuate")

	// fixing the valve clears the flag; unchanged zones stay silent
	b.Valve = "v2"
	events = s.Configure([]models.ZoneConfig{a, b, c, moistureZone("good", "soil-1")}, bindings, nil)
	require.Len(t, events, 2)
	for _, ev := range events {
		sc := ev.(models.StateChanged)
		assert.Equal(t, models.StateProblem, sc.Old)
		assert.Equal(t, models.StateOk, sc.New)
	}
}

func TestOverlapAcrossMidnightAndWeekdays(t *testing.T) {
	assert.True(t, windowsOverlap([]time.Duration{23*time.Hour + 55*time.Minute}, 10*time.Minute, []time.Duration{0}, time.Minute))
	assert.False(t, windowsOverlap([]time.Duration{7 * time.Hour}, 10*time.Minute, []time.Duration{7*time.Hour + 10*time.Minute}, time.Minute))
	assert.False(t, sharesWeekday([]time.Weekday{time.Monday}, []time.Weekday{time.Friday}))
	assert.True(t, sharesWeekday(nil, []time.Weekday{time.Friday}))
}

func TestCooldownSurvivesRestart(t *testing.T) {
	store := newMemStore()
	clk := clock.NewFakeClock(monday.Add(10 * time.Hour))

	s := newScheduler(clk, store)
	s.Configure([]models.ZoneConfig{moistureZone("m1", "soil-1")}, bindings, nil)
	require.Len(t, s.OnStateChanged(moistureLow("soil-1")), 1)

	clk.Advance(time.Hour)
	restarted := newScheduler(clk, store)
	restarted.Configure([]models.ZoneConfig{moistureZone("m1", "soil-1")}, bindings, nil)
	assert.Empty(t, restarted.OnStateChanged(moistureLow("soil-1")))
}

func TestErrorCount(t *testing.T) {
	store := newMemStore()
	s := newScheduler(clock.NewFakeClock(monday), store)
	s.Configure([]models.ZoneConfig{moistureZone("m1", "soil-1")}, bindings, nil)

	require.NoError(t, s.ReportActuationResult("m1", errors.New("valve timeout")))
	require.NoError(t, s.ReportActuationResult("m1", nil))
	require.NoError(t, s.ReportActuationResult("m1", errors.New("valve timeout")))

	st, _ := s.Zone("m1")
	assert.Equal(t, 2, st.ErrorCount)
	assert.Equal(t, "valve timeout", st.LastError)
	assert.Equal(t, 2, store.recs["m1"].ErrorCount)

	require.NoError(t, s.ResetErrorCount("m1"))
	st, _ = s.Zone("m1")
	assert.Equal(t, 0, st.ErrorCount)

	assert.ErrorIs(t, s.ResetErrorCount("nope"), common.ErrNotFound)
	assert.ErrorIs(t, s.ReportActuationResult("nope", nil), common.ErrNotFound)
}

func TestFertiliserDue(t *testing.T) {
	s := newScheduler(clock.NewFakeClock(monday), nil)
	z := moistureZone("m1", "soil-1")
	z.FertiliseEveryDays = 14
	s.Configure([]models.ZoneConfig{z, moistureZone("m2", "soil-1")}, bindings, nil)

	due, err := s.FertiliserDue("m1", monday)
	require.NoError(t, err)
	assert.True(t, due, "never fertilised")

	require.NoError(t, s.RecordFertilised("m1", monday))
	due, _ = s.FertiliserDue("m1", monday.Add(13*24*time.Hour))
	assert.False(t, due)
	due, _ = s.FertiliserDue("m1", monday.Add(14*24*time.Hour))
	assert.True(t, due)

	winter := time.Date(2024, 12, 1, 0, 0, 0, 0, time.UTC)
	due, _ = s.FertiliserDue("m1", winter)
	assert.False(t, due, "out of season")

	due, _ = s.FertiliserDue("m2", monday)
	assert.False(t, due, "fertilising not configured")

	_, err = s.FertiliserDue("nope", monday)
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestZonesListing(t *testing.T) {
	s := newScheduler(clock.NewFakeClock(monday), nil)
	s.Configure([]models.ZoneConfig{moistureZone("b", "soil-1"), moistureZone("a", "soil-1")}, bindings, nil)
	zones := s.Zones()
	require.Len(t, zones, 2)
	assert.Equal(t, "a", zones[0].Config.ID)
}
