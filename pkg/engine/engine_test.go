package engine_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	"liyu1981.xyz/plant-care-service/pkg/clock"
	"liyu1981.xyz/plant-care-service/pkg/common"
	"liyu1981.xyz/plant-care-service/pkg/models"
	"liyu1981.xyz/plant-care-service/pkg/species"
	speciesmocks "liyu1981.xyz/plant-care-service/pkg/species/mocks"
)

func TestTwelveHoursOfSunlightEndToEnd(t *testing.T) {
	clk := clock.NewFakeClock(dawn)
	e, rec := GetEngineWithMemorySqliteDialector(t, testEngineOpts{clock: clk})
	f := newFixture()
	require.NoError(t, e.Config.ApplySnapshot(f.snapshot()))

	for at := dawn; !at.After(dawn.Add(12 * time.Hour)); at = at.Add(10 * time.Minute) {
		ingestAt(t, e, clk, reading(f.lux, models.MetricIlluminance, 20000, at))
	}

	status, err := e.Query.EntityLight(f.plant)
	require.NoError(t, err)
	assert.InDelta(t, 15.984, status.DLISoFar, 1e-6)
	assert.InDelta(t, 370.0, status.PPFD, 1e-9)
	assert.Nil(t, status.PriorDLI)

	midnight := time.Date(2024, 6, 2, 0, 5, 0, 0, time.UTC)
	clk.Set(midnight)
	e.Tick(midnight)

	finalized := ofType[models.DLIFinalized](rec)
	require.Len(t, finalized, 1)
	assert.Equal(t, f.plant, finalized[0].EntityID)
	assert.InDelta(t, 15.984, finalized[0].DLI, 1e-6)

	status, err = e.Query.EntityLight(f.plant)
	require.NoError(t, err)
	require.NotNil(t, status.PriorDLI)
	assert.InDelta(t, 15.984, *status.PriorDLI, 1e-6)
	assert.Equal(t, 0.0, status.DLISoFar)

	assert.NotEmpty(t, ofType[models.LightSample](rec))

	logged, err := e.Query.EntityEvents(f.plant, models.EventDLIFinalized, 10)
	require.NoError(t, err)
	assert.Len(t, logged, 1)
}

func TestMoistureDropTriggersIrrigation(t *testing.T) {
	clk := clock.NewFakeClock(dawn)
	ctrl, actuator := GetMockActuator(t)
	defer ctrl.Finish()

	e, rec := GetEngineWithMemorySqliteDialector(t, testEngineOpts{clock: clk, actuator: actuator})
	f := newFixture()
	require.NoError(t, e.Config.ApplySnapshot(f.snapshot()))

	actuator.EXPECT().
		Actuate(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, ev models.IrrigationEvent) error {
			assert.Equal(t, f.zone, ev.ZoneID)
			assert.Equal(t, models.TriggerMoisture, ev.Reason)
			assert.Equal(t, 5*time.Minute, ev.Duration)
			return nil
		}).
		Times(1)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	e.Start(ctx)

	for i, v := range []float64{40, 12, 10, 9} {
		ingestAt(t, e, clk, reading(f.soil, models.MetricMoisture, v, dawn.Add(time.Duration(i)*time.Minute)))
	}
	e.Close()

	changes := ofType[models.StateChanged](rec)
	var low []models.StateChanged
	for _, sc := range changes {
		if sc.Check == models.CheckMoistureLow {
			low = append(low, sc)
		}
	}
	require.Len(t, low, 2)
	assert.Equal(t, models.StateOk, low[0].New)
	assert.Equal(t, models.StateProblem, low[1].New)
	assert.Equal(t, dawn.Add(2*time.Minute), low[1].Timestamp)

	require.Len(t, ofType[models.IrrigationEvent](rec), 1)

	zone, err := e.Irrigation.Zone(f.zone)
	require.NoError(t, err)
	require.NotNil(t, zone.LastFired)
	assert.Equal(t, 0, zone.ErrorCount)
}

func TestActuationFailureCountsTowardsZoneErrors(t *testing.T) {
	clk := clock.NewFakeClock(dawn)
	ctrl, actuator := GetMockActuator(t)
	defer ctrl.Finish()

	e, _ := GetEngineWithMemorySqliteDialector(t, testEngineOpts{clock: clk, actuator: actuator})
	f := newFixture()
	require.NoError(t, e.Config.ApplySnapshot(f.snapshot()))

	actuator.EXPECT().Actuate(gomock.Any(), gomock.Any()).Return(errors.New("valve stuck")).Times(1)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	e.Start(ctx)

	for i, v := range []float64{10, 10} {
		ingestAt(t, e, clk, reading(f.soil, models.MetricMoisture, v, dawn.Add(time.Duration(i)*time.Minute)))
	}
	e.Close()

	zone, err := e.Irrigation.Zone(f.zone)
	require.NoError(t, err)
	assert.Equal(t, 1, zone.ErrorCount)
	assert.Equal(t, "valve stuck", zone.LastError)

	require.NoError(t, e.Irrigation.ResetZoneErrors(f.zone))
	zone, err = e.Irrigation.Zone(f.zone)
	require.NoError(t, err)
	assert.Equal(t, 0, zone.ErrorCount)

	require.NoError(t, e.Irrigation.ReportActuationResult(f.zone, "timeout"))
	zone, _ = e.Irrigation.Zone(f.zone)
	assert.Equal(t, 1, zone.ErrorCount)
}

func TestCorruptSnapshotKeepsPrevious(t *testing.T) {
	clk := clock.NewFakeClock(dawn)
	e, _ := GetEngineWithMemorySqliteDialector(t, testEngineOpts{clock: clk})
	f := newFixture()
	good := f.snapshot()
	require.NoError(t, e.Config.ApplySnapshot(good))

	bad := f.snapshot()
	bad.Plants[0].LocationID = "nowhere"
	err := e.Config.ApplySnapshot(bad)
	require.Error(t, err)
	assert.True(t, errors.Is(err, common.ErrCorruptConfig))

	current := e.Config.CurrentSnapshot()
	require.NotNil(t, current)
	assert.Equal(t, good.Version, current.Version)
	assert.Equal(t, f.location, current.Plants[0].LocationID)
}

func TestInvalidReadingIsRejected(t *testing.T) {
	clk := clock.NewFakeClock(dawn)
	e, rec := GetEngineWithMemorySqliteDialector(t, testEngineOpts{clock: clk})
	f := newFixture()
	require.NoError(t, e.Config.ApplySnapshot(f.snapshot()))

	_, err := e.Reading.IngestReading(reading(f.soil, models.MetricMoisture, 140, dawn))
	assert.True(t, errors.Is(err, common.ErrInvalidReading))

	e.Reading.SetSensorAvailability(f.soil, false)
	_, err = e.Reading.IngestReading(reading(f.soil, models.MetricMoisture, 40, dawn))
	assert.True(t, errors.Is(err, common.ErrInvalidReading))

	e.Reading.SetSensorAvailability(f.soil, true)
	_, err = e.Reading.IngestReading(reading(f.soil, models.MetricMoisture, 40, dawn))
	assert.NoError(t, err)

	assert.Empty(t, ofType[models.IrrigationEvent](rec))
}

func TestStaleSensorForcesUnknown(t *testing.T) {
	clk := clock.NewFakeClock(dawn)
	e, rec := GetEngineWithMemorySqliteDialector(t, testEngineOpts{clock: clk})
	f := newFixture()
	require.NoError(t, e.Config.ApplySnapshot(f.snapshot()))

	ingestAt(t, e, clk, reading(f.soil, models.MetricMoisture, 40, dawn))

	states, err := e.Query.EntityStates(f.plant)
	require.NoError(t, err)
	for _, st := range states {
		if st.Check == models.CheckMoistureLow {
			assert.Equal(t, models.StateOk, st.State)
		}
	}

	later := dawn.Add(3 * time.Hour)
	clk.Set(later)
	e.Tick(later)

	stale := ofType[models.SensorStale](rec)
	var seen bool
	for _, s := range stale {
		if s.SensorID == f.soil {
			seen = true
		}
	}
	assert.True(t, seen)

	states, err = e.Query.EntityStates(f.plant)
	require.NoError(t, err)
	for _, st := range states {
		if st.Check == models.CheckMoistureLow {
			assert.Equal(t, models.StateUnknown, st.State)
		}
	}
}

func TestIgnoreCheck(t *testing.T) {
	clk := clock.NewFakeClock(dawn)
	e, _ := GetEngineWithMemorySqliteDialector(t, testEngineOpts{clock: clk})
	f := newFixture()
	snap := f.snapshot()
	snap.Zones = nil
	require.NoError(t, e.Config.ApplySnapshot(snap))

	ingestAt(t, e, clk, reading(f.soil, models.MetricMoisture, 10, dawn))
	ingestAt(t, e, clk, reading(f.soil, models.MetricMoisture, 10, dawn.Add(time.Minute)))

	require.NoError(t, e.Query.IgnoreCheck(f.plant, models.CheckMoistureLow, dawn.Add(24*time.Hour)))

	states, err := e.Query.EntityStates(f.plant)
	require.NoError(t, err)
	for _, st := range states {
		if st.Check == models.CheckMoistureLow {
			assert.Equal(t, models.StateOk, st.State)
			require.NotNil(t, st.IgnoreUntil)
		}
	}

	err = e.Query.IgnoreCheck(f.plant, models.CheckDLIHigh, dawn.Add(time.Hour))
	assert.True(t, errors.Is(err, common.ErrNotFound))

	err = e.Query.IgnoreCheck("no-such-plant", models.CheckMoistureLow, dawn.Add(time.Hour))
	assert.True(t, errors.Is(err, common.ErrNotFound))
}

func TestRestartRestoresLightWindow(t *testing.T) {
	clk := clock.NewFakeClock(dawn)
	e, _ := GetEngineWithMemorySqliteDialector(t, testEngineOpts{clock: clk})
	f := newFixture()
	snap := f.snapshot()
	require.NoError(t, e.Config.ApplySnapshot(snap))

	for at := dawn; !at.After(dawn.Add(2 * time.Hour)); at = at.Add(10 * time.Minute) {
		ingestAt(t, e, clk, reading(f.lux, models.MetricIlluminance, 20000, at))
	}
	before, err := e.Query.EntityLight(f.plant)
	require.NoError(t, err)

	restarted, _ := GetEngineWithMemorySqliteDialector(t, testEngineOpts{clock: clk})
	require.NoError(t, restarted.Config.ApplySnapshot(snap))

	after, err := restarted.Query.EntityLight(f.plant)
	require.NoError(t, err)
	assert.InDelta(t, before.DLISoFar, after.DLISoFar, 1e-9)
	assert.True(t, before.DayStart.Equal(after.DayStart))

	_, err = restarted.Query.EntityLight(f.location)
	assert.True(t, errors.Is(err, common.ErrNotFound))
}

func TestApplyStoredSnapshot(t *testing.T) {
	clk := clock.NewFakeClock(dawn)
	e, _ := GetEngineWithMemorySqliteDialector(t, testEngineOpts{clock: clk})
	f := newFixture()
	snap := f.snapshot()
	require.NoError(t, e.Config.ApplySnapshot(snap))

	restarted, _ := GetEngineWithMemorySqliteDialector(t, testEngineOpts{clock: clk})
	ok, err := restarted.ApplyStoredSnapshot()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, snap.Version, restarted.Config.CurrentSnapshot().Version)

	_, err = restarted.Query.EntityStates(f.plant)
	assert.NoError(t, err)
}

func TestSpeciesProfileFeedsBounds(t *testing.T) {
	clk := clock.NewFakeClock(dawn)
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	source := speciesmocks.NewMockSource(ctrl)
	source.EXPECT().
		Fetch(gomock.Any(), "nephrolepis").
		Return(&species.Profile{ID: "nephrolepis", MinimumTemperature: models.Float(12), MinimumDLI: models.Float(6)}, nil).
		MinTimes(1)

	e, _ := GetEngineWithMemorySqliteDialector(t, testEngineOpts{clock: clk, species: source})
	f := newFixture()
	snap := f.snapshot()
	snap.Plants[0].SpeciesID = "nephrolepis"
	snap.Locations[0].Sensors = map[models.MetricKind]string{models.MetricIlluminance: f.lux}
	require.NoError(t, e.Config.ApplySnapshot(snap))

	hasCheck := func(entityID string, check models.Check) bool {
		states, err := e.Query.EntityStates(entityID)
		require.NoError(t, err)
		for _, st := range states {
			if st.Check == check {
				return true
			}
		}
		return false
	}

	require.Eventually(t, func() bool {
		return hasCheck(f.plant, models.CheckTemperatureLow) && hasCheck(f.location, models.CheckDLILow)
	}, 2*time.Second, 10*time.Millisecond)

	assert.True(t, hasCheck(f.plant, models.CheckDLILow))
	e.Close()
}

func TestMisconfiguredZoneIsFlagged(t *testing.T) {
	clk := clock.NewFakeClock(dawn)
	e, rec := GetEngineWithMemorySqliteDialector(t, testEngineOpts{clock: clk})
	f := newFixture()
	snap := f.snapshot()
	snap.Zones[0].MoistureSensors = []string{"unbound-sensor"}
	require.NoError(t, e.Config.ApplySnapshot(snap))

	zone, err := e.Irrigation.Zone(f.zone)
	require.NoError(t, err)
	assert.True(t, zone.Misconfigured)

	var flagged bool
	for _, sc := range ofType[models.StateChanged](rec) {
		if sc.EntityID == f.zone && sc.Check == models.CheckScheduleMisconfigured && sc.New == models.StateProblem {
			flagged = true
		}
	}
	assert.True(t, flagged)
}

func TestFertiliserDue(t *testing.T) {
	clk := clock.NewFakeClock(dawn)
	e, _ := GetEngineWithMemorySqliteDialector(t, testEngineOpts{clock: clk})
	f := newFixture()
	snap := f.snapshot()
	snap.Zones[0].FertiliseEveryDays = 14
	require.NoError(t, e.Config.ApplySnapshot(snap))

	due, err := e.Irrigation.FertiliserDue(f.zone)
	require.NoError(t, err)
	assert.True(t, due)

	require.NoError(t, e.Irrigation.RecordFertilised(f.zone, time.Time{}))
	due, err = e.Irrigation.FertiliserDue(f.zone)
	require.NoError(t, err)
	assert.False(t, due)

	_, err = e.Irrigation.FertiliserDue("missing-zone")
	assert.True(t, errors.Is(err, common.ErrNotFound))
}

func TestMultiMetricDeviceGoesStaleForEveryMetric(t *testing.T) {
	clk := clock.NewFakeClock(dawn)
	e, rec := GetEngineWithMemorySqliteDialector(t, testEngineOpts{clock: clk})
	f := newFixture()
	snap := f.snapshot()
	snap.Plants[0].Sensors[models.MetricConductivity] = f.soil
	snap.Plants[0].Bounds[models.MetricConductivity] = models.Bound{Min: models.Float(350), Max: models.Float(2000)}
	require.NoError(t, e.Config.ApplySnapshot(snap))

	// one device reports moisture and conductivity with the same timestamp
	ingestAt(t, e, clk, reading(f.soil, models.MetricMoisture, 40, dawn))
	ingestAt(t, e, clk, reading(f.soil, models.MetricConductivity, 900, dawn))

	states, err := e.Query.EntityStates(f.plant)
	require.NoError(t, err)
	byCheck := map[models.Check]models.State{}
	for _, st := range states {
		byCheck[st.Check] = st.State
	}
	assert.Equal(t, models.StateOk, byCheck[models.CheckMoistureLow])
	assert.Equal(t, models.StateOk, byCheck[models.CheckConductivityLow])

	later := dawn.Add(3 * time.Hour)
	clk.Set(later)
	e.Tick(later)

	staleKinds := map[models.MetricKind]bool{}
	for _, s := range ofType[models.SensorStale](rec) {
		if s.SensorID == f.soil {
			staleKinds[s.Kind] = true
		}
	}
	assert.True(t, staleKinds[models.MetricMoisture])
	assert.True(t, staleKinds[models.MetricConductivity])

	states, err = e.Query.EntityStates(f.plant)
	require.NoError(t, err)
	for _, st := range states {
		switch st.Check.Metric() {
		case models.MetricMoisture, models.MetricConductivity:
			assert.Equal(t, models.StateUnknown, st.State, "check %s", st.Check)
		}
	}
}

func TestDLIChecksNeedALightSensor(t *testing.T) {
	clk := clock.NewFakeClock(dawn)
	e, _ := GetEngineWithMemorySqliteDialector(t, testEngineOpts{clock: clk})
	f := newFixture()
	snap := f.snapshot()
	snap.Plants[0].DLI = &models.Bound{Min: models.Float(8), Max: models.Float(30)}
	snap.Locations[0].DLI = &models.Bound{Min: models.Float(10)}
	require.NoError(t, e.Config.ApplySnapshot(snap))

	checksOf := func(entityID string) map[models.Check]bool {
		states, err := e.Query.EntityStates(entityID)
		require.NoError(t, err)
		out := map[models.Check]bool{}
		for _, st := range states {
			out[st.Check] = true
		}
		return out
	}

	assert.True(t, checksOf(f.plant)[models.CheckDLILow])
	assert.True(t, checksOf(f.plant)[models.CheckDLIHigh])
	// the location has a band but no light sensor of its own
	assert.False(t, checksOf(f.location)[models.CheckDLILow])

	snap.Version = uuid.NewString()
	snap.Locations[0].Sensors = map[models.MetricKind]string{models.MetricIlluminance: f.lux}
	delete(snap.Plants[0].Sensors, models.MetricIlluminance)
	require.NoError(t, e.Config.ApplySnapshot(snap))

	assert.True(t, checksOf(f.location)[models.CheckDLILow])
	assert.False(t, checksOf(f.plant)[models.CheckDLILow])
	assert.False(t, checksOf(f.plant)[models.CheckDLIHigh])
}

func TestReenabledLightSensorResumesPersistedWindow(t *testing.T) {
	clk := clock.NewFakeClock(dawn)
	e, _ := GetEngineWithMemorySqliteDialector(t, testEngineOpts{clock: clk})
	f := newFixture()
	snap := f.snapshot()
	require.NoError(t, e.Config.ApplySnapshot(snap))

	for at := dawn; !at.After(dawn.Add(2 * time.Hour)); at = at.Add(10 * time.Minute) {
		ingestAt(t, e, clk, reading(f.lux, models.MetricIlluminance, 20000, at))
	}
	before, err := e.Query.EntityLight(f.plant)
	require.NoError(t, err)
	require.Greater(t, before.DLISoFar, 0.0)

	restarted, _ := GetEngineWithMemorySqliteDialector(t, testEngineOpts{clock: clk})
	dark := f.snapshot()
	delete(dark.Plants[0].Sensors, models.MetricIlluminance)
	require.NoError(t, restarted.Config.ApplySnapshot(dark))
	_, err = restarted.Query.EntityLight(f.plant)
	require.True(t, errors.Is(err, common.ErrNotFound))

	require.NoError(t, restarted.Config.ApplySnapshot(snap))
	after, err := restarted.Query.EntityLight(f.plant)
	require.NoError(t, err)
	assert.InDelta(t, before.DLISoFar, after.DLISoFar, 1e-9)
	assert.True(t, before.DayStart.Equal(after.DayStart))
}
