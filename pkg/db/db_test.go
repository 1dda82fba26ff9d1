package db

import (
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"liyu1981.xyz/plant-care-service/pkg/common"
	"liyu1981.xyz/plant-care-service/pkg/models"
	_ "liyu1981.xyz/plant-care-service/pkg/testing"

	"gorm.io/gorm"
)

func tableExists(db *gorm.DB, tableName string) bool {
	var count int64
	err := db.Raw(
		`SELECT count(*) FROM sqlite_master WHERE type='table' AND name=?`, tableName,
	).Scan(&count).Error
	return err == nil && count > 0
}

func newTestStore(t *testing.T) *Store {
	t.Helper()
	common.SetTestLoggerNop()
	instance := GetInstance(UseMemorySqliteDialector())
	require.NotNil(t, instance)
	return NewStore(instance)
}

func TestWithMemorySqlite(t *testing.T) {
	common.SetTestLoggerNop()

	dialector := UseMemorySqliteDialector()

	instance := GetInstance(dialector)
	if instance == nil {
		t.Fatal("Expected non-nil DB instance")
	}

	var tables = []string{"readings", "light_accumulator_records", "zone_state_records", "event_records", "config_records"}
	for _, table := range tables {
		if !tableExists(instance.Conn, table) {
			t.Errorf("Expected table %q to exist after migration", table)
		}
	}
}

func TestSingletonConcurrency(t *testing.T) {
	common.SetTestLoggerNop()

	const goroutineCount = 20

	var wg sync.WaitGroup
	instances := make(chan *DB, goroutineCount)

	for range goroutineCount {
		wg.Add(1)
		go func() {
			defer wg.Done()
			instance := GetInstance(UseMemorySqliteDialector())
			instances <- instance
		}()
	}

	wg.Wait()
	close(instances)

	var first *DB
	for inst := range instances {
		if first == nil {
			first = inst
			continue
		}
		if inst != first {
			t.Error("Expected all instances to be the same (singleton), but found different ones")
		}
	}
}

func TestReadingsNewestFirst(t *testing.T) {
	store := newTestStore(t)
	sensorID := uuid.NewString()
	base := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	for i := range 3 {
		require.NoError(t, store.SaveReading(models.SensorReading{
			SensorID:  sensorID,
			Kind:      models.MetricMoisture,
			Value:     float64(30 + i),
			Unit:      "%",
			Timestamp: base.Add(time.Duration(i) * time.Minute),
		}))
	}

	readings, err := store.Readings(sensorID, 2)
	require.NoError(t, err)
	require.Len(t, readings, 2)
	assert.Equal(t, 32.0, readings[0].Value)
	assert.Equal(t, 31.0, readings[1].Value)
}

func TestSaveAccumulatorUpserts(t *testing.T) {
	store := newTestStore(t)
	entityID := uuid.NewString()
	day := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	rec := models.LightAccumulatorRecord{EntityID: entityID, DayStart: day, Accumulated: 1.5, HasData: true, Ring: "[]"}
	require.NoError(t, store.SaveAccumulator(rec))

	rec.Accumulated = 4.25
	rec.LastDLI = models.Float(12)
	require.NoError(t, store.SaveAccumulator(rec))

	recs, err := store.LoadAccumulators()
	require.NoError(t, err)

	var found []models.LightAccumulatorRecord
	for _, r := range recs {
		if r.EntityID == entityID {
			found = append(found, r)
		}
	}
	require.Len(t, found, 1)
	assert.Equal(t, 4.25, found[0].Accumulated)
	require.NotNil(t, found[0].LastDLI)
	assert.Equal(t, 12.0, *found[0].LastDLI)
}

func TestSaveZoneStateUpserts(t *testing.T) {
	store := newTestStore(t)
	zoneID := uuid.NewString()
	fired := time.Date(2024, 6, 1, 7, 0, 0, 0, time.UTC)

	require.NoError(t, store.SaveZoneState(models.ZoneStateRecord{ZoneID: zoneID, LastFiredAt: fired}))
	require.NoError(t, store.SaveZoneState(models.ZoneStateRecord{ZoneID: zoneID, LastFiredAt: fired, ErrorCount: 2, LastError: "valve stuck"}))

	recs, err := store.LoadZoneStates()
	require.NoError(t, err)

	var got *models.ZoneStateRecord
	for i := range recs {
		if recs[i].ZoneID == zoneID {
			got = &recs[i]
		}
	}
	require.NotNil(t, got)
	assert.Equal(t, 2, got.ErrorCount)
	assert.Equal(t, "valve stuck", got.LastError)
	assert.True(t, got.LastFiredAt.Equal(fired))
}

func TestAppendEventAndQuery(t *testing.T) {
	store := newTestStore(t)
	entityID := uuid.NewString()
	at := time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC)

	require.NoError(t, store.AppendEvent(models.StateChanged{
		EntityID:  entityID,
		Check:     models.CheckMoistureLow,
		Old:       models.StateOk,
		New:       models.StateProblem,
		Reason:    "below minimum",
		Timestamp: at,
	}))
	require.NoError(t, store.AppendEvent(models.DLIFinalized{
		EntityID:  entityID,
		Day:       at.Truncate(24 * time.Hour),
		DLI:       15.984,
		Timestamp: at.Add(time.Hour),
	}))

	all, err := store.Events(entityID, "", 10)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, models.EventDLIFinalized, all[0].Type)
	assert.Equal(t, models.EventStateChanged, all[1].Type)
	assert.Equal(t, string(models.CheckMoistureLow), all[1].Check)
	assert.Equal(t, string(models.StateProblem), all[1].NewState)
	assert.Contains(t, all[1].Payload, "below minimum")

	onlyState, err := store.Events(entityID, models.EventStateChanged, 10)
	require.NoError(t, err)
	assert.Len(t, onlyState, 1)
}

func TestSnapshotRoundTrip(t *testing.T) {
	store := newTestStore(t)

	snap := models.Snapshot{
		Version: uuid.NewString(),
		Locations: []models.LocationConfig{
			{ID: "greenhouse", Timezone: "Europe/Berlin", LightSource: "sunlight"},
		},
		Plants: []models.PlantConfig{
			{ID: "fern", LocationID: "greenhouse", Sensors: map[models.MetricKind]string{models.MetricMoisture: "s1"}},
		},
	}
	require.NoError(t, store.SaveSnapshot(snap, time.Now()))

	got, err := store.LoadSnapshot()
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, snap.Version, got.Version)
	require.Len(t, got.Plants, 1)
	assert.Equal(t, "s1", got.Plants[0].Sensors[models.MetricMoisture])
}
