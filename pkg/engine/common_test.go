package engine_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	"liyu1981.xyz/plant-care-service/pkg/clock"
	"liyu1981.xyz/plant-care-service/pkg/common"
	"liyu1981.xyz/plant-care-service/pkg/db"
	"liyu1981.xyz/plant-care-service/pkg/engine"
	"liyu1981.xyz/plant-care-service/pkg/engine/mocks"
	"liyu1981.xyz/plant-care-service/pkg/models"
	"liyu1981.xyz/plant-care-service/pkg/species"
	_ "liyu1981.xyz/plant-care-service/pkg/testing"
)

var dawn = time.Date(2024, 6, 1, 6, 0, 0, 0, time.UTC)

// fixture names every entity with a fresh suffix because the in-memory
// database is shared by all tests of the package.
type fixture struct {
	location string
	plant    string
	zone     string
	lux      string
	soil     string
}

func newFixture() fixture {
	id := uuid.NewString()[:8]
	return fixture{
		location: "greenhouse-" + id,
		plant:    "fern-" + id,
		zone:     "bed-" + id,
		lux:      "lux-" + id,
		soil:     "soil-" + id,
	}
}

func (f fixture) snapshot() *models.Snapshot {
	return &models.Snapshot{
		Version: uuid.NewString(),
		Locations: []models.LocationConfig{
			{ID: f.location, Timezone: "UTC", LightSource: "sunlight"},
		},
		Plants: []models.PlantConfig{
			{
				ID:         f.plant,
				LocationID: f.location,
				Sensors: map[models.MetricKind]string{
					models.MetricIlluminance: f.lux,
					models.MetricMoisture:    f.soil,
				},
				Bounds: map[models.MetricKind]models.Bound{
					models.MetricMoisture: {Min: models.Float(15), Max: models.Float(70), ViolationCount: 2, RecoveryCount: 2},
				},
			},
		},
		Zones: []models.ZoneConfig{
			{
				ID:              f.zone,
				LocationID:      f.location,
				Mode:            models.ScheduleMoisture,
				MoistureSensors: []string{f.soil},
				Duration:        models.Duration(5 * time.Minute),
				Enabled:         true,
			},
		},
	}
}

type recorder struct {
	mu     sync.Mutex
	events []models.Event
}

func (r *recorder) handler(_ context.Context, ev models.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return nil
}

func ofType[T models.Event](r *recorder) []T {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []T
	for _, ev := range r.events {
		if t, ok := ev.(T); ok {
			out = append(out, t)
		}
	}
	return out
}

type testEngineOpts struct {
	clock    clock.Clock
	actuator engine.Actuator
	species  species.Source
}

func GetEngineWithMemorySqliteDialector(t *testing.T, opts testEngineOpts) (*engine.Engine, *recorder) {
	t.Helper()
	common.SetTestLoggerNop()

	dbInstance := db.GetInstance(db.UseMemorySqliteDialector())
	e := engine.New(dbInstance, engine.Options{
		Clock:        opts.clock,
		Actuator:     opts.actuator,
		Species:      opts.species,
		KeepReadings: true,
	})
	e.WithServices(engine.ServiceOpts{
		Reading:    e.GetIReading(),
		Config:     e.GetIConfig(),
		Query:      e.GetIQuery(),
		Irrigation: e.GetIIrrigation(),
	})

	rec := &recorder{}
	e.Dispatcher().SubscribeAll(rec.handler)
	return e, rec
}

func GetMockActuator(t *testing.T) (*gomock.Controller, *mocks.MockActuator) {
	ctrl := gomock.NewController(t)
	return ctrl, mocks.NewMockActuator(ctrl)
}

func reading(sensorID string, kind models.MetricKind, value float64, at time.Time) models.SensorReading {
	return models.SensorReading{SensorID: sensorID, Kind: kind, Value: value, Timestamp: at, Valid: true}
}

func ingestAt(t *testing.T, e *engine.Engine, clk *clock.FakeClock, r models.SensorReading) {
	t.Helper()
	clk.Set(r.Timestamp)
	_, err := e.Reading.IngestReading(r)
	require.NoError(t, err)
}
