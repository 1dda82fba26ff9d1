package engine

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
	"liyu1981.xyz/plant-care-service/pkg/clock"
	"liyu1981.xyz/plant-care-service/pkg/common"
	"liyu1981.xyz/plant-care-service/pkg/db"
	"liyu1981.xyz/plant-care-service/pkg/events"
	"liyu1981.xyz/plant-care-service/pkg/ingest"
	"liyu1981.xyz/plant-care-service/pkg/irrigation"
	"liyu1981.xyz/plant-care-service/pkg/metrics"
	"liyu1981.xyz/plant-care-service/pkg/models"
	"liyu1981.xyz/plant-care-service/pkg/species"
)

//go:generate mockgen -source=engine.go -destination=mocks/engine.go -package=mocks

type IReading interface {
	IngestReading(r models.SensorReading) (models.SensorReading, error)
	SetSensorAvailability(sensorID string, available bool)
}

type IConfig interface {
	ApplySnapshot(snap *models.Snapshot) error
	CurrentSnapshot() *models.Snapshot
}

type IQuery interface {
	EntityStates(entityID string) ([]models.ThresholdState, error)
	EntityLight(entityID string) (LightStatus, error)
	EntityEvents(entityID string, eventType models.EventType, limit int) ([]models.EventRecord, error)
	IgnoreCheck(entityID string, check models.Check, until time.Time) error
}

type IIrrigation interface {
	Zone(zoneID string) (irrigation.ZoneStatus, error)
	Zones() []irrigation.ZoneStatus
	ReportActuationResult(zoneID string, errMsg string) error
	ResetZoneErrors(zoneID string) error
	RecordFertilised(zoneID string, at time.Time) error
	FertiliserDue(zoneID string) (bool, error)
}

// Actuator opens a zone valve. Calls are made from the actuation queue, never
// from the ingest path.
type Actuator interface {
	Actuate(ctx context.Context, ev models.IrrigationEvent) error
}

type Options struct {
	Clock      clock.Clock
	Dispatcher *events.Dispatcher
	Species    species.Source
	Actuator   Actuator
	Metrics    *metrics.Collector
	// KeepReadings writes every accepted reading to the reading log.
	KeepReadings bool
	QueueSize    int
}

type Engine struct {
	Db         db.DB
	Reading    IReading
	Config     IConfig
	Query      IQuery
	Irrigation IIrrigation

	store      *db.Store
	clock      clock.Clock
	dispatcher *events.Dispatcher
	ingestor   *ingest.Ingestor
	scheduler  *irrigation.Scheduler
	species    *species.Cache
	actuations *events.AsyncSink
	metrics    *metrics.Collector
	keep       bool
	logger     *zap.Logger

	applyMu     sync.Mutex
	mu          sync.RWMutex
	snapshot    *models.Snapshot
	settings    models.EngineSettings
	units       map[string]*unit
	bySensor    map[sensorKey][]*unit
	persisted   map[string]models.LightAccumulatorRecord
	speciesRefs map[string]bool
}

type ServiceOpts struct {
	Reading    IReading
	Config     IConfig
	Query      IQuery
	Irrigation IIrrigation
}

func (e *Engine) WithServices(opts ServiceOpts) *Engine {
	if opts.Reading != nil {
		e.Reading = opts.Reading
	}
	if opts.Config != nil {
		e.Config = opts.Config
	}
	if opts.Query != nil {
		e.Query = opts.Query
	}
	if opts.Irrigation != nil {
		e.Irrigation = opts.Irrigation
	}
	return e
}

// New wires the components around database. Persisted accumulator and zone
// rows are loaded here and applied as soon as a snapshot names their entity.
func New(database *db.DB, opts Options) *Engine {
	if opts.Clock == nil {
		opts.Clock = clock.SystemClock{}
	}
	if opts.Dispatcher == nil {
		opts.Dispatcher = events.NewDispatcher()
	}

	e := &Engine{
		Db:          *database,
		store:       db.NewStore(database),
		clock:       opts.Clock,
		dispatcher:  opts.Dispatcher,
		metrics:     opts.Metrics,
		keep:        opts.KeepReadings,
		units:       make(map[string]*unit),
		bySensor:    make(map[sensorKey][]*unit),
		persisted:   make(map[string]models.LightAccumulatorRecord),
		speciesRefs: make(map[string]bool),
		logger:      common.GetCategoryLogger(common.LoggerNamePlantCore, common.LoggerCategoryConfig),
	}

	e.ingestor = ingest.NewIngestor(ingest.Options{Clock: opts.Clock})
	e.ingestor.Subscribe(e.onReading)

	e.scheduler = irrigation.NewScheduler(irrigation.Options{Clock: opts.Clock, Store: e.store})

	if opts.Species != nil {
		e.species = species.NewCache(opts.Species, species.CacheOptions{
			Clock:         opts.Clock,
			OnUpdate:      e.onSpeciesUpdate,
			OnUnavailable: e.onSpeciesUnavailable,
		})
	}

	if opts.Actuator != nil {
		actuator := opts.Actuator
		e.actuations = events.NewAsyncSink(events.SinkFunc{
			SinkName: "actuator",
			Fn: func(ctx context.Context, ev models.Event) error {
				irr, ok := ev.(models.IrrigationEvent)
				if !ok {
					return nil
				}
				err := actuator.Actuate(ctx, irr)
				if err != nil {
					_ = e.scheduler.ReportActuationResult(irr.ZoneID, err)
				}
				return err
			},
		}, opts.QueueSize, e.onDrop)
	}

	recs, err := e.store.LoadAccumulators()
	if err != nil {
		e.logger.Error("Failed to load light accumulators", zap.Error(err))
	}
	for _, r := range recs {
		e.persisted[r.EntityID] = r
	}

	return e
}

func (e *Engine) Dispatcher() *events.Dispatcher {
	return e.dispatcher
}

func (e *Engine) onDrop(sink string) {
	if e.metrics != nil {
		e.metrics.RecordDrop(sink)
	}
}

// emit logs, persists and publishes events in order. IrrigationEvents are
// also queued for actuation.
func (e *Engine) emit(evs []models.Event) {
	if len(evs) == 0 {
		return
	}
	ctx := context.Background()
	for _, ev := range evs {
		if ev.EventType() != models.EventLightSample {
			if err := e.store.AppendEvent(ev); err != nil {
				e.logger.Error("Failed to append event", zap.String("event_type", string(ev.EventType())), zap.Error(err))
			}
		}
		if irr, ok := ev.(models.IrrigationEvent); ok && e.actuations != nil {
			e.actuations.Enqueue(irr)
		}
		if err := e.dispatcher.Publish(ctx, ev); err != nil {
			e.logger.Warn("Event handler failed", zap.String("event_type", string(ev.EventType())), zap.Error(err))
		}
	}
}

// Start begins draining the actuation queue.
func (e *Engine) Start(ctx context.Context) {
	if e.actuations != nil {
		e.actuations.Start(ctx)
	}
}

// Run ticks the engine every interval until ctx ends.
func (e *Engine) Run(ctx context.Context, interval time.Duration) {
	e.Start(ctx)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			e.Tick(e.clock.Now())
		}
	}
}

// Close drains the actuation queue and waits for species lookups.
func (e *Engine) Close() {
	if e.actuations != nil {
		e.actuations.Close()
	}
	if e.species != nil {
		e.species.Wait()
	}
}
