package influx

import (
	"context"
	"sync"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api/write"
	"go.uber.org/zap"
	"liyu1981.xyz/plant-care-service/pkg/common"
	"liyu1981.xyz/plant-care-service/pkg/models"
)

type Config struct {
	URL           string
	Token         string
	Org           string
	Bucket        string
	BatchSize     uint
	FlushInterval time.Duration
}

// PointWriter is the part of api.WriteAPI the sink uses.
type PointWriter interface {
	WritePoint(point *write.Point)
	Flush()
}

// Open creates a client with an async batching write API.
func Open(cfg Config) (influxdb2.Client, *Sink) {
	opts := influxdb2.DefaultOptions()
	if cfg.BatchSize > 0 {
		opts.SetBatchSize(cfg.BatchSize)
	}
	if cfg.FlushInterval > 0 {
		opts.SetFlushInterval(uint(cfg.FlushInterval.Milliseconds()))
	}
	client := influxdb2.NewClientWithOptions(cfg.URL, cfg.Token, opts)
	writeAPI := client.WriteAPI(cfg.Org, cfg.Bucket)
	sink := NewSink(writeAPI)
	sink.WatchErrors(writeAPI.Errors())
	return client, sink
}

// Sink writes light series, finalised days, state changes and irrigation
// history as points.
type Sink struct {
	writer  PointWriter
	mu      sync.RWMutex
	lastErr time.Time
	logger  *zap.Logger
}

func NewSink(w PointWriter) *Sink {
	return &Sink{
		writer: w,
		logger: common.GetLoggerWith(common.LoggerNameDispatcher,
			zap.String(common.LoggerFieldCategory, common.LoggerCategoryEgress),
			zap.String("sink", "influx"),
		),
	}
}

// WatchErrors records asynchronous write failures until errs is closed.
func (s *Sink) WatchErrors(errs <-chan error) {
	go func() {
		for err := range errs {
			if err == nil {
				continue
			}
			s.mu.Lock()
			s.lastErr = time.Now()
			s.mu.Unlock()
			s.logger.Warn("Influx write error", zap.Error(err))
		}
	}()
}

// LastErrorAt is zero when no write failed yet.
func (s *Sink) LastErrorAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastErr
}

func (s *Sink) Name() string { return "influx" }

func (s *Sink) Deliver(_ context.Context, ev models.Event) error {
	s.writer.WritePoint(EventToPoint(ev))
	return nil
}

func (s *Sink) Flush() {
	s.writer.Flush()
}

// EventToPoint maps an engine event to one point.
func EventToPoint(ev models.Event) *write.Point {
	switch e := ev.(type) {
	case models.LightSample:
		return influxdb2.NewPoint("light",
			map[string]string{"entity_id": e.EntityID},
			map[string]interface{}{"ppfd": e.PPFD, "dli_so_far": e.DLISoFar},
			e.Timestamp)
	case models.DLIFinalized:
		fields := map[string]interface{}{"dli": e.DLI, "weekly_average": e.WeeklyAverage}
		if e.PriorDLI != nil {
			fields["prior_dli"] = *e.PriorDLI
		}
		return influxdb2.NewPoint("dli", map[string]string{"entity_id": e.EntityID}, fields, e.Day)
	case models.StateChanged:
		fields := map[string]interface{}{"old": string(e.Old), "new": string(e.New), "problem": e.New == models.StateProblem}
		if e.Value != nil {
			fields["value"] = *e.Value
		}
		return influxdb2.NewPoint("threshold_state",
			map[string]string{"entity_id": e.EntityID, "check": string(e.Check)},
			fields, e.Timestamp)
	case models.IrrigationEvent:
		return influxdb2.NewPoint("irrigation",
			map[string]string{"zone_id": e.ZoneID, "reason": string(e.Reason)},
			map[string]interface{}{"id": e.ID, "duration_seconds": e.Duration.Seconds()},
			e.Timestamp)
	default:
		return influxdb2.NewPoint("plant_event",
			map[string]string{"event_type": string(ev.EventType()), "entity": ev.Entity()},
			map[string]interface{}{"count": int64(1)},
			ev.At())
	}
}
