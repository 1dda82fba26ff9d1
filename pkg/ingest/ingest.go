package ingest

import (
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
	"liyu1981.xyz/plant-care-service/pkg/clock"
	"liyu1981.xyz/plant-care-service/pkg/common"
	"liyu1981.xyz/plant-care-service/pkg/models"
)

// Subscriber receives every accepted reading. Calls for one metric stream of a
// sensor are serialised in receipt order; other streams may be delivered concurrently.
type Subscriber func(models.SensorReading)

type Result struct {
	Reading  models.SensorReading
	Accepted bool
	Err      error
}

type Options struct {
	StaleAfter time.Duration
	Ranges     map[models.MetricKind]models.Bound
	Clock      clock.Clock
}

// streamKey identifies one metric stream. A device reporting several
// metrics under one sensor id has one stream per metric.
type streamKey struct {
	sensorID string
	kind     models.MetricKind
}

type sensorState struct {
	mu            sync.Mutex
	lastAccepted  time.Time
	lastSeen      time.Time
	staleReported bool
}

type Ingestor struct {
	mu          sync.RWMutex
	sensors     map[streamKey]*sensorState
	unavailable map[string]bool
	subscribers []Subscriber
	staleAfter  time.Duration
	ranges      map[models.MetricKind]models.Bound
	clock       clock.Clock
	logger      *zap.Logger
}

func NewIngestor(opts Options) *Ingestor {
	in := &Ingestor{
		sensors:     make(map[streamKey]*sensorState),
		unavailable: make(map[string]bool),
		clock:       opts.Clock,
		logger:      common.GetCategoryLogger(common.LoggerNamePlantCore, common.LoggerCategoryIngest),
	}
	if in.clock == nil {
		in.clock = clock.SystemClock{}
	}
	in.Configure(opts.StaleAfter, opts.Ranges)
	return in
}

// Configure swaps the staleness timeout and range table; unset ranges keep their defaults.
func (in *Ingestor) Configure(staleAfter time.Duration, ranges map[models.MetricKind]models.Bound) {
	merged := DefaultRanges()
	for kind, r := range ranges {
		def := merged[kind]
		if r.Min != nil {
			def.Min = r.Min
		}
		if r.Max != nil {
			def.Max = r.Max
		}
		merged[kind] = def
	}

	in.mu.Lock()
	defer in.mu.Unlock()
	in.staleAfter = staleAfter
	in.ranges = merged
}

func (in *Ingestor) Subscribe(s Subscriber) {
	in.mu.Lock()
	defer in.mu.Unlock()
	in.subscribers = append(in.subscribers, s)
}

func (in *Ingestor) stream(key streamKey) *sensorState {
	in.mu.RLock()
	s, ok := in.sensors[key]
	in.mu.RUnlock()
	if ok {
		return s
	}

	in.mu.Lock()
	defer in.mu.Unlock()
	if s, ok = in.sensors[key]; !ok {
		s = &sensorState{}
		in.sensors[key] = s
	}
	return s
}

// Register makes a configured metric stream known so it can go stale even if
// it never reports.
func (in *Ingestor) Register(sensorID string, kind models.MetricKind) {
	s := in.stream(streamKey{sensorID, kind})
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lastSeen.IsZero() {
		s.lastSeen = in.clock.Now()
	}
}

// MarkUnavailable toggles the availability flag coming from device discovery.
// It covers every metric the device reports.
func (in *Ingestor) MarkUnavailable(sensorID string, unavailable bool) {
	in.mu.Lock()
	defer in.mu.Unlock()
	if unavailable {
		in.unavailable[sensorID] = true
	} else {
		delete(in.unavailable, sensorID)
	}
}

func (in *Ingestor) validate(r models.SensorReading) (models.SensorReading, error) {
	if r.SensorID == "" {
		return r, fmt.Errorf("%w: empty sensor id", common.ErrInvalidReading)
	}
	if !r.Kind.Valid() {
		return r, fmt.Errorf("%w: unknown metric %q", common.ErrInvalidReading, r.Kind)
	}
	if !r.Valid {
		return r, fmt.Errorf("%w: flagged invalid by the device", common.ErrInvalidReading)
	}
	if r.Timestamp.IsZero() {
		return r, fmt.Errorf("%w: missing timestamp", common.ErrInvalidReading)
	}
	if math.IsNaN(r.Value) || math.IsInf(r.Value, 0) {
		return r, fmt.Errorf("%w: value is not a finite number", common.ErrInvalidReading)
	}

	value, err := Normalize(r.Kind, r.Value, r.Unit)
	if err != nil {
		return r, fmt.Errorf("%w: %v", common.ErrInvalidReading, err)
	}

	in.mu.RLock()
	rng := in.ranges[r.Kind]
	in.mu.RUnlock()
	if (rng.Min != nil && value < *rng.Min) || (rng.Max != nil && value > *rng.Max) {
		return r, fmt.Errorf("%w: %s %.2f outside physical range", common.ErrInvalidReading, r.Kind, value)
	}

	r.Value = value
	r.Unit = CanonicalUnit(r.Kind)
	return r, nil
}

// Ingest validates and normalises r and, when accepted, publishes it to every
// subscriber exactly once before returning. Rejections never touch state.
func (in *Ingestor) Ingest(r models.SensorReading) Result {
	normalised, err := in.validate(r)
	if err != nil {
		in.logger.Debug("Reading rejected", zap.String("sensor_id", r.SensorID), zap.Error(err))
		return Result{Reading: r, Err: err}
	}

	in.mu.RLock()
	unavailable := in.unavailable[r.SensorID]
	in.mu.RUnlock()
	if unavailable {
		err = fmt.Errorf("%w: sensor %s marked unavailable", common.ErrInvalidReading, r.SensorID)
		in.logger.Debug("Reading rejected", zap.String("sensor_id", r.SensorID), zap.Error(err))
		return Result{Reading: r, Err: err}
	}

	s := in.stream(streamKey{normalised.SensorID, normalised.Kind})
	s.mu.Lock()
	defer s.mu.Unlock()

	// a repeat of the last timestamp is a redelivered sample and is dropped
	if !s.lastAccepted.IsZero() && !normalised.Timestamp.After(s.lastAccepted) {
		err = fmt.Errorf("%w: timestamp %s not after %s", common.ErrInvalidReading,
			normalised.Timestamp.Format(time.RFC3339), s.lastAccepted.Format(time.RFC3339))
		in.logger.Debug("Reading rejected", zap.String("sensor_id", r.SensorID), zap.Error(err))
		return Result{Reading: r, Err: err}
	}

	s.lastAccepted = normalised.Timestamp
	s.lastSeen = normalised.Timestamp
	s.staleReported = false

	in.mu.RLock()
	subscribers := in.subscribers
	in.mu.RUnlock()
	for _, sub := range subscribers {
		sub(normalised)
	}

	return Result{Reading: normalised, Accepted: true}
}

// SweepStale reports every sensor silent for longer than the staleness
// timeout. Each silence is reported once; the next accepted reading re-arms it.
func (in *Ingestor) SweepStale(now time.Time) []models.SensorStale {
	in.mu.RLock()
	staleAfter := in.staleAfter
	keys := make([]streamKey, 0, len(in.sensors))
	states := make([]*sensorState, 0, len(in.sensors))
	for key, s := range in.sensors {
		keys = append(keys, key)
		states = append(states, s)
	}
	in.mu.RUnlock()

	if staleAfter <= 0 {
		return nil
	}

	var out []models.SensorStale
	for i, s := range states {
		s.mu.Lock()
		if !s.staleReported && !s.lastSeen.IsZero() && now.Sub(s.lastSeen) > staleAfter {
			s.staleReported = true
			out = append(out, models.SensorStale{SensorID: keys[i].sensorID, Kind: keys[i].kind, LastSeen: s.lastSeen, Timestamp: now})
		}
		s.mu.Unlock()
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].SensorID != out[j].SensorID {
			return out[i].SensorID < out[j].SensorID
		}
		return out[i].Kind < out[j].Kind
	})
	for _, ev := range out {
		in.logger.Warn("Sensor stale", zap.String("sensor_id", ev.SensorID), zap.String("metric", string(ev.Kind)), zap.Time("last_seen", ev.LastSeen))
	}
	return out
}
