package engine

import (
	"go.uber.org/zap"
	"liyu1981.xyz/plant-care-service/pkg/models"
)

func (e *Engine) unitsFor(sensorID string, kind models.MetricKind) []*unit {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.bySensor[sensorKey{sensorID: sensorID, kind: kind}]
}

// observe feeds one accepted reading to a unit and returns what it produced.
func (e *Engine) observe(u *unit, r models.SensorReading) []models.Event {
	u.mu.Lock()
	defer u.mu.Unlock()

	var out []models.Event
	if r.Kind == models.MetricIlluminance && u.acc != nil {
		for _, ev := range u.acc.Observe(r) {
			out = append(out, ev)
			if f, ok := ev.(models.DLIFinalized); ok {
				for _, sc := range u.eval.ObserveDLI(f) {
					out = append(out, sc)
				}
			}
		}
		out = append(out, models.LightSample{
			EntityID:  u.id,
			PPFD:      u.acc.LastPPFD(),
			DLISoFar:  u.acc.Current(),
			Timestamp: r.Timestamp,
		})
		e.persistAccumulator(u)
	}
	for _, sc := range u.eval.Observe(r) {
		out = append(out, sc)
	}
	return out
}

// persistAccumulator is called with u.mu held.
func (e *Engine) persistAccumulator(u *unit) {
	rec, err := u.accumulatorRecord(e.clock.Now())
	if err == nil {
		err = e.store.SaveAccumulator(rec)
	}
	if err != nil {
		e.logger.Error("Failed to persist light accumulator", zap.String("entity_id", u.id), zap.Error(err))
	}
}

// withIrrigation appends what the scheduler fires in response to state changes.
func (e *Engine) withIrrigation(evs []models.Event) []models.Event {
	out := evs
	for _, ev := range evs {
		if sc, ok := ev.(models.StateChanged); ok {
			out = append(out, e.scheduler.OnStateChanged(sc)...)
		}
	}
	return out
}

// onReading runs for every accepted reading, in order per sensor.
func (e *Engine) onReading(r models.SensorReading) {
	if e.keep {
		if err := e.store.SaveReading(r); err != nil {
			e.logger.Error("Failed to store reading", zap.String("sensor_id", r.SensorID), zap.Error(err))
		}
	}

	var evs []models.Event
	for _, u := range e.unitsFor(r.SensorID, r.Kind) {
		evs = append(evs, e.observe(u, r)...)
	}
	e.emit(e.withIrrigation(evs))
}

func (e *Engine) ingestReading(r models.SensorReading) (models.SensorReading, error) {
	res := e.ingestor.Ingest(r)
	if e.metrics != nil {
		e.metrics.RecordReading(r.Kind, res.Accepted)
	}
	return res.Reading, res.Err
}

type IReadingImpl struct {
	engine *Engine
}

func (ir *IReadingImpl) IngestReading(r models.SensorReading) (models.SensorReading, error) {
	return ir.engine.ingestReading(r)
}

func (ir *IReadingImpl) SetSensorAvailability(sensorID string, available bool) {
	ir.engine.ingestor.MarkUnavailable(sensorID, !available)
}

func (e *Engine) GetIReading() IReading {
	return &IReadingImpl{engine: e}
}
