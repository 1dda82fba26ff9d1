package engine

import (
	"errors"
	"time"

	"liyu1981.xyz/plant-care-service/pkg/irrigation"
)

type IIrrigationImpl struct {
	engine *Engine
}

func (ii *IIrrigationImpl) Zone(zoneID string) (irrigation.ZoneStatus, error) {
	return ii.engine.scheduler.Zone(zoneID)
}

func (ii *IIrrigationImpl) Zones() []irrigation.ZoneStatus {
	return ii.engine.scheduler.Zones()
}

// ReportActuationResult records the outcome of an actuation that completed
// outside the engine. An empty message is a success.
func (ii *IIrrigationImpl) ReportActuationResult(zoneID string, errMsg string) error {
	var actuationErr error
	if errMsg != "" {
		actuationErr = errors.New(errMsg)
	}
	return ii.engine.scheduler.ReportActuationResult(zoneID, actuationErr)
}

func (ii *IIrrigationImpl) ResetZoneErrors(zoneID string) error {
	return ii.engine.scheduler.ResetErrorCount(zoneID)
}

func (ii *IIrrigationImpl) RecordFertilised(zoneID string, at time.Time) error {
	if at.IsZero() {
		at = ii.engine.clock.Now()
	}
	return ii.engine.scheduler.RecordFertilised(zoneID, at)
}

func (ii *IIrrigationImpl) FertiliserDue(zoneID string) (bool, error) {
	return ii.engine.scheduler.FertiliserDue(zoneID, ii.engine.clock.Now())
}

func (e *Engine) GetIIrrigation() IIrrigation {
	return &IIrrigationImpl{engine: e}
}
