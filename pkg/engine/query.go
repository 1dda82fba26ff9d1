package engine

import (
	"fmt"
	"time"

	"liyu1981.xyz/plant-care-service/pkg/common"
	"liyu1981.xyz/plant-care-service/pkg/light"
	"liyu1981.xyz/plant-care-service/pkg/models"
)

const DefaultEventLimit = 100

// LightStatus is the light view of one entity.
type LightStatus struct {
	EntityID      string           `json:"entity_id"`
	DayStart      time.Time        `json:"day_start"`
	DLISoFar      float64          `json:"dli_so_far"`
	PPFD          float64          `json:"ppfd"`
	PriorDLI      *float64         `json:"prior_dli,omitempty"`
	WeeklyAverage *float64         `json:"weekly_average,omitempty"`
	Days          []light.DayTotal `json:"days"`
}

func (e *Engine) unit(entityID string) (*unit, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	u, ok := e.units[entityID]
	if !ok {
		return nil, fmt.Errorf("entity %s: %w", entityID, common.ErrNotFound)
	}
	return u, nil
}

func (e *Engine) entityStates(entityID string) ([]models.ThresholdState, error) {
	u, err := e.unit(entityID)
	if err != nil {
		return nil, err
	}
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.eval.States(), nil
}

func (e *Engine) entityLight(entityID string) (LightStatus, error) {
	u, err := e.unit(entityID)
	if err != nil {
		return LightStatus{}, err
	}
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.acc == nil {
		return LightStatus{}, fmt.Errorf("entity %s has no light sensor: %w", entityID, common.ErrNotFound)
	}
	st := LightStatus{
		EntityID: entityID,
		DayStart: u.acc.DayStart(),
		DLISoFar: u.acc.Current(),
		PPFD:     u.acc.LastPPFD(),
		Days:     u.acc.Ring(),
	}
	if v, ok := u.acc.Prior(); ok {
		st.PriorDLI = models.Float(v)
	}
	if v, ok := u.acc.WeeklyAverage(); ok {
		st.WeeklyAverage = models.Float(v)
	}
	return st, nil
}

func (e *Engine) entityEvents(entityID string, eventType models.EventType, limit int) ([]models.EventRecord, error) {
	if limit <= 0 {
		limit = DefaultEventLimit
	}
	return e.store.Events(entityID, eventType, limit)
}

func (e *Engine) ignoreCheck(entityID string, check models.Check, until time.Time) error {
	u, err := e.unit(entityID)
	if err != nil {
		return err
	}
	u.mu.Lock()
	changed, err := u.eval.Ignore(check, until, e.clock.Now())
	u.mu.Unlock()
	if err != nil {
		return err
	}
	e.emit(common.Mapper(changed, func(sc models.StateChanged) models.Event { return sc }))
	return nil
}

type IQueryImpl struct {
	engine *Engine
}

func (iq *IQueryImpl) EntityStates(entityID string) ([]models.ThresholdState, error) {
	return iq.engine.entityStates(entityID)
}

func (iq *IQueryImpl) EntityLight(entityID string) (LightStatus, error) {
	return iq.engine.entityLight(entityID)
}

func (iq *IQueryImpl) EntityEvents(entityID string, eventType models.EventType, limit int) ([]models.EventRecord, error) {
	return iq.engine.entityEvents(entityID, eventType, limit)
}

func (iq *IQueryImpl) IgnoreCheck(entityID string, check models.Check, until time.Time) error {
	return iq.engine.ignoreCheck(entityID, check, until)
}

func (e *Engine) GetIQuery() IQuery {
	return &IQueryImpl{engine: e}
}
