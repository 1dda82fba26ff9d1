package db

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm/clause"
	"liyu1981.xyz/plant-care-service/pkg/models"
)

// Store is the repository the engine persists its wall clock state through.
type Store struct {
	db *DB
}

func NewStore(db *DB) *Store {
	return &Store{db: db}
}

func (s *Store) SaveReading(r models.SensorReading) error {
	return s.db.Conn.Create(&models.Reading{
		SensorID:  r.SensorID,
		Kind:      string(r.Kind),
		Value:     r.Value,
		Unit:      r.Unit,
		Timestamp: r.Timestamp,
	}).Error
}

func (s *Store) Readings(sensorID string, limit int) ([]models.Reading, error) {
	var readings []models.Reading
	err := s.db.Conn.
		Where("sensor_id = ?", sensorID).
		Order("timestamp desc").
		Limit(limit).
		Find(&readings).Error
	return readings, err
}

func (s *Store) SaveAccumulator(rec models.LightAccumulatorRecord) error {
	return s.db.Conn.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "entity_id"}},
		UpdateAll: true,
	}).Create(&rec).Error
}

func (s *Store) LoadAccumulators() ([]models.LightAccumulatorRecord, error) {
	var recs []models.LightAccumulatorRecord
	err := s.db.Conn.Find(&recs).Error
	return recs, err
}

func (s *Store) SaveZoneState(rec models.ZoneStateRecord) error {
	return s.db.Conn.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "zone_id"}},
		UpdateAll: true,
	}).Create(&rec).Error
}

func (s *Store) LoadZoneStates() ([]models.ZoneStateRecord, error) {
	var recs []models.ZoneStateRecord
	err := s.db.Conn.Find(&recs).Error
	return recs, err
}

// AppendEvent writes an event to the durable log.
func (s *Store) AppendEvent(ev models.Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encode %s event: %w", ev.EventType(), err)
	}
	rec := models.EventRecord{
		ID:        uuid.NewString(),
		EntityID:  ev.Entity(),
		Type:      ev.EventType(),
		Payload:   string(payload),
		Timestamp: ev.At(),
	}
	switch e := ev.(type) {
	case models.StateChanged:
		rec.Check = string(e.Check)
		rec.OldState = string(e.Old)
		rec.NewState = string(e.New)
		rec.Message = e.Reason
	case models.IrrigationEvent:
		rec.ID = e.ID
		rec.Message = string(e.Reason)
	case models.DLIFinalized:
		rec.Message = fmt.Sprintf("dli %.3f", e.DLI)
	case models.LookupUnavailable:
		rec.Message = e.Error
	}
	return s.db.Conn.Create(&rec).Error
}

// Events returns the newest events of an entity first. An empty type matches all.
func (s *Store) Events(entityID string, eventType models.EventType, limit int) ([]models.EventRecord, error) {
	var recs []models.EventRecord
	q := s.db.Conn.Where("entity_id = ?", entityID)
	if eventType != "" {
		q = q.Where("type = ?", eventType)
	}
	err := q.Order("timestamp desc").Limit(limit).Find(&recs).Error
	return recs, err
}

func (s *Store) SaveSnapshot(snap models.Snapshot, at time.Time) error {
	body, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	return s.db.Conn.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		UpdateAll: true,
	}).Create(&models.ConfigRecord{ID: 1, Version: snap.Version, Body: string(body), AppliedAt: at}).Error
}

// LoadSnapshot returns nil when nothing was ever applied.
func (s *Store) LoadSnapshot() (*models.Snapshot, error) {
	var rec models.ConfigRecord
	res := s.db.Conn.Limit(1).Find(&rec, 1)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, nil
	}
	var snap models.Snapshot
	if err := json.Unmarshal([]byte(rec.Body), &snap); err != nil {
		return nil, err
	}
	return &snap, nil
}
