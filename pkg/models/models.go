package models

import "time"

type MetricKind string

const (
	MetricIlluminance  MetricKind = "illuminance"
	MetricMoisture     MetricKind = "moisture"
	MetricTemperature  MetricKind = "temperature"
	MetricHumidity     MetricKind = "humidity"
	MetricConductivity MetricKind = "conductivity"
	MetricBattery      MetricKind = "battery"
)

var MetricKinds = []MetricKind{
	MetricIlluminance,
	MetricMoisture,
	MetricTemperature,
	MetricHumidity,
	MetricConductivity,
	MetricBattery,
}

func (k MetricKind) Valid() bool {
	for _, m := range MetricKinds {
		if m == k {
			return true
		}
	}
	return false
}

// SensorReading is immutable once created; a newer reading for the same sensor
// supersedes it.
type SensorReading struct {
	SensorID  string
	Kind      MetricKind
	Value     float64
	Unit      string
	Timestamp time.Time
	Valid     bool
}

func Float(v float64) *float64 { return &v }

// Reading is the persisted form of an accepted reading.
type Reading struct {
	ID        uint   `gorm:"primaryKey"`
	SensorID  string `gorm:"index"`
	Kind      string `gorm:"type:varchar(20)"`
	Value     float64
	Unit      string    `gorm:"type:varchar(16)"`
	Timestamp time.Time `gorm:"index"`
}

// LightAccumulatorRecord persists the rolling window of one entity so the
// day boundary can be reconstructed after a restart.
type LightAccumulatorRecord struct {
	EntityID      string `gorm:"primaryKey"`
	DayStart      time.Time
	Accumulated   float64
	HasData       bool
	LastSampleAt  time.Time
	IntegratedTo  time.Time
	LastPPFD      float64
	LastDLI       *float64
	WeeklyAverage *float64
	Ring          string `gorm:"type:text"` // JSON encoded []DayTotal
	UpdatedAt     time.Time
}

// ZoneStateRecord persists the wall-clock state of an irrigation zone.
type ZoneStateRecord struct {
	ZoneID           string `gorm:"primaryKey"`
	LastFiredAt      time.Time
	LastSlotAt       time.Time
	ErrorCount       int
	LastError        string
	LastFertilisedAt *time.Time
	UpdatedAt        time.Time
}

// EventRecord is the durable log of everything the engine emitted.
type EventRecord struct {
	ID        string    `gorm:"primaryKey;type:varchar(36)"`
	EntityID  string    `gorm:"index"`
	Type      EventType `gorm:"type:varchar(32);index"`
	Check     string    `gorm:"type:varchar(32)"`
	OldState  string    `gorm:"type:varchar(16)"`
	NewState  string    `gorm:"type:varchar(16)"`
	Message   string
	Payload   string    `gorm:"type:text"`
	Timestamp time.Time `gorm:"index"`
}

// ConfigRecord keeps the last applied snapshot so queries survive a restart.
type ConfigRecord struct {
	ID        uint   `gorm:"primaryKey"`
	Version   string `gorm:"type:varchar(64)"`
	Body      string `gorm:"type:text"`
	AppliedAt time.Time
}
