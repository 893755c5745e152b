package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// TelemetryEvent is one immutable ingested sample. The (device_id, seq)
// pair is unique so redelivered samples are idempotent no-ops.
type TelemetryEvent struct {
	ID       string    `gorm:"primaryKey;size:36"`
	DeviceID string    `gorm:"size:36;not null;uniqueIndex:idx_device_seq;index:idx_telemetry_device_ts"`
	Seq      uint64    `gorm:"not null;uniqueIndex:idx_device_seq"`
	TS       time.Time `gorm:"not null;index:idx_telemetry_device_ts"`
	Hostname string    `gorm:"size:255"`
	OS       string    `gorm:"size:128"`
	WiFi     string    `gorm:"type:text"` // JSON array of observations
	Battery  *int
	IP       string `gorm:"size:64"`
	ASN      int
	Location string `gorm:"type:text"`
	CreatedAt time.Time
}

func (e *TelemetryEvent) BeforeCreate(tx *gorm.DB) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	return nil
}
