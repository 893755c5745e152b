package db

import "time"

// QueueEntry is one undelivered telemetry sample. Data holds the serialized
// sample as opaque JSON; the queue never inspects it beyond decode checks.
type QueueEntry struct {
	ID        uint   `gorm:"primaryKey"`
	Data      string `gorm:"type:text;not null"`
	CreatedAt time.Time
	Retries   int `gorm:"default:0"`
}

// SequenceState is the persisted monotonic sample counter, a single row.
type SequenceState struct {
	ID    uint `gorm:"primaryKey"`
	Value uint64
}

// Credential stores the enrollment result so the agent survives restarts
// without re-enrolling.
type Credential struct {
	ID        uint   `gorm:"primaryKey"`
	DeviceID  string `gorm:"size:191"`
	Token     string `gorm:"size:8192"`
	CreatedAt time.Time
}
