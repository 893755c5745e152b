package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	AlertNoHeartbeat = "NO_HEARTBEAT"
	AlertNewIP       = "NEW_IP"
	AlertNewWiFi     = "NEW_WIFI"
)

const (
	SeverityInfo     = "info"
	SeverityWarning  = "warning"
	SeverityCritical = "critical"
)

type Alert struct {
	ID         string `gorm:"primaryKey;size:36"`
	DeviceID   string `gorm:"size:36;not null;index"`
	Type       string `gorm:"size:32;not null;index"`
	Severity   string `gorm:"size:16;not null"`
	Details    string `gorm:"type:text"` // JSON blob
	CreatedAt  time.Time
	ResolvedAt *time.Time `gorm:"index"`
}

func (a *Alert) BeforeCreate(tx *gorm.DB) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	return nil
}
