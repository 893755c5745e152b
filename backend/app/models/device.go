package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Device is the server-side record of an enrolled agent. Telemetry fields
// (LastSeenAt, LastIP, LastASN, LastLocation) are written only by the
// ingestion updater; Lost only by operator actions.
type Device struct {
	ID           string `gorm:"primaryKey;size:36"`
	OwnerID      uint   `gorm:"index;not null"`
	DisplayName  string `gorm:"size:255;not null"`
	Platform     string `gorm:"size:32"`
	Hostname     string `gorm:"size:255"`
	EnrolledAt   time.Time
	Lost         bool `gorm:"default:false;index"`
	LastSeenAt   *time.Time `gorm:"index"`
	LastIP       string     `gorm:"size:64"`
	LastASN      int
	LastLocation string `gorm:"type:text"` // JSON location descriptor
	Meta         string `gorm:"type:text"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (d *Device) BeforeCreate(tx *gorm.DB) error {
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	if d.EnrolledAt.IsZero() {
		d.EnrolledAt = time.Now().UTC()
	}
	return nil
}
