package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Command status machine: QUEUED -> ACKED -> {DONE, FAILED}. Transitions
// are one-directional; DONE and FAILED are terminal.
const (
	CommandQueued = "QUEUED"
	CommandAcked  = "ACKED"
	CommandDone   = "DONE"
	CommandFailed = "FAILED"
)

// Command types mirror the agent's closed set.
const (
	CmdShowMessage       = "show_message"
	CmdPlayChime         = "play_chime"
	CmdIncreaseHeartbeat = "increase_heartbeat"
	CmdLockScreen        = "lock_screen"
	CmdPing              = "ping"
)

type Command struct {
	ID         string `gorm:"primaryKey;size:36"`
	DeviceID   string `gorm:"size:36;not null;index"`
	Type       string `gorm:"size:32;not null"`
	Payload    string `gorm:"type:text"` // JSON argument
	Status     string `gorm:"size:16;not null;default:QUEUED;index"`
	AckDetails string `gorm:"size:512"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
	ExpiresAt  *time.Time
	// MustAck commands flip to ACKED on fetch so a racing second poll
	// cannot see them again before the agent reports an outcome.
	MustAck bool `gorm:"default:true"`
}

func (c *Command) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.Status == "" {
		c.Status = CommandQueued
	}
	return nil
}
