package monitor

import (
	"fmt"

	"device-tracker/agent/internal/db"
	"device-tracker/agent/internal/logger"

	"gorm.io/gorm"
)

// Sequence is the persisted per-device monotonic sample counter. A missing
// or unreadable stored value starts the counter at 0 and logs; it is never
// fatal. Every increment is written back before the value is used.
type Sequence struct {
	db    *gorm.DB
	value uint64
}

func LoadSequence(gdb *gorm.DB) *Sequence {
	s := &Sequence{db: gdb}
	var row db.SequenceState
	if err := gdb.First(&row, 1).Error; err != nil {
		logger.Warnf("No stored sequence, starting at 0: %v", err)
		return s
	}
	s.value = row.Value
	return s
}

// Next increments the counter, persists it, and returns the new value.
func (s *Sequence) Next() (uint64, error) {
	next := s.value + 1
	row := db.SequenceState{ID: 1, Value: next}
	if err := s.db.Save(&row).Error; err != nil {
		return 0, fmt.Errorf("persist sequence: %w", err)
	}
	s.value = next
	return next, nil
}

func (s *Sequence) Current() uint64 { return s.value }
