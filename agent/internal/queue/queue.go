package queue

import (
	"encoding/json"
	"errors"
	"fmt"

	"device-tracker/agent/internal/db"
	"device-tracker/agent/internal/logger"

	"gorm.io/gorm"
)

// ErrEmpty is returned by Dequeue and Peek when no entries are pending.
var ErrEmpty = errors.New("queue empty")

// Item is a pending telemetry payload together with its delivery history.
type Item struct {
	Data    json.RawMessage
	Retries int
}

// Queue is the durable offline buffer for telemetry samples. Entries are
// returned oldest-first by creation order; requeued entries go to the tail
// so a stuck item cannot wedge newer data behind it.
type Queue struct {
	db *gorm.DB
}

func New(gdb *gorm.DB) *Queue { return &Queue{db: gdb} }

func (q *Queue) Enqueue(data json.RawMessage) error {
	entry := db.QueueEntry{Data: string(data)}
	if err := q.db.Create(&entry).Error; err != nil {
		return fmt.Errorf("enqueue: %w", err)
	}
	return nil
}

// Requeue re-appends an item carrying forward its retry count. The item
// lands at the tail: strict temporal order is traded for not losing data.
func (q *Queue) Requeue(data json.RawMessage, retries int) error {
	entry := db.QueueEntry{Data: string(data), Retries: retries}
	if err := q.db.Create(&entry).Error; err != nil {
		return fmt.Errorf("requeue: %w", err)
	}
	return nil
}

// Dequeue removes and returns the oldest entry. Entries whose stored payload
// no longer parses are deleted with a warning and skipped.
func (q *Queue) Dequeue() (*Item, error) {
	for {
		var entry db.QueueEntry
		err := q.db.Transaction(func(tx *gorm.DB) error {
			if err := tx.Order("created_at ASC, id ASC").First(&entry).Error; err != nil {
				return err
			}
			return tx.Delete(&db.QueueEntry{}, entry.ID).Error
		})
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrEmpty
		}
		if err != nil {
			return nil, fmt.Errorf("dequeue: %w", err)
		}
		if !json.Valid([]byte(entry.Data)) {
			logger.Warnf("Dropping corrupted queue entry id=%d", entry.ID)
			continue
		}
		return &Item{Data: json.RawMessage(entry.Data), Retries: entry.Retries}, nil
	}
}

// Peek returns the oldest entry without removing it.
func (q *Queue) Peek() (*Item, error) {
	var entry db.QueueEntry
	err := q.db.Order("created_at ASC, id ASC").First(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrEmpty
	}
	if err != nil {
		return nil, fmt.Errorf("peek: %w", err)
	}
	if !json.Valid([]byte(entry.Data)) {
		return nil, fmt.Errorf("peek: corrupted entry id=%d", entry.ID)
	}
	return &Item{Data: json.RawMessage(entry.Data), Retries: entry.Retries}, nil
}

func (q *Queue) Size() (int64, error) {
	var n int64
	if err := q.db.Model(&db.QueueEntry{}).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("queue size: %w", err)
	}
	return n, nil
}

// Failed returns entries at or past the retry ceiling. It never removes
// anything; eviction is a deliberate caller decision.
func (q *Queue) Failed(maxRetries int) ([]Item, error) {
	var entries []db.QueueEntry
	if err := q.db.Where("retries >= ?", maxRetries).Order("created_at ASC, id ASC").Find(&entries).Error; err != nil {
		return nil, fmt.Errorf("list failed entries: %w", err)
	}
	items := make([]Item, 0, len(entries))
	for _, e := range entries {
		if !json.Valid([]byte(e.Data)) {
			continue
		}
		items = append(items, Item{Data: json.RawMessage(e.Data), Retries: e.Retries})
	}
	return items, nil
}

// Evict deletes entries at or past the retry ceiling and reports how many.
func (q *Queue) Evict(maxRetries int) (int64, error) {
	res := q.db.Where("retries >= ?", maxRetries).Delete(&db.QueueEntry{})
	if res.Error != nil {
		return 0, fmt.Errorf("evict: %w", res.Error)
	}
	return res.RowsAffected, nil
}

func (q *Queue) Clear() error {
	if err := q.db.Where("1 = 1").Delete(&db.QueueEntry{}).Error; err != nil {
		return fmt.Errorf("clear queue: %w", err)
	}
	logger.Warn("Local queue cleared")
	return nil
}
