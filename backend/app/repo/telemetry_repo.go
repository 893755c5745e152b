package repo

import (
	"time"

	"device-tracker/backend/app/models"

	"gorm.io/gorm"
)

type TelemetryRepository struct{ db *gorm.DB }

func NewTelemetryRepository(db *gorm.DB) *TelemetryRepository {
	return &TelemetryRepository{db: db}
}

func (r *TelemetryRepository) Create(tx *gorm.DB, e *models.TelemetryEvent) error {
	return tx.Create(e).Error
}

func (r *TelemetryRepository) ExistsByDeviceSeq(tx *gorm.DB, deviceID string, seq uint64) (bool, error) {
	var count int64
	err := tx.Model(&models.TelemetryEvent{}).
		Where("device_id = ? AND seq = ?", deviceID, seq).Count(&count).Error
	return count > 0, err
}

// RecentByDevice returns up to limit events newer than since, most recent
// first. Feeds the known-BSSID window of the alert engine; runs on the
// ingest transaction so rules read a consistent history.
func (r *TelemetryRepository) RecentByDevice(tx *gorm.DB, deviceID string, since time.Time, limit int) ([]models.TelemetryEvent, error) {
	var events []models.TelemetryEvent
	err := tx.Where("device_id = ? AND ts >= ?", deviceID, since).
		Order("ts DESC").Limit(limit).Find(&events).Error
	if err != nil {
		return nil, err
	}
	return events, nil
}

// RangeByDevice returns every event with ts inside [from, to], oldest
// first. Feeds report generation.
func (r *TelemetryRepository) RangeByDevice(deviceID string, from, to time.Time) ([]models.TelemetryEvent, error) {
	var events []models.TelemetryEvent
	err := r.db.Where("device_id = ? AND ts >= ? AND ts <= ?", deviceID, from, to).
		Order("ts ASC, seq ASC").Find(&events).Error
	if err != nil {
		return nil, err
	}
	return events, nil
}
