package repo

import (
	"time"

	"device-tracker/backend/app/models"

	"gorm.io/gorm"
)

type AlertRepository struct{ db *gorm.DB }

func NewAlertRepository(db *gorm.DB) *AlertRepository { return &AlertRepository{db: db} }

func (r *AlertRepository) Create(tx *gorm.DB, a *models.Alert) error {
	return tx.Create(a).Error
}

func (r *AlertRepository) FindByID(id string) (*models.Alert, error) {
	var a models.Alert
	if err := r.db.First(&a, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &a, nil
}

// HasUnresolved reports whether the device has an open alert of the given
// type. Backs the one-unresolved-NO_HEARTBEAT invariant.
func (r *AlertRepository) HasUnresolved(deviceID, alertType string) (bool, error) {
	var count int64
	err := r.db.Model(&models.Alert{}).
		Where("device_id = ? AND type = ? AND resolved_at IS NULL", deviceID, alertType).
		Count(&count).Error
	return count > 0, err
}

func (r *AlertRepository) ListByDevice(deviceID string, unresolvedOnly bool) ([]models.Alert, error) {
	q := r.db.Where("device_id = ?", deviceID)
	if unresolvedOnly {
		q = q.Where("resolved_at IS NULL")
	}
	var alerts []models.Alert
	if err := q.Order("created_at DESC").Find(&alerts).Error; err != nil {
		return nil, err
	}
	return alerts, nil
}

func (r *AlertRepository) Resolve(id string, at time.Time) error {
	return r.db.Model(&models.Alert{}).
		Where("id = ? AND resolved_at IS NULL", id).
		Update("resolved_at", at).Error
}
