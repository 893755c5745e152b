package repo

import (
	"time"

	"device-tracker/backend/app/models"

	"gorm.io/gorm"
)

type DeviceRepository struct{ db *gorm.DB }

func NewDeviceRepository(db *gorm.DB) *DeviceRepository { return &DeviceRepository{db: db} }

func (r *DeviceRepository) Create(d *models.Device) error { return r.db.Create(d).Error }

func (r *DeviceRepository) FindByID(id string) (*models.Device, error) {
	var d models.Device
	if err := r.db.First(&d, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &d, nil
}

func (r *DeviceRepository) FindByIDAndOwner(id string, ownerID uint) (*models.Device, error) {
	var d models.Device
	if err := r.db.First(&d, "id = ? AND owner_id = ?", id, ownerID).Error; err != nil {
		return nil, err
	}
	return &d, nil
}

func (r *DeviceRepository) ListByOwner(ownerID uint) ([]models.Device, error) {
	var devices []models.Device
	if err := r.db.Where("owner_id = ?", ownerID).Order("created_at ASC").Find(&devices).Error; err != nil {
		return nil, err
	}
	return devices, nil
}

// UpdateSnapshot overwrites the last-seen projection unconditionally.
// Last write wins; concurrent out-of-order deliveries can transiently
// surface stale-looking values.
func (r *DeviceRepository) UpdateSnapshot(tx *gorm.DB, id string, seenAt time.Time, ip string, asn int, location string) error {
	return tx.Model(&models.Device{}).Where("id = ?", id).Updates(map[string]any{
		"last_seen_at":  seenAt,
		"last_ip":       ip,
		"last_asn":      asn,
		"last_location": location,
	}).Error
}

func (r *DeviceRepository) SetLost(id string, lost bool) error {
	return r.db.Model(&models.Device{}).Where("id = ?", id).Update("lost", lost).Error
}

// ListSilentSince returns non-lost devices whose last-seen timestamp is
// older than the cutoff. Devices that never reported are skipped; they have
// no heartbeat to lose.
func (r *DeviceRepository) ListSilentSince(cutoff time.Time) ([]models.Device, error) {
	var devices []models.Device
	err := r.db.Where("lost = ? AND last_seen_at IS NOT NULL AND last_seen_at < ?", false, cutoff).
		Find(&devices).Error
	if err != nil {
		return nil, err
	}
	return devices, nil
}
