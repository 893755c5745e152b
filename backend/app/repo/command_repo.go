package repo

import (
	"time"

	"device-tracker/backend/app/models"

	"gorm.io/gorm"
)

type CommandRepository struct{ db *gorm.DB }

func NewCommandRepository(db *gorm.DB) *CommandRepository { return &CommandRepository{db: db} }

func (r *CommandRepository) Create(cmds ...*models.Command) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		for _, c := range cmds {
			if err := tx.Create(c).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *CommandRepository) FindByIDAndDevice(id, deviceID string) (*models.Command, error) {
	var c models.Command
	if err := r.db.First(&c, "id = ? AND device_id = ?", id, deviceID).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

// FetchPending returns QUEUED, unexpired commands for a device in creation
// order. Within the same transaction every must_ack command flips to ACKED,
// so a racing second poll cannot fetch it again.
func (r *CommandRepository) FetchPending(deviceID string, now time.Time) ([]models.Command, error) {
	var cmds []models.Command
	err := r.db.Transaction(func(tx *gorm.DB) error {
		q := tx.Where("device_id = ? AND status = ?", deviceID, models.CommandQueued).
			Where("expires_at IS NULL OR expires_at > ?", now).
			Order("created_at ASC, id ASC")
		if err := q.Find(&cmds).Error; err != nil {
			return err
		}
		for i := range cmds {
			if !cmds[i].MustAck {
				continue
			}
			if err := tx.Model(&models.Command{}).Where("id = ?", cmds[i].ID).
				Update("status", models.CommandAcked).Error; err != nil {
				return err
			}
			cmds[i].Status = models.CommandAcked
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return cmds, nil
}

// AckIfActive writes a terminal status in one conditional statement so a
// racing ack cannot overwrite an already terminal command. Zero rows
// affected means the command is unknown, foreign, or already terminal.
func (r *CommandRepository) AckIfActive(id, deviceID, status, details string) (int64, error) {
	res := r.db.Model(&models.Command{}).
		Where("id = ? AND device_id = ? AND status NOT IN ?", id, deviceID,
			[]string{models.CommandDone, models.CommandFailed}).
		Updates(map[string]any{"status": status, "ack_details": details})
	return res.RowsAffected, res.Error
}

func (r *CommandRepository) ListByDevice(deviceID string) ([]models.Command, error) {
	var cmds []models.Command
	if err := r.db.Where("device_id = ?", deviceID).Order("created_at DESC").Find(&cmds).Error; err != nil {
		return nil, err
	}
	return cmds, nil
}

// ListByDeviceBetween returns commands created inside [from, to], oldest
// first. Feeds report generation.
func (r *CommandRepository) ListByDeviceBetween(deviceID string, from, to time.Time) ([]models.Command, error) {
	var cmds []models.Command
	err := r.db.Where("device_id = ? AND created_at >= ? AND created_at <= ?", deviceID, from, to).
		Order("created_at ASC, id ASC").Find(&cmds).Error
	if err != nil {
		return nil, err
	}
	return cmds, nil
}
