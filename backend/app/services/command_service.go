package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"device-tracker/backend/app/models"
	"device-tracker/backend/app/repo"
	"device-tracker/backend/global"

	"gorm.io/gorm"
)

var (
	// ErrCommandNotFound covers unknown ids and commands owned by another
	// device; the two are indistinguishable to the caller on purpose.
	ErrCommandNotFound = errors.New("command not found")
	// ErrTerminalStatus rejects a second ack of a DONE/FAILED command.
	ErrTerminalStatus = errors.New("command already in a terminal status")
	// ErrBadAckStatus rejects ack statuses outside DONE/FAILED.
	ErrBadAckStatus = errors.New("ack status must be DONE or FAILED")
)

// Lost-mode bundle parameters.
const (
	lostHeartbeatSeconds   = 30
	normalHeartbeatSeconds = 300
	lostChimeRepeat        = 5
)

// DefaultLostMessage is shown on a device marked lost without a custom
// message.
const DefaultLostMessage = "This device has been marked as lost. If found, please contact the owner."

type CommandService struct {
	db       *gorm.DB
	commands *repo.CommandRepository
	Now      func() time.Time
}

func NewCommandService(db *gorm.DB, commands *repo.CommandRepository) *CommandService {
	return &CommandService{db: db, commands: commands, Now: time.Now}
}

// Enqueue queues one operator command for a device.
func (s *CommandService) Enqueue(deviceID, cmdType string, payload json.RawMessage, ttl time.Duration, mustAck bool) (*models.Command, error) {
	switch cmdType {
	case models.CmdShowMessage, models.CmdPlayChime, models.CmdIncreaseHeartbeat, models.CmdLockScreen, models.CmdPing:
	default:
		return nil, fmt.Errorf("unsupported command type %q", cmdType)
	}
	cmd := &models.Command{
		DeviceID: deviceID,
		Type:     cmdType,
		Payload:  string(payload),
		MustAck:  mustAck,
	}
	if ttl > 0 {
		exp := s.Now().Add(ttl).UTC()
		cmd.ExpiresAt = &exp
	}
	if err := s.commands.Create(cmd); err != nil {
		return nil, err
	}
	return cmd, nil
}

// FetchForDevice returns pending unexpired commands, flipping must_ack
// rows to ACKED atomically with the fetch.
func (s *CommandService) FetchForDevice(deviceID string) ([]models.Command, error) {
	return s.commands.FetchPending(deviceID, s.Now().UTC())
}

// Ack records the terminal outcome of a command. Terminal states never
// re-open: the first ack wins and later ones are rejected.
func (s *CommandService) Ack(deviceID, commandID, status, details string) error {
	if status != models.CommandDone && status != models.CommandFailed {
		return ErrBadAckStatus
	}
	n, err := s.commands.AckIfActive(commandID, deviceID, status, details)
	if err != nil {
		return err
	}
	if n == 0 {
		// Nothing written: tell a missing command apart from one that is
		// already terminal.
		if _, err := s.commands.FindByIDAndDevice(commandID, deviceID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrCommandNotFound
			}
			return err
		}
		return ErrTerminalStatus
	}
	global.Logger.Info().Str("command", commandID).Str("device", deviceID).Str("status", status).Msg("command acknowledged")
	return nil
}

// MarkLost flags the device and queues the lost-mode command bundle in
// one atomic operation.
func (s *CommandService) MarkLost(deviceID, message string) error {
	if message == "" {
		message = DefaultLostMessage
	}
	msgPayload, _ := json.Marshal(map[string]string{"title": "Device Lost", "body": message})
	chimePayload, _ := json.Marshal(map[string]int{"repeat": lostChimeRepeat})
	hbPayload, _ := json.Marshal(map[string]int{"seconds": lostHeartbeatSeconds})

	bundle := []*models.Command{
		{DeviceID: deviceID, Type: models.CmdShowMessage, Payload: string(msgPayload), MustAck: true},
		{DeviceID: deviceID, Type: models.CmdPlayChime, Payload: string(chimePayload), MustAck: true},
		{DeviceID: deviceID, Type: models.CmdIncreaseHeartbeat, Payload: string(hbPayload), MustAck: true},
	}
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Device{}).Where("id = ?", deviceID).Update("lost", true).Error; err != nil {
			return err
		}
		for _, cmd := range bundle {
			if err := tx.Create(cmd).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("mark lost: %w", err)
	}
	global.Logger.Info().Str("device", deviceID).Int("commands", len(bundle)).Msg("device marked lost")
	return nil
}

// MarkFound clears the flag and queues a single heartbeat reset.
func (s *CommandService) MarkFound(deviceID string) error {
	hbPayload, _ := json.Marshal(map[string]int{"seconds": normalHeartbeatSeconds})
	cmd := &models.Command{DeviceID: deviceID, Type: models.CmdIncreaseHeartbeat, Payload: string(hbPayload), MustAck: true}
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Device{}).Where("id = ?", deviceID).Update("lost", false).Error; err != nil {
			return err
		}
		return tx.Create(cmd).Error
	})
	if err != nil {
		return fmt.Errorf("mark found: %w", err)
	}
	global.Logger.Info().Str("device", deviceID).Msg("device marked found")
	return nil
}

func (s *CommandService) ListByDevice(deviceID string) ([]models.Command, error) {
	return s.commands.ListByDevice(deviceID)
}
