package services

import (
	"device-tracker/backend/app/models"
	"device-tracker/backend/app/repo"
)

type DeviceService struct{ devices *repo.DeviceRepository }

func NewDeviceService(devices *repo.DeviceRepository) *DeviceService {
	return &DeviceService{devices: devices}
}

// Enroll registers a new device under an owner and returns it with its
// generated id.
func (s *DeviceService) Enroll(ownerID uint, displayName, platform, hostname string) (*models.Device, error) {
	d := &models.Device{
		OwnerID:     ownerID,
		DisplayName: displayName,
		Platform:    platform,
		Hostname:    hostname,
	}
	if err := s.devices.Create(d); err != nil {
		return nil, err
	}
	return d, nil
}

func (s *DeviceService) Get(id string) (*models.Device, error) {
	return s.devices.FindByID(id)
}

func (s *DeviceService) GetOwned(id string, ownerID uint) (*models.Device, error) {
	return s.devices.FindByIDAndOwner(id, ownerID)
}

func (s *DeviceService) ListByOwner(ownerID uint) ([]models.Device, error) {
	return s.devices.ListByOwner(ownerID)
}
