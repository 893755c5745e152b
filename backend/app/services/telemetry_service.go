package services

import (
	"context"
	"encoding/json"
	"fmt"

	"device-tracker/backend/app/dto"
	"device-tracker/backend/app/ipgeo"
	"device-tracker/backend/app/models"
	"device-tracker/backend/app/repo"
	"device-tracker/backend/global"

	"gorm.io/gorm"
)

// maxWiFiPerSample caps stored observations per sample.
const maxWiFiPerSample = 10

// TelemetryService ingests samples: geo-resolve the origin, persist the
// immutable event, project the device snapshot, evaluate alerts. One
// transaction per sample.
type TelemetryService struct {
	db        *gorm.DB
	telemetry *repo.TelemetryRepository
	devices   *repo.DeviceRepository
	alerts    *AlertService
	geo       *ipgeo.Service
}

func NewTelemetryService(db *gorm.DB, telemetry *repo.TelemetryRepository, devices *repo.DeviceRepository, alerts *AlertService, geo *ipgeo.Service) *TelemetryService {
	return &TelemetryService{db: db, telemetry: telemetry, devices: devices, alerts: alerts, geo: geo}
}

// Ingest is idempotent per (device, seq): a redelivered sample is accepted
// and dropped without re-running alerts or moving the snapshot.
func (s *TelemetryService) Ingest(ctx context.Context, deviceID, clientIP string, sample dto.TelemetrySample) error {
	device, err := s.devices.FindByID(deviceID)
	if err != nil {
		return fmt.Errorf("ingest: %w", err)
	}

	if len(sample.WiFi) > maxWiFiPerSample {
		sample.WiFi = sample.WiFi[:maxWiFiPerSample]
	}

	// Network lookup stays outside the transaction.
	loc := s.geo.Lookup(ctx, clientIP)
	locJSON, _ := json.Marshal(loc)
	wifiJSON, _ := json.Marshal(sample.WiFi)

	var dup bool
	err = s.db.Transaction(func(tx *gorm.DB) error {
		exists, err := s.telemetry.ExistsByDeviceSeq(tx, deviceID, sample.Seq)
		if err != nil {
			return err
		}
		if exists {
			dup = true
			return nil
		}
		// Rules see the pre-sample device state and history.
		if err := s.alerts.EvaluateSample(tx, device, sample, loc.ASN, clientIP); err != nil {
			return err
		}
		event := &models.TelemetryEvent{
			DeviceID: deviceID,
			Seq:      sample.Seq,
			TS:       sample.TS.UTC(),
			Hostname: sample.Hostname,
			OS:       sample.OS,
			WiFi:     string(wifiJSON),
			Battery:  sample.Battery,
			IP:       clientIP,
			ASN:      loc.ASN,
			Location: string(locJSON),
		}
		if err := s.telemetry.Create(tx, event); err != nil {
			return err
		}
		// Last write wins: no ordering condition on the snapshot.
		return s.devices.UpdateSnapshot(tx, deviceID, sample.TS.UTC(), clientIP, loc.ASN, string(locJSON))
	})
	if err != nil {
		return fmt.Errorf("ingest device=%s seq=%d: %w", deviceID, sample.Seq, err)
	}
	if dup {
		global.Logger.Debug().Str("device", deviceID).Uint64("seq", sample.Seq).Msg("duplicate sample dropped")
		return nil
	}
	global.Logger.Info().Str("device", deviceID).Uint64("seq", sample.Seq).Str("ip", clientIP).Msg("telemetry ingested")
	return nil
}
