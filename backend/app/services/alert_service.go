package services

import (
	"encoding/json"
	"time"

	"device-tracker/backend/app/dto"
	"device-tracker/backend/app/models"
	"device-tracker/backend/app/repo"
	"device-tracker/backend/global"

	"gorm.io/gorm"
)

const (
	// knownWiFiWindow bounds how far back BSSIDs count as "seen before".
	knownWiFiWindow = 7 * 24 * time.Hour
	// knownWiFiSamples bounds the window to the most recent stored samples.
	knownWiFiSamples = 100
)

// AlertService evaluates anomaly rules. Per-sample rules run inside the
// ingestion transaction; the heartbeat sweep runs on its own timer.
type AlertService struct {
	db        *gorm.DB
	alerts    *repo.AlertRepository
	telemetry *repo.TelemetryRepository
	devices   *repo.DeviceRepository

	// HeartbeatThreshold is how long a device may stay silent before the
	// sweep flags it.
	HeartbeatThreshold time.Duration
	Now                func() time.Time
}

func NewAlertService(db *gorm.DB, alerts *repo.AlertRepository, telemetry *repo.TelemetryRepository, devices *repo.DeviceRepository, threshold time.Duration) *AlertService {
	if threshold <= 0 {
		threshold = 15 * time.Minute
	}
	return &AlertService{
		db:                 db,
		alerts:             alerts,
		telemetry:          telemetry,
		devices:            devices,
		HeartbeatThreshold: threshold,
		Now:                time.Now,
	}
}

// EvaluateSample runs the per-ingestion rules against the device state as
// it was before this sample. Rules are independent and additive. Must be
// called before the sample's own event row is inserted, so the sample
// cannot count itself as "known".
func (s *AlertService) EvaluateSample(tx *gorm.DB, device *models.Device, sample dto.TelemetrySample, newASN int, ip string) error {
	if err := s.checkNewIP(tx, device, newASN, ip); err != nil {
		return err
	}
	return s.checkNewWiFi(tx, device, sample)
}

// checkNewIP fires when a device with a recorded ASN reports from another.
func (s *AlertService) checkNewIP(tx *gorm.DB, device *models.Device, newASN int, ip string) error {
	if device.LastASN == 0 || newASN == 0 || device.LastASN == newASN {
		return nil
	}
	details, _ := json.Marshal(map[string]any{
		"old_asn": device.LastASN,
		"new_asn": newASN,
		"ip":      ip,
	})
	alert := &models.Alert{
		DeviceID: device.ID,
		Type:     models.AlertNewIP,
		Severity: models.SeverityWarning,
		Details:  string(details),
	}
	if err := s.alerts.Create(tx, alert); err != nil {
		return err
	}
	global.Logger.Info().Str("device", device.ID).Int("old_asn", device.LastASN).Int("new_asn", newASN).Msg("NEW_IP alert")
	return nil
}

// checkNewWiFi fires once for the first BSSID not seen in the recent
// window, never once per network.
func (s *AlertService) checkNewWiFi(tx *gorm.DB, device *models.Device, sample dto.TelemetrySample) error {
	if len(sample.WiFi) == 0 {
		return nil
	}
	since := s.Now().Add(-knownWiFiWindow)
	events, err := s.telemetry.RecentByDevice(tx, device.ID, since, knownWiFiSamples)
	if err != nil {
		return err
	}
	known := map[string]bool{}
	for _, event := range events {
		var nets []dto.WiFiObservation
		if json.Unmarshal([]byte(event.WiFi), &nets) != nil {
			continue
		}
		for _, n := range nets {
			if n.BSSID != "" {
				known[n.BSSID] = true
			}
		}
	}
	for _, n := range sample.WiFi {
		if n.BSSID == "" || known[n.BSSID] {
			continue
		}
		details, _ := json.Marshal(map[string]string{"ssid": n.SSID, "bssid": n.BSSID})
		alert := &models.Alert{
			DeviceID: device.ID,
			Type:     models.AlertNewWiFi,
			Severity: models.SeverityInfo,
			Details:  string(details),
		}
		if err := s.alerts.Create(tx, alert); err != nil {
			return err
		}
		global.Logger.Info().Str("device", device.ID).Str("bssid", n.BSSID).Msg("NEW_WIFI alert")
		return nil
	}
	return nil
}

// CheckHeartbeats flags non-lost devices silent past the threshold. At
// most one unresolved NO_HEARTBEAT alert exists per device; re-running the
// sweep before resolution creates nothing. Returns how many alerts fired.
func (s *AlertService) CheckHeartbeats() (int, error) {
	cutoff := s.Now().Add(-s.HeartbeatThreshold)
	devices, err := s.devices.ListSilentSince(cutoff)
	if err != nil {
		return 0, err
	}
	created := 0
	for _, d := range devices {
		open, err := s.alerts.HasUnresolved(d.ID, models.AlertNoHeartbeat)
		if err != nil {
			return created, err
		}
		if open {
			continue
		}
		var lastSeen string
		if d.LastSeenAt != nil {
			lastSeen = d.LastSeenAt.UTC().Format(time.RFC3339)
		}
		details, _ := json.Marshal(map[string]any{
			"last_seen":         lastSeen,
			"threshold_minutes": int(s.HeartbeatThreshold.Minutes()),
		})
		alert := &models.Alert{
			DeviceID: d.ID,
			Type:     models.AlertNoHeartbeat,
			Severity: models.SeverityWarning,
			Details:  string(details),
		}
		if err := s.alerts.Create(s.db, alert); err != nil {
			return created, err
		}
		created++
		global.Logger.Warn().Str("device", d.ID).Str("last_seen", lastSeen).Msg("NO_HEARTBEAT alert")
	}
	return created, nil
}

func (s *AlertService) List(deviceID string, unresolvedOnly bool) ([]models.Alert, error) {
	return s.alerts.ListByDevice(deviceID, unresolvedOnly)
}

func (s *AlertService) Get(id string) (*models.Alert, error) {
	return s.alerts.FindByID(id)
}

func (s *AlertService) Resolve(id string) error {
	if _, err := s.alerts.FindByID(id); err != nil {
		return err
	}
	return s.alerts.Resolve(id, s.Now().UTC())
}
