package services

import (
	"encoding/json"
	"sort"
	"time"

	"device-tracker/backend/app/dto"
	"device-tracker/backend/app/models"
	"device-tracker/backend/app/repo"
)

// defaultReportRange is applied when the caller gives no lower bound.
const defaultReportRange = 30 * 24 * time.Hour

// ReportService assembles per-device activity reports from stored
// telemetry and command history.
type ReportService struct {
	telemetry *repo.TelemetryRepository
	commands  *repo.CommandRepository
	Now       func() time.Time
}

func NewReportService(telemetry *repo.TelemetryRepository, commands *repo.CommandRepository) *ReportService {
	return &ReportService{telemetry: telemetry, commands: commands, Now: time.Now}
}

// Generate builds the timeline, WiFi summary, and command history for a
// device over [from, to]. Zero bounds default to the last 30 days.
func (s *ReportService) Generate(device *models.Device, from, to time.Time) (*dto.Report, error) {
	now := s.Now().UTC()
	if to.IsZero() {
		to = now
	}
	if from.IsZero() {
		from = to.Add(-defaultReportRange)
	}

	events, err := s.telemetry.RangeByDevice(device.ID, from, to)
	if err != nil {
		return nil, err
	}

	type wifiAgg struct {
		ssids       map[string]bool
		first, last time.Time
		count       int
	}
	seen := map[string]*wifiAgg{}
	var order []string

	timeline := make([]dto.ReportTimelineEntry, 0, len(events))
	for _, e := range events {
		entry := dto.ReportTimelineEntry{
			TS:       e.TS,
			Seq:      e.Seq,
			Hostname: e.Hostname,
			IP:       e.IP,
			ASN:      e.ASN,
			Battery:  e.Battery,
		}
		if e.Location != "" {
			entry.Location = json.RawMessage(e.Location)
		}
		if e.WiFi != "" {
			entry.WiFi = json.RawMessage(e.WiFi)
		}
		timeline = append(timeline, entry)

		var nets []dto.WiFiObservation
		if e.WiFi == "" || json.Unmarshal([]byte(e.WiFi), &nets) != nil {
			continue
		}
		for _, n := range nets {
			if n.BSSID == "" {
				continue
			}
			agg, ok := seen[n.BSSID]
			if !ok {
				agg = &wifiAgg{ssids: map[string]bool{}, first: e.TS}
				seen[n.BSSID] = agg
				order = append(order, n.BSSID)
			}
			ssid := n.SSID
			if ssid == "" {
				ssid = "Unknown"
			}
			agg.ssids[ssid] = true
			agg.last = e.TS
			agg.count++
		}
	}

	// Networks keep first-sighting order; SSIDs inside one network sort
	// lexically so the output is stable.
	summary := make([]dto.ReportWiFiNetwork, 0, len(order))
	for _, bssid := range order {
		agg := seen[bssid]
		ssids := make([]string, 0, len(agg.ssids))
		for name := range agg.ssids {
			ssids = append(ssids, name)
		}
		sort.Strings(ssids)
		summary = append(summary, dto.ReportWiFiNetwork{
			BSSID:     bssid,
			SSIDs:     ssids,
			FirstSeen: agg.first,
			LastSeen:  agg.last,
			SeenCount: agg.count,
		})
	}

	cmds, err := s.commands.ListByDeviceBetween(device.ID, from, to)
	if err != nil {
		return nil, err
	}
	views := make([]dto.CommandView, 0, len(cmds))
	for _, c := range cmds {
		view := dto.CommandView{
			ID:        c.ID,
			DeviceID:  c.DeviceID,
			Type:      c.Type,
			Status:    c.Status,
			CreatedAt: c.CreatedAt,
			ExpiresAt: c.ExpiresAt,
			MustAck:   c.MustAck,
		}
		if c.Payload != "" {
			view.Payload = json.RawMessage(c.Payload)
		}
		views = append(views, view)
	}

	return &dto.Report{
		Device: dto.ReportDevice{
			ID:          device.ID,
			OwnerID:     device.OwnerID,
			DisplayName: device.DisplayName,
			Platform:    device.Platform,
			Lost:        device.Lost,
			EnrolledAt:  device.EnrolledAt,
			LastSeenAt:  device.LastSeenAt,
		},
		Timeline:    timeline,
		WiFiSummary: summary,
		Commands:    views,
		GeneratedAt: now,
		From:        from.UTC(),
		To:          to.UTC(),
	}, nil
}
