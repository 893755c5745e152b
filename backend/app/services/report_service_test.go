package services

import (
	"encoding/json"
	"testing"
	"time"

	"device-tracker/backend/app/dto"
	"device-tracker/backend/app/models"
	"device-tracker/backend/app/repo"

	"gorm.io/gorm"
)

func newReportService(t *testing.T) (*ReportService, *gorm.DB) {
	t.Helper()
	gdb := newTestDB(t)
	svc := NewReportService(repo.NewTelemetryRepository(gdb), repo.NewCommandRepository(gdb))
	svc.Now = fixedNow
	return svc, gdb
}

func seedReportEvent(t *testing.T, gdb *gorm.DB, deviceID string, seq uint64, ts time.Time, nets []dto.WiFiObservation) {
	t.Helper()
	wifi, _ := json.Marshal(nets)
	e := &models.TelemetryEvent{
		DeviceID: deviceID,
		Seq:      seq,
		TS:       ts,
		Hostname: "laptop-1",
		IP:       "203.0.113.9",
		ASN:      100,
		WiFi:     string(wifi),
	}
	if err := gdb.Create(e).Error; err != nil {
		t.Fatalf("seed event: %v", err)
	}
}

func TestReportTimelineAndWiFiSummary(t *testing.T) {
	svc, gdb := newReportService(t)
	device := createDevice(t, gdb, nil)

	base := fixedNow().Add(-2 * time.Hour)
	seedReportEvent(t, gdb, device.ID, 1, base, []dto.WiFiObservation{
		{SSID: "home", BSSID: "aa:bb:cc:00:00:01", Signal: -45},
	})
	seedReportEvent(t, gdb, device.ID, 2, base.Add(time.Hour), []dto.WiFiObservation{
		{SSID: "home-5g", BSSID: "aa:bb:cc:00:00:01", Signal: -40},
		{SSID: "cafe", BSSID: "aa:bb:cc:00:00:02", Signal: -60},
	})
	seedReportEvent(t, gdb, device.ID, 3, base.Add(2*time.Hour), nil)

	cmd := &models.Command{DeviceID: device.ID, Type: models.CmdPing, Status: models.CommandDone, CreatedAt: base.Add(30 * time.Minute)}
	if err := gdb.Create(cmd).Error; err != nil {
		t.Fatal(err)
	}

	report, err := svc.Generate(device, time.Time{}, time.Time{})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	if len(report.Timeline) != 3 {
		t.Fatalf("expected 3 timeline entries, got %d", len(report.Timeline))
	}
	for i := 1; i < len(report.Timeline); i++ {
		if report.Timeline[i].TS.Before(report.Timeline[i-1].TS) {
			t.Fatalf("timeline not ascending at %d", i)
		}
	}
	if report.Timeline[0].Seq != 1 || report.Timeline[0].IP != "203.0.113.9" {
		t.Fatalf("unexpected first entry %+v", report.Timeline[0])
	}

	if len(report.WiFiSummary) != 2 {
		t.Fatalf("expected 2 networks, got %d", len(report.WiFiSummary))
	}
	home := report.WiFiSummary[0]
	if home.BSSID != "aa:bb:cc:00:00:01" || home.SeenCount != 2 {
		t.Fatalf("unexpected aggregation %+v", home)
	}
	if len(home.SSIDs) != 2 || home.SSIDs[0] != "home" || home.SSIDs[1] != "home-5g" {
		t.Fatalf("ssids should collect and sort, got %v", home.SSIDs)
	}
	if !home.FirstSeen.Equal(base) || !home.LastSeen.Equal(base.Add(time.Hour)) {
		t.Fatalf("sighting bounds wrong: first=%v last=%v", home.FirstSeen, home.LastSeen)
	}
	cafe := report.WiFiSummary[1]
	if cafe.BSSID != "aa:bb:cc:00:00:02" || cafe.SeenCount != 1 {
		t.Fatalf("unexpected aggregation %+v", cafe)
	}

	if len(report.Commands) != 1 || report.Commands[0].ID != cmd.ID {
		t.Fatalf("command history missing, got %+v", report.Commands)
	}
	if report.Device.ID != device.ID || report.Device.OwnerID != device.OwnerID {
		t.Fatalf("unexpected device block %+v", report.Device)
	}
}

func TestReportDefaultsToLast30Days(t *testing.T) {
	svc, gdb := newReportService(t)
	device := createDevice(t, gdb, nil)

	seedReportEvent(t, gdb, device.ID, 1, fixedNow().Add(-40*24*time.Hour), nil)
	seedReportEvent(t, gdb, device.ID, 2, fixedNow().Add(-time.Hour), nil)

	report, err := svc.Generate(device, time.Time{}, time.Time{})
	if err != nil {
		t.Fatal(err)
	}
	if len(report.Timeline) != 1 || report.Timeline[0].Seq != 2 {
		t.Fatalf("default range should exclude the 40-day-old event, got %+v", report.Timeline)
	}
	if !report.To.Equal(fixedNow()) || !report.From.Equal(fixedNow().Add(-30*24*time.Hour)) {
		t.Fatalf("unexpected default bounds from=%v to=%v", report.From, report.To)
	}
}

func TestReportHonorsExplicitRange(t *testing.T) {
	svc, gdb := newReportService(t)
	device := createDevice(t, gdb, nil)

	base := fixedNow()
	seedReportEvent(t, gdb, device.ID, 1, base.Add(-3*time.Hour), nil)
	seedReportEvent(t, gdb, device.ID, 2, base.Add(-2*time.Hour), nil)
	seedReportEvent(t, gdb, device.ID, 3, base.Add(-time.Hour), nil)

	from := base.Add(-150 * time.Minute)
	to := base.Add(-90 * time.Minute)
	report, err := svc.Generate(device, from, to)
	if err != nil {
		t.Fatal(err)
	}
	if len(report.Timeline) != 1 || report.Timeline[0].Seq != 2 {
		t.Fatalf("range filter wrong, got %+v", report.Timeline)
	}
}

func TestReportEmptyDevice(t *testing.T) {
	svc, gdb := newReportService(t)
	device := createDevice(t, gdb, nil)

	report, err := svc.Generate(device, time.Time{}, time.Time{})
	if err != nil {
		t.Fatal(err)
	}
	if len(report.Timeline) != 0 || len(report.WiFiSummary) != 0 || len(report.Commands) != 0 {
		t.Fatalf("expected empty report, got %+v", report)
	}
}
