package services

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"device-tracker/backend/app/dto"
	"device-tracker/backend/app/ipgeo"
	"device-tracker/backend/app/models"
	"device-tracker/backend/app/repo"

	"gorm.io/gorm"
)

func newTelemetryService(t *testing.T) (*TelemetryService, *gorm.DB) {
	t.Helper()
	gdb := newTestDB(t)
	deviceRepo := repo.NewDeviceRepository(gdb)
	telemetryRepo := repo.NewTelemetryRepository(gdb)
	alertSvc := NewAlertService(gdb, repo.NewAlertRepository(gdb), telemetryRepo, deviceRepo, 15*time.Minute)
	alertSvc.Now = fixedNow
	// Private source addresses keep the geo lookup offline.
	svc := NewTelemetryService(gdb, telemetryRepo, deviceRepo, alertSvc, ipgeo.New(nil))
	return svc, gdb
}

func sampleAt(seq uint64, ts time.Time) dto.TelemetrySample {
	battery := 80
	return dto.TelemetrySample{
		Seq:      seq,
		TS:       ts,
		Hostname: "laptop-1",
		OS:       "linux-6.8",
		Battery:  &battery,
		WiFi: []dto.WiFiObservation{
			{SSID: "home", BSSID: "aa:bb:cc:00:00:01", Signal: -45},
		},
	}
}

func TestIngestPersistsEventAndSnapshot(t *testing.T) {
	svc, gdb := newTelemetryService(t)
	device := createDevice(t, gdb, nil)

	ts := fixedNow()
	if err := svc.Ingest(context.Background(), device.ID, "192.168.1.50", sampleAt(1, ts)); err != nil {
		t.Fatalf("ingest: %v", err)
	}

	var events []models.TelemetryEvent
	if err := gdb.Where("device_id = ?", device.ID).Find(&events).Error; err != nil {
		t.Fatal(err)
	}
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	if events[0].Seq != 1 || events[0].IP != "192.168.1.50" || events[0].Hostname != "laptop-1" {
		t.Fatalf("unexpected event %+v", events[0])
	}

	var d models.Device
	if err := gdb.First(&d, "id = ?", device.ID).Error; err != nil {
		t.Fatal(err)
	}
	if d.LastSeenAt == nil || !d.LastSeenAt.Equal(ts) {
		t.Fatalf("snapshot not updated, last_seen_at=%v", d.LastSeenAt)
	}
	if d.LastIP != "192.168.1.50" {
		t.Fatalf("snapshot ip not updated, got %q", d.LastIP)
	}
}

func TestIngestIdempotentPerSeq(t *testing.T) {
	svc, gdb := newTelemetryService(t)
	device := createDevice(t, gdb, nil)

	first := fixedNow()
	if err := svc.Ingest(context.Background(), device.ID, "192.168.1.50", sampleAt(1, first)); err != nil {
		t.Fatal(err)
	}

	// The same seq redelivered later is accepted and dropped: no second
	// event, no snapshot movement.
	later := sampleAt(1, first.Add(time.Hour))
	later.Hostname = "laptop-renamed"
	if err := svc.Ingest(context.Background(), device.ID, "192.168.9.9", later); err != nil {
		t.Fatalf("duplicate ingest should succeed quietly: %v", err)
	}

	var count int64
	gdb.Model(&models.TelemetryEvent{}).Where("device_id = ?", device.ID).Count(&count)
	if count != 1 {
		t.Fatalf("expected 1 event, got %d", count)
	}

	var d models.Device
	if err := gdb.First(&d, "id = ?", device.ID).Error; err != nil {
		t.Fatal(err)
	}
	if !d.LastSeenAt.Equal(first) || d.LastIP != "192.168.1.50" {
		t.Fatalf("duplicate must not move the snapshot, got seen=%v ip=%q", d.LastSeenAt, d.LastIP)
	}
}

func TestIngestDistinctSeqsAccumulate(t *testing.T) {
	svc, gdb := newTelemetryService(t)
	device := createDevice(t, gdb, nil)

	base := fixedNow()
	for seq := uint64(1); seq <= 3; seq++ {
		ts := base.Add(time.Duration(seq) * time.Minute)
		if err := svc.Ingest(context.Background(), device.ID, "192.168.1.50", sampleAt(seq, ts)); err != nil {
			t.Fatalf("ingest seq=%d: %v", seq, err)
		}
	}

	var count int64
	gdb.Model(&models.TelemetryEvent{}).Where("device_id = ?", device.ID).Count(&count)
	if count != 3 {
		t.Fatalf("expected 3 events, got %d", count)
	}

	var d models.Device
	if err := gdb.First(&d, "id = ?", device.ID).Error; err != nil {
		t.Fatal(err)
	}
	if !d.LastSeenAt.Equal(base.Add(3 * time.Minute)) {
		t.Fatalf("snapshot should track the latest sample, got %v", d.LastSeenAt)
	}
}

func TestIngestUnknownDevice(t *testing.T) {
	svc, _ := newTelemetryService(t)
	err := svc.Ingest(context.Background(), "no-such-device", "192.168.1.50", sampleAt(1, fixedNow()))
	if err == nil {
		t.Fatal("expected error for unknown device")
	}
}

func TestIngestAbortsAsOneUnit(t *testing.T) {
	svc, gdb := newTelemetryService(t)
	device := createDevice(t, gdb, nil)

	// Breaking the alerts table makes the NEW_WIFI rule fail mid-request;
	// the whole ingest must abort with no event and no snapshot movement.
	if err := gdb.Migrator().DropTable(&models.Alert{}); err != nil {
		t.Fatal(err)
	}

	err := svc.Ingest(context.Background(), device.ID, "192.168.1.50", sampleAt(1, fixedNow()))
	if err == nil {
		t.Fatal("expected ingest to fail when a rule cannot run")
	}

	var count int64
	gdb.Model(&models.TelemetryEvent{}).Where("device_id = ?", device.ID).Count(&count)
	if count != 0 {
		t.Fatalf("aborted ingest must not leave an event, got %d", count)
	}
	var d models.Device
	if err := gdb.First(&d, "id = ?", device.ID).Error; err != nil {
		t.Fatal(err)
	}
	if d.LastSeenAt != nil {
		t.Fatalf("aborted ingest must not move the snapshot, got %v", d.LastSeenAt)
	}
}

func TestIngestTruncatesWiFi(t *testing.T) {
	svc, gdb := newTelemetryService(t)
	device := createDevice(t, gdb, nil)

	sample := sampleAt(1, fixedNow())
	sample.WiFi = make([]dto.WiFiObservation, 15)
	for i := range sample.WiFi {
		sample.WiFi[i] = dto.WiFiObservation{SSID: "net", BSSID: "aa:bb:cc:00:00:0" + string(rune('a'+i)), Signal: -50}
	}
	if err := svc.Ingest(context.Background(), device.ID, "192.168.1.50", sample); err != nil {
		t.Fatal(err)
	}

	var event models.TelemetryEvent
	if err := gdb.First(&event, "device_id = ?", device.ID).Error; err != nil {
		t.Fatal(err)
	}
	var stored []dto.WiFiObservation
	if err := json.Unmarshal([]byte(event.WiFi), &stored); err != nil {
		t.Fatalf("stored wifi not JSON: %v", err)
	}
	if len(stored) != 10 {
		t.Fatalf("expected 10 stored networks, got %d", len(stored))
	}
}
