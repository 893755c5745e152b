package services

import (
	"fmt"
	"testing"
	"time"

	"device-tracker/backend/app/models"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Silent)})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	err = gdb.AutoMigrate(
		&models.User{},
		&models.Device{},
		&models.TelemetryEvent{},
		&models.Command{},
		&models.Alert{},
	)
	if err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return gdb
}

func createDevice(t *testing.T, gdb *gorm.DB, mutate func(*models.Device)) *models.Device {
	t.Helper()
	d := &models.Device{OwnerID: 1, DisplayName: "test-laptop", Platform: "linux", Hostname: "host1"}
	if mutate != nil {
		mutate(d)
	}
	if err := gdb.Create(d).Error; err != nil {
		t.Fatalf("create device: %v", err)
	}
	return d
}

func fixedNow() time.Time {
	return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
}
