package monitor

import (
	"fmt"
	"testing"

	agentdb "device-tracker/agent/internal/db"

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
	if err := gdb.AutoMigrate(&agentdb.SequenceState{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return gdb
}

func TestSequenceStartsAtZero(t *testing.T) {
	seq := LoadSequence(newTestDB(t))
	if seq.Current() != 0 {
		t.Fatalf("fresh sequence should be 0, got %d", seq.Current())
	}
}

func TestSequenceIncrements(t *testing.T) {
	seq := LoadSequence(newTestDB(t))
	for want := uint64(1); want <= 3; want++ {
		got, err := seq.Next()
		if err != nil {
			t.Fatalf("next: %v", err)
		}
		if got != want {
			t.Fatalf("expected %d, got %d", want, got)
		}
	}
	if seq.Current() != 3 {
		t.Fatalf("current should be 3, got %d", seq.Current())
	}
}

func TestSequenceSurvivesReload(t *testing.T) {
	gdb := newTestDB(t)
	seq := LoadSequence(gdb)
	for i := 0; i < 5; i++ {
		if _, err := seq.Next(); err != nil {
			t.Fatalf("next: %v", err)
		}
	}

	// A restarted agent resumes from the stored value, never reusing one.
	reloaded := LoadSequence(gdb)
	if reloaded.Current() != 5 {
		t.Fatalf("reloaded sequence should be 5, got %d", reloaded.Current())
	}
	next, err := reloaded.Next()
	if err != nil {
		t.Fatal(err)
	}
	if next != 6 {
		t.Fatalf("expected 6 after reload, got %d", next)
	}
}
