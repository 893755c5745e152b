package runner

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"device-tracker/agent/internal/client"
	agentdb "device-tracker/agent/internal/db"
	"device-tracker/agent/internal/monitor"
	"device-tracker/agent/internal/queue"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

type ackRecord struct {
	id      string
	status  string
	details string
}

// stubSender fails the first failN telemetry sends with a transient error
// and rejects the next rejectN with a protocol error, then succeeds.
type stubSender struct {
	failN    int
	rejectN  int
	sent     []json.RawMessage
	commands []client.Command
	fetchErr error
	acks     []ackRecord
}

func (s *stubSender) SendTelemetry(ctx context.Context, sample json.RawMessage) error {
	if s.failN > 0 {
		s.failN--
		return errors.New("connection refused")
	}
	if s.rejectN > 0 {
		s.rejectN--
		return &client.Error{Kind: client.KindProtocol, Status: 400, Op: "send telemetry", Err: errors.New("rejected")}
	}
	s.sent = append(s.sent, sample)
	return nil
}

func (s *stubSender) FetchCommands(ctx context.Context) ([]client.Command, error) {
	return s.commands, s.fetchErr
}

func (s *stubSender) AckCommand(ctx context.Context, commandID, status, details string) error {
	s.acks = append(s.acks, ackRecord{id: commandID, status: status, details: details})
	return nil
}

type nopActions struct{}

func (nopActions) ShowMessage(title, body string) (string, error) { return "shown", nil }
func (nopActions) PlayChime(repeat int) (string, error)           { return "chimed", nil }
func (nopActions) LockScreen() (string, error)                    { return "locked", nil }

func newTestRunner(t *testing.T, sender Sender, maxRetries int) (*Runner, *queue.Queue) {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Silent)})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := gdb.AutoMigrate(&agentdb.QueueEntry{}, &agentdb.SequenceState{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	q := queue.New(gdb)
	collector := monitor.NewCollector(monitor.LoadSequence(gdb))
	r := New(Config{HeartbeatSeconds: 300, PollSeconds: 20, MaxRetries: maxRetries}, sender, q, collector, nopActions{})
	return r, q
}

func TestHeartbeatCycleSendsSample(t *testing.T) {
	sender := &stubSender{}
	r, q := newTestRunner(t, sender, 20)

	r.heartbeatCycle(context.Background())

	if len(sender.sent) != 1 {
		t.Fatalf("expected 1 sample sent, got %d", len(sender.sent))
	}
	n, _ := q.Size()
	if n != 0 {
		t.Fatalf("queue should be empty, got %d", n)
	}
	if r.failStreak != 0 {
		t.Fatalf("failStreak should be 0, got %d", r.failStreak)
	}
}

func TestHeartbeatCycleQueuesOnFailure(t *testing.T) {
	sender := &stubSender{failN: 10}
	r, q := newTestRunner(t, sender, 20)

	r.heartbeatCycle(context.Background())

	n, _ := q.Size()
	if n != 1 {
		t.Fatalf("failed sample should be queued, size=%d", n)
	}
	if r.failStreak != 1 {
		t.Fatalf("failStreak should be 1, got %d", r.failStreak)
	}

	// A second failing cycle queues another sample and stretches backoff.
	r.heartbeatCycle(context.Background())
	n, _ = q.Size()
	if n != 2 {
		t.Fatalf("expected 2 queued samples, got %d", n)
	}
	if r.failStreak != 2 {
		t.Fatalf("failStreak should be 2, got %d", r.failStreak)
	}
}

func TestHeartbeatCycleDropsRejectedSample(t *testing.T) {
	sender := &stubSender{rejectN: 1}
	r, q := newTestRunner(t, sender, 20)

	r.heartbeatCycle(context.Background())

	// A 4xx rejection is terminal for the payload: no queueing, no backoff.
	n, _ := q.Size()
	if n != 0 {
		t.Fatalf("rejected sample must not be queued, size=%d", n)
	}
	if r.failStreak != 0 {
		t.Fatalf("rejection should not count as a delivery failure, streak=%d", r.failStreak)
	}
	if len(sender.sent) != 0 {
		t.Fatalf("nothing should have been delivered, got %d", len(sender.sent))
	}
}

func TestSuccessDrainsQueue(t *testing.T) {
	sender := &stubSender{failN: 2}
	r, q := newTestRunner(t, sender, 20)

	// Two cycles fail and queue their samples.
	r.heartbeatCycle(context.Background())
	r.heartbeatCycle(context.Background())

	// Third cycle succeeds and drains the backlog oldest-first.
	r.heartbeatCycle(context.Background())

	n, _ := q.Size()
	if n != 0 {
		t.Fatalf("queue should be drained, got %d", n)
	}
	if len(sender.sent) != 3 {
		t.Fatalf("expected 3 sends (1 live + 2 queued), got %d", len(sender.sent))
	}
	// Live sample goes first, then the backlog in queue order.
	seqs := make([]uint64, 0, len(sender.sent))
	for _, raw := range sender.sent {
		seqs = append(seqs, peekSeq(raw))
	}
	if seqs[0] != 3 || seqs[1] != 1 || seqs[2] != 2 {
		t.Fatalf("unexpected send order %v", seqs)
	}
}

func TestDrainStopsAtFirstFailure(t *testing.T) {
	sender := &stubSender{}
	r, q := newTestRunner(t, sender, 20)

	for i := 1; i <= 3; i++ {
		raw, _ := json.Marshal(map[string]int{"seq": i})
		if err := q.Enqueue(raw); err != nil {
			t.Fatal(err)
		}
	}

	r.drainQueue(context.Background())

	// All three went through with a healthy sender.
	n, _ := q.Size()
	if n != 0 || len(sender.sent) != 3 {
		t.Fatalf("healthy drain should empty the queue, size=%d sent=%d", n, len(sender.sent))
	}
}

func TestDrainRequeuesFailedItem(t *testing.T) {
	sender := &stubSender{failN: 1}
	r, q := newTestRunner(t, sender, 20)

	for i := 1; i <= 2; i++ {
		raw, _ := json.Marshal(map[string]int{"seq": i})
		if err := q.Enqueue(raw); err != nil {
			t.Fatal(err)
		}
	}

	r.drainQueue(context.Background())

	// First item failed, went back to the tail with its count bumped, and
	// the pass stopped before touching the second.
	n, _ := q.Size()
	if n != 2 {
		t.Fatalf("expected 2 entries after failed drain, got %d", n)
	}
	if len(sender.sent) != 0 {
		t.Fatalf("nothing should have been sent, got %d", len(sender.sent))
	}

	first, err := q.Dequeue()
	if err != nil {
		t.Fatal(err)
	}
	if peekSeq(first.Data) != 2 {
		t.Fatalf("untouched entry should now be first, got seq=%d", peekSeq(first.Data))
	}
	second, err := q.Dequeue()
	if err != nil {
		t.Fatal(err)
	}
	if second.Retries != 1 {
		t.Fatalf("requeued entry should carry retry count 1, got %d", second.Retries)
	}
}

func TestDrainDropsRejectedEntry(t *testing.T) {
	sender := &stubSender{rejectN: 1}
	r, q := newTestRunner(t, sender, 20)

	for i := 1; i <= 2; i++ {
		raw, _ := json.Marshal(map[string]int{"seq": i})
		if err := q.Enqueue(raw); err != nil {
			t.Fatal(err)
		}
	}

	r.drainQueue(context.Background())

	// The rejected entry is dropped instead of cycling toward eviction, and
	// the pass carries on to the healthy one.
	n, _ := q.Size()
	if n != 0 {
		t.Fatalf("queue should be empty after drain, size=%d", n)
	}
	if len(sender.sent) != 1 || peekSeq(sender.sent[0]) != 2 {
		t.Fatalf("only the second entry should have been delivered, sent=%d", len(sender.sent))
	}
}

func TestEvictExhaustedEntries(t *testing.T) {
	sender := &stubSender{}
	r, q := newTestRunner(t, sender, 3)

	raw, _ := json.Marshal(map[string]int{"seq": 1})
	if err := q.Requeue(raw, 3); err != nil {
		t.Fatal(err)
	}
	raw2, _ := json.Marshal(map[string]int{"seq": 2})
	if err := q.Enqueue(raw2); err != nil {
		t.Fatal(err)
	}

	r.evictExhausted()

	n, _ := q.Size()
	if n != 1 {
		t.Fatalf("exhausted entry should be evicted, size=%d", n)
	}
	item, err := q.Dequeue()
	if err != nil {
		t.Fatal(err)
	}
	if peekSeq(item.Data) != 2 {
		t.Fatalf("healthy entry should survive, got seq=%d", peekSeq(item.Data))
	}
}

func TestRunCommandAcksOutcome(t *testing.T) {
	sender := &stubSender{}
	r, _ := newTestRunner(t, sender, 20)

	r.runCommand(context.Background(), client.Command{ID: "ok", Type: "ping"})

	expired := time.Now().Add(-time.Hour)
	r.runCommand(context.Background(), client.Command{ID: "late", Type: "ping", ExpiresAt: &expired})

	if len(sender.acks) != 2 {
		t.Fatalf("expected 2 acks, got %d", len(sender.acks))
	}
	if sender.acks[0].id != "ok" || sender.acks[0].status != "DONE" {
		t.Fatalf("unexpected first ack %+v", sender.acks[0])
	}
	if sender.acks[1].id != "late" || sender.acks[1].status != "FAILED" {
		t.Fatalf("unexpected second ack %+v", sender.acks[1])
	}
	if !strings.Contains(sender.acks[1].details, "expired") {
		t.Fatalf("failed ack should mention expiry, got %q", sender.acks[1].details)
	}
}

func TestPollCycleRunsFetchedCommands(t *testing.T) {
	sender := &stubSender{commands: []client.Command{
		{ID: "a", Type: "ping"},
		{ID: "b", Type: "increase_heartbeat", Payload: json.RawMessage(`{"seconds":60}`)},
	}}
	r, _ := newTestRunner(t, sender, 20)

	r.pollCycle(context.Background())

	if len(sender.acks) != 2 {
		t.Fatalf("expected 2 acks, got %d", len(sender.acks))
	}
	if r.interval.Load() != 60 {
		t.Fatalf("increase_heartbeat should have applied, interval=%d", r.interval.Load())
	}
}

func TestSetInterval(t *testing.T) {
	sender := &stubSender{}
	r, _ := newTestRunner(t, sender, 20)

	r.SetInterval(45)
	if r.interval.Load() != 45 {
		t.Fatalf("interval not applied, got %d", r.interval.Load())
	}

	// Non-positive values are ignored.
	r.SetInterval(0)
	r.SetInterval(-5)
	if r.interval.Load() != 45 {
		t.Fatalf("invalid interval must be ignored, got %d", r.interval.Load())
	}
}
