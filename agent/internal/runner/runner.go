package runner

import (
	"context"
	"encoding/json"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"device-tracker/agent/internal/actions"
	"device-tracker/agent/internal/client"
	"device-tracker/agent/internal/command"
	"device-tracker/agent/internal/logger"
	"device-tracker/agent/internal/monitor"
	"device-tracker/agent/internal/queue"
)

// Sender is the network collaborator of both loops. *client.Client
// implements it; tests substitute stubs.
type Sender interface {
	SendTelemetry(ctx context.Context, sample json.RawMessage) error
	FetchCommands(ctx context.Context) ([]client.Command, error)
	AckCommand(ctx context.Context, commandID, status, details string) error
}

type Config struct {
	HeartbeatSeconds int
	PollSeconds      int
	// MaxRetries is the queue eviction ceiling: entries requeued this many
	// times are dropped at the start of the next drain pass.
	MaxRetries int
}

// Runner owns the two agent loops. The heartbeat loop is the only writer
// of the local queue; the poll loop never touches it, so dequeue needs no
// cross-loop coordination.
type Runner struct {
	cfg       Config
	sender    Sender
	queue     *queue.Queue
	collector *monitor.Collector
	exec      *command.Executor

	interval   atomic.Int64 // heartbeat seconds, mutable at runtime
	reschedule chan struct{}
	failStreak int
}

func New(cfg Config, sender Sender, q *queue.Queue, collector *monitor.Collector, acts actions.Actions) *Runner {
	if cfg.HeartbeatSeconds <= 0 {
		cfg.HeartbeatSeconds = 300
	}
	if cfg.PollSeconds <= 0 {
		cfg.PollSeconds = 20
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 20
	}
	r := &Runner{
		cfg:        cfg,
		sender:     sender,
		queue:      q,
		collector:  collector,
		reschedule: make(chan struct{}, 1),
	}
	r.interval.Store(int64(cfg.HeartbeatSeconds))
	r.exec = command.NewExecutor(acts, r)
	return r
}

// SetInterval changes the heartbeat period without dropping in-flight
// state. Invoked by the increase_heartbeat command and by config reload.
func (r *Runner) SetInterval(seconds int) {
	if seconds <= 0 {
		return
	}
	old := r.interval.Swap(int64(seconds))
	if old != int64(seconds) {
		logger.Infof("Heartbeat interval changed %ds -> %ds", old, seconds)
		select {
		case r.reschedule <- struct{}{}:
		default:
		}
	}
}

// Run starts both loops and blocks until ctx is cancelled and both loops
// have finished their current cycle.
func (r *Runner) Run(ctx context.Context) {
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		r.heartbeatLoop(ctx)
	}()
	go func() {
		defer wg.Done()
		r.pollLoop(ctx)
	}()
	wg.Wait()
	logger.Info("Agent loops stopped")
}

func (r *Runner) heartbeatLoop(ctx context.Context) {
	// First sample immediately; the timer covers subsequent cycles.
	r.heartbeatCycle(ctx)
	timer := time.NewTimer(r.nextDelay())
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-r.reschedule:
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
			timer.Reset(r.nextDelay())
		case <-timer.C:
			r.heartbeatCycle(ctx)
			timer.Reset(r.nextDelay())
		}
	}
}

// nextDelay is the heartbeat period, stretched with jittered exponential
// backoff while consecutive cycles keep failing.
func (r *Runner) nextDelay() time.Duration {
	base := time.Duration(r.interval.Load()) * time.Second
	if r.failStreak == 0 {
		return base
	}
	shift := r.failStreak
	if shift > 3 {
		shift = 3
	}
	d := base * time.Duration(1<<shift)
	jitter := time.Duration(rand.Int63n(int64(d) / 10))
	return d + jitter
}

func (r *Runner) heartbeatCycle(ctx context.Context) {
	r.evictExhausted()

	sample, err := r.collector.Collect()
	if err != nil {
		logger.Errorf("Heartbeat collect failed: %v", err)
		return
	}
	raw, err := json.Marshal(sample)
	if err != nil {
		logger.Errorf("Heartbeat encode failed seq=%d: %v", sample.Seq, err)
		return
	}

	if err := r.sender.SendTelemetry(ctx, raw); err != nil {
		// Protocol rejections are terminal for this payload; only delivery
		// failures go to the queue.
		if !client.IsTransient(err) {
			logger.Warnf("Telemetry seq=%d rejected, dropping: %v", sample.Seq, err)
			return
		}
		r.failStreak++
		logger.Warnf("Telemetry send failed seq=%d, queueing: %v", sample.Seq, err)
		if qerr := r.queue.Enqueue(raw); qerr != nil {
			logger.Errorf("Queueing telemetry seq=%d failed: %v", sample.Seq, qerr)
		}
		return
	}
	r.failStreak = 0
	logger.Infof("Telemetry sent seq=%d", sample.Seq)
	r.drainQueue(ctx)
}

// drainQueue sends queued samples oldest-first. A transient failure pushes
// the item back with its retry count bumped and stops the pass, preserving
// order past the stuck entry for the next cycle. A rejected payload is
// dropped and the pass continues.
func (r *Runner) drainQueue(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}
		item, err := r.queue.Dequeue()
		if err == queue.ErrEmpty {
			return
		}
		if err != nil {
			logger.Errorf("Queue dequeue failed: %v", err)
			return
		}
		if err := r.sender.SendTelemetry(ctx, item.Data); err != nil {
			if !client.IsTransient(err) {
				logger.Warnf("Queued telemetry seq=%d rejected, dropping: %v", peekSeq(item.Data), err)
				continue
			}
			logger.Warnf("Queued telemetry send failed (retry %d): %v", item.Retries+1, err)
			if qerr := r.queue.Requeue(item.Data, item.Retries+1); qerr != nil {
				logger.Errorf("Requeue failed, entry lost: %v", qerr)
			}
			return
		}
		logger.Infof("Sent queued telemetry seq=%d", peekSeq(item.Data))
	}
}

// evictExhausted drops entries past the retry ceiling. Deliberate data
// loss, logged per entry.
func (r *Runner) evictExhausted() {
	failed, err := r.queue.Failed(r.cfg.MaxRetries)
	if err != nil {
		logger.Errorf("Listing exhausted queue entries failed: %v", err)
		return
	}
	if len(failed) == 0 {
		return
	}
	for _, item := range failed {
		logger.Warnf("Evicting telemetry seq=%d after %d retries", peekSeq(item.Data), item.Retries)
	}
	if _, err := r.queue.Evict(r.cfg.MaxRetries); err != nil {
		logger.Errorf("Evicting queue entries failed: %v", err)
	}
}

func (r *Runner) pollLoop(ctx context.Context) {
	ticker := time.NewTicker(time.Duration(r.cfg.PollSeconds) * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.pollCycle(ctx)
		}
	}
}

func (r *Runner) pollCycle(ctx context.Context) {
	cmds, err := r.sender.FetchCommands(ctx)
	if err != nil {
		logger.Warnf("Command fetch failed: %v", err)
		return
	}
	for _, cmd := range cmds {
		if ctx.Err() != nil {
			return
		}
		r.runCommand(ctx, cmd)
	}
}

func (r *Runner) runCommand(ctx context.Context, cmd client.Command) {
	status := "DONE"
	detail, err := r.exec.Execute(cmd)
	if err != nil {
		status = "FAILED"
		detail = err.Error()
		logger.Warnf("Command %s (%s) failed: %v", cmd.ID, cmd.Type, err)
	} else {
		logger.Infof("Command %s (%s) done: %s", cmd.ID, cmd.Type, detail)
	}
	// The command already ran; a lost ack is logged, not retried.
	if err := r.sender.AckCommand(ctx, cmd.ID, status, detail); err != nil {
		logger.Warnf("Ack for command %s failed: %v", cmd.ID, err)
	}
}

func peekSeq(raw json.RawMessage) uint64 {
	var s struct {
		Seq uint64 `json:"seq"`
	}
	_ = json.Unmarshal(raw, &s)
	return s.Seq
}
