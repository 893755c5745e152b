package command

import (
	"encoding/json"
	"fmt"
	"time"

	"device-tracker/agent/internal/actions"
	"device-tracker/agent/internal/client"
)

// HeartbeatControl lets the increase_heartbeat command reach into the
// running heartbeat loop.
type HeartbeatControl interface {
	SetInterval(seconds int)
}

// Executor runs server commands against the local machine. Expired and
// unknown commands fail before any side effect.
type Executor struct {
	Actions   actions.Actions
	Heartbeat HeartbeatControl
	Now       func() time.Time
}

func NewExecutor(acts actions.Actions, hb HeartbeatControl) *Executor {
	return &Executor{Actions: acts, Heartbeat: hb, Now: time.Now}
}

type showMessageArg struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

type playChimeArg struct {
	Repeat int `json:"repeat"`
}

type heartbeatArg struct {
	Seconds int `json:"seconds"`
}

// Execute runs one command and returns the ack detail. A non-nil error
// means the command must be acked FAILED with the error text as detail.
func (e *Executor) Execute(cmd client.Command) (string, error) {
	if cmd.ExpiresAt != nil && cmd.ExpiresAt.Before(e.Now()) {
		return "", fmt.Errorf("expired at %s", cmd.ExpiresAt.UTC().Format(time.RFC3339))
	}
	kind, err := ParseKind(cmd.Type)
	if err != nil {
		return "", err
	}

	switch kind {
	case KindShowMessage:
		arg := showMessageArg{Title: "Tracker Alert"}
		if err := decode(cmd.Payload, &arg); err != nil {
			return "", err
		}
		return e.Actions.ShowMessage(arg.Title, arg.Body)

	case KindPlayChime:
		arg := playChimeArg{Repeat: 3}
		if err := decode(cmd.Payload, &arg); err != nil {
			return "", err
		}
		return e.Actions.PlayChime(arg.Repeat)

	case KindIncreaseHeartbeat:
		arg := heartbeatArg{Seconds: 30}
		if err := decode(cmd.Payload, &arg); err != nil {
			return "", err
		}
		if arg.Seconds <= 0 {
			return "", fmt.Errorf("invalid heartbeat interval %d", arg.Seconds)
		}
		e.Heartbeat.SetInterval(arg.Seconds)
		return fmt.Sprintf("heartbeat interval set to %ds", arg.Seconds), nil

	case KindLockScreen:
		return e.Actions.LockScreen()

	case KindPing:
		return "pong at " + e.Now().UTC().Format(time.RFC3339), nil
	}
	// Unreachable: ParseKind rejects anything outside the closed set.
	return "", fmt.Errorf("unsupported command type %q", cmd.Type)
}

func decode(raw json.RawMessage, into any) error {
	if len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, into); err != nil {
		return fmt.Errorf("decode payload: %w", err)
	}
	return nil
}
