package command

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"device-tracker/agent/internal/client"
)

type recordedCall struct {
	name  string
	title string
	body  string
	count int
}

type stubActions struct {
	calls []recordedCall
}

func (s *stubActions) ShowMessage(title, body string) (string, error) {
	s.calls = append(s.calls, recordedCall{name: "show_message", title: title, body: body})
	return "message shown", nil
}

func (s *stubActions) PlayChime(repeat int) (string, error) {
	s.calls = append(s.calls, recordedCall{name: "play_chime", count: repeat})
	return "chime played", nil
}

func (s *stubActions) LockScreen() (string, error) {
	s.calls = append(s.calls, recordedCall{name: "lock_screen"})
	return "screen locked", nil
}

type stubHeartbeat struct {
	seconds int
}

func (s *stubHeartbeat) SetInterval(seconds int) { s.seconds = seconds }

func newTestExecutor() (*Executor, *stubActions, *stubHeartbeat) {
	acts := &stubActions{}
	hb := &stubHeartbeat{}
	exec := NewExecutor(acts, hb)
	exec.Now = func() time.Time { return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC) }
	return exec, acts, hb
}

func TestExpiredCommandFailsWithoutExecuting(t *testing.T) {
	exec, acts, _ := newTestExecutor()
	expired := time.Date(2025, 6, 1, 11, 0, 0, 0, time.UTC)
	_, err := exec.Execute(client.Command{
		ID: "c1", Type: "play_chime", ExpiresAt: &expired,
	})
	if err == nil {
		t.Fatal("expected error for expired command")
	}
	if !strings.Contains(err.Error(), "expired") {
		t.Fatalf("error should mention expiry, got %q", err)
	}
	if len(acts.calls) != 0 {
		t.Fatalf("expired command must not execute, got calls %v", acts.calls)
	}
}

func TestUnknownTypeFails(t *testing.T) {
	exec, acts, _ := newTestExecutor()
	_, err := exec.Execute(client.Command{ID: "c1", Type: "self_destruct"})
	if err == nil {
		t.Fatal("expected error for unknown command type")
	}
	if len(acts.calls) != 0 {
		t.Fatalf("unknown command must not execute, got calls %v", acts.calls)
	}
}

func TestShowMessageDefaults(t *testing.T) {
	exec, acts, _ := newTestExecutor()
	detail, err := exec.Execute(client.Command{
		ID: "c1", Type: "show_message",
		Payload: json.RawMessage(`{"body":"call me"}`),
	})
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if detail != "message shown" {
		t.Fatalf("unexpected detail %q", detail)
	}
	if len(acts.calls) != 1 || acts.calls[0].title != "Tracker Alert" || acts.calls[0].body != "call me" {
		t.Fatalf("unexpected call %+v", acts.calls)
	}
}

func TestPlayChimeDefaultRepeat(t *testing.T) {
	exec, acts, _ := newTestExecutor()
	if _, err := exec.Execute(client.Command{ID: "c1", Type: "play_chime"}); err != nil {
		t.Fatalf("execute: %v", err)
	}
	if len(acts.calls) != 1 || acts.calls[0].count != 3 {
		t.Fatalf("expected default repeat 3, got %+v", acts.calls)
	}
}

func TestIncreaseHeartbeat(t *testing.T) {
	exec, _, hb := newTestExecutor()
	detail, err := exec.Execute(client.Command{
		ID: "c1", Type: "increase_heartbeat",
		Payload: json.RawMessage(`{"seconds":45}`),
	})
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if hb.seconds != 45 {
		t.Fatalf("interval not applied, got %d", hb.seconds)
	}
	if !strings.Contains(detail, "45s") {
		t.Fatalf("detail should report the interval, got %q", detail)
	}
}

func TestIncreaseHeartbeatRejectsNonPositive(t *testing.T) {
	exec, _, hb := newTestExecutor()
	_, err := exec.Execute(client.Command{
		ID: "c1", Type: "increase_heartbeat",
		Payload: json.RawMessage(`{"seconds":0}`),
	})
	if err == nil {
		t.Fatal("expected error for zero interval")
	}
	if hb.seconds != 0 {
		t.Fatalf("interval must not change, got %d", hb.seconds)
	}
}

func TestMalformedPayloadFails(t *testing.T) {
	exec, acts, _ := newTestExecutor()
	_, err := exec.Execute(client.Command{
		ID: "c1", Type: "show_message",
		Payload: json.RawMessage(`{"title":`),
	})
	if err == nil {
		t.Fatal("expected decode error")
	}
	if len(acts.calls) != 0 {
		t.Fatalf("malformed command must not execute, got %v", acts.calls)
	}
}

func TestPing(t *testing.T) {
	exec, _, _ := newTestExecutor()
	detail, err := exec.Execute(client.Command{ID: "c1", Type: "ping"})
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if !strings.HasPrefix(detail, "pong at ") {
		t.Fatalf("unexpected detail %q", detail)
	}
}

func TestParseKind(t *testing.T) {
	cases := []struct {
		in string
		ok bool
	}{
		{"show_message", true},
		{"play_chime", true},
		{"increase_heartbeat", true},
		{"lock_screen", true},
		{"ping", true},
		{"", false},
		{"SHOW_MESSAGE", false},
		{"reboot", false},
	}
	for _, tc := range cases {
		_, err := ParseKind(tc.in)
		if tc.ok && err != nil {
			t.Errorf("ParseKind(%q): unexpected error %v", tc.in, err)
		}
		if !tc.ok && err == nil {
			t.Errorf("ParseKind(%q): expected error", tc.in)
		}
	}
}
