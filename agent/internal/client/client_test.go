package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func newTestClient(status int, body string) (*Client, *httptest.Server, *http.Request) {
	var captured http.Request
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured = *r
		w.WriteHeader(status)
		if body != "" {
			_, _ = w.Write([]byte(body))
		}
	}))
	return New(srv.URL, "dev-1", "tok", time.Second), srv, &captured
}

func TestSendTelemetryAccepted(t *testing.T) {
	c, srv, captured := newTestClient(http.StatusAccepted, "")
	defer srv.Close()

	if err := c.SendTelemetry(context.Background(), json.RawMessage(`{"seq":1}`)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := captured.Header.Get("Authorization"); got != "Bearer tok" {
		t.Fatalf("missing bearer token, got %q", got)
	}
	if captured.URL.Path != "/telemetry" {
		t.Fatalf("unexpected path %s", captured.URL.Path)
	}
}

func TestSendTelemetryErrorKinds(t *testing.T) {
	cases := []struct {
		name      string
		status    int
		transient bool
	}{
		{"bad request is protocol", http.StatusBadRequest, false},
		{"unauthorized is protocol", http.StatusUnauthorized, false},
		{"server error is transient", http.StatusInternalServerError, true},
		{"bad gateway is transient", http.StatusBadGateway, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c, srv, _ := newTestClient(tc.status, "")
			defer srv.Close()

			err := c.SendTelemetry(context.Background(), json.RawMessage(`{"seq":1}`))
			if err == nil {
				t.Fatal("expected error")
			}
			if IsTransient(err) != tc.transient {
				t.Fatalf("IsTransient=%v, want %v (err=%v)", IsTransient(err), tc.transient, err)
			}
			var ce *Error
			if !errors.As(err, &ce) {
				t.Fatalf("expected *Error, got %T", err)
			}
			if !tc.transient && ce.Status != tc.status {
				t.Fatalf("protocol error should carry status, got %d", ce.Status)
			}
		})
	}
}

func TestSendTelemetryConnectionRefusedIsTransient(t *testing.T) {
	// Port from a closed listener: the dial fails.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()
	c := New(srv.URL, "dev-1", "tok", time.Second)

	err := c.SendTelemetry(context.Background(), json.RawMessage(`{"seq":1}`))
	if err == nil {
		t.Fatal("expected error")
	}
	if !IsTransient(err) {
		t.Fatalf("network failure must be transient, got %v", err)
	}
}

func TestFetchCommands(t *testing.T) {
	body := `{"commands":[{"id":"c1","device_id":"dev-1","type":"ping","status":"ACKED","must_ack":true}]}`
	c, srv, captured := newTestClient(http.StatusOK, body)
	defer srv.Close()

	cmds, err := c.FetchCommands(context.Background())
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(cmds) != 1 || cmds[0].ID != "c1" || cmds[0].Type != "ping" {
		t.Fatalf("unexpected commands %+v", cmds)
	}
	if captured.URL.Path != "/devices/dev-1/commands" {
		t.Fatalf("unexpected path %s", captured.URL.Path)
	}
}

func TestAckCommand(t *testing.T) {
	c, srv, captured := newTestClient(http.StatusOK, "")
	defer srv.Close()

	if err := c.AckCommand(context.Background(), "c1", "DONE", "pong"); err != nil {
		t.Fatalf("ack: %v", err)
	}
	if captured.URL.Path != "/commands/c1/ack" {
		t.Fatalf("unexpected path %s", captured.URL.Path)
	}
}

func TestAckConflictIsProtocol(t *testing.T) {
	c, srv, _ := newTestClient(http.StatusConflict, "")
	defer srv.Close()

	err := c.AckCommand(context.Background(), "c1", "DONE", "")
	if err == nil {
		t.Fatal("expected error")
	}
	if IsTransient(err) {
		t.Fatalf("conflict must not be retried, got %v", err)
	}
}

func TestIsTransientDefaultsTrue(t *testing.T) {
	if !IsTransient(errors.New("opaque")) {
		t.Fatal("unclassified errors should default to transient")
	}
}
