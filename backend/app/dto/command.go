package dto

import (
	"encoding/json"
	"time"
)

type CommandView struct {
	ID        string          `json:"id"`
	DeviceID  string          `json:"device_id"`
	Type      string          `json:"type"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	Status    string          `json:"status"`
	CreatedAt time.Time       `json:"created_at"`
	ExpiresAt *time.Time      `json:"expires_at,omitempty"`
	MustAck   bool            `json:"must_ack"`
}

type CommandList struct {
	Commands []CommandView `json:"commands"`
}

type CommandAck struct {
	Status  string `json:"status"` // DONE or FAILED
	Details string `json:"details,omitempty"`
}

// EnqueueCommandRequest is the operator-facing command submission body.
type EnqueueCommandRequest struct {
	Type       string          `json:"type"`
	Payload    json.RawMessage `json:"payload,omitempty"`
	TTLSeconds int             `json:"ttl_seconds,omitempty"`
	MustAck    *bool           `json:"must_ack,omitempty"`
}
