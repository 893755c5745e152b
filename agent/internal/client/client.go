package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Command is a pending server command as delivered to the agent.
type Command struct {
	ID        string          `json:"id"`
	DeviceID  string          `json:"device_id"`
	Type      string          `json:"type"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	Status    string          `json:"status"`
	CreatedAt time.Time       `json:"created_at"`
	ExpiresAt *time.Time      `json:"expires_at,omitempty"`
	MustAck   bool            `json:"must_ack"`
}

// Client talks to the backend HTTP API with a device token. All calls block
// with a bounded timeout; a timeout is an ordinary transient failure.
type Client struct {
	BaseURL  string
	DeviceID string
	Token    string
	http     *http.Client
}

func New(baseURL, deviceID, token string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		BaseURL:  baseURL,
		DeviceID: deviceID,
		Token:    token,
		http:     &http.Client{Timeout: timeout},
	}
}

// SendTelemetry posts one sample. The payload is the already-serialized
// sample so queued entries round-trip byte-for-byte.
func (c *Client) SendTelemetry(ctx context.Context, sample json.RawMessage) error {
	resp, err := c.do(ctx, http.MethodPost, "/telemetry", sample)
	if err != nil {
		return transient("send telemetry", err)
	}
	defer drain(resp)
	switch {
	case resp.StatusCode == http.StatusAccepted:
		return nil
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		return protocol("send telemetry", resp.StatusCode, fmt.Errorf("rejected"))
	default:
		return transient("send telemetry", fmt.Errorf("status %d", resp.StatusCode))
	}
}

// FetchCommands returns the pending commands for this device.
func (c *Client) FetchCommands(ctx context.Context) ([]Command, error) {
	resp, err := c.do(ctx, http.MethodGet, "/devices/"+c.DeviceID+"/commands", nil)
	if err != nil {
		return nil, transient("fetch commands", err)
	}
	defer drain(resp)
	if resp.StatusCode >= 400 && resp.StatusCode < 500 {
		return nil, protocol("fetch commands", resp.StatusCode, fmt.Errorf("rejected"))
	}
	if resp.StatusCode != http.StatusOK {
		return nil, transient("fetch commands", fmt.Errorf("status %d", resp.StatusCode))
	}
	var out struct {
		Commands []Command `json:"commands"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, transient("fetch commands", fmt.Errorf("decode: %w", err))
	}
	return out.Commands, nil
}

// AckCommand reports the terminal outcome of a command.
func (c *Client) AckCommand(ctx context.Context, commandID, status, details string) error {
	body, _ := json.Marshal(map[string]string{"status": status, "details": details})
	resp, err := c.do(ctx, http.MethodPost, "/commands/"+commandID+"/ack", body)
	if err != nil {
		return transient("ack command", err)
	}
	defer drain(resp)
	switch {
	case resp.StatusCode == http.StatusOK:
		return nil
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		return protocol("ack command", resp.StatusCode, fmt.Errorf("rejected"))
	default:
		return transient("ack command", fmt.Errorf("status %d", resp.StatusCode))
	}
}

// EnrollRequest exchanges user credentials and device info for a device
// credential.
type EnrollRequest struct {
	Username    string `json:"username"`
	Password    string `json:"password"`
	DisplayName string `json:"display_name"`
	Platform    string `json:"platform"`
	Hostname    string `json:"hostname"`
}

type EnrollResponse struct {
	DeviceID string `json:"device_id"`
	Token    string `json:"token"`
}

func (c *Client) Enroll(ctx context.Context, req EnrollRequest) (*EnrollResponse, error) {
	body, _ := json.Marshal(req)
	resp, err := c.do(ctx, http.MethodPost, "/enroll", body)
	if err != nil {
		return nil, transient("enroll", err)
	}
	defer drain(resp)
	if resp.StatusCode >= 400 && resp.StatusCode < 500 {
		return nil, protocol("enroll", resp.StatusCode, fmt.Errorf("rejected"))
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return nil, transient("enroll", fmt.Errorf("status %d", resp.StatusCode))
	}
	var out EnrollResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil || out.Token == "" {
		return nil, transient("enroll", fmt.Errorf("invalid response"))
	}
	return &out, nil
}

func (c *Client) do(ctx context.Context, method, path string, body []byte) (*http.Response, error) {
	var rd io.Reader
	if body != nil {
		rd = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, rd)
	if err != nil {
		return nil, err
	}
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.http.Do(req)
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<16))
	_ = resp.Body.Close()
}
