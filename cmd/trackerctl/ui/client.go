package ui

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Client talks to the tracker backend REST API on behalf of an operator.
type Client struct {
	BaseURL string
	Token   string
	http    *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		BaseURL: baseURL,
		http:    &http.Client{Timeout: 15 * time.Second},
	}
}

type Device struct {
	ID           string     `json:"ID"`
	DisplayName  string     `json:"DisplayName"`
	Platform     string     `json:"Platform"`
	Hostname     string     `json:"Hostname"`
	Lost         bool       `json:"Lost"`
	LastSeenAt   *time.Time `json:"LastSeenAt"`
	LastIP       string     `json:"LastIP"`
	LastASN      int        `json:"LastASN"`
	LastLocation string     `json:"LastLocation"`
}

type Alert struct {
	ID         string     `json:"ID"`
	DeviceID   string     `json:"DeviceID"`
	Type       string     `json:"Type"`
	Severity   string     `json:"Severity"`
	Details    string     `json:"Details"`
	CreatedAt  time.Time  `json:"CreatedAt"`
	ResolvedAt *time.Time `json:"ResolvedAt"`
}

type Command struct {
	ID        string          `json:"id"`
	Type      string          `json:"type"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	Status    string          `json:"status"`
	CreatedAt time.Time       `json:"created_at"`
}

func (c *Client) do(method, path string, body, out any) error {
	var buf io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		buf = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, c.BaseURL+path, buf)
	if err != nil {
		return err
	}
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%s %s: %s (%s)", method, path, resp.Status, bytes.TrimSpace(msg))
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

func (c *Client) Login(username, password string) error {
	var resp struct {
		AccessToken string `json:"access_token"`
	}
	err := c.do(http.MethodPost, "/login", map[string]string{"username": username, "password": password}, &resp)
	if err != nil {
		return err
	}
	c.Token = resp.AccessToken
	return nil
}

func (c *Client) ListDevices() ([]Device, error) {
	var out []Device
	return out, c.do(http.MethodGet, "/devices", nil, &out)
}

func (c *Client) GetDevice(id string) (*Device, error) {
	var out Device
	if err := c.do(http.MethodGet, "/devices/"+id, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) ListAlerts(deviceID string, unresolvedOnly bool) ([]Alert, error) {
	path := "/devices/" + deviceID + "/alerts"
	if unresolvedOnly {
		path += "?unresolved=1"
	}
	var out []Alert
	return out, c.do(http.MethodGet, path, nil, &out)
}

func (c *Client) ResolveAlert(alertID string) error {
	return c.do(http.MethodPost, "/alerts/"+alertID+"/resolve", nil, nil)
}

func (c *Client) MarkLost(deviceID, message string) error {
	var body any
	if message != "" {
		body = map[string]string{"message": message}
	}
	return c.do(http.MethodPost, "/devices/"+deviceID+"/lost", body, nil)
}

func (c *Client) MarkFound(deviceID string) error {
	return c.do(http.MethodPost, "/devices/"+deviceID+"/found", nil, nil)
}

func (c *Client) SendCommand(deviceID, cmdType string, payload json.RawMessage, ttlSeconds int) (*Command, error) {
	body := map[string]any{"type": cmdType}
	if len(payload) > 0 {
		body["payload"] = payload
	}
	if ttlSeconds > 0 {
		body["ttl_seconds"] = ttlSeconds
	}
	var out Command
	if err := c.do(http.MethodPost, "/devices/"+deviceID+"/commands", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) CommandLog(deviceID string) ([]Command, error) {
	var out []Command
	return out, c.do(http.MethodGet, "/devices/"+deviceID+"/commands/log", nil, &out)
}
