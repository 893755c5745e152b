package monitor

import "time"

// maxWiFiNetworks bounds a single sample's scan result.
const maxWiFiNetworks = 10

// WiFiNetwork is one observed access point.
type WiFiNetwork struct {
	SSID   string `json:"ssid"`
	BSSID  string `json:"bssid"`
	Signal int    `json:"signal"` // dBm
}

// Sample is one telemetry heartbeat. Immutable once collected; Seq is
// stamped from the persisted counter and never reused.
type Sample struct {
	Seq      uint64            `json:"seq"`
	TS       time.Time         `json:"ts"`
	Hostname string            `json:"hostname"`
	OS       string            `json:"os"`
	WiFi     []WiFiNetwork     `json:"wifi"`
	Battery  *int              `json:"battery,omitempty"`
	Meta     map[string]string `json:"meta,omitempty"`
}
