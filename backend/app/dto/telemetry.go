package dto

import "time"

type WiFiObservation struct {
	SSID   string `json:"ssid"`
	BSSID  string `json:"bssid"`
	Signal int    `json:"signal"`
}

// TelemetrySample is the wire form of one agent heartbeat.
type TelemetrySample struct {
	Seq      uint64            `json:"seq"`
	TS       time.Time         `json:"ts"`
	Hostname string            `json:"hostname"`
	OS       string            `json:"os"`
	WiFi     []WiFiObservation `json:"wifi"`
	Battery  *int              `json:"battery,omitempty"`
	Meta     map[string]string `json:"meta,omitempty"`
}
