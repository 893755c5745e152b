package dto

import (
	"encoding/json"
	"time"
)

// Report is the owner-facing activity summary for one device over a date
// range.
type Report struct {
	Device      ReportDevice          `json:"device"`
	Timeline    []ReportTimelineEntry `json:"timeline"`
	WiFiSummary []ReportWiFiNetwork   `json:"wifi_summary"`
	Commands    []CommandView         `json:"commands"`
	GeneratedAt time.Time             `json:"report_generated"`
	From        time.Time             `json:"from"`
	To          time.Time             `json:"to"`
}

type ReportDevice struct {
	ID          string     `json:"id"`
	OwnerID     uint       `json:"owner_id"`
	DisplayName string     `json:"display_name"`
	Platform    string     `json:"platform"`
	Lost        bool       `json:"lost"`
	EnrolledAt  time.Time  `json:"enrolled_at"`
	LastSeenAt  *time.Time `json:"last_seen_at,omitempty"`
}

// ReportTimelineEntry is one telemetry event in report form.
type ReportTimelineEntry struct {
	TS       time.Time       `json:"ts"`
	Seq      uint64          `json:"seq"`
	Hostname string          `json:"hostname,omitempty"`
	IP       string          `json:"ip,omitempty"`
	ASN      int             `json:"asn,omitempty"`
	Location json.RawMessage `json:"location,omitempty"`
	WiFi     json.RawMessage `json:"wifi,omitempty"`
	Battery  *int            `json:"battery,omitempty"`
}

// ReportWiFiNetwork aggregates every sighting of one BSSID in the range.
type ReportWiFiNetwork struct {
	BSSID     string    `json:"bssid"`
	SSIDs     []string  `json:"ssids"`
	FirstSeen time.Time `json:"first_seen"`
	LastSeen  time.Time `json:"last_seen"`
	SeenCount int       `json:"seen_count"`
}
