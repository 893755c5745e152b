package monitor

import (
	"fmt"
	"os"
	"runtime"
	"time"

	"device-tracker/agent/internal/logger"
)

// Collector builds telemetry samples. Probe failures degrade to empty or
// absent fields; only a sequence persistence fault aborts a collection.
type Collector struct {
	seq *Sequence
}

func NewCollector(seq *Sequence) *Collector { return &Collector{seq: seq} }

func (c *Collector) Collect() (*Sample, error) {
	seq, err := c.seq.Next()
	if err != nil {
		return nil, fmt.Errorf("collect: %w", err)
	}

	sample := &Sample{
		Seq:      seq,
		TS:       time.Now().UTC(),
		Hostname: hostname(),
		OS:       osInfo(),
		WiFi:     scanWiFi(),
		Battery:  batteryLevel(),
		Meta:     map[string]string{},
	}
	if len(sample.WiFi) > maxWiFiNetworks {
		sample.WiFi = sample.WiFi[:maxWiFiNetworks]
	}
	logger.Infof("Collected telemetry seq=%d wifi=%d", seq, len(sample.WiFi))
	return sample, nil
}

func hostname() string {
	h, err := os.Hostname()
	if err != nil {
		logger.Errorf("Hostname unavailable: %v", err)
		return "unknown"
	}
	return h
}

func osInfo() string {
	if rel := osRelease(); rel != "" {
		return runtime.GOOS + "-" + rel
	}
	return runtime.GOOS
}
