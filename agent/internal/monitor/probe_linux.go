//go:build linux

package monitor

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"device-tracker/agent/internal/logger"
)

func osRelease() string {
	b, err := os.ReadFile("/proc/sys/kernel/osrelease")
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(b))
}

// scanWiFi shells out to nmcli. A missing NetworkManager or a scan failure
// yields an empty list, not an error.
func scanWiFi() []WiFiNetwork {
	out, err := runWithTimeout(5*time.Second, "nmcli", "-t", "-f", "SSID,BSSID,SIGNAL", "dev", "wifi")
	if err != nil {
		logger.Warnf("WiFi scan unavailable: %v", err)
		return nil
	}
	var networks []WiFiNetwork
	for _, line := range strings.Split(strings.TrimSpace(out), "\n") {
		if line == "" {
			continue
		}
		// BSSID octets are escaped colons in nmcli terse output.
		fields := splitUnescaped(line, ':')
		if len(fields) < 3 {
			continue
		}
		ssid := fields[0]
		if ssid == "" {
			ssid = "Hidden"
		}
		signal := -100
		if pct, err := strconv.Atoi(fields[2]); err == nil {
			// nmcli reports percent; approximate dBm.
			signal = -100 + pct/2
		}
		networks = append(networks, WiFiNetwork{
			SSID:   ssid,
			BSSID:  strings.ReplaceAll(fields[1], "\\:", ":"),
			Signal: signal,
		})
		if len(networks) >= maxWiFiNetworks {
			break
		}
	}
	return networks
}

func batteryLevel() *int {
	matches, _ := filepath.Glob("/sys/class/power_supply/BAT*/capacity")
	for _, path := range matches {
		b, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		if pct, err := strconv.Atoi(strings.TrimSpace(string(b))); err == nil {
			return &pct
		}
	}
	return nil
}

func runWithTimeout(d time.Duration, name string, args ...string) (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), d)
	defer cancel()
	out, err := exec.CommandContext(ctx, name, args...).Output()
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// splitUnescaped splits on sep, honouring backslash escapes.
func splitUnescaped(s string, sep byte) []string {
	var fields []string
	var cur strings.Builder
	escaped := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case escaped:
			cur.WriteByte('\\')
			cur.WriteByte(c)
			escaped = false
		case c == '\\':
			escaped = true
		case c == sep:
			fields = append(fields, cur.String())
			cur.Reset()
		default:
			cur.WriteByte(c)
		}
	}
	fields = append(fields, cur.String())
	return fields
}
