//go:build darwin

package monitor

import (
	"context"
	"os/exec"
	"regexp"
	"strconv"
	"strings"
	"time"

	"device-tracker/agent/internal/logger"
)

const airportBin = "/System/Library/PrivateFrameworks/Apple80211.framework/Versions/Current/Resources/airport"

func osRelease() string {
	out, err := runWithTimeout(2*time.Second, "sw_vers", "-productVersion")
	if err != nil {
		return ""
	}
	return strings.TrimSpace(out)
}

func scanWiFi() []WiFiNetwork {
	out, err := runWithTimeout(5*time.Second, airportBin, "-s")
	if err != nil {
		logger.Warnf("WiFi scan unavailable: %v", err)
		return nil
	}
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) < 2 {
		return nil
	}
	var networks []WiFiNetwork
	for _, line := range lines[1:] { // skip header
		fields := strings.Fields(line)
		if len(fields) < 3 {
			continue
		}
		signal, err := strconv.Atoi(fields[2])
		if err != nil {
			continue
		}
		networks = append(networks, WiFiNetwork{SSID: fields[0], BSSID: fields[1], Signal: signal})
		if len(networks) >= maxWiFiNetworks {
			break
		}
	}
	return networks
}

var battPct = regexp.MustCompile(`(\d+)%`)

func batteryLevel() *int {
	out, err := runWithTimeout(2*time.Second, "pmset", "-g", "batt")
	if err != nil {
		return nil
	}
	m := battPct.FindStringSubmatch(out)
	if m == nil {
		return nil
	}
	pct, err := strconv.Atoi(m[1])
	if err != nil {
		return nil
	}
	return &pct
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
