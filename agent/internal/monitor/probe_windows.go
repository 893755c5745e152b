//go:build windows

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

func osRelease() string {
	out, err := runWithTimeout(3*time.Second, "cmd", "/c", "ver")
	if err != nil {
		return ""
	}
	return strings.TrimSpace(out)
}

var winSignal = regexp.MustCompile(`(\d+)%`)

func scanWiFi() []WiFiNetwork {
	out, err := runWithTimeout(5*time.Second, "netsh", "wlan", "show", "networks", "mode=bssid")
	if err != nil {
		logger.Warnf("WiFi scan unavailable: %v", err)
		return nil
	}
	var networks []WiFiNetwork
	var ssid string
	signal := -100
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(line, "SSID ") && strings.Contains(line, ":"):
			ssid = strings.TrimSpace(strings.SplitN(line, ":", 2)[1])
			if ssid == "" {
				ssid = "Hidden"
			}
		case strings.HasPrefix(line, "Signal") && strings.Contains(line, ":"):
			if m := winSignal.FindStringSubmatch(line); m != nil {
				if pct, err := strconv.Atoi(m[1]); err == nil {
					// netsh reports percent; approximate dBm.
					signal = -100 + pct/2
				}
			}
		case strings.HasPrefix(line, "BSSID") && strings.Contains(line, ":") && ssid != "":
			bssid := strings.TrimSpace(strings.SplitN(line, ":", 2)[1])
			networks = append(networks, WiFiNetwork{SSID: ssid, BSSID: bssid, Signal: signal})
			if len(networks) >= maxWiFiNetworks {
				return networks
			}
		}
	}
	return networks
}

func batteryLevel() *int {
	out, err := runWithTimeout(3*time.Second, "WMIC", "Path", "Win32_Battery", "Get", "EstimatedChargeRemaining")
	if err != nil {
		return nil
	}
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		if pct, err := strconv.Atoi(line); err == nil {
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
