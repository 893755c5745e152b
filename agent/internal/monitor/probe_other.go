//go:build !linux && !darwin && !windows

package monitor

func osRelease() string         { return "" }
func scanWiFi() []WiFiNetwork   { return nil }
func batteryLevel() *int        { return nil }
