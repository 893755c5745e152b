package controllers

import (
	"encoding/json"
	"net"
	"net/http"
	"strings"

	"device-tracker/backend/app/dto"
	"device-tracker/backend/app/middleware"
	"device-tracker/backend/app/services"
)

type TelemetryController struct {
	Telemetry *services.TelemetryService
}

func NewTelemetryController(telemetry *services.TelemetryService) *TelemetryController {
	return &TelemetryController{Telemetry: telemetry}
}

// clientIP prefers the first X-Forwarded-For hop so geo lookups see the
// real origin behind a reverse proxy.
func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if first, _, ok := strings.Cut(xff, ","); ok {
			return strings.TrimSpace(first)
		}
		return strings.TrimSpace(xff)
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

// Ingest accepts one sample from the device identified by the token.
// Duplicates by (device, seq) are accepted and dropped, so the response is
// 202 either way.
func (c *TelemetryController) Ingest(w http.ResponseWriter, r *http.Request) {
	claims := middleware.GetClaims(r.Context())
	var sample dto.TelemetrySample
	if err := json.NewDecoder(r.Body).Decode(&sample); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"malformed sample"}`))
		return
	}
	if sample.Seq < 1 {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"seq must be >= 1"}`))
		return
	}
	if sample.Battery != nil && (*sample.Battery < 0 || *sample.Battery > 100) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"battery out of range"}`))
		return
	}
	if err := c.Telemetry.Ingest(r.Context(), claims.DeviceID, clientIP(r), sample); err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}
