package controllers

import (
	"encoding/json"
	"net/http"
	"time"

	"device-tracker/backend/app/middleware"
	"device-tracker/backend/app/services"
)

type ReportController struct {
	Devices *services.DeviceService
	Reports *services.ReportService
}

func NewReportController(devices *services.DeviceService, reports *services.ReportService) *ReportController {
	return &ReportController{Devices: devices, Reports: reports}
}

// Get renders the activity report for an owned device. The from/to query
// parameters accept RFC 3339 timestamps or plain dates and default to the
// last 30 days.
func (c *ReportController) Get(w http.ResponseWriter, r *http.Request) {
	claims := middleware.GetClaims(r.Context())
	d, err := c.Devices.GetOwned(r.PathValue("id"), claims.UserID)
	if err != nil {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	from, ok := parseReportTime(r.URL.Query().Get("from"))
	if !ok {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"bad from date"}`))
		return
	}
	to, ok := parseReportTime(r.URL.Query().Get("to"))
	if !ok {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"bad to date"}`))
		return
	}
	report, err := c.Reports.Generate(d, from, to)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(report)
}

func parseReportTime(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, true
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, true
	}
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, true
	}
	return time.Time{}, false
}
