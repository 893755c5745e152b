package controllers

import (
	"encoding/json"
	"net/http"

	"device-tracker/backend/app/middleware"
	"device-tracker/backend/app/services"
)

type AlertController struct {
	Alerts  *services.AlertService
	Devices *services.DeviceService
}

func NewAlertController(alerts *services.AlertService, devices *services.DeviceService) *AlertController {
	return &AlertController{Alerts: alerts, Devices: devices}
}

// List returns a device's alerts, optionally only unresolved ones
// (?unresolved=1).
func (c *AlertController) List(w http.ResponseWriter, r *http.Request) {
	claims := middleware.GetClaims(r.Context())
	d, err := c.Devices.GetOwned(r.PathValue("id"), claims.UserID)
	if err != nil {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	unresolved := r.URL.Query().Get("unresolved") == "1"
	alerts, err := c.Alerts.List(d.ID, unresolved)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(alerts)
}

// Resolve closes an alert. The alert must belong to a device the caller
// owns.
func (c *AlertController) Resolve(w http.ResponseWriter, r *http.Request) {
	claims := middleware.GetClaims(r.Context())
	alert, err := c.Alerts.Get(r.PathValue("id"))
	if err != nil {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	if _, err := c.Devices.GetOwned(alert.DeviceID, claims.UserID); err != nil {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	if err := c.Alerts.Resolve(alert.ID); err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusOK)
}
