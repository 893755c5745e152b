package controllers

import (
	"encoding/json"
	"net/http"

	"device-tracker/backend/app/dto"
	jwtutil "device-tracker/backend/app/jwt"
	"device-tracker/backend/app/middleware"
	"device-tracker/backend/app/models"
	"device-tracker/backend/app/services"
)

type DeviceController struct {
	Devices  *services.DeviceService
	Users    *services.UserService
	Commands *services.CommandService
	Signer   *jwtutil.Signer
}

func NewDeviceController(devices *services.DeviceService, users *services.UserService, commands *services.CommandService, signer *jwtutil.Signer) *DeviceController {
	return &DeviceController{Devices: devices, Users: users, Commands: commands, Signer: signer}
}

// Enroll registers a device under the credentials in the body and returns
// the device id plus its long-lived token. No Bearer token required; the
// username/password pair authenticates the enrollment itself.
func (c *DeviceController) Enroll(w http.ResponseWriter, r *http.Request) {
	var req dto.EnrollRequest
	_ = json.NewDecoder(r.Body).Decode(&req)
	if req.Username == "" || req.Password == "" {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"missing credentials"}`))
		return
	}
	u, err := c.Users.ValidateCredentials(req.Username, req.Password)
	if err != nil {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":"invalid credentials"}`))
		return
	}
	d, err := c.Devices.Enroll(u.ID, req.DisplayName, req.Platform, req.Hostname)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	token, err := c.Signer.SignDevice(d.ID)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(dto.EnrollResponse{DeviceID: d.ID, Token: token})
}

func (c *DeviceController) List(w http.ResponseWriter, r *http.Request) {
	claims := middleware.GetClaims(r.Context())
	devices, err := c.Devices.ListByOwner(claims.UserID)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(devices)
}

// owned resolves the path device against the authenticated owner.
func (c *DeviceController) owned(w http.ResponseWriter, r *http.Request) *models.Device {
	claims := middleware.GetClaims(r.Context())
	d, err := c.Devices.GetOwned(r.PathValue("id"), claims.UserID)
	if err != nil {
		w.WriteHeader(http.StatusNotFound)
		return nil
	}
	return d
}

func (c *DeviceController) Get(w http.ResponseWriter, r *http.Request) {
	d := c.owned(w, r)
	if d == nil {
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(d)
}

type lostRequest struct {
	Message string `json:"message,omitempty"`
}

func (c *DeviceController) MarkLost(w http.ResponseWriter, r *http.Request) {
	d := c.owned(w, r)
	if d == nil {
		return
	}
	var req lostRequest
	_ = json.NewDecoder(r.Body).Decode(&req)
	if err := c.Commands.MarkLost(d.ID, req.Message); err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "lost"})
}

func (c *DeviceController) MarkFound(w http.ResponseWriter, r *http.Request) {
	d := c.owned(w, r)
	if d == nil {
		return
	}
	if err := c.Commands.MarkFound(d.ID); err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "found"})
}
