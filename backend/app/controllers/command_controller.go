package controllers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"device-tracker/backend/app/dto"
	"device-tracker/backend/app/middleware"
	"device-tracker/backend/app/models"
	"device-tracker/backend/app/services"
)

type CommandController struct {
	Commands *services.CommandService
	Devices  *services.DeviceService
}

func NewCommandController(commands *services.CommandService, devices *services.DeviceService) *CommandController {
	return &CommandController{Commands: commands, Devices: devices}
}

func commandView(cmd models.Command) dto.CommandView {
	return dto.CommandView{
		ID:        cmd.ID,
		DeviceID:  cmd.DeviceID,
		Type:      cmd.Type,
		Payload:   json.RawMessage(cmd.Payload),
		Status:    cmd.Status,
		CreatedAt: cmd.CreatedAt,
		ExpiresAt: cmd.ExpiresAt,
		MustAck:   cmd.MustAck,
	}
}

// Fetch hands the device its pending backlog. A device token only ever
// reads its own queue.
func (c *CommandController) Fetch(w http.ResponseWriter, r *http.Request) {
	claims := middleware.GetClaims(r.Context())
	if r.PathValue("id") != claims.DeviceID {
		w.WriteHeader(http.StatusForbidden)
		return
	}
	cmds, err := c.Commands.FetchForDevice(claims.DeviceID)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	out := dto.CommandList{Commands: make([]dto.CommandView, 0, len(cmds))}
	for _, cmd := range cmds {
		out.Commands = append(out.Commands, commandView(cmd))
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(out)
}

func (c *CommandController) Ack(w http.ResponseWriter, r *http.Request) {
	claims := middleware.GetClaims(r.Context())
	var req dto.CommandAck
	_ = json.NewDecoder(r.Body).Decode(&req)
	err := c.Commands.Ack(claims.DeviceID, r.PathValue("id"), req.Status, req.Details)
	switch {
	case err == nil:
		w.WriteHeader(http.StatusOK)
	case errors.Is(err, services.ErrBadAckStatus):
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"ack status must be DONE or FAILED"}`))
	case errors.Is(err, services.ErrCommandNotFound):
		w.WriteHeader(http.StatusNotFound)
	case errors.Is(err, services.ErrTerminalStatus):
		w.WriteHeader(http.StatusConflict)
		_, _ = w.Write([]byte(`{"error":"command already acknowledged"}`))
	default:
		w.WriteHeader(http.StatusInternalServerError)
	}
}

// Enqueue lets an owner push one command onto their device's queue.
func (c *CommandController) Enqueue(w http.ResponseWriter, r *http.Request) {
	claims := middleware.GetClaims(r.Context())
	d, err := c.Devices.GetOwned(r.PathValue("id"), claims.UserID)
	if err != nil {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	var req dto.EnqueueCommandRequest
	_ = json.NewDecoder(r.Body).Decode(&req)
	if req.Type == "" {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"missing command type"}`))
		return
	}
	mustAck := true
	if req.MustAck != nil {
		mustAck = *req.MustAck
	}
	cmd, err := c.Commands.Enqueue(d.ID, req.Type, req.Payload, time.Duration(req.TTLSeconds)*time.Second, mustAck)
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"` + err.Error() + `"}`))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(commandView(*cmd))
}

// History lists every command ever queued for an owned device.
func (c *CommandController) History(w http.ResponseWriter, r *http.Request) {
	claims := middleware.GetClaims(r.Context())
	d, err := c.Devices.GetOwned(r.PathValue("id"), claims.UserID)
	if err != nil {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	cmds, err := c.Commands.ListByDevice(d.ID)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	out := make([]dto.CommandView, 0, len(cmds))
	for _, cmd := range cmds {
		out = append(out, commandView(cmd))
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(out)
}
