package router

import (
	"net/http"

	"device-tracker/backend/app/controllers"
	"device-tracker/backend/app/middleware"
)

func NewRouter(
	authCtrl *controllers.AuthController,
	adminCtrl *controllers.AdminController,
	deviceCtrl *controllers.DeviceController,
	telemetryCtrl *controllers.TelemetryController,
	cmdCtrl *controllers.CommandController,
	alertCtrl *controllers.AlertController,
	reportCtrl *controllers.ReportController,
	mw *middleware.Auth,
) http.Handler {
	mux := http.NewServeMux()

	// public
	mux.HandleFunc("POST /login", authCtrl.Login)
	mux.HandleFunc("POST /enroll", deviceCtrl.Enroll)

	// device-token endpoints (the agent)
	mux.Handle("POST /telemetry", mw.RequireDevice(http.HandlerFunc(telemetryCtrl.Ingest)))
	mux.Handle("GET /devices/{id}/commands", mw.RequireDevice(http.HandlerFunc(cmdCtrl.Fetch)))
	mux.Handle("POST /commands/{id}/ack", mw.RequireDevice(http.HandlerFunc(cmdCtrl.Ack)))

	// owner endpoints
	mux.Handle("GET /devices", mw.RequireAuth(http.HandlerFunc(deviceCtrl.List)))
	mux.Handle("GET /devices/{id}", mw.RequireAuth(http.HandlerFunc(deviceCtrl.Get)))
	mux.Handle("POST /devices/{id}/lost", mw.RequireAuth(http.HandlerFunc(deviceCtrl.MarkLost)))
	mux.Handle("POST /devices/{id}/found", mw.RequireAuth(http.HandlerFunc(deviceCtrl.MarkFound)))
	mux.Handle("POST /devices/{id}/commands", mw.RequireAuth(http.HandlerFunc(cmdCtrl.Enqueue)))
	mux.Handle("GET /devices/{id}/commands/log", mw.RequireAuth(http.HandlerFunc(cmdCtrl.History)))
	mux.Handle("GET /devices/{id}/alerts", mw.RequireAuth(http.HandlerFunc(alertCtrl.List)))
	mux.Handle("GET /devices/{id}/report", mw.RequireAuth(http.HandlerFunc(reportCtrl.Get)))
	mux.Handle("POST /alerts/{id}/resolve", mw.RequireAuth(http.HandlerFunc(alertCtrl.Resolve)))

	// admin
	mux.Handle("POST /admin/users", mw.RequireAdmin(http.HandlerFunc(adminCtrl.CreateUser)))

	return mux
}
