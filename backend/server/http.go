package server

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"device-tracker/backend/global"
)

// StartHTTPServer serves handler in the background and returns a shutdown
// func that drains in-flight requests.
func StartHTTPServer(host string, port int, handler http.Handler) (func(context.Context) error, error) {
	addr := net.JoinHostPort(host, fmt.Sprintf("%d", port))
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	go func() {
		if err := srv.Serve(ln); err != nil && err != http.ErrServerClosed {
			global.Logger.Error().Err(err).Msg("http server stopped")
		}
	}()
	global.Logger.Info().Str("addr", addr).Msg("http server listening")
	return srv.Shutdown, nil
}
