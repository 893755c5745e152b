package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"device-tracker/backend/global"
	"device-tracker/backend/initialize"
	"device-tracker/backend/server"
)

func main() {
	configPath := flag.String("config", "backend.yaml", "Path to backend config file")
	flag.Parse()

	app, err := initialize.Build(*configPath)
	if err != nil {
		global.Logger.Fatal().Err(err).Msg("startup failed")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go app.Sweeper.Run(ctx)

	shutdown, err := server.StartHTTPServer(app.Cfg.HTTP.Host, app.Cfg.HTTP.Port, app.Router)
	if err != nil {
		global.Logger.Fatal().Err(err).Msg("listen failed")
	}

	<-ctx.Done()
	global.Logger.Info().Msg("shutting down")

	drainCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := shutdown(drainCtx); err != nil {
		global.Logger.Error().Err(err).Msg("shutdown incomplete")
	}
}
