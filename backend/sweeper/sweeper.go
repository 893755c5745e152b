package sweeper

import (
	"context"
	"time"

	"device-tracker/backend/app/services"
	"device-tracker/backend/global"
)

// Sweeper runs the silent-device check on a fixed interval.
type Sweeper struct {
	Alerts   *services.AlertService
	Interval time.Duration
}

func New(alerts *services.AlertService, interval time.Duration) *Sweeper {
	if interval <= 0 {
		interval = time.Minute
	}
	return &Sweeper{Alerts: alerts, Interval: interval}
}

// Run blocks until ctx is cancelled. One sweep failure is logged and the
// next tick retries; the loop never dies on its own.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			global.Logger.Info().Msg("sweeper stopped")
			return
		case <-ticker.C:
			created, err := s.Alerts.CheckHeartbeats()
			if err != nil {
				global.Logger.Error().Err(err).Msg("heartbeat sweep failed")
				continue
			}
			if created > 0 {
				global.Logger.Info().Int("alerts", created).Msg("heartbeat sweep flagged devices")
			}
		}
	}
}
