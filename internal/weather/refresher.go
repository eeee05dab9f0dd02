package weather

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// Refresher force-refreshes the home location on a cron schedule so the
// cached reading is renewed before visitors hit an expired slot.
type Refresher struct {
	client  *Client
	cron    *cron.Cron
	timeout time.Duration
	logger  *slog.Logger
}

// NewRefresher schedules warm-ups using a standard five-field cron spec.
// Overlapping runs are skipped.
func NewRefresher(client *Client, schedule string, timeout time.Duration, logger *slog.Logger) (*Refresher, error) {
	r := &Refresher{
		client:  client,
		cron:    cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		timeout: timeout,
		logger:  logger,
	}
	if _, err := r.cron.AddFunc(schedule, r.runScheduled); err != nil {
		return nil, fmt.Errorf("invalid WEATHER_REFRESH_CRON %q: %w", schedule, err)
	}
	return r, nil
}

// Start runs the schedule until ctx is cancelled, then waits for any
// in-flight refresh to finish.
func (r *Refresher) Start(ctx context.Context) {
	r.logger.Info("weather refresher started", "entries", len(r.cron.Entries()))
	r.cron.Start()
	<-ctx.Done()
	<-r.cron.Stop().Done()
	r.logger.Info("weather refresher stopped")
}

// RunOnce force-refreshes the home location. A provider failure is returned
// even when a cached reading is still being served.
func (r *Refresher) RunOnce(ctx context.Context) error {
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}
	res, err := r.client.refreshHome(ctx)
	if err != nil {
		return err
	}
	if res.fetchErr != nil {
		return fmt.Errorf("refresh failed, cached reading kept: %w", res.fetchErr)
	}
	r.logger.Debug("weather refreshed", "source", res.result,
		"location", res.data.Location, "temperature", res.data.Temperature)
	return nil
}

func (r *Refresher) runScheduled() {
	if err := r.RunOnce(context.Background()); err != nil {
		r.logger.Warn("scheduled weather refresh failed", "error", err)
	}
}
