package usecase

import (
	"context"
	"log/slog"
	"time"

	"EnrollmentHealth/internal/ports"
)

// Runner wires the ticker driver with the refresh pipeline.
type Runner struct {
	driver   ports.Scheduler
	pipeline *Pipeline
	logger   *slog.Logger
}

// NewRunner returns a helper to start/stop recurring refreshes.
func NewRunner(driver ports.Scheduler, pipeline *Pipeline, logger *slog.Logger) *Runner {
	return &Runner{driver: driver, pipeline: pipeline, logger: logger}
}

// Start registers the pipeline with the provided scheduler.
func (r *Runner) Start(ctx context.Context) error {
	if r.driver == nil || r.pipeline == nil {
		return nil
	}

	job := func(trigger time.Time) {
		if _, err := r.pipeline.Refresh(ctx, trigger); err != nil {
			if r.logger != nil {
				r.logger.Error("refresh failed", "error", err)
			}
		}
	}

	return r.driver.Start(ctx, job)
}

// Stop gracefully tears down the underlying scheduler.
func (r *Runner) Stop(ctx context.Context) error {
	if r.driver == nil {
		return nil
	}

	return r.driver.Stop(ctx)
}
