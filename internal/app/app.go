package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"EnrollmentHealth/internal/assess"
	"EnrollmentHealth/internal/config"
	"EnrollmentHealth/internal/domain"
	"EnrollmentHealth/internal/infrastructure/email"
	"EnrollmentHealth/internal/infrastructure/forms"
	"EnrollmentHealth/internal/infrastructure/recordstore"
	"EnrollmentHealth/internal/infrastructure/scheduler"
	"EnrollmentHealth/internal/infrastructure/tracking"
	"EnrollmentHealth/internal/logging"
	"EnrollmentHealth/internal/packet"
	"EnrollmentHealth/internal/ports"
	"EnrollmentHealth/internal/projection"
	"EnrollmentHealth/internal/remind"
	"EnrollmentHealth/internal/report"
	"EnrollmentHealth/internal/status"
	"EnrollmentHealth/internal/usecase"
)

// Application wires configs to use cases and lifecycle orchestration.
type Application struct {
	cfg       config.Config
	pipeline  *usecase.Pipeline
	runner    *usecase.Runner
	completer *assess.Completer
	records   ports.RecordStore
	reminders *remind.Scheduler
	logger    *slog.Logger
}

// New builds a runnable application instance.
func New(ctx context.Context, cfg config.Config, baseLogger *slog.Logger) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	records := recordstore.NewClient(cfg.RecordStore, cfg.Sources, nil)
	formSource := forms.NewCSVSource(cfg.Forms, nil)

	trackingStore, err := newTrackingStore(ctx, cfg.Reminders)
	if err != nil {
		return nil, err
	}

	normalizer := status.New(cfg.Sources, cfg.Statuses)
	scorer := packet.NewScorer(cfg.Forms.Weights())
	trigger := assess.NewTrigger(normalizer)
	reminders := remind.NewScheduler(trackingStore, cfg.Reminders.Interval())
	projector := projection.NewEngine(cfg.Projection.Rate)

	var notifier ports.Notifier
	if cfg.Reminders.Enabled {
		notifier = email.NewNotifier(cfg.Reminders)
	}

	pipeline := usecase.NewPipeline(usecase.PipelineDeps{
		RecordStore: records,
		FormSource:  formSource,
		Notifier:    notifier,
		Normalizer:  normalizer,
		Scorer:      scorer,
		Trigger:     trigger,
		Reminders:   reminders,
		Projector:   projector,
		Config:      cfg,
		Logger:      baseLogger.With("component", "pipeline"),
	})

	driver := scheduler.NewTickerScheduler(time.Duration(cfg.Scheduler.IntervalHours) * time.Hour)
	runner := usecase.NewRunner(driver, pipeline, baseLogger.With("component", "runner"))

	return &Application{
		cfg:       cfg,
		pipeline:  pipeline,
		runner:    runner,
		completer: assess.NewCompleter(records, cfg.RecordStore, reminders),
		records:   records,
		reminders: reminders,
		logger:    baseLogger,
	}, nil
}

func newTrackingStore(ctx context.Context, cfg config.ReminderConfig) (ports.TrackingStore, error) {
	if cfg.TrackingDSN != "" {
		store, err := tracking.OpenPostgresStore(ctx, cfg.TrackingDSN)
		if err != nil {
			return nil, domain.NewError(domain.ErrKindConfiguration, err)
		}
		return store, nil
	}
	return tracking.NewFileStore(cfg.TrackingFile), nil
}

// RunOnce executes a single refresh batch.
func (a *Application) RunOnce(ctx context.Context) error {
	now := time.Now().In(a.cfg.Scheduler.Location())
	summary, err := a.pipeline.Refresh(ctx, now)
	if err != nil {
		return err
	}
	if len(summary.Errors) > 0 {
		a.logger.Warn("refresh finished with errors", "run_id", summary.RunID, "errors", len(summary.Errors))
	}
	return nil
}

// Run starts the recurring refresh schedule and blocks until ctx is done.
func (a *Application) Run(ctx context.Context) error {
	if err := a.runner.Start(ctx); err != nil {
		return err
	}
	<-ctx.Done()
	return a.runner.Stop(context.Background())
}

// Report recomputes the canonical view and writes the summary and action
// CSV exports.
func (a *Application) Report(ctx context.Context) error {
	now := time.Now().In(a.cfg.Scheduler.Location())
	records, proj, err := a.pipeline.Snapshot(ctx, now)
	if err != nil {
		return err
	}

	analysis := report.Analyze(records)
	if err := report.ExportCSVs(analysis, len(records), proj, a.cfg.Report); err != nil {
		return err
	}

	a.logger.Info("report exported",
		"records", len(records),
		"stale", analysis.StaleCount,
		"summary_csv", a.cfg.Report.SummaryCSV,
		"actions_csv", a.cfg.Report.ActionsCSV)
	return nil
}

// CompleteAssessment records an externally submitted assessment.
func (a *Application) CompleteAssessment(ctx context.Context, recordID, assessor string) error {
	if recordID == "" || assessor == "" {
		return domain.Errorf(domain.ErrKindConfiguration, "record id and assessor are required")
	}
	return a.completer.Complete(ctx, recordID, assessor, time.Now())
}

// ResetReminders clears the whole reminder tracking store, so the next
// refresh treats every pending record as never notified.
func (a *Application) ResetReminders(ctx context.Context) error {
	if err := a.reminders.ResetAll(ctx); err != nil {
		return err
	}
	a.logger.Info("reminder tracking cleared")
	return nil
}

// ReopenAssessment moves a completed assessment back to pending.
func (a *Application) ReopenAssessment(ctx context.Context, recordID string) error {
	if recordID == "" {
		return domain.Errorf(domain.ErrKindConfiguration, "record id is required")
	}

	labels := make([]string, 0, len(a.cfg.Sources))
	for _, src := range a.cfg.Sources {
		labels = append(labels, src.Label)
	}
	records, err := a.records.FetchAll(ctx, labels)
	if err != nil {
		return err
	}

	for _, record := range records {
		if record.ID == recordID {
			if record.Assessment.Phase != domain.AssessmentCompleted {
				return fmt.Errorf("record %s has no completed assessment to reopen", recordID)
			}
			return a.completer.Reopen(ctx, recordID, record.Assessment.Revision)
		}
	}

	return fmt.Errorf("record %s not found", recordID)
}
