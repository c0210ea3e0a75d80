package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"EnrollmentHealth/internal/assess"
	"EnrollmentHealth/internal/config"
	"EnrollmentHealth/internal/domain"
	"EnrollmentHealth/internal/match"
	"EnrollmentHealth/internal/packet"
	"EnrollmentHealth/internal/ports"
	"EnrollmentHealth/internal/projection"
	"EnrollmentHealth/internal/remind"
	"EnrollmentHealth/internal/status"
)

// PipelineDeps wires all driven adapters into the refresh pipeline.
type PipelineDeps struct {
	RecordStore ports.RecordStore
	FormSource  ports.FormSource
	Notifier    ports.Notifier
	Normalizer  *status.Normalizer
	Scorer      *packet.Scorer
	Trigger     *assess.Trigger
	Reminders   *remind.Scheduler
	Projector   *projection.Engine
	Config      config.Config
	Logger      *slog.Logger
}

// Pipeline implements the batch refresh workflow: pull every record and
// form row, recompute all derived state from scratch, send due reminders,
// and aggregate the projection. The reminder tracking store is the only
// state surviving between runs.
type Pipeline struct {
	recordStore ports.RecordStore
	formSource  ports.FormSource
	notifier    ports.Notifier
	normalizer  *status.Normalizer
	scorer      *packet.Scorer
	trigger     *assess.Trigger
	reminders   *remind.Scheduler
	projector   *projection.Engine
	cfg         config.Config
	logger      *slog.Logger
}

// NewPipeline constructs the orchestration component.
func NewPipeline(deps PipelineDeps) *Pipeline {
	return &Pipeline{
		recordStore: deps.RecordStore,
		formSource:  deps.FormSource,
		notifier:    deps.Notifier,
		normalizer:  deps.Normalizer,
		scorer:      deps.Scorer,
		trigger:     deps.Trigger,
		reminders:   deps.Reminders,
		projector:   deps.Projector,
		cfg:         deps.Config,
		logger:      deps.Logger,
	}
}

type recordView struct {
	record domain.CanonicalRecord
	packet domain.PacketSummary
	phase  domain.AssessmentPhase
}

// Refresh runs one full batch: fetch, reconcile, remind, project. A record
// store failure aborts this refresh only; everything downstream degrades
// per source instead of failing the batch.
func (p *Pipeline) Refresh(ctx context.Context, now time.Time) (domain.BatchSummary, error) {
	summary := domain.BatchSummary{
		RunID:   uuid.NewString(),
		Started: now,
	}
	logger := p.log().With("run_id", summary.RunID)

	views, err := p.derive(ctx, now, logger)
	if err != nil {
		return summary, err
	}
	summary.Processed = len(views)

	if p.cfg.Reminders.Enabled && p.notifier != nil {
		summary.Reminders = p.sendReminders(ctx, views, now, logger)
	} else {
		for _, view := range views {
			if view.phase == domain.AssessmentPending {
				summary.Reminders.Pending++
			}
		}
	}
	summary.Errors = append(summary.Errors, summary.Reminders.Errors...)
	summary.Failed = len(summary.Errors)

	records := make([]domain.CanonicalRecord, len(views))
	for i, view := range views {
		records[i] = view.record
	}
	summary.Projection = p.projector.Project(records)

	logger.Info("refresh complete",
		"processed", summary.Processed,
		"failed", summary.Failed,
		"reminders_sent", summary.Reminders.Sent,
		"reminders_skipped", summary.Reminders.Skipped,
		"projected_total", summary.Projection.ProjectedTotal)

	return summary, nil
}

// Snapshot recomputes the canonical view without side effects, for report
// and export modes.
func (p *Pipeline) Snapshot(ctx context.Context, now time.Time) ([]domain.CanonicalRecord, domain.ProjectionResult, error) {
	views, err := p.derive(ctx, now, p.log())
	if err != nil {
		return nil, domain.ProjectionResult{}, err
	}

	records := make([]domain.CanonicalRecord, len(views))
	for i, view := range views {
		records[i] = view.record
	}

	return records, p.projector.Project(records), nil
}

func (p *Pipeline) derive(ctx context.Context, now time.Time, logger *slog.Logger) ([]recordView, error) {
	labels := make([]string, 0, len(p.cfg.Sources))
	for _, src := range p.cfg.Sources {
		labels = append(labels, src.Label)
	}

	records, err := p.recordStore.FetchAll(ctx, labels)
	if err != nil {
		return nil, fmt.Errorf("fetch records: %w", err)
	}
	logger.Debug("records fetched", "count", len(records))

	indexes := p.loadIndexes(ctx, logger)

	views := make([]recordView, 0, len(records))
	for _, record := range records {
		canonical := p.normalizer.Canonicalize(record, now)
		packetSummary := p.scorer.Score(indexes, record.Emails, record.Name)
		phase := p.trigger.Decide(canonical, packetSummary)

		views = append(views, recordView{
			record: canonical,
			packet: packetSummary,
			phase:  phase,
		})
	}

	return views, nil
}

// loadIndexes builds the per-form match indexes. A failing form degrades
// to its fallback rows, or to a missing index that matches nothing; it
// never aborts the batch.
func (p *Pipeline) loadIndexes(ctx context.Context, logger *slog.Logger) match.IndexSet {
	set := match.IndexSet{Forms: make(map[string]match.Index, len(p.cfg.Forms.Forms))}

	for _, form := range p.cfg.Forms.Forms {
		rows, source, err := p.formSource.Load(ctx, form.Key)

		if err != nil && rows == nil {
			logger.Warn("form unavailable", "form", form.Key, "error", err)
			set.Forms[form.Key] = match.Index{Source: source, Err: err.Error()}
			continue
		}

		idx := match.Build(rows)
		idx.Source = source
		if err != nil {
			idx.Err = err.Error()
			logger.Warn("form degraded to fallback", "form", form.Key, "source", source, "error", err)
		}
		set.Forms[form.Key] = idx
	}

	return set
}

// sendReminders evaluates due notifications for records in the pending
// phase. Failures are per record: a send error or a missing recipient is
// counted and logged, never batch-fatal.
func (p *Pipeline) sendReminders(ctx context.Context, views []recordView, now time.Time, logger *slog.Logger) domain.ReminderOutcome {
	var outcome domain.ReminderOutcome

	if err := p.reminders.Begin(ctx); err != nil {
		logger.Warn("reminder tracking load failed, starting empty", "error", err)
		outcome.Errors = append(outcome.Errors, err.Error())
	}

	for _, view := range views {
		if view.phase != domain.AssessmentPending {
			continue
		}
		outcome.Pending++

		record := view.record
		if !p.reminders.ShouldSend(record.ID, now) {
			outcome.Skipped++
			continue
		}

		// No resolvable target: report as skipped, keep the record
		// eligible so it is retried once contact info appears.
		if record.AssessorEmail == "" {
			outcome.Skipped++
			logger.Warn("no assessor email on record", "record", record.Name)
			continue
		}

		reminder := remind.Reminder{
			RecordID:     record.ID,
			ProspectName: record.Name,
			AssessorName: firstOr(record.Assignees, ""),
			Recipient:    record.AssessorEmail,
			Status:       record.CanonicalStatus,
			DaysInReview: record.DaysSinceEdit,
			DashboardURL: p.cfg.Reminders.DashboardURL,
		}

		body, err := reminder.Body()
		if err != nil {
			outcome.Skipped++
			outcome.Errors = append(outcome.Errors, err.Error())
			logger.Error("compose reminder failed", "record", record.Name, "error", err)
			continue
		}

		if err := p.notifier.Send(ctx, reminder.Recipient, reminder.Subject(), body); err != nil {
			notifyErr := domain.NewError(domain.ErrKindNotification, err)
			outcome.Skipped++
			outcome.Errors = append(outcome.Errors, notifyErr.Error())
			logger.Error("reminder send failed", "record", record.Name, "error", err)
			continue
		}

		p.reminders.RecordSent(record.ID, now)
		outcome.Sent++
		logger.Info("reminder sent", "record", record.Name, "recipient", reminder.Recipient)
	}

	if err := p.reminders.Flush(ctx); err != nil {
		// In-memory state still covers the rest of this process; the
		// next run retries from the last saved state.
		outcome.Errors = append(outcome.Errors, err.Error())
		logger.Error("reminder tracking save failed", "error", err)
	}

	return outcome
}

func (p *Pipeline) log() *slog.Logger {
	if p.logger != nil {
		return p.logger
	}
	return slog.Default()
}

func firstOr(values []string, fallback string) string {
	if len(values) > 0 {
		return values[0]
	}
	return fallback
}
