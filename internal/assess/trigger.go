package assess

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"EnrollmentHealth/internal/config"
	"EnrollmentHealth/internal/domain"
	"EnrollmentHealth/internal/ports"
)

// StatusRules exposes the status-set predicates the trigger needs. The
// normalizer owns the underlying tables, including misspelling synonyms,
// so there is exactly one place deciding what counts as fast-track.
type StatusRules interface {
	IsFastTrack(canonical string) bool
	NeedsAssessment(canonical string) bool
}

// ReminderResetter clears reminder tracking once an assessment completes.
type ReminderResetter interface {
	Reset(ctx context.Context, recordID string) error
}

// Trigger derives the desired assessment workflow state from canonical
// inputs. The record store remains the source of truth; Decide is evaluated
// fresh every refresh and has no private storage.
type Trigger struct {
	rules StatusRules
}

// NewTrigger builds the decision component.
func NewTrigger(rules StatusRules) *Trigger {
	return &Trigger{rules: rules}
}

// Decide returns the desired assessment phase for one record.
//
// Fast-track statuses enter Pending whenever the assessment is not yet
// completed, regardless of assignment or packet completeness: a received
// reference already establishes sufficiency. All other statuses require
// membership in the needs-assessment set, at least one assignee, and a
// complete packet. Completed is terminal here; only Reopen leaves it.
func (t *Trigger) Decide(record domain.CanonicalRecord, packet domain.PacketSummary) domain.AssessmentPhase {
	if record.Assessment.Phase == domain.AssessmentCompleted {
		return domain.AssessmentCompleted
	}

	if t.rules.IsFastTrack(record.CanonicalStatus) {
		return domain.AssessmentPending
	}

	if t.rules.NeedsAssessment(record.CanonicalStatus) &&
		record.HasAssignee() &&
		packet.Complete {
		return domain.AssessmentPending
	}

	return domain.AssessmentNotTriggered
}

// Completer applies assessment lifecycle events by writing workflow fields
// back through the record store.
type Completer struct {
	store    ports.RecordStore
	fields   config.RecordStoreConfig
	reminder ReminderResetter
}

// NewCompleter wires the record store and the reminder resetter.
func NewCompleter(store ports.RecordStore, fields config.RecordStoreConfig, reminder ReminderResetter) *Completer {
	return &Completer{store: store, fields: fields, reminder: reminder}
}

// Complete records a submitted assessment: phase, assessor name, and
// completion date land on the record, and reminder tracking for the record
// is cleared so a reopened assessment starts a fresh reminder cycle.
func (c *Completer) Complete(ctx context.Context, recordID, assessor string, now time.Time) error {
	date := now.Format("2006-01-02")

	if err := c.store.UpdateField(ctx, recordID, c.fields.AssessmentStatusField, string(domain.AssessmentCompleted)); err != nil {
		return fmt.Errorf("mark assessment completed for %s: %w", recordID, err)
	}
	if err := c.store.UpdateField(ctx, recordID, c.fields.AssessmentDateField, date); err != nil {
		return fmt.Errorf("set assessment date for %s: %w", recordID, err)
	}
	if err := c.store.UpdateField(ctx, recordID, c.fields.AssessorNameField, assessor); err != nil {
		return fmt.Errorf("set assessor name for %s: %w", recordID, err)
	}

	if c.reminder != nil {
		if err := c.reminder.Reset(ctx, recordID); err != nil {
			return fmt.Errorf("reset reminder tracking for %s: %w", recordID, err)
		}
	}

	return nil
}

// Reopen moves a completed assessment back to Pending for revision,
// bumping the revision counter. Prior assessments are not versioned;
// the new cycle overwrites the completion fields when it finishes.
func (c *Completer) Reopen(ctx context.Context, recordID string, currentRevision int) error {
	if err := c.store.UpdateField(ctx, recordID, c.fields.AssessmentStatusField, string(domain.AssessmentPending)); err != nil {
		return fmt.Errorf("reopen assessment for %s: %w", recordID, err)
	}
	next := strconv.Itoa(currentRevision + 1)
	if err := c.store.UpdateField(ctx, recordID, c.fields.AssessmentRevisionField, next); err != nil {
		return fmt.Errorf("bump assessment revision for %s: %w", recordID, err)
	}
	return nil
}
