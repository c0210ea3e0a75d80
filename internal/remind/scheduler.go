package remind

import (
	"context"
	"fmt"
	"time"

	"EnrollmentHealth/internal/domain"
	"EnrollmentHealth/internal/ports"
)

// Scheduler gates repeat notifications with persisted, time-windowed
// deduplication. The tracking map (record id -> last-notified timestamp,
// RFC 3339) is the only durable state in the system: it is loaded at the
// start of a batch and saved as a full replacement at the end, so process
// restarts neither resend early nor silently drop reminders.
type Scheduler struct {
	store    ports.TrackingStore
	interval time.Duration
	tracking map[string]string
}

// NewScheduler wires the durable store and the dedup window.
func NewScheduler(store ports.TrackingStore, interval time.Duration) *Scheduler {
	return &Scheduler{
		store:    store,
		interval: interval,
		tracking: map[string]string{},
	}
}

// Begin loads the persisted tracking map for this batch. On load failure
// the scheduler starts from an empty map so the batch can proceed; the
// error is returned for logging.
func (s *Scheduler) Begin(ctx context.Context) error {
	tracking, err := s.store.Load(ctx)
	if tracking == nil {
		tracking = map[string]string{}
	}
	s.tracking = tracking
	if err != nil {
		return domain.NewError(domain.ErrKindPersistence, fmt.Errorf("load reminder tracking: %w", err))
	}
	return nil
}

// Flush persists the working tracking map, replacing the stored one whole.
// On failure the in-memory state still governs the rest of this process;
// the next run retries from the last successfully saved state.
func (s *Scheduler) Flush(ctx context.Context) error {
	if err := s.store.Save(ctx, s.tracking); err != nil {
		return domain.NewError(domain.ErrKindPersistence, fmt.Errorf("save reminder tracking: %w", err))
	}
	return nil
}

// ShouldSend reports reminder eligibility: true when the record was never
// notified, when the tracked timestamp is unreadable, or when at least the
// configured interval has passed since the last notification.
func (s *Scheduler) ShouldSend(recordID string, now time.Time) bool {
	raw, ok := s.tracking[recordID]
	if !ok {
		return true
	}

	last, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return true
	}

	return now.Sub(last) >= s.interval
}

// RecordSent marks a successful notification at the given time.
func (s *Scheduler) RecordSent(recordID string, now time.Time) {
	s.tracking[recordID] = now.Format(time.RFC3339)
}

// Reset removes tracking for one record and persists immediately. Called
// when its assessment completes, so a reopened assessment starts fresh.
func (s *Scheduler) Reset(ctx context.Context, recordID string) error {
	if err := s.Begin(ctx); err != nil {
		return err
	}
	delete(s.tracking, recordID)
	return s.Flush(ctx)
}

// ResetAll clears the whole tracking store.
func (s *Scheduler) ResetAll(ctx context.Context) error {
	s.tracking = map[string]string{}
	return s.Flush(ctx)
}
