package ports

import (
	"context"
	"time"

	"EnrollmentHealth/internal/domain"
)

// RecordStore pulls admissions records from the remote collections and
// writes workflow fields back.
type RecordStore interface {
	FetchAll(ctx context.Context, collectionLabels []string) ([]domain.SourceRecord, error)
	UpdateField(ctx context.Context, recordID, field, value string) error
}

// FormSource loads all rows of one external intake form. Implementations
// may return stale/fallback rows together with a source-level error so the
// caller can proceed with whatever is available.
type FormSource interface {
	Load(ctx context.Context, formKey string) ([]domain.FormSubmission, string, error)
}

// Notifier delivers one reminder message to a staff recipient.
type Notifier interface {
	Send(ctx context.Context, recipient, subject, body string) error
}

// TrackingStore persists the reminder tracking map. Save replaces the whole
// store; partial updates are never written.
type TrackingStore interface {
	Load(ctx context.Context) (map[string]string, error)
	Save(ctx context.Context, tracking map[string]string) error
}

// Scheduler controls when refresh batches execute.
type Scheduler interface {
	Start(ctx context.Context, job func(time.Time)) error
	Stop(ctx context.Context) error
}
