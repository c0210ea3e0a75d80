package domain

import "time"

// SourceRecord is a raw admissions record pulled from one origin collection.
// Known fields are typed; anything else the collection carries lands in Extra.
type SourceRecord struct {
	ID            string
	SourceLabel   string
	Name          string
	RawStatus     string
	Assignees     []string
	Emails        []string
	AssessorEmail string
	Assessment    AssessmentState
	NextStep      string
	LastModified  time.Time
	CreatedAt     time.Time
	URL           string
	Attachments   []Attachment
	Extra         map[string]string
}

// Attachment is a document link carried on a record.
type Attachment struct {
	Name string
	URL  string
}

// Category is the coarse KPI bucket derived from a canonical status.
type Category string

const (
	CategoryProspectActive     Category = "prospect-active"
	CategoryProspectClosed     Category = "prospect-closed"
	CategoryReenrollmentActive Category = "reenrollment-active"
	CategoryReenrollmentRisk   Category = "reenrollment-risk"
	CategoryEnrolled           Category = "enrolled"
)

// CanonicalRecord is the read-only normalized view of a SourceRecord.
type CanonicalRecord struct {
	SourceRecord
	CanonicalStatus string
	Category        Category
	DaysSinceEdit   int
	IsStale         bool
}

// HasAssignee reports whether at least one staff member owns the record.
func (r CanonicalRecord) HasAssignee() bool {
	return len(r.Assignees) > 0
}

// FormSubmission is one row from an external intake form. Never mutated
// after ingestion.
type FormSubmission struct {
	Email     string
	Name      string
	Timestamp string
	Answers   map[string]string
}

// FormMatch describes whether one required form was located for a record.
type FormMatch struct {
	Submitted  bool
	Timestamp  string
	Submission *FormSubmission
	Source     string
	Err        string
}

// PacketSummary reports weighted completeness of a record's required forms.
// Recomputed fresh every refresh, never persisted.
type PacketSummary struct {
	Matches  map[string]FormMatch
	Score    int
	MaxScore int
	Complete bool
	Percent  float64
}

// AssessmentPhase enumerates the staff assessment workflow states.
type AssessmentPhase string

const (
	AssessmentNotTriggered AssessmentPhase = "NotTriggered"
	AssessmentPending      AssessmentPhase = "PendingAssessment"
	AssessmentCompleted    AssessmentPhase = "Completed"
)

// AssessmentState mirrors the workflow fields stored on the record itself.
// The record store owns this state; the engine only computes transitions.
type AssessmentState struct {
	Phase          AssessmentPhase
	AssessorName   string
	CompletionDate string
	Revision       int
}

// ProjectionResult aggregates enrollment counts and the forward projection.
type ProjectionResult struct {
	EnrolledCount       int
	ReenrollmentTotal   int
	ReenrollmentRisk    int
	ReenrollmentNonRisk int
	ProjectedTotal      float64
}

// ReminderOutcome tallies one reminder batch pass.
type ReminderOutcome struct {
	Sent    int
	Skipped int
	Pending int
	Errors  []string
}

// BatchSummary is the result of one full refresh cycle.
type BatchSummary struct {
	RunID      string
	Started    time.Time
	Processed  int
	Failed     int
	Reminders  ReminderOutcome
	Projection ProjectionResult
	Errors     []string
}
