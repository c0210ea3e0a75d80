package status

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"EnrollmentHealth/internal/config"
	"EnrollmentHealth/internal/domain"
)

func testNormalizer() *Normalizer {
	sources := []config.SourceConfig{
		{
			Label: "New Prospects",
			StatusMap: map[string]string{
				"Potential Visit": "Prospect - In Review",
				"Enrolled":        "Enrolled",
				"Not a Good Fit":  "Not a Good Fit",
			},
			DefaultStatus:   "Not Started",
			DefaultCategory: string(domain.CategoryProspectActive),
		},
		{
			Label: "Reenrollment",
			StatusMap: map[string]string{
				"Retention Risk": "Reenrollment - At Risk",
				"In Progress":    "Reenrollment - In Progress",
			},
			DefaultStatus:   "Reenrollment - Outreach",
			DefaultCategory: string(domain.CategoryReenrollmentActive),
		},
	}
	statuses := config.StatusConfig{
		Categories: map[string]string{
			"Not Started":                   string(domain.CategoryProspectActive),
			"Prospect - In Review":          string(domain.CategoryProspectActive),
			"Prospect - Reference Received": string(domain.CategoryProspectActive),
			"Enrolled":                      string(domain.CategoryEnrolled),
			"Not a Good Fit":                string(domain.CategoryProspectClosed),
			"Reenrollment - Outreach":       string(domain.CategoryReenrollmentActive),
			"Reenrollment - In Progress":    string(domain.CategoryReenrollmentActive),
			"Reenrollment - At Risk":        string(domain.CategoryReenrollmentRisk),
		},
		Synonyms: map[string]string{
			"Reference Sent to Principal": "Prospect - Reference Received",
			"Referance Sent to Principal": "Prospect - Reference Received",
			"Reference Sent to Princpal":  "Prospect - Reference Received",
		},
		NeedsAssessment: []string{"Prospect - In Review", "Prospect - Reference Received"},
		FastTrack:       []string{"Prospect - Reference Received"},
		Enrolled:        []string{"Enrolled"},
		RetentionRisk:   []string{"Reenrollment - At Risk"},
		StaleDays:       14,
	}
	return New(sources, statuses)
}

func TestNormalizeTableMatch(t *testing.T) {
	t.Parallel()

	n := testNormalizer()
	assert.Equal(t, "Prospect - In Review", n.Normalize("New Prospects", "Potential Visit"))
	assert.Equal(t, "Reenrollment - At Risk", n.Normalize("Reenrollment", "Retention Risk"))
}

func TestNormalizeMissingStatusUsesSourceDefault(t *testing.T) {
	t.Parallel()

	n := testNormalizer()
	assert.Equal(t, "Not Started", n.Normalize("New Prospects", ""))
	assert.Equal(t, "Reenrollment - Outreach", n.Normalize("Reenrollment", "   "))
}

func TestNormalizeUnmappedPassesThrough(t *testing.T) {
	t.Parallel()

	n := testNormalizer()
	assert.Equal(t, "Shadow Day Scheduled", n.Normalize("New Prospects", "Shadow Day Scheduled"))
	// Unknown source: raw value survives untouched.
	assert.Equal(t, "Whatever", n.Normalize("Waitlist", "Whatever"))
}

func TestNormalizeFoldsMisspellingSynonyms(t *testing.T) {
	t.Parallel()

	n := testNormalizer()
	for _, raw := range []string{
		"Reference Sent to Principal",
		"Referance Sent to Principal",
		"Reference Sent to Princpal",
		"reference sent to principal",
	} {
		got := n.Normalize("New Prospects", raw)
		require.Equal(t, "Prospect - Reference Received", got, "raw %q", raw)
		assert.True(t, n.IsFastTrack(got))
	}
}

func TestCategorize(t *testing.T) {
	t.Parallel()

	n := testNormalizer()
	assert.Equal(t, domain.CategoryEnrolled, n.Categorize("New Prospects", "Enrolled"))
	assert.Equal(t, domain.CategoryProspectClosed, n.Categorize("New Prospects", "Not a Good Fit"))
	// Passthrough statuses fall to the source default category.
	assert.Equal(t, domain.CategoryProspectActive, n.Categorize("New Prospects", "Shadow Day Scheduled"))
	assert.Equal(t, domain.CategoryReenrollmentActive, n.Categorize("Reenrollment", "Something New"))
}

func TestCanonicalizeEndToEnd(t *testing.T) {
	t.Parallel()

	n := testNormalizer()
	now := time.Date(2026, time.March, 10, 12, 0, 0, 0, time.UTC)

	record := domain.SourceRecord{
		ID:           "rec-1",
		SourceLabel:  "New Prospects",
		Name:         "Avi Cohen",
		RawStatus:    "Potential Visit",
		LastModified: now.AddDate(0, 0, -3),
	}

	canonical := n.Canonicalize(record, now)
	assert.Equal(t, "Prospect - In Review", canonical.CanonicalStatus)
	assert.Equal(t, domain.CategoryProspectActive, canonical.Category)
	assert.Equal(t, 3, canonical.DaysSinceEdit)
	assert.False(t, canonical.IsStale)
}

func TestCanonicalizeStaleness(t *testing.T) {
	t.Parallel()

	n := testNormalizer()
	now := time.Date(2026, time.March, 10, 12, 0, 0, 0, time.UTC)
	old := now.AddDate(0, 0, -20)

	active := n.Canonicalize(domain.SourceRecord{
		SourceLabel:  "New Prospects",
		RawStatus:    "Potential Visit",
		LastModified: old,
	}, now)
	assert.True(t, active.IsStale)

	// Closed records never count as stale.
	closed := n.Canonicalize(domain.SourceRecord{
		SourceLabel:  "New Prospects",
		RawStatus:    "Not a Good Fit",
		LastModified: old,
	}, now)
	assert.False(t, closed.IsStale)

	// No timestamp at all: unknown age, not stale.
	unknown := n.Canonicalize(domain.SourceRecord{
		SourceLabel: "New Prospects",
		RawStatus:   "Potential Visit",
	}, now)
	assert.False(t, unknown.IsStale)
}
