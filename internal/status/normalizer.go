package status

import (
	"strings"
	"time"

	"EnrollmentHealth/internal/config"
	"EnrollmentHealth/internal/domain"
)

// Normalizer maps per-source raw status vocabularies onto the canonical
// taxonomy and derives category and staleness. It is total: unknown inputs
// degrade to passthrough, never to an error.
type Normalizer struct {
	sources         map[string]config.SourceConfig
	categories      map[string]domain.Category
	synonyms        map[string]string
	needsAssessment map[string]struct{}
	fastTrack       map[string]struct{}
	enrolled        map[string]struct{}
	retentionRisk   map[string]struct{}
	staleDays       int
}

// New builds a normalizer from the status configuration tables.
func New(sources []config.SourceConfig, statuses config.StatusConfig) *Normalizer {
	n := &Normalizer{
		sources:         make(map[string]config.SourceConfig, len(sources)),
		categories:      make(map[string]domain.Category, len(statuses.Categories)),
		synonyms:        make(map[string]string, len(statuses.Synonyms)),
		needsAssessment: toSet(statuses.NeedsAssessment),
		fastTrack:       toSet(statuses.FastTrack),
		enrolled:        toSet(statuses.Enrolled),
		retentionRisk:   toSet(statuses.RetentionRisk),
		staleDays:       statuses.StaleDays,
	}
	for _, src := range sources {
		n.sources[src.Label] = src
	}
	for canonical, category := range statuses.Categories {
		n.categories[canonical] = domain.Category(category)
	}
	for raw, canonical := range statuses.Synonyms {
		n.synonyms[foldKey(raw)] = canonical
	}
	return n
}

// Normalize maps (source, raw status) to a canonical status. Lookup order:
// per-source exact table, shared synonym table (folds known misspelling
// variants), per-source default for a missing status, passthrough for
// anything else so unexpected statuses stay visible.
func (n *Normalizer) Normalize(sourceLabel, rawStatus string) string {
	raw := strings.TrimSpace(rawStatus)

	src, known := n.sources[sourceLabel]
	if known {
		if canonical, ok := src.StatusMap[raw]; ok {
			return canonical
		}
	}

	if canonical, ok := n.synonyms[foldKey(raw)]; ok {
		return canonical
	}

	if raw == "" {
		if known && src.DefaultStatus != "" {
			return src.DefaultStatus
		}
		return ""
	}

	return raw
}

// Categorize resolves the KPI bucket for a canonical status. Passthrough
// statuses without a taxonomy entry fall to the source's default category.
func (n *Normalizer) Categorize(sourceLabel, canonical string) domain.Category {
	if category, ok := n.categories[canonical]; ok {
		return category
	}
	if src, ok := n.sources[sourceLabel]; ok && src.DefaultCategory != "" {
		return domain.Category(src.DefaultCategory)
	}
	return domain.CategoryProspectActive
}

// IsFastTrack reports whether a canonical status waives the normal
// assignment and packet prerequisites before triggering assessment.
func (n *Normalizer) IsFastTrack(canonical string) bool {
	_, ok := n.fastTrack[canonical]
	return ok
}

// NeedsAssessment reports whether a canonical status belongs to the
// assessment-trigger set.
func (n *Normalizer) NeedsAssessment(canonical string) bool {
	_, ok := n.needsAssessment[canonical]
	return ok
}

// IsEnrolled reports membership in the enrolled status set.
func (n *Normalizer) IsEnrolled(canonical string) bool {
	_, ok := n.enrolled[canonical]
	return ok
}

// IsRetentionRisk reports membership in the retention risk status set.
func (n *Normalizer) IsRetentionRisk(canonical string) bool {
	_, ok := n.retentionRisk[canonical]
	return ok
}

// Canonicalize derives the full normalized view of one source record.
func (n *Normalizer) Canonicalize(record domain.SourceRecord, now time.Time) domain.CanonicalRecord {
	canonical := n.Normalize(record.SourceLabel, record.RawStatus)
	category := n.Categorize(record.SourceLabel, canonical)

	days := 0
	if !record.LastModified.IsZero() {
		days = int(now.Sub(record.LastModified).Hours() / 24)
	}

	stale := !record.LastModified.IsZero() &&
		days >= n.staleDays &&
		category != domain.CategoryProspectClosed

	return domain.CanonicalRecord{
		SourceRecord:    record,
		CanonicalStatus: canonical,
		Category:        category,
		DaysSinceEdit:   days,
		IsStale:         stale,
	}
}

func foldKey(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}

func toSet(values []string) map[string]struct{} {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		set[v] = struct{}{}
	}
	return set
}
