package match

import (
	"strings"

	"EnrollmentHealth/internal/domain"
)

// Index holds lookup tables from one form's submission rows: normalized
// email -> latest submission and normalized name -> latest submission.
// Building is deterministic; resolving never mutates the index.
type Index struct {
	ByEmail map[string]domain.FormSubmission
	ByName  map[string]domain.FormSubmission

	// Exists is false when the form could not be loaded at all; a missing
	// form never matches but is distinguishable from an empty one.
	Exists bool
	Source string
	Err    string
}

// IndexSet groups the per-form indexes built for one refresh.
type IndexSet struct {
	Forms map[string]Index
}

// Enabled reports whether at least one form produced an index.
func (s IndexSet) Enabled() bool {
	for _, idx := range s.Forms {
		if idx.Exists {
			return true
		}
	}
	return false
}

// Build groups rows by normalized email and by normalized name. When two
// rows share a key, the one with the lexicographically greatest timestamp
// string wins (ISO-8601 ordering): staff sometimes resubmit a form and the
// latest answer is the one that counts.
func Build(rows []domain.FormSubmission) Index {
	idx := Index{
		ByEmail: map[string]domain.FormSubmission{},
		ByName:  map[string]domain.FormSubmission{},
		Exists:  true,
	}

	for _, row := range rows {
		email := normalize(row.Email)
		name := normalize(row.Name)

		if email != "" {
			idx.ByEmail[email] = latest(idx.ByEmail, email, row)
		}
		if name != "" {
			idx.ByName[name] = latest(idx.ByName, name, row)
		}
	}

	return idx
}

// Resolve finds the submission for a record. Candidate emails are tried in
// priority order first; the name is only consulted when no email matched.
// Empty candidates match nothing.
func (idx Index) Resolve(candidateEmails []string, candidateName string) *domain.FormSubmission {
	if !idx.Exists {
		return nil
	}

	for _, email := range candidateEmails {
		key := normalize(email)
		if key == "" {
			continue
		}
		if sub, ok := idx.ByEmail[key]; ok {
			return &sub
		}
	}

	nameKey := normalize(candidateName)
	if nameKey == "" {
		return nil
	}
	if sub, ok := idx.ByName[nameKey]; ok {
		return &sub
	}

	return nil
}

func latest(table map[string]domain.FormSubmission, key string, row domain.FormSubmission) domain.FormSubmission {
	existing, ok := table[key]
	if !ok {
		return row
	}
	if existing.Timestamp >= row.Timestamp {
		return existing
	}
	return row
}

func normalize(v string) string {
	return strings.ToLower(strings.TrimSpace(v))
}
