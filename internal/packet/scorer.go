package packet

import (
	"EnrollmentHealth/internal/domain"
	"EnrollmentHealth/internal/match"
)

// Scorer computes weighted completeness of the required form packet for
// one record. Weights come from configuration and are strictly positive.
type Scorer struct {
	weights map[string]int
}

// NewScorer builds a scorer over the configured form weights.
func NewScorer(weights map[string]int) *Scorer {
	return &Scorer{weights: weights}
}

// MaxScore is the sum of all configured weights.
func (s *Scorer) MaxScore() int {
	total := 0
	for _, w := range s.weights {
		total += w
	}
	return total
}

// Score resolves each configured form once and sums the weights of the
// matched ones. Complete means every configured form matched; with strictly
// positive weights that coincides with score == max, but the completion
// predicate is "all matched", not score equality.
func (s *Scorer) Score(indexes match.IndexSet, candidateEmails []string, candidateName string) domain.PacketSummary {
	summary := domain.PacketSummary{
		Matches:  make(map[string]domain.FormMatch, len(s.weights)),
		MaxScore: s.MaxScore(),
	}

	if len(s.weights) == 0 {
		return summary
	}

	allMatched := true
	for formKey, weight := range s.weights {
		idx := indexes.Forms[formKey]
		submission := idx.Resolve(candidateEmails, candidateName)

		fm := domain.FormMatch{
			Submitted: submission != nil,
			Source:    idx.Source,
			Err:       idx.Err,
		}
		if submission != nil {
			fm.Timestamp = submission.Timestamp
			fm.Submission = submission
			summary.Score += weight
		} else {
			allMatched = false
		}
		summary.Matches[formKey] = fm
	}

	summary.Complete = allMatched
	if summary.MaxScore > 0 {
		summary.Percent = float64(summary.Score) / float64(summary.MaxScore)
	}

	return summary
}
