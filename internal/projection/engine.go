package projection

import "EnrollmentHealth/internal/domain"

// Engine aggregates normalized records into enrollment counts and a
// weighted forward projection. All reenrollment records are assumed to
// return at the configured rate unless flagged as retention risk.
type Engine struct {
	rate float64
}

// NewEngine builds the engine with the configured projection rate.
func NewEngine(rate float64) *Engine {
	return &Engine{rate: rate}
}

// Project partitions records by category and computes the projected total.
// The result is fractional on purpose; rounding is a presentation concern.
func (e *Engine) Project(records []domain.CanonicalRecord) domain.ProjectionResult {
	var result domain.ProjectionResult

	for _, record := range records {
		switch record.Category {
		case domain.CategoryEnrolled:
			result.EnrolledCount++
		case domain.CategoryReenrollmentActive:
			result.ReenrollmentTotal++
		case domain.CategoryReenrollmentRisk:
			result.ReenrollmentTotal++
			result.ReenrollmentRisk++
		}
	}

	result.ReenrollmentNonRisk = result.ReenrollmentTotal - result.ReenrollmentRisk
	if result.ReenrollmentNonRisk < 0 {
		result.ReenrollmentNonRisk = 0
	}

	result.ProjectedTotal = float64(result.EnrolledCount) + float64(result.ReenrollmentNonRisk)*e.rate

	return result
}
