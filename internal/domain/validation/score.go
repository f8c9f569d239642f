package validation

import (
	"math"

	"github.com/ehr/claims/internal/domain/claim"
)

const fullMarks = 100.0

// Per-finding metric deductions.
const (
	completenessPenalty = 10
	accuracyPenalty     = 20
	consistencyPenalty  = 25
	validityPenalty     = 20
	timelinessPenalty   = 30
)

// categoryRecommendations holds the one advisory emitted per error category
// present, in emission order.
var categoryRecommendations = []struct {
	category Category
	text     string
}{
	{CategoryMissingData, "Complete all required claim fields before submission."},
	{CategoryInvalidFormat, "Correct identifier, code and date formats to match payer standards."},
	{CategoryCompliance, "Submit claims within the payer's submission window."},
	{CategoryBusinessRule, "Reconcile line item amounts with the claim total and review high-value claims."},
}

// Metrics computes the quality metrics for c given its errors.
func Metrics(c *claim.CanonicalClaim, errs []ValidationError) QualityMetrics {
	absent := 0
	if c.Patient.DateOfBirth == nil {
		absent++
	}
	if c.Patient.Gender == nil {
		absent++
	}
	if c.Patient.NationalID == nil {
		absent++
	}
	if c.Provider.LicenseNumber == nil {
		absent++
	}
	if c.Payer.PolicyNumber == nil {
		absent++
	}

	counts := map[Category]int{}
	for _, e := range errs {
		counts[e.Category]++
	}
	return QualityMetrics{
		Completeness: deduct(absent, completenessPenalty),
		Accuracy:     deduct(counts[CategoryInvalidFormat], accuracyPenalty),
		Consistency:  deduct(counts[CategoryBusinessRule], consistencyPenalty),
		Validity:     deduct(counts[CategoryMissingData], validityPenalty),
		Timeliness:   deduct(counts[CategoryCompliance], timelinessPenalty),
	}
}

func deduct(n int, each float64) float64 {
	return math.Max(0, fullMarks-float64(n)*each)
}

// Score is the overall quality less the per-severity error penalties and one
// point per warning, clamped to [0, 100].
func Score(m QualityMetrics, errs []ValidationError, warnings int) float64 {
	return clamp(rawScore(m, errs, warnings))
}

func rawScore(m QualityMetrics, errs []ValidationError, warnings int) float64 {
	score := m.Overall()
	for _, e := range errs {
		score -= e.Severity.penalty()
	}
	return score - float64(warnings)
}

func clamp(score float64) float64 {
	return math.Min(fullMarks, math.Max(0, score))
}

func statusOf(errs []ValidationError, warnings []ValidationWarning) Status {
	var high bool
	for _, e := range errs {
		switch e.Severity {
		case SeverityCritical:
			return StatusFailed
		case SeverityHigh:
			high = true
		}
	}
	switch {
	case high:
		return StatusRequiresReview
	case len(errs) > 0 || len(warnings) > 0:
		return StatusWarning
	}
	return StatusPassed
}

func complianceOf(errs []ValidationError) ComplianceStatus {
	status := Compliant
	for _, e := range errs {
		if e.Category != CategoryCompliance {
			continue
		}
		if e.Severity == SeverityCritical || e.Severity == SeverityHigh {
			return NonCompliant
		}
		status = PartiallyCompliant
	}
	return status
}

func recommendations(errs []ValidationError, warnings []ValidationWarning) []string {
	present := map[Category]bool{}
	for _, e := range errs {
		present[e.Category] = true
	}
	out := []string{}
	for _, r := range categoryRecommendations {
		if present[r.category] {
			out = append(out, r.text)
		}
	}
	for _, w := range warnings {
		if w.Recommendation != nil {
			out = append(out, *w.Recommendation)
		}
	}
	return out
}
