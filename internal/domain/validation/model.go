package validation

import "time"

// Severity ranks how strongly a finding should block submission.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
	SeverityLow      Severity = "low"
)

// penalty is the score deduction applied per error of this severity.
func (s Severity) penalty() float64 {
	switch s {
	case SeverityCritical:
		return 20
	case SeverityHigh:
		return 10
	case SeverityMedium:
		return 5
	case SeverityLow:
		return 2
	}
	return 0
}

// Category groups findings for metrics and recommendations.
type Category string

const (
	CategoryMissingData   Category = "missing_data"
	CategoryInvalidFormat Category = "invalid_format"
	CategoryCompliance    Category = "compliance"
	CategoryBusinessRule  Category = "business_rule"
	CategoryDataQuality   Category = "data_quality"
)

// Status is the overall outcome of validating one claim.
type Status string

const (
	StatusPassed         Status = "passed"
	StatusFailed         Status = "failed"
	StatusWarning        Status = "warning"
	StatusRequiresReview Status = "requires_review"
)

// ComplianceStatus summarizes the compliance-category errors.
type ComplianceStatus string

const (
	Compliant          ComplianceStatus = "compliant"
	NonCompliant       ComplianceStatus = "non_compliant"
	PartiallyCompliant ComplianceStatus = "partially_compliant"
)

// ValidationError is a rule violation. Code is the stable identifier
// callers should match on; Message is for humans.
type ValidationError struct {
	Code     string   `json:"code"`
	Field    string   `json:"field,omitempty"`
	Message  string   `json:"message"`
	Severity Severity `json:"severity"`
	Category Category `json:"category"`
}

// ValidationWarning is a non-blocking data quality advisory.
type ValidationWarning struct {
	Code           string  `json:"code"`
	Field          string  `json:"field,omitempty"`
	Message        string  `json:"message"`
	Recommendation *string `json:"recommendation,omitempty"`
}

// QualityMetrics are the five sub-scores, each in [0, 100].
type QualityMetrics struct {
	Completeness float64 `json:"completeness"`
	Accuracy     float64 `json:"accuracy"`
	Consistency  float64 `json:"consistency"`
	Validity     float64 `json:"validity"`
	Timeliness   float64 `json:"timeliness"`
}

// Overall is the mean of the five metrics.
func (m QualityMetrics) Overall() float64 {
	return (m.Completeness + m.Accuracy + m.Consistency + m.Validity + m.Timeliness) / 5
}

// Verdict is the result of validating one claim under one rule-set version.
type Verdict struct {
	ClaimID          string              `json:"claim_id"`
	Status           Status              `json:"status"`
	Score            float64             `json:"score"`
	ComplianceStatus ComplianceStatus    `json:"compliance_status"`
	Errors           []ValidationError   `json:"errors"`
	Warnings         []ValidationWarning `json:"warnings"`
	Recommendations  []string            `json:"recommendations"`
	QualityMetrics   QualityMetrics      `json:"data_quality_metrics"`
	RuleSetVersion   string              `json:"rule_set_version"`
	ValidatedAt      time.Time           `json:"validated_at"`
}

// HasErrorCode reports whether the verdict carries an error with code.
func (v Verdict) HasErrorCode(code string) bool {
	for _, e := range v.Errors {
		if e.Code == code {
			return true
		}
	}
	return false
}
