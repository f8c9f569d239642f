package validation

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/ehr/claims/internal/domain/claim"
	"github.com/ehr/claims/internal/platform/payload"
)

var (
	nationalIDPattern = regexp.MustCompile(`^\d{10}$`)
	icd10Pattern      = regexp.MustCompile(`^[A-Z]\d{2}(\.\d{1,2})?$`)
)

// check is one rule group. Groups read the claim only and never see each
// other's findings.
type check func(c *claim.CanonicalClaim, rules Rules, now time.Time) []ValidationError

var checks = []check{checkRequired, checkFormat, checkBusiness, checkCompliance}

func missing(code, field, what string, sev Severity) ValidationError {
	return ValidationError{
		Code:     code,
		Field:    field,
		Message:  what + " is required",
		Severity: sev,
		Category: CategoryMissingData,
	}
}

func blank(s string) bool { return strings.TrimSpace(s) == "" }

func checkRequired(c *claim.CanonicalClaim, _ Rules, _ time.Time) []ValidationError {
	var out []ValidationError
	if blank(c.ClaimID) || c.ClaimID == claim.UnknownClaimID {
		out = append(out, missing("REQ-001", "claim_id", "Claim ID", SeverityCritical))
	}
	if blank(c.Provider.Name) {
		out = append(out, missing("REQ-002", "provider.name", "Provider name", SeverityCritical))
	}
	if blank(c.Provider.Code) {
		out = append(out, missing("REQ-003", "provider.code", "Provider code", SeverityHigh))
	}
	if blank(c.Patient.MemberID) {
		out = append(out, missing("REQ-004", "patient.member_id", "Patient member ID", SeverityCritical))
	}
	if blank(c.Patient.Name) {
		out = append(out, missing("REQ-005", "patient.name", "Patient name", SeverityHigh))
	}
	if !c.ClaimDetails.TotalAmount.IsPositive() {
		out = append(out, ValidationError{
			Code:     "REQ-006",
			Field:    "claim_details.total_amount",
			Message:  fmt.Sprintf("Total amount must be greater than zero, got %s", c.ClaimDetails.TotalAmount),
			Severity: SeverityCritical,
			Category: CategoryInvalidFormat,
		})
	}
	if len(c.ClaimDetails.DiagnosisCodes) == 0 {
		out = append(out, missing("REQ-007", "claim_details.diagnosis_codes", "At least one diagnosis code", SeverityHigh))
	}
	if len(c.ClaimDetails.ProcedureCodes) == 0 {
		out = append(out, missing("REQ-008", "claim_details.procedure_codes", "At least one procedure code", SeverityHigh))
	}
	return out
}

func checkFormat(c *claim.CanonicalClaim, rules Rules, now time.Time) []ValidationError {
	var out []ValidationError
	if id := c.Patient.NationalID; id != nil && !nationalIDPattern.MatchString(*id) {
		out = append(out, ValidationError{
			Code:     "FMT-001",
			Field:    "patient.national_id",
			Message:  fmt.Sprintf("National ID %q must be exactly 10 digits", *id),
			Severity: SeverityMedium,
			Category: CategoryInvalidFormat,
		})
	}
	for i, code := range c.ClaimDetails.DiagnosisCodes {
		if icd10Pattern.MatchString(code) {
			continue
		}
		out = append(out, ValidationError{
			Code:     "FMT-002",
			Field:    fmt.Sprintf("claim_details.diagnosis_codes[%d]", i),
			Message:  fmt.Sprintf("Diagnosis code %q is not a valid ICD-10 code", code),
			Severity: SeverityMedium,
			Category: CategoryInvalidFormat,
		})
	}

	service := payload.DateOf(c.ClaimDetails.ServiceDate)
	today := payload.DateOf(now)
	if service.After(today) {
		out = append(out, ValidationError{
			Code:     "FMT-003",
			Field:    "claim_details.service_date",
			Message:  fmt.Sprintf("Service date %s is in the future", service.Format(payload.DateLayout)),
			Severity: SeverityHigh,
			Category: CategoryInvalidFormat,
		})
	} else if today.Sub(service) > rules.StaleServiceAge {
		out = append(out, ValidationError{
			Code:     "FMT-004",
			Field:    "claim_details.service_date",
			Message:  fmt.Sprintf("Service date %s is more than %d days old", service.Format(payload.DateLayout), days(rules.StaleServiceAge)),
			Severity: SeverityMedium,
			Category: CategoryCompliance,
		})
	}
	return out
}

func checkBusiness(c *claim.CanonicalClaim, rules Rules, _ time.Time) []ValidationError {
	var out []ValidationError
	total := c.ClaimDetails.TotalAmount
	lines := c.LineItemTotal()
	if lines.IsPositive() && lines.Sub(total).Abs().GreaterThan(rules.AmountTolerance) {
		out = append(out, ValidationError{
			Code:     "BUS-001",
			Field:    "claim_details.total_amount",
			Message:  fmt.Sprintf("Line items sum to %s but total amount is %s", lines.StringFixed(2), total.StringFixed(2)),
			Severity: SeverityMedium,
			Category: CategoryBusinessRule,
		})
	}
	if total.GreaterThan(rules.AmountCeiling) {
		out = append(out, ValidationError{
			Code:     "BUS-002",
			Field:    "claim_details.total_amount",
			Message:  fmt.Sprintf("Total amount %s exceeds the maximum of %s", total.StringFixed(2), rules.AmountCeiling.StringFixed(2)),
			Severity: SeverityHigh,
			Category: CategoryBusinessRule,
		})
	}
	return out
}

// checkCompliance flags claims submitted more than the compliance window
// after the service date. A zero submission timestamp is treated as unknown.
func checkCompliance(c *claim.CanonicalClaim, rules Rules, _ time.Time) []ValidationError {
	submitted := c.Submission.Timestamp
	if submitted.IsZero() {
		return nil
	}
	service := payload.DateOf(c.ClaimDetails.ServiceDate)
	if submitted.Sub(service) <= rules.ComplianceWindow {
		return nil
	}
	return []ValidationError{{
		Code:     "CMP-001",
		Field:    "submission.timestamp",
		Message:  fmt.Sprintf("Claim submitted more than %d days after the service date", days(rules.ComplianceWindow)),
		Severity: SeverityHigh,
		Category: CategoryCompliance,
	}}
}

func advise(code, field, message, recommendation string) ValidationWarning {
	return ValidationWarning{Code: code, Field: field, Message: message, Recommendation: &recommendation}
}

func checkQuality(c *claim.CanonicalClaim) []ValidationWarning {
	var out []ValidationWarning
	if c.Patient.DateOfBirth == nil {
		out = append(out, advise("DQ-001", "patient.date_of_birth",
			"Patient date of birth is missing",
			"Add the patient's date of birth to support age-based benefit checks."))
	}
	if c.Patient.Gender == nil || *c.Patient.Gender == claim.GenderUnknown {
		out = append(out, advise("DQ-002", "patient.gender",
			"Patient gender is missing or unknown",
			"Record the patient's gender as male, female or other."))
	}
	if c.Provider.LicenseNumber == nil || blank(*c.Provider.LicenseNumber) {
		out = append(out, advise("DQ-003", "provider.license_number",
			"Provider license number is missing",
			"Include the provider's license number issued by the health authority."))
	}
	undescribed := 0
	for _, p := range c.ClaimDetails.ProcedureCodes {
		if p.Description == nil || blank(*p.Description) {
			undescribed++
		}
	}
	if undescribed > 0 {
		out = append(out, advise("DQ-004", "claim_details.procedure_codes",
			fmt.Sprintf("%d procedure code(s) have no description", undescribed),
			"Add a description to every procedure code."))
	}
	return out
}

func days(d time.Duration) int { return int(d / (24 * time.Hour)) }
