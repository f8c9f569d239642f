package claim

import "strings"

// Gender of the patient as carried on the claim.
type Gender string

const (
	GenderMale    Gender = "male"
	GenderFemale  Gender = "female"
	GenderOther   Gender = "other"
	GenderUnknown Gender = "unknown"
)

var genderAliases = map[string]Gender{
	"m": GenderMale, "male": GenderMale, "man": GenderMale, "ذكر": GenderMale,
	"f": GenderFemale, "female": GenderFemale, "woman": GenderFemale, "أنثى": GenderFemale,
	"o": GenderOther, "other": GenderOther,
	"u": GenderUnknown, "unknown": GenderUnknown,
}

// ParseGender maps payer spellings onto the canonical values. Anything
// unrecognized is GenderUnknown.
func ParseGender(s string) Gender {
	if g, ok := genderAliases[strings.ToLower(strings.TrimSpace(s))]; ok {
		return g
	}
	return GenderUnknown
}

// InsuranceType classifies the payer product.
type InsuranceType string

const (
	InsurancePrivate    InsuranceType = "private"
	InsuranceGovernment InsuranceType = "government"
	InsuranceMilitary   InsuranceType = "military"
	InsuranceCorporate  InsuranceType = "corporate"
)

// ParseInsuranceType falls back to InsurancePrivate for unknown values.
func ParseInsuranceType(s string) InsuranceType {
	switch InsuranceType(strings.ToLower(strings.TrimSpace(s))) {
	case InsuranceGovernment:
		return InsuranceGovernment
	case InsuranceMilitary:
		return InsuranceMilitary
	case InsuranceCorporate:
		return InsuranceCorporate
	}
	return InsurancePrivate
}

// SubmissionMethod is the channel the claim was (or will be) sent through.
type SubmissionMethod string

const (
	MethodAPI             SubmissionMethod = "api"
	MethodPortal          SubmissionMethod = "portal"
	MethodEmail           SubmissionMethod = "email"
	MethodExternalNetwork SubmissionMethod = "external-network"
)

// ParseSubmissionMethod returns fallback for unknown values.
func ParseSubmissionMethod(s string, fallback SubmissionMethod) SubmissionMethod {
	normalized := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "_", "-")
	switch SubmissionMethod(normalized) {
	case MethodAPI, MethodPortal, MethodEmail, MethodExternalNetwork:
		return SubmissionMethod(normalized)
	}
	return fallback
}

// SubmissionStatus tracks the claim through the payer's adjudication.
type SubmissionStatus string

const (
	StatusPending           SubmissionStatus = "pending"
	StatusSubmitted         SubmissionStatus = "submitted"
	StatusProcessing        SubmissionStatus = "processing"
	StatusApproved          SubmissionStatus = "approved"
	StatusRejected          SubmissionStatus = "rejected"
	StatusPartiallyApproved SubmissionStatus = "partially_approved"
	StatusError             SubmissionStatus = "error"
)

var validSubmissionStatuses = map[SubmissionStatus]bool{
	StatusPending: true, StatusSubmitted: true, StatusProcessing: true,
	StatusApproved: true, StatusRejected: true, StatusPartiallyApproved: true, StatusError: true,
}

// ParseSubmissionStatus returns StatusPending for unknown values.
func ParseSubmissionStatus(s string) SubmissionStatus {
	st := SubmissionStatus(strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "-", "_"))
	if validSubmissionStatuses[st] {
		return st
	}
	return StatusPending
}
