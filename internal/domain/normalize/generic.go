package normalize

import (
	"github.com/ehr/claims/internal/domain/claim"
	"github.com/ehr/claims/internal/platform/payload"
)

var genericProcedureKeys = procedureKeys{
	code:        []string{"code", "procedure_code", "service_code"},
	description: []string{"description", "name", "display"},
	quantity:    []string{"quantity", "qty"},
	unitPrice:   []string{"unit_price", "unitPrice", "price"},
}

// extractGeneric accepts either the canonical snake_case layout (sections
// provider, patient, claim_details, payer, submission) or the same fields
// flattened with prefixes. It is the fallback for unknown formats.
func extractGeneric(raw payload.Value, e env) (*claim.CanonicalClaim, error) {
	root := newReader(raw)
	prov := root.nested("provider")
	pat := root.nested("patient")
	det := root.nested("claim_details")
	pay := root.nested("payer")
	sub := root.nested("submission")

	provObj := firstObject(raw, "provider")
	patObj := firstObject(raw, "patient")
	payObj := firstObject(raw, "payer")

	c := &claim.CanonicalClaim{
		ClaimID: root.text("claim_id", "claimId", "claim_number", "id"),
		Provider: claim.Provider{
			Name:          firstNonEmpty(prov.only(provObj).text("name"), root.text("provider_name")),
			Code:          firstNonEmpty(prov.only(provObj).text("code", "id"), root.text("provider_code", "provider_id")),
			Branch:        prov.text("branch", "provider_branch"),
			LicenseNumber: prov.optText("license_number", "license", "provider_license"),
			Contact:       prov.optText("contact", "provider_contact"),
		},
		Patient: claim.Patient{
			MemberID:    firstNonEmpty(pat.only(patObj).text("member_id", "memberId", "id"), root.text("member_id")),
			Name:        firstNonEmpty(pat.only(patObj).text("name"), root.text("patient_name")),
			NationalID:  pat.optText("national_id", "nationalId"),
			DateOfBirth: pat.optDate("date_of_birth", "dob", "birth_date"),
			Gender:      pat.gender("gender"),
		},
		ClaimDetails: claim.ClaimDetails{
			ServiceDate:    det.date(e.today, "service_date", "serviceDate", "date_of_service"),
			TotalAmount:    det.amount("total_amount", "totalAmount", "total", "amount"),
			Currency:       det.text("currency"),
			DiagnosisCodes: det.codes([]string{"code", "icd10"}, "diagnosis_codes", "diagnoses", "diagnosisCodes"),
			ProcedureCodes: det.procedures(genericProcedureKeys, "procedure_codes", "procedures", "items"),
			EncounterType:  det.optText("encounter_type", "encounterType"),
		},
		Payer: claim.Payer{
			Name:          firstNonEmpty(pay.only(payObj).text("name"), root.text("payer_name", "insurer"), defaultPayerName(e)),
			PayerID:       firstNonNil(pay.only(payObj).optText("payer_id", "id"), root.optText("payer_id")),
			InsuranceType: claim.ParseInsuranceType(pay.text("insurance_type", "type")),
			PolicyNumber:  pay.optText("policy_number", "policyNumber"),
		},
		Submission: claim.Submission{
			Method:    claim.ParseSubmissionMethod(sub.text("method", "submission_method"), defaultMethod(e)),
			Timestamp: sub.timestamp(e.today, "timestamp", "submitted_at", "submission_date"),
			Status:    claim.ParseSubmissionStatus(sub.text("status", "submission_status")),
			BatchID:   sub.optText("batch_id", "batchId"),
		},
	}
	if err := root.err(); err != nil {
		return nil, err
	}
	return c, nil
}

// defaultMethod is the submission channel assumed per declared payer.
func defaultMethod(e env) claim.SubmissionMethod {
	if e.format == FormatWaseel {
		return claim.MethodExternalNetwork
	}
	return claim.MethodAPI
}

// defaultPayerName names the payer when only the declared format tells us.
func defaultPayerName(e env) string {
	switch e.declared {
	case "tawuniya":
		return "Tawuniya"
	case "waseel":
		return "Waseel"
	}
	return ""
}

func firstNonNil(values ...*string) *string {
	for _, v := range values {
		if v != nil {
			return v
		}
	}
	return nil
}
