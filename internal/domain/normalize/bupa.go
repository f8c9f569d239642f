package normalize

import (
	"github.com/ehr/claims/internal/domain/claim"
	"github.com/ehr/claims/internal/platform/payload"
)

var bupaProcedureKeys = procedureKeys{
	code:        []string{"ServiceCode", "Code", "code", "procedure_code"},
	description: []string{"ServiceDescription", "Description", "description"},
	quantity:    []string{"Quantity", "Qty", "quantity"},
	unitPrice:   []string{"UnitPrice", "Price", "unit_price"},
}

// extractBupa reads the flat, PascalCase export of the Bupa provider portal.
func extractBupa(raw payload.Value, e env) (*claim.CanonicalClaim, error) {
	r := newReader(raw)
	c := &claim.CanonicalClaim{
		ClaimID: r.text("ClaimNumber", "claim_number", "claim_id", "id"),
		Provider: claim.Provider{
			Name:          r.text("ProviderName", "provider_name", "HospitalName"),
			Code:          r.text("ProviderCode", "provider_code", "ProviderID"),
			Branch:        r.text("Branch", "BranchName", "branch"),
			LicenseNumber: r.optText("LicenseNumber", "ProviderLicense", "license_number"),
			Contact:       r.optText("ProviderContact", "ProviderPhone", "provider_contact"),
		},
		Patient: claim.Patient{
			MemberID:    r.text("MembershipNumber", "MemberID", "member_id", "membership_no"),
			Name:        r.text("MemberName", "PatientName", "patient_name"),
			NationalID:  r.optText("NationalID", "IqamaNumber", "national_id", "iqama"),
			DateOfBirth: r.optDate("DateOfBirth", "BirthDate", "date_of_birth", "dob"),
			Gender:      r.gender("Gender", "Sex", "gender"),
		},
		ClaimDetails: claim.ClaimDetails{
			ServiceDate:    r.date(e.today, "ServiceDate", "DateOfService", "service_date", "treatment_date"),
			TotalAmount:    r.amount("TotalAmount", "ClaimAmount", "total_amount", "amount"),
			Currency:       r.text("Currency", "currency"),
			DiagnosisCodes: r.codes([]string{"Code", "ICD10", "code"}, "DiagnosisCodes", "ICD10Codes", "diagnosis_codes", "diagnoses"),
			ProcedureCodes: r.procedures(bupaProcedureKeys, "ServiceLines", "Procedures", "procedures", "procedure_codes"),
			EncounterType:  r.optText("EncounterType", "VisitType", "encounter_type"),
		},
		Payer: claim.Payer{
			Name:          firstNonEmpty(r.text("PayerName", "payer_name"), "Bupa Arabia"),
			PayerID:       r.optText("PayerID", "payer_id"),
			InsuranceType: claim.ParseInsuranceType(r.text("InsuranceType", "insurance_type")),
			PolicyNumber:  r.optText("PolicyNumber", "ContractNumber", "policy_number"),
		},
		Submission: claim.Submission{
			Method:    claim.ParseSubmissionMethod(r.text("SubmissionMethod", "submission_method"), claim.MethodPortal),
			Timestamp: r.timestamp(e.today, "SubmissionDate", "SubmittedAt", "submitted_at"),
			Status:    claim.ParseSubmissionStatus(r.text("Status", "status")),
			BatchID:   r.optText("BatchID", "batch_id"),
		},
	}
	if err := r.err(); err != nil {
		return nil, err
	}
	return c, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
