package normalize

import (
	"github.com/ehr/claims/internal/domain/claim"
	"github.com/ehr/claims/internal/platform/payload"
)

var globeMedProcedureKeys = procedureKeys{
	code:        []string{"code", "serviceCode", "cptCode"},
	description: []string{"description", "serviceName", "name"},
	quantity:    []string{"quantity", "qty", "units"},
	unitPrice:   []string{"unitPrice", "price", "unitCost"},
}

// extractGlobeMed reads the nested camelCase documents produced by the
// GlobeMed TPA gateway: claim, provider, member, payer and services sections.
func extractGlobeMed(raw payload.Value, e env) (*claim.CanonicalClaim, error) {
	root := newReader(raw)
	cl := root.nested("claim")
	prov := root.nested("provider")
	mem := root.nested("member", "beneficiary")
	pay := root.nested("payer", "insurer")

	c := &claim.CanonicalClaim{
		ClaimID: cl.text("reference", "claimReference", "claimId", "id"),
		Provider: claim.Provider{
			Name:          prov.only(firstObject(raw, "provider")).text("name"),
			Code:          prov.text("code", "providerCode", "providerId"),
			Branch:        prov.text("branch", "location", "facility"),
			LicenseNumber: prov.optText("license", "licenseNumber"),
			Contact:       prov.optText("contact", "phone", "email"),
		},
		Patient: claim.Patient{
			MemberID:    mem.text("cardNumber", "memberId", "memberNumber"),
			Name:        mem.only(firstObject(raw, "member", "beneficiary")).text("fullName", "name"),
			NationalID:  mem.optText("nationalId", "idNumber"),
			DateOfBirth: mem.optDate("dateOfBirth", "dob", "birthDate"),
			Gender:      mem.gender("gender", "sex"),
		},
		ClaimDetails: claim.ClaimDetails{
			ServiceDate:    cl.date(e.today, "serviceDate", "admissionDate", "date"),
			TotalAmount:    cl.amount("totalAmount", "total", "amount"),
			Currency:       cl.text("currency"),
			DiagnosisCodes: root.codes([]string{"code", "icd10", "icdCode"}, "diagnoses", "diagnosisCodes"),
			ProcedureCodes: root.procedures(globeMedProcedureKeys, "services", "procedures", "lines"),
			EncounterType:  cl.optText("encounterType", "visitType", "type"),
		},
		Payer: claim.Payer{
			Name:          firstNonEmpty(pay.only(firstObject(raw, "payer", "insurer")).text("name"), "GlobeMed"),
			PayerID:       pay.only(firstObject(raw, "payer", "insurer")).optText("id", "payerId", "code"),
			InsuranceType: claim.ParseInsuranceType(pay.text("insuranceType", "planType")),
			PolicyNumber:  pay.optText("policyNumber", "policyNo"),
		},
		Submission: claim.Submission{
			Method:    claim.ParseSubmissionMethod(cl.text("submissionMethod", "channel"), claim.MethodPortal),
			Timestamp: cl.timestamp(e.today, "submittedAt", "submissionDate"),
			Status:    claim.ParseSubmissionStatus(cl.text("status")),
			BatchID:   cl.optText("batchId", "batchReference"),
		},
	}
	if err := root.err(); err != nil {
		return nil, err
	}
	return c, nil
}

// firstObject returns the first object member under keys, or an empty object.
// Used for fields whose bare names ("name", "id") would otherwise be shadowed
// by the same key in an outer scope.
func firstObject(raw payload.Value, keys ...string) payload.Value {
	if v, ok := raw.First(keys...); ok && v.IsObject() {
		return v
	}
	return payload.Object(nil)
}
