package normalize

import (
	"testing"
	"time"

	"github.com/ehr/claims/internal/domain/claim"
)

const nphiesBundle = `{
	"resourceType": "Bundle",
	"id": "BATCH-42",
	"type": "message",
	"timestamp": "2024-06-03T09:15:00+03:00",
	"entry": [
		{
			"fullUrl": "http://provider.example.sa/Organization/org-1",
			"resource": {
				"resourceType": "Organization",
				"id": "org-1",
				"name": "Saudi German Hospital",
				"identifier": [
					{"system": "http://nphies.sa/provider-id", "value": "SGH-10"},
					{"system": "http://nphies.sa/license/provider-license", "value": "LIC-321"}
				],
				"telecom": [{"system": "phone", "value": "+966112223333"}],
				"address": [{"city": "Dammam"}]
			}
		},
		{
			"resource": {
				"resourceType": "Patient",
				"id": "pat-1",
				"identifier": [
					{"system": "http://nphies.sa/identifier/iqama", "value": "2123456789"},
					{"system": "http://payer.example.sa/member", "value": "MEM-777"}
				],
				"name": [{"given": ["Omar", "Khalid"], "family": "Al Harbi"}],
				"gender": "male",
				"birthDate": "1979-11-02"
			}
		},
		{
			"resource": {
				"resourceType": "Coverage",
				"id": "cov-1",
				"identifier": [{"system": "http://payer.example.sa/policy", "value": "TAW-POL-5"}],
				"subscriberId": "SUB-1",
				"type": {"coding": [{"code": "government"}]},
				"payor": [{"display": "Tawuniya Insurance"}]
			}
		},
		{
			"resource": {
				"resourceType": "Claim",
				"id": "claim-1",
				"identifier": [{"system": "http://provider.example.sa/claim", "value": "TAW-CLM-9"}],
				"created": "2024-06-02",
				"billablePeriod": {"start": "2024-05-30"},
				"subType": {"coding": [{"code": "OP"}]},
				"patient": {"reference": "Patient/pat-1"},
				"provider": {"reference": "http://provider.example.sa/Organization/org-1"},
				"insurance": [{"coverage": {"reference": "Coverage/cov-1"}}],
				"diagnosis": [
					{"diagnosisCodeableConcept": {"coding": [{"code": "J06.9"}]}},
					{"diagnosisCodeableConcept": {"coding": [{"code": "R50.9"}]}}
				],
				"item": [
					{
						"productOrService": {"coding": [{"code": "99213", "display": "Office visit"}]},
						"quantity": {"value": 1},
						"unitPrice": {"value": 200, "currency": "SAR"}
					},
					{
						"productOrService": {"coding": [{"code": "87880"}], "text": "Strep test"},
						"quantity": {"value": 2},
						"unitPrice": {"value": "25.00"}
					}
				],
				"total": {"value": 250, "currency": "SAR"}
			}
		}
	]
}`

func TestNormalize_WaseelBundle(t *testing.T) {
	c, err := newTestNormalizer().Normalize(mustDecode(t, nphiesBundle), "tawuniya")
	if err != nil {
		t.Fatalf("Normalize() error: %v", err)
	}
	if c.Metadata.Strategy != "fhir_bundle" || c.Metadata.SourceFormat != "tawuniya" {
		t.Errorf("unexpected metadata %+v", c.Metadata)
	}
	if c.ClaimID != "TAW-CLM-9" {
		t.Errorf("expected claim id TAW-CLM-9, got %q", c.ClaimID)
	}
	if c.Provider.Name != "Saudi German Hospital" || c.Provider.Code != "SGH-10" || c.Provider.Branch != claim.BranchDammam {
		t.Errorf("unexpected provider %+v", c.Provider)
	}
	if c.Provider.LicenseNumber == nil || *c.Provider.LicenseNumber != "LIC-321" {
		t.Errorf("unexpected license %v", c.Provider.LicenseNumber)
	}
	if c.Patient.Name != "Omar Khalid Al Harbi" || c.Patient.MemberID != "MEM-777" {
		t.Errorf("unexpected patient %+v", c.Patient)
	}
	if c.Patient.NationalID == nil || *c.Patient.NationalID != "2123456789" {
		t.Errorf("unexpected national id %v", c.Patient.NationalID)
	}
	if !c.ClaimDetails.ServiceDate.Equal(day(2024, 5, 30)) {
		t.Errorf("expected billable period start, got %v", c.ClaimDetails.ServiceDate)
	}
	if !c.ClaimDetails.TotalAmount.Equal(dec("250")) || !c.LineItemTotal().Equal(dec("250")) {
		t.Errorf("unexpected amounts total=%s lines=%s", c.ClaimDetails.TotalAmount, c.LineItemTotal())
	}
	if got := c.ClaimDetails.DiagnosisCodes; len(got) != 2 || got[0] != "J06.9" {
		t.Errorf("unexpected diagnosis codes %v", got)
	}
	items := c.ClaimDetails.ProcedureCodes
	if len(items) != 2 || items[1].Description == nil || *items[1].Description != "Strep test" {
		t.Fatalf("unexpected items %+v", items)
	}
	if c.ClaimDetails.EncounterType == nil || *c.ClaimDetails.EncounterType != "OP" {
		t.Errorf("unexpected encounter type %v", c.ClaimDetails.EncounterType)
	}
	if c.Payer.Name != "Tawuniya Insurance" || c.Payer.InsuranceType != claim.InsuranceGovernment {
		t.Errorf("unexpected payer %+v", c.Payer)
	}
	if c.Payer.PolicyNumber == nil || *c.Payer.PolicyNumber != "TAW-POL-5" {
		t.Errorf("unexpected policy %v", c.Payer.PolicyNumber)
	}
	if c.Submission.Method != claim.MethodExternalNetwork {
		t.Errorf("expected external-network, got %s", c.Submission.Method)
	}
	if c.Submission.BatchID == nil || *c.Submission.BatchID != "BATCH-42" {
		t.Errorf("unexpected batch id %v", c.Submission.BatchID)
	}
	if !c.Submission.Timestamp.Equal(time.Date(2024, 6, 3, 6, 15, 0, 0, time.UTC)) {
		t.Errorf("unexpected submission timestamp %v", c.Submission.Timestamp)
	}
}

func TestNormalize_BundleWithoutClaim(t *testing.T) {
	body := `{"resourceType": "Bundle", "entry": [{"resource": {"resourceType": "Patient", "id": "p"}}]}`
	_, err := newTestNormalizer().Normalize(mustDecode(t, body), "waseel")
	if !IsKind(err, KindMissingRequiredField) {
		t.Fatalf("expected missing_required_field, got %v", err)
	}
}

func TestNormalize_BundleProviderDisplayOnly(t *testing.T) {
	body := `{"resourceType": "Bundle", "entry": [{"resource": {
		"resourceType": "Claim",
		"id": "c-2",
		"provider": {"display": "Mouwasat Clinic"},
		"total": {"value": 80}
	}}]}`
	c, err := newTestNormalizer().Normalize(mustDecode(t, body), "waseel")
	if err != nil {
		t.Fatalf("Normalize() error: %v", err)
	}
	if c.ClaimID != "c-2" || c.Provider.Name != "Mouwasat Clinic" {
		t.Errorf("unexpected claim %q provider %+v", c.ClaimID, c.Provider)
	}
	if c.Payer.Name != "Waseel" {
		t.Errorf("expected payer default Waseel, got %q", c.Payer.Name)
	}
	if !c.ClaimDetails.ServiceDate.Equal(day(2024, 6, 15)) {
		t.Errorf("expected service date to default to today, got %v", c.ClaimDetails.ServiceDate)
	}
}

func TestNormalize_WaseelNonBundleUsesGeneric(t *testing.T) {
	c, err := newTestNormalizer().Normalize(mustDecode(t, `{"claim_id": "W-1"}`), "waseel")
	if err != nil {
		t.Fatalf("Normalize() error: %v", err)
	}
	if c.Metadata.Strategy != "generic" || c.Submission.Method != claim.MethodExternalNetwork {
		t.Errorf("unexpected strategy %q method %s", c.Metadata.Strategy, c.Submission.Method)
	}
}
