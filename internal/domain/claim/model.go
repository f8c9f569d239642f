package claim

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ehr/claims/internal/platform/payload"
)

// UnknownClaimID is stored when the payer did not supply an identifier.
const UnknownClaimID = "UNKNOWN"

// CanonicalClaim is the payer-agnostic claim record produced by
// normalization. It is not modified after construction.
type CanonicalClaim struct {
	ClaimID      string       `json:"claim_id"`
	Provider     Provider     `json:"provider"`
	Patient      Patient      `json:"patient"`
	ClaimDetails ClaimDetails `json:"claim_details"`
	Payer        Payer        `json:"payer"`
	Submission   Submission   `json:"submission"`
	Metadata     Metadata     `json:"metadata"`
}

type Provider struct {
	Name          string  `json:"name"`
	Code          string  `json:"code"`
	Branch        string  `json:"branch"`
	LicenseNumber *string `json:"license_number,omitempty"`
	Contact       *string `json:"contact,omitempty"`
}

type Patient struct {
	MemberID    string     `json:"member_id"`
	Name        string     `json:"name"`
	NationalID  *string    `json:"national_id,omitempty"`
	DateOfBirth *time.Time `json:"date_of_birth,omitempty"`
	Gender      *Gender    `json:"gender,omitempty"`
}

type ClaimDetails struct {
	ServiceDate    time.Time       `json:"service_date"`
	TotalAmount    decimal.Decimal `json:"total_amount"`
	Currency       string          `json:"currency,omitempty"`
	DiagnosisCodes []string        `json:"diagnosis_codes"`
	ProcedureCodes []Procedure     `json:"procedure_codes"`
	EncounterType  *string         `json:"encounter_type,omitempty"`
}

// Procedure is one billed service line. Quantity is always at least 1.
type Procedure struct {
	Code        string           `json:"code"`
	Description *string          `json:"description,omitempty"`
	Quantity    int              `json:"quantity"`
	UnitPrice   *decimal.Decimal `json:"unit_price,omitempty"`
}

// LineTotal returns quantity × unit price, or zero when the price is absent.
func (p Procedure) LineTotal() decimal.Decimal {
	if p.UnitPrice == nil {
		return decimal.Zero
	}
	return p.UnitPrice.Mul(decimal.NewFromInt(int64(p.Quantity)))
}

type Payer struct {
	Name          string        `json:"name"`
	PayerID       *string       `json:"payer_id,omitempty"`
	InsuranceType InsuranceType `json:"insurance_type"`
	PolicyNumber  *string       `json:"policy_number,omitempty"`
}

type Submission struct {
	Method    SubmissionMethod `json:"method"`
	Timestamp time.Time        `json:"timestamp"`
	Status    SubmissionStatus `json:"status"`
	BatchID   *string          `json:"batch_id,omitempty"`
}

// Metadata records provenance only; no rule reads it.
type Metadata struct {
	SourceFormat string    `json:"source_format"`
	Strategy     string    `json:"strategy"`
	ProcessedAt  time.Time `json:"processed_at"`
}

// LineItemTotal sums LineTotal across all procedures.
func (c *CanonicalClaim) LineItemTotal() decimal.Decimal {
	sum := decimal.Zero
	for _, p := range c.ClaimDetails.ProcedureCodes {
		sum = sum.Add(p.LineTotal())
	}
	return sum
}

// CheckAmounts rejects a claim whose total or unit prices are outside the
// range payload.CheckMagnitude accepts.
func (c *CanonicalClaim) CheckAmounts() error {
	if err := payload.CheckMagnitude(c.ClaimDetails.TotalAmount); err != nil {
		return fmt.Errorf("total_amount: %w", err)
	}
	for i, p := range c.ClaimDetails.ProcedureCodes {
		if p.UnitPrice == nil {
			continue
		}
		if err := payload.CheckMagnitude(*p.UnitPrice); err != nil {
			return fmt.Errorf("procedure_codes[%d].unit_price: %w", i, err)
		}
	}
	return nil
}
