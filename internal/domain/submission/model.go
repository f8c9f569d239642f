package submission

import (
	"time"

	"github.com/google/uuid"

	"github.com/ehr/claims/internal/domain/claim"
	"github.com/ehr/claims/internal/domain/validation"
)

// Pipeline statuses. A validated submission carries the verdict status
// (passed, warning, requires_review, failed) instead.
const (
	StatusNormalized = "normalized"
	StatusRejected   = "rejected"
)

// Submission records one payload's trip through the pipeline. Claim is set
// unless normalization rejected the payload; Verdict is set only when
// validation ran.
type Submission struct {
	ID               uuid.UUID             `json:"id"`
	ClaimID          string                `json:"claim_id"`
	SourceFormat     string                `json:"source_format"`
	Status           string                `json:"status"`
	Score            *float64              `json:"score,omitempty"`
	ComplianceStatus *string               `json:"compliance_status,omitempty"`
	Claim            *claim.CanonicalClaim `json:"claim,omitempty"`
	Verdict          *validation.Verdict   `json:"verdict,omitempty"`
	ErrorKind        *string               `json:"error_kind,omitempty"`
	ErrorDetail      *string               `json:"error_detail,omitempty"`
	BatchID          *string               `json:"batch_id,omitempty"`
	CreatedAt        time.Time             `json:"created_at"`
}

// Accepted reports whether normalization produced a claim.
func (s *Submission) Accepted() bool {
	return s.Status != StatusRejected
}
