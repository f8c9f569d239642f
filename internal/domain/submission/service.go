package submission

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/ehr/claims/internal/domain/claim"
	"github.com/ehr/claims/internal/domain/normalize"
	"github.com/ehr/claims/internal/domain/validation"
	"github.com/ehr/claims/internal/platform/payload"
)

// ErrNoStore is returned by reads when the service runs without a repository.
var ErrNoStore = errors.New("submission storage is not configured")

type Service struct {
	normalizer *normalize.Normalizer
	validator  *validation.Validator
	repo       Repository
	logger     zerolog.Logger
	now        func() time.Time
}

// NewService wires the pipeline. repo may be nil, in which case results are
// returned but never stored.
func NewService(n *normalize.Normalizer, v *validation.Validator, repo Repository, logger zerolog.Logger) *Service {
	return &Service{
		normalizer: n,
		validator:  v,
		repo:       repo,
		logger:     logger.With().Str("component", "submission").Logger(),
		now:        time.Now,
	}
}

// Persistent reports whether submissions are stored.
func (s *Service) Persistent() bool { return s.repo != nil }

func (s *Service) NormalizeJSON(data []byte, format string) (*claim.CanonicalClaim, error) {
	return s.normalizer.NormalizeJSON(data, format)
}

func (s *Service) NormalizeBatch(payloads []payload.Value, format string) []normalize.Result {
	return s.normalizer.NormalizeBatch(payloads, format)
}

func (s *Service) Validate(c *claim.CanonicalClaim) validation.Verdict {
	return s.validator.Validate(c)
}

func (s *Service) ValidateBatch(claims []*claim.CanonicalClaim) []validation.Verdict {
	return s.validator.ValidateBatch(claims)
}

// Process normalizes raw, optionally validates the result, and stores the
// outcome. A rejected payload is not an error: it yields a submission with
// StatusRejected and the failure kind. The returned error is a storage failure.
func (s *Service) Process(ctx context.Context, raw payload.Value, format string, validate bool) (*Submission, error) {
	c, err := s.normalizer.Normalize(raw, format)
	sub := s.build(format, c, err, nil)
	if err != nil {
		s.logRejection(-1, sub)
	} else if validate {
		s.attachVerdict(sub, s.validator.Validate(c))
	}
	if err := s.store(ctx, sub); err != nil {
		return nil, err
	}
	return sub, nil
}

// ProcessBatch runs Process over every payload under one batch id. The
// result has the same length and order as payloads. Submissions are stored
// all-or-nothing: on a storage error none of the batch is kept.
func (s *Service) ProcessBatch(ctx context.Context, payloads []payload.Value, format string, validate bool) ([]*Submission, error) {
	start := time.Now()
	batchID := uuid.New().String()

	results := s.normalizer.NormalizeBatch(payloads, format)
	subs := make([]*Submission, len(results))
	var accepted []*claim.CanonicalClaim
	var acceptedIdx []int
	failed := 0
	for i, r := range results {
		subs[i] = s.build(format, r.Claim, r.Err, &batchID)
		if r.Err != nil {
			failed++
			s.logRejection(i, subs[i])
			continue
		}
		accepted = append(accepted, r.Claim)
		acceptedIdx = append(acceptedIdx, i)
	}

	if validate && len(accepted) > 0 {
		for j, verdict := range s.validator.ValidateBatch(accepted) {
			s.attachVerdict(subs[acceptedIdx[j]], verdict)
		}
	}

	if s.repo != nil && len(subs) > 0 {
		if err := s.repo.CreateBatch(ctx, subs); err != nil {
			return nil, fmt.Errorf("store batch %s: %w", batchID, err)
		}
	}

	s.logger.Info().
		Str("batch_id", batchID).
		Int("items", len(payloads)).
		Int("failed", failed).
		Dur("duration", time.Since(start)).
		Msg("claim batch processed")
	return subs, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Submission, error) {
	if s.repo == nil {
		return nil, ErrNoStore
	}
	return s.repo.GetByID(ctx, id)
}

func (s *Service) List(ctx context.Context, limit, offset int) ([]*Submission, int, error) {
	if s.repo == nil {
		return nil, 0, ErrNoStore
	}
	return s.repo.List(ctx, limit, offset)
}

func (s *Service) build(format string, c *claim.CanonicalClaim, err error, batchID *string) *Submission {
	sub := &Submission{
		ID:           uuid.New(),
		SourceFormat: format,
		Status:       StatusNormalized,
		BatchID:      batchID,
		CreatedAt:    s.now().UTC(),
	}
	if err != nil {
		kind, ok := normalize.KindOf(err)
		if !ok {
			kind = normalize.KindInvalidData
		}
		k, detail := string(kind), err.Error()
		sub.Status = StatusRejected
		sub.ClaimID = claim.UnknownClaimID
		sub.ErrorKind = &k
		sub.ErrorDetail = &detail
		return sub
	}
	sub.ClaimID = c.ClaimID
	sub.SourceFormat = c.Metadata.SourceFormat
	sub.Claim = c
	return sub
}

func (s *Service) attachVerdict(sub *Submission, v validation.Verdict) {
	score := v.Score
	compliance := string(v.ComplianceStatus)
	sub.Status = string(v.Status)
	sub.Score = &score
	sub.ComplianceStatus = &compliance
	sub.Verdict = &v
}

func (s *Service) store(ctx context.Context, sub *Submission) error {
	if s.repo == nil {
		return nil
	}
	if err := s.repo.Create(ctx, sub); err != nil {
		return fmt.Errorf("store submission %s: %w", sub.ID, err)
	}
	return nil
}

func (s *Service) logRejection(index int, sub *Submission) {
	evt := s.logger.Warn().Str("source_format", sub.SourceFormat).Str("kind", *sub.ErrorKind)
	if index >= 0 {
		evt = evt.Int("index", index)
	}
	evt.Str("detail", *sub.ErrorDetail).Msg("claim normalization rejected")
}
