package validation

import (
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ehr/claims/internal/domain/claim"
)

// DefaultWorkers bounds ValidateBatch fan-out when no width is configured.
const DefaultWorkers = 8

// Option configures a Validator.
type Option func(*Validator)

// WithRules replaces the default thresholds.
func WithRules(rules Rules) Option {
	return func(v *Validator) { v.rules = rules }
}

// WithClock overrides the clock used for date checks and validated_at.
func WithClock(now func() time.Time) Option {
	return func(v *Validator) { v.now = now }
}

// WithWorkers sets the maximum number of claims validated concurrently.
func WithWorkers(workers int) Option {
	return func(v *Validator) {
		if workers > 0 {
			v.workers = workers
		}
	}
}

// Validator scores canonical claims. It never mutates its input and is safe
// for concurrent use.
type Validator struct {
	rules   Rules
	now     func() time.Time
	workers int
}

func New(opts ...Option) *Validator {
	v := &Validator{rules: DefaultRules(), now: time.Now, workers: DefaultWorkers}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Rules returns the thresholds in effect.
func (v *Validator) Rules() Rules { return v.rules }

// Validate always returns a complete verdict. A nil claim is validated as an
// empty one.
func (v *Validator) Validate(c *claim.CanonicalClaim) Verdict {
	if c == nil {
		c = &claim.CanonicalClaim{}
	}
	now := v.now().UTC()

	errs := []ValidationError{}
	for _, run := range checks {
		errs = append(errs, run(c, v.rules, now)...)
	}
	warnings := checkQuality(c)
	if warnings == nil {
		warnings = []ValidationWarning{}
	}

	metrics := Metrics(c, errs)
	return Verdict{
		ClaimID:          c.ClaimID,
		Status:           statusOf(errs, warnings),
		Score:            Score(metrics, errs, len(warnings)),
		ComplianceStatus: complianceOf(errs),
		Errors:           errs,
		Warnings:         warnings,
		Recommendations:  recommendations(errs, warnings),
		QualityMetrics:   metrics,
		RuleSetVersion:   RuleSetVersion,
		ValidatedAt:      now,
	}
}

// ValidateBatch validates claims with bounded concurrency. Verdicts are
// returned in input order.
func (v *Validator) ValidateBatch(claims []*claim.CanonicalClaim) []Verdict {
	verdicts := make([]Verdict, len(claims))
	var g errgroup.Group
	g.SetLimit(v.workers)
	for i := range claims {
		i := i
		g.Go(func() error {
			verdicts[i] = v.Validate(claims[i])
			return nil
		})
	}
	_ = g.Wait()
	return verdicts
}
