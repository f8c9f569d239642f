package normalize

import (
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ehr/claims/internal/domain/claim"
	"github.com/ehr/claims/internal/platform/payload"
)

// DefaultWorkers bounds batch fan-out when no width is configured.
const DefaultWorkers = 8

// Option configures a Normalizer.
type Option func(*Normalizer)

// WithClock overrides the clock used for "today" defaults and processed_at.
func WithClock(now func() time.Time) Option {
	return func(n *Normalizer) { n.now = now }
}

// WithStrictFormats rejects unrecognized source formats with
// KindUnsupportedFormat instead of routing them to the generic strategy.
func WithStrictFormats() Option {
	return func(n *Normalizer) { n.strict = true }
}

// WithWorkers sets the maximum number of payloads normalized concurrently by
// NormalizeBatch.
func WithWorkers(workers int) Option {
	return func(n *Normalizer) {
		if workers > 0 {
			n.workers = workers
		}
	}
}

// Normalizer maps payer payloads onto the canonical claim schema. It holds
// no per-call state and is safe for concurrent use.
type Normalizer struct {
	now     func() time.Time
	strict  bool
	workers int
}

func New(opts ...Option) *Normalizer {
	n := &Normalizer{now: time.Now, workers: DefaultWorkers}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Result is the outcome for one payload of a batch. Exactly one of Claim and
// Err is set.
type Result struct {
	Index int                   `json:"index"`
	Claim *claim.CanonicalClaim `json:"claim,omitempty"`
	Err   error                 `json:"-"`
}

// env carries the per-call values every strategy needs.
type env struct {
	declared string
	format   SourceFormat
	today    time.Time
}

// Normalize converts one payload. Missing fields fall back to sentinel
// defaults; only structurally malformed input is rejected.
func (n *Normalizer) Normalize(raw payload.Value, sourceFormat string) (c *claim.CanonicalClaim, err error) {
	declared := strings.ToLower(strings.TrimSpace(sourceFormat))
	format, known := ParseSourceFormat(declared)
	if !known && n.strict {
		return nil, newError(KindUnsupportedFormat, "source format %q is not supported", sourceFormat)
	}
	if declared == "" {
		declared = FormatGeneric.String()
	}
	if !raw.IsObject() {
		return nil, newError(KindInvalidData, "payload must be an object, got %s", raw.Kind())
	}

	defer func() {
		if r := recover(); r != nil {
			c = nil
			err = &Error{Kind: KindInvalidData, Detail: "extraction failed", Err: fmt.Errorf("%v", r)}
		}
	}()

	now := n.now()
	e := env{declared: declared, format: format, today: payload.DateOf(now.UTC())}

	var strategy string
	switch format {
	case FormatBupa:
		c, err = extractBupa(raw, e)
		strategy = FormatBupa.String()
	case FormatGlobeMed:
		c, err = extractGlobeMed(raw, e)
		strategy = FormatGlobeMed.String()
	case FormatWaseel:
		if isBundle(raw) {
			c, err = extractBundle(raw, e)
			strategy = "fhir_bundle"
		} else {
			c, err = extractGeneric(raw, e)
			strategy = FormatGeneric.String()
		}
	case FormatGeneric:
		c, err = extractGeneric(raw, e)
		strategy = FormatGeneric.String()
	}
	if err != nil {
		return nil, err
	}

	finish(c, e, strategy, now)
	return c, nil
}

// NormalizeJSON decodes raw JSON and normalizes it. Undecodable input is
// reported as KindParsingError.
func (n *Normalizer) NormalizeJSON(data []byte, sourceFormat string) (*claim.CanonicalClaim, error) {
	raw, err := payload.Decode(data)
	if err != nil {
		return nil, &Error{Kind: KindParsingError, Detail: "payload is not valid JSON", Err: err}
	}
	return n.Normalize(raw, sourceFormat)
}

// NormalizeBatch normalizes every payload with bounded concurrency. The
// result slice has the same length and order as payloads; a failing item
// never affects its siblings.
func (n *Normalizer) NormalizeBatch(payloads []payload.Value, sourceFormat string) []Result {
	results := make([]Result, len(payloads))
	var g errgroup.Group
	g.SetLimit(n.workers)
	for i := range payloads {
		i := i
		g.Go(func() error {
			c, err := n.Normalize(payloads[i], sourceFormat)
			results[i] = Result{Index: i, Claim: c, Err: err}
			return nil
		})
	}
	_ = g.Wait()
	return results
}

// finish applies the post-extraction rules shared by every strategy.
func finish(c *claim.CanonicalClaim, e env, strategy string, now time.Time) {
	if c.ClaimID == "" {
		c.ClaimID = claim.UnknownClaimID
	}
	c.Provider.Branch = claim.CanonicalBranch(c.Provider.Branch)
	if c.ClaimDetails.DiagnosisCodes == nil {
		c.ClaimDetails.DiagnosisCodes = []string{}
	}
	if c.ClaimDetails.ProcedureCodes == nil {
		c.ClaimDetails.ProcedureCodes = []claim.Procedure{}
	}
	if c.ClaimDetails.Currency == "" {
		c.ClaimDetails.Currency = DefaultCurrency
	}
	if c.Submission.Status == "" {
		c.Submission.Status = claim.StatusPending
	}
	c.Metadata = claim.Metadata{
		SourceFormat: e.declared,
		Strategy:     strategy,
		ProcessedAt:  now.UTC(),
	}
}

// DefaultCurrency is assumed when a payload carries no currency.
const DefaultCurrency = "SAR"
