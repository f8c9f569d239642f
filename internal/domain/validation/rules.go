package validation

import (
	"time"

	"github.com/shopspring/decimal"
)

// RuleSetVersion identifies the rule catalogue stamped on every verdict.
const RuleSetVersion = "2024.06"

// Regulatory and business thresholds.
const (
	DefaultComplianceWindow = 30 * 24 * time.Hour
	DefaultStaleServiceAge  = 365 * 24 * time.Hour
)

var (
	DefaultAmountCeiling   = decimal.NewFromInt(1_000_000)
	DefaultAmountTolerance = decimal.New(1, -2)
)

// Rules holds the configurable thresholds the checks compare against.
type Rules struct {
	// ComplianceWindow is the maximum gap between service date and
	// submission before CMP-001 fires.
	ComplianceWindow time.Duration
	// StaleServiceAge is how far in the past a service date may lie
	// before FMT-004 fires.
	StaleServiceAge time.Duration
	AmountCeiling   decimal.Decimal
	AmountTolerance decimal.Decimal
}

// DefaultRules returns the production thresholds.
func DefaultRules() Rules {
	return Rules{
		ComplianceWindow: DefaultComplianceWindow,
		StaleServiceAge:  DefaultStaleServiceAge,
		AmountCeiling:    DefaultAmountCeiling,
		AmountTolerance:  DefaultAmountTolerance,
	}
}
