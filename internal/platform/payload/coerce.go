package payload

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// DateLayout is the plain calendar-date fallback accepted after ISO-8601.
const DateLayout = "2006-01-02"

var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

// Decimals whose exponent or coefficient fall outside these bounds are
// refused: comparing them rescales to 10^exponent.
const (
	MaxExponent        = 18
	maxCoefficientBits = 128
)

// ErrOutOfRange marks numbers too large or too precise to be handled.
var ErrOutOfRange = errors.New("number out of range")

// CheckMagnitude reports ErrOutOfRange for decimals beyond MaxExponent in
// either direction or with an oversized coefficient.
func CheckMagnitude(d decimal.Decimal) error {
	if e := d.Exponent(); e > MaxExponent || e < -MaxExponent || d.Coefficient().BitLen() > maxCoefficientBits {
		return ErrOutOfRange
	}
	return nil
}

// AsString renders scalars as text. Containers and null report false.
func AsString(v Value) (string, bool) {
	switch v.kind {
	case KindString:
		return strings.TrimSpace(v.str), true
	case KindNumber:
		return v.num, true
	case KindBool:
		return strconv.FormatBool(v.b), true
	case KindNull, KindArray, KindObject:
		return "", false
	}
	return "", false
}

// AsDecimal resolves numeric or string-numeric input to an exact decimal.
// Out-of-range input wraps ErrOutOfRange.
func AsDecimal(v Value) (decimal.Decimal, error) {
	switch v.kind {
	case KindNumber:
		d, err := decimal.NewFromString(v.num)
		if err != nil {
			return decimal.Zero, err
		}
		if d.IsZero() {
			return decimal.Zero, nil
		}
		if err := CheckMagnitude(d); err != nil {
			return decimal.Zero, fmt.Errorf("amount %s: %w", v.num, err)
		}
		return d, nil
	case KindString:
		s := strings.TrimSpace(v.str)
		if s == "" {
			return decimal.Zero, nil
		}
		s = strings.ReplaceAll(s, ",", "")
		d, err := decimal.NewFromString(s)
		if err != nil {
			return decimal.Zero, fmt.Errorf("amount %q is not numeric", v.str)
		}
		if d.IsZero() {
			return decimal.Zero, nil
		}
		if err := CheckMagnitude(d); err != nil {
			return decimal.Zero, fmt.Errorf("amount %q: %w", v.str, err)
		}
		return d, nil
	case KindNull:
		return decimal.Zero, nil
	case KindBool, KindArray, KindObject:
		return decimal.Zero, fmt.Errorf("amount must be numeric, got %s", v.kind)
	}
	return decimal.Zero, fmt.Errorf("amount must be numeric, got %s", v.kind)
}

var (
	minInt = decimal.NewFromInt(math.MinInt32)
	maxInt = decimal.NewFromInt(math.MaxInt32)
)

// AsInt resolves numeric or string-numeric input, truncating any fractional
// part. Values outside the int32 range wrap ErrOutOfRange.
func AsInt(v Value) (int, error) {
	switch v.kind {
	case KindNumber, KindString:
		if v.kind == KindString && strings.TrimSpace(v.str) == "" {
			return 0, fmt.Errorf("count is empty")
		}
		d, err := AsDecimal(v)
		if err != nil {
			return 0, err
		}
		if d.LessThan(minInt) || d.GreaterThan(maxInt) {
			return 0, fmt.Errorf("count %s: %w", d, ErrOutOfRange)
		}
		return int(d.IntPart()), nil
	case KindNull, KindBool, KindArray, KindObject:
		return 0, fmt.Errorf("count must be numeric, got %s", v.kind)
	}
	return 0, fmt.Errorf("count must be numeric, got %s", v.kind)
}

// AsTime parses an ISO-8601 timestamp, falling back to a plain date.
func AsTime(v Value) (time.Time, bool) {
	s, ok := AsString(v)
	if !ok || s == "" || v.kind != KindString {
		return time.Time{}, false
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	if t, err := time.Parse(DateLayout, s); err == nil {
		return t, true
	}
	return time.Time{}, false
}

// AsDate parses like AsTime and keeps only the calendar date, at midnight UTC.
func AsDate(v Value) (time.Time, bool) {
	s, ok := AsString(v)
	if !ok || s == "" || v.kind != KindString {
		return time.Time{}, false
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return DateOf(t), true
		}
	}
	if t, err := time.Parse(DateLayout, s); err == nil {
		return t, true
	}
	return time.Time{}, false
}

// AsStrings accepts an array of scalars or a comma/semicolon separated
// string. Blank entries are dropped.
func AsStrings(v Value) ([]string, bool) {
	var out []string
	switch v.kind {
	case KindArray:
		for _, item := range v.arr {
			if s, ok := AsString(item); ok && s != "" {
				out = append(out, s)
			}
		}
		return out, true
	case KindString:
		for _, part := range strings.FieldsFunc(v.str, func(r rune) bool { return r == ',' || r == ';' }) {
			if p := strings.TrimSpace(part); p != "" {
				out = append(out, p)
			}
		}
		return out, true
	case KindNull, KindBool, KindNumber, KindObject:
		return nil, false
	}
	return nil, false
}

// DateOf truncates t to its calendar date in its own location, expressed at
// midnight UTC.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
