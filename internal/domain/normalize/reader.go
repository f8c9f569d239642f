package normalize

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ehr/claims/internal/domain/claim"
	"github.com/ehr/claims/internal/platform/payload"
)

// reader looks fields up across a stack of scopes (innermost first), trying
// aliases in priority order. The first structural problem is kept in fail and
// later reads become no-ops returning defaults.
type reader struct {
	scopes []payload.Value
	fail   **Error
}

func newReader(root payload.Value) *reader {
	var fail *Error
	return &reader{scopes: []payload.Value{root}, fail: &fail}
}

func (r *reader) err() *Error { return *r.fail }

func (r *reader) invalid(format string, args ...interface{}) {
	if *r.fail == nil {
		*r.fail = newError(KindInvalidData, format, args...)
	}
}

func (r *reader) lookup(keys ...string) (payload.Value, string, bool) {
	for _, scope := range r.scopes {
		for _, k := range keys {
			if v, ok := scope.Get(k); ok {
				return v, k, true
			}
		}
	}
	return payload.Value{}, "", false
}

// nested pushes the first object found under keys as a new innermost scope.
// Flat keys on outer scopes remain reachable.
func (r *reader) nested(keys ...string) *reader {
	v, key, ok := r.lookup(keys...)
	if !ok {
		return r
	}
	if !v.IsObject() {
		r.invalid("field %s must be an object, got %s", key, v.Kind())
		return r
	}
	scopes := append([]payload.Value{v}, r.scopes...)
	return &reader{scopes: scopes, fail: r.fail}
}

// only returns a reader scoped to a single object, sharing the failure slot.
func (r *reader) only(v payload.Value) *reader {
	return &reader{scopes: []payload.Value{v}, fail: r.fail}
}

func (r *reader) text(keys ...string) string {
	v, _, ok := r.lookup(keys...)
	if !ok {
		return ""
	}
	s, _ := payload.AsString(v)
	return s
}

func (r *reader) optText(keys ...string) *string {
	s := r.text(keys...)
	if s == "" {
		return nil
	}
	return &s
}

func (r *reader) amount(keys ...string) decimal.Decimal {
	v, key, ok := r.lookup(keys...)
	if !ok {
		return decimal.Zero
	}
	d, err := payload.AsDecimal(v)
	if err != nil {
		r.invalid("field %s: %v", key, err)
		return decimal.Zero
	}
	return d
}

func (r *reader) optAmount(keys ...string) *decimal.Decimal {
	if _, _, ok := r.lookup(keys...); !ok {
		return nil
	}
	d := r.amount(keys...)
	return &d
}

// quantity defaults to 1 for absent, non-numeric or non-positive input.
// Counts beyond the int32 range are invalid data.
func (r *reader) quantity(keys ...string) int {
	v, key, ok := r.lookup(keys...)
	if !ok {
		return 1
	}
	n, err := payload.AsInt(v)
	if errors.Is(err, payload.ErrOutOfRange) {
		r.invalid("field %s: %v", key, err)
		return 1
	}
	if err != nil || n < 1 {
		return 1
	}
	return n
}

// date falls back to def when the field is absent or unparseable.
func (r *reader) date(def time.Time, keys ...string) time.Time {
	v, _, ok := r.lookup(keys...)
	if !ok {
		return def
	}
	if d, ok := payload.AsDate(v); ok {
		return d
	}
	return def
}

func (r *reader) optDate(keys ...string) *time.Time {
	v, _, ok := r.lookup(keys...)
	if !ok {
		return nil
	}
	if d, ok := payload.AsDate(v); ok {
		return &d
	}
	return nil
}

func (r *reader) timestamp(def time.Time, keys ...string) time.Time {
	v, _, ok := r.lookup(keys...)
	if !ok {
		return def
	}
	if t, ok := payload.AsTime(v); ok {
		return t
	}
	return def
}

func (r *reader) gender(keys ...string) *claim.Gender {
	s := r.text(keys...)
	if s == "" {
		return nil
	}
	g := claim.ParseGender(s)
	return &g
}

// list returns the array under keys. A present non-array value is invalid.
func (r *reader) list(keys ...string) []payload.Value {
	v, key, ok := r.lookup(keys...)
	if !ok {
		return nil
	}
	if !v.IsArray() {
		r.invalid("field %s must be an array, got %s", key, v.Kind())
		return nil
	}
	return v.Items()
}

// codes reads a code list given as strings, objects carrying one of
// codeKeys, or a single delimited string.
func (r *reader) codes(codeKeys []string, keys ...string) []string {
	v, key, ok := r.lookup(keys...)
	if !ok {
		return []string{}
	}
	if v.Kind() == payload.KindString {
		out, _ := payload.AsStrings(v)
		return out
	}
	if !v.IsArray() {
		r.invalid("field %s must be a list of codes, got %s", key, v.Kind())
		return []string{}
	}
	out := make([]string, 0, len(v.Items()))
	for i, item := range v.Items() {
		switch item.Kind() {
		case payload.KindObject:
			if c := r.only(item).text(codeKeys...); c != "" {
				out = append(out, c)
			}
		case payload.KindString, payload.KindNumber:
			if c, _ := payload.AsString(item); c != "" {
				out = append(out, c)
			}
		case payload.KindNull:
		case payload.KindBool, payload.KindArray:
			r.invalid("field %s[%d] is not a code", key, i)
		}
	}
	return out
}

// procedureKeys are the per-payer aliases for one service line.
type procedureKeys struct {
	code, description, quantity, unitPrice []string
}

func (r *reader) procedures(pk procedureKeys, keys ...string) []claim.Procedure {
	items := r.list(keys...)
	out := make([]claim.Procedure, 0, len(items))
	for i, item := range items {
		switch item.Kind() {
		case payload.KindString:
			code, _ := payload.AsString(item)
			out = append(out, claim.Procedure{Code: code, Quantity: 1})
		case payload.KindObject:
			line := r.only(item)
			out = append(out, claim.Procedure{
				Code:        line.text(pk.code...),
				Description: line.optText(pk.description...),
				Quantity:    line.quantity(pk.quantity...),
				UnitPrice:   line.optAmount(pk.unitPrice...),
			})
		case payload.KindNull:
		case payload.KindBool, payload.KindNumber, payload.KindArray:
			r.invalid("procedure entry %d must be an object or code, got %s", i, item.Kind())
		}
	}
	return out
}
