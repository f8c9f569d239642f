package normalize

import (
	"errors"
	"fmt"
)

// ErrorKind is the machine-readable normalization failure taxonomy.
type ErrorKind string

const (
	KindInvalidData          ErrorKind = "invalid_data"
	KindUnsupportedFormat    ErrorKind = "unsupported_format"
	KindMissingRequiredField ErrorKind = "missing_required_field"
	KindParsingError         ErrorKind = "parsing_error"
)

// Error is returned when a payload cannot become a canonical claim.
type Error struct {
	Kind   ErrorKind
	Detail string
	Err    error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Detail, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Detail)
}

func (e *Error) Unwrap() error { return e.Err }

func newError(kind ErrorKind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Detail: fmt.Sprintf(format, args...)}
}

// KindOf extracts the taxonomy kind from err, if it carries one.
func KindOf(err error) (ErrorKind, bool) {
	var nerr *Error
	if errors.As(err, &nerr) {
		return nerr.Kind, true
	}
	return "", false
}

// IsKind reports whether err is a normalization Error of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	k, ok := KindOf(err)
	return ok && k == kind
}
