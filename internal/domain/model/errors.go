package model

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Kind classifies a rejected command.
type Kind string

// Failure kinds.
const (
	KindValidation  Kind = "validation"
	KindEligibility Kind = "eligibility"
	KindNotFound    Kind = "not_found"
	KindState       Kind = "state"
)

// Error is a typed command failure. Every Error is raised before any mutation,
// so the session the command was applied to is unchanged.
type Error struct {
	Kind   Kind
	Reason string            // human-readable explanation
	Fields map[string]string // extra context for logs and callers
}

// Error implements the error interface.
func (e *Error) Error() string {
	if len(e.Fields) == 0 {
		return fmt.Sprintf("%s: %s", e.Kind, e.Reason)
	}
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + "=" + e.Fields[k]
	}
	return fmt.Sprintf("%s: %s (%s)", e.Kind, e.Reason, strings.Join(parts, ", "))
}

// Is matches any *Error of the same kind, so errors.Is(err, ErrValidation) works.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// Sentinels for errors.Is.
var (
	ErrValidation   = &Error{Kind: KindValidation, Reason: "invalid input"}
	ErrEligibility  = &Error{Kind: KindEligibility, Reason: "not eligible"}
	ErrNotFound     = &Error{Kind: KindNotFound, Reason: "not found"}
	ErrInvalidState = &Error{Kind: KindState, Reason: "not allowed in current state"}
)

func newError(kind Kind, format string, args []any) *Error {
	return &Error{Kind: kind, Reason: fmt.Sprintf(format, args...)}
}

// Validationf builds a validation failure.
func Validationf(format string, args ...any) *Error {
	return newError(KindValidation, format, args)
}

// Eligibilityf builds an eligibility failure.
func Eligibilityf(format string, args ...any) *Error {
	return newError(KindEligibility, format, args)
}

// NotFoundf builds a not-found failure.
func NotFoundf(format string, args ...any) *Error {
	return newError(KindNotFound, format, args)
}

// Statef builds an invalid-state failure.
func Statef(format string, args ...any) *Error {
	return newError(KindState, format, args)
}

// With returns a copy of e carrying an extra context field.
func (e *Error) With(key, value string) *Error {
	out := *e
	out.Fields = make(map[string]string, len(e.Fields)+1)
	for k, v := range e.Fields {
		out.Fields[k] = v
	}
	out.Fields[key] = value
	return &out
}

// KindOf returns the failure kind of err, or "" when err is not a typed failure.
func KindOf(err error) Kind {
	for _, k := range []*Error{ErrValidation, ErrEligibility, ErrNotFound, ErrInvalidState} {
		if errors.Is(err, k) {
			return k.Kind
		}
	}
	return ""
}
