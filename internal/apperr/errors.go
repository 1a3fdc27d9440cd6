// Package apperr defines the error taxonomy shared by the folder engine and
// its transports. Callers match categories with errors.Is against the
// sentinel values and read details through errors.As on *Error.
package apperr

import (
	"errors"
	"strings"
)

// Kind classifies a failure.
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindSecurity
	KindNotFound
	KindConflict
)

var (
	ErrValidation = errors.New("validation error")
	ErrSecurity   = errors.New("security error")
	ErrNotFound   = errors.New("not found")
	ErrConflict   = errors.New("conflict")
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindSecurity:
		return "security"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	default:
		return "internal"
	}
}

func (k Kind) sentinel() error {
	switch k {
	case KindValidation:
		return ErrValidation
	case KindSecurity:
		return ErrSecurity
	case KindNotFound:
		return ErrNotFound
	case KindConflict:
		return ErrConflict
	default:
		return nil
	}
}

// Error is a typed failure that carries what failed (Op, Path), why
// (Reason) and what to do next (Hint).
type Error struct {
	Kind   Kind
	Op     string
	Path   string
	Reason string
	Hint   string
	Err    error
}

// New returns an *Error of the given kind.
func New(kind Kind, op, path, reason, hint string) *Error {
	return &Error{Kind: kind, Op: op, Path: path, Reason: reason, Hint: hint}
}

// Validation returns a KindValidation error.
func Validation(op, path, reason, hint string) *Error {
	return New(KindValidation, op, path, reason, hint)
}

// Security returns a KindSecurity error.
func Security(op, path, reason, hint string) *Error {
	return New(KindSecurity, op, path, reason, hint)
}

// NotFound returns a KindNotFound error.
func NotFound(op, path, reason, hint string) *Error {
	return New(KindNotFound, op, path, reason, hint)
}

// Conflict returns a KindConflict error.
func Conflict(op, path, reason, hint string) *Error {
	return New(KindConflict, op, path, reason, hint)
}

// Wrap attaches an underlying cause.
func (e *Error) Wrap(err error) *Error {
	e.Err = err
	return e
}

func (e *Error) Error() string {
	var b strings.Builder
	if e.Op != "" {
		b.WriteString(e.Op)
	}
	if e.Path != "" {
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(e.Path)
	}
	if b.Len() > 0 {
		b.WriteString(": ")
	}
	if e.Reason != "" {
		b.WriteString(e.Reason)
	} else {
		b.WriteString(e.Kind.String())
	}
	if e.Err != nil {
		b.WriteString(" (")
		b.WriteString(e.Err.Error())
		b.WriteByte(')')
	}
	if e.Hint != "" {
		b.WriteString("; ")
		b.WriteString(e.Hint)
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is the sentinel for e's kind.
func (e *Error) Is(target error) bool {
	s := e.Kind.sentinel()
	return s != nil && target == s
}

// KindOf returns the kind of the first *Error in err's chain, or
// KindInternal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// HintOf returns the corrective hint carried by err, if any.
func HintOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Hint
	}
	return ""
}

// WithOp returns err with Op set when err is an *Error that has none.
// Other errors are returned unchanged.
func WithOp(err error, op string) error {
	var e *Error
	if !errors.As(err, &e) || e.Op != "" {
		return err
	}
	cp := *e
	cp.Op = op
	return &cp
}
