package sizefit

import (
	"errors"
	"fmt"
)

// Kind classifies why an encode run failed.
type Kind int

const (
	KindUnknown Kind = iota
	KindDecodeFailed
	KindUnsupportedFormat
	KindTargetUnreachable
	KindInvalidConstraint
)

func (k Kind) String() string {
	switch k {
	case KindDecodeFailed:
		return "DecodeFailed"
	case KindUnsupportedFormat:
		return "UnsupportedFormat"
	case KindTargetUnreachable:
		return "TargetUnreachable"
	case KindInvalidConstraint:
		return "InvalidConstraint"
	default:
		return "Unknown"
	}
}

// Sentinels for errors.Is. Every *Error unwraps to the one matching its Kind.
var (
	ErrDecodeFailed      = errors.New("decode failed")
	ErrUnsupportedFormat = errors.New("unsupported format")
	ErrTargetUnreachable = errors.New("target unreachable")
	ErrInvalidConstraint = errors.New("invalid constraint")
)

func (k Kind) sentinel() error {
	switch k {
	case KindDecodeFailed:
		return ErrDecodeFailed
	case KindUnsupportedFormat:
		return ErrUnsupportedFormat
	case KindTargetUnreachable:
		return ErrTargetUnreachable
	case KindInvalidConstraint:
		return ErrInvalidConstraint
	}
	return nil
}

// Error is the terminal failure of one encode run.
type Error struct {
	Kind   Kind
	Source string // image name, may be empty
	Err    error

	// Best is the last attempt of a ByteBudget search that gave up. The
	// caller decides whether to keep it; it never satisfies the budget.
	Best *Result
}

func (e *Error) Error() string {
	name := e.Source
	if name == "" {
		name = "image"
	}
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", name, e.Kind)
	}
	return fmt.Sprintf("%s: %s: %v", name, e.Kind, e.Err)
}

func (e *Error) Unwrap() []error {
	var errs []error
	if s := e.Kind.sentinel(); s != nil {
		errs = append(errs, s)
	}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

// KindOf returns the Kind of the first *Error in err's chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// BestEffort returns the best-effort result carried by a TargetUnreachable
// error, or nil.
func BestEffort(err error) *Result {
	var e *Error
	if errors.As(err, &e) {
		return e.Best
	}
	return nil
}

func newError(kind Kind, source string, format string, args ...any) *Error {
	return &Error{Kind: kind, Source: source, Err: fmt.Errorf(format, args...)}
}
