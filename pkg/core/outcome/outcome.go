// Package outcome defines the structured "unavailable" result shared by the
// resolver, the derived-quantity pipeline and the ratio/WACC engines.
//
// Missing data is never a panic. Every operation returns (value, error) and
// a missing-data condition is always an *Unavailable carrying a Kind that
// callers can switch on.
package outcome

import (
	"errors"
	"fmt"
)

// Kind classifies why a value could not be produced.
type Kind int

const (
	UndefinedMetric Kind = iota + 1
	NotFound
	OperandUnavailable
	DerivationCycle
	InsufficientPeriods
	DivisionUndefined
	ExternalDataUnavailable
)

var kindNames = map[Kind]string{
	UndefinedMetric:         "undefined_metric",
	NotFound:                "not_found",
	OperandUnavailable:      "operand_unavailable",
	DerivationCycle:         "derivation_cycle",
	InsufficientPeriods:     "insufficient_periods",
	DivisionUndefined:       "division_undefined",
	ExternalDataUnavailable: "external_data_unavailable",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// MarshalText lets a Kind appear as a JSON string.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Unavailable is the value-level failure of a metric or computation.
type Unavailable struct {
	Kind   Kind
	Metric string
	Detail string
	Cause  error
}

func (u *Unavailable) Error() string {
	msg := u.Kind.String()
	if u.Metric != "" {
		msg += " [" + u.Metric + "]"
	}
	if u.Detail != "" {
		msg += ": " + u.Detail
	}
	if u.Cause != nil {
		msg += ": " + u.Cause.Error()
	}
	return msg
}

func (u *Unavailable) Unwrap() error { return u.Cause }

// New builds an Unavailable with a formatted detail message.
func New(kind Kind, metric, format string, args ...any) *Unavailable {
	return &Unavailable{Kind: kind, Metric: metric, Detail: fmt.Sprintf(format, args...)}
}

// Wrap builds an Unavailable caused by another failure.
func Wrap(kind Kind, metric string, cause error) *Unavailable {
	return &Unavailable{Kind: kind, Metric: metric, Cause: cause}
}

// KindOf returns the kind of the outermost Unavailable in err's chain.
func KindOf(err error) (Kind, bool) {
	var u *Unavailable
	if errors.As(err, &u) {
		return u.Kind, true
	}
	return 0, false
}

// Is reports whether err is an Unavailable of the given kind at its outermost level.
func Is(err error, kind Kind) bool {
	k, ok := KindOf(err)
	return ok && k == kind
}

// IsUnavailable reports whether err is a missing-data outcome rather than an
// I/O or programming error.
func IsUnavailable(err error) bool {
	_, ok := KindOf(err)
	return ok
}

// Root returns the innermost Unavailable in err's chain, which names the
// metric that originally failed.
func Root(err error) *Unavailable {
	var root *Unavailable
	for err != nil {
		var u *Unavailable
		if !errors.As(err, &u) {
			break
		}
		root = u
		err = u.Cause
	}
	return root
}

// Failure is the serializable form of an Unavailable, reported at its root.
type Failure struct {
	Kind   Kind   `json:"kind"`
	Metric string `json:"metric,omitempty"`
	Detail string `json:"detail"`
}

// Describe returns the Failure for err, or nil when err is nil or not an
// Unavailable.
func Describe(err error) *Failure {
	root := Root(err)
	if root == nil {
		return nil
	}
	return &Failure{Kind: root.Kind, Metric: root.Metric, Detail: err.Error()}
}
