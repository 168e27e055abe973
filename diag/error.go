package diag

import (
	"errors"
	"fmt"
)

// Kind classifies a compile error by the stage that owns the check.
type Kind int

const (
	SyntaxError Kind = iota + 1
	ReferenceError
	TypeError
	DefinitionOrderError
)

func (k Kind) String() string {
	switch k {
	case SyntaxError:
		return "SyntaxError"
	case ReferenceError:
		return "ReferenceError"
	case TypeError:
		return "TypeError"
	case DefinitionOrderError:
		return "DefinitionOrderError"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Span is a half-open byte range [From, To) into the source text.
type Span struct {
	From int
	To   int
}

// IsZero reports whether the span carries no position.
func (s Span) IsZero() bool {
	return s.From == 0 && s.To == 0
}

// Error is a fatal compile error. The first one produced aborts the pipeline.
type Error struct {
	Kind Kind
	Msg  string
	Span Span

	// Incomplete is set when the source ended inside an open construct, so
	// more input could still make it valid.
	Incomplete bool
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	return e.Kind.String() + ": " + e.Msg
}

// Errorf builds an *Error of the given kind.
func Errorf(kind Kind, span Span, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...), Span: span}
}

// Incompletef builds a SyntaxError for input that ended too early.
func Incompletef(span Span, format string, args ...any) *Error {
	e := Errorf(SyntaxError, span, format, args...)
	e.Incomplete = true
	return e
}

// As extracts the *Error wrapped by err, if any.
func As(err error) (*Error, bool) {
	var derr *Error
	if errors.As(err, &derr) {
		return derr, true
	}
	return nil, false
}

// IsKind reports whether err is a compile error of the given kind.
func IsKind(err error, kind Kind) bool {
	derr, ok := As(err)
	return ok && derr.Kind == kind
}

// IsIncomplete reports whether err was caused by truncated input.
func IsIncomplete(err error) bool {
	derr, ok := As(err)
	return ok && derr.Incomplete
}
