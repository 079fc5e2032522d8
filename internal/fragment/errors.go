package fragment

import (
	"errors"
	"fmt"

	"github.com/vk/livespan/internal/span"
)

// Sentinel errors for classifying per-span failures.
var (
	// ErrCompile indicates that the fragment source could not be turned into
	// an executable program.
	ErrCompile = errors.New("compile error")

	// ErrEvaluation indicates that a program failed while loading or running.
	ErrEvaluation = errors.New("evaluation error")

	// ErrUnresolvedShortcut indicates that a shortcut fence names a component
	// found neither in scope nor in the registry. It is reported like a
	// compile error.
	ErrUnresolvedShortcut = errors.New("unresolved shortcut component")
)

// Error is a failure isolated to one span.
type Error struct {
	// Kind is one of the sentinel errors above.
	Kind error
	// Index is the ordinal of the failing span.
	Index int
	Lang  string
	// Line and Column are 1-based positions inside the fragment source.
	// Zero means unknown.
	Line   int
	Column int
	Err    error
}

// Error returns the message with the source position when known.
func (e *Error) Error() string {
	msg := e.Kind.Error()
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	if e.Line > 0 {
		return fmt.Sprintf("%s (line %d, col %d)", msg, e.Line, e.Column)
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches the sentinel kind of the error.
func (e *Error) Is(target error) bool {
	return target == e.Kind
}

// Wrap converts err into an *Error of the given kind for s. An *Error
// produced by a compiler keeps its kind and position and gets the span
// identity filled in.
func Wrap(kind error, s span.Span, err error) *Error {
	if err == nil {
		return nil
	}
	var fe *Error
	if errors.As(err, &fe) {
		out := *fe
		out.Index = s.Index
		if out.Lang == "" {
			out.Lang = s.Lang
		}
		return &out
	}
	return &Error{Kind: kind, Index: s.Index, Lang: s.Lang, Err: err}
}
