// Package span describes the executable fragments located in a document.
//
// A Span is produced by a locator (live markdown or static HTML), consumed by
// the scheduler and finally turned into a decoration by the reconciler. Spans
// are plain values; they never own scopes or rendered output.
package span

import (
	"fmt"

	"golang.org/x/net/html"
)

// Kind is the variant of a located fragment.
type Kind int

const (
	InlineExpression Kind = iota
	InlineComponent
	BlockStatement
	BlockComponent
)

// IsBlock reports whether the fragment is a fenced block.
func (k Kind) IsBlock() bool {
	return k == BlockStatement || k == BlockComponent
}

// IsComponent reports whether the fragment renders a component.
func (k Kind) IsComponent() bool {
	return k == InlineComponent || k == BlockComponent
}

func (k Kind) String() string {
	switch k {
	case InlineExpression:
		return "inline-expression"
	case InlineComponent:
		return "inline-component"
	case BlockStatement:
		return "block-statement"
	case BlockComponent:
		return "block-component"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Range is a half-open byte range [From, To) into the document source.
type Range struct {
	From int `json:"from"`
	To   int `json:"to"`
}

// Contains reports whether pos lies within r, inclusive of both boundaries.
// A cursor sitting right after a closing fence still counts as inside.
func (r Range) Contains(pos int) bool {
	return pos >= r.From && pos <= r.To
}

// Intersects reports whether r and o touch or overlap.
func (r Range) Intersects(o Range) bool {
	return o.From <= r.To && o.To >= r.From
}

func (r Range) String() string {
	return fmt.Sprintf("[%d,%d)", r.From, r.To)
}

// Span is one located executable fragment.
type Span struct {
	Kind Kind
	// Lang is the resolved language name, e.g. "hcl" or "starlark".
	Lang string
	// Range covers the whole fragment including backticks or fences. It is
	// zero in preview mode.
	Range Range
	// Source is the literal code text without prefix or fences.
	Source string
	// Index is the ordinal position of the span on its page.
	Index int
	// Shortcut names a registered component for `lang:Name` fences.
	Shortcut string
	// Element is the rendered element the span replaces in preview mode.
	Element *html.Node
	// Editing is set when the cursor is inside Range.
	Editing bool
}

func (s Span) String() string {
	if s.Shortcut != "" {
		return fmt.Sprintf("#%d %s %s:%s %s", s.Index, s.Kind, s.Lang, s.Shortcut, s.Range)
	}
	return fmt.Sprintf("#%d %s %s %s", s.Index, s.Kind, s.Lang, s.Range)
}

// Same reports whether two spans are interchangeable for the purpose of
// skipping a pass. Positions are ignored.
func (s Span) Same(o Span) bool {
	return s.Kind == o.Kind &&
		s.Lang == o.Lang &&
		s.Source == o.Source &&
		s.Shortcut == o.Shortcut &&
		s.Editing == o.Editing
}

// List is the ordered result of locating spans on one page.
type List []Span

// ToProcess returns the spans that are not being edited. Indexes are kept,
// so the result may have gaps.
func (l List) ToProcess() List {
	out := make(List, 0, len(l))
	for _, s := range l {
		if !s.Editing {
			out = append(out, s)
		}
	}
	return out
}

// Unchanged reports whether next can reuse the results computed for l: same
// count, pairwise Same, and no changed range touching any span of either list.
func (l List) Unchanged(next List, changes []Range) bool {
	if len(l) != len(next) {
		return false
	}
	for i := range l {
		if !l[i].Same(next[i]) {
			return false
		}
	}
	for _, c := range changes {
		for i := range next {
			if next[i].Range.Intersects(c) || l[i].Range.Intersects(c) {
				return false
			}
		}
	}
	return true
}
