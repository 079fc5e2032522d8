package fragment

import (
	"context"
	"reflect"

	"github.com/vk/livespan/internal/span"
	"github.com/zclconf/go-cty/cty"
	"golang.org/x/net/html"
)

// Mode distinguishes the live editing surface from static preview.
type Mode int

const (
	ModeLive Mode = iota
	ModePreview
)

func (m Mode) String() string {
	if m == ModePreview {
		return "preview"
	}
	return "live"
}

// Compiler turns fragment source of one language into a Program.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Purity: Compile must not read scopes; the same span may be compiled
//   repeatedly and loaded against different scopes.
// - Errors: failures should be *Error with Kind ErrCompile and a position
//   when one is known.
type Compiler interface {
	// Langs returns the language names handled by the compiler.
	Langs() []string
	Compile(ctx context.Context, s span.Span) (Program, error)
}

// Env resolves names visible from a span's read scope.
type Env interface {
	// Lookup returns the nearest binding for name. It may block until
	// earlier fragments have exported.
	Lookup(ctx context.Context, name string) (cty.Value, bool, error)
}

// Program is a compiled fragment.
type Program interface {
	// Refs lists the free names the program reads, sorted.
	Refs() []string
	// Load binds the program to the values visible through env.
	Load(ctx context.Context, env Env) (Instance, error)
}

// Instance is a program bound to its inputs.
type Instance interface {
	Execute(ctx context.Context) (Result, error)
}

// Result is what one execution produced.
type Result struct {
	Output  Output
	Exports map[string]cty.Value
}

// Output is the displayable result of one span.
type Output struct {
	// Value is set for expressions and statements.
	Value cty.Value
	// Component is set for component fragments and rendered with Props.
	Component Component
	Props     map[string]cty.Value
	// Empty marks a block component without content.
	Empty bool
	// Err is set when evaluation failed; it is usually an *Error.
	Err error
}

// Component is a renderable value.
type Component interface {
	Name() string
	// Render produces HTML markup for the given props.
	Render(ctx context.Context, props map[string]cty.Value) (string, error)
}

// ComponentType is the cty type of component bindings.
var ComponentType = cty.Capsule("component", reflect.TypeOf((*Component)(nil)).Elem())

// ComponentVal wraps c as a cty value.
func ComponentVal(c Component) cty.Value {
	return cty.CapsuleVal(ComponentType, &c)
}

// AsComponent unwraps a component binding.
func AsComponent(v cty.Value) (Component, bool) {
	if v.IsNull() || !v.IsKnown() || !v.Type().Equals(ComponentType) {
		return nil, false
	}
	c, ok := v.EncapsulatedValue().(*Component)
	if !ok || c == nil {
		return nil, false
	}
	return *c, true
}

// Target identifies where an Output is mounted.
type Target struct {
	// Key is stable for a span position across passes, e.g. "notes.md#2".
	Key   string
	DocID string
	Index int
	Kind  span.Kind
	Mode  Mode
	// Element is the element replaced in preview mode.
	Element *html.Node
}

// Renderer mounts outputs at targets. Mounting an already mounted target
// updates it in place.
type Renderer interface {
	Mount(ctx context.Context, t Target, out Output) error
	Unmount(ctx context.Context, key string) error
}
