// Package executor evaluates one span against its read and write scopes.
//
// Evaluation runs the stages compile, load, execute and export in order.
// Every failure, including a panic inside a compiler, is turned into an
// Output carrying a *fragment.Error so that one broken fragment never stops
// the rest of the page.
package executor

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/vk/livespan/internal/ctxlog"
	"github.com/vk/livespan/internal/fragment"
	"github.com/vk/livespan/internal/scope"
	"github.com/vk/livespan/internal/span"
	"github.com/zclconf/go-cty/cty"
)

// Context is the per-span execution context.
type Context struct {
	DocID string
	Index int
	// Count is the number of spans in the pass.
	Count int
	Read  scope.Handle
	Write scope.Handle
	Mode  fragment.Mode
}

// Components resolves shortcut names that are not bound in scope.
type Components interface {
	Lookup(name string) (fragment.Component, bool)
	WaitReady(ctx context.Context) error
}

// Executor evaluates spans. It is safe for concurrent use.
type Executor struct {
	graph      scope.Graph
	components Components
	compilers  map[string]fragment.Compiler
}

// New creates an executor that dispatches spans to compilers by language.
// A later compiler claiming the same language replaces an earlier one.
func New(g scope.Graph, components Components, compilers ...fragment.Compiler) *Executor {
	e := &Executor{
		graph:      g,
		components: components,
		compilers:  make(map[string]fragment.Compiler),
	}
	for _, c := range compilers {
		for _, lang := range c.Langs() {
			e.compilers[lang] = c
		}
	}
	return e
}

// Evaluate runs s and returns its output. It never returns an error; the
// failure is reported in Output.Err.
func (e *Executor) Evaluate(ctx context.Context, s span.Span, ec Context) (out fragment.Output) {
	ctx, logger := ctxlog.ForDoc(ctx, ec.DocID, ctxlog.SpanKey, s.Index, "kind", s.Kind.String(), "lang", s.Lang)

	defer func() {
		if r := recover(); r != nil {
			logger.Error("Span evaluation panicked.", "panic", r)
			out = fragment.Output{Err: fragment.Wrap(fragment.ErrEvaluation, s, fmt.Errorf("panic: %v", r))}
		}
	}()

	logger.Debug("Evaluating span.", "index", ec.Index, "count", ec.Count, "read", ec.Read.String(), "write", ec.Write.String())

	if s.Shortcut != "" {
		out = e.shortcut(ctx, s, ec)
	} else if s.Kind == span.BlockComponent && strings.TrimSpace(s.Source) == "" {
		out = fragment.Output{Empty: true}
	} else {
		out = e.run(ctx, s, ec)
	}

	if out.Err != nil {
		logger.Debug("Span evaluation failed.", "error", out.Err)
	}
	return out
}

// run executes compile, load, execute and export.
func (e *Executor) run(ctx context.Context, s span.Span, ec Context) fragment.Output {
	c, ok := e.compilers[s.Lang]
	if !ok {
		return failed(fragment.ErrCompile, s, fmt.Errorf("no compiler for language %q", s.Lang))
	}

	prog, err := c.Compile(ctx, s)
	if err != nil {
		return failed(fragment.ErrCompile, s, err)
	}

	inst, err := prog.Load(ctx, &scopeEnv{graph: e.graph, read: ec.Read})
	if err != nil {
		return failed(fragment.ErrEvaluation, s, err)
	}

	res, err := inst.Execute(ctx)
	if err != nil {
		return failed(fragment.ErrEvaluation, s, err)
	}

	if len(res.Exports) > 0 {
		if err := e.graph.SetMany(ctx, ec.Write, res.Exports); err != nil {
			if errors.Is(err, scope.ErrStale) {
				ctxlog.FromContext(ctx).Debug("Dropping exports of a superseded pass.", "scope", ec.Write.String())
			}
			return failed(fragment.ErrEvaluation, s, fmt.Errorf("failed to export: %w", err))
		}
	}

	return res.Output
}

// shortcut resolves a named component, first through the read scope and
// then through the registry, and renders the block text as its children.
func (e *Executor) shortcut(ctx context.Context, s span.Span, ec Context) fragment.Output {
	if e.components != nil {
		if err := e.components.WaitReady(ctx); err != nil {
			return failed(fragment.ErrEvaluation, s, fmt.Errorf("waiting for components: %w", err))
		}
	}

	props := map[string]cty.Value{"children": cty.StringVal(s.Source)}

	v, ok, err := e.graph.Lookup(ctx, ec.Read, s.Shortcut)
	if err != nil {
		return failed(fragment.ErrEvaluation, s, err)
	}
	if ok {
		if c, isComponent := fragment.AsComponent(v); isComponent {
			return fragment.Output{Component: c, Props: props}
		}
	}

	if e.components != nil {
		if c, ok := e.components.Lookup(s.Shortcut); ok {
			return fragment.Output{Component: c, Props: props}
		}
	}
	return failed(fragment.ErrUnresolvedShortcut, s, fmt.Errorf("no component named %q", s.Shortcut))
}

func failed(kind error, s span.Span, err error) fragment.Output {
	return fragment.Output{Err: fragment.Wrap(kind, s, err)}
}

// scopeEnv adapts a read scope to fragment.Env.
type scopeEnv struct {
	graph scope.Graph
	read  scope.Handle
}

func (e *scopeEnv) Lookup(ctx context.Context, name string) (cty.Value, bool, error) {
	return e.graph.Lookup(ctx, e.read, name)
}
