package compiler

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/reusee/starlarkutil"
	"github.com/vk/livespan/internal/ctxlog"
	"github.com/vk/livespan/internal/fragment"
	"github.com/vk/livespan/internal/span"
	"github.com/zclconf/go-cty/cty"
	"go.starlark.net/resolve"
	"go.starlark.net/starlark"
	"go.starlark.net/syntax"
)

var starlarkOptions = &syntax.FileOptions{
	Set:             true,
	While:           true,
	TopLevelControl: true,
	GlobalReassign:  true,
}

// Starlark compiles Starlark expressions and statement blocks.
type Starlark struct {
	// Builtins are predeclared in every fragment and never looked up in scope.
	Builtins starlark.StringDict
}

// NewStarlark creates the Starlark compiler with the default builtins.
func NewStarlark() *Starlark {
	return &Starlark{Builtins: starlark.StringDict{
		"trim":   starlarkutil.MakeFunc("trim", strings.TrimSpace),
		"repeat": starlarkutil.MakeFunc("repeat", strings.Repeat),
	}}
}

// Langs implements fragment.Compiler.
func (c *Starlark) Langs() []string {
	return []string{"starlark"}
}

// Compile implements fragment.Compiler.
func (c *Starlark) Compile(ctx context.Context, s span.Span) (fragment.Program, error) {
	name := filename(s)
	var refs []string
	isPredeclared := func(n string) bool {
		if starlark.Universe.Has(n) {
			return false
		}
		if _, ok := c.Builtins[n]; !ok && n != "component" {
			refs = append(refs, n)
		}
		return true
	}

	p := &starlarkProgram{c: c, name: name, src: s.Source}
	if s.Kind.IsBlock() {
		f, err := starlarkOptions.Parse(name, s.Source, 0)
		if err != nil {
			return nil, starlarkError(fragment.ErrCompile, err)
		}
		prog, err := starlark.FileProgram(f, isPredeclared)
		if err != nil {
			return nil, starlarkError(fragment.ErrCompile, err)
		}
		p.prog = prog
	} else {
		expr, err := starlarkOptions.ParseExpr(name, s.Source, 0)
		if err != nil {
			return nil, starlarkError(fragment.ErrCompile, err)
		}
		if _, err := resolve.ExprOptions(starlarkOptions, expr, isPredeclared, starlark.Universe.Has); err != nil {
			return nil, starlarkError(fragment.ErrCompile, err)
		}
	}
	slices.Sort(refs)
	p.refs = slices.Compact(refs)
	return p, nil
}

type starlarkProgram struct {
	c    *Starlark
	name string
	src  string
	refs []string
	// prog is set for statement blocks.
	prog *starlark.Program
}

func (p *starlarkProgram) Refs() []string { return p.refs }

func (p *starlarkProgram) Load(ctx context.Context, env fragment.Env) (fragment.Instance, error) {
	scope := make(map[string]cty.Value, len(p.refs))
	values, err := lookupAll(ctx, env, p.refs, func(name string, v cty.Value) (starlark.Value, error) {
		scope[name] = v
		sv, err := toStarlark(v)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		return sv, nil
	})
	if err != nil {
		return nil, err
	}
	for _, name := range p.refs {
		if _, ok := values[name]; !ok {
			return nil, &fragment.Error{Kind: fragment.ErrEvaluation, Err: fmt.Errorf("undefined: %s", name)}
		}
	}

	predeclared := maps.Clone(p.c.Builtins)
	if predeclared == nil {
		predeclared = starlark.StringDict{}
	}
	maps.Copy(predeclared, values)
	predeclared["component"] = starlark.NewBuiltin("component", func(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
		var tmpl string
		if err := starlark.UnpackPositionalArgs(b.Name(), args, kwargs, 1, &tmpl); err != nil {
			return nil, err
		}
		comp, err := componentFromTemplate(tmpl, scope)
		if err != nil {
			return nil, err
		}
		return starlarkComponent{c: comp}, nil
	})
	return &starlarkInstance{p: p, predeclared: predeclared}, nil
}

type starlarkInstance struct {
	p           *starlarkProgram
	predeclared starlark.StringDict
}

func (i *starlarkInstance) Execute(ctx context.Context) (fragment.Result, error) {
	logger := ctxlog.FromContext(ctx)
	thread := &starlark.Thread{
		Name: i.p.name,
		Print: func(_ *starlark.Thread, msg string) {
			logger.Info("🖨️ "+msg, "fragment", i.p.name)
		},
	}
	stop := context.AfterFunc(ctx, func() { thread.Cancel(context.Cause(ctx).Error()) })
	defer stop()

	if i.p.prog == nil {
		v, err := starlark.EvalOptions(starlarkOptions, thread, i.p.name, i.p.src, i.predeclared)
		if err != nil {
			return fragment.Result{}, starlarkError(fragment.ErrEvaluation, err)
		}
		cv, err := fromStarlark(v)
		if err != nil {
			return fragment.Result{}, &fragment.Error{Kind: fragment.ErrEvaluation, Err: err}
		}
		return fragment.Result{Output: fragment.Output{Value: cv}}, nil
	}

	globals, err := i.p.prog.Init(thread, i.predeclared)
	if err != nil {
		return fragment.Result{}, starlarkError(fragment.ErrEvaluation, err)
	}
	exports := make(map[string]cty.Value, len(globals))
	for _, name := range globals.Keys() {
		if strings.HasPrefix(name, "_") {
			continue
		}
		switch globals[name].(type) {
		case *starlark.Function, *starlark.Builtin:
			continue
		}
		cv, err := fromStarlark(globals[name])
		if err != nil {
			return fragment.Result{}, &fragment.Error{Kind: fragment.ErrEvaluation, Err: fmt.Errorf("export %s: %w", name, err)}
		}
		exports[name] = cv
	}

	out := cty.EmptyObjectVal
	if len(exports) > 0 {
		out = cty.ObjectVal(exports)
	}
	return fragment.Result{Output: fragment.Output{Value: out}, Exports: exports}, nil
}

// starlarkError converts Starlark errors into *fragment.Error, keeping the
// source position when one is known.
func starlarkError(kind error, err error) error {
	e := &fragment.Error{Kind: kind, Err: err}
	var syntaxErr syntax.Error
	var resolveErrs resolve.ErrorList
	var evalErr *starlark.EvalError
	switch {
	case errors.As(err, &syntaxErr):
		e.Err = errors.New(syntaxErr.Msg)
		e.Line, e.Column = int(syntaxErr.Pos.Line), int(syntaxErr.Pos.Col)
	case errors.As(err, &resolveErrs) && len(resolveErrs) > 0:
		e.Err = errors.New(resolveErrs[0].Msg)
		e.Line, e.Column = int(resolveErrs[0].Pos.Line), int(resolveErrs[0].Pos.Col)
	case errors.As(err, &evalErr):
		e.Err = errors.New(evalErr.Msg)
		if n := len(evalErr.CallStack); n > 0 {
			pos := evalErr.CallStack[n-1].Pos
			e.Line, e.Column = int(pos.Line), int(pos.Col)
		}
	}
	return e
}
