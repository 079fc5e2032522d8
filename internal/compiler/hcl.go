package compiler

import (
	"context"
	"fmt"
	"slices"
	"sort"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/vk/livespan/internal/fragment"
	"github.com/vk/livespan/internal/refexpr"
	"github.com/vk/livespan/internal/span"
	"github.com/zclconf/go-cty/cty"
)

// HCL compiles HCL expressions and statement blocks.
type HCL struct{}

// NewHCL creates the HCL compiler.
func NewHCL() *HCL {
	return &HCL{}
}

// Langs implements fragment.Compiler.
func (c *HCL) Langs() []string {
	return []string{"hcl"}
}

// Compile implements fragment.Compiler.
func (c *HCL) Compile(ctx context.Context, s span.Span) (fragment.Program, error) {
	if s.Kind.IsBlock() {
		return c.compileBody(s)
	}
	expr, diags := hclsyntax.ParseExpression([]byte(s.Source), filename(s), hcl.Pos{Line: 1, Column: 1})
	if diags.HasErrors() {
		return nil, diagError(fragment.ErrCompile, diags)
	}
	return &hclProgram{refs: refexpr.NewContainer(expr).RootNames(), expr: expr}, nil
}

func (c *HCL) compileBody(s span.Span) (fragment.Program, error) {
	file, diags := hclsyntax.ParseConfig([]byte(s.Source), filename(s), hcl.Pos{Line: 1, Column: 1})
	if diags.HasErrors() {
		return nil, diagError(fragment.ErrCompile, diags)
	}
	body, ok := file.Body.(*hclsyntax.Body)
	if !ok {
		return nil, &fragment.Error{Kind: fragment.ErrCompile, Err: fmt.Errorf("unexpected body type %T", file.Body)}
	}
	if len(body.Blocks) > 0 {
		b := body.Blocks[0]
		return nil, &fragment.Error{
			Kind:   fragment.ErrCompile,
			Err:    fmt.Errorf("blocks are not supported in fragments, found %q", b.Type),
			Line:   b.TypeRange.Start.Line,
			Column: b.TypeRange.Start.Column,
		}
	}

	attrs := make([]*hclsyntax.Attribute, 0, len(body.Attributes))
	for _, a := range body.Attributes {
		attrs = append(attrs, a)
	}
	sort.Slice(attrs, func(i, j int) bool {
		return attrs[i].SrcRange.Start.Byte < attrs[j].SrcRange.Start.Byte
	})

	// A name read by an attribute comes from scope unless an earlier
	// attribute of the same block defines it.
	var refs []string
	defined := make(map[string]bool, len(attrs))
	for _, a := range attrs {
		for _, name := range refexpr.NewContainer(a.Expr).RootNames() {
			if !defined[name] {
				refs = append(refs, name)
			}
		}
		defined[a.Name] = true
	}
	slices.Sort(refs)
	return &hclProgram{refs: slices.Compact(refs), attrs: attrs, block: true}, nil
}

type hclProgram struct {
	refs  []string
	expr  hcl.Expression
	attrs []*hclsyntax.Attribute
	block bool
}

func (p *hclProgram) Refs() []string { return p.refs }

func (p *hclProgram) Load(ctx context.Context, env fragment.Env) (fragment.Instance, error) {
	vars, err := lookupAll(ctx, env, p.refs, func(_ string, v cty.Value) (cty.Value, error) { return v, nil })
	if err != nil {
		return nil, err
	}
	return &hclInstance{p: p, vars: vars}, nil
}

type hclInstance struct {
	p    *hclProgram
	vars map[string]cty.Value
}

func (i *hclInstance) Execute(ctx context.Context) (fragment.Result, error) {
	scope := &hcl.EvalContext{
		Variables: i.vars,
		Functions: functionsWith(func() map[string]cty.Value { return i.vars }),
	}
	if !i.p.block {
		v, diags := i.p.expr.Value(scope)
		if diags.HasErrors() {
			return fragment.Result{}, diagError(fragment.ErrEvaluation, diags)
		}
		return fragment.Result{Output: fragment.Output{Value: v}}, nil
	}

	// Attributes are evaluated in source order in a child context, so later
	// attributes see earlier ones and shadow scope bindings.
	locals := scope.NewChild()
	locals.Variables = make(map[string]cty.Value, len(i.p.attrs))
	visible := func() map[string]cty.Value {
		out := make(map[string]cty.Value, len(i.vars)+len(locals.Variables))
		for k, v := range i.vars {
			out[k] = v
		}
		for k, v := range locals.Variables {
			out[k] = v
		}
		return out
	}
	locals.Functions = functionsWith(visible)

	exports := make(map[string]cty.Value, len(i.p.attrs))
	for _, a := range i.p.attrs {
		v, diags := a.Expr.Value(locals)
		if diags.HasErrors() {
			return fragment.Result{}, diagError(fragment.ErrEvaluation, diags)
		}
		locals.Variables[a.Name] = v
		exports[a.Name] = v
	}

	out := cty.EmptyObjectVal
	if len(exports) > 0 {
		out = cty.ObjectVal(exports)
	}
	return fragment.Result{Output: fragment.Output{Value: out}, Exports: exports}, nil
}
