package compiler

import (
	"context"
	"fmt"
	"maps"
	"slices"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/vk/livespan/internal/fragment"
	"github.com/vk/livespan/internal/refexpr"
	"github.com/vk/livespan/internal/span"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
)

// Props every component receives at render time. They are never looked up
// in scope.
var propNames = []string{"children"}

// Template compiles HCL templates into components.
type Template struct{}

// NewTemplate creates the template compiler.
func NewTemplate() *Template {
	return &Template{}
}

// Langs implements fragment.Compiler.
func (t *Template) Langs() []string {
	return []string{"tpl"}
}

// Compile implements fragment.Compiler.
func (t *Template) Compile(ctx context.Context, s span.Span) (fragment.Program, error) {
	expr, diags := hclsyntax.ParseTemplate([]byte(s.Source), filename(s), hcl.Pos{Line: 1, Column: 1})
	if diags.HasErrors() {
		return nil, diagError(fragment.ErrCompile, diags)
	}
	refs := slices.DeleteFunc(refexpr.NewContainer(expr).RootNames(), func(n string) bool {
		return slices.Contains(propNames, n)
	})
	return &templateProgram{name: filename(s), expr: expr, refs: refs}, nil
}

// Parse compiles a named template outside of any page, for component
// files. Its references are only satisfied by props.
func (t *Template) Parse(name string, src []byte) (fragment.Component, error) {
	expr, diags := hclsyntax.ParseTemplate(src, name, hcl.Pos{Line: 1, Column: 1})
	if diags.HasErrors() {
		return nil, diagError(fragment.ErrCompile, diags)
	}
	return &templateComponent{name: name, expr: expr}, nil
}

type templateProgram struct {
	name string
	expr hcl.Expression
	refs []string
}

func (p *templateProgram) Refs() []string { return p.refs }

func (p *templateProgram) Load(ctx context.Context, env fragment.Env) (fragment.Instance, error) {
	vars, err := lookupAll(ctx, env, p.refs, func(_ string, v cty.Value) (cty.Value, error) { return v, nil })
	if err != nil {
		return nil, err
	}
	return &templateInstance{c: &templateComponent{name: p.name, expr: p.expr, vars: vars}}, nil
}

type templateInstance struct {
	c *templateComponent
}

func (i *templateInstance) Execute(ctx context.Context) (fragment.Result, error) {
	return fragment.Result{Output: fragment.Output{Component: i.c}}, nil
}

// templateComponent renders an HCL template with captured bindings.
type templateComponent struct {
	name string
	expr hcl.Expression
	vars map[string]cty.Value
}

func (c *templateComponent) Name() string { return c.name }

func (c *templateComponent) Render(ctx context.Context, props map[string]cty.Value) (string, error) {
	vars := maps.Clone(c.vars)
	if vars == nil {
		vars = make(map[string]cty.Value, len(props))
	}
	maps.Copy(vars, props)
	evalCtx := &hcl.EvalContext{
		Variables: vars,
		Functions: functionsWith(func() map[string]cty.Value { return vars }),
	}
	v, diags := c.expr.Value(evalCtx)
	if diags.HasErrors() {
		return "", diagError(fragment.ErrEvaluation, diags)
	}
	return markup(v)
}

// markup converts a rendered template value into a string.
func markup(v cty.Value) (string, error) {
	if v.IsNull() {
		return "", nil
	}
	if !v.IsWhollyKnown() {
		return "", fmt.Errorf("%w: template result is not known", fragment.ErrEvaluation)
	}
	s, err := convert.Convert(v, cty.String)
	if err != nil {
		return "", fmt.Errorf("%w: template result: %v", fragment.ErrEvaluation, err)
	}
	return s.AsString(), nil
}
