package compiler

import (
	"maps"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/vk/livespan/internal/fragment"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/function"
	"github.com/zclconf/go-cty/cty/function/stdlib"
)

// stdFunctions is shared by HCL fragments and templates. function.Function
// values are immutable and safe to share.
var stdFunctions = map[string]function.Function{
	"abs":        stdlib.AbsoluteFunc,
	"ceil":       stdlib.CeilFunc,
	"chomp":      stdlib.ChompFunc,
	"coalesce":   stdlib.CoalesceFunc,
	"concat":     stdlib.ConcatFunc,
	"contains":   stdlib.ContainsFunc,
	"distinct":   stdlib.DistinctFunc,
	"element":    stdlib.ElementFunc,
	"flatten":    stdlib.FlattenFunc,
	"floor":      stdlib.FloorFunc,
	"format":     stdlib.FormatFunc,
	"formatlist": stdlib.FormatListFunc,
	"indent":     stdlib.IndentFunc,
	"join":       stdlib.JoinFunc,
	"jsondecode": stdlib.JSONDecodeFunc,
	"jsonencode": stdlib.JSONEncodeFunc,
	"keys":       stdlib.KeysFunc,
	"length":     stdlib.LengthFunc,
	"lookup":     stdlib.LookupFunc,
	"lower":      stdlib.LowerFunc,
	"max":        stdlib.MaxFunc,
	"merge":      stdlib.MergeFunc,
	"min":        stdlib.MinFunc,
	"range":      stdlib.RangeFunc,
	"regex":      stdlib.RegexFunc,
	"replace":    stdlib.ReplaceFunc,
	"reverse":    stdlib.ReverseListFunc,
	"sort":       stdlib.SortFunc,
	"split":      stdlib.SplitFunc,
	"strlen":     stdlib.StrlenFunc,
	"substr":     stdlib.SubstrFunc,
	"title":      stdlib.TitleFunc,
	"trimspace":  stdlib.TrimSpaceFunc,
	"upper":      stdlib.UpperFunc,
	"values":     stdlib.ValuesFunc,
	"zipmap":     stdlib.ZipmapFunc,
}

// functionsWith returns the standard functions plus `component`, whose
// templates see the bindings returned by vars at call time.
func functionsWith(vars func() map[string]cty.Value) map[string]function.Function {
	funcs := maps.Clone(stdFunctions)
	funcs["component"] = function.New(&function.Spec{
		Description: "Turns a template string into a component.",
		Params: []function.Parameter{
			{Name: "template", Type: cty.String},
		},
		Type: function.StaticReturnType(fragment.ComponentType),
		Impl: func(args []cty.Value, _ cty.Type) (cty.Value, error) {
			c, err := componentFromTemplate(args[0].AsString(), vars())
			if err != nil {
				return cty.NilVal, err
			}
			return fragment.ComponentVal(c), nil
		},
	})
	return funcs
}

// componentFromTemplate parses src as an HCL template rendered with a copy
// of vars.
func componentFromTemplate(src string, vars map[string]cty.Value) (fragment.Component, error) {
	expr, diags := hclsyntax.ParseTemplate([]byte(src), "component", hcl.Pos{Line: 1, Column: 1})
	if diags.HasErrors() {
		return nil, diagError(fragment.ErrEvaluation, diags)
	}
	return &templateComponent{name: "component", expr: expr, vars: maps.Clone(vars)}, nil
}
