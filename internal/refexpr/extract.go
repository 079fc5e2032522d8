package refexpr

import (
	"slices"
	"sort"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/hashicorp/hcl/v2/hclwrite"
)

// TraversalKey returns a canonical string for t, e.g. `card.title[0]`.
func TraversalKey(t hcl.Traversal) string {
	return string(hclwrite.TokensForTraversal(t).Bytes())
}

// Extract returns the unique traversals and function calls of exprs, both
// sorted for deterministic output.
func Extract(exprs ...hcl.Expression) ([]hcl.Traversal, []string) {
	traversals := make(map[string]hcl.Traversal)
	functions := make(map[string]struct{})

	for _, expr := range exprs {
		if expr == nil {
			continue
		}
		for _, t := range expr.Variables() {
			traversals[TraversalKey(t)] = t
		}
		if syntaxExpr, ok := expr.(hclsyntax.Expression); ok {
			walkFunctions(syntaxExpr, functions)
		}
	}

	keys := make([]string, 0, len(traversals))
	for k := range traversals {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	refs := make([]hcl.Traversal, 0, len(keys))
	for _, k := range keys {
		refs = append(refs, traversals[k])
	}

	funcs := make([]string, 0, len(functions))
	for f := range functions {
		funcs = append(funcs, f)
	}
	sort.Strings(funcs)
	return refs, funcs
}

// RootNames returns the sorted, unique root names of refs.
func RootNames(refs []hcl.Traversal) []string {
	var names []string
	for _, t := range refs {
		if t.IsRelative() || len(t) == 0 {
			continue
		}
		names = append(names, t.RootName())
	}
	slices.Sort(names)
	return slices.Compact(names)
}

// walkFunctions collects function calls, which Variables() does not report.
func walkFunctions(expr hclsyntax.Expression, functions map[string]struct{}) {
	if expr == nil {
		return
	}
	switch e := expr.(type) {
	case *hclsyntax.FunctionCallExpr:
		functions[e.Name] = struct{}{}
		for _, arg := range e.Args {
			walkFunctions(arg, functions)
		}
	case *hclsyntax.BinaryOpExpr:
		walkFunctions(e.LHS, functions)
		walkFunctions(e.RHS, functions)
	case *hclsyntax.ConditionalExpr:
		walkFunctions(e.Condition, functions)
		walkFunctions(e.TrueResult, functions)
		walkFunctions(e.FalseResult, functions)
	case *hclsyntax.UnaryOpExpr:
		walkFunctions(e.Val, functions)
	case *hclsyntax.TemplateExpr:
		for _, part := range e.Parts {
			walkFunctions(part, functions)
		}
	case *hclsyntax.TemplateJoinExpr:
		walkFunctions(e.Tuple, functions)
	case *hclsyntax.TemplateWrapExpr:
		walkFunctions(e.Wrapped, functions)
	case *hclsyntax.TupleConsExpr:
		for _, item := range e.Exprs {
			walkFunctions(item, functions)
		}
	case *hclsyntax.ObjectConsExpr:
		for _, item := range e.Items {
			walkFunctions(item.KeyExpr, functions)
			walkFunctions(item.ValueExpr, functions)
		}
	case *hclsyntax.ObjectConsKeyExpr:
		walkFunctions(e.Wrapped, functions)
	case *hclsyntax.ForExpr:
		walkFunctions(e.CollExpr, functions)
		walkFunctions(e.KeyExpr, functions)
		walkFunctions(e.ValExpr, functions)
		walkFunctions(e.CondExpr, functions)
	case *hclsyntax.IndexExpr:
		walkFunctions(e.Collection, functions)
		walkFunctions(e.Key, functions)
	case *hclsyntax.RelativeTraversalExpr:
		walkFunctions(e.Source, functions)
	case *hclsyntax.SplatExpr:
		walkFunctions(e.Source, functions)
		walkFunctions(e.Each, functions)
	case *hclsyntax.ParenthesesExpr:
		walkFunctions(e.Expression, functions)
	}
}
