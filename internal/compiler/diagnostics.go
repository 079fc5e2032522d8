package compiler

import (
	"context"
	"errors"
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/vk/livespan/internal/fragment"
	"github.com/vk/livespan/internal/span"
	"github.com/zclconf/go-cty/cty"
)

// diagError converts the first error diagnostic into a *fragment.Error.
func diagError(kind error, diags hcl.Diagnostics) error {
	for _, d := range diags {
		if d.Severity != hcl.DiagError {
			continue
		}
		msg := d.Summary
		if d.Detail != "" {
			msg = fmt.Sprintf("%s: %s", d.Summary, d.Detail)
		}
		e := &fragment.Error{Kind: kind, Err: errors.New(msg)}
		if d.Subject != nil {
			e.Line = d.Subject.Start.Line
			e.Column = d.Subject.Start.Column
		}
		return e
	}
	return nil
}

// filename names a fragment in diagnostics, e.g. "hcl#2".
func filename(s span.Span) string {
	return fmt.Sprintf("%s#%d", s.Lang, s.Index)
}

// lookupAll resolves names through env. Missing names are left out so the
// language reports them with a position.
func lookupAll[V any](ctx context.Context, env fragment.Env, names []string, convert func(string, cty.Value) (V, error)) (map[string]V, error) {
	out := make(map[string]V, len(names))
	for _, name := range names {
		v, ok, err := env.Lookup(ctx, name)
		if err != nil {
			return nil, fmt.Errorf("lookup %q: %w", name, err)
		}
		if !ok {
			continue
		}
		cv, err := convert(name, v)
		if err != nil {
			return nil, &fragment.Error{Kind: fragment.ErrEvaluation, Err: err}
		}
		out[name] = cv
	}
	return out, nil
}
