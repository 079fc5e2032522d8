package render

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/vk/livespan/internal/fragment"
	"github.com/vk/livespan/internal/span"
	"github.com/zclconf/go-cty/cty"
	ctyjson "github.com/zclconf/go-cty/cty/json"
	"golang.org/x/net/html"
)

// Placeholder is shown for block components without content.
const Placeholder = "No content"

// HTML renders out as markup for a span of the given kind.
func HTML(ctx context.Context, kind span.Kind, out fragment.Output) string {
	inner := body(ctx, out)
	tag, class := "span", "livespan-inline"
	if kind.IsBlock() {
		tag, class = "div", "livespan-block"
	}
	if out.Err != nil {
		class += " livespan-failed"
	}
	return fmt.Sprintf(`<%s class="%s">%s</%s>`, tag, class, inner, tag)
}

func body(ctx context.Context, out fragment.Output) string {
	switch {
	case out.Err != nil:
		return errorMarkup(out.Err)
	case out.Empty:
		return `<span class="livespan-empty">` + Placeholder + `</span>`
	case out.Component != nil:
		markup, err := out.Component.Render(ctx, out.Props)
		if err != nil {
			return errorMarkup(fmt.Errorf("%w: component %s: %v", fragment.ErrEvaluation, out.Component.Name(), err))
		}
		return markup
	default:
		return value(ctx, out.Value)
	}
}

func errorMarkup(err error) string {
	return `<span class="livespan-error">` + html.EscapeString(err.Error()) + `</span>`
}

// value renders plain values as text and structures as JSON.
func value(ctx context.Context, v cty.Value) string {
	if v == cty.NilVal || v.IsNull() {
		return ""
	}
	if !v.IsWhollyKnown() {
		return html.EscapeString("(unknown)")
	}
	if c, ok := fragment.AsComponent(v); ok {
		markup, err := c.Render(ctx, nil)
		if err != nil {
			return errorMarkup(err)
		}
		return markup
	}

	switch v.Type() {
	case cty.String:
		return html.EscapeString(v.AsString())
	case cty.Number:
		return html.EscapeString(formatNumber(v.AsBigFloat()))
	case cty.Bool:
		if v.True() {
			return "true"
		}
		return "false"
	}

	js, err := ctyjson.Marshal(v, v.Type())
	if err != nil {
		return html.EscapeString(v.GoString())
	}
	return `<code class="livespan-json">` + html.EscapeString(string(js)) + `</code>`
}

// formatNumber prints integers without a fraction and other numbers in the
// shortest form.
func formatNumber(f *big.Float) string {
	if f.IsInt() {
		i, _ := f.Int(nil)
		return i.String()
	}
	return strings.TrimRight(strings.TrimRight(f.Text('f', 10), "0"), ".")
}
