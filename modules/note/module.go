package note

import (
	"context"
	"fmt"
	"strings"

	"github.com/vk/livespan/internal/ctxlog"
	"github.com/vk/livespan/internal/registry"
	"github.com/zclconf/go-cty/cty"
	"golang.org/x/net/html"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// Callout renders its children inside an aside of the given class.
type Callout struct {
	name  string
	class string
}

// Name implements fragment.Component.
func (c *Callout) Name() string { return c.name }

// Render implements fragment.Component. Blank lines in children separate
// paragraphs.
func (c *Callout) Render(ctx context.Context, props map[string]cty.Value) (string, error) {
	children := ""
	if v, ok := props["children"]; ok && !v.IsNull() && v.Type() == cty.String {
		children = v.AsString()
	}
	ctxlog.FromContext(ctx).Debug("Rendering callout.", "component", c.name, "bytes", len(children))

	var b strings.Builder
	fmt.Fprintf(&b, `<aside class="%s">`, c.class)
	for _, para := range strings.Split(strings.TrimSpace(children), "\n\n") {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}
		fmt.Fprintf(&b, "<p>%s</p>", html.EscapeString(para))
	}
	b.WriteString("</aside>")
	return b.String(), nil
}

// Register registers the callout components.
func (m *Module) Register(r *registry.Registry) {
	r.Register(&Callout{name: "Note", class: "note"})
	r.Register(&Callout{name: "Warning", class: "warning"})
}
