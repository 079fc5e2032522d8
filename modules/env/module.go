package env

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/vk/livespan/internal/registry"
	"github.com/zclconf/go-cty/cty"
	"golang.org/x/net/html"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// Vars renders the environment variables named in its children, one name
// per line, as a definition list. Unset variables render as "(unset)".
type Vars struct {
	// Getenv defaults to os.LookupEnv.
	Getenv func(string) (string, bool)
}

// Name implements fragment.Component.
func (v *Vars) Name() string { return "Env" }

// Render implements fragment.Component.
func (v *Vars) Render(ctx context.Context, props map[string]cty.Value) (string, error) {
	lookup := v.Getenv
	if lookup == nil {
		lookup = os.LookupEnv
	}
	children, ok := props["children"]
	if !ok || children.IsNull() || children.Type() != cty.String {
		return "", fmt.Errorf("env component expects variable names as children")
	}

	var b strings.Builder
	b.WriteString(`<dl class="env">`)
	for _, name := range strings.Fields(children.AsString()) {
		val, set := lookup(name)
		if !set {
			val = "(unset)"
		}
		fmt.Fprintf(&b, "<dt>%s</dt><dd>%s</dd>", html.EscapeString(name), html.EscapeString(val))
	}
	b.WriteString("</dl>")
	return b.String(), nil
}

// Register registers the Env component.
func (m *Module) Register(r *registry.Registry) {
	r.Register(&Vars{})
}
