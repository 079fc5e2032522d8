package executor

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/livespan/internal/compiler"
	"github.com/vk/livespan/internal/fragment"
	"github.com/vk/livespan/internal/inmemoryscope"
	"github.com/vk/livespan/internal/registry"
	"github.com/vk/livespan/internal/scope"
	"github.com/vk/livespan/internal/scopeid"
	"github.com/vk/livespan/internal/span"
	"github.com/zclconf/go-cty/cty"
)

type fixture struct {
	graph scope.Graph
	reg   *registry.Registry
	exec  *Executor
	root  scope.Handle
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	g := inmemoryscope.New()
	reg := registry.New()
	reg.MarkReady()
	root, err := g.Create(context.Background(), scopeid.Root("p.md"))
	require.NoError(t, err)
	return &fixture{graph: g, reg: reg, exec: New(g, reg, compiler.Defaults()...), root: root}
}

// eval evaluates s in a fresh write scope linked under read and returns the
// output with the write handle.
func (f *fixture) eval(t *testing.T, read scope.Handle, s span.Span) (fragment.Output, scope.Handle) {
	t.Helper()
	ctx := context.Background()
	write, err := f.graph.Create(ctx, scopeid.Fragment("p.md", s.Index))
	require.NoError(t, err)
	require.NoError(t, f.graph.AddChild(ctx, read, write))
	out := f.exec.Evaluate(ctx, s, Context{DocID: "p.md", Index: s.Index, Count: 1, Read: read, Write: write})
	return out, write
}

type noteComponent struct{}

func (noteComponent) Name() string { return "Note" }

func (noteComponent) Render(_ context.Context, props map[string]cty.Value) (string, error) {
	return "<aside>" + props["children"].AsString() + "</aside>", nil
}

type panicCompiler struct{}

func (panicCompiler) Langs() []string { return []string{"boom"} }

func (panicCompiler) Compile(context.Context, span.Span) (fragment.Program, error) {
	panic("compiler exploded")
}

func TestEvaluate_StatementThenExpression(t *testing.T) {
	f := newFixture(t)

	out, w0 := f.eval(t, f.root, span.Span{Kind: span.BlockStatement, Lang: "hcl", Index: 0, Source: "x = 1\n"})
	require.NoError(t, out.Err)
	assert.True(t, out.Value.GetAttr("x").RawEquals(cty.NumberIntVal(1)))

	b, err := f.graph.Bindings(context.Background(), w0)
	require.NoError(t, err)
	assert.True(t, b["x"].RawEquals(cty.NumberIntVal(1)))

	out, w1 := f.eval(t, w0, span.Span{Kind: span.InlineExpression, Lang: "hcl", Index: 1, Source: "x + 1"})
	require.NoError(t, out.Err)
	assert.True(t, out.Value.RawEquals(cty.NumberIntVal(2)))

	b, err = f.graph.Bindings(context.Background(), w1)
	require.NoError(t, err)
	assert.Empty(t, b, "expressions export nothing")
}

func TestEvaluate_EmptyBlockComponent(t *testing.T) {
	f := newFixture(t)
	out, _ := f.eval(t, f.root, span.Span{Kind: span.BlockComponent, Lang: "tpl", Source: "  \n"})
	assert.True(t, out.Empty)
	assert.NoError(t, out.Err)
}

func TestEvaluate_Shortcut(t *testing.T) {
	t.Run("from registry", func(t *testing.T) {
		f := newFixture(t)
		f.reg.Register(noteComponent{})

		out, _ := f.eval(t, f.root, span.Span{Kind: span.BlockComponent, Lang: "tpl", Shortcut: "Note", Source: "hello\n"})
		require.NoError(t, out.Err)
		require.NotNil(t, out.Component)
		assert.Equal(t, "Note", out.Component.Name())
		assert.Equal(t, "hello\n", out.Props["children"].AsString())
	})

	t.Run("scope binding wins over registry", func(t *testing.T) {
		f := newFixture(t)
		f.reg.Register(noteComponent{})

		_, w0 := f.eval(t, f.root, span.Span{Kind: span.BlockStatement, Lang: "hcl", Index: 0, Source: "Note = component(\"<em>$${children}</em>\")\n"})
		out, _ := f.eval(t, w0, span.Span{Kind: span.BlockComponent, Lang: "tpl", Index: 1, Shortcut: "Note", Source: "hi"})
		require.NoError(t, out.Err)

		html, err := out.Component.Render(context.Background(), out.Props)
		require.NoError(t, err)
		assert.Equal(t, "<em>hi</em>", html)
	})

	t.Run("unresolved", func(t *testing.T) {
		f := newFixture(t)
		out, _ := f.eval(t, f.root, span.Span{Kind: span.BlockComponent, Lang: "tpl", Index: 3, Shortcut: "Missing", Source: "x"})
		require.ErrorIs(t, out.Err, fragment.ErrUnresolvedShortcut)

		var fe *fragment.Error
		require.ErrorAs(t, out.Err, &fe)
		assert.Equal(t, 3, fe.Index)
	})

	t.Run("waits for registry readiness", func(t *testing.T) {
		g := inmemoryscope.New()
		reg := registry.New()
		root, err := g.Create(context.Background(), scopeid.Root("p.md"))
		require.NoError(t, err)
		exec := New(g, reg, compiler.Defaults()...)

		done := make(chan fragment.Output, 1)
		go func() {
			done <- exec.Evaluate(context.Background(), span.Span{Kind: span.BlockComponent, Lang: "tpl", Shortcut: "Note", Source: "x"}, Context{Read: root, Write: root})
		}()

		reg.Register(noteComponent{})
		reg.MarkReady()
		out := <-done
		require.NoError(t, out.Err)
		assert.Equal(t, "Note", out.Component.Name())
	})
}

func TestEvaluate_Errors(t *testing.T) {
	f := newFixture(t)

	t.Run("unknown language", func(t *testing.T) {
		out, _ := f.eval(t, f.root, span.Span{Kind: span.InlineExpression, Lang: "cobol", Index: 0, Source: "1"})
		assert.ErrorIs(t, out.Err, fragment.ErrCompile)
	})

	t.Run("compile error", func(t *testing.T) {
		out, _ := f.eval(t, f.root, span.Span{Kind: span.InlineExpression, Lang: "hcl", Index: 1, Source: "1 +"})
		assert.ErrorIs(t, out.Err, fragment.ErrCompile)
	})

	t.Run("evaluation error", func(t *testing.T) {
		out, _ := f.eval(t, f.root, span.Span{Kind: span.InlineExpression, Lang: "hcl", Index: 2, Source: "missing + 1"})
		assert.ErrorIs(t, out.Err, fragment.ErrEvaluation)
	})

	t.Run("panic is recovered", func(t *testing.T) {
		exec := New(f.graph, f.reg, panicCompiler{})
		out := exec.Evaluate(context.Background(), span.Span{Kind: span.InlineExpression, Lang: "boom", Index: 4}, Context{Read: f.root, Write: f.root})
		require.ErrorIs(t, out.Err, fragment.ErrEvaluation)
		assert.Contains(t, out.Err.Error(), "compiler exploded")
	})
}

func TestEvaluate_StaleWriteScope(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	write, err := f.graph.Create(ctx, scopeid.Fragment("p.md", 0))
	require.NoError(t, err)
	require.NoError(t, f.graph.AddChild(ctx, f.root, write))
	require.NoError(t, f.graph.DisposeDescendants(ctx, f.root))

	out := f.exec.Evaluate(ctx, span.Span{Kind: span.BlockStatement, Lang: "hcl", Source: "x = 1\n"}, Context{Read: f.root, Write: write})
	require.ErrorIs(t, out.Err, scope.ErrStale)
	assert.Equal(t, 1, f.graph.Len())
}
