package engine

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/livespan/internal/compiler"
	"github.com/vk/livespan/internal/editor"
	"github.com/vk/livespan/internal/inmemoryscope"
	"github.com/vk/livespan/internal/locator"
	"github.com/vk/livespan/internal/registry"
	"github.com/zclconf/go-cty/cty"
)

const doc = "Sum `hcl:1 + 2` here.\n\n```hcl\nx = 1\n```\n\nValue `hcl:x`.\n\n```tpl:Note\nhello\n```\n"

type note struct{}

func (note) Name() string { return "Note" }

func (note) Render(_ context.Context, props map[string]cty.Value) (string, error) {
	return "<aside>" + strings.TrimSpace(props["children"].AsString()) + "</aside>", nil
}

type chanSink chan Update

func (s chanSink) Publish(_ context.Context, u Update) error {
	s <- u
	return nil
}

func newEngine(t *testing.T, sink Sink) *Engine {
	t.Helper()
	reg := registry.New()
	reg.Register(note{})
	reg.MarkReady()
	return New(Options{
		Graph:      inmemoryscope.New(),
		Components: reg,
		Compilers:  compiler.Defaults(),
		Syntax:     locator.DefaultSyntax(),
		Delay:      time.Millisecond,
		Sink:       sink,
	})
}

func next(t *testing.T, sink chanSink) Update {
	t.Helper()
	select {
	case u := <-sink:
		return u
	case <-time.After(2 * time.Second):
		t.Fatal("no decorations published")
		return Update{}
	}
}

func TestEngine_Live(t *testing.T) {
	sink := make(chanSink, 4)
	e := newEngine(t, sink)
	ctx := context.Background()

	require.NoError(t, e.Update(ctx, editor.Snapshot{DocID: "p.md", Version: 1, Source: doc, Cursor: -1}))
	u := next(t, sink)
	assert.Equal(t, 1, u.Version)
	assert.False(t, u.Skipped)
	require.Len(t, u.Items, 4)
	assert.Equal(t, 4, u.Rebuilt)

	assert.Contains(t, u.Items[0].HTML, ">3<")
	assert.Equal(t, "p.md#0", u.Items[0].Key)
	assert.Equal(t, "`hcl:1 + 2`", doc[u.Items[0].From:u.Items[0].To])
	assert.Contains(t, u.Items[2].HTML, ">1<")
	assert.Contains(t, u.Items[3].HTML, "<aside>hello</aside>")

	t.Run("unchanged document reuses widgets", func(t *testing.T) {
		require.NoError(t, e.Update(ctx, editor.Snapshot{DocID: "p.md", Version: 2, Source: doc, Cursor: -1}))
		u := next(t, sink)
		assert.True(t, u.Skipped)
		assert.Equal(t, 4, u.Reused)
		assert.Equal(t, 0, u.Rebuilt)
	})

	t.Run("cursor inside a span hides it", func(t *testing.T) {
		cursor := strings.Index(doc, "hcl:x")
		require.NoError(t, e.Update(ctx, editor.Snapshot{DocID: "p.md", Version: 3, Source: doc, Cursor: cursor}))
		u := next(t, sink)
		require.Len(t, u.Items, 3)
		for _, it := range u.Items {
			assert.NotEqual(t, 2, it.Index)
		}
	})

	require.NoError(t, e.Close(ctx, "p.md"))
	assert.Equal(t, 0, e.table.Len())
}

func TestEngine_RenderMarkdown(t *testing.T) {
	e := newEngine(t, nil)

	out, err := e.RenderMarkdown(context.Background(), "p.md", []byte(doc))
	require.NoError(t, err)

	assert.Contains(t, out, `<code><span class="livespan-inline">3</span></code>`)
	assert.Contains(t, out, `<code><span class="livespan-inline">1</span></code>`)
	assert.Contains(t, out, `livespan-json`)
	assert.Contains(t, out, `<aside>hello</aside>`)
	assert.NotContains(t, out, "hcl:1 + 2")

	t.Run("rendering twice mounts into the new tree", func(t *testing.T) {
		again, err := e.RenderMarkdown(context.Background(), "p.md", []byte(doc))
		require.NoError(t, err)
		assert.Equal(t, out, again)
	})
}

func TestEngine_RenderMarkdownUnclosedFence(t *testing.T) {
	e := newEngine(t, nil)

	out, err := e.RenderMarkdown(context.Background(), "p.md", []byte("Intro `hcl:1 + 1`\n\n```hcl\nx = 1 + 1\n"))
	require.NoError(t, err)

	assert.Contains(t, out, `<span class="livespan-inline">2</span>`)
	assert.Contains(t, out, `<pre><code class="language-hcl">x = 1 + 1`, "an open fence stays source text")
	assert.NotContains(t, out, "livespan-block")
	assert.NotContains(t, out, "livespan-json")
}

func TestEngine_RenderMarkdownBlocksReplacePre(t *testing.T) {
	e := newEngine(t, nil)

	out, err := e.RenderMarkdown(context.Background(), "p.md", []byte("```hcl\nx = 1\n```\n"))
	require.NoError(t, err)
	assert.Contains(t, out, `<div class="livespan-block"><code class="livespan-json">`)
	assert.NotContains(t, out, "<pre>")
}
