package preview

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/livespan/internal/locator"
	"github.com/vk/livespan/internal/span"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// parseBody parses markup and returns the root and the element children of body.
func parseBody(t *testing.T, markup string) (*html.Node, []*html.Node) {
	t.Helper()
	root, err := html.Parse(strings.NewReader(markup))
	require.NoError(t, err)

	var body *html.Node
	var find func(*html.Node)
	find = func(n *html.Node) {
		if n.Type == html.ElementNode && n.DataAtom == atom.Body {
			body = n
			return
		}
		for c := n.FirstChild; c != nil && body == nil; c = c.NextSibling {
			find(c)
		}
	}
	find(root)
	require.NotNil(t, body)

	var blocks []*html.Node
	for c := body.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode {
			blocks = append(blocks, c)
		}
	}
	return root, blocks
}

const page = `<h1>Title</h1>` +
	`<pre><code class="language-hcl">x = 1
</code></pre>` +
	`<p>Value is <code>hcl: x + 1</code> and <code>plain</code>.</p>` +
	`<pre><code class="language-tpl:Card">Hello
</code></pre>` +
	`<pre><code class="language-go">package main
</code></pre>`

func TestProcessor_FlushFlattensInOrder(t *testing.T) {
	ctx := context.Background()
	root, blocks := parseBody(t, page)
	surface := NewTreeSurface()
	surface.Show("notes.md", root)

	var got span.List
	p := NewProcessor(locator.DefaultSyntax(), surface, func(_ context.Context, docID string, spans span.List) error {
		assert.Equal(t, "notes.md", docID)
		got = spans
		return nil
	})
	for _, b := range blocks {
		p.Process(ctx, "notes.md", b)
	}
	require.NoError(t, p.Flush(ctx, "notes.md"))

	require.Len(t, got, 3)
	assert.Equal(t, span.BlockStatement, got[0].Kind)
	assert.Equal(t, "x = 1\n", got[0].Source)
	assert.Equal(t, atom.Pre, got[0].Element.DataAtom)

	assert.Equal(t, span.InlineExpression, got[1].Kind)
	assert.Equal(t, "x + 1", got[1].Source)
	assert.Equal(t, atom.Code, got[1].Element.DataAtom)

	assert.Equal(t, span.BlockComponent, got[2].Kind)
	assert.Equal(t, "Card", got[2].Shortcut)

	for i, s := range got {
		assert.Equal(t, i, s.Index)
	}
}

func TestProcessor_DropsDetachedBlocks(t *testing.T) {
	ctx := context.Background()
	root, blocks := parseBody(t, page)
	surface := NewTreeSurface()
	surface.Show("notes.md", root)

	p := NewProcessor(locator.DefaultSyntax(), surface, nil)
	for _, b := range blocks {
		p.Process(ctx, "notes.md", b)
	}

	// The first code block scrolls out of the rendering.
	blocks[1].Parent.RemoveChild(blocks[1])

	spans := p.Collect(ctx, "notes.md")
	require.Len(t, spans, 2)
	assert.Equal(t, "x + 1", spans[0].Source)
	assert.Equal(t, 0, spans[0].Index)
}

func TestProcessor_GroupsByDocument(t *testing.T) {
	ctx := context.Background()
	rootA, blocksA := parseBody(t, page)
	rootB, blocksB := parseBody(t, `<p><code>star: 1 + 2</code></p>`)
	surface := NewTreeSurface()
	surface.Show("a.md", rootA)
	surface.Show("b.md", rootB)

	p := NewProcessor(locator.DefaultSyntax(), surface, nil)
	for _, b := range blocksA {
		p.Process(ctx, "a.md", b)
	}
	for _, b := range blocksB {
		p.Process(ctx, "b.md", b)
		p.Process(ctx, "b.md", b)
	}

	assert.Len(t, p.Collect(ctx, "a.md"), 3)
	spans := p.Collect(ctx, "b.md")
	require.Len(t, spans, 1, "blocks are recorded once")
	assert.Equal(t, "starlark", spans[0].Lang)

	surface.Hide("b.md")
	assert.Empty(t, p.Collect(ctx, "b.md"))
}

func TestProcessor_SortsBlocksInDocumentOrder(t *testing.T) {
	ctx := context.Background()
	root, blocks := parseBody(t, page)
	surface := NewTreeSurface()
	surface.Show("notes.md", root)

	p := NewProcessor(locator.DefaultSyntax(), surface, nil)
	for i := len(blocks) - 1; i >= 0; i-- {
		p.Process(ctx, "notes.md", blocks[i])
	}

	spans := p.Collect(ctx, "notes.md")
	require.Len(t, spans, 3)
	assert.Equal(t, "x = 1\n", spans[0].Source, "the defining block comes first even when it arrives last")
	assert.Equal(t, "x + 1", spans[1].Source)
	assert.Equal(t, "Card", spans[2].Shortcut)
	for i, s := range spans {
		assert.Equal(t, i, s.Index)
	}
}

func TestProcessor_ExcludeUnclosed(t *testing.T) {
	ctx := context.Background()
	root, blocks := parseBody(t, page)
	surface := NewTreeSurface()
	surface.Show("notes.md", root)

	p := NewProcessor(locator.DefaultSyntax(), surface, nil)
	// Fences with a language: hcl, tpl:Card, go. The tpl fence is open.
	p.ExcludeUnclosed("notes.md", root, []bool{true, false, true})
	for _, b := range blocks {
		p.Process(ctx, "notes.md", b)
	}

	spans := p.Collect(ctx, "notes.md")
	require.Len(t, spans, 2)
	assert.Equal(t, span.BlockStatement, spans[0].Kind)
	assert.Equal(t, span.InlineExpression, spans[1].Kind)

	p.Forget("notes.md")
	for _, b := range blocks {
		p.Process(ctx, "notes.md", b)
	}
	assert.Len(t, p.Collect(ctx, "notes.md"), 3, "Forget clears the exclusions")
}
