// Package preview locates spans in already rendered HTML.
//
// The host calls Process once per rendered block of a document and Flush
// when the rendering is complete. Blocks may arrive in any order. Flush drops
// blocks that are no longer part of the visible Surface, sorts the rest by
// their position in the document tree, flattens them into a span list and
// hands it to the configured Run function.
package preview

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"strings"
	"sync"

	"github.com/vk/livespan/internal/ctxlog"
	"github.com/vk/livespan/internal/locator"
	"github.com/vk/livespan/internal/span"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Surface reports which rendered elements are currently visible.
type Surface interface {
	Attached(docID string, el *html.Node) bool
}

// RunFunc executes one preview pass over the located spans.
type RunFunc func(ctx context.Context, docID string, spans span.List) error

// Processor groups rendered blocks by document and turns them into spans.
type Processor struct {
	Syntax  locator.Syntax
	Surface Surface
	Run     RunFunc

	mu       sync.Mutex
	blocks   map[string][]*html.Node
	excluded map[string]map[*html.Node]bool
}

// NewProcessor creates a processor.
func NewProcessor(syntax locator.Syntax, surface Surface, run RunFunc) *Processor {
	return &Processor{
		Syntax:  syntax,
		Surface: surface,
		Run:     run,
		blocks:   make(map[string][]*html.Node),
		excluded: make(map[string]map[*html.Node]bool),
	}
}

// Process records one rendered block of docID.
func (p *Processor) Process(ctx context.Context, docID string, block *html.Node) {
	if block == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, b := range p.blocks[docID] {
		if b == block {
			return
		}
	}
	p.blocks[docID] = append(p.blocks[docID], block)
}

// ExcludeUnclosed skips the code blocks under root whose fence was never
// closed in the source. closed lists, in document order, whether each fence
// with a language is closed, as reported by locator.Live.ClosedFences.
func (p *Processor) ExcludeUnclosed(docID string, root *html.Node, closed []bool) {
	var fences []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.DataAtom == atom.Pre {
			if code := firstElement(n, atom.Code); code != nil {
				if _, ok := languageClass(code); ok {
					fences = append(fences, n)
				}
			}
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)

	p.mu.Lock()
	defer p.mu.Unlock()
	for i, pre := range fences {
		if i < len(closed) && !closed[i] {
			if p.excluded[docID] == nil {
				p.excluded[docID] = make(map[*html.Node]bool)
			}
			p.excluded[docID][pre] = true
		}
	}
}

// Flush locates the spans of every visible block of docID and runs a pass.
func (p *Processor) Flush(ctx context.Context, docID string) error {
	spans := p.Collect(ctx, docID)
	if p.Run == nil {
		return nil
	}
	if err := p.Run(ctx, docID, spans); err != nil {
		return fmt.Errorf("preview pass for %s: %w", docID, err)
	}
	return nil
}

// Collect drops detached blocks and returns the spans of the remaining ones.
func (p *Processor) Collect(ctx context.Context, docID string) span.List {
	logger := ctxlog.FromContext(ctx)

	p.mu.Lock()
	var kept []*html.Node
	dropped := 0
	for _, b := range p.blocks[docID] {
		if p.Surface == nil || p.Surface.Attached(docID, b) {
			kept = append(kept, b)
		} else {
			dropped++
		}
	}
	slices.SortStableFunc(kept, treeOrder)
	p.blocks[docID] = kept
	excluded := maps.Clone(p.excluded[docID])
	p.mu.Unlock()

	var spans span.List
	for _, b := range kept {
		spans = p.collect(b, excluded, spans)
	}
	for i := range spans {
		spans[i].Index = i
	}
	logger.Debug("Preview spans collected.", "doc", docID, "blocks", len(kept), "dropped", dropped, "spans", len(spans))
	return spans
}

// Forget drops every block recorded for docID.
func (p *Processor) Forget(docID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.blocks, docID)
	delete(p.excluded, docID)
}

func (p *Processor) collect(n *html.Node, excluded map[*html.Node]bool, spans span.List) span.List {
	if n.Type == html.ElementNode {
		switch n.DataAtom {
		case atom.Pre:
			if excluded[n] {
				return spans
			}
			if code := firstElement(n, atom.Code); code != nil {
				if lang, ok := languageClass(code); ok {
					if kind, l, shortcut, ok := p.Syntax.Fence(lang); ok {
						return append(spans, span.Span{
							Kind:     kind,
							Lang:     l,
							Source:   textContent(code),
							Shortcut: shortcut,
							Element:  n,
						})
					}
				}
			}
			return spans
		case atom.Code:
			if kind, l, src, ok := p.Syntax.Inline(textContent(n)); ok && src != "" {
				return append(spans, span.Span{Kind: kind, Lang: l, Source: src, Element: n})
			}
			return spans
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		spans = p.collect(c, excluded, spans)
	}
	return spans
}

// treeOrder compares the positions of a and b in their document tree.
// Nodes of different trees compare equal.
func treeOrder(a, b *html.Node) int {
	pa, pb := ancestry(a), ancestry(b)
	if pa[0] != pb[0] {
		return 0
	}
	i := 0
	for i < len(pa) && i < len(pb) && pa[i] == pb[i] {
		i++
	}
	switch {
	case i == len(pa) && i == len(pb):
		return 0
	case i == len(pa):
		return -1
	case i == len(pb):
		return 1
	}
	for n := pa[i].NextSibling; n != nil; n = n.NextSibling {
		if n == pb[i] {
			return -1
		}
	}
	return 1
}

// ancestry returns the path from the root of n's tree down to n.
func ancestry(n *html.Node) []*html.Node {
	var path []*html.Node
	for ; n != nil; n = n.Parent {
		path = append(path, n)
	}
	slices.Reverse(path)
	return path
}

func firstElement(n *html.Node, a atom.Atom) *html.Node {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && c.DataAtom == a {
			return c
		}
	}
	return nil
}

// languageClass extracts "tag" from class="language-tag".
func languageClass(n *html.Node) (string, bool) {
	for _, a := range n.Attr {
		if a.Key != "class" {
			continue
		}
		for _, c := range strings.Fields(a.Val) {
			if lang, ok := strings.CutPrefix(c, "language-"); ok {
				return lang, true
			}
		}
	}
	return "", false
}

func textContent(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return b.String()
}
