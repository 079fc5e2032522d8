package render

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/vk/livespan/internal/ctxlog"
	"github.com/vk/livespan/internal/fragment"
	"golang.org/x/net/html"
)

// Mount is one mounted output.
type Mount struct {
	Target fragment.Target
	HTML   string
	// Updates counts how often the mount was rendered.
	Updates int

	// node is the element that replaced a preview block.
	node *html.Node
}

// Table is an explicit table of mounts keyed by target key.
type Table struct {
	mu     sync.RWMutex
	mounts map[string]*Mount
}

// NewTable creates an empty table.
func NewTable() *Table {
	return &Table{mounts: make(map[string]*Mount)}
}

// Mount implements fragment.Renderer.
func (t *Table) Mount(ctx context.Context, target fragment.Target, out fragment.Output) error {
	markup := HTML(ctx, target.Kind, out)

	t.mu.Lock()
	defer t.mu.Unlock()
	m, ok := t.mounts[target.Key]
	if !ok {
		m = &Mount{}
		t.mounts[target.Key] = m
	}

	// Inline outputs fill their <code> element; block outputs take the place
	// of the whole <pre>.
	if target.Mode == fragment.ModePreview && target.Element != nil {
		var err error
		if target.Kind.IsBlock() {
			at := target.Element
			if at.Parent == nil && m.node != nil {
				at = m.node
			}
			m.node, err = replaceNode(at, markup)
		} else {
			err = replaceChildren(target.Element, markup)
		}
		if err != nil {
			return fmt.Errorf("failed to mount %s: %w", target.Key, err)
		}
	}

	m.Target = target
	m.HTML = markup
	m.Updates++
	ctxlog.FromContext(ctx).Debug("Output mounted.", "key", target.Key, "updates", m.Updates)
	return nil
}

// Unmount implements fragment.Renderer. Unmounting an unknown key is a
// no-op.
func (t *Table) Unmount(ctx context.Context, key string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.mounts[key]; !ok {
		return nil
	}
	delete(t.mounts, key)
	ctxlog.FromContext(ctx).Debug("Output unmounted.", "key", key)
	return nil
}

// Get returns a copy of the mount with key.
func (t *Table) Get(key string) (Mount, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	m, ok := t.mounts[key]
	if !ok {
		return Mount{}, false
	}
	return *m, true
}

// Keys returns the mounted keys of docID, sorted.
func (t *Table) Keys(docID string) []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	var keys []string
	for k, m := range t.mounts {
		if m.Target.DocID == docID {
			keys = append(keys, k)
		}
	}
	slices.Sort(keys)
	return keys
}

// Len returns the number of mounts.
func (t *Table) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.mounts)
}

// replaceChildren swaps the children of el for the parsed markup.
func replaceChildren(el *html.Node, markup string) error {
	nodes, err := html.ParseFragment(strings.NewReader(markup), el)
	if err != nil {
		return err
	}
	for c := el.FirstChild; c != nil; {
		next := c.NextSibling
		el.RemoveChild(c)
		c = next
	}
	for _, n := range nodes {
		el.AppendChild(n)
	}
	return nil
}

// replaceNode puts the parsed markup in place of el and returns the first
// inserted node.
func replaceNode(el *html.Node, markup string) (*html.Node, error) {
	parent := el.Parent
	if parent == nil {
		return nil, fmt.Errorf("element <%s> is not attached", el.Data)
	}
	nodes, err := html.ParseFragment(strings.NewReader(markup), parent)
	if err != nil {
		return nil, err
	}
	if len(nodes) == 0 {
		return nil, fmt.Errorf("empty markup")
	}
	for _, n := range nodes {
		parent.InsertBefore(n, el)
	}
	parent.RemoveChild(el)
	return nodes[0], nil
}
