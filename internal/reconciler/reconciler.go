// Package reconciler turns evaluation passes into decorations and applies
// them to a renderer with the fewest re-renders.
package reconciler

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/vk/livespan/internal/ctxlog"
	"github.com/vk/livespan/internal/fragment"
	"github.com/vk/livespan/internal/scheduler"
	"github.com/vk/livespan/internal/scopeid"
	"github.com/vk/livespan/internal/span"
)

// NoChange is the render key of widgets from a skipped pass. It matches
// every other key.
const NoChange = "no-change"

// Widget is the replacement content of one span.
type Widget struct {
	// Key identifies one rendering of the output.
	Key    string
	Target fragment.Target
	Output fragment.Output
}

// Equal reports whether w can be kept in place of o without rendering.
func (w Widget) Equal(o Widget) bool {
	return w.Key == o.Key || w.Key == NoChange || o.Key == NoChange
}

// Decoration replaces Range of the document with a widget.
type Decoration struct {
	Range  span.Range
	Widget Widget
}

// Decorations builds one decoration per evaluated span of p. Inline spans
// replace exactly their range; block spans also cover the character before
// and after their fences, clamped to [0, docLen].
func Decorations(p *scheduler.Pass, docLen int) []Decoration {
	decos := make([]Decoration, 0, len(p.Outputs))
	for _, s := range p.Spans.ToProcess() {
		out, ok := p.Outputs[s.Index]
		if !ok {
			continue
		}
		key := NoChange
		if !p.Skipped {
			key = uuid.NewString()
		}
		r := s.Range
		if s.Kind.IsBlock() {
			r = span.Range{From: max(r.From-1, 0), To: min(r.To+1, docLen)}
		}
		decos = append(decos, Decoration{
			Range: r,
			Widget: Widget{
				Key: key,
				Target: fragment.Target{
					Key:     scopeid.Fragment(p.DocID, s.Index).String(),
					DocID:   p.DocID,
					Index:   s.Index,
					Kind:    s.Kind,
					Mode:    p.Mode,
					Element: s.Element,
				},
				Output: out,
			},
		})
	}
	return decos
}

// Stats summarizes one Apply.
type Stats struct {
	Reused  int
	Rebuilt int
	Removed int
}

// Reconciler remembers the mounted widgets of every document.
type Reconciler struct {
	renderer fragment.Renderer

	mu      sync.Mutex
	mounted map[string]map[string]Widget
}

// New creates a reconciler mounting through r.
func New(r fragment.Renderer) *Reconciler {
	return &Reconciler{renderer: r, mounted: make(map[string]map[string]Widget)}
}

// Apply mounts decos for docID. Widgets equal to the mounted one at the same
// target are kept, the others are rendered, and mounts that no decoration
// refers to any more are removed.
func (r *Reconciler) Apply(ctx context.Context, docID string, decos []Decoration) (Stats, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var stats Stats
	prev := r.mounted[docID]
	next := make(map[string]Widget, len(decos))

	for _, d := range decos {
		w := d.Widget
		key := w.Target.Key
		if old, ok := prev[key]; ok && old.Equal(w) {
			next[key] = old
			stats.Reused++
			continue
		}
		if w.Key == NoChange {
			// Nothing mounted to keep; render it under a real key.
			w.Key = uuid.NewString()
		}
		if err := r.renderer.Mount(ctx, w.Target, w.Output); err != nil {
			return stats, fmt.Errorf("failed to mount %s: %w", key, err)
		}
		next[key] = w
		stats.Rebuilt++
	}

	for key := range prev {
		if _, ok := next[key]; ok {
			continue
		}
		if err := r.renderer.Unmount(ctx, key); err != nil {
			return stats, fmt.Errorf("failed to unmount %s: %w", key, err)
		}
		stats.Removed++
	}

	r.mounted[docID] = next
	ctxlog.FromContext(ctx).Debug("Decorations applied.", "doc", docID, "reused", stats.Reused, "rebuilt", stats.Rebuilt, "removed", stats.Removed)
	return stats, nil
}

// Forget unmounts every widget of docID.
func (r *Reconciler) Forget(ctx context.Context, docID string) error {
	_, err := r.Apply(ctx, docID, nil)
	r.mu.Lock()
	delete(r.mounted, docID)
	r.mu.Unlock()
	return err
}
