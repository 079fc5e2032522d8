package preview

import (
	"sync"

	"golang.org/x/net/html"
)

// TreeSurface treats an element as visible when it is still reachable from
// the root shown for its document.
type TreeSurface struct {
	mu    sync.RWMutex
	roots map[string]*html.Node
}

// NewTreeSurface creates an empty surface.
func NewTreeSurface() *TreeSurface {
	return &TreeSurface{roots: make(map[string]*html.Node)}
}

// Show makes root the visible rendering of docID.
func (s *TreeSurface) Show(docID string, root *html.Node) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.roots[docID] = root
}

// Hide removes the rendering of docID.
func (s *TreeSurface) Hide(docID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.roots, docID)
}

// Attached implements Surface.
func (s *TreeSurface) Attached(docID string, el *html.Node) bool {
	s.mu.RLock()
	root, ok := s.roots[docID]
	s.mu.RUnlock()
	if !ok {
		return false
	}
	for n := el; n != nil; n = n.Parent {
		if n == root {
			return true
		}
	}
	return false
}
