package inmemoryscope

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"sync"

	"github.com/vk/livespan/internal/ctxlog"
	"github.com/vk/livespan/internal/scope"
	"github.com/vk/livespan/internal/scopeid"
	"github.com/zclconf/go-cty/cty"
)

// closed is shared by every node that is not blocked.
var closed = func() chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}()

type node struct {
	handle    scope.Handle
	parent    scope.Handle
	children  []scope.Handle
	bindings  map[string]cty.Value
	blocked   bool
	unblocked chan struct{}
}

// Store is an in-memory implementation of scope.Graph.
type Store struct {
	mu      sync.Mutex
	nodes   map[scopeid.Key]*node
	nextGen uint64
}

// New creates a new, empty scope store.
func New() scope.Graph {
	return &Store{nodes: make(map[scopeid.Key]*node)}
}

// resolve returns the live node for h. Callers must hold s.mu.
func (s *Store) resolve(h scope.Handle) (*node, error) {
	n, ok := s.nodes[h.Key]
	if !ok {
		if h.IsZero() {
			return nil, fmt.Errorf("%w: %s", scope.ErrNotFound, h.Key)
		}
		return nil, fmt.Errorf("%w: %s", scope.ErrStale, h.Key)
	}
	if h.Gen != n.handle.Gen {
		return nil, fmt.Errorf("%w: %s (generation %d, live %d)", scope.ErrStale, h.Key, h.Gen, n.handle.Gen)
	}
	return n, nil
}

// parentOf returns the live parent node of n, or nil. Callers must hold s.mu.
func (s *Store) parentOf(n *node) *node {
	if n.parent.IsZero() {
		return nil
	}
	p, err := s.resolve(n.parent)
	if err != nil {
		return nil
	}
	return p
}

func wait(ctx context.Context, ch <-chan struct{}) error {
	select {
	case <-ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Create allocates a new node for key.
func (s *Store) Create(ctx context.Context, key scopeid.Key) (scope.Handle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.nodes[key]; exists {
		return scope.Handle{}, fmt.Errorf("%w: %s", scope.ErrExists, key)
	}
	s.nextGen++
	n := &node{
		handle:    scope.Handle{Key: key, Gen: s.nextGen},
		bindings:  make(map[string]cty.Value),
		unblocked: closed,
	}
	s.nodes[key] = n
	ctxlog.FromContext(ctx).Debug("Scope created.", "scope", key.String(), "gen", n.handle.Gen)
	return n.handle, nil
}

// Get returns the handle of the live node with key.
func (s *Store) Get(ctx context.Context, key scopeid.Key) (scope.Handle, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, ok := s.nodes[key]
	if !ok {
		return scope.Handle{}, false
	}
	return n.handle, true
}

// Lookup returns the nearest binding for name visible from h.
func (s *Store) Lookup(ctx context.Context, h scope.Handle, name string) (cty.Value, bool, error) {
	cur := h
	for {
		s.mu.Lock()
		n, err := s.resolve(cur)
		if err != nil {
			s.mu.Unlock()
			return cty.NilVal, false, err
		}
		if n.blocked {
			ch := n.unblocked
			s.mu.Unlock()
			if err := wait(ctx, ch); err != nil {
				return cty.NilVal, false, err
			}
			continue
		}
		if v, ok := n.bindings[name]; ok {
			s.mu.Unlock()
			return v, true, nil
		}
		parent := n.parent
		s.mu.Unlock()

		if parent.IsZero() {
			return cty.NilVal, false, nil
		}
		cur = parent
	}
}

// Visible returns every binding visible from h.
func (s *Store) Visible(ctx context.Context, h scope.Handle) (map[string]cty.Value, error) {
	out := make(map[string]cty.Value)
	cur := h
	for {
		s.mu.Lock()
		n, err := s.resolve(cur)
		if err != nil {
			s.mu.Unlock()
			return nil, err
		}
		if n.blocked {
			ch := n.unblocked
			s.mu.Unlock()
			if err := wait(ctx, ch); err != nil {
				return nil, err
			}
			continue
		}
		for k, v := range n.bindings {
			if _, shadowed := out[k]; !shadowed {
				out[k] = v
			}
		}
		parent := n.parent
		s.mu.Unlock()

		if parent.IsZero() {
			return out, nil
		}
		cur = parent
	}
}

// SetMany merges bindings into the local table of h.
func (s *Store) SetMany(ctx context.Context, h scope.Handle, bindings map[string]cty.Value) error {
	for {
		s.mu.Lock()
		n, err := s.resolve(h)
		if err != nil {
			s.mu.Unlock()
			return err
		}

		var blockedAncestor chan struct{}
		for p := s.parentOf(n); p != nil; p = s.parentOf(p) {
			if p.blocked {
				blockedAncestor = p.unblocked
				break
			}
		}
		if blockedAncestor != nil {
			s.mu.Unlock()
			if err := wait(ctx, blockedAncestor); err != nil {
				return err
			}
			continue
		}

		maps.Copy(n.bindings, bindings)
		s.mu.Unlock()
		ctxlog.FromContext(ctx).Debug("Scope bindings set.", "scope", h.Key.String(), "names", slices.Sorted(maps.Keys(bindings)))
		return nil
	}
}

// Bindings returns a copy of the local table of h.
func (s *Store) Bindings(ctx context.Context, h scope.Handle) (map[string]cty.Value, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, err := s.resolve(h)
	if err != nil {
		return nil, err
	}
	return maps.Clone(n.bindings), nil
}

// Block marks h as blocked. Blocking an already blocked node is a no-op.
func (s *Store) Block(ctx context.Context, h scope.Handle) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, err := s.resolve(h)
	if err != nil {
		return err
	}
	if !n.blocked {
		n.blocked = true
		n.unblocked = make(chan struct{})
	}
	return nil
}

// Unblock clears the blocked flag of h and wakes every waiter.
func (s *Store) Unblock(ctx context.Context, h scope.Handle) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, err := s.resolve(h)
	if err != nil {
		return err
	}
	if n.blocked {
		n.blocked = false
		close(n.unblocked)
	}
	return nil
}

// IsBlocked reports whether h is blocked.
func (s *Store) IsBlocked(ctx context.Context, h scope.Handle) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, err := s.resolve(h)
	if err != nil {
		return false, err
	}
	return n.blocked, nil
}

// WaitForUnblock returns once h is not blocked.
func (s *Store) WaitForUnblock(ctx context.Context, h scope.Handle) error {
	for {
		s.mu.Lock()
		n, err := s.resolve(h)
		if err != nil {
			s.mu.Unlock()
			return err
		}
		if !n.blocked {
			s.mu.Unlock()
			return nil
		}
		ch := n.unblocked
		s.mu.Unlock()

		if err := wait(ctx, ch); err != nil {
			return err
		}
	}
}

// AddChild links child under parent.
func (s *Store) AddChild(ctx context.Context, parent, child scope.Handle) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, err := s.resolve(parent)
	if err != nil {
		return err
	}
	c, err := s.resolve(child)
	if err != nil {
		return err
	}
	if !c.parent.IsZero() {
		return fmt.Errorf("%w: %s is linked under %s", scope.ErrHasParent, child.Key, c.parent.Key)
	}
	for anc := p; anc != nil; anc = s.parentOf(anc) {
		if anc == c {
			return fmt.Errorf("%w: %s -> %s", scope.ErrCycle, parent.Key, child.Key)
		}
	}

	c.parent = p.handle
	p.children = append(p.children, c.handle)
	return nil
}

// Parent returns the parent of h.
func (s *Store) Parent(ctx context.Context, h scope.Handle) (scope.Handle, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, err := s.resolve(h)
	if err != nil {
		return scope.Handle{}, false, err
	}
	return n.parent, !n.parent.IsZero(), nil
}

// Children returns the children of h in link order.
func (s *Store) Children(ctx context.Context, h scope.Handle) ([]scope.Handle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, err := s.resolve(h)
	if err != nil {
		return nil, err
	}
	return slices.Clone(n.children), nil
}

// Dispose disposes the subtree rooted at h.
func (s *Store) Dispose(ctx context.Context, h scope.Handle) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, err := s.resolve(h)
	if err != nil {
		return err
	}
	if p := s.parentOf(n); p != nil {
		p.children = slices.DeleteFunc(p.children, func(c scope.Handle) bool {
			return c == n.handle
		})
	}
	count := s.disposeLocked(n)
	ctxlog.FromContext(ctx).Debug("Scope disposed.", "scope", h.Key.String(), "disposed", count)
	return nil
}

// DisposeDescendants disposes every descendant of h and keeps h.
func (s *Store) DisposeDescendants(ctx context.Context, h scope.Handle) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, err := s.resolve(h)
	if err != nil {
		return err
	}
	count := 0
	for _, ch := range n.children {
		if c, err := s.resolve(ch); err == nil {
			count += s.disposeLocked(c)
		}
	}
	n.children = nil
	ctxlog.FromContext(ctx).Debug("Scope descendants disposed.", "scope", h.Key.String(), "disposed", count)
	return nil
}

// disposeLocked removes n and its subtree, children first, and returns the
// number of removed nodes. Callers must hold s.mu.
func (s *Store) disposeLocked(n *node) int {
	count := 0
	for _, ch := range n.children {
		if c, err := s.resolve(ch); err == nil {
			count += s.disposeLocked(c)
		}
	}
	n.children = nil
	if n.blocked {
		n.blocked = false
		close(n.unblocked)
	}
	clear(n.bindings)
	delete(s.nodes, n.handle.Key)
	return count + 1
}

// Len returns the number of live nodes.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.nodes)
}
