// Package scope defines the interface for the hierarchical, blockable
// namespaces through which fragments on a page exchange exported values.
//
// # Why Scope Graph Exists
//
// Fragments on a page form an ordered pipeline. Each fragment reads from the
// chain of scopes written by the fragments before it and writes its own
// exports into a fresh child scope. The scope graph is the only shared
// mutable structure of the engine; the locator and scheduler refer to nodes
// only through keyed handles.
//
// # Lifecycle and Usage
//
//  1. **Created**: the page root scope on the first pass over a page
//  2. **Rebuilt**: every recompute pass disposes the descendants of the page
//     root and creates one child per fragment, reusing the same keys
//  3. **Blocked**: a statement fragment blocks its write scope while it runs
//  4. **Disposed**: the page root is disposed when the document is closed
//
// # Stale Handles
//
// Every node gets a new generation number when it is created. A Handle
// captured before a rebuild keeps the old generation, so every operation
// through it fails with ErrStale once the key has been disposed or
// recreated. Evaluations that outlive their pass therefore cannot write into
// the scopes of a newer pass.
package scope

import (
	"context"
	"errors"
	"strconv"

	"github.com/vk/livespan/internal/scopeid"
	"github.com/zclconf/go-cty/cty"
)

var (
	// ErrExists is returned by Create when a live node already has the key.
	ErrExists = errors.New("scope already exists")
	// ErrNotFound is returned when no live node has the requested key.
	ErrNotFound = errors.New("scope not found")
	// ErrStale is returned when a handle refers to a disposed generation.
	ErrStale = errors.New("stale scope handle")
	// ErrHasParent is returned by AddChild when the child is already linked.
	ErrHasParent = errors.New("scope already has a parent")
	// ErrCycle is returned by AddChild when linking would create a cycle.
	ErrCycle = errors.New("scope link would create a cycle")
)

// Handle is a keyed reference to one generation of a scope node.
type Handle struct {
	Key scopeid.Key
	Gen uint64
}

// IsZero reports whether the handle was never assigned.
func (h Handle) IsZero() bool {
	return h.Gen == 0
}

// String returns the key with its generation, e.g. "p.md#2@7", for logs.
func (h Handle) String() string {
	return h.Key.String() + "@" + strconv.FormatUint(h.Gen, 10)
}

// Graph is the interface for the scope registry.
//
// Implementations MUST be safe for concurrent use: evaluations of different
// pages run concurrently, and an evaluation left over from a superseded pass
// may still wait on scopes through Lookup, SetMany and WaitForUnblock.
type Graph interface {
	// Create allocates a new, unlinked node. It fails with ErrExists when a
	// live node already has the key; a rebuild must dispose the old one first.
	Create(ctx context.Context, key scopeid.Key) (Handle, error)

	// Get returns the handle of the live node with the key.
	Get(ctx context.Context, key scopeid.Key) (Handle, bool)

	// Lookup walks from h towards the root and returns the nearest binding
	// for name. Each node on the path is read only after it is unblocked.
	Lookup(ctx context.Context, h Handle, name string) (cty.Value, bool, error)

	// SetMany merges bindings into the local table of h, last write wins.
	// It waits while any strict ancestor of h is blocked.
	SetMany(ctx context.Context, h Handle, bindings map[string]cty.Value) error

	// Bindings returns a copy of the local table of h.
	Bindings(ctx context.Context, h Handle) (map[string]cty.Value, error)

	// Visible returns every binding visible from h, nearest definition wins.
	// Like Lookup, it waits for blocked nodes on the path.
	Visible(ctx context.Context, h Handle) (map[string]cty.Value, error)

	// Block marks h as mid-execution.
	Block(ctx context.Context, h Handle) error

	// Unblock clears the blocked flag and wakes every waiter.
	Unblock(ctx context.Context, h Handle) error

	// IsBlocked reports the blocked flag of h.
	IsBlocked(ctx context.Context, h Handle) (bool, error)

	// WaitForUnblock returns once h is not blocked. It returns immediately
	// when h is not blocked, and ErrStale if h is disposed while waiting.
	WaitForUnblock(ctx context.Context, h Handle) error

	// AddChild links child under parent. A node has at most one parent and
	// the parent is never reassigned.
	AddChild(ctx context.Context, parent, child Handle) error

	// Parent returns the parent of h, if linked.
	Parent(ctx context.Context, h Handle) (Handle, bool, error)

	// Children returns the children of h in link order.
	Children(ctx context.Context, h Handle) ([]Handle, error)

	// Dispose recursively disposes the children of h, then h itself.
	Dispose(ctx context.Context, h Handle) error

	// DisposeDescendants disposes every descendant of h and keeps h.
	DisposeDescendants(ctx context.Context, h Handle) error

	// Len returns the number of live nodes.
	Len() int
}
