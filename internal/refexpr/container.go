// Package refexpr collects the names an HCL fragment reads from scope and
// the functions it calls.
package refexpr

import (
	"sync"

	"github.com/hashicorp/hcl/v2"
)

// Container gathers HCL expressions and caches what they reference.
type Container struct {
	once sync.Once

	mu          sync.RWMutex
	expressions []hcl.Expression

	references []hcl.Traversal
	functions  []string
	roots      []string
}

// NewContainer creates a container holding exprs.
func NewContainer(exprs ...hcl.Expression) *Container {
	c := &Container{}
	c.Add(exprs...)
	return c
}

// Add appends expressions, ignoring nils. Add must not race with the getters.
func (c *Container) Add(exprs ...hcl.Expression) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.once = sync.Once{}
	for _, expr := range exprs {
		if expr != nil {
			c.expressions = append(c.expressions, expr)
		}
	}
}

func (c *Container) analyze() {
	c.once.Do(func() {
		c.mu.RLock()
		refs, funcs := Extract(c.expressions...)
		c.mu.RUnlock()

		c.mu.Lock()
		c.references = refs
		c.functions = funcs
		c.roots = RootNames(refs)
		c.mu.Unlock()
	})
}

// References returns the unique variable traversals, sorted.
func (c *Container) References() []hcl.Traversal {
	c.analyze()
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.references
}

// Functions returns the unique called function names, sorted.
func (c *Container) Functions() []string {
	c.analyze()
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.functions
}

// RootNames returns the unique root names of all references, sorted. These
// are the names a fragment looks up in its read scope.
func (c *Container) RootNames() []string {
	c.analyze()
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.roots
}
