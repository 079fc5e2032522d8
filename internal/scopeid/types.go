// internal/scopeid/types.go
package scopeid

// RootIndex marks a key that names a page root scope.
const RootIndex = -1

// Key is the structured representation of a unique scope identifier.
type Key struct {
	Page  string
	Index int // RootIndex for the page root.
}

// Root returns the key of the page root scope.
func Root(page string) Key {
	return Key{Page: page, Index: RootIndex}
}

// Fragment returns the key of the write scope owned by the fragment at index.
func Fragment(page string, index int) Key {
	return Key{Page: page, Index: index}
}

// IsRoot reports whether the key names a page root scope.
func (k Key) IsRoot() bool {
	return k.Index == RootIndex
}

// PageRoot returns the root key of the page this key belongs to.
func (k Key) PageRoot() Key {
	return Root(k.Page)
}
