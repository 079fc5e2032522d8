// internal/scopeid/key.go
package scopeid

import "strconv"

// String serializes the Key into its canonical string representation.
func (k Key) String() string {
	if k.IsRoot() {
		return k.Page
	}
	return k.Page + "#" + strconv.Itoa(k.Index)
}

// Less orders keys by page first, then by index with the root first.
func (k Key) Less(other Key) bool {
	if k.Page != other.Page {
		return k.Page < other.Page
	}
	return k.Index < other.Index
}
