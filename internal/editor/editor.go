// Package editor holds the document state the host editor hands to the
// engine on every change.
package editor

import "github.com/vk/livespan/internal/span"

// Snapshot is the state of one document after a change.
type Snapshot struct {
	DocID   string       `json:"doc"`
	Version int          `json:"version"`
	Source  string       `json:"source"`
	Cursor  int          `json:"cursor"`
	Changes []span.Range `json:"changes,omitempty"`
}

// HasCursor reports whether the snapshot carries a cursor position. Hosts
// send -1, or omit the cursor, when the document has no focus.
func (s Snapshot) HasCursor() bool {
	return s.Cursor >= 0
}
