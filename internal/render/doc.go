// Package render turns fragment outputs into HTML and keeps the table of
// mounted outputs.
//
// Table is the default fragment.Renderer. Each mount is addressed by the
// target key, which is stable for a span position across passes, and is
// removed only by an explicit Unmount. In preview mode the markup also
// replaces the children of the target element in the document tree.
package render
