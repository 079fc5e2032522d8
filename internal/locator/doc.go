// Package locator finds executable fragments in markdown source.
//
// Inline code whose text starts with a recognized prefix becomes an inline
// span. A fenced block whose info string is a recognized tag, optionally
// followed by `:Name`, becomes a block span, but only once its closing fence
// is present; an unterminated fence yields nothing. Spans under the cursor
// are marked as editing and keep their index.
package locator
