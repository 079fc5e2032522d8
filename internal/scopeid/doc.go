// internal/scopeid/doc.go

/*
Package scopeid provides a structured, type-safe representation for scope
identifiers, based on the canonical format `page` or `page#index`.

A key without an index names the page root scope. A key with an index names
the write scope of the fragment at that ordinal position on the page. The
`#` separator is used because page identities are usually file paths and
may contain `/`.

This package centralizes all formatting and parsing logic for scope keys.
*/
package scopeid
