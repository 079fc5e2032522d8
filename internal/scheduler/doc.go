// Package scheduler decides when the fragments of a page are evaluated and
// in which scopes.
//
// # Why Scheduler Exists
//
// A document changes many times a second while the user types. The
// scheduler turns that stream of span lists into evaluation passes:
//   - **Debouncing:** requests for one document within Delay coalesce into
//     a single pass
//   - **Skipping:** a pass whose spans and changed ranges show nothing
//     relevant changed reuses the previous outputs
//   - **Ordering:** fragments run one at a time in document order, and each
//     one reads only the exports of the fragments before it
//   - **Isolation:** documents have independent timers, locks and scopes
//
// # How a Pass Works
//
//  1. Compare the new span list with the last completed pass. If it is
//     unchanged, emit a skipped pass and stop.
//  2. Get or create the page root scope and dispose all of its descendants.
//  3. For each span in order, create its write scope as a child of the
//     previous one and evaluate the span before moving to the next. Block
//     spans have their scope blocked while they run, so readers from a
//     superseded pass wait for their exports.
//  4. Publish the outputs.
//
// Spans the cursor is in keep their scope in the chain but are not
// evaluated.
//
// # Generations
//
// Every pass gets a per-document generation. Starting a pass cancels the
// previous one for that document; a pass that finishes after a newer one
// started returns ErrSuperseded and its outputs are dropped. Writes of
// evaluations that outlive their pass fail with scope.ErrStale because the
// next pass recreated their scopes.
package scheduler
