// Package engine connects the locator, scheduler, reconciler and renderer
// into the two modes a document is shown in.
//
// In live mode the host editor sends a snapshot on every change. Update
// locates the spans and schedules a debounced pass; when the pass completes
// its decorations are reconciled against the mounted widgets and published
// to the Sink.
//
// In preview mode RenderMarkdown renders a whole markdown document to HTML,
// hands every top-level block to the preview processor and replaces the
// fragments in the HTML tree with their outputs.
package engine
