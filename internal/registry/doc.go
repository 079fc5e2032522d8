// Package registry holds the named components that shortcut fences refer to.
//
// The registry is created once per application and injected into the
// executor. It is populated by compiled-in modules and by component files
// loaded from a directory, possibly in the background, so evaluators must
// call WaitReady before resolving a shortcut.
package registry
