// Package inmemoryscope provides an ephemeral, thread-safe, in-memory
// implementation of the scope.Graph interface.
//
// # Characteristics
//
//   - **Arena:** Nodes live in one map keyed by scopeid.Key. Parent and child
//     links are stored as handles, never as pointers.
//   - **Generations:** Every created node gets the next value of a
//     store-wide counter, so handles to disposed nodes are detected.
//   - **Blocking:** Each node carries a channel that is closed whenever the
//     node is not blocked. Waiters never hold the store lock.
//
// # Concurrency Model
//
// A single sync.Mutex guards the arena. Operations that must wait (Lookup,
// Visible, SetMany, WaitForUnblock) copy the channel they wait on, release
// the lock, wait, and then re-validate their handle from scratch.
package inmemoryscope
