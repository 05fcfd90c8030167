// Package inmemorystore provides an ephemeral, thread-safe, in-memory
// implementation of the store.Store interface.
//
// # Purpose
//
// This is the default backend when no database is configured, and the
// store used by API and engine tests. Nothing survives a restart.
//
// # Concurrency Model
//
// A single sync.RWMutex guards all maps. The workload is read-heavy: the
// catalog is written on import and reload, then read on every request.
// History writes are small and infrequent.
//
// # Ordering
//
// Courses and completions live in insertion-ordered maps
// (github.com/wk8/go-ordered-map). Overwriting a key keeps its original
// position, which matches the SQL backends that order by row id.
package inmemorystore
