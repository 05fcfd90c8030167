// Package engine owns the published curriculum graph and serves planning
// requests against it.
//
// A reload reads every record from a catalog source, builds a new graph
// and swaps it in atomically. Requests that started before the swap finish
// on the graph they began with. Readers never take a lock.
package engine
