// Package dag is the topology layer of the curriculum graph. It stores
// directed prerequisite edges between string-identified nodes and answers
// reachability questions about them.
//
// An edge from A to B means that B depends on A: completing A is one of the
// conditions for taking B. The package knows nothing about courses, credits
// or programs. Those live in the curriculum package, which owns a Graph and
// keys it by canonical course IDs.
//
// Real catalogs are not guaranteed to be acyclic. The graph accepts cycles
// and every traversal guards against them with a visited set; DetectCycles
// exists so callers can report them.
package dag
