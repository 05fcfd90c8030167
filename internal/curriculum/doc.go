// Package curriculum materializes a course catalog into an immutable,
// queryable prerequisite graph.
//
// Courses are identified by (code, program). Building happens in two passes:
// the first creates one node per record, the second resolves every course
// reference in a node's requirements against the same program and adds a
// prerequisite edge for it. Once Build returns, the Graph is never mutated;
// a catalog reload builds a fresh Graph and the caller swaps it in.
package curriculum
