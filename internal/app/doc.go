// Package app wires the planner together: it opens the store, picks the
// catalog source, loads the curriculum graph and runs the requested modes
// (export, one-shot plan, remote plan and the HTTP server). It is kept free
// of flag parsing so tests and other entrypoints can drive it directly.
package app
