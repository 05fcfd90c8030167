// Package cli parses command-line arguments and GRADPLAN_* environment
// defaults into an app.Config, and defines the exit codes of usage errors.
package cli
