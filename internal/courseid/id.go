// internal/courseid/id.go
package courseid

import (
	"strings"
)

// DefaultProgram is assigned to courses whose program is blank or missing.
const DefaultProgram = "General"

// separator splits the code from the program in the canonical string form.
const separator = "|"

// ID is the composite identity of a course node.
type ID struct {
	Code    string
	Program string
}

// New builds an ID with the code normalized to upper case and both parts
// trimmed. The program keeps its original case.
func New(code, program string) ID {
	return ID{
		Code:    NormalizeCode(code),
		Program: strings.TrimSpace(program),
	}
}

// NormalizeCode trims and upper-cases a course code.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// NormalizeProgram returns the comparison form of a program name.
func NormalizeProgram(program string) string {
	return strings.ToLower(strings.TrimSpace(program))
}

// SameProgram reports whether two program names refer to the same program.
func SameProgram(a, b string) bool {
	return NormalizeProgram(a) == NormalizeProgram(b)
}

// String serializes the ID into its canonical `CODE|Program` form.
func (id ID) String() string {
	if id.Program == "" {
		return id.Code
	}
	return id.Code + separator + id.Program
}

// Key returns the lookup form of the ID, suitable as a map key when two
// spellings of the same program must collide.
func (id ID) Key() ID {
	return ID{Code: NormalizeCode(id.Code), Program: NormalizeProgram(id.Program)}
}

// Equal reports whether two IDs name the same course.
func (id ID) Equal(other ID) bool {
	return id.Key() == other.Key()
}

// IsZero reports whether the ID carries no code.
func (id ID) IsZero() bool {
	return id.Code == ""
}
