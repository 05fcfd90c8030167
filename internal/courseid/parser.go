// internal/courseid/parser.go
package courseid

import (
	"fmt"
	"regexp"
	"strings"
)

// codeRegex matches the characters accepted in a course code.
var codeRegex = regexp.MustCompile(`^[A-Z0-9_.-]+$`)

// Parse creates an ID from its canonical string representation. A bare code
// without a program is accepted and yields an ID with an empty program.
func Parse(rawID string) (ID, error) {
	if strings.TrimSpace(rawID) == "" {
		return ID{}, fmt.Errorf("identifier cannot be empty")
	}

	code, program, _ := strings.Cut(rawID, separator)
	id := New(code, program)
	if id.Code == "" {
		return ID{}, fmt.Errorf("identifier %q has an empty course code", rawID)
	}
	if !codeRegex.MatchString(id.Code) {
		return ID{}, fmt.Errorf("invalid course code format: %q", code)
	}
	if strings.Contains(program, separator) {
		return ID{}, fmt.Errorf("identifier %q contains more than one separator", rawID)
	}
	return id, nil
}

// MustParse is like Parse but panics on error. It is intended for tests and
// static tables.
func MustParse(rawID string) ID {
	id, err := Parse(rawID)
	if err != nil {
		panic(err)
	}
	return id
}
