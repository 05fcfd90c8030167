package requirement

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	separatorRegex    = regexp.MustCompile(`(?i)(?:,|;|/|\s+y\s+|\s+o\s+)`)
	courseCreditRegex = regexp.MustCompile(`^([A-Z]{2,}\d{2,})\s*:\s*(\d+)$`)
	creditRegex       = regexp.MustCompile(`(\d+)\s*(?:CRED|CREDITOS?)`)
	courseRegex       = regexp.MustCompile(`^[A-Z]{2,}\d{2,}$`)
)

// Parse converts requirement text into atoms in encounter order. Duplicates
// are preserved. Empty text and the literal "nan" yield no atoms.
func Parse(text string) []Atom {
	text = strings.TrimSpace(text)
	if text == "" || strings.EqualFold(text, "nan") {
		return nil
	}

	var atoms []Atom
	for _, raw := range separatorRegex.Split(text, -1) {
		token := strings.ToUpper(strings.TrimSpace(raw))
		if token == "" {
			continue
		}
		if atom, ok := classify(token); ok {
			atoms = append(atoms, atom)
		}
	}
	return atoms
}

// classify applies the token rules in priority order.
func classify(token string) (Atom, bool) {
	if m := courseCreditRegex.FindStringSubmatch(token); m != nil {
		n, err := strconv.Atoi(m[2])
		if err != nil {
			return Atom{}, false
		}
		return CourseCredit(m[1], n), true
	}
	if m := creditRegex.FindStringSubmatch(token); m != nil {
		n, err := strconv.Atoi(m[1])
		if err != nil {
			return Atom{}, false
		}
		return Credit(n), true
	}
	if courseRegex.MatchString(token) {
		return Course(token), true
	}
	return Atom{}, false
}
