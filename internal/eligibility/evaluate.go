package eligibility

import (
	"github.com/vk/gradplan/internal/courseid"
	"github.com/vk/gradplan/internal/curriculum"
	"github.com/vk/gradplan/internal/requirement"
)

// Unmet describes one requirement atom a student does not satisfy.
type Unmet struct {
	Atom requirement.Atom `json:"-"`
	// Requirement is the atom in catalog notation.
	Requirement string `json:"requirement"`
	// Missing is a short reason for display.
	Missing string `json:"missing"`
}

// IsEligible reports whether every requirement of the course holds.
func IsEligible(c *curriculum.Course, state *CompletionState) bool {
	if c == nil {
		return false
	}
	for _, atom := range c.Requirements {
		if !holds(atom, c.ID.Program, state) {
			return false
		}
	}
	return true
}

// Evaluate looks the course up and checks it. It fails closed: an unknown
// course is never eligible.
func Evaluate(g *curriculum.Graph, id courseid.ID, state *CompletionState) bool {
	if g == nil {
		return false
	}
	c, ok := g.Lookup(id)
	if !ok {
		return false
	}
	return IsEligible(c, state)
}

// Explain lists the requirements of the course that do not hold, in the
// order they were written. An empty result means the course is eligible.
func Explain(c *curriculum.Course, state *CompletionState) []Unmet {
	if c == nil {
		return nil
	}
	var out []Unmet
	for _, atom := range c.Requirements {
		if holds(atom, c.ID.Program, state) {
			continue
		}
		u := Unmet{Atom: atom, Requirement: atom.String()}
		switch atom.Kind {
		case requirement.KindCredit:
			u.Missing = "accumulated credits below threshold"
		default:
			u.Missing = "course not completed"
		}
		out = append(out, u)
	}
	return out
}

func holds(atom requirement.Atom, program string, state *CompletionState) bool {
	switch atom.Kind {
	case requirement.KindCourse, requirement.KindCourseCredit:
		return state.HasCompleted(atom.Code, program)
	case requirement.KindCredit:
		return state != nil && state.TotalCredits >= float64(atom.MinCredits)
	default:
		return false
	}
}
