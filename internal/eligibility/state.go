package eligibility

import (
	"strings"

	"github.com/vk/gradplan/internal/courseid"
	"github.com/vk/gradplan/internal/curriculum"
)

// CompletionState is the set of courses a student has completed together
// with the credits they earned, scoped to one planning request.
type CompletionState struct {
	// Completed maps the lookup key of each completed course to the credits
	// it contributed. Codes absent from the catalog contribute zero.
	Completed map[courseid.ID]float64
	// TotalCredits is the sum of the credits of the completed courses.
	TotalCredits float64
}

// NewCompletionState resolves completed course codes against the graph.
//
// With a program, each code is looked up as (code, program). Without one,
// the first course carrying the code in any program is used. A code that
// cannot be resolved is still recorded as completed, with zero credits.
// Repeating a code does not count its credits twice.
func NewCompletionState(g *curriculum.Graph, codes []string, program string) *CompletionState {
	state := &CompletionState{Completed: make(map[courseid.ID]float64, len(codes))}
	program = strings.TrimSpace(program)

	for _, raw := range codes {
		code := courseid.NormalizeCode(raw)
		if code == "" {
			continue
		}

		var (
			course *curriculum.Course
			found  bool
		)
		if g != nil {
			if program != "" {
				course, found = g.LookupCode(code, program)
			} else {
				course, found = g.FindByCode(code)
			}
		}

		id := courseid.New(code, program)
		credits := 0.0
		if found {
			id = course.ID
			credits = course.Credits
		}

		key := id.Key()
		if _, dup := state.Completed[key]; dup {
			continue
		}
		state.Completed[key] = credits
		state.TotalCredits += credits
	}
	return state
}

// HasCompleted reports whether the course (code, program) is completed.
func (s *CompletionState) HasCompleted(code, program string) bool {
	if s == nil {
		return false
	}
	_, ok := s.Completed[courseid.New(code, program).Key()]
	return ok
}

// Len returns the number of distinct completed courses.
func (s *CompletionState) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Completed)
}
