package planner

import (
	"context"
	"sort"
	"strings"

	"github.com/vk/gradplan/internal/ctxlog"
	"github.com/vk/gradplan/internal/curriculum"
	"github.com/vk/gradplan/internal/eligibility"
)

// DefaultMaxCredits is the credit cap used when a request does not set one.
const DefaultMaxCredits = 22.0

// ScoredCourse is a candidate course together with its impact.
type ScoredCourse struct {
	Code    string  `json:"id"`
	Name    string  `json:"name"`
	Credits float64 `json:"credits"`
	Level   int     `json:"level"`
	Program string  `json:"program"`
	Impact  int     `json:"impact"`
}

// Result is the outcome of a planning request.
type Result struct {
	// Candidates are every eligible course, ordered by impact.
	Candidates []ScoredCourse
	// Selection is the greedy subset of Candidates under the credit cap.
	Selection []ScoredCourse
	// CompletedCredits are the credits recognized for the student's history.
	CompletedCredits float64
	// SelectedCredits is the credit total of Selection.
	SelectedCredits float64
}

// Stats counts how the courses of a program were classified.
type Stats struct {
	Considered         int
	ExcludedCompleted  int
	ExcludedIneligible int
}

// Plan ranks the eligible courses of a program and selects a subset whose
// credits do not exceed maxCredits. It never fails; a blank program yields
// an empty result.
func Plan(ctx context.Context, g *curriculum.Graph, completed []string, maxCredits float64, program string) Result {
	logger := ctxlog.FromContext(ctx)
	program = strings.TrimSpace(program)
	if g == nil || program == "" {
		logger.Debug("Plan: No program or graph given, returning an empty plan.")
		return Result{}
	}

	state := eligibility.NewCompletionState(g, completed, program)
	candidates, stats := Candidates(g, state, program)
	logger.Debug("Plan: Candidates collected.",
		"program", program,
		"considered", stats.Considered,
		"excluded_completed", stats.ExcludedCompleted,
		"excluded_ineligible", stats.ExcludedIneligible,
		"candidates", len(candidates),
	)

	selection, selectedCredits := Select(candidates, maxCredits)
	logger.Debug("Plan: Selection complete.", "selected", len(selection), "credits", selectedCredits, "max_credits", maxCredits)

	return Result{
		Candidates:       candidates,
		Selection:        selection,
		CompletedCredits: state.TotalCredits,
		SelectedCredits:  selectedCredits,
	}
}

// Candidates returns the eligible, not yet completed courses of a program,
// scored and sorted by impact in descending order. The sort is stable, so
// courses with equal impact keep their catalog order.
func Candidates(g *curriculum.Graph, state *eligibility.CompletionState, program string) ([]ScoredCourse, Stats) {
	var (
		stats Stats
		out   []ScoredCourse
	)
	for _, c := range g.CoursesInProgram(program) {
		stats.Considered++
		if state.HasCompleted(c.ID.Code, c.ID.Program) {
			stats.ExcludedCompleted++
			continue
		}
		if !eligibility.IsEligible(c, state) {
			stats.ExcludedIneligible++
			continue
		}
		out = append(out, ScoredCourse{
			Code:    c.ID.Code,
			Name:    c.Name,
			Credits: c.Credits,
			Level:   c.Level,
			Program: c.ID.Program,
			Impact:  g.Impact(c.ID),
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Impact > out[j].Impact
	})
	return out, stats
}

// Select walks the candidates once, in order, and keeps each one whose
// credits still fit under maxCredits. It returns the kept courses and their
// credit total.
func Select(candidates []ScoredCourse, maxCredits float64) ([]ScoredCourse, float64) {
	var (
		running  float64
		selected []ScoredCourse
	)
	for _, c := range candidates {
		if running+c.Credits <= maxCredits {
			selected = append(selected, c)
			running += c.Credits
		}
	}
	return selected, running
}
