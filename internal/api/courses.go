package api

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/vk/gradplan/internal/curriculum"
	"github.com/vk/gradplan/internal/eligibility"
	"github.com/vk/gradplan/internal/engine"
	"github.com/vk/gradplan/internal/store"
)

// CourseOption is a course formatted for selection lists.
type CourseOption struct {
	Value   string  `json:"value"`
	Label   string  `json:"label"`
	Program string  `json:"program"`
	Credits float64 `json:"credits"`
	Level   int     `json:"level"`
}

// CourseList is the body of GET /api/courses.
type CourseList struct {
	Total   int            `json:"total"`
	Program *string        `json:"program"`
	Courses []CourseOption `json:"courses"`
}

// CourseDetail is the body of GET /api/courses/{code}.
type CourseDetail struct {
	Code          string   `json:"code"`
	Name          string   `json:"name"`
	Credits       float64  `json:"credits"`
	Level         int      `json:"level"`
	Program       string   `json:"program"`
	Requirements  string   `json:"requirements"`
	Prerequisites []string `json:"prerequisites"`
	Unlocks       []string `json:"unlocks"`
	Impact        int      `json:"impact"`
	// Eligible and Unmet are only set when the request lists completed courses.
	Eligible *bool               `json:"eligible,omitempty"`
	Unmet    []eligibility.Unmet `json:"unmet,omitempty"`
}

func (s *Server) handleListCourses(w http.ResponseWriter, r *http.Request) {
	program := strings.TrimSpace(r.URL.Query().Get("program"))
	records, err := s.store.ListCourses(r.Context(), program)
	if err != nil {
		writeError(w, r, err)
		return
	}

	list := CourseList{Courses: make([]CourseOption, 0, len(records))}
	if program != "" {
		list.Program = &program
	}
	for _, rec := range records {
		list.Courses = append(list.Courses, CourseOption{
			Value:   rec.Code,
			Label:   fmt.Sprintf("%s - %s", rec.Code, rec.Name),
			Program: rec.Program,
			Credits: rec.Credits,
			Level:   rec.Level,
		})
	}
	list.Total = len(list.Courses)
	writeJSON(w, r, http.StatusOK, list)
}

// handleGetCourse describes one course of the published graph. Without a
// program the first course with the code is used. A completed query
// parameter, a comma separated list of codes, adds an eligibility check.
func (s *Server) handleGetCourse(w http.ResponseWriter, r *http.Request) {
	g := s.engine.Graph()
	code := r.PathValue("code")
	query := r.URL.Query()
	program := strings.TrimSpace(query.Get("program"))

	var (
		c  *curriculum.Course
		ok bool
	)
	if program != "" {
		c, ok = g.LookupCode(code, program)
	} else {
		c, ok = g.FindByCode(code)
	}
	if !ok {
		writeError(w, r, fmt.Errorf("course %s: %w", strings.ToUpper(code), store.ErrNotFound))
		return
	}

	detail := CourseDetail{
		Code:          c.Code(),
		Name:          c.Name,
		Credits:       c.Credits,
		Level:         c.Level,
		Program:       c.Program(),
		Requirements:  c.RawRequirements,
		Prerequisites: courseCodes(g.Prerequisites(c.ID)),
		Unlocks:       courseCodes(g.Unlocks(c.ID)),
		Impact:        g.Impact(c.ID),
	}
	if query.Has("completed") {
		state := eligibility.NewCompletionState(g, splitCodes(query.Get("completed")), c.Program())
		eligible := eligibility.IsEligible(c, state)
		detail.Eligible = &eligible
		detail.Unmet = eligibility.Explain(c, state)
	}
	writeJSON(w, r, http.StatusOK, detail)
}

func (s *Server) handlePrograms(w http.ResponseWriter, r *http.Request) {
	programs, err := s.store.Programs(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]any{
		"total":    len(programs),
		"programs": programs,
	})
}

// handleReload re-imports the configured catalog source, replacing the
// stored catalog, and republishes the graph.
func (s *Server) handleReload(w http.ResponseWriter, r *http.Request) {
	if s.source == nil {
		writeError(w, r, engine.ErrNoSource)
		return
	}
	if _, err := s.engine.Import(r.Context(), s.source, s.store, true); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]any{
		"message":       "Courses reloaded",
		"total_courses": s.engine.Graph().Len(),
	})
}

func courseCodes(courses []*curriculum.Course) []string {
	out := make([]string, 0, len(courses))
	for _, c := range courses {
		out = append(out, c.Code())
	}
	return out
}

func splitCodes(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
