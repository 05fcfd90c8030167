package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/vk/gradplan/internal/ctxlog"
	"github.com/vk/gradplan/internal/store"
)

// notFoundName is shown for history entries whose course left the catalog.
const notFoundName = "Course not found"

// SaveUserRequest is the body of PUT /api/users/{id}.
type SaveUserRequest struct {
	Program     string `json:"program" validate:"max=200"`
	StudentCode string `json:"student_code" validate:"max=100"`
}

// AddHistoryRequest is the body of POST /api/users/{id}/history. The
// program defaults to the student's program.
type AddHistoryRequest struct {
	CourseCode string `json:"course_code" validate:"notblank,course_code"`
	Program    string `json:"program"`
}

// UpdateHistoryRequest is the body of PUT /api/users/{id}/history/{code}.
// Omitted fields keep their stored value. A new program must list the
// course.
type UpdateHistoryRequest struct {
	CompletedAt *time.Time `json:"completed_at"`
	Program     string     `json:"program" validate:"max=200"`
}

// UpdateHistoryResponse is the updated entry with the student's approved
// credits recomputed for the entry's program.
type UpdateHistoryResponse struct {
	HistoryEntry
	ApprovedCredits float64 `json:"approved_credits"`
}

// UserProfile is the body of GET /api/users/{id}.
type UserProfile struct {
	store.User
	History         []string `json:"history"`
	ApprovedCredits float64  `json:"approved_credits"`
}

// HistoryEntry is one completed course with its catalog details.
type HistoryEntry struct {
	Code        string    `json:"course_code"`
	Program     string    `json:"program"`
	Name        string    `json:"name"`
	Credits     float64   `json:"credits"`
	Level       int       `json:"level"`
	CompletedAt time.Time `json:"completed_at"`
}

// HistoryResponse is the body of GET /api/users/{id}/history.
type HistoryResponse struct {
	UserID       string         `json:"user_id"`
	Courses      []HistoryEntry `json:"courses"`
	TotalCourses int            `json:"total_courses"`
	TotalCredits float64        `json:"total_credits"`
}

func (s *Server) handleGetUser(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user, err := s.store.GetUser(ctx, r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	history, err := s.store.History(ctx, user.ID, "")
	if err != nil {
		writeError(w, r, err)
		return
	}

	profile := UserProfile{User: user, History: make([]string, 0, len(history))}
	for _, c := range history {
		profile.History = append(profile.History, c.Code)
	}
	profile.ApprovedCredits = s.engine.ApprovedCredits(profile.History, user.Program)
	writeJSON(w, r, http.StatusOK, profile)
}

// handleSaveUser creates or replaces a student profile.
func (s *Server) handleSaveUser(w http.ResponseWriter, r *http.Request) {
	var req SaveUserRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	user := store.User{
		ID:          r.PathValue("id"),
		Program:     strings.TrimSpace(req.Program),
		StudentCode: strings.TrimSpace(req.StudentCode),
	}
	if err := s.store.SaveUser(r.Context(), user); err != nil {
		writeError(w, r, err)
		return
	}
	ctxlog.FromContext(r.Context()).Info("User profile saved.", "user_id", user.ID, "program", user.Program)
	writeJSON(w, r, http.StatusOK, user)
}

// handleHistory lists a student's completed courses with their details
// from the stored catalog.
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := r.PathValue("id")
	completions, err := s.store.History(ctx, userID, r.URL.Query().Get("program"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	resp := HistoryResponse{UserID: userID, Courses: make([]HistoryEntry, 0, len(completions))}
	for _, c := range completions {
		entry := HistoryEntry{Code: c.Code, Program: c.Program, CompletedAt: c.CompletedAt, Name: notFoundName}
		rec, err := s.store.GetCourse(ctx, c.Code, c.Program)
		switch {
		case err == nil:
			entry.Name = rec.Name
			entry.Credits = rec.Credits
			entry.Level = rec.Level
			resp.TotalCredits += rec.Credits
		case !errors.Is(err, store.ErrNotFound):
			writeError(w, r, err)
			return
		}
		resp.Courses = append(resp.Courses, entry)
	}
	resp.TotalCourses = len(resp.Courses)
	writeJSON(w, r, http.StatusOK, resp)
}

// handleAddHistory records a completed course. The course must exist in
// the program. Adding the same course twice is not an error.
func (s *Server) handleAddHistory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := r.PathValue("id")

	var req AddHistoryRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	program := strings.TrimSpace(req.Program)
	if program == "" {
		p, err := s.userProgram(r, userID)
		if err != nil {
			writeError(w, r, err)
			return
		}
		program = p
	}

	rec, err := s.store.GetCourse(ctx, req.CourseCode, program)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.store.AddCompleted(ctx, userID, rec.Code, program); err != nil {
		writeError(w, r, err)
		return
	}
	ctxlog.FromContext(r.Context()).Info("Completed course recorded.", "user_id", userID, "course", rec.Code, "program", program)
	writeJSON(w, r, http.StatusOK, map[string]string{
		"message":     "Course added to history",
		"course_code": rec.Code,
		"program":     program,
	})
}

func (s *Server) handleRemoveHistory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := r.PathValue("id")
	code := r.PathValue("code")

	program := strings.TrimSpace(r.URL.Query().Get("program"))
	if program == "" {
		p, err := s.userProgram(r, userID)
		if err != nil {
			writeError(w, r, err)
			return
		}
		program = p
	}

	if _, err := s.store.GetCourse(ctx, code, program); err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.store.RemoveCompleted(ctx, userID, code, program); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]string{"message": "Course removed from history"})
}

// handleUpdateHistory corrects the completion time of a history entry or
// moves it to another program. The entry's current program comes from the
// query or the profile.
func (s *Server) handleUpdateHistory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := r.PathValue("id")
	code := r.PathValue("code")

	var req UpdateHistoryRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	var upd store.CompletionUpdate
	if req.CompletedAt != nil {
		if req.CompletedAt.IsZero() {
			writeError(w, r, fmt.Errorf("%w: completed_at must be a real time", errBadRequest))
			return
		}
		upd.CompletedAt = req.CompletedAt
	}
	if target := strings.TrimSpace(req.Program); target != "" {
		upd.Program = &target
	}
	if upd.CompletedAt == nil && upd.Program == nil {
		writeError(w, r, fmt.Errorf("%w: nothing to update", errBadRequest))
		return
	}

	program := strings.TrimSpace(r.URL.Query().Get("program"))
	if program == "" {
		p, err := s.userProgram(r, userID)
		if err != nil {
			writeError(w, r, err)
			return
		}
		program = p
	}

	target := program
	if upd.Program != nil {
		target = *upd.Program
	}
	rec, err := s.store.GetCourse(ctx, code, target)
	if err != nil {
		writeError(w, r, err)
		return
	}
	c, err := s.store.UpdateCompleted(ctx, userID, code, program, upd)
	if err != nil {
		writeError(w, r, err)
		return
	}
	history, err := s.store.History(ctx, userID, "")
	if err != nil {
		writeError(w, r, err)
		return
	}
	codes := make([]string, 0, len(history))
	for _, h := range history {
		codes = append(codes, h.Code)
	}

	ctxlog.FromContext(ctx).Info("Completed course updated.", "user_id", userID, "course", c.Code, "program", c.Program)
	writeJSON(w, r, http.StatusOK, UpdateHistoryResponse{
		HistoryEntry: HistoryEntry{
			Code:        c.Code,
			Program:     c.Program,
			Name:        rec.Name,
			Credits:     rec.Credits,
			Level:       rec.Level,
			CompletedAt: c.CompletedAt,
		},
		ApprovedCredits: s.engine.ApprovedCredits(codes, c.Program),
	})
}

// userProgram returns the program stored in the student's profile. A
// missing profile is a not-found error, a profile without a program is a
// bad request.
func (s *Server) userProgram(r *http.Request, userID string) (string, error) {
	user, err := s.store.GetUser(r.Context(), userID)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(user.Program) == "" {
		return "", fmt.Errorf("%w: user %s must have a program assigned", errBadRequest, userID)
	}
	return user.Program, nil
}
