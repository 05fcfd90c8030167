package api

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/vk/gradplan/internal/engine"
)

func (s *Server) handlePlan(w http.ResponseWriter, r *http.Request) {
	var req engine.PlanRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	resp, err := s.engine.Plan(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, resp)
}

// handleUserPlan plans for a stored student. The history spans all of the
// student's programs; the program comes from the query or the profile.
func (s *Server) handleUserPlan(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := r.PathValue("id")
	query := r.URL.Query()

	req := engine.PlanRequest{Program: strings.TrimSpace(query.Get("program"))}
	if raw := query.Get("max_credits"); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			writeError(w, r, fmt.Errorf("%w: max_credits must be a number", errBadRequest))
			return
		}
		req.MaxCredits = &v
	}

	if req.Program == "" {
		program, err := s.userProgram(r, userID)
		if err != nil {
			writeError(w, r, err)
			return
		}
		req.Program = program
	}

	history, err := s.store.History(ctx, userID, "")
	if err != nil {
		writeError(w, r, err)
		return
	}
	for _, c := range history {
		req.History = append(req.History, c.Code)
	}

	resp, err := s.engine.Plan(ctx, req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, resp)
}
