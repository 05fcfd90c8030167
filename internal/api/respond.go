package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/vk/gradplan/internal/ctxlog"
	"github.com/vk/gradplan/internal/engine"
	"github.com/vk/gradplan/internal/store"
	"github.com/vk/gradplan/internal/validation"
)

// maxBodyBytes bounds request bodies.
const maxBodyBytes = 1 << 20

var errBadRequest = errors.New("bad request")

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error     string            `json:"error"`
	Details   validation.Errors `json:"details,omitempty"`
	RequestID string            `json:"request_id,omitempty"`
}

func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		ctxlog.FromContext(r.Context()).Warn("Failed to write response body.", "error", err)
	}
}

// writeError maps an error onto a status code and a JSON body.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	resp := ErrorResponse{Error: err.Error(), RequestID: w.Header().Get(RequestIDHeader)}

	var verrs validation.Errors
	switch {
	case errors.As(err, &verrs):
		status = http.StatusBadRequest
		resp.Error = "validation failed"
		resp.Details = verrs
	case errors.Is(err, errBadRequest), errors.Is(err, store.ErrInvalidInput):
		status = http.StatusBadRequest
	case errors.Is(err, store.ErrNotFound), errors.Is(err, engine.ErrNoSource):
		status = http.StatusNotFound
	case errors.Is(err, store.ErrConflict):
		status = http.StatusConflict
	}

	logger := ctxlog.FromContext(r.Context())
	if status >= http.StatusInternalServerError {
		logger.Error("Request failed.", "path", r.URL.Path, "error", err)
		resp.Error = "internal server error"
	} else {
		logger.Debug("Request rejected.", "path", r.URL.Path, "status", status, "error", err)
	}
	writeJSON(w, r, status, resp)
}

// decodeJSON reads a single JSON object from the request body and
// validates it.
func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("%w: malformed JSON body: %v", errBadRequest, err)
	}
	if dec.More() {
		return fmt.Errorf("%w: body must hold a single JSON object", errBadRequest)
	}
	return validation.Struct(dst)
}
