package realtime

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/vk/gradplan/internal/ctxlog"
	"github.com/vk/gradplan/internal/engine"
	"github.com/zishang520/socket.io/v2/socket"
)

// Event names of the plan exchange.
const (
	EventPlan       = "plan"
	EventPlanResult = "plan:result"
	EventPlanError  = "plan:error"
)

// DefaultPath is where the socket.io endpoint is mounted.
const DefaultPath = "/socket.io/"

var errEmptyPayload = errors.New("plan event carries no payload")

// Server answers plan events using an engine.
type Server struct {
	engine *engine.Engine
	io     *socket.Server
	logger *slog.Logger
}

// NewServer creates a socket.io server bound to eng. The logger found in
// ctx is used for every connection.
func NewServer(ctx context.Context, eng *engine.Engine) *Server {
	s := &Server{
		engine: eng,
		io:     socket.NewServer(nil, nil),
		logger: ctxlog.FromContext(ctx).With("component", "realtime"),
	}
	s.io.On("connection", func(clients ...any) {
		client, ok := connectedSocket(clients)
		if !ok {
			s.logger.Warn("Ignoring connection event without a socket.", "args", len(clients))
			return
		}
		s.attach(client)
	})
	return s
}

// connectedSocket extracts the socket from the arguments of a connection
// event.
func connectedSocket(clients []any) (*socket.Socket, bool) {
	if len(clients) == 0 {
		return nil, false
	}
	client, ok := clients[0].(*socket.Socket)
	return client, ok && client != nil
}

// Handler returns the HTTP handler of the socket.io endpoint.
func (s *Server) Handler() http.Handler {
	return s.io.ServeHandler(nil)
}

// Close disconnects every client.
func (s *Server) Close() {
	s.io.Close(nil)
}

func (s *Server) attach(client *socket.Socket) {
	logger := s.logger.With("sid", client.Id())
	logger.Debug("Realtime client connected.")

	client.On(EventPlan, func(args ...any) {
		ctx := ctxlog.WithLogger(context.Background(), logger)
		resp, err := s.plan(ctx, args)
		if err != nil {
			logger.Debug("Realtime plan request rejected.", "error", err)
			client.Emit(EventPlanError, map[string]any{"error": err.Error()})
			return
		}

		payload, err := toPayload(resp)
		if err != nil {
			logger.Error("Failed to encode plan response.", "error", err)
			client.Emit(EventPlanError, map[string]any{"error": "internal server error"})
			return
		}
		client.Emit(EventPlanResult, payload)
	})

	client.On("disconnect", func(reason ...any) {
		logger.Debug("Realtime client disconnected.", "reason", reason)
	})
}

func (s *Server) plan(ctx context.Context, args []any) (engine.PlanResponse, error) {
	if len(args) == 0 {
		return engine.PlanResponse{}, errEmptyPayload
	}
	req, err := decodeRequest(args[0])
	if err != nil {
		return engine.PlanResponse{}, err
	}
	return s.engine.Plan(ctx, req)
}

// decodeRequest turns an event payload into a plan request with the same
// strictness as the HTTP API.
func decodeRequest(payload any) (engine.PlanRequest, error) {
	var req engine.PlanRequest
	if payload == nil {
		return req, errEmptyPayload
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return req, fmt.Errorf("failed to encode plan payload: %w", err)
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		return req, fmt.Errorf("malformed plan payload: %w", err)
	}
	return req, nil
}

// toPayload converts v into plain maps and slices, the form the socket.io
// encoder sends as JSON.
func toPayload(v any) (map[string]any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out map[string]any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return out, nil
}
