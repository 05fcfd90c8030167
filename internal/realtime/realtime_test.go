package realtime

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/gradplan/internal/catalog"
	"github.com/vk/gradplan/internal/curriculum"
	"github.com/vk/gradplan/internal/engine"
	"github.com/vk/gradplan/internal/testutil"
)

func newTestEndpoint(t *testing.T) string {
	t.Helper()
	ctx, _ := testutil.LoggerContext(t)

	eng := engine.New(nil)
	_, err := eng.Reload(ctx, catalog.Static([]curriculum.Record{
		{Code: "CS101", Name: "Intro", Credits: 10, Level: 1, Program: "Software"},
		{Code: "CS102", Name: "Data Structures", Credits: 10, Level: 2, Program: "Software", Requirements: "CS101"},
	}))
	require.NoError(t, err)

	srv := NewServer(ctx, eng)
	mux := http.NewServeMux()
	mux.Handle(DefaultPath, srv.Handler())
	ts := httptest.NewServer(mux)
	t.Cleanup(func() {
		srv.Close()
		ts.Close()
	})
	return ts.URL
}

func TestRequestPlan(t *testing.T) {
	endpoint := newTestEndpoint(t)

	resp, err := RequestPlan(context.Background(), endpoint, engine.PlanRequest{
		History: []string{"CS101"},
		Program: "Software",
	}, 10*time.Second)
	require.NoError(t, err)

	assert.Equal(t, 10.0, resp.ApprovedCredits)
	require.Len(t, resp.Available, 1)
	assert.Equal(t, "CS102", resp.Available[0].Code)
	assert.Equal(t, 10.0, resp.RecommendedCredits)
}

func TestRequestPlan_Rejected(t *testing.T) {
	endpoint := newTestEndpoint(t)

	_, err := RequestPlan(context.Background(), endpoint+DefaultPath, engine.PlanRequest{}, 10*time.Second)
	require.ErrorIs(t, err, ErrPlanRejected)
	assert.Contains(t, err.Error(), "program")
}

func TestRequestPlan_BadURL(t *testing.T) {
	testCases := []string{"::not a url", "localhost:9999"}
	for _, raw := range testCases {
		t.Run(raw, func(t *testing.T) {
			_, err := RequestPlan(context.Background(), raw, engine.PlanRequest{Program: "P"}, time.Second)
			assert.Error(t, err)
		})
	}
}

func TestDecodeRequest(t *testing.T) {
	testCases := []struct {
		name        string
		payload     any
		expected    engine.PlanRequest
		errContains string
	}{
		{
			name:     "map payload",
			payload:  map[string]any{"history": []any{"CS101"}, "program": "Software", "max_credits": 12.0},
			expected: engine.PlanRequest{History: []string{"CS101"}, Program: "Software", MaxCredits: engine.Credits(12)},
		},
		{
			name:     "explicit zero cap",
			payload:  map[string]any{"program": "Software", "max_credits": 0},
			expected: engine.PlanRequest{Program: "Software", MaxCredits: engine.Credits(0)},
		},
		{
			name:     "absent cap",
			payload:  map[string]any{"program": "Software"},
			expected: engine.PlanRequest{Program: "Software"},
		},
		{
			name:        "unknown field",
			payload:     map[string]any{"program": "Software", "career": "x"},
			errContains: "malformed plan payload",
		},
		{
			name:        "wrong type",
			payload:     "Software",
			errContains: "malformed plan payload",
		},
		{
			name:        "nil payload",
			payload:     nil,
			errContains: "no payload",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := decodeRequest(tc.payload)
			if tc.errContains != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tc.errContains)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.expected, got)
		})
	}
}

func TestConnectedSocket_RejectsMissingArguments(t *testing.T) {
	testCases := []struct {
		name    string
		clients []any
	}{
		{"no arguments", nil},
		{"empty arguments", []any{}},
		{"nil argument", []any{nil}},
		{"not a socket", []any{"sid"}},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.NotPanics(t, func() {
				client, ok := connectedSocket(tc.clients)
				assert.False(t, ok)
				assert.Nil(t, client)
			})
		})
	}
}

func TestConnectError(t *testing.T) {
	cause := errors.New("handshake refused")
	testCases := []struct {
		name     string
		errs     []any
		expected string
	}{
		{"no arguments", nil, "socket.io connection failed"},
		{"nil argument", []any{nil}, "socket.io connection failed"},
		{"error argument", []any{cause}, "socket.io connection failed: handshake refused"},
		{"string argument", []any{"timeout"}, "socket.io connection failed: timeout"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			var err error
			require.NotPanics(t, func() { err = connectError(tc.errs) })
			require.Error(t, err)
			assert.Equal(t, tc.expected, err.Error())
		})
	}

	assert.ErrorIs(t, connectError([]any{cause}), cause)
}
