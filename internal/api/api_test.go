package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/gradplan/internal/catalog"
	"github.com/vk/gradplan/internal/curriculum"
	"github.com/vk/gradplan/internal/engine"
	"github.com/vk/gradplan/internal/inmemorystore"
	"github.com/vk/gradplan/internal/metrics"
	"github.com/vk/gradplan/internal/store"
)

func catalogRecords() []curriculum.Record {
	return []curriculum.Record{
		{Code: "CS101", Name: "Intro", Credits: 10, Level: 1, Program: "Software"},
		{Code: "CS102", Name: "Data Structures", Credits: 10, Level: 2, Program: "Software", Requirements: "CS101"},
		{Code: "CS201", Name: "Algorithms", Credits: 5, Level: 3, Program: "Software", Requirements: "CS102:30, 20 CRED"},
		{Code: "CS101", Name: "Intro", Credits: 6, Level: 1, Program: "Hardware"},
		{Code: "HW200", Name: "Circuits", Credits: 6, Level: 2, Program: "Hardware", Requirements: "CS101"},
	}
}

type fixture struct {
	server *httptest.Server
	store  *inmemorystore.Store
	engine *engine.Engine
}

func newFixture(t *testing.T, src catalog.Source) *fixture {
	t.Helper()
	st := inmemorystore.New()
	collector := metrics.NewCollector()
	eng := engine.New(collector)
	_, err := eng.Import(context.Background(), catalog.Static(catalogRecords()), st, true)
	require.NoError(t, err)

	srv := New(Options{Engine: eng, Store: st, Source: src, Metrics: collector})
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return &fixture{server: ts, store: st, engine: eng}
}

func (f *fixture) do(t *testing.T, method, path string, body any) (*http.Response, []byte) {
	t.Helper()
	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = strings.NewReader(b)
	default:
		data, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, f.server.URL+path, reader)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, data
}

func decode[T any](t *testing.T, data []byte) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(data, &v), string(data))
	return v
}

func TestHealthAndRequestID(t *testing.T) {
	f := newFixture(t, nil)

	resp, body := f.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "OK\n", string(body))
	assert.Len(t, resp.Header.Get(RequestIDHeader), 36)

	req, err := http.NewRequest(http.MethodGet, f.server.URL+"/health", nil)
	require.NoError(t, err)
	req.Header.Set(RequestIDHeader, "trace-123")
	resp2, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp2.Body.Close()
	assert.Equal(t, "trace-123", resp2.Header.Get(RequestIDHeader))
}

func TestPlan(t *testing.T) {
	f := newFixture(t, nil)

	t.Run("success", func(t *testing.T) {
		resp, body := f.do(t, http.MethodPost, "/api/plan", map[string]any{
			"history": []string{"CS101"}, "program": "Software", "max_credits": 12,
		})
		require.Equal(t, http.StatusOK, resp.StatusCode, string(body))

		got := decode[engine.PlanResponse](t, body)
		assert.Equal(t, 10.0, got.ApprovedCredits)
		assert.Equal(t, "Software", got.Program)
		require.Len(t, got.Available, 1)
		assert.Equal(t, "CS102", got.Available[0].Code)
		assert.Equal(t, 1, got.Available[0].Impact)
		assert.Len(t, got.Recommended, 1)
	})

	capCases := []struct {
		name        string
		body        string
		recommended int
	}{
		{"zero cap", `{"history": ["CS101"], "program": "Software", "max_credits": 0}`, 0},
		{"fractional cap below the course", `{"history": ["CS101"], "program": "Software", "max_credits": 9.9}`, 0},
		{"absent cap", `{"history": ["CS101"], "program": "Software"}`, 1},
	}
	for _, tc := range capCases {
		t.Run(tc.name, func(t *testing.T) {
			resp, body := f.do(t, http.MethodPost, "/api/plan", tc.body)
			require.Equal(t, http.StatusOK, resp.StatusCode, string(body))

			got := decode[engine.PlanResponse](t, body)
			assert.Len(t, got.Available, 1)
			assert.Len(t, got.Recommended, tc.recommended)
			assert.Contains(t, string(body), `"recommended":[`)
		})
	}

	testCases := []struct {
		name string
		body any
	}{
		{"missing program", map[string]any{"history": []string{}}},
		{"negative credits", map[string]any{"program": "Software", "max_credits": -3}},
		{"malformed json", `{"program": `},
		{"unknown field", map[string]any{"program": "Software", "carrera": "x"}},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			resp, body := f.do(t, http.MethodPost, "/api/plan", tc.body)
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode, string(body))
			errResp := decode[ErrorResponse](t, body)
			assert.NotEmpty(t, errResp.Error)
			assert.NotEmpty(t, errResp.RequestID)
		})
	}

	t.Run("validation details", func(t *testing.T) {
		_, body := f.do(t, http.MethodPost, "/api/plan", map[string]any{"program": " "})
		errResp := decode[ErrorResponse](t, body)
		require.Len(t, errResp.Details, 1)
		assert.Equal(t, "program", errResp.Details[0].Field)
	})
}

func TestGraph(t *testing.T) {
	f := newFixture(t, nil)

	t.Run("one program", func(t *testing.T) {
		resp, body := f.do(t, http.MethodGet, "/api/graph?program=software", nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		view := decode[GraphView](t, body)

		assert.Equal(t, 3, view.TotalNodes)
		assert.Equal(t, 2, view.TotalEdges)
		require.NotNil(t, view.Program)
		assert.Equal(t, "software", *view.Program)
		assert.Equal(t, "Software", view.Nodes[0].Program)

		require.NotNil(t, view.Nodes[2].RequiredCredits)
		assert.Equal(t, 20, *view.Nodes[2].RequiredCredits)
		assert.Equal(t, GraphEdge{Source: "CS102", Target: "CS201", Kind: "COURSE_CRED", RequiredCredits: 30}, view.Edges[1])
		assert.Equal(t, GraphEdge{Source: "CS101", Target: "CS102", Kind: "COURSE"}, view.Edges[0])
	})

	t.Run("all programs merge by code", func(t *testing.T) {
		_, body := f.do(t, http.MethodGet, "/api/graph", nil)
		view := decode[GraphView](t, body)

		assert.Nil(t, view.Program)
		assert.Equal(t, 4, view.TotalNodes)
		assert.Equal(t, 3, view.TotalEdges)
		for _, n := range view.Nodes {
			assert.Empty(t, n.Program)
		}
	})
}

func TestCourses(t *testing.T) {
	f := newFixture(t, nil)

	t.Run("list", func(t *testing.T) {
		_, body := f.do(t, http.MethodGet, "/api/courses?program=Hardware", nil)
		list := decode[CourseList](t, body)
		assert.Equal(t, 2, list.Total)
		assert.Equal(t, CourseOption{Value: "CS101", Label: "CS101 - Intro", Program: "Hardware", Credits: 6, Level: 1}, list.Courses[0])

		_, body = f.do(t, http.MethodGet, "/api/courses", nil)
		assert.Equal(t, 5, decode[CourseList](t, body).Total)
	})

	t.Run("programs", func(t *testing.T) {
		_, body := f.do(t, http.MethodGet, "/api/programs", nil)
		got := decode[struct {
			Total    int      `json:"total"`
			Programs []string `json:"programs"`
		}](t, body)
		assert.Equal(t, 2, got.Total)
		assert.Equal(t, []string{"Hardware", "Software"}, got.Programs)
	})

	t.Run("detail with explanation", func(t *testing.T) {
		resp, body := f.do(t, http.MethodGet, "/api/courses/cs201?program=Software&completed=CS101", nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		detail := decode[CourseDetail](t, body)

		assert.Equal(t, "CS201", detail.Code)
		assert.Equal(t, []string{"CS102"}, detail.Prerequisites)
		assert.Empty(t, detail.Unlocks)
		require.NotNil(t, detail.Eligible)
		assert.False(t, *detail.Eligible)
		require.Len(t, detail.Unmet, 2)
		assert.Equal(t, "CS102:30", detail.Unmet[0].Requirement)
	})

	t.Run("detail without program uses first match", func(t *testing.T) {
		_, body := f.do(t, http.MethodGet, "/api/courses/CS101", nil)
		detail := decode[CourseDetail](t, body)
		assert.Equal(t, "Software", detail.Program)
		assert.Equal(t, 2, detail.Impact)
		assert.Nil(t, detail.Eligible)
	})

	t.Run("detail not found", func(t *testing.T) {
		resp, _ := f.do(t, http.MethodGet, "/api/courses/ZZ999", nil)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})
}

func TestReload(t *testing.T) {
	t.Run("no source configured", func(t *testing.T) {
		f := newFixture(t, nil)
		resp, _ := f.do(t, http.MethodPost, "/api/courses/reload", nil)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})

	t.Run("replaces the catalog", func(t *testing.T) {
		f := newFixture(t, catalog.Static([]curriculum.Record{{Code: "NEW100", Name: "Fresh", Program: "Software"}}))
		resp, body := f.do(t, http.MethodPost, "/api/courses/reload", nil)
		require.Equal(t, http.StatusOK, resp.StatusCode, string(body))

		got := decode[map[string]any](t, body)
		assert.Equal(t, 1.0, got["total_courses"])
		assert.Equal(t, 1, f.engine.Graph().Len())

		all, err := f.store.Records(context.Background())
		require.NoError(t, err)
		assert.Len(t, all, 1)
	})
}

func TestUserHistoryFlow(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	resp, body := f.do(t, http.MethodPost, "/api/users/u1/history", map[string]any{"course_code": "CS101"})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode, "unknown user without program: %s", body)

	resp, _ = f.do(t, http.MethodPut, "/api/users/u1", map[string]any{"student_code": "2020-001"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp, body = f.do(t, http.MethodPost, "/api/users/u1/history", map[string]any{"course_code": "CS101"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode, "user without program: %s", body)

	resp, body = f.do(t, http.MethodPut, "/api/users/u1", map[string]any{"program": "Software", "student_code": "2020-001"})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	assert.Equal(t, store.User{ID: "u1", Program: "Software", StudentCode: "2020-001"}, decode[store.User](t, body))

	for i := 0; i < 2; i++ {
		resp, body = f.do(t, http.MethodPost, "/api/users/u1/history", map[string]any{"course_code": "cs101"})
		require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	}
	resp, _ = f.do(t, http.MethodPost, "/api/users/u1/history", map[string]any{"course_code": "HW200"})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode, "course outside the program")
	resp, _ = f.do(t, http.MethodPost, "/api/users/u1/history", map[string]any{"course_code": "HW200", "program": "Hardware"})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp, _ = f.do(t, http.MethodPost, "/api/users/u1/history", map[string]any{"course_code": "bad code!"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	// A completion whose course later disappears from the catalog.
	require.NoError(t, f.store.AddCompleted(ctx, "u1", "GONE100", "Software"))

	_, body = f.do(t, http.MethodGet, "/api/users/u1/history", nil)
	history := decode[HistoryResponse](t, body)
	assert.Equal(t, 3, history.TotalCourses)
	assert.Equal(t, 16.0, history.TotalCredits)
	assert.Equal(t, "Intro", history.Courses[0].Name)
	assert.Equal(t, notFoundName, history.Courses[2].Name)
	assert.Zero(t, history.Courses[2].Credits)

	_, body = f.do(t, http.MethodGet, "/api/users/u1/history?program=hardware", nil)
	assert.Equal(t, 1, decode[HistoryResponse](t, body).TotalCourses)

	_, body = f.do(t, http.MethodGet, "/api/users/u1", nil)
	profile := decode[UserProfile](t, body)
	assert.Equal(t, "Software", profile.Program)
	assert.Equal(t, []string{"CS101", "HW200", "GONE100"}, profile.History)
	assert.Equal(t, 10.0, profile.ApprovedCredits)

	resp, body = f.do(t, http.MethodPost, "/api/users/u1/plan?max_credits=30", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	plan := decode[engine.PlanResponse](t, body)
	assert.Equal(t, "Software", plan.Program)
	require.Len(t, plan.Available, 1)
	assert.Equal(t, "CS102", plan.Available[0].Code)

	resp, body = f.do(t, http.MethodPost, "/api/users/u1/plan?program=Hardware", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	assert.Empty(t, decode[engine.PlanResponse](t, body).Available)

	resp, body = f.do(t, http.MethodPost, "/api/users/u1/plan?max_credits=0", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	plan = decode[engine.PlanResponse](t, body)
	assert.Len(t, plan.Available, 1)
	assert.Empty(t, plan.Recommended)
	assert.Zero(t, plan.RecommendedCredits)

	resp, _ = f.do(t, http.MethodPost, "/api/users/u1/plan?max_credits=lots", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = f.do(t, http.MethodDelete, "/api/users/u1/history/CS101", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp, _ = f.do(t, http.MethodDelete, "/api/users/u1/history/CS101", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp, _ = f.do(t, http.MethodDelete, "/api/users/u1/history/HW200?program=Hardware", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = f.do(t, http.MethodGet, "/api/users/nobody", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestUpdateHistory(t *testing.T) {
	f := newFixture(t, nil)

	resp, _ := f.do(t, http.MethodPut, "/api/users/u1", map[string]any{"program": "Software"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	for _, code := range []string{"CS101", "CS102"} {
		resp, body := f.do(t, http.MethodPost, "/api/users/u1/history", map[string]any{"course_code": code})
		require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	}

	// Steps run in order against the same user.
	testCases := []struct {
		name     string
		path     string
		body     any
		status   int
		expected *UpdateHistoryResponse
	}{
		{
			name:   "correct the completion time",
			path:   "/api/users/u1/history/cs101",
			body:   `{"completed_at": "2021-03-04T10:30:00-03:00"}`,
			status: http.StatusOK,
			expected: &UpdateHistoryResponse{
				HistoryEntry: HistoryEntry{
					Code: "CS101", Program: "Software", Name: "Intro", Credits: 10, Level: 1,
					CompletedAt: time.Date(2021, time.March, 4, 13, 30, 0, 0, time.UTC),
				},
				ApprovedCredits: 20,
			},
		},
		{name: "nothing to update", path: "/api/users/u1/history/CS101", body: `{}`, status: http.StatusBadRequest},
		{name: "zero time", path: "/api/users/u1/history/CS101", body: `{"completed_at": "0001-01-01T00:00:00Z"}`, status: http.StatusBadRequest},
		{name: "unknown field", path: "/api/users/u1/history/CS101", body: `{"date": "2021-03-04"}`, status: http.StatusBadRequest},
		{name: "course missing from target program", path: "/api/users/u1/history/CS102", body: `{"program": "Hardware"}`, status: http.StatusNotFound},
		{name: "course never completed", path: "/api/users/u1/history/HW200?program=Hardware", body: `{"completed_at": "2022-01-01T00:00:00Z"}`, status: http.StatusNotFound},
		{name: "unknown user", path: "/api/users/nobody/history/CS101", body: `{"completed_at": "2022-01-01T00:00:00Z"}`, status: http.StatusNotFound},
		{
			name:   "move to another program",
			path:   "/api/users/u1/history/CS101",
			body:   `{"program": "hardware"}`,
			status: http.StatusOK,
			expected: &UpdateHistoryResponse{
				HistoryEntry: HistoryEntry{
					Code: "CS101", Program: "hardware", Name: "Intro", Credits: 6, Level: 1,
					CompletedAt: time.Date(2021, time.March, 4, 13, 30, 0, 0, time.UTC),
				},
				ApprovedCredits: 6,
			},
		},
		{name: "entry already moved", path: "/api/users/u1/history/CS101", body: `{"completed_at": "2022-01-01T00:00:00Z"}`, status: http.StatusNotFound},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			resp, body := f.do(t, http.MethodPut, tc.path, tc.body)
			require.Equal(t, tc.status, resp.StatusCode, string(body))
			if tc.expected == nil {
				assert.NotEmpty(t, decode[ErrorResponse](t, body).Error)
				return
			}
			got := decode[UpdateHistoryResponse](t, body)
			assert.True(t, tc.expected.CompletedAt.Equal(got.CompletedAt), got.CompletedAt)
			got.CompletedAt = tc.expected.CompletedAt
			assert.Equal(t, *tc.expected, got)
		})
	}

	t.Run("moving onto an existing entry conflicts", func(t *testing.T) {
		resp, body := f.do(t, http.MethodPost, "/api/users/u1/history", map[string]any{"course_code": "CS101"})
		require.Equal(t, http.StatusOK, resp.StatusCode, string(body))

		resp, body = f.do(t, http.MethodPut, "/api/users/u1/history/CS101", `{"program": "Hardware"}`)
		assert.Equal(t, http.StatusConflict, resp.StatusCode, string(body))
	})

	_, body := f.do(t, http.MethodGet, "/api/users/u1/history", nil)
	history := decode[HistoryResponse](t, body)
	require.Len(t, history.Courses, 3)
	assert.Equal(t, "CS101", history.Courses[0].Code)
	assert.Equal(t, "hardware", history.Courses[0].Program)
	assert.Equal(t, "CS102", history.Courses[1].Code)
	assert.Equal(t, "CS101", history.Courses[2].Code)
	assert.Equal(t, "Software", history.Courses[2].Program)
}

func TestMetricsEndpoint(t *testing.T) {
	f := newFixture(t, nil)
	f.do(t, http.MethodPost, "/api/plan", map[string]any{"program": "Software"})

	resp, body := f.do(t, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `gradplan_plans_total{program_found="true"} 1`)
	assert.Contains(t, string(body), "gradplan_graph_courses 5")
}

func TestMount(t *testing.T) {
	srv := New(Options{Engine: engine.New(nil), Store: inmemorystore.New()})
	srv.Mount("/extra/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/extra/x", nil))
	assert.Equal(t, http.StatusTeapot, rec.Code)

	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code, "no collector, no metrics route")
}
