package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/vk/gradplan/internal/catalog"
	"github.com/vk/gradplan/internal/ctxlog"
	"github.com/vk/gradplan/internal/curriculum"
	"github.com/vk/gradplan/internal/eligibility"
	"github.com/vk/gradplan/internal/metrics"
	"github.com/vk/gradplan/internal/planner"
	"github.com/vk/gradplan/internal/store"
	"github.com/vk/gradplan/internal/validation"
)

// ErrNoSource is returned by Reload and Import when no source is given.
var ErrNoSource = errors.New("no catalog source configured")

// PlanRequest is the input of a planning request.
type PlanRequest struct {
	History []string `json:"history"`
	// MaxCredits defaults to planner.DefaultMaxCredits when absent. An
	// explicit zero is a zero cap.
	MaxCredits *float64 `json:"max_credits,omitempty" validate:"omitempty,gte=0"`
	Program    string   `json:"program" validate:"notblank"`
}

// PlanResponse is the outcome of a planning request.
type PlanResponse struct {
	ApprovedCredits    float64                `json:"approved_credits"`
	Program            string                 `json:"program"`
	Available          []planner.ScoredCourse `json:"available"`
	Recommended        []planner.ScoredCourse `json:"recommended"`
	RecommendedCredits float64                `json:"recommended_credits"`
}

// Engine holds the current curriculum graph.
type Engine struct {
	graph   atomic.Pointer[curriculum.Graph]
	metrics *metrics.Collector
	// reloadMu serializes reloads so that the last one to finish is also
	// the last one to start.
	reloadMu sync.Mutex
}

// New returns an engine publishing an empty graph. The collector may be nil.
func New(collector *metrics.Collector) *Engine {
	e := &Engine{metrics: collector}
	e.graph.Store(curriculum.Build(context.Background(), nil))
	return e
}

// Graph returns the current graph. The result is never nil.
func (e *Engine) Graph() *curriculum.Graph {
	return e.graph.Load()
}

// Reload rebuilds the graph from src and publishes it. On failure the
// previous graph stays in place. It returns the number of courses.
func (e *Engine) Reload(ctx context.Context, src catalog.Source) (int, error) {
	logger := ctxlog.FromContext(ctx)
	if src == nil {
		e.metrics.ObserveReload(ErrNoSource, 0, 0)
		return 0, ErrNoSource
	}

	e.reloadMu.Lock()
	defer e.reloadMu.Unlock()

	records, err := src.Records(ctx)
	if err != nil {
		e.metrics.ObserveReload(err, 0, 0)
		return 0, fmt.Errorf("failed to read catalog: %w", err)
	}

	g := curriculum.Build(ctx, records)
	e.graph.Store(g)
	e.metrics.ObserveReload(nil, g.Len(), g.EdgeCount())
	logger.Info("Engine: Curriculum graph published.", "courses", g.Len(), "edges", g.EdgeCount(), "programs", len(g.Programs()))
	return g.Len(), nil
}

// Import copies the records of src into st and then reloads the graph from
// st. Records are sanitized and deduplicated first. With replace set, the
// stored catalog is cleared before the upsert. It returns the number of
// records written.
func (e *Engine) Import(ctx context.Context, src catalog.Source, st store.Store, replace bool) (int, error) {
	logger := ctxlog.FromContext(ctx)
	if src == nil || st == nil {
		return 0, ErrNoSource
	}

	raw, err := src.Records(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to read catalog: %w", err)
	}

	clean := make([]curriculum.Record, 0, len(raw))
	for _, r := range raw {
		if s, ok := catalog.Sanitize(r); ok {
			clean = append(clean, s)
		}
	}
	records := catalog.Dedupe(clean)
	logger.Debug("Engine: Catalog records prepared for import.",
		"read", len(raw), "skipped", len(raw)-len(clean), "unique", len(records))

	if replace {
		if err := st.DeleteAllCourses(ctx); err != nil {
			return 0, fmt.Errorf("failed to clear stored catalog: %w", err)
		}
	}
	if err := st.UpsertCourses(ctx, records); err != nil {
		return 0, fmt.Errorf("failed to store catalog: %w", err)
	}
	logger.Info("Engine: Catalog imported.", "records", len(records), "replaced", replace)

	if _, err := e.Reload(ctx, st); err != nil {
		return len(records), err
	}
	return len(records), nil
}

// Plan validates req and plans it against the current graph.
func (e *Engine) Plan(ctx context.Context, req PlanRequest) (PlanResponse, error) {
	if err := validation.Struct(req); err != nil {
		return PlanResponse{}, err
	}
	maxCredits := planner.DefaultMaxCredits
	if req.MaxCredits != nil {
		maxCredits = *req.MaxCredits
	}
	program := strings.TrimSpace(req.Program)

	start := time.Now()
	g := e.Graph()
	result := planner.Plan(ctx, g, req.History, maxCredits, program)
	e.metrics.ObservePlan(len(g.CoursesInProgram(program)) > 0, len(result.Candidates), time.Since(start))

	return PlanResponse{
		ApprovedCredits:    result.CompletedCredits,
		Program:            program,
		Available:          nonNil(result.Candidates),
		Recommended:        nonNil(result.Selection),
		RecommendedCredits: result.SelectedCredits,
	}, nil
}

// Credits returns a pointer to v, for setting PlanRequest.MaxCredits.
func Credits(v float64) *float64 {
	return &v
}

// ApprovedCredits sums the credits of the recognized courses in codes.
// Unknown codes count zero and repeated codes count once.
func (e *Engine) ApprovedCredits(codes []string, program string) float64 {
	return eligibility.NewCompletionState(e.Graph(), codes, program).TotalCredits
}

func nonNil(courses []planner.ScoredCourse) []planner.ScoredCourse {
	if courses == nil {
		return []planner.ScoredCourse{}
	}
	return courses
}
