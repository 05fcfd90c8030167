package curriculum

import (
	"context"
	"strings"

	"github.com/vk/gradplan/internal/courseid"
	"github.com/vk/gradplan/internal/ctxlog"
	"github.com/vk/gradplan/internal/requirement"
)

// Build constructs a Graph from catalog records. It never fails: duplicate
// records overwrite earlier ones, unresolvable references are ignored and
// cycles are reported in the log but kept.
func Build(ctx context.Context, records []Record) *Graph {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Build: Starting graph construction.", "record_count", len(records))

	g := newGraph()

	// First pass: one node per record.
	createNodes(ctx, records, g)
	logger.Debug("Build: Node creation complete.", "node_count", g.Len())

	// Second pass: resolve course references into edges.
	linkNodes(ctx, g)
	logger.Debug("Build: Node linking complete.", "edge_count", g.EdgeCount())

	if err := g.topology.DetectCycles(); err != nil {
		logger.Warn("Build: Prerequisite cycle found in catalog.", "error", err)
	}

	logger.Info("Build: Graph construction successful.", "courses", g.Len(), "edges", g.EdgeCount())
	return g
}

// createNodes performs the first pass of graph creation.
func createNodes(ctx context.Context, records []Record, g *Graph) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Starting node creation pass.")

	for _, rec := range records {
		id := rec.ID()
		if id.Code == "" {
			logger.Debug("Skipping record without a course code.", "name", rec.Name)
			continue
		}

		atoms := requirement.Parse(rec.Requirements)
		course := &Course{
			ID:               id,
			Name:             rec.Name,
			Credits:          rec.Credits,
			Level:            rec.Level,
			RawRequirements:  rec.Requirements,
			Requirements:     atoms,
			CreditThresholds: requirement.CreditThresholds(atoms),
		}

		key := id.String()
		if _, exists := g.courses.Get(key); exists {
			logger.Warn("Duplicate course definition found, it will be overwritten.", "id", key)
		}
		g.courses.Set(key, course)
		g.topology.AddNode(key)

		if _, indexed := g.index[id.Key()]; !indexed {
			g.index[id.Key()] = key
		}
	}
	logger.Debug("Finished node creation pass.")
}

// linkNodes performs the second pass, establishing prerequisite edges.
func linkNodes(ctx context.Context, g *Graph) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Starting node linking pass.")

	for pair := g.courses.Oldest(); pair != nil; pair = pair.Next() {
		course := pair.Value
		for _, atom := range course.Requirements {
			if !atom.ReferencesCourse() {
				continue
			}
			prereq, ok := g.LookupCode(atom.Code, course.ID.Program)
			if !ok {
				logger.Debug("Unresolved prerequisite reference ignored.", "course", pair.Key, "reference", atom.Code)
				continue
			}
			if prereq.ID == course.ID {
				logger.Debug("Self-referencing prerequisite ignored.", "course", pair.Key)
				continue
			}
			g.addEdge(prereq, course, atom)
		}
	}
	logger.Debug("Finished node linking pass.")
}

// addEdge records an edge. A repeated reference updates the attributes of
// the existing edge instead of adding a second one.
func (g *Graph) addEdge(from, to *Course, atom requirement.Atom) {
	edge := Edge{From: from.ID, To: to.ID, Kind: EdgePlain}
	if atom.Kind == requirement.KindCourseCredit {
		edge.Kind = EdgeCreditGated
		edge.MinCredits = atom.MinCredits
	}

	k := edgeKey(from.ID, to.ID)
	if i, ok := g.edgeIndex[k]; ok {
		g.edges[i] = edge
		return
	}
	// Both endpoints were created in the first pass and differ, so AddEdge
	// cannot fail here.
	_ = g.topology.AddEdge(from.ID.String(), to.ID.String())
	g.edgeIndex[k] = len(g.edges)
	g.edges = append(g.edges, edge)
}

func edgeKey(from, to courseid.ID) string {
	return from.String() + "->" + to.String()
}

// programOrDefault applies the default program to blank or "nan" values.
func programOrDefault(program string) string {
	p := strings.TrimSpace(program)
	if p == "" || strings.EqualFold(p, "nan") {
		return courseid.DefaultProgram
	}
	return p
}
