package api

import (
	"net/http"
	"strings"

	"github.com/vk/gradplan/internal/curriculum"
)

// GraphNode is one course in the graph view.
type GraphNode struct {
	ID      string  `json:"id"`
	Label   string  `json:"label"`
	Level   int     `json:"level"`
	Credits float64 `json:"credits"`
	Program string  `json:"program"`
	// RequiredCredits is the largest general credit threshold of the course.
	RequiredCredits *int `json:"required_credits,omitempty"`
}

// GraphEdge is one prerequisite link in the graph view.
type GraphEdge struct {
	Source          string `json:"source"`
	Target          string `json:"target"`
	Kind            string `json:"kind"`
	RequiredCredits int    `json:"required_credits,omitempty"`
}

// GraphView is the body of GET /api/graph.
type GraphView struct {
	Nodes      []GraphNode `json:"nodes"`
	Edges      []GraphEdge `json:"edges"`
	TotalNodes int         `json:"total_nodes"`
	TotalEdges int         `json:"total_edges"`
	Program    *string     `json:"program"`
}

// NewGraphView renders g for display, identifying nodes by course code.
// With a program, only that program's courses and links are included.
// Without one, courses sharing a code collapse into the first one seen,
// with a blank program, and links are deduplicated by code pair.
func NewGraphView(g *curriculum.Graph, program string) GraphView {
	program = strings.TrimSpace(program)
	view := GraphView{Nodes: []GraphNode{}, Edges: []GraphEdge{}}

	if program != "" {
		view.Program = &program
		for _, c := range g.CoursesInProgram(program) {
			view.Nodes = append(view.Nodes, graphNode(c, c.Program()))
		}
		for _, e := range g.EdgesInProgram(program) {
			view.Edges = append(view.Edges, graphEdge(e))
		}
	} else {
		seenNodes := make(map[string]struct{})
		for _, c := range g.Courses() {
			if _, ok := seenNodes[c.Code()]; ok {
				continue
			}
			seenNodes[c.Code()] = struct{}{}
			view.Nodes = append(view.Nodes, graphNode(c, ""))
		}

		seenEdges := make(map[[2]string]struct{})
		for _, e := range g.Edges() {
			key := [2]string{e.From.Code, e.To.Code}
			if key[0] == key[1] {
				continue
			}
			if _, ok := seenEdges[key]; ok {
				continue
			}
			seenEdges[key] = struct{}{}
			view.Edges = append(view.Edges, graphEdge(e))
		}
	}

	view.TotalNodes = len(view.Nodes)
	view.TotalEdges = len(view.Edges)
	return view
}

func graphNode(c *curriculum.Course, program string) GraphNode {
	label := c.Name
	if label == "" {
		label = c.Code()
	}
	n := GraphNode{
		ID:      c.Code(),
		Label:   label,
		Level:   c.Level,
		Credits: c.Credits,
		Program: program,
	}
	if threshold, ok := c.MaxCreditThreshold(); ok {
		n.RequiredCredits = &threshold
	}
	return n
}

func graphEdge(e curriculum.Edge) GraphEdge {
	out := GraphEdge{Source: e.From.Code, Target: e.To.Code, Kind: e.Kind.String()}
	if e.Kind == curriculum.EdgeCreditGated {
		out.RequiredCredits = e.MinCredits
	}
	return out
}

func (s *Server) handleGraph(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, NewGraphView(s.engine.Graph(), r.URL.Query().Get("program")))
}
