package curriculum

import (
	"sort"
	"strings"

	"github.com/vk/gradplan/internal/courseid"
	"github.com/vk/gradplan/internal/dag"
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Graph is an immutable snapshot of a curriculum. It is safe for concurrent
// readers.
type Graph struct {
	// courses holds every node keyed by its canonical ID, in insertion order.
	courses *orderedmap.OrderedMap[string, *Course]
	// index resolves a normalized (code, program) pair to the first node
	// inserted under it.
	index map[courseid.ID]string
	// topology carries the prerequisite edges.
	topology *dag.Graph
	// edges records edge attributes in the order they were linked.
	edges []Edge
	// edgeIndex maps "from->to" to a position in edges.
	edgeIndex map[string]int
}

func newGraph() *Graph {
	return &Graph{
		courses:   orderedmap.New[string, *Course](),
		index:     make(map[courseid.ID]string),
		topology:  dag.New(),
		edgeIndex: make(map[string]int),
	}
}

// Len returns the number of courses.
func (g *Graph) Len() int {
	return g.courses.Len()
}

// EdgeCount returns the number of distinct prerequisite edges.
func (g *Graph) EdgeCount() int {
	return len(g.edges)
}

// Lookup returns the course with the given ID. An exact match of the
// canonical ID is tried first, then a case-insensitive program match.
func (g *Graph) Lookup(id courseid.ID) (*Course, bool) {
	if c, ok := g.courses.Get(id.String()); ok {
		return c, true
	}
	return g.LookupCode(id.Code, id.Program)
}

// LookupCode resolves a course code within a program. When several nodes
// share the same normalized pair, the first one inserted wins.
func (g *Graph) LookupCode(code, program string) (*Course, bool) {
	key, ok := g.index[courseid.New(code, program).Key()]
	if !ok {
		return nil, false
	}
	return g.courses.Get(key)
}

// FindByCode returns the first course with the given code in any program.
func (g *Graph) FindByCode(code string) (*Course, bool) {
	code = courseid.NormalizeCode(code)
	for pair := g.courses.Oldest(); pair != nil; pair = pair.Next() {
		if pair.Value.ID.Code == code {
			return pair.Value, true
		}
	}
	return nil, false
}

// Courses returns every course in insertion order.
func (g *Graph) Courses() []*Course {
	out := make([]*Course, 0, g.courses.Len())
	for pair := g.courses.Oldest(); pair != nil; pair = pair.Next() {
		out = append(out, pair.Value)
	}
	return out
}

// CoursesInProgram returns the courses of one program in insertion order.
// Program names are compared trimmed and case-insensitively.
func (g *Graph) CoursesInProgram(program string) []*Course {
	var out []*Course
	for pair := g.courses.Oldest(); pair != nil; pair = pair.Next() {
		if courseid.SameProgram(pair.Value.ID.Program, program) {
			out = append(out, pair.Value)
		}
	}
	return out
}

// Programs returns the distinct program names, sorted. The spelling of the
// first course seen in each program is used.
func (g *Graph) Programs() []string {
	seen := make(map[string]struct{})
	var out []string
	for pair := g.courses.Oldest(); pair != nil; pair = pair.Next() {
		p := pair.Value.ID.Program
		key := courseid.NormalizeProgram(p)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		return strings.ToLower(out[i]) < strings.ToLower(out[j])
	})
	return out
}

// Edges returns a copy of every prerequisite edge.
func (g *Graph) Edges() []Edge {
	out := make([]Edge, len(g.edges))
	copy(out, g.edges)
	return out
}

// EdgesInProgram returns the edges whose dependent course belongs to the
// given program. Edges never cross programs.
func (g *Graph) EdgesInProgram(program string) []Edge {
	var out []Edge
	for _, e := range g.edges {
		if courseid.SameProgram(e.To.Program, program) {
			out = append(out, e)
		}
	}
	return out
}

// Impact returns the number of distinct courses transitively unlocked by
// the given course. Unknown courses have no impact.
func (g *Graph) Impact(id courseid.ID) int {
	c, ok := g.Lookup(id)
	if !ok {
		return 0
	}
	desc, err := g.topology.Descendants(c.ID.String())
	if err != nil {
		return 0
	}
	return len(desc)
}

// Prerequisites returns the courses the given course directly depends on.
func (g *Graph) Prerequisites(id courseid.ID) []*Course {
	return g.neighbours(id, g.topology.Dependencies)
}

// Unlocks returns the courses that directly depend on the given course.
func (g *Graph) Unlocks(id courseid.ID) []*Course {
	return g.neighbours(id, g.topology.Dependents)
}

func (g *Graph) neighbours(id courseid.ID, query func(string) ([]string, error)) []*Course {
	c, ok := g.Lookup(id)
	if !ok {
		return nil
	}
	keys, err := query(c.ID.String())
	if err != nil {
		return nil
	}
	out := make([]*Course, 0, len(keys))
	for _, k := range keys {
		if n, ok := g.courses.Get(k); ok {
			out = append(out, n)
		}
	}
	return out
}

// HasCycle reports whether the prerequisite edges form a cycle.
func (g *Graph) HasCycle() bool {
	return g.topology.DetectCycles() != nil
}
