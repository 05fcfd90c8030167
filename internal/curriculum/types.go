package curriculum

import (
	"github.com/vk/gradplan/internal/courseid"
	"github.com/vk/gradplan/internal/requirement"
)

// Record is a sanitized catalog row. Ingestion sources are responsible for
// defaulting missing values before a Record reaches the graph builder.
type Record struct {
	Code         string  `json:"code" msgpack:"code"`
	Name         string  `json:"name" msgpack:"name"`
	Credits      float64 `json:"credits" msgpack:"credits"`
	Level        int     `json:"level" msgpack:"level"`
	Program      string  `json:"program" msgpack:"program"`
	Requirements string  `json:"requirements" msgpack:"requirements"`
}

// ID returns the composite identity the record will have as a graph node.
func (r Record) ID() courseid.ID {
	return courseid.New(r.Code, programOrDefault(r.Program))
}

// Course is a node of the curriculum graph.
type Course struct {
	ID      courseid.ID
	Name    string
	Credits float64
	Level   int

	// RawRequirements keeps the original prerequisite text for display.
	RawRequirements string
	// Requirements are the parsed atoms, ANDed together.
	Requirements []requirement.Atom
	// CreditThresholds caches the thresholds of the Credit atoms.
	CreditThresholds []int
}

// Code returns the course code.
func (c *Course) Code() string { return c.ID.Code }

// Program returns the program the course belongs to.
func (c *Course) Program() string { return c.ID.Program }

// MaxCreditThreshold returns the largest accumulated-credit requirement of
// the course, if it has any. It is informational only.
func (c *Course) MaxCreditThreshold() (int, bool) {
	if len(c.CreditThresholds) == 0 {
		return 0, false
	}
	maxThreshold := c.CreditThresholds[0]
	for _, t := range c.CreditThresholds[1:] {
		if t > maxThreshold {
			maxThreshold = t
		}
	}
	return maxThreshold, true
}

// EdgeKind tells whether a prerequisite edge came from a plain course
// reference or from a course reference carrying a credit threshold.
type EdgeKind int

const (
	EdgePlain EdgeKind = iota
	EdgeCreditGated
)

// String implements fmt.Stringer using the catalog notation.
func (k EdgeKind) String() string {
	if k == EdgeCreditGated {
		return requirement.KindCourseCredit.String()
	}
	return requirement.KindCourse.String()
}

// Edge is a prerequisite relation: From must be completed before To.
type Edge struct {
	From       courseid.ID
	To         courseid.ID
	Kind       EdgeKind
	MinCredits int
}
