package catalog

import (
	"math"
	"strconv"
	"strings"

	"github.com/vk/gradplan/internal/courseid"
	"github.com/vk/gradplan/internal/curriculum"
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// maxMagnitude bounds credit and level values; anything larger is treated
// as garbage.
const maxMagnitude = 1e9

// CleanString trims the value and maps blank, "nan", "none" and "null" to
// the default.
func CleanString(value, def string) string {
	v := strings.TrimSpace(value)
	switch strings.ToLower(v) {
	case "", "nan", "none", "null":
		return def
	}
	return v
}

// ParseCredits reads a credit value. A comma is accepted as the decimal
// separator. Anything unparseable, negative or not finite becomes zero.
func ParseCredits(value string) float64 {
	v := CleanString(value, "")
	if v == "" {
		return 0
	}
	f, err := strconv.ParseFloat(strings.ReplaceAll(v, ",", "."), 64)
	if err != nil {
		return 0
	}
	return validCredits(f)
}

// validCredits returns f, or zero when f is negative, not finite or
// implausibly large.
func validCredits(f float64) float64 {
	if math.IsNaN(f) || math.IsInf(f, 0) || f < 0 || f > maxMagnitude {
		return 0
	}
	return f
}

// ParseLevel reads a level value, accepting floats such as "3.0" and
// truncating them. Anything unparseable becomes zero.
func ParseLevel(value string) int {
	v := CleanString(value, "")
	if v == "" {
		return 0
	}
	if n, err := strconv.Atoi(v); err == nil {
		return n
	}
	f, err := strconv.ParseFloat(strings.ReplaceAll(v, ",", "."), 64)
	if err != nil || math.IsNaN(f) || math.Abs(f) > maxMagnitude {
		return 0
	}
	return int(f)
}

// NewRecord builds a sanitized record from raw cell values. It reports false
// when the row has no usable course code.
func NewRecord(code, name, credits, level, program, requirements string) (curriculum.Record, bool) {
	c := courseid.NormalizeCode(CleanString(code, ""))
	if c == "" {
		return curriculum.Record{}, false
	}
	return curriculum.Record{
		Code:         c,
		Name:         CleanString(name, ""),
		Credits:      ParseCredits(credits),
		Level:        ParseLevel(level),
		Program:      CleanString(program, courseid.DefaultProgram),
		Requirements: CleanString(requirements, ""),
	}, true
}

// Sanitize applies the same defaulting rules as NewRecord to an already
// typed record.
func Sanitize(r curriculum.Record) (curriculum.Record, bool) {
	r.Code = courseid.NormalizeCode(CleanString(r.Code, ""))
	if r.Code == "" {
		return curriculum.Record{}, false
	}
	r.Name = CleanString(r.Name, "")
	r.Program = CleanString(r.Program, courseid.DefaultProgram)
	r.Requirements = CleanString(r.Requirements, "")
	r.Credits = validCredits(r.Credits)
	if r.Level > maxMagnitude || r.Level < -maxMagnitude {
		r.Level = 0
	}
	return r, true
}

// Dedupe keeps one record per (code, program), the last one seen. Each kept
// record stays at the position where its key first appeared.
func Dedupe(records []curriculum.Record) []curriculum.Record {
	m := orderedmap.New[courseid.ID, curriculum.Record]()
	for _, r := range records {
		m.Set(r.ID().Key(), r)
	}
	out := make([]curriculum.Record, 0, m.Len())
	for pair := m.Oldest(); pair != nil; pair = pair.Next() {
		out = append(out, pair.Value)
	}
	return out
}
