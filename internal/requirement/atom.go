package requirement

import "fmt"

// Kind discriminates the shape of an Atom.
type Kind int

const (
	// KindCourse requires the named course to be completed.
	KindCourse Kind = iota
	// KindCourseCredit names a course together with a credit threshold.
	// Eligibility only checks that the course is completed.
	KindCourseCredit
	// KindCredit requires a minimum of accumulated credits.
	KindCredit
)

// String implements fmt.Stringer.
func (k Kind) String() string {
	switch k {
	case KindCourse:
		return "COURSE"
	case KindCourseCredit:
		return "COURSE_CRED"
	case KindCredit:
		return "CRED"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Atom is one indivisible prerequisite condition.
type Atom struct {
	Kind       Kind
	Code       string
	MinCredits int
}

// Course returns a course-completion atom.
func Course(code string) Atom {
	return Atom{Kind: KindCourse, Code: code}
}

// CourseCredit returns a course atom that also carries a credit threshold.
func CourseCredit(code string, minCredits int) Atom {
	return Atom{Kind: KindCourseCredit, Code: code, MinCredits: minCredits}
}

// Credit returns an accumulated-credits atom.
func Credit(minCredits int) Atom {
	return Atom{Kind: KindCredit, MinCredits: minCredits}
}

// ReferencesCourse reports whether the atom names another course and
// therefore produces a prerequisite edge.
func (a Atom) ReferencesCourse() bool {
	return a.Kind == KindCourse || a.Kind == KindCourseCredit
}

// String renders the atom back into the catalog notation.
func (a Atom) String() string {
	switch a.Kind {
	case KindCourse:
		return a.Code
	case KindCourseCredit:
		return fmt.Sprintf("%s:%d", a.Code, a.MinCredits)
	case KindCredit:
		return fmt.Sprintf("%d CRED", a.MinCredits)
	default:
		return "?"
	}
}

// CreditThresholds returns the thresholds of every Credit atom, in order.
func CreditThresholds(atoms []Atom) []int {
	var out []int
	for _, a := range atoms {
		if a.Kind == KindCredit {
			out = append(out, a.MinCredits)
		}
	}
	return out
}
