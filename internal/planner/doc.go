// Package planner recommends a set of courses for the next term.
//
// Candidates are the courses of the requested program that the student has
// not completed and is eligible for. Each candidate is scored by its impact,
// the number of courses it transitively unlocks. Candidates are ordered by
// impact, highest first, with ties kept in catalog order, and a single
// greedy pass picks every candidate that still fits under the credit cap.
// A candidate that does not fit is skipped for good; the pass never
// backtracks.
package planner
