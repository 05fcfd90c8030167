// Package store defines persistence for the course catalog and for each
// student's record of completed courses.
//
// Courses are keyed by (code, program). Codes compare upper-cased and
// programs compare case-insensitively, matching the graph's lookup rules.
// Listings return courses in the order their key was first stored, which
// keeps the planner's tie-breaking stable across reloads.
package store

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/vk/gradplan/internal/courseid"
	"github.com/vk/gradplan/internal/curriculum"
)

var (
	// ErrNotFound is returned when a user, course or completion does not exist.
	ErrNotFound = errors.New("not found")
	// ErrInvalidInput is returned when a required identifier is blank.
	ErrInvalidInput = errors.New("invalid input")
	// ErrConflict is returned when an update would collide with an existing
	// entry.
	ErrConflict = errors.New("conflict")
)

// User is the minimal student profile the planner needs.
type User struct {
	ID          string `json:"id"`
	Program     string `json:"program"`
	StudentCode string `json:"student_code"`
}

// Completion records one passed course.
type Completion struct {
	UserID      string    `json:"user_id"`
	Code        string    `json:"course_code"`
	Program     string    `json:"program"`
	CompletedAt time.Time `json:"completed_at"`
}

// CompletionUpdate lists the fields of a completion to change. Nil fields
// keep their stored value.
type CompletionUpdate struct {
	CompletedAt *time.Time
	Program     *string
}

// Store is the persistence contract shared by every backend.
type Store interface {
	UpsertCourses(ctx context.Context, records []curriculum.Record) error
	DeleteAllCourses(ctx context.Context) error
	// ListCourses returns the stored courses, restricted to one program
	// when program is not blank.
	ListCourses(ctx context.Context, program string) ([]curriculum.Record, error)
	// Records returns every stored course, so a Store can act as a catalog source.
	Records(ctx context.Context) ([]curriculum.Record, error)
	Programs(ctx context.Context) ([]string, error)
	GetCourse(ctx context.Context, code, program string) (curriculum.Record, error)

	GetUser(ctx context.Context, userID string) (User, error)
	SaveUser(ctx context.Context, user User) error

	// AddCompleted is idempotent. A repeated call keeps the original time.
	AddCompleted(ctx context.Context, userID, code, program string) error
	RemoveCompleted(ctx context.Context, userID, code, program string) error
	// UpdateCompleted changes the completion time or program of an existing
	// entry and returns it. The entry keeps its place in History. Moving it
	// to a program where the same course is already completed fails with
	// ErrConflict.
	UpdateCompleted(ctx context.Context, userID, code, program string, upd CompletionUpdate) (Completion, error)
	History(ctx context.Context, userID, program string) ([]Completion, error)
}

// NormalizeRecord applies the key rules to a record before it is stored.
// The program defaults to courseid.DefaultProgram.
func NormalizeRecord(r curriculum.Record) (curriculum.Record, error) {
	id := r.ID()
	if id.Code == "" {
		return curriculum.Record{}, fmt.Errorf("%w: course code is blank", ErrInvalidInput)
	}
	r.Code = id.Code
	r.Program = id.Program
	return r, nil
}

// CompletionKey validates and normalizes the identifiers of a completion.
// It returns the normalized code and the program in its comparison form.
func CompletionKey(userID, code, program string) (string, string, error) {
	if strings.TrimSpace(userID) == "" {
		return "", "", fmt.Errorf("%w: user id is blank", ErrInvalidInput)
	}
	c := courseid.NormalizeCode(code)
	if c == "" {
		return "", "", fmt.Errorf("%w: course code is blank", ErrInvalidInput)
	}
	p := courseid.NormalizeProgram(program)
	if p == "" {
		return "", "", fmt.Errorf("%w: program is blank", ErrInvalidInput)
	}
	return c, p, nil
}

// UpdateTarget validates upd against the current program of a completion.
// It returns the new program as given and in its comparison form, both
// equal to the current ones when upd leaves the program alone.
func UpdateTarget(upd CompletionUpdate, program string) (string, string, error) {
	if upd.Program == nil {
		return strings.TrimSpace(program), courseid.NormalizeProgram(program), nil
	}
	name := strings.TrimSpace(*upd.Program)
	key := courseid.NormalizeProgram(name)
	if key == "" {
		return "", "", fmt.Errorf("%w: program is blank", ErrInvalidInput)
	}
	return name, key, nil
}

// DistinctPrograms collapses program names that differ only in case or
// surrounding space, keeping the first spelling, and sorts the result the
// way curriculum.Graph.Programs does.
func DistinctPrograms(names []string) []string {
	seen := make(map[string]struct{}, len(names))
	out := make([]string, 0, len(names))
	for _, name := range names {
		name = strings.TrimSpace(name)
		key := courseid.NormalizeProgram(name)
		if key == "" {
			continue
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, name)
	}
	sort.Slice(out, func(i, j int) bool {
		return strings.ToLower(out[i]) < strings.ToLower(out[j])
	})
	return out
}
