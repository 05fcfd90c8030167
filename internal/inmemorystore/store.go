package inmemorystore

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/vk/gradplan/internal/courseid"
	"github.com/vk/gradplan/internal/curriculum"
	"github.com/vk/gradplan/internal/store"
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

type completionKey struct {
	code    string
	program string
}

// Store is an in-memory implementation of store.Store.
type Store struct {
	mu      sync.RWMutex
	courses *orderedmap.OrderedMap[courseid.ID, curriculum.Record]
	users   map[string]store.User
	history map[string]*orderedmap.OrderedMap[completionKey, store.Completion]
	now     func() time.Time
}

var _ store.Store = (*Store)(nil)

// New creates a new, empty in-memory store.
func New() *Store {
	return &Store{
		courses: orderedmap.New[courseid.ID, curriculum.Record](),
		users:   make(map[string]store.User),
		history: make(map[string]*orderedmap.OrderedMap[completionKey, store.Completion]),
		now:     time.Now,
	}
}

// UpsertCourses validates every record first, so a bad record leaves the
// store untouched.
func (s *Store) UpsertCourses(ctx context.Context, records []curriculum.Record) error {
	normalized := make([]curriculum.Record, 0, len(records))
	for _, r := range records {
		n, err := store.NormalizeRecord(r)
		if err != nil {
			return err
		}
		normalized = append(normalized, n)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range normalized {
		s.courses.Set(r.ID().Key(), r)
	}
	return nil
}

func (s *Store) DeleteAllCourses(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.courses = orderedmap.New[courseid.ID, curriculum.Record]()
	return nil
}

func (s *Store) ListCourses(ctx context.Context, program string) ([]curriculum.Record, error) {
	filter := courseid.NormalizeProgram(program)

	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]curriculum.Record, 0, s.courses.Len())
	for pair := s.courses.Oldest(); pair != nil; pair = pair.Next() {
		if filter != "" && pair.Key.Program != filter {
			continue
		}
		out = append(out, pair.Value)
	}
	return out, nil
}

func (s *Store) Records(ctx context.Context) ([]curriculum.Record, error) {
	return s.ListCourses(ctx, "")
}

func (s *Store) Programs(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	names := make([]string, 0, s.courses.Len())
	for pair := s.courses.Oldest(); pair != nil; pair = pair.Next() {
		names = append(names, pair.Value.Program)
	}
	s.mu.RUnlock()
	return store.DistinctPrograms(names), nil
}

func (s *Store) GetCourse(ctx context.Context, code, program string) (curriculum.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.courses.Get(courseid.New(code, program).Key())
	if !ok {
		return curriculum.Record{}, fmt.Errorf("course %s in program %q: %w", courseid.NormalizeCode(code), program, store.ErrNotFound)
	}
	return rec, nil
}

func (s *Store) GetUser(ctx context.Context, userID string) (store.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[userID]
	if !ok {
		return store.User{}, fmt.Errorf("user %s: %w", userID, store.ErrNotFound)
	}
	return u, nil
}

func (s *Store) SaveUser(ctx context.Context, user store.User) error {
	if strings.TrimSpace(user.ID) == "" {
		return fmt.Errorf("%w: user id is blank", store.ErrInvalidInput)
	}
	user.Program = strings.TrimSpace(user.Program)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[user.ID] = user
	return nil
}

func (s *Store) AddCompleted(ctx context.Context, userID, code, program string) error {
	c, p, err := store.CompletionKey(userID, code, program)
	if err != nil {
		return err
	}
	key := completionKey{code: c, program: p}

	s.mu.Lock()
	defer s.mu.Unlock()
	entries, ok := s.history[userID]
	if !ok {
		entries = orderedmap.New[completionKey, store.Completion]()
		s.history[userID] = entries
	}
	if _, exists := entries.Get(key); exists {
		return nil
	}
	entries.Set(key, store.Completion{
		UserID:      userID,
		Code:        c,
		Program:     strings.TrimSpace(program),
		CompletedAt: s.now().UTC(),
	})
	return nil
}

func (s *Store) RemoveCompleted(ctx context.Context, userID, code, program string) error {
	c, p, err := store.CompletionKey(userID, code, program)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	entries, ok := s.history[userID]
	if !ok {
		return fmt.Errorf("completion %s for user %s: %w", c, userID, store.ErrNotFound)
	}
	if _, present := entries.Delete(completionKey{code: c, program: p}); !present {
		return fmt.Errorf("completion %s for user %s: %w", c, userID, store.ErrNotFound)
	}
	return nil
}

func (s *Store) UpdateCompleted(ctx context.Context, userID, code, program string, upd store.CompletionUpdate) (store.Completion, error) {
	c, p, err := store.CompletionKey(userID, code, program)
	if err != nil {
		return store.Completion{}, err
	}
	name, target, err := store.UpdateTarget(upd, program)
	if err != nil {
		return store.Completion{}, err
	}
	from := completionKey{code: c, program: p}
	to := completionKey{code: c, program: target}

	s.mu.Lock()
	defer s.mu.Unlock()
	entries, ok := s.history[userID]
	if !ok {
		return store.Completion{}, fmt.Errorf("completion %s for user %s: %w", c, userID, store.ErrNotFound)
	}
	current, ok := entries.Get(from)
	if !ok {
		return store.Completion{}, fmt.Errorf("completion %s for user %s: %w", c, userID, store.ErrNotFound)
	}
	if to != from {
		if _, taken := entries.Get(to); taken {
			return store.Completion{}, fmt.Errorf("completion %s for user %s in program %q: %w", c, userID, name, store.ErrConflict)
		}
	}

	updated := current
	if upd.Program != nil {
		updated.Program = name
	}
	if upd.CompletedAt != nil {
		updated.CompletedAt = upd.CompletedAt.UTC()
	}

	if to == from {
		entries.Set(from, updated)
		return updated, nil
	}
	// Rebuild so the renamed entry stays where it was.
	rekeyed := orderedmap.New[completionKey, store.Completion](entries.Len())
	for pair := entries.Oldest(); pair != nil; pair = pair.Next() {
		if pair.Key == from {
			rekeyed.Set(to, updated)
			continue
		}
		rekeyed.Set(pair.Key, pair.Value)
	}
	s.history[userID] = rekeyed
	return updated, nil
}

func (s *Store) History(ctx context.Context, userID, program string) ([]store.Completion, error) {
	filter := courseid.NormalizeProgram(program)

	s.mu.RLock()
	defer s.mu.RUnlock()
	entries, ok := s.history[userID]
	if !ok {
		return []store.Completion{}, nil
	}
	out := make([]store.Completion, 0, entries.Len())
	for pair := entries.Oldest(); pair != nil; pair = pair.Next() {
		if filter != "" && pair.Key.program != filter {
			continue
		}
		out = append(out, pair.Value)
	}
	return out, nil
}
