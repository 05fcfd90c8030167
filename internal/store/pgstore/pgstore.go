// Package pgstore implements store.Store on PostgreSQL using a pgx
// connection pool.
package pgstore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/vk/gradplan/internal/courseid"
	"github.com/vk/gradplan/internal/curriculum"
	"github.com/vk/gradplan/internal/store"
)

// Store implements store.Store for PostgreSQL.
type Store struct {
	pool *pgxpool.Pool
	now  func() time.Time
}

var _ store.Store = (*Store)(nil)

// New wraps an existing pool. Call CreateTables before first use.
func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool, now: time.Now}
}

// Open connects to the database at url and creates the tables.
func Open(ctx context.Context, url string) (*Store, error) {
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}
	s := New(pool)
	if err := s.CreateTables(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

// Close releases the pool.
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

// CreateTables creates the schema if it does not exist yet.
func (s *Store) CreateTables(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS courses (
			id BIGSERIAL PRIMARY KEY,
			code TEXT NOT NULL,
			program TEXT NOT NULL,
			program_key TEXT NOT NULL,
			name TEXT NOT NULL DEFAULT '',
			credits DOUBLE PRECISION NOT NULL DEFAULT 0,
			level INTEGER NOT NULL DEFAULT 0,
			requirements TEXT NOT NULL DEFAULT '',
			UNIQUE (code, program_key)
		);
		CREATE INDEX IF NOT EXISTS idx_courses_program_key ON courses(program_key);
		CREATE TABLE IF NOT EXISTS users (
			id TEXT PRIMARY KEY,
			program TEXT NOT NULL DEFAULT '',
			student_code TEXT NOT NULL DEFAULT ''
		);
		CREATE TABLE IF NOT EXISTS completed_courses (
			id BIGSERIAL PRIMARY KEY,
			user_id TEXT NOT NULL,
			code TEXT NOT NULL,
			program TEXT NOT NULL,
			program_key TEXT NOT NULL,
			completed_at TIMESTAMPTZ NOT NULL,
			UNIQUE (user_id, code, program_key)
		);
	`)
	if err != nil {
		return fmt.Errorf("failed to create tables: %w", err)
	}
	return nil
}

func (s *Store) UpsertCourses(ctx context.Context, records []curriculum.Record) error {
	batch := &pgx.Batch{}
	for _, r := range records {
		n, err := store.NormalizeRecord(r)
		if err != nil {
			return err
		}
		batch.Queue(`
			INSERT INTO courses (code, program, program_key, name, credits, level, requirements)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			ON CONFLICT (code, program_key) DO UPDATE SET
				program = EXCLUDED.program,
				name = EXCLUDED.name,
				credits = EXCLUDED.credits,
				level = EXCLUDED.level,
				requirements = EXCLUDED.requirements
		`, n.Code, n.Program, courseid.NormalizeProgram(n.Program), n.Name, n.Credits, n.Level, n.Requirements)
	}
	if batch.Len() == 0 {
		return nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("failed to upsert courses: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit courses: %w", err)
	}
	return nil
}

func (s *Store) DeleteAllCourses(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM courses`); err != nil {
		return fmt.Errorf("failed to delete courses: %w", err)
	}
	return nil
}

func (s *Store) ListCourses(ctx context.Context, program string) ([]curriculum.Record, error) {
	query := `SELECT code, name, credits, level, program, requirements FROM courses`
	var args []any
	if key := courseid.NormalizeProgram(program); key != "" {
		query += ` WHERE program_key = $1`
		args = append(args, key)
	}
	query += ` ORDER BY id`

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list courses: %w", err)
	}
	defer rows.Close()

	out := []curriculum.Record{}
	for rows.Next() {
		var r curriculum.Record
		if err := rows.Scan(&r.Code, &r.Name, &r.Credits, &r.Level, &r.Program, &r.Requirements); err != nil {
			return nil, fmt.Errorf("failed to scan course row: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list courses: %w", err)
	}
	return out, nil
}

func (s *Store) Records(ctx context.Context) ([]curriculum.Record, error) {
	return s.ListCourses(ctx, "")
}

func (s *Store) Programs(ctx context.Context) ([]string, error) {
	rows, err := s.pool.Query(ctx, `SELECT program FROM courses ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list programs: %w", err)
	}
	names, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("failed to list programs: %w", err)
	}
	return store.DistinctPrograms(names), nil
}

func (s *Store) GetCourse(ctx context.Context, code, program string) (curriculum.Record, error) {
	var r curriculum.Record
	err := s.pool.QueryRow(ctx, `
		SELECT code, name, credits, level, program, requirements
		FROM courses
		WHERE code = $1 AND program_key = $2
	`, courseid.NormalizeCode(code), courseid.NormalizeProgram(program)).Scan(
		&r.Code, &r.Name, &r.Credits, &r.Level, &r.Program, &r.Requirements,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return curriculum.Record{}, fmt.Errorf("course %s in program %q: %w", courseid.NormalizeCode(code), program, store.ErrNotFound)
		}
		return curriculum.Record{}, fmt.Errorf("failed to load course: %w", err)
	}
	return r, nil
}

func (s *Store) GetUser(ctx context.Context, userID string) (store.User, error) {
	var u store.User
	err := s.pool.QueryRow(ctx, `SELECT id, program, student_code FROM users WHERE id = $1`, userID).
		Scan(&u.ID, &u.Program, &u.StudentCode)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return store.User{}, fmt.Errorf("user %s: %w", userID, store.ErrNotFound)
		}
		return store.User{}, fmt.Errorf("failed to load user: %w", err)
	}
	return u, nil
}

func (s *Store) SaveUser(ctx context.Context, user store.User) error {
	if strings.TrimSpace(user.ID) == "" {
		return fmt.Errorf("%w: user id is blank", store.ErrInvalidInput)
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO users (id, program, student_code) VALUES ($1, $2, $3)
		ON CONFLICT (id) DO UPDATE SET
			program = EXCLUDED.program,
			student_code = EXCLUDED.student_code
	`, user.ID, strings.TrimSpace(user.Program), user.StudentCode)
	if err != nil {
		return fmt.Errorf("failed to save user: %w", err)
	}
	return nil
}

func (s *Store) AddCompleted(ctx context.Context, userID, code, program string) error {
	c, p, err := store.CompletionKey(userID, code, program)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO completed_courses (user_id, code, program, program_key, completed_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (user_id, code, program_key) DO NOTHING
	`, userID, c, strings.TrimSpace(program), p, s.now().UTC())
	if err != nil {
		return fmt.Errorf("failed to add completed course: %w", err)
	}
	return nil
}

func (s *Store) RemoveCompleted(ctx context.Context, userID, code, program string) error {
	c, p, err := store.CompletionKey(userID, code, program)
	if err != nil {
		return err
	}
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM completed_courses WHERE user_id = $1 AND code = $2 AND program_key = $3`, userID, c, p)
	if err != nil {
		return fmt.Errorf("failed to remove completed course: %w", err)
	}
	if tag.RowsAffected() == 0 {
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

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return store.Completion{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var (
		id      int64
		current store.Completion
	)
	err = tx.QueryRow(ctx, `
		SELECT id, user_id, code, program, completed_at FROM completed_courses
		WHERE user_id = $1 AND code = $2 AND program_key = $3
		FOR UPDATE
	`, userID, c, p).Scan(&id, &current.UserID, &current.Code, &current.Program, &current.CompletedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return store.Completion{}, fmt.Errorf("completion %s for user %s: %w", c, userID, store.ErrNotFound)
		}
		return store.Completion{}, fmt.Errorf("failed to load completed course: %w", err)
	}
	current.CompletedAt = current.CompletedAt.UTC()

	if target != p {
		var taken bool
		err = tx.QueryRow(ctx, `
			SELECT EXISTS (SELECT 1 FROM completed_courses WHERE user_id = $1 AND code = $2 AND program_key = $3)
		`, userID, c, target).Scan(&taken)
		if err != nil {
			return store.Completion{}, fmt.Errorf("failed to check completed course: %w", err)
		}
		if taken {
			return store.Completion{}, fmt.Errorf("completion %s for user %s in program %q: %w", c, userID, name, store.ErrConflict)
		}
	}

	if upd.Program != nil {
		current.Program = name
	}
	if upd.CompletedAt != nil {
		current.CompletedAt = upd.CompletedAt.UTC()
	}
	_, err = tx.Exec(ctx,
		`UPDATE completed_courses SET program = $1, program_key = $2, completed_at = $3 WHERE id = $4`,
		current.Program, target, current.CompletedAt, id)
	if err != nil {
		return store.Completion{}, fmt.Errorf("failed to update completed course: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return store.Completion{}, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return current, nil
}

func (s *Store) History(ctx context.Context, userID, program string) ([]store.Completion, error) {
	query := `SELECT user_id, code, program, completed_at FROM completed_courses WHERE user_id = $1`
	args := []any{userID}
	if key := courseid.NormalizeProgram(program); key != "" {
		query += ` AND program_key = $2`
		args = append(args, key)
	}
	query += ` ORDER BY id`

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to load history: %w", err)
	}
	defer rows.Close()

	out := []store.Completion{}
	for rows.Next() {
		var c store.Completion
		if err := rows.Scan(&c.UserID, &c.Code, &c.Program, &c.CompletedAt); err != nil {
			return nil, fmt.Errorf("failed to scan history row: %w", err)
		}
		c.CompletedAt = c.CompletedAt.UTC()
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to load history: %w", err)
	}
	return out, nil
}
