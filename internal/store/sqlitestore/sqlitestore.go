// Package sqlitestore implements store.Store on SQLite through the pure-Go
// modernc.org/sqlite driver.
package sqlitestore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/vk/gradplan/internal/courseid"
	"github.com/vk/gradplan/internal/curriculum"
	"github.com/vk/gradplan/internal/store"
	_ "modernc.org/sqlite"
)

// Store implements store.Store for SQLite.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

var _ store.Store = (*Store)(nil)

// New wraps an open database. Call CreateTables before first use.
func New(db *sql.DB) *Store {
	return &Store{db: db, now: time.Now}
}

// Open opens the database at dsn and creates the tables. ":memory:" gives
// a private in-memory database.
func Open(ctx context.Context, dsn string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}
	// An in-memory database exists per connection.
	if dsn == ":memory:" || strings.Contains(dsn, "mode=memory") {
		db.SetMaxOpenConns(1)
	}
	s := New(db)
	if err := s.CreateTables(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// CreateTables creates the schema if it does not exist yet.
func (s *Store) CreateTables(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS courses (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			code TEXT NOT NULL,
			program TEXT NOT NULL,
			program_key TEXT NOT NULL,
			name TEXT NOT NULL DEFAULT '',
			credits REAL NOT NULL DEFAULT 0,
			level INTEGER NOT NULL DEFAULT 0,
			requirements TEXT NOT NULL DEFAULT '',
			UNIQUE (code, program_key)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_courses_program_key ON courses(program_key)`,
		`CREATE TABLE IF NOT EXISTS users (
			id TEXT PRIMARY KEY,
			program TEXT NOT NULL DEFAULT '',
			student_code TEXT NOT NULL DEFAULT ''
		)`,
		`CREATE TABLE IF NOT EXISTS completed_courses (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			user_id TEXT NOT NULL,
			code TEXT NOT NULL,
			program TEXT NOT NULL,
			program_key TEXT NOT NULL,
			completed_at INTEGER NOT NULL,
			UNIQUE (user_id, code, program_key)
		)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to create tables: %w", err)
		}
	}
	return nil
}

func (s *Store) UpsertCourses(ctx context.Context, records []curriculum.Record) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO courses (code, program, program_key, name, credits, level, requirements)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (code, program_key) DO UPDATE SET
			program = excluded.program,
			name = excluded.name,
			credits = excluded.credits,
			level = excluded.level,
			requirements = excluded.requirements
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare course upsert: %w", err)
	}
	defer stmt.Close()

	for _, r := range records {
		n, err := store.NormalizeRecord(r)
		if err != nil {
			return err
		}
		_, err = stmt.ExecContext(ctx, n.Code, n.Program, courseid.NormalizeProgram(n.Program),
			n.Name, n.Credits, n.Level, n.Requirements)
		if err != nil {
			return fmt.Errorf("failed to upsert course %s: %w", n.Code, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit courses: %w", err)
	}
	return nil
}

func (s *Store) DeleteAllCourses(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM courses`); err != nil {
		return fmt.Errorf("failed to delete courses: %w", err)
	}
	return nil
}

func (s *Store) ListCourses(ctx context.Context, program string) ([]curriculum.Record, error) {
	query := `SELECT code, name, credits, level, program, requirements FROM courses`
	var args []any
	if key := courseid.NormalizeProgram(program); key != "" {
		query += ` WHERE program_key = ?`
		args = append(args, key)
	}
	query += ` ORDER BY id`

	rows, err := s.db.QueryContext(ctx, query, args...)
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
	rows, err := s.db.QueryContext(ctx, `SELECT program FROM courses ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list programs: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan program row: %w", err)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list programs: %w", err)
	}
	return store.DistinctPrograms(names), nil
}

func (s *Store) GetCourse(ctx context.Context, code, program string) (curriculum.Record, error) {
	var r curriculum.Record
	err := s.db.QueryRowContext(ctx, `
		SELECT code, name, credits, level, program, requirements
		FROM courses
		WHERE code = ? AND program_key = ?
	`, courseid.NormalizeCode(code), courseid.NormalizeProgram(program)).Scan(
		&r.Code, &r.Name, &r.Credits, &r.Level, &r.Program, &r.Requirements,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return curriculum.Record{}, fmt.Errorf("course %s in program %q: %w", courseid.NormalizeCode(code), program, store.ErrNotFound)
		}
		return curriculum.Record{}, fmt.Errorf("failed to load course: %w", err)
	}
	return r, nil
}

func (s *Store) GetUser(ctx context.Context, userID string) (store.User, error) {
	var u store.User
	err := s.db.QueryRowContext(ctx, `SELECT id, program, student_code FROM users WHERE id = ?`, userID).
		Scan(&u.ID, &u.Program, &u.StudentCode)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
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
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (id, program, student_code) VALUES (?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			program = excluded.program,
			student_code = excluded.student_code
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
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO completed_courses (user_id, code, program, program_key, completed_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (user_id, code, program_key) DO NOTHING
	`, userID, c, strings.TrimSpace(program), p, s.now().UTC().UnixNano())
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
	result, err := s.db.ExecContext(ctx,
		`DELETE FROM completed_courses WHERE user_id = ? AND code = ? AND program_key = ?`, userID, c, p)
	if err != nil {
		return fmt.Errorf("failed to remove completed course: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
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

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return store.Completion{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var (
		id      int64
		current store.Completion
		nanos   int64
	)
	err = tx.QueryRowContext(ctx, `
		SELECT id, user_id, code, program, completed_at FROM completed_courses
		WHERE user_id = ? AND code = ? AND program_key = ?
	`, userID, c, p).Scan(&id, &current.UserID, &current.Code, &current.Program, &nanos)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return store.Completion{}, fmt.Errorf("completion %s for user %s: %w", c, userID, store.ErrNotFound)
		}
		return store.Completion{}, fmt.Errorf("failed to load completed course: %w", err)
	}
	current.CompletedAt = time.Unix(0, nanos).UTC()

	if target != p {
		var taken int
		err = tx.QueryRowContext(ctx, `
			SELECT COUNT(*) FROM completed_courses WHERE user_id = ? AND code = ? AND program_key = ?
		`, userID, c, target).Scan(&taken)
		if err != nil {
			return store.Completion{}, fmt.Errorf("failed to check completed course: %w", err)
		}
		if taken > 0 {
			return store.Completion{}, fmt.Errorf("completion %s for user %s in program %q: %w", c, userID, name, store.ErrConflict)
		}
	}

	if upd.Program != nil {
		current.Program = name
	}
	if upd.CompletedAt != nil {
		current.CompletedAt = upd.CompletedAt.UTC()
	}
	_, err = tx.ExecContext(ctx,
		`UPDATE completed_courses SET program = ?, program_key = ?, completed_at = ? WHERE id = ?`,
		current.Program, target, current.CompletedAt.UnixNano(), id)
	if err != nil {
		return store.Completion{}, fmt.Errorf("failed to update completed course: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return store.Completion{}, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return current, nil
}

func (s *Store) History(ctx context.Context, userID, program string) ([]store.Completion, error) {
	query := `SELECT user_id, code, program, completed_at FROM completed_courses WHERE user_id = ?`
	args := []any{userID}
	if key := courseid.NormalizeProgram(program); key != "" {
		query += ` AND program_key = ?`
		args = append(args, key)
	}
	query += ` ORDER BY id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to load history: %w", err)
	}
	defer rows.Close()

	out := []store.Completion{}
	for rows.Next() {
		var (
			c     store.Completion
			nanos int64
		)
		if err := rows.Scan(&c.UserID, &c.Code, &c.Program, &nanos); err != nil {
			return nil, fmt.Errorf("failed to scan history row: %w", err)
		}
		c.CompletedAt = time.Unix(0, nanos).UTC()
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to load history: %w", err)
	}
	return out, nil
}
