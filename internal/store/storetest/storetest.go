// Package storetest is a behavioral test suite shared by every store.Store
// backend.
package storetest

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/gradplan/internal/curriculum"
	"github.com/vk/gradplan/internal/store"
)

// Factory returns a fresh, empty store for one subtest.
type Factory func(t *testing.T) store.Store

func catalog() []curriculum.Record {
	return []curriculum.Record{
		{Code: "CS101", Name: "Intro", Credits: 4, Level: 1, Program: "Software"},
		{Code: "CS102", Name: "Data Structures", Credits: 4, Level: 2, Program: "Software", Requirements: "CS101"},
		{Code: "MA101", Name: "Calculus", Credits: 5, Level: 1, Program: "Physics"},
		{Code: "CS101", Name: "Intro", Credits: 3, Level: 1, Program: "Hardware"},
	}
}

func codes(records []curriculum.Record) []string {
	out := make([]string, 0, len(records))
	for _, r := range records {
		out = append(out, r.Code+"|"+r.Program)
	}
	return out
}

// Run exercises the full store contract.
func Run(t *testing.T, newStore Factory) {
	t.Run("courses keep first insertion order", func(t *testing.T) {
		ctx := context.Background()
		s := newStore(t)
		require.NoError(t, s.UpsertCourses(ctx, catalog()))

		all, err := s.Records(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"CS101|Software", "CS102|Software", "MA101|Physics", "CS101|Hardware"}, codes(all))
		assert.Equal(t, "CS101", all[1].Requirements)
	})

	t.Run("upsert overwrites in place", func(t *testing.T) {
		ctx := context.Background()
		s := newStore(t)
		require.NoError(t, s.UpsertCourses(ctx, catalog()))
		require.NoError(t, s.UpsertCourses(ctx, []curriculum.Record{
			{Code: "cs101", Name: "Intro v2", Credits: 6, Level: 1, Program: "software"},
		}))

		all, err := s.ListCourses(ctx, "")
		require.NoError(t, err)
		require.Len(t, all, 4)
		assert.Equal(t, "Intro v2", all[0].Name)
		assert.Equal(t, 6.0, all[0].Credits)
	})

	t.Run("blank program defaults and blank code is rejected", func(t *testing.T) {
		ctx := context.Background()
		s := newStore(t)
		require.NoError(t, s.UpsertCourses(ctx, []curriculum.Record{{Code: "GE100", Name: "Writing"}}))

		rec, err := s.GetCourse(ctx, "GE100", "general")
		require.NoError(t, err)
		assert.Equal(t, "General", rec.Program)

		err = s.UpsertCourses(ctx, []curriculum.Record{{Code: "  ", Program: "Software"}})
		assert.ErrorIs(t, err, store.ErrInvalidInput)
	})

	t.Run("list filters by program case-insensitively", func(t *testing.T) {
		ctx := context.Background()
		s := newStore(t)
		require.NoError(t, s.UpsertCourses(ctx, catalog()))

		got, err := s.ListCourses(ctx, " SOFTWARE ")
		require.NoError(t, err)
		assert.Equal(t, []string{"CS101|Software", "CS102|Software"}, codes(got))

		got, err = s.ListCourses(ctx, "Unknown")
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("programs are distinct and sorted", func(t *testing.T) {
		ctx := context.Background()
		s := newStore(t)
		require.NoError(t, s.UpsertCourses(ctx, catalog()))

		programs, err := s.Programs(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"Hardware", "Physics", "Software"}, programs)
	})

	t.Run("get course", func(t *testing.T) {
		ctx := context.Background()
		s := newStore(t)
		require.NoError(t, s.UpsertCourses(ctx, catalog()))

		rec, err := s.GetCourse(ctx, "cs101", "hardware")
		require.NoError(t, err)
		assert.Equal(t, 3.0, rec.Credits)

		_, err = s.GetCourse(ctx, "CS999", "Software")
		assert.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("delete all courses", func(t *testing.T) {
		ctx := context.Background()
		s := newStore(t)
		require.NoError(t, s.UpsertCourses(ctx, catalog()))
		require.NoError(t, s.DeleteAllCourses(ctx))

		all, err := s.Records(ctx)
		require.NoError(t, err)
		assert.Empty(t, all)
	})

	t.Run("users", func(t *testing.T) {
		ctx := context.Background()
		s := newStore(t)

		_, err := s.GetUser(ctx, "u1")
		assert.ErrorIs(t, err, store.ErrNotFound)

		require.NoError(t, s.SaveUser(ctx, store.User{ID: "u1", Program: "Software", StudentCode: "2020-001"}))
		require.NoError(t, s.SaveUser(ctx, store.User{ID: "u1", Program: "Physics", StudentCode: "2020-001"}))

		u, err := s.GetUser(ctx, "u1")
		require.NoError(t, err)
		assert.Equal(t, store.User{ID: "u1", Program: "Physics", StudentCode: "2020-001"}, u)

		assert.ErrorIs(t, s.SaveUser(ctx, store.User{ID: " "}), store.ErrInvalidInput)
	})

	t.Run("history is idempotent and filterable", func(t *testing.T) {
		ctx := context.Background()
		s := newStore(t)

		require.NoError(t, s.AddCompleted(ctx, "u1", "cs101", "Software"))
		first, err := s.History(ctx, "u1", "")
		require.NoError(t, err)
		require.Len(t, first, 1)

		require.NoError(t, s.AddCompleted(ctx, "u1", "CS101", "software"))
		require.NoError(t, s.AddCompleted(ctx, "u1", "MA101", "Physics"))
		require.NoError(t, s.AddCompleted(ctx, "u2", "CS102", "Software"))

		all, err := s.History(ctx, "u1", "")
		require.NoError(t, err)
		require.Len(t, all, 2)
		assert.Equal(t, "CS101", all[0].Code)
		assert.Equal(t, "Software", all[0].Program)
		assert.Equal(t, "u1", all[0].UserID)
		assert.True(t, first[0].CompletedAt.Equal(all[0].CompletedAt), "repeated add must keep the first time")
		assert.WithinDuration(t, time.Now(), all[0].CompletedAt, time.Hour)

		software, err := s.History(ctx, "u1", "SOFTWARE")
		require.NoError(t, err)
		require.Len(t, software, 1)
		assert.Equal(t, "CS101", software[0].Code)

		none, err := s.History(ctx, "nobody", "")
		require.NoError(t, err)
		assert.Empty(t, none)
	})

	t.Run("remove completed", func(t *testing.T) {
		ctx := context.Background()
		s := newStore(t)
		require.NoError(t, s.AddCompleted(ctx, "u1", "CS101", "Software"))

		require.NoError(t, s.RemoveCompleted(ctx, "u1", "cs101", "SOFTWARE"))
		assert.ErrorIs(t, s.RemoveCompleted(ctx, "u1", "CS101", "Software"), store.ErrNotFound)

		all, err := s.History(ctx, "u1", "")
		require.NoError(t, err)
		assert.Empty(t, all)
	})

	t.Run("update completed keeps position", func(t *testing.T) {
		ctx := context.Background()
		s := newStore(t)
		require.NoError(t, s.AddCompleted(ctx, "u1", "CS101", "Software"))
		require.NoError(t, s.AddCompleted(ctx, "u1", "MA101", "Physics"))
		require.NoError(t, s.AddCompleted(ctx, "u1", "CS102", "Software"))

		when := time.Date(2021, time.March, 4, 10, 30, 0, 0, time.FixedZone("UTC-3", -3*60*60))
		hardware := "Hardware"

		updated, err := s.UpdateCompleted(ctx, "u1", "cs101", "SOFTWARE", store.CompletionUpdate{CompletedAt: &when})
		require.NoError(t, err)
		assert.Equal(t, "Software", updated.Program)
		assert.True(t, when.Equal(updated.CompletedAt))
		assert.Equal(t, time.UTC, updated.CompletedAt.Location())

		updated, err = s.UpdateCompleted(ctx, "u1", "CS101", "Software", store.CompletionUpdate{Program: &hardware})
		require.NoError(t, err)
		assert.Equal(t, "Hardware", updated.Program)
		assert.True(t, when.Equal(updated.CompletedAt), "a program move keeps the time")

		all, err := s.History(ctx, "u1", "")
		require.NoError(t, err)
		require.Len(t, all, 3)
		assert.Equal(t, []string{"CS101|Hardware", "MA101|Physics", "CS102|Software"},
			[]string{all[0].Code + "|" + all[0].Program, all[1].Code + "|" + all[1].Program, all[2].Code + "|" + all[2].Program})
		assert.True(t, when.Equal(all[0].CompletedAt))

		software, err := s.History(ctx, "u1", "Software")
		require.NoError(t, err)
		require.Len(t, software, 1)
		assert.Equal(t, "CS102", software[0].Code)
	})

	t.Run("update completed errors", func(t *testing.T) {
		ctx := context.Background()
		s := newStore(t)
		require.NoError(t, s.AddCompleted(ctx, "u1", "CS101", "Software"))
		require.NoError(t, s.AddCompleted(ctx, "u1", "CS101", "Hardware"))

		blank := "  "
		hardware := "hardware"
		testCases := []struct {
			name    string
			userID  string
			code    string
			program string
			upd     store.CompletionUpdate
			err     error
		}{
			{"unknown user", "nobody", "CS101", "Software", store.CompletionUpdate{}, store.ErrNotFound},
			{"unknown completion", "u1", "MA101", "Physics", store.CompletionUpdate{}, store.ErrNotFound},
			{"blank code", "u1", "", "Software", store.CompletionUpdate{}, store.ErrInvalidInput},
			{"blank target program", "u1", "CS101", "Software", store.CompletionUpdate{Program: &blank}, store.ErrInvalidInput},
			{"target already completed", "u1", "CS101", "Software", store.CompletionUpdate{Program: &hardware}, store.ErrConflict},
		}
		for _, tc := range testCases {
			t.Run(tc.name, func(t *testing.T) {
				_, err := s.UpdateCompleted(ctx, tc.userID, tc.code, tc.program, tc.upd)
				assert.ErrorIs(t, err, tc.err)
			})
		}

		all, err := s.History(ctx, "u1", "")
		require.NoError(t, err)
		require.Len(t, all, 2)
		assert.Equal(t, "Software", all[0].Program)
		assert.Equal(t, "Hardware", all[1].Program)
	})

	t.Run("history input validation", func(t *testing.T) {
		ctx := context.Background()
		s := newStore(t)
		assert.ErrorIs(t, s.AddCompleted(ctx, "", "CS101", "Software"), store.ErrInvalidInput)
		assert.ErrorIs(t, s.AddCompleted(ctx, "u1", "", "Software"), store.ErrInvalidInput)
		assert.ErrorIs(t, s.AddCompleted(ctx, "u1", "CS101", " "), store.ErrInvalidInput)
		assert.ErrorIs(t, s.RemoveCompleted(ctx, "u1", "", "Software"), store.ErrInvalidInput)
	})
}
