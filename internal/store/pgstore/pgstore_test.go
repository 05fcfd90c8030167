package pgstore

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/gradplan/internal/curriculum"
	"github.com/vk/gradplan/internal/store"
	"github.com/vk/gradplan/internal/store/storetest"
)

// TestStoreContract runs against a real database named by
// GRADPLAN_TEST_POSTGRES, e.g. postgres://localhost:5432/gradplan_test.
// The tables are truncated before every subtest.
func TestStoreContract(t *testing.T) {
	url := os.Getenv("GRADPLAN_TEST_POSTGRES")
	if url == "" {
		t.Skip("Integration test requires PostgreSQL database (set GRADPLAN_TEST_POSTGRES)")
	}

	ctx := context.Background()
	s, err := Open(ctx, url)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	storetest.Run(t, func(t *testing.T) store.Store {
		_, err := s.pool.Exec(ctx, `TRUNCATE courses, users, completed_courses RESTART IDENTITY`)
		require.NoError(t, err)
		return s
	})
}

func TestStore_ValidatesBeforeTouchingPool(t *testing.T) {
	ctx := context.Background()
	s := &Store{pool: nil}

	err := s.UpsertCourses(ctx, []curriculum.Record{{Code: " "}})
	assert.ErrorIs(t, err, store.ErrInvalidInput)

	assert.NoError(t, s.UpsertCourses(ctx, nil))
	assert.ErrorIs(t, s.SaveUser(ctx, store.User{}), store.ErrInvalidInput)
	assert.ErrorIs(t, s.AddCompleted(ctx, "u1", "", "Software"), store.ErrInvalidInput)
	assert.ErrorIs(t, s.RemoveCompleted(ctx, "", "CS101", "Software"), store.ErrInvalidInput)
}
