package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/gradplan/internal/curriculum"
)

func TestNormalizeRecord(t *testing.T) {
	rec, err := NormalizeRecord(curriculum.Record{Code: " cs101 ", Program: " Software "})
	require.NoError(t, err)
	assert.Equal(t, "CS101", rec.Code)
	assert.Equal(t, "Software", rec.Program)

	rec, err = NormalizeRecord(curriculum.Record{Code: "CS101"})
	require.NoError(t, err)
	assert.Equal(t, "General", rec.Program)

	_, err = NormalizeRecord(curriculum.Record{Code: " "})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestCompletionKey(t *testing.T) {
	code, program, err := CompletionKey("u1", " cs101", " Software ")
	require.NoError(t, err)
	assert.Equal(t, "CS101", code)
	assert.Equal(t, "software", program)

	testCases := []struct {
		name                string
		user, code, program string
	}{
		{"blank user", " ", "CS101", "Software"},
		{"blank code", "u1", "", "Software"},
		{"blank program", "u1", "CS101", ""},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := CompletionKey(tc.user, tc.code, tc.program)
			assert.ErrorIs(t, err, ErrInvalidInput)
		})
	}
}

func TestDistinctPrograms(t *testing.T) {
	got := DistinctPrograms([]string{"software", "Physics", " Software", "", "art"})
	assert.Equal(t, []string{"art", "Physics", "software"}, got)
}

func TestUpdateTarget(t *testing.T) {
	moved := " Hardware "
	blank := ""
	testCases := []struct {
		name         string
		upd          CompletionUpdate
		expectedName string
		expectedKey  string
		err          error
	}{
		{"program unchanged", CompletionUpdate{}, "Software", "software", nil},
		{"program moved", CompletionUpdate{Program: &moved}, "Hardware", "hardware", nil},
		{"blank program", CompletionUpdate{Program: &blank}, "", "", ErrInvalidInput},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			name, key, err := UpdateTarget(tc.upd, " Software")
			if tc.err != nil {
				assert.ErrorIs(t, err, tc.err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.expectedName, name)
			assert.Equal(t, tc.expectedKey, key)
		})
	}
}
