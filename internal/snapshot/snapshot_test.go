package snapshot

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/klauspost/compress/zstd"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/gradplan/internal/curriculum"
	"github.com/vk/gradplan/internal/testutil"
	"github.com/vmihailenco/msgpack/v5"
)

func sampleRecords() []curriculum.Record {
	return []curriculum.Record{
		{Code: "CS101", Name: "Intro", Credits: 4, Level: 1, Program: "Software"},
		{Code: "CS102", Name: "Data Structures", Credits: 3.5, Level: 2, Program: "Software", Requirements: "CS101, 20 CRED"},
	}
}

func TestEncodeDecode(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, sampleRecords()))

	snap, err := Decode(&buf)
	require.NoError(t, err)

	assert.Equal(t, FormatVersion, snap.Version)
	assert.WithinDuration(t, time.Now(), snap.CreatedAt, time.Minute)
	if diff := cmp.Diff(sampleRecords(), snap.Records); diff != "" {
		t.Errorf("records mismatch (-want +got):\n%s", diff)
	}
}

func TestDecode_Errors(t *testing.T) {
	t.Run("not zstd", func(t *testing.T) {
		_, err := Decode(bytes.NewReader([]byte("plain text")))
		assert.Error(t, err)
	})

	t.Run("unknown version", func(t *testing.T) {
		payload, err := msgpack.Marshal(&Snapshot{Version: 99})
		require.NoError(t, err)
		enc, err := zstd.NewWriter(nil)
		require.NoError(t, err)
		data := enc.EncodeAll(payload, nil)
		require.NoError(t, enc.Close())

		_, err = Decode(bytes.NewReader(data))
		assert.ErrorIs(t, err, ErrUnsupportedVersion)
	})
}

func TestWriteFileAndSource(t *testing.T) {
	ctx, logs := testutil.LoggerContext(t)
	path := filepath.Join(t.TempDir(), "catalog"+Ext)

	require.NoError(t, WriteFile(ctx, path, sampleRecords()))
	assert.Contains(t, logs.String(), "Catalog snapshot written.")

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temporary files must not be left behind")

	records, err := NewSource(path).Records(ctx)
	require.NoError(t, err)
	assert.Equal(t, sampleRecords(), records)

	g := curriculum.Build(context.Background(), records)
	assert.Equal(t, 1, g.EdgeCount())
}

func TestSource_MissingFile(t *testing.T) {
	_, err := NewSource(filepath.Join(t.TempDir(), "nope"+Ext)).Records(context.Background())
	assert.ErrorIs(t, err, os.ErrNotExist)
}
