// Package snapshot stores a catalog as a compact binary file: msgpack
// encoded records inside a zstd stream. Snapshots are written with
// -export-snapshot and load faster than re-parsing HCL or CSV sources.
package snapshot

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/klauspost/compress/zstd"
	"github.com/vk/gradplan/internal/ctxlog"
	"github.com/vk/gradplan/internal/curriculum"
	"github.com/vmihailenco/msgpack/v5"
)

// FormatVersion is written into every snapshot.
const FormatVersion = 1

// Ext is the file extension used for snapshots.
const Ext = ".snapshot"

// ErrUnsupportedVersion is returned when a snapshot was written by an
// incompatible format version.
var ErrUnsupportedVersion = errors.New("unsupported snapshot version")

// Snapshot is the decoded file content.
type Snapshot struct {
	Version   int                 `msgpack:"version"`
	CreatedAt time.Time           `msgpack:"created_at"`
	Records   []curriculum.Record `msgpack:"records"`
}

// Encode writes records to w.
func Encode(w io.Writer, records []curriculum.Record) error {
	enc, err := zstd.NewWriter(w)
	if err != nil {
		return fmt.Errorf("compression setup failed: %w", err)
	}

	snap := Snapshot{Version: FormatVersion, CreatedAt: time.Now().UTC(), Records: records}
	if err := msgpack.NewEncoder(enc).Encode(&snap); err != nil {
		enc.Close()
		return fmt.Errorf("codec encoding failed: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("compression failed: %w", err)
	}
	return nil
}

// Decode reads a snapshot from r.
func Decode(r io.Reader) (*Snapshot, error) {
	dec, err := zstd.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("decompression setup failed: %w", err)
	}
	defer dec.Close()

	var snap Snapshot
	if err := msgpack.NewDecoder(dec).Decode(&snap); err != nil {
		return nil, fmt.Errorf("codec decoding failed: %w", err)
	}
	if snap.Version != FormatVersion {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, snap.Version)
	}
	return &snap, nil
}

// WriteFile writes records to path atomically by renaming a temporary
// file into place.
func WriteFile(ctx context.Context, path string, records []curriculum.Record) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create snapshot %s: %w", path, err)
	}
	defer os.Remove(tmp.Name())

	if err := Encode(tmp, records); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write snapshot %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write snapshot %s: %w", path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to write snapshot %s: %w", path, err)
	}

	ctxlog.FromContext(ctx).Info("Catalog snapshot written.", "path", path, "records", len(records))
	return nil
}

// Source is a catalog.Source reading a snapshot file.
type Source struct {
	path string
}

// NewSource returns a source for the snapshot at path.
func NewSource(path string) *Source {
	return &Source{path: path}
}

// Records implements catalog.Source.
func (s *Source) Records(ctx context.Context) ([]curriculum.Record, error) {
	f, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("failed to open snapshot %s: %w", s.path, err)
	}
	defer f.Close()

	snap, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot %s: %w", s.path, err)
	}
	ctxlog.FromContext(ctx).Debug("Catalog snapshot loaded.",
		"path", s.path, "records", len(snap.Records), "created_at", snap.CreatedAt)
	return snap.Records, nil
}
