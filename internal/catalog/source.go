package catalog

import (
	"context"

	"github.com/vk/gradplan/internal/curriculum"
)

// Source provides course records.
type Source interface {
	Records(ctx context.Context) ([]curriculum.Record, error)
}

// Static is a Source backed by an in-memory slice.
type Static []curriculum.Record

// Records implements Source.
func (s Static) Records(context.Context) ([]curriculum.Record, error) {
	out := make([]curriculum.Record, len(s))
	copy(out, s)
	return out, nil
}

// SourceFunc adapts a function to the Source interface.
type SourceFunc func(ctx context.Context) ([]curriculum.Record, error)

// Records implements Source.
func (f SourceFunc) Records(ctx context.Context) ([]curriculum.Record, error) {
	return f(ctx)
}
