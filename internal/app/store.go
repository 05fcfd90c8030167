package app

import (
	"context"
	"fmt"
	"strings"

	"github.com/vk/gradplan/internal/ctxlog"
	"github.com/vk/gradplan/internal/inmemorystore"
	"github.com/vk/gradplan/internal/store"
	"github.com/vk/gradplan/internal/store/pgstore"
	"github.com/vk/gradplan/internal/store/sqlitestore"
)

// openStore picks the store implementation from the database URL. The
// returned close function is never nil.
func openStore(ctx context.Context, databaseURL string) (store.Store, func() error, error) {
	logger := ctxlog.FromContext(ctx)
	noop := func() error { return nil }

	switch {
	case databaseURL == "" || databaseURL == "memory":
		logger.Debug("Using in-memory store.")
		return inmemorystore.New(), noop, nil

	case strings.HasPrefix(databaseURL, "postgres://"), strings.HasPrefix(databaseURL, "postgresql://"):
		logger.Debug("Opening PostgreSQL store.")
		s, err := pgstore.Open(ctx, databaseURL)
		if err != nil {
			return nil, noop, err
		}
		return s, s.Close, nil

	case strings.HasPrefix(databaseURL, "sqlite:"):
		dsn := strings.TrimPrefix(databaseURL, "sqlite:")
		if dsn == "" {
			return nil, noop, fmt.Errorf("sqlite database URL %q has no path", databaseURL)
		}
		logger.Debug("Opening SQLite store.", "dsn", dsn)
		s, err := sqlitestore.Open(ctx, dsn)
		if err != nil {
			return nil, noop, err
		}
		return s, s.Close, nil
	}

	return nil, noop, fmt.Errorf("unsupported database URL %q: use sqlite:PATH or postgres://", databaseURL)
}
