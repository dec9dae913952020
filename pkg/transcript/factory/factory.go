// Package factory selects the transcript driver from configuration.
package factory

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/papercomputeco/studybuddy/pkg/config"
	"github.com/papercomputeco/studybuddy/pkg/transcript"
	"github.com/papercomputeco/studybuddy/pkg/transcript/inmemory"
	"github.com/papercomputeco/studybuddy/pkg/transcript/postgres"
	"github.com/papercomputeco/studybuddy/pkg/transcript/sqlite"
)

// New opens the configured transcript archive. PostgreSQL wins over SQLite
// and the in-memory store is the fallback. A relative SQLite path is resolved
// against baseDir, normally the .studybuddy/ directory.
func New(ctx context.Context, cfg config.StorageConfig, baseDir string, log *slog.Logger) (transcript.Driver, error) {
	switch {
	case cfg.PostgresDSN != "":
		d, err := postgres.NewDriver(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("failed to create PostgreSQL transcript store: %w", err)
		}
		log.Info("using PostgreSQL transcript store")
		return d, nil

	case cfg.SQLitePath != "":
		path := ResolveSQLitePath(cfg.SQLitePath, baseDir)
		d, err := sqlite.NewDriver(ctx, path)
		if err != nil {
			return nil, fmt.Errorf("failed to create SQLite transcript store: %w", err)
		}
		log.Info("using SQLite transcript store", "path", path)
		return d, nil
	}

	log.Debug("using in-memory transcript store")
	return inmemory.NewDriver(), nil
}

// ResolveSQLitePath anchors a relative path at baseDir. Absolute paths,
// ":memory:" and file: URIs are returned unchanged.
func ResolveSQLitePath(path, baseDir string) string {
	if path == ":memory:" || filepath.IsAbs(path) || baseDir == "" || len(path) > 5 && path[:5] == "file:" {
		return path
	}
	return filepath.Join(baseDir, path)
}
