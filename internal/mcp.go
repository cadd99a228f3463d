package internal

import (
	"context"
	"log/slog"
	"os"

	"github.com/evmaki/pothos/internal/archive"
	"github.com/evmaki/pothos/internal/mcpserver"
)

// ServeMCP exposes the archive over MCP on stdin/stdout. Logs go to
// stderr since stdout carries the protocol.
func ServeMCP(_ context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	cfg := app.config
	logger := newLogger(cfg, os.Stderr)

	store, err := openArchive(cfg.Archive.Root)
	if err != nil {
		return err
	}

	logger.Info("MCP server starting", slog.String("archive_root", cfg.Archive.Root))
	srv := mcpserver.New(archive.NewService(store, nil), cfg.Archive.SensorLogName, app.version)
	return srv.ServeStdio()
}
