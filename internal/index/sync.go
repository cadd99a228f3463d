package index

import (
	"log/slog"

	"github.com/evmaki/pothos/internal/frame"
)

// Sync brings the prepared table in line with the prepared directory:
//   - frames on disk but not indexed are marked prepared
//   - index entries whose file is gone are removed
func Sync(db *DB, preparedDir string, logger *slog.Logger) error {
	ids, err := frame.List(preparedDir)
	if err != nil {
		return err
	}

	indexed, err := db.PreparedNames()
	if err != nil {
		return err
	}

	disk := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		disk[id.Name] = struct{}{}
		if _, ok := indexed[id.Name]; ok {
			continue
		}
		if err := db.MarkPrepared(id); err != nil {
			logger.Warn("sync: mark failed", slog.String("frame", id.Name), slog.String("error", err.Error()))
		} else {
			logger.Debug("sync: indexed", slog.String("frame", id.Name))
		}
	}

	for name := range indexed {
		if _, ok := disk[name]; ok {
			continue
		}
		if err := db.UnmarkPrepared(name); err != nil {
			logger.Warn("sync: delete failed", slog.String("frame", name), slog.String("error", err.Error()))
		} else {
			logger.Debug("sync: removed stale", slog.String("frame", name))
		}
	}

	return nil
}
