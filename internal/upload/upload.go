// Package upload delivers prepared frames, videos and the sensor log to the
// archive server and optional mirrors.
package upload

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/evmaki/pothos/internal/checksum"
	"github.com/evmaki/pothos/internal/index"
	"github.com/evmaki/pothos/internal/models"
)

// Uploader sends one local file to a sink under the given category.
type Uploader interface {
	Upload(ctx context.Context, path string, category models.Category) error
}

// Multi fans an upload out to every sink in order. All sinks are tried;
// their errors are joined.
type Multi []Uploader

func (m Multi) Upload(ctx context.Context, path string, category models.Category) error {
	var errs []error
	for _, u := range m {
		if err := u.Upload(ctx, path, category); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Tracker uploads files at most once per content, consulting a ledger.
type Tracker struct {
	up     Uploader
	ledger index.UploadLedger
	logger *slog.Logger
}

func NewTracker(up Uploader, ledger index.UploadLedger, logger *slog.Logger) *Tracker {
	return &Tracker{up: up, ledger: ledger, logger: logger}
}

// Pending reports whether the file at path has not been delivered with its
// current content.
func (t *Tracker) Pending(path string, category models.Category) (bool, error) {
	sum, err := checksum.File(path)
	if err != nil {
		return false, err
	}
	sent, err := t.ledger.Sent(filepath.Base(path), category, sum)
	if err != nil {
		return false, err
	}
	return !sent, nil
}

// Send uploads path unconditionally and records it in the ledger on success.
func (t *Tracker) Send(ctx context.Context, path string, category models.Category) error {
	sum, err := checksum.File(path)
	if err != nil {
		return err
	}
	name := filepath.Base(path)
	if err := t.up.Upload(ctx, path, category); err != nil {
		t.logger.Warn("upload failed",
			slog.String("name", name),
			slog.String("category", string(category)),
			slog.String("error", err.Error()),
		)
		return err
	}
	if err := t.ledger.MarkSent(name, category, sum); err != nil {
		return fmt.Errorf("upload: record %s: %w", name, err)
	}
	t.logger.Info("uploaded", slog.String("name", name), slog.String("category", string(category)))
	return nil
}

// SendPending uploads path only if the ledger has no record of its current
// content. It reports whether an upload was attempted.
func (t *Tracker) SendPending(ctx context.Context, path string, category models.Category) (bool, error) {
	pending, err := t.Pending(path, category)
	if err != nil || !pending {
		return false, err
	}
	return true, t.Send(ctx, path, category)
}
