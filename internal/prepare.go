package internal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/evmaki/pothos/internal/apperr"
	"github.com/evmaki/pothos/internal/batch"
	"github.com/evmaki/pothos/internal/curate"
	"github.com/evmaki/pothos/internal/index"
	"github.com/evmaki/pothos/internal/pipeline"
	"github.com/evmaki/pothos/internal/upload"
	"github.com/evmaki/pothos/internal/video"
)

// Prepare runs the preparation pipeline once, or with WithWatch(true)
// once and again after every burst of new frames until interrupted.
func Prepare(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	cfg := app.config
	logger := newLogger(cfg, os.Stdout)

	for _, dir := range []string{cfg.Paths.Frames, cfg.Paths.Prepared, cfg.Paths.Rejected} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}
	}

	db, err := index.Open(cfg.Index.Path)
	if err != nil {
		return fmt.Errorf("init index: %w", err)
	}
	defer db.Close()

	var prepared index.PreparedIndex = batch.DirSet{Dir: cfg.Paths.Prepared}
	if cfg.Index.PreparedSource == PreparedSourceDB {
		if err := index.Sync(db, cfg.Paths.Prepared, logger); err != nil {
			logger.Warn("initial sync failed", slog.String("error", err.Error()))
		}
		prepared = db
	}

	uploader, err := newUploader(ctx, cfg)
	if err != nil {
		return err
	}
	var tracker *upload.Tracker
	if uploader != nil {
		tracker = upload.NewTracker(uploader, db, logger)
	} else {
		logger.Info("uploads disabled: no upload.url or upload.s3 configured")
	}

	roi := cfg.Curation.ROI.Rect()
	p := pipeline.New(
		pipeline.Options{
			Paths: pipeline.Paths{
				Raw:       cfg.Paths.Frames,
				Prepared:  cfg.Paths.Prepared,
				Rejected:  cfg.Paths.Rejected,
				SensorLog: cfg.Paths.SensorLog,
			},
			RetentionDays: cfg.Curation.RetentionDays,
		},
		curate.NewClassifier(roi, cfg.Curation.VarianceThreshold),
		curate.NewTransformer(roi, cfg.Curation.Contrast, cfg.Curation.GreenScale, cfg.Curation.JPEGQuality),
		prepared,
		video.NewAssembler(
			video.NewFFmpeg(cfg.Video.FFmpegPath, cfg.Video.Timeout),
			video.Options{
				FrameRate:   cfg.Video.FrameRate,
				ShortEdge:   cfg.Video.ShortEdge,
				StagingRoot: cfg.Video.StagingRoot,
			},
			logger,
		),
		tracker,
		logger,
	)

	if !app.watch {
		_, err := p.Run(ctx)
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gCtx := errgroup.WithContext(ctx)
	trigger := make(chan struct{}, 1)

	// Start file watcher on the raw frame directory.
	g.Go(func() error {
		return index.Watch(gCtx, cfg.Paths.Frames, cfg.Watch.Debounce, logger, func() {
			select {
			case trigger <- struct{}{}:
			default:
			}
		})
	})

	// Runs never overlap: one loop owns the pipeline.
	g.Go(func() error {
		for {
			if _, err := p.Run(gCtx); err != nil {
				if errors.Is(err, context.Canceled) {
					return nil
				}
				logger.Error("prepare run failed",
					slog.String("error", err.Error()),
					slog.Bool("encoder", errors.Is(err, apperr.ErrEncoder)),
				)
			}
			select {
			case <-gCtx.Done():
				return nil
			case <-trigger:
			}
		}
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	logger.Info("Watcher stopped")
	return nil
}

// newUploader combines the configured sinks; nil means none.
func newUploader(ctx context.Context, cfg *Config) (upload.Uploader, error) {
	var sinks upload.Multi
	if cfg.Upload.URL != "" {
		sinks = append(sinks, upload.NewHTTPClient(cfg.Upload.URL, cfg.Upload.Password, cfg.Upload.Timeout))
	}
	if cfg.Upload.S3.Enabled {
		s3cfg := cfg.Upload.S3
		mirror, err := upload.NewS3Mirror(ctx, upload.S3Options{
			Bucket:          s3cfg.Bucket,
			Prefix:          s3cfg.Prefix,
			Region:          s3cfg.Region,
			Endpoint:        s3cfg.Endpoint,
			AccessKeyID:     s3cfg.AccessKeyID,
			SecretAccessKey: s3cfg.SecretAccessKey,
		})
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, mirror)
	}
	if len(sinks) == 0 {
		return nil, nil
	}
	return sinks, nil
}
