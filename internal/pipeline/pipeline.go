// Package pipeline runs one preparation pass: curate pending frames,
// assemble the trailing-window video and publish the results.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/evmaki/pothos/internal/apperr"
	"github.com/evmaki/pothos/internal/batch"
	"github.com/evmaki/pothos/internal/curate"
	"github.com/evmaki/pothos/internal/frame"
	"github.com/evmaki/pothos/internal/index"
	"github.com/evmaki/pothos/internal/models"
	"github.com/evmaki/pothos/internal/storage"
	"github.com/evmaki/pothos/internal/upload"
	"github.com/evmaki/pothos/internal/video"
)

// Paths are the directories and files one run reads and writes.
type Paths struct {
	Raw       string
	Prepared  string
	Rejected  string
	SensorLog string
}

// Options configures a Pipeline.
type Options struct {
	Paths         Paths
	RetentionDays int
	// Now supplies the reference time for the retention window.
	Now func() time.Time
}

// Pipeline wires the preparation stages together. Runs are strictly
// sequential; callers must not invoke Run concurrently.
type Pipeline struct {
	opts        Options
	classifier  *curate.Classifier
	transformer *curate.Transformer
	prepared    index.PreparedIndex
	assembler   *video.Assembler
	tracker     *upload.Tracker
	logger      *slog.Logger
}

// New creates a Pipeline. A nil tracker disables publishing.
func New(
	opts Options,
	classifier *curate.Classifier,
	transformer *curate.Transformer,
	prepared index.PreparedIndex,
	assembler *video.Assembler,
	tracker *upload.Tracker,
	logger *slog.Logger,
) *Pipeline {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.RetentionDays <= 0 {
		opts.RetentionDays = batch.DefaultRetentionDays
	}
	return &Pipeline{
		opts:        opts,
		classifier:  classifier,
		transformer: transformer,
		prepared:    prepared,
		assembler:   assembler,
		tracker:     tracker,
		logger:      logger,
	}
}

// Report summarises one run.
type Report struct {
	Accepted     int
	Rejected     int
	Skipped      int
	BatchSize    int
	Video        *video.Result
	Uploaded     int
	UploadFailed int
}

// Run performs one pass. Curation results are persisted before assembly,
// so an encoder failure (returned as an error matching apperr.ErrEncoder)
// never loses prepared frames. A failed assembly still publishes the
// frame backlog and the sensor log before the error is returned. Upload
// failures are counted, not returned.
func (p *Pipeline) Run(ctx context.Context) (Report, error) {
	var rep Report
	attempted := make(map[string]struct{})

	if err := p.curate(ctx, &rep, attempted); err != nil {
		return rep, err
	}

	res, err := p.assemble(ctx, &rep)
	if err != nil {
		if ctx.Err() == nil {
			p.publish(ctx, &rep, attempted, nil)
		}
		return rep, err
	}

	p.publish(ctx, &rep, attempted, res)

	p.logger.Info("prepare: run complete",
		slog.Int("accepted", rep.Accepted),
		slog.Int("rejected", rep.Rejected),
		slog.Int("batch", rep.BatchSize),
		slog.Int("uploaded", rep.Uploaded),
		slog.Int("upload_failed", rep.UploadFailed),
	)
	return rep, nil
}

func (p *Pipeline) curate(ctx context.Context, rep *Report, attempted map[string]struct{}) error {
	pending, err := batch.Pending(p.opts.Paths.Raw, p.prepared)
	if err != nil {
		return err
	}

	for _, id := range pending {
		if err := ctx.Err(); err != nil {
			return err
		}
		src := filepath.Join(p.opts.Paths.Raw, id.Name)

		img, err := curate.Decode(src)
		if err != nil {
			if !errors.Is(err, apperr.ErrDecode) {
				p.logger.Warn("curate: skipped", slog.String("frame", id.Name), slog.String("error", err.Error()))
				rep.Skipped++
				continue
			}
			p.logger.Warn("curate: undecodable", slog.String("frame", id.Name), slog.String("error", err.Error()))
			if err := p.reject(id); err != nil {
				return err
			}
			rep.Rejected++
			continue
		}

		verdict, stats := p.classifier.Evaluate(img)
		if verdict == curate.Reject {
			p.logger.Info("curate: rejected",
				slog.String("frame", id.Name),
				slog.Float64("var_r", stats.Variance[0]),
				slog.Float64("var_g", stats.Variance[1]),
				slog.Float64("var_b", stats.Variance[2]),
			)
			if err := p.reject(id); err != nil {
				return err
			}
			rep.Rejected++
			continue
		}

		dst := filepath.Join(p.opts.Paths.Prepared, id.Name)
		if err := p.transformer.Save(p.transformer.Transform(img), dst); err != nil {
			return fmt.Errorf("prepare %s: %w", id.Name, err)
		}
		if err := p.prepared.MarkPrepared(id); err != nil {
			return fmt.Errorf("prepare %s: mark: %w", id.Name, err)
		}
		rep.Accepted++
		p.logger.Info("curate: accepted", slog.String("frame", id.Name))

		p.send(ctx, rep, attempted, dst, models.CategoryFrame)
	}
	return nil
}

// reject moves a raw frame into the rejected directory.
func (p *Pipeline) reject(id frame.ID) error {
	src := filepath.Join(p.opts.Paths.Raw, id.Name)
	dst := filepath.Join(p.opts.Paths.Rejected, id.Name)
	if err := storage.MoveFile(src, dst); err != nil {
		return fmt.Errorf("reject %s: %w", id.Name, err)
	}
	return nil
}

func (p *Pipeline) assemble(ctx context.Context, rep *Report) (*video.Result, error) {
	members, err := batch.Select(p.opts.Paths.Prepared, p.opts.RetentionDays, p.opts.Now())
	if err != nil {
		return nil, err
	}
	rep.BatchSize = len(members)
	if len(members) == 0 {
		p.logger.Info("assemble: empty batch, skipped")
		return nil, nil
	}

	res, err := p.assembler.Assemble(ctx, members, p.opts.Paths.Prepared, p.opts.Paths.Prepared)
	if err != nil {
		p.logger.Error("assemble: failed", slog.String("video", res.Name), slog.String("error", err.Error()))
		return nil, err
	}
	rep.Video = &res
	p.logger.Info("assemble: done",
		slog.String("video", res.Name),
		slog.String("status", res.Status.String()),
		slog.Int("frames", len(members)),
	)
	return &res, nil
}

func (p *Pipeline) publish(ctx context.Context, rep *Report, attempted map[string]struct{}, res *video.Result) {
	if p.tracker == nil {
		return
	}

	ids, err := frame.List(p.opts.Paths.Prepared)
	if err != nil {
		p.logger.Warn("publish: list prepared failed", slog.String("error", err.Error()))
	}
	for _, id := range ids {
		path := filepath.Join(p.opts.Paths.Prepared, id.Name)
		if _, done := attempted[path]; done {
			continue
		}
		p.sendPending(ctx, rep, attempted, path, models.CategoryFrame)
	}

	if res != nil {
		if res.Status == video.Created {
			p.send(ctx, rep, attempted, res.Path, models.CategoryVideo)
		} else {
			p.sendPending(ctx, rep, attempted, res.Path, models.CategoryVideo)
		}
	}

	if ok, _ := storage.Exists(p.opts.Paths.SensorLog); ok {
		p.send(ctx, rep, attempted, p.opts.Paths.SensorLog, models.CategoryData)
	} else {
		p.logger.Warn("publish: sensor log missing", slog.String("path", p.opts.Paths.SensorLog))
	}
}

func (p *Pipeline) send(ctx context.Context, rep *Report, attempted map[string]struct{}, path string, category models.Category) {
	if p.tracker == nil {
		return
	}
	attempted[path] = struct{}{}
	if err := p.tracker.Send(ctx, path, category); err != nil {
		rep.UploadFailed++
		return
	}
	rep.Uploaded++
}

func (p *Pipeline) sendPending(ctx context.Context, rep *Report, attempted map[string]struct{}, path string, category models.Category) {
	attempted[path] = struct{}{}
	sent, err := p.tracker.SendPending(ctx, path, category)
	switch {
	case err != nil:
		rep.UploadFailed++
	case sent:
		rep.Uploaded++
	}
}
