// Package video assembles a batch of prepared frames into a timelapse.
package video

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/evmaki/pothos/internal/apperr"
	"github.com/evmaki/pothos/internal/frame"
	"github.com/evmaki/pothos/internal/storage"
)

const (
	// Ext is the extension of every assembled video.
	Ext = ".mp4"

	DefaultFrameRate = 20
	DefaultShortEdge = 720

	stagePrefix  = ".staging-"
	stagePattern = "%06d" + frame.Ext
	stageOutput  = "out" + Ext
)

// Status tells a caller whether Assemble produced a new artifact.
type Status int

const (
	Created Status = iota
	AlreadyExists
)

func (s Status) String() string {
	if s == AlreadyExists {
		return "already_exists"
	}
	return "created"
}

// Result describes the artifact for a batch.
type Result struct {
	Name   string
	Path   string
	Status Status
}

// Options configures an Assembler.
type Options struct {
	FrameRate   int
	ShortEdge   int
	StagingRoot string
}

// Assembler stages a batch, runs the encoder and publishes the artifact.
type Assembler struct {
	enc    Encoder
	opts   Options
	logger *slog.Logger
}

// NewAssembler creates an Assembler. An empty StagingRoot means the
// system temp directory.
func NewAssembler(enc Encoder, opts Options, logger *slog.Logger) *Assembler {
	if opts.FrameRate <= 0 {
		opts.FrameRate = DefaultFrameRate
	}
	if opts.StagingRoot == "" {
		opts.StagingRoot = os.TempDir()
	}
	return &Assembler{enc: enc, opts: opts, logger: logger}
}

// Target returns the artifact name and path for a non-empty batch.
func Target(batch []frame.ID, destDir string) (string, string) {
	name := frame.BatchName(batch[0], batch[len(batch)-1])
	return name, filepath.Join(destDir, name+Ext)
}

// Assemble encodes batch (read from srcDir) into destDir. An artifact that
// already exists is left untouched and reported as AlreadyExists. The
// staging directory is gone when Assemble returns, whatever the outcome.
func (a *Assembler) Assemble(ctx context.Context, batch []frame.ID, srcDir, destDir string) (Result, error) {
	if len(batch) == 0 {
		return Result{}, apperr.ErrEmptyBatch
	}

	name, path := Target(batch, destDir)
	res := Result{Name: name, Path: path}

	exists, err := storage.Exists(path)
	if err != nil {
		return res, fmt.Errorf("video: stat %s: %w", path, err)
	}
	if exists {
		res.Status = AlreadyExists
		return res, nil
	}

	stage, err := a.stage()
	if err != nil {
		return res, err
	}
	defer func() {
		if rmErr := os.RemoveAll(stage); rmErr != nil {
			a.logger.Error("video: remove staging failed", slog.String("dir", stage), slog.String("error", rmErr.Error()))
		}
	}()

	for i, id := range batch {
		dst := filepath.Join(stage, fmt.Sprintf(stagePattern, i))
		if err := storage.CopyFile(filepath.Join(srcDir, id.Name), dst); err != nil {
			return res, fmt.Errorf("video: stage %s: %w", id.Name, err)
		}
	}

	out := filepath.Join(stage, stageOutput)
	req := EncodeRequest{
		Dir:       stage,
		Pattern:   stagePattern,
		Frames:    len(batch),
		FrameRate: a.opts.FrameRate,
		ShortEdge: a.opts.ShortEdge,
		Output:    out,
	}
	a.logger.Debug("video: encoding", slog.String("name", name), slog.Int("frames", len(batch)), slog.String("staging", stage))
	if err := a.enc.Encode(ctx, req); err != nil {
		if !errors.Is(err, apperr.ErrEncoder) {
			err = fmt.Errorf("%w: %w", apperr.ErrEncoder, err)
		}
		return res, err
	}

	if ok, _ := storage.Exists(out); !ok {
		return res, fmt.Errorf("%w: encoder produced no output", apperr.ErrEncoder)
	}
	if err := storage.MoveFile(out, path); err != nil {
		return res, fmt.Errorf("video: publish %s: %w", path, err)
	}

	res.Status = Created
	return res, nil
}

// stage creates a fresh staging directory owned by one Assemble call.
func (a *Assembler) stage() (string, error) {
	if err := os.MkdirAll(a.opts.StagingRoot, 0o755); err != nil {
		return "", fmt.Errorf("video: create staging root: %w", err)
	}
	dir := filepath.Join(a.opts.StagingRoot, stagePrefix+uuid.NewString())
	if err := os.Mkdir(dir, 0o755); err != nil {
		return "", fmt.Errorf("video: create staging: %w", err)
	}
	return dir, nil
}
