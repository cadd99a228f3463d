package video

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/evmaki/pothos/internal/apperr"
)

// EncodeRequest describes one encode over a numbered image sequence.
type EncodeRequest struct {
	Dir       string // directory holding the staged frames
	Pattern   string // printf-style sequence pattern, e.g. %06d.jpg
	Frames    int
	FrameRate int
	ShortEdge int // target short-edge height; 0 keeps the source size
	Output    string
}

// Encoder turns a staged frame sequence into a video file. It is treated
// as a black box with a single success/failure outcome.
type Encoder interface {
	Encode(ctx context.Context, req EncodeRequest) error
}

// FFmpeg runs the ffmpeg binary.
type FFmpeg struct {
	Binary  string
	Timeout time.Duration // zero means no limit
}

// NewFFmpeg returns an FFmpeg encoder. An empty binary means "ffmpeg" on PATH.
func NewFFmpeg(binary string, timeout time.Duration) *FFmpeg {
	if binary == "" {
		binary = "ffmpeg"
	}
	return &FFmpeg{Binary: binary, Timeout: timeout}
}

// Encode runs ffmpeg to completion. A missing binary, a non-zero exit or a
// timeout is reported as apperr.ErrEncoder.
func (f *FFmpeg) Encode(ctx context.Context, req EncodeRequest) error {
	bin, err := exec.LookPath(f.Binary)
	if err != nil {
		return fmt.Errorf("%w: %s not found: %v", apperr.ErrEncoder, f.Binary, err)
	}

	if f.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.Timeout)
		defer cancel()
	}

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, bin, Args(req)...)
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%w: %s: %v: %s", apperr.ErrEncoder, filepath.Base(bin), err, lastLine(stderr.String()))
	}
	return nil
}

// Args builds the ffmpeg command line: H.264, 8-bit 4:2:0, even dimensions.
func Args(req EncodeRequest) []string {
	return []string{
		"-hide_banner", "-loglevel", "error", "-y",
		"-framerate", strconv.Itoa(req.FrameRate),
		"-start_number", "0",
		"-i", filepath.Join(req.Dir, req.Pattern),
		"-vf", ScaleFilter(req.ShortEdge),
		"-c:v", "libx264",
		"-pix_fmt", "yuv420p",
		req.Output,
	}
}

// ScaleFilter scales the short edge to shortEdge pixels, keeping the
// aspect ratio and both dimensions even.
func ScaleFilter(shortEdge int) string {
	if shortEdge <= 0 {
		return "scale=trunc(iw/2)*2:trunc(ih/2)*2"
	}
	return fmt.Sprintf("scale='if(gt(iw,ih),-2,%d)':'if(gt(iw,ih),%d,-2)'", shortEdge, shortEdge)
}

func lastLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.LastIndexByte(s, '\n'); i >= 0 {
		return s[i+1:]
	}
	return s
}
