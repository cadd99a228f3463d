// Package batch selects the frames that make up the next timelapse video.
package batch

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/evmaki/pothos/internal/frame"
	"github.com/evmaki/pothos/internal/index"
	"github.com/evmaki/pothos/internal/storage"
)

// DefaultRetentionDays is the width of the trailing window a video covers.
const DefaultRetentionDays = 7

// Window is the half-open day range [Start, End) a batch is drawn from.
type Window struct {
	Start time.Time
	End   time.Time
}

// WindowAt returns the retention window ending at the start of ref's day.
// Frames captured on ref's own day fall outside it.
func WindowAt(ref time.Time, days int) Window {
	end := frame.Day(ref.In(time.Local))
	return Window{Start: end.AddDate(0, 0, -days), End: end}
}

// Contains reports whether the frame's capture date lies in the window.
func (w Window) Contains(id frame.ID) bool {
	d := id.Date()
	return !d.Before(w.Start) && d.Before(w.End)
}

// Select returns the frames in dir captured within the last days days
// before ref, oldest first.
func Select(dir string, days int, ref time.Time) ([]frame.ID, error) {
	ids, err := frame.List(dir)
	if err != nil {
		return nil, fmt.Errorf("batch: select: %w", err)
	}
	w := WindowAt(ref, days)
	out := make([]frame.ID, 0, len(ids))
	for _, id := range ids {
		if w.Contains(id) {
			out = append(out, id)
		}
	}
	return out, nil
}

// Pending returns the raw frames in rawDir that have no prepared
// counterpart yet, oldest first.
func Pending(rawDir string, prepared index.PreparedIndex) ([]frame.ID, error) {
	ids, err := frame.List(rawDir)
	if err != nil {
		return nil, fmt.Errorf("batch: pending: %w", err)
	}
	var out []frame.ID
	for _, id := range ids {
		ok, err := prepared.IsPrepared(id)
		if err != nil {
			return nil, fmt.Errorf("batch: pending %s: %w", id.Name, err)
		}
		if !ok {
			out = append(out, id)
		}
	}
	return out, nil
}

// DirSet treats the presence of a same-named file in the prepared
// directory as the prepared marker.
type DirSet struct {
	Dir string
}

var _ index.PreparedIndex = DirSet{}

// IsPrepared reports whether the prepared copy exists on disk.
func (s DirSet) IsPrepared(id frame.ID) (bool, error) {
	return storage.Exists(filepath.Join(s.Dir, id.Name))
}

// MarkPrepared is a no-op: writing the prepared file is the mark.
func (s DirSet) MarkPrepared(frame.ID) error {
	return nil
}
