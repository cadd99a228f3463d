// Package frame identifies captured frames by the timestamp token that
// leads their filename (MM-DD-YYYY_HH:MM).
package frame

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"
	"time"
)

const (
	// Layout is the timestamp token written by the capture agent.
	Layout = "01-02-2006_15:04"
	// Ext is the extension of every raw and prepared frame.
	Ext = ".jpg"
)

// ErrNotFrame is returned by Parse for names without a frame token.
var ErrNotFrame = errors.New("not a frame name")

// ID is a frame's filename together with its parsed timestamp.
type ID struct {
	Name string
	Time time.Time
}

// Parse extracts the identifier from a frame filename. Anything after the
// fixed-width token and before the extension is kept in Name but ignored
// for ordering.
func Parse(name string) (ID, error) {
	if !strings.HasSuffix(name, Ext) {
		return ID{}, fmt.Errorf("%w: %s", ErrNotFrame, name)
	}
	stem := strings.TrimSuffix(name, Ext)
	if len(stem) < len(Layout) {
		return ID{}, fmt.Errorf("%w: %s", ErrNotFrame, name)
	}
	t, err := time.ParseInLocation(Layout, stem[:len(Layout)], time.Local)
	if err != nil {
		return ID{}, fmt.Errorf("%w: %s", ErrNotFrame, name)
	}
	return ID{Name: name, Time: t}, nil
}

// Token formats t the way the capture agent names frames.
func Token(t time.Time) string {
	return t.Format(Layout)
}

// NameAt returns the frame filename for a capture taken at t.
func NameAt(t time.Time) string {
	return Token(t) + Ext
}

// Stem is the filename without its extension.
func (id ID) Stem() string {
	return strings.TrimSuffix(id.Name, Ext)
}

// Date is the calendar day the frame was captured on.
func (id ID) Date() time.Time {
	return Day(id.Time)
}

// Day truncates t to midnight in t's location.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// Compare orders frames by capture time, then by name.
func Compare(a, b ID) int {
	if c := a.Time.Compare(b.Time); c != 0 {
		return c
	}
	return strings.Compare(a.Name, b.Name)
}

// Sort sorts ids in place, oldest first.
func Sort(ids []ID) {
	slices.SortFunc(ids, Compare)
}

// BatchName derives the video name of a batch from its first and last
// members.
func BatchName(first, last ID) string {
	return first.Stem() + "," + last.Stem()
}

// List returns every frame in dir, oldest first. Entries that are not
// frames are skipped.
func List(dir string) ([]ID, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("frame: list %s: %w", dir, err)
	}
	var out []ID
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		id, err := Parse(e.Name())
		if err != nil {
			continue
		}
		out = append(out, id)
	}
	Sort(out)
	return out, nil
}
