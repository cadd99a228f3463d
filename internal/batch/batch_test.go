package batch

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/evmaki/pothos/internal/frame"
)

func touch(t *testing.T, dir string, names ...string) {
	t.Helper()
	for _, n := range names {
		if err := os.WriteFile(filepath.Join(dir, n), []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
}

func names(ids []frame.ID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.Name
	}
	return out
}

func ref(month time.Month, day, hour int) time.Time {
	return time.Date(2024, month, day, hour, 0, 0, 0, time.Local)
}

func TestSelectSingleFrameScenario(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "06-01-2024_11:00.jpg")

	ids, err := Select(dir, DefaultRetentionDays, ref(time.June, 2, 0))
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	got := names(ids)
	if len(got) != 1 || got[0] != "06-01-2024_11:00.jpg" {
		t.Errorf("Select = %v", got)
	}
}

func TestSelectWindowIsHalfOpen(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir,
		"05-25-2024_23:59.jpg", // day before the window
		"05-26-2024_00:00.jpg", // first day of the window
		"06-01-2024_23:59.jpg", // last day of the window
		"06-02-2024_00:00.jpg", // reference day, excluded
		"06-02-2024_09:00.jpg",
	)

	ids, err := Select(dir, 7, ref(time.June, 2, 15))
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	got := names(ids)
	want := []string{"05-26-2024_00:00.jpg", "06-01-2024_23:59.jpg"}
	if len(got) != len(want) {
		t.Fatalf("Select = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Select[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestSelectOrdersChronologicallyAcrossYearBoundary(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "01-01-2025_08:00.jpg", "12-30-2024_08:00.jpg", "12-31-2024_08:00.jpg")

	ids, err := Select(dir, 7, time.Date(2025, time.January, 3, 0, 0, 0, 0, time.Local))
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	got := names(ids)
	want := []string{"12-30-2024_08:00.jpg", "12-31-2024_08:00.jpg", "01-01-2025_08:00.jpg"}
	for i := range want {
		if i >= len(got) || got[i] != want[i] {
			t.Fatalf("Select = %v, want %v", got, want)
		}
	}
}

func TestSelectEmpty(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "01-01-2020_08:00.jpg", "data.json")
	ids, err := Select(dir, 7, ref(time.June, 2, 0))
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if len(ids) != 0 {
		t.Errorf("Select = %v, want empty", names(ids))
	}
}

func TestPendingSkipsPrepared(t *testing.T) {
	raw := t.TempDir()
	prepared := t.TempDir()
	touch(t, raw, "06-01-2024_10:00.jpg", "06-01-2024_11:00.jpg")
	touch(t, prepared, "06-01-2024_11:00.jpg")

	ids, err := Pending(raw, DirSet{Dir: prepared})
	if err != nil {
		t.Fatalf("Pending: %v", err)
	}
	got := names(ids)
	if len(got) != 1 || got[0] != "06-01-2024_10:00.jpg" {
		t.Errorf("Pending = %v", got)
	}
}

func TestWindowContains(t *testing.T) {
	w := WindowAt(ref(time.June, 2, 18), 1)
	in, _ := frame.Parse("06-01-2024_00:00.jpg")
	out, _ := frame.Parse("06-02-2024_00:00.jpg")
	if !w.Contains(in) {
		t.Error("yesterday should be inside a one-day window")
	}
	if w.Contains(out) {
		t.Error("today should be outside the window")
	}
}
