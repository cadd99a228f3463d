package index

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/evmaki/pothos/internal/frame"
	"github.com/evmaki/pothos/internal/models"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	f, err := os.CreateTemp("", "pothos-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	f.Close()
	t.Cleanup(func() { os.Remove(f.Name()) })

	db, err := Open(f.Name())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func mustID(t *testing.T, name string) frame.ID {
	t.Helper()
	id, err := frame.Parse(name)
	if err != nil {
		t.Fatalf("Parse(%q): %v", name, err)
	}
	return id
}

func TestSchemaCreation(t *testing.T) {
	db := testDB(t)
	var count int
	if err := db.conn.QueryRow(`SELECT count(*) FROM prepared`).Scan(&count); err != nil {
		t.Fatalf("prepared table missing: %v", err)
	}
	if err := db.conn.QueryRow(`SELECT count(*) FROM uploads`).Scan(&count); err != nil {
		t.Fatalf("uploads table missing: %v", err)
	}
}

func TestMarkAndIsPrepared(t *testing.T) {
	db := testDB(t)
	id := mustID(t, "06-01-2024_11:00.jpg")

	ok, err := db.IsPrepared(id)
	if err != nil || ok {
		t.Fatalf("IsPrepared before mark = %v, %v", ok, err)
	}
	if err := db.MarkPrepared(id); err != nil {
		t.Fatalf("MarkPrepared: %v", err)
	}
	if err := db.MarkPrepared(id); err != nil {
		t.Fatalf("second MarkPrepared: %v", err)
	}
	ok, err = db.IsPrepared(id)
	if err != nil || !ok {
		t.Fatalf("IsPrepared after mark = %v, %v", ok, err)
	}

	if err := db.UnmarkPrepared(id.Name); err != nil {
		t.Fatalf("UnmarkPrepared: %v", err)
	}
	if ok, _ := db.IsPrepared(id); ok {
		t.Error("frame still prepared after unmark")
	}
}

func TestLedgerChecksum(t *testing.T) {
	db := testDB(t)
	name := "06-01-2024_11:00.jpg"

	sent, err := db.Sent(name, models.CategoryFrame, "abc")
	if err != nil || sent {
		t.Fatalf("Sent before mark = %v, %v", sent, err)
	}
	if err := db.MarkSent(name, models.CategoryFrame, "abc"); err != nil {
		t.Fatalf("MarkSent: %v", err)
	}
	if sent, _ := db.Sent(name, models.CategoryFrame, "abc"); !sent {
		t.Error("expected sent after mark")
	}
	if sent, _ := db.Sent(name, models.CategoryFrame, "def"); sent {
		t.Error("changed checksum should count as unsent")
	}
	if sent, _ := db.Sent(name, models.CategoryVideo, "abc"); sent {
		t.Error("ledger must be per category")
	}

	if err := db.MarkSent(name, models.CategoryFrame, "def"); err != nil {
		t.Fatalf("MarkSent update: %v", err)
	}
	if sent, _ := db.Sent(name, models.CategoryFrame, "def"); !sent {
		t.Error("expected sent after checksum update")
	}
}

func TestSyncReconcilesWithDisk(t *testing.T) {
	db := testDB(t)
	dir := t.TempDir()
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

	onDisk := "06-01-2024_11:00.jpg"
	if err := os.WriteFile(filepath.Join(dir, onDisk), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	stale := mustID(t, "05-30-2024_09:00.jpg")
	if err := db.MarkPrepared(stale); err != nil {
		t.Fatal(err)
	}

	if err := Sync(db, dir, logger); err != nil {
		t.Fatalf("Sync: %v", err)
	}

	names, err := db.PreparedNames()
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := names[onDisk]; !ok {
		t.Error("on-disk frame not indexed")
	}
	if _, ok := names[stale.Name]; ok {
		t.Error("stale frame not removed")
	}
}
