package internal

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"github.com/evmaki/pothos/internal/api"
	"github.com/evmaki/pothos/internal/archive"
)

func tempConfig(t *testing.T) *Config {
	t.Helper()
	dir := t.TempDir()
	cfg := NewDefaultConfig()
	cfg.Paths = PathsConfig{
		Frames:    filepath.Join(dir, "frames"),
		Prepared:  filepath.Join(dir, "frames", "prepared"),
		Rejected:  filepath.Join(dir, "frames", "archive"),
		SensorLog: filepath.Join(dir, "sensor_log.json"),
	}
	cfg.Index.Path = filepath.Join(dir, "pothos.db")
	cfg.Archive.Root = filepath.Join(dir, "uploads")
	return cfg
}

func TestRunRequiresConfig(t *testing.T) {
	for name, run := range map[string]func(context.Context, ...Option) error{
		"serve":   Serve,
		"prepare": Prepare,
		"capture": Capture,
		"mcp":     ServeMCP,
	} {
		if err := run(context.Background()); !errors.Is(err, errConfigRequired) {
			t.Errorf("%s without config = %v", name, err)
		}
	}
}

func TestServeRequiresPasswordHash(t *testing.T) {
	err := Serve(context.Background(), WithConfig(tempConfig(t)))
	if err == nil || !strings.Contains(err.Error(), "password_hash") {
		t.Fatalf("err = %v, want password_hash error", err)
	}
}

func TestCaptureRequiresDevices(t *testing.T) {
	if err := Capture(context.Background(), WithConfig(tempConfig(t))); err == nil {
		t.Fatal("capture without devices should fail")
	}
}

func TestPrepareOnEmptyFramesDir(t *testing.T) {
	cfg := tempConfig(t)
	cfg.Index.PreparedSource = PreparedSourceDB

	if err := Prepare(context.Background(), WithConfig(cfg)); err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	for _, dir := range []string{cfg.Paths.Frames, cfg.Paths.Prepared, cfg.Paths.Rejected} {
		if _, err := os.Stat(dir); err != nil {
			t.Errorf("%s not created: %v", dir, err)
		}
	}
	if _, err := os.Stat(cfg.Index.Path); err != nil {
		t.Errorf("index not created: %v", err)
	}
}

func TestServerRouterMountsArchiveAndHealth(t *testing.T) {
	root := t.TempDir()
	store, err := openArchive(root)
	if err != nil {
		t.Fatal(err)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte("secret"), bcrypt.MinCost)
	if err != nil {
		t.Fatal(err)
	}
	apiRouter := api.NewRouter(archive.NewService(store, nil), archive.NewAuthenticator(string(hash)), api.Options{})
	r := newServerRouter(store, apiRouter)

	get := func(path string) int {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		return w.Code
	}

	for _, path := range []string{"/health/live", "/health/ready", "/videos", "/frames/", "/data"} {
		if code := get(path); code != http.StatusOK {
			t.Errorf("GET %s = %d, want 200", path, code)
		}
	}
	if code := get("/"); code != http.StatusNotFound {
		t.Errorf("GET / on empty archive = %d, want 404", code)
	}

	if err := os.WriteFile(filepath.Join(root, "videos", "06-01-2024_11:00,06-07-2024_19:00.mp4"), []byte("mp4"), 0o644); err != nil {
		t.Fatal(err)
	}
	for _, path := range []string{"/", "/latest/", "/latest"} {
		if code := get(path); code != http.StatusOK {
			t.Errorf("GET %s = %d, want 200", path, code)
		}
	}
}
