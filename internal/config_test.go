package internal

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	pkgconfig "github.com/evmaki/pothos/pkg/config"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := NewDefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if cfg.Curation.ROI.Rect().Dx() != 1080 || cfg.Curation.ROI.Rect().Dy() != 880 {
		t.Errorf("roi = %v", cfg.Curation.ROI.Rect())
	}
}

func TestIndexConfig_EmptySourceDefaultsDir(t *testing.T) {
	cfg := IndexConfig{Path: "x.db"}
	if err := cfg.Validate(); err != nil {
		t.Fatal(err)
	}
	if cfg.PreparedSource != PreparedSourceDir {
		t.Errorf("source = %q, want %q", cfg.PreparedSource, PreparedSourceDir)
	}
}

func TestIndexConfig_InvalidSource(t *testing.T) {
	cfg := IndexConfig{Path: "x.db", PreparedSource: "redis"}
	if err := cfg.Validate(); err == nil {
		t.Fatal("invalid prepared source should fail")
	}
}

func TestUploadConfig_PasswordRequiredWithURL(t *testing.T) {
	cfg := UploadConfig{URL: "https://plants.example.com"}
	if err := cfg.Validate(); err == nil {
		t.Fatal("url without password should fail")
	}
	cfg.Password = "hunter2"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("url with password: %v", err)
	}
	if !cfg.Enabled() {
		t.Error("upload should be enabled")
	}
}

func TestUploadConfig_S3RequiresBucket(t *testing.T) {
	cfg := UploadConfig{S3: S3Config{Enabled: true}}
	if err := cfg.Validate(); err == nil {
		t.Fatal("enabled s3 without bucket should fail")
	}
}

func TestArchiveConfig_RejectsNonBcryptHash(t *testing.T) {
	cfg := NewDefaultConfig().Archive
	cfg.PasswordHash = "plaintext"
	if err := cfg.Validate(); err == nil {
		t.Fatal("plain password accepted as hash")
	}
	hash, _ := bcrypt.GenerateFromPassword([]byte("hunter2"), bcrypt.MinCost)
	cfg.PasswordHash = string(hash)
	if err := cfg.Validate(); err != nil {
		t.Fatalf("bcrypt hash rejected: %v", err)
	}
}

func TestCurationConfig_EmptyROI(t *testing.T) {
	cfg := NewDefaultConfig().Curation
	cfg.ROI = ROIConfig{Left: 10, Right: 10, Bottom: 10}
	if err := cfg.Validate(); err == nil {
		t.Fatal("empty roi should fail")
	}
}

func TestLoadYAMLOverridesDefaults(t *testing.T) {
	t.Setenv("POTHOS_UPLOAD_PASSWORD", "hunter2")
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
app:
  log_level: debug
curation:
  retention_days: 14
video:
  timeout: 10m
upload:
  url: https://plants.example.com
  password: ${POTHOS_UPLOAD_PASSWORD}
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := NewDefaultConfig()
	if err := pkgconfig.Load(path, cfg); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Curation.RetentionDays != 14 {
		t.Errorf("retention = %d", cfg.Curation.RetentionDays)
	}
	if cfg.Curation.VarianceThreshold != 2000 {
		t.Errorf("threshold default lost: %v", cfg.Curation.VarianceThreshold)
	}
	if cfg.Video.Timeout != 10*time.Minute {
		t.Errorf("timeout = %v", cfg.Video.Timeout)
	}
	if cfg.Upload.Password != "hunter2" {
		t.Errorf("password = %q", cfg.Upload.Password)
	}
	if cfg.App.LogLevel.String() != "DEBUG" {
		t.Errorf("log level = %v", cfg.App.LogLevel)
	}
}
