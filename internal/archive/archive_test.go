package archive

import (
	"context"
	"errors"
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"github.com/evmaki/pothos/internal/apperr"
	"github.com/evmaki/pothos/internal/models"
	"github.com/evmaki/pothos/internal/testutil"
)

func TestValidateName(t *testing.T) {
	ok := []string{"06-01-2024_11:00,06-07-2024_19:00.mp4", "a.mp4"}
	for _, n := range ok {
		if err := ValidateName(n, models.CategoryVideo); err != nil {
			t.Errorf("ValidateName(%q) = %v", n, err)
		}
	}
	bad := []string{"", ".mp4", ".hidden.mp4", "../x.mp4", "a/b.mp4", `a\b.mp4`, "clip.avi", "clip.mp4.jpg"}
	for _, n := range bad {
		if err := ValidateName(n, models.CategoryVideo); !errors.Is(err, apperr.ErrInvalidName) {
			t.Errorf("ValidateName(%q) = %v, want ErrInvalidName", n, err)
		}
	}
}

func TestSaveListAndLatest(t *testing.T) {
	_, store := testutil.TestArchive(t)
	var added []string
	svc := NewService(store, func(c models.Category, name string) {
		added = append(added, string(c)+":"+name)
	})
	ctx := context.Background()

	if _, err := svc.Latest(ctx); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("Latest on empty archive = %v, want ErrNotFound", err)
	}

	for _, n := range []string{"06-08-2024_08:00,06-14-2024_19:00.mp4", "06-01-2024_08:00,06-07-2024_19:00.mp4"} {
		if _, err := svc.Save(ctx, models.CategoryVideo, n, strings.NewReader(n)); err != nil {
			t.Fatalf("Save %s: %v", n, err)
		}
	}

	names, err := svc.Names(ctx, models.CategoryVideo)
	if err != nil {
		t.Fatal(err)
	}
	if len(names) != 2 || names[0] != "06-01-2024_08:00,06-07-2024_19:00.mp4" {
		t.Errorf("names = %v", names)
	}
	latest, err := svc.Latest(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if latest.Name != "06-08-2024_08:00,06-14-2024_19:00.mp4" {
		t.Errorf("latest = %q", latest.Name)
	}
	if len(added) != 2 || !strings.HasPrefix(added[0], "video:") {
		t.Errorf("notifications = %v", added)
	}
}

func TestSaveOverwrites(t *testing.T) {
	_, store := testutil.TestArchive(t)
	svc := NewService(store, nil)
	ctx := context.Background()

	for _, v := range []string{`{"a":1}`, `{"b":2}`} {
		if _, err := svc.Save(ctx, models.CategoryData, "sensor_log.json", strings.NewReader(v)); err != nil {
			t.Fatal(err)
		}
	}
	data, err := svc.Read(ctx, models.CategoryData, "sensor_log.json")
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != `{"b":2}` {
		t.Errorf("content = %s", data)
	}
}

func TestPathNotFound(t *testing.T) {
	_, store := testutil.TestArchive(t)
	svc := NewService(store, nil)
	if _, err := svc.Path(context.Background(), models.CategoryFrame, "06-01-2024_11:00.jpg"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestSensorLog(t *testing.T) {
	_, store := testutil.TestArchive(t)
	svc := NewService(store, nil)
	ctx := context.Background()
	body := `{"06-01-2024_11:00": {"lightlevel": 21000, "temperature": 2150}}`
	if _, err := svc.Save(ctx, models.CategoryData, DefaultSensorLogName, strings.NewReader(body)); err != nil {
		t.Fatal(err)
	}

	log, err := svc.SensorLog(ctx, "")
	if err != nil {
		t.Fatal(err)
	}
	r, ok := log["06-01-2024_11:00"]
	if !ok || r.LightLevel != 21000 || r.Temperature != 2150 {
		t.Errorf("log = %+v", log)
	}
}

func TestAuthenticator(t *testing.T) {
	hash, err := HashPassword("hunter2", bcrypt.MinCost)
	if err != nil {
		t.Fatal(err)
	}
	a := NewAuthenticator(hash)

	if err := a.Check("hunter2"); err != nil {
		t.Errorf("correct password rejected: %v", err)
	}
	for _, pw := range []string{"", "hunter3"} {
		if err := a.Check(pw); !errors.Is(err, apperr.ErrUnauthorized) {
			t.Errorf("Check(%q) = %v, want ErrUnauthorized", pw, err)
		}
	}
	if err := NewAuthenticator("").Check("hunter2"); !errors.Is(err, apperr.ErrUnauthorized) {
		t.Errorf("empty hash accepted a password")
	}
}
