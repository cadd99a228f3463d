package capture

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/evmaki/pothos/internal/models"
	"github.com/evmaki/pothos/internal/testutil"
)

// hub emulates the bridge endpoints the agent uses and records every
// state change in order.
type hub struct {
	mu       sync.Mutex
	clampOn  bool
	sensorOK bool
	puts     []string
}

func (h *hub) handler(t *testing.T) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/user/sensors/{id}", func(w http.ResponseWriter, r *http.Request) {
		if !h.sensorOK {
			http.Error(w, "down", http.StatusServiceUnavailable)
			return
		}
		switch r.PathValue("id") {
		case "14":
			_, _ = io.WriteString(w, `{"state":{"lightlevel":21000}}`)
		case "15":
			_, _ = io.WriteString(w, `{"state":{"temperature":2150}}`)
		default:
			_, _ = io.WriteString(w, `[{"error":{"type":3,"address":"/sensors/x","description":"resource not available"}}]`)
		}
	})
	mux.HandleFunc("GET /api/user/lights/{id}", func(w http.ResponseWriter, r *http.Request) {
		h.mu.Lock()
		on := h.clampOn && r.PathValue("id") == "4"
		h.mu.Unlock()
		_ = json.NewEncoder(w).Encode(map[string]any{"state": map[string]bool{"on": on}})
	})
	mux.HandleFunc("PUT /api/user/lights/{id}/state", func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		h.mu.Lock()
		h.puts = append(h.puts, r.PathValue("id")+" "+strings.TrimSpace(string(body)))
		h.mu.Unlock()
		_, _ = io.WriteString(w, `[{"success":{}}]`)
	})
	return mux
}

func camera(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/capture" || r.URL.Query().Get("resolution") != "3" {
			t.Errorf("camera request = %s", r.URL)
		}
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newAgent(t *testing.T, h *hub, cam *httptest.Server) (*Agent, Options, *[]time.Duration) {
	t.Helper()
	bridge := httptest.NewServer(h.handler(t))
	t.Cleanup(bridge.Close)

	dir := t.TempDir()
	opts := DefaultOptions()
	opts.FramesDir = filepath.Join(dir, "frames")
	opts.SensorLogPath = filepath.Join(dir, "sensor_log.json")

	a := NewAgent(NewHue(bridge.URL, "user", time.Second), NewCamera(cam.URL, DefaultResolution, time.Second), opts, testutil.Logger())
	a.now = func() time.Time { return time.Date(2024, time.June, 1, 11, 0, 0, 0, time.Local) }
	var slept []time.Duration
	a.sleep = func(_ context.Context, d time.Duration) error {
		slept = append(slept, d)
		return nil
	}
	return a, opts, &slept
}

func TestRunCapturesAndRestoresClampLamp(t *testing.T) {
	h := &hub{clampOn: true, sensorOK: true}
	a, opts, slept := newAgent(t, h, camera(t, http.StatusOK, "jpeg"))

	res, err := a.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.FramePath != filepath.Join(opts.FramesDir, "06-01-2024_11:00.jpg") {
		t.Errorf("frame path = %q", res.FramePath)
	}
	data, err := os.ReadFile(res.FramePath)
	if err != nil || string(data) != "jpeg" {
		t.Errorf("frame = %q, %v", data, err)
	}

	want := []string{
		`4 {"on":false}`,
		`5 {"on":true,"bri":250,"ct":300}`,
		`5 {"on":false}`,
		`4 {"on":true}`,
	}
	if !slices.Equal(h.puts, want) {
		t.Errorf("light changes = %v, want %v", h.puts, want)
	}
	if !slices.Equal(*slept, []time.Duration{time.Second, 2 * time.Second}) {
		t.Errorf("delays = %v", *slept)
	}

	raw, err := os.ReadFile(opts.SensorLogPath)
	if err != nil {
		t.Fatal(err)
	}
	var log models.SensorLog
	if err := json.Unmarshal(raw, &log); err != nil {
		t.Fatal(err)
	}
	if r := log["06-01-2024_11:00"]; r.LightLevel != 21000 || r.Temperature != 2150 {
		t.Errorf("sensor log = %s", raw)
	}
}

func TestRunLeavesClampLampOffWhenItWasOff(t *testing.T) {
	h := &hub{sensorOK: true}
	a, _, _ := newAgent(t, h, camera(t, http.StatusOK, "jpeg"))

	if _, err := a.Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	want := []string{`5 {"on":true,"bri":250,"ct":300}`, `5 {"on":false}`}
	if !slices.Equal(h.puts, want) {
		t.Errorf("light changes = %v, want %v", h.puts, want)
	}
}

func TestRunRestoresLampsWhenCaptureFails(t *testing.T) {
	h := &hub{clampOn: true, sensorOK: true}
	a, opts, _ := newAgent(t, h, camera(t, http.StatusInternalServerError, ""))

	if _, err := a.Run(context.Background()); err == nil {
		t.Fatal("expected capture error")
	}
	if n := len(h.puts); n != 4 || h.puts[3] != `4 {"on":true}` {
		t.Errorf("light changes = %v", h.puts)
	}
	if _, err := os.Stat(filepath.Join(opts.FramesDir, "06-01-2024_11:00.jpg")); !os.IsNotExist(err) {
		t.Errorf("frame written for failed capture")
	}
}

func TestRunSensorFailureStillCaptures(t *testing.T) {
	h := &hub{}
	a, opts, _ := newAgent(t, h, camera(t, http.StatusOK, "jpeg"))

	res, err := a.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Reading != nil {
		t.Errorf("reading = %+v, want nil", res.Reading)
	}
	if _, err := os.Stat(opts.SensorLogPath); !os.IsNotExist(err) {
		t.Errorf("sensor log written without readings")
	}
}

func TestHueErrorList(t *testing.T) {
	h := &hub{sensorOK: true}
	bridge := httptest.NewServer(h.handler(t))
	defer bridge.Close()

	if _, err := NewHue(bridge.URL, "user", time.Second).Sensor(context.Background(), 99); err == nil {
		t.Fatal("expected bridge error")
	}
}

func TestAppendReading(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sensor_log.json")

	if err := AppendReading(path, "06-01-2024_10:00", models.SensorReading{LightLevel: 1, Temperature: 2}); err != nil {
		t.Fatal(err)
	}
	if err := AppendReading(path, "06-01-2024_11:00", models.SensorReading{LightLevel: 3, Temperature: 4}); err != nil {
		t.Fatal(err)
	}

	raw, _ := os.ReadFile(path)
	var log models.SensorLog
	if err := json.Unmarshal(raw, &log); err != nil {
		t.Fatal(err)
	}
	if len(log) != 2 || log["06-01-2024_10:00"].LightLevel != 1 || log["06-01-2024_11:00"].Temperature != 4 {
		t.Errorf("log = %s", raw)
	}
}

func TestAppendReadingRejectsCorruptLog(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sensor_log.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := AppendReading(path, "t", models.SensorReading{}); err == nil {
		t.Fatal("expected decode error")
	}
	raw, _ := os.ReadFile(path)
	if string(raw) != "{not json" {
		t.Errorf("corrupt log overwritten")
	}
}
