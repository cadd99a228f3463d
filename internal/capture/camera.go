package capture

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/evmaki/pothos/internal/storage"
)

// DefaultResolution selects 1280x960 on the ESP32 camera firmware.
const DefaultResolution = 3

// Camera fetches JPEG snapshots from the networked camera.
type Camera struct {
	BaseURL    string
	Resolution int
	Client     *http.Client
}

func NewCamera(baseURL string, resolution int, timeout time.Duration) *Camera {
	return &Camera{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		Resolution: resolution,
		Client:     &http.Client{Timeout: timeout},
	}
}

// Capture streams one snapshot to dest. dest only appears once the whole
// image has been received.
func (c *Camera) Capture(ctx context.Context, dest string) (int64, error) {
	url := fmt.Sprintf("%s/capture?resolution=%d", c.BaseURL, c.Resolution)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, fmt.Errorf("camera: build request: %w", err)
	}

	resp, err := c.Client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("camera: capture: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("camera: capture: %s", resp.Status)
	}

	n, err := storage.WriteFileAtomic(dest, resp.Body)
	if err != nil {
		return n, fmt.Errorf("camera: save: %w", err)
	}
	if n == 0 {
		_ = removeFile(dest)
		return 0, fmt.Errorf("camera: empty snapshot")
	}
	return n, nil
}
