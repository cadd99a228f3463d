package capture

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Hue talks to a Philips Hue bridge over its local REST API.
type Hue struct {
	BaseURL  string
	Username string
	Client   *http.Client
}

func NewHue(baseURL, username string, timeout time.Duration) *Hue {
	return &Hue{
		BaseURL:  strings.TrimRight(baseURL, "/"),
		Username: username,
		Client:   &http.Client{Timeout: timeout},
	}
}

// SensorState is the subset of a sensor's state the agent records.
type SensorState struct {
	LightLevel  int `json:"lightlevel"`
	Temperature int `json:"temperature"`
}

// LightState is the body of a light state change. Bri and CT are omitted
// when zero.
type LightState struct {
	On  bool `json:"on"`
	Bri int  `json:"bri,omitempty"`
	CT  int  `json:"ct,omitempty"`
}

type hueError struct {
	Error *struct {
		Type        int    `json:"type"`
		Address     string `json:"address"`
		Description string `json:"description"`
	} `json:"error"`
}

// Sensor returns the state of sensor id.
func (h *Hue) Sensor(ctx context.Context, id int) (SensorState, error) {
	var body struct {
		State SensorState `json:"state"`
	}
	if err := h.do(ctx, http.MethodGet, fmt.Sprintf("sensors/%d", id), nil, &body); err != nil {
		return SensorState{}, err
	}
	return body.State, nil
}

// LightOn reports whether light id is switched on.
func (h *Hue) LightOn(ctx context.Context, id int) (bool, error) {
	var body struct {
		State struct {
			On bool `json:"on"`
		} `json:"state"`
	}
	if err := h.do(ctx, http.MethodGet, fmt.Sprintf("lights/%d", id), nil, &body); err != nil {
		return false, err
	}
	return body.State.On, nil
}

// SetLight changes the state of light id.
func (h *Hue) SetLight(ctx context.Context, id int, state LightState) error {
	return h.do(ctx, http.MethodPut, fmt.Sprintf("lights/%d/state", id), state, nil)
}

func (h *Hue) do(ctx context.Context, method, resource string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(data)
	}

	url := fmt.Sprintf("%s/api/%s/%s", h.BaseURL, h.Username, resource)
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return fmt.Errorf("hue: build request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := h.Client.Do(req)
	if err != nil {
		return fmt.Errorf("hue: %s %s: %w", method, resource, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("hue: read %s: %w", resource, err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("hue: %s %s: %s", method, resource, resp.Status)
	}

	// The bridge reports failures as a 200 with a list of error objects.
	if trimmed := bytes.TrimSpace(data); len(trimmed) > 0 && trimmed[0] == '[' {
		var results []hueError
		if err := json.Unmarshal(trimmed, &results); err == nil {
			for _, r := range results {
				if r.Error != nil {
					return fmt.Errorf("hue: %s: %s", r.Error.Address, r.Error.Description)
				}
			}
		}
		return nil
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("hue: decode %s: %w", resource, err)
	}
	return nil
}
