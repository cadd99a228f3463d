// Package capture takes one timelapse frame: it records the environment
// readings, lights the plant, and saves a snapshot from the camera.
package capture

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/evmaki/pothos/internal/frame"
	"github.com/evmaki/pothos/internal/models"
)

// Options are the device ids and timings of one capture.
type Options struct {
	FramesDir     string
	SensorLogPath string

	LightSensor int
	TempSensor  int
	ClampLamp   int
	PlantLamp   int

	PlantBrightness int
	PlantColorTemp  int

	FadeDelay   time.Duration
	SettleDelay time.Duration
}

// DefaultOptions returns the ids and timings of the original rig.
func DefaultOptions() Options {
	return Options{
		LightSensor:     14,
		TempSensor:      15,
		ClampLamp:       4,
		PlantLamp:       5,
		PlantBrightness: 250,
		PlantColorTemp:  300,
		FadeDelay:       time.Second,
		SettleDelay:     2 * time.Second,
	}
}

// Result describes a completed capture.
type Result struct {
	Token     string
	FramePath string
	Bytes     int64
	Reading   *models.SensorReading
}

// Agent runs the capture sequence.
type Agent struct {
	hue    *Hue
	camera *Camera
	opts   Options
	logger *slog.Logger

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

func NewAgent(hue *Hue, camera *Camera, opts Options, logger *slog.Logger) *Agent {
	return &Agent{
		hue:    hue,
		camera: camera,
		opts:   opts,
		logger: logger,
		now:    time.Now,
		sleep:  sleepCtx,
	}
}

// Run performs one capture. Sensor failures are logged and the frame is
// still taken. Lamps are restored even when the snapshot fails.
func (a *Agent) Run(ctx context.Context) (res Result, err error) {
	at := a.now()
	res.Token = frame.Token(at)
	res.FramePath = filepath.Join(a.opts.FramesDir, frame.NameAt(at))

	if reading, rErr := a.readSensors(ctx); rErr != nil {
		a.logger.Warn("capture: sensors unavailable", slog.String("error", rErr.Error()))
	} else {
		res.Reading = &reading
		if err := AppendReading(a.opts.SensorLogPath, res.Token, reading); err != nil {
			a.logger.Error("capture: sensor log", slog.String("error", err.Error()))
		} else {
			a.logger.Info("capture: logged sensors",
				slog.String("token", res.Token),
				slog.Int("lightlevel", reading.LightLevel),
				slog.Int("temperature", reading.Temperature),
			)
		}
	}

	clampOn, err := a.hue.LightOn(ctx, a.opts.ClampLamp)
	if err != nil {
		return res, fmt.Errorf("capture: clamp lamp state: %w", err)
	}
	if clampOn {
		if err := a.hue.SetLight(ctx, a.opts.ClampLamp, LightState{On: false}); err != nil {
			return res, fmt.Errorf("capture: clamp lamp off: %w", err)
		}
	}

	// Restore runs on a context that survives cancellation of ctx.
	defer func() {
		rctx := context.WithoutCancel(ctx)
		if rErr := a.hue.SetLight(rctx, a.opts.PlantLamp, LightState{On: false}); rErr != nil {
			a.logger.Error("capture: plant lamp off", slog.String("error", rErr.Error()))
		}
		if clampOn {
			if rErr := a.hue.SetLight(rctx, a.opts.ClampLamp, LightState{On: true}); rErr != nil {
				a.logger.Error("capture: clamp lamp restore", slog.String("error", rErr.Error()))
			}
		}
	}()

	plant := LightState{On: true, Bri: a.opts.PlantBrightness, CT: a.opts.PlantColorTemp}
	if err := a.hue.SetLight(ctx, a.opts.PlantLamp, plant); err != nil {
		return res, fmt.Errorf("capture: plant lamp on: %w", err)
	}
	if err := a.sleep(ctx, a.opts.FadeDelay); err != nil {
		return res, err
	}

	n, err := a.camera.Capture(ctx, res.FramePath)
	if err != nil {
		return res, err
	}
	res.Bytes = n
	a.logger.Info("capture: saved frame", slog.String("path", res.FramePath), slog.Int64("bytes", n))

	if err := a.sleep(ctx, a.opts.SettleDelay); err != nil {
		return res, err
	}
	return res, nil
}

func (a *Agent) readSensors(ctx context.Context) (models.SensorReading, error) {
	light, err := a.hue.Sensor(ctx, a.opts.LightSensor)
	if err != nil {
		return models.SensorReading{}, err
	}
	temp, err := a.hue.Sensor(ctx, a.opts.TempSensor)
	if err != nil {
		return models.SensorReading{}, err
	}
	return models.SensorReading{LightLevel: light.LightLevel, Temperature: temp.Temperature}, nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
