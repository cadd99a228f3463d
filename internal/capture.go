package internal

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/evmaki/pothos/internal/capture"
)

// Capture takes one frame with the configured camera and Hue bridge.
func Capture(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	cfg := app.config
	logger := newLogger(cfg, os.Stdout)

	cc := cfg.Capture
	if cc.HueURL == "" || cc.HueUsername == "" || cc.CameraURL == "" {
		return fmt.Errorf("capture: hue_url, hue_username and camera_url are required")
	}
	if err := os.MkdirAll(cfg.Paths.Frames, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", cfg.Paths.Frames, err)
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	agent := capture.NewAgent(
		capture.NewHue(cc.HueURL, cc.HueUsername, cc.Timeout),
		capture.NewCamera(cc.CameraURL, cc.Resolution, cc.Timeout),
		capture.Options{
			FramesDir:       cfg.Paths.Frames,
			SensorLogPath:   cfg.Paths.SensorLog,
			LightSensor:     cc.LightSensor,
			TempSensor:      cc.TempSensor,
			ClampLamp:       cc.ClampLamp,
			PlantLamp:       cc.PlantLamp,
			PlantBrightness: cc.PlantBrightness,
			PlantColorTemp:  cc.PlantColorTemp,
			FadeDelay:       cc.FadeDelay,
			SettleDelay:     cc.SettleDelay,
		},
		logger,
	)

	if _, err := agent.Run(ctx); err != nil {
		return err
	}
	return nil
}
