package config

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNoModels is returned when the configuration names no model files.
var ErrNoModels = errors.New("at least one model path is required")

var cameraBackends = map[string]bool{"gocv": true, "ffmpeg": true, "gstreamer": true}

// Validate checks if the configuration is valid.
func Validate(cfg *Config) error {
	if len(cfg.Models) == 0 {
		return ErrNoModels
	}
	for i, path := range cfg.Models {
		if strings.TrimSpace(path) == "" {
			return fmt.Errorf("models[%d] is empty", i)
		}
	}
	if cfg.LoadWorkers <= 0 {
		cfg.LoadWorkers = 4
	}
	if cfg.TickIntervalMS <= 0 {
		return fmt.Errorf("tick_interval_ms must be > 0, got %d", cfg.TickIntervalMS)
	}

	if cfg.Window.Width <= 0 || cfg.Window.Height <= 0 {
		return fmt.Errorf("window size must be positive, got %dx%d", cfg.Window.Width, cfg.Window.Height)
	}
	if cfg.Window.FrameLimit < 0 {
		return fmt.Errorf("window.frame_limit must be >= 0")
	}

	if !cameraBackends[cfg.Camera.Backend] {
		return fmt.Errorf("camera.backend %q must be one of gocv, ffmpeg, gstreamer", cfg.Camera.Backend)
	}
	if cfg.Camera.Device == "" {
		return fmt.Errorf("camera.device is required")
	}
	if cfg.Camera.Width <= 0 || cfg.Camera.Height <= 0 {
		return fmt.Errorf("camera size must be positive, got %dx%d", cfg.Camera.Width, cfg.Camera.Height)
	}
	if cfg.Camera.FPS <= 0 {
		return fmt.Errorf("camera.fps must be > 0")
	}

	if cfg.Detector.Enabled {
		if cfg.Detector.Python == "" {
			return fmt.Errorf("detector.python is required when the detector is enabled")
		}
		if cfg.Detector.MaxFaces <= 0 {
			cfg.Detector.MaxFaces = 1
		}
		for name, v := range map[string]float64{
			"detection_confidence": cfg.Detector.DetectionConfidence,
			"tracking_confidence":  cfg.Detector.TrackingConfidence,
		} {
			if v < 0 || v > 1 {
				return fmt.Errorf("detector.%s must be in [0,1], got %v", name, v)
			}
		}
	}

	if cfg.Overlay.LandmarkIndex < 0 {
		return fmt.Errorf("overlay.landmark_index must be >= 0")
	}
	if cfg.Overlay.Scale <= 0 {
		return fmt.Errorf("overlay.scale must be > 0")
	}
	if cfg.Overlay.Smoothing < 0 || cfg.Overlay.Smoothing >= 1 {
		return fmt.Errorf("overlay.smoothing must be in [0,1)")
	}
	return nil
}
