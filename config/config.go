// Package config loads the overlay settings from an optional YAML file, environment overrides
// and defaults that reproduce the stock setup.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the complete overlay configuration.
type Config struct {
	Models         []string       `yaml:"models"`
	LoadWorkers    int            `yaml:"load_workers"`
	TickIntervalMS int            `yaml:"tick_interval_ms"` // capture/detect tick period
	Profiling      bool           `yaml:"profiling"`
	Window         WindowConfig   `yaml:"window"`
	Camera         CameraConfig   `yaml:"camera"`
	Detector       DetectorConfig `yaml:"detector"`
	Overlay        OverlayConfig  `yaml:"overlay"`
}

// WindowConfig contains window and surface settings.
type WindowConfig struct {
	Title            string `yaml:"title"`
	Width            int    `yaml:"width"`
	Height           int    `yaml:"height"`
	VSync            bool   `yaml:"vsync"`
	MSAA             bool   `yaml:"msaa"`
	SoftwareRenderer bool   `yaml:"software_renderer"`
	FrameLimit       int    `yaml:"frame_limit"` // 0 = uncapped
}

// CameraConfig contains capture settings.
type CameraConfig struct {
	Backend    string `yaml:"backend"` // gocv, ffmpeg, gstreamer
	Device     string `yaml:"device"`
	Width      int    `yaml:"width"`
	Height     int    `yaml:"height"`
	FPS        int    `yaml:"fps"`
	FFmpegPath string `yaml:"ffmpeg_path"`
	Pipeline   string `yaml:"pipeline,omitempty"` // custom gstreamer description
}

// DetectorConfig contains face landmark detector settings.
type DetectorConfig struct {
	Enabled             bool    `yaml:"enabled"`
	Python              string  `yaml:"python"`
	MaxFaces            int     `yaml:"max_faces"`
	RefineLandmarks     bool    `yaml:"refine_landmarks"`
	DetectionConfidence float64 `yaml:"detection_confidence"`
	TrackingConfidence  float64 `yaml:"tracking_confidence"`
}

// OverlayConfig contains the landmark to model mapping.
type OverlayConfig struct {
	LandmarkIndex  int     `yaml:"landmark_index"`
	ReferenceDepth float32 `yaml:"reference_depth"`
	Scale          float32 `yaml:"scale"`
	Smoothing      float32 `yaml:"smoothing"` // 0 disables
}

// Default returns the stock configuration: two mask models, the default webcam and MediaPipe
// detection anchored on the nose tip.
//
// Returns:
//   - *Config: a new configuration with every field set
func Default() *Config {
	return &Config{
		Models: []string{
			"media/gas_mask/gas_mask.obj",
			"media/plague_doctor_mask_bloody/plague_doctor_mask_bloody.obj",
		},
		LoadWorkers:    4,
		TickIntervalMS: 30,
		Window: WindowConfig{
			Title:  "Face 3D Overlay",
			Width:  800,
			Height: 600,
			VSync:  true,
			MSAA:   true,
		},
		Camera: CameraConfig{
			Backend:    "gocv",
			Device:     "0",
			Width:      640,
			Height:     480,
			FPS:        30,
			FFmpegPath: "ffmpeg",
		},
		Detector: DetectorConfig{
			Enabled:             true,
			Python:              "python3",
			MaxFaces:            1,
			RefineLandmarks:     true,
			DetectionConfidence: 0.5,
			TrackingConfidence:  0.5,
		},
		Overlay: OverlayConfig{
			LandmarkIndex:  1,
			ReferenceDepth: -3,
			Scale:          0.5,
		},
	}
}

// TickInterval returns the tick period as a duration.
func (c *Config) TickInterval() time.Duration {
	return time.Duration(c.TickIntervalMS) * time.Millisecond
}

// Load builds the configuration from defaults, the YAML file at path (skipped when path is
// empty) and OXY_* environment variables, then validates it.
//
// Parameters:
//   - path: the YAML file, or "" for defaults only
//
// Returns:
//   - *Config: the validated configuration
//   - error: error if the file cannot be read or parsed, an override is malformed or validation fails
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := Parse(data, cfg); err != nil {
			return nil, err
		}
	}

	if err := ApplyEnv(cfg, os.LookupEnv); err != nil {
		return nil, err
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Parse decodes YAML over cfg. Keys absent from data keep their current values; unknown keys are errors.
//
// Parameters:
//   - data: the YAML document
//   - cfg: the configuration to update
//
// Returns:
//   - error: error if the document is malformed
func Parse(data []byte, cfg *Config) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("failed to parse config: %w", err)
	}
	return nil
}
