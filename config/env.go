package config

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "OXY_"

// LoadDotEnv loads KEY=VALUE pairs into the process environment without overriding variables that
// are already set. With no files it reads ./.env and ignores its absence.
//
// Parameters:
//   - files: the env files to load
//
// Returns:
//   - error: error if a file cannot be read or parsed
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("failed to load .env: %w", err)
		}
		return nil
	}
	if err := godotenv.Load(files...); err != nil {
		return fmt.Errorf("failed to load env files: %w", err)
	}
	return nil
}

// ApplyEnv overrides cfg fields from OXY_* variables.
//
// Recognized variables: OXY_MODELS (list separated by the OS path list separator or commas),
// OXY_TICK_INTERVAL_MS, OXY_PROFILING, OXY_CAMERA_BACKEND, OXY_CAMERA_DEVICE, OXY_FFMPEG_PATH,
// OXY_PYTHON, OXY_DETECTOR_ENABLED, OXY_LANDMARK_INDEX, OXY_REFERENCE_DEPTH, OXY_SCALE.
//
// Parameters:
//   - cfg: the configuration to update
//   - lookup: the environment lookup, usually os.LookupEnv
//
// Returns:
//   - error: error naming the variable whose value cannot be parsed
func ApplyEnv(cfg *Config, lookup func(string) (string, bool)) error {
	get := func(name string) (string, bool) {
		v, ok := lookup(EnvPrefix + name)
		v = strings.TrimSpace(v)
		return v, ok && v != ""
	}

	var errs []error
	setInt := func(name string, dst *int) {
		if v, ok := get(name); ok {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", EnvPrefix, name, err))
				return
			}
			*dst = n
		}
	}
	setBool := func(name string, dst *bool) {
		if v, ok := get(name); ok {
			b, err := strconv.ParseBool(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", EnvPrefix, name, err))
				return
			}
			*dst = b
		}
	}
	setFloat := func(name string, dst *float32) {
		if v, ok := get(name); ok {
			f, err := strconv.ParseFloat(v, 32)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", EnvPrefix, name, err))
				return
			}
			*dst = float32(f)
		}
	}
	setString := func(name string, dst *string) {
		if v, ok := get(name); ok {
			*dst = v
		}
	}

	if v, ok := get("MODELS"); ok {
		cfg.Models = splitList(v)
	}
	setInt("TICK_INTERVAL_MS", &cfg.TickIntervalMS)
	setBool("PROFILING", &cfg.Profiling)
	setString("CAMERA_BACKEND", &cfg.Camera.Backend)
	setString("CAMERA_DEVICE", &cfg.Camera.Device)
	setString("FFMPEG_PATH", &cfg.Camera.FFmpegPath)
	setString("PYTHON", &cfg.Detector.Python)
	setBool("DETECTOR_ENABLED", &cfg.Detector.Enabled)
	setInt("LANDMARK_INDEX", &cfg.Overlay.LandmarkIndex)
	setFloat("REFERENCE_DEPTH", &cfg.Overlay.ReferenceDepth)
	setFloat("SCALE", &cfg.Overlay.Scale)

	return errors.Join(errs...)
}

// splitList splits on the OS path list separator and on commas, dropping empty entries.
func splitList(v string) []string {
	fields := strings.FieldsFunc(v, func(r rune) bool {
		return r == filepath.ListSeparator || r == ','
	})
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if f = strings.TrimSpace(f); f != "" {
			out = append(out, f)
		}
	}
	return out
}
