package detector

import (
	"log/slog"
	"strconv"
)

// faceMeshConfig carries the worker settings passed to the embedded script.
type faceMeshConfig struct {
	python              string
	maxFaces            int
	refineLandmarks     bool
	detectionConfidence float64
	trackingConfidence  float64
	logger              *slog.Logger
}

func defaultFaceMeshConfig() faceMeshConfig {
	return faceMeshConfig{
		python:              "python3",
		maxFaces:            1,
		refineLandmarks:     true,
		detectionConfidence: 0.5,
		trackingConfidence:  0.5,
		logger:              slog.Default(),
	}
}

// args returns the worker arguments that follow the script.
func (c faceMeshConfig) args() []string {
	refine := "0"
	if c.refineLandmarks {
		refine = "1"
	}
	return []string{
		strconv.Itoa(c.maxFaces),
		refine,
		strconv.FormatFloat(c.detectionConfidence, 'f', -1, 64),
		strconv.FormatFloat(c.trackingConfidence, 'f', -1, 64),
	}
}

// FaceMeshArgs returns the arguments NewPythonFaceMesh passes to the worker script for options,
// in order: max faces, refine flag (0 or 1), detection confidence, tracking confidence.
func FaceMeshArgs(options ...FaceMeshBuilderOption) []string {
	cfg := defaultFaceMeshConfig()
	for _, option := range options {
		option(&cfg)
	}
	return cfg.args()
}

// FaceMeshBuilderOption is a functional option for configuring NewPythonFaceMesh.
type FaceMeshBuilderOption func(*faceMeshConfig)

// WithPython sets the interpreter used to run the worker.
func WithPython(path string) FaceMeshBuilderOption {
	return func(c *faceMeshConfig) {
		c.python = path
	}
}

// WithMaxFaces sets how many faces the worker looks for per frame.
func WithMaxFaces(n int) FaceMeshBuilderOption {
	return func(c *faceMeshConfig) {
		c.maxFaces = n
	}
}

// WithRefineLandmarks enables the iris and lip refinement model (478 landmarks instead of 468).
func WithRefineLandmarks(refine bool) FaceMeshBuilderOption {
	return func(c *faceMeshConfig) {
		c.refineLandmarks = refine
	}
}

// WithConfidence sets the minimum detection and tracking confidences.
//
// Parameters:
//   - detection: minimum confidence to report a new face
//   - tracking: minimum confidence to keep tracking a face between frames
//
// Returns:
//   - FaceMeshBuilderOption: a function that applies the confidence option
func WithConfidence(detection, tracking float64) FaceMeshBuilderOption {
	return func(c *faceMeshConfig) {
		c.detectionConfidence = detection
		c.trackingConfidence = tracking
	}
}

// WithLogger sets the structured logger for worker lifecycle and stderr lines.
func WithLogger(l *slog.Logger) FaceMeshBuilderOption {
	return func(c *faceMeshConfig) {
		if l != nil {
			c.logger = l
		}
	}
}
