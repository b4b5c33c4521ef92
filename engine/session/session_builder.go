package session

import (
	"github.com/Carmen-Shannon/oxy-overlay/engine/capture"
	"github.com/Carmen-Shannon/oxy-overlay/engine/detector"
	"github.com/Carmen-Shannon/oxy-overlay/engine/loader"
	"github.com/Carmen-Shannon/oxy-overlay/engine/model"
)

// sessionConfig collects the resource openers applied by Start.
type sessionConfig struct {
	openCamera   func() (capture.Source, error)
	openDetector func() (detector.Detector, error)
	textures     TextureAllocator
	registry     model.Registry
	loader       loader.Loader
	modelPaths   []string
}

// SessionBuilderOption is a functional option for configuring Start.
type SessionBuilderOption func(*sessionConfig)

// WithCamera sets how the camera is opened.
//
// Parameters:
//   - open: called once by Start
//
// Returns:
//   - SessionBuilderOption: a function that applies the camera option
func WithCamera(open func() (capture.Source, error)) SessionBuilderOption {
	return func(c *sessionConfig) {
		c.openCamera = open
	}
}

// WithDetector sets how the landmark detector is started.
// Without it every frame is treated as having no face.
func WithDetector(open func() (detector.Detector, error)) SessionBuilderOption {
	return func(c *sessionConfig) {
		c.openDetector = open
	}
}

// WithTextureAllocator sets the allocator for the background texture.
func WithTextureAllocator(a TextureAllocator) SessionBuilderOption {
	return func(c *sessionConfig) {
		c.textures = a
	}
}

// WithRegistry uses an already loaded model registry.
func WithRegistry(r model.Registry) SessionBuilderOption {
	return func(c *sessionConfig) {
		c.registry = r
	}
}

// WithModels loads the registry during Start.
//
// Parameters:
//   - l: the loader used for LoadAll
//   - paths: the ordered model file paths
//
// Returns:
//   - SessionBuilderOption: a function that applies the models option
func WithModels(l loader.Loader, paths ...string) SessionBuilderOption {
	return func(c *sessionConfig) {
		c.loader = l
		c.modelPaths = paths
	}
}
