package loader

import (
	"io"

	"github.com/Carmen-Shannon/oxy-overlay/engine/model"
)

// LoaderBuilderOption is a functional option for configuring a Loader via NewLoader.
type LoaderBuilderOption func(*loader)

// WithWorkers sets how many files LoadAll parses concurrently.
//
// Parameters:
//   - n: the worker count, clamped to at least 1
//
// Returns:
//   - LoaderBuilderOption: a function that applies the worker option to a loader
func WithWorkers(n int) LoaderBuilderOption {
	return func(l *loader) {
		l.workers = n
	}
}

// WithProgress renders a progress bar for LoadAll to w.
//
// Parameters:
//   - w: the writer the bar is drawn on, typically os.Stderr
//
// Returns:
//   - LoaderBuilderOption: a function that applies the progress option to a loader
func WithProgress(w io.Writer) LoaderBuilderOption {
	return func(l *loader) {
		l.progress = w
	}
}

// WithQuiet suppresses the loader and registry log lines.
func WithQuiet() LoaderBuilderOption {
	return func(l *loader) {
		l.quiet = true
	}
}

// WithModel is an option builder that pre-populates the model cache with a model.
//
// Parameters:
//   - key: the cache key for the model
//   - model: the model to cache
//
// Returns:
//   - LoaderBuilderOption: a function that applies the model option to a loader
func WithModel(key string, model model.Model) LoaderBuilderOption {
	return func(l *loader) {
		l.modelCache[key] = model
	}
}
