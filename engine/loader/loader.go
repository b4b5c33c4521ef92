package loader

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/Carmen-Shannon/oxy-overlay/engine/model"
	"github.com/schollz/progressbar/v3"
)

// ErrUnsupportedFormat is returned when a file extension has no loader backend.
var ErrUnsupportedFormat = errors.New("unsupported model format")

// ErrNoPaths is returned by LoadAll when called with an empty path list.
var ErrNoPaths = errors.New("no model paths given")

// DefaultWorkers is the number of concurrent parse workers used by LoadAll.
const DefaultWorkers = 4

// loader is the implementation of the Loader interface.
type loader struct {
	mu sync.RWMutex

	modelCache map[string]model.Model

	workers  int
	progress io.Writer
	quiet    bool

	objBackend  loaderBackend
	gltfBackend loaderBackend
}

// Loader defines the public-facing interface for loading and caching 3D models.
// The file format (OBJ, glTF, GLB) is resolved from the extension and parsed by
// a format-specific backend; the result is validated into a model.Model and cached.
type Loader interface {
	// Load imports a model file and caches the result.
	// If the model is already cached (by file path), the cached version is returned.
	//
	// Parameters:
	//   - path: the file path to the model file
	//
	// Returns:
	//   - model.Model: the loaded and cached model
	//   - error: error if the file is missing, malformed or of an unsupported format
	Load(path string) (model.Model, error)

	// LoadReader imports a model from a reader stream and caches it by the given name.
	//
	// Parameters:
	//   - name: the cache key for the loaded model
	//   - r: the reader providing model data
	//   - format: the file format of the data
	//
	// Returns:
	//   - model.Model: the loaded model
	//   - error: error if loading fails
	LoadReader(name string, r io.Reader, format Format) (model.Model, error)

	// LoadAll loads every path concurrently and returns a Registry in path order.
	// Loading is all-or-nothing: if any path fails the first error (in path order) is
	// returned and no Registry is produced.
	//
	// Parameters:
	//   - ctx: cancels loading between files
	//   - paths: the ordered model file paths
	//
	// Returns:
	//   - model.Registry: the registry with the first model active
	//   - error: error if any model fails to load or ctx is cancelled
	LoadAll(ctx context.Context, paths []string) (model.Registry, error)

	// Get retrieves a cached model by name. Returns nil if not found.
	//
	// Parameters:
	//   - name: the cache key to look up
	//
	// Returns:
	//   - model.Model: the cached model or nil
	Get(name string) model.Model

	// Models returns a copy of the model cache.
	//
	// Returns:
	//   - map[string]model.Model: all cached models keyed by name
	Models() map[string]model.Model
}

var _ Loader = &loader{}

// NewLoader creates a new Loader instance with the provided options applied.
//
// Parameters:
//   - options: a variadic list of LoaderBuilderOption functions to configure the Loader
//
// Returns:
//   - Loader: a new instance of Loader
func NewLoader(options ...LoaderBuilderOption) Loader {
	l := &loader{
		mu:          sync.RWMutex{},
		modelCache:  make(map[string]model.Model),
		workers:     DefaultWorkers,
		objBackend:  newOBJLoaderBackend(),
		gltfBackend: newGLTFLoaderBackend(),
	}

	for _, option := range options {
		option(l)
	}
	if l.workers < 1 {
		l.workers = 1
	}
	return l
}

func (l *loader) Load(path string) (model.Model, error) {
	l.mu.RLock()
	if cached, ok := l.modelCache[path]; ok {
		l.mu.RUnlock()
		return cached, nil
	}
	l.mu.RUnlock()

	backend, err := l.resolveBackend(path)
	if err != nil {
		return nil, err
	}

	imported, err := backend.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", path, err)
	}

	m, err := importedToModel(imported, path)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", path, err)
	}

	l.mu.Lock()
	l.modelCache[path] = m
	l.mu.Unlock()

	return m, nil
}

func (l *loader) LoadReader(name string, r io.Reader, format Format) (model.Model, error) {
	l.mu.RLock()
	if cached, ok := l.modelCache[name]; ok {
		l.mu.RUnlock()
		return cached, nil
	}
	l.mu.RUnlock()

	var backend loaderBackend
	switch format {
	case FormatOBJ:
		backend = l.objBackend
	case FormatGLTF:
		backend = l.gltfBackend
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}

	imported, err := backend.LoadReader(name, r)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", name, err)
	}

	m, err := importedToModel(imported, "")
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", name, err)
	}

	l.mu.Lock()
	l.modelCache[name] = m
	l.mu.Unlock()

	return m, nil
}

func (l *loader) LoadAll(ctx context.Context, paths []string) (model.Registry, error) {
	if len(paths) == 0 {
		return nil, ErrNoPaths
	}

	var bar *progressbar.ProgressBar
	if l.progress != nil {
		bar = progressbar.NewOptions(len(paths),
			progressbar.OptionSetDescription("Loading models"),
			progressbar.OptionSetWriter(l.progress),
			progressbar.OptionShowCount(),
		)
	}

	models := make([]model.Model, len(paths))
	errs := make([]error, len(paths))

	pool := worker.NewDynamicWorkerPool(min(l.workers, len(paths)), 256, 1*time.Second)
	var wg sync.WaitGroup
	for i, path := range paths {
		wg.Add(1)
		idx, p := i, path
		pool.SubmitTask(worker.Task{
			ID: idx,
			Do: func() (any, error) {
				defer wg.Done()
				if err := ctx.Err(); err != nil {
					errs[idx] = err
					return nil, err
				}
				m, err := l.Load(p)
				if err != nil {
					errs[idx] = err
					return nil, err
				}
				models[idx] = m
				if bar != nil {
					_ = bar.Add(1)
				}
				return m, nil
			},
		})
	}
	wg.Wait()

	if bar != nil {
		_ = bar.Finish()
	}

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}

	var reg model.Registry
	var err error
	if l.quiet {
		reg, err = model.NewQuietRegistry(models...)
	} else {
		reg, err = model.NewRegistry(models...)
	}
	if err != nil {
		return nil, err
	}

	if !l.quiet {
		log.Printf("[Loader] loaded %d models", len(models))
	}
	return reg, nil
}

func (l *loader) Get(name string) model.Model {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.modelCache[name]
}

func (l *loader) Models() map[string]model.Model {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make(map[string]model.Model, len(l.modelCache))
	for k, v := range l.modelCache {
		out[k] = v
	}
	return out
}

// resolveBackend picks the loader backend from the file extension.
//
// Parameters:
//   - path: the model file path
//
// Returns:
//   - loaderBackend: the backend for the extension
//   - error: ErrUnsupportedFormat for unknown extensions
func (l *loader) resolveBackend(path string) (loaderBackend, error) {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".obj":
		return l.objBackend, nil
	case ".gltf", ".glb":
		return l.gltfBackend, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}
}

// importedToModel merges the imported meshes and validates them into a Model.
func importedToModel(imported *model.ImportedModel, path string) (model.Model, error) {
	return model.NewModel(
		model.WithImported(imported),
		model.WithPath(path),
	)
}
