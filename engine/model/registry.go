package model

import (
	"errors"
	"fmt"
	"log"
	"sync/atomic"
)

// ErrEmptyRegistry is returned when a registry is constructed without any models.
var ErrEmptyRegistry = errors.New("model registry is empty")

// registry is the implementation of the Registry interface.
type registry struct {
	models []Model
	index  atomic.Int64
	quiet  bool
}

// Registry holds the ordered set of loaded models and the index of the active one.
// The active index is read by the render goroutine every frame and advanced by user input,
// so every accessor is safe for concurrent use.
type Registry interface {
	// Active returns the model at the current index.
	//
	// Returns:
	//   - Model: the active model (never nil)
	Active() Model

	// Advance moves the active index to (index+1) mod Len. The change is visible to the very
	// next Active call. With a single model the index wraps to itself.
	//
	// Returns:
	//   - int: the new active index
	Advance() int

	// Select sets the active index directly.
	//
	// Parameters:
	//   - index: the model index to activate
	//
	// Returns:
	//   - error: error if index is out of range
	Select(index int) error

	// Index returns the current active index.
	//
	// Returns:
	//   - int: the active index
	Index() int

	// Len returns the number of models in the registry.
	//
	// Returns:
	//   - int: the model count
	Len() int

	// Models returns a copy of the ordered model list.
	//
	// Returns:
	//   - []Model: the models in registry order
	Models() []Model
}

var _ Registry = &registry{}

// NewRegistry creates a Registry over the given models with the first model active.
//
// Parameters:
//   - models: the models in cycling order
//
// Returns:
//   - Registry: the new registry
//   - error: ErrEmptyRegistry when models is empty, or an error if any model is nil
func NewRegistry(models ...Model) (Registry, error) {
	if len(models) == 0 {
		return nil, ErrEmptyRegistry
	}
	for i, m := range models {
		if m == nil {
			return nil, fmt.Errorf("model registry: model %d is nil", i)
		}
	}
	r := &registry{models: append([]Model(nil), models...)}
	return r, nil
}

// NewQuietRegistry is NewRegistry without the switch log line, for tools and tests.
func NewQuietRegistry(models ...Model) (Registry, error) {
	r, err := NewRegistry(models...)
	if err != nil {
		return nil, err
	}
	r.(*registry).quiet = true
	return r, nil
}

func (r *registry) Active() Model {
	return r.models[r.index.Load()]
}

func (r *registry) Advance() int {
	n := int64(len(r.models))
	for {
		cur := r.index.Load()
		next := (cur + 1) % n
		if r.index.CompareAndSwap(cur, next) {
			if !r.quiet {
				m := r.models[next]
				log.Printf("[Registry] model switched to %s", describe(m))
			}
			return int(next)
		}
	}
}

func (r *registry) Select(index int) error {
	if index < 0 || index >= len(r.models) {
		return fmt.Errorf("model index %d out of range [0,%d)", index, len(r.models))
	}
	r.index.Store(int64(index))
	return nil
}

func (r *registry) Index() int {
	return int(r.index.Load())
}

func (r *registry) Len() int {
	return len(r.models)
}

func (r *registry) Models() []Model {
	return append([]Model(nil), r.models...)
}

func describe(m Model) string {
	if p := m.Path(); p != "" {
		return p
	}
	return m.Name()
}
