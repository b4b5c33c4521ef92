package model

import (
	"errors"
	"fmt"
)

var (
	// ErrNoVertices is returned when a model has an empty vertex list.
	ErrNoVertices = errors.New("model has no vertices")

	// ErrNoFaces is returned when a model has an empty face list.
	ErrNoFaces = errors.New("model has no faces")

	// ErrFaceIndex is returned when a face references a vertex outside the vertex list.
	ErrFaceIndex = errors.New("face index out of range")

	// ErrDegenerateFace is returned when a face has fewer than three vertices.
	ErrDegenerateFace = errors.New("face has fewer than 3 vertices")
)

// model is the implementation of the Model interface.
type model struct {
	name     string
	path     string
	vertices [][3]float32
	faces    [][]uint32

	triangles []uint32
}

// Model is an immutable, validated mesh: an ordered list of vertex positions and an ordered
// list of polygon faces drawn flat-shaded. Every face index is in range for the vertex list.
// Models are loaded once at startup and only ever read afterwards, so they are safe to share
// between the tick and render goroutines.
type Model interface {
	// Name retrieves the model identifier.
	//
	// Returns:
	//   - string: the model name
	Name() string

	// Path retrieves the file path the model was loaded from, if any.
	//
	// Returns:
	//   - string: the source path or an empty string for in-memory models
	Path() string

	// Vertices retrieves the model-space vertex positions.
	// The returned slice must not be modified.
	//
	// Returns:
	//   - [][3]float32: the vertex positions
	Vertices() [][3]float32

	// Faces retrieves the polygon faces as ordered vertex indices.
	// The returned slice must not be modified.
	//
	// Returns:
	//   - [][]uint32: the faces in mesh order
	Faces() [][]uint32

	// TriangleIndices returns the faces as a triangle list. Polygons with more than three
	// vertices are fanned around their first vertex. Face order and the vertex order
	// inside each face are preserved.
	//
	// Returns:
	//   - []uint32: index triples into Vertices
	TriangleIndices() []uint32
}

var _ Model = &model{}

// NewModel creates a Model from the provided options and validates it.
//
// Parameters:
//   - options: functional options for model configuration
//
// Returns:
//   - Model: the validated model
//   - error: error if the model is empty or a face index is out of range
func NewModel(options ...ModelBuilderOption) (Model, error) {
	m := &model{}
	for _, opt := range options {
		opt(m)
	}

	if err := m.validate(); err != nil {
		return nil, fmt.Errorf("model %q: %w", m.name, err)
	}
	m.triangles = triangulate(m.faces)

	return m, nil
}

func (m *model) Name() string {
	return m.name
}

func (m *model) Path() string {
	return m.path
}

func (m *model) Vertices() [][3]float32 {
	return m.vertices
}

func (m *model) Faces() [][]uint32 {
	return m.faces
}

func (m *model) TriangleIndices() []uint32 {
	return m.triangles
}

// validate enforces the non-empty and in-range invariants.
func (m *model) validate() error {
	if len(m.vertices) == 0 {
		return ErrNoVertices
	}
	if len(m.faces) == 0 {
		return ErrNoFaces
	}
	n := uint32(len(m.vertices))
	for i, f := range m.faces {
		if len(f) < 3 {
			return fmt.Errorf("face %d: %w", i, ErrDegenerateFace)
		}
		for _, idx := range f {
			if idx >= n {
				return fmt.Errorf("face %d index %d (vertex count %d): %w", i, idx, n, ErrFaceIndex)
			}
		}
	}
	return nil
}

// triangulate fans each face into triangles around its first vertex.
func triangulate(faces [][]uint32) []uint32 {
	count := 0
	for _, f := range faces {
		count += (len(f) - 2) * 3
	}
	out := make([]uint32, 0, count)
	for _, f := range faces {
		for i := 1; i+1 < len(f); i++ {
			out = append(out, f[0], f[i], f[i+1])
		}
	}
	return out
}
