package loader

import (
	"io"

	"github.com/Carmen-Shannon/oxy-overlay/engine/model"
)

// Format identifies a mesh file format.
type Format int

const (
	// FormatOBJ is Wavefront OBJ (with optional sibling .mtl).
	FormatOBJ Format = iota

	// FormatGLTF is glTF 2.0, either JSON (.gltf) or binary (.glb).
	FormatGLTF
)

// String returns the conventional file extension of the format.
func (f Format) String() string {
	switch f {
	case FormatOBJ:
		return "obj"
	case FormatGLTF:
		return "gltf"
	default:
		return "unknown"
	}
}

// loaderBackend defines the generic interface for parsing a mesh file into an ImportedModel.
// Concrete implementations handle format-specific details.
type loaderBackend interface {
	// Load parses the mesh file at path.
	//
	// Parameters:
	//   - path: the file path to load
	//
	// Returns:
	//   - *model.ImportedModel: the parsed meshes
	//   - error: error if the file is missing or malformed
	Load(path string) (*model.ImportedModel, error)

	// LoadReader parses a mesh from a reader stream.
	//
	// Parameters:
	//   - name: the name given to the imported model
	//   - r: the reader providing file data
	//
	// Returns:
	//   - *model.ImportedModel: the parsed meshes
	//   - error: error if the data is malformed
	LoadReader(name string, r io.Reader) (*model.ImportedModel, error)
}
