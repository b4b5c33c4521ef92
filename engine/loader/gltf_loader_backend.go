package loader

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/Carmen-Shannon/oxy-overlay/engine/model"
)

// gltfLoaderBackendImpl is the implementation of gltfLoaderBackend.
type gltfLoaderBackendImpl struct{}

// gltfLoaderBackend is a loaderBackend implementation for glTF/GLB files.
// Only mesh geometry (POSITION + indices) is extracted; every mesh in the document is kept.
type gltfLoaderBackend interface {
	loaderBackend
}

var _ gltfLoaderBackend = &gltfLoaderBackendImpl{}

// newGLTFLoaderBackend creates a new glTF loader backend.
//
// Returns:
//   - gltfLoaderBackend: the loader backend for glTF/GLB files
func newGLTFLoaderBackend() gltfLoaderBackend {
	return &gltfLoaderBackendImpl{}
}

func (b *gltfLoaderBackendImpl) Load(path string) (*model.ImportedModel, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	doc, err := decodeGLTF(data, filepath.Dir(path))
	if err != nil {
		return nil, err
	}
	return gltfToImported(doc, strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)))
}

func (b *gltfLoaderBackendImpl) LoadReader(name string, r io.Reader) (*model.ImportedModel, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read data: %w", err)
	}
	doc, err := decodeGLTF(data, "")
	if err != nil {
		return nil, err
	}
	return gltfToImported(doc, name)
}

// gltfToImported extracts one ImportedMesh per face-producing primitive.
// Point and line primitives are skipped.
func gltfToImported(doc *gltfDocument, name string) (*model.ImportedModel, error) {
	imported := &model.ImportedModel{Name: name}

	for mi, mesh := range doc.Meshes {
		for pi, prim := range mesh.Primitives {
			mode := gltfModeTriangles
			if prim.Mode != nil {
				mode = *prim.Mode
			}
			if mode != gltfModeTriangles && mode != gltfModeTriangleStrip && mode != gltfModeTriangleFan {
				continue
			}

			posIndex, ok := prim.Attributes["POSITION"]
			if !ok {
				return nil, fmt.Errorf("mesh %d primitive %d has no POSITION attribute", mi, pi)
			}
			positions, err := doc.readPositions(posIndex)
			if err != nil {
				return nil, fmt.Errorf("mesh %d primitive %d positions: %w", mi, pi, err)
			}

			var indices []uint32
			if prim.Indices != nil {
				if indices, err = doc.readIndices(*prim.Indices); err != nil {
					return nil, fmt.Errorf("mesh %d primitive %d indices: %w", mi, pi, err)
				}
			} else {
				indices = make([]uint32, len(positions))
				for i := range indices {
					indices[i] = uint32(i)
				}
			}

			meshName := mesh.Name
			if meshName == "" {
				meshName = fmt.Sprintf("mesh_%d", mi)
			}
			imported.Meshes = append(imported.Meshes, model.ImportedMesh{
				Name:      fmt.Sprintf("%s_%d", meshName, pi),
				Positions: positions,
				Faces:     assembleFaces(mode, indices),
			})
		}
	}

	return imported, nil
}

// assembleFaces converts an index stream into triangle faces for the given topology.
// Strip triangles alternate winding so every face keeps the same orientation.
func assembleFaces(mode int, indices []uint32) [][]uint32 {
	var faces [][]uint32
	switch mode {
	case gltfModeTriangleStrip:
		for i := 0; i+2 < len(indices); i++ {
			if i%2 == 0 {
				faces = append(faces, []uint32{indices[i], indices[i+1], indices[i+2]})
			} else {
				faces = append(faces, []uint32{indices[i+1], indices[i], indices[i+2]})
			}
		}
	case gltfModeTriangleFan:
		for i := 1; i+1 < len(indices); i++ {
			faces = append(faces, []uint32{indices[0], indices[i], indices[i+1]})
		}
	default:
		for i := 0; i+2 < len(indices); i += 3 {
			faces = append(faces, []uint32{indices[i], indices[i+1], indices[i+2]})
		}
	}
	return faces
}
