package loader

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/Carmen-Shannon/oxy-overlay/engine/model"
	"github.com/g3n/engine/loader/obj"
)

// objLoaderBackendImpl is the implementation of objLoaderBackend.
type objLoaderBackendImpl struct{}

// objLoaderBackend is a loaderBackend implementation for Wavefront OBJ files.
// Materials are parsed when a sibling .mtl file exists but only geometry is kept.
type objLoaderBackend interface {
	loaderBackend
}

var _ objLoaderBackend = &objLoaderBackendImpl{}

// newOBJLoaderBackend creates a new Wavefront OBJ loader backend.
//
// Returns:
//   - objLoaderBackend: the loader backend for .obj files
func newOBJLoaderBackend() objLoaderBackend {
	return &objLoaderBackendImpl{}
}

func (b *objLoaderBackendImpl) Load(path string) (*model.ImportedModel, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()

	var mtl io.Reader = bytes.NewReader(nil)
	mtlPath := strings.TrimSuffix(path, filepath.Ext(path)) + ".mtl"
	if mf, err := os.Open(mtlPath); err == nil {
		defer mf.Close()
		mtl = mf
	}

	return decodeOBJ(f, mtl, strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)))
}

func (b *objLoaderBackendImpl) LoadReader(name string, r io.Reader) (*model.ImportedModel, error) {
	return decodeOBJ(r, bytes.NewReader(nil), name)
}

// decodeOBJ runs the g3n decoder and flattens every object into one mesh.
// OBJ face indices address the file-wide vertex list, so the objects cannot be split
// into independent meshes without re-basing; a single mesh keeps them as-is.
func decodeOBJ(r, mtl io.Reader, name string) (*model.ImportedModel, error) {
	dec, err := obj.DecodeReader(r, mtl)
	if err != nil {
		return nil, fmt.Errorf("failed to decode OBJ: %w", err)
	}

	vertexCount := len(dec.Vertices) / 3
	positions := make([][3]float32, vertexCount)
	for i := range positions {
		positions[i] = [3]float32{dec.Vertices[3*i], dec.Vertices[3*i+1], dec.Vertices[3*i+2]}
	}

	var faces [][]uint32
	for _, o := range dec.Objects {
		for fi, face := range o.Faces {
			f := make([]uint32, len(face.Vertices))
			for i, v := range face.Vertices {
				if v < 0 || v >= vertexCount {
					return nil, fmt.Errorf("object %q face %d references vertex %d of %d", o.Name, fi, v, vertexCount)
				}
				f[i] = uint32(v)
			}
			faces = append(faces, f)
		}
	}

	return &model.ImportedModel{
		Name: name,
		Meshes: []model.ImportedMesh{{
			Name:      name,
			Positions: positions,
			Faces:     faces,
		}},
	}, nil
}
