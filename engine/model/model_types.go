package model

// ImportedModel is the CPU-side result of parsing a mesh file, before it is validated into a Model.
// A file may contain several meshes; the loader merges them into a single vertex/face list.
type ImportedModel struct {
	// Name is the model identifier (file base name or the document's own name).
	Name string

	// Meshes holds every mesh found in the file, in file order.
	Meshes []ImportedMesh
}

// ImportedMesh is a single mesh of an ImportedModel.
// Face indices are local to the mesh's own Positions.
type ImportedMesh struct {
	// Name is the mesh or object name from the source file (may be empty).
	Name string

	// Positions holds the vertex positions in model space.
	Positions [][3]float32

	// Faces holds polygons as ordered vertex indices into Positions.
	Faces [][]uint32
}

// Merge flattens the meshes of an ImportedModel into a single vertex list and face list,
// offsetting each mesh's face indices by the number of vertices that precede it.
//
// Returns:
//   - [][3]float32: all vertex positions in mesh order
//   - [][]uint32: all faces in mesh order with re-based indices
func (m *ImportedModel) Merge() ([][3]float32, [][]uint32) {
	var vertices [][3]float32
	var faces [][]uint32
	offset := uint32(0)
	for _, mesh := range m.Meshes {
		vertices = append(vertices, mesh.Positions...)
		for _, f := range mesh.Faces {
			adjusted := make([]uint32, len(f))
			for i, idx := range f {
				adjusted[i] = idx + offset
			}
			faces = append(faces, adjusted)
		}
		offset += uint32(len(mesh.Positions))
	}
	return vertices, faces
}
