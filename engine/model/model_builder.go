package model

// ModelBuilderOption is a functional option for configuring a Model via NewModel.
type ModelBuilderOption func(*model)

// WithName is an option builder that sets the name of the Model.
//
// Parameters:
//   - name: the model identifier
//
// Returns:
//   - ModelBuilderOption: a function that applies the name option to a model
func WithName(name string) ModelBuilderOption {
	return func(m *model) {
		m.name = name
	}
}

// WithPath is an option builder that records the file the Model was loaded from.
//
// Parameters:
//   - path: the source file path
//
// Returns:
//   - ModelBuilderOption: a function that applies the path option to a model
func WithPath(path string) ModelBuilderOption {
	return func(m *model) {
		m.path = path
	}
}

// WithVertices is an option builder that sets the vertex positions of the Model.
//
// Parameters:
//   - vertices: model-space positions
//
// Returns:
//   - ModelBuilderOption: a function that applies the vertices option to a model
func WithVertices(vertices [][3]float32) ModelBuilderOption {
	return func(m *model) {
		m.vertices = vertices
	}
}

// WithFaces is an option builder that sets the polygon faces of the Model.
//
// Parameters:
//   - faces: ordered vertex indices per face
//
// Returns:
//   - ModelBuilderOption: a function that applies the faces option to a model
func WithFaces(faces [][]uint32) ModelBuilderOption {
	return func(m *model) {
		m.faces = faces
	}
}

// WithImported is an option builder that sets the vertices and faces from an ImportedModel,
// merging all of its meshes. The name is taken from the import when not already set.
//
// Parameters:
//   - imported: the parsed file contents
//
// Returns:
//   - ModelBuilderOption: a function that applies the imported mesh data to a model
func WithImported(imported *ImportedModel) ModelBuilderOption {
	return func(m *model) {
		m.vertices, m.faces = imported.Merge()
		if m.name == "" {
			m.name = imported.Name
		}
	}
}
