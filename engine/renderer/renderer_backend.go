package renderer

import "github.com/Carmen-Shannon/oxy-overlay/common"

// RendererBackendType identifies the GPU backend implementation used by the Renderer.
type RendererBackendType int

const (
	// BackendTypeWGPU selects the WebGPU-based rendering backend.
	BackendTypeWGPU RendererBackendType = iota
)

// PresentMode controls how rendered frames are presented to the display surface.
type PresentMode int

const (
	// PresentModeVSync waits for the next vertical blank before presenting, capping frame rate
	// to the monitor's refresh rate. Eliminates tearing.
	PresentModeVSync PresentMode = iota

	// PresentModeUncapped presents frames immediately without waiting for vertical blank.
	// May cause screen tearing but provides the lowest latency.
	PresentModeUncapped
)

// MSAASampleCount controls the number of samples used for multisample anti-aliasing (MSAA).
// WebGPU guarantees support for 1 (off) and 4.
type MSAASampleCount uint32

const (
	// MSAAOff disables multisample anti-aliasing (sample count 1).
	MSAAOff MSAASampleCount = 1

	// MSAA4x enables 4x multisample anti-aliasing. This is the default.
	MSAA4x MSAASampleCount = 4
)

// MeshHandle is a model uploaded to GPU vertex and index buffers.
type MeshHandle interface {
	// IndexCount returns the number of indices drawn.
	IndexCount() int

	// Release frees the GPU buffers.
	Release()
}

// RendererBackend is the GPU-facing half of the Renderer.
// It knows about surfaces, textures, buffers and draw calls but nothing about frames or models.
type RendererBackend interface {
	// ConfigureSurface (re)creates the swapchain, MSAA and depth targets for the given size.
	// A zero dimension leaves the surface unconfigured until the next non-zero size.
	ConfigureSurface(width, height int)

	// SetPresentMode sets the present mode used by the next ConfigureSurface.
	SetPresentMode(mode PresentMode)

	// CreateBackgroundTexture allocates the background texture, its sampler and bind group.
	//
	// Parameters:
	//   - width: the texture width in pixels
	//   - height: the texture height in pixels
	//   - sampler: the sampler configuration
	//
	// Returns:
	//   - error: error if any GPU object cannot be created
	CreateBackgroundTexture(width, height int, sampler common.SamplerStagingData) error

	// DestroyBackgroundTexture releases the background texture and everything bound to it.
	DestroyBackgroundTexture()

	// WriteBackgroundTexture replaces the background texture contents with RGBA pixels.
	WriteBackgroundTexture(data common.TextureStagingData)

	// CreateMesh uploads vertex and index data.
	//
	// Parameters:
	//   - label: the debug label for the buffers
	//   - vertexData: tightly packed float32x3 positions
	//   - indexData: uint32 triangle indices
	//   - indexCount: the number of indices
	//
	// Returns:
	//   - MeshHandle: the uploaded mesh
	//   - error: error if buffer creation fails
	CreateMesh(label string, vertexData, indexData []byte, indexCount int) (MeshHandle, error)

	// BeginFrame acquires the surface texture and opens the render pass with cleared targets.
	BeginFrame() error

	// DrawBackground draws the background quad.
	//
	// Parameters:
	//   - vertexData: four float32 (x, y, u, v) vertices
	//   - uniform: the 64-byte transform
	//
	// Returns:
	//   - error: error if no frame or background texture is active
	DrawBackground(vertexData, uniform []byte) error

	// DrawMesh draws an uploaded mesh with the flat-color pipeline.
	//
	// Parameters:
	//   - mesh: the uploaded mesh
	//   - uniform: the 80-byte transform and color
	//
	// Returns:
	//   - error: error if no frame is active
	DrawMesh(mesh MeshHandle, uniform []byte) error

	// EndFrame closes the render pass and submits the command buffer.
	EndFrame() error

	// Present presents the acquired surface texture.
	Present()

	// Release frees every GPU object owned by the backend.
	Release()
}
