package renderer

import (
	"errors"
	"fmt"
	"sync"

	"github.com/Carmen-Shannon/oxy-overlay/common"
	"github.com/Carmen-Shannon/oxy-overlay/engine/compositor"
	"github.com/Carmen-Shannon/oxy-overlay/engine/model"
	"github.com/Carmen-Shannon/oxy-overlay/engine/window"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/go-gl/mathgl/mgl32"
)

// ErrNoBackgroundTexture is returned by UploadBackground before CreateBackgroundTexture succeeds.
var ErrNoBackgroundTexture = errors.New("background texture not allocated")

// meshUniform mirrors the WGSL MeshUniform struct.
type meshUniform struct {
	MVP   mgl32.Mat4
	Color mgl32.Vec4
}

// renderer is the implementation of the Renderer interface.
type renderer struct {
	mu *sync.Mutex

	backendType RendererBackendType
	backend     RendererBackend

	meshCache map[model.Model]MeshHandle

	bgWidth, bgHeight int
	bgAllocated       bool
	scratch           []byte

	// Pre-creation config collected from builder options
	forceFallbackAdapter bool
	pendingPresentMode   *PresentMode
	pendingMSAA          *MSAASampleCount
	clearColor           wgpu.Color
}

// Renderer draws the camera background and the active model onto the window surface.
//
// It satisfies compositor.Backend, so the compositor decides what is drawn and with which
// matrices while the Renderer owns every GPU object. It also owns the single background
// texture whose lifetime follows the capture session.
type Renderer interface {
	compositor.Backend

	// CreateBackgroundTexture allocates the background texture at the camera's frame size.
	//
	// Parameters:
	//   - width: the frame width in pixels
	//   - height: the frame height in pixels
	//
	// Returns:
	//   - error: error if a texture is already allocated or GPU allocation fails
	CreateBackgroundTexture(width, height int) error

	// DeleteBackgroundTexture releases the background texture. Safe to call when none exists.
	//
	// Returns:
	//   - error: always nil for the WebGPU backend
	DeleteBackgroundTexture() error

	// SetPresentMode changes the present mode, taking effect on the next resize.
	//
	// Parameters:
	//   - mode: the PresentMode to use
	SetPresentMode(mode PresentMode)

	// Release frees the cached meshes, the background texture and the backend.
	Release()
}

var _ Renderer = &renderer{}

// NewRenderer creates a Renderer that presents into the given window.
//
// Parameters:
//   - backendType: the GPU backend to use
//   - win: the window providing the surface and its initial size
//   - options: functional options for renderer configuration
//
// Returns:
//   - Renderer: the configured renderer
//   - error: error if the GPU adapter, device or pipelines cannot be created
func NewRenderer(backendType RendererBackendType, win window.Window, options ...RendererBuilderOption) (Renderer, error) {
	r := newRenderer(backendType, options...)

	msaa := MSAA4x
	if r.pendingMSAA != nil {
		msaa = *r.pendingMSAA
	}

	switch backendType {
	case BackendTypeWGPU:
		fallthrough
	default:
		backend, err := newWGPURendererBackend(win.SurfaceDescriptor(), r.forceFallbackAdapter, msaa, r.clearColor, win.Width(), win.Height())
		if err != nil {
			return nil, fmt.Errorf("create wgpu backend: %w", err)
		}
		r.backend = backend
	}

	r.applyPending(win.Width(), win.Height())
	return r, nil
}

// newRendererWithBackend wraps an existing backend.
func newRendererWithBackend(backend RendererBackend, options ...RendererBuilderOption) *renderer {
	r := newRenderer(BackendTypeWGPU, options...)
	r.backend = backend
	return r
}

func newRenderer(backendType RendererBackendType, options ...RendererBuilderOption) *renderer {
	r := &renderer{
		mu:          &sync.Mutex{},
		backendType: backendType,
		meshCache:   make(map[model.Model]MeshHandle),
		clearColor:  wgpu.Color{R: 0, G: 0, B: 0, A: 1},
	}
	for _, opt := range options {
		opt(r)
	}
	return r
}

// applyPending pushes the present mode chosen at build time into the backend.
func (r *renderer) applyPending(width, height int) {
	if r.pendingPresentMode != nil {
		r.backend.SetPresentMode(*r.pendingPresentMode)
		r.backend.ConfigureSurface(width, height)
	}
}

func (r *renderer) SetViewport(width, height int) {
	r.backend.ConfigureSurface(width, height)
}

func (r *renderer) SetPresentMode(mode PresentMode) {
	r.backend.SetPresentMode(mode)
}

func (r *renderer) CreateBackgroundTexture(width, height int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.bgAllocated {
		return errors.New("background texture already allocated")
	}
	if width <= 0 || height <= 0 {
		return fmt.Errorf("invalid background size %dx%d", width, height)
	}
	if err := r.backend.CreateBackgroundTexture(width, height, common.SamplerStagingData{}); err != nil {
		return fmt.Errorf("create background texture: %w", err)
	}
	r.bgWidth, r.bgHeight = width, height
	r.bgAllocated = true
	r.scratch = make([]byte, width*height*4)
	return nil
}

func (r *renderer) DeleteBackgroundTexture() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.bgAllocated {
		return nil
	}
	r.backend.DestroyBackgroundTexture()
	r.bgAllocated = false
	r.scratch = nil
	return nil
}

func (r *renderer) BeginFrame() error {
	return r.backend.BeginFrame()
}

func (r *renderer) UploadBackground(frame *common.Frame) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.bgAllocated {
		return ErrNoBackgroundTexture
	}
	if frame == nil {
		return fmt.Errorf("%w: nil frame", compositor.ErrFrameSize)
	}
	if frame.Width != r.bgWidth || frame.Height != r.bgHeight {
		return fmt.Errorf("%w: frame %dx%d, texture %dx%d", compositor.ErrFrameSize, frame.Width, frame.Height, r.bgWidth, r.bgHeight)
	}
	if err := frame.Validate(); err != nil {
		return err
	}

	r.scratch = frame.RGBA(r.scratch)
	r.backend.WriteBackgroundTexture(common.TextureStagingData{
		Pixels: r.scratch,
		Width:  uint32(frame.Width),
		Height: uint32(frame.Height),
	})
	return nil
}

func (r *renderer) DrawBackground(quad compositor.Quad, mvp mgl32.Mat4) error {
	var vertices [16]float32
	for i := 0; i < 4; i++ {
		vertices[i*4] = quad.Positions[i].X()
		vertices[i*4+1] = quad.Positions[i].Y()
		vertices[i*4+2] = quad.TexCoords[i].X()
		vertices[i*4+3] = quad.TexCoords[i].Y()
	}
	corrected := common.ClipSpaceCorrection.Mul4(mvp)
	return r.backend.DrawBackground(common.SliceToBytes(vertices[:]), common.StructToBytes(&corrected))
}

func (r *renderer) DrawMesh(m model.Model, mvp mgl32.Mat4, color mgl32.Vec4) error {
	if m == nil {
		return errors.New("nil model")
	}
	mesh, err := r.mesh(m)
	if err != nil {
		return err
	}
	if mesh.IndexCount() == 0 {
		return nil
	}
	uniform := meshUniform{
		MVP:   common.ClipSpaceCorrection.Mul4(mvp),
		Color: color,
	}
	return r.backend.DrawMesh(mesh, common.StructToBytes(&uniform))
}

// mesh returns the uploaded buffers for m, creating them on first use.
func (r *renderer) mesh(m model.Model) (MeshHandle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if mesh, ok := r.meshCache[m]; ok {
		return mesh, nil
	}

	indices := m.TriangleIndices()
	mesh, err := r.backend.CreateMesh(m.Name(), common.SliceToBytes(m.Vertices()), common.SliceToBytes(indices), len(indices))
	if err != nil {
		return nil, fmt.Errorf("upload model %q: %w", m.Name(), err)
	}
	r.meshCache[m] = mesh
	return mesh, nil
}

func (r *renderer) EndFrame() error {
	if err := r.backend.EndFrame(); err != nil {
		return err
	}
	r.backend.Present()
	return nil
}

func (r *renderer) Release() {
	r.mu.Lock()
	defer r.mu.Unlock()

	for m, mesh := range r.meshCache {
		mesh.Release()
		delete(r.meshCache, m)
	}
	if r.bgAllocated {
		r.backend.DestroyBackgroundTexture()
		r.bgAllocated = false
	}
	r.backend.Release()
}
