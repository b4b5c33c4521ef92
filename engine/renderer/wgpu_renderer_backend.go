package renderer

import (
	"errors"
	"fmt"
	"runtime"
	"sync"

	"github.com/Carmen-Shannon/oxy-overlay/common"
	"github.com/cogentcore/webgpu/wgpu"
)

const (
	// backgroundUniformSize is one mat4x4<f32>.
	backgroundUniformSize = 64

	// meshUniformSize is a mat4x4<f32> followed by a vec4<f32>.
	meshUniformSize = 80

	// backgroundVertexStride is (x, y, u, v) as float32.
	backgroundVertexStride = 16

	// meshVertexStride is (x, y, z) as float32.
	meshVertexStride = 12
)

var (
	errNoFrame             = errors.New("no frame in progress")
	errNoBackground        = errors.New("background texture not allocated")
	errSurfaceUnconfigured = errors.New("surface not configured")
)

// backgroundIndices are the two triangles of the background quad.
var backgroundIndices = []uint32{0, 1, 2, 0, 2, 3}

// wgpuMesh is a MeshHandle backed by wgpu buffers.
type wgpuMesh struct {
	vertexBuffer *wgpu.Buffer
	indexBuffer  *wgpu.Buffer
	indexCount   int
}

func (m *wgpuMesh) IndexCount() int {
	return m.indexCount
}

func (m *wgpuMesh) Release() {
	if m.vertexBuffer != nil {
		m.vertexBuffer.Release()
		m.vertexBuffer = nil
	}
	if m.indexBuffer != nil {
		m.indexBuffer.Release()
		m.indexBuffer = nil
	}
}

// wgpuBackground holds the background texture and the objects bound with it.
type wgpuBackground struct {
	width, height int

	texture *wgpu.Texture
	view    *wgpu.TextureView
	sampler *wgpu.Sampler

	uniformBuffer *wgpu.Buffer
	vertexBuffer  *wgpu.Buffer
	indexBuffer   *wgpu.Buffer
	bindGroup     *wgpu.BindGroup
}

func (bg *wgpuBackground) release() {
	if bg.bindGroup != nil {
		bg.bindGroup.Release()
	}
	for _, buf := range []*wgpu.Buffer{bg.uniformBuffer, bg.vertexBuffer, bg.indexBuffer} {
		if buf != nil {
			buf.Release()
		}
	}
	if bg.sampler != nil {
		bg.sampler.Release()
	}
	if bg.view != nil {
		bg.view.Release()
	}
	if bg.texture != nil {
		bg.texture.Destroy()
		bg.texture.Release()
	}
}

// wgpuPipeline is a render pipeline with the single bind group layout it was built with.
type wgpuPipeline struct {
	pipeline *wgpu.RenderPipeline
	layout   *wgpu.BindGroupLayout
}

func (p *wgpuPipeline) release() {
	if p.pipeline != nil {
		p.pipeline.Release()
	}
	if p.layout != nil {
		p.layout.Release()
	}
}

// wgpuRendererBackendImpl is the WebGPU implementation of RendererBackend.
type wgpuRendererBackendImpl struct {
	mu     *sync.Mutex
	device *wgpu.Device
	queue  *wgpu.Queue

	instance *wgpu.Instance
	adapter  *wgpu.Adapter
	surface  *wgpu.Surface

	surfaceFormat        *wgpu.TextureFormat
	msaaTexture          *wgpu.Texture
	msaaTextureView      *wgpu.TextureView
	depthTexture         *wgpu.Texture
	depthTextureView     *wgpu.TextureView
	renderPassDescriptor *wgpu.RenderPassDescriptor
	configured           bool

	presentMode wgpu.PresentMode
	sampleCount MSAASampleCount
	clearColor  wgpu.Color

	backgroundPipeline *wgpuPipeline
	meshPipeline       *wgpuPipeline

	background *wgpuBackground

	meshUniformBuffer *wgpu.Buffer
	meshBindGroup     *wgpu.BindGroup

	frameEncoder *wgpu.CommandEncoder
	framePass    *wgpu.RenderPassEncoder
	frameSurface *wgpu.Texture
	frameView    *wgpu.TextureView
}

var _ RendererBackend = &wgpuRendererBackendImpl{}

// newWGPURendererBackend creates the instance, surface, adapter and device, then builds the
// background and mesh pipelines for the surface's preferred format.
//
// Parameters:
//   - surfaceDescriptor: the platform surface from the window
//   - forceFallbackAdapter: true to request a software adapter
//   - sampleCount: the MSAA sample count of the main pass
//   - clearColor: the color the frame is cleared to
//   - width: the initial surface width
//   - height: the initial surface height
//
// Returns:
//   - *wgpuRendererBackendImpl: the backend with a configured surface
//   - error: error if the adapter, device or pipelines cannot be created
func newWGPURendererBackend(surfaceDescriptor *wgpu.SurfaceDescriptor, forceFallbackAdapter bool, sampleCount MSAASampleCount, clearColor wgpu.Color, width, height int) (_ *wgpuRendererBackendImpl, err error) {
	runtime.LockOSThread()
	b := &wgpuRendererBackendImpl{
		mu:          &sync.Mutex{},
		instance:    wgpu.CreateInstance(nil),
		presentMode: wgpu.PresentModeFifo,
		sampleCount: sampleCount,
		clearColor:  clearColor,
	}
	defer func() {
		if err != nil {
			b.Release()
		}
	}()
	b.surface = b.instance.CreateSurface(surfaceDescriptor)

	a, err := b.instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		ForceFallbackAdapter: forceFallbackAdapter,
		CompatibleSurface:    b.surface,
	})
	if err != nil {
		return nil, fmt.Errorf("request adapter: %w", err)
	}
	b.adapter = a

	d, err := a.RequestDevice(&wgpu.DeviceDescriptor{
		Label: "Overlay Device",
	})
	if err != nil {
		return nil, fmt.Errorf("request device: %w", err)
	}
	b.device = d
	b.queue = d.GetQueue()

	capabilities := b.surface.GetCapabilities(b.adapter)
	if len(capabilities.Formats) == 0 {
		return nil, errors.New("surface reports no supported formats")
	}
	b.surfaceFormat = &capabilities.Formats[0]

	if b.backgroundPipeline, err = b.createBackgroundPipeline(); err != nil {
		return nil, fmt.Errorf("background pipeline: %w", err)
	}
	if b.meshPipeline, err = b.createMeshPipeline(); err != nil {
		return nil, fmt.Errorf("mesh pipeline: %w", err)
	}
	if err := b.createMeshUniform(); err != nil {
		return nil, fmt.Errorf("mesh uniform: %w", err)
	}

	b.ConfigureSurface(width, height)
	return b, nil
}

func (b *wgpuRendererBackendImpl) ConfigureSurface(width, height int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if width <= 0 || height <= 0 {
		b.configured = false
		return
	}

	capabilities := b.surface.GetCapabilities(b.adapter)
	b.surface.Configure(b.adapter, b.device, &wgpu.SurfaceConfiguration{
		Usage:       wgpu.TextureUsageRenderAttachment,
		Format:      *b.surfaceFormat,
		Width:       uint32(width),
		Height:      uint32(height),
		PresentMode: b.presentMode,
		AlphaMode:   capabilities.AlphaModes[0],
	})

	b.releaseTargets()

	count := uint32(b.sampleCount)
	msaaEnabled := count > 1
	if msaaEnabled {
		// The pass draws into the MSAA texture and resolves into the swapchain view.
		msaaTexture, err := b.device.CreateTexture(&wgpu.TextureDescriptor{
			Label: "MSAA Texture",
			Size: wgpu.Extent3D{
				Width:              uint32(width),
				Height:             uint32(height),
				DepthOrArrayLayers: 1,
			},
			MipLevelCount: 1,
			SampleCount:   count,
			Dimension:     wgpu.TextureDimension2D,
			Format:        *b.surfaceFormat,
			Usage:         wgpu.TextureUsageRenderAttachment,
		})
		if err != nil {
			panic(err)
		}
		b.msaaTexture = msaaTexture
		b.msaaTextureView, err = msaaTexture.CreateView(nil)
		if err != nil {
			panic(err)
		}
	}

	// Depth texture sample count must match the color attachment.
	depthTexture, err := b.device.CreateTexture(&wgpu.TextureDescriptor{
		Label: "Depth Texture",
		Size: wgpu.Extent3D{
			Width:              uint32(width),
			Height:             uint32(height),
			DepthOrArrayLayers: 1,
		},
		MipLevelCount: 1,
		SampleCount:   count,
		Dimension:     wgpu.TextureDimension2D,
		Format:        wgpu.TextureFormatDepth24Plus,
		Usage:         wgpu.TextureUsageRenderAttachment,
	})
	if err != nil {
		panic(err)
	}
	b.depthTexture = depthTexture
	b.depthTextureView, err = depthTexture.CreateView(nil)
	if err != nil {
		panic(err)
	}

	storeOp := wgpu.StoreOpStore
	if msaaEnabled {
		storeOp = wgpu.StoreOpDiscard
	}
	b.renderPassDescriptor = &wgpu.RenderPassDescriptor{
		ColorAttachments: []wgpu.RenderPassColorAttachment{
			{
				View:       b.msaaTextureView, // nil when MSAA is off; set in BeginFrame
				LoadOp:     wgpu.LoadOpClear,
				StoreOp:    storeOp,
				ClearValue: b.clearColor,
			},
		},
		DepthStencilAttachment: &wgpu.RenderPassDepthStencilAttachment{
			View:            b.depthTextureView,
			DepthLoadOp:     wgpu.LoadOpClear,
			DepthStoreOp:    wgpu.StoreOpDiscard,
			DepthClearValue: 1.0,
		},
	}
	b.configured = true
}

// releaseTargets frees the MSAA and depth targets of the previous configuration.
func (b *wgpuRendererBackendImpl) releaseTargets() {
	if b.msaaTextureView != nil {
		b.msaaTextureView.Release()
		b.msaaTextureView = nil
	}
	if b.msaaTexture != nil {
		b.msaaTexture.Release()
		b.msaaTexture = nil
	}
	if b.depthTextureView != nil {
		b.depthTextureView.Release()
		b.depthTextureView = nil
	}
	if b.depthTexture != nil {
		b.depthTexture.Release()
		b.depthTexture = nil
	}
}

func (b *wgpuRendererBackendImpl) SetPresentMode(mode PresentMode) {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch mode {
	case PresentModeUncapped:
		b.presentMode = wgpu.PresentModeImmediate
	case PresentModeVSync:
		fallthrough
	default:
		b.presentMode = wgpu.PresentModeFifo
	}
}

// createPipeline builds a render pipeline with one bind group layout.
func (b *wgpuRendererBackendImpl) createPipeline(label, source string, entries []wgpu.BindGroupLayoutEntry, vertexLayout wgpu.VertexBufferLayout, depthTest bool) (*wgpuPipeline, error) {
	module, err := b.device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label: label + " Shader",
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{
			Code: source,
		},
	})
	if err != nil {
		return nil, err
	}

	layout, err := b.device.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
		Label:   label + " Bind Group Layout",
		Entries: entries,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create bind group layout: %w", err)
	}

	pipelineLayout, err := b.device.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		Label:            label,
		BindGroupLayouts: []*wgpu.BindGroupLayout{layout},
	})
	if err != nil {
		return nil, err
	}

	depthCompare := wgpu.CompareFunctionLess
	if !depthTest {
		depthCompare = wgpu.CompareFunctionAlways
	}

	created, err := b.device.CreateRenderPipeline(&wgpu.RenderPipelineDescriptor{
		Label:  label + " Render Pipeline",
		Layout: pipelineLayout,
		Vertex: wgpu.VertexState{
			Module:     module,
			EntryPoint: "vs_main",
			Buffers:    []wgpu.VertexBufferLayout{vertexLayout},
		},
		Fragment: &wgpu.FragmentState{
			Module:     module,
			EntryPoint: "fs_main",
			Targets: []wgpu.ColorTargetState{
				{
					Format:    *b.surfaceFormat,
					WriteMask: wgpu.ColorWriteMaskAll,
				},
			},
		},
		Primitive: wgpu.PrimitiveState{
			Topology:  wgpu.PrimitiveTopologyTriangleList,
			FrontFace: wgpu.FrontFaceCCW,
			CullMode:  wgpu.CullModeNone,
		},
		Multisample: wgpu.MultisampleState{
			Count: uint32(b.sampleCount),
			Mask:  0xFFFFFFFF,
		},
		DepthStencil: &wgpu.DepthStencilState{
			Format:            wgpu.TextureFormatDepth24Plus,
			DepthWriteEnabled: depthTest,
			DepthCompare:      depthCompare,
			StencilFront: wgpu.StencilFaceState{
				Compare: wgpu.CompareFunctionAlways,
			},
			StencilBack: wgpu.StencilFaceState{
				Compare: wgpu.CompareFunctionAlways,
			},
		},
	})
	if err != nil {
		return nil, err
	}
	return &wgpuPipeline{pipeline: created, layout: layout}, nil
}

// createBackgroundPipeline builds the textured quad pipeline; it neither tests nor writes depth.
func (b *wgpuRendererBackendImpl) createBackgroundPipeline() (*wgpuPipeline, error) {
	uniform := wgpu.BindGroupLayoutEntry{Binding: 0, Visibility: wgpu.ShaderStageVertex}
	uniform.Buffer.Type = wgpu.BufferBindingTypeUniform
	uniform.Buffer.MinBindingSize = backgroundUniformSize

	samp := wgpu.BindGroupLayoutEntry{Binding: 1, Visibility: wgpu.ShaderStageFragment}
	samp.Sampler.Type = wgpu.SamplerBindingTypeFiltering

	tex := wgpu.BindGroupLayoutEntry{Binding: 2, Visibility: wgpu.ShaderStageFragment}
	tex.Texture.SampleType = wgpu.TextureSampleTypeFloat
	tex.Texture.ViewDimension = wgpu.TextureViewDimension2D

	return b.createPipeline("Background", backgroundShader,
		[]wgpu.BindGroupLayoutEntry{uniform, samp, tex},
		wgpu.VertexBufferLayout{
			ArrayStride: backgroundVertexStride,
			StepMode:    wgpu.VertexStepModeVertex,
			Attributes: []wgpu.VertexAttribute{
				{Format: wgpu.VertexFormatFloat32x2, Offset: 0, ShaderLocation: 0},
				{Format: wgpu.VertexFormatFloat32x2, Offset: 8, ShaderLocation: 1},
			},
		},
		false,
	)
}

// createMeshPipeline builds the flat-color model pipeline with depth testing.
func (b *wgpuRendererBackendImpl) createMeshPipeline() (*wgpuPipeline, error) {
	uniform := wgpu.BindGroupLayoutEntry{Binding: 0, Visibility: wgpu.ShaderStageVertex | wgpu.ShaderStageFragment}
	uniform.Buffer.Type = wgpu.BufferBindingTypeUniform
	uniform.Buffer.MinBindingSize = meshUniformSize

	return b.createPipeline("Mesh", meshShader,
		[]wgpu.BindGroupLayoutEntry{uniform},
		wgpu.VertexBufferLayout{
			ArrayStride: meshVertexStride,
			StepMode:    wgpu.VertexStepModeVertex,
			Attributes: []wgpu.VertexAttribute{
				{Format: wgpu.VertexFormatFloat32x3, Offset: 0, ShaderLocation: 0},
			},
		},
		true,
	)
}

// createMeshUniform allocates the mesh uniform buffer and its bind group.
func (b *wgpuRendererBackendImpl) createMeshUniform() error {
	buf, err := b.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: "Mesh Uniform Buffer",
		Size:  meshUniformSize,
		Usage: wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return err
	}
	bindGroup, err := b.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:  "Mesh Bind Group",
		Layout: b.meshPipeline.layout,
		Entries: []wgpu.BindGroupEntry{
			{Binding: 0, Buffer: buf, Offset: 0, Size: wgpu.WholeSize},
		},
	})
	if err != nil {
		buf.Release()
		return err
	}
	b.meshUniformBuffer = buf
	b.meshBindGroup = bindGroup
	return nil
}

// createBuffer creates a buffer and writes data into it.
func (b *wgpuRendererBackendImpl) createBuffer(label string, usage wgpu.BufferUsage, data []byte, size int) (*wgpu.Buffer, error) {
	buf, err := b.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label:            label,
		Size:             uint64(size),
		Usage:            usage | wgpu.BufferUsageCopyDst,
		MappedAtCreation: false,
	})
	if err != nil {
		return nil, err
	}
	if len(data) > 0 {
		b.queue.WriteBuffer(buf, 0, data)
	}
	return buf, nil
}

func (b *wgpuRendererBackendImpl) CreateBackgroundTexture(width, height int, sampler common.SamplerStagingData) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.background != nil {
		return errors.New("background texture already allocated")
	}

	bg := &wgpuBackground{width: width, height: height}
	fail := func(err error) error {
		bg.release()
		return err
	}

	var err error
	bg.texture, err = b.device.CreateTexture(&wgpu.TextureDescriptor{
		Label:     "Background Texture",
		Usage:     wgpu.TextureUsageTextureBinding | wgpu.TextureUsageCopyDst,
		Dimension: wgpu.TextureDimension2D,
		Size: wgpu.Extent3D{
			Width:              uint32(width),
			Height:             uint32(height),
			DepthOrArrayLayers: 1,
		},
		Format:        wgpu.TextureFormatRGBA8UnormSrgb,
		MipLevelCount: 1,
		SampleCount:   1,
	})
	if err != nil {
		return fail(err)
	}
	if bg.view, err = bg.texture.CreateView(nil); err != nil {
		return fail(err)
	}

	bg.sampler, err = b.device.CreateSampler(&wgpu.SamplerDescriptor{
		Label:         "Background Sampler",
		AddressModeU:  common.Coalesce(sampler.AddressModeU, wgpu.AddressModeClampToEdge),
		AddressModeV:  common.Coalesce(sampler.AddressModeV, wgpu.AddressModeClampToEdge),
		AddressModeW:  common.Coalesce(sampler.AddressModeW, wgpu.AddressModeClampToEdge),
		MagFilter:     common.Coalesce(sampler.MagFilter, wgpu.FilterModeLinear),
		MinFilter:     common.Coalesce(sampler.MinFilter, wgpu.FilterModeLinear),
		MipmapFilter:  common.Coalesce(sampler.MipmapFilter, wgpu.MipmapFilterModeLinear),
		LodMinClamp:   common.Coalesce(sampler.LodMinClamp, 0.0),
		LodMaxClamp:   common.Coalesce(sampler.LodMaxClamp, 32.0),
		MaxAnisotropy: common.Coalesce(sampler.MaxAnisotropy, 1),
	})
	if err != nil {
		return fail(err)
	}

	if bg.uniformBuffer, err = b.createBuffer("Background Uniform Buffer", wgpu.BufferUsageUniform, nil, backgroundUniformSize); err != nil {
		return fail(err)
	}
	if bg.vertexBuffer, err = b.createBuffer("Background Vertex Buffer", wgpu.BufferUsageVertex, nil, 4*backgroundVertexStride); err != nil {
		return fail(err)
	}
	if bg.indexBuffer, err = b.createBuffer("Background Index Buffer", wgpu.BufferUsageIndex, common.SliceToBytes(backgroundIndices), len(backgroundIndices)*4); err != nil {
		return fail(err)
	}

	bg.bindGroup, err = b.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:  "Background Bind Group",
		Layout: b.backgroundPipeline.layout,
		Entries: []wgpu.BindGroupEntry{
			{Binding: 0, Buffer: bg.uniformBuffer, Offset: 0, Size: wgpu.WholeSize},
			{Binding: 1, Sampler: bg.sampler},
			{Binding: 2, TextureView: bg.view},
		},
	})
	if err != nil {
		return fail(err)
	}

	b.background = bg
	return nil
}

func (b *wgpuRendererBackendImpl) DestroyBackgroundTexture() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.background != nil {
		b.background.release()
		b.background = nil
	}
}

func (b *wgpuRendererBackendImpl) WriteBackgroundTexture(data common.TextureStagingData) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.background == nil {
		return
	}
	b.queue.WriteTexture(
		&wgpu.ImageCopyTexture{
			Texture:  b.background.texture,
			MipLevel: 0,
			Origin:   wgpu.Origin3D{},
			Aspect:   wgpu.TextureAspectAll,
		},
		data.Pixels,
		&wgpu.TextureDataLayout{
			Offset:       0,
			BytesPerRow:  data.Width * 4,
			RowsPerImage: data.Height,
		},
		&wgpu.Extent3D{
			Width:              data.Width,
			Height:             data.Height,
			DepthOrArrayLayers: 1,
		},
	)
}

func (b *wgpuRendererBackendImpl) CreateMesh(label string, vertexData, indexData []byte, indexCount int) (MeshHandle, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	vb, err := b.createBuffer(label+" Vertex Buffer", wgpu.BufferUsageVertex, vertexData, len(vertexData))
	if err != nil {
		return nil, err
	}
	ib, err := b.createBuffer(label+" Index Buffer", wgpu.BufferUsageIndex, indexData, len(indexData))
	if err != nil {
		vb.Release()
		return nil, err
	}
	return &wgpuMesh{vertexBuffer: vb, indexBuffer: ib, indexCount: indexCount}, nil
}

func (b *wgpuRendererBackendImpl) BeginFrame() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.configured {
		return errSurfaceUnconfigured
	}
	// Acquiring a second surface image before presenting the first is a validation error.
	if b.frameSurface != nil {
		return fmt.Errorf("previous frame surface not yet presented")
	}

	surfaceTexture, err := b.surface.GetCurrentTexture()
	if err != nil {
		return err
	}

	view, err := surfaceTexture.CreateView(nil)
	if err != nil {
		surfaceTexture.Release()
		return err
	}

	encoder, err := b.device.CreateCommandEncoder(nil)
	if err != nil {
		view.Release()
		surfaceTexture.Release()
		return err
	}

	if b.sampleCount > 1 {
		b.renderPassDescriptor.ColorAttachments[0].ResolveTarget = view
	} else {
		b.renderPassDescriptor.ColorAttachments[0].View = view
	}
	pass := encoder.BeginRenderPass(b.renderPassDescriptor)

	b.frameEncoder = encoder
	b.framePass = pass
	b.frameSurface = surfaceTexture
	b.frameView = view

	return nil
}

func (b *wgpuRendererBackendImpl) DrawBackground(vertexData, uniform []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.framePass == nil {
		return errNoFrame
	}
	if b.background == nil {
		return errNoBackground
	}

	b.queue.WriteBuffer(b.background.vertexBuffer, 0, vertexData)
	b.queue.WriteBuffer(b.background.uniformBuffer, 0, uniform)

	b.framePass.SetPipeline(b.backgroundPipeline.pipeline)
	b.framePass.SetBindGroup(0, b.background.bindGroup, nil)
	b.framePass.SetVertexBuffer(0, b.background.vertexBuffer, 0, wgpu.WholeSize)
	b.framePass.SetIndexBuffer(b.background.indexBuffer, wgpu.IndexFormatUint32, 0, wgpu.WholeSize)
	b.framePass.DrawIndexed(uint32(len(backgroundIndices)), 1, 0, 0, 0)
	return nil
}

func (b *wgpuRendererBackendImpl) DrawMesh(mesh MeshHandle, uniform []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.framePass == nil {
		return errNoFrame
	}
	m, ok := mesh.(*wgpuMesh)
	if !ok || m.vertexBuffer == nil {
		return errors.New("mesh was not created by this backend")
	}

	b.queue.WriteBuffer(b.meshUniformBuffer, 0, uniform)

	b.framePass.SetPipeline(b.meshPipeline.pipeline)
	b.framePass.SetBindGroup(0, b.meshBindGroup, nil)
	b.framePass.SetVertexBuffer(0, m.vertexBuffer, 0, wgpu.WholeSize)
	b.framePass.SetIndexBuffer(m.indexBuffer, wgpu.IndexFormatUint32, 0, wgpu.WholeSize)
	b.framePass.DrawIndexed(uint32(m.indexCount), 1, 0, 0, 0)
	return nil
}

func (b *wgpuRendererBackendImpl) EndFrame() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.framePass == nil {
		return errNoFrame
	}
	b.framePass.End()

	commandBuffer, err := b.frameEncoder.Finish(nil)
	if err != nil {
		b.frameEncoder.Release()
		b.frameView.Release()
		b.frameSurface.Release()
		b.frameEncoder = nil
		b.framePass = nil
		b.frameSurface = nil
		b.frameView = nil
		return err
	}

	b.queue.Submit(commandBuffer)

	commandBuffer.Release()
	b.frameEncoder.Release()
	b.frameEncoder = nil
	b.framePass = nil
	return nil
}

func (b *wgpuRendererBackendImpl) Present() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.frameSurface == nil {
		return
	}

	b.surface.Present()

	if b.frameView != nil {
		b.frameView.Release()
		b.frameView = nil
	}
	b.frameSurface.Release()
	b.frameSurface = nil
}

func (b *wgpuRendererBackendImpl) Release() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.background != nil {
		b.background.release()
		b.background = nil
	}
	if b.meshBindGroup != nil {
		b.meshBindGroup.Release()
		b.meshBindGroup = nil
	}
	if b.meshUniformBuffer != nil {
		b.meshUniformBuffer.Release()
		b.meshUniformBuffer = nil
	}
	for _, p := range []**wgpuPipeline{&b.backgroundPipeline, &b.meshPipeline} {
		if *p != nil {
			(*p).release()
			*p = nil
		}
	}
	b.releaseTargets()
	b.configured = false

	if b.queue != nil {
		b.queue.Release()
		b.queue = nil
	}
	if b.device != nil {
		b.device.Release()
		b.device = nil
	}
	if b.adapter != nil {
		b.adapter.Release()
		b.adapter = nil
	}
	if b.surface != nil {
		b.surface.Release()
		b.surface = nil
	}
	if b.instance != nil {
		b.instance.Release()
		b.instance = nil
	}
}
