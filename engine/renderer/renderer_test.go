package renderer

import (
	"encoding/binary"
	"errors"
	"math"
	"sync"
	"testing"

	"github.com/Carmen-Shannon/oxy-overlay/common"
	"github.com/Carmen-Shannon/oxy-overlay/engine/compositor"
	"github.com/Carmen-Shannon/oxy-overlay/engine/model"
	"github.com/go-gl/mathgl/mgl32"
)

type fakeMesh struct {
	count    int
	released int
}

func (m *fakeMesh) IndexCount() int { return m.count }
func (m *fakeMesh) Release()        { m.released++ }

// fakeBackend copies every upload so tests can inspect bytes after the caller's buffers are reused.
type fakeBackend struct {
	calls        []string
	bgSize       [2]int
	texture      common.TextureStagingData
	bgVertices   []byte
	bgUniform    []byte
	meshUniform  []byte
	meshes       []*fakeMesh
	meshVertices []byte
	meshIndices  []byte
	presentMode  PresentMode
	surface      [2]int
	endErr       error
	released     bool
}

func (b *fakeBackend) ConfigureSurface(width, height int) {
	b.surface = [2]int{width, height}
}

func (b *fakeBackend) SetPresentMode(mode PresentMode) { b.presentMode = mode }

func (b *fakeBackend) CreateBackgroundTexture(width, height int, sampler common.SamplerStagingData) error {
	b.calls = append(b.calls, "create-bg")
	b.bgSize = [2]int{width, height}
	return nil
}

func (b *fakeBackend) DestroyBackgroundTexture() {
	b.calls = append(b.calls, "destroy-bg")
}

func (b *fakeBackend) WriteBackgroundTexture(data common.TextureStagingData) {
	b.calls = append(b.calls, "write-bg")
	b.texture = data
	b.texture.Pixels = append([]byte(nil), data.Pixels...)
}

func (b *fakeBackend) CreateMesh(label string, vertexData, indexData []byte, indexCount int) (MeshHandle, error) {
	b.calls = append(b.calls, "create-mesh")
	b.meshVertices = append([]byte(nil), vertexData...)
	b.meshIndices = append([]byte(nil), indexData...)
	m := &fakeMesh{count: indexCount}
	b.meshes = append(b.meshes, m)
	return m, nil
}

func (b *fakeBackend) BeginFrame() error {
	b.calls = append(b.calls, "begin")
	return nil
}

func (b *fakeBackend) DrawBackground(vertexData, uniform []byte) error {
	b.calls = append(b.calls, "background")
	b.bgVertices = append([]byte(nil), vertexData...)
	b.bgUniform = append([]byte(nil), uniform...)
	return nil
}

func (b *fakeBackend) DrawMesh(mesh MeshHandle, uniform []byte) error {
	b.calls = append(b.calls, "mesh")
	b.meshUniform = append([]byte(nil), uniform...)
	return nil
}

func (b *fakeBackend) EndFrame() error {
	b.calls = append(b.calls, "end")
	return b.endErr
}

func (b *fakeBackend) Present() { b.calls = append(b.calls, "present") }

func (b *fakeBackend) Release() { b.released = true }

func floats(data []byte) []float32 {
	out := make([]float32, len(data)/4)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return out
}

func triangle(t *testing.T) model.Model {
	t.Helper()
	m, err := model.NewModel(
		model.WithName("quad"),
		model.WithVertices([][3]float32{{0, 0, 0}, {1, 0, 0}, {1, 1, 0}, {0, 1, 0}}),
		model.WithFaces([][]uint32{{0, 1, 2, 3}}),
	)
	if err != nil {
		t.Fatal(err)
	}
	return m
}

func TestUploadBackgroundConvertsToRGBA(t *testing.T) {
	backend := &fakeBackend{}
	r := newRendererWithBackend(backend)

	if err := r.CreateBackgroundTexture(2, 1); err != nil {
		t.Fatal(err)
	}
	frame, err := common.NewFrame(2, 1, common.PixelFormatBGR, []byte{1, 2, 3, 4, 5, 6})
	if err != nil {
		t.Fatal(err)
	}
	if err := r.UploadBackground(frame); err != nil {
		t.Fatal(err)
	}

	want := []byte{3, 2, 1, 255, 6, 5, 4, 255}
	if string(backend.texture.Pixels) != string(want) {
		t.Fatalf("expected RGBA %v, got %v", want, backend.texture.Pixels)
	}
	if backend.texture.Width != 2 || backend.texture.Height != 1 {
		t.Fatalf("unexpected staging size %dx%d", backend.texture.Width, backend.texture.Height)
	}
}

func TestUploadBackgroundErrors(t *testing.T) {
	bgr := func(w, h int) *common.Frame {
		return &common.Frame{Width: w, Height: h, Format: common.PixelFormatBGR, Pixels: make([]byte, w*h*3)}
	}

	tests := []struct {
		name     string
		allocate bool
		frame    *common.Frame
		wantErr  error
	}{
		{"no texture", false, bgr(4, 2), ErrNoBackgroundTexture},
		{"wider frame", true, bgr(8, 2), compositor.ErrFrameSize},
		{"shorter frame", true, bgr(4, 1), compositor.ErrFrameSize},
		{"nil frame", true, nil, compositor.ErrFrameSize},
		{
			"short buffer",
			true,
			&common.Frame{Width: 4, Height: 2, Format: common.PixelFormatBGR, Pixels: make([]byte, 3)},
			common.ErrInvalidFrame,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			backend := &fakeBackend{}
			r := newRendererWithBackend(backend)
			if tt.allocate {
				if err := r.CreateBackgroundTexture(4, 2); err != nil {
					t.Fatal(err)
				}
			}
			err := r.UploadBackground(tt.frame)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected %v, got %v", tt.wantErr, err)
			}
			for _, c := range backend.calls {
				if c == "write-bg" {
					t.Fatal("texture must not be written on error")
				}
			}
		})
	}
}

func TestBackgroundTextureLifetime(t *testing.T) {
	backend := &fakeBackend{}
	r := newRendererWithBackend(backend)

	if err := r.DeleteBackgroundTexture(); err != nil {
		t.Fatalf("delete without texture: %v", err)
	}
	if err := r.CreateBackgroundTexture(640, 480); err != nil {
		t.Fatal(err)
	}
	if err := r.CreateBackgroundTexture(640, 480); err == nil {
		t.Fatal("expected error on second allocation")
	}
	if err := r.CreateBackgroundTexture(0, 480); err == nil {
		t.Fatal("expected error for zero width")
	}
	if err := r.DeleteBackgroundTexture(); err != nil {
		t.Fatal(err)
	}
	if err := r.DeleteBackgroundTexture(); err != nil {
		t.Fatal(err)
	}

	want := []string{"create-bg", "destroy-bg"}
	if len(backend.calls) != len(want) {
		t.Fatalf("expected calls %v, got %v", want, backend.calls)
	}
	for i := range want {
		if backend.calls[i] != want[i] {
			t.Fatalf("expected calls %v, got %v", want, backend.calls)
		}
	}
	if backend.bgSize != [2]int{640, 480} {
		t.Fatalf("unexpected texture size %v", backend.bgSize)
	}
}

func TestDrawMeshCachesUpload(t *testing.T) {
	backend := &fakeBackend{}
	r := newRendererWithBackend(backend)
	m := triangle(t)

	for i := 0; i < 3; i++ {
		if err := r.DrawMesh(m, mgl32.Ident4(), mgl32.Vec4{1, 1, 1, 1}); err != nil {
			t.Fatal(err)
		}
	}

	if len(backend.meshes) != 1 {
		t.Fatalf("expected one upload, got %d", len(backend.meshes))
	}
	if got := backend.meshes[0].count; got != 6 {
		t.Fatalf("expected 6 indices for a fanned quad, got %d", got)
	}
	if got := len(backend.meshVertices); got != 4*12 {
		t.Fatalf("expected 48 vertex bytes, got %d", got)
	}
	if got := len(backend.meshIndices); got != 6*4 {
		t.Fatalf("expected 24 index bytes, got %d", got)
	}

	r.Release()
	if backend.meshes[0].released != 1 {
		t.Fatal("expected cached mesh to be released")
	}
	if !backend.released {
		t.Fatal("expected backend release")
	}
}

func TestDrawMeshAppliesClipSpaceCorrection(t *testing.T) {
	backend := &fakeBackend{}
	r := newRendererWithBackend(backend)

	proj := mgl32.Perspective(mgl32.DegToRad(45), 1, 0.1, 100)
	color := mgl32.Vec4{0.25, 0.5, 0.75, 1}
	if err := r.DrawMesh(triangle(t), proj, color); err != nil {
		t.Fatal(err)
	}

	got := floats(backend.meshUniform)
	if len(got) != 20 {
		t.Fatalf("expected 20 floats, got %d", len(got))
	}
	want := common.ClipSpaceCorrection.Mul4(proj)
	for i := 0; i < 16; i++ {
		if got[i] != want[i] {
			t.Fatalf("mvp[%d]: expected %v, got %v", i, want[i], got[i])
		}
	}
	for i := 0; i < 4; i++ {
		if got[16+i] != color[i] {
			t.Fatalf("color[%d]: expected %v, got %v", i, color[i], got[16+i])
		}
	}

	// Points on the near and far planes land at WebGPU depth 0 and 1.
	for _, tc := range []struct {
		z, depth float32
	}{{-0.1, 0}, {-100, 1}} {
		clip := want.Mul4x1(mgl32.Vec4{0, 0, tc.z, 1})
		if d := clip.Z() / clip.W(); math.Abs(float64(d-tc.depth)) > 1e-4 {
			t.Fatalf("z=%v: expected depth %v, got %v", tc.z, tc.depth, d)
		}
	}
}

func TestDrawBackgroundPacksQuad(t *testing.T) {
	backend := &fakeBackend{}
	r := newRendererWithBackend(backend)

	quad := compositor.BackgroundQuad(640, 480)
	if err := r.DrawBackground(quad, mgl32.Ident4()); err != nil {
		t.Fatal(err)
	}

	got := floats(backend.bgVertices)
	if len(got) != 16 {
		t.Fatalf("expected 16 floats, got %d", len(got))
	}
	for i := 0; i < 4; i++ {
		want := []float32{quad.Positions[i].X(), quad.Positions[i].Y(), quad.TexCoords[i].X(), quad.TexCoords[i].Y()}
		for j := range want {
			if got[i*4+j] != want[j] {
				t.Fatalf("vertex %d: expected %v, got %v", i, want, got[i*4:i*4+4])
			}
		}
	}
	if len(backend.bgUniform) != 64 {
		t.Fatalf("expected 64-byte uniform, got %d", len(backend.bgUniform))
	}
}

func TestEndFramePresentsOnSuccess(t *testing.T) {
	tests := []struct {
		name   string
		endErr error
		want   []string
	}{
		{"presents", nil, []string{"end", "present"}},
		{"skips present on error", errors.New("submit failed"), []string{"end"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			backend := &fakeBackend{endErr: tt.endErr}
			r := newRendererWithBackend(backend)
			err := r.EndFrame()
			if !errors.Is(err, tt.endErr) {
				t.Fatalf("expected %v, got %v", tt.endErr, err)
			}
			if len(backend.calls) != len(tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, backend.calls)
			}
			for i := range tt.want {
				if backend.calls[i] != tt.want[i] {
					t.Fatalf("expected %v, got %v", tt.want, backend.calls)
				}
			}
		})
	}
}

func TestCompositorDrivesRenderer(t *testing.T) {
	backend := &fakeBackend{}
	r := newRendererWithBackend(backend)
	if err := r.CreateBackgroundTexture(4, 2); err != nil {
		t.Fatal(err)
	}
	c := compositor.NewCompositor(r)
	c.Resize(800, 600)
	if backend.surface != [2]int{800, 600} {
		t.Fatalf("expected surface 800x600, got %v", backend.surface)
	}

	frame := &common.Frame{Width: 4, Height: 2, Format: common.PixelFormatBGR, Pixels: make([]byte, 24)}
	if err := c.Draw(frame, nil, triangle(t)); err != nil {
		t.Fatal(err)
	}

	want := []string{"create-bg", "begin", "write-bg", "background", "end", "present"}
	if len(backend.calls) != len(want) {
		t.Fatalf("expected %v, got %v", want, backend.calls)
	}
	for i := range want {
		if backend.calls[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, backend.calls)
		}
	}
}

func TestWGPUBackendReleasePartiallyAcquired(t *testing.T) {
	tests := []struct {
		name    string
		backend *wgpuRendererBackendImpl
	}{
		{name: "nothing acquired", backend: &wgpuRendererBackendImpl{mu: &sync.Mutex{}}},
		{name: "empty pipelines", backend: &wgpuRendererBackendImpl{mu: &sync.Mutex{}, backgroundPipeline: &wgpuPipeline{}, meshPipeline: &wgpuPipeline{}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.backend.Release()
			tt.backend.Release()
			if tt.backend.backgroundPipeline != nil || tt.backend.meshPipeline != nil || tt.backend.configured {
				t.Errorf("Expected released backend to drop its pipelines, got %+v", tt.backend)
			}
		})
	}
}
