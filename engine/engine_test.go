package engine

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/Carmen-Shannon/oxy-overlay/common"
	"github.com/Carmen-Shannon/oxy-overlay/engine/capture"
	"github.com/Carmen-Shannon/oxy-overlay/engine/detector"
	"github.com/Carmen-Shannon/oxy-overlay/engine/landmark"
	"github.com/Carmen-Shannon/oxy-overlay/engine/model"
	"github.com/Carmen-Shannon/oxy-overlay/engine/session"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/go-gl/mathgl/mgl32"
)

// fakeWindow runs a message loop that blocks until RequestClose.
type fakeWindow struct {
	closeOnce sync.Once
	closed    chan struct{}
	onResize  func(width, height int)
	onKeyDown func(keyCode uint32)
}

func newFakeWindow() *fakeWindow {
	return &fakeWindow{closed: make(chan struct{})}
}

func (w *fakeWindow) SetUpdateCallback(callback func())                  {}
func (w *fakeWindow) SetResizeCallback(callback func(width, height int)) { w.onResize = callback }
func (w *fakeWindow) SetKeyDownCallback(callback func(keyCode uint32))   { w.onKeyDown = callback }
func (w *fakeWindow) SurfaceDescriptor() *wgpu.SurfaceDescriptor         { return nil }
func (w *fakeWindow) Close() error                                       { return nil }
func (w *fakeWindow) ProcessMessages()                                   { <-w.closed }
func (w *fakeWindow) Width() int                                         { return 800 }
func (w *fakeWindow) Height() int                                        { return 600 }

func (w *fakeWindow) IsRunning() bool {
	select {
	case <-w.closed:
		return false
	default:
		return true
	}
}

func (w *fakeWindow) RequestClose() {
	w.closeOnce.Do(func() { close(w.closed) })
}

type drawCall struct {
	frame *common.Frame
	set   *landmark.Set
	model string
}

// fakeCompositor records Draw and Resize calls.
type fakeCompositor struct {
	mu      sync.Mutex
	draws   []drawCall
	resizes [][2]int
	drawn   chan struct{}
}

func newFakeCompositor() *fakeCompositor {
	return &fakeCompositor{drawn: make(chan struct{}, 64)}
}

func (c *fakeCompositor) Resize(width, height int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.resizes = append(c.resizes, [2]int{width, height})
}

func (c *fakeCompositor) Draw(frame *common.Frame, set *landmark.Set, m model.Model) error {
	c.mu.Lock()
	c.draws = append(c.draws, drawCall{frame: frame, set: set, model: m.Name()})
	c.mu.Unlock()
	select {
	case c.drawn <- struct{}{}:
	default:
	}
	return nil
}

func (c *fakeCompositor) Depths() (int, int)     { return 1, 1 }
func (c *fakeCompositor) Projection() mgl32.Mat4 { return mgl32.Ident4() }

func (c *fakeCompositor) snapshot() []drawCall {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]drawCall(nil), c.draws...)
}

// loopSource returns the same frame on every read.
type loopSource struct{}

func (loopSource) ReadFrame() (*common.Frame, bool) {
	return &common.Frame{Width: 2, Height: 1, Format: common.PixelFormatBGR, Pixels: make([]byte, 6)}, true
}
func (loopSource) Size() (int, int)     { return 2, 1 }
func (loopSource) Stats() capture.Stats { return capture.Stats{} }
func (loopSource) Close() error         { return nil }

func testSession(t *testing.T, names ...string) session.Session {
	t.Helper()
	models := make([]model.Model, 0, len(names))
	for _, name := range names {
		m, err := model.NewModel(
			model.WithName(name),
			model.WithVertices([][3]float32{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}}),
			model.WithFaces([][]uint32{{0, 1, 2}}),
		)
		if err != nil {
			t.Fatal(err)
		}
		models = append(models, m)
	}
	reg, err := model.NewQuietRegistry(models...)
	if err != nil {
		t.Fatal(err)
	}
	face := &detector.Result{Faces: []landmark.Set{{Points: []landmark.Point{{}, {X: 0.5, Y: 0.5}}}}}
	s, err := session.Start(context.Background(),
		session.WithCamera(func() (capture.Source, error) { return loopSource{}, nil }),
		session.WithDetector(func() (detector.Detector, error) { return detector.NewStatic(face), nil }),
		session.WithRegistry(reg),
	)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = s.Shutdown() })
	return s
}

func waitDraw(t *testing.T, c *fakeCompositor) {
	t.Helper()
	select {
	case <-c.drawn:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for a draw")
	}
}

func TestRunRequiresCollaborators(t *testing.T) {
	e := NewEngine()
	if err := e.Run(context.Background()); err != ErrNotConfigured {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
}

func TestHandleKeyAdvancesModel(t *testing.T) {
	s := testSession(t, "gas_mask", "halloween_mask")
	e := NewEngine(WithSession(s))

	tests := []struct {
		name string
		key  uint32
		want int
	}{
		{"space", common.KeySpace, 1},
		{"tab", common.KeyTab, 0},
		{"m", common.KeyM, 1},
		{"unbound key", 'Q', 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e.HandleKey(tt.key)
			if got := s.Registry().Index(); got != tt.want {
				t.Fatalf("expected index %d, got %d", tt.want, got)
			}
		})
	}
}

func TestHandleKeyRequestsRedraw(t *testing.T) {
	s := testSession(t, "gas_mask", "halloween_mask")
	e := NewEngine(WithSession(s))

	e.HandleKey(common.KeySpace)
	select {
	case <-s.Redraw():
	default:
		t.Fatal("expected a pending redraw after switching models")
	}
}

func TestHandleKeyTogglesProfiler(t *testing.T) {
	e := NewEngine().(*engine)
	e.HandleKey(common.KeyP)
	if !e.profilingEnabled.Load() {
		t.Fatal("expected profiler enabled")
	}
	e.HandleKey(common.KeyP)
	if e.profilingEnabled.Load() {
		t.Fatal("expected profiler disabled")
	}
}

func TestRunTicksAndDraws(t *testing.T) {
	s := testSession(t, "gas_mask")
	w := newFakeWindow()
	c := newFakeCompositor()

	var ticks sync.WaitGroup
	ticks.Add(1)
	var once sync.Once

	e := NewEngine(
		WithWindow(w),
		WithSession(s),
		WithCompositor(c),
		WithTickRate(5*time.Millisecond),
	)
	e.SetTickCallback(func(result session.TickResult) {
		if result.Face {
			once.Do(ticks.Done)
		}
	})

	done := make(chan error, 1)
	go func() { done <- e.Run(context.Background()) }()

	ticks.Wait()
	deadline := time.After(2 * time.Second)
	for {
		var withFace bool
		for _, d := range c.snapshot() {
			if d.frame != nil && d.set != nil {
				withFace = true
			}
		}
		if withFace {
			break
		}
		select {
		case <-c.drawn:
		case <-deadline:
			t.Fatal("no draw with a frame and landmarks")
		}
	}

	w.onResize(1024, 768)
	waitDraw(t, c)

	e.Quit()
	e.Quit()
	select {
	case err := <-done:
		if err != nil {
			t.Fatal(err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after Quit")
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.resizes) < 2 || c.resizes[0] != [2]int{800, 600} || c.resizes[len(c.resizes)-1] != [2]int{1024, 768} {
		t.Fatalf("unexpected resizes %v", c.resizes)
	}
	for _, d := range c.draws {
		if d.model != "gas_mask" {
			t.Fatalf("unexpected model %q", d.model)
		}
	}
}

func TestRunStopsOnContextCancel(t *testing.T) {
	s := testSession(t, "gas_mask")
	w := newFakeWindow()
	e := NewEngine(WithWindow(w), WithSession(s), WithCompositor(newFakeCompositor()))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- e.Run(ctx) }()

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
	if w.IsRunning() {
		t.Fatal("expected window close to be requested")
	}
}
