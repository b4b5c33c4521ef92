// Package session owns the per-run state of the overlay: the camera, the background
// texture, the detector and the model registry, plus the latest frame and landmarks
// published by each capture tick.
package session

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Carmen-Shannon/oxy-overlay/common"
	"github.com/Carmen-Shannon/oxy-overlay/engine/capture"
	"github.com/Carmen-Shannon/oxy-overlay/engine/detector"
	"github.com/Carmen-Shannon/oxy-overlay/engine/landmark"
	"github.com/Carmen-Shannon/oxy-overlay/engine/model"
	"github.com/google/uuid"
)

// DefaultTickInterval is the capture period, roughly 33 ticks per second.
const DefaultTickInterval = 30 * time.Millisecond

var (
	// ErrNoCamera is returned by Start when no camera opener was configured.
	ErrNoCamera = errors.New("session has no camera")

	// ErrNoModels is returned by Start when neither a registry nor model paths were configured.
	ErrNoModels = errors.New("session has no models")
)

// TextureAllocator creates and deletes the single GPU texture the camera frames are uploaded to.
type TextureAllocator interface {
	// CreateBackgroundTexture allocates the background texture.
	//
	// Parameters:
	//   - width: the texture width, equal to the camera frame width
	//   - height: the texture height, equal to the camera frame height
	//
	// Returns:
	//   - error: error if the GPU allocation fails
	CreateBackgroundTexture(width, height int) error

	// DeleteBackgroundTexture releases the background texture.
	DeleteBackgroundTexture() error
}

// Snapshot is an immutable frame and landmarks pair published by one tick.
type Snapshot struct {
	Seq       uint64
	Frame     *common.Frame
	Landmarks *landmark.Set
	At        time.Time
}

// TickResult reports what one tick did.
type TickResult struct {
	Skipped bool
	Face    bool
	Err     error
}

// Stats are the session counters.
type Stats struct {
	Ticks          uint64
	Skipped        uint64
	Frames         uint64
	Faces          uint64
	DetectorErrors uint64
}

// session is the implementation of the Session interface.
type session struct {
	id string

	source   capture.Source
	textures TextureAllocator
	detector detector.Detector
	registry model.Registry

	snapshot atomic.Pointer[Snapshot]
	redraw   chan struct{}
	seq      atomic.Uint64

	ticks          atomic.Uint64
	skipped        atomic.Uint64
	frames         atomic.Uint64
	faces          atomic.Uint64
	detectorErrors atomic.Uint64

	closed atomic.Bool

	cameraOnce   sync.Once
	cameraErr    error
	textureOnce  sync.Once
	textureErr   error
	detectorOnce sync.Once
	detectorErr  error
	shutdownOnce sync.Once
	shutdownErr  error
}

// Session is one run of the overlay from Start to Shutdown.
type Session interface {
	// ID returns the session's unique identifier.
	ID() string

	// Tick captures one frame, mirrors it, runs detection and publishes the result.
	// An empty camera read skips the tick without touching the published state.
	// Detector errors are logged and treated as "no face".
	//
	// Parameters:
	//   - ctx: passed to the detector
	//
	// Returns:
	//   - TickResult: whether the tick was skipped and whether a face was found
	Tick(ctx context.Context) TickResult

	// Snapshot returns the most recently published pair, or nil before the first frame.
	Snapshot() *Snapshot

	// Redraw returns the channel signalled after each publish. Signals coalesce: any number of
	// publishes between two receives produce one pending signal.
	Redraw() <-chan struct{}

	// RequestRedraw queues a redraw signal without publishing new state.
	RequestRedraw()

	// Registry returns the model registry.
	Registry() model.Registry

	// FrameSize returns the camera frame dimensions.
	FrameSize() (width, height int)

	// Stats returns the tick counters.
	Stats() Stats

	// Shutdown releases the camera, the background texture and the detector.
	// Each resource is released exactly once no matter how many times Shutdown is called;
	// later calls return the first call's result.
	Shutdown() error
}

var _ Session = &session{}

// Start acquires the session resources in order: camera, background texture sized to the
// camera, model registry, detector. If any step fails everything acquired so far is released.
//
// Parameters:
//   - ctx: cancels model loading
//   - options: a variadic list of SessionBuilderOption functions
//
// Returns:
//   - Session: the running session
//   - error: error if any resource could not be acquired
func Start(ctx context.Context, options ...SessionBuilderOption) (Session, error) {
	cfg := sessionConfig{}
	for _, option := range options {
		option(&cfg)
	}
	if cfg.openCamera == nil {
		return nil, ErrNoCamera
	}

	s := &session{
		id:       uuid.New().String(),
		textures: cfg.textures,
		registry: cfg.registry,
		redraw:   make(chan struct{}, 1),
	}

	fail := func(err error) (Session, error) {
		if rerr := s.release(); rerr != nil {
			err = errors.Join(err, rerr)
		}
		return nil, err
	}

	src, err := cfg.openCamera()
	if err != nil {
		return fail(fmt.Errorf("open camera: %w", err))
	}
	s.source = src

	w, h := src.Size()
	if s.textures != nil {
		if err := s.textures.CreateBackgroundTexture(w, h); err != nil {
			s.textures = nil
			return fail(fmt.Errorf("allocate background texture: %w", err))
		}
	}

	if s.registry == nil {
		if cfg.loader == nil || len(cfg.modelPaths) == 0 {
			return fail(ErrNoModels)
		}
		reg, err := cfg.loader.LoadAll(ctx, cfg.modelPaths)
		if err != nil {
			return fail(fmt.Errorf("load models: %w", err))
		}
		s.registry = reg
	}

	if cfg.openDetector != nil {
		d, err := cfg.openDetector()
		if err != nil {
			return fail(fmt.Errorf("start detector: %w", err))
		}
		s.detector = d
	} else {
		s.detector = detector.NewStatic(nil)
	}

	s.logf("started: camera %dx%d, %d models", w, h, s.registry.Len())
	return s, nil
}

func (s *session) ID() string {
	return s.id
}

func (s *session) Tick(ctx context.Context) TickResult {
	s.ticks.Add(1)
	if s.closed.Load() {
		s.skipped.Add(1)
		return TickResult{Skipped: true}
	}

	frame, ok := s.source.ReadFrame()
	if !ok || frame == nil {
		s.skipped.Add(1)
		return TickResult{Skipped: true}
	}
	if err := frame.Validate(); err != nil {
		s.skipped.Add(1)
		s.logf("dropping malformed camera frame: %v", err)
		return TickResult{Skipped: true, Err: err}
	}
	s.frames.Add(1)

	mirrored := frame.MirrorHorizontal()

	var set *landmark.Set
	res, err := s.detector.Detect(ctx, mirrored.ToRGB())
	if err != nil {
		s.detectorErrors.Add(1)
		s.logf("detection failed, treating frame as no face: %v", err)
	} else {
		set = res.First()
	}
	if set != nil {
		s.faces.Add(1)
	}

	s.snapshot.Store(&Snapshot{
		Seq:       s.seq.Add(1),
		Frame:     mirrored,
		Landmarks: set,
		At:        time.Now(),
	})
	s.RequestRedraw()

	return TickResult{Face: set != nil, Err: err}
}

func (s *session) Snapshot() *Snapshot {
	return s.snapshot.Load()
}

func (s *session) Redraw() <-chan struct{} {
	return s.redraw
}

func (s *session) RequestRedraw() {
	select {
	case s.redraw <- struct{}{}:
	default:
	}
}

func (s *session) Registry() model.Registry {
	return s.registry
}

func (s *session) FrameSize() (int, int) {
	return s.source.Size()
}

func (s *session) Stats() Stats {
	return Stats{
		Ticks:          s.ticks.Load(),
		Skipped:        s.skipped.Load(),
		Frames:         s.frames.Load(),
		Faces:          s.faces.Load(),
		DetectorErrors: s.detectorErrors.Load(),
	}
}

func (s *session) Shutdown() error {
	s.shutdownOnce.Do(func() {
		s.closed.Store(true)
		s.shutdownErr = s.release()
		st := s.Stats()
		s.logf("shut down after %d ticks (%d skipped, %d faces, %d detector errors)",
			st.Ticks, st.Skipped, st.Faces, st.DetectorErrors)
	})
	return s.shutdownErr
}

// release frees every acquired resource, each behind its own Once.
func (s *session) release() error {
	if s.source != nil {
		s.cameraOnce.Do(func() {
			s.cameraErr = s.source.Close()
		})
	}
	if s.textures != nil {
		s.textureOnce.Do(func() {
			s.textureErr = s.textures.DeleteBackgroundTexture()
		})
	}
	if s.detector != nil {
		s.detectorOnce.Do(func() {
			s.detectorErr = s.detector.Close()
		})
	}

	var errs []error
	if s.cameraErr != nil {
		errs = append(errs, fmt.Errorf("release camera: %w", s.cameraErr))
	}
	if s.textureErr != nil {
		errs = append(errs, fmt.Errorf("delete background texture: %w", s.textureErr))
	}
	if s.detectorErr != nil {
		errs = append(errs, fmt.Errorf("close detector: %w", s.detectorErr))
	}
	return errors.Join(errs...)
}

func (s *session) logf(format string, args ...any) {
	log.Printf("[Session] %s: "+format, append([]any{s.id[:8]}, args...)...)
}
