// Package capture reads camera frames from a local video device.
//
// Three backends are available: OpenCV through gocv, an ffmpeg subprocess emitting raw
// bgr24, and a GStreamer appsink pipeline. All of them produce BGR frames of a fixed size
// and never block the caller waiting for the device: when no new frame is ready,
// ReadFrame reports false and the caller skips the tick.
package capture

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/Carmen-Shannon/oxy-overlay/common"
)

// BackendType identifies the capture implementation to use.
type BackendType int

const (
	// BackendTypeGoCV captures through OpenCV's VideoCapture.
	BackendTypeGoCV BackendType = iota

	// BackendTypeFFmpeg captures through an ffmpeg subprocess.
	BackendTypeFFmpeg

	// BackendTypeGStreamer captures through a GStreamer pipeline ending in an appsink.
	BackendTypeGStreamer
)

// ErrClosed is returned when operating on a closed Source.
var ErrClosed = errors.New("capture source closed")

// ParseBackendType maps a configuration name to a BackendType.
//
// Parameters:
//   - name: one of "gocv", "ffmpeg" or "gstreamer"
//
// Returns:
//   - BackendType: the matching backend
//   - error: error for unknown names
func ParseBackendType(name string) (BackendType, error) {
	switch name {
	case "gocv", "opencv":
		return BackendTypeGoCV, nil
	case "ffmpeg":
		return BackendTypeFFmpeg, nil
	case "gstreamer", "gst":
		return BackendTypeGStreamer, nil
	default:
		return 0, fmt.Errorf("unknown capture backend %q", name)
	}
}

// String returns the configuration name of the backend.
func (b BackendType) String() string {
	switch b {
	case BackendTypeGoCV:
		return "gocv"
	case BackendTypeFFmpeg:
		return "ffmpeg"
	case BackendTypeGStreamer:
		return "gstreamer"
	default:
		return fmt.Sprintf("BackendType(%d)", int(b))
	}
}

// Stats reports the counters of a Source.
type Stats struct {
	Frames  uint64
	Empty   uint64
	Dropped uint64
}

// source is the implementation of the Source interface.
type source struct {
	backend sourceBackend

	frames atomic.Uint64
	empty  atomic.Uint64

	closed    atomic.Bool
	closeOnce sync.Once
	closeErr  error
}

// Source is an open camera producing BGR frames.
type Source interface {
	// ReadFrame returns the next frame if one is ready.
	//
	// Returns:
	//   - *common.Frame: the BGR frame, owned by the caller
	//   - bool: false when no frame is available or the source is closed
	ReadFrame() (*common.Frame, bool)

	// Size returns the frame dimensions the source delivers.
	Size() (width, height int)

	// Stats returns the frame counters.
	Stats() Stats

	// Close releases the device. Only the first call has an effect; later calls return its result.
	Close() error
}

var _ Source = &source{}

// NewSource opens a capture device with the given backend.
//
// Parameters:
//   - backendType: the capture implementation
//   - options: a variadic list of SourceBuilderOption functions
//
// Returns:
//   - Source: the opened source
//   - error: error if the device or subprocess cannot be opened
func NewSource(backendType BackendType, options ...SourceBuilderOption) (Source, error) {
	cfg := defaultSourceConfig()
	for _, option := range options {
		option(&cfg)
	}

	var backend sourceBackend
	switch backendType {
	case BackendTypeGoCV:
		backend = newGoCVSourceBackend()
	case BackendTypeFFmpeg:
		backend = newFFmpegSourceBackend()
	case BackendTypeGStreamer:
		backend = newGStreamerSourceBackend()
	default:
		return nil, fmt.Errorf("unknown capture backend %d", int(backendType))
	}

	if err := backend.Open(cfg); err != nil {
		return nil, fmt.Errorf("open %s capture on %q: %w", backendType, cfg.device, err)
	}
	return &source{backend: backend}, nil
}

// newSourceFromBackend wraps an already opened backend.
func newSourceFromBackend(backend sourceBackend) *source {
	return &source{backend: backend}
}

func (s *source) ReadFrame() (*common.Frame, bool) {
	if s.closed.Load() {
		return nil, false
	}
	f, ok := s.backend.ReadFrame()
	if !ok || f == nil {
		s.empty.Add(1)
		return nil, false
	}
	s.frames.Add(1)
	return f, true
}

func (s *source) Size() (int, int) {
	return s.backend.Size()
}

func (s *source) Stats() Stats {
	return Stats{
		Frames:  s.frames.Load(),
		Empty:   s.empty.Load(),
		Dropped: s.backend.Dropped(),
	}
}

func (s *source) Close() error {
	s.closeOnce.Do(func() {
		s.closed.Store(true)
		s.closeErr = s.backend.Close()
	})
	return s.closeErr
}
