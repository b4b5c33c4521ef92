package capture

import (
	"errors"
	"fmt"
	"strconv"
	"sync"

	"github.com/Carmen-Shannon/oxy-overlay/common"
	"gocv.io/x/gocv"
)

// gocvSourceBackend reads frames synchronously from an OpenCV VideoCapture.
type gocvSourceBackend struct {
	mu sync.Mutex

	capture *gocv.VideoCapture
	mat     gocv.Mat

	width, height int
}

var _ sourceBackend = &gocvSourceBackend{}

func newGoCVSourceBackend() *gocvSourceBackend {
	return &gocvSourceBackend{}
}

func (b *gocvSourceBackend) Open(cfg sourceConfig) error {
	var device any = cfg.device
	if id, err := strconv.Atoi(cfg.device); err == nil {
		device = id
	}

	vc, err := gocv.OpenVideoCapture(device)
	if err != nil {
		return err
	}
	if !vc.IsOpened() {
		vc.Close()
		return fmt.Errorf("device %q did not open", cfg.device)
	}

	if cfg.width > 0 && cfg.height > 0 {
		vc.Set(gocv.VideoCaptureFrameWidth, float64(cfg.width))
		vc.Set(gocv.VideoCaptureFrameHeight, float64(cfg.height))
	}
	if cfg.fps > 0 {
		vc.Set(gocv.VideoCaptureFPS, float64(cfg.fps))
	}

	b.capture = vc
	b.mat = gocv.NewMat()
	b.width = int(vc.Get(gocv.VideoCaptureFrameWidth))
	b.height = int(vc.Get(gocv.VideoCaptureFrameHeight))
	if b.width <= 0 || b.height <= 0 {
		b.width, b.height = cfg.width, cfg.height
	}
	return nil
}

func (b *gocvSourceBackend) ReadFrame() (*common.Frame, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.capture == nil {
		return nil, false
	}
	if ok := b.capture.Read(&b.mat); !ok || b.mat.Empty() {
		return nil, false
	}
	if b.mat.Channels() != 3 {
		return nil, false
	}

	f, err := common.NewFrame(b.mat.Cols(), b.mat.Rows(), common.PixelFormatBGR, b.mat.ToBytes())
	if err != nil {
		return nil, false
	}
	return f, true
}

func (b *gocvSourceBackend) Size() (int, int) {
	return b.width, b.height
}

func (b *gocvSourceBackend) Dropped() uint64 {
	return 0
}

func (b *gocvSourceBackend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.capture == nil {
		return nil
	}
	err := errors.Join(b.capture.Close(), b.mat.Close())
	b.capture = nil
	return err
}
