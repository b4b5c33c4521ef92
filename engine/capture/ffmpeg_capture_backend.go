package capture

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"runtime"
	"strconv"
	"strings"

	"github.com/Carmen-Shannon/oxy-overlay/common"
)

// ffmpegSourceBackend runs ffmpeg writing raw bgr24 frames to stdout.
// A reader goroutine slices the stream into frames and keeps the newest in a mailbox.
type ffmpegSourceBackend struct {
	cmd    *common.SafeCommand
	stdout io.ReadCloser
	box    mailbox
	done   chan struct{}

	width, height int
}

var _ sourceBackend = &ffmpegSourceBackend{}

func newFFmpegSourceBackend() *ffmpegSourceBackend {
	return &ffmpegSourceBackend{}
}

// ffmpegInputArgs returns the platform input arguments for a camera device.
//
// Parameters:
//   - goos: the target operating system, as in runtime.GOOS
//   - cfg: the source configuration
//
// Returns:
//   - []string: the ffmpeg arguments preceding the output options
func ffmpegInputArgs(goos string, cfg sourceConfig) []string {
	size := fmt.Sprintf("%dx%d", cfg.width, cfg.height)
	rate := strconv.Itoa(cfg.fps)

	switch goos {
	case "darwin":
		return []string{"-f", "avfoundation", "-framerate", rate, "-video_size", size, "-i", cfg.device}
	case "windows":
		device := cfg.device
		if !strings.HasPrefix(device, "video=") {
			device = "video=" + device
		}
		return []string{"-f", "dshow", "-framerate", rate, "-video_size", size, "-i", device}
	default:
		device := cfg.device
		if _, err := strconv.Atoi(device); err == nil {
			device = "/dev/video" + device
		}
		return []string{"-f", "v4l2", "-framerate", rate, "-video_size", size, "-i", device}
	}
}

// ffmpegArgs returns the full argument list for a raw bgr24 capture at the configured size.
func ffmpegArgs(goos string, cfg sourceConfig) []string {
	args := []string{"-hide_banner", "-loglevel", "error"}
	args = append(args, ffmpegInputArgs(goos, cfg)...)
	return append(args,
		"-vf", fmt.Sprintf("scale=%d:%d", cfg.width, cfg.height),
		"-f", "rawvideo", "-pix_fmt", "bgr24", "-",
	)
}

func (b *ffmpegSourceBackend) Open(cfg sourceConfig) error {
	if cfg.width <= 0 || cfg.height <= 0 {
		return fmt.Errorf("ffmpeg capture needs a frame size, got %dx%d", cfg.width, cfg.height)
	}
	if _, err := exec.LookPath(cfg.ffmpeg); err != nil {
		return fmt.Errorf("ffmpeg not found: %w", err)
	}

	b.width, b.height = cfg.width, cfg.height
	b.cmd = common.NewSafeCommand(cfg.ffmpeg, ffmpegArgs(runtime.GOOS, cfg)...)

	stdout, err := b.cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("failed to create stdout pipe: %w", err)
	}
	if err := b.cmd.Start(); err != nil {
		return fmt.Errorf("failed to start ffmpeg: %w", err)
	}
	b.stdout = stdout
	b.done = make(chan struct{})

	go func() {
		defer close(b.done)
		err := readRawFrames(stdout, b.width, b.height, &b.box)
		if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrClosedPipe) && !errors.Is(err, os.ErrClosed) {
			slog.Warn("capture: ffmpeg stream ended",
				"error", err,
				"stderr", b.cmd.Stderr.String(),
			)
		}
	}()

	slog.Info("capture: ffmpeg started", "device", cfg.device, "width", b.width, "height", b.height)
	return nil
}

// readRawFrames reads consecutive width*height*3 byte frames from r into box until r fails.
//
// Parameters:
//   - r: the raw bgr24 byte stream
//   - width: the frame width
//   - height: the frame height
//   - box: the mailbox receiving each complete frame
//
// Returns:
//   - error: the read error that ended the stream; io.EOF on a clean end at a frame boundary
func readRawFrames(r io.Reader, width, height int, box *mailbox) error {
	size := width * height * 3
	for {
		buf := make([]byte, size)
		if _, err := io.ReadFull(r, buf); err != nil {
			return err
		}
		box.put(&common.Frame{Width: width, Height: height, Format: common.PixelFormatBGR, Pixels: buf})
	}
}

func (b *ffmpegSourceBackend) ReadFrame() (*common.Frame, bool) {
	return b.box.take()
}

func (b *ffmpegSourceBackend) Size() (int, int) {
	return b.width, b.height
}

func (b *ffmpegSourceBackend) Dropped() uint64 {
	return b.box.dropped.Load()
}

func (b *ffmpegSourceBackend) Close() error {
	if b.cmd == nil || b.cmd.Process == nil {
		return nil
	}
	killErr := b.cmd.Process.Kill()
	b.stdout.Close()
	<-b.done
	waitErr := b.cmd.Wait()

	// A killed ffmpeg exits with a signal status; that is the expected shutdown path.
	var exitErr *exec.ExitError
	if errors.As(waitErr, &exitErr) {
		waitErr = nil
	}
	if errors.Is(killErr, os.ErrProcessDone) {
		killErr = nil
	}
	return errors.Join(killErr, waitErr)
}
