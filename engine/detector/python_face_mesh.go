package detector

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"sync"

	"github.com/Carmen-Shannon/oxy-overlay/common"
)

// stderrTailBytes bounds how much worker stderr is attached to an error.
const stderrTailBytes = 2048

//go:embed face_mesh.py
var faceMeshScript string

// pythonFaceMesh talks to a long-lived MediaPipe FaceMesh process.
// Requests go over stdin; responses come back on a dedicated pipe (FD 3 in the child)
// so library chatter on stdout cannot corrupt the stream.
type pythonFaceMesh struct {
	mu sync.Mutex

	cmd   *common.SafeCommand
	stdin io.WriteCloser
	data  io.ReadCloser

	logger *slog.Logger

	closed    bool
	closeOnce sync.Once
	closeErr  error
}

var _ Detector = &pythonFaceMesh{}

// NewPythonFaceMesh starts the face mesh worker.
//
// Parameters:
//   - options: a variadic list of FaceMeshBuilderOption functions
//
// Returns:
//   - Detector: the running detector
//   - error: error if the interpreter cannot be started
func NewPythonFaceMesh(options ...FaceMeshBuilderOption) (Detector, error) {
	cfg := defaultFaceMeshConfig()
	for _, option := range options {
		option(&cfg)
	}

	if _, err := exec.LookPath(cfg.python); err != nil {
		return nil, fmt.Errorf("python interpreter %q not found: %w", cfg.python, err)
	}

	cmd := common.NewSafeCommand(cfg.python, append([]string{"-u", "-c", faceMeshScript}, cfg.args()...)...)
	cmd.Cmd.Stderr = io.MultiWriter(cmd.Stderr, newStderrLogger(cfg.logger))

	r, w, err := os.Pipe()
	if err != nil {
		return nil, fmt.Errorf("failed to create pipe: %w", err)
	}
	cmd.ExtraFiles = []*os.File{w}

	stdin, err := cmd.StdinPipe()
	if err != nil {
		w.Close()
		r.Close()
		return nil, fmt.Errorf("failed to create stdin pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		w.Close()
		r.Close()
		return nil, fmt.Errorf("face mesh worker failed to start: %w", err)
	}

	// Only the child keeps the write end.
	w.Close()

	cfg.logger.Info("detector: face mesh worker started", "pid", cmd.Process.Pid, "max_faces", cfg.maxFaces)
	return &pythonFaceMesh{
		cmd:    cmd,
		stdin:  stdin,
		data:   r,
		logger: cfg.logger,
	}, nil
}

func (d *pythonFaceMesh) Detect(ctx context.Context, frame *common.Frame) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := frame.Validate(); err != nil {
		return nil, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil, ErrClosed
	}

	body, err := d.communicate(frame.ToRGB())
	if err != nil {
		return nil, d.withStderr(err)
	}
	return decodeResponse(body)
}

// communicate sends one request and reads the matching response.
func (d *pythonFaceMesh) communicate(frame *common.Frame) ([]byte, error) {
	if err := writeRequest(d.stdin, frame); err != nil {
		return nil, fmt.Errorf("send frame: %w", err)
	}
	body, err := readResponse(d.data)
	if err != nil {
		return nil, fmt.Errorf("read landmarks: %w", err)
	}
	return body, nil
}

// withStderr attaches the tail of the worker's captured stderr to a transport error.
func (d *pythonFaceMesh) withStderr(err error) error {
	if d.cmd == nil || d.cmd.Stderr.Len() == 0 {
		return err
	}
	tail := d.cmd.Stderr.Tail(stderrTailBytes)
	if d.cmd.Stderr.Len() > len(tail) {
		tail = "..." + tail
	}
	return fmt.Errorf("%w\nworker stderr:\n%s", err, tail)
}

func (d *pythonFaceMesh) Close() error {
	d.closeOnce.Do(func() {
		d.mu.Lock()
		defer d.mu.Unlock()
		d.closed = true

		// Closing stdin makes the worker's read loop return and the process exit.
		errs := []error{d.stdin.Close()}
		if d.cmd != nil {
			errs = append(errs, d.cmd.Wait())
		}
		errs = append(errs, d.data.Close())
		d.closeErr = errors.Join(errs...)
		d.logger.Info("detector: face mesh worker stopped")
	})
	return d.closeErr
}
