package detector

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"log/slog"
	"math"
	"strings"
	"testing"

	"github.com/Carmen-Shannon/oxy-overlay/common"
	"github.com/Carmen-Shannon/oxy-overlay/engine/landmark"
)

// MockCloser wraps a bytes.Buffer to satisfy io.ReadCloser and io.WriteCloser.
type MockCloser struct {
	*bytes.Buffer
	closed int
}

func (m *MockCloser) Close() error {
	m.closed++
	return nil
}

func okBody(faces ...[]float32) []byte {
	body := new(bytes.Buffer)
	body.WriteByte(statusOK)
	binary.Write(body, binary.BigEndian, uint32(len(faces)))
	for _, xyz := range faces {
		binary.Write(body, binary.BigEndian, uint32(len(xyz)/3))
		for _, v := range xyz {
			binary.Write(body, binary.BigEndian, math.Float32bits(v))
		}
	}
	return body.Bytes()
}

func errorBody(msg string) []byte {
	body := new(bytes.Buffer)
	body.WriteByte(statusError)
	binary.Write(body, binary.BigEndian, uint32(len(msg)))
	body.WriteString(msg)
	return body.Bytes()
}

func framed(body []byte) *MockCloser {
	m := &MockCloser{Buffer: new(bytes.Buffer)}
	binary.Write(m, binary.BigEndian, uint32(len(body)))
	m.Write(body)
	return m
}

func mockWorker(response []byte) (*pythonFaceMesh, *MockCloser, *MockCloser) {
	stdin := &MockCloser{Buffer: new(bytes.Buffer)}
	data := framed(response)
	return &pythonFaceMesh{stdin: stdin, data: data, logger: slog.Default()}, stdin, data
}

func TestDetectSendsRGBAndDecodesFaces(t *testing.T) {
	w, stdin, _ := mockWorker(okBody(
		[]float32{0.1, 0.2, 0.3, 0.5, 0.5, -0.01},
		[]float32{0.9, 0.9, 0},
	))

	frame, err := common.NewFrame(2, 1, common.PixelFormatBGR, []byte{1, 2, 3, 4, 5, 6})
	if err != nil {
		t.Fatal(err)
	}
	res, err := w.Detect(context.Background(), frame)
	if err != nil {
		t.Fatalf("Detect failed: %v", err)
	}

	sent := stdin.Bytes()
	if len(sent) != 12+6 {
		t.Fatalf("Expected %d bytes sent, got %d", 18, len(sent))
	}
	if n := binary.BigEndian.Uint32(sent[0:]); n != 8+6 {
		t.Errorf("Expected length prefix 14, got %d", n)
	}
	if wd, ht := binary.BigEndian.Uint32(sent[4:]), binary.BigEndian.Uint32(sent[8:]); wd != 2 || ht != 1 {
		t.Errorf("Expected 2x1 header, got %dx%d", wd, ht)
	}
	if !bytes.Equal(sent[12:], []byte{3, 2, 1, 6, 5, 4}) {
		t.Errorf("Expected RGB pixels, got %v", sent[12:])
	}

	if res.Count() != 2 {
		t.Fatalf("Expected 2 faces, got %d", res.Count())
	}
	first := res.First()
	if first.Len() != 2 {
		t.Fatalf("Expected 2 landmarks on first face, got %d", first.Len())
	}
	if p, _ := first.At(1); math.Abs(float64(p.X-0.5)) > 1e-6 || math.Abs(float64(p.Z+0.01)) > 1e-6 {
		t.Errorf("Unexpected nose landmark %+v", p)
	}
}

func TestDetectNoFace(t *testing.T) {
	w, _, _ := mockWorker(okBody())
	frame, _ := common.NewFrame(1, 1, common.PixelFormatRGB, []byte{0, 0, 0})

	res, err := w.Detect(context.Background(), frame)
	if err != nil {
		t.Fatalf("Detect failed: %v", err)
	}
	if res.First() != nil || res.Count() != 0 {
		t.Errorf("Expected no face, got %d", res.Count())
	}
}

func TestDetectWorkerError(t *testing.T) {
	errMsg := "ValueError: cannot reshape array"
	w, _, _ := mockWorker(errorBody(errMsg))
	frame, _ := common.NewFrame(1, 1, common.PixelFormatRGB, []byte{0, 0, 0})

	_, err := w.Detect(context.Background(), frame)
	if err == nil {
		t.Fatal("Expected error, got nil")
	}
	if err.Error() != "face mesh worker error: "+errMsg {
		t.Errorf("Expected error message '%s', got '%v'", "face mesh worker error: "+errMsg, err)
	}
}

func TestDetectTruncatedStream(t *testing.T) {
	stdin := &MockCloser{Buffer: new(bytes.Buffer)}
	data := &MockCloser{Buffer: bytes.NewBuffer([]byte{0, 0})}
	w := &pythonFaceMesh{stdin: stdin, data: data, logger: slog.Default()}
	frame, _ := common.NewFrame(1, 1, common.PixelFormatRGB, []byte{0, 0, 0})

	if _, err := w.Detect(context.Background(), frame); err == nil {
		t.Fatal("Expected error for a crashed worker")
	}
}

func TestTransportErrorCarriesStderrTail(t *testing.T) {
	stdin := &MockCloser{Buffer: new(bytes.Buffer)}
	data := &MockCloser{Buffer: new(bytes.Buffer)}
	cmd := common.NewSafeCommand("python3")
	cmd.Stderr.Write([]byte("first line of a long history\n"))
	cmd.Stderr.Write(bytes.Repeat([]byte("x"), 4*stderrTailBytes))
	cmd.Stderr.Write([]byte("\nTraceback: worker died\n"))
	w := &pythonFaceMesh{cmd: cmd, stdin: stdin, data: data, logger: slog.Default()}
	frame, _ := common.NewFrame(1, 1, common.PixelFormatRGB, []byte{0, 0, 0})

	_, err := w.Detect(context.Background(), frame)
	if err == nil {
		t.Fatal("Expected error for a dead worker")
	}
	msg := err.Error()
	if !strings.Contains(msg, "Traceback: worker died") {
		t.Errorf("Expected the latest stderr in the error, got %q", msg)
	}
	if strings.Contains(msg, "first line") {
		t.Error("Expected old stderr to be dropped from the error")
	}
	if len(msg) > stderrTailBytes+256 {
		t.Errorf("Expected the attached stderr to be bounded, got %d bytes", len(msg))
	}
}

func TestFaceMeshArgs(t *testing.T) {
	tests := []struct {
		name    string
		options []FaceMeshBuilderOption
		want    []string
	}{
		{name: "defaults", want: []string{"1", "1", "0.5", "0.5"}},
		{
			name:    "overrides",
			options: []FaceMeshBuilderOption{WithMaxFaces(40), WithRefineLandmarks(false), WithConfidence(0.7, 0.25)},
			want:    []string{"40", "0", "0.7", "0.25"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FaceMeshArgs(tt.options...)
			if strings.Join(got, " ") != strings.Join(tt.want, " ") {
				t.Errorf("Expected args %v, got %v", tt.want, got)
			}
		})
	}
}

func TestDecodeResponseMalformed(t *testing.T) {
	tests := []struct {
		name string
		body []byte
	}{
		{name: "empty", body: nil},
		{name: "unknown status", body: []byte{7}},
		{name: "missing face count", body: []byte{statusOK, 0}},
		{name: "landmark count overflows body", body: append(okBody()[:1], 0, 0, 0, 1, 0xFF, 0xFF, 0xFF, 0xFF)},
		{name: "short error message", body: []byte{statusError, 0, 0, 0, 9, 'x'}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := decodeResponse(tt.body)
			if !errors.Is(err, errMalformedResponse) {
				t.Errorf("Expected errMalformedResponse, got %v", err)
			}
		})
	}
}

func TestDetectAfterCloseAndCloseOnce(t *testing.T) {
	w, stdin, data := mockWorker(okBody())
	for i := 0; i < 3; i++ {
		if err := w.Close(); err != nil {
			t.Fatalf("Close failed: %v", err)
		}
	}
	if stdin.closed != 1 || data.closed != 1 {
		t.Errorf("Expected pipes closed once, got stdin=%d data=%d", stdin.closed, data.closed)
	}

	frame, _ := common.NewFrame(1, 1, common.PixelFormatRGB, []byte{0, 0, 0})
	if _, err := w.Detect(context.Background(), frame); !errors.Is(err, ErrClosed) {
		t.Errorf("Expected ErrClosed, got %v", err)
	}
}

func TestDetectCancelledContext(t *testing.T) {
	w, stdin, _ := mockWorker(okBody())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	frame, _ := common.NewFrame(1, 1, common.PixelFormatRGB, []byte{0, 0, 0})
	if _, err := w.Detect(ctx, frame); !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
	if stdin.Len() != 0 {
		t.Error("Expected nothing sent on a cancelled context")
	}
}

func TestScriptedDetector(t *testing.T) {
	face := &Result{Faces: []landmark.Set{{}}}
	d := NewScripted(
		ScriptedStep{Result: face},
		ScriptedStep{Err: errors.New("boom")},
		ScriptedStep{},
	)
	frame, _ := common.NewFrame(1, 1, common.PixelFormatRGB, []byte{0, 0, 0})

	if res, err := d.Detect(context.Background(), frame); err != nil || res.Count() != 1 {
		t.Errorf("Expected one face, got %v (%v)", res.Count(), err)
	}
	if _, err := d.Detect(context.Background(), frame); err == nil {
		t.Error("Expected scripted error")
	}
	for i := 0; i < 2; i++ {
		if res, err := d.Detect(context.Background(), frame); err != nil || res.First() != nil {
			t.Errorf("Expected last step to repeat with no face, got %v (%v)", res, err)
		}
	}
	if d.Calls() != 4 {
		t.Errorf("Expected 4 calls, got %d", d.Calls())
	}
}

func TestStderrLevel(t *testing.T) {
	tests := []struct {
		line string
		want slog.Level
	}{
		{line: "I0000 00:00:1700000000.000000 1 gl_context.cc:344] GL version", want: slog.LevelDebug},
		{line: "W0000 00:00:1700000000.000000 1 inference_feedback_manager.cc:114] Feedback", want: slog.LevelWarn},
		{line: "E0000 00:00:1700000000.000000 1 calculator_graph.cc:887] failed", want: slog.LevelError},
		{line: "Traceback (most recent call last):", want: slog.LevelError},
		{line: "UserWarning: SymbolDatabase.GetPrototype() is deprecated", want: slog.LevelWarn},
		{line: "INFO: Created TensorFlow Lite XNNPACK delegate for CPU.", want: slog.LevelDebug},
	}

	for _, tt := range tests {
		t.Run(strings.SplitN(tt.line, " ", 2)[0], func(t *testing.T) {
			if got := stderrLevel(tt.line); got != tt.want {
				t.Errorf("Expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestStderrLoggerSplitsLines(t *testing.T) {
	var out bytes.Buffer
	l := newStderrLogger(slog.New(slog.NewTextHandler(&out, &slog.HandlerOptions{Level: slog.LevelDebug})))

	l.Write([]byte("first li"))
	l.Write([]byte("ne\nsecond line\r\n\npartial"))

	logged := out.String()
	if strings.Count(logged, "detector: worker stderr") != 2 {
		t.Errorf("Expected 2 complete lines logged, got:\n%s", logged)
	}
	if !strings.Contains(logged, `line="first line"`) {
		t.Errorf("Expected joined first line, got:\n%s", logged)
	}
	if strings.Contains(logged, "partial") {
		t.Error("Expected partial line to stay buffered")
	}
}
