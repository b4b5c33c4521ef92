package capture

import (
	"fmt"
	"log/slog"
	"runtime"
	"strconv"

	"github.com/Carmen-Shannon/oxy-overlay/common"
	"github.com/tinyzimmer/go-gst/gst"
	"github.com/tinyzimmer/go-gst/gst/app"
)

// gstreamerSourceBackend runs a GStreamer pipeline whose appsink callback fills a mailbox.
type gstreamerSourceBackend struct {
	pipeline *gst.Pipeline
	sink     *app.Sink
	box      mailbox

	width, height int
}

var _ sourceBackend = &gstreamerSourceBackend{}

func newGStreamerSourceBackend() *gstreamerSourceBackend {
	return &gstreamerSourceBackend{}
}

// gstreamerDescription returns the default pipeline for a local camera on goos.
//
// Parameters:
//   - goos: the target operating system, as in runtime.GOOS
//   - cfg: the source configuration
//
// Returns:
//   - string: a gst-launch description ending in an appsink named "sink"
func gstreamerDescription(goos string, cfg sourceConfig) string {
	var src string
	switch goos {
	case "darwin":
		src = fmt.Sprintf("avfvideosrc device-index=%s", cfg.device)
	case "windows":
		src = "ksvideosrc"
		if _, err := strconv.Atoi(cfg.device); err == nil {
			src = fmt.Sprintf("ksvideosrc device-index=%s", cfg.device)
		}
	default:
		device := cfg.device
		if _, err := strconv.Atoi(device); err == nil {
			device = "/dev/video" + device
		}
		src = fmt.Sprintf("v4l2src device=%s", device)
	}

	return fmt.Sprintf(
		"%s ! videoconvert ! videoscale ! videorate ! video/x-raw,format=BGR,width=%d,height=%d,framerate=%d/1 ! appsink name=sink sync=false max-buffers=1 drop=true",
		src, cfg.width, cfg.height, cfg.fps,
	)
}

func (b *gstreamerSourceBackend) Open(cfg sourceConfig) error {
	if cfg.width <= 0 || cfg.height <= 0 {
		return fmt.Errorf("gstreamer capture needs a frame size, got %dx%d", cfg.width, cfg.height)
	}
	b.width, b.height = cfg.width, cfg.height

	gst.Init(nil)

	description := cfg.pipeline
	if description == "" {
		description = gstreamerDescription(runtime.GOOS, cfg)
	}

	pipeline, err := gst.NewPipelineFromString(description)
	if err != nil {
		return fmt.Errorf("failed to create pipeline: %w", err)
	}
	elem, err := pipeline.GetElementByName("sink")
	if err != nil {
		return fmt.Errorf("pipeline has no appsink named sink: %w", err)
	}
	sink := app.SinkFromElement(elem)
	if sink == nil {
		return fmt.Errorf("element sink is not an appsink")
	}

	sink.SetCallbacks(&app.SinkCallbacks{
		NewSampleFunc: b.onNewSample,
	})

	if err := pipeline.SetState(gst.StatePlaying); err != nil {
		return fmt.Errorf("failed to start pipeline: %w", err)
	}

	b.pipeline = pipeline
	b.sink = sink
	slog.Info("capture: gstreamer pipeline playing", "pipeline", description)
	return nil
}

// onNewSample copies the sample out of GStreamer's buffer and stores it as the latest frame.
func (b *gstreamerSourceBackend) onNewSample(sink *app.Sink) gst.FlowReturn {
	sample := sink.PullSample()
	if sample == nil {
		slog.Warn("capture: failed to pull sample from appsink, skipping frame")
		return gst.FlowOK
	}
	buffer := sample.GetBuffer()
	if buffer == nil {
		slog.Warn("capture: failed to get buffer from sample, skipping frame")
		return gst.FlowOK
	}

	mapInfo := buffer.Map(gst.MapRead)
	pixels, ok := packRows(mapInfo.Bytes(), b.width, b.height)
	buffer.Unmap()
	if !ok {
		slog.Warn("capture: unexpected buffer size, skipping frame", "width", b.width, "height", b.height)
		return gst.FlowOK
	}

	b.box.put(&common.Frame{Width: b.width, Height: b.height, Format: common.PixelFormatBGR, Pixels: pixels})
	return gst.FlowOK
}

// packRows copies a BGR image out of data, removing the 4-byte row alignment GStreamer
// applies to raw video when width*3 is not a multiple of 4.
//
// Parameters:
//   - data: the mapped buffer bytes
//   - width: the frame width
//   - height: the frame height
//
// Returns:
//   - []byte: a tightly packed width*height*3 copy
//   - bool: false when data matches neither the packed nor the aligned layout
func packRows(data []byte, width, height int) ([]byte, bool) {
	row := width * 3
	packed := row * height
	if len(data) == packed {
		out := make([]byte, packed)
		copy(out, data)
		return out, true
	}

	stride := (row + 3) &^ 3
	if len(data) < stride*height {
		return nil, false
	}
	out := make([]byte, packed)
	for y := 0; y < height; y++ {
		copy(out[y*row:(y+1)*row], data[y*stride:y*stride+row])
	}
	return out, true
}

func (b *gstreamerSourceBackend) ReadFrame() (*common.Frame, bool) {
	return b.box.take()
}

func (b *gstreamerSourceBackend) Size() (int, int) {
	return b.width, b.height
}

func (b *gstreamerSourceBackend) Dropped() uint64 {
	return b.box.dropped.Load()
}

func (b *gstreamerSourceBackend) Close() error {
	if b.pipeline == nil {
		return nil
	}
	return b.pipeline.SetState(gst.StateNull)
}
