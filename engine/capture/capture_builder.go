package capture

const (
	// DefaultDevice is the first camera on the system.
	DefaultDevice = "0"

	// DefaultWidth and DefaultHeight are requested when no size is configured.
	DefaultWidth  = 640
	DefaultHeight = 480

	// DefaultFPS is the frame rate requested from subprocess and pipeline backends.
	DefaultFPS = 30
)

// sourceConfig carries the options shared by every capture backend.
type sourceConfig struct {
	device   string
	width    int
	height   int
	fps      int
	ffmpeg   string
	pipeline string
}

func defaultSourceConfig() sourceConfig {
	return sourceConfig{
		device: DefaultDevice,
		width:  DefaultWidth,
		height: DefaultHeight,
		fps:    DefaultFPS,
		ffmpeg: "ffmpeg",
	}
}

// SourceBuilderOption is a functional option for configuring a Source via NewSource.
type SourceBuilderOption func(*sourceConfig)

// WithDevice selects the camera.
// For gocv this is an index ("0") or a path/URL; for ffmpeg and gstreamer it is the
// platform device name, with bare indices expanded to /dev/videoN on Linux.
//
// Parameters:
//   - device: the device identifier
//
// Returns:
//   - SourceBuilderOption: a function that applies the device option
func WithDevice(device string) SourceBuilderOption {
	return func(c *sourceConfig) {
		c.device = device
	}
}

// WithSize requests a frame size from the device.
//
// Parameters:
//   - width: the requested width in pixels
//   - height: the requested height in pixels
//
// Returns:
//   - SourceBuilderOption: a function that applies the size option
func WithSize(width, height int) SourceBuilderOption {
	return func(c *sourceConfig) {
		c.width, c.height = width, height
	}
}

// WithFPS requests a capture frame rate.
func WithFPS(fps int) SourceBuilderOption {
	return func(c *sourceConfig) {
		c.fps = fps
	}
}

// WithFFmpegPath sets the ffmpeg executable used by BackendTypeFFmpeg.
func WithFFmpegPath(path string) SourceBuilderOption {
	return func(c *sourceConfig) {
		c.ffmpeg = path
	}
}

// WithPipeline replaces the default GStreamer source description.
// The description must end in an appsink named "sink" producing BGR at the configured size.
func WithPipeline(description string) SourceBuilderOption {
	return func(c *sourceConfig) {
		c.pipeline = description
	}
}
