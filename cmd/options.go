package cmd

import (
	"io"
	"log/slog"

	"github.com/Carmen-Shannon/oxy-overlay/config"
	"github.com/Carmen-Shannon/oxy-overlay/engine/capture"
	"github.com/Carmen-Shannon/oxy-overlay/engine/detector"
	"github.com/Carmen-Shannon/oxy-overlay/engine/landmark"
	"github.com/Carmen-Shannon/oxy-overlay/engine/loader"
	"github.com/spf13/cobra"
)

// overrides holds the flags shared by run and probe; set flags win over the configuration.
type overrides struct {
	backend    string
	device     string
	python     string
	noDetector bool
}

func (o *overrides) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&o.backend, "camera-backend", "", "camera backend: gocv, ffmpeg or gstreamer")
	cmd.Flags().StringVar(&o.device, "device", "", "camera device index or path")
	cmd.Flags().StringVar(&o.python, "python", "", "python interpreter with mediapipe installed")
	cmd.Flags().BoolVar(&o.noDetector, "no-detector", false, "skip face detection and only show the camera")
}

// apply copies the flags that were set on cmd into c.
func (o *overrides) apply(cmd *cobra.Command, c *config.Config) {
	if cmd.Flags().Changed("camera-backend") {
		c.Camera.Backend = o.backend
	}
	if cmd.Flags().Changed("device") {
		c.Camera.Device = o.device
	}
	if cmd.Flags().Changed("python") {
		c.Detector.Python = o.python
	}
	if o.noDetector {
		c.Detector.Enabled = false
	}
}

// cameraOpener returns the function that opens the configured camera.
func cameraOpener(c *config.Config) func() (capture.Source, error) {
	return func() (capture.Source, error) {
		backend, err := capture.ParseBackendType(c.Camera.Backend)
		if err != nil {
			return nil, err
		}
		return capture.NewSource(backend,
			capture.WithDevice(c.Camera.Device),
			capture.WithSize(c.Camera.Width, c.Camera.Height),
			capture.WithFPS(c.Camera.FPS),
			capture.WithFFmpegPath(c.Camera.FFmpegPath),
			capture.WithPipeline(c.Camera.Pipeline),
		)
	}
}

// detectorOpener returns the function that starts the configured detector.
// A disabled detector reports no face for every frame.
func detectorOpener(c *config.Config, logger *slog.Logger) func() (detector.Detector, error) {
	return func() (detector.Detector, error) {
		if !c.Detector.Enabled {
			return detector.NewStatic(nil), nil
		}
		return detector.NewPythonFaceMesh(faceMeshOptions(c, logger)...)
	}
}

// faceMeshOptions maps the detector section of c onto face mesh worker options.
func faceMeshOptions(c *config.Config, logger *slog.Logger) []detector.FaceMeshBuilderOption {
	return []detector.FaceMeshBuilderOption{
		detector.WithPython(c.Detector.Python),
		detector.WithMaxFaces(c.Detector.MaxFaces),
		detector.WithRefineLandmarks(c.Detector.RefineLandmarks),
		detector.WithConfidence(c.Detector.DetectionConfidence, c.Detector.TrackingConfidence),
		detector.WithLogger(logger),
	}
}

func newMapper(c *config.Config) landmark.Mapper {
	return landmark.NewMapper(
		landmark.WithDesignatedIndex(c.Overlay.LandmarkIndex),
		landmark.WithReferenceDepth(c.Overlay.ReferenceDepth),
		landmark.WithScale(c.Overlay.Scale),
		landmark.WithSmoothing(c.Overlay.Smoothing),
	)
}

// newLoader returns a loader drawing its progress bar on progress (nil for none).
func newLoader(c *config.Config, progress io.Writer) loader.Loader {
	options := []loader.LoaderBuilderOption{loader.WithWorkers(c.LoadWorkers)}
	if progress != nil {
		options = append(options, loader.WithProgress(progress))
	}
	return loader.NewLoader(options...)
}
