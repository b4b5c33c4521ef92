package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/Carmen-Shannon/oxy-overlay/config"
	"github.com/spf13/cobra"
)

// defaultProbeMaxFaces lets probe count a crowd rather than only the overlay's single face.
const defaultProbeMaxFaces = 40

var (
	probeFlags    overrides
	probeFrames   int
	probeMaxFaces int
)

var probeCmd = &cobra.Command{
	Use:   "probe",
	Short: "Check the camera and face detection without opening a window",
	Long: `Read frames from the camera, run face detection on each and print how many faces were found.
Useful to verify the camera backend and the Python environment before running the overlay.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		probeFlags.apply(cmd, cfg)
		return runProbe(cmd)
	},
}

func init() {
	probeFlags.register(probeCmd)
	probeCmd.Flags().IntVarP(&probeFrames, "frames", "n", 100, "number of frames to probe (0 = until interrupted)")
	probeCmd.Flags().IntVar(&probeMaxFaces, "max-faces", defaultProbeMaxFaces, "maximum number of faces to detect per frame")
	rootCmd.AddCommand(probeCmd)
}

// probeConfig returns a copy of c with the detector looking for up to maxFaces faces.
func probeConfig(c *config.Config, maxFaces int) (*config.Config, error) {
	if maxFaces < 1 {
		return nil, fmt.Errorf("--max-faces must be at least 1, got %d", maxFaces)
	}
	pc := *c
	pc.Detector.MaxFaces = maxFaces
	return &pc, nil
}

func runProbe(cmd *cobra.Command) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	pc, err := probeConfig(cfg, probeMaxFaces)
	if err != nil {
		return err
	}

	src, err := cameraOpener(cfg)()
	if err != nil {
		return fmt.Errorf("open camera: %w", err)
	}
	defer src.Close()

	det, err := detectorOpener(pc, slog.New(slog.NewTextHandler(os.Stderr, nil)))()
	if err != nil {
		return fmt.Errorf("start detector: %w", err)
	}
	defer det.Close()

	width, height := src.Size()
	fmt.Fprintf(out, "Camera %s (%s) %dx%d\n", cfg.Camera.Backend, cfg.Camera.Device, width, height)

	ticker := time.NewTicker(cfg.TickInterval())
	defer ticker.Stop()

	var processed, withFace int
	for probeFrames == 0 || processed < probeFrames {
		select {
		case <-ctx.Done():
			fmt.Fprintln(out, "Interrupted")
			return reportProbe(cmd, processed, withFace)
		case <-ticker.C:
		}

		frame, ok := src.ReadFrame()
		if !ok {
			continue
		}
		processed++

		result, err := det.Detect(ctx, frame.MirrorHorizontal().ToRGB())
		if err != nil {
			fmt.Fprintf(out, "frame %d: detector error: %v\n", processed, err)
			continue
		}
		if result.Count() > 0 {
			withFace++
		}
		fmt.Fprintf(out, "frame %d: %d face(s)\n", processed, result.Count())
	}
	return reportProbe(cmd, processed, withFace)
}

func reportProbe(cmd *cobra.Command, processed, withFace int) error {
	fmt.Fprintf(cmd.OutOrStdout(), "Processed %d frames, %d with a face\n", processed, withFace)
	if processed == 0 {
		return fmt.Errorf("no frames received from camera %q", cfg.Camera.Device)
	}
	return nil
}
