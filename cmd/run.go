package cmd

import (
	"errors"
	"fmt"
	"log"
	"log/slog"
	"os"

	"github.com/Carmen-Shannon/oxy-overlay/engine"
	"github.com/Carmen-Shannon/oxy-overlay/engine/compositor"
	"github.com/Carmen-Shannon/oxy-overlay/engine/renderer"
	"github.com/Carmen-Shannon/oxy-overlay/engine/session"
	"github.com/Carmen-Shannon/oxy-overlay/engine/window"
	"github.com/spf13/cobra"
)

var (
	runFlags   overrides
	runProfile bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Open the overlay window",
	Long: `Open a window showing the mirrored camera feed with the active model anchored to the nose tip.

Keys: Space, Tab, M or N switch to the next model, P toggles the profiler, Escape quits.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		runFlags.apply(cmd, cfg)
		if cmd.Flags().Changed("profile") {
			cfg.Profiling = runProfile
		}
		return runOverlay(cmd)
	},
}

func init() {
	runFlags.register(runCmd)
	runCmd.Flags().BoolVar(&runProfile, "profile", false, "log FPS, memory and session statistics every second")
	rootCmd.AddCommand(runCmd)
}

// runOverlay builds the window, renderer, session and engine, then blocks until the window closes.
func runOverlay(cmd *cobra.Command) (err error) {
	ctx := cmd.Context()

	win, err := window.NewWindow(
		window.WithTitle(cfg.Window.Title),
		window.WithSize(cfg.Window.Width, cfg.Window.Height),
	)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := win.Close(); cerr != nil && !errors.Is(cerr, window.ErrNotInitialized) {
			err = errors.Join(err, cerr)
		}
	}()

	presentMode := renderer.PresentModeVSync
	if !cfg.Window.VSync {
		presentMode = renderer.PresentModeUncapped
	}
	msaa := renderer.MSAA4x
	if !cfg.Window.MSAA {
		msaa = renderer.MSAAOff
	}
	r, err := renderer.NewRenderer(renderer.BackendTypeWGPU, win,
		renderer.WithPresentMode(presentMode),
		renderer.WithMSAA(msaa),
		renderer.WithForceSoftwareRenderer(cfg.Window.SoftwareRenderer),
	)
	if err != nil {
		return fmt.Errorf("create renderer: %w", err)
	}
	defer r.Release()

	sess, err := session.Start(ctx,
		session.WithCamera(cameraOpener(cfg)),
		session.WithTextureAllocator(r),
		session.WithModels(newLoader(cfg, os.Stderr), cfg.Models...),
		session.WithDetector(detectorOpener(cfg, slog.Default())),
	)
	if err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, sess.Shutdown())
	}()

	width, height := sess.FrameSize()
	log.Printf("[Overlay] session %s: camera %s %dx%d, %d models", sess.ID(), cfg.Camera.Backend, width, height, sess.Registry().Len())

	eng := engine.NewEngine(
		engine.WithWindow(win),
		engine.WithSession(sess),
		engine.WithCompositor(compositor.NewCompositor(r, compositor.WithMapper(newMapper(cfg)))),
		engine.WithTickRate(cfg.TickInterval()),
		engine.WithProfiling(cfg.Profiling),
		engine.WithRenderFrameLimit(float64(cfg.Window.FrameLimit)),
	)
	return eng.Run(ctx)
}
