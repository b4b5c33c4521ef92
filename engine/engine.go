// Package engine runs the overlay: a fixed-rate capture tick, a redraw-driven render loop and the
// window message loop on the main thread.
package engine

import (
	"context"
	"errors"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Carmen-Shannon/oxy-overlay/common"
	"github.com/Carmen-Shannon/oxy-overlay/engine/compositor"
	"github.com/Carmen-Shannon/oxy-overlay/engine/landmark"
	"github.com/Carmen-Shannon/oxy-overlay/engine/profiler"
	"github.com/Carmen-Shannon/oxy-overlay/engine/session"
	"github.com/Carmen-Shannon/oxy-overlay/engine/window"
)

// ErrNotConfigured is returned by Run when the window, session or compositor is missing.
var ErrNotConfigured = errors.New("engine requires a window, a session and a compositor")

// engine implements the Engine interface.
// Coordinates the tick, render, and window threads.
type engine struct {
	tickRateChannel chan time.Duration // Channel for dynamic tick rate updates

	running atomic.Bool
	wg      sync.WaitGroup

	quitChannel chan struct{}
	quitOnce    sync.Once // Ensures quitChannel is only closed once

	window     window.Window
	session    session.Session
	compositor compositor.Compositor

	profiler         *profiler.Profiler
	profilingEnabled atomic.Bool

	engineTickRate time.Duration
	tickCallback   func(result session.TickResult)
	renderCallback func(deltaTime float32)

	renderFrameLimit time.Duration // minimum frame duration; 0 = uncapped

	lastDrawErr string
}

// Engine is the main entry point of the overlay.
// It orchestrates the tick loop, the render loop and the window.
type Engine interface {
	// Window returns the underlying window.
	Window() window.Window

	// Session returns the capture session driven by the tick loop.
	Session() session.Session

	// EnableProfiler enables performance profiling output to the log.
	EnableProfiler()

	// DisableProfiler disables performance profiling output.
	DisableProfiler()

	// SetTickRate sets the capture tick interval.
	// If the engine is running, the change takes effect at the next tick.
	//
	// Parameters:
	//   - interval: time between ticks (defaults to session.DefaultTickInterval if <= 0)
	SetTickRate(interval time.Duration)

	// SetTickCallback registers the function called after each capture tick.
	//
	// Parameters:
	//   - callback: function receiving the tick's result
	SetTickCallback(callback func(result session.TickResult))

	// SetRenderCallback registers the function called after each rendered frame.
	//
	// Parameters:
	//   - callback: function to call each render frame, receiving the delta time in seconds
	SetRenderCallback(callback func(deltaTime float32))

	// SetRenderFrameLimit sets an optional render frame rate cap in frames per second.
	// Pass 0 to uncap the render loop (default).
	//
	// Parameters:
	//   - fps: maximum render frames per second (0 = uncapped)
	SetRenderFrameLimit(fps float64)

	// HandleKey applies a key press: Space, Tab, M and N switch to the next model; P toggles the profiler.
	//
	// Parameters:
	//   - keyCode: the key code delivered by the window
	HandleKey(keyCode uint32)

	// Run starts the tick and render goroutines and the window message loop, blocking until
	// the window closes, ctx is cancelled or Quit is called. Run does not shut the session down.
	//
	// Parameters:
	//   - ctx: cancelling it closes the window
	//
	// Returns:
	//   - error: ErrNotConfigured if a collaborator is missing
	Run(ctx context.Context) error

	// Quit signals all engine goroutines to stop and asks the window to close.
	// Safe to call multiple times; subsequent calls are no-ops.
	Quit()
}

// NewEngine creates a new Engine instance with the provided options.
// Registers the resize and key callbacks on the window when one is given.
//
// Parameters:
//   - options: functional options for engine configuration (window, session, profiling, tick rate, etc.)
//
// Returns:
//   - Engine: the newly created engine
func NewEngine(options ...EngineBuilderOption) Engine {
	e := &engine{
		tickRateChannel: make(chan time.Duration, 1),
		quitChannel:     make(chan struct{}),
		engineTickRate:  session.DefaultTickInterval,
	}

	for _, opt := range options {
		opt(e)
	}

	if e.profiler == nil {
		var profilerOptions []profiler.ProfilerBuilderOption
		if e.session != nil {
			profilerOptions = append(profilerOptions, profiler.WithSessionStats(e.session.Stats))
		}
		e.profiler = profiler.NewProfiler(profilerOptions...)
	}

	if e.window != nil {
		e.window.SetResizeCallback(e.handleResize)
		e.window.SetKeyDownCallback(e.HandleKey)
	}

	return e
}

func (e *engine) Window() window.Window {
	return e.window
}

func (e *engine) Session() session.Session {
	return e.session
}

func (e *engine) Run(ctx context.Context) error {
	if e.window == nil || e.session == nil || e.compositor == nil {
		return ErrNotConfigured
	}

	e.compositor.Resize(e.window.Width(), e.window.Height())
	e.running.Store(true)
	e.handle(ctx)

	// Draw once before the first tick so the window is not left blank.
	e.session.RequestRedraw()

	e.window.ProcessMessages()

	e.signalQuit()
	e.wg.Wait()
	return nil
}

// Quit signals all engine goroutines to stop and shuts down the engine.
// Safe to call multiple times; subsequent calls are no-ops due to sync.Once.
func (e *engine) Quit() {
	e.signalQuit()
}

// signalQuit closes the quit channel to signal all goroutines to exit and wakes the window loop.
// Uses sync.Once to ensure the channel is only closed once.
func (e *engine) signalQuit() {
	e.quitOnce.Do(func() {
		e.running.Store(false)
		close(e.quitChannel)
		if e.window != nil {
			e.window.RequestClose()
		}
	})
}

// handle launches the tick, render, and quit goroutines.
// Each goroutine is tracked by the engine's WaitGroup.
func (e *engine) handle(ctx context.Context) {
	e.wg.Add(3)
	go e.handleEngine(ctx)
	go e.handleRender()
	go e.handleQuit(ctx)
}

// handleEngine runs the fixed-rate capture tick loop in its own goroutine.
// Listens for dynamic rate changes via tickRateChannel. Exits when the quit channel is closed.
func (e *engine) handleEngine(ctx context.Context) {
	defer e.wg.Done()
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[Engine] tick goroutine recovered from panic: %v", r)
			e.signalQuit()
		}
	}()

	ticker := time.NewTicker(e.engineTickRate)
	defer ticker.Stop()

	for {
		select {
		case <-e.quitChannel:
			return
		case <-ticker.C:
			result := e.session.Tick(ctx)
			if e.tickCallback != nil {
				e.tickCallback(result)
			}
		case newRate := <-e.tickRateChannel:
			ticker.Reset(newRate)
			e.engineTickRate = newRate
		}
	}
}

// handleRender redraws whenever the session signals new state, a model switch or a resize.
// Recovers from panics to avoid crashing the process and signals quit on recovery.
func (e *engine) handleRender() {
	defer e.wg.Done()
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[Engine] render goroutine recovered from panic: %v", r)
			e.signalQuit()
		}
	}()

	lastRender := time.Now()
	redraw := e.session.Redraw()

	for {
		select {
		case <-e.quitChannel:
			return
		case <-redraw:
			now := time.Now()
			dt := float32(now.Sub(lastRender).Seconds())
			lastRender = now

			e.renderFrame()

			if e.renderCallback != nil {
				e.renderCallback(dt)
			}

			if e.profilingEnabled.Load() {
				e.profiler.Tick()
			}

			if e.renderFrameLimit > 0 {
				if remaining := e.renderFrameLimit - time.Since(lastRender); remaining > 0 {
					time.Sleep(remaining)
				}
			}
		}
	}
}

// renderFrame draws the latest snapshot with the active model.
// Repeated identical draw errors (e.g. a minimized window) are logged once.
func (e *engine) renderFrame() {
	var (
		frame *common.Frame
		set   *landmark.Set
	)
	if snap := e.session.Snapshot(); snap != nil {
		frame, set = snap.Frame, snap.Landmarks
	}

	err := e.compositor.Draw(frame, set, e.session.Registry().Active())
	if err == nil {
		e.lastDrawErr = ""
		return
	}
	if msg := err.Error(); msg != e.lastDrawErr {
		log.Printf("[Engine] draw failed: %v", err)
		e.lastDrawErr = msg
	}
}

// handleQuit blocks until the quit channel is closed or ctx is cancelled.
func (e *engine) handleQuit(ctx context.Context) {
	defer e.wg.Done()
	select {
	case <-e.quitChannel:
	case <-ctx.Done():
		log.Printf("[Engine] context done: %v", ctx.Err())
		e.signalQuit()
	}
}

// handleResize updates the projection for the new framebuffer size and redraws.
func (e *engine) handleResize(width, height int) {
	if e.compositor != nil {
		e.compositor.Resize(width, height)
	}
	if e.session != nil {
		e.session.RequestRedraw()
	}
}

func (e *engine) HandleKey(keyCode uint32) {
	switch keyCode {
	case common.KeySpace, common.KeyTab, common.KeyM, common.KeyN:
		if e.session == nil {
			return
		}
		e.session.Registry().Advance()
		e.session.RequestRedraw()
	case common.KeyP:
		if e.profilingEnabled.Load() {
			e.DisableProfiler()
		} else {
			e.EnableProfiler()
		}
	}
}

// EnableProfiler enables performance profiling output to the log.
func (e *engine) EnableProfiler() {
	e.profilingEnabled.Store(true)
}

// DisableProfiler disables performance profiling output.
func (e *engine) DisableProfiler() {
	e.profilingEnabled.Store(false)
}

// SetTickRate sets the capture tick interval.
// If the engine is running, the change takes effect immediately.
func (e *engine) SetTickRate(interval time.Duration) {
	if interval <= 0 {
		interval = session.DefaultTickInterval
	}

	if !e.running.Load() {
		e.engineTickRate = interval
		return
	}

	// Non-blocking send - if the channel is full, replace the pending value
	select {
	case e.tickRateChannel <- interval:
	default:
		select {
		case <-e.tickRateChannel:
		default:
		}
		e.tickRateChannel <- interval
	}
}

// SetTickCallback registers the function called after each capture tick.
func (e *engine) SetTickCallback(callback func(result session.TickResult)) {
	e.tickCallback = callback
}

// SetRenderCallback registers the function called each render frame.
func (e *engine) SetRenderCallback(callback func(deltaTime float32)) {
	e.renderCallback = callback
}

// SetRenderFrameLimit sets an optional render frame rate cap.
// Pass 0 to uncap the render loop.
func (e *engine) SetRenderFrameLimit(fps float64) {
	if fps <= 0 {
		e.renderFrameLimit = 0
		return
	}
	e.renderFrameLimit = time.Duration(float64(time.Second) / fps)
}
