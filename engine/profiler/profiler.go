// Package profiler logs render rate, heap usage and capture session counters at a fixed interval.
package profiler

import (
	"fmt"
	"log"
	"runtime"
	"time"

	"github.com/Carmen-Shannon/oxy-overlay/engine/session"
)

// Report is one interval's worth of statistics.
type Report struct {
	FPS         float64
	HeapMB      float64
	AllocRateMB float64
	GCCount     uint32
	LastPauseUs uint64
	MaxPauseUs  uint64
	SysMB       float64

	// TickRate and FaceRate are per-second rates of session ticks and ticks that found a face.
	TickRate float64
	FaceRate float64
	// Skipped and DetectorErrors are the interval deltas of the session counters.
	Skipped        uint64
	DetectorErrors uint64
	HasSession     bool
}

// String formats the report as a single log line.
func (r Report) String() string {
	line := fmt.Sprintf("FPS: %.2f | Heap: %.2f MB | Alloc Rate: %.2f MB/s | GC: %d (last: %d µs, max: %d µs) | Sys: %.2f MB",
		r.FPS, r.HeapMB, r.AllocRateMB, r.GCCount, r.LastPauseUs, r.MaxPauseUs, r.SysMB)
	if r.HasSession {
		line += fmt.Sprintf(" | Ticks: %.1f/s | Faces: %.1f/s | Skipped: %d | Detector errors: %d",
			r.TickRate, r.FaceRate, r.Skipped, r.DetectorErrors)
	}
	return line
}

// Profiler tracks frame rate, memory and session statistics for performance monitoring.
// Outputs stats to the log at a configurable interval.
type Profiler struct {
	frameCount     int
	lastTime       time.Time
	updateInterval time.Duration
	memStats       runtime.MemStats
	lastGCCount    uint32
	lastTotalAlloc uint64

	stats     func() session.Stats
	lastStats session.Stats

	now    func() time.Time
	output func(Report)
}

// NewProfiler creates a new Profiler. The update interval defaults to 1 second.
//
// Parameters:
//   - options: a variadic list of ProfilerBuilderOption functions
//
// Returns:
//   - *Profiler: the newly created profiler instance
func NewProfiler(options ...ProfilerBuilderOption) *Profiler {
	p := &Profiler{
		updateInterval: time.Second,
		now:            time.Now,
		output: func(r Report) {
			log.Printf("[Profiler] %s", r)
		},
	}
	for _, option := range options {
		option(p)
	}
	p.lastTime = p.now()
	if p.stats != nil {
		p.lastStats = p.stats()
	}
	return p
}

// Tick should be called once per rendered frame.
// Emits a Report when the update interval has elapsed.
//
// Returns:
//   - bool: true if a report was emitted this tick, false otherwise
func (p *Profiler) Tick() bool {
	p.frameCount++
	currentTime := p.now()
	elapsed := currentTime.Sub(p.lastTime)
	if elapsed < p.updateInterval || elapsed <= 0 {
		return false
	}

	seconds := elapsed.Seconds()
	report := Report{FPS: float64(p.frameCount) / seconds}

	// Alloc is live heap; TotalAlloc only grows, so its delta is the allocation churn.
	runtime.ReadMemStats(&p.memStats)
	report.HeapMB = float64(p.memStats.Alloc) / 1024 / 1024
	report.SysMB = float64(p.memStats.Sys) / 1024 / 1024
	report.AllocRateMB = float64(p.memStats.TotalAlloc-p.lastTotalAlloc) / 1024 / 1024 / seconds

	gcCount := p.memStats.NumGC
	report.GCCount = gcCount
	if gcCount > 0 {
		// PauseNs is a circular buffer of the last 256 GC pauses
		report.LastPauseUs = p.memStats.PauseNs[(gcCount-1)%256] / 1000

		startIdx := p.lastGCCount
		if gcCount-startIdx > 256 {
			startIdx = gcCount - 256
		}
		for i := startIdx; i < gcCount; i++ {
			if pause := p.memStats.PauseNs[i%256] / 1000; pause > report.MaxPauseUs {
				report.MaxPauseUs = pause
			}
		}
	}

	if p.stats != nil {
		current := p.stats()
		report.HasSession = true
		report.TickRate = float64(current.Ticks-p.lastStats.Ticks) / seconds
		report.FaceRate = float64(current.Faces-p.lastStats.Faces) / seconds
		report.Skipped = current.Skipped - p.lastStats.Skipped
		report.DetectorErrors = current.DetectorErrors - p.lastStats.DetectorErrors
		p.lastStats = current
	}

	p.output(report)

	p.frameCount = 0
	p.lastTime = currentTime
	p.lastGCCount = gcCount
	p.lastTotalAlloc = p.memStats.TotalAlloc
	return true
}
