package profiler

import (
	"time"

	"github.com/Carmen-Shannon/oxy-overlay/engine/session"
)

// ProfilerBuilderOption is a functional option for configuring a Profiler.
type ProfilerBuilderOption func(*Profiler)

// WithInterval sets how often a report is emitted. Non-positive values keep the default.
//
// Parameters:
//   - interval: the reporting interval
//
// Returns:
//   - ProfilerBuilderOption: option function to apply
func WithInterval(interval time.Duration) ProfilerBuilderOption {
	return func(p *Profiler) {
		if interval > 0 {
			p.updateInterval = interval
		}
	}
}

// WithSessionStats adds the capture session's counters to every report.
//
// Parameters:
//   - stats: returns the current session counters
//
// Returns:
//   - ProfilerBuilderOption: option function to apply
func WithSessionStats(stats func() session.Stats) ProfilerBuilderOption {
	return func(p *Profiler) {
		p.stats = stats
	}
}

// WithOutput replaces the log sink.
func WithOutput(output func(Report)) ProfilerBuilderOption {
	return func(p *Profiler) {
		p.output = output
	}
}

// withClock replaces the time source.
func withClock(now func() time.Time) ProfilerBuilderOption {
	return func(p *Profiler) {
		p.now = now
	}
}
