package detector

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/Carmen-Shannon/oxy-overlay/common"
)

// ScriptedStep is one response of a scripted detector.
type ScriptedStep struct {
	Result *Result
	Err    error
}

// scriptedDetector replays a fixed sequence of responses, repeating the last one.
type scriptedDetector struct {
	mu    sync.Mutex
	steps []ScriptedStep
	next  int

	calls  atomic.Int64
	closes atomic.Int64
}

// ScriptedDetector is a Detector that replays canned results and counts its calls.
type ScriptedDetector interface {
	Detector

	// Calls returns how many times Detect was called.
	Calls() int

	// Closes returns how many times Close was called.
	Closes() int
}

var _ ScriptedDetector = &scriptedDetector{}

// NewScripted creates a detector replaying steps in order; the last step repeats forever.
// With no steps every call reports no face.
//
// Parameters:
//   - steps: the responses to replay
//
// Returns:
//   - ScriptedDetector: the detector
func NewScripted(steps ...ScriptedStep) ScriptedDetector {
	return &scriptedDetector{steps: steps}
}

// NewStatic creates a detector that returns the same result for every frame.
// It backs the headless "no detector" mode and tests; a nil result means no face.
func NewStatic(result *Result) ScriptedDetector {
	return NewScripted(ScriptedStep{Result: result})
}

func (d *scriptedDetector) Detect(ctx context.Context, frame *common.Frame) (*Result, error) {
	d.calls.Add(1)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.steps) == 0 {
		return &Result{}, nil
	}
	step := d.steps[min(d.next, len(d.steps)-1)]
	d.next++
	if step.Err != nil {
		return nil, step.Err
	}
	if step.Result == nil {
		return &Result{}, nil
	}
	return step.Result, nil
}

func (d *scriptedDetector) Close() error {
	d.closes.Add(1)
	return nil
}

func (d *scriptedDetector) Calls() int {
	return int(d.calls.Load())
}

func (d *scriptedDetector) Closes() int {
	return int(d.closes.Load())
}
