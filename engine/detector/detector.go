// Package detector finds face landmarks in RGB frames.
package detector

import (
	"context"
	"errors"

	"github.com/Carmen-Shannon/oxy-overlay/common"
	"github.com/Carmen-Shannon/oxy-overlay/engine/landmark"
)

// ErrClosed is returned by Detect after Close.
var ErrClosed = errors.New("detector closed")

// Result holds the faces found in one frame, in detector order.
type Result struct {
	Faces []landmark.Set
}

// First returns the first face, or nil when no face was found.
func (r *Result) First() *landmark.Set {
	if r == nil || len(r.Faces) == 0 {
		return nil
	}
	return &r.Faces[0]
}

// Count returns the number of faces found.
func (r *Result) Count() int {
	if r == nil {
		return 0
	}
	return len(r.Faces)
}

// Detector locates face landmarks in a frame.
type Detector interface {
	// Detect runs landmark detection on one frame.
	//
	// Parameters:
	//   - ctx: checked before the request is sent
	//   - frame: the frame to analyze; BGR frames are converted to RGB first
	//
	// Returns:
	//   - *Result: the faces found, possibly none
	//   - error: error if the detector failed for this frame
	Detect(ctx context.Context, frame *common.Frame) (*Result, error)

	// Close releases the detector. Only the first call has an effect.
	Close() error
}
