package compositor

import (
	"errors"

	"github.com/Carmen-Shannon/oxy-overlay/common"
	"github.com/Carmen-Shannon/oxy-overlay/engine/model"
	"github.com/go-gl/mathgl/mgl32"
)

// ErrFrameSize is returned by UploadBackground when the frame does not match the background texture.
var ErrFrameSize = errors.New("frame size does not match background texture")

// Quad is a screen-space rectangle with per-corner texture coordinates.
type Quad struct {
	Positions [4]mgl32.Vec2
	TexCoords [4]mgl32.Vec2
}

// Backend is the set of GPU operations the compositor drives each frame.
// Matrices are handed over in GL clip-space convention (z in [-w,w]); backends targeting
// a [0,w] depth range apply their own correction.
type Backend interface {
	// BeginFrame clears the color and depth targets and opens the frame.
	//
	// Returns:
	//   - error: error if no surface texture could be acquired
	BeginFrame() error

	// UploadBackground replaces the contents of the single background texture.
	//
	// Parameters:
	//   - frame: the camera frame, same size as the texture
	//
	// Returns:
	//   - error: ErrFrameSize on dimension mismatch or a GPU upload error
	UploadBackground(frame *common.Frame) error

	// DrawBackground draws the textured quad without depth test or depth writes.
	//
	// Parameters:
	//   - quad: the corner positions and texture coordinates
	//   - mvp: the projection * modelview matrix
	//
	// Returns:
	//   - error: error if recording the draw fails
	DrawBackground(quad Quad, mvp mgl32.Mat4) error

	// DrawMesh draws a model's triangles with depth testing in a flat color.
	//
	// Parameters:
	//   - m: the model to draw
	//   - mvp: the projection * modelview matrix
	//   - color: the RGBA fill color
	//
	// Returns:
	//   - error: error if the model buffers cannot be created or the draw fails
	DrawMesh(m model.Model, mvp mgl32.Mat4, color mgl32.Vec4) error

	// EndFrame submits the recorded frame and presents it.
	EndFrame() error

	// SetViewport resizes the render targets.
	SetViewport(width, height int)
}
