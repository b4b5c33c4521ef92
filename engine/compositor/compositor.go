// Package compositor draws one overlay frame: the camera image as a full-window background
// and, when a face is present, the active model anchored to the designated landmark.
package compositor

import (
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/Carmen-Shannon/oxy-overlay/common"
	"github.com/Carmen-Shannon/oxy-overlay/engine/landmark"
	"github.com/Carmen-Shannon/oxy-overlay/engine/model"
	"github.com/go-gl/mathgl/mgl32"
)

const (
	// FieldOfView is the vertical perspective angle in degrees.
	FieldOfView float32 = 45

	// NearPlane and FarPlane bound the perspective depth range.
	NearPlane float32 = 0.1
	FarPlane  float32 = 100
)

var (
	// Eye is the fixed camera position used for the foreground pass.
	Eye = mgl32.Vec3{0, 0, 5}

	// ModelColor is the flat color the overlay model is drawn with.
	ModelColor = mgl32.Vec4{1, 1, 1, 1}
)

// compositor is the implementation of the Compositor interface.
type compositor struct {
	mu sync.Mutex

	backend Backend
	mapper  landmark.Mapper

	projection *common.MatrixStack
	modelview  *common.MatrixStack

	width, height int
}

// Compositor renders frames through a Backend using a projection and a modelview matrix stack.
type Compositor interface {
	// Resize sets the perspective projection for the new window size and resizes the backend.
	//
	// Parameters:
	//   - width: the framebuffer width in pixels
	//   - height: the framebuffer height in pixels; 0 is treated as an aspect of 1
	Resize(width, height int)

	// Draw renders one frame.
	// The background pass runs when frame is non-nil; the foreground pass runs when the
	// mapper yields an anchor from set and m is non-nil. Both matrix stacks are back at
	// their prior depth when Draw returns, including on error.
	//
	// Parameters:
	//   - frame: the mirrored camera frame, or nil before the first capture
	//   - set: the landmarks of the first face, or nil
	//   - m: the active model
	//
	// Returns:
	//   - error: error from BeginFrame, DrawMesh or EndFrame
	Draw(frame *common.Frame, set *landmark.Set, m model.Model) error

	// Depths returns the current projection and modelview stack depths.
	Depths() (projection, modelview int)

	// Projection returns the current top of the projection stack.
	Projection() mgl32.Mat4
}

var _ Compositor = &compositor{}

// NewCompositor creates a Compositor bound to a backend.
//
// Parameters:
//   - backend: the GPU backend receiving the draw calls
//   - options: a variadic list of CompositorBuilderOption functions
//
// Returns:
//   - Compositor: the compositor with an identity projection until Resize is called
func NewCompositor(backend Backend, options ...CompositorBuilderOption) Compositor {
	c := &compositor{
		backend:    backend,
		projection: common.NewMatrixStack(),
		modelview:  common.NewMatrixStack(),
	}
	for _, option := range options {
		option(c)
	}
	if c.mapper == nil {
		c.mapper = landmark.NewMapper()
	}
	return c
}

func (c *compositor) Resize(width, height int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	aspect := float32(1)
	if height > 0 {
		aspect = float32(width) / float32(height)
	}
	c.width, c.height = width, height
	c.projection.Load(mgl32.Perspective(mgl32.DegToRad(FieldOfView), aspect, NearPlane, FarPlane))
	c.backend.SetViewport(width, height)
}

func (c *compositor) Draw(frame *common.Frame, set *landmark.Set, m model.Model) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.backend.BeginFrame(); err != nil {
		return fmt.Errorf("begin frame: %w", err)
	}

	c.modelview.LoadIdentity()

	if frame != nil {
		if err := c.drawBackground(frame); err != nil {
			log.Printf("[Compositor] background skipped: %v", err)
		}
	}

	c.modelview.Mul(mgl32.LookAtV(Eye, mgl32.Vec3{}, mgl32.Vec3{0, 1, 0}))

	var drawErr error
	if anchor, ok := c.mapper.Anchor(set); ok && m != nil {
		drawErr = c.pushed(c.modelview, func() error {
			c.modelview.Translate(anchor.Translation.X(), anchor.Translation.Y(), anchor.Translation.Z())
			c.modelview.Scale(anchor.Scale)
			return c.backend.DrawMesh(m, c.projection.Top().Mul4(c.modelview.Top()), ModelColor)
		})
	}

	if err := c.backend.EndFrame(); err != nil {
		return errors.Join(drawErr, fmt.Errorf("end frame: %w", err))
	}
	return drawErr
}

// drawBackground uploads the frame and draws it across the whole window in an orthographic pass.
func (c *compositor) drawBackground(frame *common.Frame) error {
	if err := c.backend.UploadBackground(frame); err != nil {
		return err
	}

	w, h := float32(frame.Width), float32(frame.Height)
	return c.pushed(c.projection, func() error {
		c.projection.Load(mgl32.Ortho(0, w, 0, h, -1, 1))
		return c.pushed(c.modelview, func() error {
			c.modelview.LoadIdentity()
			return c.backend.DrawBackground(BackgroundQuad(w, h), c.projection.Top().Mul4(c.modelview.Top()))
		})
	})
}

// pushed runs fn between a Push and a Pop of s so the stack depth is restored on every path.
func (c *compositor) pushed(s *common.MatrixStack, fn func() error) error {
	s.Push()
	err := fn()
	if perr := s.Pop(); perr != nil {
		return errors.Join(err, perr)
	}
	return err
}

func (c *compositor) Depths() (int, int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.projection.Depth(), c.modelview.Depth()
}

func (c *compositor) Projection() mgl32.Mat4 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.projection.Top()
}

// BackgroundQuad returns the w x h quad with the image's top row mapped to the top of the window.
//
// Parameters:
//   - w: the quad width in ortho units
//   - h: the quad height in ortho units
//
// Returns:
//   - Quad: corners (0,0),(w,0),(w,h),(0,h) with texcoords (0,1),(1,1),(1,0),(0,0)
func BackgroundQuad(w, h float32) Quad {
	return Quad{
		Positions: [4]mgl32.Vec2{{0, 0}, {w, 0}, {w, h}, {0, h}},
		TexCoords: [4]mgl32.Vec2{{0, 1}, {1, 1}, {1, 0}, {0, 0}},
	}
}
