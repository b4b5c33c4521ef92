// Package landmark holds face landmark sets and maps them into the overlay's view space.
package landmark

import "github.com/go-gl/mathgl/mgl32"

// Point is a single face landmark in normalized image coordinates.
// X and Y are in [0,1] with the origin at the top-left of the image; Z is relative depth.
type Point struct {
	X, Y, Z float32
}

// Set is the ordered landmark list for one detected face.
type Set struct {
	Points []Point
}

// NewSet builds a Set from flat xyz triples.
//
// Parameters:
//   - xyz: landmark coordinates, three floats per point
//
// Returns:
//   - *Set: the landmark set; trailing values that do not form a full point are dropped
func NewSet(xyz []float32) *Set {
	s := &Set{Points: make([]Point, len(xyz)/3)}
	for i := range s.Points {
		s.Points[i] = Point{X: xyz[3*i], Y: xyz[3*i+1], Z: xyz[3*i+2]}
	}
	return s
}

// Len returns the number of landmarks, 0 for a nil set.
func (s *Set) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Points)
}

// At returns landmark i and whether it exists.
func (s *Set) At(i int) (Point, bool) {
	if s == nil || i < 0 || i >= len(s.Points) {
		return Point{}, false
	}
	return s.Points[i], true
}

// Anchor is the placement of the model for one frame.
type Anchor struct {
	Translation mgl32.Vec3
	Scale       float32
}

// Transform returns the model matrix translate(Translation) * scale(Scale).
func (a Anchor) Transform() mgl32.Mat4 {
	t := a.Translation
	return mgl32.Translate3D(t.X(), t.Y(), t.Z()).Mul4(mgl32.Scale3D(a.Scale, a.Scale, a.Scale))
}
