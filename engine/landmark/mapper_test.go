package landmark

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
)

func TestAnchorForMapsNormalizedCoordinates(t *testing.T) {
	m := NewMapper()
	tests := []struct {
		name string
		p    Point
		want mgl32.Vec3
	}{
		{name: "center", p: Point{X: 0.5, Y: 0.5}, want: mgl32.Vec3{0, 0, -3}},
		{name: "top left", p: Point{X: 0, Y: 0}, want: mgl32.Vec3{-1, 1, -3}},
		{name: "bottom right", p: Point{X: 1, Y: 1}, want: mgl32.Vec3{1, -1, -3}},
		{name: "z ignored", p: Point{X: 0.5, Y: 0.5, Z: 0.7}, want: mgl32.Vec3{0, 0, -3}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := m.AnchorFor(tt.p)
			if !a.Translation.ApproxEqual(tt.want) {
				t.Errorf("Expected %v, got %v", tt.want, a.Translation)
			}
			if a.Scale != DefaultScale {
				t.Errorf("Expected scale %v, got %v", DefaultScale, a.Scale)
			}
		})
	}
}

func TestAnchorForRangeAndMonotonicity(t *testing.T) {
	m := NewMapper()
	prevX, prevY := float32(-2), float32(2)
	for i := 0; i <= 100; i++ {
		v := float32(i) / 100
		a := m.AnchorFor(Point{X: v, Y: v})
		x, y := a.Translation.X(), a.Translation.Y()
		if x < -1-1e-6 || x > 1+1e-6 || y < -1-1e-6 || y > 1+1e-6 {
			t.Fatalf("Anchor (%v,%v) out of [-1,1] for input %v", x, y, v)
		}
		if x <= prevX {
			t.Fatalf("Expected x strictly increasing at %v", v)
		}
		if y >= prevY {
			t.Fatalf("Expected y strictly decreasing at %v", v)
		}
		prevX, prevY = x, y
	}
}

func TestAnchorUsesDesignatedIndex(t *testing.T) {
	set := &Set{Points: []Point{{X: 0, Y: 0}, {X: 0.75, Y: 0.25}}}

	a, ok := NewMapper().Anchor(set)
	if !ok {
		t.Fatal("Expected anchor for set containing the nose tip")
	}
	if want := (mgl32.Vec3{0.5, 0.5, -3}); !a.Translation.ApproxEqual(want) {
		t.Errorf("Expected %v, got %v", want, a.Translation)
	}

	a, ok = NewMapper(WithDesignatedIndex(0), WithReferenceDepth(-5), WithScale(2)).Anchor(set)
	if !ok {
		t.Fatal("Expected anchor for index 0")
	}
	if want := (mgl32.Vec3{-1, 1, -5}); !a.Translation.ApproxEqual(want) || a.Scale != 2 {
		t.Errorf("Expected %v scale 2, got %v scale %v", want, a.Translation, a.Scale)
	}
}

func TestAnchorMissing(t *testing.T) {
	tests := []struct {
		name string
		set  *Set
	}{
		{name: "nil set", set: nil},
		{name: "empty set", set: &Set{}},
		{name: "index out of range", set: &Set{Points: []Point{{X: 0.5, Y: 0.5}}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, ok := NewMapper().Anchor(tt.set); ok {
				t.Error("Expected no anchor")
			}
		})
	}
}

func TestAnchorSmoothing(t *testing.T) {
	m := NewMapper(WithDesignatedIndex(0), WithSmoothing(0.5))
	left := &Set{Points: []Point{{X: 0, Y: 0.5}}}
	right := &Set{Points: []Point{{X: 1, Y: 0.5}}}

	a, _ := m.Anchor(left)
	if !mgl32.FloatEqual(a.Translation.X(), -1) {
		t.Fatalf("Expected first sample unfiltered, got %v", a.Translation.X())
	}
	a, _ = m.Anchor(right)
	if !mgl32.FloatEqual(a.Translation.X(), 0) {
		t.Errorf("Expected halfway after one step, got %v", a.Translation.X())
	}
	if !mgl32.FloatEqual(a.Translation.Z(), DefaultReferenceDepth) {
		t.Errorf("Expected depth untouched by smoothing, got %v", a.Translation.Z())
	}

	m.Anchor(nil)
	a, _ = m.Anchor(right)
	if !mgl32.FloatEqual(a.Translation.X(), 1) {
		t.Errorf("Expected filter reset after a frame without face, got %v", a.Translation.X())
	}
}

func TestAnchorTransform(t *testing.T) {
	a := Anchor{Translation: mgl32.Vec3{1, 2, -3}, Scale: 0.5}
	got := a.Transform().Mul4x1(mgl32.Vec4{2, 2, 2, 1})
	if want := (mgl32.Vec4{2, 3, -2, 1}); !got.ApproxEqual(want) {
		t.Errorf("Expected %v, got %v", want, got)
	}
}

func TestNewSet(t *testing.T) {
	s := NewSet([]float32{0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7})
	if s.Len() != 2 {
		t.Fatalf("Expected 2 points, got %d", s.Len())
	}
	if p, _ := s.At(1); p != (Point{X: 0.4, Y: 0.5, Z: 0.6}) {
		t.Errorf("Unexpected second point %v", p)
	}
	var nilSet *Set
	if nilSet.Len() != 0 {
		t.Error("Expected nil set to have length 0")
	}
}

func TestAnchorSmoothingRepeatedSetDoesNotAdvance(t *testing.T) {
	m := NewMapper(WithDesignatedIndex(0), WithSmoothing(0.5))
	left := &Set{Points: []Point{{X: 0, Y: 0.5}}}
	right := &Set{Points: []Point{{X: 1, Y: 0.5}}}

	m.Anchor(left)
	first, _ := m.Anchor(right)
	again, _ := m.Anchor(right)
	if first != again {
		t.Fatalf("Expected the same set to keep its anchor, got %v then %v", first.Translation, again.Translation)
	}

	next, _ := m.Anchor(&Set{Points: []Point{{X: 1, Y: 0.5}}})
	if !mgl32.FloatEqual(next.Translation.X(), 0.5) {
		t.Errorf("Expected a new set to advance the filter to 0.5, got %v", next.Translation.X())
	}
}
