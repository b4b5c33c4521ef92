package common

import (
	"errors"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
)

func TestMatrixStackPushPop(t *testing.T) {
	s := NewMatrixStack()
	if s.Depth() != 1 {
		t.Fatalf("Expected depth 1, got %d", s.Depth())
	}

	s.Translate(1, 2, 3)
	before := s.Top()

	s.Push()
	s.Scale(2)
	if s.Depth() != 2 {
		t.Fatalf("Expected depth 2, got %d", s.Depth())
	}
	if s.Top().ApproxEqual(before) {
		t.Fatal("Expected scale to modify the pushed matrix")
	}

	if err := s.Pop(); err != nil {
		t.Fatalf("Pop failed: %v", err)
	}
	if !s.Top().ApproxEqual(before) {
		t.Errorf("Expected %v after pop, got %v", before, s.Top())
	}
}

func TestMatrixStackUnderflow(t *testing.T) {
	s := NewMatrixStack()
	if err := s.Pop(); !errors.Is(err, ErrStackUnderflow) {
		t.Fatalf("Expected ErrStackUnderflow, got %v", err)
	}
	if s.Depth() != 1 {
		t.Errorf("Expected depth to stay 1, got %d", s.Depth())
	}
}

func TestMatrixStackTranslateThenScale(t *testing.T) {
	s := NewMatrixStack()
	s.Translate(1, 0, 0)
	s.Scale(0.5)

	p := s.Top().Mul4x1(mgl32.Vec4{2, 0, 0, 1})
	if !p.ApproxEqual(mgl32.Vec4{2, 0, 0, 1}) {
		t.Errorf("Expected scale then translate to map (2,0,0) to (2,0,0), got %v", p)
	}
}

func TestClipSpaceCorrection(t *testing.T) {
	near := ClipSpaceCorrection.Mul4x1(mgl32.Vec4{0, 0, -1, 1})
	far := ClipSpaceCorrection.Mul4x1(mgl32.Vec4{0, 0, 1, 1})
	if near.Z() != 0 || far.Z() != 1 {
		t.Errorf("Expected depth range [0,1], got near=%v far=%v", near.Z(), far.Z())
	}
}
