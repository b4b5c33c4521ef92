package common

import (
	"errors"
	"unsafe"

	"github.com/go-gl/mathgl/mgl32"
)

// ErrStackUnderflow is returned when popping the last matrix off a MatrixStack.
var ErrStackUnderflow = errors.New("matrix stack underflow")

// ClipSpaceCorrection remaps OpenGL clip-space depth [-w, w] to the WebGPU range [0, w].
// Matrices built with mgl32 (Perspective, Ortho) follow the OpenGL convention and must be
// pre-multiplied by this matrix before being handed to a WebGPU pipeline.
var ClipSpaceCorrection = mgl32.Mat4{
	1, 0, 0, 0,
	0, 1, 0, 0,
	0, 0, 0.5, 0,
	0, 0, 0.5, 1,
}

// SliceToBytes converts any slice to a byte slice for GPU buffer uploads.
// Uses unsafe pointer operations to create a view into the original data.
// WARNING: The returned slice shares memory with the input - do not modify.
//
// Parameters:
//   - data: source slice of any type
//
// Returns:
//   - []byte: byte slice view of the input data, or nil if input is empty
func SliceToBytes[T any](data []T) []byte {
	if len(data) == 0 {
		return nil
	}
	var zero T
	size := unsafe.Sizeof(zero)
	totalBytes := int(size) * len(data)
	return unsafe.Slice((*byte)(unsafe.Pointer(&data[0])), totalBytes)
}

// StructToBytes reinterprets a pointer to a struct as a raw byte slice using unsafe.
// The returned slice has length equal to the struct's size in memory.
//
// Parameters:
//   - v: pointer to the struct to reinterpret
//
// Returns:
//   - []byte: byte slice view of the struct's memory
func StructToBytes[T any](v *T) []byte {
	size := unsafe.Sizeof(*v)
	return unsafe.Slice((*byte)(unsafe.Pointer(v)), int(size))
}

// MatrixStack is a push/pop stack of 4x4 matrices in the style of the fixed-function
// OpenGL matrix modes. The stack always holds at least one matrix (the current one).
type MatrixStack struct {
	stack []mgl32.Mat4
}

// NewMatrixStack creates a MatrixStack whose current matrix is the identity.
//
// Returns:
//   - *MatrixStack: the new stack with depth 1
func NewMatrixStack() *MatrixStack {
	return &MatrixStack{stack: []mgl32.Mat4{mgl32.Ident4()}}
}

// Top returns the current matrix.
func (s *MatrixStack) Top() mgl32.Mat4 {
	return s.stack[len(s.stack)-1]
}

// Depth returns the number of matrices on the stack.
func (s *MatrixStack) Depth() int {
	return len(s.stack)
}

// Load replaces the current matrix.
func (s *MatrixStack) Load(m mgl32.Mat4) {
	s.stack[len(s.stack)-1] = m
}

// LoadIdentity replaces the current matrix with the identity.
func (s *MatrixStack) LoadIdentity() {
	s.Load(mgl32.Ident4())
}

// Mul post-multiplies the current matrix by m (current = current * m).
func (s *MatrixStack) Mul(m mgl32.Mat4) {
	top := len(s.stack) - 1
	s.stack[top] = s.stack[top].Mul4(m)
}

// Translate post-multiplies the current matrix by a translation.
func (s *MatrixStack) Translate(x, y, z float32) {
	s.Mul(mgl32.Translate3D(x, y, z))
}

// Scale post-multiplies the current matrix by a uniform scale.
func (s *MatrixStack) Scale(f float32) {
	s.Mul(mgl32.Scale3D(f, f, f))
}

// Push duplicates the current matrix onto the top of the stack.
func (s *MatrixStack) Push() {
	s.stack = append(s.stack, s.Top())
}

// Pop discards the current matrix, restoring the one below it.
//
// Returns:
//   - error: ErrStackUnderflow if only the base matrix remains
func (s *MatrixStack) Pop() error {
	if len(s.stack) <= 1 {
		return ErrStackUnderflow
	}
	s.stack = s.stack[:len(s.stack)-1]
	return nil
}
