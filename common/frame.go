package common

import (
	"errors"
	"fmt"
)

// PixelFormat describes the channel order of a 3-channel Frame.
type PixelFormat int

const (
	// PixelFormatBGR is the channel order produced by most capture devices.
	PixelFormatBGR PixelFormat = iota

	// PixelFormatRGB is the channel order expected by the landmark detector and the GPU upload.
	PixelFormatRGB
)

// String returns the lower-case name of the format.
func (f PixelFormat) String() string {
	switch f {
	case PixelFormatBGR:
		return "bgr"
	case PixelFormatRGB:
		return "rgb"
	default:
		return fmt.Sprintf("PixelFormat(%d)", int(f))
	}
}

// ErrInvalidFrame is returned when a frame's pixel buffer does not match its dimensions.
var ErrInvalidFrame = errors.New("invalid frame")

// Frame is a dense row-major pixel buffer with 3 bytes per pixel and no alpha.
// Frames are treated as immutable once produced; every transform returns a new Frame.
type Frame struct {
	Width  int
	Height int
	Format PixelFormat
	Pixels []byte
}

// NewFrame wraps pixels as a Frame after validating the buffer size.
//
// Parameters:
//   - width: frame width in pixels
//   - height: frame height in pixels
//   - format: channel order of pixels
//   - pixels: row-major pixel data, width*height*3 bytes
//
// Returns:
//   - *Frame: the frame referencing pixels (not copied)
//   - error: ErrInvalidFrame if the dimensions and buffer disagree
func NewFrame(width, height int, format PixelFormat, pixels []byte) (*Frame, error) {
	f := &Frame{Width: width, Height: height, Format: format, Pixels: pixels}
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return f, nil
}

// Validate checks that the frame has positive dimensions and a buffer of exactly width*height*3 bytes.
func (f *Frame) Validate() error {
	if f.Width <= 0 || f.Height <= 0 {
		return fmt.Errorf("%w: dimensions %dx%d", ErrInvalidFrame, f.Width, f.Height)
	}
	if want := f.Width * f.Height * 3; len(f.Pixels) != want {
		return fmt.Errorf("%w: have %d bytes, want %d", ErrInvalidFrame, len(f.Pixels), want)
	}
	return nil
}

// MirrorHorizontal returns a copy of the frame flipped around its vertical axis,
// so the displayed image behaves like a mirror.
func (f *Frame) MirrorHorizontal() *Frame {
	out := &Frame{Width: f.Width, Height: f.Height, Format: f.Format, Pixels: make([]byte, len(f.Pixels))}
	stride := f.Width * 3
	for y := 0; y < f.Height; y++ {
		row := y * stride
		for x := 0; x < f.Width; x++ {
			src := row + x*3
			dst := row + (f.Width-1-x)*3
			copy(out.Pixels[dst:dst+3], f.Pixels[src:src+3])
		}
	}
	return out
}

// ToRGB returns the frame in RGB channel order. RGB frames are returned as-is.
func (f *Frame) ToRGB() *Frame {
	if f.Format == PixelFormatRGB {
		return f
	}
	out := &Frame{Width: f.Width, Height: f.Height, Format: PixelFormatRGB, Pixels: make([]byte, len(f.Pixels))}
	for i := 0; i+2 < len(f.Pixels); i += 3 {
		out.Pixels[i] = f.Pixels[i+2]
		out.Pixels[i+1] = f.Pixels[i+1]
		out.Pixels[i+2] = f.Pixels[i]
	}
	return out
}

// RGBA expands the frame into an opaque RGBA buffer suitable for an RGBA8 texture upload.
// The destination is reused when it has the right length.
//
// Parameters:
//   - dst: optional buffer to fill (allocated when nil or mis-sized)
//
// Returns:
//   - []byte: width*height*4 bytes in RGBA order
func (f *Frame) RGBA(dst []byte) []byte {
	n := f.Width * f.Height
	if len(dst) != n*4 {
		dst = make([]byte, n*4)
	}
	r, b := 0, 2
	if f.Format == PixelFormatBGR {
		r, b = 2, 0
	}
	for i := 0; i < n; i++ {
		src := f.Pixels[i*3 : i*3+3]
		dst[i*4] = src[r]
		dst[i*4+1] = src[1]
		dst[i*4+2] = src[b]
		dst[i*4+3] = 0xFF
	}
	return dst
}
