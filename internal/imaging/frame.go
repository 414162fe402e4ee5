package imaging

import (
	"image"
	"image/color"
	"time"

	"github.com/disintegration/imaging"
)

// Frame is an immutable snapshot of a single camera image.
//
// A Frame owns a private copy of its pixels, so the capturer may reuse its own
// buffers as soon as NewFrame returns. Frame implements image.Image and can be
// passed to any function in this module that accepts one.
type Frame struct {
	pix *image.NRGBA

	// Seq is the per-stream sequence number, starting at 1.
	Seq uint64

	// CapturedAt is the time the frame was decoded from the source.
	CapturedAt time.Time
}

// NewFrame copies img into a new Frame.
func NewFrame(img image.Image, seq uint64, capturedAt time.Time) *Frame {
	return &Frame{
		pix:        imaging.Clone(img),
		Seq:        seq,
		CapturedAt: capturedAt,
	}
}

// ColorModel implements image.Image.
func (f *Frame) ColorModel() color.Model { return color.NRGBAModel }

// Bounds implements image.Image.
func (f *Frame) Bounds() image.Rectangle { return f.pix.Bounds() }

// At implements image.Image.
func (f *Frame) At(x, y int) color.Color { return f.pix.At(x, y) }

// Width returns the frame width in pixels.
func (f *Frame) Width() int { return f.pix.Bounds().Dx() }

// Height returns the frame height in pixels.
func (f *Frame) Height() int { return f.pix.Bounds().Dy() }

// AsNRGBA returns img as an *image.NRGBA with its origin at (0,0).
//
// Frames and zero-origin NRGBA images are returned without copying; callers
// must treat the result as read-only. Any other image is cloned.
func AsNRGBA(img image.Image) *image.NRGBA {
	switch v := img.(type) {
	case *Frame:
		return v.pix
	case *image.NRGBA:
		if v.Rect.Min == (image.Point{}) {
			return v
		}
	}
	return imaging.Clone(img)
}
