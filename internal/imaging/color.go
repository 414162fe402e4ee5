package imaging

import (
	"fmt"
	"image"
	"math"

	"github.com/lucasb-eyer/go-colorful"
)

// RGBColor represents an RGB color with 8-bit components.
type RGBColor struct {
	R uint8 `json:"r"` // Red component (0-255)
	G uint8 `json:"g"` // Green component (0-255)
	B uint8 `json:"b"` // Blue component (0-255)
}

// HSV8 is a color in 8-bit HSV space.
//
// Hue is stored in halved degrees so that it fits a byte:
//   - H: 0-179 (0=red, 30=yellow, 60=green, 120=blue)
//   - S: 0-255 (0=gray, 255=vivid)
//   - V: 0-255 (0=black, 255=full brightness)
type HSV8 struct {
	H uint8 `json:"h"`
	S uint8 `json:"s"`
	V uint8 `json:"v"`
}

// ToHSV8 converts 8-bit RGB components to HSV8.
func ToHSV8(r, g, b uint8) HSV8 {
	c := colorful.Color{
		R: float64(r) / 255.0,
		G: float64(g) / 255.0,
		B: float64(b) / 255.0,
	}
	h, s, v := c.Hsv()

	hue := int(math.Round(h / 2))
	if hue >= 180 {
		hue -= 180
	}
	return HSV8{
		H: uint8(hue),
		S: uint8(math.Round(s * 255)),
		V: uint8(math.Round(v * 255)),
	}
}

// ColorResult contains a sampled color in the representations used when
// tuning the classifier palette.
type ColorResult struct {
	Hex string   `json:"hex"` // Hex format "#rrggbb"
	RGB RGBColor `json:"rgb"` // RGB components
	HSV HSV8     `json:"hsv"` // 8-bit HSV, comparable with palette ranges
}

// SampleColor extracts the color value at a specific pixel coordinate.
//
// Parameters:
//   - img: The source image to sample from.
//   - x: X coordinate (0-based, 0 = leftmost pixel).
//   - y: Y coordinate (0-based, 0 = topmost pixel).
//
// Returns:
//   - *ColorResult: The color at (x, y) as hex, RGB and HSV8.
//   - error: Non-nil if coordinates are outside the image bounds.
func SampleColor(img image.Image, x, y int) (*ColorResult, error) {
	bounds := img.Bounds()
	px, py := bounds.Min.X+x, bounds.Min.Y+y
	if px < bounds.Min.X || px >= bounds.Max.X || py < bounds.Min.Y || py >= bounds.Max.Y {
		return nil, fmt.Errorf("coordinates (%d,%d) outside image bounds", x, y)
	}

	c, _ := colorful.MakeColor(img.At(px, py))
	r8, g8, b8 := c.RGB255()

	return &ColorResult{
		Hex: c.Hex(),
		RGB: RGBColor{R: r8, G: g8, B: b8},
		HSV: ToHSV8(r8, g8, b8),
	}, nil
}
