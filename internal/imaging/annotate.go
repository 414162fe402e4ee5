package imaging

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"strconv"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// Overlay describes a closed outline to draw on top of an image.
type Overlay struct {
	// Points are the outline vertices in drawing order. The last vertex is
	// joined back to the first.
	Points []image.Point

	// Labels are drawn next to the matching vertex. Missing or empty labels
	// are skipped.
	Labels []string

	// Caption is drawn above the first vertex when non-empty.
	Caption string

	// ColorHex is the outline color as "#RRGGBB" or "#RRGGBBAA". Invalid or
	// empty values fall back to opaque green.
	ColorHex string

	// Thickness is the outline width in pixels. Values below 1 are treated as 1.
	Thickness int
}

// Annotate returns a copy of img with the overlay drawn on it.
func Annotate(img image.Image, ov Overlay) *image.RGBA {
	bounds := img.Bounds()
	result := image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(result, result.Bounds(), img, bounds.Min, draw.Src)

	lineColor, err := parseHexColor(ov.ColorHex)
	if err != nil {
		lineColor = color.RGBA{0, 255, 0, 255}
	}
	thickness := ov.Thickness
	if thickness < 1 {
		thickness = 1
	}

	n := len(ov.Points)
	for i := 0; i < n && n > 1; i++ {
		drawLine(result, ov.Points[i], ov.Points[(i+1)%n], thickness, lineColor)
	}

	labelColor := color.RGBA{255, 255, 255, 255}
	bgColor := color.RGBA{0, 0, 0, 180}
	for i, p := range ov.Points {
		if i < len(ov.Labels) && ov.Labels[i] != "" {
			drawLabel(result, p.X+3, p.Y+3, ov.Labels[i], labelColor, bgColor)
		}
	}
	if ov.Caption != "" && n > 0 {
		drawLabel(result, ov.Points[0].X, ov.Points[0].Y-16, ov.Caption, labelColor, bgColor)
	}

	return result
}

// drawLine rasterizes a segment with Bresenham's algorithm, stamping a square
// brush of the given thickness at every step.
func drawLine(img *image.RGBA, a, b image.Point, thickness int, c color.RGBA) {
	dx := abs(b.X - a.X)
	dy := -abs(b.Y - a.Y)
	sx, sy := 1, 1
	if a.X > b.X {
		sx = -1
	}
	if a.Y > b.Y {
		sy = -1
	}
	errAcc := dx + dy
	x, y := a.X, a.Y
	half := thickness / 2

	for {
		for oy := -half; oy < thickness-half; oy++ {
			for ox := -half; ox < thickness-half; ox++ {
				if (image.Point{x + ox, y + oy}).In(img.Rect) {
					img.SetRGBA(x+ox, y+oy, c)
				}
			}
		}
		if x == b.X && y == b.Y {
			return
		}
		e2 := 2 * errAcc
		if e2 >= dy {
			errAcc += dy
			x += sx
		}
		if e2 <= dx {
			errAcc += dx
			y += sy
		}
	}
}

// drawLabel draws text with a translucent background box whose top-left
// corner is at (x, y).
func drawLabel(img *image.RGBA, x, y int, text string, fg, bg color.RGBA) {
	face := basicfont.Face7x13
	width := font.MeasureString(face, text).Ceil()
	height := face.Metrics().Height.Ceil()

	box := image.Rect(x-1, y-1, x+width+1, y+height+1).Intersect(img.Rect)
	draw.Draw(img, box, image.NewUniform(bg), image.Point{}, draw.Over)

	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(fg),
		Face: face,
		Dot:  fixed.Point26_6{X: fixed.I(x), Y: fixed.I(y + face.Metrics().Ascent.Ceil())},
	}
	d.DrawString(text)
}

// parseHexColor parses a hex color string like "#FF0000" or "#FF000080"
func parseHexColor(hex string) (color.RGBA, error) {
	if len(hex) == 0 {
		return color.RGBA{}, fmt.Errorf("empty color string")
	}
	if hex[0] == '#' {
		hex = hex[1:]
	}

	val, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return color.RGBA{}, err
	}

	switch len(hex) {
	case 6:
		return color.RGBA{R: uint8(val >> 16), G: uint8(val >> 8), B: uint8(val), A: 255}, nil
	case 8:
		return color.RGBA{R: uint8(val >> 24), G: uint8(val >> 16), B: uint8(val >> 8), A: uint8(val)}, nil
	default:
		return color.RGBA{}, fmt.Errorf("invalid hex color length")
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
