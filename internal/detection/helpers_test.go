package detection

import (
	"image"
	"image/color"
	"math"
	"testing"
)

var (
	black  = color.RGBA{0, 0, 0, 255}
	white  = color.RGBA{255, 255, 255, 255}
	yellow = color.RGBA{255, 200, 0, 255}
	blue   = color.RGBA{0, 0, 255, 255}
	red    = color.RGBA{255, 0, 0, 255}
	green  = color.RGBA{0, 255, 0, 255}
)

// newCanvas creates a solid color test image
func newCanvas(width, height int, c color.Color) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	fillRect(img, 0, 0, width-1, height-1, c)
	return img
}

// fillRect paints the inclusive rectangle (x1,y1)-(x2,y2)
func fillRect(img *image.RGBA, x1, y1, x2, y2 int, c color.Color) {
	for y := y1; y <= y2; y++ {
		for x := x1; x <= x2; x++ {
			img.Set(x, y, c)
		}
	}
}

// fillPolygon paints every pixel whose centre lies inside the convex polygon
func fillPolygon(img *image.RGBA, pts []Point, c color.Color) {
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			p := Pt(float64(x), float64(y))
			inside := true
			for i := range pts {
				a, bb := pts[i], pts[(i+1)%len(pts)]
				if cross(bb.Sub(a), p.Sub(a)) < 0 {
					inside = false
					break
				}
			}
			if inside {
				img.Set(x, y, c)
			}
		}
	}
}

// assertCornersNear fails unless every corner lies within tol of want.
func assertCornersNear(t *testing.T, got [4]Point, want [4]Point, tol float64) {
	t.Helper()
	for i := range want {
		if d := got[i].Dist(want[i]); d > tol || math.IsNaN(d) {
			t.Errorf("corner %d: got (%.1f,%.1f), want (%.1f,%.1f) ±%.0f", i, got[i].X, got[i].Y, want[i].X, want[i].Y, tol)
		}
	}
}
