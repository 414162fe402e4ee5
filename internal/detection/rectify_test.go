package detection

import (
	"errors"
	"image"
	"image/color"
	"testing"
)

func TestRectify_IdentityIsIdempotent(t *testing.T) {
	src := image.NewNRGBA(image.Rect(0, 0, 300, 400))
	for y := 0; y < 400; y++ {
		for x := 0; x < 300; x++ {
			src.SetNRGBA(x, y, color.NRGBA{uint8(x), uint8(y), uint8(x ^ y), 255})
		}
	}

	r := NewRectifier(0, 0)
	out, err := r.Rectify(src, Quadrilateral{Corners: r.CanonicalCorners()})
	if err != nil {
		t.Fatalf("Rectify failed: %v", err)
	}

	if out.Bounds() != src.Bounds() {
		t.Fatalf("bounds: got %v, want %v", out.Bounds(), src.Bounds())
	}
	for y := 0; y < 400; y++ {
		for x := 0; x < 300; x++ {
			if out.NRGBAAt(x, y) != src.NRGBAAt(x, y) {
				t.Fatalf("pixel (%d,%d): got %+v, want %+v", x, y, out.NRGBAAt(x, y), src.NRGBAAt(x, y))
			}
		}
	}
}

func TestRectify_ExtractsRegion(t *testing.T) {
	img := newCanvas(640, 480, black)
	fillRect(img, 100, 50, 249, 249, blue)

	q, err := NewQuadrilateral([]Point{{100, 50}, {250, 50}, {250, 250}, {100, 250}})
	if err != nil {
		t.Fatal(err)
	}

	out, err := NewRectifier(75, 100).Rectify(img, *q)
	if err != nil {
		t.Fatalf("Rectify failed: %v", err)
	}
	if out.Bounds().Dx() != 75 || out.Bounds().Dy() != 100 {
		t.Fatalf("size: got %v, want 75x100", out.Bounds().Size())
	}

	for _, p := range []image.Point{{0, 0}, {37, 50}, {70, 95}} {
		c := out.NRGBAAt(p.X, p.Y)
		if c.B < 250 || c.R > 5 || c.G > 5 {
			t.Errorf("pixel %v should be blue, got %+v", p, c)
		}
	}
}

func TestRectify_PerspectiveCorners(t *testing.T) {
	// Four colored dots at the corners of a trapezoid must land at the
	// matching corners of the output.
	img := newCanvas(400, 400, black)
	corners := []Point{{120, 50}, {280, 50}, {350, 350}, {50, 350}}
	colors := []color.RGBA{red, green, blue, yellow}
	for i, c := range corners {
		fillRect(img, int(c.X)-3, int(c.Y)-3, int(c.X)+3, int(c.Y)+3, colors[i])
	}

	q, err := NewQuadrilateral(corners)
	if err != nil {
		t.Fatal(err)
	}
	out, err := NewRectifier(300, 400).Rectify(img, *q)
	if err != nil {
		t.Fatalf("Rectify failed: %v", err)
	}

	samples := []image.Point{{1, 1}, {298, 1}, {298, 398}, {1, 398}}
	for i, p := range samples {
		got := out.NRGBAAt(p.X, p.Y)
		want := colors[i]
		if absDiff(got.R, want.R) > 40 || absDiff(got.G, want.G) > 40 || absDiff(got.B, want.B) > 40 {
			t.Errorf("corner %d at %v: got %+v, want about %+v", i, p, got, want)
		}
	}
}

func TestRectify_OutsideSourceIsTransparent(t *testing.T) {
	img := newCanvas(100, 100, white)
	q := Quadrilateral{Corners: [4]Point{{-100, -100}, {-50, -100}, {-50, -50}, {-100, -50}}}

	out, err := NewRectifier(10, 10).Rectify(img, q)
	if err != nil {
		t.Fatalf("Rectify failed: %v", err)
	}
	if c := out.NRGBAAt(5, 5); c != (color.NRGBA{}) {
		t.Errorf("expected transparent black, got %+v", c)
	}
}

func TestRectify_Degenerate(t *testing.T) {
	img := newCanvas(100, 100, white)
	q := Quadrilateral{Corners: [4]Point{{10, 10}, {10, 10}, {10, 10}, {10, 10}}}

	_, err := NewRectifier(30, 40).Rectify(img, q)
	if !errors.Is(err, ErrSingularTransform) {
		t.Errorf("expected ErrSingularTransform, got %v", err)
	}
}

func TestSolveHomography_MapsCorners(t *testing.T) {
	from := [4]Point{{0, 0}, {300, 0}, {300, 400}, {0, 400}}
	to := [4]Point{{12, 30}, {290, 8}, {310, 420}, {-5, 380}}

	h, err := solveHomography(from, to)
	if err != nil {
		t.Fatal(err)
	}
	for i := range from {
		u, v := from[i].X, from[i].Y
		den := h[6]*u + h[7]*v + 1
		x := (h[0]*u + h[1]*v + h[2]) / den
		y := (h[3]*u + h[4]*v + h[5]) / den
		if Pt(x, y).Dist(to[i]) > 1e-6 {
			t.Errorf("corner %d maps to (%v,%v), want %v", i, x, y, to[i])
		}
	}
}

func absDiff(a, b uint8) uint8 {
	if a > b {
		return a - b
	}
	return b - a
}
