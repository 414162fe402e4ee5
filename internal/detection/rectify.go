package detection

import (
	"errors"
	"fmt"
	"image"
	"math"

	"github.com/ironsheep/cardsight/internal/imaging"
)

// Canonical card size: portrait, matching the physical card's proportions.
const (
	DefaultCardWidth  = 300
	DefaultCardHeight = 400
)

// ErrSingularTransform is returned when the corners do not define a
// perspective transform.
var ErrSingularTransform = errors.New("singular perspective transform")

// Rectifier warps a quadrilateral region to an upright card image.
type Rectifier struct {
	Width  int
	Height int
}

// NewRectifier creates a Rectifier for the given output size. Non-positive
// sizes fall back to the canonical 300x400.
func NewRectifier(width, height int) *Rectifier {
	if width <= 0 {
		width = DefaultCardWidth
	}
	if height <= 0 {
		height = DefaultCardHeight
	}
	return &Rectifier{Width: width, Height: height}
}

// CanonicalCorners returns the destination corners (0,0), (W,0), (W,H), (0,H).
func (r *Rectifier) CanonicalCorners() [4]Point {
	w, h := float64(r.Width), float64(r.Height)
	return [4]Point{{0, 0}, {w, 0}, {w, h}, {0, h}}
}

// Rectify resamples the region of img enclosed by q into a Width x Height
// image. Corner i of q maps to canonical corner i.
//
// Each output pixel (x, y) is mapped through the inverse homography and
// bilinearly sampled from img. Source samples outside img contribute
// transparent black. Rectifying an image with its own canonical corners
// returns an identical copy.
func (r *Rectifier) Rectify(img image.Image, q Quadrilateral) (*image.NRGBA, error) {
	hm, err := solveHomography(r.CanonicalCorners(), q.Corners)
	if err != nil {
		return nil, err
	}

	src := imaging.AsNRGBA(img)
	out := image.NewNRGBA(image.Rect(0, 0, r.Width, r.Height))

	for y := 0; y < r.Height; y++ {
		for x := 0; x < r.Width; x++ {
			fx, fy := float64(x), float64(y)
			den := hm[6]*fx + hm[7]*fy + 1
			if den == 0 {
				continue
			}
			sx := (hm[0]*fx + hm[1]*fy + hm[2]) / den
			sy := (hm[3]*fx + hm[4]*fy + hm[5]) / den
			sampleBilinear(src, sx, sy, out.Pix[out.PixOffset(x, y):out.PixOffset(x, y)+4])
		}
	}
	return out, nil
}

// sampleBilinear writes the interpolated NRGBA value at (sx, sy) into dst.
func sampleBilinear(src *image.NRGBA, sx, sy float64, dst []uint8) {
	x0 := int(math.Floor(sx))
	y0 := int(math.Floor(sy))
	fx := sx - float64(x0)
	fy := sy - float64(y0)

	w := src.Rect.Dx()
	h := src.Rect.Dy()

	var acc [4]float64
	taps := [4]struct {
		x, y int
		wt   float64
	}{
		{x0, y0, (1 - fx) * (1 - fy)},
		{x0 + 1, y0, fx * (1 - fy)},
		{x0, y0 + 1, (1 - fx) * fy},
		{x0 + 1, y0 + 1, fx * fy},
	}
	for _, t := range taps {
		if t.wt == 0 || t.x < 0 || t.y < 0 || t.x >= w || t.y >= h {
			continue
		}
		off := t.y*src.Stride + t.x*4
		for c := 0; c < 4; c++ {
			acc[c] += float64(src.Pix[off+c]) * t.wt
		}
	}
	for c := 0; c < 4; c++ {
		v := math.Round(acc[c])
		if v > 255 {
			v = 255
		}
		dst[c] = uint8(v)
	}
}

// solveHomography returns h0..h7 of the projective map taking each from[i]
// to to[i]:
//
//	x' = (h0 x + h1 y + h2) / (h6 x + h7 y + 1)
//	y' = (h3 x + h4 y + h5) / (h6 x + h7 y + 1)
func solveHomography(from, to [4]Point) ([8]float64, error) {
	var a [8][9]float64
	for i := 0; i < 4; i++ {
		u, v := from[i].X, from[i].Y
		x, y := to[i].X, to[i].Y
		a[2*i] = [9]float64{u, v, 1, 0, 0, 0, -u * x, -v * x, x}
		a[2*i+1] = [9]float64{0, 0, 0, u, v, 1, -u * y, -v * y, y}
	}

	var scale float64
	for i := range a {
		for _, v := range a[i] {
			scale = math.Max(scale, math.Abs(v))
		}
	}
	tol := 1e-9 * scale

	// Gaussian elimination with partial pivoting.
	for col := 0; col < 8; col++ {
		pivot := col
		for row := col + 1; row < 8; row++ {
			if math.Abs(a[row][col]) > math.Abs(a[pivot][col]) {
				pivot = row
			}
		}
		if math.Abs(a[pivot][col]) <= tol {
			return [8]float64{}, fmt.Errorf("%w: corners %v", ErrSingularTransform, to)
		}
		a[col], a[pivot] = a[pivot], a[col]

		for row := 0; row < 8; row++ {
			if row == col {
				continue
			}
			f := a[row][col] / a[col][col]
			if f == 0 {
				continue
			}
			for k := col; k < 9; k++ {
				a[row][k] -= f * a[col][k]
			}
		}
	}

	var h [8]float64
	for i := 0; i < 8; i++ {
		h[i] = a[i][8] / a[i][i]
	}
	return h, nil
}
