package detection

import (
	"image"
)

// Contour is the traced outer boundary of one connected foreground region.
type Contour struct {
	// Points are boundary pixels in clockwise order, starting at the region's
	// top-left-most pixel. The closing point is not repeated.
	Points []image.Point

	// Pixels is the number of foreground pixels in the region.
	Pixels int
}

// moore lists the 8 neighbors clockwise on screen, starting west.
var moore = [8]image.Point{
	{-1, 0}, {-1, -1}, {0, -1}, {1, -1},
	{1, 0}, {1, 1}, {0, 1}, {-1, 1},
}

// mooreIndex maps a neighbor offset (dx+1, dy+1) to its index in moore.
var mooreIndex = [3][3]int{
	// dy = -1, 0, 1 for each dx
	{1, 0, 7}, // dx = -1
	{2, -1, 6}, // dx = 0
	{3, 4, 5}, // dx = 1
}

// binaryImage is a read-only view of a thresholded image.
type binaryImage struct {
	w, h int
	pix  []bool
}

func newBinaryImage(bin *image.Gray) *binaryImage {
	b := bin.Bounds()
	w, h := b.Dx(), b.Dy()
	pix := make([]bool, w*h)
	for y := 0; y < h; y++ {
		row := bin.Pix[bin.PixOffset(b.Min.X, b.Min.Y+y):]
		for x := 0; x < w; x++ {
			pix[y*w+x] = row[x] != 0
		}
	}
	return &binaryImage{w: w, h: h, pix: pix}
}

func (b *binaryImage) fg(x, y int) bool {
	return x >= 0 && y >= 0 && x < b.w && y < b.h && b.pix[y*b.w+x]
}

// FindExternalContours traces the outer boundary of every 8-connected
// foreground region of bin that is not enclosed by another region.
//
// Any nonzero pixel is foreground. Regions sitting inside a hole of another
// region are skipped, as are the holes themselves. Contours are returned in
// raster order of their first pixel.
//
// # Algorithm
//
//  1. Flood the background from the image border (4-connected) to find the
//     outside region
//  2. Label foreground regions in raster order (8-connected)
//  3. A region is external when the pixel above its first pixel is outside
//  4. Trace each external region with Moore-neighbor tracing
func FindExternalContours(bin *image.Gray) []Contour {
	img := newBinaryImage(bin)
	w, h := img.w, img.h
	if w == 0 || h == 0 {
		return nil
	}

	outside := floodOutside(img)

	labels := make([]int32, w*h)
	var next int32
	var contours []Contour
	var queue []int

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			idx := y*w + x
			if !img.pix[idx] || labels[idx] != 0 {
				continue
			}

			next++
			labels[idx] = next
			queue = append(queue[:0], idx)
			pixels := 0
			for len(queue) > 0 {
				cur := queue[len(queue)-1]
				queue = queue[:len(queue)-1]
				pixels++
				cx, cy := cur%w, cur/w
				for _, d := range moore {
					nx, ny := cx+d.X, cy+d.Y
					if !img.fg(nx, ny) {
						continue
					}
					n := ny*w + nx
					if labels[n] == 0 {
						labels[n] = next
						queue = append(queue, n)
					}
				}
			}

			// (x, y) is the region's first pixel in raster order, so the pixel
			// above it is background.
			if y > 0 && !outside[idx-w] {
				continue
			}

			contours = append(contours, Contour{
				Points: traceBoundary(img, image.Pt(x, y)),
				Pixels: pixels,
			})
		}
	}

	return contours
}

// floodOutside marks background pixels 4-connected to the image border.
func floodOutside(img *binaryImage) []bool {
	w, h := img.w, img.h
	outside := make([]bool, w*h)
	var stack []int

	push := func(x, y int) {
		idx := y*w + x
		if !img.pix[idx] && !outside[idx] {
			outside[idx] = true
			stack = append(stack, idx)
		}
	}

	for x := 0; x < w; x++ {
		push(x, 0)
		push(x, h-1)
	}
	for y := 0; y < h; y++ {
		push(0, y)
		push(w-1, y)
	}

	for len(stack) > 0 {
		idx := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		x, y := idx%w, idx/w
		if x > 0 {
			push(x-1, y)
		}
		if x < w-1 {
			push(x+1, y)
		}
		if y > 0 {
			push(x, y-1)
		}
		if y < h-1 {
			push(x, y+1)
		}
	}
	return outside
}

// traceBoundary walks the outer boundary of the region containing start,
// which must be the region's first pixel in raster order.
//
// The walk stops when it re-enters start heading for the same second pixel it
// took at the beginning (Jacob's stopping criterion).
func traceBoundary(img *binaryImage, start image.Point) []image.Point {
	points := []image.Point{start}

	// Entered from the west: that pixel is background or off-image.
	cur, back := start, start.Add(moore[0])
	var second image.Point
	haveSecond := false

	limit := 4*img.w*img.h + 8
	for i := 0; i < limit; i++ {
		next, nextBack, ok := mooreStep(img, cur, back)
		if !ok {
			// Isolated pixel.
			break
		}
		if cur == start && haveSecond && next == second {
			break
		}
		if !haveSecond {
			second, haveSecond = next, true
		}
		cur, back = next, nextBack
		if cur != start {
			points = append(points, cur)
		}
	}
	return points
}

// mooreStep scans the neighbors of cur clockwise, starting just after back,
// and returns the first foreground neighbor together with the background
// pixel examined right before it.
func mooreStep(img *binaryImage, cur, back image.Point) (image.Point, image.Point, bool) {
	d := back.Sub(cur)
	k0 := mooreIndex[d.X+1][d.Y+1]

	prev := back
	for i := 1; i <= 8; i++ {
		p := cur.Add(moore[(k0+i)%8])
		if img.fg(p.X, p.Y) {
			return p, prev, true
		}
		prev = p
	}
	return image.Point{}, image.Point{}, false
}
