package imaging

import (
	"image"
)

// AdaptiveThreshold binarizes a grayscale image against its local mean.
//
// A pixel becomes foreground (255) when it is darker than the mean of the
// blockSize x blockSize window centred on it by more than offset; every other
// pixel becomes background (0). Windows are clipped at the image border, so
// uniform regions are always background whatever their brightness.
//
// With this polarity the dark side of every strong edge turns into a thin
// foreground band, which gives a bright card on a darker surround a closed
// outline just outside its physical edge.
//
// # Algorithm
//
// Window sums come from a summed-area table, so the cost is O(width*height)
// regardless of blockSize.
func AdaptiveThreshold(gray *image.Gray, blockSize int, offset float64) *image.Gray {
	bounds := gray.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	out := image.NewGray(image.Rect(0, 0, w, h))
	if w == 0 || h == 0 {
		return out
	}
	if blockSize < 3 {
		blockSize = 3
	}
	radius := blockSize / 2

	// integral[(y+1)*(w+1)+(x+1)] holds the sum of all pixels above and left
	// of (x,y), inclusive.
	stride := w + 1
	integral := make([]uint64, stride*(h+1))
	for y := 0; y < h; y++ {
		row := gray.Pix[gray.PixOffset(bounds.Min.X, bounds.Min.Y+y):]
		var rowSum uint64
		for x := 0; x < w; x++ {
			rowSum += uint64(row[x])
			integral[(y+1)*stride+x+1] = integral[y*stride+x+1] + rowSum
		}
	}

	for y := 0; y < h; y++ {
		y0 := clamp(y-radius, 0, h-1)
		y1 := clamp(y+radius, 0, h-1) + 1
		row := gray.Pix[gray.PixOffset(bounds.Min.X, bounds.Min.Y+y):]
		dst := out.Pix[y*out.Stride:]
		for x := 0; x < w; x++ {
			x0 := clamp(x-radius, 0, w-1)
			x1 := clamp(x+radius, 0, w-1) + 1

			sum := integral[y1*stride+x1] - integral[y0*stride+x1] -
				integral[y1*stride+x0] + integral[y0*stride+x0]
			mean := float64(sum) / float64((x1-x0)*(y1-y0))

			if float64(row[x]) < mean-offset {
				dst[x] = 255
			}
		}
	}
	return out
}

// clamp constrains an integer value to the range [min, max].
func clamp(val, min, max int) int {
	if val < min {
		return min
	}
	if val > max {
		return max
	}
	return val
}
