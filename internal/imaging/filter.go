package imaging

import (
	"image"

	"github.com/anthonynsimon/bild/convolution"
	"github.com/anthonynsimon/bild/effect"
	"github.com/disintegration/imaging"
)

// gaussian5x5 is the integer approximation of a 5x5 Gaussian with sigma ≈ 1.4.
// Its entries sum to 273.
var gaussian5x5 = []float64{
	1, 4, 7, 4, 1,
	4, 16, 26, 16, 4,
	7, 26, 41, 26, 7,
	4, 16, 26, 16, 4,
	1, 4, 7, 4, 1,
}

// Grayscale converts img to an 8-bit luminance image with origin (0,0).
func Grayscale(img image.Image) *image.Gray {
	return firstChannel(effect.Grayscale(img))
}

// GaussianBlur smooths a grayscale image with the 5x5 Gaussian kernel.
//
// Border pixels use replicated edge values, so a uniform image is returned
// unchanged.
func GaussianBlur(gray *image.Gray) *image.Gray {
	k := convolution.NewKernel(5, 5)
	copy(k.Matrix, gaussian5x5)

	blurred := convolution.Convolve(gray, k.Normalized(), &convolution.Options{
		Bias:      0,
		Wrap:      false,
		KeepAlpha: true,
	})

	return firstChannel(blurred)
}

// firstChannel copies the red channel of a gray-valued RGBA image into an
// *image.Gray with origin (0,0). bild returns RGBA even for gray results.
func firstChannel(rgba *image.RGBA) *image.Gray {
	bounds := rgba.Bounds()
	out := image.NewGray(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	for y := 0; y < bounds.Dy(); y++ {
		src := rgba.Pix[rgba.PixOffset(bounds.Min.X, bounds.Min.Y+y):]
		dst := out.Pix[y*out.Stride:]
		for x := 0; x < bounds.Dx(); x++ {
			// R, G and B are identical for a gray source.
			dst[x] = src[x*4]
		}
	}
	return out
}

// FitWidth downscales img so that it is at most maxWidth pixels wide.
//
// Returns the image to process and the factor that maps its coordinates back
// to img (1 when no resize happened). A maxWidth of 0 disables resizing.
func FitWidth(img image.Image, maxWidth int) (image.Image, float64) {
	w := img.Bounds().Dx()
	if maxWidth <= 0 || w <= maxWidth {
		return img, 1
	}
	resized := imaging.Resize(img, maxWidth, 0, imaging.Linear)
	return resized, float64(w) / float64(resized.Bounds().Dx())
}
