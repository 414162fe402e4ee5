package imaging

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/png"

	"github.com/disintegration/imaging"
)

// EncodedImage is a PNG image ready to be embedded in a JSON response.
type EncodedImage struct {
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	ImageBase64 string `json:"image_base64"`
	MimeType    string `json:"mime_type"`
}

// EncodePNG scales img by scale (1 keeps the size) and returns it as base64 PNG.
func EncodePNG(img image.Image, scale float64) (*EncodedImage, error) {
	if scale != 1.0 && scale > 0 {
		newWidth := int(float64(img.Bounds().Dx()) * scale)
		newHeight := int(float64(img.Bounds().Dy()) * scale)
		if newWidth < 1 || newHeight < 1 {
			return nil, fmt.Errorf("scale %.3f collapses a %dx%d image", scale, img.Bounds().Dx(), img.Bounds().Dy())
		}
		img = imaging.Resize(img, newWidth, newHeight, imaging.Lanczos)
	}

	data, err := PNGBytes(img)
	if err != nil {
		return nil, err
	}

	return &EncodedImage{
		Width:       img.Bounds().Dx(),
		Height:      img.Bounds().Dy(),
		ImageBase64: base64.StdEncoding.EncodeToString(data),
		MimeType:    "image/png",
	}, nil
}

// PNGBytes encodes img as PNG.
func PNGBytes(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}
	return buf.Bytes(), nil
}

// CropBand extracts a full-width horizontal band of img.
//
// top and bottom are fractions of the image height (0 = top edge, 1 = bottom
// edge). The band of a rectified card below its artwork is where the printed
// caption sits.
func CropBand(img image.Image, top, bottom float64) (*image.NRGBA, error) {
	if top < 0 || bottom > 1 || top >= bottom {
		return nil, fmt.Errorf("invalid band %.2f-%.2f: need 0 <= top < bottom <= 1", top, bottom)
	}
	bounds := img.Bounds()
	h := float64(bounds.Dy())
	y1 := bounds.Min.Y + int(top*h)
	y2 := bounds.Min.Y + int(bottom*h)
	if y2 <= y1 {
		return nil, fmt.Errorf("band %.2f-%.2f is empty for height %d", top, bottom, bounds.Dy())
	}
	return imaging.Crop(img, image.Rect(bounds.Min.X, y1, bounds.Max.X, y2)), nil
}
