package imaging

import (
	"bytes"
	"encoding/base64"
	"image"
	"image/color"
	"image/png"
	"testing"
)

func TestEncodePNG(t *testing.T) {
	img := createInMemoryImage(40, 30, color.RGBA{10, 20, 30, 255})

	result, err := EncodePNG(img, 1.0)
	if err != nil {
		t.Fatalf("EncodePNG failed: %v", err)
	}

	if result.Width != 40 || result.Height != 30 {
		t.Errorf("dimensions: got %dx%d, want 40x30", result.Width, result.Height)
	}
	if result.MimeType != "image/png" {
		t.Errorf("MimeType: got %s, want image/png", result.MimeType)
	}

	data, err := base64.StdEncoding.DecodeString(result.ImageBase64)
	if err != nil {
		t.Fatalf("failed to decode base64: %v", err)
	}
	decoded, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("failed to decode png: %v", err)
	}
	r, g, b, _ := decoded.At(5, 5).RGBA()
	if uint8(r>>8) != 10 || uint8(g>>8) != 20 || uint8(b>>8) != 30 {
		t.Errorf("pixel: got (%d,%d,%d), want (10,20,30)", r>>8, g>>8, b>>8)
	}
}

func TestEncodePNG_WithScale(t *testing.T) {
	img := createInMemoryImage(100, 80, color.White)

	tests := []struct {
		scale         float64
		wantW, wantH  int
	}{
		{2.0, 200, 160},
		{0.5, 50, 40},
		{0, 100, 80},
	}

	for _, tt := range tests {
		result, err := EncodePNG(img, tt.scale)
		if err != nil {
			t.Fatalf("EncodePNG(%v) failed: %v", tt.scale, err)
		}
		if result.Width != tt.wantW || result.Height != tt.wantH {
			t.Errorf("scale %v: got %dx%d, want %dx%d", tt.scale, result.Width, result.Height, tt.wantW, tt.wantH)
		}
	}
}

func TestEncodePNG_ScaleCollapses(t *testing.T) {
	img := createInMemoryImage(4, 4, color.White)
	if _, err := EncodePNG(img, 0.01); err == nil {
		t.Error("expected error when scale collapses the image")
	}
}

func TestCropBand(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 300, 400))
	for y := 300; y < 400; y++ {
		for x := 0; x < 300; x++ {
			img.Set(x, y, color.RGBA{255, 0, 0, 255})
		}
	}

	band, err := CropBand(img, 0.75, 1.0)
	if err != nil {
		t.Fatalf("CropBand failed: %v", err)
	}
	if band.Bounds().Dx() != 300 || band.Bounds().Dy() != 100 {
		t.Errorf("band size: got %v, want 300x100", band.Bounds().Size())
	}
	if c := band.NRGBAAt(0, 0); c.R != 255 || c.G != 0 {
		t.Errorf("band should start at the red region, got %+v", c)
	}
}

func TestCropBand_Invalid(t *testing.T) {
	img := createInMemoryImage(10, 10, color.White)

	tests := []struct {
		name        string
		top, bottom float64
	}{
		{"inverted", 0.8, 0.2},
		{"negative top", -0.1, 0.5},
		{"bottom past edge", 0.5, 1.1},
		{"empty", 0.5, 0.5},
		{"rounds to nothing", 0.51, 0.55},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := CropBand(img, tt.top, tt.bottom); err == nil {
				t.Errorf("expected error for band %.2f-%.2f", tt.top, tt.bottom)
			}
		})
	}
}
