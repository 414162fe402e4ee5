package caption

import (
	"fmt"
	"image"
	"strings"

	"github.com/otiai10/gosseract/v2"

	"github.com/ironsheep/cardsight/internal/imaging"
)

// Default caption band, as fractions of the rectified card height.
const (
	DefaultBandTop    = 0.75
	DefaultBandBottom = 1.0
)

const whitelist = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"

// Reader extracts caption text with Tesseract.
type Reader struct {
	// Language is the Tesseract language code, "eng" by default.
	Language string

	// TessdataPrefix overrides the directory holding *.traineddata.
	TessdataPrefix string

	// BandTop and BandBottom select the horizontal strip to read.
	BandTop    float64
	BandBottom float64
}

// NewReader returns a Reader for language with the default caption band.
func NewReader(language string) *Reader {
	if language == "" {
		language = "eng"
	}
	return &Reader{
		Language:   language,
		BandTop:    DefaultBandTop,
		BandBottom: DefaultBandBottom,
	}
}

// ReadCaption returns the text printed in the caption band of card, trimmed
// of surrounding whitespace.
func (r *Reader) ReadCaption(card image.Image) (string, error) {
	band, err := imaging.CropBand(card, r.BandTop, r.BandBottom)
	if err != nil {
		return "", err
	}
	data, err := imaging.PNGBytes(band)
	if err != nil {
		return "", err
	}

	client, err := r.client()
	if err != nil {
		return "", err
	}
	defer client.Close()

	if err := client.SetImageFromBytes(data); err != nil {
		return "", fmt.Errorf("failed to set image: %w", err)
	}

	text, err := client.Text()
	if err != nil {
		return "", fmt.Errorf("OCR failed: %w", err)
	}
	return strings.TrimSpace(text), nil
}

func (r *Reader) client() (*gosseract.Client, error) {
	client := gosseract.NewClient()

	if r.TessdataPrefix != "" {
		if err := client.SetTessdataPrefix(r.TessdataPrefix); err != nil {
			client.Close()
			return nil, fmt.Errorf("failed to set tessdata path: %w", err)
		}
	}
	if err := client.SetLanguage(r.Language); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to set language: %w", err)
	}
	if err := client.SetPageSegMode(gosseract.PSM_SINGLE_LINE); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to set page segmentation mode: %w", err)
	}
	if err := client.SetWhitelist(whitelist); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to set whitelist: %w", err)
	}
	return client, nil
}

// Info describes the OCR backend.
type Info struct {
	Available bool   `json:"available"`
	Version   string `json:"version,omitempty"`
	Backend   string `json:"backend"`
}

// GetInfo reports the linked Tesseract version.
func GetInfo() Info {
	client := gosseract.NewClient()
	defer client.Close()

	v := client.Version()
	return Info{
		Available: v != "",
		Version:   v,
		Backend:   "gosseract",
	}
}
