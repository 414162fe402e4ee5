package detection

import (
	"image"

	"github.com/ironsheep/cardsight/internal/imaging"
)

// Label names the emotion a card's dominant color stands for.
type Label string

// Known labels. LabelNone means no pixel matched any range.
const (
	LabelNone  Label = ""
	LabelHappy Label = "happy"
	LabelSad   Label = "sad"
	LabelAngry Label = "angry"
	LabelCalm  Label = "calm"
)

// ColorRange is an inclusive per-channel HSV8 range.
type ColorRange struct {
	Label Label        `json:"label"`
	Low   imaging.HSV8 `json:"low"`
	High  imaging.HSV8 `json:"high"`
}

// Contains reports whether c lies inside the range on all three channels.
func (r ColorRange) Contains(c imaging.HSV8) bool {
	return c.H >= r.Low.H && c.H <= r.High.H &&
		c.S >= r.Low.S && c.S <= r.High.S &&
		c.V >= r.Low.V && c.V <= r.High.V
}

// Palette is an ordered list of ranges. Order breaks ties.
type Palette []ColorRange

// DefaultPalette returns the printed card colors: yellow, blue, red and green.
func DefaultPalette() Palette {
	return Palette{
		{Label: LabelHappy, Low: imaging.HSV8{H: 20, S: 100, V: 100}, High: imaging.HSV8{H: 30, S: 255, V: 255}},
		{Label: LabelSad, Low: imaging.HSV8{H: 100, S: 100, V: 100}, High: imaging.HSV8{H: 130, S: 255, V: 255}},
		{Label: LabelAngry, Low: imaging.HSV8{H: 0, S: 100, V: 100}, High: imaging.HSV8{H: 10, S: 255, V: 255}},
		{Label: LabelCalm, Low: imaging.HSV8{H: 40, S: 100, V: 100}, High: imaging.HSV8{H: 80, S: 255, V: 255}},
	}
}

// Classification is the outcome of classifying one card image.
type Classification struct {
	Label Label `json:"label"`

	// Counts holds the number of matching pixels per palette label.
	Counts map[Label]int `json:"counts"`

	// Winner and RunnerUp are the highest and second-highest counts.
	Winner   int `json:"winner"`
	RunnerUp int `json:"runner_up"`

	// Total is the number of pixels examined.
	Total int `json:"total"`
}

// Classifier names a card by its dominant palette color.
type Classifier struct {
	palette Palette
}

// NewClassifier creates a Classifier. An empty palette selects DefaultPalette.
func NewClassifier(p Palette) *Classifier {
	if len(p) == 0 {
		p = DefaultPalette()
	}
	return &Classifier{palette: p}
}

// Palette returns the ranges in tie-break order.
func (c *Classifier) Palette() Palette { return c.palette }

// Classify counts the pixels of img falling in each palette range and returns
// the label with the most matches. Ties go to the earlier palette entry. If
// no pixel matches any range the label is LabelNone.
func (c *Classifier) Classify(img image.Image) Classification {
	src := imaging.AsNRGBA(img)
	w, h := src.Rect.Dx(), src.Rect.Dy()

	counts := make([]int, len(c.palette))
	for y := 0; y < h; y++ {
		row := src.Pix[y*src.Stride:]
		for x := 0; x < w; x++ {
			px := row[x*4 : x*4+4]
			if px[3] == 0 {
				continue
			}
			hsv := imaging.ToHSV8(px[0], px[1], px[2])
			for i, r := range c.palette {
				if r.Contains(hsv) {
					counts[i]++
				}
			}
		}
	}

	result := Classification{
		Label:  LabelNone,
		Counts: make(map[Label]int, len(c.palette)),
		Total:  w * h,
	}
	best := -1
	for i, n := range counts {
		result.Counts[c.palette[i].Label] = n
		if n > result.Winner {
			result.RunnerUp = result.Winner
			result.Winner = n
			best = i
		} else if n > result.RunnerUp {
			result.RunnerUp = n
		}
	}
	if best >= 0 {
		result.Label = c.palette[best].Label
	}
	return result
}
