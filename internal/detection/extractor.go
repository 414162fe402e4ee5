package detection

import (
	"image"
	"sort"

	"github.com/ironsheep/cardsight/internal/imaging"
)

// ExtractorOptions tunes card outline extraction. Zero fields take the value
// from DefaultExtractorOptions.
type ExtractorOptions struct {
	// BlockSize is the side of the adaptive threshold window. Must be odd.
	BlockSize int

	// Offset is subtracted from the local mean before thresholding. Zero
	// selects the default; configuration rejects it.
	Offset float64

	// EpsilonFraction is the Douglas-Peucker tolerance as a fraction of the
	// contour perimeter.
	EpsilonFraction float64

	// MinAreaFraction is the smallest accepted contour area as a fraction of
	// the frame area.
	MinAreaFraction float64

	// ProcessingWidth downscales wider frames to this width before extraction.
	// Corners are always reported in full-frame coordinates. 0 disables it.
	ProcessingWidth int
}

// DefaultExtractorOptions returns the standard tuning: block 11, offset 2,
// epsilon 2% of perimeter, minimum area 1% of the frame.
func DefaultExtractorOptions() ExtractorOptions {
	return ExtractorOptions{
		BlockSize:       11,
		Offset:          2,
		EpsilonFraction: 0.02,
		MinAreaFraction: 0.01,
	}
}

// Candidate is a four-sided contour that passed every extraction filter.
type Candidate struct {
	Quad Quadrilateral `json:"quad"`

	// ContourArea is the area enclosed by the traced contour before
	// simplification, in full-frame pixels. Candidates are ranked by it.
	ContourArea float64 `json:"contour_area"`

	// CenterDistance is the distance from the quad centroid to the frame centre.
	CenterDistance float64 `json:"center_distance"`

	// Order is the contour's position in raster scan order.
	Order int `json:"order"`
}

// Extractor finds card outlines in frames.
type Extractor struct {
	opts ExtractorOptions
}

// NewExtractor creates an Extractor, filling zero options with defaults.
func NewExtractor(opts ExtractorOptions) *Extractor {
	def := DefaultExtractorOptions()
	if opts.BlockSize <= 0 {
		opts.BlockSize = def.BlockSize
	}
	if opts.Offset == 0 {
		opts.Offset = def.Offset
	}
	if opts.EpsilonFraction <= 0 {
		opts.EpsilonFraction = def.EpsilonFraction
	}
	if opts.MinAreaFraction <= 0 {
		opts.MinAreaFraction = def.MinAreaFraction
	}
	return &Extractor{opts: opts}
}

// Options returns the effective options.
func (e *Extractor) Options() ExtractorOptions { return e.opts }

// Extract returns the most prominent card-like quadrilateral in img, or nil
// when there is none.
//
// The winner is the candidate with the largest contour area. Equal areas go
// to the candidate closest to the frame centre, then to the earlier one in
// scan order. A nil result is the normal outcome for frames without a card.
func (e *Extractor) Extract(img image.Image) *Quadrilateral {
	candidates := e.Candidates(img)
	if len(candidates) == 0 {
		return nil
	}
	q := candidates[0].Quad
	return &q
}

// Candidates returns every quadrilateral that passed the filters, best first.
func (e *Extractor) Candidates(img image.Image) []Candidate {
	work, scale := imaging.FitWidth(img, e.opts.ProcessingWidth)
	bounds := work.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w == 0 || h == 0 {
		return nil
	}

	gray := imaging.GaussianBlur(imaging.Grayscale(work))
	bin := imaging.AdaptiveThreshold(gray, e.opts.BlockSize, e.opts.Offset)

	minArea := e.opts.MinAreaFraction * float64(w*h)
	center := Pt(float64(w)/2, float64(h)/2)

	var candidates []Candidate
	for order, contour := range FindExternalContours(bin) {
		if contour.Pixels < 4 {
			continue
		}
		pts := toPoints(contour.Points)
		area := PolygonArea(pts)
		if area < minArea {
			continue
		}

		approx := ApproxPolygon(pts, e.opts.EpsilonFraction*Perimeter(pts))
		quad, ok := cardQuad(approx, minArea)
		if !ok {
			continue
		}

		candidates = append(candidates, Candidate{
			Quad:           quad.Scale(scale),
			ContourArea:    area * scale * scale,
			CenterDistance: quad.Centroid().Dist(center) * scale,
			Order:          order,
		})
	}

	rankCandidates(candidates)
	return candidates
}

// cardQuad accepts a simplified contour as a card outline when it has four
// corners, is convex, and covers at least minArea.
func cardQuad(approx []Point, minArea float64) (*Quadrilateral, bool) {
	if len(approx) != 4 {
		return nil, false
	}
	quad, err := NewQuadrilateral(approx)
	if err != nil || quad.Area < minArea || !quad.IsConvex() {
		return nil, false
	}
	return quad, true
}

// rankCandidates sorts by contour area (largest first), then distance to the
// frame centre, then scan order.
func rankCandidates(candidates []Candidate) {
	sort.SliceStable(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if a.ContourArea != b.ContourArea {
			return a.ContourArea > b.ContourArea
		}
		if a.CenterDistance != b.CenterDistance {
			return a.CenterDistance < b.CenterDistance
		}
		return a.Order < b.Order
	})
}
