package recognizer

import (
	"fmt"
	"math"
	"strings"

	"github.com/ironsheep/cardsight/internal/detection"
)

// DefaultFixedConfidence is reported by the fixed policy.
const DefaultFixedConfidence = 0.95

// Evidence is what a confidence policy may consider.
type Evidence struct {
	Quad           detection.Quadrilateral
	Classification detection.Classification
	Source         Source

	// CardWidth and CardHeight are the canonical card size.
	CardWidth  int
	CardHeight int
}

// ConfidencePolicy scores a detection in [0, 1].
type ConfidencePolicy interface {
	Name() string
	Confidence(e Evidence) float64
}

// FixedConfidence reports the same value for every detection.
type FixedConfidence struct {
	Value float64
}

func (FixedConfidence) Name() string { return "fixed" }

func (p FixedConfidence) Confidence(Evidence) float64 { return clamp01(p.Value) }

// MarginConfidence scores by how clearly the winning colour beat the
// runner-up: (winner - runnerUp) / winner. Caption matches without colour
// support score 0.
type MarginConfidence struct{}

func (MarginConfidence) Name() string { return "margin" }

func (MarginConfidence) Confidence(e Evidence) float64 {
	c := e.Classification
	if c.Winner == 0 {
		return 0
	}
	return clamp01(float64(c.Winner-c.RunnerUp) / float64(c.Winner))
}

// GeometryConfidence scores by how card-like the outline is: agreement of
// its aspect ratio with the canonical card times corner squareness.
type GeometryConfidence struct{}

func (GeometryConfidence) Name() string { return "geometry" }

func (GeometryConfidence) Confidence(e Evidence) float64 {
	if e.CardWidth <= 0 || e.CardHeight <= 0 {
		return 0
	}
	want := float64(e.CardWidth) / float64(e.CardHeight)
	got := e.Quad.AspectRatio()
	if got <= 0 {
		return 0
	}
	agreement := math.Min(got, want) / math.Max(got, want)
	return clamp01(agreement * e.Quad.Squareness())
}

// ParseConfidencePolicy returns the named policy. fixed is used by the
// "fixed" policy; values outside (0, 1] select DefaultFixedConfidence.
func ParseConfidencePolicy(name string, fixed float64) (ConfidencePolicy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "fixed":
		if fixed <= 0 || fixed > 1 {
			fixed = DefaultFixedConfidence
		}
		return FixedConfidence{Value: fixed}, nil
	case "margin":
		return MarginConfidence{}, nil
	case "geometry":
		return GeometryConfidence{}, nil
	default:
		return nil, fmt.Errorf("unknown confidence policy %q (want fixed, margin or geometry)", name)
	}
}

func clamp01(v float64) float64 {
	switch {
	case math.IsNaN(v), v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}
