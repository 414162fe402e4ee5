package detection

import (
	"math"
	"testing"
)

func TestPolygonArea(t *testing.T) {
	tests := []struct {
		name string
		pts  []Point
		want float64
	}{
		{"square", []Point{{0, 0}, {10, 0}, {10, 10}, {0, 10}}, 100},
		{"counter-clockwise square", []Point{{0, 0}, {0, 10}, {10, 10}, {10, 0}}, 100},
		{"triangle", []Point{{0, 0}, {4, 0}, {0, 3}}, 6},
		{"segment", []Point{{0, 0}, {5, 5}}, 0},
		{"empty", nil, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := PolygonArea(tt.pts); got != tt.want {
				t.Errorf("PolygonArea = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestPerimeter(t *testing.T) {
	if got := Perimeter([]Point{{0, 0}, {3, 0}, {3, 4}}); got != 12 {
		t.Errorf("triangle perimeter: got %v, want 12", got)
	}
	if got := Perimeter([]Point{{1, 1}}); got != 0 {
		t.Errorf("single point perimeter: got %v, want 0", got)
	}
}

func TestCentroid(t *testing.T) {
	c := Centroid([]Point{{0, 0}, {4, 0}, {4, 2}, {0, 2}})
	if c != Pt(2, 1) {
		t.Errorf("got %v, want (2,1)", c)
	}
	if Centroid(nil) != (Point{}) {
		t.Error("empty centroid should be zero")
	}
}

// densify returns the closed outline of pts sampled at every unit step.
func densify(pts []Point) []Point {
	var out []Point
	for i := range pts {
		a, b := pts[i], pts[(i+1)%len(pts)]
		steps := int(math.Ceil(a.Dist(b)))
		for s := 0; s < steps; s++ {
			f := float64(s) / float64(steps)
			out = append(out, Pt(a.X+f*(b.X-a.X), a.Y+f*(b.Y-a.Y)))
		}
	}
	return out
}

func TestApproxPolygon_RectangleOutline(t *testing.T) {
	corners := []Point{{10, 10}, {110, 10}, {110, 60}, {10, 60}}
	dense := densify(corners)

	approx := ApproxPolygon(dense, 0.02*Perimeter(dense))
	if len(approx) != 4 {
		t.Fatalf("expected 4 vertices, got %d: %v", len(approx), approx)
	}
	for i, p := range approx {
		found := false
		for _, c := range corners {
			if p.Dist(c) < 1e-9 {
				found = true
			}
		}
		if !found {
			t.Errorf("vertex %d (%v) is not an original corner", i, p)
		}
	}
}

func TestApproxPolygon_StartMidEdge(t *testing.T) {
	// Rotating the ring so it starts halfway along an edge must not leave a
	// spurious fifth vertex.
	dense := densify([]Point{{0, 0}, {80, 0}, {80, 80}, {0, 80}})
	rotated := append(append([]Point(nil), dense[40:]...), dense[:40]...)

	approx := ApproxPolygon(rotated, 0.02*Perimeter(rotated))
	if len(approx) != 4 {
		t.Errorf("expected 4 vertices, got %d: %v", len(approx), approx)
	}
}

func TestApproxPolygon_NoisyEdgesCollapse(t *testing.T) {
	var noisy []Point
	for i, p := range densify([]Point{{0, 0}, {200, 0}, {200, 150}, {0, 150}}) {
		// +/- 1 pixel jitter along the outline.
		j := float64(i%3 - 1)
		noisy = append(noisy, Pt(p.X+j*0.5, p.Y+j*0.5))
	}
	approx := ApproxPolygon(noisy, 0.02*Perimeter(noisy))
	if len(approx) != 4 {
		t.Errorf("expected 4 vertices from a jittered rectangle, got %d", len(approx))
	}
}

func TestApproxPolygon_Triangle(t *testing.T) {
	approx := ApproxPolygon(densify([]Point{{0, 0}, {100, 0}, {50, 80}}), 5)
	if len(approx) != 3 {
		t.Errorf("expected 3 vertices, got %d", len(approx))
	}
}

func TestApproxPolygon_Degenerate(t *testing.T) {
	same := []Point{{5, 5}, {5, 5}, {5, 5}, {5, 5}}
	if got := ApproxPolygon(same, 1); len(got) != 1 {
		t.Errorf("coincident points: got %v", got)
	}
	short := []Point{{0, 0}, {1, 1}}
	if got := ApproxPolygon(short, 1); len(got) != 2 {
		t.Errorf("short input should be returned as is, got %v", got)
	}
}

func TestSegmentDistance(t *testing.T) {
	tests := []struct {
		name    string
		p, a, b Point
		want    float64
	}{
		{"perpendicular", Pt(5, 3), Pt(0, 0), Pt(10, 0), 3},
		{"beyond end", Pt(13, 4), Pt(0, 0), Pt(10, 0), 5},
		{"zero length", Pt(3, 4), Pt(0, 0), Pt(0, 0), 5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := segmentDistance(tt.p, tt.a, tt.b); math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}
