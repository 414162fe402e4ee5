package detection

import (
	"image"
	"math"
)

// Point is a 2D coordinate in pixel space. Sub-pixel values are allowed.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Pt is shorthand for Point{X: x, Y: y}.
func Pt(x, y float64) Point { return Point{X: x, Y: y} }

// Sub returns p-q.
func (p Point) Sub(q Point) Point { return Point{p.X - q.X, p.Y - q.Y} }

// Dist returns the Euclidean distance between p and q.
func (p Point) Dist(q Point) float64 { return math.Hypot(p.X-q.X, p.Y-q.Y) }

// Image rounds p to the nearest pixel.
func (p Point) Image() image.Point {
	return image.Pt(int(math.Round(p.X)), int(math.Round(p.Y)))
}

func cross(a, b Point) float64 { return a.X*b.Y - a.Y*b.X }

// toPoints converts pixel coordinates to Points.
func toPoints(pts []image.Point) []Point {
	out := make([]Point, len(pts))
	for i, p := range pts {
		out[i] = Point{float64(p.X), float64(p.Y)}
	}
	return out
}

// PolygonArea returns the unsigned area enclosed by a closed polygon
// (shoelace formula). Fewer than 3 points enclose no area.
func PolygonArea(pts []Point) float64 {
	return math.Abs(signedArea(pts))
}

// signedArea is positive for polygons that run clockwise on screen.
func signedArea(pts []Point) float64 {
	n := len(pts)
	if n < 3 {
		return 0
	}
	var sum float64
	for i := 0; i < n; i++ {
		j := (i + 1) % n
		sum += pts[i].X*pts[j].Y - pts[j].X*pts[i].Y
	}
	return sum / 2
}

// Perimeter returns the length of a closed polygon, including the closing
// edge from the last point back to the first.
func Perimeter(pts []Point) float64 {
	n := len(pts)
	if n < 2 {
		return 0
	}
	var sum float64
	for i := 0; i < n; i++ {
		sum += pts[i].Dist(pts[(i+1)%n])
	}
	return sum
}

// Centroid returns the mean of pts.
func Centroid(pts []Point) Point {
	if len(pts) == 0 {
		return Point{}
	}
	var c Point
	for _, p := range pts {
		c.X += p.X
		c.Y += p.Y
	}
	n := float64(len(pts))
	return Point{c.X / n, c.Y / n}
}

// ApproxPolygon simplifies a closed polygon with the Douglas-Peucker
// algorithm. No point of the original lies further than epsilon from the
// result.
//
// # Algorithm
//
//  1. Split the ring at the point furthest from the first point
//  2. Simplify both open halves with Douglas-Peucker
//  3. Join the halves and drop vertices closer than epsilon to the segment
//     joining their neighbors
func ApproxPolygon(pts []Point, epsilon float64) []Point {
	n := len(pts)
	if n <= 3 {
		return append([]Point(nil), pts...)
	}

	far := 0
	var farDist float64
	for i := 1; i < n; i++ {
		if d := pts[0].Dist(pts[i]); d > farDist {
			far, farDist = i, d
		}
	}
	if far == 0 {
		// All points coincide.
		return []Point{pts[0]}
	}

	first := simplifyOpen(pts[:far+1], epsilon)

	tail := make([]Point, 0, n-far+1)
	tail = append(tail, pts[far:]...)
	tail = append(tail, pts[0])
	second := simplifyOpen(tail, epsilon)

	ring := make([]Point, 0, len(first)+len(second))
	ring = append(ring, first...)
	ring = append(ring, second[1:len(second)-1]...)

	return dropCollinear(ring, epsilon)
}

// simplifyOpen runs Douglas-Peucker on an open polyline, always keeping both
// endpoints.
func simplifyOpen(pts []Point, epsilon float64) []Point {
	n := len(pts)
	if n < 3 {
		return append([]Point(nil), pts...)
	}

	keep := make([]bool, n)
	keep[0], keep[n-1] = true, true

	type span struct{ a, b int }
	stack := []span{{0, n - 1}}
	for len(stack) > 0 {
		s := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		idx := -1
		var maxDist float64
		for i := s.a + 1; i < s.b; i++ {
			if d := segmentDistance(pts[i], pts[s.a], pts[s.b]); d > maxDist {
				idx, maxDist = i, d
			}
		}
		if idx >= 0 && maxDist > epsilon {
			keep[idx] = true
			stack = append(stack, span{s.a, idx}, span{idx, s.b})
		}
	}

	out := make([]Point, 0, n)
	for i, k := range keep {
		if k {
			out = append(out, pts[i])
		}
	}
	return out
}

// dropCollinear removes ring vertices lying within epsilon of the segment
// between their neighbors until none is left or only a triangle remains.
func dropCollinear(ring []Point, epsilon float64) []Point {
	changed := true
	for changed && len(ring) > 3 {
		changed = false
		for i := 0; i < len(ring) && len(ring) > 3; i++ {
			prev := ring[(i+len(ring)-1)%len(ring)]
			next := ring[(i+1)%len(ring)]
			if segmentDistance(ring[i], prev, next) < epsilon {
				ring = append(ring[:i], ring[i+1:]...)
				changed = true
				i--
			}
		}
	}
	return ring
}

// segmentDistance returns the distance from p to the segment a-b.
func segmentDistance(p, a, b Point) float64 {
	ab := b.Sub(a)
	lenSq := ab.X*ab.X + ab.Y*ab.Y
	if lenSq == 0 {
		return p.Dist(a)
	}
	t := ((p.X-a.X)*ab.X + (p.Y-a.Y)*ab.Y) / lenSq
	t = math.Max(0, math.Min(1, t))
	return p.Dist(Point{a.X + t*ab.X, a.Y + t*ab.Y})
}
