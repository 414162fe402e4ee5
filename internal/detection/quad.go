package detection

import (
	"errors"
	"fmt"
	"image"
	"math"
	"sort"
)

// ErrDegenerateQuad is returned for four points that do not form a usable
// quadrilateral.
var ErrDegenerateQuad = errors.New("degenerate quadrilateral")

// collinearSine is the smallest |sin| of a corner angle that still counts as
// a corner. Smaller angles make the corner's neighbors collinear with it.
const collinearSine = 1e-3

// Quadrilateral is a four-cornered outline in image coordinates.
//
// Corners run clockwise on screen (y down), starting at the corner with the
// smallest x+y.
type Quadrilateral struct {
	Corners [4]Point `json:"corners"`

	// Area is the area enclosed by the corners.
	Area float64 `json:"area"`
}

// NewQuadrilateral orders four points into a Quadrilateral.
//
// Returns ErrDegenerateQuad (wrapped) when fewer or more than four points are
// given, when any three corners are collinear, or when the outline
// self-intersects.
func NewQuadrilateral(pts []Point) (*Quadrilateral, error) {
	if len(pts) != 4 {
		return nil, fmt.Errorf("%w: need 4 points, got %d", ErrDegenerateQuad, len(pts))
	}

	c := Centroid(pts)
	ordered := append([]Point(nil), pts...)
	// Increasing angle is clockwise on screen because y grows downward.
	sort.SliceStable(ordered, func(i, j int) bool {
		return math.Atan2(ordered[i].Y-c.Y, ordered[i].X-c.X) <
			math.Atan2(ordered[j].Y-c.Y, ordered[j].X-c.X)
	})

	first := 0
	for i := 1; i < 4; i++ {
		if ordered[i].X+ordered[i].Y < ordered[first].X+ordered[first].Y {
			first = i
		}
	}

	var q Quadrilateral
	for i := 0; i < 4; i++ {
		q.Corners[i] = ordered[(first+i)%4]
	}

	for i := 0; i < 4; i++ {
		prev := q.Corners[(i+3)%4]
		cur := q.Corners[i]
		next := q.Corners[(i+1)%4]
		a, b := cur.Sub(prev), next.Sub(cur)
		la, lb := math.Hypot(a.X, a.Y), math.Hypot(b.X, b.Y)
		if la == 0 || lb == 0 || math.Abs(cross(a, b))/(la*lb) < collinearSine {
			return nil, fmt.Errorf("%w: corner %d is collinear with its neighbors", ErrDegenerateQuad, i)
		}
	}

	if segmentsIntersect(q.Corners[0], q.Corners[1], q.Corners[2], q.Corners[3]) ||
		segmentsIntersect(q.Corners[1], q.Corners[2], q.Corners[3], q.Corners[0]) {
		return nil, fmt.Errorf("%w: outline self-intersects", ErrDegenerateQuad)
	}

	q.Area = PolygonArea(q.Corners[:])
	return &q, nil
}

// Centroid returns the mean of the four corners.
func (q Quadrilateral) Centroid() Point { return Centroid(q.Corners[:]) }

// Scale multiplies every coordinate by f.
func (q Quadrilateral) Scale(f float64) Quadrilateral {
	out := q
	for i := range out.Corners {
		out.Corners[i].X *= f
		out.Corners[i].Y *= f
	}
	out.Area *= f * f
	return out
}

// IsConvex reports whether every corner turns the same way.
func (q Quadrilateral) IsConvex() bool {
	sign := 0
	for i := 0; i < 4; i++ {
		a := q.Corners[i].Sub(q.Corners[(i+3)%4])
		b := q.Corners[(i+1)%4].Sub(q.Corners[i])
		s := 1
		if cross(a, b) < 0 {
			s = -1
		}
		if sign != 0 && s != sign {
			return false
		}
		sign = s
	}
	return true
}

// AspectRatio returns mean width over mean height, measured along the
// top/bottom and left/right edges.
func (q Quadrilateral) AspectRatio() float64 {
	c := q.Corners
	width := (c[0].Dist(c[1]) + c[3].Dist(c[2])) / 2
	height := (c[0].Dist(c[3]) + c[1].Dist(c[2])) / 2
	if height == 0 {
		return 0
	}
	return width / height
}

// Squareness is 1 for a rectangle and falls toward 0 as corner angles move
// away from 90 degrees (1 minus the mean |cos| of the corner angles).
func (q Quadrilateral) Squareness() float64 {
	var sum float64
	for i := 0; i < 4; i++ {
		a := q.Corners[(i+3)%4].Sub(q.Corners[i])
		b := q.Corners[(i+1)%4].Sub(q.Corners[i])
		la, lb := math.Hypot(a.X, a.Y), math.Hypot(b.X, b.Y)
		if la == 0 || lb == 0 {
			return 0
		}
		sum += math.Abs((a.X*b.X + a.Y*b.Y) / (la * lb))
	}
	return 1 - sum/4
}

// ImagePoints returns the corners rounded to pixel coordinates.
func (q Quadrilateral) ImagePoints() []image.Point {
	out := make([]image.Point, 4)
	for i, c := range q.Corners {
		out[i] = c.Image()
	}
	return out
}

// segmentsIntersect reports whether segments p1-p2 and p3-p4 cross.
func segmentsIntersect(p1, p2, p3, p4 Point) bool {
	d1 := cross(p4.Sub(p3), p1.Sub(p3))
	d2 := cross(p4.Sub(p3), p2.Sub(p3))
	d3 := cross(p2.Sub(p1), p3.Sub(p1))
	d4 := cross(p2.Sub(p1), p4.Sub(p1))
	return ((d1 > 0 && d2 < 0) || (d1 < 0 && d2 > 0)) &&
		((d3 > 0 && d4 < 0) || (d3 < 0 && d4 > 0))
}
