package mask

import (
	"errors"
	"fmt"
	"sort"
)

// ErrInvalidPolygon is returned for polygons with fewer than three points.
var ErrInvalidPolygon = errors.New("polygon needs at least 3 points")

// Point is an integer pixel coordinate. Coordinates may lie outside the
// frame; they are clipped during rasterisation.
type Point struct {
	X int `json:"x" yaml:"x" toml:"x"`
	Y int `json:"y" yaml:"y" toml:"y"`
}

// Polygon is an ordered, implicitly closed loop of points.
type Polygon []Point

// Validate checks that the polygon has at least three vertices.
func (p Polygon) Validate() error {
	if len(p) < 3 {
		return fmt.Errorf("%w: got %d", ErrInvalidPolygon, len(p))
	}
	return nil
}

// Build rasterises polygons into a width×height mask. A pixel is set when it
// lies inside or on the boundary of any polygon; polygons combine by union.
func Build(width, height int, polygons []Polygon) (*Mask, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("invalid mask size %dx%d", width, height)
	}
	for i, p := range polygons {
		if err := p.Validate(); err != nil {
			return nil, fmt.Errorf("polygon %d: %w", i, err)
		}
	}

	m := New(width, height)
	for _, p := range polygons {
		fillPolygon(m, p)
	}
	return m, nil
}

// crossing is the exact x position num/den (den > 0) where an edge meets a
// scanline.
type crossing struct{ num, den int }

func (c crossing) less(o crossing) bool { return c.num*o.den < o.num*c.den }

// fillPolygon applies the even-odd scanline fill at integer row centres and
// then draws every edge so boundary pixels are always included. Crossings are
// kept as integer fractions so pixels on a slanted edge are classified exactly.
func fillPolygon(m *Mask, p Polygon) {
	minY, maxY := p[0].Y, p[0].Y
	for _, pt := range p[1:] {
		minY = min(minY, pt.Y)
		maxY = max(maxY, pt.Y)
	}
	minY = max(minY, 0)
	maxY = min(maxY, m.Height-1)

	xs := make([]crossing, 0, len(p))
	for y := minY; y <= maxY; y++ {
		xs = xs[:0]
		for i := range p {
			a, b := p[i], p[(i+1)%len(p)]
			if a.Y == b.Y {
				continue
			}
			if a.Y > b.Y {
				a, b = b, a
			}
			// Half-open so a vertex shared by two edges is counted once.
			if y < a.Y || y >= b.Y {
				continue
			}
			den := b.Y - a.Y
			xs = append(xs, crossing{num: a.X*den + (y-a.Y)*(b.X-a.X), den: den})
		}
		sort.Slice(xs, func(i, j int) bool { return xs[i].less(xs[j]) })
		for i := 0; i+1 < len(xs); i += 2 {
			fillSpan(m, y, ceilDiv(xs[i].num, xs[i].den), floorDiv(xs[i+1].num, xs[i+1].den))
		}
	}

	for i := range p {
		drawEdge(m, p[i], p[(i+1)%len(p)])
	}
}

// drawEdge marks the integer points that lie exactly on the segment a-b.
func drawEdge(m *Mask, a, b Point) {
	dx, dy := b.X-a.X, b.Y-a.Y
	g := gcd(abs(dx), abs(dy))
	if g == 0 {
		m.Set(a.X, a.Y, true)
		return
	}
	sx, sy := dx/g, dy/g
	for k := 0; k <= g; k++ {
		m.Set(a.X+k*sx, a.Y+k*sy, true)
	}
}

func gcd(a, b int) int {
	for b != 0 {
		a, b = b, a%b
	}
	return a
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

func floorDiv(n, d int) int {
	q := n / d
	if (n%d != 0) && ((n < 0) != (d < 0)) {
		q--
	}
	return q
}

func ceilDiv(n, d int) int { return -floorDiv(-n, d) }

func fillSpan(m *Mask, y, from, to int) {
	x0 := max(from, 0)
	x1 := min(to, m.Width-1)
	if x0 > x1 {
		return
	}
	row := m.Pix[y*m.Width : (y+1)*m.Width]
	for x := x0; x <= x1; x++ {
		row[x] = On
	}
}
