package tracking

import (
	"image"
	"math"
)

// Object is one detected vehicle candidate.
type Object struct {
	Box      image.Rectangle
	Centroid image.Point
}

// NewObject derives the centroid as the box centre.
func NewObject(box image.Rectangle) Object {
	return Object{
		Box:      box,
		Centroid: image.Pt(box.Min.X+box.Dx()/2, box.Min.Y+box.Dy()/2),
	}
}

// Path is a vehicle's recent detections, oldest first.
type Path []Object

// Last returns the newest point.
func (p Path) Last() image.Point { return p[len(p)-1].Centroid }

// Predict extrapolates the next centroid linearly from the last two points.
// A one-point path predicts its only point.
func (p Path) Predict() image.Point {
	last := p.Last()
	if len(p) < 2 {
		return last
	}
	prev := p[len(p)-2].Centroid
	return image.Pt(2*last.X-prev.X, 2*last.Y-prev.Y)
}

// AxisWeight scales the squared distance along each axis. A larger weight
// makes movement along that axis cheaper, so a Y weight above 1 favours
// vertically moving traffic.
type AxisWeight struct {
	X float64 `json:"x" toml:"x" yaml:"x"`
	Y float64 `json:"y" toml:"y" yaml:"y"`
}

// DefaultAxisWeight suits a camera looking along the road.
var DefaultAxisWeight = AxisWeight{X: 1, Y: 2}

// Distance returns sqrt(dx²/X + dy²/Y). Non-positive weights count as 1.
func (w AxisWeight) Distance(a, b image.Point) float64 {
	wx, wy := w.X, w.Y
	if wx <= 0 {
		wx = 1
	}
	if wy <= 0 {
		wy = 1
	}
	dx := float64(a.X - b.X)
	dy := float64(a.Y - b.Y)
	return math.Sqrt(dx*dx/wx + dy*dy/wy)
}
