package tracking

import (
	"fmt"
	"image"
	"slices"

	"github.com/samber/lo"

	"github.com/banshee-data/traffic.count/internal/mask"
)

// Defaults for CounterConfig.
const (
	DefaultPathSize    = 10
	DefaultMaxDistance = 30.0
	DefaultMaxMissed   = 50
)

// CounterConfig tunes path linking and counting.
type CounterConfig struct {
	PathSize    int        // points kept per path; also the minimum length to count
	MaxDistance float64    // gate on the weighted prediction distance
	Weight      AxisWeight // applied once a path has two points
	MaxMissed   int        // consecutive unmatched frames before a path is dropped; 0 keeps paths forever
}

// DefaultCounterConfig returns the standard counting parameters.
func DefaultCounterConfig() CounterConfig {
	return CounterConfig{
		PathSize:    DefaultPathSize,
		MaxDistance: DefaultMaxDistance,
		Weight:      DefaultAxisWeight,
		MaxMissed:   DefaultMaxMissed,
	}
}

// Validate checks the parameters.
func (c CounterConfig) Validate() error {
	if c.PathSize < 2 {
		return fmt.Errorf("path size must be at least 2, got %d", c.PathSize)
	}
	if c.MaxDistance <= 0 {
		return fmt.Errorf("max distance must be positive, got %v", c.MaxDistance)
	}
	if c.MaxMissed < 0 {
		return fmt.Errorf("max missed must not be negative, got %d", c.MaxMissed)
	}
	return nil
}

// Counts is the running tally. Zones[i] counts vehicles whose crossing point
// lay in zone i; crossings that left the frame only add to Total.
type Counts struct {
	Total int
	Zones []int
}

// Clone returns a copy that shares no memory with c.
func (c Counts) Clone() Counts {
	return Counts{Total: c.Total, Zones: slices.Clone(c.Zones)}
}

// Crossing records one counted vehicle.
type Crossing struct {
	Zone  int // -1 when the vehicle left the frame
	Point image.Point
	Path  Path
}

// Counter keeps paths across frames and counts zone entries.
type Counter struct {
	cfg    CounterConfig
	zones  []*mask.Mask
	paths  []Path
	missed []int // parallel to paths: frames since the path last matched
	counts Counts
}

// NewCounter builds a counter over the given zone masks.
func NewCounter(cfg CounterConfig, zones []*mask.Mask) (*Counter, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Counter{
		cfg:    cfg,
		zones:  zones,
		counts: Counts{Zones: make([]int, len(zones))},
	}, nil
}

// Paths returns the live paths.
func (c *Counter) Paths() []Path { return c.paths }

// Counts returns a snapshot of the tally.
func (c *Counter) Counts() Counts { return c.counts.Clone() }

// ZoneAt returns the index of the first zone containing p. Points outside
// the frame are treated as having left through a zone and report -1 with
// ok true.
func (c *Counter) ZoneAt(p image.Point) (zone int, ok bool) {
	for i, z := range c.zones {
		if !z.In(p.X, p.Y) {
			return -1, true
		}
		if z.At(p.X, p.Y) {
			return i, true
		}
	}
	return -1, false
}

func (c *Counter) inZone(p image.Point) bool {
	_, ok := c.ZoneAt(p)
	return ok
}

// Update links this frame's detections into the paths and returns the
// vehicles counted on this frame.
func (c *Counter) Update(objects []Object) []Crossing {
	c.link(objects)

	var crossed []Crossing
	kept, missed := c.paths[:0], c.missed[:0]
	for i, p := range c.paths {
		if cr, ok := c.crossing(p); ok {
			crossed = append(crossed, cr)
			continue
		}
		// A path that has touched a zone must not be extended further.
		if lo.SomeBy(p, func(o Object) bool { return c.inZone(o.Centroid) }) {
			continue
		}
		if c.cfg.MaxMissed > 0 && c.missed[i] > c.cfg.MaxMissed {
			continue
		}
		kept = append(kept, p)
		missed = append(missed, c.missed[i])
	}
	c.paths, c.missed = kept, missed

	for _, cr := range crossed {
		c.counts.Total++
		if cr.Zone >= 0 {
			c.counts.Zones[cr.Zone]++
		}
	}
	return crossed
}

func (c *Counter) crossing(p Path) (Crossing, bool) {
	if len(p) < 2 || len(p) < c.cfg.PathSize {
		return Crossing{}, false
	}
	prev := p[len(p)-2].Centroid
	cur := p.Last()
	if c.inZone(prev) {
		return Crossing{}, false
	}
	zone, ok := c.ZoneAt(cur)
	if !ok {
		return Crossing{}, false
	}
	return Crossing{Zone: zone, Point: cur, Path: slices.Clone(p)}, true
}

func (c *Counter) link(objects []Object) {
	assign := HungarianAssign(c.costs(objects))
	taken := make([]bool, len(objects))
	for i, j := range assign {
		if j < 0 {
			c.missed[i]++
			continue
		}
		c.paths[i] = append(c.paths[i], objects[j])
		c.missed[i] = 0
		taken[j] = true
	}

	fresh := lo.Filter(objects, func(o Object, j int) bool {
		return !taken[j] && !c.inZone(o.Centroid)
	})
	c.paths = append(c.paths, lo.Map(fresh, func(o Object, _ int) Path { return Path{o} })...)
	c.missed = append(c.missed, make([]int, len(fresh))...)

	for i, p := range c.paths {
		if len(p) > c.cfg.PathSize {
			c.paths[i] = slices.Clone(p[len(p)-c.cfg.PathSize:])
		}
	}
}

// costs builds the path×detection matrix. One-point paths have no heading
// yet and use unweighted distance.
func (c *Counter) costs(objects []Object) [][]float64 {
	return lo.Map(c.paths, func(p Path, _ int) []float64 {
		w := c.cfg.Weight
		if len(p) < 2 {
			w = AxisWeight{X: 1, Y: 1}
		}
		next := p.Predict()
		return lo.Map(objects, func(o Object, _ int) float64 {
			d := w.Distance(o.Centroid, next)
			if d > c.cfg.MaxDistance {
				return Forbidden
			}
			return d
		})
	})
}
