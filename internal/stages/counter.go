package stages

import (
	"fmt"

	"github.com/banshee-data/traffic.count/internal/mask"
	"github.com/banshee-data/traffic.count/internal/monitoring"
	"github.com/banshee-data/traffic.count/internal/pipeline"
	"github.com/banshee-data/traffic.count/internal/tracking"
)

// VehicleCounter links detected_objects into paths and counts zone entries.
// Zones and axis weight are read from the Context on the first frame; the
// tracker is built then and kept for the rest of the run.
type VehicleCounter struct {
	cfg     tracking.CounterConfig
	counter *tracking.Counter
}

// NewVehicleCounter validates cfg. cfg.Weight is replaced by the Context's
// axis_weight when present.
func NewVehicleCounter(cfg tracking.CounterConfig) (*VehicleCounter, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("vehicle counter: %w", err)
	}
	return &VehicleCounter{cfg: cfg}, nil
}

func (v *VehicleCounter) Name() string { return "vehicle_counter" }

// Apply implements pipeline.Stage.
func (v *VehicleCounter) Apply(c *pipeline.Context) (*pipeline.Context, error) {
	if v.counter == nil {
		zones, err := need[[]*mask.Mask](c, pipeline.KeyZoneMasks)
		if err != nil {
			return nil, err
		}
		cfg := v.cfg
		if w, ok := pipeline.Value[tracking.AxisWeight](c, pipeline.KeyAxisWeight); ok {
			cfg.Weight = w
		}
		if v.counter, err = tracking.NewCounter(cfg, zones); err != nil {
			return nil, err
		}
	}

	objects, err := need[[]tracking.Object](c, pipeline.KeyDetectedObjects)
	if err != nil {
		return nil, err
	}
	crossings := v.counter.Update(objects)
	counts := v.counter.Counts()
	for _, cr := range crossings {
		monitoring.Logf("[VehicleCounter] frame %d: vehicle %d entered zone %d at (%d,%d)",
			pipeline.ValueOr(c, pipeline.KeyFrameNumber, -1), counts.Total, cr.Zone, cr.Point.X, cr.Point.Y)
	}

	c.Set(pipeline.KeyPaths, v.counter.Paths())
	c.Set(pipeline.KeyCounts, counts)
	c.Set(pipeline.KeyCrossings, crossings)
	return c, nil
}
