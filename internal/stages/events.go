package stages

import (
	"fmt"

	"github.com/banshee-data/traffic.count/internal/db"
	"github.com/banshee-data/traffic.count/internal/pipeline"
	"github.com/banshee-data/traffic.count/internal/timeutil"
	"github.com/banshee-data/traffic.count/internal/tracking"
)

// EventStore persists counted vehicles. *db.DB implements it.
type EventStore interface {
	RecordEvent(e db.Event) error
}

// EventRecorder stores one event per vehicle counted on the frame.
type EventRecorder struct {
	store EventStore
	runID string
	clock timeutil.Clock
	n     int
}

// NewEventRecorder records into store under runID.
func NewEventRecorder(store EventStore, runID string, clock timeutil.Clock) *EventRecorder {
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	return &EventRecorder{store: store, runID: runID, clock: clock}
}

func (r *EventRecorder) Name() string { return "event_recorder" }

// Recorded returns the number of events stored.
func (r *EventRecorder) Recorded() int { return r.n }

// Apply implements pipeline.Stage.
func (r *EventRecorder) Apply(c *pipeline.Context) (*pipeline.Context, error) {
	crossings := pipeline.ValueOr[[]tracking.Crossing](c, pipeline.KeyCrossings, nil)
	if len(crossings) == 0 {
		return c, nil
	}
	counts, err := need[tracking.Counts](c, pipeline.KeyCounts)
	if err != nil {
		return nil, err
	}
	frameNumber := pipeline.ValueOr(c, pipeline.KeyFrameNumber, 0)

	// Totals after the frame; walk back so each event carries its own.
	first := counts.Total - len(crossings) + 1
	now := r.clock.Now()
	for i, cr := range crossings {
		e := db.Event{
			RunID:       r.runID,
			FrameNumber: frameNumber,
			Zone:        cr.Zone,
			Total:       first + i,
			Recorded:    now,
		}
		if err := r.store.RecordEvent(e); err != nil {
			return nil, fmt.Errorf("record event: %w", err)
		}
		r.n++
	}
	return c, nil
}
