package stages

import (
	"github.com/banshee-data/traffic.count/internal/pipeline"
	"github.com/banshee-data/traffic.count/internal/report"
	"github.com/banshee-data/traffic.count/internal/tracking"
)

// SeriesCollector samples the running total on every frame for the
// end-of-run report.
type SeriesCollector struct {
	series *report.Series
}

// NewSeriesCollector appends samples to series.
func NewSeriesCollector(series *report.Series) *SeriesCollector {
	return &SeriesCollector{series: series}
}

func (s *SeriesCollector) Name() string { return "series_collector" }

// Apply implements pipeline.Stage.
func (s *SeriesCollector) Apply(c *pipeline.Context) (*pipeline.Context, error) {
	frameNumber, err := need[int](c, pipeline.KeyFrameNumber)
	if err != nil {
		return nil, err
	}
	counts := pipeline.ValueOr(c, pipeline.KeyCounts, tracking.Counts{})
	s.series.Add(frameNumber, counts.Total)
	return c, nil
}
