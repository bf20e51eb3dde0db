// Package report turns the running vehicle total of a run into summary
// statistics, a PNG chart and an HTML chart.
package report

import (
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/banshee-data/traffic.count/internal/timeutil"
)

// Sample is the running total after a frame.
type Sample struct {
	Frame int
	Total int
}

// Series is the per-frame running total of one run.
type Series struct {
	Start     time.Time
	FrameRate float64
	Samples   []Sample
}

// Add appends a sample.
func (s *Series) Add(frame, total int) {
	s.Samples = append(s.Samples, Sample{Frame: frame, Total: total})
}

// Total returns the last running total.
func (s *Series) Total() int {
	if len(s.Samples) == 0 {
		return 0
	}
	return s.Samples[len(s.Samples)-1].Total
}

// At returns the wall-clock time of a frame.
func (s *Series) At(frame int) time.Time {
	return timeutil.FromStamp(timeutil.FrameStamp(s.Start, frame, s.FrameRate))
}

// Bucket is the number of vehicles counted in one interval.
type Bucket struct {
	Start    time.Time
	Vehicles int
}

// Summary describes a run.
type Summary struct {
	Total    int
	Frames   int
	Duration time.Duration
	Interval time.Duration
	Buckets  []Bucket

	// Per-interval statistics.
	Mean   float64
	StdDev float64
	Peak   int
}

// DefaultInterval groups counts per minute.
const DefaultInterval = time.Minute

// Summarise buckets the series into fixed intervals starting at the first
// sample. Empty intervals are kept so the statistics reflect quiet periods.
func Summarise(s Series, interval time.Duration) Summary {
	if interval <= 0 {
		interval = DefaultInterval
	}
	sum := Summary{Total: s.Total(), Frames: len(s.Samples), Interval: interval}
	if len(s.Samples) == 0 {
		return sum
	}

	fps := s.FrameRate
	if fps <= 0 {
		fps = 1
	}
	first := s.Samples[0].Frame
	offset := func(frame int) time.Duration {
		return time.Duration(float64(frame-first) * float64(time.Second) / fps)
	}
	last := s.Samples[len(s.Samples)-1].Frame
	sum.Duration = offset(last) + time.Duration(float64(time.Second)/fps)

	n := int((sum.Duration + interval - 1) / interval)
	sum.Buckets = make([]Bucket, n)
	for i := range sum.Buckets {
		sum.Buckets[i].Start = s.At(first).Add(time.Duration(i) * interval)
	}
	prev := 0
	for _, smp := range s.Samples {
		i := min(int(offset(smp.Frame)/interval), n-1)
		sum.Buckets[i].Vehicles += smp.Total - prev
		prev = smp.Total
	}

	values := make([]float64, n)
	for i, b := range sum.Buckets {
		values[i] = float64(b.Vehicles)
		sum.Peak = max(sum.Peak, b.Vehicles)
	}
	sum.Mean, sum.StdDev = stat.MeanStdDev(values, nil)
	if n < 2 {
		sum.StdDev = 0
	}
	return sum
}
