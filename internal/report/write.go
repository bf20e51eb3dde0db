package report

import (
	"path/filepath"
	"time"

	"github.com/banshee-data/traffic.count/internal/fsutil"
	"github.com/banshee-data/traffic.count/internal/monitoring"
)

// Write summarises s and writes both charts into dir.
func Write(fsys fsutil.FileSystem, dir string, s Series, interval time.Duration) (Summary, error) {
	sum := Summarise(s, interval)
	if err := WritePlot(fsys, filepath.Join(dir, PlotFile), s); err != nil {
		return sum, err
	}
	if err := WriteHTML(fsys, filepath.Join(dir, HTMLFile), sum); err != nil {
		return sum, err
	}
	monitoring.Logf("[Report] %d vehicles over %s (%d frames); per %s mean %.2f stddev %.2f peak %d",
		sum.Total, sum.Duration.Round(time.Second), sum.Frames, sum.Interval, sum.Mean, sum.StdDev, sum.Peak)
	return sum, nil
}
