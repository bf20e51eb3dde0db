package report

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/traffic.count/internal/fsutil"
)

// tenFPS builds a series at 10 fps from per-frame running totals.
func tenFPS(totals ...int) Series {
	s := Series{Start: time.Unix(1000, 0), FrameRate: 10}
	for i, t := range totals {
		s.Add(i, t)
	}
	return s
}

func TestSummariseBuckets(t *testing.T) {
	s := tenFPS(0, 1, 1, 2, 2, 2, 2, 2, 5, 5)
	sum := Summarise(s, 300*time.Millisecond)

	assert.Equal(t, 5, sum.Total)
	assert.Equal(t, 10, sum.Frames)
	assert.Equal(t, time.Second, sum.Duration)
	require.Len(t, sum.Buckets, 4)
	assert.Equal(t, []int{1, 1, 3, 0}, []int{
		sum.Buckets[0].Vehicles, sum.Buckets[1].Vehicles, sum.Buckets[2].Vehicles, sum.Buckets[3].Vehicles,
	})
	assert.True(t, sum.Buckets[1].Start.Equal(time.Unix(1000, 0).Add(300*time.Millisecond)))
	assert.InDelta(t, 1.25, sum.Mean, 1e-9)
	assert.Equal(t, 3, sum.Peak)
	assert.Greater(t, sum.StdDev, 0.0)
}

func TestSummariseEmptyAndSingle(t *testing.T) {
	empty := Summarise(Series{FrameRate: 25}, 0)
	assert.Equal(t, DefaultInterval, empty.Interval)
	assert.Empty(t, empty.Buckets)

	single := Summarise(tenFPS(3), time.Minute)
	require.Len(t, single.Buckets, 1)
	assert.Equal(t, 3, single.Buckets[0].Vehicles)
	assert.Zero(t, single.StdDev)
}

func TestSeriesTotal(t *testing.T) {
	var s Series
	assert.Equal(t, 0, s.Total())
	s.Add(0, 4)
	assert.Equal(t, 4, s.Total())
}

func TestWriteProducesCharts(t *testing.T) {
	fsys := fsutil.NewMemoryFileSystem()
	dir := filepath.Join("out", "report")

	sum, err := Write(fsys, dir, tenFPS(0, 0, 1, 1, 2), time.Minute)
	require.NoError(t, err)
	assert.Equal(t, 2, sum.Total)

	png, err := fsys.ReadFile(filepath.Join(dir, PlotFile))
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(png, []byte("\x89PNG")), "png signature")

	html, err := fsys.ReadFile(filepath.Join(dir, HTMLFile))
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(html), "echarts"))
	assert.Contains(t, string(html), "total=2")
}

func TestWritePlotEmptySeries(t *testing.T) {
	fsys := fsutil.NewMemoryFileSystem()
	require.NoError(t, WritePlot(fsys, PlotFile, Series{}))
	_, err := fsys.ReadFile(PlotFile)
	assert.NoError(t, err)
}

func TestWriteFailsWhenDirCannotBeCreated(t *testing.T) {
	fsys := fsutil.NewMemoryFileSystem()
	fsys.FailMkdir = true
	_, err := Write(fsys, "report", tenFPS(0), time.Minute)
	assert.ErrorIs(t, err, fsutil.ErrFilesystem)
}
