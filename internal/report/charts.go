package report

import (
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/banshee-data/traffic.count/internal/fsutil"
)

// Output file names written into the report directory.
const (
	PlotFile = "counts.png"
	HTMLFile = "counts.html"
)

// WritePlot renders the running total against video time as a PNG.
func WritePlot(fsys fsutil.FileSystem, path string, s Series) error {
	fps := s.FrameRate
	if fps <= 0 {
		fps = 1
	}
	pts := make(plotter.XYs, 0, len(s.Samples)+1)
	if len(s.Samples) > 0 {
		pts = append(pts, plotter.XY{X: float64(s.Samples[0].Frame) / fps, Y: 0})
	}
	for _, smp := range s.Samples {
		pts = append(pts, plotter.XY{X: float64(smp.Frame) / fps, Y: float64(smp.Total)})
	}

	p := plot.New()
	p.Title.Text = fmt.Sprintf("Vehicles counted (total %d)", s.Total())
	p.X.Label.Text = "Video time (s)"
	p.Y.Label.Text = "Vehicles"
	p.Add(plotter.NewGrid())
	if len(pts) > 0 {
		line, err := plotter.NewLine(pts)
		if err != nil {
			return fmt.Errorf("build line: %w", err)
		}
		line.Width = vg.Points(1.5)
		line.StepStyle = plotter.PostStep
		p.Add(line)
	}

	wt, err := p.WriterTo(10*vg.Inch, 4*vg.Inch, "png")
	if err != nil {
		return fmt.Errorf("render plot: %w", err)
	}
	return writeFile(fsys, path, func(w io.Writer) error {
		_, err := wt.WriteTo(w)
		return err
	})
}

// WriteHTML renders the per-interval counts as an interactive bar chart.
func WriteHTML(fsys fsutil.FileSystem, path string, sum Summary) error {
	labels := make([]string, len(sum.Buckets))
	bars := make([]opts.BarData, len(sum.Buckets))
	for i, b := range sum.Buckets {
		labels[i] = b.Start.Format(time.TimeOnly)
		bars[i] = opts.BarData{Value: b.Vehicles}
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "Vehicle counts", Width: "100%", Height: "480px"}),
		charts.WithTitleOpts(opts.Title{
			Title:    fmt.Sprintf("Vehicles per %s", sum.Interval),
			Subtitle: fmt.Sprintf("total=%d mean=%.2f stddev=%.2f peak=%d", sum.Total, sum.Mean, sum.StdDev, sum.Peak),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
	)
	bar.SetXAxis(labels).
		AddSeries("vehicles", bars,
			charts.WithLabelOpts(opts.Label{Show: opts.Bool(true), Position: "top"}),
		)

	page := components.NewPage()
	page.AddCharts(bar)
	return writeFile(fsys, path, page.Render)
}

func writeFile(fsys fsutil.FileSystem, path string, render func(io.Writer) error) error {
	if err := fsutil.EnsureDir(fsys, filepath.Dir(path)); err != nil {
		return err
	}
	f, err := fsys.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := render(f); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}
