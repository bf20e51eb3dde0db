// Package app assembles a counting run from a CountingConfig: it opens the
// input, builds the zone masks and stage list, drives the Session and
// writes the end-of-run reports.
package app

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/banshee-data/traffic.count/internal/background"
	"github.com/banshee-data/traffic.count/internal/config"
	"github.com/banshee-data/traffic.count/internal/db"
	"github.com/banshee-data/traffic.count/internal/fsutil"
	"github.com/banshee-data/traffic.count/internal/mask"
	"github.com/banshee-data/traffic.count/internal/monitoring"
	"github.com/banshee-data/traffic.count/internal/pipeline"
	"github.com/banshee-data/traffic.count/internal/report"
	"github.com/banshee-data/traffic.count/internal/stages"
	"github.com/banshee-data/traffic.count/internal/timeutil"
	"github.com/banshee-data/traffic.count/internal/tracking"
	"github.com/banshee-data/traffic.count/internal/video"
)

// MetricsFile is the Prometheus textfile written into the report directory.
const MetricsFile = "metrics.prom"

// SinkFactory creates the annotated output once the input size is known.
type SinkFactory func(info video.Info) (video.Sink, error)

// Options wires a run. Open and NewSink isolate the decoder and encoder so
// the rest of the run is testable without OpenCV.
type Options struct {
	Config  *config.CountingConfig
	Open    video.Opener
	NewSink SinkFactory // nil discards annotated frames
	FS      fsutil.FileSystem
	Clock   timeutil.Clock

	// OnListen, when set, receives the bound address of the metrics and
	// status server once it is serving.
	OnListen func(addr string)
}

// Result is what a finished run produced.
type Result struct {
	Summary pipeline.Summary
	Counts  tracking.Counts
	Report  report.Summary
	RunID   string // empty when no event store is configured
	CSVPath string
}

// Run executes one counting run. It returns nil on end of stream and on
// cancellation; any other failure is returned after every resource has
// been released.
func Run(ctx context.Context, opts Options) (res Result, err error) {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.EmptyCountingConfig()
	}
	if opts.Open == nil {
		return res, errors.New("app: Open is required")
	}
	fsys := opts.FS
	if fsys == nil {
		fsys = fsutil.OSFileSystem{}
	}
	clock := opts.Clock
	if clock == nil {
		clock = timeutil.RealClock{}
	}

	// Output directories come first so a bad path fails before decoding.
	if cfg.GetSaveImages() {
		if err := fsutil.EnsureDir(fsys, cfg.GetImageDir()); err != nil {
			return res, err
		}
	}
	if err := fsutil.EnsureDir(fsys, cfg.GetReportDir()); err != nil {
		return res, err
	}

	model, err := background.NewGaussian(cfg.GetBackgroundParams())
	if err != nil {
		return res, fmt.Errorf("background model: %w", err)
	}
	session, err := pipeline.NewSession(pipeline.SessionConfig{
		Open:        video.ResizedOpener(opts.Open, cfg.GetResizeWidth()),
		Model:       model,
		TrainFrames: cfg.GetTrainFrames(),
		FrameStride: cfg.GetFrameStride(),
		Clock:       clock,
	})
	if err != nil {
		return res, err
	}
	defer session.Close()

	info, err := session.Open()
	if err != nil {
		return res, err
	}
	fps := info.FrameRate
	if fps <= 0 {
		fps = cfg.GetFrameRate()
	}

	zones, err := buildZones(info, cfg.GetZones())
	if err != nil {
		return res, err
	}

	var sink video.Sink
	if opts.NewSink != nil {
		if sink, err = opts.NewSink(info); err != nil {
			return res, fmt.Errorf("open output: %w", err)
		}
		session.Manage(sink)
	}

	start := cfg.GetStartTime(clock.Now())
	csvWriter, err := stages.NewCsvWriter(fsys, cfg.GetReportDir(), cfg.GetCSVName(), start, fps)
	if err != nil {
		return res, err
	}
	session.Manage(csvWriter)
	res.CSVPath = csvWriter.Path()

	counter, err := stages.NewVehicleCounter(cfg.GetCounterConfig())
	if err != nil {
		return res, err
	}
	visualizer, err := stages.NewVisualizer(stages.VisualizerConfig{
		Sink:       sink,
		Rand:       pipeline.NewRand(cfg.GetSeed()),
		SaveImages: cfg.GetSaveImages(),
		ImageDir:   cfg.GetImageDir(),
		FS:         fsys,
	})
	if err != nil {
		return res, err
	}
	series := &report.Series{Start: start, FrameRate: fps}
	metrics := stages.NewMetrics()
	status := newLiveStatus()

	list := []pipeline.Stage{
		stages.NewContourDetection(stages.ContourDetectionConfig{
			LearningRate:    cfg.GetLiveLearningRate(),
			MinContourRatio: cfg.GetMinContourRatio(),
			SaveImages:      cfg.GetSaveImages(),
			ImageDir:        cfg.GetImageDir(),
			FS:              fsys,
		}),
		counter,
	}

	var store *db.DB
	if path := cfg.GetSQLitePath(); path != "" {
		if store, err = db.NewDB(path); err != nil {
			return res, fmt.Errorf("event store: %w", err)
		}
		defer store.Close()
		res.RunID, err = store.StartRun(db.Run{
			Source:    cfg.GetSource(),
			Width:     info.Width,
			Height:    info.Height,
			FrameRate: fps,
			Started:   start,
		})
		if err != nil {
			return res, fmt.Errorf("event store: %w", err)
		}
		list = append(list, stages.NewEventRecorder(store, res.RunID, clock))
	}
	list = append(list, visualizer, csvWriter, stages.NewSeriesCollector(series), metrics, status)

	if addr := cfg.GetMetricsListen(); addr != "" {
		srv, err := startServer(addr, metrics, status)
		if err != nil {
			return res, err
		}
		// Closed on return so /status reports the finished run while the
		// reports are written.
		defer srv.Close()
		if opts.OnListen != nil {
			opts.OnListen(srv.Addr())
		}
	}

	runner := pipeline.NewRunner(list...)
	runner.SetContext(map[string]any{
		pipeline.KeyBackgroundModel: background.Model(model),
		pipeline.KeyZoneMasks:       zones,
		pipeline.KeyAxisWeight:      cfg.GetAxisWeight(),
	})

	res.Summary, err = session.Run(ctx, runner)
	res.Counts = pipeline.ValueOr(runner.Context(), pipeline.KeyCounts, tracking.Counts{Zones: make([]int, len(zones))})
	status.finish(res.Summary)
	if err != nil {
		return res, err
	}

	res.Report, err = report.Write(fsys, cfg.GetReportDir(), *series, cfg.GetReportInterval())
	if err != nil {
		return res, err
	}
	if _, ok := fsys.(fsutil.OSFileSystem); ok {
		if err := metrics.WriteTextfile(filepath.Join(cfg.GetReportDir(), MetricsFile)); err != nil {
			return res, fmt.Errorf("%w: metrics textfile: %v", fsutil.ErrFilesystem, err)
		}
	}
	if store != nil {
		if err := store.FinishRun(res.RunID, res.Counts.Total, clock.Now()); err != nil {
			return res, fmt.Errorf("event store: %w", err)
		}
	}

	monitoring.Logf("[App] %d vehicles in %d frames (%s), zones %v, cancelled=%v",
		res.Counts.Total, res.Summary.Frames, res.Summary.Elapsed.Round(time.Millisecond),
		res.Counts.Zones, res.Summary.Cancelled)
	return res, nil
}

// buildZones rasterises each polygon into its own mask so counts stay
// separate per zone.
func buildZones(info video.Info, polygons []mask.Polygon) ([]*mask.Mask, error) {
	zones := make([]*mask.Mask, len(polygons))
	for i, p := range polygons {
		m, err := mask.Build(info.Width, info.Height, []mask.Polygon{p})
		if err != nil {
			return nil, fmt.Errorf("zone %d: %w", i, err)
		}
		zones[i] = m
	}
	return zones, nil
}
