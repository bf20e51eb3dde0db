package stages

import (
	"errors"
	"image"
	"image/color"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/traffic.count/internal/background"
	"github.com/banshee-data/traffic.count/internal/db"
	"github.com/banshee-data/traffic.count/internal/fsutil"
	"github.com/banshee-data/traffic.count/internal/mask"
	"github.com/banshee-data/traffic.count/internal/pipeline"
	"github.com/banshee-data/traffic.count/internal/report"
	"github.com/banshee-data/traffic.count/internal/timeutil"
	"github.com/banshee-data/traffic.count/internal/tracking"
	"github.com/banshee-data/traffic.count/internal/video"
)

// fixedModel returns a copy of the same raw mask on every frame.
type fixedModel struct {
	raw   *mask.Mask
	rates []float64
}

func (f *fixedModel) Apply(_ *video.Frame, rate float64) *mask.Mask {
	f.rates = append(f.rates, rate)
	return f.raw.Clone()
}

func fillRect(m *mask.Mask, r image.Rectangle, v uint8) {
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			m.Pix[m.Idx(x, y)] = v
		}
	}
}

func blankFrame(w, h int) *video.Frame {
	return video.NewFrame(0, video.BlankImage(w, h, color.RGBA{A: 255}))
}

func detectionContext(raw *mask.Mask, frameNumber int) (*pipeline.Context, *fixedModel) {
	model := &fixedModel{raw: raw}
	c := pipeline.NewContext()
	c.Merge(map[string]any{
		pipeline.KeyFrame:           blankFrame(raw.Width, raw.Height),
		pipeline.KeyFrameNumber:     frameNumber,
		pipeline.KeyBackgroundModel: background.Model(model),
	})
	return c, model
}

func TestContourDetectionFindsBlocks(t *testing.T) {
	raw := mask.New(100, 100)
	fillRect(raw, image.Rect(10, 10, 50, 50), mask.On)
	fillRect(raw, image.Rect(80, 80, 82, 82), mask.On)              // speckle
	fillRect(raw, image.Rect(60, 10, 95, 45), background.ShadowValue) // shadow

	c, model := detectionContext(raw, 0)
	d := NewContourDetection(ContourDetectionConfig{MinContourRatio: 0.1})

	out, err := d.Apply(c)
	require.NoError(t, err)
	assert.Same(t, c, out)
	assert.Equal(t, []float64{DefaultLiveLearningRate}, model.rates)

	objects := pipeline.ValueOr[[]tracking.Object](out, pipeline.KeyDetectedObjects, nil)
	require.Len(t, objects, 1)
	assert.Equal(t, image.Rect(8, 8, 52, 52), objects[0].Box)
	assert.Equal(t, image.Pt(30, 30), objects[0].Centroid)

	boxes := pipeline.ValueOr[[]image.Rectangle](out, pipeline.KeyContours, nil)
	assert.Equal(t, []image.Rectangle{objects[0].Box}, boxes)

	fg, ok := pipeline.Value[*mask.Mask](out, pipeline.KeyForegroundMask)
	require.True(t, ok)
	assert.False(t, fg.At(70, 20), "shadow pixels are not foreground")
}

func TestContourDetectionMinSizeFromHeight(t *testing.T) {
	raw := mask.New(200, 720)
	fillRect(raw, image.Rect(10, 10, 30, 30), mask.On)     // 24 after dilation
	fillRect(raw, image.Rect(100, 100, 140, 140), mask.On) // 44 after dilation

	c, _ := detectionContext(raw, 0)
	out, err := NewContourDetection(ContourDetectionConfig{}).Apply(c)
	require.NoError(t, err)
	objects := pipeline.ValueOr[[]tracking.Object](out, pipeline.KeyDetectedObjects, nil)
	require.Len(t, objects, 1)
	assert.Equal(t, image.Pt(120, 120), objects[0].Centroid)
}

func TestContourDetectionSavesMask(t *testing.T) {
	fsys := fsutil.NewMemoryFileSystem()
	require.NoError(t, fsys.MkdirAll("images", 0o755))

	raw := mask.New(20, 20)
	c, _ := detectionContext(raw, 3)
	d := NewContourDetection(ContourDetectionConfig{SaveImages: true, ImageDir: "images", FS: fsys})
	_, err := d.Apply(c)
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join("images", "mask_0003.png")}, fsys.Files("images"))
}

func TestContourDetectionMissingKeys(t *testing.T) {
	d := NewContourDetection(ContourDetectionConfig{})
	_, err := d.Apply(pipeline.NewContext())
	assert.Error(t, err)

	c := pipeline.NewContext()
	c.Set(pipeline.KeyFrame, blankFrame(4, 4))
	_, err = d.Apply(c)
	assert.ErrorContains(t, err, pipeline.KeyBackgroundModel)
}

func zoneMasks(t *testing.T, w, h int, poly mask.Polygon) []*mask.Mask {
	t.Helper()
	m, err := mask.Build(w, h, []mask.Polygon{poly})
	require.NoError(t, err)
	return []*mask.Mask{m}
}

func TestVehicleCounterStage(t *testing.T) {
	cfg := tracking.DefaultCounterConfig()
	cfg.PathSize = 3
	v, err := NewVehicleCounter(cfg)
	require.NoError(t, err)

	c := pipeline.NewContext()
	c.Set(pipeline.KeyZoneMasks, zoneMasks(t, 100, 100, mask.Polygon{{X: 0, Y: 80}, {X: 99, Y: 80}, {X: 99, Y: 99}, {X: 0, Y: 99}}))
	c.Set(pipeline.KeyAxisWeight, tracking.AxisWeight{X: 1, Y: 2})

	counted := 0
	for i, y := 0, 10; y < 100; i, y = i+1, y+8 {
		c.Set(pipeline.KeyFrameNumber, i)
		c.Set(pipeline.KeyDetectedObjects, []tracking.Object{tracking.NewObject(image.Rect(48, y-2, 52, y+2))})
		_, err := v.Apply(c)
		require.NoError(t, err)
		counted += len(pipeline.ValueOr[[]tracking.Crossing](c, pipeline.KeyCrossings, nil))
	}
	assert.Equal(t, 1, counted)
	assert.Equal(t, tracking.Counts{Total: 1, Zones: []int{1}}, pipeline.ValueOr(c, pipeline.KeyCounts, tracking.Counts{}))
}

func TestVehicleCounterNeedsZones(t *testing.T) {
	v, err := NewVehicleCounter(tracking.DefaultCounterConfig())
	require.NoError(t, err)
	_, err = v.Apply(pipeline.NewContext())
	assert.ErrorContains(t, err, pipeline.KeyZoneMasks)

	_, err = NewVehicleCounter(tracking.CounterConfig{})
	assert.Error(t, err)
}

type captureSink struct {
	frames []*video.Frame
	err    error
}

func (s *captureSink) Write(f *video.Frame) error {
	if s.err != nil {
		return s.err
	}
	s.frames = append(s.frames, f)
	return nil
}

func (s *captureSink) Close() error { return nil }

func TestVisualizerDrawsOnCopy(t *testing.T) {
	sink := &captureSink{}
	fsys := fsutil.NewMemoryFileSystem()
	require.NoError(t, fsys.MkdirAll("img", 0o755))
	v, err := NewVisualizer(VisualizerConfig{
		Sink: sink, Rand: pipeline.NewRand(pipeline.DefaultSeed),
		SaveImages: true, ImageDir: "img", FS: fsys,
	})
	require.NoError(t, err)

	frame := blankFrame(100, 100)
	c := pipeline.NewContext()
	c.Merge(map[string]any{
		pipeline.KeyFrame:       frame,
		pipeline.KeyFrameNumber: 7,
		pipeline.KeyZoneMasks:   zoneMasks(t, 100, 100, mask.Polygon{{X: 0, Y: 90}, {X: 99, Y: 90}, {X: 99, Y: 99}, {X: 0, Y: 99}}),
		pipeline.KeyContours:    []image.Rectangle{image.Rect(40, 40, 60, 60)},
		pipeline.KeyPaths: []tracking.Path{{
			tracking.NewObject(image.Rect(10, 10, 14, 14)),
			tracking.NewObject(image.Rect(10, 30, 14, 34)),
		}},
		pipeline.KeyCounts: tracking.Counts{Total: 3},
	})

	_, err = v.Apply(c)
	require.NoError(t, err)
	require.Len(t, sink.frames, 1)
	out := sink.frames[0].Image

	assert.Equal(t, uint8(0), frame.Image.Pix[0], "input frame untouched")
	assert.Equal(t, color.RGBA{R: 12, G: 54, B: 19, A: 255}, out.RGBAAt(50, 95), "zone tint")
	assert.NotEqual(t, color.RGBA{A: 255}, out.RGBAAt(40, 50), "box edge drawn")
	assert.Same(t, out, v.Last())
	assert.Equal(t, []string{filepath.Join("img", "processed_0007.png")}, fsys.Files("img"))
}

func TestVisualizerSinkFailure(t *testing.T) {
	v, err := NewVisualizer(VisualizerConfig{Sink: &captureSink{err: errors.New("encoder gone")}, Rand: pipeline.NewRand(1)})
	require.NoError(t, err)
	c := pipeline.NewContext()
	c.Set(pipeline.KeyFrame, blankFrame(10, 10))
	_, err = v.Apply(c)
	assert.ErrorContains(t, err, "encoder gone")
}

func TestPaletteIsSeeded(t *testing.T) {
	a := Palette(pipeline.NewRand(pipeline.DefaultSeed), 4)
	b := Palette(pipeline.NewRand(pipeline.DefaultSeed), 4)
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, Palette(pipeline.NewRand(7), 4))

	_, err := NewVisualizer(VisualizerConfig{})
	assert.Error(t, err)
}

func csvContext(frame, total int) *pipeline.Context {
	c := pipeline.NewContext()
	c.Set(pipeline.KeyFrameNumber, frame)
	c.Set(pipeline.KeyCounts, tracking.Counts{Total: total})
	return c
}

func TestCsvWriterRows(t *testing.T) {
	fsys := fsutil.NewMemoryFileSystem()
	cw, err := NewCsvWriter(fsys, "out", "", time.Unix(1000, 0), 10)
	require.NoError(t, err)

	for i, total := range []int{0, 1, 1, 3} {
		_, err := cw.Apply(csvContext(i, total))
		require.NoError(t, err)
	}
	require.NoError(t, cw.Close())
	require.NoError(t, cw.Close())
	assert.Equal(t, 4, cw.Rows())

	data, err := fsys.ReadFile(filepath.Join("out", DefaultCSVName))
	require.NoError(t, err)
	want := strings.Join([]string{
		"time,vehicles",
		"100000,0",
		"100010,1",
		"100020,0",
		"100030,2",
	}, "\n") + "\n"
	assert.Equal(t, want, string(data))

	_, err = cw.Apply(csvContext(4, 3))
	assert.Error(t, err, "closed writer")
}

func TestCsvWriterNeedsDirectory(t *testing.T) {
	fsys := fsutil.NewMemoryFileSystem()
	fsys.FailMkdir = true
	_, err := NewCsvWriter(fsys, "out", "counts.csv", time.Unix(0, 0), 25)
	assert.ErrorIs(t, err, fsutil.ErrFilesystem)
}

type memStore struct {
	events []db.Event
	err    error
}

func (m *memStore) RecordEvent(e db.Event) error {
	if m.err != nil {
		return m.err
	}
	m.events = append(m.events, e)
	return nil
}

func TestEventRecorder(t *testing.T) {
	store := &memStore{}
	clock := timeutil.NewMockClock(time.Unix(500, 0))
	r := NewEventRecorder(store, "run-1", clock)

	c := csvContext(12, 5)
	_, err := r.Apply(c)
	require.NoError(t, err)
	assert.Empty(t, store.events, "no crossings this frame")

	c.Set(pipeline.KeyCrossings, []tracking.Crossing{{Zone: 0}, {Zone: -1}})
	_, err = r.Apply(c)
	require.NoError(t, err)
	require.Len(t, store.events, 2)
	assert.Equal(t, db.Event{RunID: "run-1", FrameNumber: 12, Zone: 0, Total: 4, Recorded: time.Unix(500, 0)}, store.events[0])
	assert.Equal(t, 5, store.events[1].Total)
	assert.Equal(t, -1, store.events[1].Zone)
	assert.Equal(t, 2, r.Recorded())

	store.err = errors.New("locked")
	_, err = r.Apply(c)
	assert.ErrorContains(t, err, "locked")
}

func TestEventRecorderWithSQLite(t *testing.T) {
	database, err := db.NewDB(filepath.Join(t.TempDir(), "counts.db"))
	require.NoError(t, err)
	defer database.Close()

	runID, err := database.StartRun(db.Run{Source: "synthetic", Started: time.Unix(0, 0)})
	require.NoError(t, err)

	r := NewEventRecorder(database, runID, nil)
	c := csvContext(3, 1)
	c.Set(pipeline.KeyCrossings, []tracking.Crossing{{Zone: 0}})
	_, err = r.Apply(c)
	require.NoError(t, err)

	events, err := database.Events(runID)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, 3, events[0].FrameNumber)
}

func TestMetricsStage(t *testing.T) {
	m := NewMetrics()
	c := csvContext(4, 1)
	c.Set(pipeline.KeyDetectedObjects, []tracking.Object{{}, {}})
	c.Set(pipeline.KeyPaths, []tracking.Path{{{}}})
	c.Set(pipeline.KeyCrossings, []tracking.Crossing{{Zone: 1}})

	_, err := m.Apply(c)
	require.NoError(t, err)
	_, err = m.Apply(c)
	require.NoError(t, err)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.frames))
	assert.Equal(t, 4.0, testutil.ToFloat64(m.detections))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.paths))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.vehicles.WithLabelValues("1")))

	path := filepath.Join(t.TempDir(), "metrics.prom")
	require.NoError(t, m.WriteTextfile(path))

	n, err := testutil.GatherAndCount(m.Registry())
	require.NoError(t, err)
	assert.Equal(t, 5, n)
}

func TestSeriesCollector(t *testing.T) {
	series := &report.Series{FrameRate: 25}
	s := NewSeriesCollector(series)
	for i, total := range []int{0, 0, 1} {
		_, err := s.Apply(csvContext(i, total))
		require.NoError(t, err)
	}
	assert.Equal(t, []report.Sample{{0, 0}, {1, 0}, {2, 1}}, series.Samples)

	_, err := s.Apply(pipeline.NewContext())
	assert.Error(t, err)
}
