package config

import (
	"time"

	"github.com/banshee-data/traffic.count/internal/background"
	"github.com/banshee-data/traffic.count/internal/mask"
	"github.com/banshee-data/traffic.count/internal/tracking"
)

// DefaultCountingConfig returns a config with every field set to its
// default, matching config/counting.defaults.json.
func DefaultCountingConfig() *CountingConfig {
	c := EmptyCountingConfig()
	w := tracking.DefaultAxisWeight
	return &CountingConfig{
		Source:            ptrString(c.GetSource()),
		FrameRate:         ptrFloat64(c.GetFrameRate()),
		Output:            ptrString(c.GetOutput()),
		Codec:             ptrString(c.GetCodec()),
		ImageDir:          ptrString(c.GetImageDir()),
		ReportDir:         ptrString(c.GetReportDir()),
		CSVName:           ptrString(c.GetCSVName()),
		SaveImages:        ptrBool(c.GetSaveImages()),
		SQLitePath:        ptrString(c.GetSQLitePath()),
		Metrics:           ptrString(c.GetMetricsListen()),
		StartTime:         ptrString(""),
		FrameStride:       ptrInt(c.GetFrameStride()),
		ResizeWidth:       ptrInt(c.GetResizeWidth()),
		Seed:              ptrUint64(c.GetSeed()),
		TrainFrames:       ptrInt(c.GetTrainFrames()),
		LiveLearningRate:  ptrFloat64(c.GetLiveLearningRate()),
		History:           ptrInt(c.GetHistory()),
		VarianceThreshold: ptrFloat64(c.GetVarianceThreshold()),
		DetectShadows:     ptrBool(c.GetDetectShadows()),
		MinContourRatio:   ptrFloat64(c.GetMinContourRatio()),
		PathSize:          ptrInt(c.GetPathSize()),
		MaxDistance:       ptrFloat64(c.GetMaxDistance()),
		MaxMissed:         ptrInt(c.GetMaxMissed()),
		AxisWeight:        &w,
		Zones:             DefaultZones,
		ReportInterval:    ptrString("1m0s"),
	}
}

// GetSource returns the input path, or "" when unset.
func (c *CountingConfig) GetSource() string {
	if c.Source == nil {
		return ""
	}
	return *c.Source
}

// GetFrameRate returns the frame rate assumed for image directories.
func (c *CountingConfig) GetFrameRate() float64 {
	if c.FrameRate == nil {
		return 25
	}
	return *c.FrameRate
}

// GetOutput returns the annotated output path.
func (c *CountingConfig) GetOutput() string {
	if c.Output == nil || *c.Output == "" {
		return "output.mp4"
	}
	return *c.Output
}

// GetCodec returns the output FourCC.
func (c *CountingConfig) GetCodec() string {
	if c.Codec == nil || *c.Codec == "" {
		return "mp4v"
	}
	return *c.Codec
}

// GetImageDir returns the snapshot directory.
func (c *CountingConfig) GetImageDir() string {
	if c.ImageDir == nil || *c.ImageDir == "" {
		return "./out"
	}
	return *c.ImageDir
}

// GetReportDir returns the report directory.
func (c *CountingConfig) GetReportDir() string {
	if c.ReportDir == nil || *c.ReportDir == "" {
		return "./report"
	}
	return *c.ReportDir
}

// GetCSVName returns the CSV report file name.
func (c *CountingConfig) GetCSVName() string {
	if c.CSVName == nil || *c.CSVName == "" {
		return "report.csv"
	}
	return *c.CSVName
}

// GetSaveImages returns whether per-frame snapshots are written.
func (c *CountingConfig) GetSaveImages() bool {
	if c.SaveImages == nil {
		return false
	}
	return *c.SaveImages
}

// GetSQLitePath returns the event store path, or "" when disabled.
func (c *CountingConfig) GetSQLitePath() string {
	if c.SQLitePath == nil {
		return ""
	}
	return *c.SQLitePath
}

// GetMetricsListen returns the metrics listen address, or "" when disabled.
func (c *CountingConfig) GetMetricsListen() string {
	if c.Metrics == nil {
		return ""
	}
	return *c.Metrics
}

// GetStartTime returns the wall-clock time of frame zero, falling back to
// now when unset or unparsable.
func (c *CountingConfig) GetStartTime(now time.Time) time.Time {
	if c.StartTime == nil || *c.StartTime == "" {
		return now
	}
	t, err := time.Parse(time.RFC3339, *c.StartTime)
	if err != nil {
		return now
	}
	return t
}

// GetFrameStride returns N where every Nth decoded frame is processed.
func (c *CountingConfig) GetFrameStride() int {
	if c.FrameStride == nil {
		return 1
	}
	return *c.FrameStride
}

// GetResizeWidth returns the processing width, 0 for native size.
func (c *CountingConfig) GetResizeWidth() int {
	if c.ResizeWidth == nil {
		return 0
	}
	return *c.ResizeWidth
}

// GetSeed returns the process-wide random seed.
func (c *CountingConfig) GetSeed() uint64 {
	if c.Seed == nil {
		return 123
	}
	return *c.Seed
}

// GetTrainFrames returns the number of training frames.
func (c *CountingConfig) GetTrainFrames() int {
	if c.TrainFrames == nil {
		return background.DefaultTrainingFrames
	}
	return *c.TrainFrames
}

// GetLiveLearningRate returns the model update rate used while counting.
func (c *CountingConfig) GetLiveLearningRate() float64 {
	if c.LiveLearningRate == nil {
		return 0.005
	}
	return *c.LiveLearningRate
}

// GetHistory returns the background history length.
func (c *CountingConfig) GetHistory() int {
	if c.History == nil {
		return background.DefaultParams().History
	}
	return *c.History
}

// GetVarianceThreshold returns the foreground variance threshold.
func (c *CountingConfig) GetVarianceThreshold() float64 {
	if c.VarianceThreshold == nil {
		return background.DefaultParams().VarianceThreshold
	}
	return *c.VarianceThreshold
}

// GetDetectShadows returns whether shadows are separated from foreground.
func (c *CountingConfig) GetDetectShadows() bool {
	if c.DetectShadows == nil {
		return true
	}
	return *c.DetectShadows
}

// GetBackgroundParams assembles the background model parameters.
func (c *CountingConfig) GetBackgroundParams() background.Params {
	p := background.DefaultParams()
	p.History = c.GetHistory()
	p.VarianceThreshold = c.GetVarianceThreshold()
	p.DetectShadows = c.GetDetectShadows()
	return p
}

// GetMinContourRatio returns the minimum box side as a fraction of frame height.
func (c *CountingConfig) GetMinContourRatio() float64 {
	if c.MinContourRatio == nil {
		return 35.0 / 720.0
	}
	return *c.MinContourRatio
}

// GetPathSize returns the number of points kept per path.
func (c *CountingConfig) GetPathSize() int {
	if c.PathSize == nil {
		return tracking.DefaultPathSize
	}
	return *c.PathSize
}

// GetMaxDistance returns the association gate.
func (c *CountingConfig) GetMaxDistance() float64 {
	if c.MaxDistance == nil {
		return tracking.DefaultMaxDistance
	}
	return *c.MaxDistance
}

// GetMaxMissed returns how many consecutive frames a path may go unmatched.
func (c *CountingConfig) GetMaxMissed() int {
	if c.MaxMissed == nil {
		return tracking.DefaultMaxMissed
	}
	return *c.MaxMissed
}

// GetAxisWeight returns the association axis weights.
func (c *CountingConfig) GetAxisWeight() tracking.AxisWeight {
	if c.AxisWeight == nil {
		return tracking.DefaultAxisWeight
	}
	return *c.AxisWeight
}

// GetCounterConfig assembles the tracker parameters.
func (c *CountingConfig) GetCounterConfig() tracking.CounterConfig {
	return tracking.CounterConfig{
		PathSize:    c.GetPathSize(),
		MaxDistance: c.GetMaxDistance(),
		Weight:      c.GetAxisWeight(),
		MaxMissed:   c.GetMaxMissed(),
	}
}

// GetZones returns the counting zones as polygons.
func (c *CountingConfig) GetZones() []mask.Polygon {
	zones := c.Zones
	if len(zones) == 0 {
		zones = DefaultZones
	}
	out := make([]mask.Polygon, len(zones))
	for i, z := range zones {
		out[i] = make(mask.Polygon, len(z))
		for j, pt := range z {
			out[i][j] = mask.Point{X: pt[0], Y: pt[1]}
		}
	}
	return out
}

// GetReportInterval returns the report bucket width.
func (c *CountingConfig) GetReportInterval() time.Duration {
	if c.ReportInterval == nil || *c.ReportInterval == "" {
		return time.Minute
	}
	d, err := time.ParseDuration(*c.ReportInterval)
	if err != nil {
		return time.Minute
	}
	return d
}
