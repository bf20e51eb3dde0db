package stages

import (
	"image"

	"github.com/samber/lo"

	"github.com/banshee-data/traffic.count/internal/background"
	"github.com/banshee-data/traffic.count/internal/fsutil"
	"github.com/banshee-data/traffic.count/internal/mask"
	"github.com/banshee-data/traffic.count/internal/monitoring"
	"github.com/banshee-data/traffic.count/internal/pipeline"
	"github.com/banshee-data/traffic.count/internal/tracking"
	"github.com/banshee-data/traffic.count/internal/video"
)

const (
	// DefaultLiveLearningRate is the model update rate while counting.
	DefaultLiveLearningRate = 0.005
	// DefaultMinContourRatio is the minimum box side as a fraction of the
	// frame height: 35 pixels on 720p footage.
	DefaultMinContourRatio = 35.0 / 720.0

	// foregroundCutoff drops shadow pixels from the raw model output.
	foregroundCutoff = 240
)

// ContourDetectionConfig tunes ContourDetection.
type ContourDetectionConfig struct {
	LearningRate    float64
	MinContourRatio float64

	// SaveImages writes the cleaned mask of every frame to ImageDir.
	SaveImages bool
	ImageDir   string
	FS         fsutil.FileSystem
}

// ContourDetection turns the background model's foreground into vehicle
// candidates. It writes fg_mask, contours and detected_objects.
type ContourDetection struct {
	cfg ContourDetectionConfig
}

// NewContourDetection fills zero fields with defaults.
func NewContourDetection(cfg ContourDetectionConfig) *ContourDetection {
	if cfg.LearningRate == 0 {
		cfg.LearningRate = DefaultLiveLearningRate
	}
	if cfg.MinContourRatio <= 0 {
		cfg.MinContourRatio = DefaultMinContourRatio
	}
	if cfg.FS == nil {
		cfg.FS = fsutil.OSFileSystem{}
	}
	return &ContourDetection{cfg: cfg}
}

func (d *ContourDetection) Name() string { return "contour_detection" }

// Apply implements pipeline.Stage.
func (d *ContourDetection) Apply(c *pipeline.Context) (*pipeline.Context, error) {
	frame, err := need[*video.Frame](c, pipeline.KeyFrame)
	if err != nil {
		return nil, err
	}
	model, err := need[background.Model](c, pipeline.KeyBackgroundModel)
	if err != nil {
		return nil, err
	}
	frameNumber := pipeline.ValueOr(c, pipeline.KeyFrameNumber, 0)

	fg := Clean(model.Apply(frame, d.cfg.LearningRate))
	minSide := max(1, int(d.cfg.MinContourRatio*float64(frame.Height())))

	boxes := lo.FilterMap(fg.Components(), func(comp mask.Component, _ int) (image.Rectangle, bool) {
		b := comp.Bounds
		return b, b.Dx() >= minSide && b.Dy() >= minSide
	})
	objects := lo.Map(boxes, func(b image.Rectangle, _ int) tracking.Object {
		return tracking.NewObject(b)
	})
	monitoring.Debugf("[ContourDetection] frame %d: %d objects (min side %d)", frameNumber, len(objects), minSide)

	if d.cfg.SaveImages {
		if err := snapshot(d.cfg.FS, d.cfg.ImageDir, "mask_%04d.png", frameNumber, fg.Image()); err != nil {
			return nil, err
		}
	}

	c.Set(pipeline.KeyForegroundMask, fg)
	c.Set(pipeline.KeyContours, boxes)
	c.Set(pipeline.KeyDetectedObjects, objects)
	return c, nil
}

// Clean binarises a raw foreground mask, dropping shadows, then closes
// gaps, removes speckle and grows blobs so one vehicle forms one region.
func Clean(raw *mask.Mask) *mask.Mask {
	fg := raw.Clone()
	fg.Threshold(foregroundCutoff)
	return fg.Close(1).Open(1).Dilate(1).Dilate(1)
}
