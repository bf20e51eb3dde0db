package background

import (
	"errors"
	"fmt"

	"github.com/banshee-data/traffic.count/internal/monitoring"
	"github.com/banshee-data/traffic.count/internal/video"
)

// TrainingLearningRate is the fixed, slow adaptation rate used while
// warming the model up.
const TrainingLearningRate = 0.001

// DefaultTrainingFrames is the number of frames fed to the model before
// live processing.
const DefaultTrainingFrames = 500

// Train feeds frames from src into model until maxFrames frames have been
// applied or the stream ends, whichever comes first. It returns the number
// of frames applied, which is min(maxFrames, stream length). Frames are
// dropped after use. The caller closes and reopens src afterwards so live
// processing starts from the first frame.
func Train(model Model, src video.Source, maxFrames int) (int, error) {
	monitoring.Logf("[Background] training on up to %d frames", maxFrames)

	applied := 0
	for applied < maxFrames {
		frame, err := src.Read()
		if errors.Is(err, video.ErrEndOfStream) {
			break
		}
		if err != nil {
			return applied, fmt.Errorf("training read after %d frames: %w", applied, err)
		}
		model.Apply(frame, TrainingLearningRate)
		applied++
	}

	monitoring.Logf("[Background] training applied %d frames", applied)
	return applied, nil
}
