package background

import (
	"fmt"

	"github.com/banshee-data/traffic.count/internal/mask"
	"github.com/banshee-data/traffic.count/internal/monitoring"
	"github.com/banshee-data/traffic.count/internal/video"
)

// Model is an incrementally updated background estimate.
//
// Apply folds frame into the model with the given learning rate and returns
// the foreground classification of that frame: mask.On for foreground,
// ShadowValue for shadows (when enabled), mask.Off for background. A
// negative learning rate selects an automatic rate derived from the history
// length.
type Model interface {
	Apply(frame *video.Frame, learningRate float64) *mask.Mask
}

// ShadowValue marks pixels classified as shadow in raw foreground masks.
const ShadowValue uint8 = 127

// Params configures the Gaussian background model.
type Params struct {
	History           int     // frames used by the automatic learning rate (default: 500)
	VarianceThreshold float64 // squared-sigma distance that makes a pixel foreground (default: 16)
	InitialVariance   float64 // variance assigned when a pixel is seeded (default: 225)
	MinVariance       float64 // lower variance clamp (default: 4)
	MaxVariance       float64 // upper variance clamp (default: 5625)
	DetectShadows     bool    // emit ShadowValue for darker, same-chroma pixels (default: true)
	ShadowRatio       float64 // minimum brightness ratio for a shadow (default: 0.5)
}

// DefaultParams mirrors the usual MOG2 defaults.
func DefaultParams() Params {
	return Params{
		History:           500,
		VarianceThreshold: 16,
		InitialVariance:   15 * 15,
		MinVariance:       4,
		MaxVariance:       75 * 75,
		DetectShadows:     true,
		ShadowRatio:       0.5,
	}
}

// Validate checks parameter ranges.
func (p Params) Validate() error {
	if p.History <= 0 {
		return fmt.Errorf("History must be positive, got %d", p.History)
	}
	if p.VarianceThreshold <= 0 {
		return fmt.Errorf("VarianceThreshold must be positive, got %f", p.VarianceThreshold)
	}
	if p.MinVariance <= 0 || p.MaxVariance < p.MinVariance {
		return fmt.Errorf("variance clamp [%f, %f] is invalid", p.MinVariance, p.MaxVariance)
	}
	if p.ShadowRatio < 0 || p.ShadowRatio >= 1 {
		return fmt.Errorf("ShadowRatio must be in [0, 1), got %f", p.ShadowRatio)
	}
	return nil
}

// Gaussian keeps a running mean and variance of luma per pixel. Pixels are
// seeded from their first observation, so the first applied frame is always
// classified as background.
type Gaussian struct {
	Params Params

	width, height int
	mean          []float32
	variance      []float32
	frames        int
}

// NewGaussian returns an empty model. The frame size is taken from the first
// applied frame.
func NewGaussian(p Params) (*Gaussian, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &Gaussian{Params: p}, nil
}

// Frames returns how many frames have been applied since the model was seeded.
func (g *Gaussian) Frames() int { return g.frames }

// Mean returns the background luma estimate at (x, y).
func (g *Gaussian) Mean(x, y int) float32 {
	return g.mean[y*g.width+x]
}

// Variance returns the variance estimate at (x, y).
func (g *Gaussian) Variance(x, y int) float32 {
	return g.variance[y*g.width+x]
}

// Reset drops all learned state.
func (g *Gaussian) Reset() {
	g.width, g.height, g.frames = 0, 0, 0
	g.mean, g.variance = nil, nil
}

// Apply implements Model.
func (g *Gaussian) Apply(frame *video.Frame, learningRate float64) *mask.Mask {
	w, h := frame.Width(), frame.Height()
	fg := mask.New(w, h)

	if g.frames > 0 && (w != g.width || h != g.height) {
		monitoring.Logf("[Background] frame size changed %dx%d -> %dx%d, reseeding", g.width, g.height, w, h)
		g.Reset()
	}
	if g.frames == 0 {
		g.seed(frame)
		return fg
	}

	alpha := learningRate
	if alpha < 0 {
		alpha = 1 / float64(min(g.frames+1, g.Params.History))
	}
	if alpha > 1 {
		alpha = 1
	}
	a := float32(alpha)
	thr := float32(g.Params.VarianceThreshold)
	minVar, maxVar := float32(g.Params.MinVariance), float32(g.Params.MaxVariance)

	img := frame.Image
	for y := 0; y < h; y++ {
		row := img.Pix[y*img.Stride:]
		for x := 0; x < w; x++ {
			i := y*w + x
			l := luma(row[x*4:])
			d := l - g.mean[i]
			d2 := d * d
			v := g.variance[i]

			if d2 > thr*v {
				fg.Pix[i] = mask.On
				if g.Params.DetectShadows && g.isShadow(l, g.mean[i]) {
					fg.Pix[i] = ShadowValue
				}
			}

			g.mean[i] += a * d
			v += a * (d2 - v)
			g.variance[i] = max(minVar, min(maxVar, v))
		}
	}
	g.frames++
	return fg
}

func (g *Gaussian) seed(frame *video.Frame) {
	g.width, g.height = frame.Width(), frame.Height()
	n := g.width * g.height
	g.mean = make([]float32, n)
	g.variance = make([]float32, n)
	img := frame.Image
	for y := 0; y < g.height; y++ {
		row := img.Pix[y*img.Stride:]
		for x := 0; x < g.width; x++ {
			i := y*g.width + x
			g.mean[i] = luma(row[x*4:])
			g.variance[i] = float32(g.Params.InitialVariance)
		}
	}
	g.frames = 1
}

// isShadow reports a pixel that is darker than the background by a bounded
// ratio, which is how cast shadows of vehicles typically look in luma.
func (g *Gaussian) isShadow(l, mean float32) bool {
	if mean <= 0 || l >= mean {
		return false
	}
	ratio := l / mean
	return ratio >= float32(g.Params.ShadowRatio)
}

// luma uses the BT.601 weights on an RGBA pixel.
func luma(px []uint8) float32 {
	return 0.299*float32(px[0]) + 0.587*float32(px[1]) + 0.114*float32(px[2])
}
