package stages

import (
	"fmt"
	"image"
	"image/color"
	"math/rand/v2"
	"sync"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"github.com/lucasb-eyer/go-colorful"
	"golang.org/x/image/font/gofont/goregular"

	"github.com/banshee-data/traffic.count/internal/fsutil"
	"github.com/banshee-data/traffic.count/internal/mask"
	"github.com/banshee-data/traffic.count/internal/pipeline"
	"github.com/banshee-data/traffic.count/internal/tracking"
	"github.com/banshee-data/traffic.count/internal/video"
)

var (
	zoneColor = color.RGBA{R: 42, G: 183, B: 66, A: 255}
	boxColor  = color.RGBA{R: 0, G: 192, B: 255, A: 255}
	textColor = color.RGBA{R: 255, G: 255, B: 255, A: 255}
)

const (
	zoneAlpha          = 0.3
	defaultPaletteSize = 16
	labelSize          = 16
)

var overlayFont = sync.OnceValue(func() *truetype.Font {
	f, err := truetype.Parse(goregular.TTF)
	if err != nil {
		panic(err)
	}
	return f
})

// VisualizerConfig wires the Visualizer.
type VisualizerConfig struct {
	Sink        video.Sink // annotated frames are written here when set
	Rand        *rand.Rand // process-wide source used for the path palette
	PaletteSize int

	SaveImages bool
	ImageDir   string
	FS         fsutil.FileSystem
}

// Visualizer draws zones, paths, boxes and the running total onto a copy of
// the frame and hands it to the output sink.
type Visualizer struct {
	cfg     VisualizerConfig
	palette []color.Color
	last    *image.RGBA
}

// NewVisualizer draws the path palette from cfg.Rand.
func NewVisualizer(cfg VisualizerConfig) (*Visualizer, error) {
	if cfg.Rand == nil {
		return nil, fmt.Errorf("visualizer: Rand is required")
	}
	if cfg.PaletteSize <= 0 {
		cfg.PaletteSize = defaultPaletteSize
	}
	if cfg.FS == nil {
		cfg.FS = fsutil.OSFileSystem{}
	}
	return &Visualizer{cfg: cfg, palette: Palette(cfg.Rand, cfg.PaletteSize)}, nil
}

// Palette returns n saturated colours with hues drawn from r.
func Palette(r *rand.Rand, n int) []color.Color {
	out := make([]color.Color, n)
	for i := range out {
		out[i] = colorful.Hsv(r.Float64()*360, 0.6+0.4*r.Float64(), 0.8+0.2*r.Float64()).Clamped()
	}
	return out
}

func (v *Visualizer) Name() string { return "visualizer" }

// Last returns the most recent annotated frame.
func (v *Visualizer) Last() *image.RGBA { return v.last }

// Apply implements pipeline.Stage.
func (v *Visualizer) Apply(c *pipeline.Context) (*pipeline.Context, error) {
	frame, err := need[*video.Frame](c, pipeline.KeyFrame)
	if err != nil {
		return nil, err
	}
	out := frame.Clone()

	if zones, ok := pipeline.Value[[]*mask.Mask](c, pipeline.KeyZoneMasks); ok {
		for _, z := range zones {
			tint(out.Image, z, zoneColor, zoneAlpha)
		}
	}

	dc := gg.NewContextForRGBA(out.Image)
	paths := pipeline.ValueOr[[]tracking.Path](c, pipeline.KeyPaths, nil)
	for i, p := range paths {
		v.drawPath(dc, p, v.palette[i%len(v.palette)])
	}
	for _, b := range pipeline.ValueOr[[]image.Rectangle](c, pipeline.KeyContours, nil) {
		dc.DrawRectangle(float64(b.Min.X), float64(b.Min.Y), float64(b.Dx()), float64(b.Dy()))
		dc.SetColor(boxColor)
		dc.SetLineWidth(1)
		dc.Stroke()
	}

	counts := pipeline.ValueOr(c, pipeline.KeyCounts, tracking.Counts{})
	dc.SetFontFace(truetype.NewFace(overlayFont(), &truetype.Options{Size: labelSize}))
	dc.SetColor(textColor)
	dc.DrawString(fmt.Sprintf("Vehicles passed: %d", counts.Total), 30, 30)

	v.last = out.Image
	if v.cfg.Sink != nil {
		if err := v.cfg.Sink.Write(out); err != nil {
			return nil, fmt.Errorf("write output frame: %w", err)
		}
	}
	if v.cfg.SaveImages {
		n := pipeline.ValueOr(c, pipeline.KeyFrameNumber, 0)
		if err := snapshot(v.cfg.FS, v.cfg.ImageDir, "processed_%04d.png", n, out.Image); err != nil {
			return nil, err
		}
	}
	return c, nil
}

func (v *Visualizer) drawPath(dc *gg.Context, p tracking.Path, col color.Color) {
	dc.SetColor(col)
	dc.SetLineWidth(1)
	for i, o := range p {
		x, y := float64(o.Centroid.X), float64(o.Centroid.Y)
		if i == 0 {
			dc.MoveTo(x, y)
		} else {
			dc.LineTo(x, y)
		}
	}
	dc.Stroke()
	for _, o := range p {
		dc.DrawCircle(float64(o.Centroid.X), float64(o.Centroid.Y), 2)
		dc.Fill()
	}
}

// tint blends col into img wherever m is set.
func tint(img *image.RGBA, m *mask.Mask, col color.RGBA, alpha float64) {
	b := img.Bounds()
	for y := 0; y < min(b.Dy(), m.Height); y++ {
		for x := 0; x < min(b.Dx(), m.Width); x++ {
			if !m.At(x, y) {
				continue
			}
			i := img.PixOffset(x, y)
			px := img.Pix[i : i+3 : i+3]
			px[0] = blend(px[0], col.R, alpha)
			px[1] = blend(px[1], col.G, alpha)
			px[2] = blend(px[2], col.B, alpha)
		}
	}
}

func blend(dst, src uint8, alpha float64) uint8 {
	return uint8(min(255, float64(dst)+alpha*float64(src)))
}
