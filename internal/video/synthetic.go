package video

import (
	"image"
	"image/color"
	"image/draw"
)

// SyntheticSource replays an in-memory frame list. Each Read hands out a
// clone so callers may mutate frames freely.
type SyntheticSource struct {
	info   Info
	frames []*image.RGBA
	next   int
	closed bool
}

// NewSyntheticSource builds a source over imgs at the given frame rate. All
// images must share the dimensions of the first one.
func NewSyntheticSource(frameRate float64, imgs ...*image.RGBA) *SyntheticSource {
	s := &SyntheticSource{frames: imgs, info: Info{FrameRate: frameRate, FrameCount: len(imgs)}}
	if len(imgs) > 0 {
		s.info.Width = imgs[0].Bounds().Dx()
		s.info.Height = imgs[0].Bounds().Dy()
	}
	return s
}

// SyntheticOpener returns an Opener that starts a new cursor over the same
// frames on every call.
func SyntheticOpener(frameRate float64, imgs ...*image.RGBA) Opener {
	return func() (Source, error) {
		return NewSyntheticSource(frameRate, imgs...), nil
	}
}

// Info implements Source.
func (s *SyntheticSource) Info() Info { return s.info }

// Read implements Source.
func (s *SyntheticSource) Read() (*Frame, error) {
	if s.closed || s.next >= len(s.frames) {
		return nil, ErrEndOfStream
	}
	src := s.frames[s.next]
	dst := image.NewRGBA(src.Bounds())
	copy(dst.Pix, src.Pix)
	f := &Frame{Index: s.next, Image: dst}
	s.next++
	return f, nil
}

// Close implements Source.
func (s *SyntheticSource) Close() error {
	s.closed = true
	return nil
}

// BlankImage returns a width×height image filled with c.
func BlankImage(width, height int, c color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(img, img.Bounds(), &image.Uniform{C: c}, image.Point{}, draw.Src)
	return img
}

// MovingBlock renders n frames of a static grey road with a bright block
// travelling from start by step pixels per frame. It drives the demo mode and
// end-to-end tests.
func MovingBlock(width, height, n int, block image.Rectangle, step image.Point) []*image.RGBA {
	road := color.RGBA{R: 60, G: 60, B: 60, A: 255}
	car := color.RGBA{R: 240, G: 240, B: 240, A: 255}

	out := make([]*image.RGBA, n)
	for i := range out {
		img := BlankImage(width, height, road)
		b := block.Add(image.Pt(step.X*i, step.Y*i))
		draw.Draw(img, b.Intersect(img.Bounds()), &image.Uniform{C: car}, image.Point{}, draw.Src)
		out[i] = img
	}
	return out
}
