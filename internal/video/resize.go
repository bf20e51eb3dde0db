package video

import (
	"github.com/disintegration/imaging"
)

// Resized downsizes every frame of an underlying source to a fixed width,
// keeping the aspect ratio. Processing a smaller picture keeps the per-pixel
// background model affordable on high resolution input.
type Resized struct {
	Source
	info Info
}

// NewResized wraps src. A width of zero, or one not smaller than the source
// width, returns src unchanged.
func NewResized(src Source, width int) Source {
	in := src.Info()
	if width <= 0 || in.Width <= 0 || width >= in.Width {
		return src
	}
	out := in
	out.Width = width
	out.Height = max(1, in.Height*width/in.Width)
	return &Resized{Source: src, info: out}
}

// ResizedOpener applies NewResized to every source opened by open.
func ResizedOpener(open Opener, width int) Opener {
	return func() (Source, error) {
		src, err := open()
		if err != nil {
			return nil, err
		}
		return NewResized(src, width), nil
	}
}

// Info implements Source.
func (r *Resized) Info() Info { return r.info }

// Read implements Source.
func (r *Resized) Read() (*Frame, error) {
	f, err := r.Source.Read()
	if err != nil {
		return nil, err
	}
	img := imaging.Resize(f.Image, r.info.Width, r.info.Height, imaging.Linear)
	return NewFrame(f.Index, img), nil
}
