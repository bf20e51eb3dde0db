package video

import (
	"image"
	"image/draw"
)

// Frame is one decoded picture. Image is owned by whoever holds the Frame;
// stages that need to draw on it must Clone first.
type Frame struct {
	Index int // raw decode index within the current open cycle
	Image *image.RGBA
}

// NewFrame converts any image into an RGBA frame.
func NewFrame(index int, img image.Image) *Frame {
	return &Frame{Index: index, Image: ToRGBA(img)}
}

// Width returns the frame width in pixels.
func (f *Frame) Width() int { return f.Image.Bounds().Dx() }

// Height returns the frame height in pixels.
func (f *Frame) Height() int { return f.Image.Bounds().Dy() }

// Clone returns a deep copy of the frame.
func (f *Frame) Clone() *Frame {
	dst := image.NewRGBA(f.Image.Bounds())
	copy(dst.Pix, f.Image.Pix)
	return &Frame{Index: f.Index, Image: dst}
}

// ToRGBA returns img as an *image.RGBA rooted at the origin, copying only
// when the concrete type or bounds differ.
func ToRGBA(img image.Image) *image.RGBA {
	if rgba, ok := img.(*image.RGBA); ok && rgba.Bounds().Min == (image.Point{}) {
		return rgba
	}
	b := img.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)
	return dst
}

// Info describes an opened source. It is read once after open.
type Info struct {
	Width      int
	Height     int
	FrameRate  float64
	FrameCount int // 0 when the container does not report it
}
