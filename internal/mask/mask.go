package mask

import (
	"fmt"
	"image"
)

// On and Off are the two pixel values a Mask stores.
const (
	On  uint8 = 255
	Off uint8 = 0
)

// Mask is a single-channel raster. Pix is row-major, one byte per pixel.
// Build and the morphology operators only ever write On or Off; raw
// foreground masks may carry intermediate shadow values until Threshold.
type Mask struct {
	Width  int
	Height int
	Pix    []uint8
}

// New returns an all-Off mask of the given size.
func New(width, height int) *Mask {
	if width < 0 {
		width = 0
	}
	if height < 0 {
		height = 0
	}
	return &Mask{Width: width, Height: height, Pix: make([]uint8, width*height)}
}

// Idx returns the Pix offset for (x, y). Callers must check bounds first.
func (m *Mask) Idx(x, y int) int {
	return y*m.Width + x
}

// In reports whether (x, y) is inside the mask bounds.
func (m *Mask) In(x, y int) bool {
	return x >= 0 && y >= 0 && x < m.Width && y < m.Height
}

// At reports whether the pixel at (x, y) is set. Out-of-bounds pixels are unset.
func (m *Mask) At(x, y int) bool {
	if !m.In(x, y) {
		return false
	}
	return m.Pix[m.Idx(x, y)] == On
}

// Set marks or clears a pixel. Out-of-bounds writes are ignored.
func (m *Mask) Set(x, y int, on bool) {
	if !m.In(x, y) {
		return
	}
	if on {
		m.Pix[m.Idx(x, y)] = On
	} else {
		m.Pix[m.Idx(x, y)] = Off
	}
}

// Count returns the number of set pixels.
func (m *Mask) Count() int {
	n := 0
	for _, v := range m.Pix {
		if v == On {
			n++
		}
	}
	return n
}

// Clone returns a deep copy.
func (m *Mask) Clone() *Mask {
	out := &Mask{Width: m.Width, Height: m.Height, Pix: make([]uint8, len(m.Pix))}
	copy(out.Pix, m.Pix)
	return out
}

// Equal reports whether both masks have the same size and pixels.
func (m *Mask) Equal(o *Mask) bool {
	if m == nil || o == nil {
		return m == o
	}
	if m.Width != o.Width || m.Height != o.Height {
		return false
	}
	for i := range m.Pix {
		if m.Pix[i] != o.Pix[i] {
			return false
		}
	}
	return true
}

// Union sets every pixel that is set in o. Both masks must share dimensions.
func (m *Mask) Union(o *Mask) error {
	if m.Width != o.Width || m.Height != o.Height {
		return fmt.Errorf("mask size mismatch: %dx%d vs %dx%d", m.Width, m.Height, o.Width, o.Height)
	}
	for i, v := range o.Pix {
		if v == On {
			m.Pix[i] = On
		}
	}
	return nil
}

// Threshold clears every pixel below min and sets the rest. It is used on
// raw foreground scores where intermediate values mark shadows.
func (m *Mask) Threshold(min uint8) {
	for i, v := range m.Pix {
		if v < min {
			m.Pix[i] = Off
		} else {
			m.Pix[i] = On
		}
	}
}

// Image exposes the mask as a grayscale image sharing the same buffer.
func (m *Mask) Image() *image.Gray {
	return &image.Gray{
		Pix:    m.Pix,
		Stride: m.Width,
		Rect:   image.Rect(0, 0, m.Width, m.Height),
	}
}
