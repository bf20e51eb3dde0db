package mask

// Dilate sets every pixel whose (2r+1)×(2r+1) neighbourhood contains a set
// pixel. It returns a new mask.
func (m *Mask) Dilate(r int) *Mask {
	return m.morph(r, true)
}

// Erode keeps a pixel set only when its whole neighbourhood is set.
// Neighbours outside the frame are treated as set so edges do not shrink.
func (m *Mask) Erode(r int) *Mask {
	return m.morph(r, false)
}

// Open is erosion followed by dilation; it removes specks smaller than the kernel.
func (m *Mask) Open(r int) *Mask {
	return m.Erode(r).Dilate(r)
}

// Close is dilation followed by erosion; it fills small holes.
func (m *Mask) Close(r int) *Mask {
	return m.Dilate(r).Erode(r)
}

func (m *Mask) morph(r int, dilate bool) *Mask {
	if r <= 0 {
		return m.Clone()
	}
	out := New(m.Width, m.Height)
	for y := 0; y < m.Height; y++ {
		for x := 0; x < m.Width; x++ {
			out.Pix[out.Idx(x, y)] = m.kernel(x, y, r, dilate)
		}
	}
	return out
}

func (m *Mask) kernel(x, y, r int, dilate bool) uint8 {
	for dy := -r; dy <= r; dy++ {
		for dx := -r; dx <= r; dx++ {
			nx, ny := x+dx, y+dy
			if !m.In(nx, ny) {
				continue
			}
			set := m.Pix[m.Idx(nx, ny)] == On
			if dilate && set {
				return On
			}
			if !dilate && !set {
				return Off
			}
		}
	}
	if dilate {
		return Off
	}
	return On
}
