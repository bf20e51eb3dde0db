package mask

import "image"

// Component is one 8-connected region of set pixels.
type Component struct {
	Bounds image.Rectangle // half-open, like image.Rect
	Area   int             // number of set pixels
}

// Components labels 8-connected regions in raster order and returns their
// bounding boxes. The scan uses an explicit stack, so large blobs do not
// recurse.
func (m *Mask) Components() []Component {
	seen := make([]bool, len(m.Pix))
	var out []Component
	var stack []int

	for start, v := range m.Pix {
		if v != On || seen[start] {
			continue
		}
		seen[start] = true
		stack = append(stack[:0], start)

		sx, sy := start%m.Width, start/m.Width
		c := Component{Bounds: image.Rect(sx, sy, sx+1, sy+1)}
		for len(stack) > 0 {
			i := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			x, y := i%m.Width, i/m.Width
			c.Area++
			c.Bounds = c.Bounds.Union(image.Rect(x, y, x+1, y+1))

			for dy := -1; dy <= 1; dy++ {
				for dx := -1; dx <= 1; dx++ {
					nx, ny := x+dx, y+dy
					if !m.In(nx, ny) {
						continue
					}
					j := m.Idx(nx, ny)
					if m.Pix[j] == On && !seen[j] {
						seen[j] = true
						stack = append(stack, j)
					}
				}
			}
		}
		out = append(out, c)
	}
	return out
}
