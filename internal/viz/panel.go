package viz

import (
	"image"
	"image/color"
	"strings"
)

type role int

const (
	roleField role = iota
	roleTrace
	roleBody
	roleMarker
	numRoles
)

// Panel stacks one canvas per role. Later roles draw over earlier ones.
type Panel struct {
	Width, Height int
	layers        [numRoles]*Canvas
}

func NewPanel(w, h int) *Panel {
	p := &Panel{Width: w, Height: h}
	for i := range p.layers {
		p.layers[i] = NewCanvas(w, h)
	}
	return p
}

func (p *Panel) layer(r role) *Canvas { return p.layers[r] }

// topRole returns the highest role with dots in the cell, or -1.
func (p *Panel) topRole(row, col int) role {
	for r := numRoles - 1; r >= 0; r-- {
		if !p.layers[r].Empty(row, col) {
			return r
		}
	}
	return -1
}

// Render merges the layers into colored Braille text. A cell takes the
// color of its topmost non-empty layer.
func (p *Panel) Render(s Styles) string {
	var b strings.Builder
	var run strings.Builder
	for row := 0; row < p.Height; row++ {
		cur := role(-2)
		flush := func() {
			if run.Len() == 0 {
				return
			}
			if cur >= 0 {
				b.WriteString(s.layers[cur].Render(run.String()))
			} else {
				b.WriteString(run.String())
			}
			run.Reset()
		}
		for col := 0; col < p.Width; col++ {
			r := p.topRole(row, col)
			if r != cur {
				flush()
				cur = r
			}
			var cell rune = brailleBlank
			for _, c := range p.layers {
				cell |= c.Grid[row][col]
			}
			run.WriteRune(cell)
		}
		flush()
		if row < p.Height-1 {
			b.WriteByte('\n')
		}
	}
	return b.String()
}

// Plain renders the merged layers without color.
func (p *Panel) Plain() string {
	merged := NewCanvas(p.Width, p.Height)
	for _, c := range p.layers {
		for row := range c.Grid {
			for col := range c.Grid[row] {
				merged.Grid[row][col] |= c.Grid[row][col]
			}
		}
	}
	return merged.String()
}

// Image rasterizes the panel with each sub-pixel drawn as a scale x scale
// block. Palette index 0 is the background and index r+1 the color of role r.
func (p *Panel) Image(scale int, pal color.Palette) *image.Paletted {
	if scale < 1 {
		scale = 1
	}
	w := p.Width * 2 * scale
	h := p.Height * 4 * scale
	img := image.NewPaletted(image.Rect(0, 0, w, h), pal)
	p.draw(img, 0, scale)
	return img
}

// draw paints the panel into img starting at column offset x0.
func (p *Panel) draw(img *image.Paletted, x0, scale int) {
	for r := role(0); r < numRoles; r++ {
		c := p.layers[r]
		idx := uint8(r + 1)
		for y := 0; y < c.SubHeight(); y++ {
			for x := 0; x < c.SubWidth(); x++ {
				if !c.Pixel(x, y) {
					continue
				}
				for py := 0; py < scale; py++ {
					for px := 0; px < scale; px++ {
						img.SetColorIndex(x0+x*scale+px, y*scale+py, idx)
					}
				}
			}
		}
	}
}
