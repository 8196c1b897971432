package viz

import (
	"math"
	"strings"
)

// Braille Patterns: 2x4 dots
// 1 4
// 2 5
// 3 6
// 7 8
//
// Unicode offset 0x2800
var pixelMap = [4][2]int{
	{0x1, 0x8},
	{0x2, 0x10},
	{0x4, 0x20},
	{0x40, 0x80},
}

const brailleBlank = 0x2800

// Canvas is a grid of Braille cells. Drawing happens in sub-pixel
// coordinates, (Width*2) x (Height*4), with y growing downwards.
type Canvas struct {
	Width, Height int
	Grid          [][]rune
}

func NewCanvas(w, h int) *Canvas {
	c := &Canvas{
		Width:  w,
		Height: h,
		Grid:   make([][]rune, h),
	}
	for i := range c.Grid {
		c.Grid[i] = make([]rune, w)
		for j := range c.Grid[i] {
			c.Grid[i][j] = brailleBlank
		}
	}
	return c
}

// SubWidth and SubHeight give the canvas size in sub-pixels.
func (c *Canvas) SubWidth() int  { return c.Width * 2 }
func (c *Canvas) SubHeight() int { return c.Height * 4 }

func (c *Canvas) Set(x, y int) {
	if x < 0 || y < 0 {
		return
	}

	col := x / 2
	row := y / 4
	if col >= c.Width || row >= c.Height {
		return
	}

	c.Grid[row][col] |= rune(pixelMap[y%4][x%2])
}

// Pixel reports whether the sub-pixel at (x, y) is set.
func (c *Canvas) Pixel(x, y int) bool {
	if x < 0 || y < 0 {
		return false
	}
	col := x / 2
	row := y / 4
	if col >= c.Width || row >= c.Height {
		return false
	}
	return c.Grid[row][col]&rune(pixelMap[y%4][x%2]) != 0
}

// Empty reports whether a cell has no dots.
func (c *Canvas) Empty(row, col int) bool {
	return c.Grid[row][col] == brailleBlank
}

func (c *Canvas) Clear() {
	for i := range c.Grid {
		for j := range c.Grid[i] {
			c.Grid[i][j] = brailleBlank
		}
	}
}

// DrawLine draws a line using Bresenham's algorithm
func (c *Canvas) DrawLine(x0, y0, x1, y1 int) {
	dx := absInt(x1 - x0)
	dy := absInt(y1 - y0)
	sx := -1
	if x0 < x1 {
		sx = 1
	}
	sy := -1
	if y0 < y1 {
		sy = 1
	}
	err := dx - dy

	for {
		c.Set(x0, y0)
		if x0 == x1 && y0 == y1 {
			break
		}
		e2 := 2 * err
		if e2 > -dy {
			err -= dy
			x0 += sx
		}
		if e2 < dx {
			err += dx
			y0 += sy
		}
	}
}

// DrawDisc fills a disc of radius r sub-pixels.
func (c *Canvas) DrawDisc(cx, cy, r int) {
	for dy := -r; dy <= r; dy++ {
		for dx := -r; dx <= r; dx++ {
			if dx*dx+dy*dy <= r*r {
				c.Set(cx+dx, cy+dy)
			}
		}
	}
}

func (c *Canvas) String() string {
	var b strings.Builder
	for _, row := range c.Grid {
		b.WriteString(string(row))
		b.WriteByte('\n')
	}
	return b.String()
}

// Viewport maps a world rectangle onto a sub-pixel rectangle of a canvas.
type Viewport struct {
	XMin, XMax, YMin, YMax float64
	Left, Top              int
	Width, Height          int
}

// FillViewport stretches the world rectangle over the whole canvas.
func FillViewport(c *Canvas, xMin, xMax, yMin, yMax float64) Viewport {
	return Viewport{
		XMin: xMin, XMax: xMax, YMin: yMin, YMax: yMax,
		Width:  c.SubWidth(),
		Height: c.SubHeight(),
	}
}

// SquareViewport maps [-half, half]² onto the largest centered square of
// the canvas, so that both axes share one scale.
func SquareViewport(c *Canvas, half float64) Viewport {
	side := min(c.SubWidth(), c.SubHeight())
	return Viewport{
		XMin: -half, XMax: half, YMin: -half, YMax: half,
		Left:   (c.SubWidth() - side) / 2,
		Top:    (c.SubHeight() - side) / 2,
		Width:  side,
		Height: side,
	}
}

// Project returns the sub-pixel nearest to the world point (x, y).
func (v Viewport) Project(x, y float64) (int, int) {
	px := (x - v.XMin) / (v.XMax - v.XMin) * float64(v.Width-1)
	py := (v.YMax - y) / (v.YMax - v.YMin) * float64(v.Height-1)
	return v.Left + int(math.Round(px)), v.Top + int(math.Round(py))
}

// Contains reports whether (x, y) lies inside the world rectangle.
func (v Viewport) Contains(x, y float64) bool {
	return x >= v.XMin && x <= v.XMax && y >= v.YMin && y <= v.YMax
}

func absInt(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
