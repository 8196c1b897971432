package analysis

import (
	"math"
	"strings"

	"github.com/san-kum/pendulum/internal/dynamo"
)

// PhasePortrait2D holds data for a 2D phase space plot
type PhasePortrait2D struct {
	XIndex, YIndex int
	Points         []struct{ X, Y float64 }
}

// PhasePortraitFromTrajectory projects the trajectory onto two state
// components, keeping every stride-th sample.
func PhasePortraitFromTrajectory(traj *dynamo.Trajectory, xIdx, yIdx, stride int) *PhasePortrait2D {
	if traj.Len() == 0 || xIdx >= len(traj.States[0]) || yIdx >= len(traj.States[0]) {
		return nil
	}
	if stride < 1 {
		stride = 1
	}

	portrait := &PhasePortrait2D{
		XIndex: xIdx,
		YIndex: yIdx,
		Points: make([]struct{ X, Y float64 }, 0, traj.Len()/stride+1),
	}

	for i := 0; i < traj.Len(); i += stride {
		x := traj.States[i]
		portrait.Points = append(portrait.Points, struct{ X, Y float64 }{
			X: x[xIdx],
			Y: x[yIdx],
		})
	}

	return portrait
}

// Glyphs of the ASCII portrait, from the top layer down.
const (
	GlyphStart  = 'S'
	GlyphEnd    = 'E'
	GlyphStable = 'o'
	GlyphSaddle = 'x'
	GlyphTrace  = '•'
	GlyphFixed  = '+'
)

// arrows are indexed by screen angle in steps of 45°, counterclockwise
// from east.
var arrows = []rune{'→', '↗', '↑', '↖', '←', '↙', '↓', '↘'}

// PortraitContext is drawn behind a trace: the direction field, stable
// rest points and saddles. Any of them may be empty.
type PortraitContext struct {
	Field   *Field
	Stable  []dynamo.State
	Saddles []dynamo.State
}

// asciiView maps phase coordinates onto a width x height character grid.
type asciiView struct {
	minX, minY     float64
	rangeX, rangeY float64
	width, height  int
}

func newASCIIView(points []struct{ X, Y float64 }, width, height int) asciiView {
	minX, maxX := points[0].X, points[0].X
	minY, maxY := points[0].Y, points[0].Y
	for _, p := range points {
		minX, maxX = math.Min(minX, p.X), math.Max(maxX, p.X)
		minY, maxY = math.Min(minY, p.Y), math.Max(maxY, p.Y)
	}

	rangeX, rangeY := maxX-minX, maxY-minY
	if rangeX == 0 {
		rangeX = 1
	}
	if rangeY == 0 {
		rangeY = 1
	}
	// 10% margin on every side
	return asciiView{
		minX:   minX - rangeX*0.1,
		minY:   minY - rangeY*0.1,
		rangeX: rangeX * 1.2,
		rangeY: rangeY * 1.2,
		width:  width,
		height: height,
	}
}

// cell returns the row and column of (x, y), or false outside the view.
func (v asciiView) cell(x, y float64) (row, col int, ok bool) {
	fx := (x - v.minX) / v.rangeX
	fy := (y - v.minY) / v.rangeY
	if !(fx >= 0 && fx <= 1 && fy >= 0 && fy <= 1) {
		return 0, 0, false
	}
	col = int(fx * float64(v.width-1))
	row = v.height - 1 - int(fy*float64(v.height-1))
	return row, col, true
}

// arrow picks the glyph closest to the direction (u, w) as it appears on
// screen, where one unit spans a different number of cells on each axis.
func (v asciiView) arrow(u, w float64) rune {
	dx := u / v.rangeX * float64(v.width)
	dy := w / v.rangeY * float64(v.height)
	k := int(math.Round(math.Atan2(dy, dx) / (math.Pi / 4)))
	return arrows[(k%8+8)%8]
}

// PhasePortraitToASCII renders portrait on a width x height grid scaled to
// the trace, with axes through the origin. bg may be nil. Field cells that
// fall inside the view show their direction, rest points are marked and
// the first and last samples are labelled.
func PhasePortraitToASCII(portrait *PhasePortrait2D, width, height int, bg *PortraitContext) string {
	if portrait == nil || len(portrait.Points) == 0 || width < 2 || height < 2 {
		return ""
	}
	view := newASCIIView(portrait.Points, width, height)

	canvas := make([][]rune, height)
	for i := range canvas {
		canvas[i] = []rune(strings.Repeat(" ", width))
	}
	put := func(x, y float64, r rune) {
		if row, col, ok := view.cell(x, y); ok {
			canvas[row][col] = r
		}
	}

	if bg != nil && bg.Field != nil {
		for _, cells := range bg.Field.Cells {
			for _, c := range cells {
				switch {
				case !bg.Field.Visible(c):
				case c.Fixed:
					put(c.Theta, c.Omega, GlyphFixed)
				default:
					put(c.Theta, c.Omega, view.arrow(c.U, c.V))
				}
			}
		}
	}

	if row, _, ok := view.cell(view.minX, 0); ok {
		for col := range canvas[row] {
			if canvas[row][col] == ' ' {
				canvas[row][col] = '─'
			}
		}
	}
	if _, col, ok := view.cell(0, view.minY); ok {
		for row := range canvas {
			if canvas[row][col] == ' ' {
				canvas[row][col] = '│'
			}
		}
	}

	for _, p := range portrait.Points {
		put(p.X, p.Y, GlyphTrace)
	}
	if bg != nil {
		for _, x := range bg.Stable {
			put(x[0], x[1], GlyphStable)
		}
		for _, x := range bg.Saddles {
			put(x[0], x[1], GlyphSaddle)
		}
	}
	first, last := portrait.Points[0], portrait.Points[len(portrait.Points)-1]
	put(last.X, last.Y, GlyphEnd)
	put(first.X, first.Y, GlyphStart)

	var sb strings.Builder
	for _, row := range canvas {
		sb.WriteString(string(row))
		sb.WriteRune('\n')
	}
	return sb.String()
}
