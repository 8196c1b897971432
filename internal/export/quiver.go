package export

import (
	"image/color"
	"math"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette"
	"gonum.org/v1/plot/palette/moreland"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/san-kum/pendulum/internal/analysis"
)

// Quiver draws a sampled direction field as equal-length arrows anchored at
// their tails. Magnitude is shown by color only.
type Quiver struct {
	Field    *analysis.Field
	ColorMap palette.ColorMap

	// Scale is the arrow length as a fraction of the smaller cell spacing.
	Scale     float64
	LineWidth vg.Length
}

func NewQuiver(f *analysis.Field) *Quiver {
	cm := moreland.ExtendedKindlmann()
	cm.SetAlpha(0.8)
	lo, hi := f.MinMagnitude(), f.MaxMagnitude()
	if math.IsInf(lo, 0) || math.IsInf(hi, 0) {
		lo, hi = 0, 1
	}
	if hi <= lo {
		hi = lo + 1
	}
	cm.SetMin(lo)
	cm.SetMax(hi)
	return &Quiver{
		Field:     f,
		ColorMap:  cm,
		Scale:     0.8,
		LineWidth: vg.Points(1),
	}
}

func (q *Quiver) DataRange() (xmin, xmax, ymin, ymax float64) {
	th, om := q.Field.ThetaAxis, q.Field.OmegaAxis
	return th[0], th[len(th)-1], om[0], om[len(om)-1]
}

// Color maps a magnitude onto the color map, clamping to its range.
func (q *Quiver) Color(mag float64) color.Color {
	if math.IsNaN(mag) {
		return color.Gray{Y: 128}
	}
	mag = math.Max(q.ColorMap.Min(), math.Min(mag, q.ColorMap.Max()))
	c, err := q.ColorMap.At(mag)
	if err != nil {
		return color.Gray{Y: 128}
	}
	return c
}

func (q *Quiver) Plot(c draw.Canvas, plt *plot.Plot) {
	trX, trY := plt.Transforms(&c)
	rows, cols := q.Field.Dims()

	cellW := (trX(q.Field.ThetaAxis[cols-1]) - trX(q.Field.ThetaAxis[0])) / vg.Length(cols-1)
	cellH := (trY(q.Field.OmegaAxis[rows-1]) - trY(q.Field.OmegaAxis[0])) / vg.Length(rows-1)
	length := vg.Length(q.Scale) * vg.Length(math.Min(math.Abs(float64(cellW)), math.Abs(float64(cellH))))
	head := length * 0.3

	for _, row := range q.Field.Cells {
		for _, v := range row {
			if !q.Field.Visible(v) || math.IsNaN(v.U) || math.IsNaN(v.V) {
				continue
			}
			x, y := trX(v.Theta), trY(v.Omega)
			if !c.Contains(vg.Point{X: x, Y: y}) {
				continue
			}
			sty := draw.LineStyle{Color: q.Color(v.Magnitude), Width: q.LineWidth}
			if v.U == 0 && v.V == 0 {
				c.DrawGlyph(draw.GlyphStyle{Color: sty.Color, Radius: q.LineWidth, Shape: draw.CircleGlyph{}}, vg.Point{X: x, Y: y})
				continue
			}

			tx := x + vg.Length(v.U)*length
			ty := y + vg.Length(v.V)*length
			c.StrokeLine2(sty, x, y, tx, ty)

			angle := math.Atan2(v.V, v.U)
			for _, side := range []float64{-1, 1} {
				a := angle + math.Pi - side*math.Pi/7
				hx := tx + vg.Length(math.Cos(a))*head
				hy := ty + vg.Length(math.Sin(a))*head
				c.StrokeLine2(sty, tx, ty, hx, hy)
			}
		}
	}
}
