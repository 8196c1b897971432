package viz

import (
	"fmt"
	"image"
	"math"

	"github.com/san-kum/pendulum/internal/analysis"
	"github.com/san-kum/pendulum/internal/dynamo"
	"github.com/san-kum/pendulum/internal/physics"
)

// panelGap is the width in sub-pixels between panels in rendered frames.
const panelGap = 4

// Scene draws the frames of a run: the phase trace over the direction field
// and the swinging pendulum. Frame i shows the trajectory up to sample i.
type Scene struct {
	traj   *dynamo.Trajectory
	field  *analysis.Field
	pend   *physics.Pendulum
	width  int
	height int

	phaseView Viewport
	fieldDots *Canvas
}

// NewScene prepares panels of w x h cells each.
func NewScene(traj *dynamo.Trajectory, field *analysis.Field, pend *physics.Pendulum, w, h int) (*Scene, error) {
	if traj.Len() == 0 {
		return nil, fmt.Errorf("empty trajectory: %w", dynamo.ErrInvalidState)
	}
	if field == nil || pend == nil {
		return nil, fmt.Errorf("scene needs a field and a pendulum: %w", dynamo.ErrInvalidConfig)
	}
	if w < 8 || h < 4 {
		return nil, fmt.Errorf("panel too small (%dx%d): %w", w, h, dynamo.ErrInvalidConfig)
	}

	s := &Scene{
		traj:   traj,
		field:  field,
		pend:   pend,
		width:  w,
		height: h,
	}
	s.fieldDots = NewCanvas(w, h)
	s.phaseView = FillViewport(s.fieldDots,
		field.ThetaAxis[0], field.ThetaAxis[len(field.ThetaAxis)-1],
		field.OmegaAxis[0], field.OmegaAxis[len(field.OmegaAxis)-1])
	s.drawField(s.fieldDots)
	return s, nil
}

func (s *Scene) Frames() int { return s.traj.Len() }

func (s *Scene) Trajectory() *dynamo.Trajectory { return s.traj }
func (s *Scene) Pendulum() *physics.Pendulum    { return s.pend }

func (s *Scene) clamp(i int) int {
	return max(0, min(i, s.traj.Len()-1))
}

// drawField draws one short segment per visible cell along its direction.
// Arrow directions use the unit components directly, not the axis scales.
func (s *Scene) drawField(c *Canvas) {
	rows, cols := s.field.Dims()
	spacing := math.Min(float64(s.phaseView.Width)/float64(cols), float64(s.phaseView.Height)/float64(rows))
	length := math.Max(1, 0.4*spacing)

	for _, row := range s.field.Cells {
		for _, v := range row {
			if !s.field.Visible(v) || math.IsNaN(v.U) || math.IsNaN(v.V) {
				continue
			}
			x0, y0 := s.phaseView.Project(v.Theta, v.Omega)
			x1 := x0 + int(math.Round(v.U*length))
			y1 := y0 - int(math.Round(v.V*length))
			c.DrawLine(x0, y0, x1, y1)
		}
	}
}

// PhasePanel draws θ[:i+1] against ω[:i+1] over the direction field.
func (s *Scene) PhasePanel(i int) *Panel {
	i = s.clamp(i)
	p := NewPanel(s.width, s.height)
	copyCanvas(p.layer(roleField), s.fieldDots)

	trace := p.layer(roleTrace)
	px, py := s.phaseView.Project(s.traj.States[0][0], s.traj.States[0][1])
	for k := 1; k <= i; k++ {
		x := s.traj.States[k]
		nx, ny := s.phaseView.Project(x[0], x[1])
		trace.DrawLine(px, py, nx, ny)
		px, py = nx, ny
	}

	x := s.traj.States[i]
	cx, cy := s.phaseView.Project(x[0], x[1])
	p.layer(roleMarker).DrawDisc(cx, cy, 1)
	return p
}

// PendulumPanel draws the rod and bob at sample i in a square box of
// half-width 1.1 L around the pivot.
func (s *Scene) PendulumPanel(i int) *Panel {
	i = s.clamp(i)
	p := NewPanel(s.width, s.height)
	length := s.pend.Params().Length
	view := SquareViewport(p.layer(roleBody), 1.1*length)

	frame := p.layer(roleField)
	l, t := view.Left, view.Top
	r, b := view.Left+view.Width-1, view.Top+view.Height-1
	frame.DrawLine(l, t, r, t)
	frame.DrawLine(r, t, r, b)
	frame.DrawLine(r, b, l, b)
	frame.DrawLine(l, b, l, t)

	bx, by := s.pend.BobPosition(s.traj.States[i][0])
	ox, oy := view.Project(0, 0)
	ex, ey := view.Project(bx, by)

	p.layer(roleBody).DrawLine(ox, oy, ex, ey)
	p.layer(roleBody).DrawDisc(ox, oy, 1)
	radius := max(2, view.Width/24)
	p.layer(roleMarker).DrawDisc(ex, ey, radius)
	return p
}

// Image renders both panels of frame i side by side.
func (s *Scene) Image(i, scale int, theme Theme) *image.Paletted {
	if scale < 1 {
		scale = 1
	}
	phase := s.PhasePanel(i)
	swing := s.PendulumPanel(i)

	panelW := s.width * 2 * scale
	w := 2*panelW + panelGap*scale
	h := s.height * 4 * scale
	img := image.NewPaletted(image.Rect(0, 0, w, h), theme.Palette())
	phase.draw(img, 0, scale)
	swing.draw(img, panelW+panelGap*scale, scale)
	return img
}

func copyCanvas(dst, src *Canvas) {
	for row := range src.Grid {
		copy(dst.Grid[row], src.Grid[row])
	}
}
