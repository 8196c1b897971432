package export

import (
	"bufio"
	"fmt"
	"image/color"
	"math"
	"os"
	"path/filepath"
	"strings"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"

	"github.com/san-kum/pendulum/internal/analysis"
	"github.com/san-kum/pendulum/internal/dynamo"
)

const (
	PortraitTitle  = "Phase Portrait for Damped Pendulum"
	PortraitXLabel = "Starting angle (rad)"
	PortraitYLabel = "Starting angular velocity (rad/s)"
)

// PlotOptions sizes a saved figure. Width and Height are in inches.
type PlotOptions struct {
	Width  float64
	Height float64
	DPI    int
}

func DefaultPlotOptions() PlotOptions {
	return PlotOptions{Width: 10, Height: 8, DPI: 150}
}

func (o PlotOptions) validate() error {
	if !(o.Width > 0) || !(o.Height > 0) {
		return fmt.Errorf("plot size must be positive, got %gx%g: %w", o.Width, o.Height, dynamo.ErrInvalidConfig)
	}
	if o.DPI <= 0 {
		return fmt.Errorf("plot dpi must be positive, got %d: %w", o.DPI, dynamo.ErrInvalidConfig)
	}
	return nil
}

func limitedTicker(maxLabels int, labelFmt string) plot.Ticker {
	if maxLabels < 2 {
		maxLabels = 2
	}
	return plot.TickerFunc(func(min, max float64) []plot.Tick {
		if math.IsNaN(min) || math.IsNaN(max) || math.IsInf(min, 0) || math.IsInf(max, 0) {
			return nil
		}
		if min == max {
			return []plot.Tick{{Value: min, Label: fmt.Sprintf(labelFmt, min)}}
		}
		step := (max - min) / float64(maxLabels-1)
		ticks := make([]plot.Tick, 0, maxLabels)
		for i := 0; i < maxLabels; i++ {
			v := min + float64(i)*step
			ticks = append(ticks, plot.Tick{Value: v, Label: fmt.Sprintf(labelFmt, v)})
		}
		return ticks
	})
}

func stylePlot(p *plot.Plot) {
	p.Title.TextStyle.Font.Size = vg.Points(18)
	p.Title.Padding = vg.Points(10)

	p.X.Label.TextStyle.Font.Size = vg.Points(14)
	p.Y.Label.TextStyle.Font.Size = vg.Points(14)
	p.X.Label.Padding = vg.Points(8)
	p.Y.Label.Padding = vg.Points(8)

	p.X.Padding = vg.Points(10)
	p.Y.Padding = vg.Points(10)
	p.X.Tick.Length = vg.Points(6)
	p.Y.Tick.Length = vg.Points(6)
	p.X.Tick.Label.Font.Size = vg.Points(11)
	p.Y.Tick.Label.Font.Size = vg.Points(11)

	p.X.Tick.Marker = limitedTicker(9, "%.1f")
	p.Y.Tick.Marker = limitedTicker(9, "%.0f")
}

// NewPhasePortrait builds the direction field with the trajectory traced on
// top. traj may be nil for a field-only figure.
func NewPhasePortrait(field *analysis.Field, traj *dynamo.Trajectory) (*plot.Plot, error) {
	if field == nil {
		return nil, fmt.Errorf("phase portrait needs a field: %w", dynamo.ErrInvalidConfig)
	}

	p := plot.New()
	p.Title.Text = PortraitTitle
	p.X.Label.Text = PortraitXLabel
	p.Y.Label.Text = PortraitYLabel
	stylePlot(p)

	q := NewQuiver(field)
	p.Add(q)

	if traj != nil && traj.Len() > 1 {
		pts := make(plotter.XYs, traj.Len())
		for i, x := range traj.States {
			pts[i].X = x[0]
			pts[i].Y = x[1]
		}
		line, err := plotter.NewLine(pts)
		if err != nil {
			return nil, fmt.Errorf("trajectory line: %w", err)
		}
		line.LineStyle.Width = vg.Points(1.5)
		line.LineStyle.Color = color.RGBA{B: 255, A: 255}
		p.Add(line)
	}

	xmin, xmax, ymin, ymax := q.DataRange()
	p.X.Min, p.X.Max = xmin, xmax
	p.Y.Min, p.Y.Max = ymin, ymax
	return p, nil
}

// NewTimeSeries plots θ(t) and ω(t) against time.
func NewTimeSeries(traj *dynamo.Trajectory) (*plot.Plot, error) {
	if traj == nil || traj.Len() < 2 {
		return nil, fmt.Errorf("time series needs at least two samples: %w", dynamo.ErrInvalidState)
	}

	p := plot.New()
	p.Title.Text = "Damped Pendulum"
	p.X.Label.Text = "time (s)"
	p.Y.Label.Text = "state"
	stylePlot(p)
	p.Y.Tick.Marker = limitedTicker(9, "%.1f")

	theta := make(plotter.XYs, traj.Len())
	omega := make(plotter.XYs, traj.Len())
	for i, x := range traj.States {
		theta[i] = plotter.XY{X: traj.Times[i], Y: x[0]}
		omega[i] = plotter.XY{X: traj.Times[i], Y: x[1]}
	}

	thetaLine, err := plotter.NewLine(theta)
	if err != nil {
		return nil, err
	}
	thetaLine.LineStyle.Width = vg.Points(1.5)
	thetaLine.LineStyle.Color = color.RGBA{B: 255, A: 255}

	omegaLine, err := plotter.NewLine(omega)
	if err != nil {
		return nil, err
	}
	omegaLine.LineStyle.Width = vg.Points(1.5)
	omegaLine.LineStyle.Color = color.RGBA{R: 220, G: 90, A: 255}

	p.Add(plotter.NewGrid(), thetaLine, omegaLine)
	p.Legend.Add("θ (rad)", thetaLine)
	p.Legend.Add("ω (rad/s)", omegaLine)
	p.Legend.Top = true
	return p, nil
}

// SavePlot writes p to path. PNG output honors the DPI; other extensions
// (svg, pdf, eps, jpg, tif) go through the format gonum/plot picks for them.
func SavePlot(p *plot.Plot, path string, opts PlotOptions) error {
	if err := opts.validate(); err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("cannot create directory: %w", err)
		}
	}

	w := vg.Length(opts.Width) * vg.Inch
	h := vg.Length(opts.Height) * vg.Inch

	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".png" {
		if err := p.Save(w, h, path); err != nil {
			return fmt.Errorf("save %s: %w", path, err)
		}
		return nil
	}

	c := vgimg.NewWith(
		vgimg.UseWH(w, h),
		vgimg.UseDPI(opts.DPI),
	)
	p.Draw(draw.New(c))

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("cannot create png: %w", err)
	}
	defer f.Close()

	bw := bufio.NewWriter(f)
	pngc := vgimg.PngCanvas{Canvas: c}
	if _, err := pngc.WriteTo(bw); err != nil {
		return fmt.Errorf("cannot write png: %w", err)
	}
	return bw.Flush()
}
