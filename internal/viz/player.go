package viz

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"

	"github.com/san-kum/pendulum/internal/dynamo"
)

// graphWindow is how many samples of θ the stats pane plots.
const graphWindow = 400

type TickMsg time.Time

type PlayerOptions struct {
	// Stride is how many samples one tick advances.
	Stride int
	// Interval is the wall time between ticks.
	Interval time.Duration
	Theme    Theme
	Title    string
}

// Player replays a scene in the terminal. Keys other than quit are ignored.
type Player struct {
	scene    *Scene
	styles   Styles
	stride   int
	interval time.Duration
	title    string
	frame    int
	quitting bool
}

func NewPlayer(scene *Scene, opts PlayerOptions) Player {
	if opts.Stride < 1 {
		opts.Stride = 1
	}
	if opts.Interval <= 0 {
		opts.Interval = time.Second / 30
	}
	if opts.Title == "" {
		opts.Title = "DAMPED PENDULUM"
	}
	return Player{
		scene:    scene,
		styles:   NewStyles(opts.Theme),
		stride:   opts.Stride,
		interval: opts.Interval,
		title:    opts.Title,
	}
}

// FrameInterval converts the sample spacing dt into a tick interval of
// dt seconds per sample.
func FrameInterval(dt float64, stride int) time.Duration {
	return time.Duration(dt * float64(stride) * float64(time.Second))
}

func (p Player) Frame() int { return p.frame }

// Shown is the number of distinct frames displayed so far, counting the
// first one.
func (p Player) Shown() int { return (p.frame+p.stride-1)/p.stride + 1 }

func (p Player) Done() bool { return p.frame >= p.scene.Frames()-1 }

func (p Player) tick() tea.Cmd {
	return tea.Tick(p.interval, func(t time.Time) tea.Msg { return TickMsg(t) })
}

func (p Player) Init() tea.Cmd {
	return p.tick()
}

func (p Player) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			p.quitting = true
			return p, tea.Quit
		}
	case TickMsg:
		if p.quitting || p.Done() {
			return p, nil
		}
		p.frame = min(p.frame+p.stride, p.scene.Frames()-1)
		if p.Done() {
			return p, nil
		}
		return p, p.tick()
	}
	return p, nil
}

func (p Player) View() string {
	if p.quitting {
		return ""
	}

	phase := p.styles.Panel.Render(p.scene.PhasePanel(p.frame).Render(p.styles))
	swing := p.styles.Panel.Render(p.scene.PendulumPanel(p.frame).Render(p.styles))

	return lipgloss.JoinHorizontal(lipgloss.Top, phase, swing, p.stats())
}

func (p Player) stats() string {
	traj := p.scene.Trajectory()
	t, x := traj.Times[p.frame], traj.States[p.frame]
	energy := p.scene.Pendulum().Energy(x)

	var s strings.Builder
	s.WriteString(p.styles.Header.Render(p.title) + "\n")
	row := func(label, value string) {
		s.WriteString(p.styles.Label.Render(label) + p.styles.Value.Render(value) + "\n")
	}
	row("Time", fmt.Sprintf("%.2fs", t))
	row("θ", fmt.Sprintf("%+.4f rad", x[0]))
	row("ω", fmt.Sprintf("%+.4f rad/s", x[1]))
	row("Energy", fmt.Sprintf("%.4f J", energy))

	last := traj.Len() - 1
	progress := 1.0
	if last > 0 {
		progress = float64(p.frame) / float64(last)
	}
	row("Progress", ProgressBar(progress, 20))

	if hist := recentTheta(traj.States, p.frame, graphWindow, 40); len(hist) > 1 {
		chart := asciigraph.Plot(hist, asciigraph.Height(6), asciigraph.Width(30), asciigraph.Precision(2), asciigraph.Caption("θ(t)"))
		s.WriteString(p.styles.Graph.Render(chart) + "\n")
	}

	if p.Done() {
		s.WriteString(p.styles.Done.Render("finished") + "\n")
	}
	s.WriteString(p.styles.Help.Render("q: quit"))
	return p.styles.Stats.Render(s.String())
}

// recentTheta returns up to points samples of θ from the window ending at i.
func recentTheta(states []dynamo.State, i, window, points int) []float64 {
	start := max(0, i-window+1)
	n := i - start + 1
	step := max(1, n/points)
	out := make([]float64, 0, points+1)
	for k := start; k <= i; k += step {
		out = append(out, states[k][0])
	}
	return out
}

// Play runs the player until the user quits or ctx is done and returns
// how many frames were shown.
func Play(ctx context.Context, scene *Scene, opts PlayerOptions) (int, error) {
	prog := tea.NewProgram(NewPlayer(scene, opts), tea.WithContext(ctx), tea.WithAltScreen())
	m, err := prog.Run()
	if p, ok := m.(Player); ok {
		return p.Shown(), err
	}
	return 0, err
}
