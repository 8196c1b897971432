package viz

import (
	"math"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/san-kum/pendulum/internal/analysis"
	"github.com/san-kum/pendulum/internal/dynamo"
	"github.com/san-kum/pendulum/internal/physics"
)

func testScene(t *testing.T, n int) *Scene {
	t.Helper()
	pend, err := physics.NewPendulum(physics.DefaultParams())
	if err != nil {
		t.Fatal(err)
	}
	field, err := analysis.Sample(pend, analysis.DefaultGridSpec())
	if err != nil {
		t.Fatal(err)
	}
	traj := dynamo.NewTrajectory(n)
	for i := 0; i < n; i++ {
		tm := float64(i) * 0.01
		traj.Append(tm, dynamo.State{3 * math.Cos(3*tm), -9 * math.Sin(3*tm)})
	}
	s, err := NewScene(traj, field, pend, 24, 10)
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func countDots(c *Canvas) int {
	n := 0
	for y := 0; y < c.SubHeight(); y++ {
		for x := 0; x < c.SubWidth(); x++ {
			if c.Pixel(x, y) {
				n++
			}
		}
	}
	return n
}

func TestNewSceneValidates(t *testing.T) {
	pend, _ := physics.NewPendulum(physics.DefaultParams())
	field, _ := analysis.Sample(pend, analysis.DefaultGridSpec())
	traj := dynamo.NewTrajectory(1)

	if _, err := NewScene(traj, field, pend, 24, 10); err == nil {
		t.Error("expected error for empty trajectory")
	}
	traj.Append(0, dynamo.State{0, 0})
	if _, err := NewScene(traj, field, pend, 2, 2); err == nil {
		t.Error("expected error for tiny panel")
	}
	if _, err := NewScene(traj, nil, pend, 24, 10); err == nil {
		t.Error("expected error for missing field")
	}
}

func TestPhasePanelTraceGrows(t *testing.T) {
	s := testScene(t, 300)

	early := countDots(s.PhasePanel(5).layer(roleTrace))
	late := countDots(s.PhasePanel(299).layer(roleTrace))
	if late <= early {
		t.Errorf("trace should grow: %d then %d", early, late)
	}
	if countDots(s.PhasePanel(0).layer(roleField)) == 0 {
		t.Error("field arrows missing")
	}
	if countDots(s.PhasePanel(10_000).layer(roleMarker)) == 0 {
		t.Error("frame index should clamp to the last sample")
	}
}

func TestPendulumPanelBobPosition(t *testing.T) {
	s := testScene(t, 10)
	p := s.PendulumPanel(0)
	view := SquareViewport(p.layer(roleBody), 1.1)

	theta := s.Trajectory().States[0][0]
	bx, by := view.Project(math.Sin(theta), -math.Cos(theta))
	if !p.layer(roleMarker).Pixel(bx, by) {
		t.Error("bob not drawn at projected position")
	}
	ox, oy := view.Project(0, 0)
	if !p.layer(roleBody).Pixel(ox, oy) {
		t.Error("pivot not drawn")
	}
}

func TestSceneImage(t *testing.T) {
	s := testScene(t, 50)
	img := s.Image(49, 2, ThemeMinimal)

	wantW := 2*24*2*2 + panelGap*2
	if img.Bounds().Dx() != wantW || img.Bounds().Dy() != 10*4*2 {
		t.Errorf("unexpected size %v", img.Bounds())
	}
	if len(img.Palette) != int(numRoles)+1 {
		t.Errorf("palette has %d colors", len(img.Palette))
	}

	used := map[uint8]bool{}
	for _, px := range img.Pix {
		used[px] = true
	}
	for idx := uint8(0); idx <= uint8(numRoles); idx++ {
		if !used[idx] {
			t.Errorf("palette index %d unused", idx)
		}
	}
}

func TestPanelPlain(t *testing.T) {
	s := testScene(t, 20)
	out := s.PendulumPanel(3).Plain()
	if len(strings.Split(strings.TrimSuffix(out, "\n"), "\n")) != 10 {
		t.Errorf("expected 10 rows:\n%s", out)
	}
}

func TestPlayerAdvancesAndHolds(t *testing.T) {
	s := testScene(t, 10)
	var m tea.Model = NewPlayer(s, PlayerOptions{Stride: 4, Interval: time.Millisecond})

	if cmd := m.Init(); cmd == nil {
		t.Fatal("Init should schedule a tick")
	}

	var cmd tea.Cmd
	m, cmd = m.Update(TickMsg(time.Now()))
	if m.(Player).Frame() != 4 || cmd == nil {
		t.Fatalf("frame %d after first tick", m.(Player).Frame())
	}
	if m.(Player).Shown() != 2 {
		t.Errorf("shown %d after first tick, want 2", m.(Player).Shown())
	}
	m, _ = m.Update(TickMsg(time.Now()))
	m, cmd = m.Update(TickMsg(time.Now()))
	if m.(Player).Frame() != 9 || !m.(Player).Done() {
		t.Errorf("expected to hold on last frame, got %d", m.(Player).Frame())
	}
	if cmd != nil {
		t.Error("no tick should be scheduled after the last frame")
	}
	if m.(Player).Shown() != 4 {
		t.Errorf("shown %d at the end, want 4 (0, 4, 8, 9)", m.(Player).Shown())
	}

	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{' '}})
	if m.(Player).Frame() != 9 {
		t.Error("other keys must not change playback")
	}
	if !strings.Contains(m.View(), "finished") {
		t.Error("expected finished marker in view")
	}
}

func TestPlayerQuits(t *testing.T) {
	s := testScene(t, 10)
	m := NewPlayer(s, PlayerOptions{})

	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}})
	if cmd == nil {
		t.Fatal("expected quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("expected tea.QuitMsg")
	}
	if next.View() != "" {
		t.Error("view should be empty after quitting")
	}
}

func TestFrameInterval(t *testing.T) {
	if got := FrameInterval(0.01, 1); got != 10*time.Millisecond {
		t.Errorf("FrameInterval(0.01, 1) = %v", got)
	}
	if got := FrameInterval(0.01, 5); got != 50*time.Millisecond {
		t.Errorf("FrameInterval(0.01, 5) = %v", got)
	}
}

func TestPlayerShownStopsAtQuit(t *testing.T) {
	s := testScene(t, 100)
	var m tea.Model = NewPlayer(s, PlayerOptions{Stride: 10})
	if m.(Player).Shown() != 1 {
		t.Fatalf("shown %d before any tick, want 1", m.(Player).Shown())
	}

	m, _ = m.Update(TickMsg(time.Now()))
	m, _ = m.Update(TickMsg(time.Now()))
	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}})
	m, _ = m.Update(TickMsg(time.Now()))

	if got := m.(Player).Shown(); got != 3 {
		t.Errorf("shown %d after quitting at frame 20, want 3", got)
	}
}
