package metrics

import (
	"math"
	"testing"

	"github.com/san-kum/pendulum/internal/dynamo"
	"github.com/san-kum/pendulum/internal/physics"
)

func TestEnergyConservation(t *testing.T) {
	m := NewEnergy(1.0, 1.0, 9.81)

	theta := math.Pi / 4
	omega := 0.0

	x := dynamo.State{theta, omega}

	m.Observe(x, 0)
	e1 := m.Value()

	m.Reset()

	ke := 0.5 * omega * omega
	pe := 9.81 * (1 - math.Cos(theta))
	expected := ke + pe

	m.Observe(x, 0)
	e2 := m.Value()

	if math.Abs(e1-expected) > 1e-6 {
		t.Errorf("expected energy %f, got %f", expected, e1)
	}

	if math.Abs(e2-expected) > 1e-6 {
		t.Errorf("expected energy %f after reset, got %f", expected, e2)
	}
}

func TestEnergyReset(t *testing.T) {
	m := NewEnergy(1.0, 1.0, 9.81)

	m.Observe(dynamo.State{1.0, 1.0}, 0)
	if m.Value() == 0 {
		t.Error("expected non-zero energy")
	}

	m.Reset()
	if m.Value() != 0 {
		t.Error("expected zero energy after reset")
	}
}

func newPendulum(t *testing.T) *physics.Pendulum {
	t.Helper()
	p, err := physics.NewPendulum(physics.DefaultParams())
	if err != nil {
		t.Fatal(err)
	}
	return p
}

func TestEnergyDrift(t *testing.T) {
	p := newPendulum(t)
	d := NewEnergyDrift(p)

	d.Observe(dynamo.State{1, 0}, 0)
	d.Observe(dynamo.State{1.1, 0}, 1)
	d.Observe(dynamo.State{1, 0}, 2)

	e0 := p.Energy(dynamo.State{1, 0})
	e1 := p.Energy(dynamo.State{1.1, 0})
	want := math.Abs(e1-e0) / e0
	if math.Abs(d.Value()-want) > 1e-12 {
		t.Errorf("drift = %g, want %g", d.Value(), want)
	}
}

func TestSummarize(t *testing.T) {
	p := newPendulum(t)
	traj := dynamo.NewTrajectory(3)
	traj.Append(0, dynamo.State{1, 0})
	traj.Append(1, dynamo.State{0.5, -1})
	traj.Append(2, dynamo.State{0.2, 0})

	s := Summarize(traj, p)

	if s.Initial != p.Energy(dynamo.State{1, 0}) {
		t.Errorf("initial = %f", s.Initial)
	}
	if s.Final != p.Energy(dynamo.State{0.2, 0}) {
		t.Errorf("final = %f", s.Final)
	}
	if !s.Dissipative(0) {
		t.Errorf("expected dissipative trajectory, max gain %g", s.MaxGain)
	}
	if s.MaxDrift <= 0 {
		t.Errorf("expected positive drift, got %g", s.MaxDrift)
	}

	traj.Append(3, dynamo.State{2, 0})
	if Summarize(traj, p).Dissipative(1e-9) {
		t.Error("energy gain not detected")
	}
}

func TestSummarizeEmpty(t *testing.T) {
	if s := Summarize(dynamo.NewTrajectory(0), newPendulum(t)); s != (EnergySummary{}) {
		t.Errorf("expected zero summary, got %+v", s)
	}
}
