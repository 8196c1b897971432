package integrators

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/san-kum/pendulum/internal/analysis"
	"github.com/san-kum/pendulum/internal/dynamo"
	"github.com/san-kum/pendulum/internal/physics"
)

type harmonicOscillator struct{}

func (h *harmonicOscillator) StateDim() int { return 2 }

func (h *harmonicOscillator) Derive(x dynamo.State, t float64) dynamo.State {
	return dynamo.State{x[1], -x[0]}
}

func (h *harmonicOscillator) Energy(x dynamo.State) float64 {
	return 0.5 * (x[0]*x[0] + x[1]*x[1])
}

func newPendulum(t *testing.T, damping float64) *physics.Pendulum {
	t.Helper()
	params := physics.DefaultParams()
	params.Damping = damping
	p, err := physics.NewPendulum(params)
	if err != nil {
		t.Fatalf("NewPendulum: %v", err)
	}
	return p
}

func mustGrid(t *testing.T, horizon, dt float64) []float64 {
	t.Helper()
	times, err := TimeGrid(horizon, dt)
	if err != nil {
		t.Fatalf("TimeGrid: %v", err)
	}
	return times
}

func TestRK45_Step(t *testing.T) {
	integrator := NewRK45()
	dyn := &harmonicOscillator{}
	x := dynamo.State{1.0, 0.0}
	dt := 0.01

	for i := 0; i < 1000; i++ {
		x = integrator.Step(dyn, x, float64(i)*dt, dt)
	}

	if !x.IsValid() {
		t.Fatal("RK45 produced invalid state")
	}
	if math.Abs(x[0]-math.Cos(10)) > 1e-8 {
		t.Errorf("x(10) = %.10f, want %.10f", x[0], math.Cos(10))
	}
}

func TestRK45_EnergyConservation(t *testing.T) {
	integrator := NewRK45()
	dyn := &harmonicOscillator{}
	x0 := dynamo.State{1.0, 0.0}

	initialEnergy := dyn.Energy(x0)
	x := x0.Clone()
	dt := 0.01

	for i := 0; i < 10000; i++ {
		x = integrator.Step(dyn, x, float64(i)*dt, dt)
	}

	drift := math.Abs(dyn.Energy(x)-initialEnergy) / initialEnergy
	if drift > 1e-6 {
		t.Errorf("RK45 energy drift too high: %e", drift)
	}
}

func TestRK45_AdaptiveStep(t *testing.T) {
	integrator := NewRK45()
	dyn := &harmonicOscillator{}

	x, newDt, err := integrator.StepAdaptive(dyn, dynamo.State{1.0, 0.0}, 0, 0.1)
	if err != nil {
		t.Fatalf("StepAdaptive returned error: %v", err)
	}
	if !x.IsValid() {
		t.Error("StepAdaptive produced invalid state")
	}
	if newDt <= 0 {
		t.Errorf("StepAdaptive returned invalid dt: %f", newDt)
	}
}

func TestRK45_AdaptiveStepShrinks(t *testing.T) {
	integrator := NewRK45()
	integrator.MinStep = 1.0

	_, _, err := integrator.StepAdaptive(&harmonicOscillator{}, dynamo.State{1.0, 0.0}, 0, 5.0)
	if !errors.Is(err, dynamo.ErrStepTooSmall) {
		t.Errorf("expected ErrStepTooSmall, got %v", err)
	}
}

func TestRK45_SolveHarmonic(t *testing.T) {
	times := mustGrid(t, 10, 0.1)

	traj, stats, err := NewRK45().Solve(context.Background(), &harmonicOscillator{}, dynamo.State{1, 0}, times)
	if err != nil {
		t.Fatalf("Solve: %v", err)
	}
	if traj.Len() != len(times) {
		t.Fatalf("got %d states, want %d", traj.Len(), len(times))
	}

	for i, tm := range traj.Times {
		x := traj.States[i]
		if math.Abs(x[0]-math.Cos(tm)) > 1e-4 || math.Abs(x[1]+math.Sin(tm)) > 1e-4 {
			t.Fatalf("t=%.2f: got %v, want [%f %f]", tm, x, math.Cos(tm), -math.Sin(tm))
		}
	}

	if stats.Accepted == 0 || stats.Evaluations < 6*stats.Accepted {
		t.Errorf("stats not recorded: %+v", stats)
	}
}

func TestRK45_Deterministic(t *testing.T) {
	dyn := newPendulum(t, 0.2)
	times := mustGrid(t, 50, 0.01)
	x0 := dynamo.State{2.1, -3.4}

	a, _, err := NewRK45().Solve(context.Background(), dyn, x0, times)
	if err != nil {
		t.Fatal(err)
	}
	b, _, err := NewRK45().Solve(context.Background(), dyn, x0, times)
	if err != nil {
		t.Fatal(err)
	}

	for i := range a.States {
		if a.States[i][0] != b.States[i][0] || a.States[i][1] != b.States[i][1] {
			t.Fatalf("runs diverge at %d: %v vs %v", i, a.States[i], b.States[i])
		}
	}
}

func TestRK45_UndampedKeepsAmplitude(t *testing.T) {
	dyn := newPendulum(t, 0)
	times := mustGrid(t, 200, 0.01)

	traj, _, err := NewRK45().Solve(context.Background(), dyn, dynamo.State{0.5, 0}, times)
	if err != nil {
		t.Fatal(err)
	}

	maxima := analysis.Envelope(traj.Theta())
	if len(maxima) < 50 {
		t.Fatalf("expected many oscillations, got %d peaks", len(maxima))
	}
	for i, p := range maxima {
		if math.Abs(p-0.5) > 2e-3 {
			t.Fatalf("peak %d = %.6f, want 0.5", i, p)
		}
	}
	if drift := math.Abs(maxima[len(maxima)-1] - maxima[0]); drift > 2e-3 {
		t.Errorf("amplitude drifted by %e", drift)
	}
}

func TestRK45_DampedPeaksDecrease(t *testing.T) {
	dyn := newPendulum(t, 0.2)
	times := mustGrid(t, 30, 0.01)

	traj, _, err := NewRK45().Solve(context.Background(), dyn, dynamo.State{0.5, 0}, times)
	if err != nil {
		t.Fatal(err)
	}

	maxima := analysis.LocalMaxima(traj.Theta())
	if len(maxima) < 5 {
		t.Fatalf("expected several oscillations, got %d peaks", len(maxima))
	}
	for i := 1; i < len(maxima); i++ {
		if maxima[i].Value >= maxima[i-1].Value {
			t.Fatalf("peak at t=%.2f (%f) not below the one at t=%.2f (%f)",
				traj.Times[maxima[i].Index], maxima[i].Value, traj.Times[maxima[i-1].Index], maxima[i-1].Value)
		}
	}
}

func TestRK45_ExampleDecays(t *testing.T) {
	dyn := newPendulum(t, 0.2)
	times := mustGrid(t, 200, 0.01)

	traj, _, err := NewRK45().Solve(context.Background(), dyn, dynamo.State{0.5, 0}, times)
	if err != nil {
		t.Fatal(err)
	}

	if traj.Len() != 20000 {
		t.Fatalf("got %d states, want 20000", traj.Len())
	}
	for i := 1; i < traj.Len(); i++ {
		if !(traj.Times[i] > traj.Times[i-1]) {
			t.Fatalf("times not increasing at %d", i)
		}
	}

	_, final, _ := traj.Final()
	if math.Abs(final[0]) > 1e-3 || math.Abs(final[1]) > 1e-3 {
		t.Errorf("expected convergence to rest, got %v", final)
	}
}

func TestRK45_FixedPointStaysPut(t *testing.T) {
	dyn := newPendulum(t, 0.2)
	times := mustGrid(t, 20, 0.01)

	traj, _, err := NewRK45().Solve(context.Background(), dyn, dynamo.State{0, 0}, times)
	if err != nil {
		t.Fatal(err)
	}
	for i, x := range traj.States {
		if x[0] != 0 || x[1] != 0 {
			t.Fatalf("state %d left equilibrium: %v", i, x)
		}
	}
}

func TestRK45_InvalidInputs(t *testing.T) {
	dyn := &harmonicOscillator{}
	times := []float64{0, 0.1, 0.2}

	tests := []struct {
		name  string
		setup func(*RK45)
		x0    dynamo.State
		times []float64
		want  error
	}{
		{"zero rtol", func(r *RK45) { r.RTol = 0 }, dynamo.State{1, 0}, times, dynamo.ErrInvalidConfig},
		{"negative atol", func(r *RK45) { r.ATol = -1 }, dynamo.State{1, 0}, times, dynamo.ErrInvalidConfig},
		{"dimension", nil, dynamo.State{1}, times, dynamo.ErrDimensionMismatch},
		{"nan state", nil, dynamo.State{math.NaN(), 0}, times, dynamo.ErrInvalidState},
		{"no times", nil, dynamo.State{1, 0}, nil, dynamo.ErrInvalidConfig},
		{"unordered times", nil, dynamo.State{1, 0}, []float64{0, 0.2, 0.1}, dynamo.ErrInvalidConfig},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewRK45()
			if tt.setup != nil {
				tt.setup(r)
			}
			_, _, err := r.Solve(context.Background(), dyn, tt.x0, tt.times)
			if !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestRK45_MaxSteps(t *testing.T) {
	r := NewRK45()
	r.MaxSteps = 5

	_, stats, err := r.Solve(context.Background(), newPendulum(t, 0.2), dynamo.State{1, 0}, mustGrid(t, 200, 0.01))
	if !errors.Is(err, dynamo.ErrMaxSteps) {
		t.Fatalf("expected ErrMaxSteps, got %v", err)
	}

	var simErr *dynamo.SimulationError
	if !errors.As(err, &simErr) {
		t.Fatalf("expected SimulationError, got %T", err)
	}
	if simErr.Step != 5 || stats.Accepted != 5 {
		t.Errorf("expected failure at step 5, got step %d, accepted %d", simErr.Step, stats.Accepted)
	}
}

func TestRK45_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := NewRK45().Solve(ctx, newPendulum(t, 0.2), dynamo.State{1, 0}, mustGrid(t, 200, 0.01))
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestRK45_MaxStepBoundsSteps(t *testing.T) {
	r := NewRK45()
	r.MaxStep = 0.05

	_, stats, err := r.Solve(context.Background(), &harmonicOscillator{}, dynamo.State{1, 0}, mustGrid(t, 10, 0.5))
	if err != nil {
		t.Fatal(err)
	}
	if stats.Accepted < 180 {
		t.Errorf("expected at least 180 steps with max step 0.05, got %d", stats.Accepted)
	}
}

func TestTimeGrid(t *testing.T) {
	times := mustGrid(t, 200, 0.01)
	if len(times) != 20000 {
		t.Fatalf("got %d times, want 20000", len(times))
	}
	if times[0] != 0 || math.Abs(times[len(times)-1]-199.99) > 1e-9 {
		t.Errorf("unexpected range [%f, %f]", times[0], times[len(times)-1])
	}

	if _, err := TimeGrid(0, 0.01); !errors.Is(err, dynamo.ErrInvalidConfig) {
		t.Errorf("zero horizon: expected ErrInvalidConfig, got %v", err)
	}
	if _, err := TimeGrid(10, -1); !errors.Is(err, dynamo.ErrInvalidConfig) {
		t.Errorf("negative dt: expected ErrInvalidConfig, got %v", err)
	}
}
