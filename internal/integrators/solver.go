package integrators

import (
	"context"
	"fmt"
	"math"

	"github.com/san-kum/pendulum/internal/dynamo"
)

// ctxCheckInterval is how many steps run between context checks.
const ctxCheckInterval = 256

// Solver integrates a system from x0 and reports the solution at each of
// the requested output times. times[0] is the initial time.
type Solver interface {
	Solve(ctx context.Context, dyn dynamo.System, x0 dynamo.State, times []float64) (*dynamo.Trajectory, dynamo.Stats, error)
}

// TimeGrid returns t_i = i*dt for every t_i in [0, horizon).
func TimeGrid(horizon, dt float64) ([]float64, error) {
	if !(dt > 0) || math.IsInf(dt, 0) {
		return nil, fmt.Errorf("dt must be positive, got %g: %w", dt, dynamo.ErrInvalidConfig)
	}
	if !(horizon > 0) || math.IsInf(horizon, 0) {
		return nil, fmt.Errorf("horizon must be positive, got %g: %w", horizon, dynamo.ErrInvalidConfig)
	}

	n := int(math.Ceil(horizon/dt - 1e-9))
	if n < 1 {
		n = 1
	}
	times := make([]float64, n)
	for i := range times {
		times[i] = float64(i) * dt
	}
	return times, nil
}

func checkProblem(dyn dynamo.System, x0 dynamo.State, times []float64) error {
	if len(times) == 0 {
		return fmt.Errorf("no output times: %w", dynamo.ErrInvalidConfig)
	}
	if len(x0) != dyn.StateDim() {
		return fmt.Errorf("state has %d components, system expects %d: %w", len(x0), dyn.StateDim(), dynamo.ErrDimensionMismatch)
	}
	if !x0.IsValid() {
		return &dynamo.SimulationError{Time: times[0], State: x0.Clone(), Wrapped: dynamo.ErrInvalidState}
	}
	for i := 1; i < len(times); i++ {
		if !(times[i] > times[i-1]) {
			return fmt.Errorf("output times must be strictly increasing at index %d: %w", i, dynamo.ErrInvalidConfig)
		}
	}
	return nil
}

func canceled(ctx context.Context, step int, t float64, x dynamo.State) error {
	select {
	case <-ctx.Done():
		return &dynamo.SimulationError{Step: step, Time: t, State: x.Clone(), Wrapped: ctx.Err()}
	default:
		return nil
	}
}

// solveFixed drives a single-step integrator across each output interval,
// splitting an interval into equal substeps no longer than maxStep.
func solveFixed(ctx context.Context, integ dynamo.Integrator, stages int, maxStep float64, dyn dynamo.System, x0 dynamo.State, times []float64) (*dynamo.Trajectory, dynamo.Stats, error) {
	var stats dynamo.Stats
	if err := checkProblem(dyn, x0, times); err != nil {
		return nil, stats, err
	}

	traj := dynamo.NewTrajectory(len(times))
	x := x0.Clone()
	traj.Append(times[0], x)

	for i := 1; i < len(times); i++ {
		if i%ctxCheckInterval == 0 {
			if err := canceled(ctx, stats.Accepted, times[i-1], x); err != nil {
				return traj, stats, err
			}
		}

		span := times[i] - times[i-1]
		n := 1
		if maxStep > 0 && span > maxStep {
			n = int(math.Ceil(span/maxStep - 1e-9))
		}
		h := span / float64(n)
		t := times[i-1]
		for j := 0; j < n; j++ {
			x = integ.Step(dyn, x, t, h)
			t += h
			stats.Accepted++
			stats.Evaluations += stages
		}
		stats.LastStep = h

		if !x.IsValid() {
			return traj, stats, &dynamo.SimulationError{Step: stats.Accepted, Time: times[i], State: x.Clone(), Wrapped: dynamo.ErrInvalidState}
		}
		traj.Append(times[i], x)
	}

	return traj, stats, nil
}
