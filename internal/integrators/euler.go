package integrators

import (
	"context"

	"github.com/san-kum/pendulum/internal/dynamo"
)

type Euler struct {
	MaxStep float64
}

func NewEuler() *Euler {
	return &Euler{}
}

func (e *Euler) Step(dyn dynamo.System, x dynamo.State, t float64, dt float64) dynamo.State {
	dx := dyn.Derive(x, t)
	result := make(dynamo.State, len(x))
	for i := range x {
		result[i] = x[i] + dt*dx[i]
	}
	return result
}

func (e *Euler) Solve(ctx context.Context, dyn dynamo.System, x0 dynamo.State, times []float64) (*dynamo.Trajectory, dynamo.Stats, error) {
	return solveFixed(ctx, e, 1, e.MaxStep, dyn, x0, times)
}
