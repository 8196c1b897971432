// Package dynamo provides core simulation primitives for dynamical systems.
//
// The package defines the fundamental interfaces and types for numerical
// solution of ordinary differential equations (ODEs):
//
//   - [State]: vector representing system state
//   - [System]: interface for ODE systems (dX/dt = f(X, t))
//   - [Integrator]: single-step numerical integrator interface
//   - [Trajectory]: solution sampled at fixed output times
//   - [Stats]: work counters reported by a solver
//
// # Errors
//
// Solvers report failures as [*SimulationError] values wrapping one of the
// sentinel errors, so callers can match with errors.Is:
//
//	traj, _, err := solver.Solve(ctx, sys, x0, times)
//	if errors.Is(err, dynamo.ErrStepTooSmall) {
//	    // tolerance too strict for this system
//	}
package dynamo
