// Package physics provides the damped pendulum model.
//
// [Pendulum] implements [dynamo.System] and [dynamo.Hamiltonian]. Its
// parameters are fixed at construction:
//
//	p, err := physics.NewPendulum(physics.DefaultParams())
//	dx := p.Derive(dynamo.State{theta, omega}, 0)
//	e := p.Energy(dynamo.State{theta, omega})
package physics
