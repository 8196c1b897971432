package metrics

import (
	"math"

	"github.com/san-kum/pendulum/internal/dynamo"
	"github.com/san-kum/pendulum/internal/physics"
)

// Metric accumulates a scalar over the states of a trajectory.
type Metric interface {
	Name() string
	Observe(x dynamo.State, t float64)
	Value() float64
	Reset()
}

// Energy tracks the mean total energy of a point-mass pendulum.
type Energy struct {
	name        string
	mass        float64
	length      float64
	gravity     float64
	samples     int
	totalEnergy float64
}

func NewEnergy(mass, length, gravity float64) *Energy {
	return &Energy{
		name:    "energy",
		mass:    mass,
		length:  length,
		gravity: gravity,
	}
}

func (e *Energy) Name() string { return e.name }

func (e *Energy) Observe(x dynamo.State, t float64) {
	if len(x) < 2 {
		return
	}
	theta, omega := x[0], x[1]
	ke := 0.5 * e.mass * e.length * e.length * omega * omega
	pe := e.mass * e.gravity * e.length * (1 - math.Cos(theta))
	e.totalEnergy += ke + pe
	e.samples++
}

func (e *Energy) Value() float64 {
	if e.samples == 0 {
		return 0
	}
	return e.totalEnergy / float64(e.samples)
}

func (e *Energy) Reset() {
	e.totalEnergy = 0
	e.samples = 0
}

// EnergyDrift tracks the largest relative deviation from the first
// observed energy.
type EnergyDrift struct {
	name          string
	initialEnergy float64
	maxDrift      float64
	samples       int
	dyn           dynamo.Hamiltonian
}

func NewEnergyDrift(dyn dynamo.Hamiltonian) *EnergyDrift {
	return &EnergyDrift{
		name: "energy_drift",
		dyn:  dyn,
	}
}

func (e *EnergyDrift) Name() string { return e.name }

func (e *EnergyDrift) Observe(x dynamo.State, t float64) {
	energy := e.dyn.Energy(x)

	if e.samples == 0 {
		e.initialEnergy = energy
	}

	e.samples++

	if e.initialEnergy != 0 {
		drift := math.Abs(energy-e.initialEnergy) / math.Abs(e.initialEnergy)
		e.maxDrift = math.Max(e.maxDrift, drift)
	}
}

func (e *EnergyDrift) Value() float64 {
	return e.maxDrift
}

func (e *EnergyDrift) Reset() {
	e.initialEnergy = 0
	e.maxDrift = 0
	e.samples = 0
}

// EnergyGain tracks the largest increase of energy between consecutive
// samples. A damped system keeps it near zero.
type EnergyGain struct {
	dyn     dynamo.Hamiltonian
	last    float64
	maxGain float64
	samples int
}

func NewEnergyGain(dyn dynamo.Hamiltonian) *EnergyGain {
	return &EnergyGain{dyn: dyn}
}

func (e *EnergyGain) Name() string { return "energy_gain" }

func (e *EnergyGain) Observe(x dynamo.State, t float64) {
	energy := e.dyn.Energy(x)
	if e.samples > 0 {
		e.maxGain = math.Max(e.maxGain, energy-e.last)
	}
	e.last = energy
	e.samples++
}

func (e *EnergyGain) Value() float64 { return e.maxGain }

func (e *EnergyGain) Reset() {
	e.last = 0
	e.maxGain = 0
	e.samples = 0
}

// Observe feeds every state of traj to each metric in order.
func Observe(traj *dynamo.Trajectory, ms ...Metric) {
	for i := 0; i < traj.Len(); i++ {
		for _, m := range ms {
			m.Observe(traj.States[i], traj.Times[i])
		}
	}
}

type EnergySummary struct {
	Initial  float64
	Final    float64
	Mean     float64
	MaxDrift float64
	MaxGain  float64
}

// Dissipative reports whether energy never rose by more than tol between
// samples.
func (s EnergySummary) Dissipative(tol float64) bool {
	return s.MaxGain <= tol
}

// Summarize computes the energy statistics of a pendulum trajectory.
func Summarize(traj *dynamo.Trajectory, dyn *physics.Pendulum) EnergySummary {
	if traj.Len() == 0 {
		return EnergySummary{}
	}

	p := dyn.Params()
	mean := NewEnergy(p.Mass, p.Length, p.Gravity)
	drift := NewEnergyDrift(dyn)
	gain := NewEnergyGain(dyn)
	Observe(traj, mean, drift, gain)

	_, first := traj.At(0)
	_, last, _ := traj.Final()
	return EnergySummary{
		Initial:  dyn.Energy(first),
		Final:    dyn.Energy(last),
		Mean:     mean.Value(),
		MaxDrift: drift.Value(),
		MaxGain:  gain.Value(),
	}
}
