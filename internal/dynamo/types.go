package dynamo

import "math"

type State []float64

func (s State) Clone() State {
	c := make(State, len(s))
	copy(c, s)
	return c
}

func (s State) IsValid() bool {
	for _, v := range s {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

func (s State) Sub(other State) State {
	result := make(State, len(s))
	for i := range s {
		if i < len(other) {
			result[i] = s[i] - other[i]
		} else {
			result[i] = s[i]
		}
	}
	return result
}

// System is an autonomous or time-dependent first-order ODE dx/dt = f(x, t).
type System interface {
	Derive(x State, t float64) State
	StateDim() int
}

type Hamiltonian interface {
	Energy(x State) float64
}

type Integrator interface {
	Step(dyn System, x State, t float64, dt float64) State
}

// Stats records the work a solver performed for one Solve call.
type Stats struct {
	Accepted    int
	Rejected    int
	Evaluations int
	LastStep    float64
}

// Trajectory is a solution sampled at increasing output times. It is
// produced once by a solver and must be treated as read-only.
type Trajectory struct {
	Times  []float64
	States []State
}

func NewTrajectory(capacity int) *Trajectory {
	return &Trajectory{
		Times:  make([]float64, 0, capacity),
		States: make([]State, 0, capacity),
	}
}

func (tr *Trajectory) Append(t float64, x State) {
	tr.Times = append(tr.Times, t)
	tr.States = append(tr.States, x.Clone())
}

func (tr *Trajectory) Len() int {
	if tr == nil {
		return 0
	}
	return len(tr.Times)
}

// At returns the output time and a copy of the state at index i.
func (tr *Trajectory) At(i int) (float64, State) {
	return tr.Times[i], tr.States[i].Clone()
}

// Component returns a copy of state component idx across all samples.
func (tr *Trajectory) Component(idx int) []float64 {
	out := make([]float64, tr.Len())
	for i, s := range tr.States {
		if idx < len(s) {
			out[i] = s[idx]
		}
	}
	return out
}

func (tr *Trajectory) Theta() []float64 { return tr.Component(0) }
func (tr *Trajectory) Omega() []float64 { return tr.Component(1) }

// Final returns the last sample; ok is false for an empty trajectory.
func (tr *Trajectory) Final() (t float64, x State, ok bool) {
	n := tr.Len()
	if n == 0 {
		return 0, nil, false
	}
	return tr.Times[n-1], tr.States[n-1].Clone(), true
}
