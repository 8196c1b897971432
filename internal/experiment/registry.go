package experiment

import (
	"fmt"
	"sort"

	"github.com/san-kum/pendulum/internal/config"
	"github.com/san-kum/pendulum/internal/dynamo"
	"github.com/san-kum/pendulum/internal/integrators"
)

type Registry struct {
	solvers map[string]func(config.SolverConfig) (integrators.Solver, error)
}

func NewRegistry() *Registry {
	r := &Registry{
		solvers: make(map[string]func(config.SolverConfig) (integrators.Solver, error)),
	}

	for _, name := range integrators.Names() {
		name := name
		r.solvers[name] = func(sc config.SolverConfig) (integrators.Solver, error) {
			s, err := integrators.New(name)
			if err != nil {
				return nil, err
			}
			configure(s, sc)
			return s, nil
		}
	}

	return r
}

// configure copies the tolerances and step limits that apply to s. sc has
// already passed Config.Validate.
func configure(s integrators.Solver, sc config.SolverConfig) {
	switch s := s.(type) {
	case *integrators.RK45:
		s.RTol = sc.RTol
		s.ATol = sc.ATol
		s.MaxSteps = sc.MaxSteps
		s.MinStep = sc.MinStep
		s.MaxStep = sc.MaxStep
	case *integrators.RK4:
		s.MaxStep = sc.MaxStep
	case *integrators.Euler:
		s.MaxStep = sc.MaxStep
	}
}

func (r *Registry) GetSolver(sc config.SolverConfig) (integrators.Solver, error) {
	fn, ok := r.solvers[sc.Method]
	if !ok {
		return nil, fmt.Errorf("unknown integrator: %s: %w", sc.Method, dynamo.ErrInvalidConfig)
	}
	return fn(sc)
}

func (r *Registry) ListSolvers() []string {
	names := make([]string, 0, len(r.solvers))
	for name := range r.solvers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
