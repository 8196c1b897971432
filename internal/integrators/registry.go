package integrators

import (
	"fmt"
	"sort"

	"github.com/san-kum/pendulum/internal/dynamo"
)

var constructors = map[string]func() Solver{
	"rk45":  func() Solver { return NewRK45() },
	"rk4":   func() Solver { return NewRK4() },
	"euler": func() Solver { return NewEuler() },
}

// New returns a solver with default settings for the given method name.
func New(name string) (Solver, error) {
	fn, ok := constructors[name]
	if !ok {
		return nil, fmt.Errorf("unknown integrator %q (available: %v): %w", name, Names(), dynamo.ErrInvalidConfig)
	}
	return fn(), nil
}

func Names() []string {
	names := make([]string, 0, len(constructors))
	for name := range constructors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
