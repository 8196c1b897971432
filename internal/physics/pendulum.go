package physics

import (
	"fmt"
	"math"

	"github.com/san-kum/pendulum/internal/dynamo"
)

// Params are the physical constants of a single damped pendulum.
type Params struct {
	Gravity float64 `yaml:"gravity"`
	Length  float64 `yaml:"length"`
	Mass    float64 `yaml:"mass"`
	Damping float64 `yaml:"damping"`
}

func DefaultParams() Params {
	return Params{
		Gravity: 9.81,
		Length:  1.0,
		Mass:    1.0,
		Damping: 0.2,
	}
}

func (p Params) Validate() error {
	switch {
	case p.Gravity < 0 || math.IsNaN(p.Gravity):
		return fmt.Errorf("gravity must be non-negative, got %g: %w", p.Gravity, dynamo.ErrInvalidConfig)
	case !(p.Length > 0):
		return fmt.Errorf("length must be positive, got %g: %w", p.Length, dynamo.ErrInvalidConfig)
	case !(p.Mass > 0):
		return fmt.Errorf("mass must be positive, got %g: %w", p.Mass, dynamo.ErrInvalidConfig)
	case p.Damping < 0 || math.IsNaN(p.Damping):
		return fmt.Errorf("damping must be non-negative, got %g: %w", p.Damping, dynamo.ErrInvalidConfig)
	}
	return nil
}

// Pendulum is a point mass on a rigid massless rod with linear viscous
// damping:
//
//	dθ/dt = ω
//	dω/dt = -(g/L)·sin θ - (b/m)·ω
//
// θ is measured from the downward vertical.
type Pendulum struct {
	params Params
}

func NewPendulum(p Params) (*Pendulum, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &Pendulum{params: p}, nil
}

func (p *Pendulum) Params() Params { return p.params }

func (p *Pendulum) StateDim() int {
	return 2
}

func (p *Pendulum) Derive(x dynamo.State, t float64) dynamo.State {
	theta := x[0]
	omega := x[1]

	alpha := -p.params.Gravity/p.params.Length*math.Sin(theta) - p.params.Damping/p.params.Mass*omega

	return dynamo.State{omega, alpha}
}

func (p *Pendulum) Energy(x dynamo.State) float64 {
	// KE = 0.5 * m * (L*omega)^2
	// PE = m * g * L * (1 - cos(theta))
	v := p.params.Length * x[1]
	ke := 0.5 * p.params.Mass * v * v
	pe := p.params.Mass * p.params.Gravity * p.params.Length * (1.0 - math.Cos(x[0]))
	return ke + pe
}

// NaturalFrequency is sqrt(g/L), the small-angle angular frequency.
func (p *Pendulum) NaturalFrequency() float64 {
	return math.Sqrt(p.params.Gravity / p.params.Length)
}

// BobPosition returns the bob coordinates with the pivot at the origin and
// y pointing up.
func (p *Pendulum) BobPosition(theta float64) (x, y float64) {
	x = p.params.Length * math.Sin(theta)
	y = -p.params.Length * math.Cos(theta)
	return
}

func (p *Pendulum) GetParams() map[string]float64 {
	return map[string]float64{
		"mass":    p.params.Mass,
		"length":  p.params.Length,
		"damping": p.params.Damping,
		"gravity": p.params.Gravity,
	}
}

// Equilibria returns the rest points (kπ, 0) with θ in [lo, hi]. Even k
// hang down and are stable; odd k balance upright and are saddles.
func (p *Pendulum) Equilibria(lo, hi float64) (stable, saddles []dynamo.State) {
	for k := math.Ceil(lo / math.Pi); k*math.Pi <= hi; k++ {
		x := dynamo.State{k * math.Pi, 0}
		if math.Mod(k, 2) == 0 {
			stable = append(stable, x)
		} else {
			saddles = append(saddles, x)
		}
	}
	return stable, saddles
}
