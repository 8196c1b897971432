package analysis

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/san-kum/pendulum/internal/dynamo"
)

// FixedPointPolicy decides what a cell with zero magnitude reports as its
// direction.
type FixedPointPolicy string

const (
	// FixedZero reports a zero direction vector.
	FixedZero FixedPointPolicy = "zero"
	// FixedNaN reports NaN components, as 0/0 would produce.
	FixedNaN FixedPointPolicy = "nan"
	// FixedSkip reports a zero direction and asks renderers to omit the cell.
	FixedSkip FixedPointPolicy = "skip"
)

func ParseFixedPointPolicy(s string) (FixedPointPolicy, error) {
	switch p := FixedPointPolicy(s); p {
	case FixedZero, FixedNaN, FixedSkip:
		return p, nil
	case "":
		return FixedZero, nil
	}
	return "", fmt.Errorf("unknown fixed point policy %q: %w", s, dynamo.ErrInvalidConfig)
}

// GridSpec describes a regular grid over the (θ, ω) plane. Both ranges
// include their endpoints.
type GridSpec struct {
	ThetaMin, ThetaMax float64
	OmegaMin, OmegaMax float64
	Cols, Rows         int
	FixedPoints        FixedPointPolicy
}

func DefaultGridSpec() GridSpec {
	return GridSpec{
		ThetaMin:    -4 * math.Pi,
		ThetaMax:    4 * math.Pi,
		OmegaMin:    -20,
		OmegaMax:    20,
		Cols:        32,
		Rows:        32,
		FixedPoints: FixedZero,
	}
}

func (g GridSpec) Validate() error {
	if g.Cols < 2 || g.Rows < 2 {
		return fmt.Errorf("grid needs at least 2x2 points, got %dx%d: %w", g.Cols, g.Rows, dynamo.ErrInvalidConfig)
	}
	for _, v := range []float64{g.ThetaMin, g.ThetaMax, g.OmegaMin, g.OmegaMax} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("grid bounds must be finite: %w", dynamo.ErrInvalidConfig)
		}
	}
	if !(g.ThetaMax > g.ThetaMin) || !(g.OmegaMax > g.OmegaMin) {
		return fmt.Errorf("grid ranges must be increasing: %w", dynamo.ErrInvalidConfig)
	}
	if _, err := ParseFixedPointPolicy(string(g.FixedPoints)); err != nil {
		return err
	}
	return nil
}

// Vector is one sampled cell: the raw derivative, its unit direction (U, V)
// and its magnitude.
type Vector struct {
	Theta, Omega   float64
	DTheta, DOmega float64
	U, V           float64
	Magnitude      float64
	Fixed          bool
}

// Field is a sampled direction field. Cells[r][c] sits at
// (ThetaAxis[c], OmegaAxis[r]).
type Field struct {
	ThetaAxis []float64
	OmegaAxis []float64
	Cells     [][]Vector
	Policy    FixedPointPolicy

	minMag, maxMag float64
}

// Sample evaluates dyn at every grid point. dyn must be two dimensional.
func Sample(dyn dynamo.System, spec GridSpec) (*Field, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	if dyn.StateDim() != 2 {
		return nil, fmt.Errorf("field sampling needs a 2D system, got %d: %w", dyn.StateDim(), dynamo.ErrDimensionMismatch)
	}
	policy, _ := ParseFixedPointPolicy(string(spec.FixedPoints))

	f := &Field{
		ThetaAxis: make([]float64, spec.Cols),
		OmegaAxis: make([]float64, spec.Rows),
		Cells:     make([][]Vector, spec.Rows),
		Policy:    policy,
		minMag:    math.Inf(1),
		maxMag:    math.Inf(-1),
	}
	floats.Span(f.ThetaAxis, spec.ThetaMin, spec.ThetaMax)
	floats.Span(f.OmegaAxis, spec.OmegaMin, spec.OmegaMax)

	x := make(dynamo.State, 2)
	for r, omega := range f.OmegaAxis {
		row := make([]Vector, spec.Cols)
		for c, theta := range f.ThetaAxis {
			x[0], x[1] = theta, omega
			d := dyn.Derive(x, 0)
			v := Vector{
				Theta:     theta,
				Omega:     omega,
				DTheta:    d[0],
				DOmega:    d[1],
				Magnitude: math.Hypot(d[0], d[1]),
			}
			if v.Magnitude == 0 {
				v.Fixed = true
				if policy == FixedNaN {
					v.U, v.V = math.NaN(), math.NaN()
				}
			} else {
				v.U = d[0] / v.Magnitude
				v.V = d[1] / v.Magnitude
			}
			if !math.IsNaN(v.Magnitude) && !math.IsInf(v.Magnitude, 0) {
				f.minMag = math.Min(f.minMag, v.Magnitude)
				f.maxMag = math.Max(f.maxMag, v.Magnitude)
			}
			row[c] = v
		}
		f.Cells[r] = row
	}

	return f, nil
}

// Dims returns the number of rows (ω samples) and columns (θ samples).
func (f *Field) Dims() (rows, cols int) {
	return len(f.OmegaAxis), len(f.ThetaAxis)
}

func (f *Field) At(row, col int) Vector {
	return f.Cells[row][col]
}

func (f *Field) MinMagnitude() float64 { return f.minMag }
func (f *Field) MaxMagnitude() float64 { return f.maxMag }

// Visible reports whether renderers should draw v.
func (f *Field) Visible(v Vector) bool {
	return !(v.Fixed && f.Policy == FixedSkip)
}

// FixedCount returns how many cells have zero magnitude.
func (f *Field) FixedCount() int {
	n := 0
	for _, row := range f.Cells {
		for _, v := range row {
			if v.Fixed {
				n++
			}
		}
	}
	return n
}
