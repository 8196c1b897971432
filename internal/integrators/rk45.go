package integrators

import (
	"context"
	"fmt"
	"math"

	"github.com/san-kum/pendulum/internal/dynamo"
)

// Dormand-Prince coefficients (RK45)
var (
	a2 = 1.0 / 5.0
	a3 = 3.0 / 10.0
	a4 = 4.0 / 5.0
	a5 = 8.0 / 9.0

	b21 = 1.0 / 5.0
	b31 = 3.0 / 40.0
	b32 = 9.0 / 40.0
	b41 = 44.0 / 45.0
	b42 = -56.0 / 15.0
	b43 = 32.0 / 9.0
	b51 = 19372.0 / 6561.0
	b52 = -25360.0 / 2187.0
	b53 = 64448.0 / 6561.0
	b54 = -212.0 / 729.0
	b61 = 9017.0 / 3168.0
	b62 = -355.0 / 33.0
	b63 = 46732.0 / 5247.0
	b64 = 49.0 / 176.0
	b65 = -5103.0 / 18656.0

	c1 = 35.0 / 384.0
	c3 = 500.0 / 1113.0
	c4 = 125.0 / 192.0
	c5 = -2187.0 / 6784.0
	c6 = 11.0 / 84.0

	dc1 = c1 - 5179.0/57600.0
	dc3 = c3 - 7571.0/16695.0
	dc4 = c4 - 393.0/640.0
	dc5 = c5 - -92097.0/339200.0
	dc6 = c6 - 187.0/2100.0
	dc7 = -1.0 / 40.0
)

// densePoly holds the continuous extension of the 5th order solution: for
// s in [0, 1], x(t+s*h) = x + h * sum_j k_j * (P_j0*s + P_j1*s² + P_j2*s³ + P_j3*s⁴).
var densePoly = [7][4]float64{
	{1, -8048581381.0 / 2820520608.0, 8663915743.0 / 2820520608.0, -12715105075.0 / 11282082432.0},
	{0, 0, 0, 0},
	{0, 131558114200.0 / 32700410799.0, -68118460800.0 / 10900136933.0, 87487479700.0 / 32700410799.0},
	{0, -1754552775.0 / 470086768.0, 14199869525.0 / 1410260304.0, -10690763975.0 / 1880347072.0},
	{0, 127303824393.0 / 49829197408.0, -318862633887.0 / 49829197408.0, 701980252875.0 / 199316789632.0},
	{0, -282668133.0 / 205662961.0, 2019193451.0 / 616988883.0, -1453857185.0 / 822651844.0},
	{0, 40617522.0 / 29380423.0, -110615467.0 / 29380423.0, 69997945.0 / 29380423.0},
}

// stages holds the seven slopes of one step; stages[6] is the derivative at
// the new point and seeds the next step.
type stages [7]dynamo.State

type RK45 struct {
	RTol     float64
	ATol     float64
	MaxSteps int
	MinStep  float64
	// MaxStep bounds the step size; 0 leaves it unbounded.
	MaxStep float64

	safety   float64
	minScale float64
	maxScale float64
}

func NewRK45() *RK45 {
	return &RK45{
		RTol:     1e-6,
		ATol:     1e-9,
		MaxSteps: 1_000_000,
		MinStep:  1e-12,
		safety:   0.9,
		minScale: 0.2,
		maxScale: 10.0,
	}
}

func (r *RK45) validate() error {
	if !(r.RTol > 0) || !(r.ATol > 0) {
		return fmt.Errorf("tolerances must be positive (rtol=%g, atol=%g): %w", r.RTol, r.ATol, dynamo.ErrInvalidConfig)
	}
	if r.MinStep < 0 || r.MaxStep < 0 {
		return fmt.Errorf("step bounds must be non-negative: %w", dynamo.ErrInvalidConfig)
	}
	return nil
}

// Step takes one 5th order step of exactly dt without error control.
func (r *RK45) Step(dyn dynamo.System, x dynamo.State, t, dt float64) dynamo.State {
	newX, _, _ := r.attempt(dyn, x, dyn.Derive(x, t), t, dt)
	return newX
}

// StepAdaptive takes one accepted step starting with a trial size of dt,
// shrinking it until the local error is within tolerance. It returns the new
// state and the suggested size for the next step.
func (r *RK45) StepAdaptive(dyn dynamo.System, x dynamo.State, t, dt float64) (dynamo.State, float64, error) {
	if err := r.validate(); err != nil {
		return x, dt, err
	}

	k1 := dyn.Derive(x, t)
	h := dt
	for {
		if h < r.MinStep {
			return x, h, &dynamo.SimulationError{Time: t, State: x.Clone(), Wrapped: dynamo.ErrStepTooSmall}
		}
		xNew, _, errNorm := r.attempt(dyn, x, k1, t, h)
		if errNorm <= 1 {
			return xNew, h * r.factor(errNorm, true), nil
		}
		h *= r.factor(errNorm, false)
	}
}

// Solve integrates with error control and evaluates the continuous extension
// at each requested output time. The step size never snaps to the output grid.
func (r *RK45) Solve(ctx context.Context, dyn dynamo.System, x0 dynamo.State, times []float64) (*dynamo.Trajectory, dynamo.Stats, error) {
	var stats dynamo.Stats
	if err := r.validate(); err != nil {
		return nil, stats, err
	}
	if err := checkProblem(dyn, x0, times); err != nil {
		return nil, stats, err
	}

	traj := dynamo.NewTrajectory(len(times))
	t := times[0]
	tEnd := times[len(times)-1]
	x := x0.Clone()
	traj.Append(t, x)
	if len(times) == 1 {
		return traj, stats, nil
	}

	f := dyn.Derive(x, t)
	stats.Evaluations++
	h := r.initialStep(dyn, x, f, t, tEnd, &stats)

	next := 1
	rejectedLast := false
	invalid := false
	for iter := 0; next < len(times); iter++ {
		if iter%ctxCheckInterval == 0 {
			if err := canceled(ctx, stats.Accepted, t, x); err != nil {
				return traj, stats, err
			}
		}
		if r.MaxSteps > 0 && stats.Accepted >= r.MaxSteps {
			return traj, stats, &dynamo.SimulationError{Step: stats.Accepted, Time: t, State: x.Clone(), Wrapped: dynamo.ErrMaxSteps}
		}

		if r.MaxStep > 0 && h > r.MaxStep {
			h = r.MaxStep
		}
		last := false
		if t+h >= tEnd {
			h = tEnd - t
			last = true
		}
		if h < r.MinStep && !last {
			wrapped := dynamo.ErrStepTooSmall
			if invalid {
				wrapped = dynamo.ErrInvalidState
			}
			return traj, stats, &dynamo.SimulationError{Step: stats.Accepted, Time: t, State: x.Clone(), Wrapped: wrapped}
		}

		xNew, k, errNorm := r.attempt(dyn, x, f, t, h)
		stats.Evaluations += 6

		invalid = !xNew.IsValid() || math.IsNaN(errNorm) || math.IsInf(errNorm, 0)
		if invalid || errNorm > 1 {
			stats.Rejected++
			rejectedLast = true
			if invalid {
				h *= r.minScale
			} else {
				h *= r.factor(errNorm, false)
			}
			continue
		}

		tNew := t + h
		if last {
			tNew = tEnd
		}
		for next < len(times) && times[next] <= tNew {
			s := (times[next] - t) / h
			if s >= 1 {
				traj.Append(times[next], xNew)
			} else {
				traj.Append(times[next], denseEval(x, k, h, s))
			}
			next++
		}

		t, x, f = tNew, xNew, k[6]
		stats.Accepted++
		stats.LastStep = h

		factor := r.factor(errNorm, true)
		if rejectedLast {
			factor = math.Min(1, factor)
		}
		rejectedLast = false
		h *= factor
	}

	return traj, stats, nil
}

// attempt performs one Dormand-Prince step of size h from (t, x) with
// k1 = f(t, x) and returns the 5th order result, the stage slopes and the
// RMS error norm scaled by the tolerances.
func (r *RK45) attempt(dyn dynamo.System, x, k1 dynamo.State, t, h float64) (dynamo.State, *stages, float64) {
	n := len(x)
	var k stages
	k[0] = k1

	tmp := make(dynamo.State, n)
	for i := 0; i < n; i++ {
		tmp[i] = x[i] + h*b21*k[0][i]
	}
	k[1] = dyn.Derive(tmp, t+a2*h)

	for i := 0; i < n; i++ {
		tmp[i] = x[i] + h*(b31*k[0][i]+b32*k[1][i])
	}
	k[2] = dyn.Derive(tmp, t+a3*h)

	for i := 0; i < n; i++ {
		tmp[i] = x[i] + h*(b41*k[0][i]+b42*k[1][i]+b43*k[2][i])
	}
	k[3] = dyn.Derive(tmp, t+a4*h)

	for i := 0; i < n; i++ {
		tmp[i] = x[i] + h*(b51*k[0][i]+b52*k[1][i]+b53*k[2][i]+b54*k[3][i])
	}
	k[4] = dyn.Derive(tmp, t+a5*h)

	for i := 0; i < n; i++ {
		tmp[i] = x[i] + h*(b61*k[0][i]+b62*k[1][i]+b63*k[2][i]+b64*k[3][i]+b65*k[4][i])
	}
	k[5] = dyn.Derive(tmp, t+h)

	xNew := make(dynamo.State, n)
	for i := 0; i < n; i++ {
		xNew[i] = x[i] + h*(c1*k[0][i]+c3*k[2][i]+c4*k[3][i]+c5*k[4][i]+c6*k[5][i])
	}

	k[6] = dyn.Derive(xNew, t+h)

	sum := 0.0
	for i := 0; i < n; i++ {
		errEst := h * (dc1*k[0][i] + dc3*k[2][i] + dc4*k[3][i] + dc5*k[4][i] + dc6*k[5][i] + dc7*k[6][i])
		scale := r.ATol + r.RTol*math.Max(math.Abs(x[i]), math.Abs(xNew[i]))
		e := errEst / scale
		sum += e * e
	}
	errNorm := 0.0
	if n > 0 {
		errNorm = math.Sqrt(sum / float64(n))
	}

	return xNew, &k, errNorm
}

func (r *RK45) factor(errNorm float64, accepted bool) float64 {
	if errNorm == 0 {
		return r.maxScale
	}
	scale := r.safety * math.Pow(errNorm, -0.2)
	if accepted {
		return math.Min(r.maxScale, scale)
	}
	return math.Max(r.minScale, scale)
}

// initialStep estimates a first step from the local scale of the solution
// and its first two derivatives.
func (r *RK45) initialStep(dyn dynamo.System, x, f dynamo.State, t, tEnd float64, stats *dynamo.Stats) float64 {
	span := tEnd - t
	n := len(x)
	scale := make([]float64, n)
	for i := range x {
		scale[i] = r.ATol + math.Abs(x[i])*r.RTol
	}

	d0 := rmsScaled(x, scale)
	d1 := rmsScaled(f, scale)
	h0 := 1e-6
	if d0 >= 1e-5 && d1 >= 1e-5 {
		h0 = 0.01 * d0 / d1
	}
	h0 = math.Min(h0, span)

	x1 := make(dynamo.State, n)
	for i := range x {
		x1[i] = x[i] + h0*f[i]
	}
	f1 := dyn.Derive(x1, t+h0)
	stats.Evaluations++

	d2 := rmsScaled(f1.Sub(f), scale) / h0

	var h1 float64
	if d1 <= 1e-15 && d2 <= 1e-15 {
		h1 = math.Max(1e-6, h0*1e-3)
	} else {
		h1 = math.Pow(0.01/math.Max(d1, d2), 0.2)
	}

	h := math.Min(100*h0, h1)
	if r.MaxStep > 0 {
		h = math.Min(h, r.MaxStep)
	}
	return math.Min(h, span)
}

func denseEval(x dynamo.State, k *stages, h, s float64) dynamo.State {
	s2 := s * s
	s3 := s2 * s
	s4 := s3 * s

	out := make(dynamo.State, len(x))
	for i := range x {
		acc := 0.0
		for j := 0; j < len(densePoly); j++ {
			p := densePoly[j]
			acc += k[j][i] * (p[0]*s + p[1]*s2 + p[2]*s3 + p[3]*s4)
		}
		out[i] = x[i] + h*acc
	}
	return out
}

func rmsScaled(v dynamo.State, scale []float64) float64 {
	if len(v) == 0 {
		return 0
	}
	sum := 0.0
	for i := range v {
		e := v[i] / scale[i]
		sum += e * e
	}
	return math.Sqrt(sum / float64(len(v)))
}
