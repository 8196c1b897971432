package experiment

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/san-kum/pendulum/internal/analysis"
	"github.com/san-kum/pendulum/internal/config"
	"github.com/san-kum/pendulum/internal/dynamo"
	"github.com/san-kum/pendulum/internal/integrators"
	"github.com/san-kum/pendulum/internal/logging"
	"github.com/san-kum/pendulum/internal/metrics"
	"github.com/san-kum/pendulum/internal/observability"
	"github.com/san-kum/pendulum/internal/physics"
)

// Source yields uniform samples in [0, 1). *rand.Rand satisfies it.
type Source interface {
	Float64() float64
}

// Result holds the data products of one run. None of it is modified after
// Run returns. Seed is 0 when the initial draw came from a source given
// with WithSource.
type Result struct {
	Config     *config.Config
	Seed       int64
	Method     string
	Initial    dynamo.State
	Pendulum   *physics.Pendulum
	Trajectory *dynamo.Trajectory
	Field      *analysis.Field
	Stats      dynamo.Stats
	Elapsed    time.Duration

	Energy            metrics.EnergySummary
	Envelope          analysis.EnvelopeSummary
	DominantFrequency float64
}

// EnvelopeTol is the growth between successive θ peaks still counted as
// decaying.
const EnvelopeTol = 1e-6

type Experiment struct {
	cfg       *config.Config
	seed      int64
	src       Source
	customSrc bool
	registry  *Registry
	log       logging.Logger
	collector *observability.Collector
}

type Option func(*Experiment)

// WithSource replaces the seeded random source used for the initial draw.
func WithSource(src Source) Option {
	return func(e *Experiment) {
		e.src = src
		e.customSrc = src != nil
	}
}

func WithLogger(log logging.Logger) Option {
	return func(e *Experiment) { e.log = log }
}

func WithCollector(c *observability.Collector) Option {
	return func(e *Experiment) { e.collector = c }
}

// New prepares a run of cfg. A zero seed draws one from the clock.
func New(cfg *config.Config, opts ...Option) *Experiment {
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	e := &Experiment{
		cfg:      cfg.Clone(),
		seed:     seed,
		registry: NewRegistry(),
		log:      logging.Noop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.src == nil {
		e.src = rand.New(rand.NewSource(seed))
	}
	return e
}

// DrawInitial samples θ₀ and ω₀ uniformly within the configured bounds.
// Pinned components are used as given and consume no sample.
func DrawInitial(src Source, ic config.InitialConfig) dynamo.State {
	x := make(dynamo.State, 2)
	if ic.Theta0 != nil {
		x[0] = *ic.Theta0
	} else {
		x[0] = ic.ThetaMin + src.Float64()*(ic.ThetaMax-ic.ThetaMin)
	}
	if ic.Omega0 != nil {
		x[1] = *ic.Omega0
	} else {
		x[1] = ic.OmegaMin + src.Float64()*(ic.OmegaMax-ic.OmegaMin)
	}
	return x
}

func (e *Experiment) Run(ctx context.Context) (*Result, error) {
	if err := e.cfg.Validate(); err != nil {
		return nil, err
	}

	pend, err := physics.NewPendulum(e.cfg.Params)
	if err != nil {
		return nil, err
	}
	solver, err := e.registry.GetSolver(e.cfg.Solver)
	if err != nil {
		return nil, err
	}
	times, err := integrators.TimeGrid(e.cfg.Horizon, e.cfg.Dt)
	if err != nil {
		return nil, err
	}

	seed := e.seed
	if e.customSrc {
		seed = 0
	}
	x0 := DrawInitial(e.src, e.cfg.Initial)
	e.log.Info(ctx, "initial condition",
		logging.Float("theta0", x0[0]),
		logging.Float("omega0", x0[1]),
		logging.Any("seed", seed),
		logging.Any("custom_source", e.customSrc),
	)

	res := &Result{
		Config:   e.cfg,
		Seed:     seed,
		Method:   e.cfg.Solver.Method,
		Initial:  x0.Clone(),
		Pendulum: pend,
	}

	if err := e.integrate(ctx, res, solver, times); err != nil {
		return nil, err
	}
	if err := e.sample(ctx, res); err != nil {
		return nil, err
	}

	res.Energy = metrics.Summarize(res.Trajectory, pend)
	res.Envelope = analysis.SummarizeEnvelope(res.Trajectory.Theta(), EnvelopeTol)
	res.DominantFrequency = analysis.DominantFrequency(res.Trajectory.Theta(), e.cfg.Dt)

	return res, nil
}

func (e *Experiment) integrate(ctx context.Context, res *Result, solver integrators.Solver, times []float64) error {
	ctx, span := observability.Tracer().Start(ctx, "integrate")
	defer span.End()
	span.SetAttributes(
		attribute.String("method", res.Method),
		attribute.Int("outputs", len(times)),
	)
	for k, v := range res.Pendulum.GetParams() {
		span.SetAttributes(attribute.Float64("param."+k, v))
	}

	start := time.Now()
	traj, stats, err := solver.Solve(ctx, res.Pendulum, res.Initial, times)
	elapsed := time.Since(start)
	e.collector.ObserveSolve(res.Method, stats, elapsed)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		e.log.Error(ctx, "integration failed", logging.Err(err), logging.Int("accepted", stats.Accepted))
		return fmt.Errorf("integrate: %w", err)
	}

	span.SetAttributes(
		attribute.Int("accepted", stats.Accepted),
		attribute.Int("rejected", stats.Rejected),
	)
	e.log.Info(ctx, "integration finished",
		logging.String("method", res.Method),
		logging.Int("accepted", stats.Accepted),
		logging.Int("rejected", stats.Rejected),
		logging.Int("evaluations", stats.Evaluations),
		logging.Duration("elapsed", elapsed),
	)

	res.Trajectory = traj
	res.Stats = stats
	res.Elapsed = elapsed
	return nil
}

func (e *Experiment) sample(ctx context.Context, res *Result) error {
	ctx, span := observability.Tracer().Start(ctx, "sample")
	defer span.End()

	field, err := analysis.Sample(res.Pendulum, e.cfg.GridSpec())
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("sample field: %w", err)
	}
	e.collector.ObserveField(field)

	rows, cols := field.Dims()
	span.SetAttributes(attribute.Int("cells", rows*cols))
	e.log.Debug(ctx, "field sampled",
		logging.Int("rows", rows),
		logging.Int("cols", cols),
		logging.Int("fixed", field.FixedCount()),
		logging.Float("max_magnitude", field.MaxMagnitude()),
	)

	res.Field = field
	return nil
}
