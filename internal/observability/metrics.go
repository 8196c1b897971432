package observability

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/san-kum/pendulum/internal/analysis"
	"github.com/san-kum/pendulum/internal/dynamo"
)

// Collector bundles the Prometheus metrics of a run.
type Collector struct {
	gatherer prometheus.Gatherer

	SolverSteps       *prometheus.CounterVec
	SolverEvaluations prometheus.Counter
	SolveDuration     *prometheus.HistogramVec
	FieldCells        *prometheus.GaugeVec
	FramesRendered    *prometheus.CounterVec
}

// NewCollector registers the metrics against reg, using a fresh registry
// when reg is nil.
func NewCollector(reg *prometheus.Registry) (*Collector, error) {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}

	steps, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "pendulum_solver_steps_total",
		Help: "Solver steps, labeled by whether the step was accepted or rejected.",
	}, []string{"result"}), "pendulum_solver_steps_total")
	if err != nil {
		return nil, err
	}

	evals, err := registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "pendulum_solver_evaluations_total",
		Help: "Right-hand side evaluations performed by the solver.",
	}), "pendulum_solver_evaluations_total")
	if err != nil {
		return nil, err
	}

	durations, err := registerHistogramVec(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "pendulum_solve_duration_seconds",
		Help:    "Wall time of one integration in seconds.",
		Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
	}, []string{"method"}), "pendulum_solve_duration_seconds")
	if err != nil {
		return nil, err
	}

	cells, err := registerGaugeVec(reg, prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "pendulum_field_cells",
		Help: "Cells in the sampled direction field, labeled total or fixed.",
	}, []string{"kind"}), "pendulum_field_cells")
	if err != nil {
		return nil, err
	}

	frames, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "pendulum_frames_rendered_total",
		Help: "Animation frames rendered, labeled by output.",
	}, []string{"output"}), "pendulum_frames_rendered_total")
	if err != nil {
		return nil, err
	}

	return &Collector{
		gatherer:          reg,
		SolverSteps:       steps,
		SolverEvaluations: evals,
		SolveDuration:     durations,
		FieldCells:        cells,
		FramesRendered:    frames,
	}, nil
}

func (c *Collector) ObserveSolve(method string, stats dynamo.Stats, elapsed time.Duration) {
	if c == nil {
		return
	}
	c.SolverSteps.WithLabelValues("accepted").Add(float64(stats.Accepted))
	c.SolverSteps.WithLabelValues("rejected").Add(float64(stats.Rejected))
	c.SolverEvaluations.Add(float64(stats.Evaluations))
	c.SolveDuration.WithLabelValues(method).Observe(elapsed.Seconds())
}

func (c *Collector) ObserveField(f *analysis.Field) {
	if c == nil || f == nil {
		return
	}
	rows, cols := f.Dims()
	c.FieldCells.WithLabelValues("total").Set(float64(rows * cols))
	c.FieldCells.WithLabelValues("fixed").Set(float64(f.FixedCount()))
}

func (c *Collector) ObserveFrames(output string, n int) {
	if c == nil {
		return
	}
	c.FramesRendered.WithLabelValues(output).Add(float64(n))
}

// WriteTextfile writes every metric in the text exposition format.
func (c *Collector) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, c.gatherer); err != nil {
		return fmt.Errorf("write metrics to %s: %w", path, err)
	}
	return nil
}

func registerCounter(reg prometheus.Registerer, c prometheus.Counter, name string) (prometheus.Counter, error) {
	if err := reg.Register(c); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Counter); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return c, nil
}

func registerCounterVec(reg prometheus.Registerer, vec *prometheus.CounterVec, name string) (*prometheus.CounterVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerHistogramVec(reg prometheus.Registerer, vec *prometheus.HistogramVec, name string) (*prometheus.HistogramVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.HistogramVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerGaugeVec(reg prometheus.Registerer, vec *prometheus.GaugeVec, name string) (*prometheus.GaugeVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.GaugeVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}
