package main

import (
	"context"
	"fmt"
	"io"
	"math"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"text/tabwriter"

	"github.com/guptarohit/asciigraph"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/attribute"
	"gopkg.in/yaml.v3"

	"github.com/san-kum/pendulum/internal/analysis"
	"github.com/san-kum/pendulum/internal/config"
	"github.com/san-kum/pendulum/internal/experiment"
	"github.com/san-kum/pendulum/internal/export"
	"github.com/san-kum/pendulum/internal/integrators"
	"github.com/san-kum/pendulum/internal/logging"
	"github.com/san-kum/pendulum/internal/observability"
	"github.com/san-kum/pendulum/internal/physics"
	"github.com/san-kum/pendulum/internal/viz"
)

var (
	configFile  string
	preset      string
	seed        int64
	theta0      float64
	omega0      float64
	integrator  string
	damping     float64
	horizon     float64
	dt          float64
	fixedPoints string
	logLevel    string
	logFormat   string
	metricsFile string
	traceFile   string
	theme       string

	outPath    string
	seriesPath string
	frameIndex int
	maxFrames  int
	gifScale   int
	stride     int
	noPlay     bool
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := runCLI(ctx, newRootCmd(), os.Stderr)
	stop()
	os.Exit(code)
}

// runCLI executes root and returns the process exit code. A failure is
// logged to errOut with the level and format given on the command line.
func runCLI(ctx context.Context, root *cobra.Command, errOut io.Writer) int {
	if err := root.ExecuteContext(ctx); err != nil {
		log := logging.New(logging.Config{Level: logLevel, Format: logFormat, Output: errOut})
		log.Error(ctx, "command failed", logging.Err(err))
		return 1
	}
	return 0
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "pendulum",
		Short:         "damped pendulum phase portrait and animation",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          showRun,
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&configFile, "config", "", "config file path (yaml)")
	pf.StringVar(&preset, "preset", "", "use preset configuration")
	pf.Int64Var(&seed, "seed", 0, "random seed for the initial state (0 = clock)")
	pf.Float64Var(&theta0, "theta0", 0, "initial angle, skips the random draw")
	pf.Float64Var(&omega0, "omega0", 0, "initial angular velocity, skips the random draw")
	pf.StringVar(&integrator, "integrator", "rk45", fmt.Sprintf("integrator %v", integrators.Names()))
	pf.Float64Var(&damping, "damping", 0.2, "damping coefficient b")
	pf.Float64Var(&horizon, "time", config.DefaultHorizon, "simulated duration in seconds")
	pf.Float64Var(&dt, "dt", config.DefaultDt, "output sample spacing")
	pf.StringVar(&fixedPoints, "fixed-points", "zero", "direction reported at fixed points (zero, nan, skip)")
	pf.StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	pf.StringVar(&logFormat, "log-format", "text", "log format (text, json)")
	pf.StringVar(&metricsFile, "metrics-file", "", "write prometheus metrics to this file")
	pf.StringVar(&traceFile, "trace-file", "", "write trace spans to this file")
	pf.StringVar(&theme, "theme", "cyberpunk", fmt.Sprintf("color theme %v", viz.ThemeNames()))

	rootCmd.Flags().StringVar(&outPath, "out", "", "phase portrait output (default from config)")
	rootCmd.Flags().IntVar(&stride, "stride", 0, "samples advanced per animation frame")
	rootCmd.Flags().BoolVar(&noPlay, "no-play", false, "write the phase portrait without playing the animation")

	showCmd := &cobra.Command{
		Use:   "show",
		Short: "write the phase portrait and play the animation",
		RunE:  showRun,
	}
	showCmd.Flags().StringVar(&outPath, "out", "", "phase portrait output (default from config)")
	showCmd.Flags().IntVar(&stride, "stride", 0, "samples advanced per animation frame")
	showCmd.Flags().BoolVar(&noPlay, "no-play", false, "write the phase portrait without playing the animation")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "run simulation and print a summary",
		RunE:  runSummary,
	}

	plotCmd := &cobra.Command{
		Use:   "plot",
		Short: "write the phase portrait (png, svg or pdf by extension)",
		RunE:  plotPortrait,
	}
	plotCmd.Flags().StringVar(&outPath, "out", "", "output path (default from config)")
	plotCmd.Flags().StringVar(&seriesPath, "series", "", "also write θ(t) and ω(t) to this path")

	playCmd := &cobra.Command{
		Use:   "play",
		Short: "play the animation in the terminal",
		RunE:  playAnimation,
	}
	playCmd.Flags().IntVar(&stride, "stride", 0, "samples advanced per frame")

	gifCmd := &cobra.Command{
		Use:   "gif",
		Short: "write the animation as a gif",
		RunE:  writeGIF,
	}
	gifCmd.Flags().StringVar(&outPath, "out", "", "output path (default from config)")
	gifCmd.Flags().IntVar(&maxFrames, "max-frames", 0, "frame cap (default from config)")
	gifCmd.Flags().IntVar(&gifScale, "scale", 0, "pixels per dot (default from config)")

	snapshotCmd := &cobra.Command{
		Use:   "snapshot",
		Short: "write one animation frame as svg",
		RunE:  writeSnapshot,
	}
	snapshotCmd.Flags().StringVar(&outPath, "out", "", "output path (default frame.svg)")
	snapshotCmd.Flags().IntVar(&frameIndex, "frame", -1, "sample index (-1 = last)")

	fieldCmd := &cobra.Command{
		Use:   "field",
		Short: "print the sampled direction field",
		RunE:  printField,
	}

	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "list available presets",
		RunE: func(cmd *cobra.Command, args []string) error {
			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tDESCRIPTION")
			for _, name := range config.ListPresets() {
				p, _ := config.GetPreset(name)
				fmt.Fprintf(w, "%s\t%s\n", name, p.Description)
			}
			return w.Flush()
		},
	}

	configCmd := &cobra.Command{
		Use:   "config [path]",
		Short: "print the effective config, or save it to path",
		Args:  cobra.MaximumNArgs(1),
		RunE:  showConfig,
	}

	rootCmd.AddCommand(showCmd, runCmd, plotCmd, playCmd, gifCmd, snapshotCmd, fieldCmd, presetsCmd, configCmd)
	return rootCmd
}

func showRun(cmd *cobra.Command, args []string) error {
	return withRun(cmd, func(ctx context.Context, s *session, res *experiment.Result) error {
		path := s.cfg.Output.Plot
		if outPath != "" {
			path = outPath
		}
		if err := savePortrait(ctx, s, res, path); err != nil {
			return err
		}
		if noPlay {
			return nil
		}
		return play(ctx, s, res)
	})
}

func runSummary(cmd *cobra.Command, args []string) error {
	return withRun(cmd, func(ctx context.Context, s *session, res *experiment.Result) error {
		traj := res.Trajectory
		if err := writeSummary(os.Stdout, s.runID, res); err != nil {
			return err
		}

		fmt.Println()
		fmt.Println(asciigraph.Plot(traj.Theta(),
			asciigraph.Height(10),
			asciigraph.Width(80),
			asciigraph.Caption("theta (angle)"),
		))
		fmt.Println()
		fmt.Println(asciigraph.Plot(traj.Omega(),
			asciigraph.Height(10),
			asciigraph.Width(80),
			asciigraph.Caption("omega (angular velocity)"),
		))

		portrait := analysis.PhasePortraitFromTrajectory(traj, 0, 1, max(1, traj.Len()/2000))
		stable, saddles := res.Pendulum.Equilibria(res.Field.ThetaAxis[0], res.Field.ThetaAxis[len(res.Field.ThetaAxis)-1])
		fmt.Println()
		fmt.Println("phase portrait (θ vs ω, S start, E end, o stable, x saddle):")
		fmt.Println(analysis.PhasePortraitToASCII(portrait, 70, 20, &analysis.PortraitContext{
			Field:   res.Field,
			Stable:  stable,
			Saddles: saddles,
		}))
		return nil
	})
}

// writeSummary prints the tabulated statistics of res.
func writeSummary(out io.Writer, runID string, res *experiment.Result) error {
	traj := res.Trajectory
	tEnd, xEnd, _ := traj.Final()

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "run id:\t%s\n", runID)
	fmt.Fprintf(w, "seed:\t%d\n", res.Seed)
	fmt.Fprintf(w, "integrator:\t%s\n", res.Method)
	fmt.Fprintf(w, "initial:\tθ=%.4f rad\tω=%.4f rad/s\n", res.Initial[0], res.Initial[1])
	fmt.Fprintf(w, "final (t=%.2f):\tθ=%.4f rad\tω=%.4f rad/s\n", tEnd, xEnd[0], xEnd[1])
	fmt.Fprintf(w, "samples:\t%d\n", traj.Len())
	fmt.Fprintf(w, "steps:\t%d accepted\t%d rejected\t%d evaluations\n", res.Stats.Accepted, res.Stats.Rejected, res.Stats.Evaluations)
	fmt.Fprintf(w, "elapsed:\t%v\n", res.Elapsed)
	fmt.Fprintf(w, "energy:\t%.4f J → %.4f J\tmax drift %.2e\n", res.Energy.Initial, res.Energy.Final, res.Energy.MaxDrift)
	fmt.Fprintf(w, "dissipative:\t%v\n", res.Energy.Dissipative(1e-6))

	env := res.Envelope
	if env.Peaks > 0 {
		fmt.Fprintf(w, "envelope:\t%d peaks\tθ=%.4f at t=%.2f → θ=%.4f at t=%.2f\n",
			env.Peaks, env.First.Value, traj.Times[env.First.Index], env.Last.Value, traj.Times[env.Last.Index])
		fmt.Fprintf(w, "amplitude:\tdrift %.2e\tdecaying %v\n", env.Drift, env.Decaying)
	} else {
		fmt.Fprintf(w, "envelope:\tno peaks\n")
	}

	if res.DominantFrequency > 0 {
		fmt.Fprintf(w, "dominant frequency:\t%.4f Hz\tnatural %.4f Hz\n",
			res.DominantFrequency, res.Pendulum.NaturalFrequency()/(2*math.Pi))
	}
	return w.Flush()
}

func plotPortrait(cmd *cobra.Command, args []string) error {
	return withRun(cmd, func(ctx context.Context, s *session, res *experiment.Result) error {
		path := s.cfg.Output.Plot
		if outPath != "" {
			path = outPath
		}
		if err := savePortrait(ctx, s, res, path); err != nil {
			return err
		}
		if seriesPath == "" {
			return nil
		}

		p, err := export.NewTimeSeries(res.Trajectory)
		if err != nil {
			return err
		}
		if err := export.SavePlot(p, seriesPath, plotOptions(s.cfg)); err != nil {
			return err
		}
		s.log.Info(ctx, "time series written", logging.String("file", seriesPath))
		fmt.Printf("wrote %s\n", seriesPath)
		return nil
	})
}

func playAnimation(cmd *cobra.Command, args []string) error {
	return withRun(cmd, func(ctx context.Context, s *session, res *experiment.Result) error {
		return play(ctx, s, res)
	})
}

func writeGIF(cmd *cobra.Command, args []string) error {
	return withRun(cmd, func(ctx context.Context, s *session, res *experiment.Result) error {
		scene, err := newScene(s.cfg, res)
		if err != nil {
			return err
		}

		path := s.cfg.Output.GIF
		if outPath != "" {
			path = outPath
		}
		opts := export.GIFOptions{
			MaxFrames: s.cfg.Animation.GIFMaxFrames,
			Scale:     s.cfg.Animation.GIFScale,
			Theme:     viz.GetTheme(s.cfg.Animation.Theme),
			Dt:        s.cfg.Dt,
		}
		if maxFrames > 0 {
			opts.MaxFrames = maxFrames
		}
		if gifScale > 0 {
			opts.Scale = gifScale
		}

		ctx, span := observability.Tracer().Start(ctx, "render")
		defer span.End()
		span.SetAttributes(attribute.String("output", "gif"))

		n, err := export.WriteGIF(ctx, path, scene, opts)
		if err != nil {
			span.RecordError(err)
			return err
		}
		s.collector.ObserveFrames("gif", n)
		s.log.Info(ctx, "gif written", logging.String("file", path), logging.Int("frames", n))
		fmt.Printf("wrote %s (%d frames)\n", path, n)
		return nil
	})
}

func writeSnapshot(cmd *cobra.Command, args []string) error {
	return withRun(cmd, func(ctx context.Context, s *session, res *experiment.Result) error {
		scene, err := newScene(s.cfg, res)
		if err != nil {
			return err
		}
		i := frameIndex
		if i < 0 || i >= scene.Frames() {
			i = scene.Frames() - 1
		}

		path := outPath
		if path == "" {
			path = "frame.svg"
		}
		img := scene.Image(i, 1, viz.GetTheme(s.cfg.Animation.Theme))
		if err := os.WriteFile(path, []byte(export.FrameToSVG(img, 3)), 0o644); err != nil {
			return err
		}
		s.collector.ObserveFrames("svg", 1)
		s.log.Info(ctx, "snapshot written", logging.String("file", path), logging.Int("frame", i))
		fmt.Printf("wrote %s (t=%.2f)\n", path, res.Trajectory.Times[i])
		return nil
	})
}

func printField(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	pend, err := physics.NewPendulum(cfg.Params)
	if err != nil {
		return err
	}
	field, err := analysis.Sample(pend, cfg.GridSpec())
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(w, "THETA\tOMEGA\tDTHETA\tDOMEGA\tU\tV\t|V|\t")
	for _, row := range field.Cells {
		for _, v := range row {
			if !field.Visible(v) {
				continue
			}
			fmt.Fprintf(w, "%.4f\t%.4f\t%.4f\t%.4f\t%.4f\t%.4f\t%.4f\t\n",
				v.Theta, v.Omega, v.DTheta, v.DOmega, v.U, v.V, v.Magnitude)
		}
	}
	if err := w.Flush(); err != nil {
		return err
	}

	rows, cols := field.Dims()
	fmt.Fprintf(os.Stderr, "%dx%d cells, %d fixed, |v| in [%.4f, %.4f]\n",
		rows, cols, field.FixedCount(), field.MinMagnitude(), field.MaxMagnitude())
	return nil
}

func showConfig(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if len(args) == 1 {
		if err := config.Save(args[0], cfg); err != nil {
			return err
		}
		fmt.Printf("wrote %s\n", args[0])
		return nil
	}
	enc := yaml.NewEncoder(os.Stdout)
	enc.SetIndent(2)
	if err := enc.Encode(cfg); err != nil {
		return err
	}
	return enc.Close()
}

func plotOptions(cfg *config.Config) export.PlotOptions {
	return export.PlotOptions{
		Width:  cfg.Output.PlotWidth,
		Height: cfg.Output.PlotHeight,
		DPI:    cfg.Output.PlotDPI,
	}
}

func savePortrait(ctx context.Context, s *session, res *experiment.Result, path string) error {
	ctx, span := observability.Tracer().Start(ctx, "render")
	defer span.End()
	span.SetAttributes(attribute.String("output", strings.TrimPrefix(filepath.Ext(path), ".")))

	p, err := export.NewPhasePortrait(res.Field, res.Trajectory)
	if err != nil {
		return err
	}
	if err := export.SavePlot(p, path, plotOptions(s.cfg)); err != nil {
		span.RecordError(err)
		return err
	}
	s.collector.ObserveFrames("plot", 1)
	s.log.Info(ctx, "phase portrait written", logging.String("file", path))
	fmt.Printf("wrote %s\n", path)
	return nil
}

func newScene(cfg *config.Config, res *experiment.Result) (*viz.Scene, error) {
	return viz.NewScene(res.Trajectory, res.Field, res.Pendulum, cfg.Animation.Width, cfg.Animation.Height)
}

func play(ctx context.Context, s *session, res *experiment.Result) error {
	scene, err := newScene(s.cfg, res)
	if err != nil {
		return err
	}
	n := s.cfg.Animation.FrameStride
	if stride > 0 {
		n = stride
	}

	shown, err := viz.Play(ctx, scene, viz.PlayerOptions{
		Stride:   n,
		Interval: viz.FrameInterval(s.cfg.Dt, n),
		Theme:    viz.GetTheme(s.cfg.Animation.Theme),
		Title:    fmt.Sprintf("DAMPED PENDULUM  b=%.2f", s.cfg.Params.Damping),
	})
	s.collector.ObserveFrames("terminal", shown)
	if err != nil {
		return fmt.Errorf("animation: %w", err)
	}
	return nil
}
