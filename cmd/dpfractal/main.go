package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"text/tabwriter"

	kitlog "github.com/go-kit/kit/log"
	"github.com/go-kit/kit/log/level"
	"github.com/spf13/cobra"

	"github.com/san-kum/dpfractal/internal/config"
	"github.com/san-kum/dpfractal/internal/grid"
	"github.com/san-kum/dpfractal/internal/logging"
	"github.com/san-kum/dpfractal/internal/pendulum"
	"github.com/san-kum/dpfractal/internal/render"
	"github.com/san-kum/dpfractal/internal/trace"
	"github.com/san-kum/dpfractal/internal/tui"
	"github.com/san-kum/dpfractal/internal/video"
)

var (
	verbose bool
	dataDir string

	configFile string
	preset     string
	outPrefix  string
	frames     int
	steps      int
	dt         float64
	detail     int
	height     int
	workers    int
	videoPath  string
	fps        int
	live       bool

	theta1     float64
	theta2     float64
	traceSteps int
	every      int
	pngPath    string

	plotWidth  int
	plotHeight int
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "dpfractal",
		Short:         "double pendulum fractal renderer",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	renderCmd := &cobra.Command{
		Use:   "render",
		Short: "render the angle-grid fractal as numbered PPM frames",
		Args:  cobra.NoArgs,
		RunE:  runRender,
	}
	renderCmd.Flags().StringVar(&configFile, "config", "", "config file path (yaml)")
	renderCmd.Flags().StringVar(&preset, "preset", "", "use preset configuration")
	renderCmd.Flags().StringVar(&outPrefix, "out", config.DefaultPrefix, "output path prefix")
	renderCmd.Flags().IntVar(&frames, "frames", config.DefaultNumFrames, "number of frames")
	renderCmd.Flags().IntVar(&steps, "steps", config.DefaultNumSteps, "integration sub-steps per frame")
	renderCmd.Flags().Float64Var(&dt, "dt", config.DefaultTimestep, "timestep")
	renderCmd.Flags().IntVar(&detail, "detail", config.DefaultDetail, "grid width")
	renderCmd.Flags().IntVar(&height, "height", 0, "grid height (default: detail)")
	renderCmd.Flags().IntVar(&workers, "workers", 0, "parallel workers (default: GOMAXPROCS)")
	renderCmd.Flags().StringVar(&videoPath, "video", "", "also record frames to an MJPEG AVI")
	renderCmd.Flags().IntVar(&fps, "fps", config.DefaultFPS, "video frame rate")
	renderCmd.Flags().BoolVar(&live, "live", false, "show live progress")

	traceCmd := &cobra.Command{
		Use:   "trace",
		Short: "simulate one pendulum and store its trajectory",
		Args:  cobra.NoArgs,
		RunE:  runTrace,
	}
	traceCmd.Flags().StringVar(&dataDir, "data", ".dpfractal", "data directory")
	traceCmd.Flags().Float64Var(&theta1, "theta1", trace.DefaultTheta1, "initial upper angle")
	traceCmd.Flags().Float64Var(&theta2, "theta2", trace.DefaultTheta2, "initial lower angle")
	traceCmd.Flags().IntVar(&traceSteps, "steps", trace.DefaultSteps, "integration steps")
	traceCmd.Flags().IntVar(&every, "every", trace.DefaultEvery, "keep every n-th step")
	traceCmd.Flags().Float64Var(&dt, "dt", pendulum.DefaultTimestep, "timestep")
	traceCmd.Flags().StringVar(&pngPath, "png", "", "write theta1/theta2 chart to this PNG")

	runsCmd := &cobra.Command{
		Use:   "runs",
		Short: "list stored traces",
		Args:  cobra.NoArgs,
		RunE:  listRuns,
	}
	runsCmd.Flags().StringVar(&dataDir, "data", ".dpfractal", "data directory")

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot a stored trace in the terminal",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}
	plotCmd.Flags().StringVar(&dataDir, "data", ".dpfractal", "data directory")
	plotCmd.Flags().IntVar(&plotWidth, "width", 80, "plot width")
	plotCmd.Flags().IntVar(&plotHeight, "height", 12, "plot height")
	plotCmd.Flags().StringVar(&pngPath, "png", "", "also write a PNG chart")

	videoCmd := &cobra.Command{
		Use:   "video [output.avi]",
		Short: "assemble rendered PPM frames into an MJPEG AVI",
		Args:  cobra.ExactArgs(1),
		RunE:  assembleVideo,
	}
	videoCmd.Flags().StringVar(&outPrefix, "out", config.DefaultPrefix, "frame path prefix")
	videoCmd.Flags().IntVar(&frames, "frames", config.DefaultNumFrames, "number of frames")
	videoCmd.Flags().IntVar(&fps, "fps", config.DefaultFPS, "video frame rate")

	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "list available presets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tSIZE\tFRAMES\tSTEPS\tDT\tL1\tL2")
			for _, name := range config.ListPresets() {
				p := config.GetPreset(name)
				pw, ph := p.Resolution()
				fmt.Fprintf(w, "%s\t%dx%d\t%d\t%d\t%g\t%g\t%g\n",
					name, pw, ph, p.NumFrames, p.NumSteps, p.Timestep, p.Length1, p.Length2)
			}
			return w.Flush()
		},
	}

	rootCmd.AddCommand(renderCmd, traceCmd, runsCmd, plotCmd, videoCmd, presetsCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newLogger() kitlog.Logger {
	return logging.New(os.Stderr, verbose)
}

// resolveConfig layers defaults, preset, config file and explicitly set flags,
// each one overriding only the keys it sets.
func resolveConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.DefaultConfig()

	if preset != "" {
		cfg = config.GetPreset(preset)
		if cfg == nil {
			return nil, fmt.Errorf("unknown preset: %s (available: %v)", preset, config.ListPresets())
		}
	}

	if configFile != "" {
		if err := config.Overlay(cfg, configFile); err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
	}

	flags := cmd.Flags()
	if flags.Changed("out") || (preset == "" && configFile == "") {
		cfg.OutputPrefix = outPrefix
	}
	if flags.Changed("frames") {
		cfg.NumFrames = frames
	}
	if flags.Changed("steps") {
		cfg.NumSteps = steps
	}
	if flags.Changed("dt") {
		cfg.Timestep = dt
	}
	if flags.Changed("detail") {
		cfg.Width = detail
		if !flags.Changed("height") {
			cfg.Height = detail
		}
	}
	if flags.Changed("height") {
		cfg.Height = height
	}
	if flags.Changed("workers") {
		cfg.Workers = workers
	}
	if flags.Changed("video") {
		cfg.Video.Path = videoPath
	}
	if flags.Changed("fps") {
		cfg.Video.FPS = fps
	}

	return cfg, cfg.Validate()
}

func runRender(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}
	logger := logging.Subsystem(newLogger(), "render")

	if dir := filepath.Dir(cfg.OutputPrefix); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}

	var opts []grid.Option
	var vw *video.Writer
	if cfg.Video.Path != "" {
		w, h := cfg.Resolution()
		vw, err = video.New(cfg.Video.Path, w, h, cfg.Video.FPS)
		if err != nil {
			return err
		}
		opts = append(opts, grid.WithObserver(vw))
	}

	g, err := grid.New(*cfg, opts...)
	if err != nil {
		if vw != nil {
			vw.Close()
		}
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	var sum render.Summary
	if live {
		ctx, cancel := context.WithCancel(ctx)
		defer cancel()
		// stderr logging would garble the view
		sum, err = tui.Run("dpfractal", cfg.NumFrames, cancel, func(report func(render.Progress)) (render.Summary, error) {
			return render.New(g, cfg.NumFrames, render.WithProgress(report)).Run(ctx)
		})
	} else {
		sum, err = render.New(g, cfg.NumFrames, render.WithLogger(logger)).Run(ctx)
	}

	if vw != nil {
		if cerr := vw.Close(); cerr != nil && err == nil {
			err = cerr
		}
		level.Info(logger).Log("msg", "video written", "path", cfg.Video.Path, "frames", vw.Frames())
	}
	if err != nil {
		return err
	}

	fmt.Printf("frames: %d\n", sum.Frames)
	fmt.Printf("cells: %d\n", sum.Cells)
	fmt.Printf("steps per cell: %d\n", sum.Steps)
	fmt.Printf("non-finite cells: %d\n", sum.NonFinite)
	fmt.Printf("completed in %v\n", sum.Elapsed)
	return nil
}

func runTrace(cmd *cobra.Command, args []string) error {
	logger := logging.Subsystem(newLogger(), "trace")

	st := trace.NewStore(dataDir)
	if err := st.Init(); err != nil {
		return err
	}

	p := pendulum.Params{Timestep: dt, Gravity: pendulum.DefaultGravity}
	s := pendulum.New(theta1, theta2)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	samples, err := trace.Record(ctx, s, p, traceSteps, every)
	if err != nil {
		return err
	}

	runID, err := st.Save(trace.Metadata{
		Theta1: theta1, Theta2: theta2,
		Length1: s.Length1, Length2: s.Length2,
		Timestep: p.Timestep, Gravity: p.Gravity,
		Steps: traceSteps, Every: every,
	}, samples)
	if err != nil {
		return err
	}
	level.Info(logger).Log("msg", "trace stored", "run", runID, "samples", len(samples))

	if pngPath != "" {
		if err := writePNG(pngPath, samples); err != nil {
			return err
		}
	}

	fmt.Printf("run id: %s\n", runID)
	fmt.Printf("samples: %d\n", len(samples))
	fmt.Printf("energy drift: %.6f\n", trace.EnergyDrift(samples))
	return nil
}

func writePNG(path string, samples []trace.Sample) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := trace.PlotPNG(f, samples); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func listRuns(cmd *cobra.Command, args []string) error {
	runs, err := trace.NewStore(dataDir).List()
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTIME\tTHETA1\tTHETA2\tSTEPS\tDT\tDRIFT")
	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%s\t%.4f\t%.4f\t%d\t%g\t%.2e\n",
			run.ID,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			run.Theta1,
			run.Theta2,
			run.Steps,
			run.Timestep,
			run.EnergyDrift,
		)
	}
	return w.Flush()
}

func plotRun(cmd *cobra.Command, args []string) error {
	st := trace.NewStore(dataDir)
	meta, err := st.Load(args[0])
	if err != nil {
		return err
	}
	samples, err := st.LoadSamples(args[0])
	if err != nil {
		return err
	}
	if len(samples) == 0 {
		return fmt.Errorf("no data to plot")
	}

	fmt.Printf("run: %s\n", meta.ID)
	fmt.Printf("samples: %d\n\n", len(samples))
	fmt.Println(trace.PlotASCII(samples, plotWidth, plotHeight))

	if pngPath != "" {
		return writePNG(pngPath, samples)
	}
	return nil
}

func assembleVideo(cmd *cobra.Command, args []string) error {
	logger := logging.Subsystem(newLogger(), "video")

	n, err := video.Assemble(args[0], outPrefix, frames, fps)
	if err != nil {
		return err
	}
	level.Info(logger).Log("msg", "video written", "path", args[0], "frames", n)
	return nil
}
