package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/theme"
	"github.com/samber/lo"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"deep-fryer/internal/algorithms"
	"deep-fryer/internal/config"
	"deep-fryer/internal/core"
	"deep-fryer/internal/executor"
	"deep-fryer/internal/gui"
	"deep-fryer/internal/loader"
	"deep-fryer/internal/metrics"
	"deep-fryer/internal/pixel"
)

type rootFlags struct {
	configPath string
	debug      bool
	threshold  int
	decoder    string
	watch      bool
}

func newRootCommand(out io.Writer) *cobra.Command {
	var flags rootFlags

	root := &cobra.Command{
		Use:          AppName + " [image]",
		Short:        "View an image through every pixel transform at once",
		Version:      AppVersion,
		Args:         cobra.MaximumNArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, flags)
			if err != nil {
				return err
			}
			var path string
			if len(args) == 1 {
				path = args[0]
			}
			return run(cmd.Context(), cfg, flags.debug, path)
		},
	}
	root.SetOut(out)

	root.Flags().StringVarP(&flags.configPath, "config", "c", "", "path to a TOML config file")
	root.Flags().BoolVar(&flags.debug, "debug", false, "Enable debug mode with verbose logging")
	root.Flags().IntVarP(&flags.threshold, "threshold", "t", core.DefaultThreshold, "initial threshold (0-255)")
	root.Flags().StringVar(&flags.decoder, "decoder", "std", "image decoder: std or opencv")
	root.Flags().BoolVarP(&flags.watch, "watch", "w", false, "reload the image when its file changes")

	root.AddCommand(newCatalogCommand(), newPresetsCommand(), newMetricsCommand(), newBenchCommand())
	return root
}

func newCatalogCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "catalog [transform...]",
		Short: "List the transforms in display order, or describe the named ones",
		RunE: func(cmd *cobra.Command, args []string) error {
			names, err := parseNames(args)
			if err != nil {
				return err
			}
			for _, name := range names {
				d, _ := algorithms.Get(name)
				usage := "ignores threshold"
				if d.UsesThreshold {
					usage = "uses threshold"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%-16s %-18s %s\n", d.Name, usage, d.Description)
			}
			return nil
		},
	}
}

func newPresetsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "presets",
		Short: "List the built-in preset images",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			lines := lo.Map(loader.Presets(), func(id string, i int) string {
				return fmt.Sprintf("%d %s", i, id)
			})
			for _, line := range lines {
				fmt.Fprintln(cmd.OutOrStdout(), line)
			}
		},
	}
}

func newMetricsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "metrics",
		Short: "List the metrics shown under each result",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			e := metrics.NewEvaluator()
			info := e.GetMetricInfo()
			for _, id := range e.Names() {
				m := info[id]
				better := "lower is better"
				if m.HigherBetter {
					better = "higher is better"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%-12s %-14s [%g, %g] %s: %s\n",
					id, m.Name, m.Range[0], m.Range[1], better, m.Description)
			}
		},
	}
}

func newBenchCommand() *cobra.Command {
	var (
		preset    string
		threshold int
	)

	cmd := &cobra.Command{
		Use:   "bench [transform...]",
		Short: "Run transforms once on a preset and print timing and metrics",
		RunE: func(cmd *cobra.Command, args []string) error {
			names, err := parseNames(args)
			if err != nil {
				return err
			}
			logger, err := initLogger(false, "warn")
			if err != nil {
				return err
			}
			imageLoader, err := loader.NewImageLoader(loader.Options{}, logger)
			if err != nil {
				return err
			}
			src, err := imageLoader.LoadPreset(preset)
			if err != nil {
				return err
			}
			return bench(cmd.OutOrStdout(), src, algorithms.ClampThreshold(threshold), names)
		},
	}

	cmd.Flags().StringVarP(&preset, "preset", "p", loader.DefaultPreset, "preset image to transform")
	cmd.Flags().IntVarP(&threshold, "threshold", "t", core.DefaultThreshold, "threshold (0-255)")
	return cmd
}

func bench(out io.Writer, src *pixel.Buffer, threshold int, names []algorithms.Name) error {
	e := metrics.NewEvaluator()
	ids := e.Names()

	fmt.Fprintf(out, "%-16s %10s", "transform", "ms")
	for _, id := range ids {
		fmt.Fprintf(out, " %12s", id)
	}
	fmt.Fprintln(out)

	for _, name := range names {
		start := time.Now()
		res, err := algorithms.Apply(name, src, threshold)
		if err != nil {
			return err
		}
		elapsed := time.Since(start)

		fmt.Fprintf(out, "%-16s %10.3f", name, float64(elapsed.Microseconds())/1000)
		for _, id := range ids {
			v, err := e.Calculate(id, src, res)
			if err != nil {
				return fmt.Errorf("%s on %s: %w", id, name, err)
			}
			fmt.Fprintf(out, " %12.4g", v)
		}
		fmt.Fprintln(out)
	}
	return nil
}

// parseNames resolves transform names given on the command line. No names
// selects the whole catalog.
func parseNames(args []string) ([]algorithms.Name, error) {
	if len(args) == 0 {
		return algorithms.Names(), nil
	}
	names := make([]algorithms.Name, 0, len(args))
	for _, arg := range args {
		name, err := algorithms.ParseName(arg)
		if err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, nil
}

// loadConfig reads the config file and applies the flags the user set.
func loadConfig(cmd *cobra.Command, flags rootFlags) (config.Config, error) {
	cfg, err := config.Load(flags.configPath)
	if err != nil {
		return cfg, err
	}

	fs := cmd.Flags()
	if fs.Changed("threshold") {
		cfg.Threshold = flags.threshold
	}
	if fs.Changed("decoder") {
		cfg.Decoder = flags.decoder
	}
	if fs.Changed("watch") {
		cfg.Watch = flags.watch
	}
	if flags.debug {
		cfg.LogLevel = logrus.DebugLevel.String()
	}

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid flags: %w", err)
	}
	return cfg, nil
}

func run(ctx context.Context, cfg config.Config, debugMode bool, path string) error {
	logger, err := initLogger(debugMode, cfg.LogLevel)
	if err != nil {
		return err
	}
	logger.WithFields(logrus.Fields{
		"version":    AppVersion,
		"debug_mode": debugMode,
		"threshold":  cfg.Threshold,
		"decoder":    cfg.Decoder,
	}).Info("Starting " + AppName)

	pool, err := executor.NewPool(algorithms.Catalog(), len(algorithms.Names())*4, logger)
	if err != nil {
		return fmt.Errorf("failed to start executors: %w", err)
	}
	logger.WithField("executors", pool.Size()).Debug("Executor pool ready")

	opts := cfg.ControllerOptions()
	if cfg.Metrics {
		opts.Evaluator = metrics.NewEvaluator()
	}
	controller := core.NewController(pool, opts, logger)

	imageLoader, err := loader.NewImageLoader(cfg.LoaderOptions(), logger)
	if err != nil {
		pool.Close()
		return err
	}

	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	if err := controller.Start(ctx); err != nil {
		pool.Close()
		return err
	}

	fyneApp := app.NewWithID(AppID)
	fyneApp.SetIcon(theme.DocumentIcon())
	fyneApp.Settings().SetTheme(theme.DefaultTheme())

	mainApp := gui.NewApplication(fyneApp, controller, imageLoader, cfg, logger)
	defer mainApp.Close()

	go func() {
		var err error
		switch {
		case path != "":
			err = mainApp.LoadPath(path)
		case cfg.Preset != "":
			err = mainApp.LoadPreset(cfg.Preset)
		}
		if err != nil {
			logger.WithError(err).Error("Failed to load initial image")
		}
	}()

	mainApp.ShowAndRun()

	logger.Info("Application shutting down gracefully")
	return nil
}
