package main

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"

	"skin-obliterator/internal/algorithms"
	"skin-obliterator/internal/algorithms/cbcr"
	"skin-obliterator/internal/algorithms/gmm"
	"skin-obliterator/internal/config"
	"skin-obliterator/internal/logger"
	"skin-obliterator/internal/pipeline"

	"github.com/urfave/cli/v2"
)

const (
	AppName    = "skin-obliterator"
	AppVersion = "1.0.0"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", AppName, err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:    AppName,
		Usage:   "classify skin pixels in color images",
		Version: AppVersion,
		Commands: []*cli.Command{
			classifyCommand(),
			{
				Name:  "algorithms",
				Usage: "list the registered classifiers and their effective parameters",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Usage: "YAML configuration file to apply"},
				},
				Action: listAlgorithms,
			},
			{
				Name:  "config",
				Usage: "inspect configuration",
				Subcommands: []*cli.Command{
					{
						Name:  "dump",
						Usage: "print the default configuration, or --config after validation, as YAML",
						Flags: []cli.Flag{
							&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Usage: "YAML configuration file"},
						},
						Action: dumpConfig,
					},
				},
			},
		},
	}
}

func classifyCommand() *cli.Command {
	return &cli.Command{
		Name:      "classify",
		Usage:     "write a skin mask for an image",
		ArgsUsage: "<image>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Usage: "YAML configuration file"},
			&cli.StringFlag{Name: "algorithm", Aliases: []string{"a"}, Usage: "classifier: gmm, gauss, peer or cbcr"},
			&cli.Float64Flag{Name: "threshold", Usage: "gmm likelihood ratio threshold"},
			&cli.Float64Flag{Name: "factor", Usage: "gauss box half-width in standard deviations"},
			&cli.IntFlag{Name: "workers", Usage: "gmm worker goroutines, 0 for GOMAXPROCS"},
			&cli.StringFlag{Name: "mask-out", Aliases: []string{"o"}, Usage: "mask output path (png, jpg, bmp, tif)"},
			&cli.StringFlag{Name: "score-out", Usage: "ratio or distortion map output path"},
			&cli.StringFlag{Name: "truth", Usage: "ground truth mask to score against"},
			&cli.BoolFlag{Name: "cleanup", Usage: "remove speckle from the mask"},
			&cli.BoolFlag{Name: "blur", Usage: "Gaussian blur the input before classifying"},
			&cli.BoolFlag{Name: "luma-compensation", Usage: "cbcr: apply nonlinear luma compensation"},
			&cli.BoolFlag{Name: "preview", Usage: "show input, mask and score in a window"},
			&cli.StringFlag{Name: "log-level", Usage: "debug, info, warn, error or off"},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				cli.ShowSubcommandHelp(c)
				return cli.Exit("expected exactly one input image", 2)
			}

			cfg, err := loadConfig(c)
			if err != nil {
				return err
			}

			level, err := logger.ParseLevel(cfg.GetLogLevel())
			if err != nil {
				return err
			}

			return runClassify(newOptions(c, cfg), logger.NewConsoleLogger(level))
		},
	}
}

// loadConfig reads --config when given and applies flag overrides.
func loadConfig(c *cli.Context) (*config.Config, error) {
	cfg := config.Default()
	if path := c.String("config"); path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if c.IsSet("algorithm") {
		name := strings.ToLower(c.String("algorithm"))
		cfg.Algorithm = &name
	}
	if c.IsSet("log-level") {
		level := c.String("log-level")
		cfg.LogLevel = &level
	}
	if c.IsSet("threshold") {
		threshold := c.Float64("threshold")
		cfg.GMM.Threshold = &threshold
	}
	if c.IsSet("workers") {
		workers := c.Int("workers")
		cfg.GMM.Workers = &workers
	}
	if c.IsSet("factor") {
		factor := c.Float64("factor")
		cfg.Gauss.Factor = &factor
	}
	if c.IsSet("luma-compensation") {
		luma := c.Bool("luma-compensation")
		cfg.CbCr.LumaCompensation = &luma
	}
	if c.IsSet("blur") {
		blur := c.Bool("blur")
		cfg.Processing.Blur = &blur
	}
	if c.IsSet("cleanup") {
		cleanup := c.Bool("cleanup")
		cfg.Processing.Cleanup = &cleanup
	}

	// A score map is only produced when asked for.
	if c.String("score-out") != "" || c.Bool("preview") {
		on := true
		cfg.GMM.WantRatio = &on
		cfg.CbCr.WantDistortion = &on
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid options: %w", err)
	}

	if err := checkOutputs(c, cfg.GetAlgorithm()); err != nil {
		return nil, err
	}

	return cfg, nil
}

// scoringAlgorithms produce a score map next to the mask.
var scoringAlgorithms = map[string]bool{
	gmm.Name:  true,
	cbcr.Name: true,
}

// checkOutputs rejects output paths that would fail after classification,
// so a bad flag never leaves a partial set of files behind.
func checkOutputs(c *cli.Context, algorithm string) error {
	for _, flag := range []string{"mask-out", "score-out"} {
		path := c.String(flag)
		if path == "" {
			continue
		}
		if _, err := pipeline.FormatForExtension(filepath.Ext(path)); err != nil {
			return fmt.Errorf("--%s: %w", flag, err)
		}
	}

	if c.String("score-out") != "" && !scoringAlgorithms[algorithm] {
		return fmt.Errorf("--score-out: algorithm %s produces no score map (use %s or %s)", algorithm, gmm.Name, cbcr.Name)
	}

	return nil
}

func newOptions(c *cli.Context, cfg *config.Config) classifyOptions {
	return classifyOptions{
		input:      c.Args().First(),
		algorithm:  cfg.GetAlgorithm(),
		parameters: cfg.Parameters(cfg.GetAlgorithm()),
		processing: cfg.ProcessingParameters(),
		maskOut:    c.String("mask-out"),
		scoreOut:   c.String("score-out"),
		truth:      c.String("truth"),
		preview:    c.Bool("preview"),
		out:        c.App.Writer,
	}
}

// fileConfig returns the --config file, or the defaults when none is given.
func fileConfig(c *cli.Context) (*config.Config, error) {
	path := c.String("config")
	if path == "" {
		return config.Default(), nil
	}
	return config.Load(path)
}

func dumpConfig(c *cli.Context) error {
	cfg, err := fileConfig(c)
	if err != nil {
		return err
	}
	return cfg.Save(c.App.Writer)
}

func listAlgorithms(c *cli.Context) error {
	cfg, err := fileConfig(c)
	if err != nil {
		return err
	}

	manager := algorithms.NewManager()
	for _, name := range manager.Names() {
		for key, value := range cfg.Parameters(name) {
			if err := manager.SetParameter(name, key, value); err != nil {
				return err
			}
		}
	}

	for _, name := range manager.Names() {
		params, err := manager.Parameters(name)
		if err != nil {
			return err
		}

		keys := make([]string, 0, len(params))
		for key := range params {
			keys = append(keys, key)
		}
		sort.Strings(keys)

		fields := make([]string, 0, len(keys))
		for _, key := range keys {
			fields = append(fields, fmt.Sprintf("%s=%v", key, params[key]))
		}

		marker := " "
		if name == algorithms.DefaultAlgorithm {
			marker = "*"
		}
		fmt.Fprintf(c.App.Writer, "%s %-6s %s\n", marker, name, strings.Join(fields, " "))
	}

	fmt.Fprintln(c.App.Writer)
	for _, model := range []*gmm.Model{gmm.SkinModel(), gmm.NonSkinModel()} {
		fmt.Fprintf(c.App.Writer, "%s model: %d components, weights sum to %.4f\n", model.Name(), model.Len(), model.WeightSum())
	}
	fmt.Fprintf(c.App.Writer, "GOMAXPROCS=%d\n", runtime.GOMAXPROCS(0))
	return nil
}
