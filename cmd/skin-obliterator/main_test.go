package main

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"skin-obliterator/internal/config"
	"skin-obliterator/internal/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"
)

func parseClassify(t *testing.T, args ...string) (*config.Config, classifyOptions, error) {
	t.Helper()

	var (
		cfg  *config.Config
		opts classifyOptions
		err  error
	)
	app := &cli.App{
		Flags: classifyCommand().Flags,
		Action: func(c *cli.Context) error {
			cfg, err = loadConfig(c)
			if err == nil {
				opts = newOptions(c, cfg)
			}
			return nil
		},
	}
	require.NoError(t, app.Run(append([]string{"skin-obliterator"}, args...)))
	return cfg, opts, err
}

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, opts, err := parseClassify(t, "face.png")
	require.NoError(t, err)

	assert.Equal(t, "gmm", cfg.GetAlgorithm())
	assert.Equal(t, "face.png", opts.input)
	assert.Equal(t, false, opts.processing["cleanup"])
	assert.Equal(t, false, opts.parameters["want_ratio"])
}

func TestLoadConfig_FlagOverrides(t *testing.T) {
	cfg, opts, err := parseClassify(t,
		"--algorithm", "GAUSS", "--factor", "1.5", "--cleanup",
		"--mask-out", "mask.png", "face.png")
	require.NoError(t, err)

	assert.Equal(t, "gauss", cfg.GetAlgorithm())
	assert.Equal(t, map[string]interface{}{"factor": 1.5}, opts.parameters)
	assert.Equal(t, true, opts.processing["cleanup"])
	assert.Equal(t, "mask.png", opts.maskOut)
}

func TestLoadConfig_ScoreOutput(t *testing.T) {
	cfg, opts, err := parseClassify(t, "--score-out", "ratio.tif", "face.png")
	require.NoError(t, err)
	assert.Equal(t, "ratio.tif", opts.scoreOut)
	assert.True(t, *cfg.GMM.WantRatio)
	assert.Equal(t, true, opts.parameters["want_ratio"])

	cfg, _, err = parseClassify(t, "--algorithm", "cbcr", "--score-out", "dist.png", "face.png")
	require.NoError(t, err)
	assert.True(t, *cfg.CbCr.WantDistortion)
}

func TestLoadConfig_RejectsOutputsBeforeWork(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"peer has no score", []string{"--algorithm", "peer", "--mask-out", "mask.png", "--score-out", "score.png"}, "--score-out"},
		{"gauss has no score", []string{"--algorithm", "gauss", "--score-out", "score.png"}, "produces no score map"},
		{"unknown mask extension", []string{"--mask-out", "mask.webp"}, "--mask-out"},
		{"unknown score extension", []string{"--score-out", "score"}, "--score-out"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			args := append([]string(nil), tt.args...)
			for i := range args {
				if i > 0 && (args[i-1] == "--mask-out" || args[i-1] == "--score-out") {
					args[i] = filepath.Join(dir, args[i])
				}
			}

			_, _, err := parseClassify(t, append(args, "face.png")...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)

			entries, readErr := os.ReadDir(dir)
			require.NoError(t, readErr)
			assert.Empty(t, entries)
		})
	}
}

func TestLoadConfig_FileThenFlags(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.yaml")
	require.NoError(t, os.WriteFile(path, []byte("algorithm: gmm\ngmm:\n  threshold: 3.5\n  workers: 2\n"), 0o600))

	_, opts, err := parseClassify(t, "--config", path, "--workers", "4", "face.png")
	require.NoError(t, err)

	assert.Equal(t, 3.5, opts.parameters["threshold"])
	assert.Equal(t, 4, opts.parameters["workers"])
}

func TestLoadConfig_Invalid(t *testing.T) {
	_, _, err := parseClassify(t, "--factor", "-2", "face.png")
	assert.Error(t, err)

	_, _, err = parseClassify(t, "--config", "missing.yaml", "face.png")
	assert.Error(t, err)
}

func TestAlgorithmsCommand(t *testing.T) {
	var out bytes.Buffer
	app := newApp()
	app.Writer = &out

	require.NoError(t, app.Run([]string{"skin-obliterator", "algorithms"}))

	listing := out.String()
	assert.Contains(t, listing, "* gmm")
	assert.Contains(t, listing, "factor=2.5")
	assert.Contains(t, listing, "peer")
	assert.Contains(t, listing, "luma_compensation=false")
	assert.Contains(t, listing, "skin model: 16 components, weights sum to ")
	assert.Contains(t, listing, "non-skin model: 16 components, weights sum to ")
}

func TestAlgorithmsCommand_AppliesConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.yaml")
	require.NoError(t, os.WriteFile(path, []byte("gauss:\n  factor: 1.5\ngmm:\n  threshold: 3.25\n"), 0o600))

	listing, err := runApp(t, "algorithms", "--config", path)
	require.NoError(t, err)
	assert.Contains(t, listing, "factor=1.5")
	assert.Contains(t, listing, "threshold=3.25")
	assert.NotContains(t, listing, "factor=2.5")
}

func runApp(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	app := newApp()
	app.Writer = &out
	err := app.Run(append([]string{"skin-obliterator"}, args...))
	return out.String(), err
}

func TestConfigDump(t *testing.T) {
	dumped, err := runApp(t, "config", "dump")
	require.NoError(t, err)
	assert.Contains(t, dumped, "algorithm: gmm")

	path := filepath.Join(t.TempDir(), "dumped.yaml")
	require.NoError(t, os.WriteFile(path, []byte(dumped), 0o600))
	loaded, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, config.Default(), loaded)

	require.NoError(t, os.WriteFile(path, []byte("algorithm: cbcr\n"), 0o600))
	dumped, err = runApp(t, "config", "dump", "--config", path)
	require.NoError(t, err)
	assert.Contains(t, dumped, "algorithm: cbcr")

	_, err = runApp(t, "config", "dump", "--config", "missing.yaml")
	assert.Error(t, err)
}

func TestRunClassify_ScoreGuardWritesNothing(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "face.png")

	src := image.NewRGBA(image.Rect(0, 0, 2, 1))
	src.Set(0, 0, color.RGBA{R: 200, G: 150, B: 120, A: 255})
	src.Set(1, 0, color.RGBA{R: 255, G: 255, B: 255, A: 255})
	f, err := os.Create(input)
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, src))
	require.NoError(t, f.Close())

	maskOut := filepath.Join(dir, "mask.png")
	err = runClassify(classifyOptions{
		input:     input,
		algorithm: "peer",
		maskOut:   maskOut,
		scoreOut:  filepath.Join(dir, "score.png"),
	}, logger.NewNop())
	require.Error(t, err)

	_, statErr := os.Stat(maskOut)
	assert.True(t, os.IsNotExist(statErr))
}

func TestRunClassify_WritesOutputs(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "face.png")

	src := image.NewRGBA(image.Rect(0, 0, 2, 1))
	src.Set(0, 0, color.RGBA{R: 200, G: 150, B: 120, A: 255})
	src.Set(1, 0, color.RGBA{R: 255, G: 255, B: 255, A: 255})
	f, err := os.Create(input)
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, src))
	require.NoError(t, f.Close())

	opts := classifyOptions{
		input:      input,
		algorithm:  "gmm",
		parameters: map[string]interface{}{"want_ratio": true},
		maskOut:    filepath.Join(dir, "mask.bmp"),
		scoreOut:   filepath.Join(dir, "ratio.png"),
	}
	require.NoError(t, runClassify(opts, logger.NewNop()))

	for _, path := range []string{opts.maskOut, opts.scoreOut} {
		_, err := os.Stat(path)
		assert.NoError(t, err, path)
	}
}

func writeFace(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "face.png")
	src := image.NewRGBA(image.Rect(0, 0, 2, 1))
	src.Set(0, 0, color.RGBA{R: 200, G: 150, B: 120, A: 255})
	src.Set(1, 0, color.RGBA{R: 255, G: 255, B: 255, A: 255})
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, src))
	require.NoError(t, f.Close())
	return path
}

func TestRunClassify_MetricsReport(t *testing.T) {
	dir := t.TempDir()
	input := writeFace(t, dir)

	truth := filepath.Join(dir, "truth.png")
	mask := image.NewGray(image.Rect(0, 0, 2, 1))
	mask.SetGray(0, 0, color.Gray{Y: 255})
	f, err := os.Create(truth)
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, mask))
	require.NoError(t, f.Close())

	var out bytes.Buffer
	require.NoError(t, runClassify(classifyOptions{
		input:     input,
		algorithm: "gmm",
		truth:     truth,
		out:       &out,
	}, logger.NewNop()))

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 6)
	assert.True(t, strings.HasPrefix(lines[0], "Dice Similarity: "), lines[0])
	assert.Contains(t, out.String(), "Intersection over Union: ")
	assert.Contains(t, out.String(), "Hausdorff Distance: ")
}

func TestRunClassify_ReportsFailedStage(t *testing.T) {
	dir := t.TempDir()
	input := writeFace(t, dir)

	err := runClassify(classifyOptions{
		input:      input,
		algorithm:  "gmm",
		processing: map[string]interface{}{"blur": true, "blur_kernel": 4},
	}, logger.NewNop())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "gmm failed at preprocessing (10%)")
}
