package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config is the YAML run configuration. Every field is a pointer so a
// partial file only overrides what it names; the Get* methods supply
// defaults for the rest.
type Config struct {
	Algorithm *string `yaml:"algorithm,omitempty"`
	LogLevel  *string `yaml:"log_level,omitempty"`

	GMM        GMMConfig        `yaml:"gmm,omitempty"`
	Gauss      GaussConfig      `yaml:"gauss,omitempty"`
	CbCr       CbCrConfig       `yaml:"cbcr,omitempty"`
	Processing ProcessingConfig `yaml:"processing,omitempty"`
}

type GMMConfig struct {
	Threshold *float64 `yaml:"threshold,omitempty"`
	WantRatio *bool    `yaml:"want_ratio,omitempty"`
	Workers   *int     `yaml:"workers,omitempty"`
}

type GaussConfig struct {
	Factor *float64 `yaml:"factor,omitempty"`
}

type CbCrConfig struct {
	WantDistortion   *bool `yaml:"want_distortion,omitempty"`
	LumaCompensation *bool `yaml:"luma_compensation,omitempty"`
}

// ProcessingConfig controls the filters run around the classifier.
type ProcessingConfig struct {
	Blur          *bool    `yaml:"blur,omitempty"`
	BlurKernel    *int     `yaml:"blur_kernel,omitempty"`
	BlurSigma     *float64 `yaml:"blur_sigma,omitempty"`
	Cleanup       *bool    `yaml:"cleanup,omitempty"`
	CleanupKernel *int     `yaml:"cleanup_kernel,omitempty"`
}

const maxFileSize = 1 * 1024 * 1024

func ptrFloat64(v float64) *float64 { return &v }
func ptrBool(v bool) *bool          { return &v }
func ptrString(v string) *string    { return &v }
func ptrInt(v int) *int             { return &v }

// Default returns a Config with every field set to its default value.
func Default() *Config {
	return &Config{
		Algorithm: ptrString("gmm"),
		LogLevel:  ptrString("info"),
		GMM: GMMConfig{
			Threshold: ptrFloat64(1.0),
			WantRatio: ptrBool(false),
			Workers:   ptrInt(0),
		},
		Gauss: GaussConfig{
			Factor: ptrFloat64(2.5),
		},
		CbCr: CbCrConfig{
			WantDistortion:   ptrBool(false),
			LumaCompensation: ptrBool(false),
		},
		Processing: ProcessingConfig{
			Blur:          ptrBool(false),
			BlurKernel:    ptrInt(5),
			BlurSigma:     ptrFloat64(1.0),
			Cleanup:       ptrBool(false),
			CleanupKernel: ptrInt(3),
		},
	}
}

// Load reads a YAML configuration file. The file must have a .yaml or
// .yml extension, be at most 1MB and contain only known keys.
func Load(path string) (*Config, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".yaml" && ext != ".yml" {
		return nil, fmt.Errorf("config file must have .yaml or .yml extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := &Config{}
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse config YAML: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks the values that are set.
func (c *Config) Validate() error {
	if c.GMM.Threshold != nil && math.IsNaN(*c.GMM.Threshold) {
		return fmt.Errorf("gmm.threshold must be a number, got NaN")
	}

	if c.GMM.Workers != nil && *c.GMM.Workers < 0 {
		return fmt.Errorf("gmm.workers must be 0 (auto) or positive, got %d", *c.GMM.Workers)
	}

	if c.Gauss.Factor != nil && (!(*c.Gauss.Factor > 0) || math.IsInf(*c.Gauss.Factor, 0)) {
		return fmt.Errorf("gauss.factor must be positive, got %v", *c.Gauss.Factor)
	}

	if c.Processing.BlurKernel != nil && (*c.Processing.BlurKernel < 1 || *c.Processing.BlurKernel%2 == 0) {
		return fmt.Errorf("processing.blur_kernel must be a positive odd number, got %d", *c.Processing.BlurKernel)
	}

	if c.Processing.BlurSigma != nil && *c.Processing.BlurSigma < 0 {
		return fmt.Errorf("processing.blur_sigma must be non-negative, got %v", *c.Processing.BlurSigma)
	}

	if c.Processing.CleanupKernel != nil && (*c.Processing.CleanupKernel < 3 || *c.Processing.CleanupKernel%2 == 0) {
		return fmt.Errorf("processing.cleanup_kernel must be an odd number of at least 3, got %d", *c.Processing.CleanupKernel)
	}

	return nil
}

// Save writes c as YAML.
func (c *Config) Save(w io.Writer) error {
	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(2)
	if err := encoder.Encode(c); err != nil {
		return fmt.Errorf("failed to encode config YAML: %w", err)
	}
	return encoder.Close()
}

// GetAlgorithm returns the algorithm name or the default.
func (c *Config) GetAlgorithm() string {
	if c.Algorithm == nil || *c.Algorithm == "" {
		return "gmm"
	}
	return *c.Algorithm
}

// GetLogLevel returns the log level name or the default.
func (c *Config) GetLogLevel() string {
	if c.LogLevel == nil || *c.LogLevel == "" {
		return "info"
	}
	return *c.LogLevel
}

func (c *Config) GetBlur() bool {
	if c.Processing.Blur == nil {
		return false
	}
	return *c.Processing.Blur
}

func (c *Config) GetBlurKernel() int {
	if c.Processing.BlurKernel == nil {
		return 5
	}
	return *c.Processing.BlurKernel
}

func (c *Config) GetBlurSigma() float64 {
	if c.Processing.BlurSigma == nil {
		return 1.0
	}
	return *c.Processing.BlurSigma
}

func (c *Config) GetCleanup() bool {
	if c.Processing.Cleanup == nil {
		return false
	}
	return *c.Processing.Cleanup
}

func (c *Config) GetCleanupKernel() int {
	if c.Processing.CleanupKernel == nil {
		return 3
	}
	return *c.Processing.CleanupKernel
}

// Parameters returns the algorithm parameters this config sets, keyed as
// the algorithm registry expects. Unset fields are omitted so registry
// defaults apply.
func (c *Config) Parameters(algorithm string) map[string]interface{} {
	params := make(map[string]interface{})

	switch algorithm {
	case "gmm":
		if c.GMM.Threshold != nil {
			params["threshold"] = *c.GMM.Threshold
		}
		if c.GMM.WantRatio != nil {
			params["want_ratio"] = *c.GMM.WantRatio
		}
		if c.GMM.Workers != nil {
			params["workers"] = *c.GMM.Workers
		}
	case "gauss":
		if c.Gauss.Factor != nil {
			params["factor"] = *c.Gauss.Factor
		}
	case "cbcr":
		if c.CbCr.WantDistortion != nil {
			params["want_distortion"] = *c.CbCr.WantDistortion
		}
		if c.CbCr.LumaCompensation != nil {
			params["luma_compensation"] = *c.CbCr.LumaCompensation
		}
	}

	return params
}

// ProcessingParameters returns the filter settings keyed as the
// processing chain steps expect, with defaults filled in.
func (c *Config) ProcessingParameters() map[string]interface{} {
	return map[string]interface{}{
		"blur":           c.GetBlur(),
		"blur_kernel":    c.GetBlurKernel(),
		"blur_sigma":     c.GetBlurSigma(),
		"cleanup":        c.GetCleanup(),
		"cleanup_kernel": c.GetCleanupKernel(),
	}
}
