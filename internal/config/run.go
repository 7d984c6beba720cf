package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/banshee-data/taxiin.report/internal/taxiin"
)

// DefaultConfigPath is the path to the canonical run defaults file.
const DefaultConfigPath = "config/taxiin.defaults.json"

// RunConfig is the configuration of one batch run. Fields omitted from the
// JSON file fall back to the defaults returned by the Get* methods.
type RunConfig struct {
	// Segmentation
	MaxGapSeconds *int `json:"max_gap_seconds,omitempty"`

	// Input
	DataDir     *string `json:"data_dir,omitempty"`
	InputSuffix *string `json:"input_suffix,omitempty"`

	// Processing
	Workers *int `json:"workers,omitempty"` // 0 = GOMAXPROCS

	// Output
	ResultsDir   *string `json:"results_dir,omitempty"`
	OutputPrefix *string `json:"output_prefix,omitempty"`
	Chart        *bool   `json:"chart,omitempty"`
	Histogram    *bool   `json:"histogram,omitempty"`
	DBPath       *string `json:"db_path,omitempty"`      // empty disables the sqlite store
	MetricsFile  *string `json:"metrics_file,omitempty"` // empty disables the textfile
}

// Helper functions to create pointers
func ptrInt(v int) *int          { return &v }
func ptrBool(v bool) *bool       { return &v }
func ptrString(v string) *string { return &v }

// EmptyRunConfig returns a RunConfig with all fields set to nil.
func EmptyRunConfig() *RunConfig {
	return &RunConfig{}
}

// DefaultRunConfig returns a RunConfig with every field set to its default.
func DefaultRunConfig() *RunConfig {
	c := EmptyRunConfig()
	return &RunConfig{
		MaxGapSeconds: ptrInt(c.GetMaxGapSeconds()),
		DataDir:       ptrString(c.GetDataDir()),
		InputSuffix:   ptrString(c.GetInputSuffix()),
		Workers:       ptrInt(c.GetWorkers()),
		ResultsDir:    ptrString(c.GetResultsDir()),
		OutputPrefix:  ptrString(c.GetOutputPrefix()),
		Chart:         ptrBool(c.GetChart()),
		Histogram:     ptrBool(c.GetHistogram()),
		DBPath:        ptrString(c.GetDBPath()),
		MetricsFile:   ptrString(c.GetMetricsFile()),
	}
}

// LoadRunConfig loads a RunConfig from a JSON file.
// The file must have a .json extension and be under 1MB.
func LoadRunConfig(path string) (*RunConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyRunConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// MustLoadDefaultConfig loads the canonical run defaults from DefaultConfigPath,
// searching the current directory and its parents up to the repository root.
// Panics if the file cannot be loaded, intended for test setup.
func MustLoadDefaultConfig() *RunConfig {
	candidates := []string{
		DefaultConfigPath,
		"../../" + DefaultConfigPath, // from internal/<pkg>/
		"../../../" + DefaultConfigPath,
	}
	for _, path := range candidates {
		if cfg, err := LoadRunConfig(path); err == nil {
			return cfg
		}
	}
	panic("cannot find " + DefaultConfigPath + " - run tests from repository root")
}

// Validate checks that the configuration values are valid.
func (c *RunConfig) Validate() error {
	if c.MaxGapSeconds != nil {
		if err := (taxiin.Config{MaxGapSeconds: *c.MaxGapSeconds}).Validate(); err != nil {
			return err
		}
	}
	if c.Workers != nil && *c.Workers < 0 {
		return fmt.Errorf("workers must be non-negative, got %d", *c.Workers)
	}
	if c.InputSuffix != nil && !strings.HasPrefix(*c.InputSuffix, ".") {
		return fmt.Errorf("input_suffix must start with '.', got %q", *c.InputSuffix)
	}
	if c.OutputPrefix != nil && strings.ContainsAny(*c.OutputPrefix, `/\`) {
		return fmt.Errorf("output_prefix must not contain path separators, got %q", *c.OutputPrefix)
	}
	if c.DataDir != nil && *c.DataDir == "" {
		return fmt.Errorf("data_dir must not be empty")
	}
	if c.ResultsDir != nil && *c.ResultsDir == "" {
		return fmt.Errorf("results_dir must not be empty")
	}
	return nil
}

// Segmentation returns the segmenter configuration.
func (c *RunConfig) Segmentation() taxiin.Config {
	return taxiin.Config{MaxGapSeconds: c.GetMaxGapSeconds()}
}

// GetMaxGapSeconds returns the max_gap_seconds value or the default.
func (c *RunConfig) GetMaxGapSeconds() int {
	if c.MaxGapSeconds == nil {
		return taxiin.DefaultMaxGapSeconds
	}
	return *c.MaxGapSeconds
}

// GetDataDir returns the data_dir value or the default.
func (c *RunConfig) GetDataDir() string {
	if c.DataDir == nil {
		return "data"
	}
	return *c.DataDir
}

// GetInputSuffix returns the input_suffix value or the default.
func (c *RunConfig) GetInputSuffix() string {
	if c.InputSuffix == nil {
		return ".csv"
	}
	return *c.InputSuffix
}

// GetWorkers returns the workers value or the default (sequential).
func (c *RunConfig) GetWorkers() int {
	if c.Workers == nil {
		return 1
	}
	return *c.Workers
}

// GetResultsDir returns the results_dir value or the default.
func (c *RunConfig) GetResultsDir() string {
	if c.ResultsDir == nil {
		return "results"
	}
	return *c.ResultsDir
}

// GetOutputPrefix returns the output_prefix value or the default.
func (c *RunConfig) GetOutputPrefix() string {
	if c.OutputPrefix == nil || *c.OutputPrefix == "" {
		return "taxi_in"
	}
	return *c.OutputPrefix
}

// GetChart returns the chart value or the default.
func (c *RunConfig) GetChart() bool {
	if c.Chart == nil {
		return true
	}
	return *c.Chart
}

// GetHistogram returns the histogram value or the default.
func (c *RunConfig) GetHistogram() bool {
	if c.Histogram == nil {
		return true
	}
	return *c.Histogram
}

// GetDBPath returns the db_path value or the default (disabled).
func (c *RunConfig) GetDBPath() string {
	if c.DBPath == nil {
		return ""
	}
	return *c.DBPath
}

// GetMetricsFile returns the metrics_file value or the default (disabled).
func (c *RunConfig) GetMetricsFile() string {
	if c.MetricsFile == nil {
		return ""
	}
	return *c.MetricsFile
}
