package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/skarn-data/alteration.report/internal/anomaly"
	"github.com/skarn-data/alteration.report/internal/cloudmask"
)

// DefaultConfigPath is the path to the canonical tuning defaults file.
// This is the single source of truth for all default tuning values.
const DefaultConfigPath = "config/tuning.defaults.json"

// TuningConfig represents the root configuration for analysis tuning
// parameters. All fields are pointers so a partial JSON file overrides
// only what it names; the Get* methods supply defaults for the rest.
type TuningConfig struct {
	// Anomaly detection params
	AnomalyThreshold *float64 `json:"anomaly_threshold,omitempty"`
	WindowSize       *int     `json:"window_size,omitempty"`
	Neighbors        *int     `json:"neighbors,omitempty"`
	TopN             *int     `json:"top_n,omitempty"`
	MaxLOFPixels     *int     `json:"max_lof_pixels,omitempty"`

	// Cloud mask params
	BlueThreshold      *float64 `json:"blue_threshold,omitempty"`
	NIRThreshold       *float64 `json:"nir_threshold,omitempty"`
	SWIRRatioThreshold *float64 `json:"swir_ratio_threshold,omitempty"`
	CirrusFloor        *float64 `json:"cirrus_floor,omitempty"`
	WhitenessThreshold *float64 `json:"whiteness_threshold,omitempty"`
	VegetationRatio    *float64 `json:"vegetation_ratio,omitempty"`

	// Mineralogy params
	SAMThreshold     *float64 `json:"sam_threshold,omitempty"`
	CrostaComponents *int     `json:"crosta_components,omitempty"`

	// Run worker params
	PollInterval *string `json:"poll_interval,omitempty"` // duration string like "2s"
	RunBatchSize *int    `json:"run_batch_size,omitempty"`
}

// Helper functions to create pointers
func ptrFloat64(v float64) *float64 { return &v }
func ptrInt(v int) *int             { return &v }
func ptrString(v string) *string    { return &v }

// EmptyTuningConfig returns a TuningConfig with all fields set to nil.
// Use LoadTuningConfig to load actual values from the defaults file.
func EmptyTuningConfig() *TuningConfig {
	return &TuningConfig{}
}

// DefaultTuningConfig returns a TuningConfig with every field populated
// with its default value. Matches config/tuning.defaults.json.
func DefaultTuningConfig() *TuningConfig {
	return &TuningConfig{
		AnomalyThreshold:   ptrFloat64(0.99),
		WindowSize:         ptrInt(7),
		Neighbors:          ptrInt(20),
		TopN:               ptrInt(10),
		MaxLOFPixels:       ptrInt(10000),
		BlueThreshold:      ptrFloat64(0.3),
		NIRThreshold:       ptrFloat64(0.1),
		SWIRRatioThreshold: ptrFloat64(1.5),
		CirrusFloor:        ptrFloat64(0.01),
		WhitenessThreshold: ptrFloat64(0.15),
		VegetationRatio:    ptrFloat64(1.5),
		SAMThreshold:       ptrFloat64(0.1),
		CrostaComponents:   ptrInt(4),
		PollInterval:       ptrString("2s"),
		RunBatchSize:       ptrInt(4),
	}
}

// LoadTuningConfig loads a TuningConfig from a JSON file.
// The file is validated to ensure it has a .json extension and is under
// the max file size. Fields omitted from the JSON file retain their
// default values, so partial configs are safe.
func LoadTuningConfig(path string) (*TuningConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	// Check file size for safety (max 1MB)
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

	cfg := EmptyTuningConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// MustLoadDefaultConfig loads the canonical tuning defaults from DefaultConfigPath.
// It searches for the file in the current directory and common parent directories.
// Panics if the file cannot be loaded, intended for test setup.
func MustLoadDefaultConfig() *TuningConfig {
	candidates := []string{
		DefaultConfigPath,
		"../../" + DefaultConfigPath,    // from internal/config/
		"../../../" + DefaultConfigPath, // deeper packages
	}
	for _, path := range candidates {
		if cfg, err := LoadTuningConfig(path); err == nil {
			return cfg
		}
	}
	panic("cannot find " + DefaultConfigPath + " - run tests from repository root")
}

// Validate checks that the configuration values are valid.
func (c *TuningConfig) Validate() error {
	if c.AnomalyThreshold != nil {
		if *c.AnomalyThreshold <= 0 || *c.AnomalyThreshold >= 1 {
			return fmt.Errorf("anomaly_threshold must be between 0 and 1 exclusive, got %f", *c.AnomalyThreshold)
		}
	}

	if c.WindowSize != nil {
		if *c.WindowSize < 3 {
			return fmt.Errorf("window_size must be at least 3, got %d", *c.WindowSize)
		}
	}

	if c.Neighbors != nil {
		if *c.Neighbors < 1 {
			return fmt.Errorf("neighbors must be positive, got %d", *c.Neighbors)
		}
	}

	if c.SAMThreshold != nil {
		if *c.SAMThreshold <= 0 {
			return fmt.Errorf("sam_threshold must be positive, got %f", *c.SAMThreshold)
		}
	}

	if c.PollInterval != nil && *c.PollInterval != "" {
		if _, err := time.ParseDuration(*c.PollInterval); err != nil {
			return fmt.Errorf("invalid poll_interval '%s': %w", *c.PollInterval, err)
		}
	}

	return nil
}

// GetAnomalyThreshold returns the anomaly_threshold value or the default.
func (c *TuningConfig) GetAnomalyThreshold() float64 {
	if c.AnomalyThreshold == nil {
		return 0.99
	}
	return *c.AnomalyThreshold
}

// GetWindowSize returns the window_size value or the default.
func (c *TuningConfig) GetWindowSize() int {
	if c.WindowSize == nil {
		return 7
	}
	return *c.WindowSize
}

// GetNeighbors returns the neighbors value or the default.
func (c *TuningConfig) GetNeighbors() int {
	if c.Neighbors == nil {
		return 20
	}
	return *c.Neighbors
}

// GetTopN returns the top_n value or the default.
func (c *TuningConfig) GetTopN() int {
	if c.TopN == nil {
		return 10
	}
	return *c.TopN
}

// GetMaxLOFPixels returns the max_lof_pixels value or the default.
func (c *TuningConfig) GetMaxLOFPixels() int {
	if c.MaxLOFPixels == nil {
		return 10000
	}
	return *c.MaxLOFPixels
}

// GetBlueThreshold returns the blue_threshold value or the default.
func (c *TuningConfig) GetBlueThreshold() float64 {
	if c.BlueThreshold == nil {
		return 0.3
	}
	return *c.BlueThreshold
}

// GetNIRThreshold returns the nir_threshold value or the default.
func (c *TuningConfig) GetNIRThreshold() float64 {
	if c.NIRThreshold == nil {
		return 0.1
	}
	return *c.NIRThreshold
}

// GetSWIRRatioThreshold returns the swir_ratio_threshold value or the default.
func (c *TuningConfig) GetSWIRRatioThreshold() float64 {
	if c.SWIRRatioThreshold == nil {
		return 1.5
	}
	return *c.SWIRRatioThreshold
}

// GetCirrusFloor returns the cirrus_floor value or the default.
func (c *TuningConfig) GetCirrusFloor() float64 {
	if c.CirrusFloor == nil {
		return 0.01
	}
	return *c.CirrusFloor
}

// GetWhitenessThreshold returns the whiteness_threshold value or the default.
func (c *TuningConfig) GetWhitenessThreshold() float64 {
	if c.WhitenessThreshold == nil {
		return 0.15
	}
	return *c.WhitenessThreshold
}

// GetVegetationRatio returns the vegetation_ratio value or the default.
func (c *TuningConfig) GetVegetationRatio() float64 {
	if c.VegetationRatio == nil {
		return 1.5
	}
	return *c.VegetationRatio
}

// GetSAMThreshold returns the sam_threshold value or the default.
func (c *TuningConfig) GetSAMThreshold() float64 {
	if c.SAMThreshold == nil {
		return 0.1
	}
	return *c.SAMThreshold
}

// GetCrostaComponents returns the crosta_components value or the default.
func (c *TuningConfig) GetCrostaComponents() int {
	if c.CrostaComponents == nil {
		return 4
	}
	return *c.CrostaComponents
}

// GetPollInterval parses and returns the PollInterval as a time.Duration.
func (c *TuningConfig) GetPollInterval() time.Duration {
	if c.PollInterval == nil || *c.PollInterval == "" {
		return 2 * time.Second // default
	}
	d, err := time.ParseDuration(*c.PollInterval)
	if err != nil {
		return 2 * time.Second // default on parse error
	}
	return d
}

// GetRunBatchSize returns the run_batch_size value or the default.
func (c *TuningConfig) GetRunBatchSize() int {
	if c.RunBatchSize == nil {
		return 4
	}
	return *c.RunBatchSize
}

// AnomalyParams builds detector parameters from the tuning values.
func (c *TuningConfig) AnomalyParams() anomaly.Params {
	return anomaly.Params{
		Threshold:    c.GetAnomalyThreshold(),
		WindowSize:   c.GetWindowSize(),
		Neighbors:    c.GetNeighbors(),
		TopN:         c.GetTopN(),
		MaxLOFPixels: c.GetMaxLOFPixels(),
	}
}

// CloudMaskParams builds masking parameters from the tuning values.
func (c *TuningConfig) CloudMaskParams() cloudmask.Params {
	return cloudmask.Params{
		BlueThreshold:      c.GetBlueThreshold(),
		NIRThreshold:       c.GetNIRThreshold(),
		SWIRRatioThreshold: c.GetSWIRRatioThreshold(),
		CirrusFloor:        c.GetCirrusFloor(),
		WhitenessThreshold: c.GetWhitenessThreshold(),
		VegetationRatio:    c.GetVegetationRatio(),
	}
}
