package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultTuningConfig(t *testing.T) {
	cfg := DefaultTuningConfig()

	require.NotNil(t, cfg.AnomalyThreshold)
	assert.Equal(t, 0.99, *cfg.AnomalyThreshold)
	require.NotNil(t, cfg.WindowSize)
	assert.Equal(t, 7, *cfg.WindowSize)
	require.NotNil(t, cfg.PollInterval)
	assert.Equal(t, "2s", *cfg.PollInterval)

	assert.Equal(t, 0.99, cfg.GetAnomalyThreshold())
	assert.Equal(t, 0.1, cfg.GetSAMThreshold())
	assert.Equal(t, 2*time.Second, cfg.GetPollInterval())
}

func TestEmptyConfigGetterDefaults(t *testing.T) {
	cfg := EmptyTuningConfig()

	assert.Equal(t, 7, cfg.GetWindowSize())
	assert.Equal(t, 20, cfg.GetNeighbors())
	assert.Equal(t, 0.3, cfg.GetBlueThreshold())
	assert.Equal(t, 4, cfg.GetCrostaComponents())
	assert.Equal(t, 4, cfg.GetRunBatchSize())
}

func TestLoadTuningConfig(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "test_config.json")

	// Partial config: only overrides a few fields
	testJSON := `{
  "anomaly_threshold": 0.95,
  "window_size": 11,
  "sam_threshold": 0.2,
  "poll_interval": "500ms"
}`
	require.NoError(t, os.WriteFile(configPath, []byte(testJSON), 0644))

	cfg, err := LoadTuningConfig(configPath)
	require.NoError(t, err)

	assert.Equal(t, 0.95, cfg.GetAnomalyThreshold())
	assert.Equal(t, 11, cfg.GetWindowSize())
	assert.Equal(t, 0.2, cfg.GetSAMThreshold())
	assert.Equal(t, 500*time.Millisecond, cfg.GetPollInterval())

	// Omitted fields fall back to defaults
	assert.Equal(t, 20, cfg.GetNeighbors())
	assert.Equal(t, 0.1, cfg.GetNIRThreshold())
}

func TestLoadTuningConfigRejectsNonJSON(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte("window_size: 9"), 0644))

	_, err := LoadTuningConfig(configPath)
	assert.Error(t, err, "non-JSON extension should be rejected")
}

func TestLoadTuningConfigMissingFile(t *testing.T) {
	_, err := LoadTuningConfig("/nonexistent/tuning.json")
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     TuningConfig
		wantErr bool
	}{
		{"valid empty", TuningConfig{}, false},
		{"valid threshold", TuningConfig{AnomalyThreshold: ptrFloat64(0.5)}, false},
		{"threshold too high", TuningConfig{AnomalyThreshold: ptrFloat64(1.0)}, true},
		{"threshold zero", TuningConfig{AnomalyThreshold: ptrFloat64(0)}, true},
		{"window too small", TuningConfig{WindowSize: ptrInt(2)}, true},
		{"neighbors zero", TuningConfig{Neighbors: ptrInt(0)}, true},
		{"negative sam threshold", TuningConfig{SAMThreshold: ptrFloat64(-0.1)}, true},
		{"bad poll interval", TuningConfig{PollInterval: ptrString("soon")}, true},
		{"good poll interval", TuningConfig{PollInterval: ptrString("30s")}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestAnomalyParams(t *testing.T) {
	cfg := &TuningConfig{AnomalyThreshold: ptrFloat64(0.9), Neighbors: ptrInt(5)}
	p := cfg.AnomalyParams()
	assert.Equal(t, 0.9, p.Threshold)
	assert.Equal(t, 5, p.Neighbors)
	assert.Equal(t, 7, p.WindowSize, "unset window size falls back to default")
}

func TestCloudMaskParams(t *testing.T) {
	cfg := &TuningConfig{BlueThreshold: ptrFloat64(0.25)}
	p := cfg.CloudMaskParams()
	assert.Equal(t, 0.25, p.BlueThreshold)
	assert.Equal(t, 1.5, p.SWIRRatioThreshold, "unset SWIR ratio falls back to default")
}
