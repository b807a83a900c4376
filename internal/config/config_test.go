package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := LoadFrom(map[string]string{})
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, 8080, cfg.HTTP.Port)
	assert.Equal(t, 30*time.Second, cfg.HTTP.ReadTimeout)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, "lbfgs", cfg.Acquisition.Optimizer)
	assert.Equal(t, "max_objective", cfg.Acquisition.AnchorLogic)
	assert.Equal(t, 5, cfg.Acquisition.NumAnchors)
	assert.Equal(t, 1, cfg.Acquisition.Workers)
	assert.Equal(t, 30*time.Second, cfg.Acquisition.Timeout)
	assert.Equal(t, "matern52", cfg.Model.Kernel)
	assert.Equal(t, 1e-6, cfg.Model.NoiseVar)
	assert.Empty(t, cfg.SpaceFile)
	assert.Equal(t, 0.01, cfg.AcquisitionParam())
}

func TestLoadOverrides(t *testing.T) {
	cfg, err := LoadFrom(map[string]string{
		"HTTP_PORT":        "9090",
		"LOG_FORMAT":       "text",
		"ACQ_OPTIMIZER":    "CMA",
		"ACQ_ANCHOR_LOGIC": "thompson_sampling",
		"ACQ_WORKERS":      "4",
		"ACQ_TIMEOUT":      "1500ms",
		"ACQ_SEED":         "42",
		"ACQ_FUNCTION":     "LCB",
		"GP_KERNEL":        "rbf",
		"GP_LENGTH_SCALE":  "0.25",
		"SPACE_FILE":       "space.yaml",
	})
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.HTTP.Port)
	assert.Equal(t, "CMA", cfg.Acquisition.Optimizer)
	assert.Equal(t, "thompson_sampling", cfg.Acquisition.AnchorLogic)
	assert.Equal(t, 4, cfg.Acquisition.Workers)
	assert.Equal(t, 1500*time.Millisecond, cfg.Acquisition.Timeout)
	assert.Equal(t, uint64(42), cfg.Acquisition.Seed)
	assert.Equal(t, 2.0, cfg.AcquisitionParam(), "LCB uses the exploration weight")
	assert.Equal(t, 0.25, cfg.Model.LengthScale)
	assert.Equal(t, "space.yaml", cfg.SpaceFile)
}

func TestLoadInvalid(t *testing.T) {
	tests := []struct {
		name    string
		environ map[string]string
	}{
		{"port", map[string]string{"HTTP_PORT": "70000"}},
		{"unparsable port", map[string]string{"HTTP_PORT": "http"}},
		{"anchors", map[string]string{"ACQ_NUM_ANCHORS": "0"}},
		{"samples", map[string]string{"ACQ_NUM_SAMPLES": "-1"}},
		{"workers", map[string]string{"ACQ_WORKERS": "0"}},
		{"timeout", map[string]string{"ACQ_TIMEOUT": "-1s"}},
		{"log format", map[string]string{"LOG_FORMAT": "xml"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadFrom(tt.environ)
			assert.Error(t, err)
		})
	}
}
