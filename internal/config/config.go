package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
)

type Config struct {
	Environment string `env:"ENV" envDefault:"development"`
	HTTP        struct {
		Port            int           `env:"HTTP_PORT" envDefault:"8080"`
		ReadTimeout     time.Duration `env:"HTTP_READ_TIMEOUT" envDefault:"30s"`
		WriteTimeout    time.Duration `env:"HTTP_WRITE_TIMEOUT" envDefault:"60s"`
		IdleTimeout     time.Duration `env:"HTTP_IDLE_TIMEOUT" envDefault:"120s"`
		ShutdownTimeout time.Duration `env:"HTTP_SHUTDOWN_TIMEOUT" envDefault:"30s"`
		SlowRequest     time.Duration `env:"HTTP_SLOW_REQUEST" envDefault:"5s"`
		// MaxBodyBytes bounds the size of a suggestion request.
		MaxBodyBytes int64 `env:"HTTP_MAX_BODY_BYTES" envDefault:"8388608"`
	}
	Logging struct {
		Level  string `env:"LOG_LEVEL" envDefault:"info"`
		Format string `env:"LOG_FORMAT" envDefault:"json"`
		Output string `env:"LOG_OUTPUT" envDefault:"stderr"`
	}
	Acquisition struct {
		Optimizer   string `env:"ACQ_OPTIMIZER" envDefault:"lbfgs"`
		AnchorLogic string `env:"ACQ_ANCHOR_LOGIC" envDefault:"max_objective"`
		NumAnchors  int    `env:"ACQ_NUM_ANCHORS" envDefault:"5"`
		// NumSamples overrides the anchor design size when positive.
		NumSamples int           `env:"ACQ_NUM_SAMPLES" envDefault:"0"`
		Workers    int           `env:"ACQ_WORKERS" envDefault:"1"`
		Timeout    time.Duration `env:"ACQ_TIMEOUT" envDefault:"30s"`
		Seed       uint64        `env:"ACQ_SEED" envDefault:"0"`
		// Function is EI or LCB. Jitter is the EI xi, ExplorationWeight the
		// LCB weight.
		Function          string  `env:"ACQ_FUNCTION" envDefault:"EI"`
		Jitter            float64 `env:"ACQ_JITTER" envDefault:"0.01"`
		ExplorationWeight float64 `env:"ACQ_EXPLORATION_WEIGHT" envDefault:"2"`
	}
	Model struct {
		Kernel      string  `env:"GP_KERNEL" envDefault:"matern52"`
		LengthScale float64 `env:"GP_LENGTH_SCALE" envDefault:"1"`
		SignalVar   float64 `env:"GP_SIGNAL_VAR" envDefault:"1"`
		NoiseVar    float64 `env:"GP_NOISE_VAR" envDefault:"1e-6"`
	}
	// SpaceFile is an optional YAML design space used by requests that do
	// not carry their own.
	SpaceFile string `env:"SPACE_FILE"`
}

// Load reads the configuration from the process environment.
func Load() (*Config, error) {
	return parse(env.Options{})
}

// LoadFrom reads the configuration from the given variables only.
func LoadFrom(environ map[string]string) (*Config, error) {
	return parse(env.Options{Environment: environ})
}

func parse(opts env.Options) (*Config, error) {
	cfg := &Config{}
	if err := env.ParseWithOptions(cfg, opts); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks ranges the env tags cannot express.
func (c *Config) Validate() error {
	switch {
	case c.HTTP.Port <= 0 || c.HTTP.Port > 65535:
		return fmt.Errorf("invalid HTTP_PORT %d", c.HTTP.Port)
	case c.HTTP.MaxBodyBytes <= 0:
		return fmt.Errorf("HTTP_MAX_BODY_BYTES must be positive")
	case c.Acquisition.NumAnchors < 1:
		return fmt.Errorf("ACQ_NUM_ANCHORS must be at least 1, got %d", c.Acquisition.NumAnchors)
	case c.Acquisition.NumSamples < 0:
		return fmt.Errorf("ACQ_NUM_SAMPLES must not be negative, got %d", c.Acquisition.NumSamples)
	case c.Acquisition.Workers < 1:
		return fmt.Errorf("ACQ_WORKERS must be at least 1, got %d", c.Acquisition.Workers)
	case c.Acquisition.Timeout < 0:
		return fmt.Errorf("ACQ_TIMEOUT must not be negative")
	}
	switch strings.ToLower(c.Logging.Format) {
	case "json", "text":
	default:
		return fmt.Errorf("unknown LOG_FORMAT %q", c.Logging.Format)
	}
	return nil
}

// AcquisitionParam returns the parameter of the configured acquisition
// function.
func (c *Config) AcquisitionParam() float64 {
	if strings.EqualFold(c.Acquisition.Function, "LCB") {
		return c.Acquisition.ExplorationWeight
	}
	return c.Acquisition.Jitter
}
