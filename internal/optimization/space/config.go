package space

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/Paul1298/GPyOpt/internal/optimization"
)

// VariableConfig is the declarative form of a variable, as found in YAML space
// files and JSON requests.
type VariableConfig struct {
	Name string `yaml:"name" json:"name"`
	Type string `yaml:"type" json:"type"`
	// Domain is [min, max] for continuous variables and the allowed values
	// for discrete and categorical ones.
	Domain []float64 `yaml:"domain,omitempty" json:"domain,omitempty"`
	// Arms lists the points of a bandit variable.
	Arms [][]float64 `yaml:"arms,omitempty" json:"arms,omitempty"`
	// Dimensionality repeats the variable, naming copies name_1..name_k.
	Dimensionality int `yaml:"dimensionality,omitempty" json:"dimensionality,omitempty"`
}

// Config is a design space definition.
type Config struct {
	Variables []VariableConfig `yaml:"variables" json:"variables"`
}

// FromConfigs builds a space from variable definitions.
func FromConfigs(cfgs []VariableConfig) (*Space, error) {
	var vars []Variable
	for i, c := range cfgs {
		if c.Name == "" {
			return nil, optimization.WrapErrorf(optimization.ErrInvalidSpace, "variable %d has no name", i)
		}
		k := c.Dimensionality
		if k < 0 {
			return nil, optimization.WrapErrorf(optimization.ErrInvalidSpace, "variable %q: negative dimensionality", c.Name)
		}
		if k <= 1 {
			v, err := c.build(c.Name)
			if err != nil {
				return nil, err
			}
			vars = append(vars, v)
			continue
		}
		for j := 1; j <= k; j++ {
			v, err := c.build(fmt.Sprintf("%s_%d", c.Name, j))
			if err != nil {
				return nil, err
			}
			vars = append(vars, v)
		}
	}
	return New(vars...)
}

func (c VariableConfig) build(name string) (Variable, error) {
	switch c.Type {
	case TypeContinuous, "":
		if len(c.Domain) != 2 {
			return nil, optimization.WrapErrorf(optimization.ErrInvalidSpace, "variable %q: continuous domain needs [min, max]", name)
		}
		return NewContinuous(name, c.Domain[0], c.Domain[1])
	case TypeDiscrete:
		return NewDiscrete(name, c.Domain)
	case TypeCategorical:
		return NewCategorical(name, c.Domain)
	case TypeBandit:
		return NewBandit(name, c.Arms)
	default:
		return nil, optimization.WrapErrorf(optimization.ErrInvalidSpace, "variable %q: unknown type %q", name, c.Type)
	}
}

// ParseYAML parses and builds a space from YAML bytes.
func ParseYAML(data []byte) (*Space, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse space yaml: %w", err)
	}
	s, err := FromConfigs(cfg.Variables)
	if err != nil {
		return nil, fmt.Errorf("invalid space: %w", err)
	}
	return s, nil
}

// LoadFile reads a YAML space definition from disk.
func LoadFile(path string) (*Space, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read space file: %w", err)
	}
	return ParseYAML(data)
}
