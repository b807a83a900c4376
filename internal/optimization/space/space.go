// Package space implements the design space searched by the acquisition
// optimizer: an ordered list of continuous, discrete, categorical and bandit
// variables with their model-space (optimizer-facing) and objective-space
// (user-facing) encodings.
package space

import (
	"slices"

	"github.com/Paul1298/GPyOpt/internal/optimization"
)

// Space is an ordered, immutable collection of variables. Every model
// dimension belongs to exactly one variable.
type Space struct {
	variables []Variable
	byName    map[string]Variable
	modelDim  int
	objDim    int
	bounds    optimization.Bounds
}

// New builds a space from variables in order. Variable names must be unique.
func New(vars ...Variable) (*Space, error) {
	if len(vars) == 0 {
		return nil, optimization.WrapError(optimization.ErrInvalidSpace, "no variables")
	}
	s := &Space{
		variables: make([]Variable, 0, len(vars)),
		byName:    make(map[string]Variable, len(vars)),
	}
	for _, v := range vars {
		if v == nil {
			return nil, optimization.WrapError(optimization.ErrInvalidSpace, "nil variable")
		}
		if v.Name() == "" {
			return nil, optimization.WrapError(optimization.ErrInvalidSpace, "variable without name")
		}
		if _, dup := s.byName[v.Name()]; dup {
			return nil, optimization.WrapErrorf(optimization.ErrInvalidSpace, "duplicate variable %q", v.Name())
		}
		v.setIndex(s.modelDim, s.objDim)
		s.modelDim += v.modelDim()
		s.objDim += v.objectiveDim()
		s.bounds = append(s.bounds, v.Bounds()...)
		s.variables = append(s.variables, v)
		s.byName[v.Name()] = v
	}
	return s, nil
}

// ModelDimensionality is the length of a model-space vector.
func (s *Space) ModelDimensionality() int { return s.modelDim }

// ObjectiveDimensionality is the length of an objective-space vector.
func (s *Space) ObjectiveDimensionality() int { return s.objDim }

// Bounds returns a copy of the model-space box.
func (s *Space) Bounds() optimization.Bounds { return slices.Clone(s.bounds) }

// Variables returns the variables in order.
func (s *Space) Variables() []Variable { return slices.Clone(s.variables) }

// FindVariable looks a variable up by name.
func (s *Space) FindVariable(name string) (Variable, error) {
	v, ok := s.byName[name]
	if !ok {
		return nil, optimization.WrapErrorf(optimization.ErrUnknownVariable, "%q", name).WithComponent("space")
	}
	return v, nil
}

// RoundOptimum snaps a model-space vector to the closest valid point of the
// space.
func (s *Space) RoundOptimum(x []float64) []float64 {
	out := make([]float64, s.modelDim)
	for _, v := range s.variables {
		idx := v.IndexInModel()
		rounded := v.Round(gather(x, idx))
		for i, j := range idx {
			out[j] = rounded[i]
		}
	}
	return out
}

// ObjectiveToModel encodes a full objective-space vector.
func (s *Space) ObjectiveToModel(x []float64) ([]float64, error) {
	if len(x) != s.objDim {
		return nil, optimization.NewErrorf("objective vector has %d values, want %d", len(x), s.objDim).WithComponent("space")
	}
	out := make([]float64, s.modelDim)
	for _, v := range s.variables {
		enc, err := v.ObjectiveToModel(gather(x, v.IndexInObjective()))
		if err != nil {
			return nil, err
		}
		for i, j := range v.IndexInModel() {
			out[j] = enc[i]
		}
	}
	return out, nil
}

// ModelToObjective decodes a full model-space vector.
func (s *Space) ModelToObjective(x []float64) []float64 {
	out := make([]float64, s.objDim)
	for _, v := range s.variables {
		dec := v.ModelToObjective(gather(x, v.IndexInModel()))
		for i, j := range v.IndexInObjective() {
			out[j] = dec[i]
		}
	}
	return out
}

func gather(x []float64, idx []int) []float64 {
	out := make([]float64, len(idx))
	for i, j := range idx {
		out[i] = x[j]
	}
	return out
}
