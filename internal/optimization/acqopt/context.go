package acqopt

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"

	"gonum.org/v1/gonum/mat"

	"github.com/Paul1298/GPyOpt/internal/optimization"
)

// ContextValue fixes one variable to a value given in objective space: a
// single number for continuous, discrete and categorical variables, one
// number per dimension for bandits.
type ContextValue struct {
	Name  string    `json:"name" yaml:"name"`
	Value []float64 `json:"value" yaml:"value"`
}

// Fixed is shorthand for a ContextValue.
func Fixed(name string, value ...float64) ContextValue {
	return ContextValue{Name: name, Value: value}
}

// UnmarshalJSON accepts the value either as a number or as an array.
func (c *ContextValue) UnmarshalJSON(data []byte) error {
	var raw struct {
		Name  string          `json:"name"`
		Value json.RawMessage `json:"value"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	c.Name = raw.Name
	c.Value = nil
	v := bytes.TrimSpace(raw.Value)
	if len(v) == 0 {
		return nil
	}
	if v[0] == '[' {
		return json.Unmarshal(v, &c.Value)
	}
	var f float64
	if err := json.Unmarshal(v, &f); err != nil {
		return fmt.Errorf("context %q: %w", raw.Name, err)
	}
	c.Value = []float64{f}
	return nil
}

// Context is an ordered set of fixed variables.
type Context []ContextValue

// ContextManager splits the model dimensions into those fixed by a context and
// the free ones the backends optimize over. It is immutable.
type ContextManager struct {
	modelDim int

	allIndex    []int
	allIndexObj []int

	contextIndex    []int
	contextIndexObj []int
	contextValue    []float64

	nonContextIndex    []int
	nonContextIndexObj []int
	nonContextBounds   optimization.Bounds
}

// NewContextManager resolves ctx against the space. Every name must exist and
// appear once, and every value must be a valid value of its variable: inside
// the interval, one of the discrete values, a category or an arm.
func NewContextManager(sp Space, ctx Context) (*ContextManager, error) {
	const op = "NewContextManager"
	cm := &ContextManager{
		modelDim:    sp.ModelDimensionality(),
		allIndex:    seq(sp.ModelDimensionality()),
		allIndexObj: seq(sp.ObjectiveDimensionality()),
	}
	bounds := sp.Bounds()

	seen := make(map[string]struct{}, len(ctx))
	for _, cv := range ctx {
		if _, dup := seen[cv.Name]; dup {
			return nil, optimization.WrapErrorf(optimization.ErrInvalidContext, "variable %q fixed twice", cv.Name).WithOperation(op)
		}
		seen[cv.Name] = struct{}{}

		v, err := sp.FindVariable(cv.Name)
		if err != nil {
			return nil, optimization.WrapError(err, "context").WithOperation(op)
		}
		enc, err := v.ObjectiveToModel(cv.Value)
		if err != nil {
			return nil, optimization.WrapErrorf(optimization.ErrInvalidContext, "variable %q: %v", cv.Name, err).WithOperation(op)
		}
		if !slices.Equal(v.Round(enc), enc) {
			return nil, optimization.WrapErrorf(optimization.ErrInvalidContext, "variable %q: %v is outside its domain", cv.Name, cv.Value).WithOperation(op)
		}
		cm.contextIndex = append(cm.contextIndex, v.IndexInModel()...)
		cm.contextIndexObj = append(cm.contextIndexObj, v.IndexInObjective()...)
		cm.contextValue = append(cm.contextValue, enc...)
	}

	for _, i := range cm.allIndex {
		if !slices.Contains(cm.contextIndex, i) {
			cm.nonContextIndex = append(cm.nonContextIndex, i)
			cm.nonContextBounds = append(cm.nonContextBounds, bounds[i])
		}
	}
	for _, i := range cm.allIndexObj {
		if !slices.Contains(cm.contextIndexObj, i) {
			cm.nonContextIndexObj = append(cm.nonContextIndexObj, i)
		}
	}
	return cm, nil
}

func seq(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i
	}
	return out
}

// HasContext reports whether any dimension is fixed.
func (cm *ContextManager) HasContext() bool { return len(cm.contextIndex) > 0 }

// AllIndex lists every model dimension.
func (cm *ContextManager) AllIndex() []int { return slices.Clone(cm.allIndex) }

// AllIndexObj lists every objective dimension.
func (cm *ContextManager) AllIndexObj() []int { return slices.Clone(cm.allIndexObj) }

// ContextIndex lists the fixed model dimensions in context order.
func (cm *ContextManager) ContextIndex() []int { return slices.Clone(cm.contextIndex) }

// ContextIndexObj lists the fixed objective dimensions in context order.
func (cm *ContextManager) ContextIndexObj() []int { return slices.Clone(cm.contextIndexObj) }

// ContextValue holds the model-space values of the fixed dimensions, aligned
// with ContextIndex.
func (cm *ContextManager) ContextValue() []float64 { return slices.Clone(cm.contextValue) }

// NonContextIndex lists the free model dimensions in ascending order.
func (cm *ContextManager) NonContextIndex() []int { return slices.Clone(cm.nonContextIndex) }

// NonContextIndexObj lists the free objective dimensions in ascending order.
func (cm *ContextManager) NonContextIndexObj() []int { return slices.Clone(cm.nonContextIndexObj) }

// NonContextBounds is the box of the free model dimensions.
func (cm *ContextManager) NonContextBounds() optimization.Bounds {
	return slices.Clone(cm.nonContextBounds)
}

// Expand turns rows over the free dimensions into full model-space rows with
// the context values filled in. It panics if x does not have one column per
// free dimension.
func (cm *ContextManager) Expand(x *mat.Dense) *mat.Dense {
	r, c := x.Dims()
	if c != len(cm.nonContextIndex) {
		panic(fmt.Sprintf("acqopt: expand: got %d columns, want %d", c, len(cm.nonContextIndex)))
	}
	out := mat.NewDense(r, cm.modelDim, nil)
	for i := 0; i < r; i++ {
		cm.expandInto(out.RawRowView(i), x.RawRowView(i))
	}
	return out
}

// ExpandVector is Expand for a single point.
func (cm *ContextManager) ExpandVector(x []float64) []float64 {
	if len(x) != len(cm.nonContextIndex) {
		panic(fmt.Sprintf("acqopt: expand: got %d values, want %d", len(x), len(cm.nonContextIndex)))
	}
	out := make([]float64, cm.modelDim)
	cm.expandInto(out, x)
	return out
}

func (cm *ContextManager) expandInto(dst, x []float64) {
	for k, j := range cm.nonContextIndex {
		dst[j] = x[k]
	}
	for k, j := range cm.contextIndex {
		dst[j] = cm.contextValue[k]
	}
}

// Reduce keeps the free dimensions of a full model-space point.
func (cm *ContextManager) Reduce(x []float64) []float64 {
	out := make([]float64, len(cm.nonContextIndex))
	for k, j := range cm.nonContextIndex {
		out[k] = x[j]
	}
	return out
}

// Apply returns a copy of a full model-space point with the context values
// written over the fixed dimensions.
func (cm *ContextManager) Apply(x []float64) []float64 {
	out := slices.Clone(x)
	for k, j := range cm.contextIndex {
		out[j] = cm.contextValue[k]
	}
	return out
}
