package space

import (
	"math"
	"slices"

	"github.com/Paul1298/GPyOpt/internal/optimization"
)

// Variable kinds accepted in space definitions.
const (
	TypeContinuous  = "continuous"
	TypeDiscrete    = "discrete"
	TypeCategorical = "categorical"
	TypeBandit      = "bandit"
)

// Variable is one named variable of a design space. Model-space methods take
// and return the variable's own slice of a model vector (IndexInModel order).
type Variable interface {
	Name() string
	Type() string

	// IndexInModel lists the positions of the variable in a model vector.
	IndexInModel() []int
	// IndexInObjective lists the positions of the variable in an objective vector.
	IndexInObjective() []int

	// Bounds returns the model-space box of the variable.
	Bounds() optimization.Bounds

	// ObjectiveToModel encodes an objective-space value.
	ObjectiveToModel(v []float64) ([]float64, error)
	// ModelToObjective decodes a model-space value.
	ModelToObjective(x []float64) []float64
	// Round snaps a model-space value to the closest valid one.
	Round(x []float64) []float64

	modelDim() int
	objectiveDim() int
	fromUnit(dst []float64, u float64)
	setIndex(model, objective int)
}

type base struct {
	name     string
	modelIdx []int
	objIdx   []int
}

func (b *base) Name() string            { return b.name }
func (b *base) IndexInModel() []int     { return slices.Clone(b.modelIdx) }
func (b *base) IndexInObjective() []int { return slices.Clone(b.objIdx) }

func (b *base) assign(model, objective, nModel, nObjective int) {
	b.modelIdx = make([]int, nModel)
	for i := range b.modelIdx {
		b.modelIdx[i] = model + i
	}
	b.objIdx = make([]int, nObjective)
	for i := range b.objIdx {
		b.objIdx[i] = objective + i
	}
}

func expectWidth(name string, v []float64, want int) error {
	if len(v) != want {
		return optimization.NewErrorf("variable %q: expected %d value(s), got %d", name, want, len(v))
	}
	return nil
}

// Continuous is a real-valued variable on a closed interval.
type Continuous struct {
	base
	Min, Max float64
}

// NewContinuous creates a continuous variable on [min, max].
func NewContinuous(name string, min, max float64) (*Continuous, error) {
	if math.IsNaN(min) || math.IsNaN(max) || min > max {
		return nil, optimization.WrapErrorf(optimization.ErrInvalidSpace, "variable %q: bad domain [%v, %v]", name, min, max)
	}
	return &Continuous{base: base{name: name}, Min: min, Max: max}, nil
}

func (v *Continuous) Type() string                 { return TypeContinuous }
func (v *Continuous) modelDim() int                { return 1 }
func (v *Continuous) objectiveDim() int            { return 1 }
func (v *Continuous) setIndex(model, objective int) { v.assign(model, objective, 1, 1) }

func (v *Continuous) Bounds() optimization.Bounds {
	return optimization.Bounds{{v.Min, v.Max}}
}

func (v *Continuous) ObjectiveToModel(x []float64) ([]float64, error) {
	if err := expectWidth(v.name, x, 1); err != nil {
		return nil, err
	}
	return []float64{x[0]}, nil
}

func (v *Continuous) ModelToObjective(x []float64) []float64 { return []float64{x[0]} }

func (v *Continuous) Round(x []float64) []float64 {
	return []float64{math.Max(v.Min, math.Min(x[0], v.Max))}
}

func (v *Continuous) fromUnit(dst []float64, u float64) {
	dst[0] = v.Min + u*(v.Max-v.Min)
}

// Discrete is a numeric variable restricted to a finite set of values.
type Discrete struct {
	base
	Values []float64
}

// NewDiscrete creates a discrete variable. Values are sorted and deduplicated.
func NewDiscrete(name string, values []float64) (*Discrete, error) {
	if len(values) == 0 {
		return nil, optimization.WrapErrorf(optimization.ErrInvalidSpace, "variable %q: empty domain", name)
	}
	vals := slices.Clone(values)
	slices.Sort(vals)
	vals = slices.Compact(vals)
	return &Discrete{base: base{name: name}, Values: vals}, nil
}

func (v *Discrete) Type() string                 { return TypeDiscrete }
func (v *Discrete) modelDim() int                { return 1 }
func (v *Discrete) objectiveDim() int            { return 1 }
func (v *Discrete) setIndex(model, objective int) { v.assign(model, objective, 1, 1) }

func (v *Discrete) Bounds() optimization.Bounds {
	return optimization.Bounds{{v.Values[0], v.Values[len(v.Values)-1]}}
}

func (v *Discrete) ObjectiveToModel(x []float64) ([]float64, error) {
	if err := expectWidth(v.name, x, 1); err != nil {
		return nil, err
	}
	return []float64{x[0]}, nil
}

func (v *Discrete) ModelToObjective(x []float64) []float64 { return []float64{x[0]} }

// Round returns the closest allowed value; ties go to the smaller value.
func (v *Discrete) Round(x []float64) []float64 {
	best := v.Values[0]
	for _, c := range v.Values[1:] {
		if math.Abs(c-x[0]) < math.Abs(best-x[0]) {
			best = c
		}
	}
	return []float64{best}
}

func (v *Discrete) fromUnit(dst []float64, u float64) {
	dst[0] = v.Values[unitIndex(u, len(v.Values))]
}

// Categorical is an unordered choice one-hot encoded in model space. The
// objective encoding holds the chosen category value.
type Categorical struct {
	base
	Categories []float64
}

// NewCategorical creates a categorical variable over the given category values.
func NewCategorical(name string, categories []float64) (*Categorical, error) {
	if len(categories) == 0 {
		return nil, optimization.WrapErrorf(optimization.ErrInvalidSpace, "variable %q: empty domain", name)
	}
	seen := make(map[float64]struct{}, len(categories))
	for _, c := range categories {
		if _, dup := seen[c]; dup {
			return nil, optimization.WrapErrorf(optimization.ErrInvalidSpace, "variable %q: repeated category %v", name, c)
		}
		seen[c] = struct{}{}
	}
	return &Categorical{base: base{name: name}, Categories: slices.Clone(categories)}, nil
}

func (v *Categorical) Type() string      { return TypeCategorical }
func (v *Categorical) modelDim() int     { return len(v.Categories) }
func (v *Categorical) objectiveDim() int { return 1 }

func (v *Categorical) setIndex(model, objective int) {
	v.assign(model, objective, len(v.Categories), 1)
}

func (v *Categorical) Bounds() optimization.Bounds {
	b := make(optimization.Bounds, len(v.Categories))
	for i := range b {
		b[i] = [2]float64{0, 1}
	}
	return b
}

func (v *Categorical) ObjectiveToModel(x []float64) ([]float64, error) {
	if err := expectWidth(v.name, x, 1); err != nil {
		return nil, err
	}
	idx := slices.Index(v.Categories, x[0])
	if idx < 0 {
		return nil, optimization.NewErrorf("variable %q: %v is not a category", v.name, x[0])
	}
	return v.oneHot(idx), nil
}

func (v *Categorical) ModelToObjective(x []float64) []float64 {
	return []float64{v.Categories[argmax(x)]}
}

func (v *Categorical) Round(x []float64) []float64 { return v.oneHot(argmax(x)) }

func (v *Categorical) fromUnit(dst []float64, u float64) {
	clear(dst)
	dst[unitIndex(u, len(v.Categories))] = 1
}

func (v *Categorical) oneHot(idx int) []float64 {
	out := make([]float64, len(v.Categories))
	out[idx] = 1
	return out
}

// Bandit is a variable whose value must be one of a fixed set of arms, each a
// point of the same dimension.
type Bandit struct {
	base
	Arms [][]float64
}

// NewBandit creates a bandit variable over the given arms.
func NewBandit(name string, arms [][]float64) (*Bandit, error) {
	if len(arms) == 0 || len(arms[0]) == 0 {
		return nil, optimization.WrapErrorf(optimization.ErrInvalidSpace, "variable %q: empty domain", name)
	}
	d := len(arms[0])
	cp := make([][]float64, len(arms))
	for i, a := range arms {
		if len(a) != d {
			return nil, optimization.WrapErrorf(optimization.ErrInvalidSpace, "variable %q: arm %d has %d values, want %d", name, i, len(a), d)
		}
		cp[i] = slices.Clone(a)
	}
	return &Bandit{base: base{name: name}, Arms: cp}, nil
}

func (v *Bandit) Type() string      { return TypeBandit }
func (v *Bandit) modelDim() int     { return len(v.Arms[0]) }
func (v *Bandit) objectiveDim() int { return len(v.Arms[0]) }

func (v *Bandit) setIndex(model, objective int) {
	v.assign(model, objective, v.modelDim(), v.objectiveDim())
}

func (v *Bandit) Bounds() optimization.Bounds {
	d := v.modelDim()
	b := make(optimization.Bounds, d)
	for j := 0; j < d; j++ {
		b[j] = [2]float64{math.Inf(1), math.Inf(-1)}
		for _, a := range v.Arms {
			b[j][0] = math.Min(b[j][0], a[j])
			b[j][1] = math.Max(b[j][1], a[j])
		}
	}
	return b
}

func (v *Bandit) ObjectiveToModel(x []float64) ([]float64, error) {
	if err := expectWidth(v.name, x, v.objectiveDim()); err != nil {
		return nil, err
	}
	return slices.Clone(x), nil
}

func (v *Bandit) ModelToObjective(x []float64) []float64 { return slices.Clone(x) }

// Round returns the arm closest to x in Euclidean distance.
func (v *Bandit) Round(x []float64) []float64 {
	best, bestDist := 0, math.Inf(1)
	for i, a := range v.Arms {
		var d float64
		for j := range a {
			diff := a[j] - x[j]
			d += diff * diff
		}
		if d < bestDist {
			best, bestDist = i, d
		}
	}
	return slices.Clone(v.Arms[best])
}

func (v *Bandit) fromUnit(dst []float64, u float64) {
	copy(dst, v.Arms[unitIndex(u, len(v.Arms))])
}

// unitIndex maps u in [0,1] onto one of n equally sized bins.
func unitIndex(u float64, n int) int {
	i := int(u * float64(n))
	if i >= n {
		i = n - 1
	}
	if i < 0 {
		i = 0
	}
	return i
}

// argmax returns the index of the first maximum of x.
func argmax(x []float64) int {
	best := 0
	for i, v := range x {
		if v > x[best] {
			best = i
		}
	}
	return best
}
