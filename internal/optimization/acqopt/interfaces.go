// Package acqopt finds the point that minimizes an acquisition function over
// a mixed design space. It samples anchor points, runs a local backend from
// each of them on the dimensions not fixed by the context, rounds the results
// to valid points and returns the best non-duplicate candidate.
package acqopt

import (
	"math/rand/v2"

	"gonum.org/v1/gonum/mat"

	"github.com/Paul1298/GPyOpt/internal/optimization"
	"github.com/Paul1298/GPyOpt/internal/optimization/space"
)

// Space is the design space the optimizer searches. *space.Space implements it.
type Space interface {
	ModelDimensionality() int
	ObjectiveDimensionality() int
	Bounds() optimization.Bounds
	FindVariable(name string) (space.Variable, error)
	RoundOptimum(x []float64) []float64
	Design(kind space.DesignType, n int, src rand.Source) (*mat.Dense, error)
}

// DuplicateChecker reports whether a full model-space point was already
// evaluated or is pending. *duplicate.Manager implements it.
type DuplicateChecker interface {
	IsDuplicate(x []float64) bool
}

// PosteriorSampler draws one sample of the surrogate posterior at each row
// of X. Lower values are better.
type PosteriorSampler interface {
	PosteriorSample(X *mat.Dense) ([]float64, error)
}

// Objective is the function to minimize, typically a negated acquisition
// function, on full model-space points. At least one of F and FDF must be set.
// DF and FDF return gradients with respect to every model dimension.
type Objective struct {
	F   func(x []float64) (float64, error)
	DF  func(x []float64) ([]float64, error)
	FDF func(x []float64) (float64, []float64, error)
}

// value evaluates the objective at x.
func (o Objective) value(x []float64) (float64, error) {
	if o.F != nil {
		return o.F(x)
	}
	v, _, err := o.FDF(x)
	return v, err
}

func (o Objective) valid() bool { return o.F != nil || o.FDF != nil }

// hasGradient reports whether DF or FDF is set.
func (o Objective) hasGradient() bool { return o.DF != nil || o.FDF != nil }

// gradient evaluates the gradient at x, preferring FDF over DF.
func (o Objective) gradient(x []float64) ([]float64, error) {
	if o.FDF != nil {
		_, g, err := o.FDF(x)
		return g, err
	}
	return o.DF(x)
}
