package acqopt

import (
	"context"
	"slices"

	"github.com/Paul1298/GPyOpt/internal/optimization"
	"github.com/Paul1298/GPyOpt/internal/optimization/backend"
)

// Candidate is the outcome of the local search from one anchor.
type Candidate struct {
	Anchor []float64
	// X is the rounded full model-space point, or the anchor after a fallback.
	X     []float64
	Value float64
	// FellBack is set when the optimized point was a duplicate and the anchor
	// was used instead.
	FellBack bool
	Err      error
}

// reduced restates the objective over the free dimensions. Gradients are
// projected onto them.
func reduced(obj Objective, cm *ContextManager) backend.Problem {
	p := backend.Problem{
		Func: func(z []float64) (float64, error) {
			return obj.value(cm.ExpandVector(z))
		},
	}
	if obj.hasGradient() {
		free := cm.NonContextIndex()
		p.Grad = func(grad, z []float64) error {
			g, err := obj.gradient(cm.ExpandVector(z))
			if err != nil {
				return err
			}
			if len(g) != cm.modelDim {
				return optimization.NewErrorf("gradient has %d values, want %d", len(g), cm.modelDim)
			}
			for k, j := range free {
				grad[k] = g[j]
			}
			return nil
		}
	}
	return p
}

// apply runs opt from anchor over the free dimensions and returns a valid,
// non-duplicate point with its objective value.
func apply(ctx context.Context, opt backend.Optimizer, anchor []float64, obj Objective, sc *Scope) Candidate {
	c := Candidate{Anchor: anchor}

	z, _, err := opt.Minimize(ctx, reduced(obj, sc.Context), sc.Context.Reduce(anchor))
	if err != nil {
		c.Err = err
		return c
	}
	x := sc.Space.RoundOptimum(sc.Context.ExpandVector(z))

	if sc.isDuplicate(x) {
		x = slices.Clone(anchor)
		c.FellBack = true
	}
	v, err := obj.value(x)
	if err != nil {
		c.Err = optimization.WrapError(err, "evaluate candidate")
		return c
	}
	c.X, c.Value = x, v
	return c
}
