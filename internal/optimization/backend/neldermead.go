package backend

import (
	"context"

	"gonum.org/v1/gonum/optimize"

	"github.com/Paul1298/GPyOpt/internal/optimization"
)

const nelderMeadMaxEvaluations = 2000

// nelderMead is the derivative-free simplex search on the unit cube.
type nelderMead struct {
	bounds optimization.Bounds
	opts   Options
}

func (o *nelderMead) Name() string { return NelderMead }

func (o *nelderMead) Minimize(ctx context.Context, p Problem, x0 []float64) ([]float64, float64, error) {
	g := newGuard(ctx, p)
	problem := optimize.Problem{
		Func:   unitProblem(g, o.bounds),
		Status: g.status,
	}
	settings := &optimize.Settings{
		MajorIterations: o.opts.MaxIterations,
		FuncEvaluations: orDefault(o.opts.MaxEvaluations, nelderMeadMaxEvaluations),
		Converger: &optimize.FunctionConverge{
			Absolute:   1e-10,
			Relative:   1e-10,
			Iterations: 100,
		},
	}
	method := &optimize.NelderMead{
		Reflection:  1.0,
		Expansion:   2.0,
		Contraction: 0.5,
		Shrink:      0.5,
		SimplexSize: 0.2,
	}

	_, err := optimize.Minimize(problem, o.bounds.ToUnit(nil, x0), settings, method)
	return g.result(err)
}
