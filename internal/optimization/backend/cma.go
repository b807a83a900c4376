package backend

import (
	"context"
	"math/rand/v2"

	"gonum.org/v1/gonum/optimize"

	"github.com/Paul1298/GPyOpt/internal/optimization"
)

const (
	cmaMaxEvaluations = 2000
	cmaStepSize       = 0.3
)

// cmaes runs gonum's CMA-ES with Cholesky updates on the unit cube, started
// at the anchor.
type cmaes struct {
	bounds optimization.Bounds
	opts   Options
}

func (o *cmaes) Name() string { return CMA }

func (o *cmaes) Minimize(ctx context.Context, p Problem, x0 []float64) ([]float64, float64, error) {
	g := newGuard(ctx, p)
	problem := optimize.Problem{
		Func:   unitProblem(g, o.bounds),
		Status: g.status,
	}
	settings := &optimize.Settings{
		MajorIterations: o.opts.MaxIterations,
		FuncEvaluations: orDefault(o.opts.MaxEvaluations, cmaMaxEvaluations),
		Converger: &optimize.FunctionConverge{
			Absolute:   1e-10,
			Iterations: 50,
		},
	}
	method := &optimize.CmaEsChol{
		InitStepSize: cmaStepSize,
		Population:   o.opts.Population,
		Src:          rand.NewPCG(o.opts.Seed, o.opts.Seed^0x9e3779b97f4a7c15),
	}

	_, err := optimize.Minimize(problem, o.bounds.ToUnit(nil, x0), settings, method)
	return g.result(err)
}
