package backend

import (
	"context"
	"math/rand"

	"github.com/cwbudde/mayfly"

	"github.com/Paul1298/GPyOpt/internal/optimization"
)

const (
	mayflyIterations = 100
	mayflyPopulation = 20
)

// mayflyOpt runs the mayfly swarm algorithm. The library takes scalar bounds,
// so the search happens on the unit cube. It is global and ignores x0 apart
// from evaluating it once.
type mayflyOpt struct {
	bounds optimization.Bounds
	opts   Options
}

func (o *mayflyOpt) Name() string { return Mayfly }

func (o *mayflyOpt) Minimize(ctx context.Context, p Problem, x0 []float64) ([]float64, float64, error) {
	g := newGuard(ctx, p)
	g.eval(o.bounds.Clip(nil, x0))

	config := mayfly.NewDefaultConfig()
	config.ObjectiveFunc = unitProblem(g, o.bounds)
	config.ProblemSize = len(o.bounds)
	config.MaxIterations = orDefault(o.opts.MaxIterations, mayflyIterations)
	config.NPop = orDefault(o.opts.Population, mayflyPopulation)
	config.LowerBound = 0
	config.UpperBound = 1
	config.Rand = rand.New(rand.NewSource(int64(o.opts.Seed)))

	_, err := mayfly.Optimize(config)
	return g.result(err)
}
