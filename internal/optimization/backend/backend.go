// Package backend provides the numerical optimizers the acquisition optimizer
// runs from each anchor point. Every backend minimizes over a box and returns
// a point inside it.
package backend

import (
	"context"
	"errors"
	"math"
	"slices"
	"sync"

	"gonum.org/v1/gonum/optimize"

	"github.com/Paul1298/GPyOpt/internal/optimization"
)

// Backend names accepted by Choose.
const (
	LBFGS      = "lbfgs"
	DIRECT     = "DIRECT"
	CMA        = "CMA"
	NelderMead = "nelder-mead"
	Mayfly     = "mayfly"
)

// Names lists the supported backends.
func Names() []string {
	return []string{LBFGS, DIRECT, CMA, NelderMead, Mayfly}
}

// Problem is a minimization problem. Grad may be nil, in which case backends
// that need a gradient use finite differences.
type Problem struct {
	Func func(x []float64) (float64, error)
	Grad func(grad, x []float64) error
}

// Optimizer minimizes a Problem within the box it was created for.
type Optimizer interface {
	Name() string
	// Minimize runs from x0 and returns the best point found and its value.
	Minimize(ctx context.Context, p Problem, x0 []float64) ([]float64, float64, error)
}

// Options tunes the backends. Zero values select per-backend defaults.
type Options struct {
	MaxIterations  int
	MaxEvaluations int
	Population     int
	Seed           uint64
}

// Option configures Options.
type Option func(*Options)

// WithMaxIterations caps major iterations (generations for population methods).
func WithMaxIterations(n int) Option {
	return func(o *Options) { o.MaxIterations = n }
}

// WithMaxEvaluations caps objective evaluations.
func WithMaxEvaluations(n int) Option {
	return func(o *Options) { o.MaxEvaluations = n }
}

// WithPopulation sets the population size of CMA and mayfly.
func WithPopulation(n int) Option {
	return func(o *Options) { o.Population = n }
}

// WithSeed seeds the stochastic backends.
func WithSeed(seed uint64) Option {
	return func(o *Options) { o.Seed = seed }
}

func orDefault(v, def int) int {
	if v > 0 {
		return v
	}
	return def
}

// Choose returns the backend registered under name for the given box.
func Choose(name string, bounds optimization.Bounds, opts ...Option) (Optimizer, error) {
	const op = "Choose"
	if err := bounds.Validate(); err != nil {
		return nil, optimization.WrapError(err, name).WithOperation(op).WithComponent("backend")
	}
	var o Options
	for _, opt := range opts {
		opt(&o)
	}
	b := slices.Clone(bounds)
	switch name {
	case LBFGS:
		return &lbfgs{bounds: b, opts: o}, nil
	case DIRECT:
		return &direct{bounds: b, opts: o}, nil
	case CMA:
		return &cmaes{bounds: b, opts: o}, nil
	case NelderMead:
		return &nelderMead{bounds: b, opts: o}, nil
	case Mayfly:
		return &mayflyOpt{bounds: b, opts: o}, nil
	}
	return nil, optimization.WrapErrorf(optimization.ErrUnsupportedOptimizer, "%q", name).WithOperation(op).WithComponent("backend")
}

var errNoEvaluation = errors.New("no finite objective value")

// guard wraps a Problem for the duration of one run. It records the first
// objective error, honors ctx and remembers the best point evaluated, so a
// backend can always return an in-box point it actually measured.
type guard struct {
	ctx context.Context
	p   Problem

	mu    sync.Mutex
	err   error
	bestX []float64
	bestF float64
	evals int
}

func newGuard(ctx context.Context, p Problem) *guard {
	return &guard{ctx: ctx, p: p, bestF: math.Inf(1)}
}

// eval evaluates x, which must lie inside the box. After a failure it returns
// +Inf without calling the objective again.
func (g *guard) eval(x []float64) float64 {
	if g.stopped() {
		return math.Inf(1)
	}
	v, err := g.p.Func(x)
	g.mu.Lock()
	defer g.mu.Unlock()
	g.evals++
	if err != nil {
		if g.err == nil {
			g.err = err
		}
		return math.Inf(1)
	}
	if math.IsNaN(v) {
		return math.Inf(1)
	}
	if v < g.bestF {
		g.bestF = v
		g.bestX = append(g.bestX[:0], x...)
	}
	return v
}

// grad evaluates the user gradient at x into dst.
func (g *guard) grad(dst, x []float64) {
	if g.stopped() {
		clear(dst)
		return
	}
	if err := g.p.Grad(dst, x); err != nil {
		g.fail(err)
		clear(dst)
	}
}

func (g *guard) fail(err error) {
	g.mu.Lock()
	if g.err == nil {
		g.err = err
	}
	g.mu.Unlock()
}

func (g *guard) failure() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.err != nil {
		return g.err
	}
	return g.ctx.Err()
}

func (g *guard) stopped() bool { return g.failure() != nil }

// status adapts the guard to optimize.Problem.Status.
func (g *guard) status() (optimize.Status, error) {
	if err := g.failure(); err != nil {
		return optimize.Failure, err
	}
	return optimize.NotTerminated, nil
}

func (g *guard) evaluations() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.evals
}

// result resolves a run. Objective and ctx errors win over whatever the method
// reported; otherwise the best evaluated point is returned.
func (g *guard) result(methodErr error) ([]float64, float64, error) {
	if err := g.failure(); err != nil {
		return nil, math.NaN(), err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.bestX == nil {
		if methodErr != nil {
			return nil, math.NaN(), methodErr
		}
		return nil, math.NaN(), errNoEvaluation
	}
	return slices.Clone(g.bestX), g.bestF, nil
}

// unitProblem evaluates the objective on the unit cube mapped onto bounds.
// Points outside the cube are clipped and charged a quadratic penalty, which
// keeps unconstrained methods close to the box.
func unitProblem(g *guard, bounds optimization.Bounds) func(u []float64) float64 {
	const penalty = 1e3
	return func(u []float64) float64 {
		clipped := make([]float64, len(u))
		var out float64
		for i, v := range u {
			c := math.Max(0, math.Min(1, v))
			out += (v - c) * (v - c)
			clipped[i] = c
		}
		x := bounds.FromUnit(nil, clipped)
		return g.eval(x) + penalty*out
	}
}
