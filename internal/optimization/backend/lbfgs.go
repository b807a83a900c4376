package backend

import (
	"context"
	"math"

	"gonum.org/v1/gonum/diff/fd"
	"gonum.org/v1/gonum/optimize"

	"github.com/Paul1298/GPyOpt/internal/optimization"
)

const (
	lbfgsMaxIterations = 1000
	// edgeMargin keeps the start of the sine map off the points where its
	// derivative vanishes.
	edgeMargin = 1e-4
)

// lbfgs runs gonum's L-BFGS on the substitution
// x = lo + (hi-lo) * (1 + sin z) / 2, which turns the box into an
// unconstrained problem in z.
type lbfgs struct {
	bounds optimization.Bounds
	opts   Options
}

func (o *lbfgs) Name() string { return LBFGS }

func (o *lbfgs) toX(dst, z []float64) []float64 {
	for i, v := range z {
		lo, hi := o.bounds[i][0], o.bounds[i][1]
		x := lo + (hi-lo)*(1+math.Sin(v))/2
		dst[i] = math.Max(lo, math.Min(x, hi))
	}
	return dst
}

func (o *lbfgs) toZ(x []float64) []float64 {
	z := make([]float64, len(x))
	for i, v := range x {
		lo, hi := o.bounds[i][0], o.bounds[i][1]
		if hi == lo {
			continue
		}
		s := 2*(v-lo)/(hi-lo) - 1
		s = math.Max(-1+edgeMargin, math.Min(s, 1-edgeMargin))
		z[i] = math.Asin(s)
	}
	return z
}

func (o *lbfgs) Minimize(ctx context.Context, p Problem, x0 []float64) ([]float64, float64, error) {
	g := newGuard(ctx, p)
	dim := len(o.bounds)

	f := func(z []float64) float64 {
		return g.eval(o.toX(make([]float64, dim), z))
	}

	var grad func(dst, z []float64)
	if p.Grad != nil {
		grad = func(dst, z []float64) {
			x := o.toX(make([]float64, dim), z)
			g.grad(dst, x)
			for i, v := range z {
				dst[i] *= (o.bounds[i][1] - o.bounds[i][0]) * math.Cos(v) / 2
			}
		}
	} else {
		grad = func(dst, z []float64) {
			fd.Gradient(dst, f, z, &fd.Settings{Formula: fd.Central})
		}
	}

	problem := optimize.Problem{
		Func:   f,
		Grad:   grad,
		Status: g.status,
	}
	settings := &optimize.Settings{
		MajorIterations: orDefault(o.opts.MaxIterations, lbfgsMaxIterations),
		FuncEvaluations: o.opts.MaxEvaluations,
		Converger: &optimize.FunctionConverge{
			Absolute:   1e-12,
			Relative:   1e-12,
			Iterations: 20,
		},
	}

	_, err := optimize.Minimize(problem, o.toZ(x0), settings, &optimize.LBFGS{})
	return g.result(err)
}
