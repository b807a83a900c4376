package backend

import (
	"context"
	"math"
	"slices"
	"sort"

	"github.com/Paul1298/GPyOpt/internal/optimization"
)

const (
	directMaxEvaluations = 2000
	directMaxIterations  = 200
	directEpsilon        = 1e-4
)

// direct is the DIviding RECTangles global search of Jones et al. on the unit
// cube. It ignores x0.
type direct struct {
	bounds optimization.Bounds
	opts   Options
}

func (o *direct) Name() string { return DIRECT }

// hyperRect is a cell of the partition. Side i has length 3^-level[i].
type hyperRect struct {
	center []float64
	level  []int
	f      float64
	size   float64
}

func newHyperRect(center []float64, level []int, f float64) *hyperRect {
	sorted := slices.Clone(level)
	slices.Sort(sorted)
	var s float64
	for _, l := range sorted {
		s += math.Pow(3, -2*float64(l))
	}
	return &hyperRect{center: center, level: level, f: f, size: math.Sqrt(s) / 2}
}

func (o *direct) Minimize(ctx context.Context, p Problem, _ []float64) ([]float64, float64, error) {
	g := newGuard(ctx, p)
	maxEvals := orDefault(o.opts.MaxEvaluations, directMaxEvaluations)
	maxIters := orDefault(o.opts.MaxIterations, directMaxIterations)
	dim := len(o.bounds)

	eval := func(u []float64) float64 {
		return g.eval(o.bounds.FromUnit(nil, u))
	}

	c0 := make([]float64, dim)
	for i := range c0 {
		c0[i] = 0.5
	}
	rects := []*hyperRect{newHyperRect(c0, make([]int, dim), eval(c0))}

	for iter := 0; iter < maxIters && g.evaluations() < maxEvals && !g.stopped(); iter++ {
		fmin := math.Inf(1)
		for _, r := range rects {
			fmin = math.Min(fmin, r.f)
		}
		selected := potentiallyOptimal(rects, fmin)
		if len(selected) == 0 {
			break
		}
		for _, idx := range selected {
			if g.evaluations() >= maxEvals || g.stopped() {
				break
			}
			rects = append(rects, o.divide(rects[idx], eval)...)
		}
	}
	return g.result(nil)
}

// divide trisects r along its longest sides, splitting first along the
// dimension whose new samples are best. r is updated in place and the new
// cells are returned.
func (o *direct) divide(r *hyperRect, eval func([]float64) float64) []*hyperRect {
	minLevel := slices.Min(r.level)
	var dims []int
	for i, l := range r.level {
		if l == minLevel {
			dims = append(dims, i)
		}
	}
	delta := math.Pow(3, -float64(minLevel+1))

	type probe struct {
		dim      int
		lo, hi   []float64
		fLo, fHi float64
		best     float64
	}
	probes := make([]probe, len(dims))
	for k, i := range dims {
		lo := slices.Clone(r.center)
		hi := slices.Clone(r.center)
		lo[i] -= delta
		hi[i] += delta
		pr := probe{dim: i, lo: lo, hi: hi, fLo: eval(lo), fHi: eval(hi)}
		pr.best = math.Min(pr.fLo, pr.fHi)
		probes[k] = pr
	}
	sort.SliceStable(probes, func(a, b int) bool { return probes[a].best < probes[b].best })

	level := slices.Clone(r.level)
	var out []*hyperRect
	for _, pr := range probes {
		level[pr.dim]++
		out = append(out,
			newHyperRect(pr.lo, slices.Clone(level), pr.fLo),
			newHyperRect(pr.hi, slices.Clone(level), pr.fHi),
		)
	}
	*r = *newHyperRect(r.center, level, r.f)
	return out
}

// potentiallyOptimal returns the indices of the cells to divide: for every
// cell size the best cell, kept when some rate-of-change constant K > 0 makes
// it the lowest lower bound and promises an improvement of at least
// epsilon*|fmin|.
func potentiallyOptimal(rects []*hyperRect, fmin float64) []int {
	best := map[float64]int{}
	for i, r := range rects {
		j, ok := best[r.size]
		if !ok || r.f < rects[j].f {
			best[r.size] = i
		}
	}
	cand := make([]int, 0, len(best))
	for _, i := range best {
		cand = append(cand, i)
	}
	sort.Slice(cand, func(a, b int) bool { return rects[cand[a]].size < rects[cand[b]].size })

	var out []int
	for k, j := range cand {
		rj := rects[j]
		if math.IsInf(rj.f, 1) {
			continue
		}
		kLow, kHigh := 0.0, math.Inf(1)
		for _, i := range cand[:k] {
			ri := rects[i]
			kLow = math.Max(kLow, (rj.f-ri.f)/(rj.size-ri.size))
		}
		for _, i := range cand[k+1:] {
			ri := rects[i]
			kHigh = math.Min(kHigh, (ri.f-rj.f)/(ri.size-rj.size))
		}
		if kLow > kHigh || kHigh <= 0 {
			continue
		}
		if !math.IsInf(kHigh, 1) {
			if fmin != 0 {
				if (fmin-rj.f)/math.Abs(fmin)+rj.size*kHigh/math.Abs(fmin) < directEpsilon {
					continue
				}
			} else if rj.f > rj.size*kHigh {
				continue
			}
		}
		out = append(out, j)
	}
	return out
}
