package space

import (
	"math/rand/v2"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distmv"
	"gonum.org/v1/gonum/stat/samplemv"

	"github.com/Paul1298/GPyOpt/internal/optimization"
)

// DesignType selects how initial or anchor points are spread over a space.
type DesignType string

const (
	// DesignRandom draws points uniformly at random.
	DesignRandom DesignType = "random"
	// DesignLatin draws a Latin hypercube.
	DesignLatin DesignType = "latin"
	// DesignSobol draws a scrambled low-discrepancy sequence.
	DesignSobol DesignType = "sobol"
)

// maxHaltonDim is the largest dimension the low-discrepancy sampler supports.
const maxHaltonDim = 1000

// ParseDesignType validates a design name.
func ParseDesignType(name string) (DesignType, error) {
	switch d := DesignType(name); d {
	case DesignRandom, DesignLatin, DesignSobol:
		return d, nil
	}
	return "", optimization.NewErrorf("unknown design type %q", name).WithComponent("space")
}

// Design draws n model-space points of the given kind, one per row. Every
// variable takes one coordinate of a unit-cube design, so discrete, categorical
// and bandit variables are always sampled at valid values.
func (s *Space) Design(kind DesignType, n int, src rand.Source) (*mat.Dense, error) {
	if n <= 0 {
		return nil, optimization.NewErrorf("design size must be positive, got %d", n).WithComponent("space")
	}
	d := len(s.variables)
	unit := mat.NewDense(n, d, nil)
	q := distmv.NewUnitUniform(d, src)

	switch kind {
	case DesignRandom:
		for i := 0; i < n; i++ {
			q.Rand(unit.RawRowView(i))
		}
	case DesignLatin:
		samplemv.LatinHypercube{Q: q, Src: src}.Sample(unit)
	case DesignSobol:
		if d > maxHaltonDim {
			samplemv.LatinHypercube{Q: q, Src: src}.Sample(unit)
			break
		}
		samplemv.Halton{Kind: samplemv.Owen, Q: q, Src: src}.Sample(unit)
	default:
		return nil, optimization.NewErrorf("unknown design type %q", kind).WithComponent("space")
	}

	out := mat.NewDense(n, s.modelDim, nil)
	for i := 0; i < n; i++ {
		u := unit.RawRowView(i)
		row := out.RawRowView(i)
		for j, v := range s.variables {
			idx := v.IndexInModel()
			// model indices of a variable are contiguous
			v.fromUnit(row[idx[0]:idx[0]+len(idx)], u[j])
		}
	}
	return out, nil
}
