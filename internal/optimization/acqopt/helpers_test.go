package acqopt

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/Paul1298/GPyOpt/internal/optimization/space"
)

// unitSquare is two continuous variables x1, x2 on [0, 1].
func unitSquare(t testing.TB) *space.Space {
	t.Helper()
	x1, err := space.NewContinuous("x1", 0, 1)
	require.NoError(t, err)
	x2, err := space.NewContinuous("x2", 0, 1)
	require.NoError(t, err)
	s, err := space.New(x1, x2)
	require.NoError(t, err)
	return s
}

// mixed is a continuous, a categorical and a bandit variable.
func mixed(t testing.TB) *space.Space {
	t.Helper()
	x, err := space.NewContinuous("x", -2, 2)
	require.NoError(t, err)
	c, err := space.NewCategorical("c", []float64{0, 1, 2})
	require.NoError(t, err)
	b, err := space.NewBandit("b", [][]float64{{0, 0}, {1, 1}, {2, 0}})
	require.NoError(t, err)
	s, err := space.New(x, c, b)
	require.NoError(t, err)
	return s
}

// bowl is sum((x_i - c_i)^2) with its gradient.
func bowl(center ...float64) Objective {
	f := func(x []float64) float64 {
		var s float64
		for i, c := range center {
			s += (x[i] - c) * (x[i] - c)
		}
		return s
	}
	return Objective{
		F: func(x []float64) (float64, error) { return f(x), nil },
		FDF: func(x []float64) (float64, []float64, error) {
			g := make([]float64, len(x))
			for i, c := range center {
				g[i] = 2 * (x[i] - c)
			}
			return f(x), g, nil
		},
	}
}

type dupFunc func(x []float64) bool

func (f dupFunc) IsDuplicate(x []float64) bool { return f(x) }

// samplerFunc adapts a per-row score to PosteriorSampler.
type samplerFunc func(x []float64) float64

func (f samplerFunc) PosteriorSample(X *mat.Dense) ([]float64, error) {
	r, _ := X.Dims()
	out := make([]float64, r)
	for i := range out {
		out[i] = f(X.RawRowView(i))
	}
	return out, nil
}

func near(a, b []float64, tol float64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if math.Abs(a[i]-b[i]) > tol {
			return false
		}
	}
	return true
}

// duplicateSpace is one discrete variable taking 0, 1, 2 or 3.
func duplicateSpace() (*space.Space, error) {
	n, err := space.NewDiscrete("n", []float64{0, 1, 2, 3})
	if err != nil {
		return nil, err
	}
	return space.New(n)
}
