package acqopt

import (
	"context"
	"errors"
	"math"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Paul1298/GPyOpt/internal/optimization"
	"github.com/Paul1298/GPyOpt/internal/optimization/backend"
	"github.com/Paul1298/GPyOpt/internal/optimization/duplicate"
)

func TestOptimizeQuadratic(t *testing.T) {
	ao, err := New(unitSquare(t), WithOptimizer(backend.LBFGS), WithSeed(1))
	require.NoError(t, err)

	res, err := ao.Optimize(context.Background(), bowl(0.5, 0.5), nil, nil)
	require.NoError(t, err)
	assert.InDelta(t, 0.5, res.X[0], 1e-3)
	assert.InDelta(t, 0.5, res.X[1], 1e-3)
	assert.InDelta(t, 0, res.Value, 1e-6)
	assert.False(t, res.SpecifiedWon)
	assert.Equal(t, DefaultNumAnchors, res.Anchors.Len())
	assert.Empty(t, res.Failures)

	for _, c := range res.Candidates {
		assert.LessOrEqual(t, res.Value, c.Value, "winner is no worse than any candidate")
	}
}

func TestOptimizeWithEveryBackend(t *testing.T) {
	for _, name := range backend.Names() {
		t.Run(name, func(t *testing.T) {
			ao, err := New(unitSquare(t), WithOptimizer(name), WithSeed(2))
			require.NoError(t, err)

			res, err := ao.Optimize(context.Background(), bowl(0.25, 0.75), nil, nil)
			require.NoError(t, err)
			assert.InDelta(t, 0.25, res.X[0], 0.05)
			assert.InDelta(t, 0.75, res.X[1], 0.05)
		})
	}
}

func TestOptimizeWithContext(t *testing.T) {
	ao, err := New(unitSquare(t), WithContext(Context{Fixed("x1", 0.3)}))
	require.NoError(t, err)

	res, err := ao.Optimize(context.Background(), bowl(0.5, 0.5), nil, nil)
	require.NoError(t, err)
	assert.Equal(t, 0.3, res.X[0])
	assert.InDelta(t, 0.5, res.X[1], 1e-3)
	assert.InDelta(t, 0.04, res.Value, 1e-6)
}

func TestOptimizeMixedSpaceReturnsValidPoint(t *testing.T) {
	s := mixed(t)
	ao, err := New(s, WithContext(Context{Fixed("c", 1)}), WithSeed(5))
	require.NoError(t, err)

	// Prefers x = 1 and the arm (1, 1).
	res, err := ao.Optimize(context.Background(), bowl(1, 0, 0, 0, 1, 1), nil, nil)
	require.NoError(t, err)
	assert.Equal(t, s.RoundOptimum(res.X), res.X)
	assert.Equal(t, []float64{0, 1, 0}, res.X[1:4])
	assert.Equal(t, []float64{1, 1}, res.X[4:])
	assert.InDelta(t, 1, res.X[0], 1e-3)
}

// spike is 0 at exactly p and 1 elsewhere, so local searches cannot find p.
func spike(p ...float64) Objective {
	return Objective{F: func(x []float64) (float64, error) {
		for i := range p {
			if math.Abs(x[i]-p[i]) > 1e-12 {
				return 1, nil
			}
		}
		return 0, nil
	}}
}

func TestOptimizeSpecifiedPointWins(t *testing.T) {
	ao, err := New(unitSquare(t))
	require.NoError(t, err)
	var diag Diagnostics

	res, err := ao.Optimize(context.Background(), spike(0.5, 0.5), nil, []float64{0.5, 0.5})
	require.NoError(t, err)
	diag.Record(res)
	assert.True(t, res.SpecifiedWon)
	assert.Equal(t, res.Anchors.Generated, res.AnchorIndex)
	assert.Equal(t, []float64{0.5, 0.5}, res.X)
	assert.Equal(t, 0.0, res.Value)

	res, err = ao.Optimize(context.Background(), spike(0.5, 0.5), nil, nil)
	require.NoError(t, err)
	diag.Record(res)
	assert.False(t, res.SpecifiedWon)

	assert.Equal(t, 1, diag.SpecWinCount())
	assert.Equal(t, 2, diag.Calls())
}

func TestOptimizeAllDuplicates(t *testing.T) {
	ao, err := New(unitSquare(t))
	require.NoError(t, err)

	all := dupFunc(func([]float64) bool { return true })
	_, err = ao.Optimize(context.Background(), bowl(0.5, 0.5), all, []float64{0.1, 0.1})
	assert.ErrorIs(t, err, optimization.ErrNoAnchorPoints)
}

func TestOptimizeFallsBackToAnchorOnDuplicate(t *testing.T) {
	s := unitSquare(t)
	dup := dupFunc(func(x []float64) bool {
		return math.Abs(x[0]-0.5) < 1e-2 && math.Abs(x[1]-0.5) < 1e-2
	})
	ao, err := New(s, WithSeed(9))
	require.NoError(t, err)

	res, err := ao.Optimize(context.Background(), bowl(0.5, 0.5), dup, nil)
	require.NoError(t, err)
	assert.True(t, res.FellBack)
	assert.False(t, dup.IsDuplicate(res.X))
	assert.Equal(t, res.Anchors.Points[res.AnchorIndex], res.X)
	for _, c := range res.Candidates {
		assert.True(t, c.FellBack)
		assert.False(t, dup.IsDuplicate(c.X))
	}
}

func TestOptimizeWithDuplicateManager(t *testing.T) {
	s, err := duplicateSpace()
	require.NoError(t, err)
	dm, err := duplicate.New(s, [][]float64{{0}, {1}}, [][]float64{{2}}, nil)
	require.NoError(t, err)

	ao, err := New(s)
	require.NoError(t, err)
	res, err := ao.Optimize(context.Background(), bowl(1), dm, nil)
	require.NoError(t, err)
	assert.False(t, dm.IsDuplicate(res.X))
	assert.Equal(t, []float64{3}, res.X)
}

func TestOptimizeParallelKeepsAnchorOrderOnTies(t *testing.T) {
	flat := Objective{F: func([]float64) (float64, error) { return 1, nil }}
	for _, workers := range []int{1, 4} {
		ao, err := New(unitSquare(t), WithWorkers(workers), WithSeed(3))
		require.NoError(t, err)

		res, err := ao.Optimize(context.Background(), flat, nil, []float64{0.5, 0.5})
		require.NoError(t, err)
		assert.Equal(t, 0, res.AnchorIndex, "workers=%d", workers)
		assert.False(t, res.SpecifiedWon)
		assert.Len(t, res.Candidates, res.Anchors.Len())
	}
}

func TestOptimizeParallelMatchesSequential(t *testing.T) {
	seq, err := New(unitSquare(t), WithSeed(11))
	require.NoError(t, err)
	par, err := New(unitSquare(t), WithSeed(11), WithWorkers(3))
	require.NoError(t, err)

	a, err := seq.Optimize(context.Background(), bowl(0.2, 0.6), nil, nil)
	require.NoError(t, err)
	b, err := par.Optimize(context.Background(), bowl(0.2, 0.6), nil, nil)
	require.NoError(t, err)
	assert.Equal(t, a.AnchorIndex, b.AnchorIndex)
	assert.Equal(t, a.X, b.X)
}

func TestOptimizeTimeout(t *testing.T) {
	slow := Objective{F: func(x []float64) (float64, error) {
		time.Sleep(2 * time.Millisecond)
		return x[0], nil
	}}
	ao, err := New(unitSquare(t), WithTimeout(20*time.Millisecond))
	require.NoError(t, err)

	start := time.Now()
	_, err = ao.Optimize(context.Background(), slow, nil, nil)
	assert.ErrorIs(t, err, optimization.ErrOptimizationTimeout)
	assert.Less(t, time.Since(start), time.Second)
}

func TestOptimizeCallerCancellation(t *testing.T) {
	ao, err := New(unitSquare(t))
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = ao.Optimize(ctx, bowl(0.5, 0.5), nil, nil)
	assert.ErrorIs(t, err, context.Canceled)
	assert.NotErrorIs(t, err, optimization.ErrOptimizationTimeout)
}

func TestOptimizeSkipsFailingAnchors(t *testing.T) {
	obj := bowl(0.5, 0.5)
	fdf := obj.FDF
	obj.FDF = func(x []float64) (float64, []float64, error) {
		if x[0] > 0.95 {
			return 0, nil, assert.AnError
		}
		return fdf(x)
	}
	ao, err := New(unitSquare(t))
	require.NoError(t, err)

	res, err := ao.Optimize(context.Background(), obj, nil, []float64{0.99, 0.5})
	require.NoError(t, err)
	require.Len(t, res.Failures, 1)

	var ae *optimization.AnchorError
	require.True(t, errors.As(res.Failures[0], &ae))
	assert.Equal(t, res.Anchors.Generated, ae.Anchor)
	assert.ErrorIs(t, ae, optimization.ErrOptimizerExecution)
	assert.ErrorIs(t, ae, assert.AnError)
	assert.False(t, res.SpecifiedWon)
	assert.InDelta(t, 0, res.Value, 1e-6)
}

func TestOptimizeAllAnchorsFail(t *testing.T) {
	obj := Objective{
		F:  func(x []float64) (float64, error) { return x[0], nil },
		DF: func([]float64) ([]float64, error) { return nil, assert.AnError },
	}
	ao, err := New(unitSquare(t))
	require.NoError(t, err)

	_, err = ao.Optimize(context.Background(), obj, nil, nil)
	assert.ErrorIs(t, err, optimization.ErrOptimizerExecution)
	assert.ErrorIs(t, err, assert.AnError)
}

func TestNewValidation(t *testing.T) {
	s := unitSquare(t)

	_, err := New(s, WithOptimizer("adam"))
	assert.ErrorIs(t, err, optimization.ErrUnsupportedOptimizer)

	_, err = New(s, WithContext(Context{Fixed("x9", 1)}))
	assert.ErrorIs(t, err, optimization.ErrUnknownVariable)

	_, err = New(s, WithContext(Context{Fixed("x1", 5)}))
	assert.ErrorIs(t, err, optimization.ErrInvalidContext)

	_, err = New(s, WithAnchorLogic(ThompsonSampling))
	assert.ErrorIs(t, err, optimization.ErrMissingModel)

	_, err = New(s, WithDesign("grid"))
	assert.Error(t, err)
}

func TestOptimizeEverythingFixedByContext(t *testing.T) {
	ao, err := New(unitSquare(t), WithContext(Context{Fixed("x1", 0.1), Fixed("x2", 0.2)}))
	require.NoError(t, err)
	res, err := ao.Optimize(context.Background(), bowl(0, 0), nil, nil)
	require.NoError(t, err)
	assert.Equal(t, []float64{0.1, 0.2}, res.X)
	assert.InDelta(t, 0.05, res.Value, 1e-12)
	assert.Equal(t, 0, res.AnchorIndex)
	assert.False(t, res.SpecifiedWon)

	seen := dupFunc(func(x []float64) bool { return x[0] == 0.1 && x[1] == 0.2 })
	_, err = ao.Optimize(context.Background(), bowl(0, 0), seen, nil)
	assert.ErrorIs(t, err, optimization.ErrNoAnchorPoints)
}

func TestSelectWinnerSkipsNaN(t *testing.T) {
	res := &Result{Candidates: []Candidate{
		{X: []float64{0}, Value: math.NaN()},
		{X: []float64{1}, Err: assert.AnError},
		{X: []float64{2}, Value: 3},
		{X: []float64{3}, Value: 3},
	}}
	res.selectWinner()
	assert.Equal(t, 2, res.AnchorIndex)
	assert.Equal(t, []float64{2}, res.X)
	assert.Equal(t, 3.0, res.Value)
	require.Len(t, res.Failures, 1)
	assert.ErrorIs(t, res.Failures[0], assert.AnError)

	res = &Result{Candidates: []Candidate{{X: []float64{0}, Value: math.NaN()}}}
	res.selectWinner()
	assert.Equal(t, 0, res.AnchorIndex)
	assert.True(t, math.IsNaN(res.Value))
}

func TestOptimizeThompsonSampling(t *testing.T) {
	var draws atomic.Int32
	model := samplerFunc(func(x []float64) float64 {
		draws.Add(1)
		return (x[0]-0.8)*(x[0]-0.8) + (x[1]-0.2)*(x[1]-0.2)
	})
	ao, err := New(unitSquare(t),
		WithAnchorLogic(ThompsonSampling),
		WithModel(model),
		WithNumSamples(500),
		WithNumAnchors(3),
	)
	require.NoError(t, err)

	res, err := ao.Optimize(context.Background(), bowl(0.8, 0.2), nil, nil)
	require.NoError(t, err)
	assert.Equal(t, int32(500), draws.Load())
	assert.Equal(t, 3, res.Anchors.Len())
	assert.InDelta(t, 0.8, res.X[0], 1e-3)
	assert.InDelta(t, 0.2, res.X[1], 1e-3)
}

func TestOptimizeMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := NewMetrics(reg)
	require.NoError(t, err)

	ao, err := New(unitSquare(t), WithMetrics(m))
	require.NoError(t, err)

	_, err = ao.Optimize(context.Background(), spike(0.5, 0.5), nil, []float64{0.5, 0.5})
	require.NoError(t, err)
	_, err = ao.Optimize(context.Background(), bowl(0.5, 0.5), dupFunc(func([]float64) bool { return true }), nil)
	require.Error(t, err)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.optimizeCalls.WithLabelValues("success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.optimizeCalls.WithLabelValues("no_anchors")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.specifiedWins))
	assert.Equal(t, float64(DefaultNumAnchors+1), testutil.ToFloat64(m.anchorRuns))

	_, err = NewMetrics(reg)
	assert.Error(t, err, "collectors are already registered")
}

func BenchmarkOptimize(b *testing.B) {
	ao, err := New(unitSquare(b), WithSeed(1))
	require.NoError(b, err)
	obj := bowl(0.3, 0.3)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = ao.Optimize(context.Background(), obj, nil, nil)
	}
}
