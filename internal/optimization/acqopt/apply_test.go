package acqopt

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Paul1298/GPyOpt/internal/optimization/backend"
)

func TestReducedProblemProjectsGradient(t *testing.T) {
	s := mixed(t)
	cm, err := NewContextManager(s, Context{Fixed("c", 2)})
	require.NoError(t, err)

	var seen []float64
	obj := Objective{
		DF: func(x []float64) ([]float64, error) {
			return []float64{10, 11, 12, 13, 14, 15}, nil
		},
		FDF: func(x []float64) (float64, []float64, error) {
			seen = x
			return 7, []float64{0, 1, 2, 3, 4, 5}, nil
		},
	}
	p := reduced(obj, cm)

	v, err := p.Func([]float64{0.5, 1, 1})
	require.NoError(t, err)
	assert.Equal(t, 7.0, v)
	assert.Equal(t, []float64{0.5, 0, 0, 1, 1, 1}, seen)

	grad := make([]float64, 3)
	require.NoError(t, p.Grad(grad, []float64{0.5, 1, 1}))
	assert.Equal(t, []float64{0, 4, 5}, grad, "FDF wins over DF and only free columns are kept")
}

func TestReducedProblemWithoutGradient(t *testing.T) {
	cm, err := NewContextManager(unitSquare(t), nil)
	require.NoError(t, err)
	p := reduced(Objective{F: bowl(0, 0).F}, cm)
	assert.Nil(t, p.Grad)
}

func TestApplyRoundsAndChecksDuplicates(t *testing.T) {
	s := mixed(t)
	cm, err := NewContextManager(s, nil)
	require.NoError(t, err)
	opt, err := backend.Choose(backend.LBFGS, cm.NonContextBounds())
	require.NoError(t, err)

	anchor := []float64{-1, 1, 0, 0, 0, 0}
	obj := bowl(0.4, 0, 0, 1, 2, 0)

	sc := &Scope{Space: s, Context: cm}
	c := apply(context.Background(), opt, anchor, obj, sc)
	require.NoError(t, c.Err)
	assert.False(t, c.FellBack)
	assert.Equal(t, []float64{0, 0, 1}, c.X[1:4])
	assert.Equal(t, []float64{2, 0}, c.X[4:])
	assert.InDelta(t, 0.4, c.X[0], 1e-3)

	// Reject the optimum: the anchor comes back with its own value.
	optimum := c.X
	sc.Duplicates = dupFunc(func(x []float64) bool { return near(x, optimum, 1e-9) })
	c = apply(context.Background(), opt, anchor, obj, sc)
	require.NoError(t, c.Err)
	assert.True(t, c.FellBack)
	assert.Equal(t, anchor, c.X)
	want, _ := obj.F(anchor)
	assert.Equal(t, want, c.Value)
}
