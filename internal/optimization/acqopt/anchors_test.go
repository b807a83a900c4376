package acqopt

import (
	"context"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Paul1298/GPyOpt/internal/optimization"
)

func newScope(t *testing.T, ctx Context, dup DuplicateChecker) *Scope {
	t.Helper()
	s := unitSquare(t)
	cm, err := NewContextManager(s, ctx)
	require.NoError(t, err)
	return &Scope{Space: s, Context: cm, Duplicates: dup, Src: rand.NewPCG(3, 4)}
}

func TestObjectiveAnchorsRankedBestFirst(t *testing.T) {
	sc := newScope(t, nil, nil)
	obj := bowl(0.2, 0.8)

	set, err := NewObjectiveAnchors(obj).Generate(context.Background(), sc, 5, nil)
	require.NoError(t, err)
	require.Equal(t, 5, set.Len())
	assert.Equal(t, 5, set.Generated)
	assert.False(t, set.Specified())

	prev := -1.0
	for _, p := range set.Points {
		v, _ := obj.F(p)
		assert.GreaterOrEqual(t, v, prev)
		prev = v
		assert.True(t, sc.Space.Bounds().Contains(p))
	}
}

func TestAnchorsRespectContextAndDuplicates(t *testing.T) {
	sc := newScope(t, Context{Fixed("x1", 0.3)}, dupFunc(func(x []float64) bool {
		return x[1] < 0.5
	}))
	xOpt := []float64{0.9, 0.9}

	set, err := NewObjectiveAnchors(bowl(0, 0)).Generate(context.Background(), sc, 5, xOpt)
	require.NoError(t, err)
	assert.LessOrEqual(t, set.Len(), 5+1)
	assert.True(t, set.Specified())
	for _, p := range set.Points {
		assert.Equal(t, 0.3, p[0], "context applied")
		assert.GreaterOrEqual(t, p[1], 0.5, "duplicates excluded")
	}
	// The specified point is appended last, with the context applied.
	assert.Equal(t, []float64{0.3, 0.9}, set.Points[set.Len()-1])
}

func TestAnchorsSkipDuplicateSpecifiedPoint(t *testing.T) {
	sc := newScope(t, nil, dupFunc(func(x []float64) bool {
		return x[0] == 0.9 && x[1] == 0.9
	}))
	set, err := NewObjectiveAnchors(bowl(0, 0)).Generate(context.Background(), sc, 3, []float64{0.9, 0.9})
	require.NoError(t, err)
	assert.Equal(t, 3, set.Len())
	assert.False(t, set.Specified())
}

func TestAnchorsFewerThanRequested(t *testing.T) {
	sc := newScope(t, nil, nil)
	g := NewObjectiveAnchors(bowl(0, 0))
	g.NumSamples = 3

	set, err := g.Generate(context.Background(), sc, 5, nil)
	require.NoError(t, err)
	assert.Equal(t, 3, set.Len())
	assert.Equal(t, 3, set.Generated)
}

func TestAnchorsUniqueRows(t *testing.T) {
	s := unitSquare(t)
	c, err := NewContextManager(s, Context{Fixed("x1", 0.5), Fixed("x2", 0.5)})
	require.NoError(t, err)
	sc := &Scope{Space: s, Context: c, Src: rand.NewPCG(1, 1)}

	g := NewObjectiveAnchors(bowl(0, 0))
	g.NumSamples = 50
	g.Unique = true
	set, err := g.Generate(context.Background(), sc, 5, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, set.Len(), "all samples collapse onto the context point")
}

func TestThompsonAnchors(t *testing.T) {
	sc := newScope(t, nil, nil)
	g := NewThompsonAnchors(samplerFunc(func(x []float64) float64 {
		return (x[0]-0.7)*(x[0]-0.7) + (x[1]-0.1)*(x[1]-0.1)
	}))
	g.NumSamples = 2000

	set, err := g.Generate(context.Background(), sc, 4, nil)
	require.NoError(t, err)
	require.Equal(t, 4, set.Len())
	assert.True(t, near(set.Points[0], []float64{0.7, 0.1}, 0.1), "%v", set.Points[0])

	_, err = NewThompsonAnchors(nil).Generate(context.Background(), sc, 4, nil)
	assert.ErrorIs(t, err, optimization.ErrMissingModel)
}

func TestAnchorsScoringError(t *testing.T) {
	sc := newScope(t, nil, nil)
	obj := Objective{F: func(x []float64) (float64, error) {
		return 0, assert.AnError
	}}
	_, err := NewObjectiveAnchors(obj).Generate(context.Background(), sc, 5, nil)
	assert.ErrorIs(t, err, assert.AnError)
}

func TestParseAnchorLogic(t *testing.T) {
	l, err := ParseAnchorLogic("thompson_sampling")
	require.NoError(t, err)
	assert.Equal(t, ThompsonSampling, l)
	assert.Equal(t, "max_objective", MaxObjective.String())

	_, err = ParseAnchorLogic("greedy")
	assert.Error(t, err)
}
