package acquisition

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/diff/fd"
	"gonum.org/v1/gonum/mat"
)

func TestExpectedImprovement(t *testing.T) {
	tests := []struct {
		name          string
		bestObserved  float64
		xi            float64
		mu            float64
		sigma         float64
		expectedValue float64
	}{
		{
			name:          "no improvement",
			bestObserved:  1.0,
			xi:            0.01,
			mu:            1.5, // worse than the incumbent
			sigma:         0.1,
			expectedValue: 0.0,
		},
		{
			name:          "definite improvement",
			bestObserved:  1.0,
			xi:            0.01,
			mu:            0.5,
			sigma:         0.2,
			expectedValue: 0.4905, // 0.49 * Φ(2.45) + 0.2 * φ(2.45)
		},
		{
			name:          "zero sigma",
			bestObserved:  1.0,
			xi:            0.0,
			mu:            0.5,
			sigma:         0.0,
			expectedValue: 0.5, // bestObserved - mu - xi
		},
		{
			name:          "zero sigma without improvement",
			bestObserved:  1.0,
			mu:            2.0,
			expectedValue: 0.0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ei := NewExpectedImprovement(tt.bestObserved, tt.xi)
			result := ei.Compute(tt.mu, tt.sigma)
			assert.InDelta(t, tt.expectedValue, result, 1e-4)
			assert.GreaterOrEqual(t, result, 0.0)
		})
	}
}

func TestExpectedImprovementUncertaintyHelps(t *testing.T) {
	ei := NewExpectedImprovement(1.0, 0.01)
	// A worse mean still has some expected improvement when uncertain.
	assert.Greater(t, ei.Compute(1.2, 1.0), ei.Compute(1.2, 0.1))
	assert.Greater(t, ei.Compute(1.2, 0.1), 0.0)
}

func TestExpectedImprovementUpdate(t *testing.T) {
	ei := NewExpectedImprovement(1.0, 0.01)
	assert.Equal(t, 1.0, ei.BestObserved())

	ei.UpdateBest(0.5)
	assert.Equal(t, 0.5, ei.BestObserved())

	ei.SetXi(0.01)
	assert.Greater(t, ei.Compute(0.4, 0.1), 0.0)
}

func TestAcquisitionGradient(t *testing.T) {
	tests := []struct {
		name   string
		fn     Function
		mu     float64
		sigma  float64
		dmu    float64
		dsigma float64
	}{
		{name: "ei improving", fn: NewExpectedImprovement(1.0, 0.01), mu: 0.5, sigma: 0.5, dmu: 1.0, dsigma: 1.0},
		{name: "ei worse mean", fn: NewExpectedImprovement(1.0, 0.01), mu: 1.4, sigma: 0.3, dmu: -0.5, dsigma: 2.0},
		{name: "lcb", fn: NewLowerConfidenceBound(2), mu: 0.3, sigma: 0.2, dmu: 0.7, dsigma: -1.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			grad := tt.fn.Gradient(tt.mu, tt.dmu, tt.sigma, tt.dsigma)

			const h = 1e-6
			f := func(eps float64) float64 {
				return tt.fn.Compute(tt.mu+eps*tt.dmu, tt.sigma+eps*tt.dsigma)
			}
			numerical := (f(h) - f(-h)) / (2 * h)
			assert.InDelta(t, numerical, grad, 1e-6)
		})
	}
}

func TestLowerConfidenceBound(t *testing.T) {
	l := NewLowerConfidenceBound(0)
	assert.Equal(t, DefaultExplorationWeight, l.ExplorationWeight())
	assert.InDelta(t, 2*0.5-1.0, l.Compute(1.0, 0.5), 1e-12)
}

func TestNew(t *testing.T) {
	fn, err := New("ei", 1, 0.01)
	require.NoError(t, err)
	assert.IsType(t, &ExpectedImprovement{}, fn)

	fn, err = New(LCB, 0, 3)
	require.NoError(t, err)
	assert.Equal(t, 3.0, fn.(*LowerConfidenceBound).ExplorationWeight())

	_, err = New("PI", 0, 0)
	assert.Error(t, err)
}

// quadModel has mean sum((x-0.3)^2) and standard deviation 0.1 + x_0^2.
type quadModel struct{}

func (m quadModel) at(x []float64) (float64, float64) {
	var mu float64
	for _, v := range x {
		mu += (v - 0.3) * (v - 0.3)
	}
	return mu, 0.1 + x[0]*x[0]
}

func (m quadModel) Predict(X *mat.Dense) (*mat.VecDense, *mat.VecDense, error) {
	r, _ := X.Dims()
	mean, variance := mat.NewVecDense(r, nil), mat.NewVecDense(r, nil)
	for i := 0; i < r; i++ {
		mu, s := m.at(X.RawRowView(i))
		mean.SetVec(i, mu)
		variance.SetVec(i, s*s)
	}
	return mean, variance, nil
}

func (m quadModel) PredictWithGradients(x []float64) (float64, float64, []float64, []float64, error) {
	mu, s := m.at(x)
	dmu := make([]float64, len(x))
	dsigma := make([]float64, len(x))
	for i, v := range x {
		dmu[i] = 2 * (v - 0.3)
	}
	dsigma[0] = 2 * x[0]
	return mu, s, dmu, dsigma, nil
}

// predictOnly hides PredictWithGradients.
type predictOnly struct{ Predictor }

func TestNewObjective(t *testing.T) {
	for _, fn := range []Function{NewExpectedImprovement(0.05, 0.01), NewLowerConfidenceBound(2)} {
		obj := NewObjective(quadModel{}, fn)
		require.NotNil(t, obj.F)
		require.NotNil(t, obj.FDF)

		x := []float64{0.6, 0.1}
		v, err := obj.F(x)
		require.NoError(t, err)
		mu, s := quadModel{}.at(x)
		assert.InDelta(t, -fn.Compute(mu, s), v, 1e-12)

		v2, grad, err := obj.FDF(x)
		require.NoError(t, err)
		assert.InDelta(t, v, v2, 1e-12)

		f := func(x []float64) float64 {
			v, _ := obj.F(x)
			return v
		}
		want := fd.Gradient(nil, f, x, &fd.Settings{Formula: fd.Central})
		assert.InDeltaSlice(t, want, grad, 1e-6, "%T", fn)
	}

	obj := NewObjective(predictOnly{quadModel{}}, NewLowerConfidenceBound(1))
	assert.NotNil(t, obj.F)
	assert.Nil(t, obj.FDF)
}
