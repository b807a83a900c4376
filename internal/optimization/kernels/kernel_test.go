package kernels

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/diff/fd"
)

func TestKernelEval(t *testing.T) {
	tests := []struct {
		name     string
		kernel   Kernel
		x1, x2   []float64
		expected float64
	}{
		{
			name:     "rbf same point",
			kernel:   NewRBFKernel(1, 1),
			x1:       []float64{1, 2},
			x2:       []float64{1, 2},
			expected: 1,
		},
		{
			name:     "rbf different points",
			kernel:   NewRBFKernel(1, 1),
			x1:       []float64{0, 0},
			x2:       []float64{1, 1},
			expected: math.Exp(-1), // exp(-0.5 * (1+1) / 1^2)
		},
		{
			name:     "rbf length scale and variance",
			kernel:   NewRBFKernel(2, 3),
			x1:       []float64{0, 0},
			x2:       []float64{2, 2},
			expected: 3 * math.Exp(-1),
		},
		{
			name:     "matern same point",
			kernel:   NewMatern52Kernel(1, 2),
			x1:       []float64{1, 2},
			x2:       []float64{1, 2},
			expected: 2,
		},
		{
			name:     "matern different points",
			kernel:   NewMatern52Kernel(1, 1),
			x1:       []float64{0, 0},
			x2:       []float64{1, 1},
			expected: (1 + math.Sqrt(5)*math.Sqrt(2) + (5.0/3.0)*2) * math.Exp(-math.Sqrt(5)*math.Sqrt(2)),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.kernel.Eval(tt.x1, tt.x2)
			assert.InDelta(t, tt.expected, got, 1e-10)
			assert.InDelta(t, got, tt.kernel.Eval(tt.x2, tt.x1), 1e-12, "kernel is not symmetric")
		})
	}
}

func TestKernelGradientMatchesFiniteDifference(t *testing.T) {
	x2 := []float64{0.3, -0.2, 1.1}
	for _, k := range []Kernel{NewRBFKernel(0.7, 1.5), NewMatern52Kernel(0.7, 1.5)} {
		for _, x1 := range [][]float64{{0.5, 0.1, 0.4}, {-1, 2, 0}} {
			got := make([]float64, 3)
			k.Gradient(got, x1, x2)
			want := fd.Gradient(nil, func(x []float64) float64 { return k.Eval(x, x2) }, x1, &fd.Settings{Formula: fd.Central})
			for i := range got {
				assert.InDelta(t, want[i], got[i], 1e-6, "%T dim %d", k, i)
			}
		}
		// Zero at coincident points.
		got := make([]float64, 3)
		k.Gradient(got, x2, x2)
		assert.Equal(t, []float64{0, 0, 0}, got)
	}
}

func TestKernelHyperparameters(t *testing.T) {
	tests := []struct {
		name     string
		kernel   Kernel
		params   []float64
		errorMsg string
	}{
		{
			name:   "RBF valid params",
			kernel: NewRBFKernel(1, 1),
			params: []float64{2, 3},
		},
		{
			name:     "RBF invalid params count",
			kernel:   NewRBFKernel(1, 1),
			params:   []float64{1},
			errorMsg: "expected 2 hyperparameters, got 1",
		},
		{
			name:     "RBF invalid param value",
			kernel:   NewRBFKernel(1, 1),
			params:   []float64{-1, 1},
			errorMsg: "lengthScale must be positive, got -1",
		},
		{
			name:   "Matern52 valid params",
			kernel: NewMatern52Kernel(1, 1),
			params: []float64{2, 3},
		},
		{
			name:     "Matern52 zero variance",
			kernel:   NewMatern52Kernel(1, 1),
			params:   []float64{1, 0},
			errorMsg: "signalVar must be positive, got 0",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.kernel.SetHyperparameters(tt.params)
			if tt.errorMsg != "" {
				require.Error(t, err)
				assert.Equal(t, tt.errorMsg, err.Error())
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.params, tt.kernel.Hyperparameters())
		})
	}
}

func TestNew(t *testing.T) {
	k, err := New("RBF", 1, 2)
	require.NoError(t, err)
	assert.IsType(t, &RBFKernel{}, k)

	k, err = New(Matern52, 0.5, 1)
	require.NoError(t, err)
	assert.IsType(t, &Matern52Kernel{}, k)
	assert.Equal(t, []float64{0.5, 1}, k.Hyperparameters())

	_, err = New("periodic", 1, 1)
	assert.Error(t, err)
	_, err = New(RBF, 0, 1)
	assert.Error(t, err)

	assert.Panics(t, func() { NewRBFKernel(1, -1) })
}
