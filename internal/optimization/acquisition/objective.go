// Package acquisition holds acquisition functions and the glue that turns a
// fitted surrogate into the objective minimized by acqopt.
package acquisition

import (
	"fmt"
	"math"
	"strings"

	"gonum.org/v1/gonum/mat"

	"github.com/Paul1298/GPyOpt/internal/optimization/acqopt"
)

// Acquisition function names accepted by New.
const (
	EI  = "EI"
	LCB = "LCB"
)

// Function scores a posterior prediction. Larger is better.
type Function interface {
	Compute(mu, sigma float64) float64
	Gradient(mu, dmu float64, sigma, dsigma float64) float64
}

// Predictor is a fitted surrogate.
type Predictor interface {
	Predict(X *mat.Dense) (mean, variance *mat.VecDense, err error)
}

// GradientPredictor also reports derivatives of the posterior mean and
// standard deviation.
type GradientPredictor interface {
	Predictor
	PredictWithGradients(x []float64) (mu, sigma float64, dmu, dsigma []float64, err error)
}

// New builds an acquisition function by name. For EI param is the jitter xi
// and best the incumbent, for LCB param is the exploration weight.
func New(name string, best, param float64) (Function, error) {
	switch strings.ToUpper(name) {
	case EI, "":
		return NewExpectedImprovement(best, param), nil
	case LCB:
		return NewLowerConfidenceBound(param), nil
	default:
		return nil, fmt.Errorf("unknown acquisition function %q", name)
	}
}

// NewObjective returns the negated acquisition of fn over model as an
// objective to minimize. When model is a GradientPredictor the objective also
// carries an analytic gradient.
func NewObjective(model Predictor, fn Function) acqopt.Objective {
	obj := acqopt.Objective{
		F: func(x []float64) (float64, error) {
			mean, variance, err := model.Predict(mat.NewDense(1, len(x), x))
			if err != nil {
				return 0, err
			}
			return -fn.Compute(mean.AtVec(0), math.Sqrt(variance.AtVec(0))), nil
		},
	}
	if gm, ok := model.(GradientPredictor); ok {
		obj.FDF = func(x []float64) (float64, []float64, error) {
			mu, sigma, dmu, dsigma, err := gm.PredictWithGradients(x)
			if err != nil {
				return 0, nil, err
			}
			grad := make([]float64, len(x))
			for i := range grad {
				grad[i] = -fn.Gradient(mu, dmu[i], sigma, dsigma[i])
			}
			return -fn.Compute(mu, sigma), grad, nil
		}
	}
	return obj
}
