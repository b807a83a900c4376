package bayesian

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"sync"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/Paul1298/GPyOpt/internal/optimization"
	"github.com/Paul1298/GPyOpt/internal/optimization/kernels"
)

const (
	component = "gaussian_process"

	// maxJitterAttempts bounds how often the diagonal is inflated before Fit
	// gives up on a Cholesky factorization.
	maxJitterAttempts = 10
	minVariance       = 1e-12
)

// GPOption configures a GP.
type GPOption func(*GP)

// WithGPLogger sets the logger. The default discards everything.
func WithGPLogger(l *zap.Logger) GPOption {
	return func(gp *GP) {
		if l != nil {
			gp.logger = l.Named(component)
		}
	}
}

// WithRandSource sets the source used by PosteriorSample.
func WithRandSource(src rand.Source) GPOption {
	return func(gp *GP) {
		if src != nil {
			gp.rng = rand.New(src)
		}
	}
}

// WithNormalizeY toggles standardizing the targets before fitting. It is on
// by default.
func WithNormalizeY(on bool) GPOption {
	return func(gp *GP) { gp.normalize = on }
}

// GP is a Gaussian Process regression model with fixed hyperparameters.
// A fitted GP is safe for concurrent prediction and sampling.
type GP struct {
	kernel    kernels.Kernel
	noiseVar  float64
	normalize bool

	// Training data, targets standardized when normalize is set.
	X     *mat.Dense
	y     *mat.VecDense
	yMean float64
	yStd  float64

	// Precomputed values
	alpha  *mat.VecDense
	chol   *mat.Cholesky
	jitter float64

	// Matrix pool for reusing prediction buffers
	matrixPool *MatrixPool

	logger *zap.Logger

	rngMu sync.Mutex
	rng   *rand.Rand
}

// NewGP creates a new Gaussian Process model
func NewGP(kernel kernels.Kernel, noiseVar float64, opts ...GPOption) *GP {
	gp := &GP{
		kernel:     kernel,
		noiseVar:   noiseVar,
		normalize:  true,
		yStd:       1,
		matrixPool: NewMatrixPool(),
		logger:     zap.NewNop(),
		rng:        rand.New(rand.NewPCG(1, 2)),
	}
	for _, o := range opts {
		o(gp)
	}
	return gp
}

func gpError(err error, op string) error {
	return optimization.WrapError(err, "gaussian process").WithOperation(op).WithComponent(component)
}

// Fit fits the GP model to the training data
func (gp *GP) Fit(X *mat.Dense, y *mat.VecDense) error {
	const op = "GP.Fit"

	if X == nil || y == nil {
		return gpError(errors.New("input matrices must not be nil"), op)
	}

	nSamples, nFeatures := X.Dims()
	if nSamples == 0 || nFeatures == 0 {
		return gpError(errors.New("input matrix X must not be empty"), op)
	}
	if yLen := y.Len(); nSamples != yLen {
		return gpError(fmt.Errorf("dimension mismatch: X has %d samples but y has length %d", nSamples, yLen), op)
	}
	for i := 0; i < nSamples; i++ {
		if v := y.AtVec(i); math.IsNaN(v) || math.IsInf(v, 0) {
			return gpError(fmt.Errorf("target %d is not finite: %v", i, v), op)
		}
	}

	gp.logger.Debug("Fitting GP model",
		zap.Int("samples", nSamples),
		zap.Int("features", nFeatures),
		zap.Float64("noise_var", gp.noiseVar),
	)

	yc := mat.VecDenseCopyOf(y)
	gp.yMean, gp.yStd = 0, 1
	if gp.normalize {
		raw := yc.RawVector().Data
		mean, std := stat.MeanStdDev(raw, nil)
		if nSamples < 2 || !(std > 0) {
			std = 1
		}
		for i := range raw {
			raw[i] = (raw[i] - mean) / std
		}
		gp.yMean, gp.yStd = mean, std
	}

	K := gp.computeKernelMatrix(X)
	chol, jitter, err := gp.factorize(K)
	if err != nil {
		return gpError(err, op)
	}

	alpha := mat.NewVecDense(nSamples, nil)
	if err := ignoreCondition(chol.SolveVecTo(alpha, yc)); err != nil {
		return gpError(fmt.Errorf("failed to solve linear system: %w", err), op)
	}

	gp.X = mat.DenseCopyOf(X)
	gp.y = yc
	gp.alpha = alpha
	gp.chol = chol
	gp.jitter = jitter

	gp.logger.Debug("Successfully fitted GP model",
		zap.Int("samples", nSamples),
		zap.Float64("jitter", jitter),
		zap.Float64("condition_number", chol.Cond()),
	)
	return nil
}

// computeKernelMatrix returns K(X, X) + noiseVar*I.
func (gp *GP) computeKernelMatrix(X *mat.Dense) *mat.SymDense {
	n, _ := X.Dims()
	K := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		x1 := X.RawRowView(i)
		K.SetSym(i, i, gp.kernel.Eval(x1, x1)+gp.noiseVar)
		for j := i + 1; j < n; j++ {
			K.SetSym(i, j, gp.kernel.Eval(x1, X.RawRowView(j)))
		}
	}
	return K
}

// factorize computes the Cholesky factor of K, adding jitter to the diagonal
// in growing steps until the factorization succeeds.
func (gp *GP) factorize(K *mat.SymDense) (*mat.Cholesky, float64, error) {
	n := K.SymmetricDim()
	base := 1e-10 * math.Max(mat.Trace(K)/float64(n), 1e-12)

	jitter := 0.0
	for attempt := 0; attempt < maxJitterAttempts; attempt++ {
		Kj := K
		if jitter > 0 {
			Kj = mat.NewSymDense(n, nil)
			Kj.CopySym(K)
			for i := 0; i < n; i++ {
				Kj.SetSym(i, i, Kj.At(i, i)+jitter)
			}
		}

		var chol mat.Cholesky
		if chol.Factorize(Kj) {
			return &chol, jitter, nil
		}

		gp.logger.Debug("Cholesky factorization failed, increasing jitter",
			zap.Int("attempt", attempt+1),
			zap.Float64("jitter", jitter))
		if jitter == 0 {
			jitter = base
		} else {
			jitter *= 10
		}
	}
	return nil, 0, fmt.Errorf("cholesky decomposition failed after %d attempts: matrix is not positive definite", maxJitterAttempts)
}

// ignoreCondition drops mat.Condition warnings, the solution is still usable.
func ignoreCondition(err error) error {
	var c mat.Condition
	if errors.As(err, &c) {
		return nil
	}
	return err
}

func (gp *GP) fitted() bool { return gp != nil && gp.X != nil && gp.alpha != nil && gp.chol != nil }

// NumSamples returns the number of training points, 0 before Fit.
func (gp *GP) NumSamples() int {
	if !gp.fitted() {
		return 0
	}
	n, _ := gp.X.Dims()
	return n
}

// Predict returns the mean and variance of the posterior predictive
// distribution at the rows of X, in the units of the training targets.
func (gp *GP) Predict(X *mat.Dense) (*mat.VecDense, *mat.VecDense, error) {
	const op = "GP.Predict"

	if X == nil {
		return nil, nil, gpError(errors.New("input matrix X is nil"), op)
	}
	if !gp.fitted() {
		return nil, nil, gpError(errors.New("model not trained or no training data"), op)
	}

	nTest, dim := X.Dims()
	nTrain, nFeatures := gp.X.Dims()
	if dim != nFeatures {
		return nil, nil, gpError(fmt.Errorf("dimension mismatch: model has %d features, X has %d", nFeatures, dim), op)
	}

	mean := mat.NewVecDense(nTest, nil)
	variance := mat.NewVecDense(nTest, nil)

	Kstar := gp.matrixPool.GetDense(nTest, nTrain)
	defer gp.matrixPool.PutDense(Kstar)
	Kss := make([]float64, nTest)
	for i := 0; i < nTest; i++ {
		xStar := X.RawRowView(i)
		Kss[i] = gp.kernel.Eval(xStar, xStar) + gp.noiseVar
		for j := 0; j < nTrain; j++ {
			Kstar.Set(i, j, gp.kernel.Eval(xStar, gp.X.RawRowView(j)))
		}
	}

	mean.MulVec(Kstar, gp.alpha)

	// v = K^-1 K*^T, var_i = k** - K*_i . v_i
	v := gp.matrixPool.GetDense(nTrain, nTest)
	defer gp.matrixPool.PutDense(v)
	if err := ignoreCondition(gp.chol.SolveTo(v, Kstar.T())); err != nil {
		return nil, nil, gpError(fmt.Errorf("failed to solve linear system: %w", err), op)
	}

	s2 := gp.yStd * gp.yStd
	negative := 0
	for i := 0; i < nTest; i++ {
		var q float64
		for j := 0; j < nTrain; j++ {
			q += Kstar.At(i, j) * v.At(j, i)
		}
		vi := Kss[i] - q
		if vi < 0 {
			negative++
			vi = 0
		}
		variance.SetVec(i, vi*s2)
		mean.SetVec(i, mean.AtVec(i)*gp.yStd+gp.yMean)
	}
	if negative > 0 {
		gp.logger.Debug("Negative variance clamped to zero", zap.Int("points", negative))
	}

	return mean, variance, nil
}

// PredictWithGradients returns the posterior mean and standard deviation at
// x together with their gradients with respect to x.
func (gp *GP) PredictWithGradients(x []float64) (mu, sigma float64, dmu, dsigma []float64, err error) {
	const op = "GP.PredictWithGradients"

	if !gp.fitted() {
		return 0, 0, nil, nil, gpError(errors.New("model not trained or no training data"), op)
	}
	nTrain, d := gp.X.Dims()
	if len(x) != d {
		return 0, 0, nil, nil, gpError(fmt.Errorf("dimension mismatch: model has %d features, x has %d", d, len(x)), op)
	}

	kstar := mat.NewVecDense(nTrain, nil)
	dk := gp.matrixPool.GetDense(nTrain, d)
	defer gp.matrixPool.PutDense(dk)
	for j := 0; j < nTrain; j++ {
		xj := gp.X.RawRowView(j)
		kstar.SetVec(j, gp.kernel.Eval(x, xj))
		gp.kernel.Gradient(dk.RawRowView(j), x, xj)
	}

	v := mat.NewVecDense(nTrain, nil)
	if err := ignoreCondition(gp.chol.SolveVecTo(v, kstar)); err != nil {
		return 0, 0, nil, nil, gpError(fmt.Errorf("failed to solve linear system: %w", err), op)
	}

	mu = mat.Dot(kstar, gp.alpha)
	variance := gp.kernel.Eval(x, x) + gp.noiseVar - mat.Dot(kstar, v)

	dmuV := mat.NewVecDense(d, nil)
	dmuV.MulVec(dk.T(), gp.alpha)
	dvarV := mat.NewVecDense(d, nil)
	dvarV.MulVec(dk.T(), v)
	dvarV.ScaleVec(-2, dvarV)

	dmu = dmuV.RawVector().Data
	dsigma = make([]float64, d)
	if variance > minVariance {
		sigma = math.Sqrt(variance)
		floats.ScaleTo(dsigma, 1/(2*sigma), dvarV.RawVector().Data)
	}

	mu = mu*gp.yStd + gp.yMean
	sigma *= gp.yStd
	floats.Scale(gp.yStd, dmu)
	floats.Scale(gp.yStd, dsigma)
	return mu, sigma, dmu, dsigma, nil
}

// PosteriorSample draws one value per row of X from the marginal posterior
// predictive distribution, mean + sd*N(0,1).
func (gp *GP) PosteriorSample(X *mat.Dense) ([]float64, error) {
	mean, variance, err := gp.Predict(X)
	if err != nil {
		return nil, err
	}

	n := mean.Len()
	out := make([]float64, n)
	gp.rngMu.Lock()
	for i := range out {
		out[i] = mean.AtVec(i) + math.Sqrt(variance.AtVec(i))*gp.rng.NormFloat64()
	}
	gp.rngMu.Unlock()
	return out, nil
}
