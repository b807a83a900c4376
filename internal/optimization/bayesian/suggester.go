package bayesian

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"slices"
	"strings"
	"sync/atomic"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/Paul1298/GPyOpt/internal/optimization"
	"github.com/Paul1298/GPyOpt/internal/optimization/acqopt"
	"github.com/Paul1298/GPyOpt/internal/optimization/acquisition"
	"github.com/Paul1298/GPyOpt/internal/optimization/duplicate"
	"github.com/Paul1298/GPyOpt/internal/optimization/kernels"
	"github.com/Paul1298/GPyOpt/internal/optimization/space"
)

// initialDraws is how many design points are tried before giving up on an
// initial suggestion that is not a duplicate.
const initialDraws = 100

// SuggesterConfig configures a Suggester. Zero fields take the defaults
// documented on each field.
type SuggesterConfig struct {
	// Kernel is "rbf" or "matern52" (default).
	Kernel      string
	LengthScale float64 // default 1
	SignalVar   float64 // default 1
	NoiseVar    float64 // default 1e-6

	// Acquisition is "EI" (default) or "LCB". AcquisitionParam is the EI
	// jitter (default 0.01) or the LCB exploration weight (default 2).
	Acquisition      string
	AcquisitionParam float64

	// InitialDesign draws the suggestion when there are no observations yet.
	// The default is latin.
	InitialDesign space.DesignType

	Seed   uint64
	Logger *zap.Logger
}

func (c *SuggesterConfig) setDefaults() {
	if c.Kernel == "" {
		c.Kernel = kernels.Matern52
	}
	if c.LengthScale == 0 {
		c.LengthScale = 1
	}
	if c.SignalVar == 0 {
		c.SignalVar = 1
	}
	if c.NoiseVar == 0 {
		c.NoiseVar = 1e-6
	}
	if c.Acquisition == "" {
		c.Acquisition = acquisition.EI
	}
	if c.AcquisitionParam == 0 && strings.EqualFold(c.Acquisition, acquisition.EI) {
		c.AcquisitionParam = 0.01
	}
	if c.InitialDesign == "" {
		c.InitialDesign = space.DesignLatin
	}
	if c.Logger == nil {
		c.Logger = zap.NewNop()
	}
}

// Request carries everything one suggestion depends on. Points are in
// objective space.
type Request struct {
	X       [][]float64
	Y       []float64
	Pending [][]float64
	Ignored [][]float64
	Context acqopt.Context
	// XOpt is an extra starting point for the acquisition optimizer.
	XOpt []float64
}

// Suggestion is the next point to evaluate.
type Suggestion struct {
	// X is the point in objective space, XModel its model-space encoding.
	X      []float64
	XModel []float64
	// Value is the minimized negated acquisition at XModel. It is NaN for
	// initial suggestions.
	Value        float64
	AnchorIndex  int
	SpecifiedWon bool
	FellBack     bool
	// Initial is set when there were no observations and X was drawn from
	// the initial design.
	Initial bool
}

// Suggester proposes one point per call: it fits a GP to the observations,
// builds the acquisition function and optimizes it. It is safe for
// concurrent use.
type Suggester struct {
	space   *space.Space
	config  SuggesterConfig
	optOpts []acqopt.Option
	diag    *acqopt.Diagnostics
	calls   atomic.Uint64
}

// NewSuggester validates the configuration and returns a Suggester over sp.
// opts configure the acquisition optimizer of every call.
func NewSuggester(sp *space.Space, config SuggesterConfig, opts ...acqopt.Option) (*Suggester, error) {
	const op = "NewSuggester"

	if sp == nil {
		return nil, optimization.WrapError(optimization.ErrInvalidSpace, "design space is required").WithOperation(op)
	}
	config.setDefaults()

	kernel, err := kernels.New(config.Kernel, config.LengthScale, config.SignalVar)
	if err != nil {
		return nil, optimization.WrapError(err, "invalid kernel").WithOperation(op)
	}
	if config.NoiseVar < 0 {
		return nil, optimization.NewErrorf("noise variance must not be negative, got %v", config.NoiseVar).WithOperation(op)
	}
	if _, err := acquisition.New(config.Acquisition, 0, config.AcquisitionParam); err != nil {
		return nil, optimization.WrapError(err, "invalid acquisition").WithOperation(op)
	}
	if _, err := space.ParseDesignType(string(config.InitialDesign)); err != nil {
		return nil, optimization.WrapError(err, "invalid initial design").WithOperation(op)
	}

	all := append([]acqopt.Option{acqopt.WithLogger(config.Logger)}, opts...)
	if _, err := acqopt.New(sp, append(slices.Clone(all), acqopt.WithModel(NewGP(kernel, config.NoiseVar)))...); err != nil {
		return nil, optimization.WrapError(err, "invalid acquisition optimizer").WithOperation(op)
	}

	return &Suggester{
		space:   sp,
		config:  config,
		optOpts: all,
		diag:    &acqopt.Diagnostics{},
	}, nil
}

// Space returns the design space suggestions are drawn from.
func (s *Suggester) Space() *space.Space { return s.space }

// Diagnostics returns the statistics accumulated over all calls.
func (s *Suggester) Diagnostics() *acqopt.Diagnostics { return s.diag }

// Suggest returns the next point to evaluate.
func (s *Suggester) Suggest(ctx context.Context, req Request) (*Suggestion, error) {
	const op = "Suggester.Suggest"

	call := s.calls.Add(1)
	seed := s.config.Seed + call

	X, y, err := s.prepareTrainingData(req)
	if err != nil {
		return nil, optimization.WrapError(err, "prepare training data").WithOperation(op)
	}
	dup, err := duplicate.New(s.space, req.X, req.Pending, req.Ignored)
	if err != nil {
		return nil, optimization.WrapError(fmt.Errorf("%w: %w", optimization.ErrInvalidObservations, err), "build duplicate set").WithOperation(op)
	}

	if X == nil {
		sg, err := s.initial(req.Context, dup, rand.NewPCG(s.config.Seed, call))
		if err != nil {
			return nil, optimization.WrapError(err, "initial design").WithOperation(op)
		}
		s.config.Logger.Debug("initial suggestion", zap.Float64s("x", sg.X))
		return sg, nil
	}

	kernel, err := kernels.New(s.config.Kernel, s.config.LengthScale, s.config.SignalVar)
	if err != nil {
		return nil, optimization.WrapError(err, "invalid kernel").WithOperation(op)
	}
	gp := NewGP(kernel, s.config.NoiseVar,
		WithGPLogger(s.config.Logger),
		WithRandSource(rand.NewPCG(seed, call)),
	)
	if err := gp.Fit(X, y); err != nil {
		return nil, optimization.WrapError(err, "fit surrogate").WithOperation(op)
	}

	best := floats.Min(y.RawVector().Data)
	fn, err := acquisition.New(s.config.Acquisition, best, s.config.AcquisitionParam)
	if err != nil {
		return nil, optimization.WrapError(err, "invalid acquisition").WithOperation(op)
	}

	opts := append(slices.Clone(s.optOpts),
		acqopt.WithModel(gp),
		acqopt.WithContext(req.Context),
		acqopt.WithSeed(seed),
	)
	ao, err := acqopt.New(s.space, opts...)
	if err != nil {
		return nil, optimization.WrapError(err, "configure acquisition optimizer").WithOperation(op)
	}

	var xOpt []float64
	if req.XOpt != nil {
		if xOpt, err = s.space.ObjectiveToModel(req.XOpt); err != nil {
			return nil, optimization.WrapError(fmt.Errorf("%w: %w", optimization.ErrInvalidPoint, err), "encode x_opt").WithOperation(op)
		}
		if !slices.Equal(s.space.RoundOptimum(xOpt), xOpt) {
			return nil, optimization.WrapError(fmt.Errorf("%w: x_opt %v is outside the design space", optimization.ErrInvalidPoint, req.XOpt), "encode x_opt").WithOperation(op)
		}
	}

	res, err := ao.Optimize(ctx, acquisition.NewObjective(gp, fn), dup, xOpt)
	if err != nil {
		return nil, err
	}
	s.diag.Record(res)

	return &Suggestion{
		X:            s.space.ModelToObjective(res.X),
		XModel:       res.X,
		Value:        res.Value,
		AnchorIndex:  res.AnchorIndex,
		SpecifiedWon: res.SpecifiedWon,
		FellBack:     res.FellBack,
	}, nil
}

// prepareTrainingData encodes the observations into model space. It returns
// nil, nil when there are none.
func (s *Suggester) prepareTrainingData(req Request) (*mat.Dense, *mat.VecDense, error) {
	if len(req.X) != len(req.Y) {
		return nil, nil, optimization.WrapErrorf(optimization.ErrInvalidObservations,
			"%d points but %d values", len(req.X), len(req.Y))
	}
	if len(req.X) == 0 {
		return nil, nil, nil
	}

	nSamples, nDims := len(req.X), s.space.ModelDimensionality()
	X := mat.NewDense(nSamples, nDims, nil)
	y := mat.NewVecDense(nSamples, nil)
	for i, x := range req.X {
		m, err := s.space.ObjectiveToModel(x)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: point %d: %w", optimization.ErrInvalidObservations, i, err)
		}
		X.SetRow(i, m)
		v := req.Y[i]
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, nil, optimization.WrapErrorf(optimization.ErrInvalidObservations, "value %d is %v", i, v)
		}
		y.SetVec(i, v)
	}
	return X, y, nil
}

// initial draws a point from the initial design, with the context applied,
// that is not a duplicate.
func (s *Suggester) initial(c acqopt.Context, dup *duplicate.Manager, src rand.Source) (*Suggestion, error) {
	cm, err := acqopt.NewContextManager(s.space, c)
	if err != nil {
		return nil, err
	}
	design, err := s.space.Design(s.config.InitialDesign, initialDraws, src)
	if err != nil {
		return nil, err
	}
	for i := 0; i < initialDraws; i++ {
		x := s.space.RoundOptimum(cm.Apply(design.RawRowView(i)))
		if dup.IsDuplicate(x) {
			continue
		}
		return &Suggestion{
			X:       s.space.ModelToObjective(x),
			XModel:  x,
			Value:   math.NaN(),
			Initial: true,
		}, nil
	}
	return nil, optimization.ErrNoAnchorPoints
}
