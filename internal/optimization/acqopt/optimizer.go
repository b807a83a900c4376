package acqopt

import (
	"context"
	"errors"
	"math/rand/v2"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/Paul1298/GPyOpt/internal/optimization"
	"github.com/Paul1298/GPyOpt/internal/optimization/backend"
	"github.com/Paul1298/GPyOpt/internal/optimization/space"
)

// Result is the outcome of one Optimize call.
type Result struct {
	// X is the best full model-space point and Value its objective value.
	X     []float64
	Value float64
	// AnchorIndex is the index in Anchors.Points of the winning anchor.
	AnchorIndex int
	// SpecifiedWon is set when the winner started from the specified point.
	SpecifiedWon bool
	// FellBack is set when the winner is its anchor because the optimized
	// point was a duplicate.
	FellBack bool

	Anchors    *AnchorSet
	Candidates []Candidate
	// Failures holds one *AnchorError per failed anchor run.
	Failures []error
}

type options struct {
	optimizer   string
	logic       AnchorLogic
	model       PosteriorSampler
	context     Context
	numAnchors  int
	numSamples  int
	design      space.DesignType
	workers     int
	timeout     time.Duration
	seed        uint64
	logger      *zap.Logger
	metrics     *Metrics
	backendOpts []backend.Option
}

// Option configures an AcquisitionOptimizer.
type Option func(*options)

// WithOptimizer selects the backend by name. The default is lbfgs.
func WithOptimizer(name string) Option {
	return func(o *options) { o.optimizer = name }
}

// WithAnchorLogic selects the anchor heuristic.
func WithAnchorLogic(l AnchorLogic) Option {
	return func(o *options) { o.logic = l }
}

// WithModel sets the surrogate used by ThompsonSampling.
func WithModel(m PosteriorSampler) Option {
	return func(o *options) { o.model = m }
}

// WithContext fixes variables for every Optimize call.
func WithContext(c Context) Option {
	return func(o *options) { o.context = c }
}

// WithNumAnchors sets how many generated anchors are optimized from.
func WithNumAnchors(k int) Option {
	return func(o *options) { o.numAnchors = k }
}

// WithNumSamples overrides the number of design points scored for anchors.
func WithNumSamples(n int) Option {
	return func(o *options) { o.numSamples = n }
}

// WithDesign overrides the anchor design.
func WithDesign(d space.DesignType) Option {
	return func(o *options) { o.design = d }
}

// WithWorkers runs up to n anchor searches concurrently. The objective must
// then be safe for concurrent use.
func WithWorkers(n int) Option {
	return func(o *options) { o.workers = n }
}

// WithTimeout bounds the wall-clock time of each Optimize call.
func WithTimeout(d time.Duration) Option {
	return func(o *options) { o.timeout = d }
}

// WithSeed seeds anchor designs and stochastic backends.
func WithSeed(seed uint64) Option {
	return func(o *options) { o.seed = seed }
}

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithMetrics sets the collectors updated by Optimize.
func WithMetrics(m *Metrics) Option {
	return func(o *options) { o.metrics = m }
}

// WithBackendOptions passes options through to backend.Choose.
func WithBackendOptions(opts ...backend.Option) Option {
	return func(o *options) { o.backendOpts = append(o.backendOpts, opts...) }
}

// AcquisitionOptimizer minimizes objectives over a design space. It is safe
// for concurrent use.
type AcquisitionOptimizer struct {
	space Space
	cm    *ContextManager
	opts  options
	calls atomic.Uint64
}

// New validates the configuration against sp.
func New(sp Space, opts ...Option) (*AcquisitionOptimizer, error) {
	const op = "acqopt.New"
	o := options{
		optimizer:  backend.LBFGS,
		logic:      MaxObjective,
		numAnchors: DefaultNumAnchors,
		workers:    1,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = zap.NewNop()
	}
	if o.numAnchors <= 0 {
		o.numAnchors = DefaultNumAnchors
	}
	if o.workers <= 0 {
		o.workers = 1
	}

	if !slices.Contains(backend.Names(), o.optimizer) {
		return nil, optimization.WrapErrorf(optimization.ErrUnsupportedOptimizer, "%q", o.optimizer).WithOperation(op)
	}
	switch o.logic {
	case MaxObjective:
	case ThompsonSampling:
		if o.model == nil {
			return nil, optimization.WrapError(optimization.ErrMissingModel, "thompson sampling anchors").WithOperation(op)
		}
	default:
		return nil, optimization.NewErrorf("unknown anchor logic %v", o.logic).WithOperation(op)
	}
	if o.design != "" {
		if _, err := space.ParseDesignType(string(o.design)); err != nil {
			return nil, optimization.WrapError(err, "configure").WithOperation(op)
		}
	}

	cm, err := NewContextManager(sp, o.context)
	if err != nil {
		return nil, err
	}
	return &AcquisitionOptimizer{space: sp, cm: cm, opts: o}, nil
}

// ContextManager returns the context the optimizer was built with.
func (a *AcquisitionOptimizer) ContextManager() *ContextManager { return a.cm }

func (a *AcquisitionOptimizer) generator(obj Objective) AnchorGenerator {
	if a.opts.logic == ThompsonSampling {
		g := NewThompsonAnchors(a.opts.model)
		a.override(&g.Design, &g.NumSamples)
		return g
	}
	g := NewObjectiveAnchors(obj)
	a.override(&g.Design, &g.NumSamples)
	return g
}

func (a *AcquisitionOptimizer) override(design *space.DesignType, n *int) {
	if a.opts.design != "" {
		*design = a.opts.design
	}
	if a.opts.numSamples > 0 {
		*n = a.opts.numSamples
	}
}

// Optimize minimizes obj. dup, which may be nil, rules out points that were
// already evaluated or are pending. xOpt, a full model-space point such as
// the current incumbent, is used as an extra anchor when not nil.
// When the context fixes every variable no search runs: the context point is
// returned, or ErrNoAnchorPoints when it is a duplicate.
func (a *AcquisitionOptimizer) Optimize(ctx context.Context, obj Objective, dup DuplicateChecker, xOpt []float64) (*Result, error) {
	const op = "AcquisitionOptimizer.Optimize"
	start := time.Now()
	res, err := a.optimize(ctx, obj, dup, xOpt)
	elapsed := time.Since(start)

	logger := a.opts.logger
	switch {
	case err == nil:
		a.opts.metrics.observe("success", res, elapsed)
		logger.Debug("acquisition optimized",
			zap.Float64s("x", res.X),
			zap.Float64("value", res.Value),
			zap.Int("anchor", res.AnchorIndex),
			zap.Bool("specified_won", res.SpecifiedWon),
			zap.Int("failures", len(res.Failures)),
			zap.Duration("elapsed", elapsed),
		)
		if res.SpecifiedWon {
			logger.Info("specified anchor won", zap.Int("anchor", res.AnchorIndex))
		}
		return res, nil
	case errors.Is(err, optimization.ErrOptimizationTimeout):
		a.opts.metrics.observe("timeout", res, elapsed)
	case errors.Is(err, optimization.ErrNoAnchorPoints):
		a.opts.metrics.observe("no_anchors", res, elapsed)
	default:
		a.opts.metrics.observe("error", res, elapsed)
	}
	logger.Warn("acquisition optimization failed", zap.Error(err), zap.Duration("elapsed", elapsed))
	return nil, optimization.WrapError(err, "optimize acquisition").WithOperation(op)
}

func (a *AcquisitionOptimizer) optimize(ctx context.Context, obj Objective, dup DuplicateChecker, xOpt []float64) (*Result, error) {
	if !obj.valid() {
		return nil, optimization.NewErrorf("objective has no function")
	}
	if a.opts.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.opts.timeout)
		defer cancel()
	}

	if len(a.cm.nonContextIndex) == 0 {
		return a.fixedPoint(obj, dup)
	}

	call := a.calls.Add(1)
	opts := append([]backend.Option{backend.WithSeed(a.opts.seed + call)}, a.opts.backendOpts...)
	opt, err := backend.Choose(a.opts.optimizer, a.cm.NonContextBounds(), opts...)
	if err != nil {
		return nil, err
	}

	sc := &Scope{
		Space:      a.space,
		Context:    a.cm,
		Duplicates: dup,
		Src:        rand.NewPCG(a.opts.seed, call),
		Logger:     a.opts.logger,
	}
	anchors, err := a.generator(obj).Generate(ctx, sc, a.opts.numAnchors, xOpt)
	if err != nil {
		return nil, timeoutOr(ctx, err)
	}
	if anchors.Len() == 0 {
		return nil, optimization.WrapError(optimization.ErrNoAnchorPoints, "every design point is a duplicate")
	}

	candidates := a.run(ctx, opt, anchors, obj, sc)
	if err := ctx.Err(); err != nil {
		return nil, timeoutOr(ctx, err)
	}

	res := &Result{Anchors: anchors, Candidates: candidates}
	res.selectWinner()
	if res.AnchorIndex < 0 {
		return res, errors.Join(res.Failures...)
	}
	for _, f := range res.Failures {
		a.opts.logger.Warn("anchor run failed", zap.Error(f))
	}
	res.SpecifiedWon = res.AnchorIndex >= anchors.Generated
	return res, nil
}

// selectWinner records failed candidates and copies the lowest-valued one
// into res. AnchorIndex stays -1 when every candidate failed.
func (res *Result) selectWinner() {
	res.AnchorIndex = -1
	for i, c := range res.Candidates {
		if c.Err != nil {
			res.Failures = append(res.Failures, &optimization.AnchorError{Anchor: i, Err: c.Err})
			continue
		}
		// strict ordering keeps the lowest index on ties, NaN values lose
		if res.AnchorIndex < 0 || less(c.Value, res.Value) {
			res.AnchorIndex = i
			res.X = c.X
			res.Value = c.Value
			res.FellBack = c.FellBack
		}
	}
}

// fixedPoint handles a context that fixes every variable: the context point is
// the only admissible answer.
func (a *AcquisitionOptimizer) fixedPoint(obj Objective, dup DuplicateChecker) (*Result, error) {
	x := a.cm.ExpandVector(nil)
	if dup != nil && dup.IsDuplicate(x) {
		return nil, optimization.WrapError(optimization.ErrNoAnchorPoints, "the context point is a duplicate")
	}
	v, err := obj.value(x)
	if err != nil {
		return nil, &optimization.AnchorError{Anchor: 0, Err: err}
	}
	return &Result{
		X:          x,
		Value:      v,
		Anchors:    &AnchorSet{Points: [][]float64{x}, Generated: 1},
		Candidates: []Candidate{{Anchor: x, X: x, Value: v}},
	}, nil
}

// run optimizes from every anchor. Results are stored by anchor index.
func (a *AcquisitionOptimizer) run(ctx context.Context, opt backend.Optimizer, anchors *AnchorSet, obj Objective, sc *Scope) []Candidate {
	out := make([]Candidate, anchors.Len())
	if a.opts.workers == 1 || anchors.Len() == 1 {
		for i, anchor := range anchors.Points {
			out[i] = apply(ctx, opt, anchor, obj, sc)
		}
		return out
	}

	semaphore := make(chan struct{}, a.opts.workers)
	var wg sync.WaitGroup
	for i, anchor := range anchors.Points {
		wg.Add(1)
		go func(idx int, anchor []float64) {
			defer wg.Done()

			semaphore <- struct{}{}
			defer func() { <-semaphore }()

			out[idx] = apply(ctx, opt, anchor, obj, sc)
		}(i, anchor)
	}
	wg.Wait()
	return out
}

// timeoutOr maps an expired deadline to ErrOptimizationTimeout.
func timeoutOr(ctx context.Context, err error) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return optimization.WrapErrorf(optimization.ErrOptimizationTimeout, "%v", err)
	}
	return err
}
