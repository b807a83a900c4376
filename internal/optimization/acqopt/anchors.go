package acqopt

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"slices"
	"sort"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/mat"

	"github.com/Paul1298/GPyOpt/internal/optimization"
	"github.com/Paul1298/GPyOpt/internal/optimization/duplicate"
	"github.com/Paul1298/GPyOpt/internal/optimization/space"
)

// AnchorLogic selects how anchor points are scored.
type AnchorLogic int

const (
	// MaxObjective ranks random design points by the objective itself.
	MaxObjective AnchorLogic = iota
	// ThompsonSampling ranks low-discrepancy design points by one draw of the
	// surrogate posterior.
	ThompsonSampling
)

func (l AnchorLogic) String() string {
	switch l {
	case MaxObjective:
		return "max_objective"
	case ThompsonSampling:
		return "thompson_sampling"
	}
	return fmt.Sprintf("AnchorLogic(%d)", int(l))
}

// ParseAnchorLogic maps "max_objective" and "thompson_sampling" to their
// AnchorLogic.
func ParseAnchorLogic(s string) (AnchorLogic, error) {
	switch s {
	case "max_objective":
		return MaxObjective, nil
	case "thompson_sampling":
		return ThompsonSampling, nil
	}
	return 0, optimization.NewErrorf("unknown anchor logic %q", s).WithComponent("acqopt")
}

// Sample counts of the two anchor heuristics.
const (
	DefaultNumAnchors      = 5
	ObjectiveAnchorSamples = 1000
	ThompsonAnchorSamples  = 25000
)

// AnchorSet holds the starting points of the local searches. Points[:Generated]
// are the generated anchors, best first. A specified point, when given and
// admissible, follows them.
type AnchorSet struct {
	Points    [][]float64
	Generated int
}

// Len returns the number of anchors.
func (a *AnchorSet) Len() int { return len(a.Points) }

// Specified reports whether the set ends with a specified point.
func (a *AnchorSet) Specified() bool { return len(a.Points) > a.Generated }

// Scope is what anchor generation and the per-anchor runs share during one
// Optimize call. It is read-only.
type Scope struct {
	Space      Space
	Context    *ContextManager
	Duplicates DuplicateChecker
	Src        rand.Source
	Logger     *zap.Logger
}

func (sc *Scope) isDuplicate(x []float64) bool {
	return sc.Duplicates != nil && sc.Duplicates.IsDuplicate(x)
}

// AnchorGenerator produces at most k generated anchors plus xOpt.
type AnchorGenerator interface {
	Generate(ctx context.Context, sc *Scope, k int, xOpt []float64) (*AnchorSet, error)
}

// ObjectiveAnchors scores design points with the objective.
type ObjectiveAnchors struct {
	Objective  Objective
	Design     space.DesignType
	NumSamples int
	Unique     bool
}

// NewObjectiveAnchors returns the generator with its usual design and sample
// count.
func NewObjectiveAnchors(obj Objective) *ObjectiveAnchors {
	return &ObjectiveAnchors{Objective: obj, Design: space.DesignRandom, NumSamples: ObjectiveAnchorSamples}
}

// Generate evaluates the objective on NumSamples design points and returns the
// k lowest as anchors, followed by xOpt when it is given. It checks ctx every
// 64 evaluations.
func (g *ObjectiveAnchors) Generate(ctx context.Context, sc *Scope, k int, xOpt []float64) (*AnchorSet, error) {
	if !g.Objective.valid() {
		return nil, optimization.NewErrorf("objective has no function").WithComponent("acqopt")
	}
	score := func(ctx context.Context, X *mat.Dense) ([]float64, error) {
		r, _ := X.Dims()
		out := make([]float64, r)
		for i := 0; i < r; i++ {
			if i%64 == 0 {
				if err := ctx.Err(); err != nil {
					return nil, err
				}
			}
			v, err := g.Objective.value(X.RawRowView(i))
			if err != nil {
				return nil, optimization.WrapErrorf(err, "score design point %d", i).WithComponent("acqopt")
			}
			out[i] = v
		}
		return out, nil
	}
	return generate(ctx, sc, g.Design, g.NumSamples, g.Unique, k, xOpt, score)
}

// ThompsonAnchors scores design points with one posterior sample.
type ThompsonAnchors struct {
	Model      PosteriorSampler
	Design     space.DesignType
	NumSamples int
	Unique     bool
}

// NewThompsonAnchors returns the generator with its usual design and sample
// count.
func NewThompsonAnchors(model PosteriorSampler) *ThompsonAnchors {
	return &ThompsonAnchors{Model: model, Design: space.DesignSobol, NumSamples: ThompsonAnchorSamples}
}

// Generate draws one posterior sample at each of NumSamples design points and
// returns the k lowest as anchors, followed by xOpt when it is given.
func (g *ThompsonAnchors) Generate(ctx context.Context, sc *Scope, k int, xOpt []float64) (*AnchorSet, error) {
	if g.Model == nil {
		return nil, optimization.ErrMissingModel
	}
	score := func(_ context.Context, X *mat.Dense) ([]float64, error) {
		s, err := g.Model.PosteriorSample(X)
		if err != nil {
			return nil, optimization.WrapError(err, "posterior sample").WithComponent("acqopt")
		}
		return s, nil
	}
	return generate(ctx, sc, g.Design, g.NumSamples, g.Unique, k, xOpt, score)
}

type scoreFunc func(ctx context.Context, X *mat.Dense) ([]float64, error)

// generate is the procedure shared by the heuristics: sample, apply the
// context, drop duplicates, rank by score and append the specified point.
func generate(ctx context.Context, sc *Scope, design space.DesignType, n int, unique bool, k int, xOpt []float64, score scoreFunc) (*AnchorSet, error) {
	logger := sc.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	if k <= 0 {
		k = DefaultNumAnchors
	}

	X, err := sc.Space.Design(design, n, sc.Src)
	if err != nil {
		return nil, optimization.WrapError(err, "anchor design").WithComponent("acqopt")
	}

	rows, dim := X.Dims()
	var seen *duplicate.Manager
	if unique {
		seen = duplicate.NewModel(nil)
	}
	kept := make([]float64, 0, rows*dim)
	for i := 0; i < rows; i++ {
		x := sc.Context.Apply(X.RawRowView(i))
		if seen != nil {
			if seen.IsDuplicate(x) {
				continue
			}
			seen.Add(x)
		}
		if sc.isDuplicate(x) {
			continue
		}
		kept = append(kept, x...)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	set := &AnchorSet{}
	if m := len(kept) / dim; m > 0 {
		candidates := mat.NewDense(m, dim, kept)
		scores, err := score(ctx, candidates)
		if err != nil {
			return nil, err
		}
		if len(scores) != m {
			return nil, optimization.NewErrorf("got %d scores for %d anchor candidates", len(scores), m).WithComponent("acqopt")
		}
		order := make([]int, m)
		for i := range order {
			order[i] = i
		}
		sort.SliceStable(order, func(a, b int) bool {
			return less(scores[order[a]], scores[order[b]])
		})
		for _, i := range order[:min(k, m)] {
			set.Points = append(set.Points, slices.Clone(candidates.RawRowView(i)))
		}
	}
	set.Generated = len(set.Points)
	if set.Generated < k {
		logger.Warn("fewer anchor points than requested",
			zap.Int("requested", k),
			zap.Int("available", set.Generated),
		)
	}

	if xOpt != nil {
		if len(xOpt) != sc.Space.ModelDimensionality() {
			return nil, optimization.NewErrorf("specified point has %d values, want %d", len(xOpt), sc.Space.ModelDimensionality()).WithComponent("acqopt")
		}
		x := sc.Context.Apply(xOpt)
		if sc.isDuplicate(x) {
			logger.Warn("specified point is a duplicate, not used as anchor")
		} else {
			set.Points = append(set.Points, x)
		}
	}
	return set, nil
}

// less orders scores ascending with NaN last.
func less(a, b float64) bool {
	if math.IsNaN(b) {
		return !math.IsNaN(a)
	}
	return a < b
}
