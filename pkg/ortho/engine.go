package ortho

import (
	"context"
	"fmt"
	"io"
	"slices"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/matzehuels/orthofix/pkg/linktree"
)

// Options configures an [Engine]. Zero values select the defaults.
type Options struct {
	GridSize      float64
	StrategyLimit int
	// MinCorners ranks fewer inserted corners ahead of smaller displacement.
	MinCorners bool
	// Parallelism bounds how many tree strategies are evaluated at once.
	// Values below 2 evaluate sequentially.
	Parallelism int
	Logger      *log.Logger
}

func (o Options) withDefaults() Options {
	if o.GridSize <= 0 {
		o.GridSize = DefaultGridSize
	}
	if o.StrategyLimit <= 0 {
		o.StrategyLimit = DefaultStrategyLimit
	}
	if o.Parallelism < 1 {
		o.Parallelism = 1
	}
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	return o
}

// Scope is everything one repair reads: the tree being edited, the pad
// directions of the nodes it attaches to and the occupancy of the rest of
// the diagram. Grid may be nil to skip collision checks.
type Scope struct {
	Tree *linktree.Tree
	Pads PadResolver
	Grid Grid
}

// Phase is a step of the repair state machine.
type Phase int

const (
	PhaseAnalyze Phase = iota
	PhaseGenerate
	PhaseVariations
	PhaseFilter
	PhaseRank
	PhaseSelect
	PhaseApply
	PhaseApplied
	PhaseNoViableStrategy
)

var phaseNames = [...]string{
	"ANALYZE", "GENERATE_STRATEGIES", "GENERATE_VARIATIONS", "FILTER",
	"RANK", "SELECT_BEST", "APPLY", "APPLIED", "NO_VIABLE_STRATEGY",
}

func (p Phase) String() string {
	if int(p) < len(phaseNames) {
		return phaseNames[p]
	}
	return fmt.Sprintf("Phase(%d)", int(p))
}

// Outcome is the result class of a repair.
type Outcome int

const (
	OutcomeApplied Outcome = iota
	OutcomeAlreadyOrthogonal
	OutcomeNotRepairable
)

var outcomeNames = [...]string{"applied", "already-orthogonal", "not-repairable"}

func (o Outcome) String() string {
	if int(o) < len(outcomeNames) {
		return outcomeNames[o]
	}
	return fmt.Sprintf("Outcome(%d)", int(o))
}

// MarshalText encodes the outcome by name.
func (o Outcome) MarshalText() ([]byte, error) { return []byte(o.String()), nil }

// UnmarshalText decodes an outcome name.
func (o *Outcome) UnmarshalText(b []byte) error {
	i := slices.Index(outcomeNames[:], string(b))
	if i < 0 {
		return fmt.Errorf("unknown outcome %q", b)
	}
	*o = Outcome(i)
	return nil
}

// Stats summarizes the search behind a repair.
type Stats struct {
	Strategies int  `json:"strategies"`
	Variations int  `json:"variations"`
	Accepted   int  `json:"accepted"`
	Truncated  bool `json:"truncated"`
}

// Candidate is one variation that passed filtering.
type Candidate struct {
	Strategy  *TreeStrategy
	Variation int
	Ranking   PlanRanking
}

func (c Candidate) String() string {
	return fmt.Sprintf("%s [v%d] %s", c.Strategy, c.Variation, c.Ranking)
}

// Result is the outcome of repairing one segment.
type Result struct {
	Segment     linktree.SegmentID
	Outcome     Outcome
	Phase       Phase
	NewSegments []linktree.SegmentID
	Splits      SplitTable
	Winner      *Candidate
	Stats       Stats
	Duration    time.Duration
}

// Engine repairs diagonal segments. It holds no per-request state and is
// safe for concurrent use on distinct scopes.
type Engine struct {
	opts Options
}

// NewEngine creates an engine.
func NewEngine(opts Options) *Engine {
	return &Engine{opts: opts.withDefaults()}
}

// Options returns the effective options.
func (e *Engine) Options() Options { return e.opts }

// Candidates runs analysis, generation, filtering and ranking for segment id
// without editing the tree. Survivors are returned best first; ties keep
// generation order, so the result does not depend on Parallelism.
func (e *Engine) Candidates(ctx context.Context, scope Scope, id linktree.SegmentID) ([]Candidate, Stats, error) {
	s, ok := scope.Tree.Segment(id)
	if !ok {
		return nil, Stats{}, fmt.Errorf("%w: %d", ErrUnknownSegment, id)
	}
	if !s.Diagonal() {
		return nil, Stats{}, nil
	}
	logger := e.opts.Logger

	logger.Debug("analyzing constraints", "phase", PhaseAnalyze, "link", scope.Tree.Link(), "segment", id)
	dofs := Analyze(scope.Tree, scope.Pads)
	if err := dofs.Validate(scope.Tree); err != nil {
		return nil, Stats{}, err
	}

	gen := NewGenerator(scope.Tree, dofs, GeneratorOptions{
		StrategyLimit: e.opts.StrategyLimit,
		GridSize:      e.opts.GridSize,
	})
	strategies, err := gen.Generate(id)
	if err != nil {
		return nil, Stats{}, err
	}
	stats := Stats{Strategies: len(strategies), Truncated: gen.Truncated()}
	logger.Debug("generated strategies", "phase", PhaseGenerate, "segment", id,
		"count", len(strategies), "truncated", stats.Truncated)

	scratch := scope.Tree.Clone()
	found := make([][]Candidate, len(strategies))
	counts := make([]int, len(strategies))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.opts.Parallelism)
	for i, ts := range strategies {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			var err error
			found[i], counts[i], err = e.evaluate(ts, scope, scratch)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, stats, err
	}

	var out []Candidate
	for i := range strategies {
		stats.Variations += counts[i]
		out = append(out, found[i]...)
	}
	slices.SortStableFunc(out, func(a, b Candidate) int { return a.Ranking.Compare(b.Ranking) })
	stats.Accepted = len(out)
	logger.Debug("ranked candidates", "phase", PhaseRank, "segment", id,
		"variations", stats.Variations, "accepted", stats.Accepted)
	return out, stats, nil
}

// evaluate materializes, filters and ranks every variation of ts.
func (e *Engine) evaluate(ts *TreeStrategy, scope Scope, scratch *linktree.Tree) ([]Candidate, int, error) {
	n, err := ts.GeneratePlans(scratch, e.opts.GridSize)
	if err != nil {
		return nil, 0, err
	}
	var out []Candidate
	for v := range n {
		ok, err := ts.CanApply(v, scope.Grid, scope.Pads, scratch)
		if err != nil {
			return nil, n, err
		}
		if !ok {
			continue
		}
		r, err := ts.Ranking(v, e.opts.MinCorners, scratch)
		if err != nil {
			return nil, n, err
		}
		out = append(out, Candidate{Strategy: ts, Variation: v, Ranking: r})
	}
	return out, n, nil
}

// Repair rewrites diagonal segment id into orthogonal segments. Finding no
// viable strategy is not an error: the result reports
// [OutcomeNotRepairable] and the tree is left untouched.
func (e *Engine) Repair(ctx context.Context, scope Scope, id linktree.SegmentID) (*Result, error) {
	start := time.Now()
	s, ok := scope.Tree.Segment(id)
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownSegment, id)
	}
	res := &Result{Segment: id}
	if !s.Diagonal() {
		res.Outcome, res.Phase = OutcomeAlreadyOrthogonal, PhaseApplied
		res.Duration = time.Since(start)
		return res, nil
	}

	cands, stats, err := e.Candidates(ctx, scope, id)
	res.Stats = stats
	if err != nil {
		return nil, err
	}
	if len(cands) == 0 {
		res.Outcome, res.Phase = OutcomeNotRepairable, PhaseNoViableStrategy
		res.Duration = time.Since(start)
		e.opts.Logger.Debug("no viable strategy", "phase", PhaseNoViableStrategy, "segment", id)
		return res, nil
	}

	best := cands[0]
	e.opts.Logger.Debug("selected candidate", "phase", PhaseSelect, "segment", id, "candidate", best.String())
	minted, table, err := best.Strategy.ApplyPlan(best.Variation, scope.Tree)
	if err != nil {
		return nil, fmt.Errorf("apply plan: %w", err)
	}
	res.Outcome, res.Phase = OutcomeApplied, PhaseApplied
	res.NewSegments = minted
	res.Splits = table
	res.Winner = &best
	res.Duration = time.Since(start)
	return res, nil
}

// SweepResult reports a whole-tree sweep.
type SweepResult struct {
	Results       []*Result
	Repaired      []linktree.SegmentID
	NotRepairable []linktree.SegmentID
	NewSegments   []linktree.SegmentID
	// Remap maps each split original segment to its current fragments.
	Remap map[linktree.SegmentID][]linktree.SegmentID
}

// maxSweepPasses bounds how often Sweep rescans the tree for segments that
// turned diagonal after the pass that would have visited them.
const maxSweepPasses = 4

// Sweep repairs every diagonal segment of the tree in preorder. Splits made
// by earlier repairs are threaded forward, so a segment that was split
// before its turn is handled through its fragments. Each later pass picks
// up diagonals that no earlier pass attempted; whatever is still diagonal
// after the last pass is reported as not repairable.
func (e *Engine) Sweep(ctx context.Context, scope Scope) (*SweepResult, error) {
	out := &SweepResult{Remap: make(map[linktree.SegmentID][]linktree.SegmentID)}
	tried := make(map[linktree.SegmentID]bool)
	for pass := 0; pass < maxSweepPasses; pass++ {
		var queue []linktree.SegmentID
		for _, id := range scope.Tree.Diagonal() {
			if !tried[id] {
				queue = append(queue, id)
			}
		}
		if len(queue) == 0 {
			break
		}
		if pass > 0 {
			e.opts.Logger.Debug("rescanning diagonals", "pass", pass, "segments", queue)
		}
		for _, orig := range queue {
			frags, ok := out.Remap[orig]
			if !ok {
				frags = []linktree.SegmentID{orig}
			}
			for _, id := range frags {
				if err := ctx.Err(); err != nil {
					return out, err
				}
				s, ok := scope.Tree.Segment(id)
				if tried[id] || !ok || !s.Diagonal() {
					continue
				}
				tried[id] = true
				res, err := e.Repair(ctx, scope, id)
				if err != nil {
					return out, fmt.Errorf("segment %d: %w", id, err)
				}
				out.Results = append(out.Results, res)
				switch res.Outcome {
				case OutcomeApplied:
					out.Repaired = append(out.Repaired, id)
					out.NewSegments = append(out.NewSegments, res.NewSegments...)
					threadRemap(out.Remap, res.Splits)
				case OutcomeNotRepairable:
					out.NotRepairable = append(out.NotRepairable, id)
				}
			}
		}
	}
	for _, id := range scope.Tree.Diagonal() {
		if !slices.Contains(out.NotRepairable, id) {
			out.NotRepairable = append(out.NotRepairable, id)
		}
	}
	return out, nil
}

// threadRemap folds the splits of one repair into the running remap.
func threadRemap(remap map[linktree.SegmentID][]linktree.SegmentID, table SplitTable) {
	for k, e := range table {
		replaced := false
		for o, frags := range remap {
			if i := slices.Index(frags, k); i >= 0 {
				remap[o] = slices.Replace(slices.Clone(frags), i, i+1, e.Fragments()...)
				replaced = true
			}
		}
		if !replaced {
			remap[k] = e.Fragments()
		}
	}
}
