package ortho

import (
	"fmt"

	"github.com/matzehuels/orthofix/pkg/geom"
	"github.com/matzehuels/orthofix/pkg/linktree"
)

const (
	// DefaultStrategyLimit caps the strategies one generation may produce.
	DefaultStrategyLimit = 200

	// DefaultGridSize is the layout grid used to snap midpoints.
	DefaultGridSize = 10.0

	// recursionDepth is the deepest level at which a dependency may still
	// recurse into its own dependencies.
	recursionDepth = 1
)

// GeneratorOptions configures a [Generator].
type GeneratorOptions struct {
	// StrategyLimit caps the number of strategies considered, counting
	// recursive sub-strategies. Zero means [DefaultStrategyLimit].
	StrategyLimit int
	// GridSize snaps computed midpoints. Zero means [DefaultGridSize].
	GridSize float64
}

// Generator enumerates [TreeStrategy] candidates for a diagonal segment.
//
// A Generator is single use: create one per repair request.
type Generator struct {
	tree  *linktree.Tree
	dofs  DOFMap
	limit int
	grid  float64

	count     int
	truncated bool
	memo      map[memoKey][]chain
}

// chain is one candidate: the segment's own strategy followed by the
// strategies of its dependencies, in application order.
type chain []LinkSegStrategy

// level tracks recursion state. stop suppresses recursion into further
// dependencies; conditional axes then count as fixed.
type level struct {
	depth int
	stop  bool
}

func (l level) next() level {
	return level{depth: l.depth + 1, stop: l.depth+1 > recursionDepth}
}

type memoKey struct {
	id     linktree.SegmentID
	corner linktree.Endpoint
	seg    geom.Segment
	stop   bool
}

// NewGenerator creates a generator over t using the DOFs from [Analyze].
func NewGenerator(t *linktree.Tree, dofs DOFMap, opts GeneratorOptions) *Generator {
	if opts.StrategyLimit <= 0 {
		opts.StrategyLimit = DefaultStrategyLimit
	}
	if opts.GridSize <= 0 {
		opts.GridSize = DefaultGridSize
	}
	return &Generator{
		tree:  t,
		dofs:  dofs,
		limit: opts.StrategyLimit,
		grid:  opts.GridSize,
		memo:  make(map[memoKey][]chain),
	}
}

// Truncated reports whether the strategy limit cut generation short. A
// truncated result means "no simpler plan found", not "infeasible".
func (g *Generator) Truncated() bool { return g.truncated }

// Generate returns the candidate tree strategies for segment id. An
// orthogonal or degenerate segment yields none. A corrupt DOF map returns
// an error wrapping [ErrCorruptConstraint].
func (g *Generator) Generate(id linktree.SegmentID) ([]*TreeStrategy, error) {
	s, ok := g.tree.Segment(id)
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownSegment, id)
	}
	sd, err := g.lookup(id)
	if err != nil {
		return nil, err
	}
	if !s.Diagonal() {
		return nil, nil
	}

	chains, err := g.solve(id, s.Geometry(), sd, level{})
	if err != nil {
		return nil, err
	}
	out := make([]*TreeStrategy, len(chains))
	for i, c := range chains {
		out[i] = &TreeStrategy{Strategies: c}
	}
	return out, nil
}

func (g *Generator) lookup(id linktree.SegmentID) (SegmentDOF, error) {
	sd, ok := g.dofs[id]
	if !ok {
		return SegmentDOF{}, fmt.Errorf("%w: segment %d has no entry", ErrCorruptConstraint, id)
	}
	if err := sd.Validate(); err != nil {
		return SegmentDOF{}, fmt.Errorf("segment %d: %w", id, err)
	}
	return sd, nil
}

func (g *Generator) exhausted() bool {
	if g.count >= g.limit {
		g.truncated = true
		return true
	}
	return false
}

// candidateOps lists the operations tried for a segment, in order.
func candidateOps(top bool) []Operation {
	ops := make([]Operation, 0, 14)
	for _, e := range linktree.Endpoints {
		for _, a := range geom.Axes {
			ops = append(ops, SingleMove{End: e, Axis: a})
		}
	}
	if top {
		ops = append(ops, DoubleMove{Axis: geom.X}, DoubleMove{Axis: geom.Y})
	}
	ops = append(ops, SingleSplit{First: geom.X}, SingleSplit{First: geom.Y})
	for _, f := range geom.Axes {
		for _, e := range linktree.Endpoints {
			ops = append(ops, SplitAndMove{First: f, End: e})
		}
	}
	return append(ops, DoubleSplit{First: geom.X}, DoubleSplit{First: geom.Y})
}

// solve enumerates the chains that make seg (the projected geometry of
// segment id) orthogonal under sd.
func (g *Generator) solve(id linktree.SegmentID, seg geom.Segment, sd SegmentDOF, lv level) ([]chain, error) {
	delta := seg.Delta()
	if !travelAgrees(sd.Start.Dir, delta) || !travelAgrees(sd.End.Dir, delta) {
		return nil, nil
	}

	var out []chain
	for _, op := range candidateOps(lv.depth == 0) {
		if g.exhausted() {
			break
		}
		strat := LinkSegStrategy{Segment: id, Op: op, P0: sd.Start, P1: sd.End}
		sh, ok := g.admit(strat, seg)
		if !ok {
			continue
		}
		chains, err := g.expand(strat, sh, lv)
		if err != nil {
			return nil, err
		}
		out = append(out, chains...)
	}
	return out, nil
}

// admit runs the local checks for one operation: every leg orthogonal,
// outer legs matching the required directions, moved axes not fixed and
// companion moves actually moving.
func (g *Generator) admit(s LinkSegStrategy, seg geom.Segment) (shape, bool) {
	var float float64
	if op, ok := s.Op.(DoubleSplit); ok {
		float = (seg.A.Get(op.First) + seg.B.Get(op.First)) / 2
	}
	sh, err := shapeOf(s.Op, seg, g.grid, float)
	if err != nil {
		return shape{}, false
	}
	for _, l := range sh.legs {
		if !l.Orthogonal() {
			return shape{}, false
		}
	}
	if !legMatches(s.P0.Dir, sh.legs[0]) || !legMatches(s.P1.Dir, sh.legs[len(sh.legs)-1]) {
		return shape{}, false
	}
	for _, m := range sh.moved {
		p := s.P0
		if m.End == linktree.EndPoint {
			p = s.P1
		}
		if !p.Axis(m.Axis).Movable() {
			return shape{}, false
		}
		if _, ok := s.Op.(SplitAndMove); ok && geom.Near(m.To.Get(m.Axis), seg.Point(int(m.End)).Get(m.Axis)) {
			return shape{}, false
		}
	}
	return sh, true
}

// expand resolves the dependencies of every conditional axis the strategy
// moves and returns the cross-product of the strategy with their chains.
// A dependency that cannot be resolved discards the strategy.
func (g *Generator) expand(s LinkSegStrategy, sh shape, lv level) ([]chain, error) {
	chains := []chain{{s}}
	for _, m := range sh.moved {
		p := s.P0
		if m.End == linktree.EndPoint {
			p = s.P1
		}
		dof := p.Axis(m.Axis)
		if dof.Kind != Conditional {
			continue
		}
		if lv.stop {
			return nil, nil
		}
		for _, dep := range dof.Depends {
			subs, err := g.dependency(dep, s.Segment, m, lv.next())
			if err != nil {
				return nil, err
			}
			chains = g.merge(chains, subs)
			if len(chains) == 0 {
				return nil, nil
			}
		}
	}
	if lv.depth == 0 {
		g.count += len(chains)
	}
	return chains, nil
}

// dependency resolves segment dep after the corner it shares with owner
// moved to m.To.
func (g *Generator) dependency(dep, owner linktree.SegmentID, m movedPoint, lv level) ([]chain, error) {
	d, ok := g.tree.Segment(dep)
	if !ok {
		return nil, fmt.Errorf("%w: segment %d depends on unknown %d", ErrCorruptConstraint, owner, dep)
	}

	corner := linktree.StartPoint
	if g.tree.Parent(owner) == dep {
		corner = linktree.EndPoint
	}
	seg := d.Geometry().WithPoint(int(corner), m.To)

	key := memoKey{id: dep, corner: corner, seg: seg, stop: lv.stop}
	if c, ok := g.memo[key]; ok {
		return c, nil
	}

	var chains []chain
	if !seg.Diagonal() {
		chains = []chain{{LinkSegStrategy{Segment: dep, Op: Keep{}}}}
	} else {
		sd, err := g.lookup(dep)
		if err != nil {
			return nil, err
		}
		sd = sd.WithPoint(corner, pinned(geom.None))
		chains, err = g.solve(dep, seg, sd, lv)
		if err != nil {
			return nil, err
		}
	}
	g.count += len(chains)
	g.memo[key] = chains
	return chains, nil
}

// merge forms the cross-product of base and subs, dropping combinations
// that touch a segment twice or carry two variation-bearing strategies.
// It stops early once the strategy limit is reached.
func (g *Generator) merge(base, subs []chain) []chain {
	var out []chain
	for _, b := range base {
		for _, s := range subs {
			if g.count+len(out) >= g.limit {
				g.truncated = true
				return out
			}
			if !compatible(b, s) {
				continue
			}
			c := make(chain, 0, len(b)+len(s))
			c = append(append(c, b...), s...)
			out = append(out, c)
		}
	}
	return out
}

func compatible(a, b chain) bool {
	seen := make(map[linktree.SegmentID]bool, len(a))
	variations := 0
	for _, s := range a {
		seen[s.Segment] = true
		if s.HasVariations() {
			variations++
		}
	}
	for _, s := range b {
		if seen[s.Segment] {
			return false
		}
		if s.HasVariations() {
			variations++
		}
	}
	return variations <= 1
}

// travelAgrees reports whether the required direction dir points along
// the net travel vector.
func travelAgrees(dir geom.Direction, travel geom.Point) bool {
	if dir == geom.None {
		return true
	}
	return dir.Vector().Dot(travel) >= geom.Tolerance
}

// legMatches reports whether an orthogonal leg travels in the required
// direction.
func legMatches(dir geom.Direction, leg geom.Segment) bool {
	if dir == geom.None {
		return true
	}
	d, ok := leg.Direction()
	return ok && d == dir
}
