package ortho

import (
	"context"
	"errors"
	"slices"
	"strings"
	"testing"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/orthofix/pkg/geom"
	"github.com/matzehuels/orthofix/pkg/linktree"
)

func TestRepair(t *testing.T) {
	tests := []struct {
		name    string
		tree    func(*testing.T) *linktree.Tree
		pads    PadResolver
		grid    Grid
		opts    Options
		id      linktree.SegmentID
		outcome Outcome
		want    []string
	}{
		{
			name:    "free link prefers a corner over moving",
			tree:    direct,
			id:      1,
			outcome: OutcomeApplied,
			want:    []string{"(0,0)->(30,0)", "(30,0)->(30,40)"},
		},
		{
			name:    "min corners prefers moving",
			tree:    direct,
			opts:    Options{MinCorners: true},
			id:      1,
			outcome: OutcomeApplied,
			want:    []string{"(30,0)->(30,40)"},
		},
		{
			name:    "pads choose the corner",
			tree:    padded,
			pads:    eastSouth,
			id:      2,
			outcome: OutcomeApplied,
			want:    []string{"(0,0)->(30,0)", "(30,0)->(30,40)"},
		},
		{
			name:    "pad facing away",
			tree:    padded,
			pads:    pads{{Node: "a"}: geom.West},
			id:      2,
			outcome: OutcomeNotRepairable,
			want:    []string{"(0,0)->(30,40)"},
		},
		{
			name:    "only corner collides",
			tree:    padded,
			pads:    eastSouth,
			grid:    blockGrid(func(s geom.Segment) bool { return s.Bounds().Contains(geom.Pt(30, 0)) }),
			id:      2,
			outcome: OutcomeNotRepairable,
			want:    []string{"(0,0)->(30,40)"},
		},
		{
			name:    "existing collision is excused",
			tree:    fork,
			pads:    eastSouth,
			grid:    blockGrid(func(s geom.Segment) bool { return s == geom.Seg(geom.Pt(50, 0), geom.Pt(50, -40)) }),
			id:      3,
			outcome: OutcomeApplied,
			want:    []string{"(0,0)->(50,0)", "(50,0)->(80,0)", "(80,0)->(80,40)", "(50,0)->(50,-40)"},
		},
		{
			name:    "collision forces the other corner",
			tree:    fork,
			pads:    eastSouth,
			grid:    blockGrid(func(s geom.Segment) bool { return s == geom.Seg(geom.Pt(50, 0), geom.Pt(80, 0)) }),
			id:      3,
			outcome: OutcomeApplied,
			want:    []string{"(0,0)->(50,0)", "(50,0)->(50,40)", "(50,40)->(80,40)", "(50,0)->(50,-40)"},
		},
		{
			name:    "already orthogonal",
			tree:    fork,
			pads:    eastSouth,
			id:      2,
			outcome: OutcomeAlreadyOrthogonal,
			want:    []string{"(0,0)->(50,0)", "(50,0)->(80,40)", "(50,0)->(50,-40)"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := tt.tree(t)
			res, err := NewEngine(tt.opts).Repair(context.Background(), Scope{Tree: tr, Pads: tt.pads, Grid: tt.grid}, tt.id)
			if err != nil {
				t.Fatalf("Repair() = %v", err)
			}
			if res.Outcome != tt.outcome {
				t.Errorf("outcome = %s, want %s", res.Outcome, tt.outcome)
			}
			if got := geometry(tr); !slices.Equal(got, tt.want) {
				t.Errorf("geometry = %v, want %v", got, tt.want)
			}
			if err := tr.Validate(); err != nil {
				t.Errorf("Validate() = %v", err)
			}
			if res.Outcome == OutcomeApplied && res.Winner == nil {
				t.Error("applied result has no winner")
			}
		})
	}
}

func TestRepairResult(t *testing.T) {
	tr := padded(t)
	res, err := NewEngine(Options{}).Repair(context.Background(), Scope{Tree: tr, Pads: eastSouth}, 2)
	if err != nil {
		t.Fatal(err)
	}
	if !slices.Equal(res.NewSegments, []linktree.SegmentID{4}) {
		t.Errorf("NewSegments = %v", res.NewSegments)
	}
	if got := res.Splits[2]; got != (SplitSeg{Start: 2, End: 4}) {
		t.Errorf("Splits[2] = %+v", got)
	}
	if res.Stats != (Stats{Strategies: 1, Variations: 1, Accepted: 1}) {
		t.Errorf("Stats = %+v", res.Stats)
	}
	if res.Phase != PhaseApplied {
		t.Errorf("Phase = %s", res.Phase)
	}
}

func TestRepairKeepsOrthogonalSibling(t *testing.T) {
	tr := splay(t)
	res, err := NewEngine(Options{}).Repair(context.Background(), Scope{Tree: tr}, 3)
	if err != nil {
		t.Fatal(err)
	}
	if res.Outcome != OutcomeApplied {
		t.Fatalf("outcome = %s", res.Outcome)
	}
	if s, _ := tr.Segment(2); !s.Orthogonal() {
		t.Errorf("sibling 2 bent to %s", s.Geometry())
	}
	for _, id := range res.Splits.Resolve(3).Fragments() {
		if s, _ := tr.Segment(id); s.Diagonal() {
			t.Errorf("fragment %d still diagonal: %s", id, s.Geometry())
		}
	}
	// The unrelated diagonal 4 stays diagonal and must not sway the choice.
	if d := tr.Diagonal(); !slices.Equal(d, []linktree.SegmentID{4}) {
		t.Errorf("Diagonal() = %v, want [4]", d)
	}
	if err := tr.Validate(); err != nil {
		t.Errorf("Validate() = %v", err)
	}
}

func TestRepairUnknownSegment(t *testing.T) {
	_, err := NewEngine(Options{}).Repair(context.Background(), Scope{Tree: direct(t)}, 9)
	if !errors.Is(err, ErrUnknownSegment) {
		t.Errorf("err = %v, want ErrUnknownSegment", err)
	}
}

func TestRepairCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	tr := direct(t)
	_, err := NewEngine(Options{}).Repair(ctx, Scope{Tree: tr}, 1)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
	if got := geometry(tr); !slices.Equal(got, []string{"(0,0)->(30,40)"}) {
		t.Errorf("tree modified: %v", got)
	}
}

func TestCandidatesDeterministic(t *testing.T) {
	list := func(parallel int) []string {
		tr := direct(t)
		cands, _, err := NewEngine(Options{Parallelism: parallel}).Candidates(context.Background(), Scope{Tree: tr}, 1)
		if err != nil {
			t.Fatal(err)
		}
		out := make([]string, len(cands))
		for i, c := range cands {
			out[i] = c.String()
		}
		return out
	}
	seq, par := list(1), list(8)
	if !slices.Equal(seq, par) {
		t.Errorf("parallel order differs:\n%v\n%v", seq, par)
	}
	if len(seq) == 0 {
		t.Error("no candidates")
	}
}

func TestCandidatesSorted(t *testing.T) {
	tr := direct(t)
	cands, stats, err := NewEngine(Options{}).Candidates(context.Background(), Scope{Tree: tr}, 1)
	if err != nil {
		t.Fatal(err)
	}
	if stats.Strategies != 14 || stats.Accepted != len(cands) {
		t.Errorf("stats = %+v, %d candidates", stats, len(cands))
	}
	// The double split along x has four positions; along y the fourth
	// lands on the start and is dropped.
	if stats.Variations != 12+4+3 {
		t.Errorf("Variations = %d", stats.Variations)
	}
	for i := 1; i < len(cands); i++ {
		if cands[i].Ranking.Less(cands[i-1].Ranking) {
			t.Errorf("candidate %d ranks better than %d", i, i-1)
		}
	}
}

func TestSweep(t *testing.T) {
	tr := build(t,
		linktree.Segment{ID: 1, Kind: linktree.KindStartDrop, Start: geom.Pt(0, 0), End: geom.Pt(0, 0), StartPad: &linktree.PadRef{Node: "a"}},
		linktree.Segment{ID: 2, Parent: 1, Start: geom.Pt(0, 0), End: geom.Pt(30, 40)},
		linktree.Segment{ID: 3, Parent: 2, Start: geom.Pt(30, 40), End: geom.Pt(60, 80)},
		linktree.Segment{ID: 4, Kind: linktree.KindEndDrop, Parent: 3, Start: geom.Pt(60, 80), End: geom.Pt(60, 80), EndPad: &linktree.PadRef{Node: "b"}},
	)
	res, err := NewEngine(Options{}).Sweep(context.Background(), Scope{Tree: tr, Pads: eastSouth})
	if err != nil {
		t.Fatal(err)
	}

	if !slices.Equal(res.Repaired, []linktree.SegmentID{2, 3}) {
		t.Errorf("Repaired = %v", res.Repaired)
	}
	if len(res.NotRepairable) != 0 {
		t.Errorf("NotRepairable = %v", res.NotRepairable)
	}
	if !slices.Equal(res.NewSegments, []linktree.SegmentID{5, 6}) {
		t.Errorf("NewSegments = %v", res.NewSegments)
	}
	if !slices.Equal(res.Remap[2], []linktree.SegmentID{2, 5}) || !slices.Equal(res.Remap[3], []linktree.SegmentID{3, 6}) {
		t.Errorf("Remap = %v", res.Remap)
	}
	want := []string{"(0,0)->(30,0)", "(30,0)->(30,40)", "(30,40)->(60,40)", "(60,40)->(60,80)"}
	if got := geometry(tr); !slices.Equal(got, want) {
		t.Errorf("geometry = %v, want %v", got, want)
	}
	if d := tr.Diagonal(); len(d) != 0 {
		t.Errorf("still diagonal: %v", d)
	}
}

// bendOnSelect bends segment 3 the first time the engine logs a selected
// candidate, standing in for a segment that turns diagonal mid-sweep.
type bendOnSelect struct {
	tr   *linktree.Tree
	done bool
}

func (b *bendOnSelect) Write(p []byte) (int, error) {
	if !b.done && strings.Contains(string(p), "selected candidate") {
		b.done = true
		if err := b.tr.MovePoint(3, linktree.EndPoint, geom.Pt(0, -20)); err != nil {
			return 0, err
		}
	}
	return len(p), nil
}

func TestSweepRescansNewDiagonals(t *testing.T) {
	tr := build(t,
		linktree.Segment{ID: 1, Kind: linktree.KindStartDrop, Start: geom.Pt(0, 0), End: geom.Pt(0, 0), StartPad: &linktree.PadRef{Node: "a"}},
		linktree.Segment{ID: 2, Parent: 1, Start: geom.Pt(0, 0), End: geom.Pt(30, 40)},
		linktree.Segment{ID: 3, Parent: 1, Start: geom.Pt(0, 0), End: geom.Pt(-30, 0)},
	)
	w := &bendOnSelect{tr: tr}
	logger := log.NewWithOptions(w, log.Options{Level: log.DebugLevel})
	res, err := NewEngine(Options{Logger: logger}).Sweep(context.Background(), Scope{Tree: tr})
	if err != nil {
		t.Fatal(err)
	}
	if !w.done {
		t.Fatal("segment 3 was never bent")
	}
	if !slices.Equal(res.Repaired, []linktree.SegmentID{2, 3}) {
		t.Errorf("Repaired = %v, want [2 3]", res.Repaired)
	}
	if len(res.NotRepairable) != 0 {
		t.Errorf("NotRepairable = %v", res.NotRepairable)
	}
	if d := tr.Diagonal(); len(d) != 0 {
		t.Errorf("still diagonal: %v", d)
	}
}

func TestSweepReportsLeftovers(t *testing.T) {
	tr := padded(t)
	res, err := NewEngine(Options{}).Sweep(context.Background(), Scope{Tree: tr, Pads: pads{{Node: "a"}: geom.West}})
	if err != nil {
		t.Fatal(err)
	}
	if !slices.Equal(res.NotRepairable, []linktree.SegmentID{2}) {
		t.Errorf("NotRepairable = %v, want [2]", res.NotRepairable)
	}
	if len(res.Results) != 1 {
		t.Errorf("attempted %d repairs, want one", len(res.Results))
	}
}

func TestThreadRemap(t *testing.T) {
	remap := map[linktree.SegmentID][]linktree.SegmentID{2: {2, 5}}
	threadRemap(remap, SplitTable{5: {Start: 5, End: 7}})
	if !slices.Equal(remap[2], []linktree.SegmentID{2, 5, 7}) {
		t.Errorf("remap[2] = %v", remap[2])
	}
	if _, ok := remap[5]; ok {
		t.Error("fragment should not become its own entry")
	}
}

func TestOutcomeText(t *testing.T) {
	for _, o := range []Outcome{OutcomeApplied, OutcomeAlreadyOrthogonal, OutcomeNotRepairable} {
		b, _ := o.MarshalText()
		var got Outcome
		if err := got.UnmarshalText(b); err != nil || got != o {
			t.Errorf("round trip %s = %s, %v", o, got, err)
		}
	}
	var o Outcome
	if err := o.UnmarshalText([]byte("bogus")); err == nil {
		t.Error("UnmarshalText(bogus) should fail")
	}
}
