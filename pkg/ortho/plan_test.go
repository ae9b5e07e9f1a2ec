package ortho

import (
	"errors"
	"slices"
	"testing"

	"github.com/matzehuels/orthofix/pkg/geom"
	"github.com/matzehuels/orthofix/pkg/linktree"
)

func TestVariationPositions(t *testing.T) {
	tests := []struct {
		name   string
		a0, a1 float64
		span   float64
		grid   float64
		want   []float64
	}{
		{"ascending", 0, 30, 30, 10, []float64{15, 5, 25}},
		{"descending", 30, 0, 30, 10, []float64{15, 25, 5}},
		{"longer other side", 0, 30, 40, 10, []float64{15, 5, 25, -5}},
		{"endpoint dropped", 0, 40, 40, 10, []float64{20, 10, 30}},
		{"endpoints off grid", 3, 27, 24, 10, []float64{15, 5}},
		{"no grid", 0, 30, 30, 0, []float64{15}},
		{"narrow", 0, 8, 8, 10, []float64{4}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := VariationPositions(tt.a0, tt.a1, tt.span, tt.grid); !slices.Equal(got, tt.want) {
				t.Errorf("VariationPositions(%g, %g, %g, %g) = %v, want %v", tt.a0, tt.a1, tt.span, tt.grid, got, tt.want)
			}
		})
	}
}

func TestVariationCount(t *testing.T) {
	seg := geom.Seg(geom.Pt(0, 0), geom.Pt(30, 40))
	tests := []struct {
		name string
		op   Operation
		want int
	}{
		{"single move", SingleMove{linktree.EndPoint, geom.X}, 1},
		{"double split x", DoubleSplit{geom.X}, 4},
		{"double split y", DoubleSplit{geom.Y}, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := (LinkSegStrategy{Segment: 1, Op: tt.op}).VariationCount(seg, DefaultGridSize); got != tt.want {
				t.Errorf("VariationCount() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestMaterialize(t *testing.T) {
	seg := geom.Seg(geom.Pt(0, 0), geom.Pt(30, 40))
	tests := []struct {
		name string
		op   Operation
		want []OrthoCommand
	}{
		{"keep", Keep{}, nil},
		{"single move", SingleMove{linktree.EndPoint, geom.Y}, []OrthoCommand{
			MovePoint{End: linktree.EndPoint, Axis: geom.Y, Delta: -40},
		}},
		{"single split", SingleSplit{geom.Y}, []OrthoCommand{
			CreateSplit{Slot: 0, Position: geom.Pt(0, 40)},
		}},
		{"split and move", SplitAndMove{geom.X, linktree.EndPoint}, []OrthoCommand{
			MovePoint{End: linktree.EndPoint, Axis: geom.X, Delta: -10},
			CreateSplit{Slot: 0, Position: geom.Pt(20, 0)},
		}},
		{"double split", DoubleSplit{geom.X}, []OrthoCommand{
			CreateSplit{Slot: 0, Position: geom.Pt(15, 0)},
			CreateSplit{Slot: 1, Position: geom.Pt(15, 40)},
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plan, err := LinkSegStrategy{Segment: 1, Op: tt.op}.Materialize(seg, 0, 1, DefaultGridSize)
			if err != nil {
				t.Fatal(err)
			}
			if !slices.Equal(plan.Commands, tt.want) {
				t.Errorf("commands = %v, want %v", plan.Commands, tt.want)
			}
		})
	}
}

func TestMaterializeTinyMove(t *testing.T) {
	seg := geom.Seg(geom.Pt(0, 0), geom.Pt(0.05, 40))
	plan, err := LinkSegStrategy{Segment: 1, Op: SingleMove{linktree.EndPoint, geom.X}}.Materialize(seg, 0, 1, DefaultGridSize)
	if err != nil {
		t.Fatal(err)
	}
	if !plan.Empty() {
		t.Errorf("commands = %v, want none below tolerance", plan.Commands)
	}
}

func TestMaterializeOutOfRange(t *testing.T) {
	seg := geom.Seg(geom.Pt(0, 0), geom.Pt(30, 40))
	s := LinkSegStrategy{Segment: 1, Op: DoubleSplit{geom.X}}
	if _, err := s.Materialize(seg, 4, 4, DefaultGridSize); !errors.Is(err, ErrVariationOutOfRange) {
		t.Errorf("err = %v, want ErrVariationOutOfRange", err)
	}
}

func TestPlanApplySingleMoves(t *testing.T) {
	seg := geom.Seg(geom.Pt(0, 0), geom.Pt(30, 40))
	tests := []struct {
		name string
		op   SingleMove
		want string
	}{
		{"start x", SingleMove{linktree.StartPoint, geom.X}, "(30,0)->(30,40)"},
		{"start y", SingleMove{linktree.StartPoint, geom.Y}, "(0,40)->(30,40)"},
		{"end x", SingleMove{linktree.EndPoint, geom.X}, "(0,0)->(0,40)"},
		{"end y", SingleMove{linktree.EndPoint, geom.Y}, "(0,0)->(30,0)"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := direct(t)
			plan, err := LinkSegStrategy{Segment: 1, Op: tt.op}.Materialize(seg, 0, 1, DefaultGridSize)
			if err != nil {
				t.Fatal(err)
			}
			if len(plan.Commands) != 1 {
				t.Fatalf("commands = %v, want one move", plan.Commands)
			}
			if _, err := plan.Apply(tr, SplitTable{}); err != nil {
				t.Fatal(err)
			}
			s, ok := tr.Segment(1)
			if !ok {
				t.Fatal("segment 1 missing")
			}
			if s.Diagonal() {
				t.Errorf("segment still diagonal: %s", s.Geometry())
			}
			if got := geometry(tr); !slices.Equal(got, []string{tt.want}) {
				t.Errorf("geometry = %v, want %s", got, tt.want)
			}
		})
	}
}

func TestPlanApplyDoubleSplit(t *testing.T) {
	tr := direct(t)
	seg := geom.Seg(geom.Pt(0, 0), geom.Pt(30, 40))
	plan, err := LinkSegStrategy{Segment: 1, Op: DoubleSplit{geom.X}}.Materialize(seg, 1, 4, DefaultGridSize)
	if err != nil {
		t.Fatal(err)
	}
	if plan.Splits() != 2 {
		t.Errorf("Splits() = %d", plan.Splits())
	}

	table := SplitTable{}
	minted, err := plan.Apply(tr, table)
	if err != nil {
		t.Fatal(err)
	}
	if !slices.Equal(minted, []linktree.SegmentID{2, 3}) {
		t.Errorf("minted = %v", minted)
	}
	if got, want := table[1], (SplitSeg{Start: 1, Middle: 2, End: 3}); got != want {
		t.Errorf("table[1] = %+v, want %+v", got, want)
	}
	want := []string{"(0,0)->(5,0)", "(5,0)->(5,40)", "(5,40)->(30,40)"}
	if got := geometry(tr); !slices.Equal(got, want) {
		t.Errorf("geometry = %v, want %v", got, want)
	}
	if err := tr.Validate(); err != nil {
		t.Errorf("Validate() = %v", err)
	}
	if got := table.Origin(3); got != 1 {
		t.Errorf("Origin(3) = %d", got)
	}
}

func TestSplitSegFragments(t *testing.T) {
	tests := []struct {
		name string
		seg  SplitSeg
		want []linktree.SegmentID
	}{
		{"unsplit", SplitSeg{Start: 4, End: 4}, []linktree.SegmentID{4}},
		{"once", SplitSeg{Start: 4, End: 9}, []linktree.SegmentID{4, 9}},
		{"twice", SplitSeg{Start: 4, Middle: 9, End: 10}, []linktree.SegmentID{4, 9, 10}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.seg.Fragments(); !slices.Equal(got, tt.want) {
				t.Errorf("Fragments() = %v, want %v", got, tt.want)
			}
		})
	}
}
