package ortho

import (
	"testing"

	"github.com/matzehuels/orthofix/pkg/geom"
	"github.com/matzehuels/orthofix/pkg/linktree"
)

// pads maps pad references to their outward directions.
type pads map[linktree.PadRef]geom.Direction

func (p pads) PadDirection(ref linktree.PadRef) (geom.Direction, bool) {
	d, ok := p[ref]
	return d, ok
}

// blockGrid rejects every segment for which blocked returns true.
type blockGrid func(geom.Segment) bool

func (g blockGrid) Allowed(s geom.Segment, _ linktree.EndpointRoles, _ []string) bool {
	return !g(s)
}

func build(t *testing.T, segs ...linktree.Segment) *linktree.Tree {
	t.Helper()
	tr := linktree.New("l1")
	for _, s := range segs {
		if err := tr.Add(s); err != nil {
			t.Fatalf("Add(%d): %v", s.ID, err)
		}
	}
	return tr
}

// direct is a lone diagonal link (0,0)->(30,40) with no pads.
func direct(t *testing.T) *linktree.Tree {
	return build(t, linktree.Segment{ID: 1, Kind: linktree.KindDirect, Start: geom.Pt(0, 0), End: geom.Pt(30, 40)})
}

// padded is (0,0)->(30,40) leaving a#0 and entering b#0.
func padded(t *testing.T) *linktree.Tree {
	a, b := &linktree.PadRef{Node: "a"}, &linktree.PadRef{Node: "b"}
	return build(t,
		linktree.Segment{ID: 1, Kind: linktree.KindStartDrop, Start: geom.Pt(0, 0), End: geom.Pt(0, 0), StartPad: a},
		linktree.Segment{ID: 2, Parent: 1, Start: geom.Pt(0, 0), End: geom.Pt(30, 40)},
		linktree.Segment{ID: 3, Kind: linktree.KindEndDrop, Parent: 2, Start: geom.Pt(30, 40), End: geom.Pt(30, 40), EndPad: b},
	)
}

// fork builds:
//
//	1 anchor at a#0 (0,0)
//	2 (0,0)->(50,0)
//	3 (50,0)->(80,40)  diagonal
//	4 (50,0)->(50,-40)
func fork(t *testing.T) *linktree.Tree {
	return build(t,
		linktree.Segment{ID: 1, Kind: linktree.KindStartDrop, Start: geom.Pt(0, 0), End: geom.Pt(0, 0), StartPad: &linktree.PadRef{Node: "a"}},
		linktree.Segment{ID: 2, Parent: 1, Start: geom.Pt(0, 0), End: geom.Pt(50, 0)},
		linktree.Segment{ID: 3, Parent: 2, Start: geom.Pt(50, 0), End: geom.Pt(80, 40)},
		linktree.Segment{ID: 4, Parent: 2, Start: geom.Pt(50, 0), End: geom.Pt(50, -40)},
	)
}

// splay hangs three siblings off an unpadded root anchor at (0,0):
//
//	2 (0,0)->(-30,0)
//	3 (0,0)->(-37,7)   diagonal
//	4 (0,0)->(43,57)   diagonal
func splay(t *testing.T) *linktree.Tree {
	return build(t,
		linktree.Segment{ID: 1, Kind: linktree.KindStartDrop, Start: geom.Pt(0, 0), End: geom.Pt(0, 0)},
		linktree.Segment{ID: 2, Parent: 1, Start: geom.Pt(0, 0), End: geom.Pt(-30, 0)},
		linktree.Segment{ID: 3, Parent: 1, Start: geom.Pt(0, 0), End: geom.Pt(-37, 7)},
		linktree.Segment{ID: 4, Parent: 1, Start: geom.Pt(0, 0), End: geom.Pt(43, 57)},
	)
}

// eastSouth has a#0 facing east and b#0 facing north, so a link from a to
// b below and to the right must leave east and arrive heading south.
var eastSouth = pads{{Node: "a"}: geom.East, {Node: "b"}: geom.North}

func geometry(tr *linktree.Tree) []string {
	var out []string
	for _, s := range tr.Segments() {
		if !s.Kind.IsDrop() {
			out = append(out, s.Geometry().String())
		}
	}
	return out
}
