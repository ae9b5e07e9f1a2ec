// Package occupancy answers "may this segment go here" for the repair
// engine. It indexes node rectangles and the segments of other links in an
// R-tree and applies the diagram's crossing rules on top of the candidate
// set the tree returns.
package occupancy

import (
	"errors"
	"fmt"
	"math"
	"slices"

	"github.com/dhconnelly/rtreego"

	"github.com/matzehuels/orthofix/pkg/geom"
	"github.com/matzehuels/orthofix/pkg/linktree"
)

// ErrEmptyGroup is returned when an entry is added without a node or link id.
var ErrEmptyGroup = errors.New("occupancy entry needs a group id")

const (
	minBranch = 25
	maxBranch = 50
)

// Kind distinguishes the obstacles held by an [Index].
type Kind int

const (
	KindNode Kind = iota
	KindSegment
)

func (k Kind) String() string {
	if k == KindNode {
		return "node"
	}
	return "segment"
}

// Obstacle is one indexed entry: a node rectangle or a settled segment of
// some link. Group is the node id or the link id.
type Obstacle struct {
	Kind    Kind
	Group   string
	Rect    geom.Rect
	Segment geom.Segment

	bounds rtreego.Rect
}

// Bounds implements rtreego.Spatial.
func (o *Obstacle) Bounds() rtreego.Rect { return o.bounds }

func (o *Obstacle) String() string {
	if o.Kind == KindNode {
		return fmt.Sprintf("node %s", o.Group)
	}
	return fmt.Sprintf("link %s %s", o.Group, o.Segment)
}

// Index is a spatial index of obstacles. Build it once per request; after
// that it is read-only and safe for concurrent queries.
type Index struct {
	tree *rtreego.Rtree
	size int
}

// NewIndex creates an empty index.
func NewIndex() *Index {
	return &Index{tree: rtreego.NewTree(2, minBranch, maxBranch)}
}

// Build indexes every node of d and every orthogonal segment of its links,
// skipping the links named in exclude. The link under repair is normally
// excluded: its own segments are checked by the engine through the
// pass-through list.
func Build(d *linktree.Diagram, exclude ...string) (*Index, error) {
	ix := NewIndex()
	for _, n := range d.Nodes() {
		if err := ix.AddNode(n.ID, n.Bounds); err != nil {
			return nil, err
		}
	}
	for _, t := range d.Links() {
		if slices.Contains(exclude, t.Link()) {
			continue
		}
		for _, s := range t.Segments() {
			if !s.Orthogonal() {
				continue
			}
			if err := ix.AddSegment(t.Link(), s.Geometry()); err != nil {
				return nil, err
			}
		}
	}
	return ix, nil
}

// Len returns the number of indexed obstacles.
func (ix *Index) Len() int { return ix.size }

// AddNode indexes a node rectangle.
func (ix *Index) AddNode(id string, r geom.Rect) error {
	if id == "" {
		return ErrEmptyGroup
	}
	b, err := bounds(r)
	if err != nil {
		return fmt.Errorf("node %s: %w", id, err)
	}
	ix.tree.Insert(&Obstacle{Kind: KindNode, Group: id, Rect: r, bounds: b})
	ix.size++
	return nil
}

// AddSegment indexes a settled segment of link.
func (ix *Index) AddSegment(link string, s geom.Segment) error {
	if link == "" {
		return ErrEmptyGroup
	}
	b, err := bounds(s.Bounds())
	if err != nil {
		return fmt.Errorf("link %s: %w", link, err)
	}
	ix.tree.Insert(&Obstacle{Kind: KindSegment, Group: link, Segment: s, Rect: s.Bounds(), bounds: b})
	ix.size++
	return nil
}

// Allowed reports whether seg may be placed. It implements ortho.Grid.
//
// A segment may not cross the interior of a node unless the node is one
// of its endpoint roles or is listed in passThrough; touching a border is
// fine. It may not run along a segment of another link for more than the
// tolerance unless that link is listed in passThrough. Crossing another
// link at a point is allowed.
func (ix *Index) Allowed(seg geom.Segment, roles linktree.EndpointRoles, passThrough []string) bool {
	return len(ix.collisions(seg, roles, passThrough, 1)) == 0
}

// Collisions returns every obstacle seg would violate, for diagnostics.
func (ix *Index) Collisions(seg geom.Segment, roles linktree.EndpointRoles, passThrough []string) []*Obstacle {
	return ix.collisions(seg, roles, passThrough, math.MaxInt)
}

func (ix *Index) collisions(seg geom.Segment, roles linktree.EndpointRoles, pass []string, limit int) []*Obstacle {
	q, err := bounds(seg.Bounds())
	if err != nil {
		return nil
	}
	var out []*Obstacle
	for _, sp := range ix.tree.SearchIntersect(q) {
		o := sp.(*Obstacle)
		if slices.Contains(pass, o.Group) {
			continue
		}
		var hit bool
		switch o.Kind {
		case KindNode:
			hit = o.Group != roles.Start && o.Group != roles.End && crossesInterior(seg, o.Rect)
		case KindSegment:
			hit = overlapsAlong(seg, o.Segment)
		}
		if hit {
			out = append(out, o)
			if len(out) >= limit {
				break
			}
		}
	}
	return out
}

// bounds converts r to an R-tree rectangle grown by the tolerance, which
// also gives zero-width segments a positive extent.
func bounds(r geom.Rect) (rtreego.Rect, error) {
	g := r.Inset(-geom.Tolerance)
	return rtreego.NewRect(rtreego.Point{g.Min.X, g.Min.Y}, []float64{g.Width(), g.Height()})
}

// crossesInterior reports whether seg passes through r shrunk by the
// tolerance, using Liang-Barsky clipping.
func crossesInterior(seg geom.Segment, r geom.Rect) bool {
	in := r.Inset(geom.Tolerance)
	if in.Empty() {
		return false
	}
	d := seg.Delta()
	t0, t1 := 0.0, 1.0
	clip := func(p, q float64) bool {
		if p == 0 {
			return q > 0
		}
		t := q / p
		if p < 0 {
			if t > t1 {
				return false
			}
			t0 = max(t0, t)
		} else {
			if t < t0 {
				return false
			}
			t1 = min(t1, t)
		}
		return true
	}
	return clip(-d.X, seg.A.X-in.Min.X) &&
		clip(d.X, in.Max.X-seg.A.X) &&
		clip(-d.Y, seg.A.Y-in.Min.Y) &&
		clip(d.Y, in.Max.Y-seg.A.Y) &&
		t1-t0 > 0
}

// overlapsAlong reports whether two orthogonal segments run along the same
// line and share more than the tolerance of it.
func overlapsAlong(a, b geom.Segment) bool {
	ra, ok1 := a.RunAxis()
	rb, ok2 := b.RunAxis()
	if !ok1 || !ok2 || ra != rb || a.Degenerate() || b.Degenerate() {
		return false
	}
	across := ra.Other()
	if !geom.Near(a.A.Get(across), b.A.Get(across)) {
		return false
	}
	lo := max(min(a.A.Get(ra), a.B.Get(ra)), min(b.A.Get(ra), b.B.Get(ra)))
	hi := min(max(a.A.Get(ra), a.B.Get(ra)), max(b.A.Get(ra), b.B.Get(ra)))
	return hi-lo > geom.Tolerance
}
