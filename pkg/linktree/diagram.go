package linktree

import (
	"errors"
	"fmt"

	"github.com/matzehuels/orthofix/pkg/geom"
)

var (
	// ErrInvalidNodeID is returned by [Diagram.AddNode] for an empty id.
	ErrInvalidNodeID = errors.New("node ID must not be empty")

	// ErrDuplicateNode is returned by [Diagram.AddNode] when the id is taken.
	ErrDuplicateNode = errors.New("duplicate node ID")

	// ErrDuplicateLink is returned by [Diagram.AddLink] when the id is taken.
	ErrDuplicateLink = errors.New("duplicate link ID")

	// ErrUnknownLink is returned when a link id is not in the diagram.
	ErrUnknownLink = errors.New("unknown link")

	// ErrUnknownPad is returned by [Diagram.Validate] when a segment
	// references a node or pad that does not exist.
	ErrUnknownPad = errors.New("unknown pad")
)

// Pad is an attachment point on a node's border. Dir is the outward
// direction a link must leave along (and the reverse of the direction it
// must arrive with).
type Pad struct {
	Offset geom.Point     // relative to the node's top-left corner
	Dir    geom.Direction // outward normal
}

// Node is a rectangular diagram element that links attach to.
type Node struct {
	ID     string
	Bounds geom.Rect
	Pads   []Pad
}

// PadPosition returns the absolute position of pad i.
func (n *Node) PadPosition(i int) (geom.Point, bool) {
	if i < 0 || i >= len(n.Pads) {
		return geom.Point{}, false
	}
	return n.Bounds.Min.Add(n.Pads[i].Offset), true
}

// Diagram is a set of nodes and the link trees connecting them.
type Diagram struct {
	nodes     map[string]*Node
	nodeOrder []string
	links     map[string]*Tree
	linkOrder []string
}

// NewDiagram creates an empty diagram.
func NewDiagram() *Diagram {
	return &Diagram{nodes: make(map[string]*Node), links: make(map[string]*Tree)}
}

// AddNode inserts a node.
func (d *Diagram) AddNode(n Node) error {
	if n.ID == "" {
		return ErrInvalidNodeID
	}
	if _, ok := d.nodes[n.ID]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateNode, n.ID)
	}
	n.Pads = append([]Pad(nil), n.Pads...)
	d.nodes[n.ID] = &n
	d.nodeOrder = append(d.nodeOrder, n.ID)
	return nil
}

// AddLink inserts a link tree, keyed by its link id.
func (d *Diagram) AddLink(t *Tree) error {
	if _, ok := d.links[t.Link()]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateLink, t.Link())
	}
	d.links[t.Link()] = t
	d.linkOrder = append(d.linkOrder, t.Link())
	return nil
}

// Node returns the node with the given id.
func (d *Diagram) Node(id string) (*Node, bool) {
	n, ok := d.nodes[id]
	return n, ok
}

// Link returns the tree of the given link.
func (d *Diagram) Link(id string) (*Tree, bool) {
	t, ok := d.links[id]
	return t, ok
}

// Nodes returns all nodes in insertion order.
func (d *Diagram) Nodes() []*Node {
	out := make([]*Node, len(d.nodeOrder))
	for i, id := range d.nodeOrder {
		out[i] = d.nodes[id]
	}
	return out
}

// Links returns all link trees in insertion order.
func (d *Diagram) Links() []*Tree {
	out := make([]*Tree, len(d.linkOrder))
	for i, id := range d.linkOrder {
		out[i] = d.links[id]
	}
	return out
}

// PadDirection returns the outward direction of the referenced pad.
func (d *Diagram) PadDirection(ref PadRef) (geom.Direction, bool) {
	n, ok := d.nodes[ref.Node]
	if !ok || ref.Pad < 0 || ref.Pad >= len(n.Pads) {
		return geom.None, false
	}
	return n.Pads[ref.Pad].Dir, true
}

// Validate checks every link tree and every pad reference.
func (d *Diagram) Validate() error {
	for _, t := range d.Links() {
		if err := t.Validate(); err != nil {
			return fmt.Errorf("link %s: %w", t.Link(), err)
		}
		for _, s := range t.Segments() {
			for _, e := range Endpoints {
				ref := s.Pad(e)
				if ref == nil {
					continue
				}
				if _, ok := d.PadDirection(*ref); !ok {
					return fmt.Errorf("link %s segment %d: %w: %s", t.Link(), s.ID, ErrUnknownPad, ref)
				}
			}
		}
	}
	return nil
}

// Clone returns a deep copy of the diagram.
func (d *Diagram) Clone() *Diagram {
	c := NewDiagram()
	for _, n := range d.Nodes() {
		_ = c.AddNode(*n)
	}
	for _, t := range d.Links() {
		_ = c.AddLink(t.Clone())
	}
	return c
}
