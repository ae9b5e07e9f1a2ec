package linktree_test

import (
	"fmt"

	"github.com/matzehuels/orthofix/pkg/geom"
	"github.com/matzehuels/orthofix/pkg/linktree"
)

func ExampleTree_Split() {
	t := linktree.New("link")
	_ = t.Add(linktree.Segment{ID: 1, Start: geom.Pt(0, 0), End: geom.Pt(30, 40)})

	head, tail, _ := t.Split(1, geom.Pt(30, 0))
	for _, id := range []linktree.SegmentID{head, tail} {
		s, _ := t.Segment(id)
		fmt.Println(id, s.Geometry(), s.Orthogonal())
	}
	// Output:
	// 1 (0,0)->(30,0) true
	// 2 (30,0)->(30,40) true
}
