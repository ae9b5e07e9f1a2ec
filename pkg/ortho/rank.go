package ortho

import (
	"cmp"
	"fmt"
	"math"
)

// rankQuantum is the resolution at which ranking floats compare equal.
const rankQuantum = 1e-6

// PlanRanking scores one variation. Lower is better.
type PlanRanking struct {
	// NonOrthogonalArea is the swept area of diagonal geometry left after
	// the edit. Anything above zero marks a flawed candidate.
	NonOrthogonalArea float64
	// SplitCount is the number of corners inserted.
	SplitCount int
	// Displacement is the total distance endpoints moved.
	Displacement float64
	// MinCornersPreferred ranks SplitCount ahead of Displacement.
	MinCornersPreferred bool
}

// Compare orders r against o: -1 if r is better, 1 if worse, 0 if equal.
// Residual area always decides first. With MinCornersPreferred (taken from
// r) split count breaks ties before displacement, otherwise after.
// Floats are compared after rounding to a fixed quantum, so Compare is a
// strict weak ordering.
func (r PlanRanking) Compare(o PlanRanking) int {
	if c := cmp.Compare(quantize(r.NonOrthogonalArea), quantize(o.NonOrthogonalArea)); c != 0 {
		return c
	}
	splits := cmp.Compare(r.SplitCount, o.SplitCount)
	disp := cmp.Compare(quantize(r.Displacement), quantize(o.Displacement))
	if r.MinCornersPreferred {
		return cmp.Or(splits, disp)
	}
	return cmp.Or(disp, splits)
}

// Less reports whether r ranks strictly better than o.
func (r PlanRanking) Less(o PlanRanking) bool { return r.Compare(o) < 0 }

func (r PlanRanking) String() string {
	return fmt.Sprintf("area=%g splits=%d displacement=%.1f", r.NonOrthogonalArea, r.SplitCount, r.Displacement)
}

func quantize(v float64) float64 { return math.Round(v / rankQuantum) }
