// Package ortho repairs diagonal link segments by rewriting them into
// axis-aligned paths.
//
// # Overview
//
// A link is a tree of segments ([linktree.Tree]). When a node moves, the
// segments attached to it may end up diagonal. The [Engine] rewrites one
// such segment at a time with the fewest side effects, keeping pads
// attached and respecting the directions they impose.
//
// # Pipeline
//
// A repair runs in fixed phases:
//
//  1. [Analyze] derives a [DegreeOfFreedom] for each axis of each endpoint.
//     Endpoints on pads are fixed; corners shared with orthogonal segments
//     may move only if those segments can follow.
//  2. The [Generator] enumerates [TreeStrategy] candidates. Each pairs an
//     [Operation] on the diagonal segment with the rewrites its
//     dependencies need, recursing at most two levels deep.
//  3. Every strategy is materialized into concrete [FixOrthoPlan] edit
//     lists. A [DoubleSplit] yields one variation per candidate position of
//     its middle leg (see [VariationPositions]).
//  4. Each variation is replayed on a scratch copy, rejected if it adds a
//     collision or pad-direction violation, and scored as a [PlanRanking].
//  5. The best variation is applied to the real tree.
//
// Finding nothing viable is a normal outcome ([OutcomeNotRepairable]);
// errors are reserved for corrupt input.
//
// # Usage
//
//	eng := ortho.NewEngine(ortho.Options{GridSize: 10})
//	res, err := eng.Repair(ctx, ortho.Scope{Tree: tree, Pads: diagram, Grid: index}, id)
//
// [Engine.Sweep] repairs every diagonal segment of a tree, following the
// fragments of segments split by earlier repairs.
package ortho
