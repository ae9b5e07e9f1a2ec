// Package linktree models branching links as id-indexed segment trees.
//
// # Overview
//
// A link leaves a source pad and may fan out into several branches before
// reaching its target pads. Each straight piece is a [Segment]; segments are
// stored in a [Tree] keyed by [SegmentID] and reference each other only by
// id (parent and ordered children), never by pointer. A child always starts
// where its parent ends, so a branch point is the shared end of one parent
// and the start of each child.
//
// # Segment Kinds
//
//   - [KindOrdinary]: an interior piece of a link
//   - [KindDirect]: a single segment making up the whole link
//   - [KindStartDrop]: the zero-length root anchor at the source pad
//   - [KindEndDrop]: a zero-length connector from a branch point to a target pad
//
// Drops carry the [PadRef] they attach to; the segment adjacent to a drop
// inherits that pad's direction constraint.
//
// # Editing
//
// [Tree.MovePoint] moves a corner and every segment end that shares it.
// [Tree.Split] inserts a new corner, keeping the original id for the head
// half and minting a fresh id for the tail half. [Tree.Clone] produces an
// independent copy for scratch evaluation.
//
// # Diagrams
//
// A [Diagram] holds nodes (rectangles with pads) and the link trees between
// them, and resolves pad directions for the repair engine.
package linktree
