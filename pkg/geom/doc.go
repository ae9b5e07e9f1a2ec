// Package geom provides the planar geometry used by the link repair engine.
//
// # Coordinates
//
// Diagrams use screen coordinates: X grows to the right, Y grows downward.
// [Point] doubles as a displacement vector; [Axis] selects one coordinate.
//
// # Directions
//
// A [Direction] is one of the four canonical compass vectors. [Canonical]
// classifies an arbitrary vector, which is how the engine decides whether a
// segment is orthogonal and which way it travels:
//
//	d, ok := geom.Canonical(seg.Delta())
//	if ok && d == geom.East {
//		// horizontal, left to right
//	}
//
// # Tolerance
//
// Layout coordinates are floats that pass through user edits and grid
// snapping, so every comparison goes through [Tolerance]. Two coordinates
// closer than [Tolerance] are the same coordinate.
package geom
