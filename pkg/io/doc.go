// Package io provides JSON import and export for diagrams and repair
// reports.
//
// # JSON Format
//
// A diagram has two top-level arrays:
//
//	{
//	  "nodes": [
//	    {"id": "a", "x": -20, "y": -10, "width": 20, "height": 20,
//	     "pads": [{"x": 20, "y": 10, "dir": "east"}]}
//	  ],
//	  "links": [
//	    {"id": "a->b", "segments": [
//	      {"id": 1, "kind": "start-drop", "start": {"x": 0, "y": 0}, "end": {"x": 0, "y": 0}, "start_pad": "a#0"},
//	      {"id": 2, "parent": 1, "start": {"x": 0, "y": 0}, "end": {"x": 30, "y": 40}}
//	    ]}
//	  ]
//	}
//
// Node x and y are the top-left corner; pad x and y are relative to it.
// Pad directions are the outward normal: "east", "south", "west" or
// "north". Coordinates grow east and south.
//
// Segment kinds are "ordinary" (the default), "direct", "start-drop" and
// "end-drop". Pad references are written "node#index". Segments may be
// listed in any order; export always writes them in preorder.
//
// # Import and Export
//
// [ReadJSON] and [ImportJSON] decode and validate a diagram. Invalid ids
// and non-finite coordinates are reported as structured errors with code
// INVALID_DIAGRAM; structural problems (missing parents, detached
// segments, unknown pads) wrap the linktree sentinel errors.
//
// [WriteJSON], [ExportJSON] and [MarshalDiagram] encode a diagram. The
// encoding is deterministic, so [MarshalDiagram] output doubles as the
// input to cache key hashing.
//
// # Reports
//
// [Report] is the serialized result of a repair or sweep. The HTTP server
// returns it and the cache stores it; [FromRepairResult] and
// [FromSweepResult] build it from engine results.
package io
