// Package pkg provides the core libraries for Orthofix link repair.
//
// # Overview
//
// Orthofix rewrites diagonal segments of diagram links into horizontal and
// vertical runs. A link is a tree of segments anchored to node pads; the
// engine moves endpoints and inserts corners so that every repaired
// segment is orthogonal, pad directions are honored, and nothing new
// crosses a node or another link. The pkg directory is organized into
// three areas:
//
//  1. Model - geometry and the segment tree ([geom], [linktree])
//  2. Engine - constraint analysis, strategy search and repair ([ortho],
//     [occupancy], [explain])
//  3. Plumbing - serialization, orchestration and caching ([io],
//     [pipeline], [cache], [errors], [observability])
//
// # Architecture
//
// The typical data flow:
//
//	diagram.json
//	     ↓
//	[io] package (decode and validate)
//	     ↓
//	[occupancy] package (index nodes and the other links)
//	     ↓
//	[ortho] package (analyze → generate → filter → rank → apply)
//	     ↓
//	[io] package (report + repaired diagram)
//
// [pipeline] wraps these steps with caching and is what the CLI and the
// HTTP server call.
//
// # Quick Start
//
// Repair every diagonal segment of one link:
//
//	import (
//	    "context"
//	    "github.com/matzehuels/orthofix/pkg/io"
//	    "github.com/matzehuels/orthofix/pkg/pipeline"
//	)
//
//	d, _ := io.ImportJSON("diagram.json")
//	runner := pipeline.NewRunner(nil, nil, nil)
//	res, _ := runner.Execute(context.Background(), d, pipeline.Options{
//	    Mode: pipeline.ModeSweep,
//	    Link: "a->b",
//	})
//	_ = io.ExportJSON(res.Diagram, "fixed.json")
//
// # Main Packages
//
// ## Model
//
// [geom] - Points, segments, axes and compass directions with a shared
// coordinate tolerance.
//
// [linktree] - The segment tree of a link and the diagram that holds nodes,
// pads and links. Edits (move an endpoint, split a segment) keep connected
// endpoints together.
//
// ## Engine
//
// [ortho] - Degree-of-freedom analysis, strategy generation, plan
// materialization, collision filtering, ranking, and the [ortho.Engine]
// that ties them together.
//
// [occupancy] - R-tree index of node rectangles and foreign link segments,
// used by the engine to reject colliding candidates.
//
// [explain] - Graphviz rendering of a link's constraint graph.
//
// ## Plumbing
//
// [io] - JSON wire format for diagrams and repair reports.
//
// [pipeline] - Cached, deduplicated execution of repairs for the CLI and
// server.
//
// [cache] - File, Redis and no-op caches plus key derivation.
//
// [errors] - Coded errors shared by the CLI and the HTTP API.
//
// [observability] - Pluggable hooks for repair, cache and HTTP events.
//
// [buildinfo] - Version information injected at build time.
//
// [geom]: https://pkg.go.dev/github.com/matzehuels/orthofix/pkg/geom
// [linktree]: https://pkg.go.dev/github.com/matzehuels/orthofix/pkg/linktree
// [ortho]: https://pkg.go.dev/github.com/matzehuels/orthofix/pkg/ortho
// [ortho.Engine]: https://pkg.go.dev/github.com/matzehuels/orthofix/pkg/ortho#Engine
// [occupancy]: https://pkg.go.dev/github.com/matzehuels/orthofix/pkg/occupancy
// [explain]: https://pkg.go.dev/github.com/matzehuels/orthofix/pkg/explain
// [io]: https://pkg.go.dev/github.com/matzehuels/orthofix/pkg/io
// [pipeline]: https://pkg.go.dev/github.com/matzehuels/orthofix/pkg/pipeline
// [cache]: https://pkg.go.dev/github.com/matzehuels/orthofix/pkg/cache
// [errors]: https://pkg.go.dev/github.com/matzehuels/orthofix/pkg/errors
// [observability]: https://pkg.go.dev/github.com/matzehuels/orthofix/pkg/observability
// [buildinfo]: https://pkg.go.dev/github.com/matzehuels/orthofix/pkg/buildinfo
package pkg
