// Package pipeline runs repairs over whole diagrams for the CLI and the
// HTTP server.
//
// A diagram arrives as JSON (see package io); the pipeline picks the link
// to repair, builds the occupancy index of everything else, runs the
// engine and serializes the outcome as an [io.Report]. Reports are cached
// by diagram hash and options, so repeating a request is cheap.
//
// # Architecture
//
// One request goes through four steps:
//
//  1. Key: hash the canonical diagram encoding and the options
//  2. Lookup: return the cached report unless Refresh is set
//  3. Repair: build the occupancy index and run [ortho.Engine.Repair] or
//     [ortho.Engine.Sweep] on a copy of the link
//  4. Store: cache the report
//
// Identical concurrent requests share one computation.
//
// # Usage
//
//	runner := pipeline.NewRunner(c, nil, logger)
//	defer runner.Close()
//
//	result, err := runner.Execute(ctx, diagram, pipeline.Options{
//	    Mode: pipeline.ModeSweep,
//	    Link: "a->b",
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(result.Report.Sweep.Repaired)
package pipeline

import (
	"io"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/orthofix/pkg/cache"
	"github.com/matzehuels/orthofix/pkg/errors"
	orthoio "github.com/matzehuels/orthofix/pkg/io"
	"github.com/matzehuels/orthofix/pkg/linktree"
	"github.com/matzehuels/orthofix/pkg/ortho"
)

// =============================================================================
// Default Values - Single Source of Truth for CLI and Server
// =============================================================================

const (
	// DefaultGridSize is the layout grid used for snapping and variations.
	DefaultGridSize = ortho.DefaultGridSize

	// DefaultStrategyLimit caps the strategies generated per segment.
	DefaultStrategyLimit = ortho.DefaultStrategyLimit

	// DefaultParallelism evaluates strategies sequentially.
	DefaultParallelism = 1

	// MaxStrategyLimit bounds StrategyLimit for requests.
	MaxStrategyLimit = 10000

	// MaxParallelism bounds Parallelism for requests.
	MaxParallelism = 64

	// DefaultCacheTTL is how long reports stay cached.
	DefaultCacheTTL = 24 * time.Hour
)

// Modes.
const (
	ModeRepair = "repair" // repair one segment
	ModeSweep  = "sweep"  // repair every diagonal segment of the link
)

// ValidModes is the set of supported modes.
var ValidModes = map[string]bool{
	ModeRepair: true,
	ModeSweep:  true,
}

// =============================================================================
// Options - Pipeline Configuration
// =============================================================================

// Options configures one pipeline run. It doubles as the body of server
// requests, minus the diagram.
type Options struct {
	Mode    string `json:"mode,omitempty"`
	Link    string `json:"link"`
	Segment int    `json:"segment,omitempty"` // required for ModeRepair

	GridSize      float64 `json:"grid_size,omitempty"`
	StrategyLimit int     `json:"strategy_limit,omitempty"`
	MinCorners    bool    `json:"min_corners,omitempty"`
	Parallelism   int     `json:"parallelism,omitempty"`

	Refresh  bool          `json:"refresh,omitempty"` // bypass cache lookup
	CacheTTL time.Duration `json:"-"`

	// Runtime options (not serialized)
	Logger *log.Logger `json:"-"`

	// validated tracks whether ValidateAndSetDefaults has been called.
	validated bool `json:"-"`
}

// Result is the outcome of a pipeline run.
type Result struct {
	// RunID identifies the computation. Cache hits report the id of the
	// run that produced the cached report.
	RunID string

	// Report is the serializable outcome.
	Report *orthoio.Report

	// Diagram is a copy of the input with the repaired link substituted.
	Diagram *linktree.Diagram

	// Stats contains timing and size information.
	Stats Stats

	// CacheHit reports whether Report came from the cache.
	CacheHit bool
}

// Stats contains pipeline execution statistics.
type Stats struct {
	Nodes    int
	Links    int
	Segments int // segments of the link after repair
	Duration time.Duration
}

// =============================================================================
// Options Methods
// =============================================================================

// ValidateAndSetDefaults checks the options and fills in defaults. It is
// idempotent. Errors carry [errors.ErrCodeInvalidOptions] or
// [errors.ErrCodeInvalidInput].
func (o *Options) ValidateAndSetDefaults() error {
	if o.validated {
		return nil
	}
	if o.Mode == "" {
		o.Mode = ModeSweep
	}
	if !ValidModes[o.Mode] {
		return errors.New(errors.ErrCodeInvalidOptions, "invalid mode: %q (must be one of: repair, sweep)", o.Mode)
	}
	if err := errors.ValidateID("link", o.Link); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidInput, err, "link is required")
	}
	if o.Mode == ModeRepair && o.Segment <= 0 {
		return errors.New(errors.ErrCodeInvalidInput, "segment is required in repair mode")
	}
	if err := errors.ValidateGridSize(o.GridSize); err != nil {
		return err
	}
	if err := errors.ValidatePositive("strategy limit", o.StrategyLimit, MaxStrategyLimit); err != nil {
		return err
	}
	if err := errors.ValidatePositive("parallelism", o.Parallelism, MaxParallelism); err != nil {
		return err
	}

	if o.GridSize == 0 {
		o.GridSize = DefaultGridSize
	}
	if o.StrategyLimit == 0 {
		o.StrategyLimit = DefaultStrategyLimit
	}
	if o.Parallelism == 0 {
		o.Parallelism = DefaultParallelism
	}
	if o.CacheTTL == 0 {
		o.CacheTTL = DefaultCacheTTL
	}
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	o.validated = true
	return nil
}

// EngineOptions returns the engine configuration.
func (o *Options) EngineOptions() ortho.Options {
	return ortho.Options{
		GridSize:      o.GridSize,
		StrategyLimit: o.StrategyLimit,
		MinCorners:    o.MinCorners,
		Parallelism:   o.Parallelism,
		Logger:        o.Logger,
	}
}

// RepairKeyOpts returns cache key options. Parallelism is left out: it
// does not change the result.
func (o *Options) RepairKeyOpts() cache.RepairKeyOpts {
	return cache.RepairKeyOpts{
		Mode:          o.Mode,
		Link:          o.Link,
		Segment:       o.Segment,
		GridSize:      o.GridSize,
		StrategyLimit: o.StrategyLimit,
		MinCorners:    o.MinCorners,
	}
}
