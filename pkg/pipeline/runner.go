package pipeline

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/matzehuels/orthofix/pkg/cache"
	"github.com/matzehuels/orthofix/pkg/errors"
	orthoio "github.com/matzehuels/orthofix/pkg/io"
	"github.com/matzehuels/orthofix/pkg/linktree"
	"github.com/matzehuels/orthofix/pkg/observability"
	"github.com/matzehuels/orthofix/pkg/occupancy"
	"github.com/matzehuels/orthofix/pkg/ortho"
)

// cacheKeyType labels cache events for observability hooks.
const cacheKeyType = "repair"

// computeTimeout bounds one engine run shared by concurrent callers.
const computeTimeout = 5 * time.Minute

// Runner executes repairs with caching. Both CLI and server use it.
//
// The Runner keeps no per-request state besides the in-flight table used
// to share identical concurrent requests, so one Runner can serve many
// goroutines.
type Runner struct {
	Cache  cache.Cache
	Keyer  cache.Keyer
	Logger *log.Logger

	group singleflight.Group
}

// NewRunner creates a runner with the given cache and keyer.
// If keyer is nil, a DefaultKeyer is used.
// If cache is nil, a NullCache is used (caching disabled).
func NewRunner(c cache.Cache, keyer cache.Keyer, logger *log.Logger) *Runner {
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if c == nil {
		c = cache.NewNullCache()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{
		Cache:  c,
		Keyer:  keyer,
		Logger: logger,
	}
}

// Execute repairs one link of d according to opts. d is not modified;
// the repaired diagram is returned in [Result.Diagram].
func (r *Runner) Execute(ctx context.Context, d *linktree.Diagram, opts Options) (*Result, error) {
	start := time.Now()
	r.applyLogger(&opts)
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, err
	}

	if _, ok := d.Link(opts.Link); !ok {
		return nil, classify(fmt.Errorf("%w: %s", linktree.ErrUnknownLink, opts.Link))
	}
	encoded, err := orthoio.MarshalDiagram(d)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "encode diagram")
	}
	key := r.Keyer.RepairKey(cache.Hash(encoded), opts.RepairKeyOpts())

	hooks := observability.Repair()
	hooks.OnRepairStart(ctx, opts.Mode, opts.Link)

	data, hit, err := r.lookup(ctx, key, opts)
	if err == nil && !hit {
		data, err = r.shared(ctx, d, key, opts)
	}

	var res *Result
	if err == nil {
		res, err = r.decode(d, data, opts)
	}
	if err != nil {
		err = classify(err)
		hooks.OnRepairComplete(ctx, opts.Mode, opts.Link, "", time.Since(start), err)
		return nil, err
	}
	res.CacheHit = hit
	res.Stats.Duration = time.Since(start)
	hooks.OnRepairComplete(ctx, opts.Mode, opts.Link, outcomeLabel(res.Report), res.Stats.Duration, nil)

	r.Logger.Info("repaired link",
		"link", opts.Link,
		"mode", opts.Mode,
		"outcome", outcomeLabel(res.Report),
		"cached", hit,
		"duration", res.Stats.Duration)
	return res, nil
}

// Candidates lists the ranked candidates for one segment without editing
// anything. Results are not cached.
func (r *Runner) Candidates(ctx context.Context, d *linktree.Diagram, opts Options) ([]ortho.Candidate, ortho.Stats, error) {
	opts.Mode = ModeRepair
	r.applyLogger(&opts)
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, ortho.Stats{}, err
	}
	scope, err := NewScope(d, opts.Link)
	if err != nil {
		return nil, ortho.Stats{}, classify(err)
	}
	cands, stats, err := ortho.NewEngine(opts.EngineOptions()).Candidates(ctx, scope, linktree.SegmentID(opts.Segment))
	if err != nil {
		return nil, stats, classify(err)
	}
	return cands, stats, nil
}

// NewScope prepares the engine scope for repairing link: a private copy of
// its tree, the diagram as pad resolver, and an occupancy index of every
// node and every other link.
func NewScope(d *linktree.Diagram, link string) (ortho.Scope, error) {
	t, ok := d.Link(link)
	if !ok {
		return ortho.Scope{}, fmt.Errorf("%w: %s", linktree.ErrUnknownLink, link)
	}
	idx, err := occupancy.Build(d, link)
	if err != nil {
		return ortho.Scope{}, fmt.Errorf("build occupancy: %w", err)
	}
	return ortho.Scope{Tree: t.Clone(), Pads: d, Grid: idx}, nil
}

// shared runs compute once per key across concurrent callers. The
// computation is detached from any single caller's context and bounded by
// computeTimeout instead, so one caller giving up does not fail the others;
// each caller still stops waiting when its own context ends.
func (r *Runner) shared(ctx context.Context, d *linktree.Diagram, key string, opts Options) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	ch := r.group.DoChan(key, func() (any, error) {
		cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), computeTimeout)
		defer cancel()
		return r.compute(cctx, d, key, opts)
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Shared {
			r.Logger.Debug("shared in-flight repair", "link", opts.Link)
		}
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.([]byte), nil
	}
}

// lookup returns the cached report for key unless opts.Refresh is set.
// Cache read failures degrade to a miss.
func (r *Runner) lookup(ctx context.Context, key string, opts Options) ([]byte, bool, error) {
	if opts.Refresh {
		return nil, false, nil
	}
	data, hit, err := r.Cache.Get(ctx, key)
	if err != nil {
		r.Logger.Warn("cache read failed", "error", err)
		return nil, false, nil
	}
	if !hit {
		observability.Cache().OnCacheMiss(ctx, cacheKeyType)
		return nil, false, nil
	}
	if _, err := orthoio.UnmarshalReport(data); err != nil {
		r.Logger.Warn("discarding unreadable cache entry", "error", err)
		observability.Cache().OnCacheMiss(ctx, cacheKeyType)
		return nil, false, nil
	}
	observability.Cache().OnCacheHit(ctx, cacheKeyType)
	return data, true, nil
}

// compute runs the engine and stores the encoded report.
func (r *Runner) compute(ctx context.Context, d *linktree.Diagram, key string, opts Options) ([]byte, error) {
	scope, err := NewScope(d, opts.Link)
	if err != nil {
		return nil, err
	}
	engine := ortho.NewEngine(opts.EngineOptions())
	report := &orthoio.Report{
		RunID: uuid.NewString(),
		Link:  opts.Link,
		Mode:  opts.Mode,
	}

	switch opts.Mode {
	case ModeRepair:
		res, err := engine.Repair(ctx, scope, linktree.SegmentID(opts.Segment))
		if err != nil {
			return nil, err
		}
		report.Repair = orthoio.FromRepairResult(res)
	case ModeSweep:
		res, err := engine.Sweep(ctx, scope)
		if err != nil {
			return nil, err
		}
		report.Sweep = orthoio.FromSweepResult(res)
	}
	report.Tree = orthoio.FromTree(scope.Tree)

	data, err := orthoio.MarshalReport(report)
	if err != nil {
		return nil, err
	}
	if err := r.Cache.Set(ctx, key, data, opts.CacheTTL); err != nil {
		r.Logger.Warn("cache write failed", "error", err)
	} else {
		observability.Cache().OnCacheSet(ctx, cacheKeyType, len(data))
	}
	return data, nil
}

// decode turns an encoded report into a Result over a copy of d.
func (r *Runner) decode(d *linktree.Diagram, data []byte, opts Options) (*Result, error) {
	report, err := orthoio.UnmarshalReport(data)
	if err != nil {
		return nil, err
	}
	t, err := orthoio.ToTree(report.Tree)
	if err != nil {
		return nil, fmt.Errorf("rebuild link %s: %w", opts.Link, err)
	}
	out, err := replaceLink(d, t)
	if err != nil {
		return nil, err
	}
	return &Result{
		RunID:   report.RunID,
		Report:  report,
		Diagram: out,
		Stats: Stats{
			Nodes:    len(d.Nodes()),
			Links:    len(d.Links()),
			Segments: t.Len(),
		},
	}, nil
}

// Apply commits candidate c to a copy of link's tree and returns the
// edited diagram. c must come from [Runner.Candidates] on the same diagram.
func Apply(d *linktree.Diagram, link string, c ortho.Candidate) (*linktree.Diagram, error) {
	t, ok := d.Link(link)
	if !ok {
		return nil, errors.Wrap(errors.ErrCodeLinkNotFound, linktree.ErrUnknownLink, "link %q", link)
	}
	next := t.Clone()
	if _, _, err := c.Strategy.ApplyPlan(c.Variation, next); err != nil {
		return nil, classify(err)
	}
	return replaceLink(d, next)
}

// replaceLink copies d with the tree of t.Link() swapped for t.
func replaceLink(d *linktree.Diagram, t *linktree.Tree) (*linktree.Diagram, error) {
	out := linktree.NewDiagram()
	for _, n := range d.Nodes() {
		if err := out.AddNode(*n); err != nil {
			return nil, err
		}
	}
	for _, l := range d.Links() {
		next := l.Clone()
		if l.Link() == t.Link() {
			next = t
		}
		if err := out.AddLink(next); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// outcomeLabel summarizes a report for logs and hooks.
func outcomeLabel(rep *orthoio.Report) string {
	switch {
	case rep.Repair != nil:
		return rep.Repair.Outcome.String()
	case rep.Sweep != nil:
		return fmt.Sprintf("repaired=%d failed=%d", len(rep.Sweep.Repaired), len(rep.Sweep.NotRepairable))
	}
	return ""
}

// classify attaches an error code to engine and diagram errors.
func classify(err error) error {
	var coded *errors.Error
	switch {
	case stderrors.As(err, &coded):
		return err
	case stderrors.Is(err, linktree.ErrUnknownLink):
		return errors.Wrap(errors.ErrCodeLinkNotFound, err, "link not found")
	case stderrors.Is(err, ortho.ErrUnknownSegment), stderrors.Is(err, linktree.ErrUnknownSegment):
		return errors.Wrap(errors.ErrCodeSegmentNotFound, err, "segment not found")
	case stderrors.Is(err, ortho.ErrCorruptConstraint), stderrors.Is(err, ortho.ErrCorruptStrategy):
		return errors.Wrap(errors.ErrCodeCorruptConstraint, err, "repair aborted")
	case stderrors.Is(err, context.DeadlineExceeded):
		return errors.Wrap(errors.ErrCodeTimeout, err, "repair timed out")
	case stderrors.Is(err, context.Canceled):
		return err
	}
	return errors.Wrap(errors.ErrCodeInternal, err, "repair failed")
}

// applyLogger sets the runner's logger on options if not already set.
func (r *Runner) applyLogger(opts *Options) {
	if opts.Logger == nil {
		opts.Logger = r.Logger
	}
}

// Close releases resources held by the runner (primarily the cache).
func (r *Runner) Close() error {
	if r.Cache != nil {
		return r.Cache.Close()
	}
	return nil
}
