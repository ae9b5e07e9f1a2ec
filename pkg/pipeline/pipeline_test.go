package pipeline

import (
	"context"
	stderrors "errors"
	"fmt"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/matzehuels/orthofix/pkg/cache"
	"github.com/matzehuels/orthofix/pkg/errors"
	orthoio "github.com/matzehuels/orthofix/pkg/io"
	"github.com/matzehuels/orthofix/pkg/linktree"
	"github.com/matzehuels/orthofix/pkg/ortho"
)

const diagramJSON = `{
	"nodes": [
		{"id": "a", "x": -20, "y": -10, "width": 20, "height": 20, "pads": [{"x": 20, "y": 10, "dir": "east"}]},
		{"id": "b", "x": 20, "y": 40, "width": 20, "height": 20, "pads": [{"x": 10, "y": 0, "dir": "north"}]}
	],
	"links": [
		{"id": "a->b", "segments": [
			{"id": 1, "kind": "start-drop", "start": {"x": 0, "y": 0}, "end": {"x": 0, "y": 0}, "start_pad": "a#0"},
			{"id": 2, "parent": 1, "start": {"x": 0, "y": 0}, "end": {"x": 30, "y": 40}},
			{"id": 3, "kind": "end-drop", "parent": 2, "start": {"x": 30, "y": 40}, "end": {"x": 30, "y": 40}, "end_pad": "b#0"}
		]}
	]
}`

func loadDiagram(t *testing.T) *linktree.Diagram {
	t.Helper()
	d, err := orthoio.ReadJSON(strings.NewReader(diagramJSON))
	if err != nil {
		t.Fatalf("ReadJSON: %v", err)
	}
	return d
}

func geometry(t *linktree.Tree) []string {
	var out []string
	for _, s := range t.Segments() {
		if !s.Kind.IsDrop() {
			out = append(out, fmt.Sprintf("%d %s", s.ID, s.Geometry()))
		}
	}
	return out
}

func TestValidateAndSetDefaults(t *testing.T) {
	tests := []struct {
		name     string
		opts     Options
		wantCode errors.Code
		check    func(*testing.T, Options)
	}{
		{
			name: "defaults",
			opts: Options{Link: "a->b"},
			check: func(t *testing.T, o Options) {
				if o.Mode != ModeSweep || o.GridSize != DefaultGridSize ||
					o.StrategyLimit != DefaultStrategyLimit || o.Parallelism != DefaultParallelism {
					t.Errorf("defaults not applied: %+v", o)
				}
				if o.Logger == nil {
					t.Error("logger not set")
				}
			},
		},
		{
			name: "explicit values kept",
			opts: Options{Mode: ModeRepair, Link: "l", Segment: 3, GridSize: 5, StrategyLimit: 7, Parallelism: 4},
			check: func(t *testing.T, o Options) {
				if o.GridSize != 5 || o.StrategyLimit != 7 || o.Parallelism != 4 {
					t.Errorf("explicit values changed: %+v", o)
				}
			},
		},
		{name: "missing link", opts: Options{}, wantCode: errors.ErrCodeInvalidInput},
		{name: "bad mode", opts: Options{Mode: "fix", Link: "l"}, wantCode: errors.ErrCodeInvalidOptions},
		{name: "repair without segment", opts: Options{Mode: ModeRepair, Link: "l"}, wantCode: errors.ErrCodeInvalidInput},
		{name: "negative grid", opts: Options{Link: "l", GridSize: -1}, wantCode: errors.ErrCodeInvalidOptions},
		{name: "limit too large", opts: Options{Link: "l", StrategyLimit: MaxStrategyLimit + 1}, wantCode: errors.ErrCodeInvalidOptions},
		{name: "negative parallelism", opts: Options{Link: "l", Parallelism: -2}, wantCode: errors.ErrCodeInvalidOptions},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := tt.opts
			err := opts.ValidateAndSetDefaults()
			if tt.wantCode != "" {
				if !errors.Is(err, tt.wantCode) {
					t.Fatalf("error = %v, want code %v", err, tt.wantCode)
				}
				return
			}
			if err != nil {
				t.Fatalf("ValidateAndSetDefaults: %v", err)
			}
			tt.check(t, opts)

			// Idempotent.
			before := opts
			if err := opts.ValidateAndSetDefaults(); err != nil {
				t.Fatalf("second call: %v", err)
			}
			if opts.GridSize != before.GridSize || opts.Mode != before.Mode {
				t.Error("second call changed options")
			}
		})
	}
}

func TestRepairKeyOptsIgnoresParallelism(t *testing.T) {
	a := Options{Link: "l", Parallelism: 1}
	b := Options{Link: "l", Parallelism: 8}
	_ = a.ValidateAndSetDefaults()
	_ = b.ValidateAndSetDefaults()
	k := cache.NewDefaultKeyer()
	if k.RepairKey("h", a.RepairKeyOpts()) != k.RepairKey("h", b.RepairKeyOpts()) {
		t.Error("parallelism should not change the cache key")
	}
	c := Options{Link: "l", MinCorners: true}
	_ = c.ValidateAndSetDefaults()
	if k.RepairKey("h", a.RepairKeyOpts()) == k.RepairKey("h", c.RepairKeyOpts()) {
		t.Error("min corners should change the cache key")
	}
}

func TestExecute(t *testing.T) {
	want := []string{"2 (0,0)->(30,0)", "4 (30,0)->(30,40)"}
	tests := []struct {
		name  string
		opts  Options
		check func(*testing.T, *orthoio.Report)
	}{
		{
			name: "sweep",
			opts: Options{Link: "a->b"},
			check: func(t *testing.T, r *orthoio.Report) {
				if r.Sweep == nil {
					t.Fatal("missing sweep report")
				}
				if !slices.Equal(r.Sweep.Repaired, []linktree.SegmentID{2}) {
					t.Errorf("repaired = %v, want [2]", r.Sweep.Repaired)
				}
				if !slices.Equal(r.Sweep.NewSegments, []linktree.SegmentID{4}) {
					t.Errorf("new segments = %v, want [4]", r.Sweep.NewSegments)
				}
			},
		},
		{
			name: "repair",
			opts: Options{Mode: ModeRepair, Link: "a->b", Segment: 2},
			check: func(t *testing.T, r *orthoio.Report) {
				if r.Repair == nil {
					t.Fatal("missing repair report")
				}
				if r.Repair.Outcome != ortho.OutcomeApplied {
					t.Errorf("outcome = %v, want applied", r.Repair.Outcome)
				}
				if r.Repair.Winner == nil || r.Repair.Winner.SplitCount != 1 {
					t.Errorf("winner = %+v, want one split", r.Repair.Winner)
				}
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := loadDiagram(t)
			runner := NewRunner(nil, nil, nil)
			res, err := runner.Execute(context.Background(), d, tt.opts)
			if err != nil {
				t.Fatalf("Execute: %v", err)
			}
			tt.check(t, res.Report)

			tr, ok := res.Diagram.Link("a->b")
			if !ok {
				t.Fatal("repaired diagram lost the link")
			}
			if got := geometry(tr); !slices.Equal(got, want) {
				t.Errorf("geometry = %v, want %v", got, want)
			}
			if res.Stats.Segments != 4 || res.Stats.Nodes != 2 {
				t.Errorf("stats = %+v", res.Stats)
			}
			if res.RunID == "" {
				t.Error("missing run id")
			}

			orig, _ := d.Link("a->b")
			if got := geometry(orig); !slices.Equal(got, []string{"2 (0,0)->(30,40)"}) {
				t.Errorf("input diagram modified: %v", got)
			}
		})
	}
}

func TestExecuteCache(t *testing.T) {
	c, err := cache.NewFileCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	runner := NewRunner(c, nil, nil)
	defer runner.Close()
	d := loadDiagram(t)
	ctx := context.Background()

	first, err := runner.Execute(ctx, d, Options{Link: "a->b"})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if first.CacheHit {
		t.Error("first run should miss")
	}

	second, err := runner.Execute(ctx, d, Options{Link: "a->b"})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !second.CacheHit {
		t.Error("second run should hit")
	}
	if second.RunID != first.RunID {
		t.Errorf("cached run id = %s, want %s", second.RunID, first.RunID)
	}
	tr, _ := second.Diagram.Link("a->b")
	if tr.Len() != 4 {
		t.Errorf("cached tree has %d segments, want 4", tr.Len())
	}

	refreshed, err := runner.Execute(ctx, d, Options{Link: "a->b", Refresh: true})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if refreshed.CacheHit || refreshed.RunID == first.RunID {
		t.Error("refresh should recompute")
	}
}

func TestExecuteErrors(t *testing.T) {
	tests := []struct {
		name string
		opts Options
		want errors.Code
	}{
		{"unknown link", Options{Link: "x->y"}, errors.ErrCodeLinkNotFound},
		{"unknown segment", Options{Mode: ModeRepair, Link: "a->b", Segment: 99}, errors.ErrCodeSegmentNotFound},
		{"invalid options", Options{Link: "a->b", GridSize: -5}, errors.ErrCodeInvalidOptions},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewRunner(nil, nil, nil).Execute(context.Background(), loadDiagram(t), tt.opts)
			if !errors.Is(err, tt.want) {
				t.Errorf("error = %v, want code %v", err, tt.want)
			}
		})
	}
}

func TestExecuteCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewRunner(nil, nil, nil).Execute(ctx, loadDiagram(t), Options{Link: "a->b"})
	if !stderrors.Is(err, context.Canceled) {
		t.Errorf("error = %v, want context.Canceled", err)
	}
}

// gateCache always misses and holds every Set until release is closed,
// then reports the context state the write saw.
type gateCache struct {
	setting chan struct{}
	release chan struct{}
	seen    chan error
}

func newGateCache() *gateCache {
	return &gateCache{
		setting: make(chan struct{}, 2),
		release: make(chan struct{}),
		seen:    make(chan error, 2),
	}
}

func (g *gateCache) Get(context.Context, string) ([]byte, bool, error) { return nil, false, nil }

func (g *gateCache) Set(ctx context.Context, _ string, _ []byte, _ time.Duration) error {
	g.setting <- struct{}{}
	<-g.release
	g.seen <- ctx.Err()
	return nil
}

func (g *gateCache) Delete(context.Context, string) error { return nil }
func (g *gateCache) Close() error                         { return nil }

func TestExecuteSharedSurvivesCanceledCaller(t *testing.T) {
	gate := newGateCache()
	runner := NewRunner(gate, nil, nil)
	d := loadDiagram(t)

	firstCtx, cancelFirst := context.WithCancel(context.Background())
	defer cancelFirst()
	firstErr := make(chan error, 1)
	go func() {
		_, err := runner.Execute(firstCtx, d, Options{Link: "a->b"})
		firstErr <- err
	}()
	<-gate.setting

	type outcome struct {
		res *Result
		err error
	}
	second := make(chan outcome, 1)
	go func() {
		res, err := runner.Execute(context.Background(), d, Options{Link: "a->b"})
		second <- outcome{res, err}
	}()
	time.Sleep(50 * time.Millisecond)

	cancelFirst()
	if err := <-firstErr; !stderrors.Is(err, context.Canceled) {
		t.Errorf("first caller error = %v, want context.Canceled", err)
	}
	close(gate.release)

	if err := <-gate.seen; err != nil {
		t.Errorf("shared computation saw %v after the first caller left", err)
	}
	got := <-second
	if got.err != nil {
		t.Fatalf("second caller: %v", got.err)
	}
	if got.res.Report == nil {
		t.Error("second caller got no report")
	}
}

func TestCandidates(t *testing.T) {
	cands, stats, err := NewRunner(nil, nil, nil).Candidates(context.Background(), loadDiagram(t), Options{Link: "a->b", Segment: 2})
	if err != nil {
		t.Fatalf("Candidates: %v", err)
	}
	if len(cands) == 0 || stats.Accepted != len(cands) {
		t.Fatalf("got %d candidates, stats %+v", len(cands), stats)
	}
	for i := 1; i < len(cands); i++ {
		if cands[i].Ranking.Less(cands[i-1].Ranking) {
			t.Errorf("candidate %d ranks better than %d", i, i-1)
		}
	}
}

func TestApply(t *testing.T) {
	d := loadDiagram(t)
	cands, _, err := NewRunner(nil, nil, nil).Candidates(context.Background(), d, Options{Link: "a->b", Segment: 2})
	if err != nil || len(cands) == 0 {
		t.Fatalf("Candidates: %d, %v", len(cands), err)
	}

	out, err := Apply(d, "a->b", cands[0])
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	got, _ := out.Link("a->b")
	if len(got.Diagonal()) != 0 {
		t.Errorf("diagonal segments left: %v", got.Diagonal())
	}
	orig, _ := d.Link("a->b")
	if orig.Len() != 3 {
		t.Errorf("input link modified: %d segments", orig.Len())
	}

	if _, err := Apply(d, "nope", cands[0]); !errors.Is(err, errors.ErrCodeLinkNotFound) {
		t.Errorf("unknown link: %v", err)
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want errors.Code
	}{
		{"coded kept", errors.New(errors.ErrCodeCache, "x"), errors.ErrCodeCache},
		{"unknown link", fmt.Errorf("%w: l", linktree.ErrUnknownLink), errors.ErrCodeLinkNotFound},
		{"unknown segment", fmt.Errorf("%w: 3", ortho.ErrUnknownSegment), errors.ErrCodeSegmentNotFound},
		{"corrupt", fmt.Errorf("wrapped: %w", ortho.ErrCorruptConstraint), errors.ErrCodeCorruptConstraint},
		{"deadline", context.DeadlineExceeded, errors.ErrCodeTimeout},
		{"other", stderrors.New("boom"), errors.ErrCodeInternal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := errors.GetCode(classify(tt.err)); got != tt.want {
				t.Errorf("code = %v, want %v", got, tt.want)
			}
		})
	}
}
