package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/matzehuels/orthofix/pkg/errors"
	orthoio "github.com/matzehuels/orthofix/pkg/io"
	"github.com/matzehuels/orthofix/pkg/linktree"
	"github.com/matzehuels/orthofix/pkg/ortho"
	"github.com/matzehuels/orthofix/pkg/pipeline"
)

// runFlags holds the flags shared by repair, sweep and inspect.
type runFlags struct {
	link       string
	segment    int
	grid       float64
	limit      int
	minCorners bool
	parallel   int
	noCache    bool
	refresh    bool
	output     string
	report     string
}

// register adds the engine flags to cmd. Output flags are only added when
// withOutput is set.
func (f *runFlags) register(cmd *cobra.Command, withSegment, withOutput bool) {
	cmd.Flags().StringVarP(&f.link, "link", "l", "", "link to repair (required)")
	if withSegment {
		cmd.Flags().IntVarP(&f.segment, "segment", "s", 0, "segment to repair (required)")
	}
	cmd.Flags().Float64Var(&f.grid, "grid", 0, "layout grid size (default from config)")
	cmd.Flags().IntVar(&f.limit, "limit", 0, "maximum strategies generated per segment (default from config)")
	cmd.Flags().BoolVar(&f.minCorners, "min-corners", false, "prefer fewer corners over smaller displacement")
	cmd.Flags().IntVarP(&f.parallel, "parallel", "p", 0, "strategies evaluated concurrently (default from config)")
	if withOutput {
		cmd.Flags().BoolVar(&f.noCache, "no-cache", false, "disable result caching")
		cmd.Flags().BoolVar(&f.refresh, "refresh", false, "recompute even when a cached result exists")
		cmd.Flags().StringVarP(&f.output, "output", "o", "", "write the repaired diagram to this file")
		cmd.Flags().StringVar(&f.report, "report", "", "write the JSON report to this file (- for stdout)")
	}
	_ = cmd.MarkFlagRequired("link")
}

// options merges the flags over the configured engine defaults.
func (c *CLI) options(mode string, f *runFlags) pipeline.Options {
	opts := c.cfg.PipelineOptions()
	opts.Mode = mode
	opts.Link = f.link
	opts.Segment = f.segment
	opts.Refresh = f.refresh
	opts.Logger = c.Logger
	if f.grid != 0 {
		opts.GridSize = f.grid
	}
	if f.limit != 0 {
		opts.StrategyLimit = f.limit
	}
	if f.minCorners {
		opts.MinCorners = true
	}
	if f.parallel != 0 {
		opts.Parallelism = f.parallel
	}
	return opts
}

// repairCommand creates the repair command for fixing one segment.
func (c *CLI) repairCommand() *cobra.Command {
	flags := &runFlags{}

	cmd := &cobra.Command{
		Use:   "repair [diagram.json]",
		Short: "Repair one diagonal segment of a link",
		Long: `Repair one diagonal segment of a link.

The engine analyzes the segment's constraints, generates candidate edits,
rejects those that collide with nodes or other links, and applies the
best-ranked one. Already orthogonal segments are left untouched.`,
		Example: `  # Repair segment 2 of link a->b and save the result
  orthofix repair diagram.json --link 'a->b' --segment 2 -o fixed.json

  # Print the JSON report
  orthofix repair diagram.json -l 'a->b' -s 2 --report -`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runPipeline(cmd.Context(), cmd, args[0], pipeline.ModeRepair, flags)
		},
	}

	flags.register(cmd, true, true)
	_ = cmd.MarkFlagRequired("segment")
	return cmd
}

// sweepCommand creates the sweep command for fixing a whole link.
func (c *CLI) sweepCommand() *cobra.Command {
	flags := &runFlags{}

	cmd := &cobra.Command{
		Use:   "sweep [diagram.json]",
		Short: "Repair every diagonal segment of a link",
		Long: `Repair every diagonal segment of a link.

Segments are visited in tree order. A failed segment is reported and the
sweep moves on; the segments created by one repair are tracked so later
repairs address the right pieces.`,
		Example: `  orthofix sweep diagram.json --link 'a->b' -o fixed.json`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runPipeline(cmd.Context(), cmd, args[0], pipeline.ModeSweep, flags)
		},
	}

	flags.register(cmd, false, true)
	return cmd
}

// runPipeline loads the diagram, executes the pipeline and writes outputs.
func (c *CLI) runPipeline(ctx context.Context, cmd *cobra.Command, path, mode string, flags *runFlags) error {
	logger := loggerFromContext(ctx)
	prog := newProgress(logger)

	d, err := loadDiagram(path)
	if err != nil {
		return err
	}

	runner, err := c.newRunner(ctx, flags.noCache)
	if err != nil {
		return err
	}
	defer runner.Close()

	spinner := newSpinnerWithContext(ctx, fmt.Sprintf("Repairing %s...", flags.link))
	spinner.Start()
	result, err := runner.Execute(ctx, d, c.options(mode, flags))
	spinner.Stop()
	if err != nil {
		return err
	}
	prog.done(fmt.Sprintf("%s %s", modeVerbs[mode], flags.link))

	printResult(result)

	if flags.output != "" {
		if err := orthoio.ExportJSON(result.Diagram, flags.output); err != nil {
			return fmt.Errorf("write diagram: %w", err)
		}
		printFile(flags.output)
	}
	if flags.report != "" {
		if err := writeReport(cmd, result.Report, flags.report); err != nil {
			return err
		}
	}
	return nil
}

// loadDiagram imports a diagram file, tagging a missing file with
// [errors.ErrCodeFileNotFound].
func loadDiagram(path string) (*linktree.Diagram, error) {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrap(errors.ErrCodeFileNotFound, err, "diagram %s", path)
		}
		return nil, err
	}
	d, err := orthoio.ImportJSON(path)
	if err != nil {
		if errors.GetCode(err) != "" {
			return nil, err
		}
		return nil, errors.Wrap(errors.ErrCodeInvalidDiagram, err, "load %s", path)
	}
	return d, nil
}

func writeReport(cmd *cobra.Command, rep *orthoio.Report, path string) error {
	if path == "-" {
		return orthoio.WriteReport(rep, cmd.OutOrStdout())
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create report: %w", err)
	}
	defer f.Close()
	if err := orthoio.WriteReport(rep, f); err != nil {
		return err
	}
	printFile(path)
	return nil
}

// printResult summarizes a pipeline result.
func printResult(res *pipeline.Result) {
	rep := res.Report
	switch {
	case rep.Repair != nil:
		printRepair(rep.Repair)
	case rep.Sweep != nil:
		printSweep(rep.Sweep)
	}
	printStats(res.Stats.Segments, res.Stats.Links, res.CacheHit)
}

func printRepair(r *orthoio.RepairReport) {
	switch r.Outcome {
	case ortho.OutcomeApplied:
		printSuccess("Repaired segment %d", r.Segment)
		if len(r.NewSegments) > 0 {
			printDetail("New segments: %v", r.NewSegments)
		}
		if r.Winner != nil {
			printDetail("Strategy: %s [v%d]", r.Winner.Strategy, r.Winner.Variation)
		}
	case ortho.OutcomeAlreadyOrthogonal:
		printInfo("Segment %d is already orthogonal", r.Segment)
	default:
		printWarning("Segment %d could not be repaired (%s)", r.Segment, r.Phase)
	}
	printDetail("%d strategies, %d variations, %d accepted", r.Stats.Strategies, r.Stats.Variations, r.Stats.Accepted)
	if r.Stats.Truncated {
		printWarning("Strategy limit reached; results may be incomplete")
	}
}

func printSweep(s *orthoio.SweepReport) {
	if len(s.Results) == 0 {
		printInfo("No diagonal segments")
		return
	}
	if len(s.Repaired) > 0 {
		printSuccess("Repaired %d segment(s): %v", len(s.Repaired), s.Repaired)
	}
	if len(s.NotRepairable) > 0 {
		printWarning("Not repairable: %v", s.NotRepairable)
	}
	if len(s.NewSegments) > 0 {
		printDetail("New segments: %v", s.NewSegments)
	}
}

var modeVerbs = map[string]string{
	pipeline.ModeRepair: "Repaired",
	pipeline.ModeSweep:  "Swept",
}
