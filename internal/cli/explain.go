package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/matzehuels/orthofix/pkg/errors"
	"github.com/matzehuels/orthofix/pkg/explain"
	"github.com/matzehuels/orthofix/pkg/linktree"
	"github.com/matzehuels/orthofix/pkg/ortho"
)

// explainCommand creates the explain command for visualizing constraints.
func (c *CLI) explainCommand() *cobra.Command {
	var (
		link     string
		segment  int
		detailed bool
		svg      bool
		output   string
	)

	cmd := &cobra.Command{
		Use:   "explain [diagram.json]",
		Short: "Show the constraint graph of a link",
		Long: `Show the constraint graph of a link as Graphviz DOT or SVG.

Each node is a segment labelled with its endpoint degrees of freedom:
fixed, free, or dependent on the segments listed. Diagonal segments are
shaded red.`,
		Example: `  orthofix explain diagram.json -l 'a->b' --detailed
  orthofix explain diagram.json -l 'a->b' -s 2 --svg -o constraints.svg`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := loadDiagram(args[0])
			if err != nil {
				return err
			}
			t, ok := d.Link(link)
			if !ok {
				return errors.New(errors.ErrCodeLinkNotFound, "link %q not found", link)
			}
			if segment != 0 {
				if _, ok := t.Segment(linktree.SegmentID(segment)); !ok {
					return errors.New(errors.ErrCodeSegmentNotFound, "segment %d not found in link %q", segment, link)
				}
			}

			dofs := ortho.Analyze(t, d)
			dot := explain.ToDOT(t, dofs, explain.Options{
				Detailed:  detailed,
				Highlight: linktree.SegmentID(segment),
			})

			out := []byte(dot)
			if svg {
				if out, err = explain.RenderSVG(cmd.Context(), dot); err != nil {
					return err
				}
			}

			if output == "" {
				_, err := cmd.OutOrStdout().Write(out)
				return err
			}
			if err := os.WriteFile(output, out, 0o644); err != nil {
				return fmt.Errorf("write %s: %w", output, err)
			}
			printFile(output)
			return nil
		},
	}

	cmd.Flags().StringVarP(&link, "link", "l", "", "link to explain (required)")
	cmd.Flags().IntVarP(&segment, "segment", "s", 0, "segment to highlight")
	cmd.Flags().BoolVar(&detailed, "detailed", false, "include endpoint constraints in labels")
	cmd.Flags().BoolVar(&svg, "svg", false, "render SVG instead of DOT")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default stdout)")
	_ = cmd.MarkFlagRequired("link")

	return cmd
}
