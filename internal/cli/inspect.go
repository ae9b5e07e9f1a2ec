package cli

import (
	"encoding/json"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	orthoio "github.com/matzehuels/orthofix/pkg/io"
	"github.com/matzehuels/orthofix/pkg/pipeline"
)

// inspectCommand creates the inspect command for browsing candidates.
func (c *CLI) inspectCommand() *cobra.Command {
	flags := &runFlags{}
	var plain, asJSON bool
	var output string

	cmd := &cobra.Command{
		Use:   "inspect [diagram.json]",
		Short: "Browse the ranked repair candidates of a segment",
		Long: `Browse the ranked repair candidates of a segment.

Every candidate that survives collision filtering is listed best first.
In the interactive view, pressing enter applies the highlighted candidate
and writes the edited diagram to --output.`,
		Example: `  # Pick a candidate interactively
  orthofix inspect diagram.json -l 'a->b' -s 2 -o fixed.json

  # Print the table without the interactive view
  orthofix inspect diagram.json -l 'a->b' -s 2 --plain`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			d, err := loadDiagram(args[0])
			if err != nil {
				return err
			}

			runner := pipeline.NewRunner(nil, nil, c.Logger)
			defer runner.Close()

			spinner := newSpinnerWithContext(ctx, fmt.Sprintf("Ranking candidates for segment %d...", flags.segment))
			spinner.Start()
			cands, stats, err := runner.Candidates(ctx, d, c.options(pipeline.ModeRepair, flags))
			spinner.Stop()
			if err != nil {
				return err
			}

			if asJSON {
				reports := make([]orthoio.CandidateReport, len(cands))
				for i, cand := range cands {
					reports[i] = orthoio.FromCandidate(cand)
				}
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(reports)
			}

			if len(cands) == 0 {
				printWarning("No viable candidates for segment %d", flags.segment)
				printDetail("%d strategies, %d variations", stats.Strategies, stats.Variations)
				return nil
			}

			if plain {
				fmt.Fprintln(cmd.OutOrStdout(), candidateTable(candidateRows(cands, 0, -1)).Render())
				return nil
			}

			title := fmt.Sprintf("Candidates for %s segment %d", flags.link, flags.segment)
			final, err := tea.NewProgram(NewCandidateListModel(title, cands)).Run()
			if err != nil {
				return err
			}
			fm, ok := final.(CandidateListModel)
			if !ok || fm.Selected == nil {
				printDetail("No selection made")
				return nil
			}
			if output == "" {
				printInfo("Selected %s", fm.Selected.String())
				printNextStep("Write it with", "--output fixed.json")
				return nil
			}

			edited, err := pipeline.Apply(d, flags.link, *fm.Selected)
			if err != nil {
				return err
			}
			if err := orthoio.ExportJSON(edited, output); err != nil {
				return fmt.Errorf("write diagram: %w", err)
			}
			printSuccess("Applied %s", fm.Selected.String())
			printFile(output)
			return nil
		},
	}

	flags.register(cmd, true, false)
	_ = cmd.MarkFlagRequired("segment")
	cmd.Flags().BoolVar(&plain, "plain", false, "print the candidate table and exit")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the candidates as JSON")
	cmd.Flags().StringVarP(&output, "output", "o", "", "write the diagram with the selected candidate applied")

	return cmd
}
