package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/matzehuels/revenuemap/pkg/sink"
)

const summaryRows = 10

// layoutCommand creates the layout command, which writes the computed
// layout as a JSON document.
func (c *CLI) layoutCommand() *cobra.Command {
	var (
		flags   layoutFlags
		output  string
		summary bool
	)

	cmd := &cobra.Command{
		Use:   "layout [dataset]",
		Short: "Compute the heatmap layout of a dataset",
		Long: `Compute the heatmap layout of a dataset and write it as JSON.

The dataset is a JSON, YAML or TOML file of revenue records (or "-" for
stdin). The output holds one tile per record with its rectangle, color,
revenue share and change, plus the ids of records too small to place.

Results are cached; use --refresh to recompute.`,
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: completeDataset,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runLayout(cmd.Context(), args[0], &flags, output, summary)
		},
	}

	flags.register(cmd)
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default: <input>.layout.json, - for stdout)")
	cmd.Flags().BoolVar(&summary, "summary", false, "print a table of the largest tiles")

	return cmd
}

func (c *CLI) runLayout(ctx context.Context, input string, flags *layoutFlags, output string, summary bool) error {
	defaults, err := c.layoutDefaults()
	if err != nil {
		return err
	}
	ds, err := c.loadDataset(input, flags.inputFormat)
	if err != nil {
		return err
	}

	runner, err := c.newRunner(ctx, flags.noCache)
	if err != nil {
		return fmt.Errorf("initialize runner: %w", err)
	}
	defer runner.Close()

	opts := flags.options(defaults)
	opts.Formats = []string{sink.FormatJSON}

	prog := newProgress(c.Logger)
	result, err := runner.Execute(ctx, ds, opts)
	if err != nil {
		return fmt.Errorf("compute layout: %w", err)
	}
	prog.done("computed layout", "tiles", result.Stats.Tiles)

	data := result.Artifacts[sink.FormatJSON]
	if output == stdinPath {
		_, err := os.Stdout.Write(data)
		return err
	}
	if output == "" {
		output = outputBase(input) + ".layout.json"
	}
	if err := os.WriteFile(output, data, 0o644); err != nil {
		return fmt.Errorf("write output %s: %w", output, err)
	}

	printSuccess("Layout complete")
	printFile(output)
	printStats(result.Stats, result.CacheInfo.LayoutHit)
	printRejected(result.Rejected)
	if summary && len(result.Frame.Tiles) > 0 {
		fmt.Println(tileTable(result.Frame, summaryRows))
	}
	printNewline()
	printNextStep("View", appName+" view "+input)

	return nil
}
