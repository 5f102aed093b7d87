package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/matzehuels/revenuemap/pkg/errors"
	"github.com/matzehuels/revenuemap/pkg/sink"
)

// renderOpts holds the render-only flags.
type renderOpts struct {
	output   string
	formats  []string
	noLabels bool
	cols     int
	rows     int
}

// renderCommand creates the render command for writing heatmap artifacts.
func (c *CLI) renderCommand() *cobra.Command {
	var (
		flags      layoutFlags
		opts       renderOpts
		formatsStr string
	)

	cmd := &cobra.Command{
		Use:   "render [dataset]",
		Short: "Render a dataset as an SVG, JSON or terminal heatmap",
		Long: `Render a dataset as a heatmap.

Formats:
  svg   scalable image with labels and hover tooltips
  json  layout document (same as the layout command)
  txt   colored terminal grid, sized with --cols and --rows

With one format, --output is the output file; with several, it is the base
path and each format gets its own extension.`,
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: completeDataset,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.formats = parseFormats(formatsStr)
			if err := validateFormats(opts.formats); err != nil {
				return err
			}
			return c.runRender(cmd.Context(), args[0], &flags, &opts)
		},
	}

	flags.register(cmd)
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output file (single format) or base path (multiple)")
	cmd.Flags().StringVarP(&formatsStr, "format", "f", "", "output format(s): svg (default), json, txt (comma-separated)")
	cmd.Flags().BoolVar(&opts.noLabels, "no-labels", false, "omit tile labels (svg)")
	cmd.Flags().IntVar(&opts.cols, "cols", sink.DefaultCols, "grid width in characters (txt)")
	cmd.Flags().IntVar(&opts.rows, "rows", sink.DefaultRows, "grid height in lines (txt)")

	return cmd
}

func validateFormats(formats []string) error {
	for _, f := range formats {
		if err := errors.ValidateFormat(f, sink.Formats); err != nil {
			return err
		}
	}
	return nil
}

func (c *CLI) runRender(ctx context.Context, input string, flags *layoutFlags, ro *renderOpts) error {
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
	opts.Formats = ro.formats
	opts.NoLabels = ro.noLabels
	opts.Cols, opts.Rows = ro.cols, ro.rows

	spinner := newSpinnerWithContext(ctx, "Rendering heatmap...")
	spinner.Start()
	result, err := runner.Execute(ctx, ds, opts)
	if err != nil {
		spinner.StopWithError("Render failed")
		return fmt.Errorf("render: %w", err)
	}
	spinner.Stop()
	if ctx.Err() != nil {
		return ctx.Err()
	}

	paths := outputPaths(input, ro.output, ro.formats)
	for _, format := range ro.formats {
		if err := os.WriteFile(paths[format], result.Artifacts[format], 0o644); err != nil {
			return fmt.Errorf("write %s: %w", paths[format], err)
		}
	}

	printSuccess("Rendered %d tiles", result.Stats.Tiles)
	for _, format := range ro.formats {
		printFile(paths[format])
	}
	printStats(result.Stats, result.CacheInfo.RenderHit)
	printRejected(result.Rejected)
	if result.Stats.Dropped > 0 {
		printDetail("Too small to draw: %v", result.Frame.Dropped)
	}
	return nil
}

// outputPaths maps each format to its output file.
func outputPaths(input, output string, formats []string) map[string]string {
	paths := make(map[string]string, len(formats))
	if len(formats) == 1 && output != "" && filepath.Ext(output) != "" {
		paths[formats[0]] = output
		return paths
	}
	base := output
	if base == "" {
		base = outputBase(input)
	}
	for _, f := range formats {
		paths[f] = base + "." + f
	}
	return paths
}
