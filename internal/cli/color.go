package cli

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/matzehuels/revenuemap/pkg/errors"
	"github.com/matzehuels/revenuemap/pkg/treemap"
)

// colorCommand prints the heat color of change percentages.
func (c *CLI) colorCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "color <change>...",
		Short: "Show the tile color for change percentages",
		Long: `Show the tile color for one or more change percentages.

Growth maps to green, decline to red; the color gets brighter as the change
approaches +/-3% and stays constant beyond.

  revenuemap color -- -2.5 0 1 4`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			changes, err := parseChanges(args)
			if err != nil {
				return err
			}
			printColors(cmd.OutOrStdout(), changes)
			return nil
		},
	}
}

func parseChanges(args []string) ([]float64, error) {
	changes := make([]float64, 0, len(args))
	for _, a := range args {
		v, err := strconv.ParseFloat(strings.TrimSuffix(a, "%"), 64)
		if err != nil {
			return nil, errors.New(errors.ErrCodeInvalidInput, "not a change percentage: %q", a)
		}
		changes = append(changes, v)
	}
	return changes, nil
}

func printColors(w io.Writer, changes []float64) {
	for _, v := range changes {
		hsl := treemap.HSLFor(v)
		swatch := lipgloss.NewStyle().Background(lipgloss.Color(hsl.Hex())).Render("      ")
		fmt.Fprintf(w, "%s %8s  %-22s %s\n", swatch, fmt.Sprintf("%+.2f%%", v), hsl.String(), hsl.Hex())
	}
}
