package cli

import (
	"context"
	"fmt"
	"math"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/matzehuels/revenuemap/pkg/heatmap"
	"github.com/matzehuels/revenuemap/pkg/pipeline"
	"github.com/matzehuels/revenuemap/pkg/sink"
	"github.com/matzehuels/revenuemap/pkg/treemap"
)

// Lines used by the viewer around the map: header, detail and help.
const chromeLines = 3

var (
	viewTitleStyle  = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
	viewDetailStyle = lipgloss.NewStyle().Foreground(colorWhite)
	viewHelpStyle   = lipgloss.NewStyle().Foreground(colorDim)
)

// viewCommand opens the interactive terminal heatmap.
func (c *CLI) viewCommand() *cobra.Command {
	var flags layoutFlags

	cmd := &cobra.Command{
		Use:   "view [dataset]",
		Short: "Explore a dataset as an interactive terminal heatmap",
		Long: `Explore a dataset as an interactive terminal heatmap.

The layout follows the terminal size. Arrow keys (or hjkl) move the
selection to the neighboring tile, tab cycles tiles by revenue, clicking
selects a tile and q quits.`,
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: completeDataset,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			defaults, err := c.layoutDefaults()
			if err != nil {
				return err
			}
			ds, err := c.loadDataset(args[0], flags.inputFormat)
			if err != nil {
				return err
			}
			if err := ds.Validate(); err != nil {
				return err
			}

			// terminal-sized layouts are cheap and rarely repeat
			runner, err := c.newRunner(ctx, true)
			if err != nil {
				return err
			}
			opts := flags.options(defaults)
			prepared, _ := runner.Prepare(ctx, ds, opts)

			m := newViewModel(ctx, runner, prepared, opts)
			_, err = tea.NewProgram(m, tea.WithContext(ctx), tea.WithAltScreen(), tea.WithMouseCellMotion()).Run()
			return err
		},
	}

	flags.register(cmd)
	return cmd
}

// viewModel is the bubbletea model of the interactive heatmap.
type viewModel struct {
	ctx      context.Context
	runner   *pipeline.Runner
	prepared *heatmap.Dataset
	base     pipeline.Options

	cols, rows int
	frame      sink.Frame
	grid       sink.Grid
	selected   int
	err        error
}

func newViewModel(ctx context.Context, runner *pipeline.Runner, prepared *heatmap.Dataset, base pipeline.Options) *viewModel {
	return &viewModel{ctx: ctx, runner: runner, prepared: prepared, base: base}
}

func (m *viewModel) Init() tea.Cmd {
	return nil
}

func (m *viewModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.cols = msg.Width
		m.rows = max(msg.Height-chromeLines, 1)
		m.relayout()
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case "left", "h":
			m.move(-1, 0)
		case "right", "l":
			m.move(1, 0)
		case "up", "k":
			m.move(0, -1)
		case "down", "j":
			m.move(0, 1)
		case "tab":
			m.cycle(1)
		case "shift+tab":
			m.cycle(-1)
		}
	case tea.MouseMsg:
		if msg.Action == tea.MouseActionPress && msg.Button == tea.MouseButtonLeft {
			// the header takes the first line
			if i := m.grid.TileAt(msg.X, msg.Y-1); i >= 0 {
				m.selected = i
			}
		}
	}
	return m, nil
}

// relayout recomputes the frame for the terminal size, keeping the
// selected record if it is still placed.
func (m *viewModel) relayout() {
	selectedID := m.selectedID()

	opts := m.base
	opts.Width = float64(m.cols)
	// cells are about twice as tall as wide
	opts.Height = float64(m.rows * 2)
	frame, err := m.runner.Layout(m.ctx, m.prepared, opts)
	if err != nil {
		m.err = err
		return
	}
	m.err = nil
	m.frame = frame
	m.grid = sink.Rasterize(frame, m.cols, m.rows)

	m.selected = 0
	for i, t := range frame.Tiles {
		if t.ID == selectedID {
			m.selected = i
			break
		}
	}
}

func (m *viewModel) selectedID() string {
	if m.selected < 0 || m.selected >= len(m.frame.Tiles) {
		return ""
	}
	return m.frame.Tiles[m.selected].ID
}

func (m *viewModel) move(dx, dy int) {
	if next := neighbor(m.frame.Tiles, m.selected, dx, dy); next >= 0 {
		m.selected = next
	}
}

func (m *viewModel) cycle(step int) {
	n := len(m.frame.Tiles)
	if n == 0 {
		return
	}
	m.selected = ((m.selected+step)%n + n) % n
}

func (m *viewModel) View() string {
	if m.err != nil {
		return StyleWarning.Render("layout failed: "+m.err.Error()) + "\n"
	}
	if m.cols == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString(m.header())
	b.WriteByte('\n')
	b.WriteString(sink.RenderText(m.frame, sink.WithSize(m.cols, m.rows), sink.WithSelected(m.selectedID())))
	b.WriteByte('\n')
	b.WriteString(m.detail())
	b.WriteByte('\n')
	b.WriteString(viewHelpStyle.Render("←↑↓→ move  tab next  click select  q quit"))
	return b.String()
}

func (m *viewModel) header() string {
	title := m.frame.Title
	if title == "" {
		title = "Revenue"
	}
	if m.frame.Period != "" {
		title += " · " + m.frame.Period
	}
	summary := fmt.Sprintf("  %d tiles · total %.2f %s", len(m.frame.Tiles), m.frame.TotalRevenue(), m.frame.Currency)
	if n := len(m.frame.Dropped); n > 0 {
		summary += fmt.Sprintf(" · %d too small", n)
	}
	return viewTitleStyle.Render(title) + viewHelpStyle.Render(summary)
}

func (m *viewModel) detail() string {
	if m.selectedID() == "" {
		return viewHelpStyle.Render("no records")
	}
	t := m.frame.Tiles[m.selected]
	share := 0.0
	if total := m.frame.TotalRevenue(); total > 0 {
		share = t.Data.Revenue / total * 100
	}
	change := lipgloss.NewStyle().
		Foreground(lipgloss.Color(treemap.HSLFor(t.Change).Hex())).
		Bold(true).
		Render(fmt.Sprintf("%+.1f%%", t.Change))

	line := fmt.Sprintf("%s  revenue %.2f (%.1f%%)  ", t.Data.DisplayLabel(), t.Data.Revenue, share)
	if t.Data.Category != "" {
		return viewDetailStyle.Render(line) + change + viewHelpStyle.Render("  "+t.Data.Category)
	}
	return viewDetailStyle.Render(line) + change
}

// neighbor returns the tile nearest to from in direction (dx, dy), or -1.
// Candidates must lie in the half-plane of the direction; tiles off the
// axis are penalized so movement stays in line.
func neighbor[T any](tiles []treemap.Tile[T], from, dx, dy int) int {
	if from < 0 || from >= len(tiles) {
		return -1
	}
	cx, cy := tiles[from].CenterX(), tiles[from].CenterY()

	best, bestScore := -1, math.Inf(1)
	for i, t := range tiles {
		if i == from {
			continue
		}
		x, y := t.CenterX(), t.CenterY()
		along := (x-cx)*float64(dx) + (y-cy)*float64(dy)
		if along <= 0 {
			continue
		}
		across := math.Abs((x-cx)*float64(dy) - (y-cy)*float64(dx))
		if score := along + 2*across; score < bestScore {
			best, bestScore = i, score
		}
	}
	return best
}
