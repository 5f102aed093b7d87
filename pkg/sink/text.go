package sink

import (
	"fmt"
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/matzehuels/revenuemap/pkg/treemap"
)

// Default terminal grid size.
const (
	DefaultCols = 80
	DefaultRows = 24
)

var (
	textForeground = lipgloss.Color("#F4F4F5")
	textSelected   = lipgloss.Color("#FACC15")
	textEmpty      = lipgloss.Color("#18181B")
)

// TextOption configures [RenderText].
type TextOption func(*textRenderer)

type textRenderer struct {
	cols, rows int
	selected   string
	legend     bool
}

// WithSize sets the grid size in terminal cells.
func WithSize(cols, rows int) TextOption {
	return func(r *textRenderer) {
		if cols > 0 {
			r.cols = cols
		}
		if rows > 0 {
			r.rows = rows
		}
	}
}

// WithSelected highlights the tile with the given id.
func WithSelected(id string) TextOption { return func(r *textRenderer) { r.selected = id } }

// WithLegend appends a color legend line.
func WithLegend() TextOption { return func(r *textRenderer) { r.legend = true } }

// Cell is one terminal grid position: the index of the tile covering it
// (-1 for none) and the rune drawn there.
type Cell struct {
	Tile int
	Ch   rune
}

// Grid is a rasterized frame, indexed [row][col].
type Grid [][]Cell

// TileAt returns the index of the tile covering (x, y), or -1.
func (g Grid) TileAt(x, y int) int {
	if y < 0 || y >= len(g) || x < 0 || x >= len(g[y]) {
		return -1
	}
	return g[y][x].Tile
}

// RenderText scales the frame onto a character grid and paints each tile
// with its heat color. Tiles narrower than a cell may vanish.
func RenderText(f Frame, opts ...TextOption) string {
	r := textRenderer{cols: DefaultCols, rows: DefaultRows}
	for _, opt := range opts {
		opt(&r)
	}

	grid := Rasterize(f, r.cols, r.rows)
	for i, t := range f.Tiles {
		drawLabel(grid, i, t.Data.DisplayLabel(), formatChange(t.Change))
	}

	styles := make([]lipgloss.Style, len(f.Tiles))
	for i, t := range f.Tiles {
		s := lipgloss.NewStyle().
			Background(lipgloss.Color(treemap.HSLFor(t.Change).Hex())).
			Foreground(textForeground)
		if t.ID == r.selected {
			s = s.Foreground(textSelected).Bold(true)
		}
		styles[i] = s
	}
	empty := lipgloss.NewStyle().Background(textEmpty)

	var b strings.Builder
	for y, row := range grid {
		if y > 0 {
			b.WriteByte('\n')
		}
		// one Render call per run of cells sharing a tile
		for x := 0; x < len(row); {
			end := x
			var run strings.Builder
			for end < len(row) && row[end].Tile == row[x].Tile {
				run.WriteRune(row[end].Ch)
				end++
			}
			style := empty
			if row[x].Tile >= 0 {
				style = styles[row[x].Tile]
			}
			b.WriteString(style.Render(run.String()))
			x = end
		}
	}

	if r.legend {
		b.WriteByte('\n')
		b.WriteString(legend())
	}
	return b.String()
}

// Rasterize maps tiles onto a cols x rows grid. Tile edges snap to the
// nearest cell boundary.
func Rasterize(f Frame, cols, rows int) Grid {
	grid := make(Grid, rows)
	for y := range grid {
		grid[y] = make([]Cell, cols)
		for x := range grid[y] {
			grid[y][x] = Cell{Tile: -1, Ch: ' '}
		}
	}
	c := f.Container
	if c.Width <= 0 || c.Height <= 0 || cols <= 0 || rows <= 0 {
		return grid
	}
	sx := float64(cols) / c.Width
	sy := float64(rows) / c.Height

	for i, t := range f.Tiles {
		x0 := int(math.Round((t.X - c.X) * sx))
		x1 := int(math.Round((t.Right() - c.X) * sx))
		y0 := int(math.Round((t.Y - c.Y) * sy))
		y1 := int(math.Round((t.Bottom() - c.Y) * sy))
		for y := max(0, y0); y < min(rows, y1); y++ {
			for x := max(0, x0); x < min(cols, x1); x++ {
				grid[y][x].Tile = i
			}
		}
	}
	return grid
}

// drawLabel writes the label (and change, if there is room) into the first
// rows of the tile's cells, leaving one cell of padding on the left.
func drawLabel(grid Grid, tile int, label, change string) {
	x0, y0, w, h := bounds(grid, tile)
	if w < 4 || h < 1 {
		return
	}
	writeRunes(grid[y0][x0+1:x0+w], truncate(label, w-1))
	if h >= 2 {
		writeRunes(grid[y0+1][x0+1:x0+w], truncate(change, w-1))
	}
}

func bounds(grid Grid, tile int) (x0, y0, w, h int) {
	x0, y0 = -1, -1
	for y, row := range grid {
		for x, c := range row {
			if c.Tile != tile {
				continue
			}
			if x0 < 0 {
				x0, y0 = x, y
			}
			if y == y0 {
				w = x - x0 + 1
			}
			h = y - y0 + 1
		}
	}
	return x0, y0, w, h
}

func writeRunes(cells []Cell, s string) {
	i := 0
	for _, r := range s {
		if i >= len(cells) {
			return
		}
		cells[i].Ch = r
		i++
	}
}

func legend() string {
	steps := []float64{-3, -2, -1, 0, 1, 2, 3}
	var b strings.Builder
	for _, s := range steps {
		style := lipgloss.NewStyle().
			Background(lipgloss.Color(treemap.HSLFor(s).Hex())).
			Foreground(textForeground)
		b.WriteString(style.Render(fmt.Sprintf(" %+.0f%% ", s)))
	}
	return b.String()
}
