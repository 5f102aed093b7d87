// Package sink renders a laid-out revenue heatmap.
//
// A [Frame] is the output of the layout stage: the container, the placed
// tiles (largest revenue first) and the ids of records that did not fit.
// Three renderers consume it:
//
//   - [RenderSVG]: standalone SVG document with labels and hover tooltips
//   - [RenderJSON]: tile geometry and figures for web frontends
//   - [RenderText]: ANSI-colored character grid for terminals
//
// Renderers never modify the frame and are safe to call concurrently.
package sink

import (
	"github.com/matzehuels/revenuemap/pkg/heatmap"
	"github.com/matzehuels/revenuemap/pkg/treemap"
)

// Supported output formats.
const (
	FormatSVG  = "svg"
	FormatJSON = "json"
	FormatText = "txt"
)

// Formats lists the formats accepted by the CLI and the HTTP API.
var Formats = []string{FormatSVG, FormatJSON, FormatText}

// Frame is a computed heatmap layout plus the dataset header.
type Frame struct {
	Title     string                         `json:"title,omitempty"`
	Period    string                         `json:"period,omitempty"`
	Currency  string                         `json:"currency,omitempty"`
	Container treemap.Rect                   `json:"container"`
	Tiles     []treemap.Tile[heatmap.Record] `json:"tiles"`
	Dropped   []string                       `json:"dropped,omitempty"`
}

// TotalRevenue sums the revenue of the placed tiles.
func (f *Frame) TotalRevenue() float64 {
	var total float64
	for _, t := range f.Tiles {
		total += t.Weight
	}
	return total
}
