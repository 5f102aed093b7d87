package sink

import (
	"encoding/json"

	"github.com/matzehuels/revenuemap/pkg/treemap"
)

// JSONOption configures [RenderJSON].
type JSONOption func(*jsonRenderer)

type jsonRenderer struct {
	indent bool
}

// WithJSONCompact disables indentation.
func WithJSONCompact() JSONOption { return func(r *jsonRenderer) { r.indent = false } }

// Document is the JSON representation of a rendered heatmap.
type Document struct {
	Title        string     `json:"title,omitempty" bson:"title,omitempty"`
	Period       string     `json:"period,omitempty" bson:"period,omitempty"`
	Currency     string     `json:"currency,omitempty" bson:"currency,omitempty"`
	Width        float64    `json:"width" bson:"width"`
	Height       float64    `json:"height" bson:"height"`
	TotalRevenue float64    `json:"total_revenue" bson:"total_revenue"`
	Tiles        []TileJSON `json:"tiles" bson:"tiles"`
	Dropped      []string   `json:"dropped,omitempty" bson:"dropped,omitempty"`
}

// TileJSON is one placed record.
type TileJSON struct {
	ID        string  `json:"id" bson:"id"`
	Label     string  `json:"label" bson:"label"`
	Category  string  `json:"category,omitempty" bson:"category,omitempty"`
	X         float64 `json:"x" bson:"x"`
	Y         float64 `json:"y" bson:"y"`
	Width     float64 `json:"width" bson:"width"`
	Height    float64 `json:"height" bson:"height"`
	Color     string  `json:"color" bson:"color"`
	Hex       string  `json:"hex" bson:"hex"`
	Revenue   float64 `json:"revenue" bson:"revenue"`
	ChangePct float64 `json:"change_pct" bson:"change_pct"`
	Share     float64 `json:"share" bson:"share"`
	Orders    int     `json:"orders,omitempty" bson:"orders,omitempty"`
}

// NewDocument converts a frame to its JSON representation. Share is each
// tile's fraction of the placed revenue.
func NewDocument(f Frame) Document {
	total := f.TotalRevenue()
	doc := Document{
		Title:        f.Title,
		Period:       f.Period,
		Currency:     f.Currency,
		Width:        f.Container.Width,
		Height:       f.Container.Height,
		TotalRevenue: total,
		Tiles:        make([]TileJSON, 0, len(f.Tiles)),
		Dropped:      f.Dropped,
	}
	for _, t := range f.Tiles {
		tj := TileJSON{
			ID:        t.ID,
			Label:     t.Data.DisplayLabel(),
			Category:  t.Data.Category,
			X:         t.X,
			Y:         t.Y,
			Width:     t.Width,
			Height:    t.Height,
			Color:     t.Color,
			Hex:       treemap.HSLFor(t.Change).Hex(),
			Revenue:   t.Weight,
			ChangePct: t.Change,
			Orders:    t.Data.Orders,
		}
		if total > 0 {
			tj.Share = t.Weight / total
		}
		doc.Tiles = append(doc.Tiles, tj)
	}
	return doc
}

// RenderJSON encodes the frame as a [Document], indented by default.
func RenderJSON(f Frame, opts ...JSONOption) ([]byte, error) {
	r := jsonRenderer{indent: true}
	for _, opt := range opts {
		opt(&r)
	}
	doc := NewDocument(f)
	if r.indent {
		return json.MarshalIndent(doc, "", "  ")
	}
	return json.Marshal(doc)
}
