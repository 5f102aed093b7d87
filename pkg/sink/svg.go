package sink

import (
	"bytes"
	"fmt"

	"github.com/matzehuels/revenuemap/pkg/heatmap"
	"github.com/matzehuels/revenuemap/pkg/treemap"
)

const tileCSS = `
    .tile rect { stroke: #0b0f14; stroke-width: 1; }
    .tile:hover rect { stroke: #f4f4f5; stroke-width: 2; }
    .tile text { fill: #f4f4f5; font-family: -apple-system, "Segoe UI", Roboto, sans-serif; pointer-events: none; }
    .tile .change { fill-opacity: 0.8; }`

// SVGOption configures [RenderSVG].
type SVGOption func(*svgRenderer)

type svgRenderer struct {
	labels   bool
	tooltips bool
	css      bool
}

// WithoutLabels omits tile labels.
func WithoutLabels() SVGOption { return func(r *svgRenderer) { r.labels = false } }

// WithoutTooltips omits the per-tile <title> hover text.
func WithoutTooltips() SVGOption { return func(r *svgRenderer) { r.tooltips = false } }

// WithoutStyles omits the embedded stylesheet.
func WithoutStyles() SVGOption { return func(r *svgRenderer) { r.css = false } }

// RenderSVG draws the frame as a standalone SVG document whose viewBox is the
// frame container.
func RenderSVG(f Frame, opts ...SVGOption) []byte {
	r := svgRenderer{labels: true, tooltips: true, css: true}
	for _, opt := range opts {
		opt(&r)
	}

	c := f.Container
	var buf bytes.Buffer
	fmt.Fprintf(&buf, `<svg xmlns="http://www.w3.org/2000/svg" viewBox="%s %s %s %s" width="%s" height="%s" role="img"`,
		num(c.X), num(c.Y), num(c.Width), num(c.Height), num(c.Width), num(c.Height))
	if f.Title != "" {
		fmt.Fprintf(&buf, ` aria-label="%s"`, escapeXML(f.Title))
	}
	buf.WriteString(">\n")
	if f.Title != "" {
		fmt.Fprintf(&buf, "  <title>%s</title>\n", escapeXML(f.Title))
	}
	if r.css {
		fmt.Fprintf(&buf, "  <style>%s\n  </style>\n", tileCSS)
	}

	for _, t := range f.Tiles {
		r.renderTile(&buf, t, f.Currency)
	}

	buf.WriteString("</svg>\n")
	return buf.Bytes()
}

func (r *svgRenderer) renderTile(buf *bytes.Buffer, t treemap.Tile[heatmap.Record], currency string) {
	fmt.Fprintf(buf, `  <g class="tile" id="tile-%s">`, escapeXML(t.ID))
	fmt.Fprintf(buf, `<rect x="%s" y="%s" width="%s" height="%s" fill="%s"/>`,
		num(t.X), num(t.Y), num(t.Width), num(t.Height), t.Color)

	if r.labels {
		renderLabel(buf, t)
	}
	if r.tooltips {
		fmt.Fprintf(buf, "<title>%s</title>", escapeXML(tooltip(t, currency)))
	}
	buf.WriteString("</g>\n")
}

func renderLabel(buf *bytes.Buffer, t treemap.Tile[heatmap.Record]) {
	label, size := fitLabel(t.Data.DisplayLabel(), t.Width, t.Height)
	if size == 0 {
		return
	}
	change := formatChange(t.Change)
	twoLines := t.Height >= size*3.2

	cy := t.CenterY()
	if twoLines {
		cy -= size * 0.6
	}
	fmt.Fprintf(buf, `<text x="%s" y="%s" font-size="%s" text-anchor="middle" dominant-baseline="middle">%s</text>`,
		num(t.CenterX()), num(cy), num(size), escapeXML(label))
	if twoLines {
		fmt.Fprintf(buf, `<text class="change" x="%s" y="%s" font-size="%s" text-anchor="middle" dominant-baseline="middle">%s</text>`,
			num(t.CenterX()), num(cy+size*1.2), num(size*0.8), change)
	}
}

func tooltip(t treemap.Tile[heatmap.Record], currency string) string {
	s := fmt.Sprintf("%s: %s (%s)", t.Data.DisplayLabel(), formatMoney(t.Weight, currency), formatChange(t.Change))
	if t.Data.Category != "" {
		s += " / " + t.Data.Category
	}
	return s
}
