package sink

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"math"
	"strconv"
	"unicode/utf8"
)

const (
	fontHeightRatio = 0.28
	fontWidthRatio  = 0.85
	fontCharWidth   = 0.55
	fontSizeMin     = 7.0
	fontSizeMax     = 28.0
	minLabelChars   = 3
)

// fontSizeFor picks the largest font that fits text into the box, or 0 when
// even the minimum size does not fit.
func fontSizeFor(w, h float64, text string) float64 {
	n := max(minLabelChars, utf8.RuneCountInString(text))
	byHeight := h * fontHeightRatio
	byWidth := (w * fontWidthRatio) / (float64(n) * fontCharWidth)
	size := min(fontSizeMax, byHeight, byWidth)
	if size < fontSizeMin {
		// retry with a truncated label
		byWidth = (w * fontWidthRatio) / (minLabelChars * fontCharWidth)
		if min(byHeight, byWidth) < fontSizeMin {
			return 0
		}
		return fontSizeMin
	}
	return size
}

// truncate shortens s to at most n runes, marking the cut with "..".
func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	if n < minLabelChars {
		n = minLabelChars
	}
	runes := []rune(s)
	return string(runes[:n-2]) + ".."
}

// fitLabel returns the label and font size to draw in a w x h box.
func fitLabel(label string, w, h float64) (string, float64) {
	size := fontSizeFor(w, h, label)
	if size == 0 {
		return "", 0
	}
	maxChars := int((w * fontWidthRatio) / (size * fontCharWidth))
	return truncate(label, maxChars), size
}

func formatChange(pct float64) string {
	return fmt.Sprintf("%+.1f%%", pct)
}

func formatMoney(v float64, currency string) string {
	var s string
	switch abs := math.Abs(v); {
	case abs >= 1e9:
		s = strconv.FormatFloat(v/1e9, 'f', 1, 64) + "B"
	case abs >= 1e6:
		s = strconv.FormatFloat(v/1e6, 'f', 1, 64) + "M"
	case abs >= 1e3:
		s = strconv.FormatFloat(v/1e3, 'f', 1, 64) + "k"
	default:
		s = strconv.FormatFloat(v, 'f', 0, 64)
	}
	if currency != "" {
		return s + " " + currency
	}
	return s
}

// num formats a coordinate with at most two decimals.
func num(v float64) string {
	return strconv.FormatFloat(math.Round(v*100)/100, 'f', -1, 64)
}

func escapeXML(s string) string {
	var buf bytes.Buffer
	_ = xml.EscapeText(&buf, []byte(s))
	return buf.String()
}
