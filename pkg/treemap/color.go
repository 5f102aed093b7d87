package treemap

import (
	"fmt"
	"math"
	"strconv"
)

// ColorThreshold is the absolute change at which tile colors reach full
// intensity. Typical percent changes fall within ±5, so ±3 already reads as
// a strong move.
const ColorThreshold = 3.0

const (
	hueGain         = 140.0 // green
	hueLoss         = 0.0   // red
	colorSaturation = 75.0
	lightnessMin    = 20.0
	lightnessRange  = 12.0
)

// HSL is a color in the hue/saturation/lightness model. Hue is in degrees,
// saturation and lightness in percent.
type HSL struct {
	Hue        float64
	Saturation float64
	Lightness  float64
}

// HSLFor maps a change value to a tile color.
//
// Non-negative changes are green, negative changes red. The magnitude
// |change| / [ColorThreshold], clamped to [0, 1], darkens the tile from 32%
// lightness (no change) down to 20% (at or beyond the threshold).
// A NaN change yields a NaN lightness.
func HSLFor(change float64) HSL {
	magnitude := math.Min(math.Abs(change)/ColorThreshold, 1)
	hue := hueGain
	if change < 0 {
		hue = hueLoss
	}
	return HSL{
		Hue:        hue,
		Saturation: colorSaturation,
		Lightness:  lightnessMin + (1-magnitude)*lightnessRange,
	}
}

// ColorFor returns the CSS color string for a change value, e.g.
// "hsl(140 75% 32%)" for no change.
func ColorFor(change float64) string {
	return HSLFor(change).String()
}

// String formats c as a CSS Color 4 hsl() value. Components are rounded to
// two decimals.
func (c HSL) String() string {
	return fmt.Sprintf("hsl(%s %s%% %s%%)", formatComponent(c.Hue), formatComponent(c.Saturation), formatComponent(c.Lightness))
}

// Hex converts c to a "#rrggbb" string for outputs that cannot consume
// hsl() values, such as terminal styles.
func (c HSL) Hex() string {
	h := math.Mod(c.Hue, 360) / 360
	if h < 0 {
		h++
	}
	s := c.Saturation / 100
	l := c.Lightness / 100

	var r, g, b float64
	if s == 0 {
		r, g, b = l, l, l
	} else {
		q := l + s - l*s
		if l < 0.5 {
			q = l * (1 + s)
		}
		p := 2*l - q
		r = hueToRGB(p, q, h+1.0/3)
		g = hueToRGB(p, q, h)
		b = hueToRGB(p, q, h-1.0/3)
	}
	return fmt.Sprintf("#%02x%02x%02x", toByte(r), toByte(g), toByte(b))
}

func hueToRGB(p, q, t float64) float64 {
	if t < 0 {
		t++
	}
	if t > 1 {
		t--
	}
	switch {
	case t < 1.0/6:
		return p + (q-p)*6*t
	case t < 1.0/2:
		return q
	case t < 2.0/3:
		return p + (q-p)*(2.0/3-t)*6
	default:
		return p
	}
}

func toByte(v float64) uint8 {
	return uint8(math.Round(math.Max(0, math.Min(1, v)) * 255))
}

func formatComponent(v float64) string {
	return strconv.FormatFloat(math.Round(v*100)/100, 'f', -1, 64)
}
