package treemap

import "math"

// MinPartitionDimension is the default width or height below which a leftover
// rectangle is considered exhausted. Items still waiting at that point are
// dropped rather than squeezed into sliver tiles.
const MinPartitionDimension = 0.01

// squarify appends one rectangle per weight to out, in the order of weights,
// and returns the extended slice. weights must be sorted in decreasing
// order. If the leftover rectangle becomes thinner than minDim, the
// remaining weights get no rectangle and out is shorter than weights.
//
// Each loop iteration is one level of the recursive partition: place a row,
// then continue with the rest of the items in the leftover rectangle.
func squarify(weights []float64, r Rect, minDim float64, out []Rect) []Rect {
	for len(weights) > 0 {
		if len(weights) == 1 {
			return append(out, r)
		}

		effective, total := weights, sum(weights)
		if total <= 0 {
			// Only zero weights remain; share the rectangle equally.
			effective, total = uniform(len(weights)), float64(len(weights))
		}

		n := selectRow(effective, total, r)
		row := effective[:n]

		var rest Rect
		out, rest = layoutRow(row, sum(row), total, r, out)

		weights = weights[n:]
		if len(weights) == 0 || rest.Width < minDim || rest.Height < minDim {
			break
		}
		r = rest
	}
	return out
}

// layoutRow places row as a strip of r and returns the leftover rectangle.
// Wide rectangles get a vertical strip on the left, tall ones a horizontal
// strip on top. The last tile absorbs rounding so the strip is filled exactly.
func layoutRow(row []float64, rowSum, total float64, r Rect, out []Rect) ([]Rect, Rect) {
	fraction := rowSum / total

	if r.Width >= r.Height {
		thickness := r.Width * fraction
		y, end := r.Y, r.Bottom()
		for i, w := range row {
			h := r.Height * w / rowSum
			if i == len(row)-1 {
				h = math.Max(0, end-y)
			}
			out = append(out, Rect{X: r.X, Y: y, Width: thickness, Height: h})
			y += h
		}
		return out, Rect{X: r.X + thickness, Y: r.Y, Width: r.Width - thickness, Height: r.Height}
	}

	thickness := r.Height * fraction
	x, end := r.X, r.Right()
	for i, w := range row {
		wd := r.Width * w / rowSum
		if i == len(row)-1 {
			wd = math.Max(0, end-x)
		}
		out = append(out, Rect{X: x, Y: r.Y, Width: wd, Height: thickness})
		x += wd
	}
	return out, Rect{X: r.X, Y: r.Y + thickness, Width: r.Width, Height: r.Height - thickness}
}

func sum(weights []float64) float64 {
	var s float64
	for _, w := range weights {
		s += w
	}
	return s
}

func uniform(n int) []float64 {
	u := make([]float64, n)
	for i := range u {
		u[i] = 1
	}
	return u
}
