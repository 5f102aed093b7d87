package treemap

import "math"

// rowStats is the running aggregate of a candidate row. Tracking the
// smallest positive and the largest weight is enough to evaluate the row's
// worst ratio without rescanning its members.
type rowStats struct {
	sum float64
	min float64 // smallest positive weight, 0 if none
	max float64
}

func (s rowStats) add(w float64) rowStats {
	s.sum += w
	if w > 0 && (s.min == 0 || w < s.min) {
		s.min = w
	}
	if w > s.max {
		s.max = w
	}
	return s
}

// worst returns the largest tile aspect ratio in the row when the row is
// placed as a strip of a rectangle whose remaining weight is total. depth is
// the side the strip's thickness is taken from, length the side its tiles
// are spread along.
//
// A tile of weight w has the strip thickness on one axis and
// length*w/sum on the other, and its ratio max(a/b, b/a) is extreme at the
// smallest or largest weight. Zero-weight tiles are ignored.
func (s rowStats) worst(total, depth, length float64) float64 {
	if s.sum <= 0 || s.min <= 0 {
		return 1
	}
	thickness := depth * s.sum / total
	ratio := func(w float64) float64 {
		size := length * w / s.sum
		return math.Max(thickness/size, size/thickness)
	}
	return math.Max(ratio(s.min), ratio(s.max))
}

// selectRow returns how many leading weights form the next row of r.
// weights must be sorted in decreasing order and total must be their sum.
func selectRow(weights []float64, total float64, r Rect) int {
	if len(weights) <= 1 {
		return len(weights)
	}

	depth, length := r.Width, r.Height
	if r.Width < r.Height {
		depth, length = r.Height, r.Width
	}

	row := rowStats{}.add(weights[0])
	best := row.worst(total, depth, length)
	n := 1
	for n < len(weights) {
		next := row.add(weights[n])
		ratio := next.worst(total, depth, length)
		if ratio > best {
			break
		}
		row, best = next, ratio
		n++
	}
	return n
}
