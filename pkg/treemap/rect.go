package treemap

// Rect is an axis-aligned rectangle. Y grows downward, matching SVG and
// CSS coordinates.
type Rect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Area returns Width * Height.
func (r Rect) Area() float64 { return r.Width * r.Height }

// Right returns the X coordinate of the right edge.
func (r Rect) Right() float64 { return r.X + r.Width }

// Bottom returns the Y coordinate of the bottom edge.
func (r Rect) Bottom() float64 { return r.Y + r.Height }

// CenterX returns the horizontal center point.
func (r Rect) CenterX() float64 { return r.X + r.Width/2 }

// CenterY returns the vertical center point.
func (r Rect) CenterY() float64 { return r.Y + r.Height/2 }

// Contains reports whether o lies inside r, allowing each edge to stick out
// by at most tol.
func (r Rect) Contains(o Rect, tol float64) bool {
	return o.X >= r.X-tol &&
		o.Y >= r.Y-tol &&
		o.Right() <= r.Right()+tol &&
		o.Bottom() <= r.Bottom()+tol
}

// Overlaps reports whether the interiors of r and o intersect by more than
// tol along both axes. Rectangles that merely share an edge do not overlap.
func (r Rect) Overlaps(o Rect, tol float64) bool {
	dx := min(r.Right(), o.Right()) - max(r.X, o.X)
	dy := min(r.Bottom(), o.Bottom()) - max(r.Y, o.Y)
	return dx > tol && dy > tol
}
