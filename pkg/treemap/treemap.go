package treemap

import (
	"cmp"
	"math"
	"slices"

	"github.com/matzehuels/revenuemap/pkg/errors"
)

// Item is a weighted input to the layout. Data is an opaque payload that is
// carried through to the resulting [Tile] unchanged.
type Item[T any] struct {
	ID     string  `json:"id"`
	Weight float64 `json:"weight"`
	Change float64 `json:"change"`
	Data   T       `json:"data"`
}

// Tile is a placed item: the original item, its rectangle in container
// coordinates and its fill color.
type Tile[T any] struct {
	Item[T]
	Rect
	Color string `json:"color"`
}

// Option configures [Build] and [Layout].
type Option func(*config)

type config struct {
	minPartition float64
	color        func(float64) string
}

// WithMinPartition sets the leftover width or height below which partitioning
// stops (default [MinPartitionDimension]). Zero disables dropping.
func WithMinPartition(d float64) Option {
	return func(c *config) { c.minPartition = d }
}

// WithColor replaces [ColorFor] as the change-to-color mapping.
func WithColor(fn func(change float64) string) Option {
	return func(c *config) {
		if fn != nil {
			c.color = fn
		}
	}
}

func newConfig(opts []Option) config {
	c := config{minPartition: MinPartitionDimension, color: ColorFor}
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

// Build lays out items inside container and returns one tile per placed
// item, largest weight first.
//
// Items are sorted by weight on a private copy; ties keep their input order,
// so equal inputs always produce equal outputs. Items dropped because the
// container ran out (see [WithMinPartition]) are absent from the result.
//
// Build does not validate its input. Weights must be finite and
// non-negative; use [Layout] for untrusted data.
func Build[T any](items []Item[T], container Rect, opts ...Option) []Tile[T] {
	if len(items) == 0 {
		return []Tile[T]{}
	}
	cfg := newConfig(opts)

	sorted := slices.Clone(items)
	slices.SortStableFunc(sorted, func(a, b Item[T]) int {
		return cmp.Compare(b.Weight, a.Weight)
	})

	weights := make([]float64, len(sorted))
	for i, it := range sorted {
		weights[i] = it.Weight
	}

	rects := squarify(weights, container, cfg.minPartition, make([]Rect, 0, len(sorted)))

	tiles := make([]Tile[T], len(rects))
	for i, r := range rects {
		tiles[i] = Tile[T]{
			Item:  sorted[i],
			Rect:  r,
			Color: cfg.color(sorted[i].Change),
		}
	}
	return tiles
}

// Layout validates items and container and then calls [Build].
func Layout[T any](items []Item[T], container Rect, opts ...Option) ([]Tile[T], error) {
	if err := ValidateContainer(container); err != nil {
		return nil, err
	}
	if err := ValidateItems(items); err != nil {
		return nil, err
	}
	return Build(items, container, opts...), nil
}

// ValidateContainer checks that r has a finite origin and a positive, finite
// size.
func ValidateContainer(r Rect) error {
	for _, v := range []float64{r.X, r.Y, r.Width, r.Height} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return errors.New(errors.ErrCodeInvalidContainer, "container has non-finite geometry: %+v", r)
		}
	}
	if r.Width <= 0 || r.Height <= 0 {
		return errors.New(errors.ErrCodeInvalidContainer, "container must have positive size, got %gx%g", r.Width, r.Height)
	}
	return nil
}

// ValidateItems checks that every item has a unique id, a finite
// non-negative weight and a finite change value.
func ValidateItems[T any](items []Item[T]) error {
	seen := make(map[string]struct{}, len(items))
	for _, it := range items {
		if _, dup := seen[it.ID]; dup {
			return errors.New(errors.ErrCodeInvalidInput, "duplicate item id %q", it.ID)
		}
		seen[it.ID] = struct{}{}

		if math.IsNaN(it.Weight) || math.IsInf(it.Weight, 0) {
			return errors.New(errors.ErrCodeInvalidWeight, "item %q has non-finite weight", it.ID)
		}
		if it.Weight < 0 {
			return errors.New(errors.ErrCodeInvalidWeight, "item %q has negative weight %g", it.ID, it.Weight)
		}
		if math.IsNaN(it.Change) || math.IsInf(it.Change, 0) {
			return errors.New(errors.ErrCodeInvalidInput, "item %q has non-finite change", it.ID)
		}
	}
	return nil
}

// Missing returns the ids of items that have no tile, in input order.
func Missing[T any](items []Item[T], tiles []Tile[T]) []string {
	if len(tiles) == len(items) {
		return nil
	}
	placed := make(map[string]struct{}, len(tiles))
	for _, t := range tiles {
		placed[t.ID] = struct{}{}
	}
	var missing []string
	for _, it := range items {
		if _, ok := placed[it.ID]; !ok {
			missing = append(missing, it.ID)
		}
	}
	return missing
}
