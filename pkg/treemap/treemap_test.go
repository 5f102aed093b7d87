package treemap

import (
	"math"
	"reflect"
	"slices"
	"sync"
	"testing"

	"github.com/matzehuels/revenuemap/pkg/errors"
)

var unitSquare = Rect{X: 0, Y: 0, Width: 100, Height: 100}

type product struct {
	Name     string
	Category string
}

func items(weights ...float64) []Item[struct{}] {
	out := make([]Item[struct{}], len(weights))
	for i, w := range weights {
		out[i] = Item[struct{}]{ID: string(rune('a' + i)), Weight: w}
	}
	return out
}

func TestBuildEmpty(t *testing.T) {
	tiles := Build[struct{}](nil, unitSquare)
	if tiles == nil {
		t.Fatal("Build(nil) = nil, want empty slice")
	}
	if len(tiles) != 0 {
		t.Errorf("len(Build(nil)) = %d, want 0", len(tiles))
	}
}

func TestBuildSingleItem(t *testing.T) {
	tiles := Build([]Item[struct{}]{{ID: "a", Weight: 50, Change: 2}}, unitSquare)
	if len(tiles) != 1 {
		t.Fatalf("len(tiles) = %d, want 1", len(tiles))
	}
	if tiles[0].Rect != unitSquare {
		t.Errorf("tile rect = %+v, want %+v", tiles[0].Rect, unitSquare)
	}
	if tiles[0].Color != ColorFor(2) {
		t.Errorf("tile color = %q, want %q", tiles[0].Color, ColorFor(2))
	}
}

func TestBuildTwoEqualItems(t *testing.T) {
	tiles := Build(items(50, 50), unitSquare)
	if len(tiles) != 2 {
		t.Fatalf("len(tiles) = %d, want 2", len(tiles))
	}
	for _, tile := range tiles {
		if math.Abs(tile.Area()-5000) > 1e-9 {
			t.Errorf("tile %s area = %v, want 5000", tile.ID, tile.Area())
		}
	}
	if tiles[0].Overlaps(tiles[1].Rect, 1e-9) {
		t.Errorf("tiles overlap: %+v %+v", tiles[0].Rect, tiles[1].Rect)
	}
	if got := tiles[0].Area() + tiles[1].Area(); math.Abs(got-unitSquare.Area()) > 1e-9 {
		t.Errorf("total area = %v, want %v", got, unitSquare.Area())
	}
}

func TestBuildClassicLayout(t *testing.T) {
	tiles := Build(items(6, 6, 4, 3, 2, 2, 1), Rect{Width: 6, Height: 4})
	if len(tiles) != 7 {
		t.Fatalf("len(tiles) = %d, want 7", len(tiles))
	}

	got := make([]Rect, 3)
	for i := range got {
		got[i] = tiles[i].Rect
	}
	assertRects(t, got, []Rect{
		{X: 0, Y: 0, Width: 3, Height: 2},
		{X: 0, Y: 2, Width: 3, Height: 2},
		{X: 3, Y: 0, Width: 12.0 / 7, Height: 7.0 / 3},
	})
}

func TestBuildSortsByWeight(t *testing.T) {
	tiles := Build(items(1, 5, 3), unitSquare)
	var weights []float64
	for _, tile := range tiles {
		weights = append(weights, tile.Weight)
	}
	if !slices.Equal(weights, []float64{5, 3, 1}) {
		t.Errorf("tile weights = %v, want [5 3 1]", weights)
	}
}

func TestBuildDoesNotMutateInput(t *testing.T) {
	in := items(1, 5, 3)
	before := slices.Clone(in)
	Build(in, unitSquare)
	if !reflect.DeepEqual(in, before) {
		t.Errorf("Build mutated its input: %v, want %v", in, before)
	}
}

func TestBuildPassesDataThrough(t *testing.T) {
	in := []Item[product]{
		{ID: "p1", Weight: 30, Change: 1.2, Data: product{Name: "Mug", Category: "Kitchen"}},
		{ID: "p2", Weight: 70, Change: -0.4, Data: product{Name: "Lamp", Category: "Lighting"}},
	}
	tiles := Build(in, unitSquare)

	byID := map[string]Tile[product]{}
	for _, tile := range tiles {
		byID[tile.ID] = tile
	}
	for _, it := range in {
		tile, ok := byID[it.ID]
		if !ok {
			t.Fatalf("no tile for %s", it.ID)
		}
		if tile.Item != it {
			t.Errorf("tile item = %+v, want %+v", tile.Item, it)
		}
	}
}

func TestBuildZeroWeight(t *testing.T) {
	tiles := Build(items(10, 0), unitSquare)
	if len(tiles) != 2 {
		t.Fatalf("len(tiles) = %d, want 2", len(tiles))
	}
	if tiles[0].Area() != unitSquare.Area() {
		t.Errorf("positive tile area = %v, want %v", tiles[0].Area(), unitSquare.Area())
	}
	if tiles[1].Area() != 0 {
		t.Errorf("zero-weight tile area = %v, want 0", tiles[1].Area())
	}
	if !unitSquare.Contains(tiles[1].Rect, 1e-9) {
		t.Errorf("zero-weight tile %+v outside container", tiles[1].Rect)
	}
}

func TestBuildAllZeroWeights(t *testing.T) {
	tiles := Build(items(0, 0), unitSquare)
	if len(tiles) != 2 {
		t.Fatalf("len(tiles) = %d, want 2", len(tiles))
	}
	for _, tile := range tiles {
		if math.Abs(tile.Area()-5000) > 1e-9 {
			t.Errorf("tile %s area = %v, want equal share 5000", tile.ID, tile.Area())
		}
	}
}

func TestBuildDropsWhenContainerExhausted(t *testing.T) {
	in := items(1000, 0.1)

	tiles := Build(in, unitSquare)
	if len(tiles) != 1 {
		t.Fatalf("len(tiles) = %d, want 1 (second item dropped)", len(tiles))
	}
	if got := Missing(in, tiles); !slices.Equal(got, []string{"b"}) {
		t.Errorf("Missing() = %v, want [b]", got)
	}

	tiles = Build(in, unitSquare, WithMinPartition(0.001))
	if len(tiles) != 2 {
		t.Errorf("len(tiles) with smaller threshold = %d, want 2", len(tiles))
	}
	if got := Missing(in, tiles); got != nil {
		t.Errorf("Missing() = %v, want nil", got)
	}
}

func TestBuildWithColor(t *testing.T) {
	tiles := Build(items(1, 2), unitSquare, WithColor(func(float64) string { return "gray" }))
	for _, tile := range tiles {
		if tile.Color != "gray" {
			t.Errorf("tile %s color = %q, want gray", tile.ID, tile.Color)
		}
	}

	tiles = Build(items(1), unitSquare, WithColor(nil))
	if tiles[0].Color != ColorFor(0) {
		t.Errorf("WithColor(nil) should keep the default palette, got %q", tiles[0].Color)
	}
}

func TestBuildOffsetContainer(t *testing.T) {
	container := Rect{X: 10, Y: 20, Width: 40, Height: 30}
	tiles := Build(items(5, 4, 3, 2, 1), container)
	var area float64
	for _, tile := range tiles {
		if !container.Contains(tile.Rect, 1e-9) {
			t.Errorf("tile %s %+v outside container %+v", tile.ID, tile.Rect, container)
		}
		area += tile.Area()
	}
	if math.Abs(area-container.Area()) > 1e-9 {
		t.Errorf("total area = %v, want %v", area, container.Area())
	}
}

func TestBuildConcurrent(t *testing.T) {
	in := items(9, 7, 5, 3, 1)
	want := Build(in, unitSquare)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if got := Build(in, unitSquare); !reflect.DeepEqual(got, want) {
				t.Error("concurrent Build returned a different layout")
			}
		}()
	}
	wg.Wait()
}

func TestLayoutValidation(t *testing.T) {
	tests := []struct {
		name      string
		items     []Item[struct{}]
		container Rect
		code      errors.Code
	}{
		{"negative weight", items(3, -1), unitSquare, errors.ErrCodeInvalidWeight},
		{"NaN weight", items(math.NaN()), unitSquare, errors.ErrCodeInvalidWeight},
		{"infinite weight", items(math.Inf(1)), unitSquare, errors.ErrCodeInvalidWeight},
		{"NaN change", []Item[struct{}]{{ID: "a", Weight: 1, Change: math.NaN()}}, unitSquare, errors.ErrCodeInvalidInput},
		{"duplicate id", []Item[struct{}]{{ID: "a", Weight: 1}, {ID: "a", Weight: 2}}, unitSquare, errors.ErrCodeInvalidInput},
		{"zero width container", items(1), Rect{Width: 0, Height: 10}, errors.ErrCodeInvalidContainer},
		{"negative height container", items(1), Rect{Width: 10, Height: -1}, errors.ErrCodeInvalidContainer},
		{"NaN container", items(1), Rect{X: math.NaN(), Width: 10, Height: 10}, errors.ErrCodeInvalidContainer},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Layout(tt.items, tt.container)
			if err == nil {
				t.Fatal("Layout() error = nil, want error")
			}
			if !errors.Is(err, tt.code) {
				t.Errorf("Layout() code = %v, want %v", errors.GetCode(err), tt.code)
			}
		})
	}
}

func TestLayoutValid(t *testing.T) {
	in := items(3, 2, 1)
	tiles, err := Layout(in, unitSquare)
	if err != nil {
		t.Fatalf("Layout() error = %v", err)
	}
	if !reflect.DeepEqual(tiles, Build(in, unitSquare)) {
		t.Error("Layout() should match Build() for valid input")
	}
}

func TestRectOverlaps(t *testing.T) {
	a := Rect{X: 0, Y: 0, Width: 10, Height: 10}
	tests := []struct {
		name string
		b    Rect
		want bool
	}{
		{"shared edge", Rect{X: 10, Y: 0, Width: 5, Height: 10}, false},
		{"disjoint", Rect{X: 20, Y: 20, Width: 5, Height: 5}, false},
		{"inside", Rect{X: 2, Y: 2, Width: 2, Height: 2}, true},
		{"partial", Rect{X: 5, Y: 5, Width: 10, Height: 10}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := a.Overlaps(tt.b, 1e-9); got != tt.want {
				t.Errorf("Overlaps() = %v, want %v", got, tt.want)
			}
		})
	}
}
