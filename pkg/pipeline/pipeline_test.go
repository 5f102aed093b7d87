package pipeline

import (
	"context"
	"encoding/json"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/revenuemap/pkg/cache"
	"github.com/matzehuels/revenuemap/pkg/errors"
	"github.com/matzehuels/revenuemap/pkg/heatmap"
	"github.com/matzehuels/revenuemap/pkg/observability"
	"github.com/matzehuels/revenuemap/pkg/sink"
	"github.com/matzehuels/revenuemap/pkg/treemap"
)

func quietRunner(c cache.Cache) *Runner {
	return NewRunner(c, nil, log.New(io.Discard))
}

func testDataset() *heatmap.Dataset {
	return &heatmap.Dataset{
		Title:    "Q3",
		Currency: "EUR",
		Records: []heatmap.Record{
			{ID: "espresso", Label: "Espresso", Category: "Coffee", Revenue: 600, ChangePct: 4},
			{ID: "latte", Label: "Latte", Category: "Coffee", Revenue: 200, ChangePct: -2},
			{ID: "sencha", Label: "Sencha", Category: "Tea", Revenue: 150, ChangePct: 1},
			{ID: "mug", Label: "Mug", Revenue: 50, ChangePct: 0},
			{ID: "refund", Label: "Refund", Revenue: -40},
		},
	}
}

func TestOptionsDefaults(t *testing.T) {
	var o Options
	if err := o.ValidateAndSetDefaults(); err != nil {
		t.Fatalf("zero options should be valid after defaults: %v", err)
	}
	if o.Width != DefaultWidth || o.Height != DefaultHeight {
		t.Errorf("size = %vx%v", o.Width, o.Height)
	}
	if len(o.Formats) != 1 || o.Formats[0] != sink.FormatSVG {
		t.Errorf("Formats = %v", o.Formats)
	}
	if o.Cols != sink.DefaultCols || o.Rows != sink.DefaultRows {
		t.Errorf("grid = %dx%d", o.Cols, o.Rows)
	}
}

func TestOptionsValidate(t *testing.T) {
	tests := []struct {
		name string
		opts Options
		code errors.Code
	}{
		{"unknown format", Options{Formats: []string{"png"}}, errors.ErrCodeInvalidFormat},
		{"negative width", Options{Width: -5}, errors.ErrCodeInvalidInput},
		{"huge height", Options{Height: 1e9}, errors.ErrCodeInvalidInput},
		{"bad group", Options{GroupBy: "region"}, errors.ErrCodeInvalidInput},
		{"negative top", Options{TopN: -1}, errors.ErrCodeInvalidInput},
		{"huge grid", Options{Cols: 5000}, errors.ErrCodeInvalidInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.opts.ValidateAndSetDefaults()
			if !errors.Is(err, tt.code) {
				t.Errorf("err = %v, want code %s", err, tt.code)
			}
		})
	}
}

func TestMinPartition(t *testing.T) {
	tests := []struct {
		in, want float64
	}{
		{0, treemap.MinPartitionDimension},
		{-1, 0},
		{0.5, 0.5},
	}
	for _, tt := range tests {
		o := Options{MinPartition: tt.in}
		if got := o.minPartition(); got != tt.want {
			t.Errorf("minPartition(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestArtifactKeyOpts(t *testing.T) {
	o := Options{Cols: 40, Rows: 10}
	if k := o.ArtifactKeyOpts(sink.FormatSVG); k.Cols != 0 || k.Rows != 0 {
		t.Errorf("svg key should ignore the grid size: %+v", k)
	}
	if k := o.ArtifactKeyOpts(sink.FormatText); k.Cols != 40 || k.Rows != 10 {
		t.Errorf("txt key should include the grid size: %+v", k)
	}
}

func TestPrepare(t *testing.T) {
	r := quietRunner(nil)
	ds := testDataset()

	prepared, rejected := r.Prepare(context.Background(), ds, Options{})
	if len(prepared.Records) != 4 || len(rejected) != 1 || rejected[0].Record.ID != "refund" {
		t.Errorf("prepared %d, rejected %+v", len(prepared.Records), rejected)
	}
	if len(ds.Records) != 5 {
		t.Error("Prepare must not modify its input")
	}

	grouped, _ := r.Prepare(context.Background(), ds, Options{GroupBy: GroupByCategory, TopN: 1, Rollup: true, Title: "By category"})
	if len(grouped.Records) != 2 {
		t.Fatalf("grouped records = %d, want 2", len(grouped.Records))
	}
	if grouped.Records[0].ID != "category:Coffee" || grouped.Records[0].Revenue != 800 {
		t.Errorf("first group = %+v", grouped.Records[0])
	}
	if grouped.Records[1].ID != heatmap.OtherID || grouped.Records[1].Revenue != 200 {
		t.Errorf("rollup = %+v", grouped.Records[1])
	}
	if grouped.Title != "By category" || ds.Title != "Q3" {
		t.Errorf("title override: %q / %q", grouped.Title, ds.Title)
	}
}

func TestExecute(t *testing.T) {
	r := quietRunner(cache.NewMemoryCache(0))
	ctx := context.Background()
	opts := Options{Width: 400, Height: 300, Formats: []string{"svg", "json", "txt"}}

	result, err := r.Execute(ctx, testDataset(), opts)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if result.Stats.Records != 4 || result.Stats.Rejected != 1 || result.Stats.Tiles != 4 || result.Stats.Dropped != 0 {
		t.Errorf("stats = %+v", result.Stats)
	}
	if result.CacheInfo.LayoutHit || result.CacheInfo.RenderHit {
		t.Error("first run should miss the cache")
	}
	if result.DatasetHash == "" {
		t.Error("DatasetHash not set")
	}
	if result.Frame.Title != "Q3" || result.Frame.Currency != "EUR" {
		t.Errorf("frame header = %q/%q", result.Frame.Title, result.Frame.Currency)
	}

	if !strings.HasPrefix(string(result.Artifacts["svg"]), "<svg") {
		t.Error("svg artifact missing")
	}
	var doc sink.Document
	if err := json.Unmarshal(result.Artifacts["json"], &doc); err != nil || len(doc.Tiles) != 4 {
		t.Errorf("json artifact: %v, %d tiles", err, len(doc.Tiles))
	}
	if lines := strings.Count(string(result.Artifacts["txt"]), "\n"); lines != sink.DefaultRows+1 {
		t.Errorf("txt artifact has %d lines, want %d", lines, sink.DefaultRows+1)
	}

	again, err := r.Execute(ctx, testDataset(), opts)
	if err != nil {
		t.Fatal(err)
	}
	if !again.CacheInfo.LayoutHit || !again.CacheInfo.RenderHit {
		t.Errorf("second run cache info = %+v", again.CacheInfo)
	}
	if string(again.Artifacts["svg"]) != string(result.Artifacts["svg"]) {
		t.Error("cached svg differs")
	}

	opts.Refresh = true
	fresh, err := r.Execute(ctx, testDataset(), opts)
	if err != nil {
		t.Fatal(err)
	}
	if fresh.CacheInfo.LayoutHit || fresh.CacheInfo.RenderHit {
		t.Error("refresh should bypass cache reads")
	}
}

func TestExecuteCachesPerOptions(t *testing.T) {
	r := quietRunner(cache.NewMemoryCache(0))
	ctx := context.Background()

	if _, err := r.Execute(ctx, testDataset(), Options{Width: 400, Height: 300}); err != nil {
		t.Fatal(err)
	}
	res, err := r.Execute(ctx, testDataset(), Options{Width: 500, Height: 300})
	if err != nil {
		t.Fatal(err)
	}
	if res.CacheInfo.LayoutHit {
		t.Error("different container should miss the layout cache")
	}

	ds := testDataset()
	ds.Records[0].Revenue = 601
	res, err = r.Execute(ctx, ds, Options{Width: 400, Height: 300})
	if err != nil {
		t.Fatal(err)
	}
	if res.CacheInfo.LayoutHit {
		t.Error("changed dataset should miss the layout cache")
	}
}

func TestExecuteDropped(t *testing.T) {
	r := quietRunner(nil)
	ds := &heatmap.Dataset{Records: []heatmap.Record{
		{ID: "big", Revenue: 1000},
		{ID: "sliver", Revenue: 0.1},
	}}

	res, err := r.Execute(context.Background(), ds, Options{Width: 1, Height: 1, Formats: []string{"json"}})
	if err != nil {
		t.Fatal(err)
	}
	if res.Stats.Dropped != 1 || len(res.Frame.Dropped) != 1 || res.Frame.Dropped[0] != "sliver" {
		t.Errorf("dropped = %v", res.Frame.Dropped)
	}

	res, err = r.Execute(context.Background(), ds, Options{Width: 1, Height: 1, MinPartition: -1, Formats: []string{"json"}})
	if err != nil {
		t.Fatal(err)
	}
	if res.Stats.Dropped != 0 || res.Stats.Tiles != 2 {
		t.Errorf("with dropping disabled: %+v", res.Stats)
	}
}

func TestExecuteInvalid(t *testing.T) {
	r := quietRunner(nil)
	ctx := context.Background()

	dup := &heatmap.Dataset{Records: []heatmap.Record{{ID: "a"}, {ID: "a"}}}
	if _, err := r.Execute(ctx, dup, Options{}); !errors.Is(err, errors.ErrCodeInvalidDataset) {
		t.Errorf("duplicate ids: %v", err)
	}
	if _, err := r.Execute(ctx, testDataset(), Options{Formats: []string{"pdf"}}); !errors.Is(err, errors.ErrCodeInvalidFormat) {
		t.Errorf("bad format: %v", err)
	}
}

func TestExecuteEmptyDataset(t *testing.T) {
	r := quietRunner(nil)
	res, err := r.Execute(context.Background(), &heatmap.Dataset{}, Options{Formats: []string{"json"}})
	if err != nil {
		t.Fatal(err)
	}
	if res.Stats.Tiles != 0 {
		t.Errorf("tiles = %d", res.Stats.Tiles)
	}
	var doc sink.Document
	if err := json.Unmarshal(res.Artifacts["json"], &doc); err != nil {
		t.Fatal(err)
	}
	if doc.Tiles == nil || len(doc.Tiles) != 0 {
		t.Errorf("tiles = %v, want empty array", doc.Tiles)
	}
}

func TestExecuteRollupWithOtherRecord(t *testing.T) {
	r := quietRunner(nil)
	ds := &heatmap.Dataset{Records: []heatmap.Record{
		{ID: heatmap.OtherID, Revenue: 500},
		{ID: "mug", Revenue: 100},
		{ID: "lamp", Revenue: 50},
	}}
	res, err := r.Execute(context.Background(), ds, Options{TopN: 1, Rollup: true, Formats: []string{"json"}})
	if err != nil {
		t.Fatal(err)
	}
	if res.Stats.Tiles != 2 {
		t.Fatalf("tiles = %d, want 2", res.Stats.Tiles)
	}
	ids := []string{res.Frame.Tiles[0].ID, res.Frame.Tiles[1].ID}
	if ids[0] != heatmap.OtherID || ids[1] != heatmap.OtherID+"-2" {
		t.Errorf("tile ids = %v", ids)
	}
}

func TestRenderDuplicateFormats(t *testing.T) {
	r := quietRunner(nil)
	frame := sink.Frame{Container: treemap.Rect{Width: 10, Height: 10}}
	artifacts, err := r.Render(context.Background(), frame, Options{Formats: []string{"svg", "svg"}})
	if err != nil {
		t.Fatal(err)
	}
	if len(artifacts) != 1 {
		t.Errorf("artifacts = %d, want 1", len(artifacts))
	}
}

func TestLayoutWithCacheInfo(t *testing.T) {
	r := quietRunner(cache.NewMemoryCache(0))
	ctx := context.Background()
	prepared, _ := r.Prepare(ctx, testDataset(), Options{})

	frame, hit, err := r.LayoutWithCacheInfo(ctx, prepared, Options{Width: 100, Height: 100})
	if err != nil || hit {
		t.Fatalf("first layout: hit=%v err=%v", hit, err)
	}
	cached, hit, err := r.LayoutWithCacheInfo(ctx, prepared, Options{Width: 100, Height: 100})
	if err != nil || !hit {
		t.Fatalf("second layout: hit=%v err=%v", hit, err)
	}
	if len(cached.Tiles) != len(frame.Tiles) || cached.Tiles[0].Rect != frame.Tiles[0].Rect || cached.Tiles[0].Data != frame.Tiles[0].Data {
		t.Error("cached frame differs from computed frame")
	}

	if _, err := r.Layout(ctx, prepared, Options{Width: -1}); !errors.Is(err, errors.ErrCodeInvalidInput) {
		t.Errorf("invalid width: %v", err)
	}
}

func TestHooksObserveRun(t *testing.T) {
	defer observability.Reset()
	hooks := &recordingHooks{}
	observability.SetPipelineHooks(hooks)
	observability.SetCacheHooks(hooks)

	r := quietRunner(cache.NewMemoryCache(0))
	if _, err := r.Execute(context.Background(), testDataset(), Options{Formats: []string{"svg", "json"}}); err != nil {
		t.Fatal(err)
	}

	hooks.mu.Lock()
	defer hooks.mu.Unlock()
	if hooks.prepared != 4 || hooks.rejected != 1 {
		t.Errorf("prepare event = %d/%d", hooks.prepared, hooks.rejected)
	}
	if hooks.tiles != 4 {
		t.Errorf("layout event tiles = %d", hooks.tiles)
	}
	if hooks.rendered != 2 {
		t.Errorf("render event formats = %d", hooks.rendered)
	}
	if hooks.sets != 3 {
		t.Errorf("cache sets = %d, want 3 (layout + 2 artifacts)", hooks.sets)
	}
}

type recordingHooks struct {
	observability.NoopPipelineHooks
	observability.NoopCacheHooks

	mu                 sync.Mutex
	prepared, rejected int
	tiles, rendered    int
	sets               int
}

func (h *recordingHooks) OnPrepare(_ context.Context, records, rejected int) {
	h.mu.Lock()
	h.prepared, h.rejected = records, rejected
	h.mu.Unlock()
}

func (h *recordingHooks) OnLayoutComplete(_ context.Context, tiles, _ int, _ time.Duration, _ error) {
	h.mu.Lock()
	h.tiles = tiles
	h.mu.Unlock()
}

func (h *recordingHooks) OnRenderComplete(_ context.Context, formats []string, _ time.Duration, _ error) {
	h.mu.Lock()
	h.rendered = len(formats)
	h.mu.Unlock()
}

func (h *recordingHooks) OnCacheSet(context.Context, string, int) {
	h.mu.Lock()
	h.sets++
	h.mu.Unlock()
}
