package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/matzehuels/revenuemap/pkg/cache"
	"github.com/matzehuels/revenuemap/pkg/heatmap"
	"github.com/matzehuels/revenuemap/pkg/observability"
	"github.com/matzehuels/revenuemap/pkg/sink"
	"github.com/matzehuels/revenuemap/pkg/treemap"
)

// Runner executes the pipeline with caching.
//
// The Runner holds no per-run state; one instance can serve concurrent runs
// with different options.
type Runner struct {
	Cache  cache.Cache
	Keyer  cache.Keyer
	Logger *log.Logger
}

// NewRunner creates a runner. A nil cache disables caching, a nil keyer
// selects [cache.DefaultKeyer] and a nil logger selects log.Default().
func NewRunner(c cache.Cache, keyer cache.Keyer, logger *log.Logger) *Runner {
	if c == nil {
		c = cache.NewNullCache()
	}
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{Cache: c, Keyer: keyer, Logger: logger}
}

// Execute validates the dataset and options, then runs all three stages.
func (r *Runner) Execute(ctx context.Context, ds *heatmap.Dataset, opts Options) (*Result, error) {
	if err := ds.Validate(); err != nil {
		return nil, err
	}
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, err
	}
	result := &Result{}

	start := time.Now()
	prepared, rejected := r.Prepare(ctx, ds, opts)
	result.Rejected = rejected
	result.Stats.Records = len(prepared.Records)
	result.Stats.Rejected = len(rejected)
	result.Stats.PrepareTime = time.Since(start)

	start = time.Now()
	frame, hash, hit, err := r.layout(ctx, prepared, opts)
	if err != nil {
		return nil, fmt.Errorf("layout: %w", err)
	}
	result.Frame = frame
	result.DatasetHash = hash
	result.Stats.Tiles = len(frame.Tiles)
	result.Stats.Dropped = len(frame.Dropped)
	result.Stats.LayoutTime = time.Since(start)
	result.CacheInfo.LayoutHit = hit

	r.Logger.Info("computed layout",
		"records", result.Stats.Records,
		"tiles", result.Stats.Tiles,
		"cached", hit,
		"duration", result.Stats.LayoutTime)

	start = time.Now()
	artifacts, hit, err := r.RenderWithCacheInfo(ctx, frame, opts)
	if err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	result.Artifacts = artifacts
	result.Stats.RenderTime = time.Since(start)
	result.CacheInfo.RenderHit = hit

	r.Logger.Info("rendered outputs",
		"formats", opts.Formats,
		"cached", hit,
		"duration", result.Stats.RenderTime)

	return result, nil
}

// Prepare returns a copy of ds holding only placeable records, grouped and
// truncated per opts, plus the records that were rejected.
func (r *Runner) Prepare(ctx context.Context, ds *heatmap.Dataset, opts Options) (*heatmap.Dataset, []heatmap.Rejection) {
	kept, rejected := heatmap.Sanitize(ds.Records)
	for _, rej := range rejected {
		r.Logger.Warn("skipping record", "id", rej.Record.ID, "reason", rej.Reason)
	}
	if opts.GroupBy == GroupByCategory {
		kept = heatmap.GroupByCategory(kept)
	}
	if opts.TopN > 0 {
		kept = heatmap.Top(kept, opts.TopN, opts.Rollup)
	}
	observability.Pipeline().OnPrepare(ctx, len(kept), len(rejected))

	prepared := *ds
	prepared.Records = kept
	if opts.Title != "" {
		prepared.Title = opts.Title
	}
	return &prepared, rejected
}

// Layout computes the frame for an already prepared dataset.
func (r *Runner) Layout(ctx context.Context, prepared *heatmap.Dataset, opts Options) (sink.Frame, error) {
	frame, _, err := r.LayoutWithCacheInfo(ctx, prepared, opts)
	return frame, err
}

// LayoutWithCacheInfo computes the frame and reports whether it came from
// the cache.
func (r *Runner) LayoutWithCacheInfo(ctx context.Context, prepared *heatmap.Dataset, opts Options) (sink.Frame, bool, error) {
	opts.SetDefaults()
	if err := opts.Validate(); err != nil {
		return sink.Frame{}, false, err
	}
	frame, _, hit, err := r.layout(ctx, prepared, opts)
	return frame, hit, err
}

func (r *Runner) layout(ctx context.Context, prepared *heatmap.Dataset, opts Options) (sink.Frame, string, bool, error) {
	data, err := heatmap.Marshal(prepared)
	if err != nil {
		return sink.Frame{}, "", false, fmt.Errorf("hash dataset: %w", err)
	}
	hash := cache.Hash(data)
	key := r.Keyer.LayoutKey(hash, opts.LayoutKeyOpts())

	if !opts.Refresh {
		if frame, ok := r.cachedFrame(ctx, key); ok {
			return frame, hash, true, nil
		}
	}

	frame, err := r.computeFrame(ctx, prepared, opts)
	if err != nil {
		return sink.Frame{}, "", false, err
	}

	if data, err := json.Marshal(frame); err == nil {
		r.store(ctx, "layout", key, data, cache.TTLLayout)
	}
	return frame, hash, false, nil
}

func (r *Runner) cachedFrame(ctx context.Context, key string) (sink.Frame, bool) {
	data, hit, err := r.Cache.Get(ctx, key)
	if err != nil {
		r.Logger.Warn("cache read failed", "key", key, "err", err)
	}
	if err != nil || !hit {
		observability.Cache().OnCacheMiss(ctx, "layout")
		return sink.Frame{}, false
	}
	var frame sink.Frame
	if err := json.Unmarshal(data, &frame); err != nil {
		// stale schema; recompute
		observability.Cache().OnCacheMiss(ctx, "layout")
		return sink.Frame{}, false
	}
	observability.Cache().OnCacheHit(ctx, "layout")
	return frame, true
}

func (r *Runner) computeFrame(ctx context.Context, prepared *heatmap.Dataset, opts Options) (sink.Frame, error) {
	items := heatmap.Items(prepared.Records)
	hooks := observability.Pipeline()
	hooks.OnLayoutStart(ctx, len(items))

	start := time.Now()
	tiles, err := treemap.Layout(items, opts.Container(), treemap.WithMinPartition(opts.minPartition()))
	if err != nil {
		hooks.OnLayoutComplete(ctx, 0, 0, time.Since(start), err)
		return sink.Frame{}, err
	}
	dropped := treemap.Missing(items, tiles)
	hooks.OnLayoutComplete(ctx, len(tiles), len(dropped), time.Since(start), nil)

	if len(dropped) > 0 {
		r.Logger.Warn("records too small to place",
			"dropped", len(dropped),
			"ids", dropped,
			"min_partition", opts.minPartition())
	}

	return sink.Frame{
		Title:     prepared.Title,
		Period:    prepared.Period,
		Currency:  prepared.Currency,
		Container: opts.Container(),
		Tiles:     tiles,
		Dropped:   dropped,
	}, nil
}

// Render renders every requested format of frame.
func (r *Runner) Render(ctx context.Context, frame sink.Frame, opts Options) (map[string][]byte, error) {
	artifacts, _, err := r.RenderWithCacheInfo(ctx, frame, opts)
	return artifacts, err
}

// RenderWithCacheInfo renders the formats that are not cached, concurrently,
// and reports whether every format was a cache hit.
func (r *Runner) RenderWithCacheInfo(ctx context.Context, frame sink.Frame, opts Options) (map[string][]byte, bool, error) {
	opts.SetDefaults()
	if err := opts.Validate(); err != nil {
		return nil, false, err
	}

	frameData, err := json.Marshal(frame)
	if err != nil {
		return nil, false, fmt.Errorf("serialize frame for cache key: %w", err)
	}
	frameHash := cache.Hash(frameData)

	artifacts := make(map[string][]byte, len(opts.Formats))
	var missing []string
	for _, format := range opts.Formats {
		if _, dup := artifacts[format]; dup || slices.Contains(missing, format) {
			continue
		}
		key := r.Keyer.ArtifactKey(frameHash, opts.ArtifactKeyOpts(format))
		if !opts.Refresh {
			if data, hit, err := r.Cache.Get(ctx, key); err == nil && hit {
				observability.Cache().OnCacheHit(ctx, "artifact")
				artifacts[format] = data
				continue
			}
		}
		observability.Cache().OnCacheMiss(ctx, "artifact")
		missing = append(missing, format)
	}
	if len(missing) == 0 {
		return artifacts, true, nil
	}

	hooks := observability.Pipeline()
	hooks.OnRenderStart(ctx, missing)
	start := time.Now()

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	for _, format := range missing {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			data, err := renderFormat(frame, format, opts)
			if err != nil {
				return fmt.Errorf("%s: %w", format, err)
			}
			mu.Lock()
			artifacts[format] = data
			mu.Unlock()
			return nil
		})
	}
	err = g.Wait()
	hooks.OnRenderComplete(ctx, missing, time.Since(start), err)
	if err != nil {
		return nil, false, err
	}

	for _, format := range missing {
		key := r.Keyer.ArtifactKey(frameHash, opts.ArtifactKeyOpts(format))
		r.store(ctx, "artifact", key, artifacts[format], cache.TTLArtifact)
	}
	return artifacts, false, nil
}

func renderFormat(frame sink.Frame, format string, opts Options) ([]byte, error) {
	switch format {
	case sink.FormatSVG:
		var svgOpts []sink.SVGOption
		if opts.NoLabels {
			svgOpts = append(svgOpts, sink.WithoutLabels())
		}
		return sink.RenderSVG(frame, svgOpts...), nil
	case sink.FormatJSON:
		return sink.RenderJSON(frame)
	case sink.FormatText:
		return []byte(sink.RenderText(frame, sink.WithSize(opts.Cols, opts.Rows), sink.WithLegend()) + "\n"), nil
	default:
		return nil, fmt.Errorf("unsupported format %q", format)
	}
}

// store writes to the cache; failures are logged, never returned.
func (r *Runner) store(ctx context.Context, keyType, key string, data []byte, ttl time.Duration) {
	if err := r.Cache.Set(ctx, key, data, ttl); err != nil {
		r.Logger.Warn("cache write failed", "key", key, "err", err)
		return
	}
	observability.Cache().OnCacheSet(ctx, keyType, len(data))
}

// Close releases the cache.
func (r *Runner) Close() error {
	if r.Cache != nil {
		return r.Cache.Close()
	}
	return nil
}

