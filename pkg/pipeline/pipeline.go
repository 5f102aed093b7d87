// Package pipeline runs the prepare → layout → render flow for revenue
// heatmaps. The CLI and the HTTP server both go through [Runner] so that
// caching, logging and instrumentation behave the same everywhere.
//
// # Stages
//
//  1. Prepare: drop unplaceable records, optionally group by category and
//     keep the top N (with an "other" rollup)
//  2. Layout: squarified treemap of the prepared records, cached by
//     dataset hash and layout options
//  3. Render: SVG, JSON and terminal text, rendered concurrently and cached
//     per format
//
// # Usage
//
//	runner := pipeline.NewRunner(cache, nil, logger)
//	result, err := runner.Execute(ctx, dataset, pipeline.Options{
//	    Width:   1200,
//	    Height:  800,
//	    TopN:    25,
//	    Rollup:  true,
//	    Formats: []string{"svg", "json"},
//	})
//	svg := result.Artifacts["svg"]
package pipeline

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/matzehuels/revenuemap/pkg/cache"
	"github.com/matzehuels/revenuemap/pkg/errors"
	"github.com/matzehuels/revenuemap/pkg/heatmap"
	"github.com/matzehuels/revenuemap/pkg/sink"
	"github.com/matzehuels/revenuemap/pkg/treemap"
)

// Defaults shared by the CLI and the API.
const (
	DefaultWidth  = 1200.0
	DefaultHeight = 800.0
	MaxDimension  = 100_000.0
	MaxTopN       = 10_000
)

// GroupByCategory is the only supported grouping.
const GroupByCategory = "category"

var validate = validator.New()

// Options configures a pipeline run. The zero value is valid after
// [Options.SetDefaults]: a 1200x800 SVG of every record.
type Options struct {
	// Layout
	Width  float64 `json:"width,omitempty" validate:"gt=0,lte=100000"`
	Height float64 `json:"height,omitempty" validate:"gt=0,lte=100000"`
	// MinPartition is the leftover width or height below which remaining
	// records are dropped. 0 selects treemap.MinPartitionDimension; a
	// negative value disables dropping.
	MinPartition float64 `json:"min_partition,omitempty"`
	TopN         int     `json:"top_n,omitempty" validate:"gte=0,lte=10000"`
	Rollup       bool    `json:"rollup,omitempty"`
	GroupBy      string  `json:"group_by,omitempty" validate:"omitempty,oneof=category"`
	Title        string  `json:"title,omitempty" validate:"max=200"`

	// Render
	Formats  []string `json:"formats,omitempty" validate:"dive,oneof=svg json txt"`
	NoLabels bool     `json:"no_labels,omitempty"`
	Cols     int      `json:"cols,omitempty" validate:"gte=0,lte=1000"`
	Rows     int      `json:"rows,omitempty" validate:"gte=0,lte=1000"`

	// Refresh bypasses cache reads; results are still written.
	Refresh bool `json:"refresh,omitempty"`
}

// SetDefaults fills zero-valued fields.
func (o *Options) SetDefaults() {
	if o.Width == 0 {
		o.Width = DefaultWidth
	}
	if o.Height == 0 {
		o.Height = DefaultHeight
	}
	if len(o.Formats) == 0 {
		o.Formats = []string{sink.FormatSVG}
	}
	if o.Cols == 0 {
		o.Cols = sink.DefaultCols
	}
	if o.Rows == 0 {
		o.Rows = sink.DefaultRows
	}
}

// Validate checks option ranges. Call after SetDefaults.
func (o *Options) Validate() error {
	for _, f := range o.Formats {
		if err := errors.ValidateFormat(f, sink.Formats); err != nil {
			return err
		}
	}
	if err := validate.Struct(o); err != nil {
		return errors.FromValidator(errors.ErrCodeInvalidInput, err, "options")
	}
	return nil
}

// ValidateAndSetDefaults applies defaults, then validates.
func (o *Options) ValidateAndSetDefaults() error {
	o.SetDefaults()
	return o.Validate()
}

// Container returns the layout rectangle.
func (o *Options) Container() treemap.Rect {
	return treemap.Rect{Width: o.Width, Height: o.Height}
}

// minPartition resolves the MinPartition sentinel values.
func (o *Options) minPartition() float64 {
	switch {
	case o.MinPartition == 0:
		return treemap.MinPartitionDimension
	case o.MinPartition < 0:
		return 0
	default:
		return o.MinPartition
	}
}

// LayoutKeyOpts returns cache key options for layout computation.
func (o *Options) LayoutKeyOpts() cache.LayoutKeyOpts {
	return cache.LayoutKeyOpts{
		Width:        o.Width,
		Height:       o.Height,
		MinPartition: o.minPartition(),
		TopN:         o.TopN,
		Rollup:       o.Rollup,
		GroupBy:      o.GroupBy,
	}
}

// ArtifactKeyOpts returns cache key options for one rendered format.
func (o *Options) ArtifactKeyOpts(format string) cache.ArtifactKeyOpts {
	k := cache.ArtifactKeyOpts{Format: format, NoLabels: o.NoLabels}
	if format == sink.FormatText {
		k.Cols, k.Rows = o.Cols, o.Rows
	}
	return k
}

// Result contains the outputs of a pipeline run.
type Result struct {
	// Frame is the computed layout.
	Frame sink.Frame

	// DatasetHash identifies the prepared records.
	DatasetHash string

	// Rejected lists records dropped before layout.
	Rejected []heatmap.Rejection

	// Artifacts holds rendered outputs keyed by format.
	Artifacts map[string][]byte

	Stats     Stats
	CacheInfo CacheInfo
}

// Stats contains pipeline execution statistics.
type Stats struct {
	Records     int
	Rejected    int
	Tiles       int
	Dropped     int
	PrepareTime time.Duration
	LayoutTime  time.Duration
	RenderTime  time.Duration
}

// CacheInfo tracks cache hits for each stage.
type CacheInfo struct {
	LayoutHit bool
	RenderHit bool // all requested artifacts came from cache
}
