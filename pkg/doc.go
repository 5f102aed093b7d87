// Package pkg provides the core libraries for Revenuemap revenue heatmaps.
//
// # Overview
//
// Revenuemap turns revenue records into a squarified treemap: each record
// becomes a rectangle whose area is its revenue and whose color encodes its
// period-over-period change. The pkg directory is organized into:
//
//  1. [treemap] - Domain-agnostic squarified layout and change coloring
//  2. [heatmap] - Revenue records, dataset decoding and transforms
//  3. [sink] - SVG, JSON and terminal renderers for computed frames
//  4. [pipeline] - Orchestration (prepare → layout → render) with caching
//  5. [cache], [share] - Infrastructure (layout cache, shared heatmaps)
//
// # Architecture
//
// The typical data flow:
//
//	JSON/YAML/TOML dataset
//	         ↓
//	    [heatmap] package (decode, sanitize, top N, grouping)
//	         ↓
//	    [treemap] package (squarified layout + colors)
//	         ↓
//	    [sink] package (SVG, JSON, text)
//
// # Quick Start
//
//	ds, err := heatmap.Load("q3.json")
//	if err != nil {
//	    return err
//	}
//	runner := pipeline.NewRunner(nil, nil, nil)
//	result, err := runner.Execute(ctx, ds, pipeline.Options{
//	    Width:   1200,
//	    Height:  800,
//	    Formats: []string{sink.FormatSVG},
//	})
//	if err != nil {
//	    return err
//	}
//	os.WriteFile("q3.svg", result.Artifacts[sink.FormatSVG], 0o644)
//
// # Testing
//
//	go test ./...                        # All tests
//	go test ./pkg/treemap/...            # Specific package
//	go test -run Invariants ./pkg/treemap  # Layout properties
//
// [treemap]: https://pkg.go.dev/github.com/matzehuels/revenuemap/pkg/treemap
// [heatmap]: https://pkg.go.dev/github.com/matzehuels/revenuemap/pkg/heatmap
// [sink]: https://pkg.go.dev/github.com/matzehuels/revenuemap/pkg/sink
// [pipeline]: https://pkg.go.dev/github.com/matzehuels/revenuemap/pkg/pipeline
// [cache]: https://pkg.go.dev/github.com/matzehuels/revenuemap/pkg/cache
// [share]: https://pkg.go.dev/github.com/matzehuels/revenuemap/pkg/share
package pkg
