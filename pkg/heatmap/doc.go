// Package heatmap turns revenue records into treemap items.
//
// A [Dataset] is a list of [Record] values, typically one per product or
// category, carrying revenue for the period and its percent change against
// the comparison period. Datasets are read from JSON, YAML or TOML
// ([Load], [Decode]), checked structurally ([Dataset.Validate]), cleaned of
// values the layout cannot place ([Sanitize]), optionally reduced to the
// biggest earners ([Top]) or grouped ([GroupByCategory]), and finally
// converted with [Items] for [treemap.Build].
//
// [treemap.Build]: github.com/matzehuels/revenuemap/pkg/treemap.Build
package heatmap
