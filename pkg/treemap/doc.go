// Package treemap lays out weighted items as a squarified treemap.
//
// # Overview
//
// Given a set of weighted items and a container rectangle, [Build] partitions
// the container into one rectangle per item. Each rectangle's area is
// proportional to the item's weight, and the partition greedily keeps tiles
// as close to square as it can. Every tile is also assigned a fill color
// derived from the item's change value (see [ColorFor]).
//
// This is the engine behind the revenue heatmap: weights are revenue, change
// values are period-over-period percent changes, and the container is the
// normalized 0..100 square of the rendering surface. The engine itself is
// unit-agnostic and works for any positive container.
//
// # Algorithm
//
// Items are sorted by weight, largest first, and then laid out row by row:
//
//  1. The row orientation follows the remaining rectangle. A rectangle that is
//     at least as wide as it is tall receives a vertical strip on its left
//     edge; otherwise it receives a horizontal strip along its top edge.
//  2. The row grows one item at a time while the worst aspect ratio of its
//     tiles does not get worse. Ties favor inclusion.
//  3. The strip's thickness is the row's share of the remaining weight; its
//     tiles split the strip in proportion to their own weights.
//  4. The remaining items are laid out into the leftover rectangle.
//
// Row growth is greedy and never backtracks, so the result is a good local
// approximation rather than a global optimum.
//
// # Dropped Items
//
// Partitioning stops when the leftover rectangle becomes thinner than
// [MinPartitionDimension] (tunable with [WithMinPartition]). Items that have
// not been placed at that point receive no tile. Callers must not assume one
// tile per item; use [Missing] to find the ids that were dropped.
//
// # Preconditions
//
// [Build] does not validate its input. Negative or non-finite weights produce
// meaningless geometry. [Layout] validates items and container first and
// returns a coded error from [github.com/matzehuels/revenuemap/pkg/errors].
//
// # Concurrency
//
// Both entry points are pure functions of their arguments. They hold no
// package-level state and are safe to call from multiple goroutines.
package treemap
