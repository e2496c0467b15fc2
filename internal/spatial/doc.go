// Package spatial answers "nearest edge to a point" queries with a uniform
// grid over edge bounding boxes.
//
// The grid cell size is derived from the mean edge length (twice the mean,
// clamped to [10, 500] units) and the grid is clamped to 1000x1000 cells;
// points and boxes outside the grid extent are clamped into border cells.
// Each unordered node pair is indexed once no matter how many directed edge
// records connect it.
package spatial
