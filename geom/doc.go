// Package geom provides the 2D float32 geometry used by the pathfinder:
// positions, Euclidean distances, epsilon comparisons and segment projection.
//
// # Usage
//
//	d := geom.Distance(a, b)
//	p, t := geom.ProjectSegment(q, a, b)
//	same := geom.Equal(a, b)
package geom
