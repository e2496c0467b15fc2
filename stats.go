package waygraph

// CacheStats reports usage of both caches.
type CacheStats struct {
	Path     PathCacheStats
	Distance DistanceCacheStats
}

// PathCacheStats reports path cache usage.
type PathCacheStats struct {
	Entries  int
	Capacity int
	HitRate  uint32 // percent, 0-100
	Hits     uint64
	Misses   uint64
}

// DistanceCacheStats reports distance cache usage.
type DistanceCacheStats struct {
	Entries int
	Size    int
	HitRate uint32 // percent, 0-100
	Hits    uint64
	Misses  uint64
}

// SpatialStats reports the spatial grid occupancy.
type SpatialStats struct {
	Width, Height int
	CellSize      float32
	Cells         int
	Edges         int
	AvgPerCell    float32 // over non-empty cells
	MaxPerCell    int
}

// SearchStats are cumulative search counters.
type SearchStats struct {
	Searches uint64
	// Retries counts restarts after the graph changed mid-search.
	Retries uint64
	// Expanded counts node expansions.
	Expanded uint64
	// Fallbacks counts projections that needed a full edge scan.
	Fallbacks uint64
}
