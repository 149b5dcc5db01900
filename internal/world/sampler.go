package world

import (
	"sync"

	"terrastream/internal/config"
	"terrastream/internal/noise"
)

// HeightSampler computes the terrain height at world coordinates, memoizing
// results so the mesh builder's repeated corner lookups stay cheap.
//
// Cache entries are bucketed by the chunk the sample falls in; ReleaseChunk
// drops a bucket when the streamer evicts that chunk, so the cache stays
// bounded by the resident set instead of growing for the lifetime of the
// process. A border sample dropped with its owning chunk is simply recomputed
// on the next miss.
type HeightSampler struct {
	field       *noise.Field
	noiseScale  float64
	heightScale float64
	octaves     int
	persistence float64
	lacunarity  float64
	chunkSize   float64

	mu     sync.RWMutex
	cache  map[ChunkCoord]map[[2]float64]float64
	misses uint64
}

// NewHeightSampler builds a sampler from validated terrain settings.
func NewHeightSampler(field *noise.Field, cfg config.Terrain) *HeightSampler {
	return &HeightSampler{
		field:       field,
		noiseScale:  cfg.NoiseScale,
		heightScale: cfg.HeightScale,
		octaves:     cfg.Octaves,
		persistence: cfg.Persistence,
		lacunarity:  cfg.Lacunarity,
		chunkSize:   cfg.ChunkSize,
		cache:       make(map[ChunkCoord]map[[2]float64]float64),
	}
}

// Height returns the terrain height at (x, y). Identical coordinates always
// return the identical value; cached entries are never recomputed.
func (s *HeightSampler) Height(x, y float64) float64 {
	key := [2]float64{x, y}
	owner := ChunkCoordAt(x, y, s.chunkSize)

	s.mu.RLock()
	if bucket, ok := s.cache[owner]; ok {
		if h, ok := bucket[key]; ok {
			s.mu.RUnlock()
			return h
		}
	}
	s.mu.RUnlock()

	h := s.compute(x, y)

	s.mu.Lock()
	bucket, ok := s.cache[owner]
	if !ok {
		bucket = make(map[[2]float64]float64)
		s.cache[owner] = bucket
	}
	bucket[key] = h
	s.misses++
	s.mu.Unlock()
	return h
}

// compute is the uncached height function: base FBM plus one low-frequency
// and one high-frequency detail term, scaled to world units.
func (s *HeightSampler) compute(x, y float64) float64 {
	nx := x * s.noiseScale
	ny := y * s.noiseScale

	base := s.field.FBM(nx, ny, s.octaves, s.persistence, s.lacunarity)
	largeScale := s.field.Noise2D(nx*0.2, ny*0.2) * 0.3
	mediumScale := s.field.Noise2D(nx*2.0, ny*2.0) * 0.15

	return (base + largeScale + mediumScale) * s.heightScale
}

// ReleaseChunk drops every cached sample owned by the given chunk.
func (s *HeightSampler) ReleaseChunk(coord ChunkCoord) {
	s.mu.Lock()
	delete(s.cache, coord)
	s.mu.Unlock()
}

// Prune drops every bucket whose chunk is not in keep. Border and slope
// samples spill into neighbor buckets outside the resident set; pruning on
// each streaming update keeps those from accumulating as the player travels.
func (s *HeightSampler) Prune(keep map[ChunkCoord]struct{}) {
	s.mu.Lock()
	for coord := range s.cache {
		if _, ok := keep[coord]; !ok {
			delete(s.cache, coord)
		}
	}
	s.mu.Unlock()
}

// Reset clears the whole cache.
func (s *HeightSampler) Reset() {
	s.mu.Lock()
	s.cache = make(map[ChunkCoord]map[[2]float64]float64)
	s.mu.Unlock()
}

// Misses reports how many heights were actually computed, as opposed to
// served from cache. Used by tests to verify memoization.
func (s *HeightSampler) Misses() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.misses
}

// CachedChunks reports how many chunk buckets currently hold samples.
func (s *HeightSampler) CachedChunks() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.cache)
}
